// SPDX-License-Identifier: Apache-2.0

// Package share implements the reconciliation core: planning derived
// volume/claim pairs for a manifest, diffing desired against actual
// state, pruning, and drift reporting.
package share

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/kubestorage/pvshare/internal/inspect"
	"github.com/kubestorage/pvshare/internal/kube"
	"github.com/kubestorage/pvshare/internal/manifest"
)

var (
	// ErrTargetNamespaceMissing indicates a target namespace does not
	// exist. Namespaces are never created implicitly.
	ErrTargetNamespaceMissing = errors.New("target namespace missing")

	// ErrPartialFailure aggregates independent per-target failures.
	// The batch ran to completion; some targets did not succeed.
	ErrPartialFailure = errors.New("one or more targets failed")
)

// ActionKind classifies what the engine decided for one target.
type ActionKind string

const (
	// ActionCreate synthesizes the derived volume and claim.
	ActionCreate = ActionKind("create")
	// ActionSkip leaves a pre-existing claim untouched. The engine
	// never overwrites or deletes a claim it did not plan itself.
	ActionSkip = ActionKind("skip")
	// ActionFail records a per-target precondition failure.
	ActionFail = ActionKind("fail")
)

// Action is one planned step for one target.
type Action struct {
	Kind       ActionKind
	Target     manifest.TargetSpec
	VolumeName string
	// ReuseVolume is set when the derived volume already exists and
	// only the claim needs creating.
	ReuseVolume bool
	Reason      string
	Err         error

	// Objects to create; populated only for ActionCreate.
	PV  *corev1.PersistentVolume
	PVC *corev1.PersistentVolumeClaim
}

// Plan is the full decision set for one manifest.
type Plan struct {
	Source  *inspect.SourceVolume
	Labels  map[string]string
	Actions []Action
}

// Engine computes and executes share plans.
type Engine struct {
	client    *kube.Client
	inspector *inspect.Inspector
	labeler   Labeler
	log       logr.Logger
}

// NewEngine creates an Engine.
func NewEngine(
	client *kube.Client,
	inspector *inspect.Inspector,
	labeler Labeler,
	log logr.Logger) *Engine {
	// ---
	return &Engine{
		client:    client,
		inspector: inspector,
		labeler:   labeler,
		log:       log,
	}
}

// ResolveSource exposes source resolution for read-only commands.
func (e *Engine) ResolveSource(
	ctx context.Context, src manifest.SourceRef) (*inspect.SourceVolume, error) {
	// ---
	return e.inspector.ResolveSource(ctx, src.Namespace, src.Claim)
}

// PlanShare resolves the manifest's source and decides an action per
// target. Source resolution failures abort planning; target-level
// problems become ActionFail or ActionSkip entries so that one bad
// target never blocks the rest.
func (e *Engine) PlanShare(
	ctx context.Context, m *manifest.ShareManifest) (*Plan, error) {
	// ---
	if len(m.Targets) == 0 {
		return nil, manifest.ErrEmptyTargetList
	}
	src, err := e.inspector.ResolveSource(
		ctx, m.Source.Namespace, m.Source.Claim)
	if err != nil {
		return nil, err
	}

	plan := &Plan{Source: src, Labels: m.Labels}
	for _, tgt := range m.Targets {
		act, err := e.planTarget(ctx, m, src, tgt)
		if err != nil {
			return nil, err
		}
		plan.Actions = append(plan.Actions, act)
	}
	return plan, nil
}

func (e *Engine) planTarget(
	ctx context.Context,
	m *manifest.ShareManifest,
	src *inspect.SourceVolume,
	tgt manifest.TargetSpec) (Action, error) {
	// ---
	volName := SharedVolumeName(src.Namespace, src.Claim, tgt.Namespace)
	act := Action{Target: tgt, VolumeName: volName}

	_, err := e.client.GetNamespace(ctx, tgt.Namespace)
	if errors.Is(err, kube.ErrNotFound) {
		act.Kind = ActionFail
		act.Err = fmt.Errorf("%w: %s",
			ErrTargetNamespaceMissing, tgt.Namespace)
		act.Reason = act.Err.Error()
		return act, nil
	}
	if err != nil {
		return act, err
	}

	// A claim that already occupies the target name is never touched,
	// whether it is ours from an earlier run or an unrelated resource
	// that happens to share the name.
	_, err = e.client.GetPVC(ctx, tgt.Namespace, tgt.Claim)
	if err == nil {
		act.Kind = ActionSkip
		act.Reason = fmt.Sprintf(
			"claim %s/%s already exists", tgt.Namespace, tgt.Claim)
		return act, nil
	}
	if !errors.Is(err, kube.ErrNotFound) {
		return act, err
	}

	_, err = e.client.GetPV(ctx, volName)
	switch {
	case err == nil:
		act.ReuseVolume = true
	case !errors.Is(err, kube.ErrNotFound):
		return act, err
	}

	labels := e.labeler.Ownership(m.Source, tgt, m.Labels)
	act.Kind = ActionCreate
	if !act.ReuseVolume {
		act.PV = buildVolume(src, tgt, volName, labels)
	}
	act.PVC = buildClaim(src, tgt, volName, labels)
	return act, nil
}

// Execute runs a plan. Per-target failures are isolated and counted;
// the remaining targets are still attempted. Cluster connectivity
// failures abort immediately.
func (e *Engine) Execute(
	ctx context.Context, plan *Plan, dryRun bool) (*Report, error) {
	// ---
	rep := &Report{Source: manifest.SourceRef{
		Namespace: plan.Source.Namespace,
		Claim:     plan.Source.Claim,
	}}
	for _, act := range plan.Actions {
		out := e.executeAction(ctx, act, dryRun)
		if out.Err != nil && errors.Is(out.Err, kube.ErrClusterUnavailable) {
			rep.add(out)
			return rep, out.Err
		}
		rep.add(out)
	}
	return rep, rep.Err()
}

func (e *Engine) executeAction(
	ctx context.Context, act Action, dryRun bool) Outcome {
	// ---
	out := Outcome{
		Target:     act.Target,
		VolumeName: act.VolumeName,
	}
	switch act.Kind {
	case ActionFail:
		out.Status = StatusFailed
		out.Err = act.Err
		out.Message = act.Reason
		return out
	case ActionSkip:
		e.log.Info("skipping target",
			"namespace", act.Target.Namespace,
			"claim", act.Target.Claim,
			"reason", act.Reason)
		out.Status = StatusSkipped
		out.Message = act.Reason
		return out
	}

	if dryRun {
		out.Status = StatusPlanned
		out.Message = describeCreate(act)
		return out
	}

	if act.PV != nil {
		err := e.client.CreatePV(ctx, act.PV)
		if err != nil && !errors.Is(err, kube.ErrAlreadyExists) {
			out.Status = StatusFailed
			out.Err = err
			out.Message = err.Error()
			return out
		}
	}
	err := e.client.CreatePVC(ctx, act.PVC)
	if err != nil && !errors.Is(err, kube.ErrAlreadyExists) {
		out.Status = StatusFailed
		out.Err = err
		out.Message = err.Error()
		return out
	}
	e.log.Info("created share",
		"volume", act.VolumeName,
		"namespace", act.Target.Namespace,
		"claim", act.Target.Claim,
		"readOnly", act.Target.ReadOnly)
	out.Status = StatusCreated
	out.Message = describeCreate(act)
	return out
}

func describeCreate(act Action) string {
	if act.ReuseVolume {
		return fmt.Sprintf("claim %s/%s bound to existing volume %s",
			act.Target.Namespace, act.Target.Claim, act.VolumeName)
	}
	return fmt.Sprintf("volume %s and claim %s/%s",
		act.VolumeName, act.Target.Namespace, act.Target.Claim)
}

// buildVolume synthesizes the derived volume. It mirrors the source's
// backend identity so it addresses the same physical storage, and it
// always retains on release: deleting a consumer's claim must never
// destroy the shared data.
func buildVolume(
	src *inspect.SourceVolume,
	tgt manifest.TargetSpec,
	name string,
	labels map[string]string) *corev1.PersistentVolume {
	// ---
	return &corev1.PersistentVolume{
		ObjectMeta: metav1.ObjectMeta{
			Name:   name,
			Labels: labels,
		},
		Spec: corev1.PersistentVolumeSpec{
			Capacity: corev1.ResourceList{
				corev1.ResourceStorage: src.Capacity,
			},
			AccessModes:                   src.AccessModes,
			PersistentVolumeReclaimPolicy: corev1.PersistentVolumeReclaimRetain,
			StorageClassName:              src.StorageClass,
			PersistentVolumeSource: corev1.PersistentVolumeSource{
				CSI: &corev1.CSIPersistentVolumeSource{
					Driver:           src.DriverName,
					VolumeHandle:     src.VolumeHandle,
					ReadOnly:         tgt.ReadOnly,
					VolumeAttributes: src.Attributes,
				},
			},
		},
	}
}

// buildClaim synthesizes the derived claim, pinned to the derived
// volume by name so the scheduler never binds it elsewhere.
func buildClaim(
	src *inspect.SourceVolume,
	tgt manifest.TargetSpec,
	volumeName string,
	labels map[string]string) *corev1.PersistentVolumeClaim {
	// ---
	storageClass := src.StorageClass
	return &corev1.PersistentVolumeClaim{
		ObjectMeta: metav1.ObjectMeta{
			Name:      tgt.Claim,
			Namespace: tgt.Namespace,
			Labels:    labels,
		},
		Spec: corev1.PersistentVolumeClaimSpec{
			AccessModes: src.AccessModes,
			Resources: corev1.ResourceRequirements{
				Requests: corev1.ResourceList{
					corev1.ResourceStorage: src.Capacity,
				},
			},
			VolumeName:       volumeName,
			StorageClassName: &storageClass,
		},
	}
}
