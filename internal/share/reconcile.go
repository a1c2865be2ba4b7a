// SPDX-License-Identifier: Apache-2.0

package share

import (
	"context"
	"errors"
	"fmt"

	"github.com/kubestorage/pvshare/internal/kube"
	"github.com/kubestorage/pvshare/internal/manifest"
)

// ReconcileReport describes one convergence pass: what was created for
// missing targets, what exists beyond the manifest, and what (if
// anything) was pruned.
type ReconcileReport struct {
	Apply *Report `json:"apply,omitempty"`
	// InSync lists targets that already had their derived share.
	InSync []ShareInfo `json:"inSync,omitempty"`
	// Extra lists managed shares of this source that the manifest no
	// longer declares. Without prune they are reported, not removed.
	Extra []ShareInfo `json:"extra,omitempty"`
	// Pruned lists the extra shares actually removed.
	Pruned []ShareInfo `json:"pruned,omitempty"`
	// Failed lists extra shares that could not be removed during
	// prune.
	Failed []ShareInfo `json:"failed,omitempty"`
}

// Err returns the aggregate error of the pass: apply failures and
// prune failures both fold into ErrPartialFailure.
func (r *ReconcileReport) Err() error {
	if len(r.Failed) > 0 {
		return fmt.Errorf("%w: %d prune failure(s)",
			ErrPartialFailure, len(r.Failed))
	}
	if r.Apply == nil {
		return nil
	}
	return r.Apply.Err()
}

// Reconcile converges the cluster toward the manifest. Desired state
// is the manifest's target list; actual state is discovered through
// the ownership labels. Missing targets are created via the normal
// plan path. Extra shares are deleted only when prune is set, so the
// pass is monotone by default: it adds, never removes.
func (e *Engine) Reconcile(
	ctx context.Context,
	m *manifest.ShareManifest,
	prune, dryRun bool) (*ReconcileReport, error) {
	// ---
	if len(m.Targets) == 0 {
		return nil, manifest.ErrEmptyTargetList
	}

	actual, err := e.ListShares(ctx, ListFilter{Source: &m.Source})
	if err != nil {
		return nil, err
	}

	type key struct{ ns, claim string }
	desired := make(map[key]manifest.TargetSpec, len(m.Targets))
	for _, t := range m.Targets {
		desired[key{t.Namespace, t.Claim}] = t
	}

	rep := &ReconcileReport{}
	have := map[key]bool{}
	for _, info := range actual {
		k := key{info.TargetNamespace, info.TargetClaim}
		if _, ok := desired[k]; !ok {
			rep.Extra = append(rep.Extra, info)
			continue
		}
		// The volume outlives its claim under Retain, so a consumer
		// deleting the derived claim leaves a volume-only share. Such
		// targets are not in sync; they go back through the create
		// path, which reuses the surviving volume.
		_, err := e.client.GetPVC(
			ctx, info.TargetNamespace, info.TargetClaim)
		if errors.Is(err, kube.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		have[k] = true
		rep.InSync = append(rep.InSync, info)
	}

	missing := &manifest.ShareManifest{
		Source: m.Source,
		Labels: m.Labels,
	}
	for _, t := range m.Targets {
		if !have[key{t.Namespace, t.Claim}] {
			missing.Targets = append(missing.Targets, t)
		}
	}

	if len(missing.Targets) > 0 {
		plan, err := e.PlanShare(ctx, missing)
		if err != nil {
			return rep, err
		}
		applyRep, err := e.Execute(ctx, plan, dryRun)
		rep.Apply = applyRep
		if err != nil && rep.Apply.Failed == 0 {
			// connectivity failure mid-batch
			return rep, err
		}
	}

	if prune {
		for _, info := range rep.Extra {
			if dryRun {
				rep.Pruned = append(rep.Pruned, info)
				continue
			}
			if err := e.removeShare(ctx, info); err != nil {
				if errors.Is(err, kube.ErrClusterUnavailable) {
					return rep, err
				}
				e.log.Error(err, "failed to prune share",
					"volume", info.VolumeName)
				rep.Failed = append(rep.Failed, info)
				continue
			}
			rep.Pruned = append(rep.Pruned, info)
		}
	}

	return rep, rep.Err()
}
