// SPDX-License-Identifier: Apache-2.0

package share

import (
	"context"

	corev1 "k8s.io/api/core/v1"

	"github.com/kubestorage/pvshare/internal/manifest"
)

// ShareInfo is a summary row describing one derived share, read back
// from the labeled volume objects.
type ShareInfo struct {
	VolumeName      string `json:"volumeName"`
	SourceNamespace string `json:"sourceNamespace"`
	SourceClaim     string `json:"sourceClaim"`
	TargetNamespace string `json:"targetNamespace"`
	TargetClaim     string `json:"targetClaim"`
	ReadOnly        bool   `json:"readOnly"`
	Capacity        string `json:"capacity"`
	VolumeHandle    string `json:"volumeHandle"`
	Phase           string `json:"phase"`
}

// ListFilter narrows which managed shares are returned.
type ListFilter struct {
	// Source restricts to shares derived from one source claim.
	Source *manifest.SourceRef
	// TargetNamespace restricts to shares consumed by one namespace.
	TargetNamespace string
}

func (e *Engine) selectorFor(f ListFilter) map[string]string {
	if f.Source != nil {
		sel := e.labeler.SourceSelector(*f.Source)
		if f.TargetNamespace != "" {
			sel[e.labeler.key(labelTargetNamespace)] = f.TargetNamespace
		}
		return sel
	}
	if f.TargetNamespace != "" {
		return e.labeler.TargetSelector(f.TargetNamespace)
	}
	return e.labeler.ManagedSelector()
}

// ListShares enumerates managed shares via the ownership labels. It is
// purely read-only.
func (e *Engine) ListShares(
	ctx context.Context, f ListFilter) ([]ShareInfo, error) {
	// ---
	pvs, err := e.ListVolumes(ctx, f)
	if err != nil {
		return nil, err
	}
	infos := make([]ShareInfo, 0, len(pvs))
	for i := range pvs {
		infos = append(infos, e.infoFromVolume(&pvs[i]))
	}
	return infos, nil
}

// ListVolumes returns the raw managed volume objects for a filter.
// Used by the full-object output mode.
func (e *Engine) ListVolumes(
	ctx context.Context, f ListFilter) ([]corev1.PersistentVolume, error) {
	// ---
	return e.client.ListPVs(ctx, e.selectorFor(f))
}

func (e *Engine) infoFromVolume(pv *corev1.PersistentVolume) ShareInfo {
	src := e.labeler.ParentOf(pv.Labels)
	tns, tclaim := e.labeler.TargetOf(pv.Labels)
	info := ShareInfo{
		VolumeName:      pv.Name,
		SourceNamespace: src.Namespace,
		SourceClaim:     src.Claim,
		TargetNamespace: tns,
		TargetClaim:     tclaim,
		Phase:           string(pv.Status.Phase),
	}
	if cap, ok := pv.Spec.Capacity[corev1.ResourceStorage]; ok {
		info.Capacity = cap.String()
	}
	if pv.Spec.CSI != nil {
		info.ReadOnly = pv.Spec.CSI.ReadOnly
		info.VolumeHandle = pv.Spec.CSI.VolumeHandle
	}
	return info
}
