// SPDX-License-Identifier: Apache-2.0

package share

import (
	"context"

	"github.com/kubestorage/pvshare/internal/manifest"
)

// DriftFinding reports a derived volume whose recorded handle no
// longer matches the source's current backing storage. This happens
// when the source claim was deleted and recreated after shares were
// established; consumers then reference stale storage.
type DriftFinding struct {
	VolumeName      string `json:"volumeName"`
	TargetNamespace string `json:"targetNamespace"`
	TargetClaim     string `json:"targetClaim"`
	SourceHandle    string `json:"sourceHandle"`
	VolumeHandle    string `json:"volumeHandle"`
}

// CheckDrift compares the source's current volume handle against the
// handle recorded on every derived volume of that source. It reports
// only; it never self-heals, because converging stale consumers onto
// new storage is a data-visibility decision for the operator.
func (e *Engine) CheckDrift(
	ctx context.Context, src manifest.SourceRef) ([]DriftFinding, error) {
	// ---
	resolved, err := e.inspector.ResolveSource(
		ctx, src.Namespace, src.Claim)
	if err != nil {
		return nil, err
	}

	pvs, err := e.client.ListPVs(ctx, e.labeler.SourceSelector(src))
	if err != nil {
		return nil, err
	}

	var findings []DriftFinding
	for i := range pvs {
		pv := &pvs[i]
		if pv.Spec.CSI == nil {
			continue
		}
		if pv.Spec.CSI.VolumeHandle == resolved.VolumeHandle {
			continue
		}
		tns, tclaim := e.labeler.TargetOf(pv.Labels)
		findings = append(findings, DriftFinding{
			VolumeName:      pv.Name,
			TargetNamespace: tns,
			TargetClaim:     tclaim,
			SourceHandle:    resolved.VolumeHandle,
			VolumeHandle:    pv.Spec.CSI.VolumeHandle,
		})
	}
	return findings, nil
}
