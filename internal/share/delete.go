// SPDX-License-Identifier: Apache-2.0

package share

import (
	"context"
	"errors"
	"fmt"

	"github.com/kubestorage/pvshare/internal/kube"
	"github.com/kubestorage/pvshare/internal/manifest"
)

// DeleteReport summarizes a delete pass.
type DeleteReport struct {
	// Removed lists shares whose claim and volume were deleted (or
	// would be, under dry run).
	Removed []ShareInfo `json:"removed,omitempty"`
	Failed  int         `json:"failed"`
}

// Err returns an aggregate error when any share failed to delete.
func (r *DeleteReport) Err() error {
	if r.Failed == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d of %d",
		ErrPartialFailure, r.Failed, r.Failed+len(r.Removed))
}

// DeleteShares removes managed shares matching the filter. Claims are
// always deleted before their volume so that no claim is ever left
// pointing at an already-removed volume. Failures are isolated per
// share and the pass continues.
func (e *Engine) DeleteShares(
	ctx context.Context, f ListFilter, dryRun bool) (*DeleteReport, error) {
	// ---
	shares, err := e.ListShares(ctx, f)
	if err != nil {
		return nil, err
	}
	rep := &DeleteReport{}
	for _, info := range shares {
		if dryRun {
			rep.Removed = append(rep.Removed, info)
			continue
		}
		if err := e.removeShare(ctx, info); err != nil {
			if errors.Is(err, kube.ErrClusterUnavailable) {
				return rep, err
			}
			e.log.Error(err, "failed to delete share",
				"volume", info.VolumeName)
			rep.Failed++
			continue
		}
		rep.Removed = append(rep.Removed, info)
	}
	return rep, rep.Err()
}

// removeShare deletes one derived claim then its volume. A missing
// claim is fine; an earlier interrupted delete may already have
// removed it.
func (e *Engine) removeShare(ctx context.Context, info ShareInfo) error {
	err := e.client.DeletePVC(
		ctx, info.TargetNamespace, info.TargetClaim)
	if err != nil && !errors.Is(err, kube.ErrNotFound) {
		return err
	}
	err = e.client.DeletePV(ctx, info.VolumeName)
	if err != nil && !errors.Is(err, kube.ErrNotFound) {
		return err
	}
	e.log.Info("deleted share",
		"volume", info.VolumeName,
		"namespace", info.TargetNamespace,
		"claim", info.TargetClaim)
	return nil
}

// SourceFilter builds a delete/list filter for one source reference.
func SourceFilter(ns, claim string) ListFilter {
	return ListFilter{
		Source: &manifest.SourceRef{Namespace: ns, Claim: claim},
	}
}
