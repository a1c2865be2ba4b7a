// SPDX-License-Identifier: Apache-2.0

package share

import (
	"fmt"

	"github.com/kubestorage/pvshare/internal/manifest"
)

// Outcome status values.
const (
	StatusCreated = "created"
	StatusSkipped = "skipped"
	StatusPlanned = "planned"
	StatusFailed  = "failed"
)

// Outcome records what happened to one target.
type Outcome struct {
	Target     manifest.TargetSpec `json:"target"`
	VolumeName string              `json:"volumeName"`
	Status     string              `json:"status"`
	Message    string              `json:"message,omitempty"`
	Err        error               `json:"-"`
}

// Report aggregates target outcomes for one engine run.
type Report struct {
	Source   manifest.SourceRef `json:"source"`
	Outcomes []Outcome          `json:"outcomes"`
	Created  int                `json:"created"`
	Skipped  int                `json:"skipped"`
	Planned  int                `json:"planned"`
	Failed   int                `json:"failed"`
}

func (r *Report) add(out Outcome) {
	r.Outcomes = append(r.Outcomes, out)
	switch out.Status {
	case StatusCreated:
		r.Created++
	case StatusSkipped:
		r.Skipped++
	case StatusPlanned:
		r.Planned++
	case StatusFailed:
		r.Failed++
	}
}

// Err returns an aggregate error when any target failed, nil otherwise.
func (r *Report) Err() error {
	if r.Failed == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d of %d",
		ErrPartialFailure, r.Failed, len(r.Outcomes))
}
