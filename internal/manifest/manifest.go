// SPDX-License-Identifier: Apache-2.0

// Package manifest defines the declarative share manifest and its
// decoder. The decoder is tolerant of missing optional fields and
// unknown keys but strict on required fields; semantic checks beyond
// document shape (source existence, driver support) live with the
// validate and apply commands.
package manifest

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var (
	// ErrMalformedManifest indicates the document is missing a
	// required field or could not be decoded.
	ErrMalformedManifest = errors.New("malformed manifest")

	// ErrEmptyTargetList indicates a manifest with no targets was
	// given to a command that requires at least one.
	ErrEmptyTargetList = errors.New("manifest has no targets")
)

// SourceRef identifies the claim whose backing storage is shared.
type SourceRef struct {
	Claim     string `yaml:"claim" json:"claim"`
	Namespace string `yaml:"namespace" json:"namespace"`
}

// String returns the conventional NS/CLAIM form.
func (s SourceRef) String() string {
	return s.Namespace + "/" + s.Claim
}

// TargetSpec describes one consumer of the shared storage.
type TargetSpec struct {
	Claim     string `yaml:"claim" json:"claim"`
	Namespace string `yaml:"namespace" json:"namespace"`
	ReadOnly  bool   `yaml:"readOnly" json:"readOnly"`
}

// ShareManifest is the declared desired state: one source, many
// targets, and optional labels applied to every derived resource.
type ShareManifest struct {
	Source  SourceRef         `yaml:"source" json:"source"`
	Targets []TargetSpec      `yaml:"targets" json:"targets"`
	Labels  map[string]string `yaml:"labels,omitempty" json:"labels,omitempty"`
}

// Parse decodes a manifest document and validates required fields.
func Parse(data []byte) (*ShareManifest, error) {
	m := &ShareManifest{}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedManifest, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	m.dedupeTargets()
	return m, nil
}

// Load reads and parses a manifest file.
func Load(path string) (*ShareManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %s",
			ErrMalformedManifest, path, err)
	}
	return Parse(data)
}

// Validate checks the required-field contract. Targets may be empty;
// rejecting that is a command-level policy, not a parser concern.
func (m *ShareManifest) Validate() error {
	if m.Source.Claim == "" {
		return fmt.Errorf("%w: source.claim is required",
			ErrMalformedManifest)
	}
	if m.Source.Namespace == "" {
		return fmt.Errorf("%w: source.namespace is required",
			ErrMalformedManifest)
	}
	for i, t := range m.Targets {
		if t.Claim == "" {
			return fmt.Errorf("%w: targets[%d].claim is required",
				ErrMalformedManifest, i)
		}
		if t.Namespace == "" {
			return fmt.Errorf("%w: targets[%d].namespace is required",
				ErrMalformedManifest, i)
		}
	}
	return nil
}

// dedupeTargets collapses duplicate (namespace, claim) pairs. The last
// occurrence wins but the target keeps its first position, so manifest
// order stays stable.
func (m *ShareManifest) dedupeTargets() {
	type key struct{ ns, claim string }
	idx := map[key]int{}
	out := make([]TargetSpec, 0, len(m.Targets))
	for _, t := range m.Targets {
		k := key{t.Namespace, t.Claim}
		if i, ok := idx[k]; ok {
			out[i] = t
			continue
		}
		idx[k] = len(out)
		out = append(out, t)
	}
	m.Targets = out
}

// AddTarget appends a target spec. Used when assembling a manifest
// from command line flags rather than a file.
func (m *ShareManifest) AddTarget(claim, namespace string, readOnly bool) {
	m.Targets = append(m.Targets, TargetSpec{
		Claim:     claim,
		Namespace: namespace,
		ReadOnly:  readOnly,
	})
	m.dedupeTargets()
}
