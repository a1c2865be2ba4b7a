// SPDX-License-Identifier: Apache-2.0

package share

import (
	"github.com/kubestorage/pvshare/internal/manifest"
)

// Ownership label suffixes. Combined with the configured label domain
// these tag every derived volume and claim. The labeled objects in the
// cluster are the only inventory of managed resources; list, delete,
// reconcile and drift checks all enumerate through these keys.
const (
	labelParentNamespace = "parent-namespace"
	labelParentClaim     = "parent-claim"
	labelTargetNamespace = "target-namespace"
	labelTargetClaim     = "target-claim"
	labelSharedBy        = "shared-by"
)

// Labeler builds ownership label sets and the selectors that query
// them back. It is the formalized listManaged contract: every selector
// used against the cluster goes through this type.
type Labeler struct {
	domain string
	marker string
}

// NewLabeler creates a Labeler for the given label domain and tool
// marker value.
func NewLabeler(domain, marker string) Labeler {
	return Labeler{domain: domain, marker: marker}
}

func (l Labeler) key(suffix string) string {
	return l.domain + "/" + suffix
}

// Ownership returns the full label set for a derived resource of the
// given source and target. Extra labels never override ownership keys.
func (l Labeler) Ownership(
	src manifest.SourceRef,
	tgt manifest.TargetSpec,
	extra map[string]string) map[string]string {
	// ---
	labels := make(map[string]string, len(extra)+5)
	for k, v := range extra {
		labels[k] = v
	}
	labels[l.key(labelParentNamespace)] = src.Namespace
	labels[l.key(labelParentClaim)] = src.Claim
	labels[l.key(labelTargetNamespace)] = tgt.Namespace
	labels[l.key(labelTargetClaim)] = tgt.Claim
	labels[l.key(labelSharedBy)] = l.marker
	return labels
}

// ManagedSelector matches every resource this tool created.
func (l Labeler) ManagedSelector() map[string]string {
	return map[string]string{
		l.key(labelSharedBy): l.marker,
	}
}

// SourceSelector matches managed resources derived from one source.
func (l Labeler) SourceSelector(src manifest.SourceRef) map[string]string {
	sel := l.ManagedSelector()
	sel[l.key(labelParentNamespace)] = src.Namespace
	sel[l.key(labelParentClaim)] = src.Claim
	return sel
}

// TargetSelector matches managed resources shared into one namespace.
func (l Labeler) TargetSelector(namespace string) map[string]string {
	sel := l.ManagedSelector()
	sel[l.key(labelTargetNamespace)] = namespace
	return sel
}

// ParentOf reads the source reference back off a labeled object.
func (l Labeler) ParentOf(labels map[string]string) manifest.SourceRef {
	return manifest.SourceRef{
		Namespace: labels[l.key(labelParentNamespace)],
		Claim:     labels[l.key(labelParentClaim)],
	}
}

// TargetOf reads the target reference back off a labeled object.
func (l Labeler) TargetOf(labels map[string]string) (ns, claim string) {
	return labels[l.key(labelTargetNamespace)],
		labels[l.key(labelTargetClaim)]
}
