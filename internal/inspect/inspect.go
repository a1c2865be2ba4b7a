// SPDX-License-Identifier: Apache-2.0

// Package inspect resolves a source claim down to the physical volume
// identity that sharing depends on.
package inspect

import (
	"context"
	"errors"
	"fmt"
	"strings"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/kubestorage/pvshare/internal/kube"
)

var (
	// ErrSourceNotFound indicates the source claim does not exist.
	ErrSourceNotFound = errors.New("source claim not found")

	// ErrSourceNotBound indicates the source claim is not bound to a
	// usable volume.
	ErrSourceNotBound = errors.New("source claim not bound")

	// ErrUnsupportedDriver indicates the bound volume is not backed by
	// the supported network filesystem driver. Sharing the same volume
	// handle across claims is only defined for that backend.
	ErrUnsupportedDriver = errors.New("unsupported volume driver")
)

// Attribute keys the provisioner records for its own bookkeeping.
// They identify the creating provisioner instance, not the volume, and
// must not be copied onto derived volumes.
const provisionerIdentityKey = "storage.kubernetes.io/csiProvisionerIdentity"

const internalAttributePrefix = "csi.storage.k8s.io/"

// SourceVolume carries the resolved identity of a source claim's
// backing storage. It is a read-only snapshot; the tool never mutates
// the source.
type SourceVolume struct {
	Namespace    string
	Claim        string
	VolumeName   string
	DriverName   string
	VolumeHandle string
	Capacity     resource.Quantity
	AccessModes  []corev1.PersistentVolumeAccessMode
	StorageClass string
	Attributes   map[string]string
}

// Inspector resolves source claims against a cluster.
type Inspector struct {
	client *kube.Client
	driver string
}

// NewInspector creates an Inspector requiring the given CSI driver.
func NewInspector(client *kube.Client, driver string) *Inspector {
	return &Inspector{client: client, driver: driver}
}

// ResolveSource looks up the claim, requires it to be bound, and
// extracts the backing volume's identity. Each gate fails with its own
// sentinel so callers can report precisely.
func (in *Inspector) ResolveSource(
	ctx context.Context, namespace, claim string) (*SourceVolume, error) {
	// ---
	pvc, err := in.client.GetPVC(ctx, namespace, claim)
	if err != nil {
		if errors.Is(err, kube.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s/%s",
				ErrSourceNotFound, namespace, claim)
		}
		return nil, err
	}

	if pvc.Status.Phase != corev1.ClaimBound {
		return nil, fmt.Errorf("%w: %s/%s is %q",
			ErrSourceNotBound, namespace, claim, pvc.Status.Phase)
	}

	pv, err := in.client.GetPV(ctx, pvc.Spec.VolumeName)
	if err != nil {
		if errors.Is(err, kube.ErrNotFound) {
			return nil, fmt.Errorf(
				"%w: %s/%s references missing volume %q",
				ErrSourceNotBound, namespace, claim,
				pvc.Spec.VolumeName)
		}
		return nil, err
	}

	csi := pv.Spec.CSI
	if csi == nil {
		return nil, fmt.Errorf("%w: volume %q has no CSI source",
			ErrUnsupportedDriver, pv.Name)
	}
	if csi.Driver != in.driver {
		return nil, fmt.Errorf("%w: volume %q uses %q, need %q",
			ErrUnsupportedDriver, pv.Name, csi.Driver, in.driver)
	}

	return &SourceVolume{
		Namespace:    namespace,
		Claim:        claim,
		VolumeName:   pv.Name,
		DriverName:   csi.Driver,
		VolumeHandle: csi.VolumeHandle,
		Capacity:     pv.Spec.Capacity[corev1.ResourceStorage],
		AccessModes:  pv.Spec.AccessModes,
		StorageClass: pv.Spec.StorageClassName,
		Attributes:   filterAttributes(csi.VolumeAttributes),
	}, nil
}

// filterAttributes drops provisioner bookkeeping keys and returns a
// copy safe to place on a new volume.
func filterAttributes(attrs map[string]string) map[string]string {
	out := map[string]string{}
	for k, v := range attrs {
		if k == provisionerIdentityKey {
			continue
		}
		if strings.HasPrefix(k, internalAttributePrefix) {
			continue
		}
		out[k] = v
	}
	return out
}
