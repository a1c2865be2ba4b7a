// SPDX-License-Identifier: Apache-2.0

package share

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	rtclient "sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"github.com/kubestorage/pvshare/internal/inspect"
	"github.com/kubestorage/pvshare/internal/kube"
	"github.com/kubestorage/pvshare/internal/manifest"
)

const (
	testDriver = "nfs.csi.k8s.io"
	testDomain = "pvshare.kubestorage.io"
	testMarker = "pvshare"
)

var testLabeler = NewLabeler(testDomain, testMarker)

// deleteRecorder wraps a client and records deletion order so tests
// can check claim-before-volume ordering.
type deleteRecorder struct {
	rtclient.Client
	order []string
}

func (d *deleteRecorder) Delete(
	ctx context.Context,
	obj rtclient.Object,
	opts ...rtclient.DeleteOption) error {
	// ---
	d.order = append(d.order,
		fmt.Sprintf("%T:%s/%s", obj, obj.GetNamespace(), obj.GetName()))
	return d.Client.Delete(ctx, obj, opts...)
}

// deleteDenier wraps a client and fails every delete with a fixed
// error, leaving the objects in place.
type deleteDenier struct {
	rtclient.Client
	err error
}

func (d *deleteDenier) Delete(
	ctx context.Context,
	obj rtclient.Object,
	opts ...rtclient.DeleteOption) error {
	// ---
	return d.err
}

func newTestEngine(objs ...rtclient.Object) (*Engine, rtclient.Client) {
	base := fake.NewClientBuilder().
		WithScheme(clientgoscheme.Scheme).
		WithObjects(objs...).
		Build()
	return engineOn(base), base
}

func engineOn(c rtclient.Client) *Engine {
	kc := kube.NewWithClient(c)
	return NewEngine(
		kc,
		inspect.NewInspector(kc, testDriver),
		testLabeler,
		logr.Discard())
}

func namespaceObj(name string) *corev1.Namespace {
	return &corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{Name: name},
	}
}

func boundPVC(ns, name, volName string) *corev1.PersistentVolumeClaim {
	return &corev1.PersistentVolumeClaim{
		ObjectMeta: metav1.ObjectMeta{Namespace: ns, Name: name},
		Spec: corev1.PersistentVolumeClaimSpec{
			VolumeName: volName,
		},
		Status: corev1.PersistentVolumeClaimStatus{
			Phase: corev1.ClaimBound,
		},
	}
}

func csiPV(name, handle string) *corev1.PersistentVolume {
	return &corev1.PersistentVolume{
		ObjectMeta: metav1.ObjectMeta{Name: name},
		Spec: corev1.PersistentVolumeSpec{
			Capacity: corev1.ResourceList{
				corev1.ResourceStorage: resource.MustParse("100Gi"),
			},
			AccessModes: []corev1.PersistentVolumeAccessMode{
				corev1.ReadWriteMany,
			},
			StorageClassName: "shared-nfs",
			PersistentVolumeSource: corev1.PersistentVolumeSource{
				CSI: &corev1.CSIPersistentVolumeSource{
					Driver:       testDriver,
					VolumeHandle: handle,
				},
			},
		},
	}
}

// sourceObjs is the standard seeded source: claim prod/data bound to
// pv-data with handle H1.
func sourceObjs() []rtclient.Object {
	return []rtclient.Object{
		namespaceObj("prod"),
		boundPVC("prod", "data", "pv-data"),
		csiPV("pv-data", "H1"),
	}
}

func testManifest() *manifest.ShareManifest {
	return &manifest.ShareManifest{
		Source: manifest.SourceRef{Namespace: "prod", Claim: "data"},
		Targets: []manifest.TargetSpec{
			{Claim: "data", Namespace: "dev"},
			{Claim: "data-ro", Namespace: "qa", ReadOnly: true},
		},
	}
}

// derivedShareObjs builds an already-established share: the derived
// volume and its claim, labeled the way the engine labels them.
func derivedShareObjs(
	srcNS, srcClaim, tgtNS, tgtClaim, handle string,
	uid string, readOnly bool) []rtclient.Object {
	// ---
	src := manifest.SourceRef{Namespace: srcNS, Claim: srcClaim}
	tgt := manifest.TargetSpec{
		Namespace: tgtNS, Claim: tgtClaim, ReadOnly: readOnly}
	volName := SharedVolumeName(srcNS, srcClaim, tgtNS)
	labels := testLabeler.Ownership(src, tgt, nil)

	pv := csiPV(volName, handle)
	pv.Labels = labels
	pv.Spec.CSI.ReadOnly = readOnly
	pv.Spec.PersistentVolumeReclaimPolicy = corev1.PersistentVolumeReclaimRetain

	pvc := boundPVC(tgtNS, tgtClaim, volName)
	pvc.Labels = labels
	pvc.UID = types.UID(uid)
	return []rtclient.Object{pv, pvc}
}

func shareKey(info ShareInfo) string {
	return fmt.Sprintf("%s/%s", info.TargetNamespace, info.TargetClaim)
}
