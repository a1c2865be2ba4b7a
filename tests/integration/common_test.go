//go:build integration
// +build integration

package integration

import (
	"context"
	"os"
	"time"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/tools/clientcmd"
	rtclient "sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/kubestorage/pvshare/internal/inspect"
	"github.com/kubestorage/pvshare/internal/kube"
	"github.com/kubestorage/pvshare/internal/share"
	"github.com/kubestorage/pvshare/tests/utils/poll"
)

var (
	waitForBoundTime = 120 * time.Second
	waitForGoneTime  = 60 * time.Second
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// The suites need a provisioning storage class backed by the driver the
// tool is configured for. Both default to the csi-driver-nfs install
// used by CI and can be pointed elsewhere via the environment.
func testDriverName() string {
	return envOr("PVSHARE_TEST_DRIVER", "nfs.csi.k8s.io")
}

func testStorageClass() string {
	return envOr("PVSHARE_TEST_STORAGE_CLASS", "nfs-csi")
}

func rawClient() (rtclient.Client, error) {
	kcc := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		clientcmd.NewDefaultClientConfigLoadingRules(),
		&clientcmd.ConfigOverrides{})
	cfg, err := kcc.ClientConfig()
	if err != nil {
		return nil, err
	}
	return rtclient.New(cfg, rtclient.Options{
		Scheme: clientgoscheme.Scheme,
	})
}

func testEngine(c rtclient.Client) *share.Engine {
	kc := kube.NewWithClient(c)
	inspector := inspect.NewInspector(kc, testDriverName())
	labeler := share.NewLabeler("pvshare.kubestorage.io", "pvshare")
	return share.NewEngine(kc, inspector, labeler, logr.Discard())
}

func ensureNamespace(ctx context.Context, c rtclient.Client, name string) error {
	ns := &corev1.Namespace{}
	ns.Name = name
	err := c.Create(ctx, ns)
	if apierrors.IsAlreadyExists(err) {
		return nil
	}
	return err
}

func deleteNamespace(ctx context.Context, c rtclient.Client, name string) error {
	ns := &corev1.Namespace{}
	ns.Name = name
	err := c.Delete(ctx, ns)
	if apierrors.IsNotFound(err) {
		return nil
	}
	return err
}

func sourceClaim(ns, name string) *corev1.PersistentVolumeClaim {
	sc := testStorageClass()
	return &corev1.PersistentVolumeClaim{
		ObjectMeta: metav1.ObjectMeta{
			Namespace: ns,
			Name:      name,
		},
		Spec: corev1.PersistentVolumeClaimSpec{
			AccessModes: []corev1.PersistentVolumeAccessMode{
				corev1.ReadWriteMany,
			},
			Resources: corev1.ResourceRequirements{
				Requests: corev1.ResourceList{
					corev1.ResourceStorage: resource.MustParse("1Gi"),
				},
			},
			StorageClassName: &sc,
		},
	}
}

func createIfMissing(
	ctx context.Context, c rtclient.Client, obj rtclient.Object) error {
	// ---
	err := c.Create(ctx, obj)
	if apierrors.IsAlreadyExists(err) {
		return nil
	}
	return err
}

func waitClaimBound(
	ctx context.Context, c rtclient.Client, ns, name string) error {
	// ---
	return poll.TryUntil(ctx, &poll.Probe{
		Cond: func() (bool, error) {
			pvc := &corev1.PersistentVolumeClaim{}
			err := c.Get(ctx,
				types.NamespacedName{Namespace: ns, Name: name}, pvc)
			if err != nil {
				return false, err
			}
			return pvc.Status.Phase == corev1.ClaimBound, nil
		},
	})
}

func waitVolumeGone(
	ctx context.Context, c rtclient.Client, name string) error {
	// ---
	return poll.TryUntil(ctx, &poll.Probe{
		Cond: func() (bool, error) {
			pv := &corev1.PersistentVolume{}
			err := c.Get(ctx, types.NamespacedName{Name: name}, pv)
			if apierrors.IsNotFound(err) {
				return true, nil
			}
			return false, err
		},
	})
}
