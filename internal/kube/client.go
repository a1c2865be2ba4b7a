// SPDX-License-Identifier: Apache-2.0

// Package kube provides a minimal accessor over the two object kinds
// the share tooling manages: PersistentVolumes and PersistentVolumeClaims.
// Callers rely on it for strongly consistent reads after writes and for
// atomic create-if-absent semantics; both are inherited directly from
// the API server.
package kube

import (
	"context"
	"errors"
	"fmt"
	"net"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/tools/clientcmd"
	rtclient "sigs.k8s.io/controller-runtime/pkg/client"
)

var (
	// ErrNotFound indicates the requested object does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrAlreadyExists indicates a create raced with or repeated an
	// earlier create of the same object.
	ErrAlreadyExists = errors.New("object already exists")

	// ErrClusterUnavailable indicates the cluster could not be reached.
	// This is fatal to the invoking command; there is no retry loop.
	ErrClusterUnavailable = errors.New("cluster unavailable")
)

// Client wraps a controller-runtime client with the small set of
// operations the share engine needs.
type Client struct {
	c rtclient.Client
}

// New builds a Client from the given kubeconfig path. An empty path
// falls back to the default loading rules (KUBECONFIG, ~/.kube/config).
func New(kubeconfig string) (*Client, error) {
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfig != "" {
		loadingRules.ExplicitPath = kubeconfig
	}
	kcc := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		loadingRules, &clientcmd.ConfigOverrides{})
	cfg, err := kcc.ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("%w: loading kubeconfig: %s",
			ErrClusterUnavailable, err)
	}
	c, err := rtclient.New(cfg, rtclient.Options{
		Scheme: clientgoscheme.Scheme,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrClusterUnavailable, err)
	}
	return &Client{c: c}, nil
}

// NewWithClient wraps an existing controller-runtime client. Used by
// tests to inject a fake client.
func NewWithClient(c rtclient.Client) *Client {
	return &Client{c: c}
}

// GetPV fetches a PersistentVolume by name.
func (k *Client) GetPV(
	ctx context.Context, name string) (*corev1.PersistentVolume, error) {
	// ---
	pv := &corev1.PersistentVolume{}
	err := k.c.Get(ctx, types.NamespacedName{Name: name}, pv)
	if err != nil {
		return nil, classify(err, "persistentvolume", name)
	}
	return pv, nil
}

// GetPVC fetches a PersistentVolumeClaim by namespace and name.
func (k *Client) GetPVC(
	ctx context.Context,
	namespace, name string) (*corev1.PersistentVolumeClaim, error) {
	// ---
	pvc := &corev1.PersistentVolumeClaim{}
	key := types.NamespacedName{Namespace: namespace, Name: name}
	err := k.c.Get(ctx, key, pvc)
	if err != nil {
		return nil, classify(
			err, "persistentvolumeclaim", namespace+"/"+name)
	}
	return pvc, nil
}

// GetNamespace fetches a Namespace by name.
func (k *Client) GetNamespace(
	ctx context.Context, name string) (*corev1.Namespace, error) {
	// ---
	ns := &corev1.Namespace{}
	err := k.c.Get(ctx, types.NamespacedName{Name: name}, ns)
	if err != nil {
		return nil, classify(err, "namespace", name)
	}
	return ns, nil
}

// ListPVs returns all PersistentVolumes matching the label selector.
func (k *Client) ListPVs(
	ctx context.Context,
	selector map[string]string) ([]corev1.PersistentVolume, error) {
	// ---
	l := &corev1.PersistentVolumeList{}
	err := k.c.List(ctx, l, rtclient.MatchingLabels(selector))
	if err != nil {
		return nil, classify(err, "persistentvolumes", "")
	}
	return l.Items, nil
}

// ListPVCs returns all PersistentVolumeClaims matching the label
// selector. An empty namespace lists across all namespaces.
func (k *Client) ListPVCs(
	ctx context.Context,
	namespace string,
	selector map[string]string) ([]corev1.PersistentVolumeClaim, error) {
	// ---
	l := &corev1.PersistentVolumeClaimList{}
	opts := []rtclient.ListOption{rtclient.MatchingLabels(selector)}
	if namespace != "" {
		opts = append(opts, rtclient.InNamespace(namespace))
	}
	err := k.c.List(ctx, l, opts...)
	if err != nil {
		return nil, classify(err, "persistentvolumeclaims", "")
	}
	return l.Items, nil
}

// CreatePV creates a PersistentVolume. Returns ErrAlreadyExists when
// an object of the same name is present.
func (k *Client) CreatePV(
	ctx context.Context, pv *corev1.PersistentVolume) error {
	// ---
	if err := k.c.Create(ctx, pv); err != nil {
		return classify(err, "persistentvolume", pv.Name)
	}
	return nil
}

// CreatePVC creates a PersistentVolumeClaim. Returns ErrAlreadyExists
// when an object of the same namespace and name is present.
func (k *Client) CreatePVC(
	ctx context.Context, pvc *corev1.PersistentVolumeClaim) error {
	// ---
	if err := k.c.Create(ctx, pvc); err != nil {
		return classify(
			err, "persistentvolumeclaim", pvc.Namespace+"/"+pvc.Name)
	}
	return nil
}

// DeletePV deletes a PersistentVolume by name.
func (k *Client) DeletePV(ctx context.Context, name string) error {
	pv := &corev1.PersistentVolume{}
	pv.Name = name
	if err := k.c.Delete(ctx, pv); err != nil {
		return classify(err, "persistentvolume", name)
	}
	return nil
}

// DeletePVC deletes a PersistentVolumeClaim by namespace and name.
func (k *Client) DeletePVC(
	ctx context.Context, namespace, name string) error {
	// ---
	pvc := &corev1.PersistentVolumeClaim{}
	pvc.Namespace = namespace
	pvc.Name = name
	if err := k.c.Delete(ctx, pvc); err != nil {
		return classify(
			err, "persistentvolumeclaim", namespace+"/"+name)
	}
	return nil
}

// classify maps API errors onto the package sentinels so that callers
// can branch with errors.Is without importing apimachinery.
func classify(err error, kind, name string) error {
	ref := kind
	if name != "" {
		ref = kind + " " + name
	}
	switch {
	case apierrors.IsNotFound(err):
		return fmt.Errorf("%w: %s", ErrNotFound, ref)
	case apierrors.IsAlreadyExists(err):
		return fmt.Errorf("%w: %s", ErrAlreadyExists, ref)
	case unreachable(err):
		return fmt.Errorf("%w: %s: %s", ErrClusterUnavailable, ref, err)
	}
	return fmt.Errorf("%s: %w", ref, err)
}

func unreachable(err error) bool {
	if apierrors.IsServerTimeout(err) ||
		apierrors.IsServiceUnavailable(err) ||
		apierrors.IsTimeout(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
