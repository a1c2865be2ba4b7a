//go:build integration
// +build integration

package integration

import (
	"context"

	"github.com/stretchr/testify/suite"
	rtclient "sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/kubestorage/pvshare/internal/manifest"
	"github.com/kubestorage/pvshare/internal/share"
)

func allReconcileSuites() map[string]suite.TestingSuite {
	return map[string]suite.TestingSuite{
		"convergePrune": &ReconcileSuite{
			srcNS: "pvshare-it-rsrc",
			devNS: "pvshare-it-rdev",
			qaNS:  "pvshare-it-rqa",
		},
	}
}

// ReconcileSuite drives the cluster toward a manifest and back: grow
// the target set, then shrink it with pruning enabled.
type ReconcileSuite struct {
	suite.Suite

	client rtclient.Client
	eng    *share.Engine
	srcNS  string
	devNS  string
	qaNS   string
}

func (s *ReconcileSuite) SetupSuite() {
	c, err := rawClient()
	s.Require().NoError(err)
	s.client = c
	s.eng = testEngine(c)

	ctx := context.TODO()
	for _, ns := range []string{s.srcNS, s.devNS, s.qaNS} {
		s.Require().NoError(ensureNamespace(ctx, c, ns))
	}
	s.Require().NoError(
		createIfMissing(ctx, c, sourceClaim(s.srcNS, "data")))

	bctx, cancel := context.WithTimeout(ctx, waitForBoundTime)
	defer cancel()
	s.Require().NoError(waitClaimBound(bctx, c, s.srcNS, "data"))
}

func (s *ReconcileSuite) TearDownSuite() {
	ctx := context.TODO()
	_, _ = s.eng.DeleteShares(ctx, share.SourceFilter(s.srcNS, "data"), false)
	for _, ns := range []string{s.devNS, s.qaNS, s.srcNS} {
		s.Require().NoError(deleteNamespace(ctx, s.client, ns))
	}
}

func (s *ReconcileSuite) TestConvergeAndPrune() {
	ctx := context.TODO()
	full := &manifest.ShareManifest{
		Source: manifest.SourceRef{Namespace: s.srcNS, Claim: "data"},
		Targets: []manifest.TargetSpec{
			{Claim: "data", Namespace: s.devNS},
			{Claim: "data-ro", Namespace: s.qaNS, ReadOnly: true},
		},
	}

	rep, err := s.eng.Reconcile(ctx, full, false, false)
	s.Require().NoError(err)
	s.Require().NotNil(rep.Apply)
	s.Require().Equal(2, rep.Apply.Created)

	// a second pass finds everything in sync
	rep, err = s.eng.Reconcile(ctx, full, false, false)
	s.Require().NoError(err)
	s.Require().Len(rep.InSync, 2)
	s.Require().Nil(rep.Apply)

	// shrink the manifest; without prune the extra share is only reported
	reduced := &manifest.ShareManifest{
		Source: manifest.SourceRef{Namespace: s.srcNS, Claim: "data"},
		Targets: []manifest.TargetSpec{
			{Claim: "data", Namespace: s.devNS},
		},
	}
	rep, err = s.eng.Reconcile(ctx, reduced, false, false)
	s.Require().NoError(err)
	s.Require().Len(rep.Extra, 1)

	rep, err = s.eng.Reconcile(ctx, reduced, true, false)
	s.Require().NoError(err)
	s.Require().Len(rep.Pruned, 1)

	qaVol := share.SharedVolumeName(s.srcNS, "data", s.qaNS)
	gctx, cancel := context.WithTimeout(ctx, waitForGoneTime)
	defer cancel()
	s.Require().NoError(waitVolumeGone(gctx, s.client, qaVol))
}
