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

func allShareSuites() map[string]suite.TestingSuite {
	return map[string]suite.TestingSuite{
		"createDelete": &ShareCreateDeleteSuite{
			srcNS: "pvshare-it-src",
			devNS: "pvshare-it-dev",
			qaNS:  "pvshare-it-qa",
		},
	}
}

// ShareCreateDeleteSuite walks one share set through its whole life on
// a real cluster: provision a source, share it out, list it back,
// re-apply, and delete.
type ShareCreateDeleteSuite struct {
	suite.Suite

	client rtclient.Client
	eng    *share.Engine
	srcNS  string
	devNS  string
	qaNS   string
}

func (s *ShareCreateDeleteSuite) SetupSuite() {
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

func (s *ShareCreateDeleteSuite) TearDownSuite() {
	ctx := context.TODO()
	_, _ = s.eng.DeleteShares(ctx, share.SourceFilter(s.srcNS, "data"), false)
	for _, ns := range []string{s.devNS, s.qaNS, s.srcNS} {
		s.Require().NoError(deleteNamespace(ctx, s.client, ns))
	}
}

func (s *ShareCreateDeleteSuite) testManifest() *manifest.ShareManifest {
	return &manifest.ShareManifest{
		Source: manifest.SourceRef{Namespace: s.srcNS, Claim: "data"},
		Targets: []manifest.TargetSpec{
			{Claim: "data", Namespace: s.devNS},
			{Claim: "data-ro", Namespace: s.qaNS, ReadOnly: true},
		},
	}
}

func (s *ShareCreateDeleteSuite) TestShareLifecycle() {
	ctx := context.TODO()

	plan, err := s.eng.PlanShare(ctx, s.testManifest())
	s.Require().NoError(err)
	rep, err := s.eng.Execute(ctx, plan, false)
	s.Require().NoError(err)
	s.Require().Equal(2, rep.Created)

	devVol := share.SharedVolumeName(s.srcNS, "data", s.devNS)
	qaVol := share.SharedVolumeName(s.srcNS, "data", s.qaNS)

	// derived claims must bind to their pinned volumes
	for _, tgt := range []struct{ ns, claim string }{
		{s.devNS, "data"}, {s.qaNS, "data-ro"},
	} {
		bctx, cancel := context.WithTimeout(ctx, waitForBoundTime)
		s.Require().NoError(waitClaimBound(bctx, s.client, tgt.ns, tgt.claim))
		cancel()
	}

	infos, err := s.eng.ListShares(ctx, share.ListFilter{})
	s.Require().NoError(err)
	s.Require().Len(infos, 2)

	// re-applying the same manifest changes nothing
	plan, err = s.eng.PlanShare(ctx, s.testManifest())
	s.Require().NoError(err)
	rep, err = s.eng.Execute(ctx, plan, false)
	s.Require().NoError(err)
	s.Require().Equal(0, rep.Created)
	s.Require().Equal(2, rep.Skipped)

	drep, err := s.eng.DeleteShares(
		ctx, share.SourceFilter(s.srcNS, "data"), false)
	s.Require().NoError(err)
	s.Require().Len(drep.Removed, 2)

	for _, vol := range []string{devVol, qaVol} {
		gctx, cancel := context.WithTimeout(ctx, waitForGoneTime)
		s.Require().NoError(waitVolumeGone(gctx, s.client, vol))
		cancel()
	}
}
