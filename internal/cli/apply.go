// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"strings"

	"github.com/kubestorage/pvshare/internal/manifest"
)

type applyOptions struct {
	file         string
	sourceClaim  string
	sourceNS     string
	targetClaims []string
	targetNS     []string
	readOnly     bool
	labels       []string
	dryRun       bool
	verbose      bool
}

func (a *App) cmdApply(args []string) int {
	var opts applyOptions
	fs := a.flagSet("apply", &opts.verbose)
	fs.StringVarP(&opts.file, "file", "f", "",
		"manifest file describing the share")
	fs.StringVarP(&opts.sourceClaim, "source-claim", "s", "",
		"source claim name")
	fs.StringVarP(&opts.sourceNS, "source-namespace", "n", "",
		"source claim namespace")
	fs.StringArrayVarP(&opts.targetClaims, "target-claim", "t", nil,
		"target claim name (repeatable)")
	fs.StringArrayVarP(&opts.targetNS, "target-namespace", "N", nil,
		"target namespace (repeatable, paired with -t)")
	fs.BoolVarP(&opts.readOnly, "read-only", "r", false,
		"expose the share read-only")
	fs.StringArrayVarP(&opts.labels, "label", "l", nil,
		"extra label K=V applied to created resources (repeatable)")
	fs.BoolVar(&opts.dryRun, "dry-run", false,
		"preview the plan without writing")
	if err := fs.Parse(args); err != nil {
		return exitFailure
	}
	if err := a.setup(opts.verbose); err != nil {
		return a.fail(err)
	}

	m, err := a.applyManifest(opts)
	if err != nil {
		return a.fail(err)
	}
	if len(m.Targets) == 0 {
		return a.fail(manifest.ErrEmptyTargetList)
	}

	eng, err := a.engine()
	if err != nil {
		return a.fail(err)
	}
	ctx := a.context()
	plan, err := eng.PlanShare(ctx, m)
	if err != nil {
		return a.fail(err)
	}
	rep, execErr := eng.Execute(ctx, plan, opts.dryRun)
	if rep != nil {
		printReport(a.Stdout, rep, opts.dryRun)
	}
	if execErr != nil {
		return a.fail(execErr)
	}
	return exitOK
}

// applyManifest assembles the manifest from the file or the CLI-form
// flags. A file takes precedence; mixing the two is a usage error.
func (a *App) applyManifest(opts applyOptions) (*manifest.ShareManifest, error) {
	cliForm := opts.sourceClaim != "" || opts.sourceNS != "" ||
		len(opts.targetClaims) > 0 || len(opts.targetNS) > 0
	if opts.file != "" {
		if cliForm {
			return nil, fmt.Errorf(
				"use either --file or the -s/-n/-t/-N flags, not both")
		}
		m, err := manifest.Load(opts.file)
		if err != nil {
			return nil, err
		}
		return withExtraLabels(m, opts.labels)
	}

	if opts.sourceClaim == "" || opts.sourceNS == "" {
		return nil, fmt.Errorf(
			"source claim and namespace are required (-s and -n)")
	}
	if len(opts.targetClaims) != len(opts.targetNS) {
		return nil, fmt.Errorf(
			"-t and -N must be given the same number of times")
	}
	m := &manifest.ShareManifest{
		Source: manifest.SourceRef{
			Claim:     opts.sourceClaim,
			Namespace: opts.sourceNS,
		},
	}
	for i := range opts.targetClaims {
		m.AddTarget(opts.targetClaims[i], opts.targetNS[i], opts.readOnly)
	}
	return withExtraLabels(m, opts.labels)
}

func withExtraLabels(
	m *manifest.ShareManifest, kvs []string) (*manifest.ShareManifest, error) {
	// ---
	if len(kvs) == 0 {
		return m, nil
	}
	if m.Labels == nil {
		m.Labels = map[string]string{}
	}
	for _, kv := range kvs {
		i := strings.IndexByte(kv, '=')
		if i <= 0 {
			return nil, fmt.Errorf("invalid label %q, want K=V", kv)
		}
		m.Labels[kv[:i]] = kv[i+1:]
	}
	return m, nil
}
