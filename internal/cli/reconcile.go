// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"

	"github.com/kubestorage/pvshare/internal/manifest"
)

type reconcileOptions struct {
	file    string
	prune   bool
	dryRun  bool
	verbose bool
}

// cmdReconcile converges the cluster toward the manifest. Repetition
// must come from outside (cron or a driving controller); one
// invocation is one pass.
func (a *App) cmdReconcile(args []string) int {
	var opts reconcileOptions
	fs := a.flagSet("reconcile", &opts.verbose)
	fs.StringVarP(&opts.file, "file", "f", "",
		"manifest file declaring the desired share set")
	fs.BoolVar(&opts.prune, "prune", false,
		"delete managed shares absent from the manifest")
	fs.BoolVar(&opts.dryRun, "dry-run", false,
		"print the plan without executing it")
	if err := fs.Parse(args); err != nil {
		return exitFailure
	}
	if err := a.setup(opts.verbose); err != nil {
		return a.fail(err)
	}
	if opts.file == "" {
		return a.fail(fmt.Errorf("a manifest file is required (-f)"))
	}

	m, err := manifest.Load(opts.file)
	if err != nil {
		return a.fail(err)
	}

	eng, err := a.engine()
	if err != nil {
		return a.fail(err)
	}

	rep, recErr := eng.Reconcile(a.context(), m, opts.prune, opts.dryRun)
	if rep != nil {
		printShareList(a.Stdout, "in sync", rep.InSync)
		if rep.Apply != nil {
			printReport(a.Stdout, rep.Apply, opts.dryRun)
		}
		if opts.prune {
			heading := "pruned"
			if opts.dryRun {
				heading = "would prune"
			}
			printShareList(a.Stdout, heading, rep.Pruned)
			printShareList(a.Stdout, "failed to prune", rep.Failed)
		} else {
			printShareList(a.Stdout,
				"extra (not pruned, use --prune)", rep.Extra)
		}
	}
	if recErr != nil {
		return a.fail(recErr)
	}
	return exitOK
}
