// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"

	"github.com/kubestorage/pvshare/internal/share"
)

type deleteOptions struct {
	source  string
	target  string
	all     bool
	dryRun  bool
	force   bool
	verbose bool
}

func (a *App) cmdDelete(args []string) int {
	var opts deleteOptions
	fs := a.flagSet("delete", &opts.verbose)
	fs.StringVar(&opts.source, "source", "",
		"delete shares of this source, as NS/CLAIM")
	fs.StringVar(&opts.target, "target", "",
		"delete shares consumed by this namespace")
	fs.BoolVar(&opts.all, "all", false, "delete every managed share")
	fs.BoolVar(&opts.dryRun, "dry-run", false,
		"preview without deleting")
	fs.BoolVar(&opts.force, "force", false,
		"skip the confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return exitFailure
	}
	if err := a.setup(opts.verbose); err != nil {
		return a.fail(err)
	}

	if opts.source == "" && opts.target == "" && !opts.all {
		return a.fail(fmt.Errorf(
			"one of --source, --target or --all is required"))
	}

	filter := share.ListFilter{TargetNamespace: opts.target}
	if opts.source != "" {
		ref, err := parseSourceRef(opts.source)
		if err != nil {
			return a.fail(err)
		}
		filter.Source = &ref
	}

	eng, err := a.engine()
	if err != nil {
		return a.fail(err)
	}
	ctx := a.context()

	victims, err := eng.ListShares(ctx, filter)
	if err != nil {
		return a.fail(err)
	}
	if len(victims) == 0 {
		fmt.Fprintln(a.Stdout, "nothing to delete")
		return exitOK
	}
	printShareList(a.Stdout, "will delete", victims)

	if opts.dryRun {
		fmt.Fprintf(a.Stdout, "dry run: %d share(s) left untouched\n",
			len(victims))
		return exitOK
	}
	if !opts.force {
		ok, err := a.confirm(fmt.Sprintf(
			"Delete %d share(s)? [y/N]: ", len(victims)))
		if err != nil {
			return a.fail(err)
		}
		if !ok {
			fmt.Fprintln(a.Stdout, "aborted")
			return exitFailure
		}
	}

	rep, err := eng.DeleteShares(ctx, filter, false)
	if rep != nil {
		fmt.Fprintf(a.Stdout, "deleted %d share(s), %d failed\n",
			len(rep.Removed), rep.Failed)
	}
	if err != nil {
		return a.fail(err)
	}
	return exitOK
}
