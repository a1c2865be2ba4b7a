// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"

	"github.com/kubestorage/pvshare/internal/share"
)

type listOptions struct {
	source  string
	target  string
	output  string
	verbose bool
}

func (a *App) cmdList(args []string) int {
	var opts listOptions
	fs := a.flagSet("list", &opts.verbose)
	fs.StringVar(&opts.source, "source", "",
		"only shares of this source, as NS/CLAIM")
	fs.StringVar(&opts.target, "target", "",
		"only shares consumed by this namespace")
	fs.StringVarP(&opts.output, "output", "o", "table",
		"output format: table, json or yaml")
	if err := fs.Parse(args); err != nil {
		return exitFailure
	}
	if err := a.setup(opts.verbose); err != nil {
		return a.fail(err)
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

	switch opts.output {
	case "table":
		infos, err := eng.ListShares(ctx, filter)
		if err != nil {
			return a.fail(err)
		}
		printShareTable(a.Stdout, infos)
	case "json":
		infos, err := eng.ListShares(ctx, filter)
		if err != nil {
			return a.fail(err)
		}
		if err := printJSON(a.Stdout, infos); err != nil {
			return a.fail(err)
		}
	case "yaml":
		// full object dump
		pvs, err := eng.ListVolumes(ctx, filter)
		if err != nil {
			return a.fail(err)
		}
		if err := printYAML(a.Stdout, pvs); err != nil {
			return a.fail(err)
		}
	default:
		return a.fail(fmt.Errorf("unknown output format %q", opts.output))
	}
	return exitOK
}
