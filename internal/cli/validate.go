// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"

	"github.com/kubestorage/pvshare/internal/manifest"
)

type validateOptions struct {
	file       string
	live       bool
	checkDrift bool
	verbose    bool
}

// cmdValidate checks manifest syntax and, on request, the live source
// and the recorded handles of its shares. It never mutates cluster
// state.
func (a *App) cmdValidate(args []string) int {
	var opts validateOptions
	fs := a.flagSet("validate", &opts.verbose)
	fs.StringVarP(&opts.file, "file", "f", "", "manifest file to check")
	fs.BoolVar(&opts.live, "live", false,
		"also check the source claim against the cluster")
	fs.BoolVar(&opts.checkDrift, "check-drift", false,
		"also compare share handles against the current source")
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
	fmt.Fprintf(a.Stdout, "manifest ok: source %s, %d target(s)\n",
		m.Source, len(m.Targets))

	if !opts.live && !opts.checkDrift {
		return exitOK
	}

	eng, err := a.engine()
	if err != nil {
		return a.fail(err)
	}
	ctx := a.context()

	if opts.live {
		src, err := eng.ResolveSource(ctx, m.Source)
		if err != nil {
			return a.fail(err)
		}
		fmt.Fprintf(a.Stdout,
			"source ok: bound to %s (driver %s, handle %s)\n",
			src.VolumeName, src.DriverName, src.VolumeHandle)
	}

	if opts.checkDrift {
		findings, err := eng.CheckDrift(ctx, m.Source)
		if err != nil {
			return a.fail(err)
		}
		if len(findings) == 0 {
			fmt.Fprintln(a.Stdout, "no drift detected")
			return exitOK
		}
		for _, f := range findings {
			fmt.Fprintf(a.Stdout,
				"drift: %s (%s/%s) records handle %s, source now %s\n",
				f.VolumeName, f.TargetNamespace, f.TargetClaim,
				f.VolumeHandle, f.SourceHandle)
		}
		return exitFailure
	}
	return exitOK
}
