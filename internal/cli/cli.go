// SPDX-License-Identifier: Apache-2.0

// Package cli implements the pvshare subcommands. Every command is a
// single pass: validate inputs, resolve, plan, optionally short
// circuit for dry run, execute, report. There is no daemon and no
// state beyond the labeled cluster objects.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/spf13/pflag"
	crzap "sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/kubestorage/pvshare/internal/conf"
	"github.com/kubestorage/pvshare/internal/inspect"
	"github.com/kubestorage/pvshare/internal/kube"
	"github.com/kubestorage/pvshare/internal/manifest"
	"github.com/kubestorage/pvshare/internal/share"
)

// Exit codes. Usage and validation problems, aggregate per-target
// failures and declined confirmations all exit 1; an unreachable
// cluster exits 2 so automation can tell the two apart.
const (
	exitOK          = 0
	exitFailure     = 1
	exitUnavailable = 2
)

const usageText = `pvshare - expose one PVC's backing storage to other namespaces

Usage:
  pvshare apply     (-f FILE | -s CLAIM -n NS -t CLAIM -N NS [-r]) [-l K=V]... [--dry-run]
  pvshare list      [--source NS/CLAIM] [--target NS] [-o table|json|yaml]
  pvshare validate  -f FILE [--live] [--check-drift]
  pvshare delete    (--source NS/CLAIM | --target NS | --all) [--dry-run] [--force]
  pvshare reconcile -f FILE [--prune] [--dry-run]
  pvshare help

Common flags:
  -v, --verbose   verbose logging
      --dry-run   preview without writing
`

// App holds the wiring for one invocation. Commands receive options
// structs parsed from flags; nothing reads ambient globals besides the
// loaded configuration.
type App struct {
	ConfSource *conf.Source
	Log        logr.Logger
	Stdin      io.Reader
	Stdout     io.Writer
	Stderr     io.Writer

	// NewClient builds the cluster client. Tests replace it with a
	// fake-backed constructor.
	NewClient func(kubeconfig string) (*kube.Client, error)
}

// NewApp creates an App wired to the process environment.
func NewApp() *App {
	return &App{
		ConfSource: conf.NewSource(),
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		NewClient:  kube.New,
	}
}

// Run dispatches a subcommand and returns the process exit code.
func (a *App) Run(args []string) int {
	if len(args) == 0 {
		fmt.Fprint(a.Stderr, usageText)
		return exitFailure
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "apply":
		return a.cmdApply(rest)
	case "list":
		return a.cmdList(rest)
	case "validate":
		return a.cmdValidate(rest)
	case "delete":
		return a.cmdDelete(rest)
	case "reconcile":
		return a.cmdReconcile(rest)
	case "help", "--help", "-h":
		fmt.Fprint(a.Stdout, usageText)
		return exitOK
	}
	fmt.Fprintf(a.Stderr, "unknown command %q\n\n%s", cmd, usageText)
	return exitFailure
}

// flagSet builds a per-command FlagSet carrying the common flags and
// the configuration source flags.
func (a *App) flagSet(name string, verbose *bool) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(a.Stderr)
	fs.BoolVarP(verbose, "verbose", "v", false, "verbose logging")
	fs.AddFlagSet(a.ConfSource.Flags())
	return fs
}

// setup loads configuration and initializes logging after flags have
// been parsed.
func (a *App) setup(verbose bool) error {
	if err := conf.Load(a.ConfSource); err != nil {
		return fmt.Errorf("unable to configure: %w", err)
	}
	if err := conf.Get().Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if a.Log.GetSink() == nil {
		a.Log = crzap.New(crzap.UseDevMode(verbose))
	}
	return nil
}

// engine builds the share engine against the live cluster.
func (a *App) engine() (*share.Engine, error) {
	cfg := conf.Get()
	client, err := a.NewClient(cfg.Kubeconfig)
	if err != nil {
		return nil, err
	}
	inspector := inspect.NewInspector(client, cfg.DriverName)
	labeler := share.NewLabeler(cfg.LabelDomain, cfg.SharedBy)
	return share.NewEngine(client, inspector, labeler, a.Log), nil
}

// context returns the request context for one command pass. Commands
// are short synchronous batches; no cancellation beyond the process.
func (a *App) context() context.Context {
	return context.Background()
}

// fail prints the error and maps it to an exit code.
func (a *App) fail(err error) int {
	fmt.Fprintf(a.Stderr, "error: %v\n", err)
	if errors.Is(err, kube.ErrClusterUnavailable) {
		return exitUnavailable
	}
	return exitFailure
}

// parseSourceRef parses the NS/CLAIM flag form. Exactly one separator
// is accepted; object names cannot contain slashes.
func parseSourceRef(s string) (manifest.SourceRef, error) {
	var ref manifest.SourceRef
	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return ref, fmt.Errorf("invalid source %q, want NS/CLAIM", s)
	}
	ref.Namespace, ref.Claim = parts[0], parts[1]
	return ref, nil
}
