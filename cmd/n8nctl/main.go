// Package main is the entry point for the n8nctl CLI.
//
// n8nctl deploys the n8n workflow automation platform onto managed
// Kubernetes on AWS (EKS) or Azure (AKS). It drives the cloud through
// the operator's own CLI tools (terraform, helm, kubectl, aws, az),
// so every action is reproducible by hand.
//
// Commands: deploy, teardown, tls, doctor, state.
//
// For detailed usage information, run:
//
//	n8nctl --help
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lrproduhub/n8nctl/cmd/n8nctl/commands"
	"github.com/lrproduhub/n8nctl/internal/errdefs"
	"github.com/lrproduhub/n8nctl/internal/session"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// SIGINT and SIGTERM cancel the context; a running deploy rolls its
	// managed files back before the process exits.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	commands.SetVersionInfo(version, commit, date)
	err := commands.Root().ExecuteContext(ctx)
	if err != nil && !errors.Is(err, session.ErrAborted) {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if hint := errdefs.HintOf(err); hint != "" {
			fmt.Fprintln(os.Stderr, "hint:", hint)
		}
	}
	stop()
	os.Exit(session.ExitCode(err))
}
