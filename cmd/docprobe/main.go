/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Command docprobe checks whether independent readers can answer questions
// about a document from the document alone.
//
//	docprobe generate [flags] <document>
//	docprobe test     [flags] <document>
//	docprobe evaluate [flags] <document>
//	docprobe auto     [flags] <document>
//
// A document is a local markdown or sections JSON file, or a file in a
// GitHub repository written as github:owner/repo/path[@ref].
//
// Artifacts are read from and written to -out, a directory or a
// gs://bucket/prefix location.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/chainguard-dev/clog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sethvargo/go-envconfig"

	"chainguard.dev/docprobe/agents/reader"
	"chainguard.dev/docprobe/comprehension/questioning"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	os.Exit(run(ctx, os.Args[1:], envconfig.OsLookuper(), os.Stdout, os.Stderr))
}

type usageError struct{ error }

func usagef(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}

func run(ctx context.Context, args []string, env envconfig.Lookuper, stdout, stderr io.Writer) int {
	var cfg config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: env}); err != nil {
		fmt.Fprintf(stderr, "docprobe: %v\n", err)
		return exitUsage
	}
	ctx = clog.WithLogger(ctx, clog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))

	if len(args) == 0 {
		printUsage(stderr)
		return exitUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "docprobe: unknown command %q\n", args[0])
		printUsage(stderr)
		return exitUsage
	}

	fc, err := loadFileConfig(cfg.ConfigFile)
	if err != nil {
		fmt.Fprintf(stderr, "docprobe: %v\n", err)
		return exitUsage
	}

	err = cmd(ctx, &app{cfg: cfg, file: fc, stdout: stdout, stderr: stderr}, args[1:])

	if cfg.MetricsFile != "" {
		if merr := prometheus.WriteToTextfile(cfg.MetricsFile, prometheus.DefaultGatherer); merr != nil {
			clog.WarnContextf(ctx, "Failed to write metrics to %s: %v", cfg.MetricsFile, merr)
		}
	}
	return exitCode(ctx, err)
}

func exitCode(ctx context.Context, err error) int {
	var ue usageError
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, flag.ErrHelp):
		return exitOK
	case errors.As(err, &ue):
		clog.ErrorContextf(ctx, "%v", ue.error)
		return exitUsage
	case errors.Is(err, questioning.ErrNoQuestions):
		clog.ErrorContextf(ctx, "Generation produced no valid questions")
	case errors.Is(err, reader.ErrNoReachableModel):
		clog.ErrorContextf(ctx, "No model could be reached: %v", err)
	default:
		clog.ErrorContextf(ctx, "%v", err)
	}
	return exitFailure
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `usage: docprobe <command> [flags] <document>

commands:
  generate   extract questions from a document into questions.json
  test       collect model answers to questions.json into answers.json
  evaluate   judge answers.json into question_results.json
  auto       run generate, test and evaluate
`)
}
