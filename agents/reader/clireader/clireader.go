/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package clireader runs models through their command-line clients. Each
// query starts one process, writes the transcript to its stdin and takes
// stdout as the reply.
package clireader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"chainguard.dev/docprobe/agents/reader"
	"github.com/chainguard-dev/clog"
)

// Prefix marks a model identifier served by this package, as in
// "cli:claude" or "cli:gemini/gemini-2.5-pro".
const Prefix = "cli:"

// Preset describes how to invoke one CLI. Occurrences of {model} in Args
// are replaced by the model part of the identifier, or DefaultModel.
type Preset struct {
	Command      string   `yaml:"command"`
	Args         []string `yaml:"args"`
	DefaultModel string   `yaml:"default_model"`
}

// Presets are the built-in clients.
var Presets = map[string]Preset{
	"claude": {Command: "claude", Args: []string{"-p", "--model", "{model}"}, DefaultModel: "sonnet"},
	"gemini": {Command: "gemini", Args: []string{"-m", "{model}"}, DefaultModel: "gemini-2.5-pro"},
	"codex":  {Command: "codex", Args: []string{"exec", "-m", "{model}", "-"}, DefaultModel: "gpt-5"},
}

// ParseModel splits "cli:name/model" into the preset name and model.
func ParseModel(model string) (name, sub string, err error) {
	rest, ok := strings.CutPrefix(model, Prefix)
	if !ok || rest == "" {
		return "", "", fmt.Errorf("model %q is not a CLI model (expected %sname[/model])", model, Prefix)
	}
	name, sub, _ = strings.Cut(rest, "/")
	return name, sub, nil
}

// Backend starts CLI readers from a preset table.
type Backend struct {
	presets   map[string]Preset
	waitDelay time.Duration
}

var _ reader.Backend = (*Backend)(nil)

// New returns a backend over the built-in presets plus extra, which
// override built-ins of the same name.
func New(extra map[string]Preset) (*Backend, error) {
	presets := make(map[string]Preset, len(Presets)+len(extra))
	for name, p := range Presets {
		presets[name] = p
	}
	for name, p := range extra {
		if p.Command == "" {
			return nil, fmt.Errorf("preset %q has no command", name)
		}
		presets[name] = p
	}
	return &Backend{presets: presets, waitDelay: time.Second}, nil
}

// Open implements reader.Backend. The executable is looked up at open
// time so a missing client fails before any question is asked.
func (b *Backend) Open(_ context.Context, model, system string) (reader.Reader, error) {
	name, sub, err := ParseModel(model)
	if err != nil {
		return nil, err
	}
	p, ok := b.presets[name]
	if !ok {
		return nil, fmt.Errorf("%w: no CLI preset %q", reader.ErrUnknownModel, name)
	}
	path, err := exec.LookPath(p.Command)
	if err != nil {
		return nil, fmt.Errorf("CLI %q: %w", p.Command, err)
	}
	if sub == "" {
		sub = p.DefaultModel
	}
	args := make([]string, len(p.Args))
	for i, a := range p.Args {
		args[i] = strings.ReplaceAll(a, "{model}", sub)
	}
	return &cliReader{path: path, args: args, system: system, model: model, waitDelay: b.waitDelay}, nil
}

// Retryable implements reader.Backend. A CLI that exits non-zero is not
// retried; timeouts are handled by the caller.
func (b *Backend) Retryable(error) bool { return false }

type cliReader struct {
	path      string
	args      []string
	system    string
	model     string
	waitDelay time.Duration
}

func (r *cliReader) Query(ctx context.Context, turns []reader.Turn) (reader.Reply, error) {
	cmd := exec.CommandContext(ctx, r.path, r.args...)
	cmd.Stdin = strings.NewReader(Transcript(r.system, turns))
	cmd.WaitDelay = r.waitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	clog.FromContext(ctx).With("model", r.model).Debugf("running %s", r.path)
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return reader.Reply{}, fmt.Errorf("%s: %w", r.path, ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return reader.Reply{}, fmt.Errorf("%s exited with %d: %s", r.path, exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return reader.Reply{}, fmt.Errorf("running %s: %w", r.path, err)
	}
	return reader.Reply{Text: strings.TrimSpace(stdout.String())}, nil
}

// Transcript flattens a system prompt and turns into one prompt for a
// single-shot client.
func Transcript(system string, turns []reader.Turn) string {
	var sb strings.Builder
	if system != "" {
		sb.WriteString(system)
		sb.WriteString("\n\n")
	}
	if len(turns) == 1 {
		sb.WriteString(turns[0].Text)
		return sb.String()
	}
	for i, t := range turns {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		label := "User"
		if t.Role == reader.Assistant {
			label = "Assistant"
		}
		fmt.Fprintf(&sb, "%s: %s", label, t.Text)
	}
	return sb.String()
}
