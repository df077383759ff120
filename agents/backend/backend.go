/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package backend maps model identifiers to reader backends and builds
// the provider clients on first use.
package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"chainguard.dev/docprobe/agents/reader"
	"chainguard.dev/docprobe/agents/reader/claudereader"
	"chainguard.dev/docprobe/agents/reader/clireader"
	"chainguard.dev/docprobe/agents/reader/googlereader"
	"chainguard.dev/docprobe/agents/reader/openaireader"
	"cloud.google.com/go/compute/metadata"
	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/vertex"
	"github.com/chainguard-dev/clog"
	"github.com/openai/openai-go"
	openaioption "github.com/openai/openai-go/option"
)

// Family is a group of models served by one backend.
type Family string

const (
	Claude Family = "claude"
	Gemini Family = "gemini"
	OpenAI Family = "openai"
	CLI    Family = "cli"
)

// FamilyOf classifies a model identifier by prefix.
func FamilyOf(model string) (Family, error) {
	m := strings.ToLower(model)
	switch {
	case strings.HasPrefix(m, clireader.Prefix):
		return CLI, nil
	case strings.HasPrefix(m, "claude-"):
		return Claude, nil
	case strings.HasPrefix(m, "gemini-"):
		return Gemini, nil
	case strings.HasPrefix(m, "gpt-"), strings.HasPrefix(m, "o1"), strings.HasPrefix(m, "o3"), strings.HasPrefix(m, "o4"):
		return OpenAI, nil
	}
	return "", fmt.Errorf("%w: %s (expected claude-*, gemini-*, gpt-*, o1/o3/o4* or %s*)", reader.ErrUnknownModel, model, clireader.Prefix)
}

// Config holds provider credentials. Empty API keys fall back to Vertex AI
// for Claude and Gemini, which needs a project.
type Config struct {
	AnthropicAPIKey string
	GeminiAPIKey    string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	Project         string
	Region          string
	CLIPresets      map[string]clireader.Preset
}

// Registry is a reader.Resolver over every supported family.
type Registry struct {
	ctx context.Context
	cfg Config

	mu       sync.Mutex
	backends map[Family]reader.Backend
}

var _ reader.Resolver = (*Registry)(nil)

// New returns a registry. ctx is used to build clients and must outlive
// the registry.
func New(ctx context.Context, cfg Config) *Registry {
	return &Registry{ctx: ctx, cfg: cfg, backends: make(map[Family]reader.Backend)}
}

// Resolve implements reader.Resolver.
func (r *Registry) Resolve(model string) (reader.Backend, error) {
	family, err := FamilyOf(model)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.backends[family]; ok {
		return b, nil
	}
	b, err := r.build(family)
	if err != nil {
		return nil, fmt.Errorf("%s backend: %w", family, err)
	}
	r.backends[family] = b
	return b, nil
}

// Register installs b for family, replacing any built backend.
func (r *Registry) Register(family Family, b reader.Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[family] = b
}

func (r *Registry) build(family Family) (reader.Backend, error) {
	switch family {
	case Claude:
		if r.cfg.AnthropicAPIKey != "" {
			return claudereader.New(anthropic.NewClient(anthropicoption.WithAPIKey(r.cfg.AnthropicAPIKey)))
		}
		project, err := r.project()
		if err != nil {
			return nil, err
		}
		return claudereader.New(anthropic.NewClient(vertex.WithGoogleAuth(r.ctx, r.region(), project)))

	case Gemini:
		if r.cfg.GeminiAPIKey != "" {
			return googlereader.NewGeminiAPI(r.ctx, r.cfg.GeminiAPIKey)
		}
		project, err := r.project()
		if err != nil {
			return nil, err
		}
		return googlereader.NewVertex(r.ctx, project, r.region())

	case OpenAI:
		if r.cfg.OpenAIAPIKey == "" {
			return nil, errors.New("OPENAI_API_KEY is not set")
		}
		opts := []openaioption.RequestOption{openaioption.WithAPIKey(r.cfg.OpenAIAPIKey)}
		if r.cfg.OpenAIBaseURL != "" {
			opts = append(opts, openaioption.WithBaseURL(r.cfg.OpenAIBaseURL))
		}
		return openaireader.New(openai.NewClient(opts...))

	case CLI:
		return clireader.New(r.cfg.CLIPresets)
	}
	return nil, fmt.Errorf("unsupported family %q", family)
}

// project returns the configured GCP project, or the one the metadata
// server reports when running on GCE.
func (r *Registry) project() (string, error) {
	if r.cfg.Project != "" {
		return r.cfg.Project, nil
	}
	if metadata.OnGCE() {
		if id, err := metadata.ProjectIDWithContext(r.ctx); err == nil && id != "" {
			clog.FromContext(r.ctx).Infof("Using project ID from GCE metadata: %s", id)
			r.cfg.Project = id
			return id, nil
		}
	}
	return "", errors.New("no API key and no GCP project: set one of the provider keys or GOOGLE_CLOUD_PROJECT")
}

func (r *Registry) region() string {
	if r.cfg.Region != "" {
		return r.cfg.Region
	}
	return "us-east5"
}
