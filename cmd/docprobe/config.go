/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"chainguard.dev/docprobe/agents/backend"
	"chainguard.dev/docprobe/agents/reader/clireader"
	"chainguard.dev/docprobe/agents/reader/retry"
)

type config struct {
	Models        []string      `env:"DOCPROBE_MODELS,default=claude-sonnet-4-5,gemini-2.5-pro"`
	JudgeModel    string        `env:"DOCPROBE_JUDGE_MODEL,default=claude-opus-4-1"`
	Workers       int           `env:"DOCPROBE_WORKERS,default=4"`
	Timeout       time.Duration `env:"DOCPROBE_TIMEOUT,default=30s"`
	Retries       int           `env:"DOCPROBE_RETRIES,default=1"`
	SectionTarget float64       `env:"DOCPROBE_SECTION_TARGET,default=70"`
	ElementTarget float64       `env:"DOCPROBE_ELEMENT_TARGET,default=60"`
	Output        string        `env:"DOCPROBE_OUTPUT,default=."`
	LogLevel      slog.Level    `env:"DOCPROBE_LOG_LEVEL,default=info"`
	MetricsFile   string        `env:"DOCPROBE_METRICS_FILE"`
	ConfigFile    string        `env:"DOCPROBE_CONFIG"`

	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL   string `env:"OPENAI_BASE_URL"`
	GeminiAPIKey    string `env:"GEMINI_API_KEY"`
	Project         string `env:"GOOGLE_CLOUD_PROJECT"`
	Region          string `env:"GOOGLE_CLOUD_LOCATION"`
	GitHubToken     string `env:"GITHUB_TOKEN"`
}

// fileConfig is the optional YAML file named by DOCPROBE_CONFIG.
type fileConfig struct {
	Presets map[string]clireader.Preset `yaml:"presets"`
}

func loadFileConfig(path string) (fileConfig, error) {
	var fc fileConfig
	if path == "" {
		return fc, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return fc, fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		return fc, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return fc, nil
}

func (c config) backend(fc fileConfig) backend.Config {
	return backend.Config{
		AnthropicAPIKey: c.AnthropicAPIKey,
		GeminiAPIKey:    c.GeminiAPIKey,
		OpenAIAPIKey:    c.OpenAIAPIKey,
		OpenAIBaseURL:   c.OpenAIBaseURL,
		Project:         c.Project,
		Region:          c.Region,
		CLIPresets:      fc.Presets,
	}
}

func (c config) retry() retry.Config {
	rc := retry.DefaultConfig()
	rc.Timeout = c.Timeout
	rc.MaxRetries = c.Retries
	return rc
}
