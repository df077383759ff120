/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package source resolves document references: local paths and files in
// GitHub repositories ("github:owner/repo/path/to/doc.md@ref").
package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v84/github"
	"golang.org/x/oauth2"

	"chainguard.dev/docprobe/comprehension/document"
)

// GitHubPrefix marks a reference to a file in a GitHub repository.
const GitHubPrefix = "github:"

// ErrNotFound is returned when a referenced file does not exist.
var ErrNotFound = errors.New("document not found")

// GitHubRef names one file in a repository. An empty Ref is the default
// branch.
type GitHubRef struct {
	Owner, Repo, Path, Ref string
}

func (r GitHubRef) String() string {
	s := GitHubPrefix + r.Owner + "/" + r.Repo + "/" + r.Path
	if r.Ref != "" {
		s += "@" + r.Ref
	}
	return s
}

// ParseGitHub parses "github:owner/repo/path[@ref]".
func ParseGitHub(s string) (GitHubRef, error) {
	rest, ok := strings.CutPrefix(s, GitHubPrefix)
	if !ok {
		return GitHubRef{}, fmt.Errorf("%q does not start with %s", s, GitHubPrefix)
	}
	var r GitHubRef
	if i := strings.LastIndex(rest, "@"); i >= 0 {
		rest, r.Ref = rest[:i], rest[i+1:]
	}
	parts := strings.SplitN(rest, "/", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || strings.Trim(parts[2], "/") == "" {
		return GitHubRef{}, fmt.Errorf("%q: expected %sowner/repo/path[@ref]", s, GitHubPrefix)
	}
	r.Owner, r.Repo, r.Path = parts[0], parts[1], strings.Trim(parts[2], "/")
	return r, nil
}

// Loader loads documents from the local filesystem or GitHub.
type Loader struct {
	github *github.Client
}

// Option configures a Loader.
type Option func(*Loader)

// WithGitHubClient replaces the GitHub client.
func WithGitHubClient(c *github.Client) Option {
	return func(l *Loader) { l.github = c }
}

// New returns a Loader. A non-empty token authenticates GitHub requests;
// public repositories work without one.
func New(ctx context.Context, token string, opts ...Option) *Loader {
	var hc *http.Client
	if token != "" {
		hc = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	}
	l := &Loader{github: github.NewClient(hc)}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load resolves ref to a document.
func (l *Loader) Load(ctx context.Context, ref string) (*document.Document, error) {
	if !strings.HasPrefix(ref, GitHubPrefix) {
		return document.Load(ref)
	}
	r, err := ParseGitHub(ref)
	if err != nil {
		return nil, err
	}
	clog.FromContext(ctx).With("owner", r.Owner).With("repo", r.Repo).With("ref", r.Ref).
		Infof("Fetching %s from GitHub", r.Path)

	file, dir, _, err := l.github.Repositories.GetContents(ctx, r.Owner, r.Repo, r.Path,
		&github.RepositoryContentGetOptions{Ref: r.Ref})
	if err != nil {
		var er *github.ErrorResponse
		if errors.As(err, &er) && er.Response != nil && er.Response.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%s: %w", r, ErrNotFound)
		}
		return nil, fmt.Errorf("fetching %s: %w", r, err)
	}
	if file == nil {
		return nil, fmt.Errorf("%s is a directory with %d entries, not a file", r, len(dir))
	}
	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", r, err)
	}

	doc, err := document.Parse(r.Path, []byte(content))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r, err)
	}
	doc.Path = r.String()
	return doc, nil
}
