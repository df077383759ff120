/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package source_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-github/v84/github"

	"chainguard.dev/docprobe/comprehension/source"
)

func TestParseGitHub(t *testing.T) {
	tests := []struct {
		in      string
		want    source.GitHubRef
		wantErr bool
	}{
		{in: "github:acme/docs/guide.md", want: source.GitHubRef{Owner: "acme", Repo: "docs", Path: "guide.md"}},
		{in: "github:acme/docs/a/b/guide.md@v1.2", want: source.GitHubRef{Owner: "acme", Repo: "docs", Path: "a/b/guide.md", Ref: "v1.2"}},
		{in: "github:acme/docs/", wantErr: true},
		{in: "github:acme", wantErr: true},
		{in: "guide.md", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := source.ParseGitHub(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseGitHub() error = %v, wantErr %v", err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseGitHub() mismatch (-want +got):\n%s", diff)
			}
			if !tt.wantErr && got.String() != tt.in {
				t.Errorf("String() = %q, wanted %q", got.String(), tt.in)
			}
		})
	}
}

func newLoader(t *testing.T, handler http.HandlerFunc) *source.Loader {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := github.NewClient(srv.Client())
	base, err := url.Parse(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	client.BaseURL = base
	return source.New(context.Background(), "", source.WithGitHubClient(client))
}

func TestLoadGitHub(t *testing.T) {
	markdown := "# Config\nTimeout must be 30 seconds.\n"
	l := newLoader(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/acme/docs/contents/guide.md" || r.URL.Query().Get("ref") != "main" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"type":     "file",
			"path":     "guide.md",
			"encoding": "base64",
			"content":  base64.StdEncoding.EncodeToString([]byte(markdown)),
		})
	})

	doc, err := l.Load(context.Background(), "github:acme/docs/guide.md@main")
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if doc.Path != "github:acme/docs/guide.md@main" {
		t.Errorf("Path = %q", doc.Path)
	}
	if doc.Content != markdown {
		t.Errorf("Content = %q, wanted %q", doc.Content, markdown)
	}
	if len(doc.Sections) != 1 || doc.Sections[0].ID != "config" {
		t.Errorf("Sections = %+v", doc.Sections)
	}
}

func TestLoadGitHubNotFound(t *testing.T) {
	l := newLoader(t, http.NotFound)
	_, err := l.Load(context.Background(), "github:acme/docs/missing.md")
	if !errors.Is(err, source.ErrNotFound) {
		t.Errorf("Load(): got = %v, wanted ErrNotFound", err)
	}
}

func TestLoadLocal(t *testing.T) {
	p := filepath.Join(t.TempDir(), "guide.md")
	if err := os.WriteFile(p, []byte("# Config\nTimeout must be 30 seconds.\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := source.New(context.Background(), "").Load(context.Background(), p)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if doc.Path != p || len(doc.Sections) != 1 {
		t.Errorf("Load() = %+v", doc)
	}
}
