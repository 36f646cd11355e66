// Copyright 2025 Roxy Light
// SPDX-License-Identifier: MIT

package main

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMergeFiles(t *testing.T) {
	dir := t.TempDir()
	path1 := filepath.Join(dir, "one.json")
	if err := os.WriteFile(path1, []byte(`{
		// Comments and trailing commas are permitted.
		"debug": true,
		"database": "first.db",
	}`), 0o666); err != nil {
		t.Fatal(err)
	}
	path2 := filepath.Join(dir, "two.json")
	if err := os.WriteFile(path2, []byte(`{"database": "second.db"}`), 0o666); err != nil {
		t.Fatal(err)
	}

	g := defaultGlobalConfig()
	missing := filepath.Join(dir, "does-not-exist.json")
	if err := g.mergeFiles(slices.Values([]string{path1, missing, path2})); err != nil {
		t.Fatal(err)
	}

	want := &globalConfig{
		Debug:    true,
		Database: "second.db",
	}
	if diff := cmp.Diff(want, g); diff != "" {
		t.Errorf("config (-want +got):\n%s", diff)
	}
}

func TestMergeFilesBadSyntax(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte(`{"database":`), 0o666); err != nil {
		t.Fatal(err)
	}
	g := defaultGlobalConfig()
	if err := g.mergeFiles(slices.Values([]string{path})); err == nil {
		t.Error("mergeFiles succeeded on malformed file; want error")
	}
}

func TestConfigSearchPaths(t *testing.T) {
	got := slices.Collect(configSearchPaths("/tmp/explicit.json"))
	want := []string{"/tmp/explicit.json"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("explicit search paths (-want +got):\n%s", diff)
	}
}
