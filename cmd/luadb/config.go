// Copyright 2025 Roxy Light
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"

	jsonv2 "github.com/go-json-experiment/json"
	"github.com/tailscale/hujson"
)

type globalConfig struct {
	Debug    bool   `json:"debug"`
	Database string `json:"database"`
}

func defaultGlobalConfig() *globalConfig {
	return new(globalConfig)
}

func (g *globalConfig) mergeEnvironment() error {
	if path := os.Getenv("LUADB_DATABASE"); path != "" {
		g.Database = path
	}
	return nil
}

// mergeFiles reads each configuration file that exists in paths,
// merging its fields over g in order.
// Files may contain comments and trailing commas.
func (g *globalConfig) mergeFiles(paths iter.Seq[string]) error {
	for path := range paths {
		huJSONData, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}
		jsonData, err := hujson.Standardize(huJSONData)
		if err != nil {
			return fmt.Errorf("read %s: %v", path, err)
		}
		if err := jsonv2.Unmarshal(jsonData, g, jsonv2.RejectUnknownMembers(false)); err != nil {
			return fmt.Errorf("read %s: %v", path, err)
		}
	}
	return nil
}

// configSearchPaths yields the configuration files to merge, in order.
// An explicit --config path replaces the default search.
func configSearchPaths(explicit string) iter.Seq[string] {
	return func(yield func(string) bool) {
		if explicit != "" {
			yield(explicit)
			return
		}
		if dir := configDir(); dir != "" {
			if !yield(filepath.Join(dir, "luadb", "config.json")) {
				return
			}
		}
	}
}
