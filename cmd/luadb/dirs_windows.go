// Copyright 2025 Roxy Light
// SPDX-License-Identifier: MIT

//go:build !unix

package main

import "os"

func configDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return dir
}
