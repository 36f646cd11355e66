// Copyright 2025 Roxy Light
// SPDX-License-Identifier: MIT

//go:build unix

package main

import "go4.org/xdgdir"

func configDir() string {
	return xdgdir.Config.Path()
}
