// Copyright 2025 Roxy Light
// SPDX-License-Identifier: MIT

// luadb runs Lua scripts against SQLite databases.
package main

import (
	"context"
	"os"
	"os/signal"
	"sync"

	"github.com/spf13/cobra"
	"zombiezen.com/go/bass/sigterm"
	"zombiezen.com/go/log"
)

func main() {
	rootCommand := &cobra.Command{
		Use:           "luadb",
		Short:         "run Lua scripts against SQLite databases",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	g := defaultGlobalConfig()
	if err := g.mergeEnvironment(); err != nil {
		initLogging(false)
		log.Errorf(context.Background(), "%v", err)
		os.Exit(1)
	}

	configPath := rootCommand.PersistentFlags().String("config", "", "`path` to configuration file")
	dbFlag := rootCommand.PersistentFlags().String("db", g.Database, "`path` to database scripts see as the db global")
	debugFlag := rootCommand.PersistentFlags().Bool("debug", false, "show debugging output")

	rootCommand.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := g.mergeFiles(configSearchPaths(*configPath)); err != nil {
			return err
		}
		// Flags given on the command line win over configuration files.
		flags := rootCommand.PersistentFlags()
		if flags.Changed("db") {
			g.Database = *dbFlag
		}
		if flags.Changed("debug") {
			g.Debug = *debugFlag
		}
		initLogging(g.Debug)
		return nil
	}

	rootCommand.AddCommand(
		newRunCommand(g),
		newEvalCommand(g),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), sigterm.Signals()...)
	err := rootCommand.ExecuteContext(ctx)
	cancel()
	if err != nil {
		initLogging(g.Debug)
		log.Errorf(context.Background(), "%v", err)
		os.Exit(1)
	}
}

var initLogOnce sync.Once

func initLogging(showDebug bool) {
	initLogOnce.Do(func() {
		minLogLevel := log.Info
		if showDebug {
			minLogLevel = log.Debug
		}
		log.SetDefault(&log.LevelFilter{
			Min:    minLogLevel,
			Output: log.New(os.Stderr, "luadb: ", log.StdFlags, nil),
		})
	})
}
