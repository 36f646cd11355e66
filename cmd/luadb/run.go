// Copyright 2025 Roxy Light
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"zombiezen.com/go/log"
	"zombiezen.com/go/lua"
	"zombiezen.com/go/luaclass/luasqlite"
	"zombiezen.com/go/sqlite"
)

var errStackOverflow = errors.New("stack overflow")

type runOptions struct {
	jobs     int
	argsJSON string
	scripts  []string
}

func newRunCommand(g *globalConfig) *cobra.Command {
	c := &cobra.Command{
		Use:                   "run [options] SCRIPT [...]",
		Short:                 "run one or more Lua scripts",
		DisableFlagsInUseLine: true,
		Args:                  cobra.MinimumNArgs(1),
		SilenceErrors:         true,
		SilenceUsage:          true,
	}
	opts := new(runOptions)
	c.Flags().IntVar(&opts.jobs, "jobs", runtime.NumCPU(), "number of scripts to run simultaneously")
	c.Flags().StringVar(&opts.argsJSON, "args-json", "", "JSON `value` scripts see as the args global")
	c.RunE = func(cmd *cobra.Command, args []string) error {
		opts.scripts = args
		return runRun(cmd.Context(), g, opts)
	}
	return c
}

func runRun(ctx context.Context, g *globalConfig, opts *runOptions) error {
	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(max(opts.jobs, 1))
	for _, script := range opts.scripts {
		grp.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			log.Debugf(ctx, "running %s", script)
			if err := runScript(g, opts.argsJSON, script); err != nil {
				return fmt.Errorf("run %s: %w", script, err)
			}
			return nil
		})
	}
	return grp.Wait()
}

func runScript(g *globalConfig, argsJSON string, path string) error {
	l, cleanup, err := newScriptState(g, argsJSON)
	if err != nil {
		return err
	}
	defer cleanup()

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	err = l.Load(f, "@"+path, "t")
	f.Close()
	if err != nil {
		return err
	}
	return l.Call(0, 0, 0)
}

// newScriptState builds a fresh interpreter
// with the standard libraries, the sqlite library,
// the args global (when argsJSON is non-empty),
// and the db global (when a database is configured).
// cleanup closes the interpreter and any host-owned connection.
func newScriptState(g *globalConfig, argsJSON string) (_ *lua.State, cleanup func(), err error) {
	l := new(lua.State)
	var conn *sqlite.Conn
	cleanup = func() {
		l.Close()
		if conn != nil {
			conn.Close()
		}
	}
	defer func() {
		if err != nil {
			cleanup()
		}
	}()

	if err := openStandardLibraries(l); err != nil {
		return nil, nil, err
	}
	if err := luasqlite.PushLibrary(l); err != nil {
		return nil, nil, err
	}
	if err := l.SetGlobal("sqlite", 0); err != nil {
		return nil, nil, err
	}
	if argsJSON != "" {
		if err := pushJSON(l, []byte(argsJSON)); err != nil {
			return nil, nil, fmt.Errorf("parse --args-json: %v", err)
		}
		if err := l.SetGlobal("args", 0); err != nil {
			return nil, nil, err
		}
	}
	if g.Database != "" {
		conn, err = sqlite.OpenConn(g.Database)
		if err != nil {
			return nil, nil, err
		}
		if err := luasqlite.Push(l, conn); err != nil {
			return nil, nil, err
		}
		if err := l.SetGlobal("db", 0); err != nil {
			return nil, nil, err
		}
	}
	return l, cleanup, nil
}

// openStandardLibraries loads the base, table, string, math,
// and utf8 libraries into their usual globals.
func openStandardLibraries(l *lua.State) error {
	if !l.CheckStack(2) {
		return errStackOverflow
	}
	lua.PushOpenBase(l)
	l.PushString("_G")
	if err := l.Call(1, 1, 0); err != nil {
		return err
	}
	l.Pop(1)

	libs := []struct {
		name string
		push func(*lua.State)
	}{
		{"table", lua.PushOpenTable},
		{"string", lua.PushOpenString},
		{"math", lua.PushOpenMath},
		{"utf8", lua.PushOpenUTF8},
	}
	for _, lib := range libs {
		lib.push(l)
		l.PushString(lib.name)
		if err := l.Call(1, 1, 0); err != nil {
			return err
		}
		if err := l.SetGlobal(lib.name, 0); err != nil {
			return err
		}
	}
	return nil
}
