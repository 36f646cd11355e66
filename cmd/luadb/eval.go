// Copyright 2025 Roxy Light
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"zombiezen.com/go/lua"
	"zombiezen.com/go/luaclass"
)

func newEvalCommand(g *globalConfig) *cobra.Command {
	c := &cobra.Command{
		Use:                   "eval [options] EXPR",
		Short:                 "evaluate a Lua expression",
		DisableFlagsInUseLine: true,
		Args:                  cobra.ExactArgs(1),
		SilenceErrors:         true,
		SilenceUsage:          true,
	}
	argsJSON := c.Flags().String("args-json", "", "JSON `value` the expression sees as the args global")
	c.RunE = func(cmd *cobra.Command, args []string) error {
		return runEval(cmd.Context(), g, *argsJSON, args[0])
	}
	return c
}

func runEval(ctx context.Context, g *globalConfig, argsJSON string, expr string) error {
	l, cleanup, err := newScriptState(g, argsJSON)
	if err != nil {
		return err
	}
	defer cleanup()

	// Try the expression form first, like the standalone interpreter does,
	// falling back to a statement chunk.
	if err := l.LoadString("return "+expr+";", "=(command line)", "t"); err != nil {
		l.SetTop(0)
		if err := l.LoadString(expr, "=(command line)", "t"); err != nil {
			return err
		}
	}
	if err := l.Call(0, lua.MultipleReturns, 0); err != nil {
		return err
	}

	n := l.Top()
	if n == 0 {
		return nil
	}
	parts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		s, ok, err := luaclass.String.At(l, i)
		if err != nil {
			return err
		}
		if !ok {
			s = l.Type(i).String()
		}
		parts = append(parts, s)
	}
	out := strings.Join(parts, "\t")
	if term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Println(out)
	} else {
		// Keep piped output byte-exact.
		fmt.Print(out)
	}
	return nil
}
