// Copyright 2025 Roxy Light
// SPDX-License-Identifier: MIT

package main

import (
	"testing"

	"zombiezen.com/go/lua"
)

func TestPushJSON(t *testing.T) {
	state := new(lua.State)
	defer func() {
		if err := state.Close(); err != nil {
			t.Error("Close:", err)
		}
	}()

	const data = `{"name": "alpha", "count": 3, "ratio": 0.5, "ok": true, "tags": ["x", "y"]}`
	if err := pushJSON(state, []byte(data)); err != nil {
		t.Fatal(err)
	}
	if err := state.SetGlobal("args", 0); err != nil {
		t.Fatal(err)
	}

	const script = `return args.name, args.count, args.ratio, args.ok, #args.tags, args.tags[2]`
	if err := state.LoadString(script, "=(test)", "t"); err != nil {
		t.Fatal(err)
	}
	if err := state.Call(0, 6, 0); err != nil {
		t.Fatal(err)
	}

	if got, _ := state.ToString(1); got != "alpha" {
		t.Errorf("args.name = %q; want %q", got, "alpha")
	}
	if !state.IsInteger(2) {
		t.Error("args.count is not an integer")
	}
	if got, _ := state.ToInteger(2); got != 3 {
		t.Errorf("args.count = %d; want 3", got)
	}
	if got, _ := state.ToNumber(3); got != 0.5 {
		t.Errorf("args.ratio = %v; want 0.5", got)
	}
	if !state.ToBoolean(4) {
		t.Error("args.ok = false; want true")
	}
	if got, _ := state.ToInteger(5); got != 2 {
		t.Errorf("#args.tags = %d; want 2", got)
	}
	if got, _ := state.ToString(6); got != "y" {
		t.Errorf("args.tags[2] = %q; want %q", got, "y")
	}
}

func TestPushJSONBad(t *testing.T) {
	state := new(lua.State)
	defer func() {
		if err := state.Close(); err != nil {
			t.Error("Close:", err)
		}
	}()
	if err := pushJSON(state, []byte(`{"x":`)); err == nil {
		t.Error("pushJSON succeeded on malformed input; want error")
	}
}
