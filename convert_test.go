// Copyright 2025 Roxy Light
// SPDX-License-Identifier: MIT

package luaclass

import (
	"errors"
	"testing"

	"zombiezen.com/go/lua"
)

func TestPrimitiveConverters(t *testing.T) {
	state := new(lua.State)
	defer func() {
		if err := state.Close(); err != nil {
			t.Error("Close:", err)
		}
	}()

	t.Run("Integer", func(t *testing.T) {
		defer state.SetTop(0)
		state.PushInteger(42)
		state.PushNumber(1.5)

		if !Integer.IsExact(state, 1) {
			t.Error("IsExact(42) = false; want true")
		}
		if Integer.IsExact(state, 2) {
			t.Error("IsExact(1.5) = true; want false")
		}
		got, err := Integer.Check(state, 1)
		if got != 42 || err != nil {
			t.Errorf("Check(1) = %d, %v; want 42, <nil>", got, err)
		}
		if _, err := Integer.Check(state, 2); err == nil {
			t.Error("Check(1.5) succeeded; want TypeError")
		}
	})

	t.Run("Number", func(t *testing.T) {
		defer state.SetTop(0)
		state.PushNumber(1.5)
		state.PushString("2.5")

		if !Number.IsExact(state, 1) {
			t.Error("IsExact(1.5) = false; want true")
		}
		// Strings coerce but are not exact.
		if Number.IsExact(state, 2) {
			t.Error("IsExact(\"2.5\") = true; want false")
		}
		if !Number.IsValid(state, 2) {
			t.Error("IsValid(\"2.5\") = false; want true")
		}
		got, ok, err := Number.At(state, 2)
		if got != 2.5 || !ok || err != nil {
			t.Errorf("At(2) = %v, %t, %v; want 2.5, true, <nil>", got, ok, err)
		}
	})

	t.Run("String", func(t *testing.T) {
		defer state.SetTop(0)
		state.PushNumber(7)

		got, ok, err := String.At(state, 1)
		if got != "7" || !ok || err != nil {
			t.Errorf("At(1) = %q, %t, %v; want \"7\", true, <nil>", got, ok, err)
		}
		// Coercion must not mutate the slot.
		if tp := state.Type(1); tp != lua.TypeNumber {
			t.Errorf("slot type after At = %v; want number", tp)
		}

		state.PushBoolean(true)
		_, err = String.Check(state, 2)
		var typeErr *TypeError
		if !errors.As(err, &typeErr) {
			t.Errorf("Check(true) = %v; want TypeError", err)
		}
	})

	t.Run("Bool", func(t *testing.T) {
		defer state.SetTop(0)
		state.PushBoolean(false)
		state.PushNil()
		state.PushInteger(0)

		if !Bool.IsExact(state, 1) {
			t.Error("IsExact(false) = false; want true")
		}
		if Bool.IsExact(state, 3) {
			t.Error("IsExact(0) = true; want false")
		}
		// Everything has a truth value: nil is falsy, 0 is truthy.
		for i, want := range map[int]bool{1: false, 2: false, 3: true} {
			got, ok, err := Bool.At(state, i)
			if got != want || !ok || err != nil {
				t.Errorf("At(%d) = %t, %t, %v; want %t, true, <nil>", i, got, ok, err, want)
			}
		}
	})
}
