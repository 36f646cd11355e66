// Copyright 2025 Roxy Light
// SPDX-License-Identifier: MIT

package luaclass

import (
	"errors"
	"fmt"

	"zombiezen.com/go/lua"
)

var errStackOverflow = errors.New("stack overflow")

// A TypeError reports that a stack slot could not be converted
// to the type a function argument expects.
// It is returned by the Check methods of this package's converters
// and unwinds through Lua's native error mechanism
// when returned from a [lua.Function].
type TypeError struct {
	// Arg is the 1-based argument index.
	Arg int
	// Expected is the name of the expected type.
	Expected string
	// Actual is the name of the type actually found.
	Actual string

	position string
}

func newTypeError(l *lua.State, arg int, expected string) *TypeError {
	return &TypeError{
		Arg:      arg,
		Expected: expected,
		Actual:   typeName(l, arg),
		position: where(l, 1),
	}
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("%sbad argument #%d (%s expected, got %s)", e.position, e.Arg, e.Expected, e.Actual)
}

// A ClosedError reports use of an owned instance
// that has already been released through its close method.
type ClosedError struct {
	// TypeName is the display name of the instance's class.
	TypeName string

	position string
}

func (e *ClosedError) Error() string {
	return fmt.Sprintf("%sattempt to use a closed %s", e.position, e.TypeName)
}

// A ReadOnlyError reports an assignment
// to a property that has a getter but no setter.
type ReadOnlyError struct {
	TypeName string
	Property string

	position string
}

func (e *ReadOnlyError) Error() string {
	return fmt.Sprintf("%scannot assign to read-only property '%s' of %s", e.position, e.Property, e.TypeName)
}

// A NotIndexableError reports an assignment to a key
// that names neither a property nor a raw new-index fallback.
// Method names fall in this category: methods are never assignable.
type NotIndexableError struct {
	TypeName string
	Key      string

	position string
}

func (e *NotIndexableError) Error() string {
	return fmt.Sprintf("%scannot assign to field '%s' of %s", e.position, e.Key, e.TypeName)
}

// where returns a "chunkname:line: " prefix
// for the function at the given call stack level,
// or the empty string if there is no position information.
func where(l *lua.State, level int) string {
	ar := l.Stack(level)
	if ar == nil {
		return ""
	}
	d := ar.Info("Sl")
	if d == nil || d.CurrentLine <= 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d: ", d.ShortSource, d.CurrentLine)
}

// typeName returns the name of the value at the given index
// for use in error messages,
// preferring the __name metafield when one is present.
func typeName(l *lua.State, idx int) string {
	if !l.CheckStack(2) || !l.Metatable(idx) {
		return l.Type(idx).String()
	}
	name := ""
	if tp := l.RawField(-1, "__name"); tp == lua.TypeString {
		name, _ = l.ToString(-1)
	}
	l.Pop(2)
	if name == "" {
		return l.Type(idx).String()
	}
	return name
}

// describeKey renders the key at the given index for a [NotIndexableError].
func describeKey(l *lua.State, idx int) string {
	switch l.Type(idx) {
	case lua.TypeString:
		s, _ := l.ToString(idx)
		return s
	case lua.TypeNumber:
		if l.IsInteger(idx) {
			n, _ := l.ToInteger(idx)
			return fmt.Sprintf("%d", n)
		}
		n, _ := l.ToNumber(idx)
		return fmt.Sprintf("%g", n)
	default:
		return "(" + l.Type(idx).String() + ")"
	}
}
