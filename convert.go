// Copyright 2025 Roxy Light
// SPDX-License-Identifier: MIT

package luaclass

import (
	"zombiezen.com/go/lua"
)

// CountVariable is the sentinel returned by
// [Converter.CheckCount] or [Converter.PushCount]
// when the number of stack slots depends on the value.
const CountVariable = -1

// A Converter moves values of a single Go type across the Lua stack.
//
// IsExact, IsValid, and At never raise a Lua error for a type mismatch;
// they report failure through their return values.
// At returns an error only when the slot holds
// an instance that was explicitly closed (see [ClosedError]):
// a closed instance is an error to touch, never silently "not found".
// Check converts like At
// but reports a mismatch as a [*TypeError]
// carrying the argument index and the expected type name.
type Converter[T any] interface {
	// CheckName returns the type name used in argument error messages.
	CheckName() string
	// PushName returns the type name of pushed values.
	PushName() string

	// CanCheck reports whether the converter can read values off the stack.
	CanCheck() bool
	// CanPush reports whether the converter can write values onto the stack.
	CanPush() bool

	// CheckCount returns the number of stack slots a conversion consumes,
	// or [CountVariable] if it depends on the value.
	CheckCount() int
	// PushCount returns the number of stack slots Push produces,
	// or [CountVariable] if it depends on the value.
	PushCount() int

	// IsExact reports whether the slot's dynamic type
	// equals the converter's type with no coercion.
	IsExact(l *lua.State, idx int) bool
	// IsValid reports whether the slot is convertible, coercion allowed.
	IsValid(l *lua.State, idx int) bool

	// At performs a best-effort conversion of the given stack slot.
	At(l *lua.State, idx int) (T, bool, error)
	// Check converts the function argument at arg,
	// returning a [*TypeError] on failure.
	Check(l *lua.State, arg int) (T, error)
	// Push writes v onto the top of the stack.
	Push(l *lua.State, v T) error
}

// Converters for the primitive Lua types.
var (
	Bool    Converter[bool]    = boolType{}
	Integer Converter[int64]   = integerType{}
	Number  Converter[float64] = numberType{}
	String  Converter[string]  = stringType{}
)

type boolType struct{}

func (boolType) CheckName() string { return lua.TypeBoolean.String() }
func (boolType) PushName() string  { return lua.TypeBoolean.String() }
func (boolType) CanCheck() bool    { return true }
func (boolType) CanPush() bool     { return true }
func (boolType) CheckCount() int   { return 1 }
func (boolType) PushCount() int    { return 1 }

func (boolType) IsExact(l *lua.State, idx int) bool {
	return l.Type(idx) == lua.TypeBoolean
}

// IsValid reports true for any present slot:
// every Lua value has a truth value.
func (boolType) IsValid(l *lua.State, idx int) bool {
	return l.Type(idx) != lua.TypeNone
}

func (boolType) At(l *lua.State, idx int) (bool, bool, error) {
	if l.Type(idx) == lua.TypeNone {
		return false, false, nil
	}
	return l.ToBoolean(idx), true, nil
}

func (b boolType) Check(l *lua.State, arg int) (bool, error) {
	v, ok, err := b.At(l, arg)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, newTypeError(l, arg, b.CheckName())
	}
	return v, nil
}

func (boolType) Push(l *lua.State, v bool) error {
	l.PushBoolean(v)
	return nil
}

type integerType struct{}

func (integerType) CheckName() string { return lua.TypeNumber.String() }
func (integerType) PushName() string  { return lua.TypeNumber.String() }
func (integerType) CanCheck() bool    { return true }
func (integerType) CanPush() bool     { return true }
func (integerType) CheckCount() int   { return 1 }
func (integerType) PushCount() int    { return 1 }

func (integerType) IsExact(l *lua.State, idx int) bool {
	return l.IsInteger(idx)
}

func (integerType) IsValid(l *lua.State, idx int) bool {
	_, ok := l.ToInteger(idx)
	return ok
}

func (integerType) At(l *lua.State, idx int) (int64, bool, error) {
	v, ok := l.ToInteger(idx)
	return v, ok, nil
}

func (i integerType) Check(l *lua.State, arg int) (int64, error) {
	v, ok, err := i.At(l, arg)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, newTypeError(l, arg, i.CheckName())
	}
	return v, nil
}

func (integerType) Push(l *lua.State, v int64) error {
	l.PushInteger(v)
	return nil
}

type numberType struct{}

func (numberType) CheckName() string { return lua.TypeNumber.String() }
func (numberType) PushName() string  { return lua.TypeNumber.String() }
func (numberType) CanCheck() bool    { return true }
func (numberType) CanPush() bool     { return true }
func (numberType) CheckCount() int   { return 1 }
func (numberType) PushCount() int    { return 1 }

func (numberType) IsExact(l *lua.State, idx int) bool {
	return l.Type(idx) == lua.TypeNumber
}

func (numberType) IsValid(l *lua.State, idx int) bool {
	return l.IsNumber(idx)
}

func (numberType) At(l *lua.State, idx int) (float64, bool, error) {
	v, ok := l.ToNumber(idx)
	return v, ok, nil
}

func (n numberType) Check(l *lua.State, arg int) (float64, error) {
	v, ok, err := n.At(l, arg)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, newTypeError(l, arg, n.CheckName())
	}
	return v, nil
}

func (numberType) Push(l *lua.State, v float64) error {
	l.PushNumber(v)
	return nil
}

type stringType struct{}

func (stringType) CheckName() string { return lua.TypeString.String() }
func (stringType) PushName() string  { return lua.TypeString.String() }
func (stringType) CanCheck() bool    { return true }
func (stringType) CanPush() bool     { return true }
func (stringType) CheckCount() int   { return 1 }
func (stringType) PushCount() int    { return 1 }

func (stringType) IsExact(l *lua.State, idx int) bool {
	return l.Type(idx) == lua.TypeString
}

func (stringType) IsValid(l *lua.State, idx int) bool {
	return l.IsString(idx)
}

// At converts on a copy of the slot
// so that number-to-string coercion does not mutate the original.
func (stringType) At(l *lua.State, idx int) (string, bool, error) {
	if !l.IsString(idx) {
		return "", false, nil
	}
	if !l.CheckStack(1) {
		return "", false, errStackOverflow
	}
	l.PushValue(idx)
	s, ok := l.ToString(-1)
	l.Pop(1)
	return s, ok, nil
}

func (st stringType) Check(l *lua.State, arg int) (string, error) {
	v, ok, err := st.At(l, arg)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", newTypeError(l, arg, st.CheckName())
	}
	return v, nil
}

func (stringType) Push(l *lua.State, v string) error {
	l.PushString(v)
	return nil
}
