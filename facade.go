// Copyright 2025 Roxy Light
// SPDX-License-Identifier: MIT

package luaclass

import (
	"zombiezen.com/go/lua"
)

// CheckName returns the class's display name.
func (c *Class[T]) CheckName() string { return c.name }

// PushName returns the class's display name.
func (c *Class[T]) PushName() string { return c.name }

// CanCheck reports true: classes can always be read off the stack.
func (c *Class[T]) CanCheck() bool { return true }

// CanPush reports true: classes can always be pushed.
func (c *Class[T]) CanPush() bool { return true }

// CheckCount returns 1: an instance occupies a single stack slot.
func (c *Class[T]) CheckCount() int { return 1 }

// PushCount returns 1.
func (c *Class[T]) PushCount() int { return 1 }

// IsExact reports whether the slot holds an instance of exactly this class,
// under either storage strategy.
// Identity is decided by registry-token equality of the attached metatable,
// never by display-name comparison.
func (c *Class[T]) IsExact(l *lua.State, idx int) bool {
	if !l.IsUserdata(idx) || !l.CheckStack(3) {
		return false
	}
	if !l.Metatable(idx) {
		return false
	}
	lua.Metatable(l, c.valueToken)
	if l.RawEqual(-1, -2) {
		l.Pop(2)
		return true
	}
	l.Pop(1)
	lua.Metatable(l, c.refToken)
	eq := l.RawEqual(-1, -2)
	l.Pop(2)
	return eq
}

// IsValid reports whether the slot is convertible to this class:
// an exact instance, or a plain table when table conversion is enabled.
// Substitutions are deliberately not consulted here;
// they participate only in [Class.At].
func (c *Class[T]) IsValid(l *lua.State, idx int) bool {
	return c.IsExact(l, idx) || (c.allowTable && l.Type(idx) == lua.TypeTable)
}

// At resolves the slot to a reference to this class's type.
//
// Resolution tries the class's own storage first
// (an explicitly closed owned instance is a [*ClosedError]),
// then each substitution registered with [Substitute] in declaration order,
// then table conversion when enabled.
// The first match wins;
// declaration order is the tie-break
// when a slot is convertible to more than one substituted class.
//
// Table conversion constructs a new owned instance,
// assigns every key/value pair of the table
// through the class's new-index chain
// (so property setters and raw __newindex fallbacks
// apply identically to literal tables and later mutation),
// and replaces the stack slot with the new instance.
func (c *Class[T]) At(l *lua.State, idx int) (*T, bool, error) {
	switch box := c.boxAt(l, idx).(type) {
	case *valueBox[T]:
		if box.v == nil {
			return nil, false, &ClosedError{TypeName: c.name, position: where(l, 1)}
		}
		return box.v, true, nil
	case *refBox[T]:
		return box.p, true, nil
	}
	for _, sub := range c.subclasses {
		if p, ok, err := sub(l, idx); ok || err != nil {
			return p, ok, err
		}
	}
	if c.allowTable && l.Type(idx) == lua.TypeTable {
		return c.fromTable(l, idx)
	}
	return nil, false, nil
}

// Check resolves the argument at arg like [Class.At],
// returning a [*TypeError] when the slot is not convertible.
func (c *Class[T]) Check(l *lua.State, arg int) (*T, error) {
	p, ok, err := c.At(l, arg)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newTypeError(l, arg, c.name)
	}
	return p, nil
}

// fromTable converts the plain table at idx into a new owned instance.
func (c *Class[T]) fromTable(l *lua.State, idx int) (*T, bool, error) {
	if !l.CheckStack(5) {
		return nil, false, errStackOverflow
	}
	idx = l.AbsIndex(idx)
	top := l.Top()

	var v T
	if c.construct != nil {
		var err error
		v, err = c.construct()
		if err != nil {
			return nil, false, err
		}
	}
	p, err := c.PushValue(l, v)
	if err != nil {
		return nil, false, err
	}
	ud := l.Top()

	l.PushNil()
	for l.Next(idx) {
		l.PushValue(-2)
		l.PushValue(-2)
		if err := l.SetTable(ud, 0); err != nil {
			l.SetTop(top)
			return nil, false, err
		}
		// Pop the value, keeping the key for the next iteration.
		l.Pop(1)
	}

	l.Replace(idx)
	return p, true, nil
}
