// Copyright 2025 Roxy Light
// SPDX-License-Identifier: MIT

package luaclass

import (
	"zombiezen.com/go/lua"
)

// storage selects one of the two physical representations
// of a bound instance inside a userdata.
// The strategy is fixed when the instance is pushed
// and encoded by which of the class's two metatables is attached.
type storage int

const (
	// valueStorage is an owned instance:
	// the Lua garbage collector controls its lifetime
	// and destructible classes may release it early.
	valueStorage storage = iota
	// refStorage is a borrowed pointer to a host-owned instance.
	// The binding never runs finalize logic for references.
	refStorage
)

func (s storage) sibling() storage {
	if s == valueStorage {
		return refStorage
	}
	return valueStorage
}

func (c *Class[T]) token(s storage) string {
	if s == valueStorage {
		return c.valueToken
	}
	return c.refToken
}

// valueBox owns an instance pushed with [Class.PushValue].
// v becomes nil once the instance has been released,
// either by the close method or by the __gc/__close hooks;
// a nil v is the closed state.
type valueBox[T any] struct {
	class *Class[T]
	v     *T
}

// refBox borrows an instance pushed with [Class.Push].
type refBox[T any] struct {
	class *Class[T]
	p     *T
}

// PushValue pushes a new owned instance holding a copy of v
// and returns a pointer to the runtime-owned copy.
// The pointer stays valid until the instance
// is collected or explicitly closed.
func (c *Class[T]) PushValue(l *lua.State, v T) (*T, error) {
	p := new(T)
	*p = v
	if err := c.pushBox(l, &valueBox[T]{class: c, v: p}, valueStorage); err != nil {
		return nil, err
	}
	return p, nil
}

// Push pushes a borrowed reference to p.
// The caller remains responsible for p's lifetime:
// the binding never destroys a referenced instance.
// A nil p pushes nil.
func (c *Class[T]) Push(l *lua.State, p *T) error {
	if p == nil {
		l.PushNil()
		return nil
	}
	return c.pushBox(l, &refBox[T]{class: c, p: p}, refStorage)
}

func (c *Class[T]) pushBox(l *lua.State, box any, s storage) error {
	if !l.CheckStack(4) {
		return errStackOverflow
	}
	l.NewUserdataUV(1)
	l.PushGoValue(box)
	l.SetUserValue(-2, 1)
	if err := c.pushMetatable(l, s); err != nil {
		l.Pop(1)
		return err
	}
	l.SetMetatable(-2)
	return nil
}

// boxAt returns the box stored in the userdata at idx,
// or nil if the slot does not hold an instance of this class.
// The box is one of *valueBox[T] or *refBox[T].
func (c *Class[T]) boxAt(l *lua.State, idx int) any {
	if !l.IsUserdata(idx) || !l.CheckStack(1) {
		return nil
	}
	l.UserValue(idx, 1)
	v := l.ToGoValue(-1)
	l.Pop(1)
	switch box := v.(type) {
	case *valueBox[T]:
		if box.class == c {
			return box
		}
	case *refBox[T]:
		if box.class == c {
			return box
		}
	}
	return nil
}

// receiver resolves the instance a method or property accessor operates on.
// A closed owned instance is a [*ClosedError];
// anything that is not an instance of this class is a [*TypeError].
func (c *Class[T]) receiver(l *lua.State, idx int) (*T, error) {
	switch box := c.boxAt(l, idx).(type) {
	case *valueBox[T]:
		if box.v == nil {
			return nil, &ClosedError{TypeName: c.name, position: where(l, 1)}
		}
		return box.v, nil
	case *refBox[T]:
		return box.p, nil
	default:
		return nil, newTypeError(l, idx, c.name)
	}
}

// methodFunction wraps a [Method] as a [lua.Function]
// that resolves its receiver from the first argument.
func (c *Class[T]) methodFunction(m Method[T]) lua.Function {
	return func(l *lua.State) (int, error) {
		recv, err := c.receiver(l, 1)
		if err != nil {
			return 0, err
		}
		return m(l, recv)
	}
}

// closeFunction implements the script-visible close method
// injected on destructible classes.
// Closing an already-closed instance is an error;
// guard with closed() if double-close is a possibility.
func (c *Class[T]) closeFunction(l *lua.State) (int, error) {
	box, ok := c.boxAt(l, 1).(*valueBox[T])
	if !ok {
		return 0, newTypeError(l, 1, c.name)
	}
	if box.v == nil {
		return 0, &ClosedError{TypeName: c.name, position: where(l, 1)}
	}
	v := box.v
	box.v = nil
	if err := c.close(v); err != nil {
		return 0, err
	}
	return 0, nil
}

// closedFunction implements the script-visible closed method.
// References always report false: they cannot be closed.
func (c *Class[T]) closedFunction(l *lua.State) (int, error) {
	switch box := c.boxAt(l, 1).(type) {
	case *valueBox[T]:
		l.PushBoolean(box.v == nil)
	case *refBox[T]:
		l.PushBoolean(false)
	default:
		return 0, newTypeError(l, 1, c.name)
	}
	return 1, nil
}

// finalize implements the __gc and __close hooks on the value metatable.
// It releases the instance if it is still present and is otherwise a no-op,
// so collection after an explicit close is safe.
func (c *Class[T]) finalize(l *lua.State) (int, error) {
	box, ok := c.boxAt(l, 1).(*valueBox[T])
	if !ok || box.v == nil {
		return 0, nil
	}
	v := box.v
	box.v = nil
	if err := c.close(v); err != nil {
		return 0, err
	}
	return 0, nil
}
