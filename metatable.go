// Copyright 2025 Roxy Light
// SPDX-License-Identifier: MIT

package luaclass

import (
	"zombiezen.com/go/lua"
)

// pushMetatable pushes the metatable for the given storage strategy,
// building it on first use and caching it
// in the registry under the class's token.
// The registry check must come before any construction:
// building a second table for the same token
// would break the resolver-sharing invariant below,
// not merely waste work.
func (c *Class[T]) pushMetatable(l *lua.State, s storage) error {
	if !l.CheckStack(6) {
		return errStackOverflow
	}
	if lua.Metatable(l, c.token(s)) == lua.TypeTable {
		return nil
	}
	l.Pop(1)
	lua.NewMetatable(l, c.token(s))
	mt := l.AbsIndex(-1)

	// NewMetatable stores the registry token as __name;
	// replace it with the display name.
	l.PushString(c.name)
	l.RawSetField(mt, "__name")
	// Hide the metatable from scripts.
	l.PushBoolean(false)
	l.RawSetField(mt, "__metatable")

	// The two metatables of a class share their resolvers by reference,
	// whichever storage strategy is built first donating them.
	// Scripts therefore cannot distinguish an owned value
	// from a borrowed reference through property or method access.
	if lua.Metatable(l, c.token(s.sibling())) == lua.TypeTable {
		l.RawField(-1, "__index")
		l.RawSetField(mt, "__index")
		l.RawField(-1, "__newindex")
		l.RawSetField(mt, "__newindex")
		l.Pop(1)
	} else {
		l.Pop(1)
		c.pushIndexResolver(l)
		l.RawSetField(mt, "__index")
		c.pushNewIndexResolver(l)
		l.RawSetField(mt, "__newindex")
	}

	for name, fn := range c.metamethods {
		if name == "__index" || name == "__newindex" || fn == nil {
			continue
		}
		l.PushClosure(0, fn)
		l.RawSetField(mt, name)
	}

	// Lifecycle hooks belong to owned values only.
	if s == valueStorage && c.close != nil {
		l.PushClosure(0, c.finalize)
		l.RawSetField(mt, "__gc")
		l.PushClosure(0, c.finalize)
		l.RawSetField(mt, "__close")
	}

	return nil
}

// pushIndexResolver pushes the combined __index function.
// The method table and the raw __index fallback
// are captured as upvalues of the closure;
// the property list is captured on the Go side.
func (c *Class[T]) pushIndexResolver(l *lua.State) {
	n := len(c.methods)
	if c.close != nil {
		n += 2
	}
	l.CreateTable(0, n)
	for name, m := range c.methods {
		l.PushClosure(0, c.methodFunction(m))
		l.RawSetField(-2, name)
	}
	if c.close != nil {
		l.PushClosure(0, c.closeFunction)
		l.RawSetField(-2, "close")
		l.PushClosure(0, c.closedFunction)
		l.RawSetField(-2, "closed")
	}

	if fn := c.metamethods["__index"]; fn != nil {
		l.PushClosure(0, fn)
	} else {
		l.PushNil()
	}

	l.PushClosure(2, c.resolveIndex)
}

// resolveIndex implements __index for both storage strategies.
// Resolution order is properties, then methods (including close/closed),
// then the raw fallback; the first hit stops the chain.
// Upvalue 1 is the method table, upvalue 2 the raw fallback function or nil.
func (c *Class[T]) resolveIndex(l *lua.State) (int, error) {
	if !l.CheckStack(4) {
		return 0, errStackOverflow
	}
	if l.Type(2) == lua.TypeString {
		k, _ := l.ToString(2)
		if p := c.property(k); p != nil && p.Get != nil {
			recv, err := c.receiver(l, 1)
			if err != nil {
				return 0, err
			}
			if err := p.Get(l, recv); err != nil {
				return 0, err
			}
			return 1, nil
		}
		if tp := l.RawField(lua.UpvalueIndex(1), k); tp != lua.TypeNil {
			return 1, nil
		}
		l.Pop(1)
	}
	if l.IsNil(lua.UpvalueIndex(2)) {
		l.PushNil()
		return 1, nil
	}
	l.PushValue(lua.UpvalueIndex(2))
	l.PushValue(1)
	l.PushValue(2)
	if err := l.Call(2, 1, 0); err != nil {
		return 0, err
	}
	return 1, nil
}

// pushNewIndexResolver pushes the combined __newindex function.
// It mirrors the index chain with setters in place of getters
// and without the method table: methods are never assignable.
func (c *Class[T]) pushNewIndexResolver(l *lua.State) {
	if fn := c.metamethods["__newindex"]; fn != nil {
		l.PushClosure(0, fn)
	} else {
		l.PushNil()
	}
	l.PushClosure(1, c.resolveNewIndex)
}

// resolveNewIndex implements __newindex for both storage strategies.
// Upvalue 1 is the raw fallback function or nil.
func (c *Class[T]) resolveNewIndex(l *lua.State) (int, error) {
	if !l.CheckStack(5) {
		return 0, errStackOverflow
	}
	if l.Type(2) == lua.TypeString {
		k, _ := l.ToString(2)
		if p := c.property(k); p != nil {
			if p.Set == nil {
				return 0, &ReadOnlyError{TypeName: c.name, Property: k, position: where(l, 1)}
			}
			recv, err := c.receiver(l, 1)
			if err != nil {
				return 0, err
			}
			if err := p.Set(l, recv, 3); err != nil {
				return 0, err
			}
			return 0, nil
		}
	}
	if !l.IsNil(lua.UpvalueIndex(1)) {
		l.PushValue(lua.UpvalueIndex(1))
		l.PushValue(1)
		l.PushValue(2)
		l.PushValue(3)
		if err := l.Call(3, 0, 0); err != nil {
			return 0, err
		}
		return 0, nil
	}
	return 0, &NotIndexableError{TypeName: c.name, Key: describeKey(l, 2), position: where(l, 1)}
}
