// Copyright 2025 Roxy Light
// SPDX-License-Identifier: MIT

/*
Package luaclass binds Go types into Lua as userdata classes
on top of [zombiezen.com/go/lua].

A [Class] describes how instances of a single Go type appear to Lua:
its display name, its methods and metamethods,
its named properties (getter/setter pairs),
and whether it may be constructed from a plain Lua table.
Instances are stored in one of two ways:
an owned value pushed with [Class.PushValue],
which the Lua garbage collector is responsible for
and which may be released early through a script-visible close method,
or a borrowed reference pushed with [Class.Push],
whose lifetime remains entirely the caller's problem.
Scripts cannot observe which storage strategy an instance uses:
the two metatables for a class share their
__index and __newindex resolvers by reference,
and only construction and closing behavior differ.

Values move between Go and the Lua stack through the [Converter] protocol,
which this package also implements for the primitive Lua types.

All functions in this package follow the Lua C API's threading rules:
a [lua.State] and every class bound into it
must only be used from one goroutine at a time.
*/
package luaclass

import (
	"fmt"

	"github.com/google/uuid"
	"zombiezen.com/go/lua"
)

// A Method is a Go function callable from Lua as a method on a bound instance.
// The receiver has already been resolved from the first stack slot;
// remaining arguments start at stack index 2.
// Like a [lua.Function], it returns the number of results
// it has pushed onto the stack.
type Method[T any] func(l *lua.State, recv *T) (int, error)

// A Property is a named field of a class
// accessed through the class's index and new-index resolvers.
// Either accessor may be nil:
// a property without Get is invisible to reads
// and a property without Set rejects assignment with a [*ReadOnlyError].
type Property[T any] struct {
	Name string

	// Get pushes the property's current value onto the stack.
	Get func(l *lua.State, recv *T) error
	// Set reads the property's new value from the stack at idx.
	Set func(l *lua.State, recv *T, idx int) error
}

// Options holds the descriptor a [Class] is built from.
// The zero value is a class with no methods and no properties.
type Options[T any] struct {
	// Methods holds the class's named methods.
	Methods map[string]Method[T]
	// Metamethods holds raw metamethods copied into the class's metatables.
	// "__index" and "__newindex" entries are not copied verbatim:
	// they become the final fallback of the class's resolution chain,
	// consulted after properties and methods.
	Metamethods map[string]lua.Function
	// Properties holds the class's named properties.
	// Order is preserved; the first property with a matching name wins.
	Properties []Property[T]
	// AllowTable permits conversion from a plain Lua table:
	// a new owned instance is constructed with New (or the zero value)
	// and each key/value pair of the table
	// is assigned through the class's new-index chain.
	AllowTable bool
	// New constructs the instance used for table conversion.
	// If nil, the zero value of T is used.
	New func() (T, error)
	// Close releases an owned instance.
	// Setting it marks the class destructible:
	// close and closed methods are injected into the method table,
	// and __gc and __close hooks are installed on the value metatable.
	Close func(*T) error
}

// A Class is the immutable descriptor of a Go type bound into Lua.
// Build one with [New] at registration time and share it freely afterward;
// a Class is never mutated once built
// (except for [Substitute], which must also happen during registration).
//
// Class implements [Converter] for *T,
// with [Class.Push] storing a borrowed reference.
type Class[T any] struct {
	name        string
	methods     map[string]Method[T]
	metamethods map[string]lua.Function
	properties  []Property[T]
	subclasses  []substitution[T]
	allowTable  bool
	construct   func() (T, error)
	close       func(*T) error

	// Registry keys for the two metatables.
	// The UUID keeps tokens process-unique
	// even when two classes share a display name.
	valueToken string
	refToken   string
}

// A substitution converts a stack slot
// holding an instance of some other class
// into a reference to this class's type.
type substitution[T any] func(l *lua.State, idx int) (*T, bool, error)

// New builds the descriptor for a Go type bound into Lua.
// name is the display name used in error messages and __name;
// it need not be unique.
// opts may be nil.
func New[T any](name string, opts *Options[T]) *Class[T] {
	if name == "" {
		panic("luaclass.New: empty class name")
	}
	if opts == nil {
		opts = new(Options[T])
	}
	id := uuid.NewString()
	c := &Class[T]{
		name:       name,
		allowTable: opts.AllowTable,
		construct:  opts.New,
		close:      opts.Close,
		valueToken: fmt.Sprintf("zombiezen.com/go/luaclass %s value %s", name, id),
		refToken:   fmt.Sprintf("zombiezen.com/go/luaclass %s ref %s", name, id),
	}
	if len(opts.Methods) > 0 {
		c.methods = make(map[string]Method[T], len(opts.Methods))
		for k, m := range opts.Methods {
			c.methods[k] = m
		}
	}
	if len(opts.Metamethods) > 0 {
		c.metamethods = make(map[string]lua.Function, len(opts.Metamethods))
		for k, f := range opts.Metamethods {
			c.metamethods[k] = f
		}
	}
	c.properties = append([]Property[T](nil), opts.Properties...)
	return c
}

// Substitute permits instances of sub to be used
// wherever the class c is expected,
// using upcast to translate references.
// Substitutions are tried in registration order
// after c's own storage lookups fail,
// and the first one that matches wins;
// a slot convertible to several substituted classes
// always resolves to the earliest registration.
func Substitute[T, S any](c *Class[T], sub *Class[S], upcast func(*S) *T) {
	if sub == nil || upcast == nil {
		panic("luaclass.Substitute: nil subclass or upcast")
	}
	c.subclasses = append(c.subclasses, func(l *lua.State, idx int) (*T, bool, error) {
		p, ok, err := sub.At(l, idx)
		if err != nil || !ok {
			return nil, ok, err
		}
		return upcast(p), true, nil
	})
}

// Name returns the class's display name.
func (c *Class[T]) Name() string { return c.name }

// property returns the first property with the given name, or nil.
func (c *Class[T]) property(name string) *Property[T] {
	for i := range c.properties {
		if c.properties[i].Name == name {
			return &c.properties[i]
		}
	}
	return nil
}
