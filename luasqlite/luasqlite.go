// Copyright 2025 Roxy Light
// SPDX-License-Identifier: MIT

// Package luasqlite exposes SQLite database connections to Lua scripts.
//
// The library table pushed by [PushLibrary] has a single open function
// returning a connection object with exec, query, and execScript methods.
// Connections opened from Lua own their handle:
// they respond to close and the to-be-closed variable attribute,
// and the garbage collector closes whatever scripts leak.
// Connections pushed with [Push] are borrowed from the host
// and never closed by the runtime.
package luasqlite

import (
	"errors"
	"fmt"

	"zombiezen.com/go/lua"
	"zombiezen.com/go/luaclass"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

var errStackOverflow = errors.New("stack overflow")

// Conn wraps a SQLite connection for use as a bound class instance.
type Conn struct {
	conn *sqlite.Conn
}

var connClass = newConnClass()

func newConnClass() *luaclass.Class[Conn] {
	return luaclass.New("sqlite connection", &luaclass.Options[Conn]{
		Methods: map[string]luaclass.Method[Conn]{
			"exec":       execMethod,
			"query":      queryMethod,
			"execScript": execScriptMethod,
		},
		Properties: []luaclass.Property[Conn]{
			{
				Name: "lastInsertRowID",
				Get: func(l *lua.State, c *Conn) error {
					l.PushInteger(c.conn.LastInsertRowID())
					return nil
				},
			},
			{
				Name: "changes",
				Get: func(l *lua.State, c *Conn) error {
					l.PushInteger(int64(c.conn.Changes()))
					return nil
				},
			},
			{
				Name: "autocommit",
				Get: func(l *lua.State, c *Conn) error {
					l.PushBoolean(c.conn.AutocommitEnabled())
					return nil
				},
			},
		},
		Close: func(c *Conn) error {
			return c.conn.Close()
		},
	})
}

// PushLibrary pushes the sqlite library table onto the stack.
// The caller typically assigns it to a global or a module slot.
func PushLibrary(l *lua.State) error {
	if !l.CheckStack(2) {
		return errStackOverflow
	}
	l.CreateTable(0, 1)
	l.PushClosure(0, openFunction)
	l.RawSetField(-2, "open")
	return nil
}

// Push pushes a borrowed reference to conn.
// The host remains responsible for closing conn;
// scripts see closed() report false and cannot close it.
func Push(l *lua.State, conn *sqlite.Conn) error {
	return connClass.Push(l, &Conn{conn: conn})
}

func openFunction(l *lua.State) (int, error) {
	path, err := luaclass.String.Check(l, 1)
	if err != nil {
		return 0, err
	}
	conn, err := sqlite.OpenConn(path)
	if err != nil {
		return 0, err
	}
	if _, err := connClass.PushValue(l, Conn{conn: conn}); err != nil {
		conn.Close()
		return 0, err
	}
	return 1, nil
}

func execMethod(l *lua.State, c *Conn) (int, error) {
	query, err := luaclass.String.Check(l, 2)
	if err != nil {
		return 0, err
	}
	args, err := execArgs(l, 3)
	if err != nil {
		return 0, err
	}
	err = sqlitex.Execute(c.conn, query, &sqlitex.ExecOptions{
		Args: args,
	})
	if err != nil {
		return 0, err
	}
	l.PushInteger(int64(c.conn.Changes()))
	return 1, nil
}

// queryMethod returns an array of row tables keyed by column name.
// NULL columns are left absent from their row.
func queryMethod(l *lua.State, c *Conn) (int, error) {
	query, err := luaclass.String.Check(l, 2)
	if err != nil {
		return 0, err
	}
	args, err := execArgs(l, 3)
	if err != nil {
		return 0, err
	}
	if !l.CheckStack(4) {
		return 0, errStackOverflow
	}
	l.CreateTable(0, 0)
	n := 0
	err = sqlitex.Execute(c.conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			l.CreateTable(0, stmt.ColumnCount())
			for col := 0; col < stmt.ColumnCount(); col++ {
				switch stmt.ColumnType(col) {
				case sqlite.TypeInteger:
					l.PushInteger(stmt.ColumnInt64(col))
				case sqlite.TypeFloat:
					l.PushNumber(stmt.ColumnFloat(col))
				case sqlite.TypeText:
					l.PushString(stmt.ColumnText(col))
				case sqlite.TypeBlob:
					buf := make([]byte, stmt.ColumnLen(col))
					stmt.ColumnBytes(col, buf)
					l.PushString(string(buf))
				default:
					continue
				}
				l.RawSetField(-2, stmt.ColumnName(col))
			}
			n++
			l.RawSetIndex(-2, int64(n))
			return nil
		},
	})
	if err != nil {
		l.Pop(1)
		return 0, err
	}
	return 1, nil
}

// execScriptMethod runs a multi-statement SQL script inside a savepoint.
func execScriptMethod(l *lua.State, c *Conn) (int, error) {
	script, err := luaclass.String.Check(l, 2)
	if err != nil {
		return 0, err
	}
	if err := sqlitex.ExecuteScript(c.conn, script, nil); err != nil {
		return 0, err
	}
	return 0, nil
}

// execArgs reads an optional positional-parameter table from the stack.
func execArgs(l *lua.State, idx int) ([]any, error) {
	if l.IsNoneOrNil(idx) {
		return nil, nil
	}
	if !l.IsTable(idx) {
		return nil, &luaclass.TypeError{
			Arg:      idx,
			Expected: lua.TypeTable.String(),
			Actual:   l.Type(idx).String(),
		}
	}
	if !l.CheckStack(2) {
		return nil, errStackOverflow
	}
	n := int(l.RawLen(idx))
	args := make([]any, 0, n)
	for i := 1; i <= n; i++ {
		l.RawIndex(idx, int64(i))
		switch l.Type(-1) {
		case lua.TypeNil:
			args = append(args, nil)
		case lua.TypeBoolean:
			args = append(args, l.ToBoolean(-1))
		case lua.TypeNumber:
			if l.IsInteger(-1) {
				v, _ := l.ToInteger(-1)
				args = append(args, v)
			} else {
				v, _ := l.ToNumber(-1)
				args = append(args, v)
			}
		case lua.TypeString:
			v, _ := l.ToString(-1)
			args = append(args, v)
		default:
			tp := l.Type(-1)
			l.Pop(1)
			return nil, fmt.Errorf("bad argument #%d (unsupported parameter type %v)", idx, tp)
		}
		l.Pop(1)
	}
	return args, nil
}
