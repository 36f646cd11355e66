// Copyright 2025 Roxy Light
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"fmt"

	"github.com/go-json-experiment/json/jsontext"
	"zombiezen.com/go/lua"
)

// pushJSON decodes a single JSON value
// and pushes its Lua equivalent onto the stack.
// Objects and arrays become tables,
// with null object members left absent.
func pushJSON(l *lua.State, data []byte) error {
	dec := jsontext.NewDecoder(bytes.NewReader(data))
	return pushJSONValue(l, dec)
}

func pushJSONValue(l *lua.State, dec *jsontext.Decoder) error {
	if !l.CheckStack(3) {
		return errStackOverflow
	}
	tok, err := dec.ReadToken()
	if err != nil {
		return err
	}
	switch kind := tok.Kind(); kind {
	case 'n':
		l.PushNil()
	case 't':
		l.PushBoolean(true)
	case 'f':
		l.PushBoolean(false)
	case '"':
		l.PushString(tok.String())
	case '0':
		f := tok.Float()
		if i := int64(f); float64(i) == f {
			l.PushInteger(i)
		} else {
			l.PushNumber(f)
		}
	case '{':
		l.CreateTable(0, 0)
		for dec.PeekKind() != '}' {
			keyToken, err := dec.ReadToken()
			if err != nil {
				return err
			}
			key := keyToken.String()
			if err := pushJSONValue(l, dec); err != nil {
				return err
			}
			l.RawSetField(-2, key)
		}
		if _, err := dec.ReadToken(); err != nil {
			return err
		}
	case '[':
		l.CreateTable(0, 0)
		for i := int64(1); dec.PeekKind() != ']'; i++ {
			if err := pushJSONValue(l, dec); err != nil {
				return err
			}
			l.RawSetIndex(-2, i)
		}
		if _, err := dec.ReadToken(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unexpected JSON token %v", kind)
	}
	return nil
}
