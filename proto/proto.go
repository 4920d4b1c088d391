// Protocol handling
//
// Copyright (c) 2025
//
// This file is part of go-sedma.
//
// go-sedma is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License,
// version 3, as published by the Free Software Foundation.
//
// go-sedma is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the GNU
// Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public
// License, version 3, along with go-sedma. If not, see
// <http://www.gnu.org/licenses/>

// Package proto implements the line-oriented wire protocol: the
// message codec and the TCP transport that feeds parsed lines into a
// coordinator.
package proto

import (
	"errors"
	"strings"
)

// Message type tokens.
type Type uint8

const (
	Req Type = iota
	Resp
	Evt
	Err
)

func (t Type) String() string {
	switch t {
	case Req:
		return "REQ"
	case Resp:
		return "RESP"
	case Evt:
		return "EVT"
	case Err:
		return "ERR"
	}
	return "?"
}

// Codec caps.  Oversized values are truncated, oversized or empty keys
// dropped; these are protocol limits, not parse failures.
const (
	MaxCmd   = 31
	MaxKey   = 31
	MaxVal   = 127
	MaxPairs = 32
)

// ErrBad is returned when a line has no recognizable type or command.
var ErrBad = errors.New("malformed message")

// Pair is one key=value token.
type Pair struct {
	Key string
	Val string
}

// Msg is one parsed protocol line.
type Msg struct {
	Type  Type
	Cmd   string
	Pairs []Pair
}

// Get returns the value of the first pair with the given key.
func (m *Msg) Get(key string) (string, bool) {
	for _, p := range m.Pairs {
		if p.Key == key {
			return p.Val, true
		}
	}
	return "", false
}

// Parse destructs one line into a message.  The line must start with a
// type token and a command; everything after is split on whitespace
// and then on the first '=' of each token.  Tokens without '=' are
// ignored.
func Parse(line string) (Msg, error) {
	var m Msg

	fields := strings.Fields(line)
	if len(fields) < 2 {
		return m, ErrBad
	}

	switch fields[0] {
	case "REQ":
		m.Type = Req
	case "RESP":
		m.Type = Resp
	case "EVT":
		m.Type = Evt
	case "ERR":
		m.Type = Err
	default:
		return m, ErrBad
	}

	m.Cmd = fields[1]
	if len(m.Cmd) > MaxCmd {
		m.Cmd = m.Cmd[:MaxCmd]
	}

	for _, tok := range fields[2:] {
		if len(m.Pairs) >= MaxPairs {
			break
		}
		eq := strings.IndexByte(tok, '=')
		if eq < 0 {
			continue
		}
		key, val := tok[:eq], tok[eq+1:]
		if len(key) == 0 || len(key) > MaxKey {
			continue
		}
		if len(val) > MaxVal {
			val = val[:MaxVal]
		}
		m.Pairs = append(m.Pairs, Pair{Key: key, Val: val})
	}

	return m, nil
}
