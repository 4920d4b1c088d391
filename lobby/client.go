// Client slots
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

package lobby

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	sedma "go-sedma"
)

// MaxNick bounds the accepted nickname length.
const MaxNick = 31

// client is one session slot.  A slot outlives its connection: when
// the transport drops, conn goes nil, online goes false and the nick,
// session token and room membership stay behind so the player can
// RESUME within the grace window.
type client struct {
	conn sedma.Conn // nil while offline

	nick    string
	session string

	roomID int // public room id, -1 when not in a room
	inGame bool

	online   bool
	lastSeen time.Time

	strikes int
}

func (l *Lobby) client(ci int) *client {
	if ci < 0 || ci >= len(l.clients) {
		return nil
	}
	return l.clients[ci]
}

// logged reports whether the slot holds an established session.
func (c *client) logged() bool {
	return c.nick != "" && c.session != ""
}

// newSession returns a fresh 128-bit session token in hex.
func newSession() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// findByNick returns the slot index owning a nickname, or -1.
func (l *Lobby) findByNick(nick string) int {
	for i, c := range l.clients {
		if c != nil && c.nick != "" && c.nick == nick {
			return i
		}
	}
	return -1
}
