// Configuration specification
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

package conf

import (
	"fmt"
	"io"
	"sync"

	"github.com/decred/slog"
)

// Hard limits on the runtime table sizes.  Configuration values above
// these are clamped, not rejected.
const (
	MaxClientsCap = 128
	MaxRoomsCap   = 64
)

// Conf is the fully-validated configuration record the server runs
// on.  The zero value is not usable; start from Default.
type Conf struct {
	IP         string // listen address
	Port       int    // TCP port for the line protocol
	MaxClients int    // client slot table size
	MaxRooms   int    // room table size
	HTTPPort   int    // debug HTTP port (metrics, websocket); 0 disables
	Debug      bool   // verbose logging

	// Per-subsystem loggers, all backed by the same writer.
	Log   slog.Logger // MAIN
	Proto slog.Logger // PROT
	Lobby slog.Logger // LOBY
	Web   slog.Logger // WEB

	// Internal state
	man      []Manager
	run      bool
	shutdown chan struct{}
	stopOnce sync.Once
}

// Default returns the built-in configuration.  Loggers are discarding
// until InitLogging is called.
func Default() *Conf {
	c := &Conf{
		IP:         "0.0.0.0",
		Port:       7777,
		MaxClients: 128,
		MaxRooms:   32,
		shutdown:   make(chan struct{}),
	}
	c.InitLogging(io.Discard)
	return c
}

// InitLogging points all subsystem loggers at the given writer,
// honoring the Debug flag.
func (c *Conf) InitLogging(w io.Writer) {
	backend := slog.NewBackend(w)
	level := slog.LevelInfo
	if c.Debug {
		level = slog.LevelDebug
	}
	mk := func(tag string) slog.Logger {
		l := backend.Logger(tag)
		l.SetLevel(level)
		return l
	}
	c.Log = mk("MAIN")
	c.Proto = mk("PROT")
	c.Lobby = mk("LOBY")
	c.Web = mk("WEB")
}

// Validate checks the record and clamps the table sizes to their hard
// caps.  A returned error means the process must not start.
func (c *Conf) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.MaxClients < 1 {
		return fmt.Errorf("invalid max_clients %d", c.MaxClients)
	}
	if c.MaxRooms < 1 {
		return fmt.Errorf("invalid max_rooms %d", c.MaxRooms)
	}
	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port %d", c.HTTPPort)
	}
	if c.MaxClients > MaxClientsCap {
		c.MaxClients = MaxClientsCap
	}
	if c.MaxRooms > MaxRoomsCap {
		c.MaxRooms = MaxRoomsCap
	}
	return nil
}
