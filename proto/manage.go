// TCP interface
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

package proto

import (
	"fmt"
	"net"

	sedma "go-sedma"
	"go-sedma/conf"
)

// Listener accepts TCP connections and hands each one to a client
// goroutine.
type Listener struct {
	conf    *conf.Conf
	handler sedma.Handler
	conn    net.Listener
}

func (*Listener) String() string { return "TCP listener" }

// MakeListener prepares a listener for the configured address.
func MakeListener(conf *conf.Conf, handler sedma.Handler) *Listener {
	return &Listener{conf: conf, handler: handler}
}

// Bind claims the listening socket.  Called before the manager is
// started so a bind failure can abort startup with a clean exit code.
func (t *Listener) Bind() error {
	addr := fmt.Sprintf("%s:%d", t.conf.IP, t.conf.Port)
	conn, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	t.conn = conn
	return nil
}

// Start accepts connections until the listener is shut down.
func (t *Listener) Start() {
	t.conf.Log.Infof("Listening on %s", t.conn.Addr())
	for {
		conn, err := t.conn.Accept()
		if err != nil {
			// Closed during shutdown.
			return
		}
		cli := MakeClient(conn, conn.RemoteAddr().String(), t.conf, t.handler)
		t.conf.Proto.Debugf("new connection from %s", cli.RemoteAddr())
		go cli.Handle()
	}
}

// Addr returns the bound address, useful when port 0 was requested.
func (t *Listener) Addr() net.Addr {
	if t.conn == nil {
		return nil
	}
	return t.conn.Addr()
}

func (t *Listener) Shutdown() {
	if t.conn == nil {
		return
	}
	if err := t.conn.Close(); err != nil {
		t.conf.Log.Debugf("closing listener: %v", err)
	}
}
