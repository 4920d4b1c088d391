// Client connection management
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
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	sedma "go-sedma"
	"go-sedma/conf"
)

// writeTimeout bounds how long a single send may stall on an
// unresponsive peer before it is abandoned.
const writeTimeout = 2 * time.Second

// Client wraps one network connection.  It frames incoming bytes into
// lines, enforces the protocol caps, and forwards the lines to the
// coordinator.  Writes are serialized by an IO lock so concurrent
// broadcasts never interleave.
type Client struct {
	conf    *conf.Conf
	handler sedma.Handler

	iolock sync.Mutex
	rwc    io.ReadWriteCloser
	addr   string
	closed bool
}

// deadliner is implemented by net.Conn; other transports (websocket
// adapters, test pipes) may not support deadlines.
type deadliner interface {
	SetWriteDeadline(time.Time) error
}

// MakeClient wraps RWC into a client.  The caller starts the read loop
// with Handle, typically on its own goroutine.
func MakeClient(rwc io.ReadWriteCloser, addr string, conf *conf.Conf, h sedma.Handler) *Client {
	return &Client{
		conf:    conf,
		handler: h,
		rwc:     rwc,
		addr:    addr,
	}
}

func (c *Client) RemoteAddr() string { return c.addr }

// SendLine writes one protocol line.  Errors are logged and otherwise
// ignored; a dead peer is reclaimed by the coordinator's idle timeout.
func (c *Client) SendLine(line string) {
	c.iolock.Lock()
	defer c.iolock.Unlock()

	if c.closed {
		return
	}
	if d, ok := c.rwc.(deadliner); ok {
		_ = d.SetWriteDeadline(time.Now().Add(writeTimeout))
	}
	c.conf.Proto.Tracef("%s > %s", c.addr, line)
	if _, err := io.WriteString(c.rwc, line+"\n"); err != nil {
		c.conf.Proto.Debugf("write to %s failed: %v", c.addr, err)
	}
}

// sendErr emits an error line in wire format.
func (c *Client) sendErr(cmd, code, msg string) {
	c.SendLine(fmt.Sprintf("ERR %s code=%s msg=%s", cmd, code, msg))
}

// Close tears the connection down.  The read loop notices and reports
// the disconnect to the coordinator.
func (c *Client) Close() {
	c.iolock.Lock()
	defer c.iolock.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	if err := c.rwc.Close(); err != nil {
		c.conf.Proto.Debugf("close of %s: %v", c.addr, err)
	}
}

// Handle runs the read loop until the peer goes away or commits a
// framing violation.  Each complete line is stripped of carriage
// returns and handed to the coordinator; empty lines are dropped.
func (c *Client) Handle() {
	dbg := c.conf.Proto.Debugf

	if !c.handler.Connect(c) {
		dbg("rejecting %s: no free slot", c.addr)
		c.Close()
		return
	}
	defer func() {
		c.handler.Disconnect(c)
		c.Close()
	}()

	scanner := bufio.NewScanner(c.rwc)
	scanner.Buffer(make([]byte, 0, sedma.MaxRecvBuf), sedma.MaxRecvBuf)

	for scanner.Scan() {
		line := scanner.Text()
		if len(line) >= sedma.MaxLine {
			c.sendErr("?", "BAD_FORMAT", "line_too_long")
			dbg("dropping %s: line of %d bytes", c.addr, len(line))
			return
		}
		line = strings.ReplaceAll(line, "\r", "")
		if line == "" {
			continue
		}
		c.conf.Proto.Tracef("%s < %s", c.addr, line)
		c.handler.Line(c, line)
	}

	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			c.sendErr("?", "BAD_FORMAT", "buffer_overflow")
			dbg("dropping %s: receive buffer overflow", c.addr)
			return
		}
		if !strings.Contains(err.Error(), "use of closed network connection") {
			dbg("read from %s: %v", c.addr, err)
		}
	}
}
