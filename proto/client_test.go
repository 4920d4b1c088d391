// Client connection tests
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
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	sedma "go-sedma"
	"go-sedma/conf"
)

// rwc glues a canned input and an output buffer into a transport.
type rwc struct {
	io.Reader
	io.Writer
}

func (rwc) Close() error { return nil }

// recorder implements sedma.Handler and records what the transport
// delivers.
type recorder struct {
	refuse       bool
	connected    bool
	disconnected bool
	lines        []string
}

func (r *recorder) Connect(sedma.Conn) bool {
	r.connected = true
	return !r.refuse
}

func (r *recorder) Line(_ sedma.Conn, line string) {
	r.lines = append(r.lines, line)
}

func (r *recorder) Disconnect(sedma.Conn) {
	r.disconnected = true
}

// run feeds the input through a client synchronously and returns the
// handler and everything the client wrote back.
func run(t *testing.T, input string, refuse bool) (*recorder, string) {
	t.Helper()
	h := &recorder{refuse: refuse}
	var out bytes.Buffer

	c := MakeClient(rwc{strings.NewReader(input), &out},
		"test", conf.Default(), h)
	c.Handle()
	return h, out.String()
}

func TestHandleLines(t *testing.T) {
	h, out := run(t, "REQ PING\nREQ LOGIN nick=alice\n", false)
	require.True(t, h.connected)
	require.True(t, h.disconnected)
	require.Equal(t, []string{"REQ PING", "REQ LOGIN nick=alice"}, h.lines)
	require.Empty(t, out)
}

func TestHandleStripsCR(t *testing.T) {
	h, _ := run(t, "REQ PING\r\nREQ\rPONG\r\n", false)
	require.Equal(t, []string{"REQ PING", "REQPONG"}, h.lines)
}

func TestHandleSkipsEmptyLines(t *testing.T) {
	h, _ := run(t, "\n\r\nREQ PING\n\n", false)
	require.Equal(t, []string{"REQ PING"}, h.lines)
}

func TestHandleRefused(t *testing.T) {
	h, out := run(t, "REQ PING\n", true)
	require.True(t, h.connected)
	require.Empty(t, h.lines)
	// A refused connection is closed without a disconnect report.
	require.False(t, h.disconnected)
	require.Empty(t, out)
}

func TestHandleLineTooLong(t *testing.T) {
	// The longest accepted payload is MaxLine-1 bytes.
	okLine := "REQ " + strings.Repeat("a", sedma.MaxLine-5)
	h, out := run(t, okLine+"\n", false)
	require.Equal(t, []string{okLine}, h.lines)
	require.Empty(t, out)

	badLine := "REQ " + strings.Repeat("a", sedma.MaxLine-4)
	h, out = run(t, badLine+"\nREQ PING\n", false)
	require.Empty(t, h.lines)
	require.True(t, h.disconnected)
	require.Equal(t, "ERR ? code=BAD_FORMAT msg=line_too_long\n", out)
}

func TestHandleBufferOverflow(t *testing.T) {
	// A line that never ends overruns the receive buffer.
	h, out := run(t, strings.Repeat("a", sedma.MaxRecvBuf+1), false)
	require.Empty(t, h.lines)
	require.True(t, h.disconnected)
	require.Equal(t, "ERR ? code=BAD_FORMAT msg=buffer_overflow\n", out)
}

func TestHandleEOFMidLine(t *testing.T) {
	// A final line without a newline is still delivered.
	h, _ := run(t, "REQ PING", false)
	require.Equal(t, []string{"REQ PING"}, h.lines)
	require.True(t, h.disconnected)
}
