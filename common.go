// Common interfaces and constants
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

package sedma

// Protocol caps.  These are hard limits of the wire protocol, not
// tuning knobs: input that exceeds them is rejected.
const (
	MaxLine    = 1024 // longest accepted line, newline excluded
	MaxRecvBuf = 8192 // per-connection receive buffer
)

// Conn is a single client connection as the coordinator sees it.  The
// transport owns the socket; the coordinator may only write lines to it
// or ask for it to be torn down.
type Conn interface {
	// SendLine writes one protocol line, appending the newline.
	// Delivery is best effort: a peer that stopped reading is
	// eventually reclaimed by the idle timeout.
	SendLine(line string)

	// Close tears down the underlying transport.  The transport
	// reports the closure through Handler.Disconnect.
	Close()

	// RemoteAddr describes the peer for logging.
	RemoteAddr() string
}

// Handler consumes transport events.  The methods are called from the
// connection goroutines; the implementation serializes them
// internally.
type Handler interface {
	// Connect announces a new connection.  A false return means no
	// slot is available and the transport must close the socket.
	Connect(Conn) bool

	// Line delivers one non-empty input line, newline and carriage
	// returns stripped.
	Line(Conn, string)

	// Disconnect reports that the connection is gone, whether by
	// peer close, error, or an earlier Close call.
	Disconnect(Conn)
}
