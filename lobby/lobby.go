// Lobby coordinator
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

// Package lobby ties sessions, rooms and games together.  It owns the
// client slot table and the room table, turns protocol requests into
// game actions and drives the timers that pause, resume and abort
// games when players fall off the network.
package lobby

import (
	"fmt"
	"sync"
	"time"

	"github.com/decred/slog"

	sedma "go-sedma"
	"go-sedma/conf"
	"go-sedma/proto"
)

const (
	// idleTimeout drops connections that stay silent.  PING exists
	// so well-behaved clients never hit it.
	idleTimeout = 15 * time.Second

	// offlineTimeout bounds both the reconnect grace of an offline
	// session and the pause of a game missing a player.
	offlineTimeout = 120 * time.Second

	tickInterval = 250 * time.Millisecond

	maxStrikes = 3
)

// Lobby is the single coordinator behind all connections.  Every
// entry point takes the one lock; handlers run start to finish under
// it, so no partial state is ever observable.
type Lobby struct {
	mu sync.Mutex

	conf *conf.Conf
	log  slog.Logger

	clients []*client // fixed table, nil entries are free
	byConn  map[sedma.Conn]int

	rooms      []*room // fixed table, nil entries are free
	nextRoomID int

	// now and seed are swapped out by tests.
	now  func() time.Time
	seed func(roomID int) int64

	stop chan struct{}
}

func New(c *conf.Conf) *Lobby {
	return &Lobby{
		conf:       c,
		log:        c.Lobby,
		clients:    make([]*client, c.MaxClients),
		byConn:     make(map[sedma.Conn]int),
		rooms:      make([]*room, c.MaxRooms),
		nextRoomID: 1,
		now:        time.Now,
		seed: func(roomID int) int64 {
			return time.Now().Unix() ^ int64(roomID)
		},
		stop: make(chan struct{}),
	}
}

func (l *Lobby) String() string { return "Lobby coordinator" }

// Start runs the timer loop until Shutdown.
func (l *Lobby) Start() {
	tick := time.NewTicker(tickInterval)
	defer tick.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-tick.C:
			l.Tick(time.Now())
		}
	}
}

// Shutdown stops the ticker and closes every live connection.
func (l *Lobby) Shutdown() {
	close(l.stop)

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.clients {
		if c != nil && c.conn != nil {
			c.conn.Close()
		}
	}
}

// Connect claims a free slot for a new connection.  Returns false,
// refusing the connection, when the table is full.
func (l *Lobby) Connect(conn sedma.Conn) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := -1
	for i, c := range l.clients {
		if c == nil {
			idx = i
			break
		}
	}
	if idx < 0 {
		l.log.Warnf("refusing %s: client table full", conn.RemoteAddr())
		return false
	}

	l.clients[idx] = &client{
		conn:     conn,
		roomID:   -1,
		online:   true,
		lastSeen: l.now(),
	}
	l.byConn[conn] = idx

	connectionsTotal.Inc()
	slotsGauge.Inc()
	l.log.Debugf("slot %d: connected from %s", idx, conn.RemoteAddr())

	l.send(idx, "EVT SERVER msg=welcome")
	return true
}

// Line handles one request line from a connection.
func (l *Lobby) Line(conn sedma.Conn, raw string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx, ok := l.byConn[conn]
	if !ok {
		return
	}
	c := l.clients[idx]
	c.lastSeen = l.now()

	m, err := proto.Parse(raw)
	if err != nil {
		c.strikes++
		protoErrorsTotal.Inc()
		l.sendErr(idx, "?", "BAD_FORMAT", "parse_error")
		if c.strikes > maxStrikes {
			l.log.Infof("slot %d: dropped after %d strikes", idx, c.strikes)
			l.dropLocked(idx)
		}
		return
	}
	if m.Type != proto.Req {
		l.sendErr(idx, m.Cmd, "BAD_FORMAT", "expected_req")
		return
	}

	l.dispatch(idx, &m)
}

// Disconnect marks a slot offline when its transport goes away.
func (l *Lobby) Disconnect(conn sedma.Conn) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if idx, ok := l.byConn[conn]; ok {
		l.dropLocked(idx)
	}
}

// Tick advances the timer logic: pausing and aborting games with
// offline players, reaping expired offline sessions and dropping idle
// connections.  Called every 250ms by Start; tests call it directly.
func (l *Lobby) Tick(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, r := range l.rooms {
		if r == nil || !r.used || r.phase != phaseGame {
			continue
		}
		if l.anyOffline(r) {
			who := ""
			if off := l.firstOffline(r); off >= 0 {
				if c := l.client(off); c != nil {
					who = c.nick
				}
			}
			l.pauseRoom(r, who, now)

			if r.paused && !r.pauseStarted.IsZero() &&
				now.Sub(r.pauseStarted) > offlineTimeout {
				l.abortGame(r, "reconnect_timeout")
				l.broadcastState(r)
			}
		} else if r.paused {
			l.resumeRoom(r)
			l.broadcastState(r)
		}
	}

	for i, c := range l.clients {
		if c == nil || c.online {
			continue
		}
		if now.Sub(c.lastSeen) > offlineTimeout {
			if r := l.roomByID(c.roomID); c.roomID >= 0 && r != nil {
				l.broadcastf(r, "EVT PLAYER_LEAVE nick=%s", c.nick)
				if r.phase == phaseGame {
					l.abortGame(r, "player_removed")
				}
				l.removePlayer(r, i)
				if r.used && len(r.players) > 0 {
					l.broadcastState(r)
				}
			}
			l.log.Infof("slot %d: offline session %q expired", i, c.nick)
			l.clients[i] = nil
			slotsGauge.Dec()
		}
	}

	for i, c := range l.clients {
		if c == nil || !c.online || c.conn == nil {
			continue
		}
		if now.Sub(c.lastSeen) > idleTimeout {
			l.log.Debugf("slot %d: idle timeout", i)
			l.dropLocked(i)
		}
	}
}

// dropLocked severs the connection of a slot but keeps the session
// around for RESUME.  Pauses the slot's game if one is running.
// Caller holds l.mu.
func (l *Lobby) dropLocked(idx int) {
	c := l.client(idx)
	if c == nil {
		return
	}

	conn := c.conn
	if conn != nil {
		delete(l.byConn, conn)
	}
	c.conn = nil
	c.online = false
	c.lastSeen = l.now()

	if c.roomID >= 0 {
		if r := l.roomByID(c.roomID); r != nil {
			l.broadcastf(r, "EVT PLAYER_OFFLINE nick=%s", c.nick)
			if r.phase == phaseGame {
				l.pauseRoom(r, c.nick, l.now())
				l.broadcastState(r)
			}
		} else {
			c.roomID = -1
		}
	}

	// Anonymous slots have nothing to resume.
	if !c.logged() {
		l.clients[idx] = nil
		slotsGauge.Dec()
	}

	if conn != nil {
		conn.Close()
	}
}

// send writes one line to a slot's connection, if any.
func (l *Lobby) send(ci int, line string) {
	c := l.client(ci)
	if c == nil || c.conn == nil {
		return
	}
	c.conn.SendLine(line)
	linesOutTotal.Inc()
}

func (l *Lobby) sendf(ci int, format string, args ...interface{}) {
	l.send(ci, fmt.Sprintf(format, args...))
}

func (l *Lobby) sendErr(ci int, cmd, code, msg string) {
	l.sendf(ci, "ERR %s code=%s msg=%s", cmd, code, msg)
}
