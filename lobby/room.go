// Room management
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
	"fmt"
	"strings"
	"time"

	"go-sedma/game"
)

type phase uint8

const (
	phaseLobby phase = iota + 1
	phaseGame
)

func (p phase) String() string {
	if p == phaseGame {
		return "GAME"
	}
	return "LOBBY"
}

// room is a container of two to four client slots with a host and an
// optional running game.  Rooms are owned by the lobby and only ever
// touched under its lock.
type room struct {
	used bool
	id   int
	name string
	size int

	phase        phase
	paused       bool
	pauseStarted time.Time

	players []int // slot indices, seat order
	hostIdx int   // slot index of the host

	game *game.Game
}

// pos returns the seat of a client slot inside the room, or -1.
func (r *room) pos(ci int) int {
	for i, p := range r.players {
		if p == ci {
			return i
		}
	}
	return -1
}

// roomByID locates a used room by its public id.
func (l *Lobby) roomByID(id int) *room {
	for _, r := range l.rooms {
		if r != nil && r.used && r.id == id {
			return r
		}
	}
	return nil
}

// destroyRoom releases the room's table slot.  Called whenever the
// last player leaves.
func (l *Lobby) destroyRoom(r *room) {
	if r.phase == phaseGame {
		gamesGauge.Dec()
	}
	r.used = false
	r.players = nil
	r.game = nil
	for i, e := range l.rooms {
		if e == r {
			l.rooms[i] = nil
			break
		}
	}
	roomsGauge.Dec()
	l.log.Debugf("room %d destroyed", r.id)
}

// clientActive reports whether the slot is present and has a live
// connection.
func (l *Lobby) clientActive(ci int) bool {
	if ci < 0 || ci >= len(l.clients) {
		return false
	}
	c := l.clients[ci]
	return c != nil && c.online && c.conn != nil
}

func (l *Lobby) anyOffline(r *room) bool {
	for _, ci := range r.players {
		if !l.clientActive(ci) {
			return true
		}
	}
	return false
}

// firstOffline returns the slot index of the first offline player, or
// -1 when everyone is connected.
func (l *Lobby) firstOffline(r *room) int {
	for _, ci := range r.players {
		if !l.clientActive(ci) {
			return ci
		}
	}
	return -1
}

// broadcast sends a line to every online player in the room.
func (l *Lobby) broadcast(r *room, line string) {
	for _, ci := range r.players {
		if l.clientActive(ci) {
			l.send(ci, line)
		}
	}
}

func (l *Lobby) broadcastf(r *room, format string, args ...interface{}) {
	l.broadcast(r, fmt.Sprintf(format, args...))
}

// broadcastExcept sends a line to every online player but one.
func (l *Lobby) broadcastExcept(r *room, except int, line string) {
	for _, ci := range r.players {
		if ci != except && l.clientActive(ci) {
			l.send(ci, line)
		}
	}
}

// sendState reports the room phase, pause flag and game summary to one
// client.
func (l *Lobby) sendState(r *room, ci int) {
	top, suit, turn := "-", "-", "-"
	penalty := 0

	if r.phase == phaseGame && r.game != nil {
		top = r.game.TopCard.String()
		suit = r.game.ActiveSuit.String()
		penalty = r.game.Penalty
		if tp := r.game.TurnPos; tp >= 0 && tp < len(r.players) {
			if c := l.client(r.players[tp]); c != nil {
				turn = c.nick
			}
		}
	}

	paused := 0
	if r.paused {
		paused = 1
	}
	l.sendf(ci, "EVT STATE room=%d phase=%s paused=%d top=%s active_suit=%s penalty=%d turn=%s",
		r.id, r.phase, paused, top, suit, penalty, turn)
}

func (l *Lobby) broadcastState(r *room) {
	for _, ci := range r.players {
		if l.clientActive(ci) {
			l.sendState(r, ci)
		}
	}
}

// sendRoster replays the host and full player list, with online
// state, to one client.  Used on join and resume.
func (l *Lobby) sendRoster(r *room, to int) {
	if host := l.client(r.hostIdx); host != nil && host.nick != "" {
		l.sendf(to, "EVT HOST nick=%s", host.nick)
	}
	for _, ci := range r.players {
		c := l.client(ci)
		if c == nil || c.nick == "" {
			continue
		}
		l.sendf(to, "EVT PLAYER_JOIN nick=%s", c.nick)
		if l.clientActive(ci) {
			l.sendf(to, "EVT PLAYER_ONLINE nick=%s", c.nick)
		} else {
			l.sendf(to, "EVT PLAYER_OFFLINE nick=%s", c.nick)
		}
	}
}

// sendHand sends a player their own cards.
func (l *Lobby) sendHand(r *room, ppos int) {
	if r.game == nil || ppos < 0 || ppos >= len(r.players) {
		return
	}
	hand := r.game.Hand(ppos)
	cards := make([]string, len(hand))
	for i, c := range hand {
		cards[i] = c.String()
	}
	l.sendf(r.players[ppos], "EVT HAND cards=%s", strings.Join(cards, ","))
}

// pauseRoom stops game time while a player is offline.  A no-op when
// the room is not playing or already paused.
func (l *Lobby) pauseRoom(r *room, who string, now time.Time) {
	if r.phase != phaseGame || r.paused {
		return
	}
	r.paused = true
	r.pauseStarted = now

	if who != "" {
		l.broadcastf(r, "EVT GAME_PAUSED nick=%s timeout=%d", who, int(offlineTimeout.Seconds()))
	} else {
		l.broadcastf(r, "EVT GAME_PAUSED timeout=%d", int(offlineTimeout.Seconds()))
	}
	l.log.Infof("room %d paused, waiting for %s", r.id, who)
}

// resumeRoom restarts a paused game once every player is back online.
func (l *Lobby) resumeRoom(r *room) {
	if r.phase != phaseGame || !r.paused {
		return
	}
	if l.anyOffline(r) {
		return
	}
	r.paused = false
	r.pauseStarted = time.Time{}
	l.broadcast(r, "EVT GAME_RESUMED")
	l.log.Infof("room %d resumed", r.id)
}

// abortGame cancels a running game and returns the room to the lobby
// phase.
func (l *Lobby) abortGame(r *room, reason string) {
	if r.phase != phaseGame {
		return
	}
	r.phase = phaseLobby
	r.paused = false
	r.pauseStarted = time.Time{}

	for _, ci := range r.players {
		if c := l.client(ci); c != nil {
			c.inGame = false
		}
	}
	r.game = nil
	gamesGauge.Dec()

	l.broadcastf(r, "EVT GAME_ABORT reason=%s", reason)
	l.broadcastState(r)
	l.log.Infof("room %d: game aborted (%s)", r.id, reason)
}

// removePlayer takes a client out of the room roster, reassigning the
// host and destroying the room when it empties.  Game state is left
// alone; mid-game removal goes through removePlayerInGame.
func (l *Lobby) removePlayer(r *room, ci int) {
	pos := r.pos(ci)
	if pos < 0 {
		return
	}
	r.players = append(r.players[:pos], r.players[pos+1:]...)

	if r.hostIdx == ci && len(r.players) > 0 {
		r.hostIdx = r.players[0]
		l.broadcastf(r, "EVT HOST nick=%s", l.client(r.hostIdx).nick)
	}
	if len(r.players) == 0 {
		l.destroyRoom(r)
	}
}

// removePlayerInGame compacts both the roster and the engine state
// when a seat disappears from a running game.
func (l *Lobby) removePlayerInGame(r *room, ppos int) {
	if ppos < 0 || ppos >= len(r.players) {
		return
	}
	removed := r.players[ppos]

	if r.game != nil {
		r.game.RemovePlayer(ppos)
	}
	r.players = append(r.players[:ppos], r.players[ppos+1:]...)

	if r.hostIdx == removed && len(r.players) > 0 {
		r.hostIdx = r.players[0]
		l.broadcastf(r, "EVT HOST nick=%s", l.client(r.hostIdx).nick)
	}
	if len(r.players) == 0 {
		l.destroyRoom(r)
	}
}
