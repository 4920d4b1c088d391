// Request handlers
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
	"strconv"
	"time"

	sedma "go-sedma"
	"go-sedma/game"
	"go-sedma/proto"
)

// dispatch routes a request to its handler, checking required keys
// first.  Caller holds l.mu.
func (l *Lobby) dispatch(idx int, m *proto.Msg) {
	countCommand(m.Cmd)

	switch m.Cmd {
	case "LOGIN":
		nick, ok := m.Get("nick")
		if !ok {
			l.sendErr(idx, "LOGIN", "BAD_FORMAT", "missing_nick")
			return
		}
		l.handleLogin(idx, nick)

	case "RESUME":
		nick, okN := m.Get("nick")
		ses, okS := m.Get("session")
		if !okN || !okS {
			l.sendErr(idx, "RESUME", "BAD_FORMAT", "missing_fields")
			return
		}
		l.handleResume(idx, nick, ses)

	case "LIST_ROOMS":
		l.handleListRooms(idx)

	case "CREATE_ROOM":
		name, okN := m.Get("name")
		size, okS := m.Get("size")
		if !okN || !okS {
			l.sendErr(idx, "CREATE_ROOM", "BAD_FORMAT", "missing_fields")
			return
		}
		l.handleCreateRoom(idx, name, atoi(size))

	case "JOIN_ROOM":
		roomID, ok := m.Get("room")
		if !ok {
			l.sendErr(idx, "JOIN_ROOM", "BAD_FORMAT", "missing_room")
			return
		}
		l.handleJoinRoom(idx, atoi(roomID))

	case "LEAVE_ROOM":
		l.handleLeaveRoom(idx)

	case "START_GAME":
		l.handleStartGame(idx)

	case "PLAY":
		l.handlePlay(idx, m)

	case "DRAW":
		l.handleDraw(idx)

	case "LOGOUT":
		l.handleLogout(idx)

	case "PING":
		l.send(idx, "RESP PONG")

	default:
		l.sendErr(idx, m.Cmd, "UNKNOWN_CMD", "unknown")
	}
}

// atoi parses like C's atoi: garbage becomes zero, which the value
// checks downstream reject.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func (l *Lobby) handleLogin(idx int, nick string) {
	c := l.client(idx)

	if nick == "" {
		l.sendErr(idx, "LOGIN", "BAD_FORMAT", "missing_nick")
		return
	}
	if len(nick) > MaxNick {
		l.sendErr(idx, "LOGIN", "INVALID_VALUE", "nick_too_long")
		return
	}
	if c.roomID >= 0 {
		l.sendErr(idx, "LOGIN", "BAD_STATE", "in_room")
		return
	}

	existing := l.findByNick(nick)
	if existing >= 0 && existing != idx {
		if !l.clients[existing].online {
			l.sendErr(idx, "LOGIN", "NICK_TAKEN", "use_resume_offline")
		} else {
			l.sendErr(idx, "LOGIN", "NICK_TAKEN", "already_online")
		}
		return
	}

	c.nick = nick
	c.session = newSession()
	c.roomID = -1
	c.inGame = false

	loginsTotal.Inc()
	l.log.Infof("slot %d: %q logged in", idx, nick)
	l.sendf(idx, "RESP LOGIN ok=1 session=%s", c.session)
}

func (l *Lobby) handleResume(idx int, nick, session string) {
	c := l.client(idx)

	existing := l.findByNick(nick)
	if existing < 0 {
		l.sendErr(idx, "RESUME", "BAD_SESSION", "no_such_nick")
		return
	}
	old := l.clients[existing]
	if old.session != session {
		l.sendErr(idx, "RESUME", "BAD_SESSION", "token")
		return
	}
	if existing != idx && old.online {
		l.sendErr(idx, "RESUME", "ALREADY_ONLINE", "use_login")
		return
	}
	if existing != idx && c.logged() {
		l.sendErr(idx, "RESUME", "BAD_STATE", "logged_in")
		return
	}

	if existing != idx {
		// Adopt the offline session into this slot and free the
		// old one.  Room rosters point at slot indices, so they
		// are rewritten too.
		c.nick = old.nick
		c.session = old.session
		c.roomID = old.roomID
		c.inGame = old.inGame

		if c.roomID >= 0 {
			if r := l.roomByID(c.roomID); r != nil {
				for i, p := range r.players {
					if p == existing {
						r.players[i] = idx
					}
				}
				if r.hostIdx == existing {
					r.hostIdx = idx
				}
			}
		}

		l.clients[existing] = nil
		slotsGauge.Dec()
	}

	resumesTotal.Inc()
	l.log.Infof("slot %d: %q resumed", idx, c.nick)
	l.send(idx, "RESP RESUME ok=1")

	if c.roomID < 0 {
		return
	}
	r := l.roomByID(c.roomID)
	if r == nil {
		return
	}

	l.broadcastExcept(r, idx, "EVT PLAYER_ONLINE nick="+c.nick)
	l.sendRoster(r, idx)
	l.sendState(r, idx)

	if r.phase == phaseGame {
		if ppos := r.pos(idx); ppos >= 0 {
			l.sendHand(r, ppos)
		}

		l.sendf(idx, "EVT TOP card=%s active_suit=%s penalty=%d",
			r.game.TopCard, r.game.ActiveSuit, r.game.Penalty)

		turn := "-"
		if tp := r.game.TurnPos; tp >= 0 && tp < len(r.players) {
			if tc := l.client(r.players[tp]); tc != nil {
				turn = tc.nick
			}
		}
		l.sendf(idx, "EVT TURN nick=%s", turn)

		if r.paused {
			l.resumeRoom(r)
			l.broadcastState(r)
		}
	}
}

func (l *Lobby) handleListRooms(idx int) {
	if !l.client(idx).logged() {
		l.sendErr(idx, "LIST_ROOMS", "NOT_LOGGED", "login_first")
		return
	}

	count := 0
	for _, r := range l.rooms {
		if r != nil && r.used {
			count++
		}
	}
	l.sendf(idx, "RESP LIST_ROOMS ok=1 rooms=%d", count)

	for _, r := range l.rooms {
		if r == nil || !r.used {
			continue
		}
		l.sendf(idx, "EVT ROOM id=%d name=%s players=%d/%d state=%s",
			r.id, r.name, len(r.players), r.size, r.phase)
	}
}

func (l *Lobby) handleCreateRoom(idx int, name string, size int) {
	c := l.client(idx)
	if !c.logged() {
		l.sendErr(idx, "CREATE_ROOM", "NOT_LOGGED", "login_first")
		return
	}
	if c.roomID >= 0 {
		l.sendErr(idx, "CREATE_ROOM", "BAD_STATE", "already_in_room")
		return
	}
	if name == "" {
		l.sendErr(idx, "CREATE_ROOM", "BAD_FORMAT", "missing_name")
		return
	}
	if size < 2 || size > game.MaxPlayers {
		l.sendErr(idx, "CREATE_ROOM", "INVALID_VALUE", "size_2_4")
		return
	}

	slot := -1
	for i, r := range l.rooms {
		if r == nil {
			slot = i
			break
		}
	}
	if slot < 0 {
		l.sendErr(idx, "CREATE_ROOM", "LIMIT_REACHED", "max_rooms")
		return
	}

	r := &room{
		used:    true,
		id:      l.nextRoomID,
		name:    name,
		size:    size,
		phase:   phaseLobby,
		players: []int{idx},
		hostIdx: idx,
	}
	l.nextRoomID++
	l.rooms[slot] = r
	roomsGauge.Inc()

	c.roomID = r.id
	c.inGame = false

	l.log.Infof("room %d %q created by %q (size %d)", r.id, name, c.nick, size)
	l.sendf(idx, "RESP CREATE_ROOM ok=1 room=%d", r.id)
	l.broadcastf(r, "EVT PLAYER_JOIN nick=%s", c.nick)
	l.broadcastf(r, "EVT HOST nick=%s", c.nick)
	l.broadcastState(r)
}

func (l *Lobby) handleJoinRoom(idx int, roomID int) {
	c := l.client(idx)
	if !c.logged() {
		l.sendErr(idx, "JOIN_ROOM", "NOT_LOGGED", "login_first")
		return
	}
	if c.roomID >= 0 {
		l.sendErr(idx, "JOIN_ROOM", "BAD_STATE", "already_in_room")
		return
	}

	r := l.roomByID(roomID)
	if r == nil {
		l.sendErr(idx, "JOIN_ROOM", "NO_SUCH_ROOM", "id")
		return
	}
	if r.phase != phaseLobby {
		l.sendErr(idx, "JOIN_ROOM", "BAD_STATE", "game_running")
		return
	}
	if len(r.players) >= r.size {
		l.sendErr(idx, "JOIN_ROOM", "ROOM_FULL", "full")
		return
	}

	r.players = append(r.players, idx)
	c.roomID = r.id
	c.inGame = false

	l.log.Infof("room %d: %q joined", r.id, c.nick)
	l.sendf(idx, "RESP JOIN_ROOM ok=1 room=%d", r.id)
	l.sendRoster(r, idx)
	l.broadcastExcept(r, idx, "EVT PLAYER_JOIN nick="+c.nick)
	l.sendState(r, idx)
	l.broadcastState(r)
}

func (l *Lobby) handleLeaveRoom(idx int) {
	c := l.client(idx)
	if !c.logged() {
		l.sendErr(idx, "LEAVE_ROOM", "NOT_LOGGED", "login_first")
		return
	}
	if c.roomID < 0 {
		l.sendErr(idx, "LEAVE_ROOM", "BAD_STATE", "not_in_room")
		return
	}

	r := l.roomByID(c.roomID)
	if r == nil {
		// Stale membership; just forget it.
		c.roomID = -1
		c.inGame = false
		l.send(idx, "RESP LEAVE_ROOM ok=1")
		return
	}

	l.broadcastf(r, "EVT PLAYER_LEAVE nick=%s", c.nick)

	if r.phase == phaseGame {
		if ppos := r.pos(idx); ppos >= 0 {
			l.removePlayerInGame(r, ppos)
		} else {
			l.removePlayer(r, idx)
		}
	} else {
		l.removePlayer(r, idx)
	}

	c.roomID = -1
	c.inGame = false

	l.log.Infof("room %d: %q left", r.id, c.nick)
	l.send(idx, "RESP LEAVE_ROOM ok=1")

	if !r.used {
		return
	}

	if r.phase == phaseGame {
		if len(r.players) < 2 {
			// Not enough seats for a game.  A lone survivor
			// wins; an empty game aborts.
			if len(r.players) == 1 {
				if w := l.client(r.players[0]); w != nil && w.nick != "" {
					l.broadcastf(r, "EVT GAME_END winner=%s", w.nick)
				}
			} else {
				l.broadcast(r, "EVT GAME_ABORT reason=not_enough_players")
			}
			l.endGame(r)
			l.broadcastState(r)
			return
		}

		// The engine compacted seats, so everyone's hand index
		// may have shifted.  Replay hands and turn.
		for ppos := range r.players {
			l.sendHand(r, ppos)
		}
		if tp := r.game.TurnPos; tp >= 0 && tp < len(r.players) {
			if tc := l.client(r.players[tp]); tc != nil && tc.nick != "" {
				l.broadcastf(r, "EVT TURN nick=%s", tc.nick)
			}
		}
		l.broadcastState(r)
		return
	}

	if len(r.players) > 0 {
		l.broadcastState(r)
	}
}

func (l *Lobby) handleStartGame(idx int) {
	c := l.client(idx)
	if !c.logged() {
		l.sendErr(idx, "START_GAME", "NOT_LOGGED", "login_first")
		return
	}
	if c.roomID < 0 {
		l.sendErr(idx, "START_GAME", "BAD_STATE", "not_in_room")
		return
	}
	r := l.roomByID(c.roomID)
	if r == nil {
		l.sendErr(idx, "START_GAME", "BAD_STATE", "no_room")
		return
	}
	if r.phase != phaseLobby {
		l.sendErr(idx, "START_GAME", "BAD_STATE", "already_running")
		return
	}
	if r.hostIdx != idx {
		l.sendErr(idx, "START_GAME", "NOT_HOST", "host_only")
		return
	}
	if len(r.players) < 2 {
		l.sendErr(idx, "START_GAME", "NOT_ENOUGH_PLAYERS", "need_at_least_two")
		return
	}

	g := game.New(len(r.players), l.seed(r.id))
	g.Deal(game.CardsEach)
	g.PickStartTop()
	r.game = g

	r.phase = phaseGame
	r.paused = false
	r.pauseStarted = time.Time{}

	for _, ci := range r.players {
		l.client(ci).inGame = true
	}
	gamesGauge.Inc()
	gamesTotal.Inc()

	l.log.Infof("room %d: game started with %d players", r.id, len(r.players))
	l.send(idx, "RESP START_GAME ok=1")
	l.broadcastf(r, "EVT GAME_START players=%d", len(r.players))

	for ppos := range r.players {
		l.sendHand(r, ppos)
	}

	l.broadcastf(r, "EVT TOP card=%s active_suit=%s penalty=%d",
		g.TopCard, g.ActiveSuit, g.Penalty)
	l.broadcastf(r, "EVT TURN nick=%s", l.client(r.players[g.TurnPos]).nick)
	l.broadcastState(r)
}

func (l *Lobby) handlePlay(idx int, m *proto.Msg) {
	c := l.client(idx)
	if c.roomID >= 0 {
		if rr := l.roomByID(c.roomID); rr != nil && rr.phase == phaseGame && rr.paused {
			l.sendErr(idx, "PLAY", "PAUSED", "wait_for_reconnect")
			return
		}
	}

	r, ppos, ok := l.ensureInGame(idx)
	if !ok {
		l.sendErr(idx, "PLAY", "BAD_STATE", "no_game")
		return
	}

	scard, ok := m.Get("card")
	if !ok {
		l.sendErr(idx, "PLAY", "BAD_FORMAT", "missing_card")
		return
	}
	wish, _ := m.Get("wish")

	card, ok := sedma.ParseCard(scard)
	if !ok {
		l.sendErr(idx, "PLAY", "BAD_FORMAT", "bad_card")
		return
	}

	o, err := r.game.Play(ppos, card, wish)
	if err != nil {
		var code string
		if re, isRule := err.(game.RuleError); isRule {
			code = string(re)
		} else {
			code = "ILLEGAL"
		}
		l.sendErr(idx, "PLAY", code, "rejected")
		return
	}

	l.send(idx, "RESP PLAY ok=1")

	if wish != "" && card.Rank() == sedma.Queen {
		l.broadcastf(r, "EVT PLAYED nick=%s card=%s wish=%s", c.nick, card, wish)
	} else {
		l.broadcastf(r, "EVT PLAYED nick=%s card=%s", c.nick, card)
	}

	l.broadcastf(r, "EVT TOP card=%s active_suit=%s penalty=%d",
		r.game.TopCard, r.game.ActiveSuit, r.game.Penalty)
	l.sendHand(r, ppos)

	if r.game.Ended && o.WinnerPos >= 0 {
		w := l.client(r.players[o.WinnerPos])
		l.broadcastf(r, "EVT GAME_END winner=%s", w.nick)
		l.endGame(r)
		l.broadcastState(r)
		return
	}

	l.broadcastf(r, "EVT TURN nick=%s", l.client(r.players[r.game.TurnPos]).nick)
	l.broadcastState(r)
}

func (l *Lobby) handleDraw(idx int) {
	c := l.client(idx)
	if c.roomID >= 0 {
		if rr := l.roomByID(c.roomID); rr != nil && rr.phase == phaseGame && rr.paused {
			l.sendErr(idx, "DRAW", "PAUSED", "wait_for_reconnect")
			return
		}
	}

	r, ppos, ok := l.ensureInGame(idx)
	if !ok {
		l.sendErr(idx, "DRAW", "BAD_STATE", "no_game")
		return
	}

	count, err := r.game.Draw(ppos)
	if err != nil {
		var code string
		if re, isRule := err.(game.RuleError); isRule {
			code = string(re)
		} else {
			code = "REJECTED"
		}
		l.sendErr(idx, "DRAW", code, "rejected")
		return
	}

	l.sendf(idx, "RESP DRAW ok=1 count=%d", count)
	l.sendHand(r, ppos)
	l.broadcastf(r, "EVT TURN nick=%s", l.client(r.players[r.game.TurnPos]).nick)
	l.broadcastState(r)
}

func (l *Lobby) handleLogout(idx int) {
	c := l.client(idx)

	if c.roomID >= 0 {
		if r := l.roomByID(c.roomID); r != nil {
			l.broadcastf(r, "EVT PLAYER_LEAVE nick=%s", c.nick)
			if r.phase == phaseGame {
				l.abortGame(r, "logout")
			}
			l.removePlayer(r, idx)
			if r.used && len(r.players) > 0 {
				l.broadcastState(r)
			}
		}
	}

	conn := c.conn
	if conn != nil {
		l.send(idx, "RESP LOGOUT ok=1")
		delete(l.byConn, conn)
	}

	l.log.Infof("slot %d: %q logged out", idx, c.nick)
	l.clients[idx] = nil
	slotsGauge.Dec()

	if conn != nil {
		conn.Close()
	}
}

// ensureInGame validates that a client may act in a running, unpaused
// game, returning its room and seat.
func (l *Lobby) ensureInGame(idx int) (*room, int, bool) {
	c := l.client(idx)
	if c.roomID < 0 {
		return nil, 0, false
	}
	r := l.roomByID(c.roomID)
	if r == nil || r.phase != phaseGame || r.paused {
		return nil, 0, false
	}
	ppos := r.pos(idx)
	if ppos < 0 {
		return nil, 0, false
	}
	return r, ppos, true
}

// endGame returns a finished room to the lobby phase without an abort
// event; the caller has already announced the result.
func (l *Lobby) endGame(r *room) {
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
}
