// Lobby coordinator tests
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
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	sedma "go-sedma"
	"go-sedma/conf"
)

// fakeConn records outgoing lines instead of writing to a socket.
type fakeConn struct {
	name   string
	lines  []string
	closed bool
}

func (c *fakeConn) SendLine(line string) { c.lines = append(c.lines, line) }
func (c *fakeConn) Close()               { c.closed = true }
func (c *fakeConn) RemoteAddr() string   { return c.name }

// drain returns and clears the recorded lines.
func (c *fakeConn) drain() []string {
	out := c.lines
	c.lines = nil
	return out
}

var _ sedma.Conn = (*fakeConn)(nil)

type fixture struct {
	t   *testing.T
	l   *Lobby
	now time.Time
}

func newFixture(t *testing.T) *fixture {
	c := conf.Default()
	c.MaxClients = 8
	c.MaxRooms = 4

	f := &fixture{t: t, now: time.Unix(1700000000, 0)}
	f.l = New(c)
	f.l.now = func() time.Time { return f.now }
	f.l.seed = func(int) int64 { return 42 }
	return f
}

func (f *fixture) connect(name string) *fakeConn {
	f.t.Helper()
	conn := &fakeConn{name: name}
	require.True(f.t, f.l.Connect(conn))
	require.Equal(f.t, []string{"EVT SERVER msg=welcome"}, conn.drain())
	return conn
}

func (f *fixture) login(name string) *fakeConn {
	f.t.Helper()
	conn := f.connect(name)
	f.l.Line(conn, "REQ LOGIN nick="+name)
	lines := conn.drain()
	require.Len(f.t, lines, 1)
	require.True(f.t, strings.HasPrefix(lines[0], "RESP LOGIN ok=1 session="), lines[0])
	return conn
}

// session extracts the token from a RESP LOGIN line.
func session(t *testing.T, line string) string {
	t.Helper()
	const p = "RESP LOGIN ok=1 session="
	require.True(t, strings.HasPrefix(line, p), line)
	return line[len(p):]
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
	f.l.Tick(f.now)
}

func hasLine(lines []string, prefix string) bool {
	for _, l := range lines {
		if strings.HasPrefix(l, prefix) {
			return true
		}
	}
	return false
}

func requireLine(t *testing.T, lines []string, prefix string) {
	t.Helper()
	require.True(t, hasLine(lines, prefix),
		"no line with prefix %q in %v", prefix, lines)
}

func TestConnectRefusedWhenFull(t *testing.T) {
	f := newFixture(t)
	f.l.conf.MaxClients = 2
	f.l.clients = make([]*client, 2)

	f.connect("a")
	f.connect("b")
	require.False(t, f.l.Connect(&fakeConn{name: "c"}))
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	conn := f.connect("a")

	f.l.Line(conn, "REQ LOGIN nick=alice")
	tok := session(t, conn.drain()[0])
	require.Len(t, tok, 32)

	// A second login regenerates the token.
	f.l.Line(conn, "REQ LOGIN nick=alice")
	tok2 := session(t, conn.drain()[0])
	require.NotEqual(t, tok, tok2)
}

func TestLoginValidation(t *testing.T) {
	f := newFixture(t)
	conn := f.connect("a")

	f.l.Line(conn, "REQ LOGIN")
	require.Equal(t, []string{"ERR LOGIN code=BAD_FORMAT msg=missing_nick"}, conn.drain())

	f.l.Line(conn, "REQ LOGIN nick=")
	require.Equal(t, []string{"ERR LOGIN code=BAD_FORMAT msg=missing_nick"}, conn.drain())

	f.l.Line(conn, "REQ LOGIN nick="+strings.Repeat("x", 32))
	require.Equal(t, []string{"ERR LOGIN code=INVALID_VALUE msg=nick_too_long"}, conn.drain())

	// Exactly at the cap is fine.
	f.l.Line(conn, "REQ LOGIN nick="+strings.Repeat("x", 31))
	requireLine(t, conn.drain(), "RESP LOGIN ok=1")
}

func TestLoginNickTaken(t *testing.T) {
	f := newFixture(t)
	f.login("alice")

	other := f.connect("b")
	f.l.Line(other, "REQ LOGIN nick=alice")
	require.Equal(t, []string{"ERR LOGIN code=NICK_TAKEN msg=already_online"}, other.drain())
}

func TestLoginNickTakenOffline(t *testing.T) {
	f := newFixture(t)
	conn := f.login("alice")
	f.l.Disconnect(conn)

	other := f.connect("b")
	f.l.Line(other, "REQ LOGIN nick=alice")
	require.Equal(t, []string{"ERR LOGIN code=NICK_TAKEN msg=use_resume_offline"}, other.drain())
}

func TestLoginWhileInRoom(t *testing.T) {
	f := newFixture(t)
	conn := f.login("alice")
	f.l.Line(conn, "REQ CREATE_ROOM name=den size=2")
	conn.drain()

	f.l.Line(conn, "REQ LOGIN nick=bob")
	require.Equal(t, []string{"ERR LOGIN code=BAD_STATE msg=in_room"}, conn.drain())
}

func TestPing(t *testing.T) {
	f := newFixture(t)
	conn := f.connect("a")
	f.l.Line(conn, "REQ PING")
	require.Equal(t, []string{"RESP PONG"}, conn.drain())
}

func TestParseStrikes(t *testing.T) {
	f := newFixture(t)
	conn := f.connect("a")

	for i := 0; i < 3; i++ {
		f.l.Line(conn, "garbage")
		require.Equal(t, []string{"ERR ? code=BAD_FORMAT msg=parse_error"}, conn.drain())
		require.False(t, conn.closed, "dropped after strike %d", i+1)
	}

	// The fourth strike drops the connection.
	f.l.Line(conn, "garbage")
	require.True(t, conn.closed)
}

func TestNonRequestRejected(t *testing.T) {
	f := newFixture(t)
	conn := f.connect("a")

	f.l.Line(conn, "EVT SERVER msg=hi")
	require.Equal(t, []string{"ERR SERVER code=BAD_FORMAT msg=expected_req"}, conn.drain())
	// Well-formed non-requests are not strikes.
	require.False(t, conn.closed)
}

func TestUnknownCommand(t *testing.T) {
	f := newFixture(t)
	conn := f.connect("a")
	f.l.Line(conn, "REQ DANCE")
	require.Equal(t, []string{"ERR DANCE code=UNKNOWN_CMD msg=unknown"}, conn.drain())
}

func TestCreateRoom(t *testing.T) {
	f := newFixture(t)
	conn := f.login("alice")

	f.l.Line(conn, "REQ CREATE_ROOM name=den size=2")
	lines := conn.drain()
	require.Equal(t, "RESP CREATE_ROOM ok=1 room=1", lines[0])
	requireLine(t, lines, "EVT PLAYER_JOIN nick=alice")
	requireLine(t, lines, "EVT HOST nick=alice")
	requireLine(t, lines, "EVT STATE room=1 phase=LOBBY paused=0 top=- active_suit=- penalty=0 turn=-")
}

func TestCreateRoomValidation(t *testing.T) {
	f := newFixture(t)
	anon := f.connect("x")
	f.l.Line(anon, "REQ CREATE_ROOM name=den size=2")
	require.Equal(t, []string{"ERR CREATE_ROOM code=NOT_LOGGED msg=login_first"}, anon.drain())

	conn := f.login("alice")
	for _, tt := range []struct{ req, err string }{
		{"REQ CREATE_ROOM size=2", "ERR CREATE_ROOM code=BAD_FORMAT msg=missing_fields"},
		{"REQ CREATE_ROOM name=den size=1", "ERR CREATE_ROOM code=INVALID_VALUE msg=size_2_4"},
		{"REQ CREATE_ROOM name=den size=5", "ERR CREATE_ROOM code=INVALID_VALUE msg=size_2_4"},
		{"REQ CREATE_ROOM name=den size=banana", "ERR CREATE_ROOM code=INVALID_VALUE msg=size_2_4"},
	} {
		f.l.Line(conn, tt.req)
		require.Equal(t, []string{tt.err}, conn.drain(), tt.req)
	}

	f.l.Line(conn, "REQ CREATE_ROOM name=den size=2")
	conn.drain()
	f.l.Line(conn, "REQ CREATE_ROOM name=den2 size=2")
	require.Equal(t, []string{"ERR CREATE_ROOM code=BAD_STATE msg=already_in_room"}, conn.drain())
}

func TestCreateRoomLimit(t *testing.T) {
	f := newFixture(t)
	f.l.rooms = make([]*room, 1)

	a := f.login("alice")
	f.l.Line(a, "REQ CREATE_ROOM name=one size=2")
	a.drain()

	b := f.login("bob")
	f.l.Line(b, "REQ CREATE_ROOM name=two size=2")
	require.Equal(t, []string{"ERR CREATE_ROOM code=LIMIT_REACHED msg=max_rooms"}, b.drain())
}

func TestListRooms(t *testing.T) {
	f := newFixture(t)
	a := f.login("alice")

	f.l.Line(a, "REQ LIST_ROOMS")
	require.Equal(t, []string{"RESP LIST_ROOMS ok=1 rooms=0"}, a.drain())

	f.l.Line(a, "REQ CREATE_ROOM name=den size=3")
	a.drain()

	f.l.Line(a, "REQ LIST_ROOMS")
	require.Equal(t, []string{
		"RESP LIST_ROOMS ok=1 rooms=1",
		"EVT ROOM id=1 name=den players=1/3 state=LOBBY",
	}, a.drain())
}

func TestJoinRoom(t *testing.T) {
	f := newFixture(t)
	a := f.login("alice")
	f.l.Line(a, "REQ CREATE_ROOM name=den size=2")
	a.drain()

	b := f.login("bob")
	f.l.Line(b, "REQ JOIN_ROOM room=1")

	blines := b.drain()
	require.Equal(t, "RESP JOIN_ROOM ok=1 room=1", blines[0])
	// The joiner gets the full roster including itself.
	requireLine(t, blines, "EVT HOST nick=alice")
	requireLine(t, blines, "EVT PLAYER_JOIN nick=alice")
	requireLine(t, blines, "EVT PLAYER_ONLINE nick=alice")
	requireLine(t, blines, "EVT PLAYER_JOIN nick=bob")
	requireLine(t, blines, "EVT STATE room=1 phase=LOBBY")

	// The host only hears about the newcomer.
	alines := a.drain()
	requireLine(t, alines, "EVT PLAYER_JOIN nick=bob")
	require.False(t, hasLine(alines, "EVT HOST"), "%v", alines)
}

func TestJoinRoomErrors(t *testing.T) {
	f := newFixture(t)
	a := f.login("alice")
	f.l.Line(a, "REQ CREATE_ROOM name=den size=2")
	a.drain()

	b := f.login("bob")
	f.l.Line(b, "REQ JOIN_ROOM room=99")
	require.Equal(t, []string{"ERR JOIN_ROOM code=NO_SUCH_ROOM msg=id"}, b.drain())

	f.l.Line(b, "REQ JOIN_ROOM room=1")
	b.drain()

	c := f.login("carol")
	f.l.Line(c, "REQ JOIN_ROOM room=1")
	require.Equal(t, []string{"ERR JOIN_ROOM code=ROOM_FULL msg=full"}, c.drain())

	// Start the game, a fresh joiner is refused.
	f.l.Line(b, "REQ LEAVE_ROOM")
	b.drain()
	a.drain()
	f.l.Line(b, "REQ JOIN_ROOM room=1")
	b.drain()
	a.drain()
	f.l.Line(a, "REQ START_GAME")
	a.drain()
	b.drain()
	f.l.Line(c, "REQ JOIN_ROOM room=1")
	require.Equal(t, []string{"ERR JOIN_ROOM code=BAD_STATE msg=game_running"}, c.drain())
}

func TestLeaveRoomHostHandover(t *testing.T) {
	f := newFixture(t)
	a := f.login("alice")
	f.l.Line(a, "REQ CREATE_ROOM name=den size=3")
	a.drain()
	b := f.login("bob")
	f.l.Line(b, "REQ JOIN_ROOM room=1")
	a.drain()
	b.drain()

	f.l.Line(a, "REQ LEAVE_ROOM")
	alines := a.drain()
	requireLine(t, alines, "EVT PLAYER_LEAVE nick=alice")
	requireLine(t, alines, "RESP LEAVE_ROOM ok=1")

	blines := b.drain()
	requireLine(t, blines, "EVT PLAYER_LEAVE nick=alice")
	requireLine(t, blines, "EVT HOST nick=bob")

	// Alice can rejoin, bob is now the host.
	f.l.Line(a, "REQ JOIN_ROOM room=1")
	requireLine(t, a.drain(), "EVT HOST nick=bob")
}

func TestLeaveRoomDestroysEmpty(t *testing.T) {
	f := newFixture(t)
	a := f.login("alice")
	f.l.Line(a, "REQ CREATE_ROOM name=den size=2")
	a.drain()
	f.l.Line(a, "REQ LEAVE_ROOM")
	a.drain()

	f.l.Line(a, "REQ LIST_ROOMS")
	require.Equal(t, []string{"RESP LIST_ROOMS ok=1 rooms=0"}, a.drain())

	f.l.Line(a, "REQ LEAVE_ROOM")
	require.Equal(t, []string{"ERR LEAVE_ROOM code=BAD_STATE msg=not_in_room"}, a.drain())
}

// startGame builds a two-player room and starts the game, returning
// the connections in seat order.
func (f *fixture) startGame() (*fakeConn, *fakeConn) {
	f.t.Helper()
	a := f.login("alice")
	f.l.Line(a, "REQ CREATE_ROOM name=den size=2")
	a.drain()
	b := f.login("bob")
	f.l.Line(b, "REQ JOIN_ROOM room=1")
	a.drain()
	b.drain()
	f.l.Line(a, "REQ START_GAME")
	return a, b
}

func TestStartGame(t *testing.T) {
	f := newFixture(t)
	a, b := f.startGame()

	alines := a.drain()
	require.Equal(t, "RESP START_GAME ok=1", alines[0])
	requireLine(t, alines, "EVT GAME_START players=2")
	requireLine(t, alines, "EVT HAND cards=")
	requireLine(t, alines, "EVT TOP card=")
	requireLine(t, alines, "EVT TURN nick=alice")
	requireLine(t, alines, "EVT STATE room=1 phase=GAME paused=0")

	blines := b.drain()
	requireLine(t, blines, "EVT GAME_START players=2")
	requireLine(t, blines, "EVT HAND cards=")

	// Each player only sees their own hand.
	count := func(lines []string) int {
		n := 0
		for _, l := range lines {
			if strings.HasPrefix(l, "EVT HAND") {
				n++
			}
		}
		return n
	}
	require.Equal(t, 1, count(alines))
	require.Equal(t, 1, count(blines))

	r := f.l.roomByID(1)
	require.NotNil(t, r)
	require.Equal(t, phaseGame, r.phase)
	require.Equal(t, 4, r.game.HandCount(0))
	require.Equal(t, 4, r.game.HandCount(1))
}

func TestStartGameErrors(t *testing.T) {
	f := newFixture(t)
	a := f.login("alice")
	f.l.Line(a, "REQ START_GAME")
	require.Equal(t, []string{"ERR START_GAME code=BAD_STATE msg=not_in_room"}, a.drain())

	f.l.Line(a, "REQ CREATE_ROOM name=den size=2")
	a.drain()
	f.l.Line(a, "REQ START_GAME")
	require.Equal(t, []string{"ERR START_GAME code=NOT_ENOUGH_PLAYERS msg=need_at_least_two"}, a.drain())

	b := f.login("bob")
	f.l.Line(b, "REQ JOIN_ROOM room=1")
	a.drain()
	b.drain()

	f.l.Line(b, "REQ START_GAME")
	require.Equal(t, []string{"ERR START_GAME code=NOT_HOST msg=host_only"}, b.drain())

	f.l.Line(a, "REQ START_GAME")
	a.drain()
	b.drain()
	f.l.Line(a, "REQ START_GAME")
	require.Equal(t, []string{"ERR START_GAME code=BAD_STATE msg=already_running"}, a.drain())
}

// playTurn makes the current player act: it tries every card in hand
// and falls back to drawing.  Returns true when the game ended.
func (f *fixture) playTurn(conns []*fakeConn) bool {
	f.t.Helper()
	r := f.l.roomByID(1)
	require.NotNil(f.t, r)
	if r.phase != phaseGame {
		return true
	}

	ppos := r.game.TurnPos
	conn := conns[ppos]
	hand := append([]sedma.Card(nil), r.game.Hand(ppos)...)

	for _, c := range hand {
		req := "REQ PLAY card=" + c.String()
		if c.Rank() == sedma.Queen {
			req += " wish=S"
		}
		f.l.Line(conn, req)
		lines := conn.drain()
		if hasLine(lines, "RESP PLAY ok=1") {
			return hasLine(lines, "EVT GAME_END")
		}
	}

	f.l.Line(conn, "REQ DRAW")
	lines := conn.drain()
	require.True(f.t, hasLine(lines, "RESP DRAW ok=1"), "%v", lines)
	return false
}

func TestPlayFlow(t *testing.T) {
	f := newFixture(t)
	a, b := f.startGame()
	a.drain()
	b.drain()

	conns := []*fakeConn{a, b}
	r := f.l.roomByID(1)

	// Let the first player act and verify the event fan-out.
	ppos := r.game.TurnPos
	ended := f.playTurn(conns)
	if !ended {
		other := conns[1-ppos]
		lines := other.drain()
		require.True(t,
			hasLine(lines, "EVT PLAYED nick=") || hasLine(lines, "EVT TURN nick="),
			"%v", lines)
		requireLine(t, lines, "EVT STATE room=1 phase=GAME")
	}

	// Drive the game to completion.
	for i := 0; i < 1000; i++ {
		if f.playTurn(conns) {
			break
		}
		a.drain()
		b.drain()
	}
	require.Equal(t, phaseLobby, r.phase)
	require.Nil(t, r.game)
}

func TestPlayOutOfTurn(t *testing.T) {
	f := newFixture(t)
	a, b := f.startGame()
	a.drain()
	b.drain()

	r := f.l.roomByID(1)
	idle := []*fakeConn{a, b}[1-r.game.TurnPos]

	f.l.Line(idle, "REQ PLAY card=S7")
	lines := idle.drain()
	require.Len(t, lines, 1)
	require.True(t,
		lines[0] == "ERR PLAY code=NOT_YOUR_TURN msg=rejected" ||
			lines[0] == "ERR PLAY code=NO_SUCH_CARD msg=rejected",
		lines[0])
}

func TestPlayValidation(t *testing.T) {
	f := newFixture(t)
	a, b := f.startGame()
	a.drain()
	b.drain()

	r := f.l.roomByID(1)
	cur := []*fakeConn{a, b}[r.game.TurnPos]

	f.l.Line(cur, "REQ PLAY")
	require.Equal(t, []string{"ERR PLAY code=BAD_FORMAT msg=missing_card"}, cur.drain())

	f.l.Line(cur, "REQ PLAY card=ZZ")
	require.Equal(t, []string{"ERR PLAY code=BAD_FORMAT msg=bad_card"}, cur.drain())
}

func TestPlayWithoutGame(t *testing.T) {
	f := newFixture(t)
	a := f.login("alice")
	f.l.Line(a, "REQ PLAY card=S7")
	require.Equal(t, []string{"ERR PLAY code=BAD_STATE msg=no_game"}, a.drain())
	f.l.Line(a, "REQ DRAW")
	require.Equal(t, []string{"ERR DRAW code=BAD_STATE msg=no_game"}, a.drain())
}

func TestDisconnectPausesGame(t *testing.T) {
	f := newFixture(t)
	a, b := f.startGame()
	a.drain()
	b.drain()

	f.l.Disconnect(b)
	lines := a.drain()
	requireLine(t, lines, "EVT PLAYER_OFFLINE nick=bob")
	requireLine(t, lines, "EVT GAME_PAUSED nick=bob timeout=120")
	requireLine(t, lines, "EVT STATE room=1 phase=GAME paused=1")

	// Game actions are refused while paused.
	f.l.Line(a, "REQ PLAY card=S7")
	require.Equal(t, []string{"ERR PLAY code=PAUSED msg=wait_for_reconnect"}, a.drain())
	f.l.Line(a, "REQ DRAW")
	require.Equal(t, []string{"ERR DRAW code=PAUSED msg=wait_for_reconnect"}, a.drain())
}

func TestResume(t *testing.T) {
	f := newFixture(t)
	conn := f.connect("a")
	f.l.Line(conn, "REQ LOGIN nick=alice")
	tok := session(t, conn.drain()[0])

	f.l.Disconnect(conn)

	// Wrong credentials first.
	c2 := f.connect("b")
	f.l.Line(c2, "REQ RESUME nick=ghost session="+tok)
	require.Equal(t, []string{"ERR RESUME code=BAD_SESSION msg=no_such_nick"}, c2.drain())
	f.l.Line(c2, "REQ RESUME nick=alice session=wrong")
	require.Equal(t, []string{"ERR RESUME code=BAD_SESSION msg=token"}, c2.drain())

	f.l.Line(c2, "REQ RESUME nick=alice session="+tok)
	require.Equal(t, []string{"RESP RESUME ok=1"}, c2.drain())

	// The session carried over.
	f.l.Line(c2, "REQ LIST_ROOMS")
	requireLine(t, c2.drain(), "RESP LIST_ROOMS ok=1")
}

func TestResumeWhileOnline(t *testing.T) {
	f := newFixture(t)
	conn := f.connect("a")
	f.l.Line(conn, "REQ LOGIN nick=alice")
	tok := session(t, conn.drain()[0])

	c2 := f.connect("b")
	f.l.Line(c2, "REQ RESUME nick=alice session="+tok)
	require.Equal(t, []string{"ERR RESUME code=ALREADY_ONLINE msg=use_login"}, c2.drain())
}

func TestResumeWhileLoggedIn(t *testing.T) {
	f := newFixture(t)
	conn := f.connect("a")
	f.l.Line(conn, "REQ LOGIN nick=alice")
	tok := session(t, conn.drain()[0])
	f.l.Disconnect(conn)

	b := f.login("bob")
	f.l.Line(b, "REQ RESUME nick=alice session="+tok)
	require.Equal(t, []string{"ERR RESUME code=BAD_STATE msg=logged_in"}, b.drain())
}

func TestResumeIntoGame(t *testing.T) {
	f := newFixture(t)
	conn := f.connect("a")
	f.l.Line(conn, "REQ LOGIN nick=alice")
	tok := session(t, conn.drain()[0])
	f.l.Line(conn, "REQ CREATE_ROOM name=den size=2")
	conn.drain()

	b := f.login("bob")
	f.l.Line(b, "REQ JOIN_ROOM room=1")
	conn.drain()
	b.drain()
	f.l.Line(conn, "REQ START_GAME")
	conn.drain()
	b.drain()

	f.l.Disconnect(conn)
	b.drain() // offline, paused, state

	c2 := f.connect("a2")
	f.l.Line(c2, "REQ RESUME nick=alice session="+tok)
	lines := c2.drain()
	require.Equal(t, "RESP RESUME ok=1", lines[0])
	requireLine(t, lines, "EVT HOST nick=alice")
	requireLine(t, lines, "EVT PLAYER_JOIN nick=alice")
	requireLine(t, lines, "EVT PLAYER_JOIN nick=bob")
	requireLine(t, lines, "EVT HAND cards=")
	requireLine(t, lines, "EVT TOP card=")
	requireLine(t, lines, "EVT TURN nick=")
	requireLine(t, lines, "EVT STATE room=1 phase=GAME")

	blines := b.drain()
	requireLine(t, blines, "EVT PLAYER_ONLINE nick=alice")
	requireLine(t, blines, "EVT GAME_RESUMED")

	r := f.l.roomByID(1)
	require.False(t, r.paused)
}

func TestPauseTimeoutAbortsGame(t *testing.T) {
	f := newFixture(t)
	a, b := f.startGame()
	a.drain()
	b.drain()

	f.l.Disconnect(b)
	a.drain()

	// Two minutes pass with bob gone; bob's session also expires,
	// so he is removed from the room entirely.
	f.advance(offlineTimeout + time.Second)

	lines := a.drain()
	requireLine(t, lines, "EVT GAME_ABORT reason=")
	requireLine(t, lines, "EVT STATE room=1 phase=LOBBY")

	r := f.l.roomByID(1)
	require.NotNil(t, r)
	require.Equal(t, phaseLobby, r.phase)
	require.Len(t, r.players, 1)
}

func TestPauseTimeoutKeepsSessionWithinGrace(t *testing.T) {
	f := newFixture(t)
	a, b := f.startGame()
	a.drain()
	b.drain()

	f.l.Disconnect(b)
	a.drain()

	// Half a minute passes; alice keeps pinging so only bob is gone.
	for i := 0; i < 3; i++ {
		f.advance(10 * time.Second)
		f.l.Line(a, "REQ PING")
	}
	require.False(t, hasLine(a.drain(), "EVT GAME_ABORT"))

	r := f.l.roomByID(1)
	require.True(t, r.paused)
	require.Len(t, r.players, 2)
}

func TestOfflineSessionReaped(t *testing.T) {
	f := newFixture(t)
	conn := f.login("alice")
	f.l.Disconnect(conn)

	f.advance(offlineTimeout + time.Second)

	// The nick is free again.
	other := f.connect("b")
	f.l.Line(other, "REQ LOGIN nick=alice")
	requireLine(t, other.drain(), "RESP LOGIN ok=1")
}

func TestIdleConnectionDropped(t *testing.T) {
	f := newFixture(t)
	conn := f.login("alice")

	f.advance(10 * time.Second)
	require.False(t, conn.closed)

	// PING resets the idle clock.
	f.l.Line(conn, "REQ PING")
	conn.drain()
	f.advance(10 * time.Second)
	require.False(t, conn.closed)

	f.advance(idleTimeout + time.Second)
	require.True(t, conn.closed)

	// The session survives the drop.
	c2 := f.connect("a2")
	f.l.Line(c2, "REQ LOGIN nick=alice")
	require.Equal(t, []string{"ERR LOGIN code=NICK_TAKEN msg=use_resume_offline"}, c2.drain())
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	conn := f.login("alice")

	f.l.Line(conn, "REQ LOGOUT")
	require.Equal(t, []string{"RESP LOGOUT ok=1"}, conn.drain())
	require.True(t, conn.closed)

	// The nick is released immediately.
	c2 := f.connect("b")
	f.l.Line(c2, "REQ LOGIN nick=alice")
	requireLine(t, c2.drain(), "RESP LOGIN ok=1")
}

func TestLogoutAbortsGame(t *testing.T) {
	f := newFixture(t)
	a, b := f.startGame()
	a.drain()
	b.drain()

	f.l.Line(b, "REQ LOGOUT")
	require.True(t, b.closed)

	lines := a.drain()
	requireLine(t, lines, "EVT PLAYER_LEAVE nick=bob")
	requireLine(t, lines, "EVT GAME_ABORT reason=logout")
	requireLine(t, lines, "EVT STATE room=1 phase=LOBBY")
}

func TestLeaveMidGameSurvivorWins(t *testing.T) {
	f := newFixture(t)
	a, b := f.startGame()
	a.drain()
	b.drain()

	f.l.Line(b, "REQ LEAVE_ROOM")
	requireLine(t, b.drain(), "RESP LEAVE_ROOM ok=1")

	lines := a.drain()
	requireLine(t, lines, "EVT PLAYER_LEAVE nick=bob")
	requireLine(t, lines, "EVT GAME_END winner=alice")
	requireLine(t, lines, "EVT STATE room=1 phase=LOBBY")
}

func TestLeaveMidGameContinuesWithThree(t *testing.T) {
	f := newFixture(t)
	a := f.login("alice")
	f.l.Line(a, "REQ CREATE_ROOM name=den size=3")
	a.drain()
	b := f.login("bob")
	f.l.Line(b, "REQ JOIN_ROOM room=1")
	c := f.login("carol")
	f.l.Line(c, "REQ JOIN_ROOM room=1")
	a.drain()
	b.drain()
	c.drain()
	f.l.Line(a, "REQ START_GAME")
	a.drain()
	b.drain()
	c.drain()

	f.l.Line(b, "REQ LEAVE_ROOM")
	b.drain()

	r := f.l.roomByID(1)
	require.Equal(t, phaseGame, r.phase)
	require.Equal(t, 2, r.game.Players())

	lines := a.drain()
	requireLine(t, lines, "EVT PLAYER_LEAVE nick=bob")
	// Hands are replayed after seats shift.
	requireLine(t, lines, "EVT HAND cards=")
	requireLine(t, lines, "EVT TURN nick=")
	requireLine(t, lines, "EVT STATE room=1 phase=GAME")
}

func TestShutdownClosesConnections(t *testing.T) {
	f := newFixture(t)
	a := f.login("alice")
	b := f.connect("b")

	f.l.Shutdown()
	require.True(t, a.closed)
	require.True(t, b.closed)
}

func TestRoomIDsIncrement(t *testing.T) {
	f := newFixture(t)
	a := f.login("alice")
	f.l.Line(a, "REQ CREATE_ROOM name=one size=2")
	requireLine(t, a.drain(), "RESP CREATE_ROOM ok=1 room=1")
	f.l.Line(a, "REQ LEAVE_ROOM")
	a.drain()

	// Destroyed room ids are not reused.
	f.l.Line(a, "REQ CREATE_ROOM name=two size=2")
	requireLine(t, a.drain(), "RESP CREATE_ROOM ok=1 room=2")
}

func TestStateTurnNick(t *testing.T) {
	f := newFixture(t)
	a, b := f.startGame()

	alines := a.drain()
	b.drain()
	r := f.l.roomByID(1)
	cur := []string{"alice", "bob"}[r.game.TurnPos]
	requireLine(t, alines, fmt.Sprintf(
		"EVT STATE room=1 phase=GAME paused=0 top=%s active_suit=%s penalty=%d turn=%s",
		r.game.TopCard, r.game.ActiveSuit, r.game.Penalty, cur))
}
