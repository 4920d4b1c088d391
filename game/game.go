// Game rules
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

// Package game implements the Sedma rules engine: deck handling with
// discard recycling, play legality, the seven-penalty, queen wishes,
// ace skips and turn management.  The engine is pure state; all I/O
// and room bookkeeping live in the lobby package.
package game

import (
	"math/rand"

	sedma "go-sedma"
)

const (
	// MaxPlayers is the most players a single game supports.
	MaxPlayers = 4
	// MaxHand caps a single hand at the full deck.
	MaxHand = sedma.NumCards
	// CardsEach is the initial deal per player.
	CardsEach = 4
)

// A RuleError is a rejected action.  The string is the wire error code
// surfaced verbatim in ERR lines.
type RuleError string

func (e RuleError) Error() string { return string(e) }

const (
	ErrBadState        RuleError = "BAD_STATE"
	ErrNotYourTurn     RuleError = "NOT_YOUR_TURN"
	ErrNoSuchCard      RuleError = "NO_SUCH_CARD"
	ErrIllegalCard     RuleError = "ILLEGAL_CARD"
	ErrWishRequired    RuleError = "WISH_REQUIRED"
	ErrBadWish         RuleError = "BAD_WISH"
	ErrMustStackOrDraw RuleError = "MUST_STACK_OR_DRAW"
)

// Game holds the complete state of one running game.  Between
// operations the cards in the deck, the discard pile and all hands
// always add up to the full 32-card deck.
type Game struct {
	Running bool
	Ended   bool

	deck    []sedma.Card
	discard []sedma.Card
	hands   [][]sedma.Card

	TopCard    sedma.Card
	ActiveSuit sedma.Suit
	Penalty    int
	TurnPos    int

	rng *rand.Rand
}

// Outcome reports the side effects of a successful play.
type Outcome struct {
	SkipNext     bool
	AddedPenalty int
	WinnerPos    int // -1 while nobody has won
}

// New shuffles a fresh deck for the given number of players.  The seed
// makes the deal reproducible; callers that want an unpredictable game
// derive it from the clock.
func New(players int, seed int64) *Game {
	g := &Game{
		Running: true,
		deck:    make([]sedma.Card, sedma.NumCards),
		discard: make([]sedma.Card, 0, sedma.NumCards),
		hands:   make([][]sedma.Card, players),
		rng:     rand.New(rand.NewSource(seed)),
	}
	for i := range g.deck {
		g.deck[i] = sedma.Card(i)
	}
	g.rng.Shuffle(len(g.deck), func(i, j int) {
		g.deck[i], g.deck[j] = g.deck[j], g.deck[i]
	})
	return g
}

// Players returns the number of seats in the game.
func (g *Game) Players() int { return len(g.hands) }

// Hand exposes a player's cards.  The returned slice is the engine's
// own storage and must not be retained across operations.
func (g *Game) Hand(ppos int) []sedma.Card {
	if ppos < 0 || ppos >= len(g.hands) {
		return nil
	}
	return g.hands[ppos]
}

// HandCount returns how many cards a player holds.
func (g *Game) HandCount(ppos int) int { return len(g.Hand(ppos)) }

// drawOne takes the next card from the deck.  An exhausted deck is
// refilled from the discard pile, keeping the current top card in
// place and reshuffling the rest.  The second return is false when no
// card is available at all.
func (g *Game) drawOne() (sedma.Card, bool) {
	if len(g.deck) == 0 {
		if len(g.discard) <= 1 {
			return 0, false
		}
		keep := g.discard[len(g.discard)-1]
		pool := g.discard[:len(g.discard)-1]
		g.rng.Shuffle(len(pool), func(i, j int) {
			pool[i], pool[j] = pool[j], pool[i]
		})
		g.deck = append(g.deck[:0], pool...)
		g.discard = append(make([]sedma.Card, 0, sedma.NumCards), keep)
	}
	c := g.deck[0]
	g.deck = g.deck[1:]
	return c, true
}

// Deal hands out cardsEach cards to every player in seat order.  A
// player's deal stops early if the deck runs dry.
func (g *Game) Deal(cardsEach int) {
	for p := range g.hands {
		g.hands[p] = g.hands[p][:0]
		for k := 0; k < cardsEach; k++ {
			c, ok := g.drawOne()
			if !ok {
				break
			}
			g.hands[p] = append(g.hands[p], c)
		}
	}
}

// PickStartTop draws the opening top card.  Special cards (queens,
// sevens, aces) are buried in the discard pile and drawing continues;
// the first plain card becomes the top and fixes the active suit.
func (g *Game) PickStartTop() {
	for {
		c, ok := g.drawOne()
		if !ok {
			return
		}
		g.discard = append(g.discard, c)
		switch c.Rank() {
		case sedma.Queen, sedma.Seven, sedma.Ace:
			continue
		}
		g.TopCard = c
		g.ActiveSuit = c.Suit()
		return
	}
}

// HandHas reports whether a player holds the given card.
func (g *Game) HandHas(ppos int, card sedma.Card) bool {
	for _, c := range g.Hand(ppos) {
		if c == card {
			return true
		}
	}
	return false
}

// handRemove drops one card, swapping in the last card of the hand.
func (g *Game) handRemove(ppos int, card sedma.Card) {
	h := g.hands[ppos]
	for i, c := range h {
		if c == card {
			h[i] = h[len(h)-1]
			g.hands[ppos] = h[:len(h)-1]
			return
		}
	}
}

// checkLegal validates a play against the current top card.  Under a
// pending penalty only stacking another seven is allowed.  A queen is
// always playable but requires a suit wish.  Anything else must match
// the active suit or the top card's rank.
func (g *Game) checkLegal(card sedma.Card, wish string) error {
	if g.Penalty > 0 {
		if card.Rank() != sedma.Seven {
			return ErrMustStackOrDraw
		}
		return nil
	}
	if card.Rank() == sedma.Queen {
		if wish == "" {
			return ErrWishRequired
		}
		if _, ok := sedma.ParseSuit(wish[0]); !ok || len(wish) != 1 {
			return ErrBadWish
		}
		return nil
	}
	if card.Suit() == g.ActiveSuit {
		return nil
	}
	if card.Rank() == g.TopCard.Rank() {
		return nil
	}
	return ErrIllegalCard
}

// advanceTurn moves to the next seat, skipping one more when an ace
// was played.
func (g *Game) advanceTurn(skipNext bool) {
	g.TurnPos = (g.TurnPos + 1) % len(g.hands)
	if skipNext {
		g.TurnPos = (g.TurnPos + 1) % len(g.hands)
	}
}

// Play attempts to put a card from the given seat onto the discard
// pile.  On success the outcome records penalty growth, ace skips and
// a possible win; the turn has already advanced unless the game ended.
func (g *Game) Play(ppos int, card sedma.Card, wish string) (Outcome, error) {
	out := Outcome{WinnerPos: -1}

	if !g.Running || g.Ended {
		return out, ErrBadState
	}
	if ppos != g.TurnPos {
		return out, ErrNotYourTurn
	}
	if !g.HandHas(ppos, card) {
		return out, ErrNoSuchCard
	}
	if err := g.checkLegal(card, wish); err != nil {
		return out, err
	}

	g.handRemove(ppos, card)
	g.discard = append(g.discard, card)
	g.TopCard = card

	if card.Rank() == sedma.Queen {
		suit, _ := sedma.ParseSuit(wish[0])
		g.ActiveSuit = suit
	} else {
		g.ActiveSuit = card.Suit()
	}

	if card.Rank() == sedma.Seven {
		g.Penalty += 2
		out.AddedPenalty = 2
	}
	if card.Rank() == sedma.Ace {
		out.SkipNext = true
	}

	if len(g.hands[ppos]) == 0 {
		g.Ended = true
		out.WinnerPos = ppos
		return out, nil
	}

	g.advanceTurn(out.SkipNext)
	return out, nil
}

// Draw takes cards for the seat whose turn it is: the accumulated
// penalty if one is pending, a single card otherwise.  Drawing stops
// when the deck and discard are exhausted or the hand is full, so the
// actual count may be smaller.  The penalty is cleared and the turn
// advances either way.
func (g *Game) Draw(ppos int) (int, error) {
	if !g.Running || g.Ended {
		return 0, ErrBadState
	}
	if ppos != g.TurnPos {
		return 0, ErrNotYourTurn
	}

	n := 1
	if g.Penalty > 0 {
		n = g.Penalty
	}

	got := 0
	for i := 0; i < n; i++ {
		if len(g.hands[ppos]) >= MaxHand {
			break
		}
		c, ok := g.drawOne()
		if !ok {
			break
		}
		g.hands[ppos] = append(g.hands[ppos], c)
		got++
	}

	g.Penalty = 0
	g.advanceTurn(false)
	return got, nil
}

// RemovePlayer compacts the engine state after a seat leaves
// mid-game: later hands shift down and the turn position follows the
// seat it pointed at, clamped into the shrunken range.  The leaver's
// cards go back under the deck so the deck can never starve for the
// remaining seats.
func (g *Game) RemovePlayer(ppos int) {
	if ppos < 0 || ppos >= len(g.hands) {
		return
	}

	if g.TurnPos > ppos {
		g.TurnPos--
	}

	g.deck = append(g.deck, g.hands[ppos]...)
	g.hands = append(g.hands[:ppos], g.hands[ppos+1:]...)

	if len(g.hands) == 0 {
		g.TurnPos = 0
		return
	}
	if g.TurnPos >= len(g.hands) || g.TurnPos < 0 {
		g.TurnPos = 0
	}
}
