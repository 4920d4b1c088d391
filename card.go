// Card vocabulary
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

// A Card is one of the 32 cards of the Sedma deck, encoded as
// suit*8+rank.  The encoding is part of the wire protocol and must not
// change.
type Card uint8

// NumCards is the size of the full deck.
const NumCards = 32

type (
	Suit uint8
	Rank uint8
)

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

const (
	Seven Rank = iota
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

var (
	suitLetters = [...]byte{'S', 'H', 'D', 'C'}
	rankLetters = [...]byte{'7', '8', '9', 'X', 'J', 'Q', 'K', 'A'}
)

func (c Card) Suit() Suit { return Suit(c / 8) }
func (c Card) Rank() Rank { return Rank(c % 8) }

func (s Suit) Letter() byte { return suitLetters[s] }
func (r Rank) Letter() byte { return rankLetters[r] }

func (s Suit) String() string { return string(s.Letter()) }

// String renders a card as its two-byte wire token, e.g. "SQ" for the
// queen of spades.
func (c Card) String() string {
	return string([]byte{c.Suit().Letter(), c.Rank().Letter()})
}

// ParseSuit interprets a suit letter.
func ParseSuit(b byte) (Suit, bool) {
	for i, l := range suitLetters {
		if l == b {
			return Suit(i), true
		}
	}
	return 0, false
}

// ParseRank interprets a rank letter.
func ParseRank(b byte) (Rank, bool) {
	for i, l := range rankLetters {
		if l == b {
			return Rank(i), true
		}
	}
	return 0, false
}

// ParseCard interprets a two-byte card token.  Trailing bytes are
// rejected.
func ParseCard(s string) (Card, bool) {
	if len(s) != 2 {
		return 0, false
	}
	suit, ok := ParseSuit(s[0])
	if !ok {
		return 0, false
	}
	rank, ok := ParseRank(s[1])
	if !ok {
		return 0, false
	}
	return Card(uint8(suit)*8 + uint8(rank)), true
}
