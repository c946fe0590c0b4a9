package game

import (
	"fmt"
	"math/rand"
)

type Color string

const (
	Black Color = "black"
	White Color = "white"
)

// MaxRank is the highest numbered card in each deck (ranks run 0..MaxRank).
const MaxRank = 11

// Card is a single playing piece. Joker marks the wildcard; Rank is only
// meaningful when Joker is false. Flipped means the rank has been exposed
// to the opponent by a correct guess.
type Card struct {
	Color   Color `json:"color"`
	Rank    int   `json:"rank"`
	Joker   bool  `json:"joker"`
	Flipped bool  `json:"flipped"`
}

func (c Card) String() string {
	if c.Joker {
		return string(c.Color) + "J"
	}
	return fmt.Sprintf("%s%d", c.Color, c.Rank)
}

// Same reports whether two cards are the same physical piece, ignoring
// flip state.
func (c Card) Same(o Card) bool {
	return c.Color == o.Color && c.Joker == o.Joker && (c.Joker || c.Rank == o.Rank)
}

// virtualRank doubles the rank and nudges white by one so the
// black-before-white tie-break falls out of a single integer comparison.
// Only meaningful for non-joker cards.
func virtualRank(c Card) int {
	v := c.Rank * 2
	if c.Color == White {
		v++
	}
	return v
}

// Compare orders two non-joker cards: ascending rank, black before white
// on a tie. Undefined for jokers; sort predicates over player hands must
// exclude them.
func Compare(a, b Card) int {
	av, bv := virtualRank(a), virtualRank(b)
	switch {
	case av < bv:
		return -1
	case av > bv:
		return 1
	default:
		return 0
	}
}

// Deck is a stack of cards; Draw removes from the end.
type Deck struct {
	Cards []Card `json:"cards"`
}

// NewDeck builds the 13-card deck for one color: ranks 0..11 plus one joker.
func NewDeck(color Color) *Deck {
	cards := make([]Card, 0, MaxRank+2)
	for r := 0; r <= MaxRank; r++ {
		cards = append(cards, Card{Color: color, Rank: r})
	}
	cards = append(cards, Card{Color: color, Joker: true})
	return &Deck{Cards: cards}
}

func (d *Deck) Shuffle() {
	rand.Shuffle(len(d.Cards), func(i, j int) {
		d.Cards[i], d.Cards[j] = d.Cards[j], d.Cards[i]
	})
}

// Draw removes and returns the top card. ok is false when the deck is empty.
func (d *Deck) Draw() (Card, bool) {
	if len(d.Cards) == 0 {
		return Card{}, false
	}
	c := d.Cards[len(d.Cards)-1]
	d.Cards = d.Cards[:len(d.Cards)-1]
	return c, true
}

func (d *Deck) Len() int {
	return len(d.Cards)
}
