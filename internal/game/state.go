package game

type Phase string

const (
	// PhaseChoose: decks are shuffled, players pick their black/white split.
	PhaseChoose Phase = "choose"
	// PhaseArrange: hands dealt, at least one player still owes a joker placement.
	PhaseArrange Phase = "arrange"
	// PhasePlay: color arrays exchanged, the draw/guess/end-turn loop runs.
	PhasePlay Phase = "play"
	PhaseDone Phase = "done"
)

// PlayerState is one player's private half of the game. Hand is ordered;
// only color and flip state of its entries ever reach the opponent.
type PlayerState struct {
	Hand            []Card `json:"hand"`
	ArrangementDone bool   `json:"arrangementDone"`
	BlackCount      int    `json:"blackCount"`
	WhiteCount      int    `json:"whiteCount"`
	LastDrawn       *Card  `json:"lastDrawn,omitempty"`
	// PendingPlace is set between an ambiguous draw and its arrangeNewCard.
	PendingPlace bool `json:"pendingPlace,omitempty"`
}

func (p *PlayerState) ChoseSplit() bool {
	return p.BlackCount+p.WhiteCount == InitialHandSize
}

// AllFlipped reports whether every card in the hand is face up.
func (p *PlayerState) AllFlipped() bool {
	for _, c := range p.Hand {
		if !c.Flipped {
			return false
		}
	}
	return len(p.Hand) > 0
}

// InitialHandSize is the number of cards each player starts with.
const InitialHandSize = 4

// GameState is the root aggregate for one room, serialized as a single
// blob in the shared store. Any in-memory copy is a transient borrow;
// mutations happen only under the room lock.
type GameState struct {
	Phase          Phase                  `json:"phase"`
	TurnOwner      int64                  `json:"turnOwner"`
	ColorsRevealed bool                   `json:"colorsRevealed"`
	Players        map[int64]*PlayerState `json:"players"`
	BlackDeck      *Deck                  `json:"blackDeck"`
	WhiteDeck      *Deck                  `json:"whiteDeck"`
}

// NewGameState seeds a fresh game for the given players with shuffled decks
// and a random first turn owner.
func NewGameState(playerIDs []int64, firstTurn int64) *GameState {
	players := make(map[int64]*PlayerState, len(playerIDs))
	for _, id := range playerIDs {
		players[id] = &PlayerState{}
	}
	black := NewDeck(Black)
	white := NewDeck(White)
	black.Shuffle()
	white.Shuffle()
	return &GameState{
		Phase:     PhaseChoose,
		TurnOwner: firstTurn,
		Players:   players,
		BlackDeck: black,
		WhiteDeck: white,
	}
}

// Opponent returns the other seated player's id. Rooms hold exactly two.
func (g *GameState) Opponent(userID int64) (int64, bool) {
	for id := range g.Players {
		if id != userID {
			return id, true
		}
	}
	return 0, false
}

func (g *GameState) Player(userID int64) (*PlayerState, bool) {
	p, ok := g.Players[userID]
	return p, ok
}

func (g *GameState) DeckFor(color Color) *Deck {
	if color == Black {
		return g.BlackDeck
	}
	return g.WhiteDeck
}

// CardView is the opponent-facing projection of a hand card: color and
// flip state always, rank only once flipped.
type CardView struct {
	Color   Color `json:"color"`
	Flipped bool  `json:"flipped"`
	Joker   bool  `json:"joker,omitempty"`
	Rank    *int  `json:"rank,omitempty"`
}

// OpponentView projects a hand for the other player. An unflipped joker is
// indistinguishable from a numbered card: a color-bearing slot.
func OpponentView(hand []Card) []CardView {
	out := make([]CardView, 0, len(hand))
	for _, c := range hand {
		v := CardView{Color: c.Color, Flipped: c.Flipped}
		if c.Flipped {
			v.Joker = c.Joker
			if !c.Joker {
				r := c.Rank
				v.Rank = &r
			}
		}
		out = append(out, v)
	}
	return out
}

// ColorArray is the reveal-gate payload: colors only, in hand order.
func ColorArray(hand []Card) []Color {
	out := make([]Color, 0, len(hand))
	for _, c := range hand {
		out = append(out, c.Color)
	}
	return out
}
