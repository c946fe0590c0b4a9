package ws

import "davinci-duel/internal/game"

// Inbound payloads. Every event carries the envelope Type plus the room it
// targets; the connection itself supplies the player identity.

type Envelope struct {
	Type string `json:"type"`
}

type RoomMessage struct {
	Type   string `json:"type"`
	RoomID int64  `json:"roomId"`
}

type ChatMessage struct {
	Type    string `json:"type"`
	RoomID  int64  `json:"roomId"`
	Message string `json:"message"`
}

type InitialCardsMessage struct {
	Type       string `json:"type"`
	RoomID     int64  `json:"roomId"`
	BlackCount int    `json:"blackCount"`
	WhiteCount int    `json:"whiteCount"`
}

type ArrangeMessage struct {
	Type     string     `json:"type"`
	RoomID   int64      `json:"roomId"`
	NewOrder []WireCard `json:"newOrder"`
}

type DrawMessage struct {
	Type   string `json:"type"`
	RoomID int64  `json:"roomId"`
	Color  string `json:"color"`
}

type GuessMessage struct {
	Type      string `json:"type"`
	RoomID    int64  `json:"roomId"`
	CardIndex int    `json:"cardIndex"`
	// CardNumber names a rank 0..11, or -1 for the joker.
	CardNumber int `json:"cardNumber"`
}

// WireCard is the client-side card form. Clients may name a joker either
// with the joker flag or with the legacy rank -1; Normalize folds both
// into the tagged representation.
type WireCard struct {
	Color string `json:"color"`
	Rank  int    `json:"rank"`
	Joker bool   `json:"joker"`
}

func (w WireCard) Normalize() game.Card {
	c := game.Card{Color: game.Color(w.Color), Rank: w.Rank, Joker: w.Joker}
	if w.Rank == -1 {
		c.Joker = true
		c.Rank = 0
	}
	return c
}

func normalizeOrder(order []WireCard) []game.Card {
	out := make([]game.Card, 0, len(order))
	for _, w := range order {
		out = append(out, w.Normalize())
	}
	return out
}

// Outbound events.

type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type ChatEvent struct {
	Type     string `json:"type"`
	SenderID int64  `json:"senderId,omitempty"`
	Sender   string `json:"sender"`
	Message  string `json:"message"`
}

type ReadyEvent struct {
	Type   string `json:"type"`
	UserID int64  `json:"userId"`
	Ready  bool   `json:"ready"`
}

type GameStartEvent struct {
	Type          string `json:"type"`
	StarterUserID int64  `json:"starterUserId"`
	StarterName   string `json:"starterName,omitempty"`
}

// HandDeckEvent privately delivers the owner's full hand, ranks included.
type HandDeckEvent struct {
	Type        string      `json:"type"`
	Hand        []game.Card `json:"hand"`
	NeedArrange bool        `json:"needArrange"`
}

// ArrangeCardEvent prompts the drawer to place an ambiguous or joker card.
type ArrangeCardEvent struct {
	Type    string      `json:"type"`
	Card    game.Card   `json:"card"`
	Choices []int       `json:"choices"`
	Hand    []game.Card `json:"hand"`
}

// DrawCardEvent privately confirms a draw to the acting player; only they
// ever learn the card's rank before a flip.
type DrawCardEvent struct {
	Type    string      `json:"type"`
	Card    game.Card   `json:"card"`
	Placed  bool        `json:"placed"`
	Index   int         `json:"index,omitempty"`
	Hand    []game.Card `json:"hand"`
	DeckLen int         `json:"deckLen"`
}

// OpponentCardEvent tells the rest of the room where a drawn card landed:
// color and index only, never the rank.
type OpponentCardEvent struct {
	Type   string       `json:"type"`
	UserID int64        `json:"userId"`
	Color  game.Color   `json:"color"`
	Index  int          `json:"index"`
	Colors []game.Color `json:"colors"`
}

// OpponentColorsEvent is the one-shot reveal-gate payload: the opponent's
// hand as a color array, ranks withheld.
type OpponentColorsEvent struct {
	Type       string       `json:"type"`
	Colors     []game.Color `json:"colors"`
	TurnUserID int64        `json:"turnUserId"`
}

type CorrectGuessEvent struct {
	Type      string    `json:"type"`
	UserID    int64     `json:"userId"`
	CardIndex int       `json:"cardIndex"`
	Card      game.Card `json:"card"`
}

type WrongGuessEvent struct {
	Type       string `json:"type"`
	UserID     int64  `json:"userId"`
	CardIndex  int    `json:"cardIndex"`
	CardNumber int    `json:"cardNumber"`
}

// CardFlippedEvent announces a penalty flip in the guesser's own hand.
type CardFlippedEvent struct {
	Type   string    `json:"type"`
	UserID int64     `json:"userId"`
	Index  int       `json:"index"`
	Card   game.Card `json:"card"`
}

// GameSyncEvent rebuilds a reconnecting player's view of a running game:
// their own hand in full, the opponent's through the flip-gated projection.
type GameSyncEvent struct {
	Type         string          `json:"type"`
	Phase        game.Phase      `json:"phase"`
	Hand         []game.Card     `json:"hand"`
	NeedArrange  bool            `json:"needArrange"`
	PendingPlace bool            `json:"pendingPlace"`
	Drawn        *game.Card      `json:"drawn,omitempty"`
	Choices      []int           `json:"choices,omitempty"`
	Opponent     []game.CardView `json:"opponent,omitempty"`
	TurnUserID   int64           `json:"turnUserId,omitempty"`
	BlackLen     int             `json:"blackLen"`
	WhiteLen     int             `json:"whiteLen"`
}

type NowTurnEvent struct {
	Type       string `json:"type"`
	TurnUserID int64  `json:"turnUserId"`
	TurnName   string `json:"turnName,omitempty"`
}

type GameOverEvent struct {
	Type     string `json:"type"`
	Result   string `json:"result"`
	WinnerID int64  `json:"winnerId"`
	MatchID  string `json:"matchId,omitempty"`
}
