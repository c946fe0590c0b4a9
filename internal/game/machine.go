package game

import (
	"context"
	"errors"
	"math/rand"
)

// StateStore is the persistence surface the machine drives: one game blob
// plus ready flags per room. Implemented by gamestate.Store.
type StateStore interface {
	Load(ctx context.Context, roomID int64) (*GameState, error)
	Save(ctx context.Context, roomID int64, st *GameState) error
	SetReady(ctx context.Context, roomID, userID int64) error
	IsReady(ctx context.Context, roomID, userID int64) (bool, error)
	ClearRoom(ctx context.Context, roomID int64, userIDs []int64) error
}

// Locker serializes the load-mutate-save cycles of one room.
type Locker interface {
	With(roomID int64, fn func() error) error
}

// RoomDirectory answers who is seated in a room. Backed by the lobby's
// relational storage, consumed here at the interface boundary only.
type RoomDirectory interface {
	PlayersInRoom(ctx context.Context, roomID int64) ([]int64, error)
}

// Machine applies the game's phase transitions and turn rules. Every
// operation is a single load-mutate-save cycle under the room lock; on any
// validation failure the shared state is left untouched.
type Machine struct {
	store StateStore
	locks Locker
	rooms RoomDirectory
}

func NewMachine(store StateStore, locks Locker, rooms RoomDirectory) *Machine {
	return &Machine{store: store, locks: locks, rooms: rooms}
}

type ReadyResult struct {
	// Started is true for exactly one of the two racing setReady calls.
	Started   bool
	FirstTurn int64
	Players   []int64
}

// SetReady records the caller's ready flag and, once every occupant of the
// full room is ready, creates the game. Both players' calls race to
// perform the check; the room lock plus the existing-state test make the
// transition fire exactly once.
func (m *Machine) SetReady(ctx context.Context, roomID, userID int64) (*ReadyResult, error) {
	res := &ReadyResult{}
	err := m.locks.With(roomID, func() error {
		if err := m.store.SetReady(ctx, roomID, userID); err != nil {
			return err
		}
		players, err := m.rooms.PlayersInRoom(ctx, roomID)
		if err != nil {
			return err
		}
		res.Players = players
		if len(players) != 2 {
			return nil
		}
		for _, pid := range players {
			ready, err := m.store.IsReady(ctx, roomID, pid)
			if err != nil {
				return err
			}
			if !ready {
				return nil
			}
		}
		if _, err := m.store.Load(ctx, roomID); err == nil {
			// the other player's call already fired the transition
			return nil
		} else if !errors.Is(err, ErrNoGame) {
			return err
		}
		first := players[rand.Intn(len(players))]
		st := NewGameState(players, first)
		if err := m.store.Save(ctx, roomID, st); err != nil {
			return err
		}
		res.Started = true
		res.FirstTurn = first
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// RevealInfo carries the one-shot color-array exchange, keyed by recipient.
type RevealInfo struct {
	Colors map[int64][]Color
	Turn   int64
}

func reveal(st *GameState) *RevealInfo {
	info := &RevealInfo{Colors: map[int64][]Color{}, Turn: st.TurnOwner}
	for id, p := range st.Players {
		opp, _ := st.Opponent(id)
		info.Colors[opp] = ColorArray(p.Hand)
	}
	return info
}

// fireRevealGate flips the game into the play phase once both arrangements
// are done. Guarded by the persisted ColorsRevealed flag so racing
// completions push the bulk opponent view at most once.
func fireRevealGate(st *GameState) *RevealInfo {
	if st.ColorsRevealed {
		return nil
	}
	for _, p := range st.Players {
		if !p.ArrangementDone {
			return nil
		}
	}
	st.ColorsRevealed = true
	st.Phase = PhasePlay
	return reveal(st)
}

type ChooseResult struct {
	Dealt bool
	// Hands holds each player's private dealt hand, keyed by owner.
	Hands map[int64][]Card
	// NeedArrange marks hands holding a joker that still wants placing.
	NeedArrange map[int64]bool
	Reveal      *RevealInfo
}

// ChooseInitialCards stores the caller's black/white split (must sum to
// four) and deals both hands once both splits are in.
func (m *Machine) ChooseInitialCards(ctx context.Context, roomID, userID int64, blackCount, whiteCount int) (*ChooseResult, error) {
	if blackCount < 0 || whiteCount < 0 || blackCount+whiteCount != InitialHandSize {
		return nil, ErrBadCardCount
	}
	res := &ChooseResult{}
	err := m.locks.With(roomID, func() error {
		st, err := m.store.Load(ctx, roomID)
		if err != nil {
			return err
		}
		if st.Phase != PhaseChoose {
			return ErrWrongPhase
		}
		p, ok := st.Player(userID)
		if !ok {
			return ErrNotInGame
		}
		p.BlackCount = blackCount
		p.WhiteCount = whiteCount

		for _, ps := range st.Players {
			if !ps.ChoseSplit() {
				return m.store.Save(ctx, roomID, st)
			}
		}

		res.Hands = map[int64][]Card{}
		res.NeedArrange = map[int64]bool{}
		for id, ps := range st.Players {
			hand := make([]Card, 0, InitialHandSize)
			for i := 0; i < ps.BlackCount; i++ {
				c, ok := st.BlackDeck.Draw()
				if !ok {
					return ErrDeckEmpty
				}
				hand = append(hand, c)
			}
			for i := 0; i < ps.WhiteCount; i++ {
				c, ok := st.WhiteDeck.Draw()
				if !ok {
					return ErrDeckEmpty
				}
				hand = append(hand, c)
			}
			SortHand(hand)
			ps.Hand = hand
			hasJoker := false
			for _, c := range hand {
				if c.Joker {
					hasJoker = true
					break
				}
			}
			ps.ArrangementDone = !hasJoker
			res.Hands[id] = hand
			res.NeedArrange[id] = hasJoker
		}
		st.Phase = PhaseArrange
		res.Dealt = true
		res.Reveal = fireRevealGate(st)
		return m.store.Save(ctx, roomID, st)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

type ArrangeResult struct {
	Hand   []Card
	Reveal *RevealInfo
}

// ArrangeHand accepts a full reordering of the caller's dealt hand. The
// submission must be a permutation of the dealt pieces and keep the
// non-joker cards in order; anything else is rejected with no state change.
func (m *Machine) ArrangeHand(ctx context.Context, roomID, userID int64, newOrder []Card) (*ArrangeResult, error) {
	res := &ArrangeResult{}
	err := m.locks.With(roomID, func() error {
		st, err := m.store.Load(ctx, roomID)
		if err != nil {
			return err
		}
		if st.Phase != PhaseArrange {
			return ErrWrongPhase
		}
		p, ok := st.Player(userID)
		if !ok {
			return ErrNotInGame
		}
		hand, err := rebuildOrder(p.Hand, newOrder)
		if err != nil {
			return err
		}
		p.Hand = hand
		p.ArrangementDone = true
		res.Hand = hand
		res.Reveal = fireRevealGate(st)
		return m.store.Save(ctx, roomID, st)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// rebuildOrder validates a client-submitted permutation and re-materializes
// it from the server-held pieces, so flip state can never be forged.
func rebuildOrder(hand, newOrder []Card) ([]Card, error) {
	if !IsPermutation(hand, newOrder) {
		return nil, ErrBadOrder
	}
	if !ValidOrder(newOrder) {
		return nil, ErrBadOrder
	}
	out := make([]Card, 0, len(hand))
	used := make([]bool, len(hand))
	for _, c := range newOrder {
		for i, o := range hand {
			if !used[i] && c.Same(o) {
				used[i] = true
				out = append(out, o)
				break
			}
		}
	}
	return out, nil
}

type DrawResult struct {
	Card Card
	// Placed is true when the resolver found a single legal index and the
	// card went straight into the hand.
	Placed  bool
	Index   int
	Choices []int
	Hand    []Card
	DeckLen int
}

// Draw pops a card off the chosen deck for the turn owner. An unambiguous
// numbered card is placed automatically; a joker or an ambiguous card
// leaves a pending placement the player resolves via PlaceDrawn.
func (m *Machine) Draw(ctx context.Context, roomID, userID int64, color Color) (*DrawResult, error) {
	if color != Black && color != White {
		return nil, ErrBadColor
	}
	res := &DrawResult{}
	err := m.locks.With(roomID, func() error {
		st, err := m.store.Load(ctx, roomID)
		if err != nil {
			return err
		}
		if st.Phase != PhasePlay {
			return ErrWrongPhase
		}
		if st.TurnOwner != userID {
			return ErrNotYourTurn
		}
		p, ok := st.Player(userID)
		if !ok {
			return ErrNotInGame
		}
		if p.PendingPlace {
			return ErrPlacePending
		}
		card, ok := st.DeckFor(color).Draw()
		if !ok {
			return ErrDeckEmpty
		}
		p.LastDrawn = &card
		res.Card = card
		res.DeckLen = st.DeckFor(color).Len()

		legal := LegalInsertIndices(p.Hand, card)
		if !card.Joker && len(legal) == 1 {
			p.Hand = InsertAt(p.Hand, card, legal[0])
			res.Placed = true
			res.Index = legal[0]
			res.Hand = p.Hand
		} else {
			p.PendingPlace = true
			res.Choices = legal
			res.Hand = p.Hand
		}
		return m.store.Save(ctx, roomID, st)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

type PlaceResult struct {
	Card  Card
	Index int
	Hand  []Card
}

// PlaceDrawn resolves a pending placement with a full reordering of the
// hand plus the drawn card.
func (m *Machine) PlaceDrawn(ctx context.Context, roomID, userID int64, newOrder []Card) (*PlaceResult, error) {
	res := &PlaceResult{}
	err := m.locks.With(roomID, func() error {
		st, err := m.store.Load(ctx, roomID)
		if err != nil {
			return err
		}
		if st.Phase != PhasePlay {
			return ErrWrongPhase
		}
		p, ok := st.Player(userID)
		if !ok {
			return ErrNotInGame
		}
		if !p.PendingPlace || p.LastDrawn == nil {
			return ErrNothingPending
		}
		expected := append(append([]Card{}, p.Hand...), *p.LastDrawn)
		hand, err := rebuildOrder(expected, newOrder)
		if err != nil {
			return err
		}
		idx := FindNewCard(p.Hand, hand)
		if idx < 0 {
			return ErrBadOrder
		}
		p.Hand = hand
		p.PendingPlace = false
		res.Card = *p.LastDrawn
		res.Index = idx
		res.Hand = hand
		return m.store.Save(ctx, roomID, st)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

type Penalty struct {
	Index int
	Card  Card
}

type GuessResult struct {
	Correct bool
	// Index and Rank echo the guess; on a correct guess Card is the target
	// with its rank now public. A wrong guess never exposes the target.
	Index    int
	Rank     int
	Joker    bool
	Card     Card
	Penalty  *Penalty
	NextTurn int64
	Finished bool
	Winner   int64
	Loser    int64
	Players  []int64
}

// Guess resolves a rank guess against the opponent's hand. Correct: the
// target flips and the turn stays with the guesser. Wrong: the guesser's
// most recently drawn card flips as penalty and the turn passes. Either
// flip can satisfy the all-flipped condition and end the game, in which
// case the room's persisted state and ready flags are purged.
func (m *Machine) Guess(ctx context.Context, roomID, userID int64, cardIndex, rank int, joker bool) (*GuessResult, error) {
	if !joker && (rank < 0 || rank > MaxRank) {
		return nil, ErrBadGuess
	}
	res := &GuessResult{Index: cardIndex, Rank: rank, Joker: joker}
	err := m.locks.With(roomID, func() error {
		st, err := m.store.Load(ctx, roomID)
		if err != nil {
			return err
		}
		if st.Phase != PhasePlay {
			return ErrWrongPhase
		}
		if st.TurnOwner != userID {
			return ErrNotYourTurn
		}
		p, ok := st.Player(userID)
		if !ok {
			return ErrNotInGame
		}
		if p.PendingPlace {
			return ErrPlacePending
		}
		oppID, ok := st.Opponent(userID)
		if !ok {
			return ErrNotInGame
		}
		opp := st.Players[oppID]
		if cardIndex < 0 || cardIndex >= len(opp.Hand) {
			return ErrBadIndex
		}
		target := &opp.Hand[cardIndex]
		if target.Flipped {
			return ErrAlreadyFlipped
		}

		for id := range st.Players {
			res.Players = append(res.Players, id)
		}
		res.NextTurn = st.TurnOwner

		correct := target.Joker == joker && (joker || target.Rank == rank)
		if correct {
			target.Flipped = true
			res.Correct = true
			res.Card = *target
			if opp.AllFlipped() {
				st.Phase = PhaseDone
				res.Finished = true
				res.Winner = userID
				res.Loser = oppID
				return m.store.ClearRoom(ctx, roomID, res.Players)
			}
			return m.store.Save(ctx, roomID, st)
		}

		// wrong guess: flip own last-drawn card, pass the turn
		if p.LastDrawn != nil {
			for i := range p.Hand {
				if !p.Hand[i].Flipped && p.Hand[i].Same(*p.LastDrawn) {
					p.Hand[i].Flipped = true
					res.Penalty = &Penalty{Index: i, Card: p.Hand[i]}
					break
				}
			}
		}
		st.TurnOwner = oppID
		res.NextTurn = oppID
		if p.AllFlipped() {
			st.Phase = PhaseDone
			res.Finished = true
			res.Winner = oppID
			res.Loser = userID
			return m.store.ClearRoom(ctx, roomID, res.Players)
		}
		return m.store.Save(ctx, roomID, st)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

type TurnResult struct {
	Next int64
}

// EndTurn is the voluntary pass, valid only for the current turn owner
// with no placement pending.
func (m *Machine) EndTurn(ctx context.Context, roomID, userID int64) (*TurnResult, error) {
	res := &TurnResult{}
	err := m.locks.With(roomID, func() error {
		st, err := m.store.Load(ctx, roomID)
		if err != nil {
			return err
		}
		if st.Phase != PhasePlay {
			return ErrWrongPhase
		}
		if st.TurnOwner != userID {
			return ErrNotYourTurn
		}
		if p, ok := st.Player(userID); ok && p.PendingPlace {
			return ErrPlacePending
		}
		oppID, ok := st.Opponent(userID)
		if !ok {
			return ErrNotInGame
		}
		st.TurnOwner = oppID
		res.Next = oppID
		return m.store.Save(ctx, roomID, st)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

type SyncResult struct {
	Phase        Phase
	Hand         []Card
	NeedArrange  bool
	PendingPlace bool
	Drawn        *Card
	Choices      []int
	// Opponent is present only once the reveal gate has fired; it goes
	// through the same projection as live play, so nothing extra leaks.
	Opponent []CardView
	Revealed bool
	Turn     int64
	BlackLen int
	WhiteLen int
}

// Resync rebuilds one player's full view of a running game, used when a
// reconnecting client rejoins the room. Read-only.
func (m *Machine) Resync(ctx context.Context, roomID, userID int64) (*SyncResult, error) {
	res := &SyncResult{}
	err := m.locks.With(roomID, func() error {
		st, err := m.store.Load(ctx, roomID)
		if err != nil {
			return err
		}
		p, ok := st.Player(userID)
		if !ok {
			return ErrNotInGame
		}
		res.Phase = st.Phase
		res.Hand = p.Hand
		res.NeedArrange = st.Phase == PhaseArrange && !p.ArrangementDone
		res.PendingPlace = p.PendingPlace
		if p.PendingPlace && p.LastDrawn != nil {
			drawn := *p.LastDrawn
			res.Drawn = &drawn
			res.Choices = LegalInsertIndices(p.Hand, drawn)
		}
		if st.ColorsRevealed {
			res.Revealed = true
			res.Turn = st.TurnOwner
			if oppID, ok := st.Opponent(userID); ok {
				res.Opponent = OpponentView(st.Players[oppID].Hand)
			}
		}
		res.BlackLen = st.BlackDeck.Len()
		res.WhiteLen = st.WhiteDeck.Len()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Purge drops a room's game state and ready flags, used on room teardown.
func (m *Machine) Purge(ctx context.Context, roomID int64, userIDs []int64) error {
	return m.locks.With(roomID, func() error {
		return m.store.ClearRoom(ctx, roomID, userIDs)
	})
}
