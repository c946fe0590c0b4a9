package game

import "errors"

var (
	ErrNoGame         = errors.New("no_game_state")
	ErrNotInGame      = errors.New("not_in_game")
	ErrNotYourTurn    = errors.New("not_your_turn")
	ErrWrongPhase     = errors.New("wrong_phase")
	ErrBadCardCount   = errors.New("bad_card_count")
	ErrBadOrder       = errors.New("bad_order")
	ErrBadIndex       = errors.New("bad_index")
	ErrDeckEmpty      = errors.New("deck_empty")
	ErrNothingPending = errors.New("nothing_pending")
	ErrPlacePending   = errors.New("placement_pending")
	ErrAlreadyFlipped = errors.New("already_flipped")
	ErrBadColor       = errors.New("bad_color")
	ErrBadGuess       = errors.New("bad_guess")
)
