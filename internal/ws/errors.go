package ws

import (
	"errors"

	"davinci-duel/internal/game"
	"davinci-duel/internal/store"
)

// errorMessage maps sentinel errors to the human-readable strings clients
// display. Anything unrecognized stays opaque.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, game.ErrNoGame):
		return "No game is running in this room."
	case errors.Is(err, game.ErrNotInGame):
		return "You are not part of this game."
	case errors.Is(err, game.ErrNotYourTurn):
		return "Not your turn."
	case errors.Is(err, game.ErrWrongPhase):
		return "That action is not allowed right now."
	case errors.Is(err, game.ErrBadCardCount):
		return "Black and white counts must add up to four."
	case errors.Is(err, game.ErrBadOrder):
		return "That arrangement is not valid."
	case errors.Is(err, game.ErrBadIndex):
		return "Card index out of range."
	case errors.Is(err, game.ErrDeckEmpty):
		return "That deck is empty."
	case errors.Is(err, game.ErrNothingPending):
		return "There is no drawn card to place."
	case errors.Is(err, game.ErrPlacePending):
		return "Place your drawn card first."
	case errors.Is(err, game.ErrAlreadyFlipped):
		return "That card is already revealed."
	case errors.Is(err, game.ErrBadColor):
		return "Pick the black or the white deck."
	case errors.Is(err, game.ErrBadGuess):
		return "Guess a rank between 0 and 11, or the joker."
	case errors.Is(err, store.ErrNotFound):
		return "Room not found."
	case errors.Is(err, store.ErrRoomFull):
		return "Room is full."
	case errors.Is(err, store.ErrAlreadyInRoom):
		return "You are already in a room."
	case errors.Is(err, store.ErrNotInRoom):
		return "You are not in this room."
	default:
		return "Internal error."
	}
}
