package ws

import (
	"errors"
	"testing"

	"davinci-duel/internal/game"
	"davinci-duel/internal/store"
)

func TestWireCardNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   WireCard
		want game.Card
	}{
		{"numbered", WireCard{Color: "black", Rank: 5}, game.Card{Color: game.Black, Rank: 5}},
		{"tagged joker", WireCard{Color: "white", Joker: true}, game.Card{Color: game.White, Joker: true}},
		{"legacy rank -1 joker", WireCard{Color: "black", Rank: -1}, game.Card{Color: game.Black, Joker: true}},
		{"legacy joker drops rank", WireCard{Color: "white", Rank: -1, Joker: false}, game.Card{Color: game.White, Joker: true}},
	}
	for _, tc := range cases {
		got := tc.in.Normalize()
		if got != tc.want {
			t.Fatalf("%s: got %+v want %+v", tc.name, got, tc.want)
		}
	}
}

func TestNormalizeOrder(t *testing.T) {
	got := normalizeOrder([]WireCard{
		{Color: "black", Rank: 2},
		{Color: "black", Rank: -1},
	})
	if len(got) != 2 || got[0].Rank != 2 || !got[1].Joker {
		t.Fatalf("unexpected order: %v", got)
	}
}

func TestErrorMessageMapsSentinels(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{game.ErrNotYourTurn, "Not your turn."},
		{game.ErrPlacePending, "Place your drawn card first."},
		{store.ErrRoomFull, "Room is full."},
		{errors.New("pg: connection refused"), "Internal error."},
	}
	for _, tc := range cases {
		if got := errorMessage(tc.err); got != tc.want {
			t.Fatalf("errorMessage(%v)=%q want %q", tc.err, got, tc.want)
		}
	}
}
