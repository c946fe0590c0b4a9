package game

import (
	"reflect"
	"testing"
)

func b(rank int) Card { return Card{Color: Black, Rank: rank} }
func w(rank int) Card { return Card{Color: White, Rank: rank} }
func bj() Card        { return Card{Color: Black, Joker: true} }

func TestSortHandOrdersWithTieBreak(t *testing.T) {
	hand := []Card{w(5), b(5), b(2), w(0)}
	SortHand(hand)
	want := []Card{w(0), b(2), b(5), w(5)}
	if !reflect.DeepEqual(hand, want) {
		t.Fatalf("got %v want %v", hand, want)
	}
}

func TestSortHandJokersSinkToBack(t *testing.T) {
	hand := []Card{bj(), b(7), b(1)}
	SortHand(hand)
	if !hand[2].Joker {
		t.Fatalf("joker must end up last: %v", hand)
	}
	if hand[0].Rank != 1 || hand[1].Rank != 7 {
		t.Fatalf("numbered cards unsorted: %v", hand)
	}
}

func TestValidOrder(t *testing.T) {
	cases := []struct {
		name string
		hand []Card
		want bool
	}{
		{"ascending", []Card{b(0), w(3), b(8)}, true},
		{"tie black first", []Card{b(5), w(5)}, true},
		{"tie white first", []Card{w(5), b(5)}, false},
		{"descending pair", []Card{b(8), b(3)}, false},
		{"joker anywhere", []Card{b(0), bj(), b(1)}, true},
		{"joker leading", []Card{bj(), b(0)}, true},
		{"empty", nil, true},
	}
	for _, tc := range cases {
		if got := ValidOrder(tc.hand); got != tc.want {
			t.Fatalf("%s: ValidOrder=%v want %v", tc.name, got, tc.want)
		}
	}
}

func TestLegalInsertIndicesUniqueSlot(t *testing.T) {
	hand := []Card{b(1), b(4), b(9)}
	got := LegalInsertIndices(hand, b(6))
	if !reflect.DeepEqual(got, []int{2}) {
		t.Fatalf("expected single index 2, got %v", got)
	}
}

// A joker sitting between ranks widens the legal range: any card whose rank
// falls inside the run's bounds may land on either side of the joker.
func TestLegalInsertIndicesJokerRun(t *testing.T) {
	hand := []Card{b(0), bj(), b(5)}

	got := LegalInsertIndices(hand, b(3))
	if !reflect.DeepEqual(got, []int{1, 2}) {
		t.Fatalf("rank 3 expected {1,2}, got %v", got)
	}

	got = LegalInsertIndices(hand, b(7))
	if !reflect.DeepEqual(got, []int{3}) {
		t.Fatalf("rank 7 expected {3}, got %v", got)
	}
}

func TestLegalInsertIndicesTieBreakAtBoundary(t *testing.T) {
	hand := []Card{b(5)}
	// white 5 sorts after black 5, so only the slot behind it is legal
	got := LegalInsertIndices(hand, w(5))
	if !reflect.DeepEqual(got, []int{1}) {
		t.Fatalf("white 5 vs black 5 expected {1}, got %v", got)
	}
	got = LegalInsertIndices([]Card{w(5)}, b(5))
	if !reflect.DeepEqual(got, []int{0}) {
		t.Fatalf("black 5 vs white 5 expected {0}, got %v", got)
	}
}

func TestLegalInsertIndicesJokerCard(t *testing.T) {
	hand := []Card{b(2), b(8)}
	got := LegalInsertIndices(hand, bj())
	if !reflect.DeepEqual(got, []int{0, 1, 2}) {
		t.Fatalf("joker expected every slot, got %v", got)
	}
}

func TestIsPermutation(t *testing.T) {
	hand := []Card{b(1), w(1), bj()}
	if !IsPermutation(hand, []Card{bj(), w(1), b(1)}) {
		t.Fatalf("reordering rejected")
	}
	if IsPermutation(hand, []Card{b(1), w(1)}) {
		t.Fatalf("short order accepted")
	}
	if IsPermutation(hand, []Card{b(1), b(1), bj()}) {
		t.Fatalf("duplicated piece accepted")
	}
}

func TestFindNewCard(t *testing.T) {
	oldHand := []Card{b(1), b(4)}
	newOrder := []Card{b(1), b(3), b(4)}
	if got := FindNewCard(oldHand, newOrder); got != 1 {
		t.Fatalf("expected index 1, got %d", got)
	}
	if got := FindNewCard(oldHand, []Card{b(4), b(1)}); got != -1 {
		t.Fatalf("expected -1 for same pieces, got %d", got)
	}
}

func TestInsertAt(t *testing.T) {
	hand := []Card{b(1), b(4)}
	got := InsertAt(hand, b(2), 1)
	want := []Card{b(1), b(2), b(4)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
	if len(hand) != 2 {
		t.Fatalf("original hand mutated")
	}
}
