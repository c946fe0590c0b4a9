package game

import "sort"

// SortHand orders a hand by rank with the black-before-white tie-break.
// Jokers keep their relative position at the end of the slice; they are
// never auto-sorted between numbered cards, the player positions them.
func SortHand(hand []Card) {
	sort.SliceStable(hand, func(i, j int) bool {
		a, b := hand[i], hand[j]
		if a.Joker || b.Joker {
			// jokers sink to the back, preserving order among themselves
			return !a.Joker && b.Joker
		}
		return Compare(a, b) < 0
	})
}

// ValidOrder reports whether a hand satisfies the ordering invariant: the
// non-joker subsequence is strictly ascending by rank with black before
// white on ties. Jokers may sit anywhere.
func ValidOrder(hand []Card) bool {
	prev := -1
	for _, c := range hand {
		if c.Joker {
			continue
		}
		v := virtualRank(c)
		if prev >= 0 && v <= prev {
			return false
		}
		prev = v
	}
	return true
}

// LegalInsertIndices returns every index at which card can be inserted into
// hand without breaking the ordering invariant, sorted ascending. A joker
// run bounded by ranks L and R admits a card with rank in [L, R] at any
// position spanning the run; a run at a hand boundary is open on that side.
// Without a constraining run exactly one index comes back.
//
// Checking the invariant on the non-joker subsequence of each candidate
// insertion yields exactly that set, so no run bookkeeping is needed.
func LegalInsertIndices(hand []Card, card Card) []int {
	if card.Joker {
		return AllInsertIndices(hand)
	}
	var legal []int
	for i := 0; i <= len(hand); i++ {
		trial := make([]Card, 0, len(hand)+1)
		trial = append(trial, hand[:i]...)
		trial = append(trial, card)
		trial = append(trial, hand[i:]...)
		if ValidOrder(trial) {
			legal = append(legal, i)
		}
	}
	return legal
}

// AllInsertIndices lists every position in the hand, 0 through len(hand).
// A drawn joker has no rank to compare, so every slot is legal.
func AllInsertIndices(hand []Card) []int {
	idx := make([]int, len(hand)+1)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// InsertAt returns a new hand with card inserted at index i.
func InsertAt(hand []Card, card Card, i int) []Card {
	out := make([]Card, 0, len(hand)+1)
	out = append(out, hand[:i]...)
	out = append(out, card)
	out = append(out, hand[i:]...)
	return out
}

// IsPermutation reports whether newOrder is a reordering of hand: same
// length, same multiset of pieces, nothing invented or missing.
func IsPermutation(hand, newOrder []Card) bool {
	if len(hand) != len(newOrder) {
		return false
	}
	used := make([]bool, len(hand))
	for _, c := range newOrder {
		found := false
		for i, o := range hand {
			if !used[i] && c.Same(o) {
				used[i] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// FindNewCard returns the index in newOrder of the one card absent from
// oldHand, or -1 when the two hold the same pieces.
func FindNewCard(oldHand, newOrder []Card) int {
	for i, c := range newOrder {
		present := false
		for _, o := range oldHand {
			if c.Same(o) {
				present = true
				break
			}
		}
		if !present {
			return i
		}
	}
	return -1
}
