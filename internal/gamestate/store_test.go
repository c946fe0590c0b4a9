package gamestate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"davinci-duel/internal/game"
)

func TestStoreRoundtrip(t *testing.T) {
	ctx := context.Background()
	st := NewStore(NewMemory())

	g := game.NewGameState([]int64{1, 2}, 1)
	g.Players[1].Hand = []game.Card{{Color: game.Black, Rank: 3}, {Color: game.Black, Joker: true}}
	if err := st.Save(ctx, 7, g); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := st.Load(ctx, 7)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Phase != game.PhaseChoose || loaded.TurnOwner != 1 {
		t.Fatalf("roundtrip mangled state: %+v", loaded)
	}
	hand := loaded.Players[1].Hand
	if len(hand) != 2 || hand[0].Rank != 3 || !hand[1].Joker {
		t.Fatalf("roundtrip mangled hand: %v", hand)
	}
	if loaded.BlackDeck.Len() != game.MaxRank+2 {
		t.Fatalf("deck lost cards: %d", loaded.BlackDeck.Len())
	}
}

func TestLoadMissingRoomIsNoGame(t *testing.T) {
	st := NewStore(NewMemory())
	if _, err := st.Load(context.Background(), 404); !errors.Is(err, game.ErrNoGame) {
		t.Fatalf("expected ErrNoGame, got %v", err)
	}
}

func TestReadyFlags(t *testing.T) {
	ctx := context.Background()
	st := NewStore(NewMemory())

	ready, err := st.IsReady(ctx, 1, 10)
	if err != nil || ready {
		t.Fatalf("unset flag should read false, got %v %v", ready, err)
	}
	if err := st.SetReady(ctx, 1, 10); err != nil {
		t.Fatalf("set ready: %v", err)
	}
	ready, err = st.IsReady(ctx, 1, 10)
	if err != nil || !ready {
		t.Fatalf("flag should read true, got %v %v", ready, err)
	}
	// flags are scoped per room and user
	if ready, _ := st.IsReady(ctx, 1, 20); ready {
		t.Fatalf("other user's flag leaked")
	}
	if ready, _ := st.IsReady(ctx, 2, 10); ready {
		t.Fatalf("other room's flag leaked")
	}
}

func TestClearRoomDropsStateAndFlags(t *testing.T) {
	ctx := context.Background()
	st := NewStore(NewMemory())

	g := game.NewGameState([]int64{10, 20}, 10)
	if err := st.Save(ctx, 3, g); err != nil {
		t.Fatalf("save: %v", err)
	}
	_ = st.SetReady(ctx, 3, 10)
	_ = st.SetReady(ctx, 3, 20)

	if err := st.ClearRoom(ctx, 3, []int64{10, 20}); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := st.Load(ctx, 3); !errors.Is(err, game.ErrNoGame) {
		t.Fatalf("state survived clear: %v", err)
	}
	for _, uid := range []int64{10, 20} {
		if ready, _ := st.IsReady(ctx, 3, uid); ready {
			t.Fatalf("ready flag for %d survived clear", uid)
		}
	}
}

func TestMemoryTTLExpires(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.Set(ctx, "k", "v", time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := m.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestRoomLocksSerializePerRoom(t *testing.T) {
	locks := NewRoomLocks()
	var counter int
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = locks.With(1, func() error {
				counter++
				return nil
			})
		}()
	}
	wg.Wait()
	if counter != 50 {
		t.Fatalf("lost increments under room lock: %d", counter)
	}
}

func TestRoomLocksIndependentRooms(t *testing.T) {
	locks := NewRoomLocks()
	release := make(chan struct{})
	held := make(chan struct{})
	go func() {
		_ = locks.With(1, func() error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	done := make(chan struct{})
	go func() {
		_ = locks.With(2, func() error { return nil })
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("room 2 blocked behind room 1's lock")
	}
	close(release)
}
