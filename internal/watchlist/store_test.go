package watchlist

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"coinwatch/internal/market"
	"coinwatch/pkg/coingecko"
	"coinwatch/pkg/storage/memory"

	"go.uber.org/zap"
)

// scriptedFetcher returns the queued responses in order; the last one repeats.
type scriptedFetcher struct {
	mu        sync.Mutex
	responses []fetchResponse
	calls     int
}

type fetchResponse struct {
	coins []market.Coin
	err   error
}

func (f *scriptedFetcher) push(coins []market.Coin, err error) *scriptedFetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, fetchResponse{coins: coins, err: err})
	return f
}

func (f *scriptedFetcher) Fetch(ctx context.Context) ([]market.Coin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	f.calls++
	r := f.responses[i]
	return r.coins, r.err
}

// failingPrefs fails every read and write.
type failingPrefs struct{}

func (failingPrefs) LoadWatchlist(ctx context.Context) ([]string, error) {
	return nil, errors.New("disk unavailable")
}

func (failingPrefs) SaveWatchlist(ctx context.Context, ids []string) error {
	return errors.New("disk unavailable")
}

func coins(ids ...string) []market.Coin {
	out := make([]market.Coin, len(ids))
	for i, id := range ids {
		out[i] = market.Coin{ID: id, Symbol: id, Name: id, CurrentPrice: float64(i + 1)}
	}
	return out
}

func coinIDs(cs []market.Coin) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}

func assertIDs(t *testing.T, what string, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: expected %v, got %v", what, want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("%s: expected %v, got %v", what, want, got)
		}
	}
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := append([]string(nil), a...)
	y := append([]string(nil), b...)
	sort.Strings(x)
	sort.Strings(y)
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

// go test -v --run TestRefreshSuccess
func TestRefreshSuccess(t *testing.T) {
	fetcher := (&scriptedFetcher{}).push(coins("bitcoin", "ethereum", "solana"), nil)
	store := NewStore(context.Background(), fetcher, memory.NewStore("watchlist"), zap.NewNop())

	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if n := len(store.AllCoins()); n != 3 {
		t.Errorf("expected 3 coins, got %d", n)
	}
	if msg, ok := store.LastError(); ok {
		t.Errorf("expected no error, got %q", msg)
	}
	if store.IsLoading() {
		t.Error("loading flag left set")
	}
}

// go test -v --run TestRefreshFailureKeepsCoins
func TestRefreshFailureKeepsCoins(t *testing.T) {
	fetcher := (&scriptedFetcher{}).
		push(coins("bitcoin", "ethereum"), nil).
		push(nil, errors.New("connection reset"))
	prefs := memory.NewStore("watchlist").Seed("ethereum")
	store := NewStore(context.Background(), fetcher, prefs, zap.NewNop())

	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	if err := store.Refresh(context.Background()); err == nil {
		t.Fatal("expected second refresh to fail")
	}

	assertIDs(t, "all coins", coinIDs(store.AllCoins()), "bitcoin", "ethereum")
	assertIDs(t, "watched coins", coinIDs(store.WatchedCoins()), "ethereum")

	msg, ok := store.LastError()
	if !ok || msg == "" {
		t.Fatal("expected last error to be set")
	}
	if msg != FetchFailedMessage {
		t.Errorf("unexpected message: %q", msg)
	}
	if store.IsLoading() {
		t.Error("loading flag left set after failure")
	}
}

// go test -v --run TestRefreshClearsPreviousError
func TestRefreshClearsPreviousError(t *testing.T) {
	fetcher := (&scriptedFetcher{}).
		push(nil, errors.New("timeout")).
		push(coins("bitcoin"), nil)
	store := NewStore(context.Background(), fetcher, memory.NewStore("watchlist"), zap.NewNop())

	_ = store.Refresh(context.Background())
	if _, ok := store.LastError(); !ok {
		t.Fatal("expected error after failed fetch")
	}

	_ = store.Refresh(context.Background())
	if msg, ok := store.LastError(); ok {
		t.Errorf("error not cleared: %q", msg)
	}
}

// go test -v --run TestLoadingFlagDuringFetch
func TestLoadingFlagDuringFetch(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	fetcher := fetchFunc(func(ctx context.Context) ([]market.Coin, error) {
		close(entered)
		<-release
		return coins("bitcoin"), nil
	})
	store := NewStore(context.Background(), fetcher, memory.NewStore("watchlist"), zap.NewNop())

	done := make(chan error)
	go func() { done <- store.Refresh(context.Background()) }()

	<-entered
	if !store.IsLoading() {
		t.Error("expected loading while fetch is outstanding")
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if store.IsLoading() {
		t.Error("expected loading cleared")
	}
}

type fetchFunc func(ctx context.Context) ([]market.Coin, error)

func (f fetchFunc) Fetch(ctx context.Context) ([]market.Coin, error) { return f(ctx) }

// go test -v --run TestToggleWatchInvolution
func TestToggleWatchInvolution(t *testing.T) {
	fetcher := (&scriptedFetcher{}).push(coins("bitcoin", "ethereum"), nil)
	prefs := memory.NewStore("watchlist")
	store := NewStore(context.Background(), fetcher, prefs, zap.NewNop())
	ctx := context.Background()
	_ = store.Refresh(ctx)

	watched, err := store.ToggleWatch(ctx, "ethereum")
	if err != nil || !watched {
		t.Fatalf("expected ethereum watched, got %v %v", watched, err)
	}
	if !store.IsWatched("ethereum") {
		t.Error("IsWatched false after adding")
	}
	assertIDs(t, "watched coins", coinIDs(store.WatchedCoins()), "ethereum")

	watched, _ = store.ToggleWatch(ctx, "ethereum")
	if watched || store.IsWatched("ethereum") {
		t.Error("second toggle should remove the id")
	}
	if len(store.WatchedCoins()) != 0 {
		t.Errorf("watched coins not emptied: %v", coinIDs(store.WatchedCoins()))
	}
	if prefs.Saves() != 2 {
		t.Errorf("expected a save per toggle, got %d", prefs.Saves())
	}
}

// go test -v --run TestTogglePersistsWatchedIDs
func TestTogglePersistsWatchedIDs(t *testing.T) {
	fetcher := (&scriptedFetcher{}).push(coins("bitcoin", "ethereum", "solana"), nil)
	prefs := memory.NewStore("watchlist")
	store := NewStore(context.Background(), fetcher, prefs, zap.NewNop())
	ctx := context.Background()
	_ = store.Refresh(ctx)

	for _, id := range []string{"solana", "bitcoin", "ethereum", "bitcoin"} {
		if _, err := store.ToggleWatch(ctx, id); err != nil {
			t.Fatalf("toggle %s: %v", id, err)
		}

		stored, _ := prefs.LoadWatchlist(ctx)
		if !sameSet(stored, store.WatchedIDs()) {
			t.Fatalf("after toggling %s storage has %v, memory has %v", id, stored, store.WatchedIDs())
		}
	}
}

// go test -v --run TestToggleUnknownCoin
func TestToggleUnknownCoin(t *testing.T) {
	fetcher := (&scriptedFetcher{}).push(coins("bitcoin"), nil)
	store := NewStore(context.Background(), fetcher, memory.NewStore("watchlist"), zap.NewNop())
	ctx := context.Background()
	_ = store.Refresh(ctx)

	watched, _ := store.ToggleWatch(ctx, "not-listed")
	if !watched || !store.IsWatched("not-listed") {
		t.Error("id should be watched even when not in the coin list")
	}
	if len(store.WatchedCoins()) != 0 {
		t.Errorf("no coin should be added: %v", coinIDs(store.WatchedCoins()))
	}

	if _, err := store.ToggleWatch(ctx, ""); !errors.Is(err, ErrEmptyID) {
		t.Errorf("expected ErrEmptyID, got %v", err)
	}
}

// go test -v --run TestStartupReconciliation
func TestStartupReconciliation(t *testing.T) {
	fetcher := (&scriptedFetcher{}).
		push(coins("A", "C"), nil).
		push(coins("A", "B", "C"), nil)
	prefs := memory.NewStore("watchlist").Seed("A", "B")
	store := NewStore(context.Background(), fetcher, prefs, zap.NewNop())
	ctx := context.Background()

	if !store.IsWatched("A") || !store.IsWatched("B") {
		t.Fatal("persisted ids should be watched before the first fetch")
	}
	if len(store.WatchedCoins()) != 0 {
		t.Fatal("no coins can be resolved before the first fetch")
	}

	_ = store.Refresh(ctx)
	// B silently dropped, C not auto-added
	assertIDs(t, "after first fetch", coinIDs(store.WatchedCoins()), "A")
	if store.IsWatched("B") {
		t.Error("B no longer exists upstream and should be dropped")
	}

	_, _ = store.ToggleWatch(ctx, "C")
	_ = store.Refresh(ctx)
	assertIDs(t, "after second fetch", coinIDs(store.WatchedCoins()), "A", "C")
}

// go test -v --run TestFirstFetchUsesWatchOrder
func TestFirstFetchUsesWatchOrder(t *testing.T) {
	fetcher := (&scriptedFetcher{}).push(coins("bitcoin", "ethereum", "solana"), nil)
	prefs := memory.NewStore("watchlist").Seed("solana", "bitcoin")
	store := NewStore(context.Background(), fetcher, prefs, zap.NewNop())
	ctx := context.Background()

	_ = store.Refresh(ctx)
	assertIDs(t, "first fetch", coinIDs(store.WatchedCoins()), "solana", "bitcoin")

	// later fetches follow upstream order
	_ = store.Refresh(ctx)
	assertIDs(t, "second fetch", coinIDs(store.WatchedCoins()), "bitcoin", "solana")
}

// go test -v --run TestToggleBeforeFirstFetch
func TestToggleBeforeFirstFetch(t *testing.T) {
	fetcher := (&scriptedFetcher{}).push(coins("A", "B", "C", "D"), nil)
	prefs := memory.NewStore("watchlist").Seed("A", "B")
	store := NewStore(context.Background(), fetcher, prefs, zap.NewNop())
	ctx := context.Background()

	// lands before any fetch completes
	_, _ = store.ToggleWatch(ctx, "C")
	_, _ = store.ToggleWatch(ctx, "B")

	stored, _ := prefs.LoadWatchlist(ctx)
	assertIDs(t, "persisted before fetch", stored, "A", "C")

	_ = store.Refresh(ctx)
	assertIDs(t, "watched coins", coinIDs(store.WatchedCoins()), "A", "C")
}

// go test -v --run TestFailedFirstFetchKeepsPendingIDs
func TestFailedFirstFetchKeepsPendingIDs(t *testing.T) {
	fetcher := (&scriptedFetcher{}).
		push(nil, errors.New("offline")).
		push(coins("A", "C"), nil)
	prefs := memory.NewStore("watchlist").Seed("A", "B")
	store := NewStore(context.Background(), fetcher, prefs, zap.NewNop())
	ctx := context.Background()

	_ = store.Refresh(ctx)
	if !store.IsWatched("B") {
		t.Fatal("failed fetch must not resolve or drop stored ids")
	}

	_ = store.Refresh(ctx)
	assertIDs(t, "after first success", coinIDs(store.WatchedCoins()), "A")
}

// go test -v --run TestStorageFailuresAreAbsorbed
func TestStorageFailuresAreAbsorbed(t *testing.T) {
	fetcher := (&scriptedFetcher{}).push(coins("bitcoin"), nil)
	store := NewStore(context.Background(), fetcher, failingPrefs{}, zap.NewNop())
	ctx := context.Background()
	_ = store.Refresh(ctx)

	watched, err := store.ToggleWatch(ctx, "bitcoin")
	if err != nil {
		t.Fatalf("storage error leaked: %v", err)
	}
	if !watched || len(store.WatchedCoins()) != 1 {
		t.Error("in-memory watchlist should still change")
	}
}

// go test -v --run TestOnChangeNotifies
func TestOnChangeNotifies(t *testing.T) {
	fetcher := (&scriptedFetcher{}).push(coins("bitcoin"), nil)
	store := NewStore(context.Background(), fetcher, memory.NewStore("watchlist"), zap.NewNop())

	var states []State
	store.OnChange(func(s State) { states = append(states, s) })

	ctx := context.Background()
	_ = store.Refresh(ctx)
	_, _ = store.ToggleWatch(ctx, "bitcoin")

	if len(states) != 3 {
		t.Fatalf("expected 3 notifications (loading, loaded, toggled), got %d", len(states))
	}
	if !states[0].IsLoading {
		t.Error("first notification should report loading")
	}
	if states[1].IsLoading || len(states[1].AllCoins) != 1 {
		t.Errorf("second notification should carry the coins: %+v", states[1])
	}
	assertIDs(t, "toggled state", states[2].WatchedIDs, "bitcoin")
}

// go test -v --run TestDuplicateStoredIDs
func TestDuplicateStoredIDs(t *testing.T) {
	fetcher := (&scriptedFetcher{}).push(coins("bitcoin"), nil)
	prefs := memory.NewStore("watchlist").Seed("bitcoin", "bitcoin", "")
	store := NewStore(context.Background(), fetcher, prefs, zap.NewNop())

	assertIDs(t, "deduplicated", store.WatchedIDs(), "bitcoin")
}

// gatedFetcher blocks the n-th call until gates[n] receives its response.
type gatedFetcher struct {
	mu      sync.Mutex
	calls   int
	started chan struct{}
	gates   []chan fetchResponse
}

func newGatedFetcher(n int) *gatedFetcher {
	f := &gatedFetcher{started: make(chan struct{}, n)}
	for i := 0; i < n; i++ {
		f.gates = append(f.gates, make(chan fetchResponse))
	}
	return f
}

func (f *gatedFetcher) Fetch(ctx context.Context) ([]market.Coin, error) {
	f.mu.Lock()
	gate := f.gates[f.calls]
	f.calls++
	f.mu.Unlock()

	f.started <- struct{}{}
	r := <-gate
	return r.coins, r.err
}

// go test -v --run TestOverlappingRefreshes
func TestOverlappingRefreshes(t *testing.T) {
	fetcher := newGatedFetcher(2)
	store := NewStore(context.Background(), fetcher, memory.NewStore("watchlist"), zap.NewNop())

	var mu sync.Mutex
	var last State
	store.OnChange(func(s State) {
		mu.Lock()
		last = s
		mu.Unlock()
	})

	done := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() { done <- store.Refresh(context.Background()) }()
	}
	for i := 0; i < 2; i++ {
		select {
		case <-fetcher.started:
		case <-time.After(2 * time.Second):
			t.Fatal("fetches did not start")
		}
	}

	// the second fetch completes first
	fetcher.gates[1] <- fetchResponse{coins: coins("A", "B")}
	if err := <-done; err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if !store.IsLoading() {
		t.Error("expected loading while one fetch is still outstanding")
	}

	fetcher.gates[0] <- fetchResponse{coins: coins("C")}
	if err := <-done; err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if store.IsLoading() {
		t.Error("expected loading cleared after both fetches")
	}
	assertIDs(t, "all coins", coinIDs(store.AllCoins()), "C")

	mu.Lock()
	defer mu.Unlock()
	assertIDs(t, "last notified coins", coinIDs(last.AllCoins), "C")
	if last.IsLoading {
		t.Error("last notified state still loading")
	}
}

// go test -v --run TestNullBodyKeepsPersistedIDs
func TestNullBodyKeepsPersistedIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("null"))
	}))
	defer srv.Close()

	prefs := memory.NewStore("watchlist").Seed("bitcoin", "ethereum")
	store := NewStore(context.Background(), coingecko.NewRESTClient(srv.URL, 5*time.Second), prefs, zap.NewNop())

	if err := store.Refresh(context.Background()); !errors.Is(err, coingecko.ErrFetchFailed) {
		t.Fatalf("expected fetch failure, got %v", err)
	}
	if msg, _ := store.LastError(); msg != FetchFailedMessage {
		t.Errorf("unexpected last error %q", msg)
	}
	assertIDs(t, "watched ids", store.WatchedIDs(), "bitcoin", "ethereum")
}
