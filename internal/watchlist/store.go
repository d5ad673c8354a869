package watchlist

import (
	"context"
	"errors"
	"sync"

	"coinwatch/internal/market"

	"go.uber.org/zap"
)

// FetchFailedMessage is the only error text surfaced to clients.
const FetchFailedMessage = "Failed to fetch cryptocurrency data"

var ErrEmptyID = errors.New("coin id must not be empty")

// Fetcher retrieves the full current market snapshot.
type Fetcher interface {
	Fetch(ctx context.Context) ([]market.Coin, error)
}

// Preferences is durable storage for the ordered watched id list.
type Preferences interface {
	LoadWatchlist(ctx context.Context) ([]string, error)
	SaveWatchlist(ctx context.Context, ids []string) error
}

// State is a copy of the store's view state.
type State struct {
	AllCoins     []market.Coin `json:"all_coins"`
	WatchedIDs   []string      `json:"watched_ids"`
	WatchedCoins []market.Coin `json:"watched_coins"`
	IsLoading    bool          `json:"is_loading"`
	LastError    string        `json:"last_error,omitempty"`
}

// Store owns the coin list and the watchlist for the process lifetime.
//
// Ids loaded from storage are held until the first successful fetch, which
// resolves them against the fetched coins in watch order and drops the ones
// no longer listed upstream. Every later fetch re-derives the watched coins
// by filtering the fetched list with the current ids.
type Store struct {
	fetcher Fetcher
	prefs   Preferences
	logger  *zap.Logger

	mu           sync.RWMutex
	allCoins     []market.Coin
	watchedIDs   []string
	watchedCoins []market.Coin
	seeded       bool // first successful fetch has resolved the stored ids
	inflight     int
	lastError    string
	listeners    []func(State)

	// serializes storage writes so they land in toggle order
	persistMu sync.Mutex
	// held while a snapshot is taken and delivered
	notifyMu sync.Mutex
}

// NewStore reads the persisted watchlist. A storage failure is logged and
// the store starts with an empty watchlist.
func NewStore(ctx context.Context, fetcher Fetcher, prefs Preferences, logger *zap.Logger) *Store {
	s := &Store{
		fetcher: fetcher,
		prefs:   prefs,
		logger:  logger,
	}

	ids, err := prefs.LoadWatchlist(ctx)
	if err != nil {
		logger.Warn("failed to load watchlist, starting empty", zap.Error(err))
	}
	s.watchedIDs = dedupe(ids)

	logger.Info("watchlist loaded", zap.Int("count", len(s.watchedIDs)), zap.Strings("ids", s.watchedIDs))
	return s
}

// OnChange registers fn to receive a snapshot after every state change.
// fn runs on the goroutine that caused the change and must not block or
// call back into methods that change the store. Deliveries are serialized,
// so the last snapshot a listener sees is the current state.
func (s *Store) OnChange(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Refresh fetches the market list and reconciles the watchlist. On failure
// the coin lists are left as they were and LastError is set. Overlapping
// calls are not coalesced; the one that completes last wins.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.inflight++
	s.lastError = ""
	s.mu.Unlock()
	s.notify()

	coins, err := s.fetcher.Fetch(ctx)

	s.mu.Lock()
	s.inflight--
	if err != nil {
		s.lastError = FetchFailedMessage
	} else {
		s.allCoins = coins
		s.reconcileLocked()
	}
	watched := len(s.watchedCoins)
	s.mu.Unlock()
	s.notify()

	if err != nil {
		s.logger.Warn("refresh failed", zap.Error(err))
		return err
	}
	s.logger.Debug("refresh completed", zap.Int("coins", len(coins)), zap.Int("watched", watched))
	return nil
}

func (s *Store) reconcileLocked() {
	if !s.seeded {
		watched := make([]market.Coin, 0, len(s.watchedIDs))
		kept := make([]string, 0, len(s.watchedIDs))
		for _, id := range s.watchedIDs {
			if c, ok := market.FindByID(s.allCoins, id); ok {
				watched = append(watched, c)
				kept = append(kept, id)
			}
		}
		if dropped := len(s.watchedIDs) - len(kept); dropped > 0 {
			s.logger.Info("dropped watched ids missing upstream", zap.Int("dropped", dropped))
		}
		s.watchedIDs = kept
		s.watchedCoins = watched
		s.seeded = true
		return
	}

	set := make(map[string]struct{}, len(s.watchedIDs))
	for _, id := range s.watchedIDs {
		set[id] = struct{}{}
	}
	watched := make([]market.Coin, 0, len(s.watchedIDs))
	for _, c := range s.allCoins {
		if _, ok := set[c.ID]; ok {
			watched = append(watched, c)
		}
	}
	s.watchedCoins = watched
}

// ToggleWatch adds id to the watchlist or removes it, persists the id list
// and reports whether id is watched afterwards. Storage errors are logged
// and absorbed.
func (s *Store) ToggleWatch(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, ErrEmptyID
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	var watched bool
	if i := indexOf(s.watchedIDs, id); i >= 0 {
		s.watchedIDs = append(s.watchedIDs[:i:i], s.watchedIDs[i+1:]...)
		if j := market.IndexByID(s.watchedCoins, id); j >= 0 {
			s.watchedCoins = append(s.watchedCoins[:j:j], s.watchedCoins[j+1:]...)
		}
	} else {
		watched = true
		s.watchedIDs = append(s.watchedIDs, id)
		if c, ok := market.FindByID(s.allCoins, id); ok {
			s.watchedCoins = append(s.watchedCoins, c)
		}
	}
	ids := make([]string, len(s.watchedIDs))
	copy(ids, s.watchedIDs)
	s.mu.Unlock()

	if err := s.prefs.SaveWatchlist(ctx, ids); err != nil {
		s.logger.Warn("failed to persist watchlist", zap.String("id", id), zap.Error(err))
	}
	s.logger.Info("watchlist toggled", zap.String("id", id), zap.Bool("watched", watched))

	s.notify()
	return watched, nil
}

// IsWatched reports whether id is on the watchlist.
func (s *Store) IsWatched(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return indexOf(s.watchedIDs, id) >= 0
}

func (s *Store) AllCoins() []market.Coin {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneCoins(s.allCoins)
}

func (s *Store) WatchedCoins() []market.Coin {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneCoins(s.watchedCoins)
}

func (s *Store) WatchedIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.watchedIDs))
	copy(out, s.watchedIDs)
	return out
}

func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inflight > 0
}

// LastError returns the message of the last failed fetch, if any.
func (s *Store) LastError() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError, s.lastError != ""
}

func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() State {
	ids := make([]string, len(s.watchedIDs))
	copy(ids, s.watchedIDs)
	return State{
		AllCoins:     cloneCoins(s.allCoins),
		WatchedIDs:   ids,
		WatchedCoins: cloneCoins(s.watchedCoins),
		IsLoading:    s.inflight > 0,
		LastError:    s.lastError,
	}
}

func (s *Store) notify() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.RLock()
	if len(s.listeners) == 0 {
		s.mu.RUnlock()
		return
	}
	state := s.snapshotLocked()
	listeners := make([]func(State), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(state)
	}
}

func cloneCoins(coins []market.Coin) []market.Coin {
	out := make([]market.Coin, len(coins))
	copy(out, coins)
	return out
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
