package directory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	model "github.com/zhouzirui/user-directory/backend/internal/model/directory"
)

// Phase is the fetch lifecycle of a mounted directory view.
type Phase string

const (
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
	PhaseFailed  Phase = "failed"
)

// State is a consistent snapshot of a Store. Filtered is derived from Records
// and SearchTerm at the time the snapshot was taken.
type State struct {
	Phase      Phase              `json:"phase"`
	IsLoading  bool               `json:"isLoading"`
	SearchTerm string             `json:"searchTerm"`
	Records    []model.UserRecord `json:"records"`
	Filtered   []model.UserRecord `json:"filtered"`
}

// Store holds the state of one mounted directory view: the fetched records,
// the loading flag and the search term.
//
// The phase moves Loading -> Ready or Loading -> Failed exactly once. There is
// no retry and no refetch. Subscribers are notified in order, one at a time,
// and must not call SetSearchTerm from inside the callback.
type Store struct {
	fetcher Fetcher
	logger  zerolog.Logger

	notifyMu sync.Mutex

	mu          sync.Mutex
	phase       Phase
	records     []model.UserRecord
	searchTerm  string
	started     bool
	unmounted   bool
	subscribers map[int]func(State)
	nextSubID   int
	settled     chan struct{}
}

// NewStore returns a store in the Loading phase. Nothing is fetched until
// InitializeFetch is called.
func NewStore(fetcher Fetcher, logger zerolog.Logger) *Store {
	return &Store{
		fetcher:     fetcher,
		logger:      logger,
		phase:       PhaseLoading,
		records:     []model.UserRecord{},
		subscribers: make(map[int]func(State)),
		settled:     make(chan struct{}),
	}
}

// InitializeFetch starts the one fetch of this view in the background and
// returns immediately. Only the first call does anything; it reports whether
// the fetch was started.
func (s *Store) InitializeFetch(ctx context.Context) bool {
	s.mu.Lock()
	if s.started || s.unmounted {
		s.mu.Unlock()
		return false
	}
	s.started = true
	s.mu.Unlock()

	go s.run(ctx)
	return true
}

func (s *Store) run(ctx context.Context) {
	start := time.Now()

	var (
		records []model.UserRecord
		err     error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: fetcher panic: %v", ErrFetchFailed, r)
			}
		}()
		records, err = s.fetcher.FetchUsers(ctx)
	}()

	fetchDuration.Observe(time.Since(start).Seconds())
	s.settle(records, err)
}

func (s *Store) settle(records []model.UserRecord, err error) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	defer close(s.settled)

	if s.unmounted {
		s.mu.Unlock()
		fetchesTotal.WithLabelValues(outcomeDiscarded).Inc()
		s.logger.Debug().Err(err).Msg("fetch settled after unmount, result discarded")
		return
	}

	if err != nil {
		s.phase = PhaseFailed
		fetchesTotal.WithLabelValues(outcomeFailure).Inc()
		s.logger.Warn().Err(err).Msg("error fetching users")
	} else {
		s.phase = PhaseReady
		s.records = model.Clone(records)
		fetchesTotal.WithLabelValues(outcomeSuccess).Inc()
		s.logger.Debug().Int("count", len(records)).Msg("users fetched")
	}

	state := s.snapshotLocked()
	subs := s.subscribersLocked()
	s.mu.Unlock()

	deliver(subs, state)
}

// SetSearchTerm stores term verbatim and notifies subscribers. Case folding
// happens at filter time.
func (s *Store) SetSearchTerm(term string) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	s.searchTerm = term
	state := s.snapshotLocked()
	subs := s.subscribersLocked()
	s.mu.Unlock()

	searchUpdatesTotal.Inc()
	deliver(subs, state)
}

// SearchTerm returns the current search term.
func (s *Store) SearchTerm() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searchTerm
}

// IsLoading reports whether the fetch has not settled yet.
func (s *Store) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase == PhaseLoading
}

// Phase returns the current lifecycle phase.
func (s *Store) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Records returns a copy of the fetched records, empty until a successful
// fetch.
func (s *Store) Records() []model.UserRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.Clone(s.records)
}

// FilteredRecords computes the records matching the current search term.
func (s *Store) FilteredRecords() []model.UserRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Filter(s.records, s.searchTerm)
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to receive a snapshot after every state change. The
// returned function removes the subscription.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unmounted {
		return func() {}
	}

	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// Observe subscribes fn and immediately calls it with the current state. No
// notification can be delivered between the two, so fn sees every state in
// order starting from the current one.
func (s *Store) Observe(fn func(State)) func() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	unsubscribe := s.Subscribe(fn)
	fn(s.Snapshot())
	return unsubscribe
}

// Settled is closed once the fetch has settled, whether it succeeded, failed
// or was discarded.
func (s *Store) Settled() <-chan struct{} {
	return s.settled
}

// Unmount discards the view. A fetch still in flight is left to finish and
// its result is dropped.
func (s *Store) Unmount() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unmounted = true
	s.subscribers = make(map[int]func(State))
}

func (s *Store) snapshotLocked() State {
	return State{
		Phase:      s.phase,
		IsLoading:  s.phase == PhaseLoading,
		SearchTerm: s.searchTerm,
		Records:    model.Clone(s.records),
		Filtered:   Filter(s.records, s.searchTerm),
	}
}

func (s *Store) subscribersLocked() []func(State) {
	ids := make([]int, 0, len(s.subscribers))
	for id := range s.subscribers {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	subs := make([]func(State), 0, len(ids))
	for _, id := range ids {
		subs = append(subs, s.subscribers[id])
	}
	return subs
}

func deliver(subs []func(State), state State) {
	for _, fn := range subs {
		fn(state)
	}
}
