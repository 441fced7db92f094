package risk

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/models"
	"github.com/Harqheem/sol-usdt-trader-app-sub002/pkg/cache"
	applogger "github.com/Harqheem/sol-usdt-trader-app-sub002/pkg/logger"
)

const stateKey = "risk:state"

// State holds all mutable risk bookkeeping for the process: open position
// count, daily counters, loss cooldown arming and per-instrument/per-type
// last-alert timestamps. Daily counters roll over on local-date change.
//
// All access goes through the methods; the zero value is not usable, use
// NewState.
type State struct {
	mu sync.Mutex

	openPositions int
	dailyCount    int
	symbolDaily   map[string]int
	dailyDate     string // local date the counters belong to

	lastLoss      time.Time
	lastAlert     map[string]time.Time
	lastTypeAlert map[models.SignalType]time.Time

	store cache.Service // optional, survives restarts when set
	log   *applogger.Logger
}

// stateSnapshot is the persisted form.
type stateSnapshot struct {
	OpenPositions int                  `json:"open_positions"`
	DailyCount    int                  `json:"daily_count"`
	SymbolDaily   map[string]int       `json:"symbol_daily"`
	DailyDate     string               `json:"daily_date"`
	LastLoss      time.Time            `json:"last_loss"`
	LastAlert     map[string]time.Time `json:"last_alert"`
	LastTypeAlert map[string]time.Time `json:"last_type_alert"`
}

// StateOption configures a State.
type StateOption func(*State)

// WithStore enables snapshot persistence so counters survive a restart
// within the same local day.
func WithStore(store cache.Service) StateOption {
	return func(s *State) { s.store = store }
}

// NewState creates risk state, restoring a persisted snapshot when a store
// is configured and the snapshot is from today.
func NewState(log *applogger.Logger, opts ...StateOption) *State {
	s := &State{
		symbolDaily:   make(map[string]int),
		lastAlert:     make(map[string]time.Time),
		lastTypeAlert: make(map[models.SignalType]time.Time),
		dailyDate:     localDate(time.Now()),
		log:           log,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store != nil {
		s.restore()
	}
	return s
}

func (s *State) restore() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var snap stateSnapshot
	if err := s.store.Get(ctx, stateKey, &snap); err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn("risk state restore failed", applogger.Error(err))
		}
		return
	}
	if snap.DailyDate != s.dailyDate {
		// stale snapshot from a previous day, start fresh
		return
	}
	s.openPositions = snap.OpenPositions
	s.dailyCount = snap.DailyCount
	s.dailyDate = snap.DailyDate
	s.lastLoss = snap.LastLoss
	if snap.SymbolDaily != nil {
		s.symbolDaily = snap.SymbolDaily
	}
	if snap.LastAlert != nil {
		s.lastAlert = snap.LastAlert
	}
	for k, v := range snap.LastTypeAlert {
		s.lastTypeAlert[models.SignalType(k)] = v
	}
	s.log.Info("risk state restored",
		applogger.Int("daily_count", s.dailyCount),
		applogger.Int("open_positions", s.openPositions))
}

// persist is best effort; a write failure never blocks gating.
func (s *State) persist() {
	if s.store == nil {
		return
	}
	snap := stateSnapshot{
		OpenPositions: s.openPositions,
		DailyCount:    s.dailyCount,
		SymbolDaily:   s.symbolDaily,
		DailyDate:     s.dailyDate,
		LastLoss:      s.lastLoss,
		LastAlert:     s.lastAlert,
		LastTypeAlert: make(map[string]time.Time, len(s.lastTypeAlert)),
	}
	for k, v := range s.lastTypeAlert {
		snap.LastTypeAlert[string(k)] = v
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.store.Set(ctx, stateKey, snap, 48*time.Hour); err != nil {
		s.log.Warn("risk state persist failed", applogger.Error(err))
	}
}

// rollover resets daily counters when the local date changed.
// Caller holds mu.
func (s *State) rollover(now time.Time) {
	date := localDate(now)
	if date == s.dailyDate {
		return
	}
	s.dailyDate = date
	s.dailyCount = 0
	s.symbolDaily = make(map[string]int)
}

// RecordEmit bumps counters and cooldown timestamps after a confirmed send.
func (s *State) RecordEmit(symbol string, sigType models.SignalType, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollover(now)
	s.dailyCount++
	s.symbolDaily[symbol]++
	s.lastAlert[symbol] = now
	s.lastTypeAlert[sigType] = now
	s.persist()
}

// PositionOpened bumps the open position count.
func (s *State) PositionOpened() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openPositions++
	s.persist()
}

// PositionClosed drops the open position count. A losing close arms the
// post-loss cooldown; a win does not.
func (s *State) PositionClosed(won bool, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openPositions > 0 {
		s.openPositions--
	}
	if !won {
		s.lastLoss = now
	}
	s.persist()
}

// ClearLossCooldown drops an armed cooldown explicitly.
func (s *State) ClearLossCooldown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastLoss = time.Time{}
	s.persist()
}

// View is a read-only copy of the counters for the status API.
type View struct {
	OpenPositions int            `json:"open_positions"`
	DailyCount    int            `json:"daily_count"`
	SymbolDaily   map[string]int `json:"symbol_daily"`
	DailyDate     string         `json:"daily_date"`
	LastLoss      time.Time      `json:"last_loss,omitempty"`
}

// View returns a consistent copy of the current state.
func (s *State) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	sd := make(map[string]int, len(s.symbolDaily))
	for k, v := range s.symbolDaily {
		sd[k] = v
	}
	return View{
		OpenPositions: s.openPositions,
		DailyCount:    s.dailyCount,
		SymbolDaily:   sd,
		DailyDate:     s.dailyDate,
		LastLoss:      s.lastLoss,
	}
}

func localDate(t time.Time) string {
	return t.Local().Format("2006-01-02")
}
