package risk

import (
	"math"
	"time"

	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/models"
	applogger "github.com/Harqheem/sol-usdt-trader-app-sub002/pkg/logger"
)

// Rejection reasons, ordered by gate severity.
const (
	ReasonLossCooldown   = "LOSS_COOLDOWN"
	ReasonMaxPositions   = "MAX_POSITIONS"
	ReasonMaxDaily       = "MAX_DAILY"
	ReasonMaxSymbolDaily = "MAX_SYMBOL_DAILY"
	ReasonLowConfidence  = "LOW_CONFIDENCE"
	ReasonSymbolCooldown = "SYMBOL_COOLDOWN"
	ReasonTypeCooldown   = "TYPE_COOLDOWN"
)

// GateConfig fixes the gate's thresholds for the process lifetime.
type GateConfig struct {
	MaxOpenPositions int
	MaxDailySignals  int
	MaxSymbolDaily   int
	MinConfidence    float64
	LossCooldown     time.Duration
	SymbolCooldown   time.Duration
	TypeCooldown     time.Duration

	SizeFloor   float64 // size factor at MinConfidence
	SizeCeiling float64 // size factor at confidence 95+

	MaxRiskPct  float64 // clamp target, percent of entry
	HardRiskPct float64 // reject outright beyond this, never widen

	// per-type ATR stop multipliers; DefaultStopATR applies when a type
	// has no entry
	StopATR        map[models.SignalType]float64
	DefaultStopATR float64
}

// Decision is the outcome of a gate check.
type Decision struct {
	Allowed bool
	Reason  string
}

// StopResult is the outcome of stop finalization.
type StopResult struct {
	Stop       float64
	RiskPct    float64
	Valid      bool
	WasClamped bool
}

// Gate applies the stateful emission policy to signal candidates. Checks
// run in a fixed order: loss cooldown, position cap, daily caps,
// confidence floor, then per-instrument and per-type cooldowns. Checks do
// not mutate state; Record does, and only after a confirmed send.
type Gate struct {
	cfg   GateConfig
	state *State
	log   *applogger.Logger
}

// NewGate creates the gate over the given state.
func NewGate(cfg GateConfig, state *State, log *applogger.Logger) *Gate {
	if cfg.DefaultStopATR <= 0 {
		cfg.DefaultStopATR = 1.5
	}
	if cfg.SizeCeiling <= 0 {
		cfg.SizeCeiling = 1.0
	}
	return &Gate{cfg: cfg, state: state, log: log}
}

// CanEmit runs the budget checks for one instrument. Purely a read; calling
// it twice against unchanged state yields the same decision.
func (g *Gate) CanEmit(symbol string, now time.Time) Decision {
	g.state.mu.Lock()
	defer g.state.mu.Unlock()
	g.state.rollover(now)

	if !g.state.lastLoss.IsZero() && now.Sub(g.state.lastLoss) < g.cfg.LossCooldown {
		return Decision{Reason: ReasonLossCooldown}
	}
	if g.cfg.MaxOpenPositions > 0 && g.state.openPositions >= g.cfg.MaxOpenPositions {
		return Decision{Reason: ReasonMaxPositions}
	}
	if g.cfg.MaxDailySignals > 0 && g.state.dailyCount >= g.cfg.MaxDailySignals {
		return Decision{Reason: ReasonMaxDaily}
	}
	if g.cfg.MaxSymbolDaily > 0 && g.state.symbolDaily[symbol] >= g.cfg.MaxSymbolDaily {
		return Decision{Reason: ReasonMaxSymbolDaily}
	}
	return Decision{Allowed: true}
}

// CheckConfidence validates the floor and derives the size factor: linear
// from SizeFloor to SizeCeiling as confidence rises from the floor to 95.
func (g *Gate) CheckConfidence(confidence float64) (bool, float64) {
	if confidence < g.cfg.MinConfidence {
		return false, 0
	}
	span := 95 - g.cfg.MinConfidence
	if span <= 0 || confidence >= 95 {
		return true, g.cfg.SizeCeiling
	}
	frac := (confidence - g.cfg.MinConfidence) / span
	return true, g.cfg.SizeFloor + frac*(g.cfg.SizeCeiling-g.cfg.SizeFloor)
}

// CooldownActive reports whether a per-instrument or per-type cooldown
// still blocks emission. Routine, not an error.
func (g *Gate) CooldownActive(symbol string, sigType models.SignalType, now time.Time) (bool, string) {
	g.state.mu.Lock()
	defer g.state.mu.Unlock()

	if last, ok := g.state.lastAlert[symbol]; ok && now.Sub(last) < g.cfg.SymbolCooldown {
		return true, ReasonSymbolCooldown
	}
	if last, ok := g.state.lastTypeAlert[sigType]; ok && now.Sub(last) < g.cfg.TypeCooldown {
		return true, ReasonTypeCooldown
	}
	return false, ""
}

// FinalizeStop picks the tighter of the structural stop and an ATR-scaled
// stop for the signal type, then enforces the risk ceiling. A proposal
// whose risk exceeds HardRiskPct is rejected outright; one between
// MaxRiskPct and HardRiskPct is clamped to MaxRiskPct and flagged.
func (g *Gate) FinalizeStop(entry, proposed float64, dir models.Direction, sigType models.SignalType, atr float64) StopResult {
	if entry <= 0 || atr <= 0 {
		return StopResult{}
	}

	mult, ok := g.cfg.StopATR[sigType]
	if !ok {
		mult = g.cfg.DefaultStopATR
	}
	atrStop := entry - mult*atr
	if dir == models.Short {
		atrStop = entry + mult*atr
	}

	stop := proposed
	if !validSide(entry, stop, dir) {
		stop = atrStop
	} else if math.Abs(entry-atrStop) < math.Abs(entry-stop) {
		stop = atrStop
	}

	risk := math.Abs(entry-stop) / entry * 100
	res := StopResult{Stop: stop, RiskPct: risk, Valid: true}
	if risk > g.cfg.MaxRiskPct && g.cfg.MaxRiskPct > 0 {
		if g.cfg.HardRiskPct > 0 && risk > g.cfg.HardRiskPct {
			g.log.Debug("stop rejected past hard risk ceiling",
				applogger.Any("risk_pct", risk),
				applogger.String("type", string(sigType)))
			return StopResult{Stop: stop, RiskPct: risk}
		}
		dist := g.cfg.MaxRiskPct / 100 * entry
		res.Stop = entry - dist
		if dir == models.Short {
			res.Stop = entry + dist
		}
		res.RiskPct = g.cfg.MaxRiskPct
		res.WasClamped = true
	}
	return res
}

// Record books a confirmed send into the state.
func (g *Gate) Record(symbol string, sigType models.SignalType, now time.Time) {
	g.state.RecordEmit(symbol, sigType, now)
}

func validSide(entry, stop float64, dir models.Direction) bool {
	if dir == models.Long {
		return stop > 0 && stop < entry
	}
	return stop > entry
}
