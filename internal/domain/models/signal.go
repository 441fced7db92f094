package models

import "time"

// Direction of a trade signal.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// Opposite returns the other direction.
func (d Direction) Opposite() Direction {
	if d == Long {
		return Short
	}
	return Long
}

// SignalType identifies which detector produced a candidate.
type SignalType string

const (
	SignalSweepReversal SignalType = "LIQUIDITY_SWEEP_REVERSAL"
	SignalCVDDivergence SignalType = "CVD_DIVERGENCE"
	SignalRSIDivergence SignalType = "RSI_DIVERGENCE"
	SignalSRReaction    SignalType = "SR_REACTION"
	SignalBreakout      SignalType = "BREAKOUT"
)

// Urgency hints how quickly an alert should be acted on.
type Urgency string

const (
	UrgencyImmediate Urgency = "IMMEDIATE"
	UrgencySoon      Urgency = "SOON"
	UrgencyWatch     Urgency = "WATCH"
)

// SignalCandidate is the immutable output of one detector pass. Exactly one
// candidate survives a pass; it is consumed once by the risk gate.
type SignalCandidate struct {
	Symbol     string
	Type       SignalType
	Direction  Direction
	Urgency    Urgency
	Confidence float64 // 0-100
	EntryPrice float64
	StopPrice  float64 // structural proposal; finalized by the gate
	Rationale  string
	Metrics    map[string]float64
	CreatedAt  time.Time
}
