package models

import "time"

// Alert is the fully finalized, dispatchable payload built from a gated
// candidate: rounded levels, two take-profits, size factor and risk figures.
type Alert struct {
	Symbol     string     `json:"symbol"`
	Type       SignalType `json:"type"`
	Direction  Direction  `json:"direction"`
	Urgency    Urgency    `json:"urgency"`
	Entry      float64    `json:"entry"`
	Stop       float64    `json:"stop"`
	TakeProfit [2]float64 `json:"take_profits"`
	Confidence float64    `json:"confidence"`
	SizeFactor float64    `json:"size_factor"`
	RiskPct    float64    `json:"risk_pct"`
	Clamped    bool       `json:"stop_clamped"`
	Rationale  string     `json:"rationale"`
	Source     string     `json:"source"` // "bar_close" or "tick"
	CreatedAt  time.Time  `json:"created_at"`
}

// SignalRecord is one row appended to the signal/analytics log per
// dispatched alert.
type SignalRecord struct {
	Symbol     string    `json:"symbol"`
	Type       string    `json:"type"`
	Direction  string    `json:"direction"`
	Entry      float64   `json:"entry"`
	Stop       float64   `json:"stop"`
	TP1        float64   `json:"tp1"`
	TP2        float64   `json:"tp2"`
	Confidence float64   `json:"confidence"`
	Source     string    `json:"source"`
	SentAt     time.Time `json:"sent_at"`
}
