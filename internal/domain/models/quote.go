package models

import "time"

// Quote is a point-in-time market snapshot attached to an analysis
// request and echoed into the expert prompts.
type Quote struct {
	Name      string    `json:"name"`
	Ticker    string    `json:"ticker"`
	Price     float64   `json:"price"`
	Currency  string    `json:"currency"`
	Timestamp time.Time `json:"timestamp"`
}

// Tick is a single trade event from the realtime price stream.
type Tick struct {
	Symbol    string
	Price     float64
	Volume    float64
	Timestamp time.Time
}
