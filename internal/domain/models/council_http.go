package models

// Requests for council HTTP endpoints. Defined in domain for consistency and reuse.

type CouncilRunRequest struct {
	Symbol    string `query:"symbol" json:"symbol" validate:"required"`
	WithQuote *bool  `query:"with_quote" json:"with_quote"`
	Threshold *int   `query:"threshold" json:"threshold" validate:"omitempty,gte=1"`
}

type HistoryRequest struct {
	Symbol string `query:"symbol" json:"symbol"`
	Limit  int    `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=500"`
}

type QuoteRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}
