package models

// Requests for HTTP endpoints. Defined in domain for consistency and reuse.

type PredictRequest struct {
	Symbol    string      `json:"symbol" validate:"required"`
	Partition string      `json:"partition" validate:"required"`
	Horizon   string      `json:"horizon"`
	Grid      [][]float64 `json:"grid" validate:"required,min=1,dive,min=1"`
}

type RunsRequest struct {
	Symbol string `query:"symbol" json:"symbol"`
	Limit  int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=1000"`
}
