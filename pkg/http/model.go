package http

// Envelope wraps every JSON body the server writes.
type Envelope struct {
	Status  int           `json:"status"`
	Message string        `json:"message"`
	Data    any           `json:"data,omitempty"`
	Errors  []ErrorDetail `json:"errors,omitempty"`
}

// ErrorDetail describes one problem with a request.
type ErrorDetail struct {
	Code    string         `json:"code"`
	Field   string         `json:"field,omitempty"`
	Message string         `json:"message"`
	Params  map[string]any `json:"params,omitempty"`
}

// Page is a list payload with its total.
type Page struct {
	Rows  any `json:"rows"`
	Total int `json:"total"`
}
