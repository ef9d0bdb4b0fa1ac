package models

// Response is the JSON envelope returned by every endpoint. Count is a
// pointer so list responses serialize "count":0 on an empty page while
// detail responses omit the field entirely.
type Response struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Count      *int        `json:"count,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// ListCount wraps a slice length for the Response.Count field.
func ListCount(n int) *int {
	return &n
}

// Pagination describes the page window of a list response
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

// ErrorResponse is the JSON body written for failed requests
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// HealthCheckResponse returns the health check response, yo
type HealthCheckResponse struct {
	Alive bool `json:"alive"`
}
