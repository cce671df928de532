package api

type HTTPError struct {
	StatusCode int
	Message    string
	// Reason is a machine-readable rejection cause, e.g. "spam".
	Reason   string
	ErrorLog error
}

func (e *HTTPError) Error() string {
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.ErrorLog
}

type ApiError struct {
	Error  string `json:"message"`
	Reason string `json:"reason,omitempty"`
}
