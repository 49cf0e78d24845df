package response

// Response is the error envelope every failed request answers with
type Response struct {
	Status     string            `json:"status"`      // always "error"
	StatusCode int               `json:"status_code"` // HTTP status code
	Error      string            `json:"error,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"` // field -> message
}

// Error returns a standard error response wrapping the error message
func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

// FieldErrors returns an error response carrying per-field messages
func FieldErrors(statusCode int, err string, fields map[string]string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
		Errors:     fields,
	}
}
