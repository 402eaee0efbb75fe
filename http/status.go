package http

const (
	StatusOK                  = 200
	StatusNoContent           = 204
	StatusBadRequest          = 400
	StatusNotFound            = 404
	StatusRequestTimeout      = 408
	StatusInternalServerError = 500
	StatusNotImplemented      = 501
)

var reasonPhrases = map[int]string{
	StatusOK:                  "OK",
	StatusNoContent:           "No Content",
	StatusBadRequest:          "Bad Request",
	StatusNotFound:            "Not Found",
	StatusRequestTimeout:      "Request Timeout",
	StatusInternalServerError: "Internal Server Error",
	StatusNotImplemented:      "Not Implemented",
}

// ReasonPhrase returns the standard reason phrase for code,
// or an empty string for an unknown code.
func ReasonPhrase(code int) string { return reasonPhrases[code] }
