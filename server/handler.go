package server

import (
	"github.com/ImBIOS/may-minihttp/http"

	"github.com/pkg/errors"
)

// HandleFunc computes one response for one fully decoded request.
// Returning an error (or panicking) never tears down the connection;
// the failure is converted into a fixed Internal Server Error response.
type HandleFunc func(request *http.Request) (*http.Response, error)

// doHandle invokes the handler and guarantees exactly one outbound
// response per request.
func (c *conn) doHandle(request *http.Request) *http.Response {
	response, err := func() (response *http.Response, err error) {
		defer func() {
			if e := recover(); e != nil {
				err = errors.Errorf("handler panicked: %v", e)
			}
		}()
		return c.handle(request)
	}()

	if err == nil && response == nil {
		err = errors.New("nil response is forbidden")
	}
	if err != nil {
		c.logger.Error("error in service", "error", err)
		return internalErrorResponse(err)
	}

	return response
}

func internalErrorResponse(err error) *http.Response {
	return &http.Response{
		Status: http.StatusInternalServerError,
		Body:   []byte(err.Error()),
	}
}
