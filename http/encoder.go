package http

import (
	"bytes"
	"strconv"

	"github.com/benbjohnson/clock"
)

type EncodeOptions struct {
	// ServerName is sent as the Server header. Empty omits the header.
	ServerName string
}

var DefaultEncodeOptions = EncodeOptions{
	ServerName: "minihttp",
}

// ResponseEncoder serializes responses into caller-owned buffers.
// Responses are always framed as HTTP/1.1 with an explicit Content-Length.
type ResponseEncoder struct {
	opts  EncodeOptions
	dates *dateCache
}

func NewResponseEncoder(clock clock.Clock, opts EncodeOptions) *ResponseEncoder {
	return &ResponseEncoder{
		opts:  opts,
		dates: newDateCache(clock),
	}
}

// Encode appends the full wire form of response to dst.
func (re *ResponseEncoder) Encode(response *Response, dst *bytes.Buffer) {
	status := response.Status
	if status == 0 {
		status = StatusOK
	}
	reason := response.Reason
	if reason == "" {
		reason = ReasonPhrase(status)
	}

	dst.WriteString("HTTP/1.1 ")
	dst.WriteString(strconv.Itoa(status))
	dst.WriteByte(sp)
	dst.WriteString(reason)
	dst.Write(crlf)

	if re.opts.ServerName != "" {
		dst.WriteString("Server: ")
		dst.WriteString(re.opts.ServerName)
		dst.Write(crlf)
	}

	dst.WriteString("Date: ")
	dst.WriteString(re.dates.get())
	dst.Write(crlf)

	dst.WriteString("Content-Length: ")
	dst.WriteString(strconv.Itoa(len(response.Body)))
	dst.Write(crlf)

	for _, f := range response.Headers {
		dst.WriteString(f.Name)
		dst.WriteString(": ")
		dst.WriteString(f.Value)
		dst.Write(crlf)
	}

	dst.Write(crlf)
	dst.Write(response.Body)
}
