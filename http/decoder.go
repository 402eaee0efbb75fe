package http

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type DecodeOptions struct {
	// MaxHeaderBytes limits the size of the request line + header block.
	// Zero means no limit.
	MaxHeaderBytes uint

	// MaxContentLength limits the declared body size. Zero means no limit.
	MaxContentLength uint
}

var DefaultDecodeOptions = DecodeOptions{
	MaxHeaderBytes:   64 << 10,
	MaxContentLength: 0,
}

var (
	ErrMalformedRequestLine = errors.New("request line is malformed")
	ErrMalformedFieldLine   = errors.New("field line is malformed")
	ErrMalformedBodyLength  = errors.New("content length is malformed")
	ErrHeaderTooLarge       = errors.New("header block exceeds limit")
	ErrBodyTooLarge         = errors.New("content length exceeds limit")
	ErrUnsupportedTransfer  = errors.New("transfer encoding is not supported")
)

type RequestDecoder struct {
	opts DecodeOptions
}

func NewRequestDecoder(opts DecodeOptions) *RequestDecoder {
	return &RequestDecoder{opts: opts}
}

// Decode attempts to parse one complete request frame off the front of buf.
//
// It returns the request and the number of bytes it occupied, or
// (nil, 0, nil) when buf holds only an incomplete frame and more bytes
// are needed. The returned request shares no memory with buf.
func (rd *RequestDecoder) Decode(buf []byte) (*Request, int, error) {
	// Empty lines can be received before the message.
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-6
	skip := 0
	for bytes.HasPrefix(buf[skip:], crlf) {
		skip += len(crlf)
	}
	buf = buf[skip:]

	headEnd := bytes.Index(buf, crlfcrlf)
	if headEnd < 0 {
		if max := rd.opts.MaxHeaderBytes; max > 0 && uint(len(buf)) > max {
			return nil, 0, ErrHeaderTooLarge
		}
		// Need more data.
		return nil, 0, nil
	}
	if max := rd.opts.MaxHeaderBytes; max > 0 && uint(headEnd) > max {
		return nil, 0, ErrHeaderTooLarge
	}

	head := buf[:headEnd]

	reqLine, rest, _ := bytes.Cut(head, crlf)

	request := Request{}
	if err := parseRequestLine(reqLine, &request); err != nil {
		return nil, 0, err
	}

	if err := parseHeaders(rest, &request.Headers); err != nil {
		return nil, 0, err
	}

	bodyLen, err := rd.bodyLength(&request)
	if err != nil {
		return nil, 0, err
	}

	bodyStart := headEnd + len(crlfcrlf)
	total := bodyStart + bodyLen
	if len(buf) < total {
		// Header block is complete but the body has not fully arrived.
		return nil, 0, nil
	}

	if bodyLen > 0 {
		request.Body = bytes.Clone(buf[bodyStart:total])
	}

	return &request, skip + total, nil
}

func parseRequestLine(line []byte, request *Request) error {
	parts := bytes.Split(line, []byte{sp})
	if len(parts) != 3 {
		return ErrMalformedRequestLine
	}

	method := string(parts[0])
	if !isValidToken(method) {
		return ErrMalformedRequestLine
	}

	target := string(parts[1])
	if len(target) == 0 {
		return ErrMalformedRequestLine
	}

	ver, err := ParseVersion(parts[2])
	if err != nil {
		return ErrMalformedRequestLine
	}

	request.Method = method
	request.Target = target
	request.Version = ver

	return nil
}

func parseHeaders(block []byte, headers *[]Field) error {
	for len(block) > 0 {
		fieldLine, rest, _ := bytes.Cut(block, crlf)
		block = rest

		field, err := ParseField(fieldLine)
		if err != nil {
			return ErrMalformedFieldLine
		}

		*headers = append(*headers, field)
	}

	return nil
}

func (rd *RequestDecoder) bodyLength(request *Request) (int, error) {
	if enc, ok := request.Header("Transfer-Encoding"); ok {
		// Chunked (or any other) transfer coding is out of scope.
		return 0, errors.Wrapf(ErrUnsupportedTransfer, "transfer encoding %q", enc)
	}

	value, ok := request.Header("Content-Length")
	if !ok {
		return 0, nil
	}

	length, err := strconv.ParseUint(strings.TrimSpace(value), 10, 63)
	if err != nil {
		return 0, ErrMalformedBodyLength
	}

	if max := rd.opts.MaxContentLength; max > 0 && uint(length) > max {
		return 0, ErrBodyTooLarge
	}

	return int(length), nil
}
