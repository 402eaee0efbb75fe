// Package http implements minimal HTTP/1.x request framing and
// response serialization over byte windows.
//
// The decoder consumes a prefix of accumulated bytes and reports
// "need more data" until one complete request frame has arrived.
package http

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	cr byte = '\r'
	lf byte = '\n'
	sp byte = ' '
)

var (
	crlf     = []byte{cr, lf}
	crlfcrlf = []byte{cr, lf, cr, lf}
)

// [Major, Minor]
type Version [2]uint

// ParseVersion parses http version text(e.g. "HTTP/1.1") into [Version].
func ParseVersion(b []byte) (Version, error) {
	prefix := []byte("HTTP/")
	if !bytes.HasPrefix(b, prefix) {
		return Version{}, errors.Errorf("http version prefix not found: %s", b)
	}

	first, second, found := bytes.Cut(b[len(prefix):], []byte{'.'})
	if !found {
		return Version{}, errors.Errorf("dot seperator not found on version: %s", b)
	}

	major, err1 := strconv.ParseUint(string(first), 10, 64)
	minor, err2 := strconv.ParseUint(string(second), 10, 64)
	if err1 != nil || err2 != nil {
		return Version{}, errors.Errorf("http version is not convertable to int: %s", b)
	}

	return Version{uint(major), uint(minor)}, nil
}

func (ver Version) Text() []byte {
	buf := bytes.NewBuffer(nil)
	buf.WriteString("HTTP/")
	buf.WriteString(strconv.FormatUint(uint64(ver[0]), 10))
	buf.WriteByte('.')
	buf.WriteString(strconv.FormatUint(uint64(ver[1]), 10))
	return buf.Bytes()
}

func (ver Version) String() string { return string(ver.Text()) }

// Field is a single header field. Name keeps the casing it arrived with.
type Field struct{ Name, Value string }

// ParseField parses one field line. Values own their memory, so a
// parsed field stays valid after the source window is reused.
func ParseField(fieldLine []byte) (Field, error) {
	name, value, found := bytes.Cut(fieldLine, []byte{':'})
	if !found {
		return Field{}, errors.Errorf("colon seperator not found on header: %q", string(fieldLine))
	}

	// No whitespace is allowed between field name and colon.
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-5.1-2
	if len(name) == 0 || name[len(name)-1] == sp || name[len(name)-1] == '\t' {
		return Field{}, errors.New("field name is empty or has trailing whitespace")
	}

	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-5.1-3
	value = bytes.Trim(value, " \t")

	return Field{Name: string(name), Value: string(value)}, nil
}

// Request is one fully decoded request frame. It owns all its memory
// and is immutable once produced.
type Request struct {
	Method  string
	Target  string
	Version Version

	Headers []Field

	Body []byte
}

// Header returns the value of the named field, matching case-insensitively.
func (r *Request) Header(name string) (value string, ok bool) {
	for _, f := range r.Headers {
		if strings.EqualFold(f.Name, name) {
			return f.Value, true
		}
	}
	return "", false
}

// Response is one outbound response. Zero value is "200 OK", empty body.
type Response struct {
	Status int
	Reason string // Defaulted from the status table when empty.

	Headers []Field

	Body []byte
}

func (r *Response) AddHeader(name, value string) {
	r.Headers = append(r.Headers, Field{Name: name, Value: value})
}

// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.6.2-2
func isValidToken(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, c := range s {
		// ALPHA
		if ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') {
			continue
		}
		// DIGIT
		if '0' <= c && c <= '9' {
			continue
		}

		switch c {
		case '!', '#', '$', '%', '&', '\'', '*', '+',
			'-', '.', '^', '_', '`', '|', '~':
			continue
		}

		return false
	}

	return true
}
