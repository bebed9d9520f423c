package http

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSimpleGet(t *testing.T) {
	raw := "GET /api/users?page=2 HTTP/1.1\r\nHost: example.com\r\nConnection: keep-alive\r\n\r\n"

	req, consumed, err := Parse([]byte(raw))
	assert.NoError(t, err)
	assert.Equal(t, len(raw), consumed)
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "/api/users", req.Path)
	assert.Equal(t, "2", req.Query["page"])
	assert.Equal(t, "example.com", req.Host)
	assert.False(t, req.WantsClose())
	ReleaseRequest(req)
}

func TestParsePostWithBody(t *testing.T) {
	body := `{"name":"amy"}`
	raw := "POST /users HTTP/1.1\r\nContent-Type: application/json\r\nContent-Length: " +
		"14\r\n\r\n" + body

	req, consumed, err := Parse([]byte(raw))
	assert.NoError(t, err)
	assert.Equal(t, len(raw), consumed)
	assert.Equal(t, body, string(req.Body))
	ReleaseRequest(req)
}

func TestParseIncomplete(t *testing.T) {
	cases := []string{
		"GET /index.html HTTP/1.1\r\nHost: x",                         // headers unterminated
		"POST /u HTTP/1.1\r\nContent-Length: 10\r\n\r\n{\"a\"",       // body short
		"GE",                                                          // method prefix
	}
	for _, raw := range cases {
		req, consumed, err := Parse([]byte(raw))
		assert.ErrorIs(t, err, ErrIncomplete, raw)
		assert.Zero(t, consumed)
		assert.Nil(t, req)
	}
}

func TestParseNotHTTP(t *testing.T) {
	_, _, err := Parse([]byte{0x00, 0x00, 0x00, 0x10, 0x01, 0x02})
	assert.ErrorIs(t, err, ErrNotHTTP)
}

func TestParseMalformed(t *testing.T) {
	// A known method prefix but an unterminated header block past the cap.
	raw := "GET /s HTTP/1.1\r\nX-Fill: " + strings.Repeat("a", maxHeaderBytes)
	_, _, err := Parse([]byte(raw))
	assert.ErrorIs(t, err, ErrMalformed)

	_, _, err = Parse([]byte("GET /s HTTP/1.1\r\nContent-Length: nope\r\n\r\n"))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestParseConnectionClose(t *testing.T) {
	raw := "GET / HTTP/1.1\r\nConnection: close\r\n\r\n"
	req, _, err := Parse([]byte(raw))
	assert.NoError(t, err)
	assert.True(t, req.WantsClose())
	ReleaseRequest(req)

	raw = "GET / HTTP/1.0\r\n\r\n"
	req, _, err = Parse([]byte(raw))
	assert.NoError(t, err)
	assert.True(t, req.WantsClose())
	ReleaseRequest(req)
}
