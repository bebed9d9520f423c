package http

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrIncomplete means the bytes look like HTTP but a full request has
	// not arrived; keep them buffered and wait.
	ErrIncomplete = errors.New("incomplete HTTP request")

	// ErrNotHTTP means the bytes cannot begin an HTTP request.
	ErrNotHTTP = errors.New("not an HTTP request")

	// ErrMalformed means the request is recognizably HTTP but unparseable.
	ErrMalformed = errors.New("malformed HTTP request")
)

// maxHeaderBytes bounds how long we wait for the header terminator.
const maxHeaderBytes = 64 << 10

var methods = []string{
	"GET", "POST", "PUT", "DELETE", "HEAD", "OPTIONS", "PATCH", "CONNECT", "TRACE",
}

// CouldBeHTTP reports whether data is a prefix of "<METHOD> ". Used to
// tell "wait for more bytes" apart from "someone else's protocol".
func CouldBeHTTP(data []byte) bool {
	for _, m := range methods {
		token := m + " "
		n := len(data)
		if n > len(token) {
			n = len(token)
		}
		if string(data[:n]) == token[:n] {
			return true
		}
	}
	return false
}

// Parse parses one complete request from data and returns it with the
// number of bytes it occupies, so the caller can clear exactly one frame.
// Until the headers and the Content-Length-declared body are fully
// buffered it returns ErrIncomplete and consumes nothing.
func Parse(data []byte) (*Request, int, error) {
	if len(data) == 0 {
		return nil, 0, ErrIncomplete
	}
	if !CouldBeHTTP(data) {
		return nil, 0, ErrNotHTTP
	}

	headerEnd := bytes.Index(data, []byte("\r\n\r\n"))
	if headerEnd == -1 {
		if len(data) > maxHeaderBytes {
			return nil, 0, ErrMalformed
		}
		return nil, 0, ErrIncomplete
	}

	head := data[:headerEnd]
	lineEnd := bytes.IndexByte(head, '\n')
	if lineEnd == -1 {
		lineEnd = len(head)
	}
	line := bytes.TrimSuffix(head[:lineEnd], []byte("\r"))

	req := AcquireRequest()

	// METHOD PATH PROTO
	sp1 := bytes.IndexByte(line, ' ')
	if sp1 == -1 {
		ReleaseRequest(req)
		return nil, 0, ErrMalformed
	}
	sp2 := bytes.IndexByte(line[sp1+1:], ' ')
	if sp2 == -1 {
		ReleaseRequest(req)
		return nil, 0, ErrMalformed
	}
	sp2 += sp1 + 1

	req.Method = string(line[:sp1])
	req.Path = string(line[sp1+1 : sp2])
	req.Proto = string(line[sp2+1:])

	if !validMethod(req.Method) {
		ReleaseRequest(req)
		return nil, 0, ErrNotHTTP
	}

	if idx := strings.IndexByte(req.Path, '?'); idx != -1 {
		parseQuery(req, req.Path[idx+1:])
		req.Path = req.Path[:idx]
	}

	if lineEnd < len(head) {
		parseHeaders(req, head[lineEnd+1:])
	}

	contentLength := 0
	if req.ContentLength != "" {
		n, err := strconv.Atoi(strings.TrimSpace(req.ContentLength))
		if err != nil || n < 0 {
			ReleaseRequest(req)
			return nil, 0, ErrMalformed
		}
		contentLength = n
	}

	total := headerEnd + 4 + contentLength
	if len(data) < total {
		ReleaseRequest(req)
		return nil, 0, ErrIncomplete
	}

	if contentLength > 0 {
		req.Body = append(req.Body[:0], data[headerEnd+4:total]...)
	}

	return req, total, nil
}

func validMethod(m string) bool {
	for _, known := range methods {
		if m == known {
			return true
		}
	}
	return false
}

// parseHeaders parses HTTP headers
func parseHeaders(req *Request, data []byte) {
	for len(data) > 0 {
		lineEnd := bytes.IndexByte(data, '\n')
		if lineEnd == -1 {
			lineEnd = len(data)
		}

		line := data[:lineEnd]
		if len(line) > 0 && line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
		}
		if len(line) == 0 {
			break
		}

		colon := bytes.IndexByte(line, ':')
		if colon > 0 {
			key := string(bytes.TrimSpace(line[:colon]))
			value := string(bytes.TrimSpace(line[colon+1:]))
			req.SetHeader(key, value)
		}

		if lineEnd == len(data) {
			break
		}
		data = data[lineEnd+1:]
	}
}

// parseQuery parses query parameters
func parseQuery(req *Request, queryStr string) {
	if req.Query == nil {
		req.Query = make(map[string]string)
	}
	for _, pair := range strings.Split(queryStr, "&") {
		if pair == "" {
			continue
		}
		if eq := strings.IndexByte(pair, '='); eq != -1 {
			req.Query[pair[:eq]] = pair[eq+1:]
		} else {
			req.Query[pair] = ""
		}
	}
}
