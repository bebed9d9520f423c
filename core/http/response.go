package http

import "strconv"

var statusText = map[int]string{
	200: "OK",
	201: "Created",
	204: "No Content",
	301: "Moved Permanently",
	302: "Found",
	304: "Not Modified",
	400: "Bad Request",
	401: "Unauthorized",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	413: "Payload Too Large",
	429: "Too Many Requests",
	500: "Internal Server Error",
	501: "Not Implemented",
	503: "Service Unavailable",
}

// StatusText returns the reason phrase for a status code.
func StatusText(code int) string {
	if text, ok := statusText[code]; ok {
		return text
	}
	return "Unknown"
}

// Response builds an HTTP/1.1 response frame.
type Response struct {
	Status int
	Body   []byte

	headerKeys   []string
	headerValues []string
}

// NewResponse creates a response with the given status.
func NewResponse(status int) *Response {
	return &Response{Status: status}
}

// SetHeader appends a header. Content-Length is emitted automatically.
func (r *Response) SetHeader(key, value string) {
	r.headerKeys = append(r.headerKeys, key)
	r.headerValues = append(r.headerValues, value)
}

// SetBody sets the body and its content type.
func (r *Response) SetBody(contentType string, body []byte) {
	r.SetHeader("Content-Type", contentType)
	r.Body = body
}

// Bytes serializes the response into wire form.
func (r *Response) Bytes() []byte {
	out := make([]byte, 0, 128+len(r.Body))
	out = append(out, "HTTP/1.1 "...)
	out = strconv.AppendInt(out, int64(r.Status), 10)
	out = append(out, ' ')
	out = append(out, StatusText(r.Status)...)
	out = append(out, "\r\n"...)

	for i, key := range r.headerKeys {
		out = append(out, key...)
		out = append(out, ": "...)
		out = append(out, r.headerValues[i]...)
		out = append(out, "\r\n"...)
	}

	out = append(out, "Content-Length: "...)
	out = strconv.AppendInt(out, int64(len(r.Body)), 10)
	out = append(out, "\r\n\r\n"...)
	out = append(out, r.Body...)
	return out
}

// ErrorResponse builds a plain-text error response frame.
func ErrorResponse(status int, message string) []byte {
	resp := NewResponse(status)
	resp.SetBody("text/plain; charset=utf-8", []byte(message))
	return resp.Bytes()
}
