package middleware

import (
	"bytes"
	"net/http"
)

// responseCapture buffers a handler's response so middleware can inspect the
// body and complete side effects before anything reaches the client.
type responseCapture struct {
	header http.Header
	body   bytes.Buffer
	status int
}

func newResponseCapture() *responseCapture {
	return &responseCapture{
		header: make(http.Header),
		status: http.StatusOK,
	}
}

func (c *responseCapture) Header() http.Header {
	return c.header
}

func (c *responseCapture) WriteHeader(status int) {
	c.status = status
}

func (c *responseCapture) Write(b []byte) (int, error) {
	return c.body.Write(b)
}

// flush replays the captured response onto the real writer.
func (c *responseCapture) flush(w http.ResponseWriter) {
	for key, values := range c.header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	w.WriteHeader(c.status)
	w.Write(c.body.Bytes())
}
