package session

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
)

// Attempt is one submission of a logical request. Attempts are values: retrying
// builds a new Attempt instead of flagging the original one.
type Attempt struct {
	Request *http.Request
	Retried bool
}

// NewAttempt wraps a request that has not been submitted yet.
func NewAttempt(req *http.Request) Attempt {
	return Attempt{Request: req}
}

// Retry returns the attempt that resubmits the same request.
func (a Attempt) Retry() Attempt {
	return Attempt{Request: a.Request, Retried: true}
}

// body returns the body to send for this attempt. The first attempt sends the
// original body; a retry reads a fresh copy through GetBody.
func (a Attempt) body() (io.ReadCloser, error) {
	if !a.Retried || a.Request.Body == nil || a.Request.Body == http.NoBody {
		return a.Request.Body, nil
	}
	if a.Request.GetBody == nil {
		return nil, fmt.Errorf("request body of %s %s cannot be replayed", a.Request.Method, a.Request.URL)
	}
	return a.Request.GetBody()
}

// Replayable reports whether the request can be submitted again.
func (a Attempt) Replayable() bool {
	return a.Request.Body == nil || a.Request.Body == http.NoBody || a.Request.GetBody != nil
}

// MaxReplayBodySize is the largest body buffered so a request can be retried
// after renewal. Larger bodies are streamed once and are not retried.
const MaxReplayBodySize = 1 << 20

// replayable returns a request whose body can be read again through GetBody.
// Bodies without GetBody (e.g. proxied inbound requests) are buffered once, up
// to MaxReplayBodySize.
func replayable(req *http.Request) (*http.Request, error) {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return req, nil
	}
	if req.ContentLength > MaxReplayBodySize {
		return req, nil
	}

	data, err := io.ReadAll(io.LimitReader(req.Body, MaxReplayBodySize+1))
	if err != nil {
		_ = req.Body.Close()
		return nil, fmt.Errorf("buffering request body: %w", err)
	}

	out := req.Clone(req.Context())
	if len(data) > MaxReplayBodySize {
		// Too large: send what was read followed by the rest, without GetBody.
		out.Body = struct {
			io.Reader
			io.Closer
		}{io.MultiReader(bytes.NewReader(data), req.Body), req.Body}
		return out, nil
	}

	_ = req.Body.Close()
	out.Body = io.NopCloser(bytes.NewReader(data))
	out.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	out.ContentLength = int64(len(data))
	return out, nil
}
