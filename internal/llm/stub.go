package llm

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// Reply is one scripted Stub outcome.
type Reply struct {
	Content json.RawMessage
	Usage   Usage
	Err     error
}

// Stub is a Provider that plays back scripted replies in order and keeps
// every request. Replies are checked against the request schema the same
// way Client checks vendor output. An exhausted script fails with
// KindUnavailable.
type Stub struct {
	mu       sync.Mutex
	script   []Reply
	requests []Request
	schemas  *schemaCache
}

var _ Provider = (*Stub)(nil)

func NewStub(replies ...Reply) *Stub {
	return &Stub{script: replies, schemas: newSchemaCache()}
}

func (s *Stub) Generate(_ context.Context, req Request) (*Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, req)
	if len(s.script) == 0 {
		return nil, &Error{Kind: KindUnavailable, Vendor: "mock", Err: errors.New("no scripted reply left")}
	}
	next := s.script[0]
	s.script = s.script[1:]
	if next.Err != nil {
		return nil, next.Err
	}

	resp := &Response{Content: next.Content, Usage: next.Usage, Model: "mock"}
	if err := s.schemas.check("mock", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Stub) ModelID() string { return "mock" }

func (s *Stub) Vendor() string { return "mock" }

// Push appends replies to the script.
func (s *Stub) Push(replies ...Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script = append(s.script, replies...)
}

// Requests returns a copy of the requests received so far.
func (s *Stub) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}
