package protocol

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/creachadair/jrpc2"
)

// RPCMessage is one request or response seen by an RPCTracker.
type RPCMessage struct {
	Method   string
	Request  *jrpc2.Request
	Response *jrpc2.Response
	Time     time.Time
}

// IsNotification reports whether the message is a request without an id.
func (m RPCMessage) IsNotification() bool {
	return m.Request != nil && m.Request.IsNotification()
}

var _ jrpc2.RPCLogger = (*RPCTracker)(nil)

// RPCTracker records the traffic of a jrpc2 server, used by tests to assert
// on the order of the LSP handshake.
type RPCTracker struct {
	mu sync.RWMutex

	messages []RPCMessage
	methods  map[string]string // request id -> method
}

func NewRPCTracker() *RPCTracker {
	return &RPCTracker{
		messages: make([]RPCMessage, 0),
		methods:  make(map[string]string),
	}
}

func (t *RPCTracker) LogRequest(ctx context.Context, req *jrpc2.Request) {
	if !req.IsNotification() {
		t.mu.Lock()
		t.methods[req.ID()] = req.Method()
		t.mu.Unlock()
	}
	t.track(RPCMessage{Method: req.Method(), Request: req})
}

func (t *RPCTracker) LogResponse(ctx context.Context, rsp *jrpc2.Response) {
	t.mu.RLock()
	method := t.methods[rsp.ID()]
	t.mu.RUnlock()
	t.track(RPCMessage{Method: method, Response: rsp})
}

func (t *RPCTracker) track(msg RPCMessage) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	msg.Time = time.Now()
	t.messages = append(t.messages, msg)
}

// Messages returns a copy of everything recorded so far.
func (t *RPCTracker) Messages() []RPCMessage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.messages)
}

// RequestMethods returns the methods of the recorded requests and
// notifications in arrival order.
func (t *RPCTracker) RequestMethods() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	methods := make([]string, 0, len(t.messages))
	for _, msg := range t.messages {
		if msg.Request != nil {
			methods = append(methods, msg.Method)
		}
	}
	return methods
}

// MessagesLike returns the recorded messages matching predicate.
func (t *RPCTracker) MessagesLike(predicate func(RPCMessage) bool) []RPCMessage {
	msgs := t.Messages()
	return slices.DeleteFunc(msgs, func(msg RPCMessage) bool {
		return !predicate(msg)
	})
}
