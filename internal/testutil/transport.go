package testutil

import (
	"errors"
	"sync"
	"time"
)

// ErrTransportClosed is returned by ScriptedTransport.Send after Close.
var ErrTransportClosed = errors.New("scripted transport closed")

// ScriptedTransport is an in-memory debugger channel. Every command sent is
// answered by the handler; the answer is returned by the next
// ReadUntilPrompt call.
type ScriptedTransport struct {
	mu      sync.Mutex
	handler func(command string) []string
	sent    []string
	reply   []string
	closed  bool
}

// NewScriptedTransport creates a transport answering commands with handler.
func NewScriptedTransport(handler func(command string) []string) *ScriptedTransport {
	return &ScriptedTransport{handler: handler}
}

func (s *ScriptedTransport) Send(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrTransportClosed
	}

	s.sent = append(s.sent, line)
	s.reply = s.handler(line)
	return nil
}

func (s *ScriptedTransport) ReadUntilPrompt(time.Duration) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	reply := s.reply
	s.reply = nil
	return append(reply, "(gdb) ")
}

// Sent returns every command received so far.
func (s *ScriptedTransport) Sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

// Close makes further sends fail.
func (s *ScriptedTransport) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
