// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package streaming

import (
	"log/slog"
	"sync"
)

// Handler receives events fanned out by a Session. An exception from one
// handler must not suppress delivery to the rest, so HandleEvent errors are
// routed to HandleError on the same handler rather than propagated.
type Handler interface {
	HandleEvent(e Event) error
	HandleError(err error)
}

// Session owns event fan-out to all registered handlers for the duration
// of one turn. Handlers observe events from a single session in the same
// total order they were emitted; no ordering is guaranteed across sessions.
type Session struct {
	SessionID string

	mu       sync.Mutex
	handlers []Handler
	metadata map[string]any
	active   bool
}

// NewSession creates a session bound to sessionID. The session starts
// active; a turn closes it with Close.
func NewSession(sessionID string) *Session {
	return &Session{
		SessionID: sessionID,
		metadata:  make(map[string]any),
		active:    true,
	}
}

// AddHandler registers a sink. Safe to call concurrently with Emit.
func (s *Session) AddHandler(h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, h)
}

// IsActive reports whether the session still accepts events.
func (s *Session) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Close stops the session from accepting further events. In-flight tool
// handlers may still complete, but their results are discarded by the
// caller once Close has been observed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
}

// Emit delivers e to every handler in registration order. A handler whose
// HandleEvent returns an error has that error routed to its own
// HandleError; delivery to the remaining handlers continues regardless.
func (s *Session) Emit(e Event) {
	s.mu.Lock()
	active := s.active
	handlers := make([]Handler, len(s.handlers))
	copy(handlers, s.handlers)
	s.mu.Unlock()

	if !active {
		return
	}

	e.SessionID = s.SessionID
	for _, h := range handlers {
		s.deliverTo(h, e)
	}
}

// deliverTo calls one handler, isolating the rest of the fan-out from
// either a returned error or a panic inside the handler.
func (s *Session) deliverTo(h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			logHandlerPanic("HandleEvent", r)
		}
	}()
	if err := h.HandleEvent(e); err != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logHandlerPanic("HandleError", r)
				}
			}()
			h.HandleError(err)
		}()
	}
}

// SetMetadata stores a session-scoped key, e.g. the configured output
// directory a terminal handler uses to save documents.
func (s *Session) SetMetadata(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata[key] = value
}

// Metadata reads a session-scoped key set by SetMetadata.
func (s *Session) Metadata(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.metadata[key]
	return v, ok
}

// logHandlerPanic is used by handlers that want to report a panic as an
// error instead of crashing the whole turn; mirrors the teacher's defensive
// recover() pattern around callback invocation (pkg/agent/llmagent/flow.go).
func logHandlerPanic(name string, r any) {
	slog.Error("stream handler panicked", "handler", name, "panic", r)
}
