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
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Flusher is satisfied by http.ResponseWriter; kept as a narrow interface so
// SSEHandler does not import net/http directly.
type Flusher interface {
	Flush()
}

// SSEHandler serializes events onto a caller-provided writer in the
// `event: <kind>\ndata: <json>\n\n` wire form, with an optional heartbeat
// and optional chunk buffering for assistant_message_chunk events.
type SSEHandler struct {
	w       io.Writer
	flusher Flusher

	mu       sync.Mutex
	failed   bool
	buffer   []Event
	bufLimit int

	heartbeatInterval time.Duration
	lastEmit          time.Time
	stopHeartbeat     chan struct{}
	heartbeatOnce     sync.Once
}

// NewSSEHandler creates a handler writing frames to w. If f is non-nil it is
// flushed after every write so the client sees bytes immediately. bufLimit
// of 0 disables chunk buffering (each chunk is written as it arrives).
func NewSSEHandler(w io.Writer, f Flusher, bufLimit int) *SSEHandler {
	return &SSEHandler{
		w:        w,
		flusher:  f,
		bufLimit: bufLimit,
		lastEmit: time.Now(),
	}
}

// StartHeartbeat begins writing a heartbeat frame whenever interval elapses
// without another event being emitted. Call Stop to end it.
func (s *SSEHandler) StartHeartbeat(interval time.Duration) {
	s.heartbeatOnce.Do(func() {
		s.heartbeatInterval = interval
		s.stopHeartbeat = make(chan struct{})
		go s.heartbeatLoop()
	})
}

func (s *SSEHandler) heartbeatLoop() {
	ticker := time.NewTicker(s.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopHeartbeat:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			due := !s.failed && now.Sub(s.lastEmit) >= s.heartbeatInterval
			s.mu.Unlock()
			if due {
				s.writeFrame(Event{Kind: KindHeartbeat, Timestamp: float64(now.Unix())})
			}
		}
	}
}

// Stop cancels the heartbeat goroutine, if running. Safe to call multiple
// times and safe to call when no heartbeat was started.
func (s *SSEHandler) Stop() {
	s.mu.Lock()
	ch := s.stopHeartbeat
	s.mu.Unlock()
	if ch != nil {
		select {
		case <-ch:
		default:
			close(ch)
		}
	}
}

func (s *SSEHandler) HandleEvent(e Event) error {
	s.mu.Lock()
	if s.failed {
		s.mu.Unlock()
		return nil
	}
	s.lastEmit = time.Now()

	if s.bufLimit > 0 && e.Kind == KindAssistantMessageChunk {
		s.buffer = append(s.buffer, e)
		if len(s.buffer) < s.bufLimit {
			s.mu.Unlock()
			return nil
		}
		pending := s.buffer
		s.buffer = nil
		s.mu.Unlock()
		return s.flushBuffered(pending)
	}
	s.mu.Unlock()
	return s.writeFrame(e)
}

// Flush forces any buffered chunk events out immediately, e.g. at the end
// of a turn so nothing is left unsent below bufLimit.
func (s *SSEHandler) Flush() error {
	s.mu.Lock()
	pending := s.buffer
	s.buffer = nil
	s.mu.Unlock()
	if len(pending) == 0 {
		return nil
	}
	return s.flushBuffered(pending)
}

func (s *SSEHandler) flushBuffered(events []Event) error {
	for _, e := range events {
		if err := s.writeFrame(e); err != nil {
			return err
		}
	}
	return nil
}

func (s *SSEHandler) writeFrame(e Event) error {
	frame, err := e.SSEFrame()
	if err != nil {
		s.markFailed()
		return err
	}
	if _, err := fmt.Fprint(s.w, frame); err != nil {
		s.markFailed()
		return err
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

func (s *SSEHandler) markFailed() {
	s.mu.Lock()
	s.failed = true
	s.mu.Unlock()
	s.Stop()
}

func (s *SSEHandler) HandleError(err error) {
	slog.Error("sse handler delivery error", "error", err)
}
