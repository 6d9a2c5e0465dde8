// Package chatfakes provides in-memory chat collaborators for
// deterministic game tests: a recording sender and an instant
// scheduler.
package chatfakes

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/camlann/avalon/internal/chat"
)

// Delivery is one recorded outbound message.
type Delivery struct {
	Channel string
	Text    string
	Post    chat.Post
	Plain   bool
}

// Sender records every outbound message and signals deliveries so
// tests can wait for a prompt before answering it.
type Sender struct {
	mu         sync.Mutex
	deliveries []Delivery
	signal     chan Delivery
}

// NewSender returns a recording sender.
func NewSender() *Sender {
	return &Sender{signal: make(chan Delivery, 1024)}
}

// Send records a plain text message.
func (s *Sender) Send(channelID, text string) error {
	return s.record(Delivery{Channel: channelID, Text: text, Plain: true})
}

// PostMessage records a formatted message.
func (s *Sender) PostMessage(channelID string, post chat.Post) error {
	return s.record(Delivery{Channel: channelID, Text: post.Text, Post: post})
}

func (s *Sender) record(d Delivery) error {
	s.mu.Lock()
	s.deliveries = append(s.deliveries, d)
	s.mu.Unlock()
	select {
	case s.signal <- d:
	default:
	}
	return nil
}

// Deliveries returns a snapshot of everything sent so far.
func (s *Sender) Deliveries() []Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Delivery, len(s.deliveries))
	copy(out, s.deliveries)
	return out
}

// TextsTo returns the message bodies delivered to one channel.
func (s *Sender) TextsTo(channelID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, d := range s.deliveries {
		if d.Channel == channelID {
			out = append(out, d.Text)
		}
	}
	return out
}

// Contains reports whether any delivery so far contains substr.
func (s *Sender) Contains(substr string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.deliveries {
		if strings.Contains(d.Text, substr) {
			return true
		}
	}
	return false
}

// CountContaining counts deliveries whose body contains substr.
func (s *Sender) CountContaining(substr string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, d := range s.deliveries {
		if strings.Contains(d.Text, substr) {
			n++
		}
	}
	return n
}

// WaitFor blocks until a delivery containing substr has been
// recorded, returning false on timeout. Deliveries recorded before
// the call also satisfy the wait.
func (s *Sender) WaitFor(timeout time.Duration, substr string) (Delivery, bool) {
	deadline := time.After(timeout)
	for {
		s.mu.Lock()
		for _, d := range s.deliveries {
			if strings.Contains(d.Text, substr) {
				s.mu.Unlock()
				return d, true
			}
		}
		s.mu.Unlock()
		select {
		case <-deadline:
			return Delivery{}, false
		case <-s.signal:
		}
	}
}

// WaitForCount blocks until at least n deliveries contain substr,
// returning false on timeout.
func (s *Sender) WaitForCount(timeout time.Duration, substr string, n int) bool {
	deadline := time.After(timeout)
	for {
		if s.CountContaining(substr) >= n {
			return true
		}
		select {
		case <-deadline:
			return false
		case <-s.signal:
		}
	}
}

// InstantScheduler returns immediately from every sleep, recording
// the requested delays.
type InstantScheduler struct {
	mu    sync.Mutex
	slept []time.Duration
}

// Sleep records d and returns without waiting.
func (s *InstantScheduler) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.slept = append(s.slept, d)
	s.mu.Unlock()
	return ctx.Err()
}

// Slept returns the recorded sleep requests.
func (s *InstantScheduler) Slept() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.slept))
	copy(out, s.slept)
	return out
}
