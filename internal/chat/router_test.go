package chat

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestRouterDispatchesToMatchingSubscriptions(t *testing.T) {
	r := NewRouter()
	all, cancelAll := r.Listen(func(Message) bool { return true })
	defer cancelAll()
	dms, cancelDMs := r.Listen(func(m Message) bool { return strings.HasPrefix(m.Channel, "D") })
	defer cancelDMs()

	r.Dispatch(Message{User: "u1", Channel: "C1", Text: "hello"})
	r.Dispatch(Message{User: "u1", Channel: "D1", Text: "private"})

	if got := <-all; got.Text != "hello" {
		t.Fatalf("first broadcast message = %q", got.Text)
	}
	if got := <-all; got.Text != "private" {
		t.Fatalf("second broadcast message = %q", got.Text)
	}
	if got := <-dms; got.Text != "private" {
		t.Fatalf("dm subscription received %q", got.Text)
	}
	select {
	case m := <-dms:
		t.Fatalf("dm subscription received channel message %q", m.Text)
	default:
	}
}

func TestRouterCancelClosesChannel(t *testing.T) {
	r := NewRouter()
	msgs, cancel := r.Listen(func(Message) bool { return true })

	r.Dispatch(Message{Text: "before"})
	cancel()
	cancel() // safe to call twice

	if m, open := <-msgs; !open || m.Text != "before" {
		t.Fatalf("buffered message lost: %q open=%v", m.Text, open)
	}
	if _, open := <-msgs; open {
		t.Fatal("channel should be closed after cancel")
	}
	if got := r.SubscriberCount(); got != 0 {
		t.Fatalf("subscriber count = %d after cancel", got)
	}

	// Dispatch after cancel must not panic or deliver.
	r.Dispatch(Message{Text: "after"})
}

func TestRouterDropsWhenSubscriptionFull(t *testing.T) {
	r := NewRouter()
	msgs, cancel := r.Listen(func(Message) bool { return true })
	defer cancel()

	for i := 0; i < subscriptionBuffer+5; i++ {
		r.Dispatch(Message{Text: "m"})
	}

	received := 0
	for {
		select {
		case <-msgs:
			received++
		default:
			if received != subscriptionBuffer {
				t.Fatalf("received %d messages, want %d", received, subscriptionBuffer)
			}
			return
		}
	}
}

func TestRouterConcurrentDispatch(t *testing.T) {
	r := NewRouter()
	msgs, cancel := r.Listen(func(m Message) bool { return m.User == "u1" })
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			r.Dispatch(Message{User: "u1", Text: "ping"})
			r.Dispatch(Message{User: "u2", Text: "noise"})
		}
	}()

	for i := 0; i < 10; i++ {
		m := <-msgs
		if m.User != "u1" {
			t.Fatalf("filter leaked message from %s", m.User)
		}
	}
	<-done
}

func TestTimerSchedulerZeroDuration(t *testing.T) {
	if err := (TimerScheduler{}).Sleep(context.Background(), 0); err != nil {
		t.Fatalf("zero sleep: %v", err)
	}
}

func TestTimerSchedulerSleeps(t *testing.T) {
	start := time.Now()
	if err := (TimerScheduler{}).Sleep(context.Background(), 10*time.Millisecond); err != nil {
		t.Fatalf("sleep: %v", err)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Fatal("sleep returned early")
	}
}

func TestTimerSchedulerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (TimerScheduler{}).Sleep(ctx, time.Hour); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
