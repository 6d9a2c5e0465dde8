package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/camlann/avalon/internal/avalon"
	"github.com/camlann/avalon/internal/chat"
	"github.com/camlann/avalon/internal/testkit/chatfakes"
)

const waitTimeout = 5 * time.Second

type fakeDirectory struct {
	byID   map[string]chat.User
	byName map[string]chat.User
}

func newFakeDirectory(count int) *fakeDirectory {
	d := &fakeDirectory{byID: make(map[string]chat.User), byName: make(map[string]chat.User)}
	for i := 1; i <= count; i++ {
		u := chat.User{ID: fmt.Sprintf("u%d", i), Name: fmt.Sprintf("player%d", i)}
		d.byID[u.ID] = u
		d.byName[u.Name] = u
	}
	return d
}

func (d *fakeDirectory) UserByID(id string) (chat.User, bool) {
	u, ok := d.byID[id]
	return u, ok
}

func (d *fakeDirectory) UserByName(name string) (chat.User, bool) {
	u, ok := d.byName[strings.ToLower(strings.TrimPrefix(name, "@"))]
	return u, ok
}

func (d *fakeDirectory) IsDM(channelID string) bool {
	return strings.HasPrefix(channelID, "D")
}

type fakeOpener struct{}

func (fakeOpener) OpenDM(userID string) (string, error) {
	return "D-" + userID, nil
}

// gateScheduler blocks every sleep until released, then lets all
// subsequent sleeps through instantly.
type gateScheduler struct {
	once    sync.Once
	release chan struct{}
}

func newGateScheduler() *gateScheduler {
	return &gateScheduler{release: make(chan struct{})}
}

func (g *gateScheduler) open() { g.once.Do(func() { close(g.release) }) }

func (g *gateScheduler) Sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-g.release:
		return nil
	}
}

type botFixture struct {
	t      *testing.T
	sender *chatfakes.Sender
	router *chat.Router
	sched  *gateScheduler
	bot    *Bot
}

func newBotFixture(t *testing.T, users int) *botFixture {
	t.Helper()
	f := &botFixture{
		t:      t,
		sender: chatfakes.NewSender(),
		router: chat.NewRouter(),
		sched:  newGateScheduler(),
	}
	b, err := New(Deps{
		Sender:    f.sender,
		Router:    f.router,
		Directory: newFakeDirectory(users),
		Opener:    fakeOpener{},
		Scheduler: f.sched,
		BotID:     func() string { return "BOT" },
		Logf:      t.Logf,
	}, Config{PollWindow: time.Second, Game: avalon.DefaultConfig()})
	if err != nil {
		t.Fatalf("new bot: %v", err)
	}
	f.bot = b

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		f.sched.open()
		cancel()
	})
	go b.Run(ctx)

	// The run loop must be subscribed before the test dispatches.
	deadline := time.Now().Add(waitTimeout)
	for f.router.SubscriberCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("bot never subscribed to the router")
		}
		time.Sleep(time.Millisecond)
	}
	return f
}

func (f *botFixture) say(user, channel, text string) {
	f.router.Dispatch(chat.Message{User: user, Channel: channel, Text: text})
}

func (f *botFixture) await(substr string) chatfakes.Delivery {
	f.t.Helper()
	d, ok := f.sender.WaitFor(waitTimeout, substr)
	if !ok {
		f.t.Fatalf("timed out waiting for %q", substr)
	}
	return d
}

func (f *botFixture) awaitSession() *avalon.Session {
	f.t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for {
		if s := f.bot.Session(); s != nil {
			return s
		}
		if time.Now().After(deadline) {
			f.t.Fatal("no session started")
		}
		time.Sleep(time.Millisecond)
	}
}

// awaitPollDone spins until the lobby poll guard has cleared, so a
// follow-up play command exercises the in-progress guard rather than
// the polling guard.
func (f *botFixture) awaitPollDone() {
	f.t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for {
		f.bot.mu.Lock()
		polling := f.bot.polling
		f.bot.mu.Unlock()
		if !polling {
			return
		}
		if time.Now().After(deadline) {
			f.t.Fatal("lobby poll never finished")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestNewValidation(t *testing.T) {
	sender := chatfakes.NewSender()
	router := chat.NewRouter()
	if _, err := New(Deps{Router: router, Directory: newFakeDirectory(0), Opener: fakeOpener{}}, Config{}); err == nil {
		t.Fatal("expected error without sender")
	}
	if _, err := New(Deps{Sender: sender, Router: router, Opener: fakeOpener{}}, Config{}); err == nil {
		t.Fatal("expected error without directory")
	}
	if _, err := New(Deps{Sender: sender, Router: router, Directory: newFakeDirectory(0)}, Config{}); err == nil {
		t.Fatal("expected error without opener")
	}
}

func TestLobbyPollStartsGame(t *testing.T) {
	f := newBotFixture(t, 6)

	f.say("u1", "C1", "play avalon")
	d := f.await("Who wants to play Avalon?")
	if d.Channel != "C1" {
		t.Fatalf("lobby announced in %s, want C1", d.Channel)
	}

	for _, u := range []string{"u2", "u3", "u4", "u5"} {
		f.say(u, "C1", "join")
	}
	f.say("u2", "C1", "join") // duplicate, must not count twice
	f.sched.open()

	f.await("@player5 has joined the game")
	f.await("We've got 5 players, let's start the game.")
	session := f.awaitSession()
	if got := len(session.Players()); got != 5 {
		t.Fatalf("session has %d players, want 5", got)
	}

	f.say("u2", "C1", "quit game")
	f.await("@player2 has decided to quit the game.")
	deadline := time.Now().Add(waitTimeout)
	for f.bot.Session() != nil {
		if time.Now().After(deadline) {
			t.Fatal("session not cleared after quit")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestLobbyTooFewPlayers(t *testing.T) {
	f := newBotFixture(t, 6)

	f.say("u1", "C1", "play avalon")
	f.await("Who wants to play Avalon?")
	f.sched.open()

	d := f.await("Avalon requires 5-10 players.")
	if !strings.Contains(d.Text, "You have 1 valid players.") {
		t.Fatalf("unexpected text: %q", d.Text)
	}
	if f.bot.Session() != nil {
		t.Fatal("no session should have started")
	}
}

func TestPlayReportsUnknownNames(t *testing.T) {
	f := newBotFixture(t, 6)

	f.say("u1", "C1", "play avalon player2 bogus")
	f.await("Cannot find player bogus")
	f.await("Who wants to play Avalon?")
	f.sched.open()
	f.await("You have 2 valid players.")
}

func TestPlayInDMSkipsPoll(t *testing.T) {
	f := newBotFixture(t, 6)

	f.say("u1", "D-u1", "play avalon player2 player3 player4 player5")
	f.await("We've got 5 players, let's start the game.")
	if f.sender.Contains("Who wants to play Avalon?") {
		t.Fatal("a game started from a private channel must not poll")
	}
	f.awaitSession()
}

func TestSecondLobbyGuard(t *testing.T) {
	f := newBotFixture(t, 6)

	f.say("u1", "C1", "play avalon")
	f.await("Who wants to play Avalon?")

	f.say("u2", "C2", "play avalon")
	d := f.await("Another game is polling in a different channel")
	if d.Channel != "C2" {
		t.Fatalf("guard notice went to %s, want C2", d.Channel)
	}
}

func TestGameInProgressGuard(t *testing.T) {
	f := newBotFixture(t, 6)

	f.say("u1", "D-u1", "play avalon player2 player3 player4 player5")
	f.await("We've got 5 players, let's start the game.")
	f.awaitSession()
	f.awaitPollDone()

	f.say("u6", "C1", "play avalon")
	f.await("Another game is in progress, quit that first.")
}

func TestConfigTimeout(t *testing.T) {
	f := newBotFixture(t, 6)

	f.say("u1", "C1", "<@BOT> config timeout=10")
	f.await("Game timeout has been set to 10.")

	f.bot.mu.Lock()
	pace := f.bot.cfg.Game.RoundPace
	f.bot.mu.Unlock()
	if pace != 10*time.Second {
		t.Fatalf("round pace = %s, want 10s", pace)
	}
}

func TestConfigIgnoredWithoutMention(t *testing.T) {
	f := newBotFixture(t, 6)

	f.say("u1", "C1", "config timeout=10")
	// Synchronize on a recognized command to prove the previous
	// message was processed and ignored.
	f.say("u1", "C1", "<@BOT> config timeout=2")
	f.await("Game timeout has been set to 2.")
	if f.sender.Contains("set to 10") {
		t.Fatal("config without a bot mention must be ignored")
	}
}

func TestQuitWithoutGameIgnored(t *testing.T) {
	f := newBotFixture(t, 6)

	f.say("u1", "C1", "quit game")
	f.say("u1", "C1", "<@BOT> config timeout=2")
	f.await("Game timeout has been set to 2.")
	if f.sender.Contains("has decided to quit") {
		t.Fatal("quit with no running game must be ignored")
	}
}
