// Package bot is the command layer in front of the game: it watches
// the workspace for the play trigger, polls for players, opens their
// private channels, and owns the one-game-at-a-time lifecycle.
package bot

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/camlann/avalon/internal/avalon"
	"github.com/camlann/avalon/internal/chat"
)

// Directory resolves workspace users and channel kinds.
type Directory interface {
	UserByName(name string) (chat.User, bool)
	UserByID(id string) (chat.User, bool)
	IsDM(channelID string) bool
}

// DMOpener opens a private channel with a user.
type DMOpener interface {
	OpenDM(userID string) (string, error)
}

// Deps are the bot's collaborators.
type Deps struct {
	Sender    chat.Sender
	Router    *chat.Router
	Directory Directory
	Opener    DMOpener
	Scheduler chat.Scheduler
	// BotID resolves the bot's own user ID; it may not be known
	// until the transport has authenticated.
	BotID func() string
	Logf  func(format string, args ...any)
}

// Config tunes the lobby and the games it launches.
type Config struct {
	// PollWindow is how long the lobby accepts join replies.
	PollWindow time.Duration
	// Game is the configuration handed to each session.
	Game avalon.Config
}

var (
	playRe   = regexp.MustCompile(`(?i)^play avalon\b`)
	joinRe   = regexp.MustCompile(`(?i)^join$`)
	quitRe   = regexp.MustCompile(`(?i)^quit game\b`)
	configRe = regexp.MustCompile(`(\w+)=(\d+)`)
)

const defaultPollWindow = 30 * time.Second

// Bot wires chat commands to game sessions.
type Bot struct {
	deps Deps
	cfg  Config

	mu      sync.Mutex
	polling bool
	session *avalon.Session
}

// New builds the bot. Sender, Router, Directory, and Opener are
// required.
func New(deps Deps, cfg Config) (*Bot, error) {
	if deps.Sender == nil || deps.Router == nil {
		return nil, fmt.Errorf("sender and router are required")
	}
	if deps.Directory == nil || deps.Opener == nil {
		return nil, fmt.Errorf("directory and dm opener are required")
	}
	if deps.Scheduler == nil {
		deps.Scheduler = chat.TimerScheduler{}
	}
	if deps.BotID == nil {
		deps.BotID = func() string { return "" }
	}
	if deps.Logf == nil {
		deps.Logf = log.Printf
	}
	if cfg.PollWindow <= 0 {
		cfg.PollWindow = defaultPollWindow
	}
	if cfg.Game.TurnOrder == "" {
		cfg.Game = avalon.DefaultConfig()
	}
	return &Bot{deps: deps, cfg: cfg}, nil
}

// Run consumes the inbound stream until ctx is done, reacting to the
// play, quit, and config commands.
func (b *Bot) Run(ctx context.Context) error {
	msgs, cancel := b.deps.Router.Listen(func(chat.Message) bool { return true })
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, open := <-msgs:
			if !open {
				return nil
			}
			b.handle(ctx, m)
		}
	}
}

func (b *Bot) handle(ctx context.Context, m chat.Message) {
	text := strings.TrimSpace(m.Text)
	switch {
	case playRe.MatchString(text):
		go b.startLobby(ctx, m)
	case quitRe.MatchString(text):
		b.quitGame(m)
	case b.mentionsBot(text) && strings.Contains(strings.ToLower(text), "config"):
		b.applyConfig(m)
	}
}

func (b *Bot) mentionsBot(text string) bool {
	id := b.deps.BotID()
	return id != "" && strings.Contains(text, "<@"+id+">")
}

// quitGame force-ends the running game, crediting the quitter.
func (b *Bot) quitGame(m chat.Message) {
	b.mu.Lock()
	session := b.session
	b.mu.Unlock()
	if session == nil || !session.Running() {
		return
	}
	name := m.User
	if u, ok := b.deps.Directory.UserByID(m.User); ok {
		name = u.Name
	}
	b.send(m.Channel, fmt.Sprintf("@%s has decided to quit the game.", name))
	session.Quit(fmt.Sprintf("@%s has decided to quit the game.", name))
}

// applyConfig sets recognized key=value parameters from a message
// mentioning the bot. Only timeout (round pace, seconds) is
// recognized.
func (b *Bot) applyConfig(m chat.Message) {
	for _, match := range configRe.FindAllStringSubmatch(m.Text, -1) {
		key, value := match[1], match[2]
		if key != "timeout" {
			continue
		}
		seconds, err := strconv.Atoi(value)
		if err != nil || seconds < 0 {
			continue
		}
		b.mu.Lock()
		b.cfg.Game.RoundPace = time.Duration(seconds) * time.Second
		b.mu.Unlock()
		b.send(m.Channel, fmt.Sprintf("Game %s has been set to %s.", key, value))
	}
}

// startLobby runs one poll-and-start attempt. Guarded so only one
// poll and one game exist at a time.
func (b *Bot) startLobby(ctx context.Context, m chat.Message) {
	b.mu.Lock()
	if b.polling {
		b.mu.Unlock()
		b.send(m.Channel, "Another game is polling in a different channel")
		return
	}
	if b.session != nil && b.session.Running() {
		b.mu.Unlock()
		b.send(m.Channel, "Another game is in progress, quit that first.")
		return
	}
	b.polling = true
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		b.polling = false
		b.mu.Unlock()
	}()

	roster, errs := b.resolveRoster(m)
	if len(errs) > 0 {
		b.send(m.Channel, strings.Join(errs, "\n"))
	}
	// A play command in a DM starts directly with the named
	// players; a channel command polls for joiners first.
	if !b.deps.Directory.IsDM(m.Channel) {
		roster = b.pollJoins(ctx, m.Channel, roster)
	}

	if len(roster) < avalon.MinPlayers || len(roster) > avalon.MaxPlayers {
		b.send(m.Channel, fmt.Sprintf("Avalon requires %d-%d players. You have %d valid players.",
			avalon.MinPlayers, avalon.MaxPlayers, len(roster)))
		return
	}

	b.launch(ctx, m.Channel, roster)
}

// resolveRoster seeds the roster with the initiator plus any names
// given on the play command, reporting unresolvable names.
func (b *Bot) resolveRoster(m chat.Message) ([]chat.User, []string) {
	var roster []chat.User
	seen := make(map[string]bool)
	add := func(u chat.User) {
		if !seen[u.ID] {
			seen[u.ID] = true
			roster = append(roster, u)
		}
	}

	if initiator, ok := b.deps.Directory.UserByID(m.User); ok {
		add(initiator)
	}

	var errs []string
	tokens := regexp.MustCompile(`[,\s]+`).Split(strings.TrimSpace(m.Text), -1)
	if len(tokens) > 2 {
		for _, name := range tokens[2:] {
			u, ok := b.deps.Directory.UserByName(name)
			if !ok {
				errs = append(errs, fmt.Sprintf("Cannot find player %s", name))
				continue
			}
			add(u)
		}
	}
	return roster, errs
}

// pollJoins announces the lobby and collects distinct join replies
// from the channel for the poll window.
func (b *Bot) pollJoins(ctx context.Context, channelID string, roster []chat.User) []chat.User {
	joins, cancel := b.deps.Router.Listen(func(m chat.Message) bool {
		return m.Channel == channelID && joinRe.MatchString(strings.TrimSpace(m.Text))
	})

	b.send(channelID, fmt.Sprintf("Who wants to play Avalon? Reply *join* in the next %s.", b.cfg.PollWindow))
	if err := b.deps.Scheduler.Sleep(ctx, b.cfg.PollWindow); err != nil {
		cancel()
		return roster
	}
	cancel()

	seen := make(map[string]bool, len(roster))
	for _, u := range roster {
		seen[u.ID] = true
	}
	for m := range joins {
		if seen[m.User] || m.User == b.deps.BotID() {
			continue
		}
		u, ok := b.deps.Directory.UserByID(m.User)
		if !ok {
			continue
		}
		seen[u.ID] = true
		roster = append(roster, u)
		b.send(channelID, fmt.Sprintf("@%s has joined the game (%d players in game so far)", u.Name, len(roster)))
	}
	return roster
}

// launch opens private channels and starts the session.
func (b *Bot) launch(ctx context.Context, channelID string, roster []chat.User) {
	players := make([]avalon.Player, len(roster))
	channels := make(map[string]string, len(roster))
	for i, u := range roster {
		players[i] = avalon.Player{ID: u.ID, Name: u.Name}
		dm, err := b.deps.Opener.OpenDM(u.ID)
		if err != nil {
			b.send(channelID, fmt.Sprintf("Cannot open a direct message with @%s, not starting.", u.Name))
			return
		}
		channels[u.ID] = dm
	}

	b.mu.Lock()
	game := b.cfg.Game
	b.mu.Unlock()
	session, err := avalon.NewSession(avalon.Deps{
		Sender:    b.deps.Sender,
		Router:    b.deps.Router,
		Scheduler: b.deps.Scheduler,
		Logf:      b.deps.Logf,
	}, players, game)
	if err != nil {
		b.send(channelID, "Could not start the game: "+err.Error())
		return
	}

	done, err := session.Start(ctx, channels)
	if err != nil {
		b.send(channelID, "Could not start the game: "+err.Error())
		return
	}

	gameID := uuid.NewString()
	b.deps.Logf("bot: game %s started with %d players", gameID, len(players))

	b.mu.Lock()
	b.session = session
	b.mu.Unlock()
	b.send(channelID, fmt.Sprintf("We've got %d players, let's start the game.", len(players)))

	go func() {
		<-done
		b.deps.Logf("bot: game %s finished", gameID)
		b.mu.Lock()
		b.session = nil
		b.mu.Unlock()
	}()
}

// Session returns the running game, or nil.
func (b *Bot) Session() *avalon.Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session
}

func (b *Bot) send(channelID, text string) {
	if err := b.deps.Sender.Send(channelID, text); err != nil {
		b.deps.Logf("bot: send to %s: %v", channelID, err)
	}
}
