package avalon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/camlann/avalon/internal/chat"
	"github.com/camlann/avalon/internal/random"
)

// TurnOrderRotation is the only supported turn-order mode: the
// leader advances through the shuffled seating on every proposal.
const TurnOrderRotation = "turn"

// Config is the immutable game configuration fixed at session
// creation.
type Config struct {
	// ResistanceOnly deals only plain good/bad roles.
	ResistanceOnly bool
	// EnableLady is recognized but the Lady of the Lake is not
	// dealt in this version.
	EnableLady bool
	// TurnOrder selects the leader rotation mode.
	TurnOrder string
	// SpecialRoles is the subset of {percival, morgana, mordred,
	// oberon} dealt when not in resistance-only mode.
	SpecialRoles []Role
	// RoundPace is the delay between announcements.
	RoundPace time.Duration
}

// DefaultConfig enables Percival and Morgana with a 3 second pace
// between announcements.
func DefaultConfig() Config {
	return Config{
		TurnOrder:    TurnOrderRotation,
		SpecialRoles: []Role{RolePercival, RoleMorgana},
		RoundPace:    3 * time.Second,
	}
}

// Deps are the session's injected collaborators. Sender and Router
// are required; the rest default to production implementations.
type Deps struct {
	Sender    chat.Sender
	Router    *chat.Router
	Scheduler chat.Scheduler
	// Shuffle permutes n elements via swap. Defaults to
	// rand.Shuffle over a crypto-seeded source.
	Shuffle func(n int, swap func(i, j int))
	// RandIntn returns a uniform value in [0, n). Used to pick the
	// designated assassin when no literal Assassin is dealt.
	RandIntn func(n int) int
	// Now supplies the game start timestamp for banners.
	Now func() time.Time
	// Logf receives operational log lines.
	Logf func(format string, args ...any)
}

// Session orchestrates a single game from role assignment to a
// terminal condition. All state transitions happen on the run loop
// goroutine; the public query surface is mutex-guarded.
type Session struct {
	cfg  Config
	deps Deps

	// Fixed during Start, read-only afterwards.
	players   []Player
	dms       map[string]string
	evils     []Player
	assassin  Player
	startedAt time.Time

	mu          sync.Mutex
	started     bool
	running     bool
	questNumber int
	rejectCount int
	progress    []Outcome

	done     chan struct{}
	quitOnce sync.Once
}

var (
	// ErrSenderRequired indicates a session built without a sender.
	ErrSenderRequired = errors.New("chat sender is required")
	// ErrRouterRequired indicates a session built without a router.
	ErrRouterRequired = errors.New("chat router is required")
	// ErrAlreadyStarted indicates a second Start on one session.
	ErrAlreadyStarted = errors.New("game already started")
	// ErrNoEvilPlayers indicates role composition produced no evil
	// seat. Unreachable under a correct template; treated as fatal
	// rather than silently recovered.
	ErrNoEvilPlayers = errors.New("no evil players to designate as assassin")
	// ErrMissingChannel indicates a player without a private
	// channel mapping.
	ErrMissingChannel = errors.New("player has no private channel")
)

// NewSession builds a session for the given roster. The roster is
// copied; roles are dealt in Start.
func NewSession(deps Deps, players []Player, cfg Config) (*Session, error) {
	if deps.Sender == nil {
		return nil, ErrSenderRequired
	}
	if deps.Router == nil {
		return nil, ErrRouterRequired
	}
	if deps.Scheduler == nil {
		deps.Scheduler = chat.TimerScheduler{}
	}
	if deps.Shuffle == nil || deps.RandIntn == nil {
		seed, err := random.NewSeed()
		if err != nil {
			return nil, err
		}
		rng := rand.New(rand.NewSource(seed))
		if deps.Shuffle == nil {
			deps.Shuffle = rng.Shuffle
		}
		if deps.RandIntn == nil {
			deps.RandIntn = rng.Intn
		}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logf == nil {
		deps.Logf = log.Printf
	}

	roster := make([]Player, len(players))
	copy(roster, players)

	return &Session{
		cfg:     cfg,
		deps:    deps,
		players: roster,
		done:    make(chan struct{}),
	}, nil
}

// Start deals roles, reveals them privately, and begins the round
// loop. privateChannels maps player IDs to their private channel
// IDs. The returned channel closes once when the game reaches a
// terminal condition.
func (s *Session) Start(ctx context.Context, privateChannels map[string]string) (<-chan struct{}, error) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil, ErrAlreadyStarted
	}
	s.started = true
	s.mu.Unlock()

	if len(s.players) < MinPlayers || len(s.players) > MaxPlayers {
		return nil, ErrPlayerCount
	}
	roles, err := Compose(len(s.players), s.cfg.SpecialRoles, s.cfg.ResistanceOnly)
	if err != nil {
		return nil, err
	}

	s.dms = make(map[string]string, len(s.players))
	for _, p := range s.players {
		channel, ok := privateChannels[p.ID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingChannel, p.Name)
		}
		s.dms[p.ID] = channel
	}

	// The seating permutation doubles as turn order and display
	// order for the whole game.
	s.deps.Shuffle(len(s.players), func(i, j int) {
		s.players[i], s.players[j] = s.players[j], s.players[i]
	})
	s.deps.Shuffle(len(roles), func(i, j int) {
		roles[i], roles[j] = roles[j], roles[i]
	})
	for i := range s.players {
		s.players[i].Role = roles[i]
		if roles[i].Evil() {
			s.evils = append(s.evils, s.players[i])
		}
	}
	if len(s.evils) == 0 {
		return nil, ErrNoEvilPlayers
	}
	s.assassin = s.designateAssassin()
	s.startedAt = s.deps.Now()

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	for _, p := range s.players {
		s.send(p, revealMessage(p, s.players, s.evils, s.assassin))
	}

	go s.run(ctx)
	return s.done, nil
}

// designateAssassin returns the literal Assassin holder, or a random
// evil player when the role label was consumed by special evils or
// resistance-only mode.
func (s *Session) designateAssassin() Player {
	for _, p := range s.evils {
		if p.Role == RoleAssassin {
			return p
		}
	}
	return s.evils[s.deps.RandIntn(len(s.evils))]
}

// run drives the round loop: one leader per proposal attempt,
// rotating through the seating order until a terminal condition.
func (s *Session) run(ctx context.Context) {
	for attempt := 0; ; attempt++ {
		if s.ended() {
			return
		}
		leader := s.players[attempt%len(s.players)]
		if err := s.deps.Scheduler.Sleep(ctx, s.cfg.RoundPace); err != nil {
			s.terminate(nil)
			return
		}
		if s.leaderTurn(ctx, leader) {
			return
		}
	}
}

// leaderTurn runs one proposal attempt for leader and, on approval,
// the quest itself. It reports whether the game ended.
func (s *Session) leaderTurn(ctx context.Context, leader Player) (terminal bool) {
	req := PlanFor(len(s.players), s.currentQuest())

	party, ok := s.chooseParty(ctx, leader, req)
	if !ok {
		s.terminate(nil)
		return true
	}

	approved, rejected, ok := s.collectVotes(ctx, leader, party)
	if !ok {
		s.terminate(nil)
		return true
	}

	quest := QuestOrdinal(s.currentQuest())
	if len(approved) > len(rejected) {
		s.broadcast(fmt.Sprintf("The %s quest with %s going was approved by %s (%s rejected)",
			quest, names(party), names(approved), names(rejected)), "")
		s.setRejectCount(0)
		if err := s.deps.Scheduler.Sleep(ctx, s.cfg.RoundPace); err != nil {
			s.terminate(nil)
			return true
		}
		return s.runQuest(ctx, leader, party, req)
	}

	rejects := s.incrementRejects()
	s.broadcast(fmt.Sprintf("The %s quest with %s going was rejected (%d) by %s (%s approved)",
		quest, names(party), rejects, names(rejected), names(approved)), "")
	if rejects >= maxRejects {
		s.endGame(fmt.Sprintf(":red_circle: Minions of Mordred win due to the %s quest rejected 5 times!", quest), colorEvil, true)
		return true
	}
	return false
}

// maxRejects ends the game for evil by attrition.
const maxRejects = 5

// Quit force-ends the game, broadcasting reason when non-empty.
// Calling it again, or after the game ended, is a no-op.
func (s *Session) Quit(reason string) {
	s.endGame(reason, "", true)
}

// Done returns the termination signal.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Running reports whether the game is still in progress.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Players returns the seating order. Roles are filled in once the
// game has started.
func (s *Session) Players() []Player {
	out := make([]Player, len(s.players))
	copy(out, s.players)
	return out
}

// Status renders current quest progress; current marks the quest in
// progress.
func (s *Session) Status(current bool) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	progress := make([]Outcome, len(s.progress))
	copy(progress, s.progress)
	return RenderStatus(len(s.players), progress, s.questNumber, current)
}

// endGame broadcasts the terminal message with quest results and the
// full role reveal, then tears the session down. Safe to call from
// any goroutine; only the first call has an effect.
func (s *Session) endGame(message, color string, current bool) {
	s.terminate(func() {
		text := fmt.Sprintf("Quest Results: %s\n%s", s.Status(current), revealRoles(s.players, s.evils, false))
		if message != "" {
			text = message + "\n" + text
		}
		for _, p := range s.players {
			s.post(p, text, color, bannerEnd)
		}
	})
}

// terminate runs the optional final announcement and closes the
// session exactly once.
func (s *Session) terminate(announce func()) {
	s.quitOnce.Do(func() {
		if announce != nil {
			announce()
		}
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		close(s.done)
	})
}

func (s *Session) ended() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *Session) currentQuest() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questNumber
}

func (s *Session) setRejectCount(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectCount = n
}

func (s *Session) incrementRejects() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectCount++
	return s.rejectCount
}

// recordOutcome appends a quest outcome and advances the quest
// number, returning the cumulative good/bad score.
func (s *Session) recordOutcome(o Outcome) (good, bad int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = append(s.progress, o)
	s.questNumber++
	for _, res := range s.progress {
		if res == OutcomeBad {
			bad++
		} else {
			good++
		}
	}
	return good, bad
}

func (s *Session) playerByName(name string) (Player, bool) {
	for _, p := range s.players {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Player{}, false
}
