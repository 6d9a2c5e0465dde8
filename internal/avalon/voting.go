package avalon

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/camlann/avalon/internal/chat"
)

var (
	sendRe  = regexp.MustCompile(`(?i)^send\s`)
	voteRe  = regexp.MustCompile(`(?i)^(approve|reject)$`)
	splitRe = regexp.MustCompile(`[,\s]+`)
)

// chooseParty announces the leader's turn and waits, unbounded, for
// a valid party proposal: a "send name, name, ..." message from the
// leader naming exactly req.PartySize distinct roster members. An
// invalid proposal earns a corrective prompt and the wait continues.
// ok is false when the game was cancelled mid-wait.
func (s *Session) chooseParty(ctx context.Context, leader Player, req Requirement) (party []Player, ok bool) {
	// Subscribe before announcing so a prompt can never race ahead
	// of the listener.
	proposals, cancel := s.deps.Router.Listen(func(m chat.Message) bool {
		return m.User == leader.ID && sendRe.MatchString(strings.TrimSpace(m.Text))
	})
	defer cancel()

	s.announceLeaderTurn(leader, req)

	for {
		select {
		case <-ctx.Done():
			return nil, false
		case <-s.done:
			return nil, false
		case m := <-proposals:
			party := s.parseParty(m.Text, req.PartySize)
			if len(party) != req.PartySize {
				s.post(leader, fmt.Sprintf("You need to send %d players. (You only chose %d valid players)",
					req.PartySize, len(party)), colorLeader, bannerNone)
				continue
			}
			return party, true
		}
	}
}

// announceLeaderTurn tells every player whose turn it is and what
// the quest requires. The very first announcement of a game carries
// the start banner.
func (s *Session) announceLeaderTurn(leader Player, req Requirement) {
	failNote := ""
	if req.FailsRequired > 1 {
		failNote = " (2 fails required)"
	}
	quest := s.currentQuest()
	action := fmt.Sprintf(" %d players%s to go on the %s quest.", req.PartySize, failNote, QuestOrdinal(quest))
	status := fmt.Sprintf("Quest progress: %s\nPlayer order: %s\n", s.Status(true), s.orderLine(leader))

	frame := bannerNone
	s.mu.Lock()
	if s.questNumber == 0 && s.rejectCount == 0 && len(s.progress) == 0 {
		frame = bannerStart
	}
	s.mu.Unlock()

	for _, p := range s.players {
		if p.ID == leader.ID {
			s.post(p, status+"*You* choose"+action+"\n(e.g. `send name1, name2`)", colorLeader, frame)
		} else {
			s.post(p, status+mention(leader)+" chooses"+action, "", frame)
		}
	}
}

// orderLine renders the fixed seating order with the leader bolded.
func (s *Session) orderLine(leader Player) string {
	parts := make([]string, len(s.players))
	for i, p := range s.players {
		if p.ID == leader.ID {
			parts[i] = "*" + mention(p) + "*"
		} else {
			parts[i] = mention(p)
		}
	}
	return strings.Join(parts, ", ")
}

// parseParty resolves the names in a "send ..." message against the
// roster, case-insensitively. It returns nil when the raw name count
// is wrong; unrecognized names simply resolve to fewer players.
func (s *Session) parseParty(text string, size int) []Player {
	tokens := splitRe.Split(strings.TrimSpace(text), -1)
	if len(tokens) < 1 {
		return nil
	}
	tokens = tokens[1:]
	if len(tokens) != size {
		return nil
	}
	var party []Player
	for _, p := range s.players {
		for _, tok := range tokens {
			if strings.EqualFold(tok, p.Name) {
				party = append(party, p)
				break
			}
		}
	}
	return party
}

// ballot is one player's approve/reject decision.
type ballot struct {
	player  Player
	approve bool
}

// collectVotes gathers exactly one approve/reject vote per player
// from their private channels, broadcasting progress after each
// vote. Votes are returned in receipt order. ok is false when the
// game was cancelled mid-collection.
func (s *Session) collectVotes(ctx context.Context, leader Player, party []Player) (approved, rejected []Player, ok bool) {
	votes := make(chan ballot, len(s.players))
	cancels := make([]func(), 0, len(s.players))
	defer func() {
		for _, cancel := range cancels {
			cancel()
		}
	}()

	for _, p := range s.players {
		p := p
		msgs, cancel := s.deps.Router.Listen(func(m chat.Message) bool {
			return m.User == p.ID && m.Channel == s.dms[p.ID] && voteRe.MatchString(strings.TrimSpace(m.Text))
		})
		cancels = append(cancels, cancel)
		go func() {
			// First matching message wins; the subscription is
			// cancelled once the tally completes.
			m, open := <-msgs
			if !open {
				return
			}
			text := strings.ToLower(strings.TrimSpace(m.Text))
			votes <- ballot{player: p, approve: text == "approve"}
		}()
	}

	quest := QuestOrdinal(s.currentQuest())
	for _, p := range s.players {
		if p.ID == leader.ID {
			s.post(p, fmt.Sprintf("You've chosen %s to go on the %s quest.\nVote *approve* or *reject*",
				names(party), quest), colorVote, bannerNone)
		} else {
			s.post(p, fmt.Sprintf("%s is sending %s to the %s quest.\nVote *approve* or *reject*",
				mention(leader), names(party), quest), colorVote, bannerNone)
		}
	}

	for len(approved)+len(rejected) < len(s.players) {
		select {
		case <-ctx.Done():
			return nil, nil, false
		case <-s.done:
			return nil, nil, false
		case v := <-votes:
			if v.approve {
				approved = append(approved, v.player)
			} else {
				rejected = append(rejected, v.player)
			}
			if voted := len(approved) + len(rejected); voted < len(s.players) {
				s.broadcast(fmt.Sprintf("%d out of %d voted for the %s quest", voted, len(s.players), quest), "")
			}
		}
	}
	return approved, rejected, true
}
