package avalon

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/camlann/avalon/internal/chat"
)

var (
	questRe = regexp.MustCompile(`(?i)^(succeed|fail)$`)
	killRe  = regexp.MustCompile(`(?i)^kill\s+(.+)$`)
)

// runQuest sends the approved party on the quest, tallies the
// outcome, and evaluates win conditions. It reports whether the game
// ended.
func (s *Session) runQuest(ctx context.Context, leader Player, party []Player, req Requirement) (terminal bool) {
	results := make(chan bool, len(party))
	cancels := make([]func(), 0, len(party))
	defer func() {
		for _, cancel := range cancels {
			cancel()
		}
	}()

	for _, p := range party {
		p := p
		msgs, cancel := s.deps.Router.Listen(func(m chat.Message) bool {
			return m.User == p.ID && m.Channel == s.dms[p.ID] && questRe.MatchString(strings.TrimSpace(m.Text))
		})
		cancels = append(cancels, cancel)
		go func() {
			m, open := <-msgs
			if !open {
				return
			}
			results <- strings.EqualFold(strings.TrimSpace(m.Text), "fail")
		}()
	}

	quest := QuestOrdinal(s.currentQuest())
	header := fmt.Sprintf("%s are going on the %s quest.\nCurrent quest progress: %s\nPlayer order: %s",
		names(party), quest, s.Status(true), s.orderLine(leader))
	for _, p := range s.players {
		if onParty(party, p) {
			s.post(p, header+"\nYou can *succeed* or *fail* for this mission", colorQuest, bannerNone)
		} else {
			s.post(p, header+"\nWait for the quest results.", "", bannerNone)
		}
	}

	fails := 0
	for done := 0; done < len(party); {
		select {
		case <-ctx.Done():
			s.terminate(nil)
			return true
		case <-s.done:
			return true
		case failed := <-results:
			if failed {
				fails++
			}
			done++
			if done < len(party) {
				s.broadcast(fmt.Sprintf("%d out of %d completed the %s quest", done, len(party), quest), "")
			}
		}
	}

	if fails >= req.FailsRequired {
		s.broadcast(fmt.Sprintf("%d in (%s) failed the %s quest!", fails, names(party), quest), colorEvil)
	} else {
		s.broadcast(fmt.Sprintf("%s succeeded the %s quest!", names(party), quest), colorGood)
	}

	outcome := OutcomeGood
	if fails >= req.FailsRequired {
		outcome = OutcomeBad
	}
	good, bad := s.recordOutcome(outcome)

	switch {
	case bad == 3:
		s.endGame(":red_circle: Minions of Mordred win by failing 3 quests!", colorEvil, false)
		return true
	case good == 3:
		return s.assassinationPhase(ctx)
	default:
		return false
	}
}

func onParty(party []Player, p Player) bool {
	for _, member := range party {
		if member.ID == p.ID {
			return true
		}
	}
	return false
}

// assassinationPhase gives the designated assassin one unbounded
// chance to identify Merlin after three successful quests. Unmatched
// names earn a private error and the wait continues. Always ends the
// game.
func (s *Session) assassinationPhase(ctx context.Context) (terminal bool) {
	var merlin Player
	found := false
	for _, p := range s.players {
		if p.Role == RoleMerlin {
			merlin = p
			found = true
			break
		}
	}
	if !found {
		// No Merlin to hunt (resistance-only); good wins outright.
		s.endGame(":large_blue_circle: Loyal Servants of Arthur win by succeeding 3 quests!", colorGood, false)
		return true
	}

	s.broadcast("Victory is near for :large_blue_circle: Loyal Servants of Arthur for succeeding 3 quests!", "")
	if err := s.deps.Scheduler.Sleep(ctx, s.cfg.RoundPace); err != nil {
		s.terminate(nil)
		return true
	}

	// The kill command is accepted from the assassin on any channel.
	attempts, cancel := s.deps.Router.Listen(func(m chat.Message) bool {
		return m.User == s.assassin.ID && killRe.MatchString(strings.TrimSpace(m.Text))
	})
	defer cancel()

	for _, p := range s.players {
		if p.ID == s.assassin.ID {
			s.post(p, "*You* are the :red_circle::crossed_swords:ASSASSIN. Type `kill <player>` to attempt to kill MERLIN", colorEvil, bannerNone)
		} else {
			s.post(p, fmt.Sprintf("*%s* is the :red_circle::crossed_swords:ASSASSIN. Awaiting the MERLIN assassination attempt...",
				mention(s.assassin)), "", bannerNone)
		}
	}

	for {
		select {
		case <-ctx.Done():
			s.terminate(nil)
			return true
		case <-s.done:
			return true
		case m := <-attempts:
			target := strings.TrimSpace(killRe.FindStringSubmatch(strings.TrimSpace(m.Text))[1])
			accused, found := s.playerByName(target)
			if !found {
				s.post(s.assassin, fmt.Sprintf("%s is not a valid player", target), "", bannerNone)
				continue
			}
			s.resolveAssassination(accused, merlin)
			return true
		}
	}
}

// resolveAssassination announces the outcome and ends the game:
// hitting Merlin wins it for evil, anyone else for good. Merlin is
// left out of the generic reveal since the outcome names them.
func (s *Session) resolveAssassination(accused, merlin Player) {
	s.terminate(func() {
		status := fmt.Sprintf("Quest Results: %s\n", s.Status(false))
		reveal := revealRoles(s.players, s.evils, true)
		if accused.Role == RoleMerlin {
			for _, p := range s.players {
				if p.ID == s.assassin.ID {
					s.post(p, fmt.Sprintf("%sYou chose :angel:%s correctly as MERLIN.\n:red_circle: Minions of Mordred win!\n%s",
						status, mention(accused), reveal), colorEvil, bannerEnd)
				} else {
					s.post(p, fmt.Sprintf("%s:crossed_swords:%s chose :angel:%s correctly as MERLIN.\n:red_circle: Minions of Mordred win!\n%s",
						status, mention(s.assassin), mention(accused), reveal), colorEvil, bannerEnd)
				}
			}
			return
		}
		for _, p := range s.players {
			if p.ID == s.assassin.ID {
				s.post(p, fmt.Sprintf("%s%s is not MERLIN. :angel:%s is.\n:large_blue_circle: Loyal Servants of Arthur win!\n%s",
					status, mention(accused), mention(merlin), reveal), colorGood, bannerEnd)
			} else {
				s.post(p, fmt.Sprintf("%s:crossed_swords:%s chose %s as MERLIN, not :angel:%s.\n:large_blue_circle: Loyal Servants of Arthur win!\n%s",
					status, mention(s.assassin), mention(accused), mention(merlin), reveal), colorGood, bannerEnd)
			}
		}
	})
}
