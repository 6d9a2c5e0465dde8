package avalon

import (
	"fmt"
	"time"

	"github.com/camlann/avalon/internal/chat"
)

// Accent colors for formatted messages, keyed by phase.
const (
	colorEvil   = "#e00"
	colorGood   = "#08e"
	colorLeader = "#a60"
	colorVote   = "#555"
	colorQuest  = "#ea0"
)

const startThumbURL = "https://cf.geekdo-images.com/images/pic1398895_md.jpg"

// banner selects the framing applied to a formatted message.
type banner int

const (
	bannerNone banner = iota
	bannerStart
	bannerEnd
)

// send posts plain text to a player's private channel.
func (s *Session) send(p Player, text string) {
	if err := s.deps.Sender.Send(s.dms[p.ID], text); err != nil {
		s.deps.Logf("avalon: send to %s: %v", p.Name, err)
	}
}

// post delivers a formatted message to a player's private channel.
// The start banner prepends the evil count and the special roles in
// play; the end banner frames the final reveal.
func (s *Session) post(p Player, text, color string, frame banner) {
	msg := text
	pretext := ""
	thumb := ""
	switch frame {
	case bannerStart:
		pretext = fmt.Sprintf("*Start Avalon Game* (%s)", s.startedAt.Format(time.RFC1123))
		thumb = startThumbURL
		prologue := fmt.Sprintf("%d out of %d players are evil.", len(s.evils), len(s.players))
		if line := specialRolesLine(s.players); line != "" {
			prologue += "\n" + line
		}
		msg = prologue + "\n" + text
	case bannerEnd:
		pretext = fmt.Sprintf("*End Avalon Game* (%s)", s.startedAt.Format(time.RFC1123))
	}
	err := s.deps.Sender.PostMessage(s.dms[p.ID], chat.Post{
		Text:     msg,
		Color:    color,
		Pretext:  pretext,
		ThumbURL: thumb,
	})
	if err != nil {
		s.deps.Logf("avalon: post to %s: %v", p.Name, err)
	}
}

// broadcast posts the same formatted message to every player.
func (s *Session) broadcast(text, color string) {
	for _, p := range s.players {
		s.post(p, text, color, bannerNone)
	}
}
