package avalon

import (
	"strconv"
	"strings"
)

// Player is a seat at the table. Roles are assigned once during
// Start; after that the roster is read-only.
type Player struct {
	ID   string
	Name string
	Role Role
}

// Outcome is the result of a completed quest.
type Outcome int

const (
	// OutcomeGood marks a successful quest.
	OutcomeGood Outcome = iota
	// OutcomeBad marks a failed quest.
	OutcomeBad
)

func (o Outcome) String() string {
	if o == OutcomeBad {
		return "bad"
	}
	return "good"
}

// Status markers for RenderStatus.
const (
	markerGood    = ":large_blue_circle:"
	markerBad     = ":red_circle:"
	markerCurrent = ":black_circle:"
	markerFuture  = ":white_circle:"
)

// RenderStatus formats quest progress as one marker per quest,
// comma-joined: completed quests show their party size and a colored
// outcome marker, the current quest (when current is true) a black
// marker, and remaining quests white markers with their planned
// party size. Sizes carry a '*' when the quest needs two fails. The
// output is a pure function of its inputs.
func RenderStatus(playerCount int, progress []Outcome, questNumber int, current bool) string {
	var marks []string
	for i, res := range progress {
		marker := markerGood
		if res == OutcomeBad {
			marker = markerBad
		}
		marks = append(marks, questMark(playerCount, i, marker))
	}
	if current {
		marks = append(marks, questMark(playerCount, questNumber, markerCurrent))
	}
	for len(marks) < QuestCount {
		marks = append(marks, questMark(playerCount, len(marks), markerFuture))
	}
	return strings.Join(marks, ",")
}

func questMark(playerCount, questNumber int, marker string) string {
	req := PlanFor(playerCount, questNumber)
	size := strconv.Itoa(req.PartySize)
	if req.FailsRequired > 1 {
		return size + "*" + marker
	}
	return size + marker
}
