package avalon

// QuestCount is the number of quests in a game. The game always
// terminates before a sixth quest could begin.
const QuestCount = 5

// Requirement fixes the party size and the number of fail votes
// needed to fail a quest, per (player count, quest number).
type Requirement struct {
	PartySize     int
	FailsRequired int
}

// questPlans is indexed by playerCount - MinPlayers, then by 0-based
// quest number. The fourth quest requires two fails at 7+ players.
var questPlans = [][QuestCount]Requirement{
	{{2, 1}, {3, 1}, {2, 1}, {3, 1}, {3, 1}},
	{{2, 1}, {3, 1}, {3, 1}, {3, 1}, {4, 1}},
	{{2, 1}, {3, 1}, {3, 1}, {4, 2}, {4, 1}},
	{{3, 1}, {4, 1}, {4, 1}, {5, 2}, {5, 1}},
	{{3, 1}, {4, 1}, {4, 1}, {5, 2}, {5, 1}},
	{{3, 1}, {4, 1}, {4, 1}, {5, 2}, {5, 1}},
}

// PlanFor returns the requirement for the given table size and
// 0-based quest number. Both arguments must already be validated.
func PlanFor(playerCount, questNumber int) Requirement {
	return questPlans[playerCount-MinPlayers][questNumber]
}

// questOrdinals names quests in announcements.
var questOrdinals = [QuestCount]string{"first", "second", "third", "fourth", "last"}

// QuestOrdinal returns the display name of a 0-based quest number.
func QuestOrdinal(questNumber int) string {
	return questOrdinals[questNumber]
}
