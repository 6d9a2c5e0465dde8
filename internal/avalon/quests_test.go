package avalon

import "testing"

func TestPlanFor(t *testing.T) {
	tests := []struct {
		players int
		quest   int
		want    Requirement
	}{
		{5, 0, Requirement{2, 1}},
		{5, 1, Requirement{3, 1}},
		{5, 2, Requirement{2, 1}},
		{5, 4, Requirement{3, 1}},
		{6, 4, Requirement{4, 1}},
		{7, 3, Requirement{4, 2}},
		{8, 3, Requirement{5, 2}},
		{10, 0, Requirement{3, 1}},
		{10, 3, Requirement{5, 2}},
		{10, 4, Requirement{5, 1}},
	}
	for _, tt := range tests {
		if got := PlanFor(tt.players, tt.quest); got != tt.want {
			t.Fatalf("PlanFor(%d, %d) = %+v, want %+v", tt.players, tt.quest, got, tt.want)
		}
	}
}

func TestTwoFailQuestsOnlyAtSevenPlus(t *testing.T) {
	for players := MinPlayers; players <= MaxPlayers; players++ {
		for quest := 0; quest < QuestCount; quest++ {
			req := PlanFor(players, quest)
			twoFails := req.FailsRequired == 2
			expected := players >= 7 && quest == 3
			if twoFails != expected {
				t.Fatalf("PlanFor(%d, %d).FailsRequired = %d", players, quest, req.FailsRequired)
			}
		}
	}
}

func TestQuestOrdinal(t *testing.T) {
	want := []string{"first", "second", "third", "fourth", "last"}
	for i, name := range want {
		if got := QuestOrdinal(i); got != name {
			t.Fatalf("QuestOrdinal(%d) = %q, want %q", i, got, name)
		}
	}
}
