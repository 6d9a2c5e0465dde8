package avalon

import (
	"strings"
	"testing"
)

func testRoster() (players, evils []Player, assassin Player) {
	players = []Player{
		{ID: "u1", Name: "arthur", Role: RoleMerlin},
		{ID: "u2", Name: "bors", Role: RolePercival},
		{ID: "u3", Name: "claudas", Role: RoleMorgana},
		{ID: "u4", Name: "dagonet", Role: RoleAssassin},
		{ID: "u5", Name: "ector", Role: RoleGood},
	}
	evils = []Player{players[2], players[3]}
	return players, evils, players[3]
}

func TestRevealMessageMerlinSeesEvils(t *testing.T) {
	players, evils, assassin := testRoster()
	msg := revealMessage(players[0], players, evils, assassin)
	if !strings.Contains(msg, "You are :angel: MERLIN") {
		t.Fatalf("merlin reveal missing role: %q", msg)
	}
	if !strings.Contains(msg, "@claudas, @dagonet are evil.") {
		t.Fatalf("merlin reveal missing evil list: %q", msg)
	}
	if strings.Contains(msg, "MORDRED is hidden") {
		t.Fatalf("no mordred in play, reveal should not mention him: %q", msg)
	}
}

func TestRevealMessageMerlinWithMordredHidden(t *testing.T) {
	players, evils, assassin := testRoster()
	players[3].Role = RoleMordred
	evils = []Player{players[2], players[3]}
	msg := revealMessage(players[0], players, evils, assassin)
	if !strings.Contains(msg, "@claudas are evil. MORDRED is hidden.") {
		t.Fatalf("merlin reveal should hide mordred: %q", msg)
	}
}

func TestRevealMessagePercivalAmbiguity(t *testing.T) {
	players, evils, assassin := testRoster()
	msg := revealMessage(players[1], players, evils, assassin)
	if !strings.Contains(msg, "One of @arthur, @claudas is MERLIN") {
		t.Fatalf("percival reveal should name merlin and morgana: %q", msg)
	}
}

func TestRevealMessagePercivalCertainWithoutMorgana(t *testing.T) {
	players, evils, assassin := testRoster()
	players[2].Role = RoleBad
	msg := revealMessage(players[1], players, evils, assassin)
	if !strings.Contains(msg, "@arthur is MERLIN") {
		t.Fatalf("percival reveal should name merlin outright: %q", msg)
	}
}

func TestRevealMessageEvilKnowsEvil(t *testing.T) {
	players, evils, assassin := testRoster()
	msg := revealMessage(players[2], players, evils, assassin)
	if !strings.Contains(msg, "@claudas, @dagonet are evil") {
		t.Fatalf("evil reveal missing conspirators: %q", msg)
	}
}

func TestRevealMessageOberonKnowsNothing(t *testing.T) {
	players, evils, assassin := testRoster()
	players[2].Role = RoleOberon
	evils = []Player{players[2], players[3]}
	msg := revealMessage(players[2], players, evils, assassin)
	if strings.Contains(msg, "are evil") {
		t.Fatalf("oberon should not learn the evil roster: %q", msg)
	}
}

func TestRevealMessageDesignatedAssassinNote(t *testing.T) {
	players, evils, _ := testRoster()
	players[2].Role = RoleMorgana
	msg := revealMessage(players[2], players, evils, players[2])
	if !strings.Contains(msg, "as well as :crossed_swords: THE ASSASSIN") {
		t.Fatalf("designated assassin reveal missing note: %q", msg)
	}
}

func TestRevealMessageSpoilerPadding(t *testing.T) {
	players, evils, assassin := testRoster()
	msg := revealMessage(players[4], players, evils, assassin)
	if !strings.HasPrefix(msg, "```\n") {
		t.Fatalf("reveal should open with a spoiler pad: %q", msg[:20])
	}
	if !strings.HasSuffix(msg, "Scroll up to see your role```") {
		t.Fatalf("reveal should close with the scroll hint: %q", msg)
	}
	if strings.Count(msg, "\n") < 120 {
		t.Fatalf("reveal padding too short: %d newlines", strings.Count(msg, "\n"))
	}
}

func TestRevealRolesOrder(t *testing.T) {
	players, evils, _ := testRoster()
	players[3].Role = RoleMordred
	evils = []Player{players[2], players[3]}

	got := revealRoles(players, evils, false)
	lines := strings.Split(got, "\n")
	want := []string{
		"@claudas, @dagonet are :red_circle: Minions of Mordred.",
		"@claudas is :japanese_ogre: MORGANA",
		"@dagonet is :smiling_imp: MORDRED",
		"@bors is :cop: PERCIVAL",
		"@arthur is :angel: MERLIN",
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d: %q", len(want), len(lines), got)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestRevealRolesExcludesMerlin(t *testing.T) {
	players, evils, _ := testRoster()
	got := revealRoles(players, evils, true)
	if strings.Contains(got, "MERLIN") {
		t.Fatalf("merlin should be excluded: %q", got)
	}
	if !strings.Contains(got, "@bors is :cop: PERCIVAL") {
		t.Fatalf("percival line missing: %q", got)
	}
}

func TestSpecialRolesLine(t *testing.T) {
	players, _, _ := testRoster()
	got := specialRolesLine(players)
	want := "Special roles: :angel: MERLIN, :cop: PERCIVAL, :japanese_ogre: MORGANA"
	if got != want {
		t.Fatalf("specialRolesLine = %q, want %q", got, want)
	}

	plain := []Player{{Name: "a", Role: RoleGood}, {Name: "b", Role: RoleBad}}
	if got := specialRolesLine(plain); got != "" {
		t.Fatalf("expected empty line for plain roles, got %q", got)
	}
}
