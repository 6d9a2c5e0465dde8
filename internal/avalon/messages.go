package avalon

import (
	"fmt"
	"strings"
)

// spoilerPad pushes role reveals off-screen in the player's DM so a
// glance at someone else's client does not leak the role.
var spoilerPad = "```" + strings.Repeat("\n", 60) + "```"

var spoilerTail = "```" + strings.Repeat("\n", 60) + "Scroll up to see your role```"

// mention renders a player reference for display.
func mention(p Player) string {
	return "@" + p.Name
}

// names renders a comma-separated list of player mentions.
func names(players []Player) string {
	parts := make([]string, len(players))
	for i, p := range players {
		parts[i] = mention(p)
	}
	return strings.Join(parts, ", ")
}

// revealMessage builds the private role-reveal text for a player,
// including the extra knowledge the role grants.
func revealMessage(p Player, players, evils []Player, assassin Player) string {
	var b strings.Builder
	b.WriteString(spoilerPad)
	b.WriteString(" You are ")
	b.WriteString(p.Role.Display())

	if assassin.ID == p.ID && p.Role != RoleAssassin {
		b.WriteString(" as well as :crossed_swords: THE ASSASSIN")
	}

	switch {
	case p.Role == RoleMerlin:
		visible := filterPlayers(evils, func(e Player) bool { return e.Role != RoleMordred })
		if len(visible) == len(evils) {
			fmt.Fprintf(&b, ". %s are evil.", names(evils))
		} else {
			fmt.Fprintf(&b, ". %s are evil. MORDRED is hidden.", names(visible))
		}
	case p.Role == RolePercival:
		merlins := filterPlayers(players, func(c Player) bool {
			return c.Role == RoleMerlin || c.Role == RoleMorgana
		})
		if len(merlins) == 1 {
			fmt.Fprintf(&b, ". %s is MERLIN", mention(merlins[0]))
		} else if len(merlins) > 1 {
			fmt.Fprintf(&b, ". One of %s is MERLIN", names(merlins))
		}
	case p.Role.Evil() && p.Role != RoleOberon:
		known := filterPlayers(evils, func(e Player) bool { return e.Role != RoleOberon })
		fmt.Fprintf(&b, ". %s are evil", names(known))
	}

	b.WriteString(" ")
	b.WriteString(spoilerTail)
	return b.String()
}

// revealOrder fixes the ordering of special-role reveal lines at the
// end of a game.
var revealOrder = []Role{RoleOberon, RoleMorgana, RoleMordred, RolePercival, RoleMerlin}

// revealRoles renders the end-of-game role disclosure. Merlin is
// omitted when the assassination outcome already disclosed it.
func revealRoles(players, evils []Player, excludeMerlin bool) string {
	lines := []string{fmt.Sprintf("%s are :red_circle: Minions of Mordred.", names(evils))}
	for _, role := range revealOrder {
		if role == RoleMerlin && excludeMerlin {
			continue
		}
		for _, p := range players {
			if p.Role == role {
				lines = append(lines, fmt.Sprintf("%s is %s", mention(p), role.Tag()))
			}
		}
	}
	return strings.Join(lines, "\n")
}

// specialRolesLine lists the special roles in play for the start
// banner, or "" when only plain roles are dealt.
func specialRolesLine(players []Player) string {
	order := []Role{RoleMerlin, RolePercival, RoleMorgana, RoleMordred, RoleOberon}
	var tags []string
	for _, role := range order {
		for _, p := range players {
			if p.Role == role {
				tags = append(tags, role.Tag())
				break
			}
		}
	}
	if len(tags) == 0 {
		return ""
	}
	return "Special roles: " + strings.Join(tags, ", ")
}

func filterPlayers(players []Player, keep func(Player) bool) []Player {
	var out []Player
	for _, p := range players {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}
