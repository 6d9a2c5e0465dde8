// Package avalon implements the Avalon game: role assignment, the
// leader/proposal/vote loop, quest resolution, and the assassination
// endgame. The chat transport is injected; see the chat package.
package avalon

import (
	"errors"
	"fmt"
)

// Role is one of the closed set of game roles. Alignment and
// knowledge visibility derive from the role.
type Role int

const (
	// RoleGood is a plain Loyal Servant of Arthur.
	RoleGood Role = iota
	// RoleBad is a plain Minion of Mordred.
	RoleBad
	// RoleMerlin knows the evil players (except Mordred).
	RoleMerlin
	// RolePercival knows who might be Merlin.
	RolePercival
	// RoleMorgana poses as Merlin to Percival.
	RoleMorgana
	// RoleMordred is hidden from Merlin.
	RoleMordred
	// RoleOberon is evil but unknown to the other evils.
	RoleOberon
	// RoleAssassin may attempt to identify Merlin after three
	// successful quests.
	RoleAssassin
)

func (r Role) String() string {
	switch r {
	case RoleGood:
		return "good"
	case RoleBad:
		return "bad"
	case RoleMerlin:
		return "merlin"
	case RolePercival:
		return "percival"
	case RoleMorgana:
		return "morgana"
	case RoleMordred:
		return "mordred"
	case RoleOberon:
		return "oberon"
	case RoleAssassin:
		return "assassin"
	default:
		return "unknown"
	}
}

// Evil reports whether the role works against quest success.
func (r Role) Evil() bool {
	switch r {
	case RoleBad, RoleMorgana, RoleMordred, RoleOberon, RoleAssassin:
		return true
	default:
		return false
	}
}

// Display is the role-reveal text shown to the player holding the
// role.
func (r Role) Display() string {
	switch r {
	case RoleGood:
		return ":large_blue_circle: Loyal Servant of Arthur"
	case RoleBad:
		return ":red_circle: Minion of Mordred"
	case RoleMerlin:
		return ":angel: MERLIN :large_blue_circle: Loyal Servant of Arthur"
	case RolePercival:
		return ":cop: PERCIVAL :large_blue_circle: Loyal Servant of Arthur"
	case RoleMorgana:
		return ":japanese_ogre: MORGANA :red_circle: Minion of Mordred. You pose as MERLIN"
	case RoleMordred:
		return ":smiling_imp: MORDRED :red_circle: Unknown to MERLIN"
	case RoleOberon:
		return ":alien: OBERON :red_circle: Minion of Mordred"
	case RoleAssassin:
		return ":crossed_swords: THE ASSASSIN :red_circle: Minion of Mordred"
	default:
		return "unknown"
	}
}

// Tag is the short emoji-prefixed name used in reveal lines and the
// start banner, e.g. ":angel: MERLIN".
func (r Role) Tag() string {
	switch r {
	case RoleMerlin:
		return ":angel: MERLIN"
	case RolePercival:
		return ":cop: PERCIVAL"
	case RoleMorgana:
		return ":japanese_ogre: MORGANA"
	case RoleMordred:
		return ":smiling_imp: MORDRED"
	case RoleOberon:
		return ":alien: OBERON"
	case RoleAssassin:
		return ":crossed_swords: THE ASSASSIN"
	default:
		return r.String()
	}
}

// MinPlayers and MaxPlayers bound the supported table sizes.
const (
	MinPlayers = 5
	MaxPlayers = 10
)

// ErrPlayerCount indicates an unsupported number of players.
var ErrPlayerCount = fmt.Errorf("avalon requires %d-%d players", MinPlayers, MaxPlayers)

// ErrUnknownSpecial indicates a role that cannot be enabled as a
// special role.
var ErrUnknownSpecial = errors.New("unknown special role")

// roleTemplates fixes the good/evil split per player count, indexed
// by playerCount - MinPlayers.
var roleTemplates = [][]Role{
	{RoleBad, RoleBad, RoleGood, RoleGood, RoleGood},
	{RoleBad, RoleBad, RoleGood, RoleGood, RoleGood, RoleGood},
	{RoleBad, RoleBad, RoleBad, RoleGood, RoleGood, RoleGood, RoleGood},
	{RoleBad, RoleBad, RoleBad, RoleGood, RoleGood, RoleGood, RoleGood, RoleGood},
	{RoleBad, RoleBad, RoleBad, RoleGood, RoleGood, RoleGood, RoleGood, RoleGood, RoleGood},
	{RoleBad, RoleBad, RoleBad, RoleBad, RoleGood, RoleGood, RoleGood, RoleGood, RoleGood, RoleGood},
}

// Compose returns the pre-shuffle role sequence for a table of
// playerCount seats. When resistanceOnly is false, one good slot
// becomes Merlin, one more becomes Percival if Percival is enabled,
// bad slots are replaced in template order by the enabled special
// evil roles, and one remaining bad slot becomes the Assassin. When
// resistanceOnly is true the plain good/bad split stands.
func Compose(playerCount int, specials []Role, resistanceOnly bool) ([]Role, error) {
	if playerCount < MinPlayers || playerCount > MaxPlayers {
		return nil, ErrPlayerCount
	}
	for _, r := range specials {
		switch r {
		case RolePercival, RoleMorgana, RoleMordred, RoleOberon:
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnknownSpecial, r)
		}
	}

	template := roleTemplates[playerCount-MinPlayers]
	roles := make([]Role, len(template))
	copy(roles, template)
	if resistanceOnly {
		return roles, nil
	}

	replaceFirst(roles, RoleGood, RoleMerlin)

	var specialEvils []Role
	percival := false
	for _, r := range specials {
		if r == RolePercival {
			percival = true
			continue
		}
		specialEvils = append(specialEvils, r)
	}
	if percival {
		replaceFirst(roles, RoleGood, RolePercival)
	}

	evil := 0
	for i, r := range roles {
		if r == RoleBad && evil < len(specialEvils) {
			roles[i] = specialEvils[evil]
			evil++
		}
	}
	replaceFirst(roles, RoleBad, RoleAssassin)

	return roles, nil
}

func replaceFirst(roles []Role, from, to Role) {
	for i, r := range roles {
		if r == from {
			roles[i] = to
			return
		}
	}
}
