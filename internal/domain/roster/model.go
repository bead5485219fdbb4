package roster

import (
	"time"

	"github.com/carolinespringscc/cricket-agent/internal/domain/team"
)

type Roster struct {
	TeamID    string
	TeamName  string
	Players   []team.Player
	UpdatedAt time.Time
}

func (r Roster) Captain() (team.Player, bool) {
	for _, p := range r.Players {
		if p.IsCaptain {
			return p, true
		}
	}
	return team.Player{}, false
}

func (r Roster) ViceCaptain() (team.Player, bool) {
	for _, p := range r.Players {
		if p.IsViceCaptain {
			return p, true
		}
	}
	return team.Player{}, false
}

func (r Roster) WicketKeeper() (team.Player, bool) {
	for _, p := range r.Players {
		if p.IsWicketKeeper {
			return p, true
		}
	}
	return team.Player{}, false
}
