package ladder

// Ladder is the ordered standings for one grade in one season.
type Ladder struct {
	GradeID   string
	GradeName string
	SeasonID  string
	Entries   []Entry
}

type Entry struct {
	Position   int
	TeamID     string
	TeamName   string
	Played     int
	Won        int
	Lost       int
	Drawn      int
	Tied       int
	Points     int
	Percentage float64
}

// EntryForTeam returns the row for the named team, matched case-insensitively
// by the caller's normalized name.
func (l Ladder) EntryForTeam(teamID string) (Entry, bool) {
	for _, entry := range l.Entries {
		if entry.TeamID == teamID {
			return entry, true
		}
	}
	return Entry{}, false
}
