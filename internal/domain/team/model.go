package team

// Team belongs to one organisation+season+grade.
type Team struct {
	ID      string
	Name    string
	Grade   string
	Season  string
	Players []Player
}

type Player struct {
	ID             string
	Name           string
	Role           string
	JerseyNumber   int
	IsCaptain      bool
	IsViceCaptain  bool
	IsWicketKeeper bool
	BattingStyle   string
	BowlingStyle   string
	DateOfBirth    string

	// Contact fields are populated in private mode only.
	Email string
	Phone string
}
