package scorecard

import "time"

// Scorecard holds both innings summaries for a completed fixture.
type Scorecard struct {
	FixtureID string
	Date      time.Time
	Status    string
	Result    string
	Home      TeamInnings
	Away      TeamInnings
}

type TeamInnings struct {
	TeamID   string
	TeamName string
	Runs     int
	Wickets  int
	Overs    float64
	Extras   int
	Batting  []BattingLine
	Bowling  []BowlingLine
}

type BattingLine struct {
	PlayerID   string
	PlayerName string
	Runs       int
	BallsFaced int
	Fours      int
	Sixes      int
	HowOut     string
}

type BowlingLine struct {
	PlayerID   string
	PlayerName string
	Overs      float64
	Maidens    int
	Runs       int
	Wickets    int
}
