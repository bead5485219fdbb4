package playhq

// Wire shapes for the PlayHQ public and private APIs. Fields mirror the
// provider payloads; normalization into domain records happens in the
// snippet package.

type Season struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

type Grade struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	SeasonID string `json:"seasonId"`
	URL      string `json:"url,omitempty"`
}

type TeamSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	GradeID   string `json:"gradeId"`
	GradeName string `json:"gradeName"`
}

type TeamRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Venue struct {
	Name string `json:"name"`
}

type Schedule struct {
	// Timestamp is RFC 3339 with the competition's local offset.
	Timestamp string `json:"timestamp"`
}

type Game struct {
	ID       string   `json:"id"`
	Status   string   `json:"status"`
	Schedule Schedule `json:"schedule"`
	Venue    Venue    `json:"venue"`
	HomeTeam TeamRef  `json:"homeTeam"`
	AwayTeam TeamRef  `json:"awayTeam"`
	Grade    Grade    `json:"grade"`
	Result   string   `json:"result,omitempty"`
}

type LadderStanding struct {
	Rank       int     `json:"rank"`
	Team       TeamRef `json:"team"`
	Played     int     `json:"played"`
	Won        int     `json:"won"`
	Lost       int     `json:"lost"`
	Drawn      int     `json:"drawn"`
	Tied       int     `json:"tied"`
	Points     int     `json:"points"`
	Percentage float64 `json:"percentage"`
}

type Ladder struct {
	Grade     Grade            `json:"grade"`
	Standings []LadderStanding `json:"standings"`
}

type BattingEntry struct {
	Player     TeamRef `json:"player"`
	Runs       int     `json:"runsScored"`
	BallsFaced int     `json:"ballsFaced"`
	Fours      int     `json:"foursScored"`
	Sixes      int     `json:"sixesScored"`
	Dismissal  string  `json:"dismissal,omitempty"`
}

type BowlingEntry struct {
	Player  TeamRef `json:"player"`
	Overs   float64 `json:"oversBowled"`
	Maidens int     `json:"maidensBowled"`
	Runs    int     `json:"runsConceded"`
	Wickets int     `json:"wicketsTaken"`
}

type InningsSummary struct {
	Team    TeamRef        `json:"team"`
	Runs    int            `json:"runsScored"`
	Wickets int            `json:"wicketsLost"`
	Overs   float64        `json:"oversFaced"`
	Extras  int            `json:"extras"`
	Batting []BattingEntry `json:"batting"`
	Bowling []BowlingEntry `json:"bowling"`
}

type GameSummary struct {
	ID          string         `json:"id"`
	Status      string         `json:"status"`
	Date        string         `json:"date"`
	Result      string         `json:"result,omitempty"`
	IsCompleted bool           `json:"isCompleted"`
	Home        InningsSummary `json:"home"`
	Away        InningsSummary `json:"away"`
}

type RosterPlayer struct {
	ID             string `json:"id"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Role           string `json:"role,omitempty"`
	JerseyNumber   int    `json:"jerseyNumber,omitempty"`
	IsCaptain      bool   `json:"isCaptain,omitempty"`
	IsViceCaptain  bool   `json:"isViceCaptain,omitempty"`
	IsWicketKeeper bool   `json:"isWicketKeeper,omitempty"`
	BattingStyle   string `json:"battingStyle,omitempty"`
	BowlingStyle   string `json:"bowlingStyle,omitempty"`
	DateOfBirth    string `json:"dateOfBirth,omitempty"`
	// Contact fields are only populated by the private API.
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type Roster struct {
	Team    TeamRef        `json:"team"`
	Players []RosterPlayer `json:"players"`
}
