package fixture

import "time"

type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

type Fixture struct {
	ID           string
	HomeTeamID   string
	HomeTeamName string
	AwayTeamID   string
	AwayTeamName string
	StartsAt     time.Time
	Venue        string
	GradeID      string
	GradeName    string
	Status       Status
	Result       string
}

func (f Fixture) IsCompleted() bool {
	return f.Status == StatusCompleted
}
