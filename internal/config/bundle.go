package config

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
)

// IdentifierBundle pins the service to one club's competition identifiers.
// It is stored as a single JSON secret so rolling seasons never needs a
// redeploy, only a secret update.
type IdentifierBundle struct {
	Tenant   string    `json:"tenant" validate:"required"`
	OrgID    string    `json:"org_id" validate:"required"`
	SeasonID string    `json:"season_id" validate:"required"`
	GradeID  string    `json:"grade_id"`
	Teams    []TeamRef `json:"teams" validate:"required,min=1,dive"`
}

type TeamRef struct {
	Name   string `json:"name" validate:"required"`
	TeamID string `json:"team_id" validate:"required"`
}

func ParseIdentifierBundle(raw string) (IdentifierBundle, error) {
	var bundle IdentifierBundle
	if err := sonic.UnmarshalString(raw, &bundle); err != nil {
		return IdentifierBundle{}, fmt.Errorf("parse identifier bundle: %w", err)
	}

	var problems []string
	if strings.TrimSpace(bundle.Tenant) == "" {
		problems = append(problems, "tenant is required")
	}
	if strings.TrimSpace(bundle.OrgID) == "" {
		problems = append(problems, "org_id is required")
	}
	if strings.TrimSpace(bundle.SeasonID) == "" {
		problems = append(problems, "season_id is required")
	}
	if len(bundle.Teams) == 0 {
		problems = append(problems, "teams cannot be empty")
	}
	for i, ref := range bundle.Teams {
		if strings.TrimSpace(ref.Name) == "" {
			problems = append(problems, fmt.Sprintf("teams[%d].name is required", i))
		}
		if strings.TrimSpace(ref.TeamID) == "" {
			problems = append(problems, fmt.Sprintf("teams[%d].team_id is required", i))
		}
	}
	if len(problems) > 0 {
		return IdentifierBundle{}, fmt.Errorf("invalid identifier bundle: %s", strings.Join(problems, "; "))
	}

	return bundle, nil
}

// TeamByName matches a team reference by exact name, case-insensitively.
func (b IdentifierBundle) TeamByName(name string) (TeamRef, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for _, ref := range b.Teams {
		if strings.ToLower(ref.Name) == needle {
			return ref, true
		}
	}

	return TeamRef{}, false
}

func (b IdentifierBundle) TeamByID(id string) (TeamRef, bool) {
	for _, ref := range b.Teams {
		if ref.TeamID == id {
			return ref, true
		}
	}

	return TeamRef{}, false
}
