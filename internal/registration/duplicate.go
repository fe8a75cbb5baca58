package registration

import (
	"context"
	"errors"
	"strings"

	"vetrian/pkg/types"
)

// Candidates are the natural keys probed for an existing registration.
type Candidates struct {
	Email      string `form:"email" json:"email"`
	Phone      string `form:"phone" json:"phone"`
	RollNumber string `form:"rollNumber" json:"rollNumber"`
}

func (c Candidates) canonical() map[string]string {
	out := make(map[string]string, 3)
	if v := CanonicalEmail(c.Email); v != "" {
		out["email"] = v
	}
	if v := strings.TrimSpace(c.Phone); v != "" {
		out["phone"] = v
	}
	if v := strings.TrimSpace(c.RollNumber); v != "" {
		out["rollNumber"] = v
	}
	return out
}

// candidatesFrom picks the given natural keys out of a record.
func candidatesFrom(rec *types.Registrant, fields []string) Candidates {
	var c Candidates
	for _, f := range fields {
		switch f {
		case "email":
			c.Email = rec.Email
		case "phone":
			c.Phone = valueOf(rec, "phone")
		case "rollNumber":
			c.RollNumber = valueOf(rec, "rollNumber")
		}
	}
	return c
}

type DuplicateResult struct {
	Exists        bool                  `json:"exists"`
	MatchedFields []string              `json:"duplicateFields"`
	Conflicts     []types.FieldConflict `json:"-"`
	RegistrantID  string                `json:"-"`
}

type DuplicateChecker struct {
	store Querier
}

func NewDuplicateChecker(store Querier) *DuplicateChecker {
	return &DuplicateChecker{store: store}
}

// Check runs one disjunctive lookup over the supplied keys and reports every
// key the found record matches.
func (c *DuplicateChecker) Check(ctx context.Context, rt types.ResourceType, stage types.Stage, candidates Candidates) (*DuplicateResult, error) {
	match := candidates.canonical()
	if len(match) == 0 {
		return nil, types.NewInvalidRequest("At least one field (email, phone, or rollNumber) is required")
	}

	result := &DuplicateResult{MatchedFields: []string{}}

	existing, err := c.store.MatchRegistrant(ctx, rt, stage, match)
	if err != nil {
		if errors.Is(err, types.ErrRegistrantNotFound) {
			return result, nil
		}
		return nil, types.NewUnavailable("failed to check duplicates", err)
	}

	for _, field := range []string{"email", "phone", "rollNumber"} {
		want, ok := match[field]
		if !ok || valueOf(existing, field) != want {
			continue
		}
		result.MatchedFields = append(result.MatchedFields, field)
		result.Conflicts = append(result.Conflicts, types.FieldConflict{Field: field, Value: want})
	}

	result.Exists = len(result.MatchedFields) > 0
	result.RegistrantID = existing.ID

	return result, nil
}
