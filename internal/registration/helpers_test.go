package registration

import (
	"context"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"vetrian/internal/utils"
	"vetrian/pkg/types"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

type memStore struct {
	mu      sync.Mutex
	records map[string]*types.Registrant
	codes   map[string]*types.ReferralCode

	// beforeCreate runs under the lock ahead of every insert; a non-nil
	// error aborts the insert.
	beforeCreate func(r *types.Registrant) error
}

func newMemStore() *memStore {
	return &memStore{
		records: map[string]*types.Registrant{},
		codes:   map[string]*types.ReferralCode{},
	}
}

func cloneRegistrant(r *types.Registrant) *types.Registrant {
	out := *r
	out.Fields = maps.Clone(r.Fields)
	if r.Attachment != nil {
		att := *r.Attachment
		out.Attachment = &att
	}
	return &out
}

func (s *memStore) Registrant(_ context.Context, rt types.ResourceType, stage types.Stage, id string) (*types.Registrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok || r.ResourceType != rt || r.Stage != stage {
		return nil, types.ErrRegistrantNotFound
	}
	return cloneRegistrant(r), nil
}

func (s *memStore) RegistrantByEmail(_ context.Context, rt types.ResourceType, stage types.Stage, email string) (*types.Registrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.records {
		if r.ResourceType == rt && r.Stage == stage && r.Email == email {
			return cloneRegistrant(r), nil
		}
	}
	return nil, types.ErrRegistrantNotFound
}

func (s *memStore) Registrants(_ context.Context, rt types.ResourceType, stage types.Stage) ([]*types.Registrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*types.Registrant
	for _, r := range s.records {
		if r.ResourceType == rt && r.Stage == stage {
			out = append(out, cloneRegistrant(r))
		}
	}
	slices.SortFunc(out, func(a, b *types.Registrant) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (s *memStore) MatchRegistrant(_ context.Context, rt types.ResourceType, stage types.Stage, match map[string]string) (*types.Registrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.records {
		if r.ResourceType != rt || r.Stage != stage {
			continue
		}
		for field, want := range match {
			if valueOf(r, field) == want {
				return cloneRegistrant(r), nil
			}
		}
	}
	return nil, types.ErrRegistrantNotFound
}

func (s *memStore) violation(r *types.Registrant) error {
	for _, other := range s.records {
		if other.ID == r.ID {
			continue
		}
		if r.GeneratedReferralCode != nil && utils.PtrString(other.GeneratedReferralCode) == *r.GeneratedReferralCode {
			return &types.UniqueViolation{Field: "generatedReferralCode"}
		}
		if other.ResourceType != r.ResourceType || other.Stage != r.Stage {
			continue
		}
		for _, field := range []string{"email", "phone", "rollNumber"} {
			v := valueOf(r, field)
			if v != "" && v == valueOf(other, field) {
				return &types.UniqueViolation{Field: field}
			}
		}
	}
	return nil
}

func (s *memStore) CreateRegistrant(_ context.Context, r *types.Registrant, code *types.ReferralCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.beforeCreate != nil {
		if err := s.beforeCreate(r); err != nil {
			return err
		}
	}

	if err := s.violation(r); err != nil {
		return err
	}

	s.records[r.ID] = cloneRegistrant(r)
	if code != nil {
		c := *code
		s.codes[c.Code] = &c
	}
	return nil
}

func (s *memStore) UpdateRegistrant(_ context.Context, r *types.Registrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[r.ID]; !ok {
		return types.ErrRegistrantNotFound
	}
	if err := s.violation(r); err != nil {
		return err
	}
	s.records[r.ID] = cloneRegistrant(r)
	return nil
}

func (s *memStore) DeleteRegistrant(_ context.Context, rt types.ResourceType, stage types.Stage, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok || r.ResourceType != rt || r.Stage != stage {
		return types.ErrRegistrantNotFound
	}
	delete(s.records, id)
	return nil
}

func (s *memStore) ReferralCodeExists(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.codes[code]
	return ok, nil
}

func (s *memStore) Referrer(_ context.Context, code string) (*types.Referrer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.codes[code]
	if !ok {
		return nil, types.ErrReferralCodeNotFound
	}
	referrer := &types.Referrer{Code: c.Code, RegistrantID: c.RegistrantID}
	if owner, ok := s.records[c.RegistrantID]; ok {
		referrer.Name = owner.Fields.String("name")
		referrer.Email = owner.Email
	}
	return referrer, nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

type memFiles struct {
	mu         sync.Mutex
	stored     map[string]bool
	released   []string
	releaseErr error
}

func newMemFiles() *memFiles {
	return &memFiles{stored: map[string]bool{}}
}

// upload simulates a file already written by the storage layer.
func (f *memFiles) upload(field, name string) *types.Attachment {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := field + "/" + name
	f.stored[key] = true
	return &types.Attachment{
		Field:        field,
		OriginalName: name,
		StoredName:   name,
		Key:          key,
		Backend:      "memory",
		ContentType:  "application/pdf",
		Size:         4,
		UploadedAt:   time.Now(),
	}
}

func (f *memFiles) Release(_ context.Context, att *types.Attachment) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.releaseErr != nil {
		return f.releaseErr
	}
	if !f.stored[att.Key] {
		return types.ErrFileNotFound
	}
	delete(f.stored, att.Key)
	f.released = append(f.released, att.Key)
	return nil
}

func (f *memFiles) Open(_ context.Context, att *types.Attachment) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.stored[att.Key] {
		return nil, types.ErrFileNotFound
	}
	return io.NopCloser(strings.NewReader("%PDF")), nil
}

func (f *memFiles) exists(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stored[key]
}

type memPublisher struct {
	events []*types.RegistrationEvent
}

func (p *memPublisher) Publish(_ context.Context, e *types.RegistrationEvent) error {
	p.events = append(p.events, e)
	return nil
}

type fixture struct {
	svc    *Service
	store  *memStore
	files  *memFiles
	events *memPublisher
	hook   *test.Hook
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	f := &fixture{
		store:  newMemStore(),
		files:  newMemFiles(),
		events: &memPublisher{},
		hook:   hook,
		now:    time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	}

	f.svc = New(Options{
		Logger:    logger,
		Store:     f.store,
		Referrals: f.store,
		Files:     f.files,
		Publisher: f.events,
		Now:       func() time.Time { return f.now },
	})

	return f
}

func courseSubmission() types.FormValues {
	return types.FormValues{
		"fullName":          "Asha Rao",
		"email":             "Asha@Example.com",
		"phone":             "9000000001",
		"gender":            "Female",
		"city":              "Chennai",
		"dob":               "2003-04-05",
		"college":           "Anna University",
		"degree":            "B.E",
		"department":        "CSE",
		"year":              "3rd Year",
		"rollNumber":        "CSE001",
		"courseName":        "Go Fundamentals",
		"courseDuration":    "1 Month",
		"learningMode":      "Online",
		"preferredTimeSlot": "Evening",
		"courseLevel":       "Beginner",
		"heardFrom":         "Friend",
		"agreement":         "true",
		"accessPreference":  "Full Access",
	}
}

func careerSubmission() types.FormValues {
	return types.FormValues{
		"fullName":             "Ravi Kumar",
		"email":                "a@x.com",
		"phone":                "9000000000",
		"city":                 "Madurai",
		"position":             "Backend Engineer",
		"experienceType":       "fresher",
		"highestQualification": "B.Tech",
		"degree":               "IT",
		"domain":               "Web Development",
		"heardFrom":            "LinkedIn",
		"interestReason":       "I like building services",
	}
}

func ideaForgeSubmission(now time.Time) types.FormValues {
	return types.FormValues{
		"name":        "Meena Devi",
		"email":       "meena@example.com",
		"phone":       "9876543210",
		"degree":      "B.Sc",
		"department":  "Physics",
		"year":        "2nd Year",
		"domain":      "IoT",
		"ideaType":    "own",
		"finalDate":   now.AddDate(0, 2, 0).Format("02/01/2006"),
		"gotReferral": "no",
	}
}
