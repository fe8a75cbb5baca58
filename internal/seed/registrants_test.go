package seed

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"vetrian/internal/registration"
	"vetrian/pkg/types"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceStore keeps registrants in insertion order; enough for seeding.
type sliceStore struct {
	records []*types.Registrant
	codes   map[string]bool
}

func (s *sliceStore) find(match func(*types.Registrant) bool) (*types.Registrant, error) {
	for _, r := range s.records {
		if match(r) {
			out := *r
			return &out, nil
		}
	}
	return nil, types.ErrRegistrantNotFound
}

func (s *sliceStore) Registrant(_ context.Context, rt types.ResourceType, stage types.Stage, id string) (*types.Registrant, error) {
	return s.find(func(r *types.Registrant) bool { return r.ResourceType == rt && r.Stage == stage && r.ID == id })
}

func (s *sliceStore) RegistrantByEmail(_ context.Context, rt types.ResourceType, stage types.Stage, email string) (*types.Registrant, error) {
	return s.find(func(r *types.Registrant) bool { return r.ResourceType == rt && r.Stage == stage && r.Email == email })
}

func (s *sliceStore) Registrants(context.Context, types.ResourceType, types.Stage) ([]*types.Registrant, error) {
	return s.records, nil
}

func (s *sliceStore) MatchRegistrant(ctx context.Context, rt types.ResourceType, stage types.Stage, match map[string]string) (*types.Registrant, error) {
	return s.RegistrantByEmail(ctx, rt, stage, match["email"])
}

func (s *sliceStore) CreateRegistrant(_ context.Context, r *types.Registrant, code *types.ReferralCode) error {
	s.records = append(s.records, r)
	if code != nil {
		s.codes[code.Code] = true
	}
	return nil
}

func (s *sliceStore) UpdateRegistrant(_ context.Context, r *types.Registrant) error {
	for i, existing := range s.records {
		if existing.ID == r.ID {
			s.records[i] = r
			return nil
		}
	}
	return types.ErrRegistrantNotFound
}

func (s *sliceStore) DeleteRegistrant(context.Context, types.ResourceType, types.Stage, string) error {
	return nil
}

func (s *sliceStore) ReferralCodeExists(_ context.Context, code string) (bool, error) {
	return s.codes[code], nil
}

func (s *sliceStore) Referrer(context.Context, string) (*types.Referrer, error) {
	return nil, types.ErrReferralCodeNotFound
}

type noFiles struct{}

func (noFiles) Release(context.Context, *types.Attachment) error { return nil }

func (noFiles) Open(context.Context, *types.Attachment) (io.ReadCloser, error) {
	return nil, types.ErrFileNotFound
}

func TestSeedRegistrantsIsRepeatable(t *testing.T) {
	logger, _ := test.NewNullLogger()
	st := &sliceStore{codes: map[string]bool{}}
	svc := registration.New(registration.Options{
		Logger:    logger,
		Store:     st,
		Referrals: st,
		Files:     noFiles{},
	})

	samples := Samples(time.Now())

	var out bytes.Buffer
	require.NoError(t, SeedRegistrants(context.Background(), svc, samples, &out))
	assert.Len(t, st.records, len(samples))
	assert.Len(t, st.codes, 1, "the IdeaForge sample owns a referral code")

	out.Reset()
	require.NoError(t, SeedRegistrants(context.Background(), svc, samples, &out))
	assert.Len(t, st.records, len(samples))
	assert.Contains(t, out.String(), "already registered")
}
