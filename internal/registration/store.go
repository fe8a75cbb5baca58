package registration

import (
	"context"
	"io"

	"vetrian/pkg/types"
)

// Querier is the read side of the registrant store. Lookups that miss
// return types.ErrRegistrantNotFound.
type Querier interface {
	Registrant(ctx context.Context, rt types.ResourceType, stage types.Stage, id string) (*types.Registrant, error)
	RegistrantByEmail(ctx context.Context, rt types.ResourceType, stage types.Stage, email string) (*types.Registrant, error)
	Registrants(ctx context.Context, rt types.ResourceType, stage types.Stage) ([]*types.Registrant, error)
	// MatchRegistrant returns the first record equal to any of the given
	// natural keys (email, phone, rollNumber).
	MatchRegistrant(ctx context.Context, rt types.ResourceType, stage types.Stage, match map[string]string) (*types.Registrant, error)
}

// Mutator is the write side. Writes that trip a unique index return a
// *types.UniqueViolation.
type Mutator interface {
	CreateRegistrant(ctx context.Context, r *types.Registrant, code *types.ReferralCode) error
	UpdateRegistrant(ctx context.Context, r *types.Registrant) error
	DeleteRegistrant(ctx context.Context, rt types.ResourceType, stage types.Stage, id string) error
}

type Store interface {
	Querier
	Mutator
}

type ReferralLookup interface {
	ReferralCodeExists(ctx context.Context, code string) (bool, error)
	// Referrer returns types.ErrReferralCodeNotFound for unknown codes.
	Referrer(ctx context.Context, code string) (*types.Referrer, error)
}

// Files releases and opens stored attachments. Open returns
// types.ErrFileNotFound when the object is gone.
type Files interface {
	Release(ctx context.Context, att *types.Attachment) error
	Open(ctx context.Context, att *types.Attachment) (io.ReadCloser, error)
}

type Publisher interface {
	Publish(ctx context.Context, event *types.RegistrationEvent) error
}
