package registration

import (
	"context"
	"time"

	"vetrian/pkg/types"

	"github.com/sirupsen/logrus"
)

// Service bundles the registration engines over one store.
type Service struct {
	Descriptors Descriptors
	Referrals   *ReferralCodes
	Duplicates  *DuplicateChecker
	Drafts      *DraftEngine
	Finalizer   *Finalizer
	Records     *Records
}

type Options struct {
	Logger      logrus.FieldLogger
	Descriptors Descriptors
	Store       Store
	Referrals   ReferralLookup
	Files       Files
	// Publisher is optional.
	Publisher Publisher
	Now       func() time.Time
}

func New(opts Options) *Service {
	if opts.Descriptors == nil {
		opts.Descriptors = DefaultDescriptors()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Publisher == nil {
		opts.Publisher = nopPublisher{}
	}

	base := engine{
		logger:      opts.Logger,
		descriptors: opts.Descriptors,
		store:       opts.Store,
		files:       opts.Files,
		now:         opts.Now,
	}

	referrals := NewReferralCodes(opts.Referrals)
	duplicates := NewDuplicateChecker(opts.Store)
	validate := newValidator(opts.Now)

	return &Service{
		Descriptors: opts.Descriptors,
		Referrals:   referrals,
		Duplicates:  duplicates,
		Drafts:      &DraftEngine{engine: base, duplicates: duplicates},
		Finalizer: &Finalizer{
			engine:     base,
			duplicates: duplicates,
			referrals:  referrals,
			publisher:  opts.Publisher,
			validate:   validate,
		},
		Records: &Records{engine: base, referrals: referrals, validate: validate},
	}
}

// engine carries the collaborators every component shares.
type engine struct {
	logger      logrus.FieldLogger
	descriptors Descriptors
	store       Store
	files       Files
	now         func() time.Time
}

// release discards an upload belonging to a rejected or superseded request.
// Failures are logged only.
func (e *engine) release(ctx context.Context, att *types.Attachment) {
	if att == nil {
		return
	}

	if err := e.files.Release(ctx, att); err != nil {
		e.logger.WithError(err).
			WithField("key", att.Key).
			WithField("backend", att.Backend).
			Warn("failed to release uploaded file")
	}
}

// fail releases the upload and returns err unchanged.
func (e *engine) fail(ctx context.Context, upload *types.Attachment, err error) error {
	e.release(ctx, upload)
	return err
}

// storeError converts a store failure into the public taxonomy.
func storeError(err error, rec *types.Registrant, message string) error {
	if uv, ok := types.AsUniqueViolation(err); ok {
		return types.NewConflict(types.FieldConflict{Field: uv.Field, Value: valueOf(rec, uv.Field)})
	}
	return types.NewUnavailable(message, err)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, *types.RegistrationEvent) error { return nil }
