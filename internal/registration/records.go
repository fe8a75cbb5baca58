package registration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"strings"

	"vetrian/internal/utils"
	"vetrian/pkg/types"

	"github.com/go-playground/validator/v10"
)

// Records covers the read, update and delete operations shared by every
// resource type and stage.
type Records struct {
	engine
	referrals *ReferralCodes
	validate  *validator.Validate
}

func (r *Records) Get(ctx context.Context, rt types.ResourceType, stage types.Stage, id string) (*types.Registrant, error) {
	d, err := r.descriptors.Lookup(rt)
	if err != nil {
		return nil, err
	}

	return r.load(ctx, d, stage, id)
}

// List returns every record of a type and stage, newest first.
func (r *Records) List(ctx context.Context, rt types.ResourceType, stage types.Stage) ([]*types.Registrant, error) {
	if _, err := r.descriptors.Lookup(rt); err != nil {
		return nil, err
	}

	records, err := r.store.Registrants(ctx, rt, stage)
	if err != nil {
		return nil, types.NewUnavailable("failed to list records", err)
	}

	return records, nil
}

func (r *Records) DraftByEmail(ctx context.Context, rt types.ResourceType, email string) (*types.Registrant, error) {
	d, err := r.descriptors.Lookup(rt)
	if err != nil {
		return nil, err
	}

	email = CanonicalEmail(email)
	if email == "" {
		return nil, types.NewInvalidRequest("Email is required")
	}

	rec, err := r.store.RegistrantByEmail(ctx, rt, types.StageDraft, email)
	if err != nil {
		if errors.Is(err, types.ErrRegistrantNotFound) {
			return nil, types.NewNotFound(fmt.Sprintf("No %s draft found for this email", d.Label))
		}
		return nil, types.NewUnavailable("failed to load draft", err)
	}

	return rec, nil
}

// Update merges values into an existing record by id. Back-office fields are
// accepted here. Present values pass the same format checks as a submission.
// A new upload replaces the attachment and the old file is released once the
// write succeeds.
func (r *Records) Update(ctx context.Context, rt types.ResourceType, stage types.Stage, id string, values types.FormValues, upload *types.Attachment) (*types.Registrant, error) {
	d, err := r.descriptors.Lookup(rt)
	if err != nil {
		return nil, r.fail(ctx, upload, err)
	}

	rec, err := r.load(ctx, d, stage, id)
	if err != nil {
		return nil, r.fail(ctx, upload, err)
	}

	if fields, problems := checkFormats(r.validate, d, values); len(problems) > 0 {
		return nil, r.fail(ctx, upload, types.NewValidationFailed(strings.Join(problems, "; "), fields))
	}

	if d.ReferralBearing && strings.TrimSpace(values.Get("referralCode")) != "" {
		code, err := r.referrals.Claimed(ctx, values.Get("referralCode"))
		if err != nil {
			return nil, r.fail(ctx, upload, err)
		}
		values = maps.Clone(values)
		values["referralCode"] = code
	}

	if err := applyValues(d, rec, values, true); err != nil {
		return nil, r.fail(ctx, upload, err)
	}

	if rec.Email == "" {
		return nil, r.fail(ctx, upload, types.NewInvalidRequest("Email is required"))
	}

	var previous *types.Attachment
	if upload != nil {
		previous = rec.Attachment
		rec.Attachment = upload
	}
	rec.UpdatedAt = r.now()

	if err := r.store.UpdateRegistrant(ctx, rec); err != nil {
		if errors.Is(err, types.ErrRegistrantNotFound) {
			return nil, r.fail(ctx, upload, r.notFound(d, stage))
		}
		return nil, r.fail(ctx, upload, storeError(err, rec, "failed to update record"))
	}

	if previous != nil {
		r.release(ctx, previous)
	}

	return rec, nil
}

// Delete removes the attached file first and then the record. A storage
// failure leaves the record in place.
func (r *Records) Delete(ctx context.Context, rt types.ResourceType, stage types.Stage, id string) (*types.Registrant, error) {
	d, err := r.descriptors.Lookup(rt)
	if err != nil {
		return nil, err
	}

	rec, err := r.load(ctx, d, stage, id)
	if err != nil {
		return nil, err
	}

	if rec.Attachment != nil {
		err := r.files.Release(ctx, rec.Attachment)
		if err != nil && !errors.Is(err, types.ErrFileNotFound) {
			r.logger.WithError(err).
				WithField("registrant_id", rec.ID).
				WithField("key", rec.Attachment.Key).
				Error("failed to delete attached file")
			return nil, types.NewUnavailable("Could not delete the attached file", err)
		}
	}

	if err := r.store.DeleteRegistrant(ctx, rt, stage, rec.ID); err != nil {
		if errors.Is(err, types.ErrRegistrantNotFound) {
			return nil, r.notFound(d, stage)
		}
		return nil, types.NewUnavailable("failed to delete record", err)
	}

	return rec, nil
}

// OpenAttachment streams a record's attached file. The caller closes the reader.
func (r *Records) OpenAttachment(ctx context.Context, rt types.ResourceType, stage types.Stage, id string) (*types.Attachment, io.ReadCloser, error) {
	d, err := r.descriptors.Lookup(rt)
	if err != nil {
		return nil, nil, err
	}

	rec, err := r.load(ctx, d, stage, id)
	if err != nil {
		return nil, nil, err
	}

	label := "File"
	if d.Upload != nil {
		label = strings.ToUpper(d.Upload.Field[:1]) + d.Upload.Field[1:]
	}

	if rec.Attachment == nil {
		return nil, nil, types.NewNotFound(label + " not found")
	}

	body, err := r.files.Open(ctx, rec.Attachment)
	if err != nil {
		if errors.Is(err, types.ErrFileNotFound) {
			return nil, nil, types.NewNotFound(label + " file not found on server")
		}
		return nil, nil, types.NewUnavailable("failed to open "+strings.ToLower(label), err)
	}

	return rec.Attachment, body, nil
}

func (r *Records) load(ctx context.Context, d *Descriptor, stage types.Stage, id string) (*types.Registrant, error) {
	id = strings.TrimSpace(id)
	if !utils.IsNanoID(id) {
		return nil, types.NewInvalidID(id)
	}

	rec, err := r.store.Registrant(ctx, d.Type, stage, id)
	if err != nil {
		if errors.Is(err, types.ErrRegistrantNotFound) {
			return nil, r.notFound(d, stage)
		}
		return nil, types.NewUnavailable("failed to load record", err)
	}

	return rec, nil
}

func (r *Records) notFound(d *Descriptor, stage types.Stage) error {
	if stage == types.StageDraft {
		return types.NewNotFound(d.Label + " draft not found")
	}
	return types.NewNotFound(d.Label + " registration not found")
}
