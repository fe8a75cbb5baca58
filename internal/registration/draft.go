package registration

import (
	"context"
	"errors"
	"fmt"

	"vetrian/internal/utils"
	"vetrian/pkg/types"
)

// DraftEngine keeps one save-as-you-go draft per email and resource type.
type DraftEngine struct {
	engine
	duplicates *DuplicateChecker
}

// Save inserts or merges a draft keyed by the canonical email. Values are
// expected to be normalized already; blank values never erase stored ones.
// A new upload supersedes the draft's previous attachment.
func (e *DraftEngine) Save(ctx context.Context, rt types.ResourceType, email string, values types.FormValues, upload *types.Attachment) (*types.Registrant, error) {
	d, err := e.descriptors.Lookup(rt)
	if err != nil {
		return nil, e.fail(ctx, upload, err)
	}

	if !d.Drafts {
		return nil, e.fail(ctx, upload, types.NewInvalidRequest(fmt.Sprintf("%s does not support drafts", d.Label)))
	}

	email = CanonicalEmail(email)
	if email == "" {
		return nil, e.fail(ctx, upload, types.NewInvalidRequest("Email is required"))
	}

	// a concurrent first save for the same email loses the insert race and
	// is retried once as a merge
	for attempt := 0; ; attempt++ {
		existing, err := e.store.RegistrantByEmail(ctx, rt, types.StageDraft, email)
		if err != nil && !errors.Is(err, types.ErrRegistrantNotFound) {
			return nil, e.fail(ctx, upload, types.NewUnavailable("failed to load draft", err))
		}

		rec, previous, err := e.save(ctx, d, email, existing, values, upload)
		if err == nil {
			if previous != nil && previous.Key != upload.Key {
				e.release(ctx, previous)
			}
			return rec, nil
		}

		if uv, ok := types.AsUniqueViolation(err); ok && uv.Field == "email" && existing == nil && attempt == 0 {
			e.logger.WithField("email", email).WithField("resource_type", rt).Debug("draft created concurrently, merging")
			continue
		}

		if _, ok := types.AsError(err); !ok {
			err = storeError(err, rec, "failed to save draft")
		}

		return nil, e.fail(ctx, upload, err)
	}
}

func (e *DraftEngine) save(ctx context.Context, d *Descriptor, email string, existing *types.Registrant, values types.FormValues, upload *types.Attachment) (*types.Registrant, *types.Attachment, error) {
	now := e.now()

	rec := existing
	creating := rec == nil
	if creating {
		rec = &types.Registrant{
			ID:           utils.NanoID(),
			ResourceType: d.Type,
			Stage:        types.StageDraft,
			Status:       d.InitialStatusFor(types.StageDraft),
			Fields:       types.Fields{},
			CreatedAt:    now,
		}
	}

	if err := applyValues(d, rec, values, false); err != nil {
		return nil, nil, err
	}
	rec.Email = email

	if creating {
		applyDefaults(d, rec)
	}

	if err := e.checkKeys(ctx, d, rec, values); err != nil {
		return nil, nil, err
	}

	var previous *types.Attachment
	if upload != nil {
		previous = rec.Attachment
		rec.Attachment = upload
	}
	rec.UpdatedAt = now

	var err error
	if creating {
		err = e.store.CreateRegistrant(ctx, rec, nil)
	} else {
		err = e.store.UpdateRegistrant(ctx, rec)
	}
	if err != nil {
		return rec, nil, err
	}

	return rec, previous, nil
}

// checkKeys rejects a phone or roll number already used by another draft.
func (e *DraftEngine) checkKeys(ctx context.Context, d *Descriptor, rec *types.Registrant, values types.FormValues) error {
	var probe []string
	for _, field := range []string{"phone", "rollNumber"} {
		if values.Get(field) != "" && d.Allows(field) {
			probe = append(probe, field)
		}
	}
	if len(probe) == 0 {
		return nil
	}

	result, err := e.duplicates.Check(ctx, d.Type, types.StageDraft, candidatesFrom(rec, probe))
	if err != nil {
		return err
	}

	if result.Exists && result.RegistrantID != rec.ID {
		return types.NewConflict(result.Conflicts...)
	}

	return nil
}

// Acknowledge picks the fields a draft save echoes back to the client.
func Acknowledge(d *Descriptor, rec *types.Registrant) map[string]any {
	out := make(map[string]any, len(d.Echo()))
	for _, field := range d.Echo() {
		switch field {
		case "id":
			out[field] = rec.ID
		case "email":
			out[field] = rec.Email
		case "rollNumber":
			out[field] = utils.PtrString(rec.RollNumber)
		default:
			out[field] = rec.Fields.String(field)
		}
	}
	return out
}
