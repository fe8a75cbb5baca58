package registration

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"vetrian/internal/utils"
	"vetrian/pkg/types"

	"github.com/go-playground/validator/v10"
)

const maxInsertAttempts = 3

// Finalizer accepts complete registrations.
type Finalizer struct {
	engine
	duplicates *DuplicateChecker
	referrals  *ReferralCodes
	publisher  Publisher
	validate   *validator.Validate
}

// Submit validates a complete submission and stores it as a final record.
// Any failure after the upload was written releases the upload.
func (f *Finalizer) Submit(ctx context.Context, rt types.ResourceType, values types.FormValues, upload *types.Attachment) (*types.Registrant, error) {
	d, err := f.descriptors.Lookup(rt)
	if err != nil {
		return nil, f.fail(ctx, upload, err)
	}

	values = maps.Clone(values)
	if values == nil {
		values = types.FormValues{}
	}

	now := f.now()
	if d.SynthesizeRollNumber && strings.TrimSpace(values.Get("rollNumber")) == "" {
		values["rollNumber"] = placeholderRollNumber(now.UnixMilli())
	}

	missing := missingRequired(d, values)
	if d.Upload != nil && d.Upload.Required && upload == nil {
		missing = append(missing, d.Upload.Field)
	}
	if len(missing) > 0 {
		return nil, f.fail(ctx, upload, types.NewMissingFields(missing))
	}

	if fields, problems := checkFormats(f.validate, d, values); len(problems) > 0 {
		return nil, f.fail(ctx, upload, types.NewValidationFailed(strings.Join(problems, "; "), fields))
	}

	rec := &types.Registrant{
		ID:           utils.NanoID(),
		ResourceType: d.Type,
		Stage:        types.StageFinal,
		Status:       d.InitialStatusFor(types.StageFinal),
		Fields:       types.Fields{},
		Notes:        "",
		TotalCost:    0,
		AmountPaid:   0,
		Attachment:   upload,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := applyValues(d, rec, values, false); err != nil {
		return nil, f.fail(ctx, upload, err)
	}
	applyDefaults(d, rec)

	if d.ReferralBearing {
		if err := f.checkConsumedReferral(ctx, rec, values); err != nil {
			return nil, f.fail(ctx, upload, err)
		}
	}

	result, err := f.duplicates.Check(ctx, rt, types.StageFinal, candidatesFrom(rec, d.UniqueFields))
	if err != nil {
		return nil, f.fail(ctx, upload, err)
	}
	if result.Exists {
		return nil, f.fail(ctx, upload, types.NewConflict(result.Conflicts...))
	}

	if err := f.insert(ctx, d, rec); err != nil {
		return nil, f.fail(ctx, upload, err)
	}

	f.publish(ctx, rec)

	return rec, nil
}

// insert writes the record, generating the owner's referral code for
// referral-bearing types. The store's unique indexes are authoritative: a
// clash on the generated code resamples, any other clash is a conflict.
func (f *Finalizer) insert(ctx context.Context, d *Descriptor, rec *types.Registrant) error {
	for range maxInsertAttempts {
		var code *types.ReferralCode
		if d.ReferralBearing {
			generated, err := f.referrals.Generate(ctx)
			if err != nil {
				return err
			}
			rec.GeneratedReferralCode = utils.StringPtr(generated)
			code = &types.ReferralCode{Code: generated, RegistrantID: rec.ID, CreatedAt: rec.CreatedAt}
		}

		err := f.store.CreateRegistrant(ctx, rec, code)
		if err == nil {
			return nil
		}

		if uv, ok := types.AsUniqueViolation(err); ok && uv.Field == "generatedReferralCode" {
			f.logger.WithField("code", utils.PtrString(rec.GeneratedReferralCode)).Warn("referral code collided on insert, regenerating")
			continue
		}

		return storeError(err, rec, "failed to save registration")
	}

	return types.NewUnavailable("failed to save registration", fmt.Errorf("referral code collided %d times", maxInsertAttempts))
}

// checkConsumedReferral requires a claimed referral code to be well formed
// and previously generated.
func (f *Finalizer) checkConsumedReferral(ctx context.Context, rec *types.Registrant, values types.FormValues) error {
	if values.Get("gotReferral") != "yes" {
		rec.ReferralCode = nil
		return nil
	}

	code, err := f.referrals.Claimed(ctx, values.Get("referralCode"))
	if err != nil {
		return err
	}

	rec.ReferralCode = utils.StringPtr(code)
	return nil
}

func (f *Finalizer) publish(ctx context.Context, rec *types.Registrant) {
	event := &types.RegistrationEvent{
		Type:         types.EventRegistrationSubmitted,
		ResourceType: rec.ResourceType,
		RegistrantID: rec.ID,
		Email:        rec.Email,
		OccurredAt:   rec.CreatedAt,
	}

	if err := f.publisher.Publish(ctx, event); err != nil {
		f.logger.WithError(err).WithField("registrant_id", rec.ID).Error("failed to publish registration event")
	}
}

// placeholderRollNumber stands in for applicants without a roll number so
// the roll number index never blocks them.
func placeholderRollNumber(ms int64) string {
	return fmt.Sprintf("temp_%d_%s", ms, utils.RandomLowerAlnum(9))
}
