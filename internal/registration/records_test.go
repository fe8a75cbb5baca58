package registration

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"vetrian/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordsRejectMalformedIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, id := range []string{"", "123", "not a nanoid at all but long enough", "../../etc/passwd"} {
		_, err := f.svc.Records.Get(ctx, types.ResourceCourse, types.StageFinal, id)
		assert.True(t, types.IsKind(err, types.KindInvalidID), id)

		_, err = f.svc.Records.Delete(ctx, types.ResourceCourse, types.StageDraft, id)
		assert.True(t, types.IsKind(err, types.KindInvalidID), id)
	}
}

func TestRecordsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	missing := "abcdefghijklmnopqrstuvwxyz012345"

	_, err := f.svc.Records.Get(ctx, types.ResourceCourse, types.StageFinal, missing)
	assert.True(t, types.IsKind(err, types.KindNotFound))

	upload := f.files.upload("resume", "cv.pdf")
	_, err = f.svc.Records.Update(ctx, types.ResourceCourse, types.StageFinal, missing, types.FormValues{"city": "X"}, upload)
	assert.True(t, types.IsKind(err, types.KindNotFound))
	assert.False(t, f.files.exists(upload.Key))

	_, err = f.svc.Records.Delete(ctx, types.ResourceCourse, types.StageFinal, missing)
	assert.True(t, types.IsKind(err, types.KindNotFound))
}

func TestDeleteReleasesAttachment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	upload := f.files.upload("resume", "cv.pdf")
	rec, err := f.svc.Finalizer.Submit(ctx, types.ResourceCareer, careerSubmission(), upload)
	require.NoError(t, err)

	deleted, err := f.svc.Records.Delete(ctx, types.ResourceCareer, types.StageFinal, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, deleted.ID)
	assert.False(t, f.files.exists(upload.Key))

	_, err = f.svc.Records.Get(ctx, types.ResourceCareer, types.StageFinal, rec.ID)
	assert.True(t, types.IsKind(err, types.KindNotFound))

	_, err = f.files.Open(ctx, upload)
	assert.ErrorIs(t, err, types.ErrFileNotFound)
}

func TestDeleteKeepsRecordWhenStorageFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.svc.Drafts.Save(ctx, types.ResourceCourse, "a@x.com", nil, f.files.upload("resume", "cv.pdf"))
	require.NoError(t, err)

	f.files.releaseErr = assert.AnError
	_, err = f.svc.Records.Delete(ctx, types.ResourceCourse, types.StageDraft, rec.ID)
	assert.True(t, types.IsKind(err, types.KindUnavailable))

	_, err = f.svc.Records.Get(ctx, types.ResourceCourse, types.StageDraft, rec.ID)
	assert.NoError(t, err)
}

func TestUpdateMergesAndAppliesAdminFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.svc.Finalizer.Submit(ctx, types.ResourceCourse, courseSubmission(), nil)
	require.NoError(t, err)

	updated, err := f.svc.Records.Update(ctx, types.ResourceCourse, types.StageFinal, rec.ID, types.FormValues{
		"status":           StatusViewed,
		"notes":            "called back",
		"totalCost":        "15000",
		"amountPaid":       "5000.456",
		"agreement":        "false",
		"accessPreference": "Flexible Access",
		"city":             "",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, StatusViewed, updated.Status)
	assert.Equal(t, "called back", updated.Notes)
	assert.Equal(t, 15000.0, updated.TotalCost)
	assert.Equal(t, 5000.46, updated.AmountPaid)
	assert.Equal(t, false, updated.Fields["agreement"])
	assert.Equal(t, "Flexible Access", updated.Fields["accessPreference"])
	assert.Equal(t, "Chennai", updated.Fields["city"])
}

func TestUpdateValidatesStatusDomain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.svc.Finalizer.Submit(ctx, types.ResourceCareer, careerSubmission(), f.files.upload("resume", "cv.pdf"))
	require.NoError(t, err)

	_, err = f.svc.Records.Update(ctx, types.ResourceCareer, types.StageFinal, rec.ID, types.FormValues{"status": StatusViewed}, nil)
	assert.True(t, types.IsKind(err, types.KindValidationFailed))

	updated, err := f.svc.Records.Update(ctx, types.ResourceCareer, types.StageFinal, rec.ID, types.FormValues{
		"status":        StatusCareerInterview,
		"rating":        "4",
		"interviewDate": "2025-07-01",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusCareerInterview, updated.Status)
	assert.Equal(t, 4.0, updated.Fields["rating"])
	assert.Equal(t, "2025-07-01", updated.Fields["interviewDate"])
}

func TestUpdateRDReappliesAccessMapping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.svc.Drafts.Save(ctx, types.ResourceRD, "a@x.com", types.FormValues{"accessPreference": "Full Access"}, nil)
	require.NoError(t, err)

	updated, err := f.svc.Records.Update(ctx, types.ResourceRD, types.StageDraft, rec.ID, types.FormValues{"accessPreference": "Flexible Access"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Flexible Access (Installment / Due-based option)", updated.Fields["projectAccess"])
}

func TestUpdateReplacesAttachment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	old := f.files.upload("resume", "old.pdf")
	rec, err := f.svc.Finalizer.Submit(ctx, types.ResourceCareer, careerSubmission(), old)
	require.NoError(t, err)

	replacement := f.files.upload("resume", "new.pdf")
	updated, err := f.svc.Records.Update(ctx, types.ResourceCareer, types.StageFinal, rec.ID, nil, replacement)
	require.NoError(t, err)

	assert.Equal(t, replacement.Key, updated.Attachment.Key)
	assert.False(t, f.files.exists(old.Key))
	assert.True(t, f.files.exists(replacement.Key))
}

func TestUpdateConflictReleasesUpload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Finalizer.Submit(ctx, types.ResourceCourse, courseSubmission(), nil)
	require.NoError(t, err)

	other := courseSubmission()
	other["email"] = "b@x.com"
	other["phone"] = "9000000002"
	other["rollNumber"] = "CSE002"
	second, err := f.svc.Finalizer.Submit(ctx, types.ResourceCourse, other, nil)
	require.NoError(t, err)

	upload := f.files.upload("resume", "cv.pdf")
	_, err = f.svc.Records.Update(ctx, types.ResourceCourse, types.StageFinal, second.ID, types.FormValues{"email": "ASHA@example.com"}, upload)
	require.Error(t, err)

	appErr, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.KindConflict, appErr.Kind)
	assert.Equal(t, "email", appErr.Conflicts[0].Field)
	assert.False(t, f.files.exists(upload.Key))
}

func TestOpenAttachment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.svc.Drafts.Save(ctx, types.ResourceCourse, "a@x.com", nil, nil)
	require.NoError(t, err)

	_, _, err = f.svc.Records.OpenAttachment(ctx, types.ResourceCourse, types.StageDraft, rec.ID)
	assert.True(t, types.IsKind(err, types.KindNotFound))

	upload := f.files.upload("resume", "cv.pdf")
	_, err = f.svc.Drafts.Save(ctx, types.ResourceCourse, "a@x.com", nil, upload)
	require.NoError(t, err)

	att, body, err := f.svc.Records.OpenAttachment(ctx, types.ResourceCourse, types.StageDraft, rec.ID)
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data))
	assert.Equal(t, "cv.pdf", att.OriginalName)
}

func TestListNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		f.now = f.now.Add(time.Minute)
		_, err := f.svc.Drafts.Save(ctx, types.ResourceCourse, email, nil, nil)
		require.NoError(t, err)
	}

	records, err := f.svc.Records.List(ctx, types.ResourceCourse, types.StageDraft)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "c@x.com", records[0].Email)
	assert.Equal(t, "a@x.com", records[2].Email)
}

func TestDraftByEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Records.DraftByEmail(ctx, types.ResourceCourse, "")
	assert.True(t, types.IsKind(err, types.KindInvalidRequest))

	_, err = f.svc.Records.DraftByEmail(ctx, types.ResourceCourse, "a@x.com")
	assert.True(t, types.IsKind(err, types.KindNotFound))

	_, err = f.svc.Drafts.Save(ctx, types.ResourceCourse, "a@x.com", types.FormValues{"college": "X"}, nil)
	require.NoError(t, err)

	rec, err := f.svc.Records.DraftByEmail(ctx, types.ResourceCourse, " A@X.com ")
	require.NoError(t, err)
	assert.Equal(t, "X", rec.Fields.String("college"))
}

func TestUpdateValidatesFormats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.svc.Finalizer.Submit(ctx, types.ResourceIdeaForge, ideaForgeSubmission(f.now), nil)
	require.NoError(t, err)

	_, err = f.svc.Records.Update(ctx, types.ResourceIdeaForge, types.StageFinal, rec.ID, types.FormValues{
		"phone": "123",
		"year":  "Zeroth Year",
		"email": "not-an-email",
	}, nil)
	require.Error(t, err)

	appErr, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.KindValidationFailed, appErr.Kind)
	assert.ElementsMatch(t, []string{"phone", "year", "email"}, appErr.Fields)

	stored, err := f.svc.Records.Get(ctx, types.ResourceIdeaForge, types.StageFinal, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "meena@example.com", stored.Email)
	assert.Equal(t, "2nd Year", stored.Fields.String("year"))
}

func TestUpdateRejectsEnumOutsideDomain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.svc.Finalizer.Submit(ctx, types.ResourceCourse, courseSubmission(), nil)
	require.NoError(t, err)

	_, err = f.svc.Records.Update(ctx, types.ResourceCourse, types.StageFinal, rec.ID, types.FormValues{"accessPreference": "Premium Access"}, nil)
	assert.True(t, types.IsKind(err, types.KindValidationFailed))
}

func TestUpdateChecksClaimedReferralCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	referrer, err := f.svc.Finalizer.Submit(ctx, types.ResourceIdeaForge, ideaForgeSubmission(f.now), nil)
	require.NoError(t, err)

	values := ideaForgeSubmission(f.now)
	values["email"] = "b@example.com"
	values["phone"] = "9876500000"
	rec, err := f.svc.Finalizer.Submit(ctx, types.ResourceIdeaForge, values, nil)
	require.NoError(t, err)

	for _, code := range []string{"garbage", "VR-0000-0000"} {
		_, err = f.svc.Records.Update(ctx, types.ResourceIdeaForge, types.StageFinal, rec.ID, types.FormValues{"referralCode": code}, nil)
		require.Error(t, err, code)

		appErr, ok := types.AsError(err)
		require.True(t, ok)
		assert.Equal(t, types.KindValidationFailed, appErr.Kind, code)
		assert.Equal(t, []string{"referralCode"}, appErr.Fields, code)
	}

	stored, err := f.svc.Records.Get(ctx, types.ResourceIdeaForge, types.StageFinal, rec.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ReferralCode)

	issued := *referrer.GeneratedReferralCode
	updated, err := f.svc.Records.Update(ctx, types.ResourceIdeaForge, types.StageFinal, rec.ID, types.FormValues{"referralCode": strings.ToLower(issued)}, nil)
	require.NoError(t, err)
	assert.Equal(t, issued, *updated.ReferralCode)
}

func TestDeletedReferrerCodeStaysIssued(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	referrer, err := f.svc.Finalizer.Submit(ctx, types.ResourceIdeaForge, ideaForgeSubmission(f.now), nil)
	require.NoError(t, err)
	code := *referrer.GeneratedReferralCode

	_, err = f.svc.Records.Delete(ctx, types.ResourceIdeaForge, types.StageFinal, referrer.ID)
	require.NoError(t, err)

	verified, err := f.svc.Referrals.Verify(ctx, code)
	require.NoError(t, err)
	assert.True(t, verified.Valid)
	assert.Empty(t, verified.ReferrerName)

	f.svc.Referrals.sample = func() (string, error) { return code[3:7] + code[8:], nil }
	_, err = f.svc.Referrals.Generate(ctx)
	assert.True(t, types.IsKind(err, types.KindUnavailable))
}
