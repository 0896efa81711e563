package database

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/sos2a-intake/internal/assessment"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/devicerisk"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *AssessmentService {
	t.Helper()
	db, err := NewDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewAssessmentService(NewRepository(db), "test-secret", nil)
}

func fill(a *assessment.Assessment) {
	a.BusinessProfile.BusinessName = "Acme Dental"
	a.BusinessProfile.Industry = "healthcare"
	a.Contacts.PrimaryEmail = "owner@acme.example"
}

func TestAssessmentCRUD(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	a, err := svc.Create(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, a.Revision)
	assert.Equal(t, assessment.StatusDraft, a.Status)

	got, err := svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, got.RiskRegister.Items, 5)

	fill(got)
	updated, err := svc.Update(ctx, a.ID, got)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Revision)

	list, err := svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Acme Dental", list[0].BusinessName)

	drafts, err := svc.List(ctx, ListFilter{Status: "submitted"})
	require.NoError(t, err)
	assert.Empty(t, drafts)

	require.NoError(t, svc.Delete(ctx, a.ID))
	_, err = svc.Get(ctx, a.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.ErrorIs(t, svc.Delete(ctx, a.ID), ErrNotFound)
}

func TestSubmitAndReceipt(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	a, err := svc.Create(ctx, nil)
	require.NoError(t, err)

	_, err = svc.Submit(ctx, a.ID)
	require.Error(t, err, "an empty assessment does not validate")

	fill(a)
	_, err = svc.Update(ctx, a.ID, a)
	require.NoError(t, err)

	result, err := svc.Submit(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, assessment.StatusSubmitted, result.Assessment.Status)
	assert.Equal(t, 3, result.Assessment.Revision)

	claims, err := svc.Receipts().Verify(result.Receipt)
	require.NoError(t, err)
	assert.Equal(t, a.ID, claims.AssessmentID)
	assert.Equal(t, 3, claims.Revision)
	assert.Equal(t, result.Digest, claims.Digest)

	_, err = NewReceiptSigner("other-secret").Verify(result.Receipt)
	assert.Error(t, err)

	_, err = svc.Submit(ctx, a.ID)
	assert.ErrorIs(t, err, ErrConflict)
	_, err = svc.Update(ctx, a.ID, a)
	assert.ErrorIs(t, err, ErrConflict)

	revs, err := svc.Revisions(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, revs, 3)
	assert.Equal(t, []string{ReasonCreated, ReasonUpdated, ReasonSubmitted},
		[]string{revs[0].Reason, revs[1].Reason, revs[2].Reason})
	assert.Equal(t, result.Digest, revs[2].Digest)

	claims, matches, err := svc.VerifyReceipt(ctx, result.Receipt)
	require.NoError(t, err)
	assert.True(t, matches)
	assert.Equal(t, 3, claims.Revision)

	require.NoError(t, svc.Delete(ctx, a.ID))
	_, matches, err = svc.VerifyReceipt(ctx, result.Receipt)
	require.NoError(t, err, "the signature stays valid after deletion")
	assert.False(t, matches)

	_, _, err = svc.VerifyReceipt(ctx, "not-a-token")
	assert.Error(t, err)
}

func TestRevisionDiff(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	a, err := svc.Create(ctx, nil)
	require.NoError(t, err)
	a.BusinessProfile.BusinessName = "Globex"
	_, err = svc.Update(ctx, a.ID, a)
	require.NoError(t, err)

	diff, err := svc.Diff(ctx, a.ID, 1, 2)
	require.NoError(t, err)
	assert.Contains(t, diff.Patch, "Globex")
	assert.GreaterOrEqual(t, diff.Additions, 1)
	assert.GreaterOrEqual(t, diff.Deletions, 1)

	same, err := svc.Diff(ctx, a.ID, 2, 2)
	require.NoError(t, err)
	assert.Empty(t, same.Patch)

	_, err = svc.Diff(ctx, a.ID, 1, 9)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateAssessmentStaleRevision(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	a, err := svc.Create(ctx, nil)
	require.NoError(t, err)

	// two writers read revision 1 and both try to write revision 2
	first, err := svc.Get(ctx, a.ID)
	require.NoError(t, err)
	second, err := svc.Get(ctx, a.ID)
	require.NoError(t, err)

	first.Revision = 2
	first.BusinessProfile.BusinessName = "Initech"
	require.NoError(t, svc.repo.UpdateAssessment(ctx, first, ReasonUpdated))

	fill(second)
	require.NoError(t, second.Submit(time.Now().UTC()))
	second.Revision = 2
	err = svc.repo.UpdateAssessment(ctx, second, ReasonSubmitted)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflict)
	assert.False(t, errors.Is(err, ErrNotFound))

	stored, err := svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Initech", stored.BusinessProfile.BusinessName)
	assert.Equal(t, assessment.StatusDraft, stored.Status)

	revisions, err := svc.Revisions(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, revisions, 2)

	missing := *first
	missing.ID = "does-not-exist"
	missing.Revision = 2
	assert.ErrorIs(t, svc.repo.UpdateAssessment(ctx, &missing, ReasonUpdated), ErrNotFound)
}

func TestDiffDocuments(t *testing.T) {
	before := "{\n  \"a\": 1,\n  \"b\": 2\n}\n"
	after := "{\n  \"a\": 1,\n  \"b\": 3\n}\n"

	diff := diffDocuments(before, after, 1, 2)
	assert.Equal(t, 1, diff.Additions)
	assert.Equal(t, 1, diff.Deletions)
	assert.True(t, strings.HasPrefix(diff.Patch, "@@"))
}

func TestDevicesAndIdentities(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	a, err := svc.Create(ctx, nil)
	require.NoError(t, err)
	a.Devices.OrgRiskTags = []string{"no-mfa"}
	_, err = svc.Update(ctx, a.ID, a)
	require.NoError(t, err)

	override := 10
	saved, err := svc.SaveDevices(ctx, a.ID, []devicerisk.Device{
		{ID: "D1", Type: "server", Owner: "IT"},
		{ID: "D2", Type: "laptop", Owner: "IT", RiskScoreOverride: &override},
	})
	require.NoError(t, err)
	assert.Equal(t, 60, saved[0].RiskScore)

	devices, err := svc.Devices(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, 10, devices[1].EffectiveScore())

	d, err := svc.Device(ctx, a.ID, "D1")
	require.NoError(t, err)
	assert.Equal(t, "server", d.Type)

	require.NoError(t, svc.DeleteDevice(ctx, a.ID, "D2"))
	assert.ErrorIs(t, svc.DeleteDevice(ctx, a.ID, "D2"), ErrNotFound)

	ids, err := svc.SaveIdentities(ctx, a.ID, []identity.Identity{
		{Type: identity.CategoryHuman, Name: "Jane", Email: "jane@acme.example"},
	})
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.NotEmpty(t, ids[0].ID)
	assert.Len(t, ids[0].UWA, 10)
	assert.Equal(t, identity.DefaultMatrix().Selected(identity.CategoryHuman), ids[0].Components,
		"empty components come from the assessment matrix")

	review, err := svc.Review(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, review.DeviceCount)
	assert.Equal(t, 1, review.IdentityCount)
	assert.NotEmpty(t, review.HygieneFindings)
}

func TestPurgeStaleDrafts(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }
	old, err := svc.Create(ctx, nil)
	require.NoError(t, err)

	svc.now = func() time.Time { return base.Add(60 * 24 * time.Hour) }
	fresh, err := svc.Create(ctx, nil)
	require.NoError(t, err)

	n, err := svc.PurgeStaleDrafts(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = svc.Get(ctx, old.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Get(ctx, fresh.ID)
	assert.NoError(t, err)
}
