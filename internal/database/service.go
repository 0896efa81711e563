package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/ZanzyTHEbar/sos2a-intake/internal/assessment"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/devicerisk"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/identity"
)

// ScoreObserver is told about every device score computed on save
type ScoreObserver interface {
	ObserveDeviceScore(level, source string)
}

// AssessmentService provides the assessment lifecycle on top of the repository
type AssessmentService struct {
	repo     *Repository
	receipts *ReceiptSigner
	wazuh    *devicerisk.WazuhClient
	observer ScoreObserver
	now      func() time.Time
}

// NewAssessmentService creates the service. wazuh may be nil.
func NewAssessmentService(repo *Repository, jwtSecret string, wazuh *devicerisk.WazuhClient) *AssessmentService {
	return &AssessmentService{
		repo:     repo,
		receipts: NewReceiptSigner(jwtSecret),
		wazuh:    wazuh,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetScoreObserver registers o for device scoring events
func (s *AssessmentService) SetScoreObserver(o ScoreObserver) {
	s.observer = o
}

// Receipts exposes the receipt signer for verification
func (s *AssessmentService) Receipts() *ReceiptSigner {
	return s.receipts
}

// Create stores a new draft. A nil input starts from the seeded defaults;
// otherwise the input's sections are kept and its lifecycle fields reset.
func (s *AssessmentService) Create(ctx context.Context, input *assessment.Assessment) (*assessment.Assessment, error) {
	now := s.now()
	a := assessment.New(uuid.New().String(), now)

	if input != nil {
		id, created := a.ID, a.CreatedAt
		*a = *input
		a.ID = id
		a.CreatedAt = created
		a.UpdatedAt = now
		a.SubmittedAt = nil
		if a.Type == "" {
			a.Type = assessment.TypeComprehensive
		}
		if a.IdentityHygiene.Matrix == nil {
			a.IdentityHygiene.Matrix = identity.DefaultMatrix()
		}
	}
	a.Status = assessment.StatusDraft
	a.Revision = 1

	if err := s.repo.InsertAssessment(ctx, a); err != nil {
		return nil, err
	}

	slog.Info("Assessment created", "assessment_id", a.ID)
	return a, nil
}

// Get loads an assessment
func (s *AssessmentService) Get(ctx context.Context, id string) (*assessment.Assessment, error) {
	return s.repo.GetAssessment(ctx, id)
}

// List returns assessment summaries
func (s *AssessmentService) List(ctx context.Context, filter ListFilter) ([]AssessmentSummary, error) {
	return s.repo.ListAssessments(ctx, filter)
}

// Update replaces a draft's sections and records a new revision
func (s *AssessmentService) Update(ctx context.Context, id string, input *assessment.Assessment) (*assessment.Assessment, error) {
	current, err := s.editable(ctx, id)
	if err != nil {
		return nil, err
	}

	next := *input
	next.ID = current.ID
	next.Status = current.Status
	next.CreatedAt = current.CreatedAt
	next.SubmittedAt = nil
	next.Revision = current.Revision + 1
	next.UpdatedAt = s.now()
	if next.IdentityHygiene.Matrix == nil {
		next.IdentityHygiene.Matrix = current.IdentityHygiene.Matrix
	}

	if err := s.repo.UpdateAssessment(ctx, &next, ReasonUpdated); err != nil {
		return nil, err
	}
	return &next, nil
}

// Delete removes an assessment and everything attached to it
func (s *AssessmentService) Delete(ctx context.Context, id string) error {
	return s.repo.DeleteAssessment(ctx, id)
}

func (s *AssessmentService) editable(ctx context.Context, id string) (*assessment.Assessment, error) {
	a, err := s.repo.GetAssessment(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Submitted() {
		return nil, fmt.Errorf("assessment %s: %w", id, ErrConflict)
	}
	return a, nil
}

// SubmitResult is returned by Submit
type SubmitResult struct {
	Assessment *assessment.Assessment `json:"assessment"`
	Receipt    string                 `json:"receipt"`
	Digest     string                 `json:"digest"`
}

// Submit validates and freezes an assessment, records the submitted revision
// and issues a signed receipt for it.
func (s *AssessmentService) Submit(ctx context.Context, id string) (*SubmitResult, error) {
	a, err := s.repo.GetAssessment(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := a.Submit(now); err != nil {
		if err == assessment.ErrAlreadySubmitted {
			return nil, fmt.Errorf("assessment %s: %w", id, ErrConflict)
		}
		return nil, err
	}
	a.Revision++

	if err := s.repo.UpdateAssessment(ctx, a, ReasonSubmitted); err != nil {
		return nil, err
	}

	doc, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("failed to encode assessment: %w", err)
	}
	digest := Digest(doc)

	receipt, err := s.receipts.Issue(a.ID, a.Revision, digest, now)
	if err != nil {
		return nil, err
	}

	slog.Info("Assessment submitted", "assessment_id", a.ID, "revision", a.Revision)
	return &SubmitResult{Assessment: a, Receipt: receipt, Digest: digest}, nil
}

// VerifyReceipt checks a receipt's signature and whether the signed revision
// is still stored with the same digest.
func (s *AssessmentService) VerifyReceipt(ctx context.Context, receipt string) (*ReceiptClaims, bool, error) {
	claims, err := s.receipts.Verify(receipt)
	if err != nil {
		return nil, false, err
	}

	rev, err := s.repo.GetRevision(ctx, claims.AssessmentID, claims.Revision)
	if errors.Is(err, ErrNotFound) {
		return claims, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return claims, rev.Digest == claims.Digest, nil
}

// Revisions lists the stored revisions of an assessment
func (s *AssessmentService) Revisions(ctx context.Context, id string) ([]Revision, error) {
	if _, err := s.repo.GetAssessment(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListRevisions(ctx, id)
}

// DiffResult is a textual comparison of two revisions
type DiffResult struct {
	From      int    `json:"from"`
	To        int    `json:"to"`
	Patch     string `json:"patch"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// Diff compares the indented JSON of two revisions line by line and returns
// a patch in diff-match-patch text form.
func (s *AssessmentService) Diff(ctx context.Context, id string, from, to int) (*DiffResult, error) {
	a, err := s.repo.GetRevision(ctx, id, from)
	if err != nil {
		return nil, err
	}
	b, err := s.repo.GetRevision(ctx, id, to)
	if err != nil {
		return nil, err
	}

	before, err := indentJSON(a.Document)
	if err != nil {
		return nil, err
	}
	after, err := indentJSON(b.Document)
	if err != nil {
		return nil, err
	}

	return diffDocuments(before, after, from, to), nil
}

func indentJSON(doc string) (string, error) {
	var v interface{}
	if err := json.Unmarshal([]byte(doc), &v); err != nil {
		return "", fmt.Errorf("failed to decode revision: %w", err)
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out) + "\n", nil
}

func diffDocuments(before, after string, from, to int) *DiffResult {
	dmp := diffmatchpatch.New()

	beforeChars, afterChars, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(beforeChars, afterChars, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	result := &DiffResult{From: from, To: to}
	for _, d := range diffs {
		n := strings.Count(d.Text, "\n")
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			result.Additions += n
		case diffmatchpatch.DiffDelete:
			result.Deletions += n
		}
	}

	result.Patch = dmp.PatchToText(dmp.PatchMake(before, diffs))
	return result
}

// Review builds the review screen for an assessment
func (s *AssessmentService) Review(ctx context.Context, id string) (*assessment.ReviewModel, error) {
	a, err := s.repo.GetAssessment(ctx, id)
	if err != nil {
		return nil, err
	}
	devices, err := s.repo.ListDevices(ctx, id)
	if err != nil {
		return nil, err
	}
	identities, err := s.repo.ListIdentities(ctx, id)
	if err != nil {
		return nil, err
	}

	model := assessment.Review(a, devices, identities, s.now())
	return &model, nil
}

// SaveDevices scores and stores devices. Scores are recomputed from the
// device type and tags (or taken from Wazuh); manual overrides are kept.
func (s *AssessmentService) SaveDevices(ctx context.Context, id string, devices []devicerisk.Device) ([]devicerisk.Device, error) {
	a, err := s.editable(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	for i := range devices {
		if devices[i].ID == "" {
			devices[i].ID = uuid.New().String()
		}
		source := devicerisk.ScoreDevice(ctx, s.wazuh, &devices[i], a.Devices.OrgRiskTags)
		devices[i].UpdatedAt = now
		if s.observer != nil {
			s.observer.ObserveDeviceScore(string(devices[i].EffectiveLevel()), source)
		}
		slog.Debug("Device scored", "device_id", devices[i].ID, "source", source, "score", devices[i].RiskScore)
	}

	if err := s.repo.UpsertDevices(ctx, id, devices); err != nil {
		return nil, err
	}
	return devices, nil
}

// Device loads one device
func (s *AssessmentService) Device(ctx context.Context, id, deviceID string) (*devicerisk.Device, error) {
	return s.repo.GetDevice(ctx, id, deviceID)
}

// Devices lists an assessment's devices
func (s *AssessmentService) Devices(ctx context.Context, id string) ([]devicerisk.Device, error) {
	if _, err := s.repo.GetAssessment(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListDevices(ctx, id)
}

// DeleteDevice removes a device from a draft
func (s *AssessmentService) DeleteDevice(ctx context.Context, id, deviceID string) error {
	if _, err := s.editable(ctx, id); err != nil {
		return err
	}
	return s.repo.DeleteDevice(ctx, id, deviceID)
}

// SaveIdentities stores identities, assigning ids and UWA labels to those
// without one. Identities without components take the ones the assessment's
// matrix selects for their category.
func (s *AssessmentService) SaveIdentities(ctx context.Context, id string, identities []identity.Identity) ([]identity.Identity, error) {
	a, err := s.editable(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	for i := range identities {
		if identities[i].ID == "" {
			identities[i].ID = uuid.New().String()
		}
		if len(identities[i].Components) == 0 && a.IdentityHygiene.Matrix != nil {
			identities[i].ApplyMatrix(a.IdentityHygiene.Matrix)
		}
		if identities[i].UWA == "" {
			identities[i].AssignUWA(now)
		}
		identities[i].UpdatedAt = now
	}

	if err := s.repo.UpsertIdentities(ctx, id, identities); err != nil {
		return nil, err
	}
	return identities, nil
}

// Identities lists an assessment's identities
func (s *AssessmentService) Identities(ctx context.Context, id string) ([]identity.Identity, error) {
	if _, err := s.repo.GetAssessment(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListIdentities(ctx, id)
}

// DeleteIdentity removes an identity from a draft
func (s *AssessmentService) DeleteIdentity(ctx context.Context, id, identityID string) error {
	if _, err := s.editable(ctx, id); err != nil {
		return err
	}
	return s.repo.DeleteIdentity(ctx, id, identityID)
}

// PurgeStaleDrafts deletes drafts not updated within retention
func (s *AssessmentService) PurgeStaleDrafts(ctx context.Context, retention time.Duration) (int, error) {
	n, err := s.repo.PurgeDrafts(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.Info("Purged stale draft assessments", "count", n, "retention", retention)
	}
	return n, nil
}

// StartRetentionWorker purges stale drafts every interval until ctx ends
func (s *AssessmentService) StartRetentionWorker(ctx context.Context, interval, retention time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.PurgeStaleDrafts(ctx, retention); err != nil {
					slog.Error("Draft retention sweep failed", "error", err)
				}
			}
		}
	}()
}
