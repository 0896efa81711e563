package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ZanzyTHEbar/sos2a-intake/internal/assessment"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/devicerisk"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/identity"
)

// Repository handles database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *Repository) insertRevision(ctx context.Context, tx *sql.Tx, rev *Revision) error {
	stmt, err := r.db.GetPreparedStatement(stmtInsertRevision)
	if err != nil {
		return err
	}
	_, err = tx.StmtContext(ctx, stmt).ExecContext(ctx,
		rev.ID, rev.AssessmentID, rev.Revision, rev.Reason, rev.Digest, rev.Document, rev.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert revision: %w", err)
	}
	return nil
}

// InsertAssessment stores a new assessment and its first revision
func (r *Repository) InsertAssessment(ctx context.Context, a *assessment.Assessment) error {
	doc, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to encode assessment: %w", err)
	}

	return r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO assessments (id, business_name, status, revision, document, created_at, updated_at, submitted_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, a.ID, a.BusinessProfile.BusinessName, string(a.Status), a.Revision, string(doc), a.CreatedAt, a.UpdatedAt, a.SubmittedAt)
		if err != nil {
			return fmt.Errorf("failed to create assessment: %w", err)
		}
		return r.insertRevision(ctx, tx, NewRevision(a.ID, a.Revision, ReasonCreated, doc, a.UpdatedAt))
	})
}

// GetAssessment loads an assessment document
func (r *Repository) GetAssessment(ctx context.Context, id string) (*assessment.Assessment, error) {
	stmt, err := r.db.GetPreparedStatement(stmtGetAssessment)
	if err != nil {
		return nil, err
	}

	var doc string
	err = stmt.QueryRowContext(ctx, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("assessment %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query assessment: %w", err)
	}

	var a assessment.Assessment
	if err := json.Unmarshal([]byte(doc), &a); err != nil {
		return nil, fmt.Errorf("failed to decode assessment %s: %w", id, err)
	}
	return &a, nil
}

// UpdateAssessment overwrites the document and records a revision. The
// caller sets a.Revision to the new revision number; the write only lands
// when the stored revision is the one before it, otherwise ErrConflict.
func (r *Repository) UpdateAssessment(ctx context.Context, a *assessment.Assessment, reason string) error {
	doc, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to encode assessment: %w", err)
	}

	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE assessments
			SET business_name = ?, status = ?, revision = ?, document = ?, updated_at = ?, submitted_at = ?
			WHERE id = ? AND revision = ?
		`, a.BusinessProfile.BusinessName, string(a.Status), a.Revision, string(doc), a.UpdatedAt, a.SubmittedAt,
			a.ID, a.Revision-1)
		if err != nil {
			return fmt.Errorf("failed to update assessment: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			var exists int
			err := tx.QueryRowContext(ctx, `SELECT 1 FROM assessments WHERE id = ?`, a.ID).Scan(&exists)
			switch {
			case errors.Is(err, sql.ErrNoRows):
				return fmt.Errorf("assessment %s: %w", a.ID, ErrNotFound)
			case err != nil:
				return fmt.Errorf("failed to check assessment: %w", err)
			}
			return fmt.Errorf("assessment %s changed since revision %d: %w", a.ID, a.Revision-1, ErrConflict)
		}
		return r.insertRevision(ctx, tx, NewRevision(a.ID, a.Revision, reason, doc, a.UpdatedAt))
	})
}

// DeleteAssessment removes an assessment with its revisions, devices and identities
func (r *Repository) DeleteAssessment(ctx context.Context, id string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		for _, q := range []string{
			`DELETE FROM assessment_revisions WHERE assessment_id = ?`,
			`DELETE FROM devices WHERE assessment_id = ?`,
			`DELETE FROM identities WHERE assessment_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return fmt.Errorf("failed to delete assessment data: %w", err)
			}
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM assessments WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete assessment: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("assessment %s: %w", id, ErrNotFound)
		}
		return nil
	})
}

// ListAssessments returns summaries, newest first
func (r *Repository) ListAssessments(ctx context.Context, filter ListFilter) ([]AssessmentSummary, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}

	query := `SELECT id, business_name, status, revision, created_at, updated_at, submitted_at FROM assessments`
	args := []interface{}{}
	if filter.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY updated_at DESC LIMIT ? OFFSET ?`
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}
	defer rows.Close()

	out := []AssessmentSummary{}
	for rows.Next() {
		var s AssessmentSummary
		var submitted sql.NullTime
		if err := rows.Scan(&s.ID, &s.BusinessName, &s.Status, &s.Revision, &s.CreatedAt, &s.UpdatedAt, &submitted); err != nil {
			return nil, fmt.Errorf("failed to scan assessment: %w", err)
		}
		if submitted.Valid {
			t := submitted.Time
			s.SubmittedAt = &t
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListRevisions returns revision metadata in ascending order
func (r *Repository) ListRevisions(ctx context.Context, assessmentID string) ([]Revision, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, assessment_id, revision, reason, digest, created_at
		FROM assessment_revisions WHERE assessment_id = ? ORDER BY revision ASC
	`, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list revisions: %w", err)
	}
	defer rows.Close()

	out := []Revision{}
	for rows.Next() {
		var rev Revision
		if err := rows.Scan(&rev.ID, &rev.AssessmentID, &rev.Revision, &rev.Reason, &rev.Digest, &rev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan revision: %w", err)
		}
		out = append(out, rev)
	}
	return out, rows.Err()
}

// GetRevision loads one revision including its document
func (r *Repository) GetRevision(ctx context.Context, assessmentID string, revision int) (*Revision, error) {
	var rev Revision
	err := r.db.QueryRowContext(ctx, `
		SELECT id, assessment_id, revision, reason, digest, document, created_at
		FROM assessment_revisions WHERE assessment_id = ? AND revision = ?
	`, assessmentID, revision).Scan(&rev.ID, &rev.AssessmentID, &rev.Revision, &rev.Reason, &rev.Digest, &rev.Document, &rev.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("revision %d of %s: %w", revision, assessmentID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query revision: %w", err)
	}
	return &rev, nil
}

// UpsertDevices inserts or replaces devices in one transaction
func (r *Repository) UpsertDevices(ctx context.Context, assessmentID string, devices []devicerisk.Device) error {
	stmt, err := r.db.GetPreparedStatement(stmtUpsertDevice)
	if err != nil {
		return err
	}

	return r.withTx(ctx, func(tx *sql.Tx) error {
		txStmt := tx.StmtContext(ctx, stmt)
		for i := range devices {
			d := &devices[i]
			d.AssessmentID = assessmentID
			doc, err := json.Marshal(d)
			if err != nil {
				return fmt.Errorf("failed to encode device %s: %w", d.ID, err)
			}
			if _, err := txStmt.ExecContext(ctx, assessmentID, d.ID, d.Type, d.Owner, d.EffectiveScore(), string(doc), d.UpdatedAt); err != nil {
				return fmt.Errorf("failed to store device %s: %w", d.ID, err)
			}
		}
		return nil
	})
}

// GetDevice loads one device
func (r *Repository) GetDevice(ctx context.Context, assessmentID, deviceID string) (*devicerisk.Device, error) {
	var doc string
	err := r.db.QueryRowContext(ctx,
		`SELECT document FROM devices WHERE assessment_id = ? AND id = ?`, assessmentID, deviceID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("device %s: %w", deviceID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query device: %w", err)
	}

	var d devicerisk.Device
	if err := json.Unmarshal([]byte(doc), &d); err != nil {
		return nil, fmt.Errorf("failed to decode device %s: %w", deviceID, err)
	}
	return &d, nil
}

// ListDevices returns an assessment's devices ordered by id
func (r *Repository) ListDevices(ctx context.Context, assessmentID string) ([]devicerisk.Device, error) {
	return listDocuments[devicerisk.Device](ctx, r.db,
		`SELECT document FROM devices WHERE assessment_id = ? ORDER BY id`, assessmentID)
}

// DeleteDevice removes one device
func (r *Repository) DeleteDevice(ctx context.Context, assessmentID, deviceID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM devices WHERE assessment_id = ? AND id = ?`, assessmentID, deviceID)
	if err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("device %s: %w", deviceID, ErrNotFound)
	}
	return nil
}

// UpsertIdentities inserts or replaces identities in one transaction
func (r *Repository) UpsertIdentities(ctx context.Context, assessmentID string, identities []identity.Identity) error {
	stmt, err := r.db.GetPreparedStatement(stmtUpsertIdentity)
	if err != nil {
		return err
	}

	return r.withTx(ctx, func(tx *sql.Tx) error {
		txStmt := tx.StmtContext(ctx, stmt)
		for i := range identities {
			id := &identities[i]
			id.AssessmentID = assessmentID
			doc, err := json.Marshal(id)
			if err != nil {
				return fmt.Errorf("failed to encode identity %s: %w", id.ID, err)
			}
			if _, err := txStmt.ExecContext(ctx, assessmentID, id.ID, string(id.Type), id.Email, id.UWA, string(doc), id.UpdatedAt); err != nil {
				return fmt.Errorf("failed to store identity %s: %w", id.ID, err)
			}
		}
		return nil
	})
}

// ListIdentities returns an assessment's identities ordered by id
func (r *Repository) ListIdentities(ctx context.Context, assessmentID string) ([]identity.Identity, error) {
	return listDocuments[identity.Identity](ctx, r.db,
		`SELECT document FROM identities WHERE assessment_id = ? ORDER BY id`, assessmentID)
}

// DeleteIdentity removes one identity
func (r *Repository) DeleteIdentity(ctx context.Context, assessmentID, identityID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM identities WHERE assessment_id = ? AND id = ?`, assessmentID, identityID)
	if err != nil {
		return fmt.Errorf("failed to delete identity: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("identity %s: %w", identityID, ErrNotFound)
	}
	return nil
}

// PurgeDrafts deletes draft assessments untouched since before
func (r *Repository) PurgeDrafts(ctx context.Context, before time.Time) (int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM assessments WHERE status = ? AND updated_at < ?`, string(assessment.StatusDraft), before)
	if err != nil {
		return 0, fmt.Errorf("failed to find stale drafts: %w", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan draft id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, id := range ids {
		if err := r.DeleteAssessment(ctx, id); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

func listDocuments[T any](ctx context.Context, db *DB, query string, args ...interface{}) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		var v T
		if err := json.Unmarshal([]byte(doc), &v); err != nil {
			return nil, fmt.Errorf("failed to decode document: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
