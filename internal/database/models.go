package database

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/ZanzyTHEbar/sos2a-intake/internal/errors"
)

// Sentinel errors, shared with the HTTP error mapper
var (
	ErrNotFound = apperrors.ErrNotFound
	ErrConflict = apperrors.ErrConflict
)

// Revision reasons
const (
	ReasonCreated   = "created"
	ReasonUpdated   = "updated"
	ReasonSubmitted = "submitted"
)

// AssessmentSummary is one row of the assessment list
type AssessmentSummary struct {
	ID           string     `json:"id" db:"id"`
	BusinessName string     `json:"business_name" db:"business_name"`
	Status       string     `json:"status" db:"status"`
	Revision     int        `json:"revision" db:"revision"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
	SubmittedAt  *time.Time `json:"submitted_at,omitempty" db:"submitted_at"`
}

// Revision is a stored snapshot of an assessment document
type Revision struct {
	ID           string    `json:"id" db:"id"`
	AssessmentID string    `json:"assessment_id" db:"assessment_id"`
	Revision     int       `json:"revision" db:"revision"`
	Reason       string    `json:"reason" db:"reason"`
	Digest       string    `json:"digest" db:"digest"`
	Document     string    `json:"-" db:"document"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// NewRevision snapshots a JSON document
func NewRevision(assessmentID string, revision int, reason string, document []byte, now time.Time) *Revision {
	return &Revision{
		ID:           uuid.New().String(),
		AssessmentID: assessmentID,
		Revision:     revision,
		Reason:       reason,
		Digest:       Digest(document),
		Document:     string(document),
		CreatedAt:    now,
	}
}

// Digest is the hex sha256 of a document
func Digest(document []byte) string {
	sum := sha256.Sum256(document)
	return hex.EncodeToString(sum[:])
}

// ListFilter narrows ListAssessments
type ListFilter struct {
	Status string
	Limit  int
	Offset int
}
