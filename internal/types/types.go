// Package types holds the request and response bodies of the HTTP API that
// are not domain records themselves.
package types

import (
	"time"

	"github.com/ZanzyTHEbar/sos2a-intake/internal/heatmap"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/identity"
)

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// HeatmapDefaultsResponse pairs the seeded register with its summary
type HeatmapDefaultsResponse struct {
	Data    heatmap.HeatmapData `json:"data"`
	Summary heatmap.Summary     `json:"summary"`
}

// MatrixCell is one cell of the 5x5 likelihood by impact table
type MatrixCell struct {
	Impact     int               `json:"impact"`
	Likelihood int               `json:"likelihood"`
	Score      int               `json:"score"`
	Level      heatmap.RiskLevel `json:"level"`
}

// ScoreDeviceRequest is the body of POST /devices/score
type ScoreDeviceRequest struct {
	DeviceType string   `json:"device_type" binding:"required"`
	RiskTags   []string `json:"risk_tags"`
}

// ScoreDeviceResponse is the computed device score
type ScoreDeviceResponse struct {
	DeviceType string   `json:"device_type"`
	RiskTags   []string `json:"risk_tags"`
	Score      int      `json:"score"`
	Level      string   `json:"level"`
}

// UWARequest is the body of POST /uwa
type UWARequest struct {
	IdentityType string   `json:"identity_type" binding:"required"`
	Name         string   `json:"name" binding:"max=200"`
	Email        string   `json:"email" binding:"omitempty,email"`
	Components   []string `json:"components"`
}

// UWAResponse carries the generated label and its parts
type UWAResponse struct {
	Address string `json:"address"`
	Base    string `json:"base"`
	Suffix  string `json:"suffix"`
}

// IdentityMatrixResponse lists the categories and the default toggle grid
type IdentityMatrixResponse struct {
	Categories []identity.Category `json:"categories"`
	Matrix     *identity.Matrix    `json:"matrix"`
}

// ToggleMatrixRequest flips one component for one category of an
// assessment's identity matrix.
type ToggleMatrixRequest struct {
	Label    string `json:"label" binding:"required"`
	Category string `json:"category" binding:"required"`
}

// VerifyReceiptRequest is the body of POST /receipts/verify
type VerifyReceiptRequest struct {
	Receipt string `json:"receipt" binding:"required"`
}

// VerifyReceiptResponse reports what a valid receipt attests to. Matches is
// set when the stored revision still has the signed digest.
type VerifyReceiptResponse struct {
	Valid        bool      `json:"valid"`
	AssessmentID string    `json:"assessment_id"`
	Revision     int       `json:"revision"`
	Digest       string    `json:"digest"`
	IssuedAt     time.Time `json:"issued_at"`
	Matches      bool      `json:"matches"`
}

// ImportResponse summarises a CSV import
type ImportResponse struct {
	Kind     string      `json:"kind"`
	Total    int         `json:"total_rows"`
	Imported int         `json:"imported"`
	Rejected int         `json:"rejected"`
	Errors   interface{} `json:"errors,omitempty"`
	Records  interface{} `json:"records"`
}

// ListResponse wraps a list with its count
type ListResponse struct {
	Items interface{} `json:"items"`
	Count int         `json:"count"`
}
