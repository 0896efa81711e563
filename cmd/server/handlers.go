package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/sos2a-intake/internal/assessment"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/csvio"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/database"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/devicerisk"
	apperrors "github.com/ZanzyTHEbar/sos2a-intake/internal/errors"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/heatmap"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/identity"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/report"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/types"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/uwa"
)

// fail attaches err to the context for the error middleware, converting
// domain validation errors on the way.
func fail(c *gin.Context, err error) {
	var fields assessment.FieldErrors
	switch {
	case errors.As(err, &fields):
		err = apperrors.NewValidationErrorWithMap(fields)
	case errors.Is(err, csvio.ErrMissingHeaders):
		err = apperrors.NewValidationError("CSV header row is incomplete", err.Error())
	}
	_ = c.Error(err)
	c.Abort()
}

// bindJSON decodes the body into v and reports binding failures as
// validation errors.
func bindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		fail(c, apperrors.NewValidationError("invalid request body", err.Error()))
		return false
	}
	return true
}

func renderReport(c *gin.Context, rep *report.Report, format string) {
	renderer := report.Get(format)
	out, err := renderer.Render(rep)
	if err != nil {
		fail(c, apperrors.NewInternalError("failed to render report", err))
		return
	}
	if strings.EqualFold(format, "pdf") {
		c.Header("Content-Disposition", `attachment; filename="sos2a-report.pdf"`)
	}
	c.Data(http.StatusOK, renderer.ContentType(), out)
}

// health godoc
// @Summary Service health
// @Tags system
// @Produce json
// @Success 200 {object} types.HealthResponse
// @Failure 503 {object} types.HealthResponse
// @Router /health [get]
func (s *server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := types.HealthResponse{
		Status:    "ok",
		Service:   serviceName,
		Version:   serviceVersion,
		Timestamp: s.now(),
		Checks:    map[string]string{"database": "ok", "wazuh": "disabled"},
	}

	if err := s.db.PingContext(ctx); err != nil {
		resp.Status = "degraded"
		resp.Checks["database"] = err.Error()
	}
	if s.wazuh.Enabled() {
		resp.Checks["wazuh"] = fmt.Sprint(s.wazuh.BreakerStats()["state"])
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

func (s *server) metricsStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"app":         s.metrics.GetStats(),
		"cache":       s.cache.Stats(),
		"compression": s.compression.GetStats(),
		"rate_limit":  s.limiter.GetStats(),
		"database":    s.db.GetPoolStats(),
		"wazuh":       s.wazuh.BreakerStats(),
	})
}

// calculateHeatmap godoc
// @Summary Score a risk register
// @Tags heatmap
// @Accept json
// @Produce json
// @Param data body heatmap.HeatmapData true "Risk register"
// @Success 200 {object} heatmap.Summary
// @Failure 400 {object} apperrors.ErrorResponse
// @Router /heatmap/calculate [post]
func (s *server) calculateHeatmap(c *gin.Context) {
	var data heatmap.HeatmapData
	if !bindJSON(c, &data) {
		return
	}

	start := time.Now()
	summary := heatmap.Calculate(data)

	s.metrics.IncrementHeatmapCalculation()
	s.prom.ObserveHeatmap(summary.CBFScore, false)
	s.logger.ScoringLogger(len(data.Items), summary.TotalALE, summary.CBFScore, summary.Warnings, time.Since(start), false)

	c.JSON(http.StatusOK, summary)
}

func (s *server) heatmapDefaults(c *gin.Context) {
	data := heatmap.DefaultData()
	c.JSON(http.StatusOK, types.HeatmapDefaultsResponse{
		Data:    data,
		Summary: heatmap.Calculate(data),
	})
}

func (s *server) heatmapMatrix(c *gin.Context) {
	matrix := heatmap.Matrix()
	cells := make([]types.MatrixCell, 0, len(matrix)*len(matrix[0]))
	for i := range matrix {
		for l := range matrix[i] {
			cells = append(cells, types.MatrixCell{
				Impact:     i + 1,
				Likelihood: l + 1,
				Score:      heatmap.RiskScore(i+1, l+1),
				Level:      matrix[i][l],
			})
		}
	}
	c.JSON(http.StatusOK, gin.H{"cells": cells})
}

// heatmapReport renders the seeded register in any report format
func (s *server) heatmapReport(c *gin.Context) {
	format := c.DefaultQuery("format", "json")
	renderReport(c, report.FromHeatmap(heatmap.DefaultData(), s.now()), format)
}

// scoreDevice godoc
// @Summary Score a device type and risk tags
// @Tags devices
// @Accept json
// @Produce json
// @Param request body types.ScoreDeviceRequest true "Device"
// @Success 200 {object} types.ScoreDeviceResponse
// @Router /devices/score [post]
func (s *server) scoreDevice(c *gin.Context) {
	var req types.ScoreDeviceRequest
	if !bindJSON(c, &req) {
		return
	}

	score := devicerisk.CalculateDeviceRiskScore(req.RiskTags, req.DeviceType)
	level := devicerisk.RiskLevelFromScore(score)
	s.prom.ObserveDeviceScore(string(level), "computed")

	c.JSON(http.StatusOK, types.ScoreDeviceResponse{
		DeviceType: devicerisk.NormalizeDeviceType(req.DeviceType),
		RiskTags:   devicerisk.NormalizeTags(req.RiskTags),
		Score:      score,
		Level:      string(level),
	})
}

func (s *server) deviceTaxonomy(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"device_types": devicerisk.DeviceTypes(),
		"risk_tags":    devicerisk.KnownTags(),
	})
}

// generateUWA godoc
// @Summary Generate a UWA label
// @Tags identities
// @Accept json
// @Produce json
// @Param request body types.UWARequest true "Identity"
// @Success 200 {object} types.UWAResponse
// @Router /uwa [post]
func (s *server) generateUWA(c *gin.Context) {
	var req types.UWARequest
	if !bindJSON(c, &req) {
		return
	}
	if _, err := identity.ParseCategory(req.IdentityType); err != nil {
		fail(c, apperrors.NewValidationError("invalid identity_type", err.Error()))
		return
	}

	addr := uwa.Generate(uwa.Input{
		IdentityType: req.IdentityType,
		Name:         req.Name,
		Email:        req.Email,
		Components:   req.Components,
	}, s.now())

	c.JSON(http.StatusOK, types.UWAResponse{
		Address: addr.String(),
		Base:    addr.Base,
		Suffix:  addr.Suffix,
	})
}

func (s *server) identityMatrix(c *gin.Context) {
	c.JSON(http.StatusOK, types.IdentityMatrixResponse{
		Categories: identity.Categories,
		Matrix:     identity.DefaultMatrix(),
	})
}

func (s *server) deviceTemplate(c *gin.Context) {
	var buf bytes.Buffer
	if err := csvio.WriteDeviceTemplate(&buf); err != nil {
		fail(c, apperrors.NewInternalError("failed to build template", err))
		return
	}
	sendCSV(c, "devices-template.csv", buf.Bytes())
}

func (s *server) identityTemplate(c *gin.Context) {
	var buf bytes.Buffer
	if err := csvio.WriteIdentityTemplate(&buf); err != nil {
		fail(c, apperrors.NewInternalError("failed to build template", err))
		return
	}
	sendCSV(c, "identities-template.csv", buf.Bytes())
}

func sendCSV(c *gin.Context, filename string, data []byte) {
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

func (s *server) complianceFrameworks(c *gin.Context) {
	frameworks := assessment.Frameworks()
	c.JSON(http.StatusOK, types.ListResponse{Items: frameworks, Count: len(frameworks)})
}

// verifyReceipt godoc
// @Summary Verify a submission receipt
// @Tags assessments
// @Accept json
// @Produce json
// @Param request body types.VerifyReceiptRequest true "Receipt"
// @Success 200 {object} types.VerifyReceiptResponse
// @Failure 401 {object} apperrors.ErrorResponse
// @Router /receipts/verify [post]
func (s *server) verifyReceipt(c *gin.Context) {
	var req types.VerifyReceiptRequest
	if !bindJSON(c, &req) {
		return
	}

	claims, matches, err := s.svc.VerifyReceipt(c.Request.Context(), req.Receipt)
	if err != nil {
		if errors.Is(err, database.ErrInvalidReceipt) {
			s.logger.SecurityLogger("invalid_receipt", c.ClientIP(), c.GetHeader("User-Agent"), nil)
			fail(c, apperrors.NewUnauthorizedError("invalid receipt", err))
			return
		}
		fail(c, err)
		return
	}

	resp := types.VerifyReceiptResponse{
		Valid:        true,
		AssessmentID: claims.AssessmentID,
		Revision:     claims.Revision,
		Digest:       claims.Digest,
		Matches:      matches,
	}
	if claims.IssuedAt != nil {
		resp.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	c.JSON(http.StatusOK, resp)
}
