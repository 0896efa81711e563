package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/sos2a-intake/internal/assessment"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/database"
	apperrors "github.com/ZanzyTHEbar/sos2a-intake/internal/errors"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/identity"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/report"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/security"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/types"
)

const maxNotesLength = 10000

// sanitizeAssessment strips markup from the free-text fields a report may
// echo back.
func sanitizeAssessment(a *assessment.Assessment) error {
	a.BusinessProfile.BusinessName = security.SanitizeText(a.BusinessProfile.BusinessName)
	if err := security.ValidateText("review.notes", a.Review.Notes, maxNotesLength); err != nil {
		return err
	}
	a.Review.Notes = security.SanitizeText(a.Review.Notes)
	return nil
}

// decodeAssessment reads a draft from the body without enforcing the submit
// rules; drafts may be incomplete. An empty body yields nil.
func decodeAssessment(c *gin.Context) (*assessment.Assessment, bool) {
	body, err := c.GetRawData()
	if err != nil {
		fail(c, apperrors.NewValidationError("failed to read request body", err.Error()))
		return nil, false
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, true
	}

	var a assessment.Assessment
	if err := json.Unmarshal(body, &a); err != nil {
		fail(c, apperrors.NewValidationError("invalid request body", err.Error()))
		return nil, false
	}
	if err := sanitizeAssessment(&a); err != nil {
		fail(c, apperrors.NewValidationError(err.Error()))
		return nil, false
	}
	return &a, true
}

// createAssessment godoc
// @Summary Create a draft assessment
// @Description An empty body starts from the seeded risk register.
// @Tags assessments
// @Accept json
// @Produce json
// @Success 201 {object} assessment.Assessment
// @Router /assessments [post]
func (s *server) createAssessment(c *gin.Context) {
	input, ok := decodeAssessment(c)
	if !ok {
		return
	}

	a, err := s.svc.Create(c.Request.Context(), input)
	if err != nil {
		fail(c, err)
		return
	}

	s.metrics.IncrementAssessmentCreated()
	s.prom.AssessmentEvent("created")
	c.JSON(http.StatusCreated, a)
}

// listAssessments godoc
// @Summary List assessments
// @Tags assessments
// @Produce json
// @Param status query string false "draft or submitted"
// @Param limit query int false "page size"
// @Param offset query int false "offset"
// @Success 200 {object} types.ListResponse
// @Router /assessments [get]
func (s *server) listAssessments(c *gin.Context) {
	filter := database.ListFilter{Status: c.Query("status"), Limit: 50}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			fail(c, apperrors.NewValidationError("limit must be between 1 and 500", v))
			return
		}
		filter.Limit = n
	}
	if v := c.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			fail(c, apperrors.NewValidationError("offset must be a non-negative integer", v))
			return
		}
		filter.Offset = n
	}

	items, err := s.svc.List(c.Request.Context(), filter)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, types.ListResponse{Items: items, Count: len(items)})
}

func (s *server) getAssessment(c *gin.Context) {
	a, err := s.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *server) updateAssessment(c *gin.Context) {
	input, ok := decodeAssessment(c)
	if !ok {
		return
	}
	if input == nil {
		fail(c, apperrors.NewValidationError("request body is required"))
		return
	}

	a, err := s.svc.Update(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		fail(c, err)
		return
	}

	s.prom.AssessmentEvent("updated")
	c.JSON(http.StatusOK, a)
}

func (s *server) deleteAssessment(c *gin.Context) {
	if err := s.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	s.prom.AssessmentEvent("deleted")
	c.Status(http.StatusNoContent)
}

func (s *server) reviewAssessment(c *gin.Context) {
	model, err := s.svc.Review(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, model)
}

// assessmentReport godoc
// @Summary Render the review report
// @Tags assessments
// @Produce json,text/markdown,text/plain,application/pdf
// @Param id path string true "Assessment id"
// @Param format query string false "terminal, json, md or pdf"
// @Router /assessments/{id}/report [get]
func (s *server) assessmentReport(c *gin.Context) {
	model, err := s.svc.Review(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	renderReport(c, report.FromReview(*model, s.now()), c.DefaultQuery("format", "json"))
}

// submitAssessment godoc
// @Summary Validate, freeze and sign an assessment
// @Tags assessments
// @Produce json
// @Param id path string true "Assessment id"
// @Success 200 {object} database.SubmitResult
// @Failure 400 {object} apperrors.ErrorResponse
// @Failure 409 {object} apperrors.ErrorResponse
// @Router /assessments/{id}/submit [post]
func (s *server) submitAssessment(c *gin.Context) {
	result, err := s.svc.Submit(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	s.metrics.IncrementAssessmentSubmitted()
	s.prom.AssessmentEvent("submitted")
	c.JSON(http.StatusOK, result)
}

func (s *server) listRevisions(c *gin.Context) {
	revs, err := s.svc.Revisions(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, types.ListResponse{Items: revs, Count: len(revs)})
}

// diffRevisions compares two revisions; to defaults to the latest and from
// to the one before it.
func (s *server) diffRevisions(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	a, err := s.svc.Get(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}

	to, ok := revisionParam(c, "to", a.Revision)
	if !ok {
		return
	}
	from, ok := revisionParam(c, "from", to-1)
	if !ok {
		return
	}
	if from < 1 || from >= to {
		fail(c, apperrors.NewValidationError("from must be at least 1 and lower than to"))
		return
	}

	diff, err := s.svc.Diff(ctx, id, from, to)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, diff)
}

func revisionParam(c *gin.Context, name string, def int) (int, bool) {
	v := c.Query(name)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		fail(c, apperrors.NewValidationError(name+" must be a revision number", v))
		return 0, false
	}
	return n, true
}

// toggleIdentityMatrix flips one component of the assessment's identity
// matrix and stores the result as a new revision.
func (s *server) toggleIdentityMatrix(c *gin.Context) {
	var req types.ToggleMatrixRequest
	if !bindJSON(c, &req) {
		return
	}
	category, err := identity.ParseCategory(req.Category)
	if err != nil {
		fail(c, apperrors.NewValidationError("invalid category", err.Error()))
		return
	}

	ctx := c.Request.Context()
	a, err := s.svc.Get(ctx, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if a.IdentityHygiene.Matrix == nil {
		a.IdentityHygiene.Matrix = identity.DefaultMatrix()
	}

	selected, err := a.IdentityHygiene.Matrix.Toggle(req.Label, category)
	if err != nil {
		fail(c, apperrors.NewValidationError("invalid matrix label", err.Error()))
		return
	}

	updated, err := s.svc.Update(ctx, a.ID, a)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"label":    req.Label,
		"category": category,
		"selected": selected,
		"matrix":   updated.IdentityHygiene.Matrix,
		"revision": updated.Revision,
	})
}
