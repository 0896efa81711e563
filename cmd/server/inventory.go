package main

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/sos2a-intake/internal/csvio"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/devicerisk"
	apperrors "github.com/ZanzyTHEbar/sos2a-intake/internal/errors"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/identity"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/types"
)

// csvUpload returns the uploaded CSV: the "file" part of a multipart form,
// or the raw body otherwise.
func csvUpload(c *gin.Context) (io.ReadCloser, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, apperrors.NewValidationError("multipart upload needs a file field", err.Error())
		}
		return fh.Open()
	}
	return c.Request.Body, nil
}

func (s *server) recordImport(kind, assessmentID string, total, imported, rejected int) {
	s.metrics.RecordImport(imported, rejected)
	s.prom.ObserveImport(kind, imported, rejected)
	s.logger.ImportLogger(kind, assessmentID, total, imported, rejected)
}

// importDevices godoc
// @Summary Import devices from CSV
// @Description Rows that fail to parse are reported and the rest are stored.
// @Tags devices
// @Accept multipart/form-data,text/csv
// @Produce json
// @Param id path string true "Assessment id"
// @Param file formData file false "CSV file"
// @Success 200 {object} types.ImportResponse
// @Failure 400 {object} apperrors.ErrorResponse
// @Router /assessments/{id}/devices/import [post]
func (s *server) importDevices(c *gin.Context) {
	id := c.Param("id")
	body, err := csvUpload(c)
	if err != nil {
		fail(c, err)
		return
	}
	defer body.Close()

	result, err := csvio.ImportDevices(body)
	if err != nil {
		fail(c, err)
		return
	}

	saved := result.Records
	if len(saved) > 0 {
		if saved, err = s.svc.SaveDevices(c.Request.Context(), id, saved); err != nil {
			fail(c, err)
			return
		}
		s.metrics.AddDevicesScored(len(saved))
	}

	s.recordImport("devices", id, result.Total, len(saved), len(result.Errors))
	c.JSON(http.StatusOK, types.ImportResponse{
		Kind:     "devices",
		Total:    result.Total,
		Imported: len(saved),
		Rejected: len(result.Errors),
		Errors:   result.Errors,
		Records:  saved,
	})
}

func (s *server) exportDevices(c *gin.Context) {
	devices, err := s.svc.Devices(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	var buf bytes.Buffer
	if err := csvio.ExportDevices(&buf, devices); err != nil {
		fail(c, apperrors.NewInternalError("failed to export devices", err))
		return
	}
	sendCSV(c, "devices-"+c.Param("id")+".csv", buf.Bytes())
}

func (s *server) createDevice(c *gin.Context) {
	var d devicerisk.Device
	if !bindJSON(c, &d) {
		return
	}

	saved, err := s.svc.SaveDevices(c.Request.Context(), c.Param("id"), []devicerisk.Device{d})
	if err != nil {
		fail(c, err)
		return
	}
	s.metrics.AddDevicesScored(1)
	c.JSON(http.StatusCreated, saved[0])
}

func (s *server) listDevices(c *gin.Context) {
	devices, err := s.svc.Devices(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items":        devices,
		"count":        len(devices),
		"distribution": devicerisk.Distribution(devices),
	})
}

func (s *server) getDevice(c *gin.Context) {
	d, err := s.svc.Device(c.Request.Context(), c.Param("id"), c.Param("deviceID"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// updateDevice replaces a stored device; the path id wins over the body
func (s *server) updateDevice(c *gin.Context) {
	ctx := c.Request.Context()
	id, deviceID := c.Param("id"), c.Param("deviceID")

	if _, err := s.svc.Device(ctx, id, deviceID); err != nil {
		fail(c, err)
		return
	}

	var d devicerisk.Device
	if !bindJSON(c, &d) {
		return
	}
	d.ID = deviceID

	saved, err := s.svc.SaveDevices(ctx, id, []devicerisk.Device{d})
	if err != nil {
		fail(c, err)
		return
	}
	s.metrics.AddDevicesScored(1)
	c.JSON(http.StatusOK, saved[0])
}

func (s *server) deleteDevice(c *gin.Context) {
	if err := s.svc.DeleteDevice(c.Request.Context(), c.Param("id"), c.Param("deviceID")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *server) importIdentities(c *gin.Context) {
	id := c.Param("id")
	body, err := csvUpload(c)
	if err != nil {
		fail(c, err)
		return
	}
	defer body.Close()

	result, err := csvio.ImportIdentities(body)
	if err != nil {
		fail(c, err)
		return
	}

	saved := result.Records
	if len(saved) > 0 {
		if saved, err = s.svc.SaveIdentities(c.Request.Context(), id, saved); err != nil {
			fail(c, err)
			return
		}
	}

	s.recordImport("identities", id, result.Total, len(saved), len(result.Errors))
	c.JSON(http.StatusOK, types.ImportResponse{
		Kind:     "identities",
		Total:    result.Total,
		Imported: len(saved),
		Rejected: len(result.Errors),
		Errors:   result.Errors,
		Records:  saved,
	})
}

func (s *server) exportIdentities(c *gin.Context) {
	identities, err := s.svc.Identities(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	var buf bytes.Buffer
	if err := csvio.ExportIdentities(&buf, identities); err != nil {
		fail(c, apperrors.NewInternalError("failed to export identities", err))
		return
	}
	sendCSV(c, "identities-"+c.Param("id")+".csv", buf.Bytes())
}

func (s *server) createIdentity(c *gin.Context) {
	var ident identity.Identity
	if !bindJSON(c, &ident) {
		return
	}
	category, err := identity.ParseCategory(string(ident.Type))
	if err != nil {
		fail(c, apperrors.NewValidationError("invalid identity type", err.Error()))
		return
	}
	ident.Type = category
	ident.ID = ""

	saved, err := s.svc.SaveIdentities(c.Request.Context(), c.Param("id"), []identity.Identity{ident})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, saved[0])
}

// listIdentities includes the hygiene findings for the listed identities
func (s *server) listIdentities(c *gin.Context) {
	identities, err := s.svc.Identities(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items":    identities,
		"count":    len(identities),
		"findings": identity.Hygiene(identities, s.now()),
	})
}

func (s *server) updateIdentity(c *gin.Context) {
	var ident identity.Identity
	if !bindJSON(c, &ident) {
		return
	}
	category, err := identity.ParseCategory(string(ident.Type))
	if err != nil {
		fail(c, apperrors.NewValidationError("invalid identity type", err.Error()))
		return
	}
	ident.Type = category
	ident.ID = c.Param("identityID")

	ctx := c.Request.Context()
	existing, err := s.svc.Identities(ctx, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	found := false
	for _, e := range existing {
		if e.ID == ident.ID {
			found = true
			break
		}
	}
	if !found {
		fail(c, apperrors.NewNotFoundError("identity", ident.ID))
		return
	}

	saved, err := s.svc.SaveIdentities(ctx, c.Param("id"), []identity.Identity{ident})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, saved[0])
}

func (s *server) deleteIdentity(c *gin.Context) {
	if err := s.svc.DeleteIdentity(c.Request.Context(), c.Param("id"), c.Param("identityID")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
