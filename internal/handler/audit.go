package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ociswap/registry/internal/middleware"
	"github.com/ociswap/registry/internal/pkg/apperrors"
	"github.com/ociswap/registry/internal/service"
)

type AuditHandler struct {
	svc      *service.AuditService
	registry *service.RegistryService
}

func NewAuditHandler(svc *service.AuditService, registry *service.RegistryService) *AuditHandler {
	return &AuditHandler{svc: svc, registry: registry}
}

// List is owner only; ?caller= narrows the records to one signer address.
func (h *AuditHandler) List(c *gin.Context) {
	if err := h.registry.Authorize(middleware.ProofFromContext(c)); err != nil {
		c.Error(err)
		return
	}
	if h.svc == nil {
		c.Error(apperrors.New(apperrors.ErrNotFound, "audit trail disabled", nil))
		return
	}

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	var fromPtr *time.Time
	var toPtr *time.Time
	if raw := c.Query("from"); raw != "" {
		if t, err := parseTime(raw); err == nil {
			fromPtr = &t
		} else {
			c.Error(apperrors.NewInvalidRequest(err.Error()))
			return
		}
	}
	if raw := c.Query("to"); raw != "" {
		if t, err := parseTime(raw); err == nil {
			toPtr = &t
		} else {
			c.Error(apperrors.NewInvalidRequest(err.Error()))
			return
		}
	}

	records, err := h.svc.List(c.Request.Context(), c.Query("caller"), limit, fromPtr, toPtr)
	if err != nil {
		c.Error(apperrors.New(apperrors.ErrInternal, err.Error(), err))
		return
	}
	c.JSON(http.StatusOK, records)
}

func parseTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid time format")
}
