package handler

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/ociswap/registry/internal/middleware"
	"github.com/ociswap/registry/internal/model"
	"github.com/ociswap/registry/internal/pkg/apperrors"
	"github.com/ociswap/registry/internal/registry"
	"github.com/ociswap/registry/internal/service"
)

type RegistryHandler struct {
	svc *service.RegistryService
}

func NewRegistryHandler(svc *service.RegistryService) *RegistryHandler {
	return &RegistryHandler{svc: svc}
}

// Sync is called by pools to deposit protocol fees and learn their next sync time.
func (h *RegistryHandler) Sync(c *gin.Context) {
	var req model.SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}
	if req.Pool == (common.Address{}) {
		c.Error(apperrors.NewInvalidRequest("pool address is required"))
		return
	}
	middleware.AddAuditContext(c, "pool", req.Pool.Hex())

	resp, err := h.svc.Sync(c.Request.Context(), req.Pool, req.A, req.B)
	if err != nil {
		c.Error(err)
		return
	}

	middleware.AddAuditContext(c, "next_sync_time", resp.NextSyncTime)
	c.JSON(http.StatusOK, resp)
}

func (h *RegistryHandler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Config())
}

func (h *RegistryHandler) UpdateConfig(c *gin.Context) {
	var req model.ConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}

	cfg := registry.Config{
		FeeProtocolShare: req.FeeProtocolShare,
		SyncPeriod:       req.SyncPeriod,
		SyncSlots:        req.SyncSlots,
	}
	if err := h.svc.UpdateConfig(c.Request.Context(), middleware.ProofFromContext(c), cfg); err != nil {
		c.Error(err)
		return
	}

	middleware.AddAuditContext(c, "fee_protocol_share", cfg.FeeProtocolShare.String())
	c.JSON(http.StatusOK, h.svc.Config())
}

func (h *RegistryHandler) Withdraw(c *gin.Context) {
	var req model.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}

	buckets, err := h.svc.Withdraw(c.Request.Context(), middleware.ProofFromContext(c), req.Tokens)
	if err != nil {
		c.Error(err)
		return
	}

	middleware.AddAuditContext(c, "tokens", len(req.Tokens))
	c.JSON(http.StatusOK, model.WithdrawResponse{Buckets: buckets})
}

func (h *RegistryHandler) Balances(c *gin.Context) {
	c.JSON(http.StatusOK, model.BalancesResponse{Balances: h.svc.Balances()})
}

func (h *RegistryHandler) Schedule(c *gin.Context) {
	raw := c.Param("address")
	if !common.IsHexAddress(raw) {
		c.Error(apperrors.NewInvalidRequest("invalid pool address"))
		return
	}
	c.JSON(http.StatusOK, h.svc.Schedule(common.HexToAddress(raw)))
}
