package handlers

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/dae-backend/internal/domain"
	"github.com/yungbote/dae-backend/internal/http/response"
	"github.com/yungbote/dae-backend/internal/services"
)

type TransactionHandler struct {
	pending services.PendingService
	resync  services.ResyncService
}

func NewTransactionHandler(pending services.PendingService, resync services.ResyncService) *TransactionHandler {
	return &TransactionHandler{pending: pending, resync: resync}
}

// POST /transactions/pending
func (h *TransactionHandler) Record(c *gin.Context) {
	var req struct {
		ChainID int64           `json:"chain_id" binding:"required"`
		TxHash  string          `json:"tx_hash" binding:"required"`
		Action  string          `json:"action" binding:"required"`
		Payload json.RawMessage `json:"payload"`
	}
	if !bindJSON(c, &req) {
		return
	}
	row, err := h.pending.Record(c.Request.Context(), caller(c), services.RecordPendingInput{
		ChainID: req.ChainID,
		TxHash:  req.TxHash,
		Action:  types.PendingAction(req.Action),
		Payload: req.Payload,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"pending": row})
}

// GET /transactions/pending
func (h *TransactionHandler) List(c *gin.Context) {
	rows, err := h.pending.List(c.Request.Context(), caller(c))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"pending": rows})
}

// DELETE /transactions/pending/:hash
func (h *TransactionHandler) Void(c *gin.Context) {
	if err := h.pending.Void(c.Request.Context(), caller(c), c.Param("hash")); err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// POST /transactions/pending/resync
func (h *TransactionHandler) Resync(c *gin.Context) {
	report, err := h.resync.Resync(c.Request.Context(), caller(c))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, report)
}
