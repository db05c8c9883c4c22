package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/dae-backend/internal/domain"
	"github.com/yungbote/dae-backend/internal/http/response"
	"github.com/yungbote/dae-backend/internal/platform/apierr"
	"github.com/yungbote/dae-backend/internal/services"
)

type CredentialHandler struct {
	credentials services.CredentialService
	transfers   services.TransferReconciler
	burns       services.BurnReconciler
}

func NewCredentialHandler(credentials services.CredentialService, transfers services.TransferReconciler, burns services.BurnReconciler) *CredentialHandler {
	return &CredentialHandler{credentials: credentials, transfers: transfers, burns: burns}
}

// GET /courses/:chainId/:address/credentials
func (h *CredentialHandler) List(c *gin.Context) {
	chainID, ok := chainIDParam(c)
	if !ok {
		return
	}
	creds, err := h.credentials.List(c.Request.Context(), chainID, c.Param("address"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"credentials": creds})
}

// POST /courses/:chainId/:address/credentials
func (h *CredentialHandler) Create(c *gin.Context) {
	chainID, ok := chainIDParam(c)
	if !ok {
		return
	}
	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
		ImageURL    string `json:"image_url"`
		IPFSCID     string `json:"ipfs_cid" binding:"required"`
		Kind        string `json:"kind"`
	}
	if !bindJSON(c, &req) {
		return
	}
	cred, err := h.credentials.Create(c.Request.Context(), caller(c), chainID, c.Param("address"), services.CreateCredentialInput{
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		IPFSCID:     req.IPFSCID,
		Kind:        req.Kind,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"credential": cred})
}

// POST /credentials/transfer/reconcile
func (h *CredentialHandler) ReconcileTransfer(c *gin.Context) {
	var req struct {
		ChainID       int64              `json:"chain_id" binding:"required"`
		TxHash        string             `json:"tx_hash" binding:"required"`
		CourseAddress string             `json:"course_address"`
		Enrollments   []types.Enrollment `json:"enrollments"`
	}
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.transfers.Reconcile(c.Request.Context(), caller(c), services.TransferRequest{
		ChainID:       req.ChainID,
		TxHash:        req.TxHash,
		CourseAddress: req.CourseAddress,
		Enrollments:   req.Enrollments,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, res)
}

// POST /credentials/burn/reconcile
func (h *CredentialHandler) ReconcileBurn(c *gin.Context) {
	var req struct {
		ChainID       int64  `json:"chain_id" binding:"required"`
		TxHash        string `json:"tx_hash" binding:"required"`
		CourseAddress string `json:"course_address"`
	}
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.burns.ReconcileTx(c.Request.Context(), caller(c), services.BurnRequest{
		ChainID:       req.ChainID,
		TxHash:        req.TxHash,
		CourseAddress: req.CourseAddress,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, res)
}

// DELETE /credentials/burn?course=&chainId=&user=&tokenId=
func (h *CredentialHandler) DeleteBurned(c *gin.Context) {
	course := strings.TrimSpace(c.Query("course"))
	user := strings.TrimSpace(c.Query("user"))
	tokenID := strings.TrimSpace(c.Query("tokenId"))
	rawChain := strings.TrimSpace(c.Query("chainId"))
	if course == "" || user == "" || tokenID == "" || rawChain == "" {
		response.RespondErr(c, apierr.BadRequest("missing_parameter", "course, chainId, user and tokenId are required"))
		return
	}
	chainID, ok := parseChainID(c, rawChain)
	if !ok {
		return
	}
	res, err := h.burns.DeleteDirect(c.Request.Context(), caller(c), services.DirectBurnRequest{
		ChainID:       chainID,
		CourseAddress: course,
		UserAddress:   user,
		TokenID:       tokenID,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, res)
}
