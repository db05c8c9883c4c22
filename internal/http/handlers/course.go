package handlers

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/yungbote/dae-backend/internal/data/repos"
	"github.com/yungbote/dae-backend/internal/http/response"
	"github.com/yungbote/dae-backend/internal/platform/contracts"
	"github.com/yungbote/dae-backend/internal/services"
)

type CourseHandler struct {
	courses    services.CourseService
	reconciler services.CourseReconciler
}

func NewCourseHandler(courses services.CourseService, reconciler services.CourseReconciler) *CourseHandler {
	return &CourseHandler{courses: courses, reconciler: reconciler}
}

// GET /courses?chainId=&limit=&offset=
func (h *CourseHandler) List(c *gin.Context) {
	filter := repos.CourseListFilter{}
	if raw := c.Query("chainId"); raw != "" {
		id, ok := parseChainID(c, raw)
		if !ok {
			return
		}
		filter.ChainID = id
	}
	var ok bool
	if filter.Limit, ok = optionalInt(c, "limit"); !ok {
		return
	}
	if filter.Offset, ok = optionalInt(c, "offset"); !ok {
		return
	}
	courses, err := h.courses.List(c.Request.Context(), filter)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"courses": courses})
}

// GET /courses/mine
func (h *CourseHandler) ListMine(c *gin.Context) {
	courses, err := h.courses.ListMine(c.Request.Context(), caller(c))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"courses": courses})
}

// GET /courses/:chainId/:address
func (h *CourseHandler) Get(c *gin.Context) {
	chainID, ok := chainIDParam(c)
	if !ok {
		return
	}
	course, err := h.courses.Get(c.Request.Context(), chainID, c.Param("address"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"course": course})
}

type updateCourseRequest struct {
	Name                *string         `json:"name"`
	Description         *string         `json:"description"`
	ImageURL            *string         `json:"image_url"`
	AccessURL           *string         `json:"access_url"`
	Website             *string         `json:"website"`
	SnapshotSpace       *string         `json:"snapshot_space"`
	MagisterBaseKarma   *int64          `json:"magister_base_karma"`
	DiscipulusBaseKarma *int64          `json:"discipulus_base_karma"`
	Attributes          json.RawMessage `json:"attributes"`
}

// PATCH /courses/:chainId/:address
func (h *CourseHandler) Update(c *gin.Context) {
	chainID, ok := chainIDParam(c)
	if !ok {
		return
	}
	var req updateCourseRequest
	if !bindJSON(c, &req) {
		return
	}
	update := repos.CourseMetadataUpdate{
		Name:                req.Name,
		Description:         req.Description,
		ImageURL:            req.ImageURL,
		AccessURL:           req.AccessURL,
		Website:             req.Website,
		SnapshotSpace:       req.SnapshotSpace,
		MagisterBaseKarma:   req.MagisterBaseKarma,
		DiscipulusBaseKarma: req.DiscipulusBaseKarma,
	}
	if len(req.Attributes) > 0 && string(req.Attributes) != "null" {
		update.Attributes = datatypes.JSON(req.Attributes)
	}
	course, err := h.courses.UpdateMetadata(c.Request.Context(), caller(c), chainID, c.Param("address"), update)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"course": course})
}

// POST /courses/reconcile
func (h *CourseHandler) Reconcile(c *gin.Context) {
	var req struct {
		ChainID int64  `json:"chain_id" binding:"required"`
		TxHash  string `json:"tx_hash" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.reconciler.Reconcile(c.Request.Context(), caller(c), req.ChainID, req.TxHash)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, res)
}

// GET /courses/:chainId/:address/students
func (h *CourseHandler) Students(c *gin.Context) { h.members(c, contracts.TagStudent) }

// GET /courses/:chainId/:address/teachers
func (h *CourseHandler) Teachers(c *gin.Context) { h.members(c, contracts.TagTeacher) }

func (h *CourseHandler) members(c *gin.Context, credentialType string) {
	chainID, ok := chainIDParam(c)
	if !ok {
		return
	}
	rows, err := h.courses.ListMembers(c.Request.Context(), chainID, c.Param("address"), credentialType)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"members": rows})
}

// GET /courses/:chainId/:address/karma/:user
func (h *CourseHandler) Karma(c *gin.Context) {
	chainID, ok := chainIDParam(c)
	if !ok {
		return
	}
	bal, err := h.courses.Karma(c.Request.Context(), chainID, c.Param("address"), c.Param("user"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, bal)
}
