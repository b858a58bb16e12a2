package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Heman1223/Placement-Management-System-sub002/internal/dto"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/service"
	"github.com/Heman1223/Placement-Management-System-sub002/pkg/response"
)

// ApplicationHandler 投递模块 HTTP 处理器
type ApplicationHandler struct {
	appSvc service.ApplicationService
}

// NewApplicationHandler 创建 ApplicationHandler
func NewApplicationHandler(appSvc service.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{appSvc: appSvc}
}

// ────────────────────── 创建投递 ──────────────────────

// Apply 学生投递职位
// POST /api/v1/jobs/:id/apply
func (h *ApplicationHandler) Apply(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.ApplyRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			handleBindError(c, err)
			return
		}
	}

	app, err := h.appSvc.Apply(c.Request.Context(), ac, c.Param("id"), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, app)
}

// Shortlist 企业直接入围学生
// POST /api/v1/jobs/:id/shortlist
func (h *ApplicationHandler) Shortlist(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.ShortlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	app, err := h.appSvc.Shortlist(c.Request.Context(), ac, c.Param("id"), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, app)
}

// ────────────────────── 查询 ──────────────────────

// List 投递列表（学生看本人，企业看本企业职位，学院看本院学生）
// GET /api/v1/applications
func (h *ApplicationHandler) List(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.ApplicationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		handleBindError(c, err)
		return
	}

	list, total, err := h.appSvc.List(c.Request.Context(), ac, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Get 投递详情（含状态历史与面试）
// GET /api/v1/applications/:id
func (h *ApplicationHandler) Get(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	app, err := h.appSvc.GetByID(c.Request.Context(), ac, c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, app)
}

// ────────────────────── 状态推进 ──────────────────────

// UpdateStatus 企业推进投递状态（含发放 Offer）
// PUT /api/v1/applications/:id/status
func (h *ApplicationHandler) UpdateStatus(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.UpdateApplicationStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	app, err := h.appSvc.UpdateStatus(c.Request.Context(), ac, c.Param("id"), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, app)
}

// ScheduleInterview 安排面试
// POST /api/v1/applications/:id/interviews
func (h *ApplicationHandler) ScheduleInterview(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.ScheduleInterviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	interview, err := h.appSvc.ScheduleInterview(c.Request.Context(), ac, c.Param("id"), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, interview)
}

// InterviewICS 下载面试日历邀请
// GET /api/v1/applications/:id/interviews/:interviewId/ics
func (h *ApplicationHandler) InterviewICS(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	data, err := h.appSvc.InterviewICS(c.Request.Context(), ac, c.Param("id"), c.Param("interviewId"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=interview-%s.ics", c.Param("interviewId")))
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", data)
}

// RespondToOffer 学生接受/拒绝 Offer
// POST /api/v1/applications/:id/offer-response
func (h *ApplicationHandler) RespondToOffer(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.RespondOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	app, err := h.appSvc.RespondToOffer(c.Request.Context(), ac, c.Param("id"), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, app)
}

// Withdraw 学生撤回投递
// POST /api/v1/applications/:id/withdraw
func (h *ApplicationHandler) Withdraw(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.WithdrawRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			handleBindError(c, err)
			return
		}
	}

	app, err := h.appSvc.Withdraw(c.Request.Context(), ac, c.Param("id"), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, app)
}
