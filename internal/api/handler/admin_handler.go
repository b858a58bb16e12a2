package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/Heman1223/Placement-Management-System-sub002/internal/dto"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/policy"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/service"
	"github.com/Heman1223/Placement-Management-System-sub002/pkg/response"
)

// AdminHandler 平台治理（超级管理员）HTTP 处理器
type AdminHandler struct {
	adminSvc    service.AdminService
	settingsSvc service.SettingsService
}

// NewAdminHandler 创建 AdminHandler
func NewAdminHandler(adminSvc service.AdminService, settingsSvc service.SettingsService) *AdminHandler {
	return &AdminHandler{adminSvc: adminSvc, settingsSvc: settingsSvc}
}

// ────────────────────── 审核 ──────────────────────

// ReviewCollege 审核学院
// PUT /api/v1/admin/colleges/:id/review
func (h *AdminHandler) ReviewCollege(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	college, err := h.adminSvc.ReviewCollege(c.Request.Context(), ac, c.Param("id"), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, college)
}

// ReviewCompany 审核企业
// PUT /api/v1/admin/companies/:id/review
func (h *AdminHandler) ReviewCompany(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	company, err := h.adminSvc.ReviewCompany(c.Request.Context(), ac, c.Param("id"), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, company)
}

// ────────────────────── 启用 / 暂停 / 额度 ──────────────────────

// SetUserActive 启用/停用账号
// PUT /api/v1/admin/users/:id/active
func (h *AdminHandler) SetUserActive(c *gin.Context) {
	h.setActive(c, h.adminSvc.SetUserActive)
}

// SetCollegeActive 启用/停用学院（级联学院账号）
// PUT /api/v1/admin/colleges/:id/active
func (h *AdminHandler) SetCollegeActive(c *gin.Context) {
	h.setActive(c, h.adminSvc.SetCollegeActive)
}

// SetCompanyActive 启用/停用企业（级联企业账号）
// PUT /api/v1/admin/companies/:id/active
func (h *AdminHandler) SetCompanyActive(c *gin.Context) {
	h.setActive(c, h.adminSvc.SetCompanyActive)
}

func (h *AdminHandler) setActive(c *gin.Context, apply func(ctx context.Context, ac *policy.AuthorizationContext, id string, active bool) error) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	if err := apply(c.Request.Context(), ac, c.Param("id"), req.Active); err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, gin.H{"active": req.Active})
}

// SuspendCompany 暂停/恢复企业
// PUT /api/v1/admin/companies/:id/suspend
func (h *AdminHandler) SuspendCompany(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.SuspendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	company, err := h.adminSvc.SuspendCompany(c.Request.Context(), ac, c.Param("id"), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, company)
}

// SetDownloadLimits 设置企业下载额度
// PUT /api/v1/admin/companies/:id/download-limits
func (h *AdminHandler) SetDownloadLimits(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.DownloadLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	company, err := h.adminSvc.SetDownloadLimits(c.Request.Context(), ac, c.Param("id"), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, company)
}

// ────────────────────── 删除 / 恢复 ──────────────────────

// DeleteCollege 软删除学院
// DELETE /api/v1/admin/colleges/:id
func (h *AdminHandler) DeleteCollege(c *gin.Context) {
	h.lifecycle(c, h.adminSvc.DeleteCollege)
}

// RestoreCollege 恢复学院
// POST /api/v1/admin/colleges/:id/restore
func (h *AdminHandler) RestoreCollege(c *gin.Context) {
	h.lifecycle(c, h.adminSvc.RestoreCollege)
}

// DeleteCompany 软删除企业
// DELETE /api/v1/admin/companies/:id
func (h *AdminHandler) DeleteCompany(c *gin.Context) {
	h.lifecycle(c, h.adminSvc.DeleteCompany)
}

// RestoreCompany 恢复企业
// POST /api/v1/admin/companies/:id/restore
func (h *AdminHandler) RestoreCompany(c *gin.Context) {
	h.lifecycle(c, h.adminSvc.RestoreCompany)
}

func (h *AdminHandler) lifecycle(c *gin.Context, apply func(ctx context.Context, ac *policy.AuthorizationContext, id string) error) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	if err := apply(c.Request.Context(), ac, c.Param("id")); err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, nil)
}

// ────────────────────── 概览 / 日志 / 对账 ──────────────────────

// Dashboard 平台概览
// GET /api/v1/admin/dashboard
func (h *AdminHandler) Dashboard(c *gin.Context) {
	result, err := h.adminSvc.Dashboard(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}

// ListActivity 操作日志
// GET /api/v1/admin/activity-logs
func (h *AdminHandler) ListActivity(c *gin.Context) {
	var req dto.ActivityLogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		handleBindError(c, err)
		return
	}

	list, total, err := h.adminSvc.ListActivity(c.Request.Context(), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Reconcile 立即重算职位/企业/学院计数
// POST /api/v1/admin/reconcile
func (h *AdminHandler) Reconcile(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.adminSvc.Reconcile(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}

// ────────────────────── 平台设置 ──────────────────────

// GetSettings 平台设置
// GET /api/v1/admin/settings
func (h *AdminHandler) GetSettings(c *gin.Context) {
	response.OK(c, h.settingsSvc.Get(c.Request.Context()))
}

// UpdateSettings 更新平台设置，立即对进程内生效
// PUT /api/v1/admin/settings
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	settings, err := h.settingsSvc.Update(c.Request.Context(), ac, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, settings)
}
