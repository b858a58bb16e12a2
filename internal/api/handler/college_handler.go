package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/Heman1223/Placement-Management-System-sub002/internal/dto"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/model"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/policy"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/service"
	"github.com/Heman1223/Placement-Management-System-sub002/pkg/response"
)

// CollegeHandler 学院模块 HTTP 处理器
type CollegeHandler struct {
	collegeSvc service.CollegeService
}

// NewCollegeHandler 创建 CollegeHandler
func NewCollegeHandler(collegeSvc service.CollegeService) *CollegeHandler {
	return &CollegeHandler{collegeSvc: collegeSvc}
}

// ────────────────────── 学院目录 ──────────────────────

// List 学院列表
// GET /api/v1/colleges
func (h *CollegeHandler) List(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.CollegeListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		handleBindError(c, err)
		return
	}

	list, total, err := h.collegeSvc.List(c.Request.Context(), ac, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Get 学院详情
// GET /api/v1/colleges/:id
func (h *CollegeHandler) Get(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	college, err := h.collegeSvc.GetByID(c.Request.Context(), ac, c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, college)
}

// ────────────────────── 本学院资料 ──────────────────────

// GetOwn 本学院资料
// GET /api/v1/college/profile
func (h *CollegeHandler) GetOwn(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	college, err := h.collegeSvc.GetOwn(c.Request.Context(), ac)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, college)
}

// UpdateOwn 更新本学院资料
// PUT /api/v1/college/profile
func (h *CollegeHandler) UpdateOwn(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.UpdateCollegeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	college, err := h.collegeSvc.UpdateOwn(c.Request.Context(), ac, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, college)
}

// AddDepartments 新增专业
// POST /api/v1/college/departments
func (h *CollegeHandler) AddDepartments(c *gin.Context) {
	h.changeDepartments(c, h.collegeSvc.AddDepartments)
}

// RemoveDepartments 移除专业（仍有在籍学生的专业不能移除）
// DELETE /api/v1/college/departments
func (h *CollegeHandler) RemoveDepartments(c *gin.Context) {
	h.changeDepartments(c, h.collegeSvc.RemoveDepartments)
}

func (h *CollegeHandler) changeDepartments(c *gin.Context, apply func(ctx context.Context, ac *policy.AuthorizationContext, req *dto.DepartmentsRequest) (*model.College, error)) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.DepartmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	college, err := apply(c.Request.Context(), ac, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, college)
}

// ────────────────────── 访问申请审核 ──────────────────────

// ListAccessRequests 招聘机构的访问申请
// GET /api/v1/college/access-requests
func (h *CollegeHandler) ListAccessRequests(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.CollegeAccessListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		handleBindError(c, err)
		return
	}

	list, err := h.collegeSvc.ListAccessRequests(c.Request.Context(), ac, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, list)
}

// ReviewAccess 批准/拒绝访问申请
// PUT /api/v1/college/access-requests/:id
func (h *CollegeHandler) ReviewAccess(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	access, err := h.collegeSvc.ReviewAccess(c.Request.Context(), ac, c.Param("id"), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, access)
}
