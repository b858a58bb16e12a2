package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Heman1223/Placement-Management-System-sub002/internal/dto"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/service"
	"github.com/Heman1223/Placement-Management-System-sub002/pkg/response"
)

// JobHandler 职位模块 HTTP 处理器
type JobHandler struct {
	jobSvc service.JobService
}

// NewJobHandler 创建 JobHandler
func NewJobHandler(jobSvc service.JobService) *JobHandler {
	return &JobHandler{jobSvc: jobSvc}
}

// List 职位列表（按角色限定范围）
// GET /api/v1/jobs
func (h *JobHandler) List(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.JobListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		handleBindError(c, err)
		return
	}

	list, total, err := h.jobSvc.List(c.Request.Context(), ac, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Get 职位详情
// GET /api/v1/jobs/:id
func (h *JobHandler) Get(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	job, err := h.jobSvc.GetByID(c.Request.Context(), ac, c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, job)
}

// ListEligible 学生可投递职位，附带 has_applied
// GET /api/v1/student/eligible-jobs
func (h *JobHandler) ListEligible(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.PaginationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		handleBindError(c, err)
		return
	}

	list, total, err := h.jobSvc.ListEligible(c.Request.Context(), ac, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Create 发布职位
// POST /api/v1/jobs
func (h *JobHandler) Create(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	job, err := h.jobSvc.Create(c.Request.Context(), ac, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, job)
}

// Update 更新职位
// PUT /api/v1/jobs/:id
func (h *JobHandler) Update(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.UpdateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	job, err := h.jobSvc.Update(c.Request.Context(), ac, c.Param("id"), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, job)
}

// ChangeStatus 修改职位状态
// PUT /api/v1/jobs/:id/status
func (h *JobHandler) ChangeStatus(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.JobStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	job, err := h.jobSvc.ChangeStatus(c.Request.Context(), ac, c.Param("id"), req.Status)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, job)
}

// Delete 软删除职位（同时取消）
// DELETE /api/v1/jobs/:id
func (h *JobHandler) Delete(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	if err := h.jobSvc.Delete(c.Request.Context(), ac, c.Param("id")); err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, nil)
}

// Restore 恢复已删除职位（仅超级管理员）
// POST /api/v1/jobs/:id/restore
func (h *JobHandler) Restore(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	job, err := h.jobSvc.Restore(c.Request.Context(), ac, c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, job)
}
