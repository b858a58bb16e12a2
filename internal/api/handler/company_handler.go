package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Heman1223/Placement-Management-System-sub002/internal/dto"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/service"
	"github.com/Heman1223/Placement-Management-System-sub002/pkg/response"
)

// CompanyHandler 企业模块 HTTP 处理器
type CompanyHandler struct {
	companySvc service.CompanyService
}

// NewCompanyHandler 创建 CompanyHandler
func NewCompanyHandler(companySvc service.CompanyService) *CompanyHandler {
	return &CompanyHandler{companySvc: companySvc}
}

// List 企业列表（学院与超级管理员）
// GET /api/v1/companies
func (h *CompanyHandler) List(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.CompanyListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		handleBindError(c, err)
		return
	}

	list, total, err := h.companySvc.List(c.Request.Context(), ac, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Get 企业详情
// GET /api/v1/companies/:id
func (h *CompanyHandler) Get(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	company, err := h.companySvc.GetByID(c.Request.Context(), ac, c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, company)
}

// GetOwn 本企业资料
// GET /api/v1/company/profile
func (h *CompanyHandler) GetOwn(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	company, err := h.companySvc.GetOwn(c.Request.Context(), ac)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, company)
}

// UpdateOwn 更新本企业资料
// PUT /api/v1/company/profile
func (h *CompanyHandler) UpdateOwn(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.UpdateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	company, err := h.companySvc.UpdateOwn(c.Request.Context(), ac, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, company)
}

// RequestAccess 招聘机构申请访问学院
// POST /api/v1/company/access-requests
func (h *CompanyHandler) RequestAccess(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.RequestCollegeAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	access, err := h.companySvc.RequestAccess(c.Request.Context(), ac, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, access)
}

// ListAccess 本企业的访问申请与授权
// GET /api/v1/company/access-requests
func (h *CompanyHandler) ListAccess(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	list, err := h.companySvc.ListAccess(c.Request.Context(), ac)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, list)
}
