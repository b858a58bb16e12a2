package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Heman1223/Placement-Management-System-sub002/internal/dto"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/service"
	"github.com/Heman1223/Placement-Management-System-sub002/pkg/response"
)

// StudentHandler 学生模块 HTTP 处理器
type StudentHandler struct {
	studentSvc service.StudentService
}

// NewStudentHandler 创建 StudentHandler
func NewStudentHandler(studentSvc service.StudentService) *StudentHandler {
	return &StudentHandler{studentSvc: studentSvc}
}

// ────────────────────── 检索 ──────────────────────

// List 学生检索：学院看本院学生，企业按可见性策略检索已认证学生
// GET /api/v1/students
func (h *StudentHandler) List(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.StudentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		handleBindError(c, err)
		return
	}

	list, total, err := h.studentSvc.List(c.Request.Context(), ac, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Get 学生详情
// GET /api/v1/students/:id
func (h *StudentHandler) Get(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	student, err := h.studentSvc.GetByID(c.Request.Context(), ac, c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, student)
}

// ────────────────────── 学院管理 ──────────────────────

// Create 新增学生
// POST /api/v1/students
func (h *StudentHandler) Create(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	student, err := h.studentSvc.Create(c.Request.Context(), ac, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, student)
}

// Update 更新学生
// PUT /api/v1/students/:id
func (h *StudentHandler) Update(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.UpdateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	student, err := h.studentSvc.Update(c.Request.Context(), ac, c.Param("id"), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, student)
}

// Review 认证/驳回学生资料
// PUT /api/v1/students/:id/review
func (h *StudentHandler) Review(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	student, err := h.studentSvc.Review(c.Request.Context(), ac, c.Param("id"), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, student)
}

// Star 标记/取消优秀学生
// PUT /api/v1/students/:id/star
func (h *StudentHandler) Star(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.StarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	student, err := h.studentSvc.Star(c.Request.Context(), ac, c.Param("id"), req.Star)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, student)
}

// OverridePlacement 显式覆盖就业状态
// PUT /api/v1/students/:id/placement
func (h *StudentHandler) OverridePlacement(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.PlacementOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	student, err := h.studentSvc.OverridePlacement(c.Request.Context(), ac, c.Param("id"), req.Status)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, student)
}

// Delete 软删除学生
// DELETE /api/v1/students/:id
func (h *StudentHandler) Delete(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	if err := h.studentSvc.Delete(c.Request.Context(), ac, c.Param("id")); err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, nil)
}

// Restore 恢复已删除学生（仅超级管理员）
// POST /api/v1/students/:id/restore
func (h *StudentHandler) Restore(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	student, err := h.studentSvc.Restore(c.Request.Context(), ac, c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, student)
}

// Import 批量导入学生（xlsx），逐行返回结果
// POST /api/v1/students/import
//
// multipart/form-data: file=<xlsx>，超级管理员需额外提供 college_id
func (h *StudentHandler) Import(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
			return
		}
		response.BadRequest(c, 15100, "请上传 Excel 文件")
		return
	}
	defer file.Close()

	rows, err := service.ParseStudentImportFile(file)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrImportNoData),
			errors.Is(err, service.ErrImportTooManyRows),
			errors.Is(err, service.ErrImportBadHeader):
			handleServiceError(c, err)
		default:
			response.ErrorWithDetails(c, http.StatusBadRequest, 15100, "无法解析 Excel 文件", err.Error())
		}
		return
	}

	result, err := h.studentSvc.Import(c.Request.Context(), ac, c.PostForm("college_id"), rows)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}

// ────────────────────── 学生本人 ──────────────────────

// GetOwnProfile 本人学生资料
// GET /api/v1/student/profile
func (h *StudentHandler) GetOwnProfile(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	student, err := h.studentSvc.GetOwn(c.Request.Context(), ac)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, student)
}

// UpdateOwnProfile 更新本人简历与技能
// PUT /api/v1/student/profile
func (h *StudentHandler) UpdateOwnProfile(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.UpdateOwnProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	student, err := h.studentSvc.UpdateOwnProfile(c.Request.Context(), ac, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, student)
}
