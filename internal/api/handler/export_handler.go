package handler

import (
	"bytes"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/Heman1223/Placement-Management-System-sub002/internal/dto"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/service"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportStudents 按检索条件导出学生；企业导出计入下载额度
// GET /api/v1/export/students
func (h *ExportHandler) ExportStudents(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.StudentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		handleBindError(c, err)
		return
	}

	buf, filename, err := h.exportSvc.ExportStudents(c.Request.Context(), ac, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	sendXLSX(c, buf, filename)
}

// ExportApplicants 导出职位投递者
// GET /api/v1/export/jobs/:id/applicants
func (h *ExportHandler) ExportApplicants(c *gin.Context) {
	ac, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportApplicants(c.Request.Context(), ac, c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	sendXLSX(c, buf, filename)
}

// sendXLSX 写出下载响应，文件名按 RFC 5987 编码
func sendXLSX(c *gin.Context, buf *bytes.Buffer, filename string) {
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(filename))
	c.Data(http.StatusOK, xlsxMIME, buf.Bytes())
}
