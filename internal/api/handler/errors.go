package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/Heman1223/Placement-Management-System-sub002/internal/eligibility"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/policy"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/service"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/workflow"
	apperrors "github.com/Heman1223/Placement-Management-System-sub002/pkg/errors"
	"github.com/Heman1223/Placement-Management-System-sub002/pkg/jwt"
	"github.com/Heman1223/Placement-Management-System-sub002/pkg/response"
)

// errorSpec 业务错误到 HTTP 响应的映射
type errorSpec struct {
	status int
	code   int
}

// serviceErrors 业务哨兵错误映射表，响应消息直接取错误文本
var serviceErrors = []struct {
	err  error
	spec errorSpec
}{
	// ── 认证 ──
	{service.ErrInvalidCredentials, errorSpec{http.StatusUnauthorized, 11001}},
	{service.ErrTokenRevoked, errorSpec{http.StatusUnauthorized, 11002}},
	{service.ErrNotRefreshToken, errorSpec{http.StatusUnauthorized, 11003}},
	{jwt.ErrTokenExpired, errorSpec{http.StatusUnauthorized, 11004}},
	{jwt.ErrTokenInvalid, errorSpec{http.StatusUnauthorized, 11004}},
	{service.ErrEmailExists, errorSpec{http.StatusConflict, 11005}},
	{service.ErrRegistrationClosed, errorSpec{http.StatusForbidden, 11006}},
	{service.ErrCollegeCodeExists, errorSpec{http.StatusConflict, 11007}},
	{service.ErrCollegeNotAvailable, errorSpec{http.StatusBadRequest, 11008}},
	{service.ErrBlacklistNotAvailable, errorSpec{http.StatusServiceUnavailable, 11009}},
	{service.ErrUserNotFound, errorSpec{http.StatusNotFound, 12001}},
	{service.ErrWrongPassword, errorSpec{http.StatusBadRequest, 12002}},

	// ── 学院 / 企业 ──
	{service.ErrCollegeNotFound, errorSpec{http.StatusNotFound, 13001}},
	{service.ErrAccessRequestNotFound, errorSpec{http.StatusNotFound, 13002}},
	{service.ErrAccessAlreadyReviewed, errorSpec{http.StatusConflict, 13003}},
	{service.ErrDepartmentInUse, errorSpec{http.StatusConflict, 13004}},
	{service.ErrCompanyNotFound, errorSpec{http.StatusNotFound, 14001}},
	{service.ErrAccessRequestExists, errorSpec{http.StatusConflict, 14002}},

	// ── 学生 ──
	{service.ErrStudentNotFound, errorSpec{http.StatusNotFound, 15001}},
	{service.ErrCollegeRequired, errorSpec{http.StatusBadRequest, 15002}},
	{service.ErrBacklogsInvalid, errorSpec{http.StatusBadRequest, 15003}},
	{service.ErrDepartmentNotOffered, errorSpec{http.StatusBadRequest, 15004}},
	{service.ErrRollNumberExists, errorSpec{http.StatusConflict, 15005}},
	{service.ErrStudentEmailExists, errorSpec{http.StatusConflict, 15006}},
	{service.ErrStudentNotDeleted, errorSpec{http.StatusBadRequest, 15007}},
	{service.ErrUnknownPlacement, errorSpec{http.StatusBadRequest, 15008}},
	{service.ErrStudentHasNoRecord, errorSpec{http.StatusNotFound, 15009}},
	{service.ErrImportNoData, errorSpec{http.StatusBadRequest, 15101}},
	{service.ErrImportTooManyRows, errorSpec{http.StatusBadRequest, 15102}},
	{service.ErrImportBadHeader, errorSpec{http.StatusBadRequest, 15103}},

	// ── 职位 ──
	{service.ErrJobNotFound, errorSpec{http.StatusNotFound, 16001}},
	{service.ErrJobNotDeleted, errorSpec{http.StatusBadRequest, 16002}},
	{service.ErrDriveCollegeRequired, errorSpec{http.StatusBadRequest, 16003}},
	{service.ErrNoCollegeAccess, errorSpec{http.StatusForbidden, 16004}},
	{service.ErrDeadlineInPast, errorSpec{http.StatusBadRequest, 16005}},
	{service.ErrCompanyRequired, errorSpec{http.StatusForbidden, 16006}},
	{workflow.ErrUnknownJobStatus, errorSpec{http.StatusBadRequest, 16007}},
	{workflow.ErrJobCancelled, errorSpec{http.StatusConflict, 16008}},
	{workflow.ErrDeadlinePassed, errorSpec{http.StatusBadRequest, 16009}},

	// ── 投递 ──
	{service.ErrApplicationNotFound, errorSpec{http.StatusNotFound, 17001}},
	{service.ErrInterviewNotFound, errorSpec{http.StatusNotFound, 17002}},
	{service.ErrDuplicateApplication, errorSpec{http.StatusConflict, 17003}},
	{service.ErrJobNotRecruiting, errorSpec{http.StatusBadRequest, 17004}},
	{workflow.ErrUnknownStatus, errorSpec{http.StatusBadRequest, 17005}},
	{workflow.ErrSameStatus, errorSpec{http.StatusConflict, 17006}},
	{workflow.ErrTerminalState, errorSpec{http.StatusConflict, 17007}},
	{workflow.ErrBackwardTransition, errorSpec{http.StatusConflict, 17008}},
	{workflow.ErrNoPendingOffer, errorSpec{http.StatusConflict, 17009}},

	// ── 导出 ──
	{service.ErrExportNoData, errorSpec{http.StatusNotFound, 18001}},
	{service.ErrDownloadLimitExceeded, errorSpec{http.StatusTooManyRequests, 18002}},
	{service.ErrExportTooManyRows, errorSpec{http.StatusBadRequest, 18003}},
	{service.ErrExportCompanyRequired, errorSpec{http.StatusForbidden, 18004}},

	// ── 平台治理 / 通知 ──
	{service.ErrCannotDeactivateSelf, errorSpec{http.StatusBadRequest, 19001}},
	{service.ErrNotDeleted, errorSpec{http.StatusBadRequest, 19002}},
	{service.ErrNotificationNotFound, errorSpec{http.StatusNotFound, 19003}},

	// ── 存储 ──
	{apperrors.ErrOptimisticLock, errorSpec{http.StatusConflict, 10013}},
}

// handleServiceError 将 Service 返回的错误映射为统一响应
// 顺序：授权拒绝 → 资格拒绝 → 业务哨兵 → 存储错误 → 500
func handleServiceError(c *gin.Context, err error) {
	var denial *policy.Denial
	if errors.As(err, &denial) {
		if denial.Reason == policy.ReasonNotFound {
			response.NotFound(c, 10011, denial.Message)
			return
		}
		response.Forbidden(c, 10003, denial.Message)
		return
	}

	var inelig *eligibility.Denial
	if errors.As(err, &inelig) {
		if inelig.Reason == eligibility.AlreadyApplied {
			response.Conflict(c, 17003, inelig.Message)
			return
		}
		response.ErrorWithDetails(c, http.StatusForbidden, 17100, inelig.Message, string(inelig.Reason))
		return
	}

	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			response.Error(c, m.spec.status, m.spec.code, m.err.Error())
			return
		}
	}

	switch {
	case apperrors.IsUnavailable(err):
		response.ServiceUnavailable(c, 10006, "服务暂不可用，请稍后重试")
	case apperrors.IsUniqueViolation(err, ""):
		response.Conflict(c, 10012, "数据已存在")
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}

// handleBindError 请求参数绑定失败：列出校验失败的字段
func handleBindError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
		return
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		details := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
			details = append(details, fe.Field()+": "+fe.Tag())
		}
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001,
			"参数校验失败: "+strings.Join(fields, ", "), strings.Join(details, "; "))
		return
	}

	response.BadRequest(c, 10001, "请求参数格式错误")
}
