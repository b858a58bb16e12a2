package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Heman1223/Placement-Management-System-sub002/config"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/api/handler"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/api/middleware"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/policy"
	"github.com/Heman1223/Placement-Management-System-sub002/pkg/jwt"
	"github.com/Heman1223/Placement-Management-System-sub002/pkg/redis"
)

// Pinger 就绪检查依赖，*sql.DB 实现该接口
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps 路由依赖
type Deps struct {
	JWT      *jwt.Manager
	DB       Pinger
	Redis    *redis.Client // 为 nil 时跳过黑名单与限流
	Actors   middleware.ActorLoader
	Settings middleware.SettingsReader
	Logger   *zap.Logger
}

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, deps Deps) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	if err := handler.RegisterValidators(); err != nil {
		return nil, err
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 / 指标 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", readiness(deps))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// *redis.Client 为 nil 时不能直接赋给接口，否则接口非 nil
	var (
		blacklist middleware.TokenChecker
		limiter   middleware.Limiter
	)
	if deps.Redis != nil {
		blacklist = deps.Redis
		limiter = deps.Redis
	}

	jwtAuth := middleware.JWTAuth(deps.JWT, blacklist, deps.Logger)
	maintenance := middleware.Maintenance(deps.Settings)
	authLimit := middleware.RateLimit(limiter, cfg.Server.RateLimit.AuthLimit, cfg.Server.RateLimit.AuthWindow, deps.Logger)
	op := middleware.Authorize
	withDeleted := policy.IncludeDeleted(true)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth", authLimit)
		{
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
			auth.POST("/register/college", maintenance, h.Auth.RegisterCollege)
			auth.POST("/register/company", maintenance, h.Auth.RegisterCompany)
			auth.POST("/register/student", maintenance, h.Auth.RegisterStudent)
		}

		// 登出只校验 Token，停用账号也能登出
		v1.POST("/auth/logout", jwtAuth, h.Auth.Logout)

		// 需要认证的路由：Token → 维护模式 → 加载操作者（启用检查）→ 按操作授权
		authorized := v1.Group("", jwtAuth, maintenance, middleware.LoadActor(deps.Actors, deps.Logger))
		{
			authorized.GET("/auth/me", op(policy.OpViewSelf), h.Auth.GetCurrentUser)

			// 本人账号
			users := authorized.Group("/users/me", op(policy.OpViewSelf))
			{
				users.PUT("", h.User.UpdateProfile)
				users.PUT("/password", h.User.ChangePassword)
			}

			// 站内通知
			notifications := authorized.Group("/notifications", op(policy.OpViewNotifications))
			{
				notifications.GET("", h.Notification.List)
				notifications.GET("/unread-count", h.Notification.UnreadCount)
				notifications.PUT("/read-all", h.Notification.MarkAllRead)
				notifications.PUT("/:id/read", h.Notification.MarkRead)
			}

			// 学院目录
			colleges := authorized.Group("/colleges")
			{
				colleges.GET("", op(policy.OpListColleges), h.College.List)
				colleges.GET("/:id", op(policy.OpViewCollege), h.College.Get)
			}

			// 本学院（学院管理员）
			college := authorized.Group("/college")
			{
				college.GET("/profile", op(policy.OpUpdateOwnCollege), h.College.GetOwn)
				college.PUT("/profile", op(policy.OpUpdateOwnCollege), h.College.UpdateOwn)
				college.POST("/departments", op(policy.OpUpdateOwnCollege), h.College.AddDepartments)
				college.DELETE("/departments", op(policy.OpUpdateOwnCollege), h.College.RemoveDepartments)
				college.GET("/access-requests", op(policy.OpReviewCollegeAccess), h.College.ListAccessRequests)
				college.PUT("/access-requests/:id", op(policy.OpReviewCollegeAccess), h.College.ReviewAccess)
			}

			// 企业目录
			companies := authorized.Group("/companies")
			{
				companies.GET("", op(policy.OpListCompanies), h.Company.List)
				companies.GET("/:id", op(policy.OpViewCompany), h.Company.Get)
			}

			// 本企业
			company := authorized.Group("/company")
			{
				company.GET("/profile", op(policy.OpUpdateOwnCompany), h.Company.GetOwn)
				company.PUT("/profile", op(policy.OpUpdateOwnCompany), h.Company.UpdateOwn)
				company.POST("/access-requests", op(policy.OpRequestCollegeAccess), h.Company.RequestAccess)
				company.GET("/access-requests", op(policy.OpRequestCollegeAccess), h.Company.ListAccess)
			}

			// 学生管理
			students := authorized.Group("/students")
			{
				students.GET("", op(policy.OpListStudents), h.Student.List)
				students.POST("", op(policy.OpManageStudents), h.Student.Create)
				students.POST("/import", op(policy.OpManageStudents), h.Student.Import)
				students.GET("/:id", op(policy.OpViewStudent), h.Student.Get)
				students.PUT("/:id", op(policy.OpManageStudents), h.Student.Update)
				students.DELETE("/:id", op(policy.OpManageStudents), h.Student.Delete)
				students.POST("/:id/restore", op(policy.OpManageStudents, withDeleted), h.Student.Restore)
				students.PUT("/:id/review", op(policy.OpVerifyStudent), h.Student.Review)
				students.PUT("/:id/star", op(policy.OpVerifyStudent), h.Student.Star)
				students.PUT("/:id/placement", op(policy.OpManageStudents), h.Student.OverridePlacement)
			}

			// 学生本人
			student := authorized.Group("/student")
			{
				student.GET("/profile", op(policy.OpUpdateOwnProfile), h.Student.GetOwnProfile)
				student.PUT("/profile", op(policy.OpUpdateOwnProfile), h.Student.UpdateOwnProfile)
				student.GET("/eligible-jobs", op(policy.OpListEligibleJobs), h.Job.ListEligible)
			}

			// 职位
			jobs := authorized.Group("/jobs")
			{
				jobs.GET("", op(policy.OpListJobs), h.Job.List)
				jobs.POST("", op(policy.OpManageJobs), h.Job.Create)
				jobs.GET("/:id", op(policy.OpListJobs), h.Job.Get)
				jobs.PUT("/:id", op(policy.OpManageJobs), h.Job.Update)
				jobs.PUT("/:id/status", op(policy.OpManageJobs), h.Job.ChangeStatus)
				jobs.DELETE("/:id", op(policy.OpManageJobs), h.Job.Delete)
				jobs.POST("/:id/restore", op(policy.OpManageJobs, withDeleted), h.Job.Restore)
				jobs.POST("/:id/apply", op(policy.OpApply), h.Application.Apply)
				jobs.POST("/:id/shortlist", op(policy.OpShortlist), h.Application.Shortlist)
			}

			// 投递
			applications := authorized.Group("/applications")
			{
				applications.GET("", op(policy.OpViewApplications), h.Application.List)
				applications.GET("/:id", op(policy.OpViewApplications), h.Application.Get)
				applications.PUT("/:id/status", op(policy.OpMoveApplication), h.Application.UpdateStatus)
				applications.POST("/:id/interviews", op(policy.OpScheduleInterview), h.Application.ScheduleInterview)
				applications.GET("/:id/interviews/:interviewId/ics", op(policy.OpViewApplications), h.Application.InterviewICS)
				applications.POST("/:id/offer-response", op(policy.OpRespondToOffer), h.Application.RespondToOffer)
				applications.POST("/:id/withdraw", op(policy.OpWithdraw), h.Application.Withdraw)
			}

			// 导出
			export := authorized.Group("/export")
			{
				export.GET("/students", op(policy.OpExportStudents), h.Export.ExportStudents)
				export.GET("/candidates", op(policy.OpExportCandidates), h.Export.ExportStudents)
				export.GET("/jobs/:id/applicants", op(policy.OpManageJobs), h.Export.ExportApplicants)
			}

			// 平台治理（超级管理员）
			admin := authorized.Group("/admin")
			{
				admin.GET("/dashboard", op(policy.OpViewDashboard), h.Admin.Dashboard)
				admin.GET("/activity-logs", op(policy.OpViewActivityLogs), h.Admin.ListActivity)
				admin.POST("/reconcile", op(policy.OpReconcileStats), h.Admin.Reconcile)
				admin.GET("/settings", op(policy.OpManageSettings), h.Admin.GetSettings)
				admin.PUT("/settings", op(policy.OpManageSettings), h.Admin.UpdateSettings)

				admin.GET("/users/:id", op(policy.OpManageAccounts), h.User.GetUser)
				admin.PUT("/users/:id/active", op(policy.OpManageAccounts), h.Admin.SetUserActive)
				admin.POST("/users/:id/reset-password", op(policy.OpManageAccounts), h.User.ResetPassword)

				admin.PUT("/colleges/:id/review", op(policy.OpReviewCollege), h.Admin.ReviewCollege)
				admin.PUT("/colleges/:id/active", op(policy.OpManageAccounts), h.Admin.SetCollegeActive)
				admin.DELETE("/colleges/:id", op(policy.OpManageAccounts), h.Admin.DeleteCollege)
				admin.POST("/colleges/:id/restore", op(policy.OpManageAccounts, withDeleted), h.Admin.RestoreCollege)

				admin.PUT("/companies/:id/review", op(policy.OpReviewCompany), h.Admin.ReviewCompany)
				admin.PUT("/companies/:id/active", op(policy.OpManageAccounts), h.Admin.SetCompanyActive)
				admin.PUT("/companies/:id/suspend", op(policy.OpManageAccounts), h.Admin.SuspendCompany)
				admin.PUT("/companies/:id/download-limits", op(policy.OpManageAccounts), h.Admin.SetDownloadLimits)
				admin.DELETE("/companies/:id", op(policy.OpManageAccounts), h.Admin.DeleteCompany)
				admin.POST("/companies/:id/restore", op(policy.OpManageAccounts, withDeleted), h.Admin.RestoreCompany)
			}
		}
	}

	return r, nil
}

// readiness 就绪检查：数据库必须可用；Redis 已配置时一并检查
func readiness(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		checks := gin.H{}
		ready := true
		if deps.DB != nil {
			if err := deps.DB.PingContext(ctx); err != nil {
				checks["database"] = err.Error()
				ready = false
			} else {
				checks["database"] = "ok"
			}
		}
		if deps.Redis != nil {
			if err := deps.Redis.Ping(ctx); err != nil {
				checks["redis"] = err.Error()
				ready = false
			} else {
				checks["redis"] = "ok"
			}
		}

		if !ready {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "checks": checks})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "checks": checks})
	}
}
