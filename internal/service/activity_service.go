package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/Heman1223/Placement-Management-System-sub002/internal/dto"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/model"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/repository"
)

// 操作日志动作
const (
	ActionRegister            = "register"
	ActionReviewCollege       = "review_college"
	ActionReviewCompany       = "review_company"
	ActionSetUserActive       = "set_user_active"
	ActionSetCollegeActive    = "set_college_active"
	ActionSetCompanyActive    = "set_company_active"
	ActionSuspendCompany      = "suspend_company"
	ActionDeleteCollege       = "delete_college"
	ActionDeleteCompany       = "delete_company"
	ActionRestoreCollege      = "restore_college"
	ActionRestoreCompany      = "restore_company"
	ActionUpdateSettings      = "update_settings"
	ActionUpdateCollege       = "update_college"
	ActionUpdateCompany       = "update_company"
	ActionRequestAccess       = "request_college_access"
	ActionReviewAccess        = "review_college_access"
	ActionCreateStudent       = "create_student"
	ActionUpdateStudent       = "update_student"
	ActionImportStudents      = "import_students"
	ActionVerifyStudent       = "verify_student"
	ActionStarStudent         = "star_student"
	ActionDeleteStudent       = "delete_student"
	ActionRestoreStudent      = "restore_student"
	ActionOverridePlacement   = "override_placement_status"
	ActionExportStudents      = "export_students"
	ActionCreateJob           = "create_job"
	ActionUpdateJob           = "update_job"
	ActionChangeJobStatus     = "change_job_status"
	ActionDeleteJob           = "delete_job"
	ActionRestoreJob          = "restore_job"
	ActionApplyJob            = "apply_job"
	ActionShortlistStudent    = "shortlist_student"
	ActionUpdateApplication   = "update_application_status"
	ActionHired               = "hired"
	ActionScheduleInterview   = "schedule_interview"
	ActionRespondOffer        = "respond_offer"
	ActionWithdrawApplication = "withdraw_application"
	ActionReconcileStats      = "reconcile_stats"
	ActionCloseExpiredJobs    = "close_expired_jobs"
	ActionSetDownloadLimit    = "set_download_limit"
	ActionResetPassword       = "reset_password"
)

// 操作日志目标类型
const (
	TargetUser        = "user"
	TargetCollege     = "college"
	TargetCompany     = "company"
	TargetAccess      = "college_access"
	TargetStudent     = "student"
	TargetJob         = "job"
	TargetApplication = "application"
	TargetSettings    = "platform_settings"
)

// ActivityService 操作日志
// Record 只记录不返回错误，写入失败不影响主操作
type ActivityService interface {
	Record(ctx context.Context, actorID, action, targetModel, targetID string, metadata map[string]interface{})
	List(ctx context.Context, req *dto.ActivityLogListRequest) ([]model.ActivityLog, int64, error)
}

type activityService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewActivityService 创建 ActivityService 实例
func NewActivityService(repo *repository.Repository, logger *zap.Logger) ActivityService {
	return &activityService{repo: repo, logger: logger}
}

func (s *activityService) Record(ctx context.Context, actorID, action, targetModel, targetID string, metadata map[string]interface{}) {
	log := &model.ActivityLog{
		ActorID: actorID,
		Action:  action,
	}
	if targetModel != "" {
		log.TargetModel = &targetModel
	}
	if targetID != "" {
		log.TargetID = &targetID
	}
	if len(metadata) > 0 {
		raw, err := json.Marshal(metadata)
		if err != nil {
			s.logger.Warn("操作日志元数据序列化失败", zap.String("action", action), zap.Error(err))
		} else {
			log.Metadata = datatypes.JSON(raw)
		}
	}

	// 请求取消不影响日志写入
	if err := s.repo.ActivityLog.Create(context.WithoutCancel(ctx), log); err != nil {
		s.logger.Warn("写入操作日志失败",
			zap.String("actor_id", actorID),
			zap.String("action", action),
			zap.String("target_id", targetID),
			zap.Error(err))
	}
}

func (s *activityService) List(ctx context.Context, req *dto.ActivityLogListRequest) ([]model.ActivityLog, int64, error) {
	filter := repository.ActivityLogFilter{
		ActorID:     req.ActorID,
		Action:      req.Action,
		TargetModel: req.TargetModel,
		TargetID:    req.TargetID,
		From:        req.From,
		To:          req.To,
	}
	logs, total, err := s.repo.ActivityLog.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询操作日志失败", zap.Error(err))
		return nil, 0, err
	}
	return logs, total, nil
}
