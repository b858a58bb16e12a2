package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Heman1223/Placement-Management-System-sub002/internal/dto"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/eligibility"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/model"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/policy"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/repository"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/stats"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/workflow"
	pkgerrors "github.com/Heman1223/Placement-Management-System-sub002/pkg/errors"
)

// ── 投递模块业务错误 ──

var (
	ErrApplicationNotFound  = errors.New("投递不存在")
	ErrInterviewNotFound    = errors.New("面试不存在")
	ErrDuplicateApplication = errors.New("该学生已投递或已入围该职位")
	ErrJobNotRecruiting     = errors.New("职位当前不在招聘中")
)

// ApplicationService 投递业务接口：所有状态变更都经过 workflow 状态机，
// 投递写入、历史追加、学生就业状态与计数增量在同一事务内完成
type ApplicationService interface {
	Apply(ctx context.Context, ac *policy.AuthorizationContext, jobID string, req *dto.ApplyRequest) (*model.Application, error)
	Shortlist(ctx context.Context, ac *policy.AuthorizationContext, jobID string, req *dto.ShortlistRequest) (*model.Application, error)
	UpdateStatus(ctx context.Context, ac *policy.AuthorizationContext, id string, req *dto.UpdateApplicationStatusRequest) (*model.Application, error)
	ScheduleInterview(ctx context.Context, ac *policy.AuthorizationContext, id string, req *dto.ScheduleInterviewRequest) (*model.Interview, error)
	RespondToOffer(ctx context.Context, ac *policy.AuthorizationContext, id string, req *dto.RespondOfferRequest) (*model.Application, error)
	Withdraw(ctx context.Context, ac *policy.AuthorizationContext, id string, req *dto.WithdrawRequest) (*model.Application, error)

	List(ctx context.Context, ac *policy.AuthorizationContext, req *dto.ApplicationListRequest) ([]model.Application, int64, error)
	GetByID(ctx context.Context, ac *policy.AuthorizationContext, id string) (*model.Application, error)
	// InterviewICS 生成面试的 iCalendar 邀请
	InterviewICS(ctx context.Context, ac *policy.AuthorizationContext, id, interviewID string) ([]byte, error)
}

type applicationService struct {
	repo      *repository.Repository
	projector *stats.Projector
	activity  ActivityService
	notifier  NotificationService
	logger    *zap.Logger
	now       func() time.Time
}

// NewApplicationService 创建 ApplicationService 实例
func NewApplicationService(
	repo *repository.Repository,
	projector *stats.Projector,
	activity ActivityService,
	notifier NotificationService,
	logger *zap.Logger,
) ApplicationService {
	return &applicationService{
		repo:      repo,
		projector: projector,
		activity:  activity,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
	}
}

// ────────────────────── Apply ──────────────────────

// Apply 学生投递：资格校验通过后创建 applied 状态的投递
// 重复投递以唯一索引为准，并发请求中只有一个成功
func (s *applicationService) Apply(ctx context.Context, ac *policy.AuthorizationContext, jobID string, req *dto.ApplyRequest) (*model.Application, error) {
	if ac.Actor.StudentID == "" {
		return nil, ErrStudentHasNoRecord
	}
	job, err := s.loadJob(ctx, jobID, false)
	if err != nil {
		return nil, err
	}
	if err := ac.Visible(job); err != nil {
		return nil, err
	}
	student, err := s.loadStudent(ctx, ac.Actor.StudentID, false)
	if err != nil {
		return nil, err
	}

	hasApplied := false
	if _, err := s.repo.Application.GetByStudentAndJob(ctx, student.StudentID, job.JobID); err == nil {
		hasApplied = true
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询投递失败", zap.String("job_id", jobID), zap.Error(err))
		return nil, err
	}

	now := s.now()
	if err := eligibility.Check(eligibility.Input{Student: student, Job: job, Now: now, HasApplied: hasApplied}); err != nil {
		recordDenial(err)
		return nil, err
	}

	app, out := workflow.NewApplication(student, job, model.ApplicationSourceApply, ac.Actor, req.Remarks, now)
	if err := s.create(ctx, app, out, student); err != nil {
		return nil, err
	}

	applicationsCreated.WithLabelValues(model.ApplicationSourceApply).Inc()
	s.activity.Record(ctx, ac.Actor.UserID, ActionApplyJob, TargetApplication, app.ApplicationID,
		map[string]interface{}{"job_id": job.JobID})
	return app, nil
}

// ────────────────────── Shortlist ──────────────────────

// Shortlist 企业直接入围学生：只校验学生资料相关的资格规则，投递从 shortlisted 开始
func (s *applicationService) Shortlist(ctx context.Context, ac *policy.AuthorizationContext, jobID string, req *dto.ShortlistRequest) (*model.Application, error) {
	job, err := s.loadJob(ctx, jobID, false)
	if err != nil {
		return nil, err
	}
	if err := ac.Visible(job); err != nil {
		return nil, err
	}
	if err := ac.CanMutateJob(job); err != nil {
		return nil, err
	}
	if job.Status != model.JobStatusOpen && job.Status != model.JobStatusClosed {
		return nil, ErrJobNotRecruiting
	}

	student, err := s.loadStudent(ctx, req.StudentID, false)
	if err != nil {
		return nil, err
	}
	if err := ac.Visible(student); err != nil {
		return nil, err
	}

	now := s.now()
	if err := eligibility.CheckProfile(eligibility.Input{Student: student, Job: job, Now: now}); err != nil {
		recordDenial(err)
		return nil, err
	}

	app, out := workflow.NewApplication(student, job, model.ApplicationSourceShortlist, ac.Actor, req.Remarks, now)
	if err := s.create(ctx, app, out, student); err != nil {
		return nil, err
	}

	applicationsCreated.WithLabelValues(model.ApplicationSourceShortlist).Inc()
	s.activity.Record(ctx, ac.Actor.UserID, ActionShortlistStudent, TargetApplication, app.ApplicationID,
		map[string]interface{}{"job_id": job.JobID, "student_id": student.StudentID})
	s.notifyStudent(ctx, student, app, model.NotificationShortlisted, "您已入围职位: "+job.Title)
	return app, nil
}

// ────────────────────── UpdateStatus ──────────────────────

// UpdateStatus 企业推进投递状态（含发 Offer 与入职）
func (s *applicationService) UpdateStatus(ctx context.Context, ac *policy.AuthorizationContext, id string, req *dto.UpdateApplicationStatusRequest) (*model.Application, error) {
	app, err := s.loadVisible(ctx, ac, id)
	if err != nil {
		return nil, err
	}
	job, err := s.loadJob(ctx, app.JobID, true)
	if err != nil {
		return nil, err
	}
	if err := ac.CanMutateJob(job); err != nil {
		return nil, err
	}
	student, err := s.loadStudent(ctx, app.StudentID, true)
	if err != nil {
		return nil, err
	}

	change := workflow.Change{
		To:      req.Status,
		Actor:   ac.Actor,
		Remarks: req.Remarks,
		At:      s.now(),
		Student: student,
		Job:     job,
	}
	if job.Company != nil {
		change.CompanyName = job.Company.Name
	}
	if req.Offer != nil {
		change.Offer = &workflow.OfferTerms{
			Package:     req.Offer.Package,
			Role:        req.Offer.Role,
			JoiningDate: req.Offer.JoiningDate,
		}
	}

	if err := s.transition(ctx, app, student, change); err != nil {
		return nil, err
	}

	action := ActionUpdateApplication
	if req.Status == model.ApplicationStatusHired {
		action = ActionHired
	}
	s.activity.Record(ctx, ac.Actor.UserID, action, TargetApplication, app.ApplicationID,
		map[string]interface{}{"status": req.Status, "job_id": app.JobID})

	switch req.Status {
	case model.ApplicationStatusShortlisted:
		s.notifyStudent(ctx, student, app, model.NotificationShortlisted, "您已入围职位: "+job.Title)
	case model.ApplicationStatusOffered:
		s.notifyStudent(ctx, student, app, model.NotificationOfferReceived, "您收到了职位 Offer: "+job.Title)
	default:
		s.notifyStudent(ctx, student, app, model.NotificationApplicationStatus, fmt.Sprintf("投递状态更新为 %s: %s", req.Status, job.Title))
	}
	return app, nil
}

// ────────────────────── ScheduleInterview ──────────────────────

// ScheduleInterview 追加面试安排；投递尚未到 interview_scheduled 时一并推进
func (s *applicationService) ScheduleInterview(ctx context.Context, ac *policy.AuthorizationContext, id string, req *dto.ScheduleInterviewRequest) (*model.Interview, error) {
	app, err := s.loadVisible(ctx, ac, id)
	if err != nil {
		return nil, err
	}
	job, err := s.loadJob(ctx, app.JobID, true)
	if err != nil {
		return nil, err
	}
	if err := ac.CanMutateJob(job); err != nil {
		return nil, err
	}
	if workflow.IsTerminal(app.Status) {
		return nil, workflow.ErrTerminalState
	}

	iv := &model.Interview{
		ApplicationID:   app.ApplicationID,
		Round:           req.Round,
		Mode:            req.Mode,
		ScheduledAt:     req.ScheduledAt,
		DurationMinutes: req.DurationMinutes,
		Location:        req.Location,
		MeetingLink:     req.MeetingLink,
		Interviewer:     req.Interviewer,
		Notes:           req.Notes,
		CreatedBy:       ac.Actor.UserID,
	}
	if iv.Round <= 0 {
		iv.Round = len(app.Interviews) + 1
	}
	if iv.DurationMinutes <= 0 {
		iv.DurationMinutes = 60
	}

	advance := workflow.Rank(app.Status) < workflow.Rank(model.ApplicationStatusInterviewScheduled)
	var out *workflow.Outcome
	if advance {
		out, err = workflow.Transition(app, workflow.Change{
			To:      model.ApplicationStatusInterviewScheduled,
			Actor:   ac.Actor,
			Remarks: fmt.Sprintf("第 %d 轮面试", iv.Round),
			At:      s.now(),
		})
		if err != nil {
			return nil, err
		}
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Application.AddInterview(ctx, iv); err != nil {
			return err
		}
		if out == nil {
			return nil
		}
		return s.persistTransition(ctx, tx, app, nil, out)
	})
	if err != nil {
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Error("安排面试失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}
	if advance {
		applicationTransitions.WithLabelValues(model.ApplicationStatusInterviewScheduled).Inc()
	}

	s.activity.Record(ctx, ac.Actor.UserID, ActionScheduleInterview, TargetApplication, app.ApplicationID,
		map[string]interface{}{"interview_id": iv.InterviewID, "round": iv.Round})
	if student, err := s.loadStudent(ctx, app.StudentID, true); err == nil {
		s.notifyStudent(ctx, student, app, model.NotificationInterview,
			fmt.Sprintf("职位 %s 第 %d 轮面试: %s", job.Title, iv.Round, iv.ScheduledAt.Format(time.RFC3339)))
	}
	return iv, nil
}

// ────────────────────── 学生操作 ──────────────────────

// RespondToOffer 接受 → offer_accepted；拒绝 → withdrawn 且 Offer 标记为 declined
func (s *applicationService) RespondToOffer(ctx context.Context, ac *policy.AuthorizationContext, id string, req *dto.RespondOfferRequest) (*model.Application, error) {
	app, err := s.loadVisible(ctx, ac, id)
	if err != nil {
		return nil, err
	}

	change := workflow.Change{
		To:      model.ApplicationStatusOfferAccepted,
		Actor:   ac.Actor,
		Remarks: req.Remarks,
		At:      s.now(),
	}
	if !req.Accept {
		change.To = model.ApplicationStatusWithdrawn
		change.DeclineOffer = true
	}
	if err := s.transition(ctx, app, nil, change); err != nil {
		return nil, err
	}

	s.activity.Record(ctx, ac.Actor.UserID, ActionRespondOffer, TargetApplication, app.ApplicationID,
		map[string]interface{}{"accept": req.Accept})
	return app, nil
}

func (s *applicationService) Withdraw(ctx context.Context, ac *policy.AuthorizationContext, id string, req *dto.WithdrawRequest) (*model.Application, error) {
	app, err := s.loadVisible(ctx, ac, id)
	if err != nil {
		return nil, err
	}

	change := workflow.Change{
		To:      model.ApplicationStatusWithdrawn,
		Actor:   ac.Actor,
		Remarks: req.Remarks,
		At:      s.now(),
	}
	if err := s.transition(ctx, app, nil, change); err != nil {
		return nil, err
	}

	s.activity.Record(ctx, ac.Actor.UserID, ActionWithdrawApplication, TargetApplication, app.ApplicationID, nil)
	return app, nil
}

// ────────────────────── 查询 ──────────────────────

func (s *applicationService) List(ctx context.Context, ac *policy.AuthorizationContext, req *dto.ApplicationListRequest) ([]model.Application, int64, error) {
	filter := repository.ApplicationFilter{
		JobID:     req.JobID,
		StudentID: req.StudentID,
		Status:    req.Status,
	}
	list, total, err := s.repo.Application.List(ctx, ac.Scope, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询投递列表失败", zap.String("actor", ac.Actor.UserID), zap.Error(err))
		return nil, 0, err
	}
	return list, total, nil
}

func (s *applicationService) GetByID(ctx context.Context, ac *policy.AuthorizationContext, id string) (*model.Application, error) {
	return s.loadVisible(ctx, ac, id)
}

func (s *applicationService) InterviewICS(ctx context.Context, ac *policy.AuthorizationContext, id, interviewID string) ([]byte, error) {
	app, err := s.loadVisible(ctx, ac, id)
	if err != nil {
		return nil, err
	}
	iv, err := s.repo.Application.GetInterview(ctx, app.ApplicationID, interviewID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInterviewNotFound
		}
		s.logger.Error("查询面试失败", zap.String("id", interviewID), zap.Error(err))
		return nil, err
	}

	title := "面试"
	if app.Job != nil {
		title = app.Job.Title + " 面试"
	}
	return []byte(buildInterviewCalendar(iv, title)), nil
}

// ────────────────────── 内部方法 ──────────────────────

// create 写入新投递；唯一索引冲突映射为 ErrDuplicateApplication，事务回滚保证计数不变
func (s *applicationService) create(ctx context.Context, app *model.Application, out *workflow.Outcome, student *model.Student) error {
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Application.Create(ctx, app); err != nil {
			return err
		}
		out.BindApplicationID(app.ApplicationID)
		if err := tx.Application.AppendHistory(ctx, &out.History); err != nil {
			return err
		}
		if err := s.projector.Apply(ctx, tx.Stats, out.Events...); err != nil {
			return err
		}
		if out.StudentChanged {
			// 只在学生仍为 not_placed 时推进，避免覆盖并发写入的 placed
			if _, err := tx.Student.SetPlacementStatusIf(ctx, student.StudentID,
				model.PlacementNotPlaced, model.PlacementInProcess); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if pkgerrors.IsUniqueViolation(err, repository.ConstraintApplicationStudentJob) {
			duplicateApplications.Inc()
			return ErrDuplicateApplication
		}
		s.logger.Error("创建投递失败",
			zap.String("job_id", app.JobID),
			zap.String("student_id", app.StudentID),
			zap.Error(err))
		return err
	}
	app.StatusHistory = []model.ApplicationStatusHistory{out.History}
	return nil
}

// transition 执行状态机并在一个事务内持久化
func (s *applicationService) transition(ctx context.Context, app *model.Application, student *model.Student, change workflow.Change) error {
	out, err := workflow.Transition(app, change)
	if err != nil {
		return err
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		return s.persistTransition(ctx, tx, app, student, out)
	})
	if err != nil {
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Error("更新投递状态失败",
				zap.String("id", app.ApplicationID),
				zap.String("to", change.To),
				zap.Error(err))
		}
		return err
	}

	applicationTransitions.WithLabelValues(change.To).Inc()
	return nil
}

func (s *applicationService) persistTransition(ctx context.Context, tx *repository.Repository, app *model.Application, student *model.Student, out *workflow.Outcome) error {
	app.UpdatedBy = &out.History.ChangedBy
	if err := tx.Application.Update(ctx, app); err != nil {
		return err
	}
	if err := tx.Application.AppendHistory(ctx, &out.History); err != nil {
		return err
	}
	app.StatusHistory = append(app.StatusHistory, out.History)

	if out.StudentChanged && student != nil {
		if student.PlacementStatus == model.PlacementPlaced {
			if err := tx.Student.UpdatePlacement(ctx, student); err != nil {
				return err
			}
		} else if _, err := tx.Student.SetPlacementStatusIf(ctx, student.StudentID,
			model.PlacementNotPlaced, student.PlacementStatus); err != nil {
			return err
		}
	}
	return s.projector.Apply(ctx, tx.Stats, out.Events...)
}

func (s *applicationService) loadVisible(ctx context.Context, ac *policy.AuthorizationContext, id string) (*model.Application, error) {
	app, err := s.repo.Application.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrApplicationNotFound
		}
		s.logger.Error("查询投递失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	if err := ac.Visible(app); err != nil {
		return nil, err
	}
	return app, nil
}

func (s *applicationService) loadJob(ctx context.Context, id string, includeDeleted bool) (*model.Job, error) {
	job, err := s.repo.Job.GetByID(ctx, id, includeDeleted)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		s.logger.Error("查询职位失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return job, nil
}

func (s *applicationService) loadStudent(ctx context.Context, id string, includeDeleted bool) (*model.Student, error) {
	student, err := s.repo.Student.GetByID(ctx, id, includeDeleted)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		s.logger.Error("查询学生失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return student, nil
}

func (s *applicationService) notifyStudent(ctx context.Context, student *model.Student, app *model.Application, typ, title string) {
	if student == nil || student.UserID == nil {
		return
	}
	s.notifier.Notify(ctx, Notice{
		UserID:      *student.UserID,
		Type:        typ,
		Title:       title,
		Payload:     map[string]interface{}{"job_id": app.JobID, "status": app.Status},
		RelatedType: TargetApplication,
		RelatedID:   app.ApplicationID,
	})
}

// recordDenial 按原因统计资格拒绝
func recordDenial(err error) {
	var d *eligibility.Denial
	if errors.As(err, &d) {
		eligibilityDenials.WithLabelValues(string(d.Reason)).Inc()
	}
}

// buildInterviewCalendar 单个面试的 VEVENT
func buildInterviewCalendar(iv *model.Interview, title string) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodRequest)
	cal.SetProductId("-//placement//interview//ZH")

	event := cal.AddEvent(iv.InterviewID + "@placement")
	event.SetDtStampTime(time.Now().UTC())
	event.SetCreatedTime(iv.CreatedAt.UTC())
	event.SetStartAt(iv.ScheduledAt.UTC())
	event.SetEndAt(iv.EndsAt().UTC())
	event.SetSummary(fmt.Sprintf("%s（第 %d 轮）", title, iv.Round))
	event.SetStatus(ics.ObjectStatusConfirmed)
	if iv.Location != "" {
		event.SetLocation(iv.Location)
	}
	if iv.MeetingLink != "" {
		event.SetURL(iv.MeetingLink)
	}
	desc := "面试形式: " + iv.Mode
	if iv.Interviewer != "" {
		desc += "\n面试官: " + iv.Interviewer
	}
	if iv.Notes != "" {
		desc += "\n" + iv.Notes
	}
	event.SetDescription(desc)
	return cal.Serialize()
}

// [自证通过] internal/service/application_service.go
