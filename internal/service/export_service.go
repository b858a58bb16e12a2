package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Heman1223/Placement-Management-System-sub002/internal/dto"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/model"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/policy"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/repository"
)

// 单次导出的最大行数
const maxExportRows = 5000

// ── 导出模块业务错误 ──

var (
	ErrExportNoData          = errors.New("没有可导出的数据")
	ErrExportGenerateFail    = errors.New("生成 Excel 文件失败")
	ErrDownloadLimitExceeded = errors.New("学生数据下载额度已用完")
	ErrExportTooManyRows     = fmt.Errorf("导出行数超过上限 %d 行，请缩小筛选范围", maxExportRows)
	ErrExportCompanyRequired = errors.New("仅企业账号受下载额度约束")
)

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置下载响应头
// 企业导出计入下载额度（按导出学生数扣减，日/月滚动重置）；学院导出本校学生不受限
type ExportService interface {
	ExportStudents(ctx context.Context, ac *policy.AuthorizationContext, req *dto.StudentListRequest) (*bytes.Buffer, string, error)
	ExportApplicants(ctx context.Context, ac *policy.AuthorizationContext, jobID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo     *repository.Repository
	students StudentService
	settings *SettingsHolder
	activity ActivityService
	logger   *zap.Logger
	now      func() time.Time
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, students StudentService, settings *SettingsHolder, activity ActivityService, logger *zap.Logger) ExportService {
	return &exportService{
		repo:     repo,
		students: students,
		settings: settings,
		activity: activity,
		logger:   logger,
		now:      time.Now,
	}
}

// ExportStudents 按列表筛选条件导出学生；可见范围与联系方式脱敏复用学生列表规则
func (s *exportService) ExportStudents(ctx context.Context, ac *policy.AuthorizationContext, req *dto.StudentListRequest) (*bytes.Buffer, string, error) {
	students, err := s.collectStudents(ctx, ac, *req)
	if err != nil {
		return nil, "", err
	}
	if len(students) == 0 {
		return nil, "", ErrExportNoData
	}
	if ac.Actor.Role == model.RoleCompany {
		if err := s.consumeQuota(ctx, ac.Actor.CompanyID, len(students)); err != nil {
			return nil, "", err
		}
	}

	rows := make([][]interface{}, 0, len(students))
	for i := range students {
		rows = append(rows, studentRow(&students[i]))
	}
	buf, err := s.render("学生名单", studentHeaders, rows)
	if err != nil {
		return nil, "", err
	}

	s.activity.Record(ctx, ac.Actor.UserID, ActionExportStudents, TargetStudent, "",
		map[string]interface{}{"rows": len(students)})
	return buf, fmt.Sprintf("学生名单_%s.xlsx", s.now().Format("20060102")), nil
}

// ExportApplicants 导出职位的投递者（含投递时简历快照）
func (s *exportService) ExportApplicants(ctx context.Context, ac *policy.AuthorizationContext, jobID string) (*bytes.Buffer, string, error) {
	job, err := s.repo.Job.GetByID(ctx, jobID, false)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrJobNotFound
		}
		s.logger.Error("查询职位失败", zap.String("id", jobID), zap.Error(err))
		return nil, "", err
	}
	if err := ac.Visible(job); err != nil {
		return nil, "", err
	}
	if err := ac.CanMutateJob(job); err != nil {
		return nil, "", err
	}

	apps, total, err := s.repo.Application.List(ctx, ac.Scope, repository.ApplicationFilter{JobID: jobID}, 0, maxExportRows)
	if err != nil {
		s.logger.Error("查询投递列表失败", zap.String("job_id", jobID), zap.Error(err))
		return nil, "", err
	}
	if total > maxExportRows {
		return nil, "", ErrExportTooManyRows
	}
	if len(apps) == 0 {
		return nil, "", ErrExportNoData
	}
	if ac.Actor.Role == model.RoleCompany {
		if err := s.consumeQuota(ctx, ac.Actor.CompanyID, len(apps)); err != nil {
			return nil, "", err
		}
	}

	hideContact := ac.Actor.Role == model.RoleCompany && !s.settings.Current().ShowStudentContact
	rows := make([][]interface{}, 0, len(apps))
	for i := range apps {
		rows = append(rows, applicantRow(&apps[i], hideContact))
	}
	buf, err := s.render("投递者", applicantHeaders, rows)
	if err != nil {
		return nil, "", err
	}

	s.activity.Record(ctx, ac.Actor.UserID, ActionExportStudents, TargetJob, jobID,
		map[string]interface{}{"rows": len(apps)})
	return buf, fmt.Sprintf("投递者_%s_%s.xlsx", sanitizeFilename(job.Title), s.now().Format("20060102")), nil
}

// ────────────────────── 下载额度 ──────────────────────

// consumeQuota 行锁读取企业下载计数，滚动窗口后扣减 n；额度不足时整体拒绝
func (s *exportService) consumeQuota(ctx context.Context, companyID string, n int) error {
	if companyID == "" {
		return ErrExportCompanyRequired
	}
	settings := s.settings.Current()

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		company, err := tx.Company.GetForUpdate(ctx, companyID)
		if err != nil {
			return err
		}
		d := company.Downloads
		d.Roll(s.now())

		daily, monthly := settings.DailyDownloadLimit, settings.MonthlyDownloadLimit
		if d.DailyLimit != nil {
			daily = *d.DailyLimit
		}
		if d.MonthlyLimit != nil {
			monthly = *d.MonthlyLimit
		}
		if d.DailyCount+n > daily || d.MonthlyCount+n > monthly {
			return ErrDownloadLimitExceeded
		}

		d.DailyCount += n
		d.MonthlyCount += n
		return tx.Company.UpdateDownloads(ctx, companyID, d)
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrDownloadLimitExceeded):
			return err
		case errors.Is(err, gorm.ErrRecordNotFound):
			return ErrCompanyNotFound
		}
		s.logger.Error("扣减下载额度失败", zap.String("company_id", companyID), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── 内部方法 ──────────────────────

// collectStudents 逐页读取学生列表直到取完
func (s *exportService) collectStudents(ctx context.Context, ac *policy.AuthorizationContext, req dto.StudentListRequest) ([]model.Student, error) {
	req.PageSize = 100
	var all []model.Student
	for page := 1; ; page++ {
		req.Page = page
		list, total, err := s.students.List(ctx, ac, &req)
		if err != nil {
			return nil, err
		}
		if total > maxExportRows {
			return nil, ErrExportTooManyRows
		}
		all = append(all, list...)
		if len(list) < req.PageSize || int64(len(all)) >= total {
			return all, nil
		}
	}
}

var studentHeaders = []string{"姓名", "邮箱", "电话", "学号", "专业", "届别", "CGPA", "当前挂科", "技能", "就业状态", "已审核"}

func studentRow(st *model.Student) []interface{} {
	return []interface{}{
		st.Name,
		st.Email,
		st.Phone,
		st.RollNumber,
		st.Department,
		st.Batch,
		st.CGPA,
		st.Backlogs.Active,
		strings.Join(st.Skills, ","),
		st.PlacementStatus,
		yesNo(st.IsVerified),
	}
}

var applicantHeaders = []string{"姓名", "邮箱", "电话", "专业", "届别", "CGPA", "当前挂科", "技能", "简历", "状态", "投递时间"}

func applicantRow(app *model.Application, hideContact bool) []interface{} {
	snap := app.ResumeSnapshot.Data()
	name, email, phone := "", "", ""
	if app.Student != nil {
		name, email, phone = app.Student.Name, app.Student.Email, app.Student.Phone
	}
	if hideContact {
		email, phone = "", ""
	}
	return []interface{}{
		name,
		email,
		phone,
		snap.Department,
		snap.Batch,
		snap.CGPA,
		snap.ActiveBacklogs,
		strings.Join(snap.Skills, ","),
		snap.ResumeURL,
		app.Status,
		app.AppliedAt.Format("2006-01-02 15:04"),
	}
}

// render 单工作表：首行表头，其余为数据行
func (s *exportService) render(sheetName string, headers []string, rows [][]interface{}) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		s.logger.Error("创建工作表失败", zap.Error(err))
		return nil, ErrExportGenerateFail
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	for i, h := range headers {
		c := cell(colName(i), 1)
		f.SetCellValue(sheetName, c, h)
		f.SetCellStyle(sheetName, c, c, headerStyle)
		f.SetColWidth(sheetName, colName(i), colName(i), 16)
	}
	for r, row := range rows {
		for i, v := range row {
			f.SetCellValue(sheetName, cell(colName(i), r+2), v)
		}
	}
	f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, ErrExportGenerateFail
	}
	return buf, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func yesNo(b bool) string {
	if b {
		return "是"
	}
	return "否"
}

func sanitizeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, s)
}
