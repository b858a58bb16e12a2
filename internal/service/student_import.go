package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Heman1223/Placement-Management-System-sub002/internal/dto"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/model"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/policy"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/repository"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/workflow"
	pkgerrors "github.com/Heman1223/Placement-Management-System-sub002/pkg/errors"
)

// ────────────────────── 学生批量导入 ──────────────────────

const maxImportRows = 1000

var (
	ErrImportNoData      = errors.New("Excel文件无数据行（第一行为表头）")
	ErrImportTooManyRows = fmt.Errorf("数据行数超过上限 %d 行", maxImportRows)
	ErrImportBadHeader   = errors.New("Excel表头缺少必要列（姓名/邮箱/学号/专业/届别）")
)

// ImportStudentRow Excel 导入解析后的单行数据
type ImportStudentRow struct {
	Row            int
	Name           string
	Email          string
	Phone          string
	RollNumber     string
	Department     string
	Batch          string
	CGPA           string
	ActiveBacklogs string
	TotalBacklogs  string
	Skills         string
}

// 表头别名 → 列键
var importHeaders = map[string]string{
	"姓名":              "name",
	"name":            "name",
	"邮箱":              "email",
	"email":           "email",
	"电话":              "phone",
	"phone":           "phone",
	"学号":              "roll_number",
	"roll_number":     "roll_number",
	"专业":              "department",
	"department":      "department",
	"届别":              "batch",
	"batch":           "batch",
	"cgpa":            "cgpa",
	"当前挂科":            "active_backlogs",
	"active_backlogs": "active_backlogs",
	"累计挂科":            "total_backlogs",
	"total_backlogs":  "total_backlogs",
	"技能":              "skills",
	"skills":          "skills",
}

var requiredImportColumns = []string{"name", "email", "roll_number", "department", "batch"}

// ParseStudentImportFile 解析导入 Excel 文件（第一个工作表，首行为表头，列序不限）
func ParseStudentImportFile(reader io.Reader) ([]ImportStudentRow, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("无法解析Excel文件: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	excelRows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("读取工作表失败: %w", err)
	}
	if len(excelRows) < 2 {
		return nil, ErrImportNoData
	}

	colIndex := parseImportHeader(excelRows[0])
	for _, key := range requiredImportColumns {
		if _, ok := colIndex[key]; !ok {
			return nil, ErrImportBadHeader
		}
	}

	cell := func(row []string, key string) string {
		idx, ok := colIndex[key]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var rows []ImportStudentRow
	for i := 1; i < len(excelRows); i++ {
		r := excelRows[i]
		item := ImportStudentRow{
			Row:            i + 1,
			Name:           cell(r, "name"),
			Email:          cell(r, "email"),
			Phone:          cell(r, "phone"),
			RollNumber:     cell(r, "roll_number"),
			Department:     cell(r, "department"),
			Batch:          cell(r, "batch"),
			CGPA:           cell(r, "cgpa"),
			ActiveBacklogs: cell(r, "active_backlogs"),
			TotalBacklogs:  cell(r, "total_backlogs"),
			Skills:         cell(r, "skills"),
		}
		// 跳过全空行
		if item.Name == "" && item.Email == "" && item.RollNumber == "" {
			continue
		}
		rows = append(rows, item)
	}

	if len(rows) == 0 {
		return nil, ErrImportNoData
	}
	if len(rows) > maxImportRows {
		return nil, ErrImportTooManyRows
	}
	return rows, nil
}

func parseImportHeader(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		if key, ok := importHeaders[strings.ToLower(strings.TrimSpace(h))]; ok {
			if _, dup := idx[key]; !dup {
				idx[key] = i
			}
		}
	}
	return idx
}

// Import 批量导入学生
// 第一阶段只做数据校验；第二阶段逐行在独立事务中写入，某行冲突不影响其他行
func (s *studentService) Import(ctx context.Context, ac *policy.AuthorizationContext, collegeID string, rows []ImportStudentRow) (*dto.ImportResult, error) {
	if !ac.Scope.Unrestricted {
		collegeID = ac.Actor.CollegeID
	}
	if collegeID == "" {
		return nil, ErrCollegeRequired
	}
	college, err := s.repo.College.GetByID(ctx, collegeID, false)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCollegeNotFound
		}
		s.logger.Error("查询学院失败", zap.String("id", collegeID), zap.Error(err))
		return nil, err
	}

	resp := &dto.ImportResult{Total: len(rows)}
	fail := func(row int, reason string) {
		resp.Failed++
		resp.Errors = append(resp.Errors, dto.ImportError{Row: row, Reason: reason})
	}

	// 第一阶段：数据预校验
	now := time.Now()
	callerID := ac.Actor.UserID
	seenRoll := make(map[string]bool, len(rows))
	seenEmail := make(map[string]bool, len(rows))
	var valid []*model.Student
	var validRows []int

	for _, row := range rows {
		student, reason := buildImportedStudent(row, college)
		if reason != "" {
			fail(row.Row, reason)
			continue
		}
		if seenRoll[student.RollNumber] {
			fail(row.Row, fmt.Sprintf("文件内学号重复: %s", student.RollNumber))
			continue
		}
		if seenEmail[student.Email] {
			fail(row.Row, fmt.Sprintf("文件内邮箱重复: %s", student.Email))
			continue
		}
		seenRoll[student.RollNumber] = true
		seenEmail[student.Email] = true

		student.VerifiedAt = &now
		student.VerifiedBy = &callerID
		student.CreatedBy = &callerID
		valid = append(valid, student)
		validRows = append(validRows, row.Row)
	}

	// 第二阶段：逐行写入
	for i, student := range valid {
		err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			if err := tx.Student.Create(ctx, student); err != nil {
				return err
			}
			return s.projector.Apply(ctx, tx.Stats, workflow.StudentEnrolled{
				StudentID: student.StudentID,
				CollegeID: student.CollegeID,
				Verified:  true,
			})
		})
		if err != nil {
			if uv, ok := pkgerrors.AsUniqueViolation(err); ok {
				switch uv.Constraint {
				case repository.ConstraintStudentRoll:
					fail(validRows[i], fmt.Sprintf("学号已存在: %s", student.RollNumber))
				default:
					fail(validRows[i], fmt.Sprintf("邮箱已存在: %s", student.Email))
				}
				continue
			}
			if pkgerrors.IsUnavailable(err) {
				return nil, err
			}
			s.logger.Error("导入学生写入失败", zap.Int("row", validRows[i]), zap.Error(err))
			fail(validRows[i], "写入数据库失败")
			continue
		}
		resp.Success++
	}

	s.activity.Record(ctx, callerID, ActionImportStudents, TargetCollege, college.CollegeID,
		map[string]interface{}{"total": resp.Total, "success": resp.Success, "failed": resp.Failed})
	return resp, nil
}

// buildImportedStudent 校验单行并转换为学生记录；返回非空 reason 表示该行无效
func buildImportedStudent(row ImportStudentRow, college *model.College) (*model.Student, string) {
	if row.Name == "" || row.Email == "" || row.RollNumber == "" || row.Department == "" || row.Batch == "" {
		return nil, "必填字段为空"
	}
	if !strings.Contains(row.Email, "@") {
		return nil, fmt.Sprintf("邮箱格式错误: %s", row.Email)
	}
	if len(college.Departments) > 0 && !college.HasDepartment(row.Department) {
		return nil, fmt.Sprintf("学院未开设该专业: %s", row.Department)
	}

	batch, err := strconv.Atoi(row.Batch)
	if err != nil || !ValidBatchYear(batch) {
		return nil, fmt.Sprintf("届别无效: %s", row.Batch)
	}

	var cgpa float64
	if row.CGPA != "" {
		cgpa, err = strconv.ParseFloat(row.CGPA, 64)
		if err != nil || !ValidCGPA(cgpa) {
			return nil, fmt.Sprintf("CGPA 无效: %s", row.CGPA)
		}
	}

	active, err := parseCount(row.ActiveBacklogs)
	if err != nil {
		return nil, fmt.Sprintf("当前挂科数无效: %s", row.ActiveBacklogs)
	}
	total, err := parseCount(row.TotalBacklogs)
	if err != nil {
		return nil, fmt.Sprintf("累计挂科数无效: %s", row.TotalBacklogs)
	}
	if total < active {
		total = active
	}

	student := &model.Student{
		CollegeID:       college.CollegeID,
		Name:            row.Name,
		Email:           normalizeEmail(row.Email),
		Phone:           row.Phone,
		RollNumber:      row.RollNumber,
		Department:      row.Department,
		Batch:           batch,
		CGPA:            cgpa,
		Backlogs:        model.Backlogs{Active: active, Total: total},
		Skills:          dedupe(strings.Split(row.Skills, ",")),
		PlacementStatus: model.PlacementNotPlaced,
		IsVerified:      true,
	}
	student.IsActive = true
	return student, ""
}

func parseCount(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid count %q", v)
	}
	return n, nil
}

// ValidBatchYear 届别取值范围（与 batch_year 校验器一致）
func ValidBatchYear(year int) bool {
	return year >= 2000 && year <= time.Now().Year()+6
}

// ValidCGPA CGPA 取值范围 0~10（与 cgpa 校验器一致）
func ValidCGPA(v float64) bool {
	return v >= 0 && v <= 10
}
