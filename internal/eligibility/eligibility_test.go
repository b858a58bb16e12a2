package eligibility

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"

	"github.com/Heman1223/Placement-Management-System-sub002/internal/model"
)

var now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func intPtr(n int) *int       { return &n }
func strPtr(s string) *string { return &s }

func eligibleStudent() *model.Student {
	return &model.Student{
		StudentID:  "s1",
		CollegeID:  "col-a",
		Department: "CS",
		Batch:      2025,
		CGPA:       8.0,
		Backlogs:   model.Backlogs{Active: 0},
		IsVerified: true,
	}
}

func openJob() *model.Job {
	return &model.Job{
		JobID:               "j1",
		CompanyID:           "co-1",
		Status:              model.JobStatusOpen,
		ApplicationDeadline: now.Add(48 * time.Hour),
		Eligibility: model.Eligibility{
			MinCGPA:            7.5,
			MaxBacklogs:        intPtr(0),
			AllowedDepartments: pq.StringArray{"CS", "IT"},
			AllowedBatches:     model.IntArray{2025},
		},
	}
}

func TestCheck_EligibleStudent(t *testing.T) {
	if err := Check(Input{Student: eligibleStudent(), Job: openJob(), Now: now}); err != nil {
		t.Fatalf("符合条件的学生应允许投递，实际: %v", err)
	}
}

func TestCheck_CgpaTooLow(t *testing.T) {
	job := openJob()
	job.Eligibility.MinCGPA = 9.0

	err := Check(Input{Student: eligibleStudent(), Job: job, Now: now})
	var d *Denial
	if !errors.As(err, &d) {
		t.Fatalf("期望 *Denial，实际: %v", err)
	}
	if d.Reason != CgpaTooLow {
		t.Errorf("期望 CgpaTooLow，实际=%s", d.Reason)
	}
	if d.Message != "最低 CGPA 要求: 9.00" {
		t.Errorf("提示信息应包含最低要求，实际=%s", d.Message)
	}
}

func TestCheck_ReasonOrder(t *testing.T) {
	// 同时不满足多项时按规则顺序返回第一项
	s := eligibleStudent()
	s.Department = "ME"
	s.CGPA = 5.0
	s.IsVerified = false

	err := Check(Input{Student: s, Job: openJob(), Now: now})
	if !errors.Is(err, &Denial{Reason: DepartmentMismatch}) {
		t.Errorf("期望 DepartmentMismatch 优先，实际: %v", err)
	}

	job := openJob()
	job.Status = model.JobStatusClosed
	err = Check(Input{Student: s, Job: job, Now: now})
	if !errors.Is(err, &Denial{Reason: JobClosed}) {
		t.Errorf("期望 JobClosed 最先判定，实际: %v", err)
	}
}

func TestCheck_EachRule(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *model.Student, j *model.Job)
		want   Reason
	}{
		{"已过截止时间", func(_ *model.Student, j *model.Job) { j.ApplicationDeadline = now.Add(-time.Minute) }, JobClosed},
		{"职位草稿", func(_ *model.Student, j *model.Job) { j.Status = model.JobStatusDraft }, JobClosed},
		{"专业不符", func(s *model.Student, _ *model.Job) { s.Department = "EE" }, DepartmentMismatch},
		{"届别不符", func(s *model.Student, _ *model.Job) { s.Batch = 2024 }, BatchMismatch},
		{"挂科过多", func(s *model.Student, _ *model.Job) { s.Backlogs.Active = 1 }, TooManyBacklogs},
		{"外校专场", func(_ *model.Student, j *model.Job) {
			j.IsPlacementDrive = true
			j.CollegeID = strPtr("col-b")
		}, WrongCollegeDrive},
		{"未认证", func(s *model.Student, _ *model.Job) { s.IsVerified = false }, ProfileNotVerified},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, j := eligibleStudent(), openJob()
			tt.mutate(s, j)
			err := Check(Input{Student: s, Job: j, Now: now})
			var d *Denial
			if !errors.As(err, &d) || d.Reason != tt.want {
				t.Errorf("期望 %s，实际: %v", tt.want, err)
			}
		})
	}
}

func TestCheck_AlreadyApplied(t *testing.T) {
	err := Check(Input{Student: eligibleStudent(), Job: openJob(), Now: now, HasApplied: true})
	if !errors.Is(err, &Denial{Reason: AlreadyApplied}) {
		t.Errorf("期望 AlreadyApplied，实际: %v", err)
	}
	// 列表语义忽略已投递
	if !Eligible(Input{Student: eligibleStudent(), Job: openJob(), Now: now, HasApplied: true}) {
		t.Error("列表判定不应因已投递而排除职位")
	}
}

func TestCheck_EmptySetsMeanNoRestriction(t *testing.T) {
	job := openJob()
	job.Eligibility.AllowedDepartments = nil
	job.Eligibility.AllowedBatches = nil
	job.Eligibility.MaxBacklogs = nil

	s := eligibleStudent()
	s.Department = "Civil"
	s.Batch = 2030
	s.Backlogs.Active = 5

	if err := Check(Input{Student: s, Job: job, Now: now}); err != nil {
		t.Errorf("未设置的条件不应限制投递，实际: %v", err)
	}
}

func TestCheck_DeadlineBoundary(t *testing.T) {
	job := openJob()
	job.ApplicationDeadline = now
	if err := Check(Input{Student: eligibleStudent(), Job: job, Now: now}); err != nil {
		t.Errorf("截止时刻当时仍可投递，实际: %v", err)
	}
}

func TestCheckProfile_SkipsDeadlineAndDuplicate(t *testing.T) {
	job := openJob()
	job.Status = model.JobStatusClosed

	if err := CheckProfile(Input{Student: eligibleStudent(), Job: job, Now: now, HasApplied: true}); err != nil {
		t.Errorf("资料校验不应检查截止时间与重复投递，实际: %v", err)
	}

	s := eligibleStudent()
	s.CGPA = 6.0
	if err := CheckProfile(Input{Student: s, Job: job, Now: now}); !errors.Is(err, &Denial{Reason: CgpaTooLow}) {
		t.Errorf("资料校验仍应检查 CGPA，实际: %v", err)
	}
}

// TestCheckMatchesListingFilter 在学生 × 职位网格上校验投递判定与列表过滤等价
func TestCheckMatchesListingFilter(t *testing.T) {
	var studentsGrid []*model.Student
	for _, dept := range []string{"CS", "ME"} {
		for _, batch := range []int{2024, 2025} {
			for _, cgpa := range []float64{6.5, 7.5, 9.2} {
				for _, backlogs := range []int{0, 2} {
					for _, college := range []string{"col-a", "col-b"} {
						for _, verified := range []bool{true, false} {
							studentsGrid = append(studentsGrid, &model.Student{
								StudentID:  fmt.Sprintf("%s-%d-%.1f-%d-%s-%v", dept, batch, cgpa, backlogs, college, verified),
								CollegeID:  college,
								Department: dept,
								Batch:      batch,
								CGPA:       cgpa,
								Backlogs:   model.Backlogs{Active: backlogs},
								IsVerified: verified,
							})
						}
					}
				}
			}
		}
	}

	var jobsGrid []*model.Job
	for _, status := range []string{model.JobStatusOpen, model.JobStatusClosed, model.JobStatusDraft} {
		for _, deadline := range []time.Time{now.Add(time.Hour), now, now.Add(-time.Hour)} {
			for _, depts := range []pq.StringArray{nil, {"CS"}, {"IT", "ME"}} {
				for _, batches := range []model.IntArray{nil, {2025}} {
					for _, minCGPA := range []float64{0, 7.5} {
						for _, maxBacklogs := range []*int{nil, intPtr(0), intPtr(2)} {
							for _, drive := range []*string{nil, strPtr("col-a")} {
								jobsGrid = append(jobsGrid, &model.Job{
									Status:              status,
									ApplicationDeadline: deadline,
									IsPlacementDrive:    drive != nil,
									CollegeID:           drive,
									Eligibility: model.Eligibility{
										MinCGPA:            minCGPA,
										MaxBacklogs:        maxBacklogs,
										AllowedDepartments: depts,
										AllowedBatches:     batches,
									},
								})
							}
						}
					}
				}
			}
		}
	}

	mismatches := 0
	for _, s := range studentsGrid {
		f := ListingFilter(s, now)
		for _, j := range jobsGrid {
			canApply := Check(Input{Student: s, Job: j, Now: now}) == nil
			listed := f.Matches(j)
			if canApply != listed {
				mismatches++
				if mismatches <= 5 {
					t.Errorf("判定不一致: student=%s job=%+v canApply=%v listed=%v", s.StudentID, j.Eligibility, canApply, listed)
				}
			}
			if Eligible(Input{Student: s, Job: j, Now: now}) != listed {
				t.Fatalf("Eligible 与 Filter 不一致: student=%s", s.StudentID)
			}
		}
	}
	if mismatches > 0 {
		t.Fatalf("共 %d 处投递判定与列表过滤不一致", mismatches)
	}
}

func TestListingFilter_ClausesCoverListingRules(t *testing.T) {
	f := ListingFilter(eligibleStudent(), now)
	seen := make(map[Reason]bool)
	for _, c := range f.Clauses {
		seen[c.Reason] = true
		if c.SQL == "" {
			t.Errorf("规则 %s 缺少 SQL 条件", c.Reason)
		}
	}
	for _, r := range rules {
		if r.listing && !seen[r.reason] {
			t.Errorf("列表过滤缺少规则 %s", r.reason)
		}
	}
	if seen[AlreadyApplied] {
		t.Error("列表过滤不应包含 AlreadyApplied")
	}
}
