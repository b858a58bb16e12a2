package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Heman1223/Placement-Management-System-sub002/internal/model"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/policy"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/stats"
)

// fixture 一套内存仓储 + 共享的辅助服务
type fixture struct {
	*testRepos
	logger    *zap.Logger
	settings  *SettingsHolder
	projector *stats.Projector
	activity  ActivityService
	notifier  NotificationService
}

func newFixture() *fixture {
	r := newTestRepos()
	logger := zap.NewNop()
	return &fixture{
		testRepos: r,
		logger:    logger,
		settings:  NewSettingsHolder(model.DefaultPlatformSettings(100, 1000)),
		projector: stats.NewProjector(logger),
		activity:  NewActivityService(r.repo, logger),
		notifier:  NewNotificationService(r.repo, logger),
	}
}

func (f *fixture) newUser(t *testing.T, role string, mutate func(*model.User)) *model.User {
	t.Helper()
	u := &model.User{
		Name:       "用户-" + role,
		Email:      nextID(role) + "@example.com",
		Role:       role,
		IsApproved: true,
		IsActive:   true,
	}
	if mutate != nil {
		mutate(u)
	}
	if err := f.users.Create(context.Background(), u); err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}
	return u
}

// college 已认证的学院及其管理员
func (f *fixture) college(t *testing.T) *model.College {
	t.Helper()
	admin := f.newUser(t, model.RoleCollegeAdmin, nil)
	c := &model.College{
		AdminUserID: admin.UserID,
		Name:        "测试学院",
		Code:        nextID("C"),
		Departments: []string{"CSE", "ECE"},
		IsVerified:  true,
	}
	c.IsActive = true
	if err := f.colleges.Create(context.Background(), c); err != nil {
		t.Fatalf("创建学院失败: %v", err)
	}
	_ = f.users.UpdateFields(context.Background(), admin.UserID, map[string]interface{}{"college_id": c.CollegeID})
	return c
}

// company 已审核的企业及其账号
func (f *fixture) company(t *testing.T, typ string) *model.Company {
	t.Helper()
	owner := f.newUser(t, model.RoleCompany, nil)
	c := &model.Company{
		OwnerUserID: owner.UserID,
		Name:        "测试企业",
		Type:        typ,
		IsApproved:  true,
	}
	c.IsActive = true
	if err := f.companies.Create(context.Background(), c); err != nil {
		t.Fatalf("创建企业失败: %v", err)
	}
	_ = f.users.UpdateFields(context.Background(), owner.UserID, map[string]interface{}{"company_id": c.CompanyID})
	return c
}

// student 已认证、CGPA 8.0 的 CSE 2026 届学生，附带登录账号
func (f *fixture) student(t *testing.T, collegeID string, mutate func(*model.Student)) *model.Student {
	t.Helper()
	u := f.newUser(t, model.RoleStudent, func(u *model.User) { u.IsApproved = true })
	s := &model.Student{
		CollegeID:       collegeID,
		UserID:          &u.UserID,
		Name:            "学生",
		Email:           u.Email,
		Phone:           "13800000000",
		RollNumber:      nextID("R"),
		Department:      "CSE",
		Batch:           2026,
		CGPA:            8.0,
		Skills:          []string{"go", "sql"},
		PlacementStatus: model.PlacementNotPlaced,
		IsVerified:      true,
	}
	s.IsActive = true
	if mutate != nil {
		mutate(s)
	}
	if err := f.students.Create(context.Background(), s); err != nil {
		t.Fatalf("创建学生失败: %v", err)
	}
	_ = f.users.UpdateFields(context.Background(), u.UserID, map[string]interface{}{
		"student_id": s.StudentID,
		"college_id": collegeID,
	})
	return s
}

// openJob 招聘中的职位，截止时间在一周后
func (f *fixture) openJob(t *testing.T, companyID string, mutate func(*model.Job)) *model.Job {
	t.Helper()
	j := &model.Job{
		CompanyID:           companyID,
		Title:               "后端工程师",
		Type:                model.JobTypeFullTime,
		Package:             1200000,
		Openings:            2,
		ApplicationDeadline: time.Now().Add(7 * 24 * time.Hour),
		Status:              model.JobStatusOpen,
		Eligibility:         model.Eligibility{MinCGPA: 7.0},
	}
	j.IsActive = true
	if mutate != nil {
		mutate(j)
	}
	if err := f.jobs.Create(context.Background(), j); err != nil {
		t.Fatalf("创建职位失败: %v", err)
	}
	return j
}

// ── 操作者 ──

func superAdminActor() policy.Actor {
	return policy.Actor{UserID: "admin-1", Role: model.RoleSuperAdmin, IsApproved: true, IsActive: true}
}

func collegeActor(c *model.College) policy.Actor {
	return policy.Actor{
		UserID:     c.AdminUserID,
		Role:       model.RoleCollegeAdmin,
		IsApproved: true,
		IsActive:   true,
		CollegeID:  c.CollegeID,
	}
}

func companyActor(c *model.Company) policy.Actor {
	a := policy.Actor{
		UserID:     c.OwnerUserID,
		Role:       model.RoleCompany,
		IsApproved: true,
		IsActive:   true,
		CompanyID:  c.CompanyID,
	}
	if c.IsAgency() {
		a.AccessibleCollegeIDs = []string{}
	}
	return a
}

func studentActor(s *model.Student) policy.Actor {
	return policy.Actor{
		UserID:     *s.UserID,
		Role:       model.RoleStudent,
		IsApproved: true,
		IsActive:   true,
		CollegeID:  s.CollegeID,
		StudentID:  s.StudentID,
	}
}

func authorize(t *testing.T, a policy.Actor, op policy.Operation, opts ...policy.Option) *policy.AuthorizationContext {
	t.Helper()
	ac, err := policy.Authorize(a, op, opts...)
	if err != nil {
		t.Fatalf("授权 %s 失败: %v", op.Name, err)
	}
	return ac
}
