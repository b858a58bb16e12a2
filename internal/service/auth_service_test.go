package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Heman1223/Placement-Management-System-sub002/config"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/dto"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/model"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/policy"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/stats"
	"github.com/Heman1223/Placement-Management-System-sub002/pkg/jwt"
)

// ── Mock TokenBlacklist ──

type mockBlacklist struct {
	mu   sync.Mutex
	jtis map[string]time.Duration
	err  error
}

func newMockBlacklist() *mockBlacklist {
	return &mockBlacklist{jtis: make(map[string]time.Duration)}
}

func (m *mockBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.jtis[jti] = ttl
	return nil
}

func (m *mockBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.jtis[jti]
	return ok, nil
}

// ── 测试辅助 ──

type authFixture struct {
	*fixture
	svc       AuthService
	jwtMgr    *jwt.Manager
	blacklist *mockBlacklist
	cfg       *config.Config
}

func setupAuthService() *authFixture {
	f := newFixture()
	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:       "test-secret-key-for-unit-testing-2026",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 7 * 24 * time.Hour,
		},
		Placement: config.PlacementConfig{
			SuperAdminEmail:    "Root@Example.com",
			SuperAdminPassword: "rootpass123",
		},
	}
	jwtMgr := jwt.NewManager(&cfg.Auth)
	bl := newMockBlacklist()
	return &authFixture{
		fixture:   f,
		svc:       NewAuthService(cfg, f.repo, jwtMgr, bl, f.settings, f.projector, f.activity, f.logger),
		jwtMgr:    jwtMgr,
		blacklist: bl,
		cfg:       cfg,
	}
}

func (af *authFixture) userWithPassword(t *testing.T, role, password string, mutate func(*model.User)) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("生成密码哈希失败: %v", err)
	}
	return af.newUser(t, role, func(u *model.User) {
		u.PasswordHash = string(hash)
		if mutate != nil {
			mutate(u)
		}
	})
}

func accountFields(email string) dto.AccountFields {
	return dto.AccountFields{Name: "张三", Email: email, Password: "password123"}
}

// ────────────────────── Login ──────────────────────

func TestLogin_Success(t *testing.T) {
	af := setupAuthService()
	u := af.userWithPassword(t, model.RoleCompany, "password123", nil)

	resp, err := af.svc.Login(context.Background(), &dto.LoginRequest{Email: "  " + u.Email + " ", Password: "password123"})
	if err != nil {
		t.Fatalf("Login 应成功: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("应返回 Token 对")
	}
	if resp.User.ID != u.UserID {
		t.Errorf("期望用户 %s，实际 %s", u.UserID, resp.User.ID)
	}
	if resp.ExpiresIn != int((15 * time.Minute).Seconds()) {
		t.Errorf("ExpiresIn 错误: %d", resp.ExpiresIn)
	}

	stored, _ := af.users.GetByID(context.Background(), u.UserID)
	if stored.LastLoginAt == nil {
		t.Error("登录后应记录最后登录时间")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	af := setupAuthService()
	u := af.userWithPassword(t, model.RoleCompany, "password123", nil)

	_, err := af.svc.Login(context.Background(), &dto.LoginRequest{Email: u.Email, Password: "wrong"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	af := setupAuthService()

	_, err := af.svc.Login(context.Background(), &dto.LoginRequest{Email: "nobody@example.com", Password: "password123"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestLogin_DeactivatedAccount(t *testing.T) {
	af := setupAuthService()
	u := af.userWithPassword(t, model.RoleCompany, "password123", func(u *model.User) { u.IsActive = false })

	_, err := af.svc.Login(context.Background(), &dto.LoginRequest{Email: u.Email, Password: "password123"})
	if !errors.Is(err, policy.ErrAccountDeactivated) {
		t.Fatalf("期望 ErrAccountDeactivated，实际: %v", err)
	}
}

func TestLogin_PendingAccountCanLogin(t *testing.T) {
	af := setupAuthService()
	u := af.userWithPassword(t, model.RoleCollegeAdmin, "password123", func(u *model.User) { u.IsApproved = false })

	resp, err := af.svc.Login(context.Background(), &dto.LoginRequest{Email: u.Email, Password: "password123"})
	if err != nil {
		t.Fatalf("待审核账号应能登录: %v", err)
	}
	if resp.User.IsApproved {
		t.Error("响应中 is_approved 应为 false")
	}
}

// ────────────────────── Refresh / Logout ──────────────────────

func TestRefresh_RotatesAndRevokesOldToken(t *testing.T) {
	af := setupAuthService()
	u := af.userWithPassword(t, model.RoleCompany, "password123", nil)
	ctx := context.Background()

	first, err := af.svc.Login(ctx, &dto.LoginRequest{Email: u.Email, Password: "password123"})
	if err != nil {
		t.Fatalf("Login 应成功: %v", err)
	}

	second, err := af.svc.Refresh(ctx, &dto.RefreshTokenRequest{RefreshToken: first.RefreshToken})
	if err != nil {
		t.Fatalf("Refresh 应成功: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Error("刷新后应签发新的 Refresh Token")
	}

	_, err = af.svc.Refresh(ctx, &dto.RefreshTokenRequest{RefreshToken: first.RefreshToken})
	if !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("旧 Refresh Token 重放应返回 ErrTokenRevoked，实际: %v", err)
	}
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	af := setupAuthService()
	u := af.userWithPassword(t, model.RoleCompany, "password123", nil)

	tokens, _ := af.svc.Login(context.Background(), &dto.LoginRequest{Email: u.Email, Password: "password123"})
	_, err := af.svc.Refresh(context.Background(), &dto.RefreshTokenRequest{RefreshToken: tokens.AccessToken})
	if !errors.Is(err, ErrNotRefreshToken) {
		t.Fatalf("期望 ErrNotRefreshToken，实际: %v", err)
	}
}

func TestRefresh_BlacklistUnavailable(t *testing.T) {
	af := setupAuthService()
	u := af.userWithPassword(t, model.RoleCompany, "password123", nil)
	tokens, _ := af.svc.Login(context.Background(), &dto.LoginRequest{Email: u.Email, Password: "password123"})

	af.blacklist.err = errors.New("redis down")
	_, err := af.svc.Refresh(context.Background(), &dto.RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
	if err == nil {
		t.Fatal("黑名单不可用时刷新应失败")
	}
}

func TestLogout_BlacklistsBothTokens(t *testing.T) {
	af := setupAuthService()
	u := af.userWithPassword(t, model.RoleCompany, "password123", nil)
	ctx := context.Background()

	tokens, _ := af.svc.Login(ctx, &dto.LoginRequest{Email: u.Email, Password: "password123"})
	access, err := af.jwtMgr.ParseToken(tokens.AccessToken)
	if err != nil {
		t.Fatalf("解析 Access Token 失败: %v", err)
	}

	if err := af.svc.Logout(ctx, access, tokens.RefreshToken); err != nil {
		t.Fatalf("Logout 应成功: %v", err)
	}
	if revoked, _ := af.blacklist.IsBlacklisted(ctx, access.ID); !revoked {
		t.Error("Access Token 应被拉黑")
	}
	if _, err := af.svc.Refresh(ctx, &dto.RefreshTokenRequest{RefreshToken: tokens.RefreshToken}); !errors.Is(err, ErrTokenRevoked) {
		t.Errorf("登出后 Refresh Token 应失效，实际: %v", err)
	}
}

// ────────────────────── 注册 ──────────────────────

func TestRegisterCollege_PendingByDefault(t *testing.T) {
	af := setupAuthService()

	resp, err := af.svc.RegisterCollege(context.Background(), &dto.RegisterCollegeRequest{
		AccountFields: accountFields("Admin@College.edu"),
		CollegeName:   "测试学院",
		CollegeCode:   "tc01",
		Departments:   []string{"CSE", "CSE", "ECE"},
	})
	if err != nil {
		t.Fatalf("RegisterCollege 应成功: %v", err)
	}
	if resp.IsApproved {
		t.Error("未开启自动审核时学院账号应待审核")
	}
	if resp.Email != "admin@college.edu" {
		t.Errorf("邮箱应规范化为小写，实际 %s", resp.Email)
	}

	user, _ := af.users.GetByID(context.Background(), resp.ID)
	if user.CollegeID == nil {
		t.Fatal("学院管理员应关联学院")
	}
	college, _ := af.colleges.GetByID(context.Background(), *user.CollegeID, false)
	if college.Code != "TC01" || college.IsVerified {
		t.Errorf("学院代码应大写且未认证，实际 code=%s verified=%v", college.Code, college.IsVerified)
	}
	if len(college.Departments) != 2 {
		t.Errorf("专业应去重，实际 %v", college.Departments)
	}
}

func TestRegisterCollege_AutoApprove(t *testing.T) {
	af := setupAuthService()
	s := af.settings.Current()
	s.AutoApproveColleges = true
	af.settings.Set(&s)

	resp, err := af.svc.RegisterCollege(context.Background(), &dto.RegisterCollegeRequest{
		AccountFields: accountFields("auto@college.edu"),
		CollegeName:   "自动学院",
		CollegeCode:   "AUTO1",
	})
	if err != nil {
		t.Fatalf("RegisterCollege 应成功: %v", err)
	}
	if !resp.IsApproved {
		t.Error("开启自动审核时应直接通过")
	}
}

func TestRegisterCollege_DuplicateCode(t *testing.T) {
	af := setupAuthService()
	ctx := context.Background()
	req := &dto.RegisterCollegeRequest{AccountFields: accountFields("a@college.edu"), CollegeName: "学院A", CollegeCode: "DUP"}
	if _, err := af.svc.RegisterCollege(ctx, req); err != nil {
		t.Fatalf("首次注册应成功: %v", err)
	}

	req2 := &dto.RegisterCollegeRequest{AccountFields: accountFields("b@college.edu"), CollegeName: "学院B", CollegeCode: "dup"}
	_, err := af.svc.RegisterCollege(ctx, req2)
	if !errors.Is(err, ErrCollegeCodeExists) {
		t.Fatalf("期望 ErrCollegeCodeExists，实际: %v", err)
	}
}

func TestRegisterCompany_DuplicateEmail(t *testing.T) {
	af := setupAuthService()
	ctx := context.Background()
	req := &dto.RegisterCompanyRequest{AccountFields: accountFields("hr@corp.com"), CompanyName: "企业", Type: model.CompanyTypeCompany}
	if _, err := af.svc.RegisterCompany(ctx, req); err != nil {
		t.Fatalf("首次注册应成功: %v", err)
	}

	req.AccountFields.Email = "HR@corp.com"
	if _, err := af.svc.RegisterCompany(ctx, req); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("期望 ErrEmailExists，实际: %v", err)
	}
}

func TestRegisterCompany_Closed(t *testing.T) {
	af := setupAuthService()
	s := af.settings.Current()
	s.AllowCompanyRegistration = false
	af.settings.Set(&s)

	_, err := af.svc.RegisterCompany(context.Background(), &dto.RegisterCompanyRequest{
		AccountFields: accountFields("hr@corp.com"), CompanyName: "企业", Type: model.CompanyTypeCompany,
	})
	if !errors.Is(err, ErrRegistrationClosed) {
		t.Fatalf("期望 ErrRegistrationClosed，实际: %v", err)
	}
}

func TestRegisterStudent_PendingAndCounted(t *testing.T) {
	af := setupAuthService()
	college := af.college(t)

	resp, err := af.svc.RegisterStudent(context.Background(), &dto.RegisterStudentRequest{
		AccountFields: accountFields("stu@college.edu"),
		CollegeID:     college.CollegeID,
		RollNumber:    "R001",
		Department:    "CSE",
		Batch:         2026,
		CGPA:          8.2,
	})
	if err != nil {
		t.Fatalf("RegisterStudent 应成功: %v", err)
	}
	if resp.IsApproved {
		t.Error("自助注册的学生应等待学院认证")
	}

	user, _ := af.users.GetByID(context.Background(), resp.ID)
	if user.StudentID == nil {
		t.Fatal("学生账号应关联学生记录")
	}
	st := af.students.get(*user.StudentID)
	if st.IsVerified || st.PlacementStatus != model.PlacementNotPlaced {
		t.Errorf("新学生应未认证且未就业，实际 verified=%v status=%s", st.IsVerified, st.PlacementStatus)
	}
	if got := af.stats.get(stats.TableColleges, college.CollegeID, stats.CollegeTotalStudents); got != 1 {
		t.Errorf("学院学生总数应为 1，实际 %d", got)
	}
	if got := af.stats.get(stats.TableColleges, college.CollegeID, stats.CollegeVerifiedStudents); got != 0 {
		t.Errorf("学院已认证学生数应为 0，实际 %d", got)
	}
}

func TestRegisterStudent_CollegeNotVerified(t *testing.T) {
	af := setupAuthService()
	college := af.college(t)
	stored := af.colleges.colleges[college.CollegeID]
	stored.IsVerified = false

	_, err := af.svc.RegisterStudent(context.Background(), &dto.RegisterStudentRequest{
		AccountFields: accountFields("stu@college.edu"),
		CollegeID:     college.CollegeID,
		RollNumber:    "R001",
		Department:    "CSE",
		Batch:         2026,
	})
	if !errors.Is(err, ErrCollegeNotAvailable) {
		t.Fatalf("期望 ErrCollegeNotAvailable，实际: %v", err)
	}
}

func TestRegisterStudent_DepartmentNotOffered(t *testing.T) {
	af := setupAuthService()
	college := af.college(t)

	_, err := af.svc.RegisterStudent(context.Background(), &dto.RegisterStudentRequest{
		AccountFields: accountFields("stu@college.edu"),
		CollegeID:     college.CollegeID,
		RollNumber:    "R001",
		Department:    "MBA",
		Batch:         2026,
	})
	if !errors.Is(err, ErrDepartmentNotOffered) {
		t.Fatalf("期望 ErrDepartmentNotOffered，实际: %v", err)
	}
	if _, err := af.users.GetByEmail(context.Background(), "stu@college.edu"); err == nil {
		t.Fatal("校验失败时不应创建账号")
	}
}

// ────────────────────── ResolveActor ──────────────────────

func TestResolveActor_AgencyGetsAccessibleColleges(t *testing.T) {
	af := setupAuthService()
	ctx := context.Background()
	agency := af.company(t, model.CompanyTypePlacementAgency)
	c1 := af.college(t)
	c2 := af.college(t)
	_ = af.access.Create(ctx, &model.CollegeAccess{CompanyID: agency.CompanyID, CollegeID: c1.CollegeID, Status: model.AccessStatusApproved})
	_ = af.access.Create(ctx, &model.CollegeAccess{CompanyID: agency.CompanyID, CollegeID: c2.CollegeID, Status: model.AccessStatusPending})

	actor, err := af.svc.ResolveActor(ctx, agency.OwnerUserID)
	if err != nil {
		t.Fatalf("ResolveActor 应成功: %v", err)
	}
	if len(actor.AccessibleCollegeIDs) != 1 || actor.AccessibleCollegeIDs[0] != c1.CollegeID {
		t.Errorf("机构只应看到已批准的学院，实际 %v", actor.AccessibleCollegeIDs)
	}
}

func TestResolveActor_AgencyWithoutAccessSeesNothing(t *testing.T) {
	af := setupAuthService()
	agency := af.company(t, model.CompanyTypePlacementAgency)

	actor, err := af.svc.ResolveActor(context.Background(), agency.OwnerUserID)
	if err != nil {
		t.Fatalf("ResolveActor 应成功: %v", err)
	}
	if actor.AccessibleCollegeIDs == nil || len(actor.AccessibleCollegeIDs) != 0 {
		t.Errorf("未获授权的机构应得到空白名单（非 nil），实际 %#v", actor.AccessibleCollegeIDs)
	}
}

func TestResolveActor_CompanyIsUnrestricted(t *testing.T) {
	af := setupAuthService()
	company := af.company(t, model.CompanyTypeCompany)

	actor, _ := af.svc.ResolveActor(context.Background(), company.OwnerUserID)
	if actor.AccessibleCollegeIDs != nil {
		t.Errorf("普通企业不受学院白名单限制，实际 %v", actor.AccessibleCollegeIDs)
	}
}

func TestResolveActor_SuspendedCompany(t *testing.T) {
	af := setupAuthService()
	company := af.company(t, model.CompanyTypeCompany)
	af.companies.companies[company.CompanyID].IsSuspended = true

	actor, _ := af.svc.ResolveActor(context.Background(), company.OwnerUserID)
	if !actor.Suspended {
		t.Fatal("暂停企业的操作者应标记 Suspended")
	}
	if _, err := policy.Authorize(*actor, policy.OpManageJobs); !errors.Is(err, policy.ErrSuspended) {
		t.Errorf("暂停企业发布职位应返回 ErrSuspended，实际: %v", err)
	}
}

func TestResolveActor_DeletedCompanyIsInactive(t *testing.T) {
	af := setupAuthService()
	company := af.company(t, model.CompanyTypeCompany)
	_ = af.companies.SoftDelete(context.Background(), company.CompanyID, "admin-1")

	actor, err := af.svc.ResolveActor(context.Background(), company.OwnerUserID)
	if err != nil {
		t.Fatalf("ResolveActor 应成功: %v", err)
	}
	if actor.IsActive {
		t.Error("企业被删除后账号应视为停用")
	}
}

// ────────────────────── SeedSuperAdmin ──────────────────────

func TestSeedSuperAdmin_Idempotent(t *testing.T) {
	af := setupAuthService()
	ctx := context.Background()

	if err := af.svc.SeedSuperAdmin(ctx); err != nil {
		t.Fatalf("SeedSuperAdmin 应成功: %v", err)
	}
	if err := af.svc.SeedSuperAdmin(ctx); err != nil {
		t.Fatalf("重复 SeedSuperAdmin 应成功: %v", err)
	}

	counts, _ := af.users.CountByRole(ctx)
	if counts[model.RoleSuperAdmin] != 1 {
		t.Errorf("应只有一个超级管理员，实际 %d", counts[model.RoleSuperAdmin])
	}
	if _, err := af.svc.Login(ctx, &dto.LoginRequest{Email: "root@example.com", Password: "rootpass123"}); err != nil {
		t.Errorf("超级管理员应能登录: %v", err)
	}
}
