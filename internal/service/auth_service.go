package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Heman1223/Placement-Management-System-sub002/config"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/dto"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/model"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/policy"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/repository"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/stats"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/workflow"
	pkgerrors "github.com/Heman1223/Placement-Management-System-sub002/pkg/errors"
	"github.com/Heman1223/Placement-Management-System-sub002/pkg/jwt"
)

// ── 认证模块业务错误 ──

var (
	ErrInvalidCredentials    = errors.New("邮箱或密码错误")
	ErrUserNotFound          = errors.New("用户不存在")
	ErrTokenRevoked          = errors.New("token 已失效，请重新登录")
	ErrNotRefreshToken       = errors.New("需要 Refresh Token")
	ErrEmailExists           = errors.New("该邮箱已注册")
	ErrRegistrationClosed    = errors.New("平台暂未开放该类型账号注册")
	ErrCollegeCodeExists     = errors.New("学院代码已存在")
	ErrCollegeNotAvailable   = errors.New("学院不存在或尚未通过审核")
	ErrDepartmentNotOffered  = errors.New("学院未开设该专业")
	ErrRollNumberExists      = errors.New("该学院下学号已存在")
	ErrStudentEmailExists    = errors.New("学生邮箱已存在")
	ErrBlacklistNotAvailable = errors.New("登出服务暂不可用")
)

// TokenBlacklist 已注销 Token 的黑名单（Redis 实现见 pkg/redis）
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// AuthService 认证业务接口
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	Refresh(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error)
	Logout(ctx context.Context, access *jwt.Claims, refreshToken string) error
	Me(ctx context.Context, userID string) (*dto.MeResponse, error)

	RegisterCollege(ctx context.Context, req *dto.RegisterCollegeRequest) (*dto.RegisterResponse, error)
	RegisterCompany(ctx context.Context, req *dto.RegisterCompanyRequest) (*dto.RegisterResponse, error)
	RegisterStudent(ctx context.Context, req *dto.RegisterStudentRequest) (*dto.RegisterResponse, error)

	// ResolveActor 每个请求从数据库重新加载操作者（审核、启用、暂停、学院授权）
	ResolveActor(ctx context.Context, userID string) (*policy.Actor, error)
	// SeedSuperAdmin 首次启动时按配置创建超级管理员
	SeedSuperAdmin(ctx context.Context) error
}

type authService struct {
	cfg       *config.Config
	repo      *repository.Repository
	jwtMgr    *jwt.Manager
	blacklist TokenBlacklist
	settings  *SettingsHolder
	projector *stats.Projector
	activity  ActivityService
	logger    *zap.Logger
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	settings *SettingsHolder,
	projector *stats.Projector,
	activity ActivityService,
	logger *zap.Logger,
) AuthService {
	return &authService{
		cfg:       cfg,
		repo:      repo,
		jwtMgr:    jwtMgr,
		blacklist: blacklist,
		settings:  settings,
		projector: projector,
		activity:  activity,
		logger:    logger,
	}
}

// ────────────────────── Login ──────────────────────

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	// 1. 查询用户
	user, err := s.repo.User.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	// 2. 验证密码 (bcrypt)
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// 3. 停用账号不能登录；未审核账号可以登录，只能访问允许待审核的接口
	if !user.IsActive {
		return nil, policy.ErrAccountDeactivated
	}

	if err := s.repo.User.TouchLogin(ctx, user.UserID, time.Now()); err != nil {
		s.logger.Warn("更新最后登录时间失败", zap.String("user_id", user.UserID), zap.Error(err))
	}

	return s.issueTokens(user)
}

// ────────────────────── Refresh ──────────────────────

// Refresh 轮换 Token 对：旧 Refresh Token 立即拉黑
func (s *authService) Refresh(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error) {
	claims, err := s.jwtMgr.ParseToken(req.RefreshToken)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != jwt.TokenTypeRefresh {
		return nil, ErrNotRefreshToken
	}

	revoked, err := s.blacklist.IsBlacklisted(ctx, claims.ID)
	if err != nil {
		s.logger.Error("查询 Token 黑名单失败", zap.Error(err))
		return nil, pkgerrors.ErrServiceUnavailable
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	user, err := s.repo.User.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenRevoked
		}
		s.logger.Error("查询用户失败", zap.String("id", claims.UserID), zap.Error(err))
		return nil, err
	}
	if !user.IsActive {
		return nil, policy.ErrAccountDeactivated
	}

	if err := s.blacklist.BlacklistToken(ctx, claims.ID, claims.RemainingTTL()); err != nil {
		s.logger.Error("拉黑旧 Refresh Token 失败", zap.Error(err))
		return nil, pkgerrors.ErrServiceUnavailable
	}

	return s.issueTokens(user)
}

// ────────────────────── Logout ──────────────────────

func (s *authService) Logout(ctx context.Context, access *jwt.Claims, refreshToken string) error {
	if err := s.blacklist.BlacklistToken(ctx, access.ID, access.RemainingTTL()); err != nil {
		s.logger.Error("拉黑 Access Token 失败", zap.String("user_id", access.UserID), zap.Error(err))
		return ErrBlacklistNotAvailable
	}

	if refreshToken == "" {
		return nil
	}
	// Refresh Token 已过期或无效时无需拉黑
	rc, err := s.jwtMgr.ParseToken(refreshToken)
	if err != nil || rc.UserID != access.UserID || rc.TokenType != jwt.TokenTypeRefresh {
		return nil
	}
	if err := s.blacklist.BlacklistToken(ctx, rc.ID, rc.RemainingTTL()); err != nil {
		s.logger.Error("拉黑 Refresh Token 失败", zap.String("user_id", access.UserID), zap.Error(err))
		return ErrBlacklistNotAvailable
	}
	return nil
}

// ────────────────────── Me ──────────────────────

func (s *authService) Me(ctx context.Context, userID string) (*dto.MeResponse, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("id", userID), zap.Error(err))
		return nil, err
	}

	resp := &dto.MeResponse{
		UserResponse: toUserResponse(user),
		CreatedAt:    user.CreatedAt.Format(time.RFC3339),
	}
	if user.LastLoginAt != nil {
		resp.LastLoginAt = user.LastLoginAt.Format(time.RFC3339)
	}

	// 附带角色对应的资料；资料缺失不影响返回账号信息
	switch {
	case user.Role == model.RoleCollegeAdmin && user.CollegeID != nil:
		if college, err := s.repo.College.GetByID(ctx, *user.CollegeID, false); err == nil {
			resp.Profile = college
		}
	case user.Role == model.RoleCompany && user.CompanyID != nil:
		if company, err := s.repo.Company.GetByID(ctx, *user.CompanyID, false); err == nil {
			resp.Profile = company
		}
	case user.Role == model.RoleStudent && user.StudentID != nil:
		if student, err := s.repo.Student.GetByID(ctx, *user.StudentID, false); err == nil {
			resp.Profile = student
		}
	}
	return resp, nil
}

// ────────────────────── 注册 ──────────────────────

func (s *authService) RegisterCollege(ctx context.Context, req *dto.RegisterCollegeRequest) (*dto.RegisterResponse, error) {
	settings := s.settings.Current()
	if !settings.AllowCollegeRegistration {
		return nil, ErrRegistrationClosed
	}

	approved := settings.AutoApproveColleges
	user, err := s.newUser(&req.AccountFields, model.RoleCollegeAdmin, approved)
	if err != nil {
		return nil, err
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.User.Create(ctx, user); err != nil {
			return err
		}

		college := &model.College{
			AdminUserID: user.UserID,
			Name:        strings.TrimSpace(req.CollegeName),
			Code:        strings.ToUpper(strings.TrimSpace(req.CollegeCode)),
			Email:       user.Email,
			Phone:       user.Phone,
			City:        req.City,
			State:       req.State,
			Website:     req.Website,
			Departments: dedupe(req.Departments),
			IsVerified:  approved,
		}
		college.IsActive = true
		if approved {
			now := time.Now()
			college.VerifiedAt = &now
		}
		if err := tx.College.Create(ctx, college); err != nil {
			return err
		}

		user.CollegeID = &college.CollegeID
		return tx.User.UpdateFields(ctx, user.UserID, map[string]interface{}{"college_id": college.CollegeID})
	})
	if err != nil {
		return nil, s.mapRegisterError(err, user.Email)
	}

	s.activity.Record(ctx, user.UserID, ActionRegister, TargetCollege, *user.CollegeID, map[string]interface{}{"role": user.Role})
	return toRegisterResponse(user), nil
}

func (s *authService) RegisterCompany(ctx context.Context, req *dto.RegisterCompanyRequest) (*dto.RegisterResponse, error) {
	settings := s.settings.Current()
	if !settings.AllowCompanyRegistration {
		return nil, ErrRegistrationClosed
	}

	approved := settings.AutoApproveCompanies
	user, err := s.newUser(&req.AccountFields, model.RoleCompany, approved)
	if err != nil {
		return nil, err
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.User.Create(ctx, user); err != nil {
			return err
		}

		company := &model.Company{
			OwnerUserID:  user.UserID,
			Name:         strings.TrimSpace(req.CompanyName),
			Type:         req.Type,
			Industry:     req.Industry,
			Website:      req.Website,
			ContactEmail: user.Email,
			ContactPhone: user.Phone,
			IsApproved:   approved,
		}
		company.IsActive = true
		if approved {
			now := time.Now()
			company.ApprovedAt = &now
		}
		if err := tx.Company.Create(ctx, company); err != nil {
			return err
		}

		user.CompanyID = &company.CompanyID
		return tx.User.UpdateFields(ctx, user.UserID, map[string]interface{}{"company_id": company.CompanyID})
	})
	if err != nil {
		return nil, s.mapRegisterError(err, user.Email)
	}

	s.activity.Record(ctx, user.UserID, ActionRegister, TargetCompany, *user.CompanyID, map[string]interface{}{"role": user.Role})
	return toRegisterResponse(user), nil
}

// RegisterStudent 学生自助注册：账号待学院认证学生资料后才可投递
func (s *authService) RegisterStudent(ctx context.Context, req *dto.RegisterStudentRequest) (*dto.RegisterResponse, error) {
	if !s.settings.Current().AllowStudentRegistration {
		return nil, ErrRegistrationClosed
	}

	college, err := s.repo.College.GetByID(ctx, req.CollegeID, false)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCollegeNotAvailable
		}
		s.logger.Error("查询学院失败", zap.String("id", req.CollegeID), zap.Error(err))
		return nil, err
	}
	if !college.IsVerified || !college.IsActive {
		return nil, ErrCollegeNotAvailable
	}
	if len(college.Departments) > 0 && !college.HasDepartment(req.Department) {
		return nil, ErrDepartmentNotOffered
	}

	user, err := s.newUser(&req.AccountFields, model.RoleStudent, false)
	if err != nil {
		return nil, err
	}
	user.CollegeID = &college.CollegeID

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.User.Create(ctx, user); err != nil {
			return err
		}

		student := &model.Student{
			CollegeID:       college.CollegeID,
			UserID:          &user.UserID,
			Name:            user.Name,
			Email:           user.Email,
			Phone:           user.Phone,
			RollNumber:      strings.TrimSpace(req.RollNumber),
			Department:      req.Department,
			Batch:           req.Batch,
			CGPA:            req.CGPA,
			Skills:          dedupe(req.Skills),
			PlacementStatus: model.PlacementNotPlaced,
		}
		student.IsActive = true
		student.CreatedBy = &user.UserID
		if err := tx.Student.Create(ctx, student); err != nil {
			return err
		}

		user.StudentID = &student.StudentID
		if err := tx.User.UpdateFields(ctx, user.UserID, map[string]interface{}{"student_id": student.StudentID}); err != nil {
			return err
		}
		return s.projector.Apply(ctx, tx.Stats, workflow.StudentEnrolled{
			StudentID: student.StudentID,
			CollegeID: student.CollegeID,
		})
	})
	if err != nil {
		return nil, s.mapRegisterError(err, user.Email)
	}

	s.activity.Record(ctx, user.UserID, ActionRegister, TargetStudent, *user.StudentID, map[string]interface{}{"role": user.Role})
	return toRegisterResponse(user), nil
}

// ────────────────────── Actor ──────────────────────

func (s *authService) ResolveActor(ctx context.Context, userID string) (*policy.Actor, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("加载操作者失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	actor := &policy.Actor{
		UserID:     user.UserID,
		Role:       user.Role,
		IsApproved: user.IsApproved || model.DefaultApproved(user.Role),
		IsActive:   user.IsActive,
		CollegeID:  deref(user.CollegeID),
		CompanyID:  deref(user.CompanyID),
		StudentID:  deref(user.StudentID),
	}

	if user.Role == model.RoleCompany && actor.CompanyID != "" {
		company, err := s.repo.Company.GetByID(ctx, actor.CompanyID, false)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// 企业已被删除，按停用处理
				actor.IsActive = false
				return actor, nil
			}
			s.logger.Error("加载企业失败", zap.String("company_id", actor.CompanyID), zap.Error(err))
			return nil, err
		}
		actor.Suspended = company.IsSuspended
		if company.IsAgency() {
			ids, err := s.repo.CollegeAccess.ApprovedCollegeIDs(ctx, company.CompanyID)
			if err != nil {
				s.logger.Error("加载学院授权失败", zap.String("company_id", company.CompanyID), zap.Error(err))
				return nil, err
			}
			if ids == nil {
				ids = []string{}
			}
			actor.AccessibleCollegeIDs = ids
		}
	}
	return actor, nil
}

// ────────────────────── SeedSuperAdmin ──────────────────────

func (s *authService) SeedSuperAdmin(ctx context.Context) error {
	email := normalizeEmail(s.cfg.Placement.SuperAdminEmail)
	if email == "" {
		return nil
	}

	_, err := s.repo.User.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询超级管理员失败", zap.Error(err))
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(s.cfg.Placement.SuperAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user := &model.User{
		Name:         "Super Admin",
		Email:        email,
		PasswordHash: string(hash),
		Role:         model.RoleSuperAdmin,
		IsApproved:   true,
		IsActive:     true,
	}
	if err := s.repo.User.Create(ctx, user); err != nil {
		// 多实例同时启动时另一实例已创建
		if pkgerrors.IsUniqueViolation(err, repository.ConstraintUserEmail) {
			return nil
		}
		s.logger.Error("创建超级管理员失败", zap.Error(err))
		return err
	}
	s.logger.Info("已创建超级管理员", zap.String("email", email))
	return nil
}

// ────────────────────── 内部方法 ──────────────────────

func (s *authService) issueTokens(user *model.User) (*dto.TokenResponse, error) {
	accessToken, err := s.jwtMgr.GenerateAccessToken(user.UserID, user.Role)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}

	refreshToken, err := s.jwtMgr.GenerateRefreshToken(user.UserID, user.Role)
	if err != nil {
		s.logger.Error("生成 RefreshToken 失败", zap.Error(err))
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.jwtMgr.AccessTokenTTL().Seconds()),
		User:         toUserResponse(user),
	}, nil
}

func (s *authService) newUser(acc *dto.AccountFields, role string, approved bool) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(acc.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码加密失败", zap.Error(err))
		return nil, err
	}
	return &model.User{
		Name:         strings.TrimSpace(acc.Name),
		Email:        normalizeEmail(acc.Email),
		Phone:        acc.Phone,
		PasswordHash: string(hash),
		Role:         role,
		IsApproved:   approved || model.DefaultApproved(role),
		IsActive:     true,
	}, nil
}

// mapRegisterError 唯一索引冲突 → 具体的业务错误
func (s *authService) mapRegisterError(err error, email string) error {
	if uv, ok := pkgerrors.AsUniqueViolation(err); ok {
		switch uv.Constraint {
		case repository.ConstraintUserEmail:
			return ErrEmailExists
		case repository.ConstraintCollegeCode:
			return ErrCollegeCodeExists
		case repository.ConstraintStudentRoll:
			return ErrRollNumberExists
		case repository.ConstraintStudentEmail:
			return ErrStudentEmailExists
		}
	}
	s.logger.Error("注册失败", zap.String("email", email), zap.Error(err))
	return err
}

func toUserResponse(u *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID:         u.UserID,
		Name:       u.Name,
		Email:      u.Email,
		Phone:      u.Phone,
		Role:       u.Role,
		IsApproved: u.IsApproved,
		IsActive:   u.IsActive,
		CollegeID:  u.CollegeID,
		CompanyID:  u.CompanyID,
		StudentID:  u.StudentID,
	}
}

func toRegisterResponse(u *model.User) *dto.RegisterResponse {
	return &dto.RegisterResponse{
		ID:         u.UserID,
		Name:       u.Name,
		Email:      u.Email,
		Role:       u.Role,
		IsApproved: u.IsApproved,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// dedupe 去除空白与重复项，保持原有顺序
func dedupe(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" || seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}

// [自证通过] internal/service/auth_service.go
