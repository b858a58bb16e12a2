package service

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Heman1223/Placement-Management-System-sub002/internal/dto"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/model"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/policy"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/repository"
)

// ── 账号模块业务错误 ──

var (
	ErrWrongPassword = errors.New("原密码错误")
)

// UserService 账号自助维护与管理员重置密码
// 角色、审核与启停状态不在此修改，分别由注册流程与 AdminService 维护
type UserService interface {
	GetByID(ctx context.Context, id string) (*dto.UserResponse, error)
	UpdateProfile(ctx context.Context, ac *policy.AuthorizationContext, req *dto.UpdateProfileRequest) (*dto.UserResponse, error)
	ChangePassword(ctx context.Context, ac *policy.AuthorizationContext, req *dto.ChangePasswordRequest) error
	ResetPassword(ctx context.Context, ac *policy.AuthorizationContext, id string) (*dto.ResetPasswordResponse, error)
}

type userService struct {
	repo     *repository.Repository
	activity ActivityService
	logger   *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(repo *repository.Repository, activity ActivityService, logger *zap.Logger) UserService {
	return &userService{repo: repo, activity: activity, logger: logger}
}

func (s *userService) GetByID(ctx context.Context, id string) (*dto.UserResponse, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toUserResponse(user)
	return &resp, nil
}

// ────────────────────── UpdateProfile ──────────────────────

func (s *userService) UpdateProfile(ctx context.Context, ac *policy.AuthorizationContext, req *dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	user, err := s.load(ctx, ac.Actor.UserID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		user.Phone = strings.TrimSpace(*req.Phone)
	}
	user.UpdatedBy = &ac.Actor.UserID

	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("更新账号信息失败", zap.String("id", user.UserID), zap.Error(err))
		return nil, err
	}

	resp := toUserResponse(user)
	return &resp, nil
}

// ────────────────────── ChangePassword ──────────────────────

func (s *userService) ChangePassword(ctx context.Context, ac *policy.AuthorizationContext, req *dto.ChangePasswordRequest) error {
	user, err := s.load(ctx, ac.Actor.UserID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return ErrWrongPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return err
	}
	if err := s.repo.User.UpdateFields(ctx, user.UserID, map[string]interface{}{"password_hash": string(hash)}); err != nil {
		s.logger.Error("修改密码失败", zap.String("id", user.UserID), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── ResetPassword ──────────────────────

// ResetPassword 超级管理员为账号生成临时密码
func (s *userService) ResetPassword(ctx context.Context, ac *policy.AuthorizationContext, id string) (*dto.ResetPasswordResponse, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	tempPassword, err := generateTempPassword(10)
	if err != nil {
		s.logger.Error("生成临时密码失败", zap.Error(err))
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	fields := map[string]interface{}{
		"password_hash": string(hash),
		"updated_by":    ac.Actor.UserID,
	}
	if err := s.repo.User.UpdateFields(ctx, user.UserID, fields); err != nil {
		s.logger.Error("重置密码失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	s.activity.Record(ctx, ac.Actor.UserID, ActionResetPassword, TargetUser, user.UserID, nil)
	return &dto.ResetPasswordResponse{TempPassword: tempPassword}, nil
}

func (s *userService) load(ctx context.Context, id string) (*model.User, error) {
	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return user, nil
}

// generateTempPassword 生成指定长度的临时密码（至少含一个字母与一个数字）
func generateTempPassword(length int) (string, error) {
	const letters = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"
	const digits = "23456789"
	const all = letters + digits

	if length < 8 {
		length = 8
	}
	pick := func(set string) (byte, error) {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
		if err != nil {
			return 0, err
		}
		return set[n.Int64()], nil
	}

	out := make([]byte, length)
	var err error
	if out[0], err = pick(letters); err != nil {
		return "", err
	}
	if out[1], err = pick(digits); err != nil {
		return "", err
	}
	for i := 2; i < length; i++ {
		if out[i], err = pick(all); err != nil {
			return "", err
		}
	}

	// Fisher-Yates
	for i := length - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		out[i], out[j.Int64()] = out[j.Int64()], out[i]
	}
	return string(out), nil
}
