// Package scheduler 定时任务：关闭过期职位、统计计数对账
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Heman1223/Placement-Management-System-sub002/config"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/dto"
)

// 单次任务执行超时
const runTimeout = 4 * time.Minute

// JobCloser 关闭已过投递截止时间的职位，service.JobService 实现该接口
type JobCloser interface {
	CloseExpired(ctx context.Context, now time.Time) (int, error)
}

// StatsReconciler 按事实表重算统计计数，service.AdminService 实现该接口
type StatsReconciler interface {
	Reconcile(ctx context.Context, actorID string) (*dto.ReconcileResponse, error)
}

// Scheduler 基于 cron 的后台任务调度
type Scheduler struct {
	cron       *cron.Cron
	jobs       JobCloser
	reconciler StatsReconciler
	logger     *zap.Logger
	now        func() time.Time
}

// New 按配置注册任务；表达式为空的任务不注册
func New(cfg config.SchedulerConfig, jobs JobCloser, reconciler StatsReconciler, logger *zap.Logger) (*Scheduler, error) {
	cl := cronLogger{logger: logger.Named("cron")}
	s := &Scheduler{
		cron:       cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		jobs:       jobs,
		reconciler: reconciler,
		logger:     logger,
		now:        time.Now,
	}

	tasks := []struct {
		name string
		spec string
		run  func(ctx context.Context) error
	}{
		{"close_expired_jobs", cfg.CloseExpiredJobs, s.closeExpiredJobs},
		{"reconcile_stats", cfg.ReconcileStats, s.reconcileStats},
	}
	for _, task := range tasks {
		if task.spec == "" {
			continue
		}
		task := task
		if _, err := s.cron.AddFunc(task.spec, func() { s.run(task.name, task.run) }); err != nil {
			return nil, fmt.Errorf("注册定时任务 %s 失败: %w", task.name, err)
		}
		logger.Info("定时任务已注册", zap.String("task", task.name), zap.String("spec", task.spec))
	}
	return s, nil
}

// Start 启动调度（非阻塞）
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop 停止调度并等待正在执行的任务结束，ctx 到期后不再等待
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("等待定时任务结束超时")
	}
}

func (s *Scheduler) run(name string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	start := time.Now()
	if err := fn(ctx); err != nil {
		s.logger.Error("定时任务执行失败", zap.String("task", name), zap.Error(err))
		return
	}
	s.logger.Debug("定时任务完成", zap.String("task", name), zap.Duration("latency", time.Since(start)))
}

func (s *Scheduler) closeExpiredJobs(ctx context.Context) error {
	n, err := s.jobs.CloseExpired(ctx, s.now())
	if n > 0 {
		s.logger.Info("已关闭过期职位", zap.Int("count", n))
	}
	return err
}

// 系统触发的对账不记录操作日志
func (s *Scheduler) reconcileStats(ctx context.Context) error {
	_, err := s.reconciler.Reconcile(ctx, "")
	return err
}

// cronLogger 将 cron 内部日志转发到 zap
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
