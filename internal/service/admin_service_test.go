package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Heman1223/Placement-Management-System-sub002/internal/dto"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/model"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/policy"
)

// ── 测试辅助 ──

func setupTestAdminService() (*fixture, AdminService, *policy.AuthorizationContext) {
	f := newFixture()
	svc := NewAdminService(f.repo, f.activity, f.notifier, f.logger)
	ac, _ := policy.Authorize(superAdminActor(), policy.OpManageAccounts)
	return f, svc, ac
}

func userOf(t *testing.T, f *fixture, id string) *model.User {
	t.Helper()
	u, err := f.users.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("查询用户 %s 失败: %v", id, err)
	}
	return u
}

// ────────────────────── 审核 ──────────────────────

func TestReviewCollege_ApproveSyncsAdminAccount(t *testing.T) {
	f, svc, ac := setupTestAdminService()
	college := f.college(t)
	f.colleges.colleges[college.CollegeID].IsVerified = false
	_ = f.users.UpdateFields(context.Background(), college.AdminUserID, map[string]interface{}{"is_approved": false})

	got, err := svc.ReviewCollege(context.Background(), ac, college.CollegeID, &dto.ReviewRequest{Approve: true})
	if err != nil {
		t.Fatalf("ReviewCollege 应成功: %v", err)
	}
	if !got.IsVerified || got.IsRejected || got.VerifiedAt == nil {
		t.Errorf("学院应为已认证状态: %+v", got)
	}
	if !userOf(t, f, college.AdminUserID).IsApproved {
		t.Error("学院管理员账号应同步为已审核")
	}
	if f.notifications.byType(college.AdminUserID, model.NotificationAccountApproved) != 1 {
		t.Error("应通知学院管理员审核通过")
	}
	if !containsString(f.logs.actions(), ActionReviewCollege) {
		t.Error("应记录审核操作日志")
	}
}

func TestReviewCompany_RejectIsExclusiveWithApprove(t *testing.T) {
	f, svc, ac := setupTestAdminService()
	company := f.company(t, model.CompanyTypeCompany)

	got, err := svc.ReviewCompany(context.Background(), ac, company.CompanyID, &dto.ReviewRequest{Approve: false, Reason: "资料不全"})
	if err != nil {
		t.Fatalf("ReviewCompany 应成功: %v", err)
	}
	if got.IsApproved || !got.IsRejected || got.RejectionReason != "资料不全" {
		t.Errorf("企业应为已拒绝状态: approved=%v rejected=%v", got.IsApproved, got.IsRejected)
	}
	if userOf(t, f, company.OwnerUserID).IsApproved {
		t.Error("拒绝后企业账号应为未审核")
	}
	if f.notifications.byType(company.OwnerUserID, model.NotificationAccountRejected) != 1 {
		t.Error("应通知企业审核未通过")
	}

	got, _ = svc.ReviewCompany(context.Background(), ac, company.CompanyID, &dto.ReviewRequest{Approve: true})
	if !got.IsApproved || got.IsRejected || got.RejectionReason != "" {
		t.Error("重新通过后应清除拒绝状态")
	}
}

func TestReviewCollege_NotFound(t *testing.T) {
	_, svc, ac := setupTestAdminService()

	_, err := svc.ReviewCollege(context.Background(), ac, "missing", &dto.ReviewRequest{Approve: true})
	if !errors.Is(err, ErrCollegeNotFound) {
		t.Fatalf("期望 ErrCollegeNotFound，实际: %v", err)
	}
}

// ────────────────────── 启用 / 停用 ──────────────────────

func TestSetUserActive_CannotDeactivateSelf(t *testing.T) {
	f, svc, _ := setupTestAdminService()
	admin := f.newUser(t, model.RoleSuperAdmin, nil)
	ac := authorize(t, policy.Actor{UserID: admin.UserID, Role: model.RoleSuperAdmin, IsApproved: true, IsActive: true}, policy.OpManageAccounts)

	if err := svc.SetUserActive(context.Background(), ac, admin.UserID, false); !errors.Is(err, ErrCannotDeactivateSelf) {
		t.Fatalf("期望 ErrCannotDeactivateSelf，实际: %v", err)
	}

	other := f.newUser(t, model.RoleCompany, nil)
	if err := svc.SetUserActive(context.Background(), ac, other.UserID, false); err != nil {
		t.Fatalf("停用其他账号应成功: %v", err)
	}
	if userOf(t, f, other.UserID).IsActive {
		t.Error("账号应已停用")
	}
}

func TestSetCompanyActive_CascadesToOwner(t *testing.T) {
	f, svc, ac := setupTestAdminService()
	company := f.company(t, model.CompanyTypeCompany)

	if err := svc.SetCompanyActive(context.Background(), ac, company.CompanyID, false); err != nil {
		t.Fatalf("SetCompanyActive 应成功: %v", err)
	}
	if f.companies.companies[company.CompanyID].IsActive {
		t.Error("企业应已停用")
	}
	if userOf(t, f, company.OwnerUserID).IsActive {
		t.Error("企业账号应同步停用")
	}
}

func TestSuspendCompany(t *testing.T) {
	f, svc, ac := setupTestAdminService()
	company := f.company(t, model.CompanyTypeCompany)

	got, err := svc.SuspendCompany(context.Background(), ac, company.CompanyID, &dto.SuspendRequest{Suspend: true, Reason: "违规"})
	if err != nil {
		t.Fatalf("SuspendCompany 应成功: %v", err)
	}
	if !got.IsSuspended || got.SuspensionReason != "违规" {
		t.Errorf("企业应已暂停: %+v", got)
	}
	if !userOf(t, f, company.OwnerUserID).IsActive {
		t.Error("暂停不影响账号本身")
	}

	got, _ = svc.SuspendCompany(context.Background(), ac, company.CompanyID, &dto.SuspendRequest{Suspend: false, Reason: "忽略"})
	if got.IsSuspended || got.SuspensionReason != "" {
		t.Error("解除暂停后应清空原因")
	}
}

func TestSetDownloadLimits_KeepsCounters(t *testing.T) {
	f, svc, ac := setupTestAdminService()
	company := f.company(t, model.CompanyTypeCompany)
	f.companies.companies[company.CompanyID].Downloads.DailyCount = 5
	daily := 20

	got, err := svc.SetDownloadLimits(context.Background(), ac, company.CompanyID, &dto.DownloadLimitRequest{DailyLimit: &daily})
	if err != nil {
		t.Fatalf("SetDownloadLimits 应成功: %v", err)
	}
	if got.Downloads.DailyLimit == nil || *got.Downloads.DailyLimit != 20 || got.Downloads.MonthlyLimit != nil {
		t.Error("限额覆盖应按请求设置")
	}
	if f.companies.companies[company.CompanyID].Downloads.DailyCount != 5 {
		t.Error("修改限额不应清零已用次数")
	}
}

// ────────────────────── 软删除 / 恢复 ──────────────────────

func TestDeleteCollege_CascadeAndRestore(t *testing.T) {
	f, svc, ac := setupTestAdminService()
	college := f.college(t)

	if err := svc.DeleteCollege(context.Background(), ac, college.CollegeID); err != nil {
		t.Fatalf("DeleteCollege 应成功: %v", err)
	}
	if userOf(t, f, college.AdminUserID).IsActive {
		t.Error("删除学院应停用其管理员")
	}
	if _, err := f.colleges.GetByID(context.Background(), college.CollegeID, false); err == nil {
		t.Error("删除后的学院默认不可见")
	}
	if err := svc.DeleteCollege(context.Background(), ac, college.CollegeID); !errors.Is(err, ErrCollegeNotFound) {
		t.Errorf("重复删除应返回 ErrCollegeNotFound，实际: %v", err)
	}

	if err := svc.RestoreCollege(context.Background(), ac, college.CollegeID); err != nil {
		t.Fatalf("RestoreCollege 应成功: %v", err)
	}
	if !userOf(t, f, college.AdminUserID).IsActive {
		t.Error("恢复学院应重新启用管理员")
	}
	if err := svc.RestoreCollege(context.Background(), ac, college.CollegeID); !errors.Is(err, ErrNotDeleted) {
		t.Errorf("未删除的学院恢复应返回 ErrNotDeleted，实际: %v", err)
	}
}

func TestDeleteCompany_CascadeAndRestore(t *testing.T) {
	f, svc, ac := setupTestAdminService()
	company := f.company(t, model.CompanyTypePlacementAgency)

	if err := svc.DeleteCompany(context.Background(), ac, company.CompanyID); err != nil {
		t.Fatalf("DeleteCompany 应成功: %v", err)
	}
	if userOf(t, f, company.OwnerUserID).IsActive {
		t.Error("删除企业应停用其账号")
	}
	if err := svc.RestoreCompany(context.Background(), ac, company.CompanyID); err != nil {
		t.Fatalf("RestoreCompany 应成功: %v", err)
	}
	if !f.companies.companies[company.CompanyID].IsActive || !userOf(t, f, company.OwnerUserID).IsActive {
		t.Error("恢复后企业与账号均应启用")
	}
}

// ────────────────────── 概览 / 对账 ──────────────────────

func TestDashboard_CountsByGroup(t *testing.T) {
	f, svc, _ := setupTestAdminService()
	college := f.college(t)
	company := f.company(t, model.CompanyTypeCompany)
	f.student(t, college.CollegeID, nil)
	f.openJob(t, company.CompanyID, nil)
	f.openJob(t, company.CompanyID, func(j *model.Job) { j.Status = model.JobStatusDraft })

	resp, err := svc.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("Dashboard 应成功: %v", err)
	}
	if resp.Users[model.RoleStudent] != 1 || resp.Users[model.RoleCompany] != 1 {
		t.Errorf("按角色统计用户错误: %v", resp.Users)
	}
	if resp.Jobs[model.JobStatusOpen] != 1 || resp.Jobs[model.JobStatusDraft] != 1 {
		t.Errorf("按状态统计职位错误: %v", resp.Jobs)
	}
	if resp.Colleges["verified"] != 1 {
		t.Errorf("已认证学院数错误: %v", resp.Colleges)
	}
}

func TestReconcile_ReportsDrift(t *testing.T) {
	f, svc, _ := setupTestAdminService()
	f.stats.drift = 3

	resp, err := svc.Reconcile(context.Background(), "admin-1")
	if err != nil {
		t.Fatalf("Reconcile 应成功: %v", err)
	}
	if resp.Jobs != 3 || resp.Companies != 0 || resp.Colleges != 0 {
		t.Errorf("对账结果错误: %+v", resp)
	}
	if !containsString(f.logs.actions(), ActionReconcileStats) {
		t.Error("手动对账应记录操作日志")
	}
}

func TestReconcile_ScheduledRunIsNotLogged(t *testing.T) {
	f, svc, _ := setupTestAdminService()

	if _, err := svc.Reconcile(context.Background(), ""); err != nil {
		t.Fatalf("Reconcile 应成功: %v", err)
	}
	if len(f.logs.actions()) != 0 {
		t.Errorf("定时对账不记录操作日志，实际 %v", f.logs.actions())
	}
}

// ────────────────────── 通知 ──────────────────────

func TestNotifications_ReadFlow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		f.notifier.Notify(ctx, Notice{UserID: "u-1", Type: model.NotificationShortlisted, Title: "入围"})
	}
	f.notifier.Notify(ctx, Notice{UserID: "u-2", Type: model.NotificationShortlisted, Title: "入围"})
	f.notifier.Notify(ctx, Notice{Type: model.NotificationShortlisted, Title: "无接收人"})

	if n, _ := f.notifier.CountUnread(ctx, "u-1"); n != 3 {
		t.Fatalf("未读数应为 3，实际 %d", n)
	}

	list, _, err := f.notifier.List(ctx, "u-1", &dto.NotificationListRequest{UnreadOnly: true})
	if err != nil || len(list) != 3 {
		t.Fatalf("List 应返回 3 条，实际 %d (%v)", len(list), err)
	}
	if err := f.notifier.MarkRead(ctx, "u-1", list[0].NotificationID); err != nil {
		t.Fatalf("MarkRead 应成功: %v", err)
	}
	if err := f.notifier.MarkRead(ctx, "u-2", list[1].NotificationID); !errors.Is(err, ErrNotificationNotFound) {
		t.Errorf("不能标记他人的通知，实际: %v", err)
	}

	n, err := f.notifier.MarkAllRead(ctx, "u-1")
	if err != nil || n != 2 {
		t.Errorf("MarkAllRead 应标记 2 条，实际 %d (%v)", n, err)
	}
	if n, _ := f.notifier.CountUnread(ctx, "u-2"); n != 1 {
		t.Errorf("其他用户的未读数不受影响，实际 %d", n)
	}
}
