package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Heman1223/Placement-Management-System-sub002/internal/dto"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/eligibility"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/model"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/policy"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/stats"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/workflow"
)

// ── 测试辅助 ──

type appFixture struct {
	*fixture
	svc     ApplicationService
	college *model.College
	company *model.Company
	job     *model.Job
}

func setupTestApplicationService(t *testing.T) *appFixture {
	t.Helper()
	f := newFixture()
	af := &appFixture{
		fixture: f,
		svc:     NewApplicationService(f.repo, f.projector, f.activity, f.notifier, f.logger),
	}
	af.college = f.college(t)
	af.company = f.company(t, model.CompanyTypeCompany)
	af.job = f.openJob(t, af.company.CompanyID, nil)
	return af
}

func (af *appFixture) apply(t *testing.T, st *model.Student) *model.Application {
	t.Helper()
	app, err := af.svc.Apply(context.Background(), authorize(t, studentActor(st), policy.OpApply), af.job.JobID, &dto.ApplyRequest{})
	if err != nil {
		t.Fatalf("Apply 应成功: %v", err)
	}
	return app
}

func (af *appFixture) move(t *testing.T, appID, to string, offer *dto.OfferRequest) *model.Application {
	t.Helper()
	ac := authorize(t, companyActor(af.company), policy.OpMoveApplication)
	app, err := af.svc.UpdateStatus(context.Background(), ac, appID, &dto.UpdateApplicationStatusRequest{Status: to, Offer: offer})
	if err != nil {
		t.Fatalf("UpdateStatus → %s 应成功: %v", to, err)
	}
	return app
}

func (af *appFixture) jobStat(column string) int {
	return af.stats.get(stats.TableJobs, af.job.JobID, column)
}

// ────────────────────── Apply ──────────────────────

func TestApply_Success(t *testing.T) {
	af := setupTestApplicationService(t)
	st := af.student(t, af.college.CollegeID, nil)

	app := af.apply(t, st)
	if app.Status != model.ApplicationStatusApplied || app.Source != model.ApplicationSourceApply {
		t.Errorf("新投递应为 applied/apply，实际 %s/%s", app.Status, app.Source)
	}
	if app.CompanyID != af.company.CompanyID || app.CollegeID != af.college.CollegeID {
		t.Error("投递应冗余记录企业与学院")
	}
	if snap := app.ResumeSnapshot.Data(); snap.CGPA != 8.0 || snap.Department != "CSE" {
		t.Errorf("简历快照错误: %+v", snap)
	}

	history, _ := af.apps.ListHistory(context.Background(), app.ApplicationID)
	if len(history) != 1 || history[0].Status != model.ApplicationStatusApplied {
		t.Fatalf("应有一条 applied 历史，实际 %+v", history)
	}
	if history[0].ChangedBy != *st.UserID {
		t.Errorf("历史记录操作者应为学生账号，实际 %s", history[0].ChangedBy)
	}
	if got := af.jobStat(stats.JobTotalApplications); got != 1 {
		t.Errorf("职位投递数应为 1，实际 %d", got)
	}
	if got := af.students.get(st.StudentID).PlacementStatus; got != model.PlacementNotPlaced {
		t.Errorf("仅投递不改变就业状态，实际 %s", got)
	}
}

func TestApply_DuplicateLeavesStatsUntouched(t *testing.T) {
	af := setupTestApplicationService(t)
	st := af.student(t, af.college.CollegeID, nil)
	af.apply(t, st)

	_, err := af.svc.Apply(context.Background(), authorize(t, studentActor(st), policy.OpApply), af.job.JobID, &dto.ApplyRequest{})
	var denial *eligibility.Denial
	if !errors.As(err, &denial) || denial.Reason != eligibility.AlreadyApplied {
		t.Fatalf("重复投递应返回 AlreadyApplied，实际: %v", err)
	}
	if got := af.jobStat(stats.JobTotalApplications); got != 1 {
		t.Errorf("重复投递不应改变计数，实际 %d", got)
	}
	if af.apps.count() != 1 {
		t.Errorf("应只有一条投递，实际 %d", af.apps.count())
	}
}

func TestApply_CgpaTooLow(t *testing.T) {
	af := setupTestApplicationService(t)
	st := af.student(t, af.college.CollegeID, func(s *model.Student) { s.CGPA = 6.5 })

	_, err := af.svc.Apply(context.Background(), authorize(t, studentActor(st), policy.OpApply), af.job.JobID, &dto.ApplyRequest{})
	if !errors.Is(err, &eligibility.Denial{Reason: eligibility.CgpaTooLow}) {
		t.Fatalf("期望 CgpaTooLow，实际: %v", err)
	}
	if af.apps.count() != 0 {
		t.Error("资格不符时不应创建投递")
	}
}

func TestApply_UnverifiedProfile(t *testing.T) {
	af := setupTestApplicationService(t)
	st := af.student(t, af.college.CollegeID, func(s *model.Student) { s.IsVerified = false })

	_, err := af.svc.Apply(context.Background(), authorize(t, studentActor(st), policy.OpApply), af.job.JobID, &dto.ApplyRequest{})
	if !errors.Is(err, &eligibility.Denial{Reason: eligibility.ProfileNotVerified}) {
		t.Fatalf("期望 ProfileNotVerified，实际: %v", err)
	}
}

func TestApply_DraftJobIsHidden(t *testing.T) {
	af := setupTestApplicationService(t)
	draft := af.openJob(t, af.company.CompanyID, func(j *model.Job) { j.Status = model.JobStatusDraft })
	st := af.student(t, af.college.CollegeID, nil)

	_, err := af.svc.Apply(context.Background(), authorize(t, studentActor(st), policy.OpApply), draft.JobID, &dto.ApplyRequest{})
	if !errors.Is(err, policy.ErrNotFound) {
		t.Fatalf("学生看不到草稿职位，期望 ErrNotFound，实际: %v", err)
	}
}

func TestApply_OtherCollegeDrive(t *testing.T) {
	af := setupTestApplicationService(t)
	other := af.fixture.college(t)
	drive := af.openJob(t, af.company.CompanyID, func(j *model.Job) {
		j.IsPlacementDrive = true
		j.CollegeID = &other.CollegeID
	})
	st := af.student(t, af.college.CollegeID, nil)

	_, err := af.svc.Apply(context.Background(), authorize(t, studentActor(st), policy.OpApply), drive.JobID, &dto.ApplyRequest{})
	if !errors.Is(err, policy.ErrNotFound) {
		t.Fatalf("其他学院的校园专场应不可见，实际: %v", err)
	}
}

func TestApply_ConcurrentOnlyOneSucceeds(t *testing.T) {
	af := setupTestApplicationService(t)
	st := af.student(t, af.college.CollegeID, nil)
	ac := authorize(t, studentActor(st), policy.OpApply)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = af.svc.Apply(context.Background(), ac, af.job.JobID, &dto.ApplyRequest{})
		}(i)
	}
	wg.Wait()

	success := 0
	for _, err := range errs {
		switch {
		case err == nil:
			success++
		case errors.Is(err, ErrDuplicateApplication),
			errors.Is(err, &eligibility.Denial{Reason: eligibility.AlreadyApplied}):
		default:
			t.Errorf("并发投递出现意外错误: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("并发投递应恰好成功一次，实际 %d", success)
	}
	if got := af.jobStat(stats.JobTotalApplications); got != 1 {
		t.Errorf("投递计数应为 1，实际 %d", got)
	}
}

// ────────────────────── Shortlist ──────────────────────

func TestShortlist_ConcurrentDuplicate(t *testing.T) {
	af := setupTestApplicationService(t)
	st := af.student(t, af.college.CollegeID, nil)
	ac := authorize(t, companyActor(af.company), policy.OpShortlist)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = af.svc.Shortlist(context.Background(), ac, af.job.JobID, &dto.ShortlistRequest{StudentID: st.StudentID})
		}(i)
	}
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrDuplicateApplication):
			dup++
		default:
			t.Errorf("意外错误: %v", err)
		}
	}
	if ok != 1 || dup != 1 {
		t.Fatalf("期望一次成功一次重复，实际 成功=%d 重复=%d", ok, dup)
	}
	if got := af.jobStat(stats.JobShortlisted); got != 1 {
		t.Errorf("入围计数应为 1，实际 %d", got)
	}
	if got := af.jobStat(stats.JobTotalApplications); got != 1 {
		t.Errorf("投递计数应为 1，实际 %d", got)
	}
	if got := af.students.get(st.StudentID).PlacementStatus; got != model.PlacementInProcess {
		t.Errorf("入围后学生应为 in_process，实际 %s", got)
	}
	if af.notifications.byType(*st.UserID, model.NotificationShortlisted) != 1 {
		t.Error("入围成功应通知学生一次")
	}
}

func TestShortlist_OtherCompanyJob(t *testing.T) {
	af := setupTestApplicationService(t)
	other := af.fixture.company(t, model.CompanyTypeCompany)
	st := af.student(t, af.college.CollegeID, nil)

	ac := authorize(t, companyActor(other), policy.OpShortlist)
	_, err := af.svc.Shortlist(context.Background(), ac, af.job.JobID, &dto.ShortlistRequest{StudentID: st.StudentID})
	if !errors.Is(err, policy.ErrNotFound) {
		t.Fatalf("期望 ErrNotFound，实际: %v", err)
	}
}

func TestShortlist_AgencyNeedsCollegeAccess(t *testing.T) {
	af := setupTestApplicationService(t)
	agency := af.fixture.company(t, model.CompanyTypePlacementAgency)
	job := af.openJob(t, agency.CompanyID, nil)
	st := af.student(t, af.college.CollegeID, nil)

	ac := authorize(t, companyActor(agency), policy.OpShortlist)
	_, err := af.svc.Shortlist(context.Background(), ac, job.JobID, &dto.ShortlistRequest{StudentID: st.StudentID})
	if !errors.Is(err, policy.ErrNotFound) {
		t.Fatalf("未获授权学院的学生对机构不可见，实际: %v", err)
	}
}

// ────────────────────── 状态推进 ──────────────────────

func TestHirePath_PlacesStudentAndUpdatesStats(t *testing.T) {
	af := setupTestApplicationService(t)
	st := af.student(t, af.college.CollegeID, nil)
	app := af.apply(t, st)

	pkg := 1500000.0
	af.move(t, app.ApplicationID, model.ApplicationStatusOffered, &dto.OfferRequest{Package: &pkg, Role: "SDE-1"})

	accepted, err := af.svc.RespondToOffer(context.Background(), authorize(t, studentActor(st), policy.OpRespondToOffer),
		app.ApplicationID, &dto.RespondOfferRequest{Accept: true})
	if err != nil {
		t.Fatalf("接受 Offer 应成功: %v", err)
	}
	if accepted.Offer.Response != model.OfferResponseAccepted {
		t.Errorf("Offer 应标记为 accepted，实际 %s", accepted.Offer.Response)
	}

	hired := af.move(t, app.ApplicationID, model.ApplicationStatusHired, nil)
	if hired.Status != model.ApplicationStatusHired {
		t.Fatalf("期望 hired，实际 %s", hired.Status)
	}

	history, _ := af.apps.ListHistory(context.Background(), app.ApplicationID)
	if len(history) != 4 {
		t.Errorf("applied → offered → offer_accepted → hired 应有 4 条历史，实际 %d", len(history))
	}

	placed := af.students.get(st.StudentID)
	if placed.PlacementStatus != model.PlacementPlaced {
		t.Fatalf("学生应为 placed，实际 %s", placed.PlacementStatus)
	}
	if placed.Placement.Package != pkg || placed.Placement.Role != "SDE-1" || placed.Placement.CompanyName != "测试企业" {
		t.Errorf("就业信息应取自 Offer，实际 %+v", placed.Placement)
	}

	if got := af.jobStat(stats.JobHired); got != 1 {
		t.Errorf("职位录用数应为 1，实际 %d", got)
	}
	if got := af.stats.get(stats.TableCompanies, af.company.CompanyID, stats.CompanyTotalHires); got != 1 {
		t.Errorf("企业录用数应为 1，实际 %d", got)
	}
	if got := af.stats.get(stats.TableColleges, af.college.CollegeID, stats.CollegePlacedStudents); got != 1 {
		t.Errorf("学院就业人数应为 1，实际 %d", got)
	}
}

func TestHire_SecondOfferDoesNotDoubleCountCollege(t *testing.T) {
	af := setupTestApplicationService(t)
	st := af.student(t, af.college.CollegeID, nil)
	second := af.openJob(t, af.company.CompanyID, nil)

	app1 := af.apply(t, st)
	af.move(t, app1.ApplicationID, model.ApplicationStatusHired, nil)

	app2, err := af.svc.Apply(context.Background(), authorize(t, studentActor(st), policy.OpApply), second.JobID, &dto.ApplyRequest{})
	if err != nil {
		t.Fatalf("第二次投递应成功: %v", err)
	}
	af.move(t, app2.ApplicationID, model.ApplicationStatusHired, nil)

	if got := af.stats.get(stats.TableColleges, af.college.CollegeID, stats.CollegePlacedStudents); got != 1 {
		t.Errorf("同一学生多次录用学院就业人数仍为 1，实际 %d", got)
	}
	if got := af.stats.get(stats.TableCompanies, af.company.CompanyID, stats.CompanyTotalHires); got != 2 {
		t.Errorf("企业录用数应为 2，实际 %d", got)
	}
}

func TestUpdateStatus_BackwardRejected(t *testing.T) {
	af := setupTestApplicationService(t)
	st := af.student(t, af.college.CollegeID, nil)
	app := af.apply(t, st)
	af.move(t, app.ApplicationID, model.ApplicationStatusInterviewed, nil)

	ac := authorize(t, companyActor(af.company), policy.OpMoveApplication)
	_, err := af.svc.UpdateStatus(context.Background(), ac, app.ApplicationID,
		&dto.UpdateApplicationStatusRequest{Status: model.ApplicationStatusShortlisted})
	if !errors.Is(err, workflow.ErrBackwardTransition) {
		t.Fatalf("期望 ErrBackwardTransition，实际: %v", err)
	}
}

func TestUpdateStatus_ForeignCompanyGetsNotFound(t *testing.T) {
	af := setupTestApplicationService(t)
	st := af.student(t, af.college.CollegeID, nil)
	app := af.apply(t, st)
	other := af.fixture.company(t, model.CompanyTypeCompany)

	ac := authorize(t, companyActor(other), policy.OpMoveApplication)
	_, err := af.svc.UpdateStatus(context.Background(), ac, app.ApplicationID,
		&dto.UpdateApplicationStatusRequest{Status: model.ApplicationStatusUnderReview})
	if !errors.Is(err, policy.ErrNotFound) {
		t.Fatalf("期望 ErrNotFound，实际: %v", err)
	}
	if af.apps.apps[app.ApplicationID].Status != model.ApplicationStatusApplied {
		t.Error("越权请求不应修改投递")
	}
}

// ────────────────────── 学生操作 ──────────────────────

func TestWithdraw_OnlyOwnerAndOnlyOnce(t *testing.T) {
	af := setupTestApplicationService(t)
	st := af.student(t, af.college.CollegeID, nil)
	other := af.student(t, af.college.CollegeID, nil)
	app := af.apply(t, st)

	_, err := af.svc.Withdraw(context.Background(), authorize(t, studentActor(other), policy.OpWithdraw), app.ApplicationID, &dto.WithdrawRequest{})
	if !errors.Is(err, policy.ErrNotFound) {
		t.Fatalf("他人投递应不可见，实际: %v", err)
	}

	ac := authorize(t, studentActor(st), policy.OpWithdraw)
	if _, err := af.svc.Withdraw(context.Background(), ac, app.ApplicationID, &dto.WithdrawRequest{Remarks: "不考虑了"}); err != nil {
		t.Fatalf("Withdraw 应成功: %v", err)
	}
	_, err = af.svc.Withdraw(context.Background(), ac, app.ApplicationID, &dto.WithdrawRequest{})
	if !errors.Is(err, workflow.ErrTerminalState) {
		t.Fatalf("终态后再撤回应返回 ErrTerminalState，实际: %v", err)
	}
}

func TestRespondToOffer_DeclineWithdraws(t *testing.T) {
	af := setupTestApplicationService(t)
	st := af.student(t, af.college.CollegeID, nil)
	app := af.apply(t, st)
	af.move(t, app.ApplicationID, model.ApplicationStatusOffered, nil)

	declined, err := af.svc.RespondToOffer(context.Background(), authorize(t, studentActor(st), policy.OpRespondToOffer),
		app.ApplicationID, &dto.RespondOfferRequest{Accept: false})
	if err != nil {
		t.Fatalf("拒绝 Offer 应成功: %v", err)
	}
	if declined.Status != model.ApplicationStatusWithdrawn || declined.Offer.Response != model.OfferResponseDeclined {
		t.Errorf("拒绝后应为 withdrawn/declined，实际 %s/%s", declined.Status, declined.Offer.Response)
	}
}

func TestRespondToOffer_NoOffer(t *testing.T) {
	af := setupTestApplicationService(t)
	st := af.student(t, af.college.CollegeID, nil)
	app := af.apply(t, st)
	af.move(t, app.ApplicationID, model.ApplicationStatusInterviewed, nil)

	_, err := af.svc.RespondToOffer(context.Background(), authorize(t, studentActor(st), policy.OpRespondToOffer),
		app.ApplicationID, &dto.RespondOfferRequest{Accept: true})
	if !errors.Is(err, workflow.ErrNoPendingOffer) {
		t.Fatalf("期望 ErrNoPendingOffer，实际: %v", err)
	}
}

// ────────────────────── 面试 ──────────────────────

func TestScheduleInterview_AdvancesAndExportsICS(t *testing.T) {
	af := setupTestApplicationService(t)
	st := af.student(t, af.college.CollegeID, nil)
	app := af.apply(t, st)

	ac := authorize(t, companyActor(af.company), policy.OpScheduleInterview)
	at := time.Date(2026, 11, 3, 10, 0, 0, 0, time.UTC)
	iv, err := af.svc.ScheduleInterview(context.Background(), ac, app.ApplicationID, &dto.ScheduleInterviewRequest{
		Mode:        "online",
		ScheduledAt: at,
		MeetingLink: "https://meet.example.com/abc",
		Interviewer: "王经理",
	})
	if err != nil {
		t.Fatalf("ScheduleInterview 应成功: %v", err)
	}
	if iv.Round != 1 || iv.DurationMinutes != 60 {
		t.Errorf("默认轮次 1、时长 60 分钟，实际 %d/%d", iv.Round, iv.DurationMinutes)
	}

	stored, _ := af.apps.GetByID(context.Background(), app.ApplicationID)
	if stored.Status != model.ApplicationStatusInterviewScheduled {
		t.Errorf("安排面试后应推进到 interview_scheduled，实际 %s", stored.Status)
	}
	if af.notifications.byType(*st.UserID, model.NotificationInterview) != 1 {
		t.Error("应通知学生面试安排")
	}

	// 第二轮不再推进状态
	if _, err := af.svc.ScheduleInterview(context.Background(), ac, app.ApplicationID, &dto.ScheduleInterviewRequest{
		Mode: "offline", ScheduledAt: at.Add(48 * time.Hour), Location: "总部 3 楼",
	}); err != nil {
		t.Fatalf("第二轮面试应成功: %v", err)
	}
	history, _ := af.apps.ListHistory(context.Background(), app.ApplicationID)
	if len(history) != 2 {
		t.Errorf("第二轮面试不应追加状态历史，实际 %d 条", len(history))
	}

	data, err := af.svc.InterviewICS(context.Background(), authorize(t, studentActor(st), policy.OpViewApplications), app.ApplicationID, iv.InterviewID)
	if err != nil {
		t.Fatalf("InterviewICS 应成功: %v", err)
	}
	cal := string(data)
	for _, want := range []string{"BEGIN:VCALENDAR", "BEGIN:VEVENT", "20261103T100000Z", "meet.example.com"} {
		if !strings.Contains(cal, want) {
			t.Errorf("日历内容缺少 %q", want)
		}
	}
}

func TestInterviewICS_UnknownInterview(t *testing.T) {
	af := setupTestApplicationService(t)
	st := af.student(t, af.college.CollegeID, nil)
	app := af.apply(t, st)

	_, err := af.svc.InterviewICS(context.Background(), authorize(t, studentActor(st), policy.OpViewApplications), app.ApplicationID, "missing")
	if !errors.Is(err, ErrInterviewNotFound) {
		t.Fatalf("期望 ErrInterviewNotFound，实际: %v", err)
	}
}

// ────────────────────── 查询 ──────────────────────

func TestListApplications_ScopedByRole(t *testing.T) {
	af := setupTestApplicationService(t)
	s1 := af.student(t, af.college.CollegeID, nil)
	s2 := af.student(t, af.college.CollegeID, nil)
	af.apply(t, s1)
	af.apply(t, s2)

	mine, total, err := af.svc.List(context.Background(), authorize(t, studentActor(s1), policy.OpViewApplications), &dto.ApplicationListRequest{})
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if total != 1 || mine[0].StudentID != s1.StudentID {
		t.Errorf("学生只能看到本人投递，实际 total=%d", total)
	}

	other := af.fixture.company(t, model.CompanyTypeCompany)
	_, total, _ = af.svc.List(context.Background(), authorize(t, companyActor(other), policy.OpViewApplications), &dto.ApplicationListRequest{})
	if total != 0 {
		t.Errorf("其他企业不应看到投递，实际 %d", total)
	}

	_, total, _ = af.svc.List(context.Background(), authorize(t, collegeActor(af.college), policy.OpViewApplications), &dto.ApplicationListRequest{})
	if total != 2 {
		t.Errorf("学院应看到本校学生的全部投递，实际 %d", total)
	}
}
