// Package workflow 投递状态机与职位状态规则。
// 只修改内存中的模型并返回历史记录与领域事件，持久化由调用方在同一事务内完成。
package workflow

import (
	"errors"
	"time"

	"github.com/Heman1223/Placement-Management-System-sub002/internal/model"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/policy"
)

var (
	ErrUnknownStatus      = errors.New("未知的投递状态")
	ErrSameStatus         = errors.New("投递已处于该状态")
	ErrTerminalState      = errors.New("投递已结束，不能再变更状态")
	ErrBackwardTransition = errors.New("投递状态只能向前推进")
	ErrNoPendingOffer     = errors.New("当前没有待答复的 Offer")
)

// progression 非终态的推进顺序，下标即顺位
var progression = []string{
	model.ApplicationStatusApplied,
	model.ApplicationStatusUnderReview,
	model.ApplicationStatusShortlisted,
	model.ApplicationStatusInterviewScheduled,
	model.ApplicationStatusInterviewed,
	model.ApplicationStatusOffered,
	model.ApplicationStatusOfferAccepted,
	model.ApplicationStatusHired,
}

// Rank 返回状态在推进顺序中的位置（从 1 开始）；rejected/withdrawn 与未知状态返回 0
func Rank(status string) int {
	for i, s := range progression {
		if s == status {
			return i + 1
		}
	}
	return 0
}

// IsTerminal 是否终态
func IsTerminal(status string) bool {
	switch status {
	case model.ApplicationStatusHired, model.ApplicationStatusRejected, model.ApplicationStatusWithdrawn:
		return true
	}
	return false
}

// IsKnown 是否合法状态值
func IsKnown(status string) bool {
	return Rank(status) > 0 ||
		status == model.ApplicationStatusRejected ||
		status == model.ApplicationStatusWithdrawn
}

// ValidateTransition 校验状态迁移：只能向前推进（可跳级），或从任一非终态进入 rejected/withdrawn
func ValidateTransition(from, to string) error {
	if !IsKnown(to) {
		return ErrUnknownStatus
	}
	if from == to {
		return ErrSameStatus
	}
	if IsTerminal(from) {
		return ErrTerminalState
	}
	if to == model.ApplicationStatusRejected || to == model.ApplicationStatusWithdrawn {
		return nil
	}
	if Rank(to) <= Rank(from) {
		return ErrBackwardTransition
	}
	return nil
}

// OfferTerms Offer 条款；为空的字段在入职时回退到职位信息
type OfferTerms struct {
	Package     *float64
	Role        string
	JoiningDate *time.Time
}

// Change 一次状态变更请求
type Change struct {
	To           string
	Actor        policy.Actor
	Remarks      string
	At           time.Time
	Offer        *OfferTerms
	DeclineOffer bool // 学生拒绝 Offer（以 withdrawn 结束）

	// hired 时回填学生就业信息所需
	Student     *model.Student
	Job         *model.Job
	CompanyName string
}

// Outcome 状态变更结果：追加的历史记录、领域事件、学生记录是否被修改
type Outcome struct {
	History        model.ApplicationStatusHistory
	Events         []Event
	StudentChanged bool
}

// authorizeChange 学生只能撤回本人投递或接受本人 Offer；其余迁移只允许企业与超级管理员
func authorizeChange(app *model.Application, c Change) error {
	a := c.Actor
	switch c.To {
	case model.ApplicationStatusWithdrawn:
		if a.Role != model.RoleStudent || a.StudentID != app.StudentID {
			return policy.ErrForbidden
		}
		return nil
	case model.ApplicationStatusOfferAccepted:
		if a.Role == model.RoleStudent {
			if a.StudentID != app.StudentID {
				return policy.ErrForbidden
			}
			return nil
		}
	}
	if a.Role != model.RoleCompany && a.Role != model.RoleSuperAdmin {
		return policy.ErrForbidden
	}
	return nil
}

// Transition 推进投递状态
// 每次成功的变更都产生一条历史记录；终态之后不再接受任何变更
func Transition(app *model.Application, c Change) (*Outcome, error) {
	if !IsKnown(c.To) {
		return nil, ErrUnknownStatus
	}
	if err := authorizeChange(app, c); err != nil {
		return nil, err
	}
	if err := ValidateTransition(app.Status, c.To); err != nil {
		return nil, err
	}
	if c.At.IsZero() {
		c.At = time.Now()
	}

	out := &Outcome{}
	at := c.At

	switch c.To {
	case model.ApplicationStatusShortlisted:
		out.Events = append(out.Events, ApplicationShortlisted{ApplicationID: app.ApplicationID, JobID: app.JobID})
		if c.Student != nil && markInProcess(c.Student) {
			out.StudentChanged = true
		}

	case model.ApplicationStatusOffered:
		app.Offer = model.Offer{Response: model.OfferResponsePending, OfferedAt: &at}
		if c.Offer != nil {
			app.Offer.Package = c.Offer.Package
			app.Offer.Role = c.Offer.Role
			app.Offer.JoiningDate = c.Offer.JoiningDate
		}

	case model.ApplicationStatusOfferAccepted:
		if !app.Offer.IsPresent() {
			return nil, ErrNoPendingOffer
		}
		app.Offer.Response = model.OfferResponseAccepted
		app.Offer.RespondedAt = &at

	case model.ApplicationStatusWithdrawn:
		if c.DeclineOffer {
			if !app.Offer.IsPresent() || app.Offer.Response != model.OfferResponsePending {
				return nil, ErrNoPendingOffer
			}
			app.Offer.Response = model.OfferResponseDeclined
			app.Offer.RespondedAt = &at
		}

	case model.ApplicationStatusHired:
		hired := ApplicationHired{
			ApplicationID: app.ApplicationID,
			JobID:         app.JobID,
			StudentID:     app.StudentID,
			CompanyID:     app.CompanyID,
			CollegeID:     app.CollegeID,
		}
		if c.Student != nil {
			hired.StudentWasPlaced = c.Student.PlacementStatus == model.PlacementPlaced
			applyPlacement(c.Student, app, c.Job, c.CompanyName, at)
			out.StudentChanged = true
		}
		out.Events = append(out.Events, hired)
	}

	app.Status = c.To
	out.History = model.ApplicationStatusHistory{
		ApplicationID: app.ApplicationID,
		Status:        c.To,
		Remarks:       c.Remarks,
		ChangedBy:     c.Actor.UserID,
		ChangedAt:     at,
	}
	return out, nil
}

// NewApplication 创建投递：学生投递从 applied 开始，企业入围直接从 shortlisted 开始
// 返回的历史记录需在投递写入成功后追加（ApplicationID 由数据库生成后回填）
func NewApplication(student *model.Student, job *model.Job, source string, actor policy.Actor, remarks string, at time.Time) (*model.Application, *Outcome) {
	status := model.ApplicationStatusApplied
	if source == model.ApplicationSourceShortlist {
		status = model.ApplicationStatusShortlisted
	}
	if at.IsZero() {
		at = time.Now()
	}

	app := &model.Application{
		StudentID: student.StudentID,
		JobID:     job.JobID,
		CompanyID: job.CompanyID,
		CollegeID: student.CollegeID,
		Status:    status,
		Source:    source,
		AppliedAt: at,
		Version:   1,
	}
	app.ResumeSnapshot = model.NewResumeSnapshotJSON(student)

	out := &Outcome{
		History: model.ApplicationStatusHistory{
			Status:    status,
			Remarks:   remarks,
			ChangedBy: actor.UserID,
			ChangedAt: at,
		},
		Events: []Event{ApplicationCreated{JobID: job.JobID, StudentID: student.StudentID, Status: status}},
	}
	if status == model.ApplicationStatusShortlisted {
		out.Events = append(out.Events, ApplicationShortlisted{JobID: job.JobID})
		out.StudentChanged = markInProcess(student)
	}
	return app, out
}

// BindApplicationID 投递写入后回填事件与历史中的投递 ID
func (o *Outcome) BindApplicationID(id string) {
	o.History.ApplicationID = id
	for i, e := range o.Events {
		switch ev := e.(type) {
		case ApplicationCreated:
			ev.ApplicationID = id
			o.Events[i] = ev
		case ApplicationShortlisted:
			ev.ApplicationID = id
			o.Events[i] = ev
		}
	}
}

// markInProcess not_placed → in_process；已是其他状态时不覆盖
func markInProcess(s *model.Student) bool {
	if s.PlacementStatus != model.PlacementNotPlaced {
		return false
	}
	s.PlacementStatus = model.PlacementInProcess
	return true
}

// applyPlacement 入职：学生标记为 placed，就业信息优先取 Offer，缺省时取职位
func applyPlacement(s *model.Student, app *model.Application, job *model.Job, companyName string, at time.Time) {
	companyID := app.CompanyID
	details := model.PlacementDetails{
		CompanyID:   &companyID,
		CompanyName: companyName,
		Role:        app.Offer.Role,
		PlacedAt:    &at,
	}
	if app.Offer.Package != nil {
		details.Package = *app.Offer.Package
	}
	if job != nil {
		if details.Role == "" {
			details.Role = job.Title
		}
		if app.Offer.Package == nil {
			details.Package = job.Package
		}
	}
	s.PlacementStatus = model.PlacementPlaced
	s.Placement = details
}
