// Package policy 多租户授权策略：角色、审核、启用、归属与软删除可见性。
// 所有函数都是纯函数，不访问存储；调用方负责加载 Actor 与目标记录。
package policy

import (
	"github.com/Heman1223/Placement-Management-System-sub002/internal/model"
)

// Reason 拒绝原因
type Reason string

const (
	ReasonForbidden          Reason = "forbidden"
	ReasonPendingApproval    Reason = "pending_approval"
	ReasonAccountDeactivated Reason = "account_deactivated"
	ReasonSuspended          Reason = "account_suspended"
	ReasonNotFound           Reason = "not_found"
)

// Denial 授权拒绝，作为 error 返回
type Denial struct {
	Reason  Reason
	Message string
}

func (d *Denial) Error() string { return d.Message }

// Is 按 Reason 比较，支持 errors.Is(err, policy.ErrForbidden)
func (d *Denial) Is(target error) bool {
	t, ok := target.(*Denial)
	return ok && t.Reason == d.Reason
}

var (
	ErrForbidden          = &Denial{Reason: ReasonForbidden, Message: "无权限执行该操作"}
	ErrPendingApproval    = &Denial{Reason: ReasonPendingApproval, Message: "账号尚未通过审核"}
	ErrAccountDeactivated = &Denial{Reason: ReasonAccountDeactivated, Message: "账号已被停用"}
	ErrSuspended          = &Denial{Reason: ReasonSuspended, Message: "企业账号已被暂停"}
	ErrNotFound           = &Denial{Reason: ReasonNotFound, Message: "记录不存在"}
)

// Actor 当前请求的操作者，由认证中间件每次请求从数据库重新加载
type Actor struct {
	UserID     string
	Role       string
	IsApproved bool
	IsActive   bool
	Suspended  bool // 仅企业：所属企业被暂停

	CollegeID string // college_admin 所属学院；student 所在学院
	CompanyID string
	StudentID string

	// 招聘机构已获批准访问的学院；普通企业为 nil（不限学院）
	AccessibleCollegeIDs []string
}

// IsSuperAdmin 是否超级管理员
func (a Actor) IsSuperAdmin() bool { return a.Role == model.RoleSuperAdmin }

// Scope 数据范围：由 Actor 推导，仓储层据此拼接查询条件
type Scope struct {
	Unrestricted         bool
	CollegeID            string
	CompanyID            string
	StudentID            string
	AccessibleCollegeIDs []string
	IncludeDeleted       bool
}

// RestrictsColleges 是否按学院白名单过滤（招聘机构）
func (s Scope) RestrictsColleges() bool { return s.AccessibleCollegeIDs != nil }

// AuthorizationContext 授权通过后的上下文：操作者 + 数据范围
type AuthorizationContext struct {
	Actor Actor
	Scope Scope
}

// ScopeFor 根据角色推导默认数据范围
func ScopeFor(a Actor) Scope {
	switch a.Role {
	case model.RoleSuperAdmin:
		return Scope{Unrestricted: true}
	case model.RoleCollegeAdmin:
		return Scope{CollegeID: a.CollegeID}
	case model.RoleCompany:
		return Scope{CompanyID: a.CompanyID, AccessibleCollegeIDs: a.AccessibleCollegeIDs}
	case model.RoleStudent:
		return Scope{StudentID: a.StudentID, CollegeID: a.CollegeID}
	}
	return Scope{}
}

// CheckActive 启用状态检查，每个请求只在认证时执行一次
func CheckActive(a Actor) error {
	if !a.IsActive {
		return ErrAccountDeactivated
	}
	return nil
}

// Option Authorize 的可选参数
type Option func(*options)

type options struct {
	includeDeleted bool
}

// IncludeDeleted 请求查看已软删除记录（仅超级管理员）
func IncludeDeleted(v bool) Option {
	return func(o *options) { o.includeDeleted = v }
}

// Authorize 依次执行角色门、审核门与软删除可见性检查，返回授权上下文
func Authorize(a Actor, op Operation, opts ...Option) (*AuthorizationContext, error) {
	var o options
	for _, fn := range opts {
		fn(&o)
	}

	// ── 角色门 ──
	if !op.Permits(a.Role) {
		return nil, ErrForbidden
	}

	// ── 审核门（超级管理员跳过） ──
	if !a.IsSuperAdmin() && !op.AllowPending {
		if !a.IsApproved {
			return nil, ErrPendingApproval
		}
		if a.Suspended {
			return nil, ErrSuspended
		}
	}

	// ── 软删除可见性 ──
	if o.includeDeleted && !a.IsSuperAdmin() {
		return nil, ErrForbidden
	}

	scope := ScopeFor(a)
	scope.IncludeDeleted = o.includeDeleted
	return &AuthorizationContext{Actor: a, Scope: scope}, nil
}

// ────────────────────── 归属检查 ──────────────────────

// Visible 判断目标记录是否在当前范围内
// 越权与已删除都返回 ErrNotFound，避免泄露记录是否存在
func (ac *AuthorizationContext) Visible(target interface{}) error {
	if deleted(target) && !ac.Scope.IncludeDeleted {
		return ErrNotFound
	}
	if ac.Scope.Unrestricted {
		return nil
	}
	if !ac.owns(target) {
		return ErrNotFound
	}
	return nil
}

func (ac *AuthorizationContext) owns(target interface{}) bool {
	a, s := ac.Actor, ac.Scope
	switch t := target.(type) {
	case *model.Student:
		switch a.Role {
		case model.RoleCollegeAdmin:
			return t.CollegeID == s.CollegeID
		case model.RoleStudent:
			return t.StudentID == s.StudentID
		case model.RoleCompany:
			return !s.RestrictsColleges() || contains(s.AccessibleCollegeIDs, t.CollegeID)
		}
	case *model.Job:
		switch a.Role {
		case model.RoleCompany:
			return t.CompanyID == s.CompanyID
		case model.RoleCollegeAdmin:
			return t.CollegeID == nil || *t.CollegeID == s.CollegeID
		case model.RoleStudent:
			if t.Status == model.JobStatusDraft {
				return false
			}
			return t.CollegeID == nil || *t.CollegeID == s.CollegeID
		}
	case *model.Application:
		switch a.Role {
		case model.RoleCollegeAdmin:
			return t.CollegeID == s.CollegeID
		case model.RoleCompany:
			return t.CompanyID == s.CompanyID
		case model.RoleStudent:
			return t.StudentID == s.StudentID
		}
	case *model.College:
		if a.Role == model.RoleCollegeAdmin {
			return t.CollegeID == s.CollegeID
		}
		return true
	case *model.Company:
		if a.Role == model.RoleCompany {
			return t.CompanyID == s.CompanyID
		}
		return true
	}
	return false
}

// CanMutateJob 职位相关写操作（改状态、入围、推进投递）只允许所属企业或超级管理员
// 在任何写入之前调用
func (ac *AuthorizationContext) CanMutateJob(job *model.Job) error {
	if ac.Scope.Unrestricted {
		return nil
	}
	if ac.Actor.Role == model.RoleCompany && job.CompanyID == ac.Scope.CompanyID {
		return nil
	}
	return ErrForbidden
}

func deleted(target interface{}) bool {
	switch t := target.(type) {
	case *model.Student:
		return t.IsDeleted()
	case *model.Job:
		return t.IsDeleted()
	case *model.College:
		return t.IsDeleted()
	case *model.Company:
		return t.IsDeleted()
	}
	return false
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
