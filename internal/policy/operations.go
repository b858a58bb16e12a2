package policy

import "github.com/Heman1223/Placement-Management-System-sub002/internal/model"

// Operation 一个受保护的操作：名称 + 允许的角色集合
// AllowPending 为 true 时未审核账号也可执行（查看自身资料、通知等）
type Operation struct {
	Name         string
	Roles        []string
	AllowPending bool
}

// Permits 角色是否在允许集合内
func (o Operation) Permits(role string) bool {
	for _, r := range o.Roles {
		if r == role {
			return true
		}
	}
	return false
}

var (
	allRoles     = []string{model.RoleSuperAdmin, model.RoleCollegeAdmin, model.RoleCompany, model.RoleStudent}
	superAdmin   = []string{model.RoleSuperAdmin}
	collegeStaff = []string{model.RoleSuperAdmin, model.RoleCollegeAdmin}
	recruiters   = []string{model.RoleSuperAdmin, model.RoleCompany}
	students     = []string{model.RoleStudent}
)

// ────────────────────── 操作表 ──────────────────────

// 账号与通知
var (
	OpViewSelf          = Operation{Name: "view_self", Roles: allRoles, AllowPending: true}
	OpViewNotifications = Operation{Name: "view_notifications", Roles: allRoles, AllowPending: true}
)

// 平台治理与机构资料
var (
	OpReviewCollege       = Operation{Name: "review_college", Roles: superAdmin}
	OpReviewCompany       = Operation{Name: "review_company", Roles: superAdmin}
	OpManageAccounts      = Operation{Name: "manage_accounts", Roles: superAdmin}
	OpManageSettings      = Operation{Name: "manage_settings", Roles: superAdmin}
	OpViewActivityLogs    = Operation{Name: "view_activity_logs", Roles: superAdmin}
	OpViewDashboard       = Operation{Name: "view_dashboard", Roles: superAdmin}
	OpReconcileStats      = Operation{Name: "reconcile_stats", Roles: superAdmin}
	OpListColleges        = Operation{Name: "list_colleges", Roles: allRoles}
	OpViewCollege         = Operation{Name: "view_college", Roles: allRoles, AllowPending: true}
	OpListCompanies       = Operation{Name: "list_companies", Roles: collegeStaff}
	OpViewCompany         = Operation{Name: "view_company", Roles: allRoles, AllowPending: true}
	OpUpdateOwnCompany    = Operation{Name: "update_company", Roles: []string{model.RoleCompany}, AllowPending: true}
	OpUpdateOwnCollege    = Operation{Name: "update_college", Roles: []string{model.RoleCollegeAdmin}, AllowPending: true}
	OpReviewCollegeAccess = Operation{Name: "review_college_access", Roles: []string{model.RoleCollegeAdmin}}
)

// 学生管理
var (
	OpListStudents     = Operation{Name: "list_students", Roles: []string{model.RoleSuperAdmin, model.RoleCollegeAdmin, model.RoleCompany}}
	OpViewStudent      = Operation{Name: "view_student", Roles: allRoles, AllowPending: true}
	OpManageStudents   = Operation{Name: "manage_students", Roles: collegeStaff}
	OpVerifyStudent    = Operation{Name: "verify_student", Roles: collegeStaff}
	OpExportStudents   = Operation{Name: "export_students", Roles: collegeStaff}
	OpUpdateOwnProfile = Operation{Name: "update_own_profile", Roles: students, AllowPending: true}
)

// 企业招聘
var (
	OpRequestCollegeAccess = Operation{Name: "request_college_access", Roles: []string{model.RoleCompany}}
	OpManageJobs           = Operation{Name: "manage_jobs", Roles: recruiters}
	OpListJobs             = Operation{Name: "list_jobs", Roles: allRoles}
	OpExportCandidates     = Operation{Name: "export_candidates", Roles: []string{model.RoleCompany}}
	OpShortlist            = Operation{Name: "shortlist_student", Roles: recruiters}
	OpMoveApplication      = Operation{Name: "update_application_status", Roles: recruiters}
	OpScheduleInterview    = Operation{Name: "schedule_interview", Roles: recruiters}
)

// 投递
var (
	OpListEligibleJobs = Operation{Name: "list_eligible_jobs", Roles: students}
	OpApply            = Operation{Name: "apply_job", Roles: students}
	OpWithdraw         = Operation{Name: "withdraw_application", Roles: students}
	OpRespondToOffer   = Operation{Name: "respond_offer", Roles: students}
	OpViewApplications = Operation{Name: "view_applications", Roles: allRoles}
)
