package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/Heman1223/Placement-Management-System-sub002/internal/eligibility"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/model"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/policy"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/repository"
	pkgerrors "github.com/Heman1223/Placement-Management-System-sub002/pkg/errors"
)

// 内存实现的各仓储，读取时返回副本，便于并发测试

var idSeq struct {
	sync.Mutex
	n int
}

func nextID(prefix string) string {
	idSeq.Lock()
	defer idSeq.Unlock()
	idSeq.n++
	return fmt.Sprintf("%s-%d", prefix, idSeq.n)
}

// ── Mock UserRepository ──

type mockUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return &pkgerrors.UniqueViolation{Constraint: repository.ConstraintUserEmail}
		}
	}
	if user.UserID == "" {
		user.UserID = nextID("user")
	}
	cp := *user
	m.users[user.UserID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *user
	m.users[user.UserID] = &cp
	return nil
}

func (m *mockUserRepo) UpdateFields(_ context.Context, id string, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for k, v := range fields {
		switch k {
		case "is_approved":
			u.IsApproved = v.(bool)
		case "is_active":
			u.IsActive = v.(bool)
		case "password_hash":
			u.PasswordHash = v.(string)
		case "college_id", "company_id", "student_id":
			var p *string
			switch val := v.(type) {
			case string:
				p = &val
			case *string:
				p = val
			}
			switch k {
			case "college_id":
				u.CollegeID = p
			case "company_id":
				u.CompanyID = p
			default:
				u.StudentID = p
			}
		}
	}
	return nil
}

func (m *mockUserRepo) TouchLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.LastLoginAt = &at
	}
	return nil
}

func (m *mockUserRepo) CountByRole(_ context.Context) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64)
	for _, u := range m.users {
		out[u.Role]++
	}
	return out, nil
}

// ── Mock CollegeRepository ──

type mockCollegeRepo struct {
	mu       sync.Mutex
	colleges map[string]*model.College
}

func newMockCollegeRepo() *mockCollegeRepo {
	return &mockCollegeRepo{colleges: make(map[string]*model.College)}
}

func (m *mockCollegeRepo) Create(_ context.Context, college *model.College) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.colleges {
		if c.Code == college.Code {
			return &pkgerrors.UniqueViolation{Constraint: repository.ConstraintCollegeCode}
		}
	}
	if college.CollegeID == "" {
		college.CollegeID = nextID("college")
	}
	cp := *college
	m.colleges[college.CollegeID] = &cp
	return nil
}

func (m *mockCollegeRepo) GetByID(_ context.Context, id string, includeDeleted bool) (*model.College, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.colleges[id]
	if !ok || (c.IsDeleted() && !includeDeleted) {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockCollegeRepo) GetByAdmin(_ context.Context, adminUserID string) (*model.College, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.colleges {
		if c.AdminUserID == adminUserID && !c.IsDeleted() {
			cp := *c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCollegeRepo) Update(_ context.Context, college *model.College) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.colleges[college.CollegeID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *college
	cp.Stats = old.Stats
	m.colleges[college.CollegeID] = &cp
	return nil
}

func (m *mockCollegeRepo) List(_ context.Context, filter repository.CollegeFilter, offset, limit int) ([]model.College, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.College
	for _, c := range m.colleges {
		if c.IsDeleted() && !filter.IncludeDeleted {
			continue
		}
		if filter.Status == "verified" && !c.IsVerified {
			continue
		}
		if filter.ActiveOnly && !c.IsActive {
			continue
		}
		out = append(out, *c)
	}
	return page(out, offset, limit), int64(len(out)), nil
}

func (m *mockCollegeRepo) SoftDelete(_ context.Context, id, deletedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.colleges[id]
	if !ok || c.IsDeleted() {
		return gorm.ErrRecordNotFound
	}
	c.IsActive = false
	c.DeletedBy = &deletedBy
	c.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	return nil
}

func (m *mockCollegeRepo) Restore(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.colleges[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.IsActive = true
	c.DeletedBy = nil
	c.DeletedAt = gorm.DeletedAt{}
	return nil
}

func (m *mockCollegeRepo) CountByStatus(_ context.Context) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]int64{"total": int64(len(m.colleges))}
	for _, c := range m.colleges {
		switch {
		case c.IsVerified:
			out["verified"]++
		case c.IsRejected:
			out["rejected"]++
		default:
			out["pending"]++
		}
	}
	return out, nil
}

// ── Mock CompanyRepository ──

type mockCompanyRepo struct {
	mu        sync.Mutex
	companies map[string]*model.Company
}

func newMockCompanyRepo() *mockCompanyRepo {
	return &mockCompanyRepo{companies: make(map[string]*model.Company)}
}

func (m *mockCompanyRepo) Create(_ context.Context, company *model.Company) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if company.CompanyID == "" {
		company.CompanyID = nextID("company")
	}
	cp := *company
	m.companies[company.CompanyID] = &cp
	return nil
}

func (m *mockCompanyRepo) GetByID(_ context.Context, id string, includeDeleted bool) (*model.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.companies[id]
	if !ok || (c.IsDeleted() && !includeDeleted) {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockCompanyRepo) GetByOwner(_ context.Context, ownerUserID string) (*model.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.companies {
		if c.OwnerUserID == ownerUserID && !c.IsDeleted() {
			cp := *c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCompanyRepo) GetForUpdate(ctx context.Context, id string) (*model.Company, error) {
	return m.GetByID(ctx, id, false)
}

func (m *mockCompanyRepo) Update(_ context.Context, company *model.Company) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.companies[company.CompanyID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *company
	cp.Stats = old.Stats
	cp.Downloads.DailyCount = old.Downloads.DailyCount
	cp.Downloads.MonthlyCount = old.Downloads.MonthlyCount
	cp.Downloads.DailyResetAt = old.Downloads.DailyResetAt
	cp.Downloads.MonthlyResetAt = old.Downloads.MonthlyResetAt
	m.companies[company.CompanyID] = &cp
	return nil
}

func (m *mockCompanyRepo) UpdateDownloads(_ context.Context, id string, d model.DownloadTracking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.companies[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.Downloads.DailyCount = d.DailyCount
	c.Downloads.MonthlyCount = d.MonthlyCount
	c.Downloads.DailyResetAt = d.DailyResetAt
	c.Downloads.MonthlyResetAt = d.MonthlyResetAt
	return nil
}

func (m *mockCompanyRepo) List(_ context.Context, filter repository.CompanyFilter, offset, limit int) ([]model.Company, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Company
	for _, c := range m.companies {
		if c.IsDeleted() && !filter.IncludeDeleted {
			continue
		}
		if filter.Status == "approved" && (!c.IsApproved || c.IsSuspended) {
			continue
		}
		if filter.Type != "" && c.Type != filter.Type {
			continue
		}
		out = append(out, *c)
	}
	return page(out, offset, limit), int64(len(out)), nil
}

func (m *mockCompanyRepo) SoftDelete(_ context.Context, id, deletedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.companies[id]
	if !ok || c.IsDeleted() {
		return gorm.ErrRecordNotFound
	}
	c.IsActive = false
	c.DeletedBy = &deletedBy
	c.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	return nil
}

func (m *mockCompanyRepo) Restore(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.companies[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.IsActive = true
	c.DeletedBy = nil
	c.DeletedAt = gorm.DeletedAt{}
	return nil
}

func (m *mockCompanyRepo) CountByStatus(_ context.Context) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]int64{"total": int64(len(m.companies))}
	for _, c := range m.companies {
		if c.IsApproved {
			out["approved"]++
		}
	}
	return out, nil
}

// ── Mock CollegeAccessRepository ──

type mockAccessRepo struct {
	mu     sync.Mutex
	access map[string]*model.CollegeAccess
}

func newMockAccessRepo() *mockAccessRepo {
	return &mockAccessRepo{access: make(map[string]*model.CollegeAccess)}
}

func (m *mockAccessRepo) Create(_ context.Context, a *model.CollegeAccess) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.access {
		if x.CompanyID == a.CompanyID && x.CollegeID == a.CollegeID {
			return &pkgerrors.UniqueViolation{Constraint: repository.ConstraintCollegeAccess}
		}
	}
	if a.AccessID == "" {
		a.AccessID = nextID("access")
	}
	cp := *a
	m.access[a.AccessID] = &cp
	return nil
}

func (m *mockAccessRepo) GetByID(_ context.Context, id string) (*model.CollegeAccess, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.access[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAccessRepo) Get(_ context.Context, companyID, collegeID string) (*model.CollegeAccess, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.access {
		if a.CompanyID == companyID && a.CollegeID == collegeID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAccessRepo) Update(_ context.Context, a *model.CollegeAccess) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.access[a.AccessID] = &cp
	return nil
}

func (m *mockAccessRepo) ListByCompany(_ context.Context, companyID string) ([]model.CollegeAccess, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.CollegeAccess
	for _, a := range m.access {
		if a.CompanyID == companyID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockAccessRepo) ListByCollege(_ context.Context, collegeID, status string) ([]model.CollegeAccess, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.CollegeAccess
	for _, a := range m.access {
		if a.CollegeID == collegeID && (status == "" || a.Status == status) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockAccessRepo) ApprovedCollegeIDs(_ context.Context, companyID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []string{}
	for _, a := range m.access {
		if a.CompanyID == companyID && a.Status == model.AccessStatusApproved {
			out = append(out, a.CollegeID)
		}
	}
	return out, nil
}

// ── Mock StudentRepository ──

type mockStudentRepo struct {
	mu       sync.Mutex
	students map[string]*model.Student
}

func newMockStudentRepo() *mockStudentRepo {
	return &mockStudentRepo{students: make(map[string]*model.Student)}
}

func (m *mockStudentRepo) Create(_ context.Context, s *model.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.students {
		if x.CollegeID == s.CollegeID && x.RollNumber == s.RollNumber {
			return &pkgerrors.UniqueViolation{Constraint: repository.ConstraintStudentRoll}
		}
		if x.Email == s.Email {
			return &pkgerrors.UniqueViolation{Constraint: repository.ConstraintStudentEmail}
		}
	}
	if s.StudentID == "" {
		s.StudentID = nextID("student")
	}
	cp := *s
	m.students[s.StudentID] = &cp
	return nil
}

func (m *mockStudentRepo) GetByID(_ context.Context, id string, includeDeleted bool) (*model.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[id]
	if !ok || (s.IsDeleted() && !includeDeleted) {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockStudentRepo) GetByUserID(_ context.Context, userID string) (*model.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.students {
		if s.UserID != nil && *s.UserID == userID && !s.IsDeleted() {
			cp := *s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// Update 与真实实现一致：不修改就业状态
func (m *mockStudentRepo) Update(_ context.Context, s *model.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.students[s.StudentID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *s
	cp.PlacementStatus = old.PlacementStatus
	cp.Placement = old.Placement
	m.students[s.StudentID] = &cp
	return nil
}

func (m *mockStudentRepo) UpdatePlacement(_ context.Context, s *model.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.students[s.StudentID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	old.PlacementStatus = s.PlacementStatus
	old.Placement = s.Placement
	return nil
}

func (m *mockStudentRepo) SetPlacementStatusIf(_ context.Context, id, from, to string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[id]
	if !ok || s.PlacementStatus != from {
		return false, nil
	}
	s.PlacementStatus = to
	return true, nil
}

func (m *mockStudentRepo) List(_ context.Context, scope policy.Scope, filter repository.StudentFilter, offset, limit int) ([]model.Student, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Student
	for _, s := range m.students {
		if s.IsDeleted() && !scope.IncludeDeleted {
			continue
		}
		if scope.CollegeID != "" && s.CollegeID != scope.CollegeID {
			continue
		}
		if scope.RestrictsColleges() && !containsString(scope.AccessibleCollegeIDs, s.CollegeID) {
			continue
		}
		if filter.CollegeID != "" && s.CollegeID != filter.CollegeID {
			continue
		}
		if filter.Department != "" && s.Department != filter.Department {
			continue
		}
		if len(filter.DepartmentIn) > 0 && !containsString(filter.DepartmentIn, s.Department) {
			continue
		}
		if filter.Verified != nil && s.IsVerified != *filter.Verified {
			continue
		}
		if filter.MinCGPA != nil && s.CGPA < *filter.MinCGPA {
			continue
		}
		out = append(out, *s)
	}
	return page(out, offset, limit), int64(len(out)), nil
}

func (m *mockStudentRepo) SoftDelete(_ context.Context, id, deletedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[id]
	if !ok || s.IsDeleted() {
		return gorm.ErrRecordNotFound
	}
	s.IsActive = false
	s.DeletedBy = &deletedBy
	s.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	return nil
}

func (m *mockStudentRepo) Restore(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.IsActive = true
	s.DeletedBy = nil
	s.DeletedAt = gorm.DeletedAt{}
	return nil
}

func (m *mockStudentRepo) ListByCollege(_ context.Context, collegeID string) ([]model.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Student
	for _, s := range m.students {
		if s.CollegeID == collegeID && !s.IsDeleted() {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *mockStudentRepo) get(id string) *model.Student {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.students[id]
	return &cp
}

// ── Mock JobRepository ──

type mockJobRepo struct {
	mu        sync.Mutex
	jobs      map[string]*model.Job
	companies *mockCompanyRepo
}

func newMockJobRepo(companies *mockCompanyRepo) *mockJobRepo {
	return &mockJobRepo{jobs: make(map[string]*model.Job), companies: companies}
}

func (m *mockJobRepo) Create(_ context.Context, job *model.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job.JobID == "" {
		job.JobID = nextID("job")
	}
	if job.Version == 0 {
		job.Version = 1
	}
	cp := *job
	m.jobs[job.JobID] = &cp
	return nil
}

// GetByID 与真实实现一致：预加载企业
func (m *mockJobRepo) GetByID(ctx context.Context, id string, includeDeleted bool) (*model.Job, error) {
	m.mu.Lock()
	j, ok := m.jobs[id]
	if !ok || (j.IsDeleted() && !includeDeleted) {
		m.mu.Unlock()
		return nil, gorm.ErrRecordNotFound
	}
	cp := *j
	m.mu.Unlock()
	if m.companies != nil {
		if c, err := m.companies.GetByID(ctx, cp.CompanyID, true); err == nil {
			cp.Company = c
		}
	}
	return &cp, nil
}

func (m *mockJobRepo) Update(_ context.Context, job *model.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.jobs[job.JobID]
	if !ok || old.Version != job.Version {
		return pkgerrors.ErrOptimisticLock
	}
	job.Version++
	cp := *job
	cp.Stats = old.Stats
	cp.Company = nil
	m.jobs[job.JobID] = &cp
	return nil
}

func (m *mockJobRepo) SoftDelete(_ context.Context, job *model.Job, deletedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.jobs[job.JobID]
	if !ok || old.Version != job.Version {
		return pkgerrors.ErrOptimisticLock
	}
	job.Version++
	old.Version = job.Version
	old.Status = model.JobStatusCancelled
	old.IsActive = false
	old.DeletedBy = &deletedBy
	old.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	return nil
}

func (m *mockJobRepo) Restore(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	j.IsActive = true
	j.DeletedBy = nil
	j.DeletedAt = gorm.DeletedAt{}
	return nil
}

func (m *mockJobRepo) List(_ context.Context, scope policy.Scope, filter repository.JobFilter, offset, limit int) ([]model.Job, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Job
	for _, j := range m.jobs {
		if j.IsDeleted() && !scope.IncludeDeleted {
			continue
		}
		if scope.CompanyID != "" && j.CompanyID != scope.CompanyID {
			continue
		}
		if filter.Status != "" && j.Status != filter.Status {
			continue
		}
		out = append(out, *j)
	}
	return page(out, offset, limit), int64(len(out)), nil
}

func (m *mockJobRepo) ListEligible(_ context.Context, filter eligibility.Filter, offset, limit int) ([]model.Job, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Job
	for _, j := range m.jobs {
		if j.IsDeleted() {
			continue
		}
		if filter.Matches(j) {
			out = append(out, *j)
		}
	}
	return page(out, offset, limit), int64(len(out)), nil
}

func (m *mockJobRepo) ListExpiredOpen(_ context.Context, now time.Time, limit int) ([]model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Job
	for _, j := range m.jobs {
		if j.Status == model.JobStatusOpen && !j.IsDeleted() && j.ApplicationDeadline.Before(now) {
			out = append(out, *j)
		}
	}
	return page(out, 0, limit), nil
}

func (m *mockJobRepo) CountByStatus(_ context.Context) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64)
	for _, j := range m.jobs {
		out[j.Status]++
	}
	return out, nil
}

func (m *mockJobRepo) get(id string) *model.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.jobs[id]
	return &cp
}

// ── Mock ApplicationRepository ──

// mockApplicationRepo 在互斥锁内检查 (student_id, job_id) 唯一，模拟唯一索引
type mockApplicationRepo struct {
	mu         sync.Mutex
	apps       map[string]*model.Application
	history    []model.ApplicationStatusHistory
	interviews map[string]*model.Interview
}

func newMockApplicationRepo() *mockApplicationRepo {
	return &mockApplicationRepo{
		apps:       make(map[string]*model.Application),
		interviews: make(map[string]*model.Interview),
	}
}

func (m *mockApplicationRepo) Create(_ context.Context, app *model.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.apps {
		if a.StudentID == app.StudentID && a.JobID == app.JobID {
			return &pkgerrors.UniqueViolation{Constraint: repository.ConstraintApplicationStudentJob}
		}
	}
	if app.ApplicationID == "" {
		app.ApplicationID = nextID("app")
	}
	cp := *app
	cp.StatusHistory = nil
	m.apps[app.ApplicationID] = &cp
	return nil
}

func (m *mockApplicationRepo) GetByID(_ context.Context, id string) (*model.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.apps[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	cp.StatusHistory = m.historyOf(id)
	cp.Interviews = nil
	for _, iv := range m.interviews {
		if iv.ApplicationID == id {
			cp.Interviews = append(cp.Interviews, *iv)
		}
	}
	return &cp, nil
}

func (m *mockApplicationRepo) GetByStudentAndJob(_ context.Context, studentID, jobID string) (*model.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.apps {
		if a.StudentID == studentID && a.JobID == jobID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockApplicationRepo) Update(_ context.Context, app *model.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.apps[app.ApplicationID]
	if !ok || old.Version != app.Version {
		return pkgerrors.ErrOptimisticLock
	}
	app.Version++
	old.Status = app.Status
	old.Offer = app.Offer
	old.Version = app.Version
	return nil
}

func (m *mockApplicationRepo) List(_ context.Context, scope policy.Scope, filter repository.ApplicationFilter, offset, limit int) ([]model.Application, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Application
	for _, a := range m.apps {
		if scope.CompanyID != "" && a.CompanyID != scope.CompanyID {
			continue
		}
		if scope.StudentID != "" && a.StudentID != scope.StudentID {
			continue
		}
		if !scope.Unrestricted && scope.StudentID == "" && scope.CollegeID != "" && a.CollegeID != scope.CollegeID {
			continue
		}
		if filter.JobID != "" && a.JobID != filter.JobID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		out = append(out, *a)
	}
	return page(out, offset, limit), int64(len(out)), nil
}

func (m *mockApplicationRepo) AppliedJobIDs(_ context.Context, studentID string, jobIDs []string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]bool)
	for _, a := range m.apps {
		if a.StudentID == studentID && containsString(jobIDs, a.JobID) {
			out[a.JobID] = true
		}
	}
	return out, nil
}

func (m *mockApplicationRepo) AppendHistory(_ context.Context, h *model.ApplicationStatusHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h.HistoryID == "" {
		h.HistoryID = nextID("history")
	}
	m.history = append(m.history, *h)
	return nil
}

func (m *mockApplicationRepo) ListHistory(_ context.Context, applicationID string) ([]model.ApplicationStatusHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.historyOf(applicationID), nil
}

func (m *mockApplicationRepo) historyOf(id string) []model.ApplicationStatusHistory {
	var out []model.ApplicationStatusHistory
	for _, h := range m.history {
		if h.ApplicationID == id {
			out = append(out, h)
		}
	}
	return out
}

func (m *mockApplicationRepo) AddInterview(_ context.Context, iv *model.Interview) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if iv.InterviewID == "" {
		iv.InterviewID = nextID("interview")
	}
	iv.CreatedAt = time.Now()
	cp := *iv
	m.interviews[iv.InterviewID] = &cp
	return nil
}

func (m *mockApplicationRepo) GetInterview(_ context.Context, applicationID, interviewID string) (*model.Interview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	iv, ok := m.interviews[interviewID]
	if !ok || iv.ApplicationID != applicationID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *iv
	return &cp, nil
}

func (m *mockApplicationRepo) CountByStatus(_ context.Context) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64)
	for _, a := range m.apps {
		out[a.Status]++
	}
	return out, nil
}

func (m *mockApplicationRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.apps)
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct {
	mu    sync.Mutex
	items []model.Notification
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{}
}

func (m *mockNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n.NotificationID == "" {
		n.NotificationID = nextID("notification")
	}
	m.items = append(m.items, *n)
	return nil
}

func (m *mockNotificationRepo) ListByUser(_ context.Context, userID string, unreadOnly bool, offset, limit int) ([]model.Notification, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Notification
	for _, n := range m.items {
		if n.UserID != userID || (unreadOnly && n.IsRead) {
			continue
		}
		out = append(out, n)
	}
	return page(out, offset, limit), int64(len(out)), nil
}

func (m *mockNotificationRepo) CountUnread(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, item := range m.items {
		if item.UserID == userID && !item.IsRead {
			n++
		}
	}
	return n, nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].NotificationID == id && m.items[i].UserID == userID {
			m.items[i].IsRead = true
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockNotificationRepo) MarkAllRead(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.items {
		if m.items[i].UserID == userID && !m.items[i].IsRead {
			m.items[i].IsRead = true
			n++
		}
	}
	return n, nil
}

func (m *mockNotificationRepo) byType(userID, typ string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, item := range m.items {
		if item.UserID == userID && item.Type == typ {
			n++
		}
	}
	return n
}

// ── Mock ActivityLogRepository ──

type mockActivityLogRepo struct {
	mu   sync.Mutex
	logs []model.ActivityLog
}

func (m *mockActivityLogRepo) Create(_ context.Context, log *model.ActivityLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, *log)
	return nil
}

func (m *mockActivityLogRepo) List(_ context.Context, filter repository.ActivityLogFilter, offset, limit int) ([]model.ActivityLog, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ActivityLog
	for _, l := range m.logs {
		if filter.Action != "" && l.Action != filter.Action {
			continue
		}
		out = append(out, l)
	}
	return page(out, offset, limit), int64(len(out)), nil
}

func (m *mockActivityLogRepo) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.logs))
	for _, l := range m.logs {
		out = append(out, l.Action)
	}
	return out
}

// ── Mock SettingsRepository ──

type mockSettingsRepo struct {
	mu       sync.Mutex
	settings *model.PlatformSettings
}

func (m *mockSettingsRepo) Get(_ context.Context) (*model.PlatformSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settings == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *m.settings
	return &cp, nil
}

func (m *mockSettingsRepo) EnsureDefaults(_ context.Context, defaults *model.PlatformSettings) (*model.PlatformSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settings == nil {
		cp := *defaults
		m.settings = &cp
	}
	cp := *m.settings
	return &cp, nil
}

func (m *mockSettingsRepo) Update(_ context.Context, s *model.PlatformSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.settings = &cp
	return nil
}

// ── Mock StatsRepository ──

type mockStatsRepo struct {
	mu     sync.Mutex
	counts map[string]int
	drift  int64
}

func newMockStatsRepo() *mockStatsRepo {
	return &mockStatsRepo{counts: make(map[string]int)}
}

// Increment 与真实实现一致：计数不低于 0
func (m *mockStatsRepo) Increment(_ context.Context, table, id, column string, by int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := table + "/" + id + "/" + column
	v := m.counts[key] + by
	if v < 0 {
		v = 0
	}
	m.counts[key] = v
	return nil
}

func (m *mockStatsRepo) ReconcileJobs(_ context.Context) (int64, error)      { return m.drift, nil }
func (m *mockStatsRepo) ReconcileCompanies(_ context.Context) (int64, error) { return 0, nil }
func (m *mockStatsRepo) ReconcileColleges(_ context.Context) (int64, error)  { return 0, nil }

func (m *mockStatsRepo) get(table, id, column string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[table+"/"+id+"/"+column]
}

// ── 测试辅助 ──

type testRepos struct {
	users         *mockUserRepo
	colleges      *mockCollegeRepo
	companies     *mockCompanyRepo
	access        *mockAccessRepo
	students      *mockStudentRepo
	jobs          *mockJobRepo
	apps          *mockApplicationRepo
	notifications *mockNotificationRepo
	logs          *mockActivityLogRepo
	settings      *mockSettingsRepo
	stats         *mockStatsRepo

	repo *repository.Repository
}

func newTestRepos() *testRepos {
	companies := newMockCompanyRepo()
	r := &testRepos{
		users:         newMockUserRepo(),
		colleges:      newMockCollegeRepo(),
		companies:     companies,
		access:        newMockAccessRepo(),
		students:      newMockStudentRepo(),
		jobs:          newMockJobRepo(companies),
		apps:          newMockApplicationRepo(),
		notifications: newMockNotificationRepo(),
		logs:          &mockActivityLogRepo{},
		settings:      &mockSettingsRepo{},
		stats:         newMockStatsRepo(),
	}
	r.repo = &repository.Repository{
		User:          r.users,
		College:       r.colleges,
		Company:       r.companies,
		CollegeAccess: r.access,
		Student:       r.students,
		Job:           r.jobs,
		Application:   r.apps,
		Notification:  r.notifications,
		ActivityLog:   r.logs,
		Settings:      r.settings,
		Stats:         r.stats,
	}
	return r
}

func page[T any](list []T, offset, limit int) []T {
	if offset >= len(list) {
		return nil
	}
	end := len(list)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return list[offset:end]
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
