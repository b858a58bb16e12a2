package workflow

// Event 领域事件：状态机与生命周期操作产生，由 stats 投影器转换为计数增量
type Event interface {
	EventName() string
}

// ── 投递 ──

// ApplicationCreated 新建投递（学生投递或企业直接入围）
type ApplicationCreated struct {
	ApplicationID string
	JobID         string
	StudentID     string
	Status        string
}

// ApplicationShortlisted 投递进入 shortlisted
type ApplicationShortlisted struct {
	ApplicationID string
	JobID         string
}

// ApplicationHired 投递进入 hired
// StudentWasPlaced 为 true 时学生此前已是 placed，不再计入学院就业人数
type ApplicationHired struct {
	ApplicationID    string
	JobID            string
	StudentID        string
	CompanyID        string
	CollegeID        string
	StudentWasPlaced bool
}

// ── 职位 ──

// JobPosted 新职位发布（含草稿）
type JobPosted struct {
	JobID     string
	CompanyID string
}

// JobOpened 职位从非 open 变为 open
type JobOpened struct {
	JobID     string
	CompanyID string
}

// JobClosed 职位从 open 变为其他状态
type JobClosed struct {
	JobID     string
	CompanyID string
	To        string
}

// ── 学生 ──

// StudentEnrolled 学生记录创建或恢复
type StudentEnrolled struct {
	StudentID string
	CollegeID string
	Verified  bool
	Placed    bool
}

// StudentRemoved 学生记录软删除
type StudentRemoved struct {
	StudentID string
	CollegeID string
	Verified  bool
	Placed    bool
}

// StudentVerificationChanged 学生认证状态变化
type StudentVerificationChanged struct {
	StudentID string
	CollegeID string
	Verified  bool
}

// StudentPlacementChanged 管理员显式覆盖就业状态，仅在 placed 与否发生变化时产生
type StudentPlacementChanged struct {
	StudentID string
	CollegeID string
	Placed    bool
}

func (ApplicationCreated) EventName() string         { return "application_created" }
func (ApplicationShortlisted) EventName() string     { return "application_shortlisted" }
func (ApplicationHired) EventName() string           { return "application_hired" }
func (JobPosted) EventName() string                  { return "job_posted" }
func (JobOpened) EventName() string                  { return "job_opened" }
func (JobClosed) EventName() string                  { return "job_closed" }
func (StudentEnrolled) EventName() string            { return "student_enrolled" }
func (StudentRemoved) EventName() string             { return "student_removed" }
func (StudentVerificationChanged) EventName() string { return "student_verification_changed" }
func (StudentPlacementChanged) EventName() string    { return "student_placement_changed" }
