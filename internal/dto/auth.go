package dto

// ── 认证模块 DTO ──

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshTokenRequest 刷新 Token 请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest 登出请求；refresh_token 可选，提供时一并拉黑
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// AccountFields 注册时的账号信息
type AccountFields struct {
	Name     string `json:"name"     binding:"required,min=2,max=100"`
	Email    string `json:"email"    binding:"required,email,max=255"`
	Phone    string `json:"phone"    binding:"omitempty,max=20"`
	Password string `json:"password" binding:"required,min=8,max=64"`
}

// RegisterCollegeRequest 学院注册（学院管理员账号 + 学院资料）
type RegisterCollegeRequest struct {
	AccountFields
	CollegeName string   `json:"college_name" binding:"required,min=2,max=200"`
	CollegeCode string   `json:"college_code" binding:"required,min=2,max=30,alphanum"`
	City        string   `json:"city"         binding:"omitempty,max=100"`
	State       string   `json:"state"        binding:"omitempty,max=100"`
	Website     string   `json:"website"      binding:"omitempty,url"`
	Departments []string `json:"departments"  binding:"omitempty,dive,min=1,max=100"`
}

// RegisterCompanyRequest 企业/招聘机构注册
type RegisterCompanyRequest struct {
	AccountFields
	CompanyName string `json:"company_name" binding:"required,min=2,max=200"`
	Type        string `json:"type"         binding:"required,oneof=company placement_agency"`
	Industry    string `json:"industry"     binding:"omitempty,max=100"`
	Website     string `json:"website"      binding:"omitempty,url"`
}

// RegisterStudentRequest 学生自助注册，等待学院认证
type RegisterStudentRequest struct {
	AccountFields
	CollegeID  string   `json:"college_id"  binding:"required,uuid"`
	RollNumber string   `json:"roll_number" binding:"required,max=50"`
	Department string   `json:"department"  binding:"required,max=100"`
	Batch      int      `json:"batch"       binding:"required,batch_year"`
	CGPA       float64  `json:"cgpa"        binding:"cgpa"`
	Skills     []string `json:"skills"      binding:"omitempty,dive,min=1,max=50"`
}

// ── 认证模块响应 ──

// TokenResponse Token 对响应
type TokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int          `json:"expires_in"` // Access Token 有效期（秒）
	User         UserResponse `json:"user"`
}

// RegisterResponse 注册成功响应
type RegisterResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	IsApproved bool   `json:"is_approved"`
}

// UserResponse 用户信息响应（脱敏）
type UserResponse struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Phone      string  `json:"phone,omitempty"`
	Role       string  `json:"role"`
	IsApproved bool    `json:"is_approved"`
	IsActive   bool    `json:"is_active"`
	CollegeID  *string `json:"college_id,omitempty"`
	CompanyID  *string `json:"company_id,omitempty"`
	StudentID  *string `json:"student_id,omitempty"`
}

// MeResponse 当前用户信息（GET /auth/me），附带角色对应的资料
type MeResponse struct {
	UserResponse
	LastLoginAt string      `json:"last_login_at,omitempty"`
	CreatedAt   string      `json:"created_at"`
	Profile     interface{} `json:"profile,omitempty"`
}

// UpdateProfileRequest 修改本人账号信息
type UpdateProfileRequest struct {
	Name  *string `json:"name"  binding:"omitempty,min=2,max=100"`
	Phone *string `json:"phone" binding:"omitempty,max=20"`
}

// ChangePasswordRequest 修改本人密码
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=64,nefield=OldPassword"`
}

// ResetPasswordResponse 管理员重置密码后返回的临时密码
type ResetPasswordResponse struct {
	TempPassword string `json:"temp_password"`
}

// [自证通过] internal/dto/auth.go
