package handler

import "github.com/Heman1223/Placement-Management-System-sub002/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	User         *UserHandler
	Notification *NotificationHandler
	College      *CollegeHandler
	Company      *CompanyHandler
	Student      *StudentHandler
	Job          *JobHandler
	Application  *ApplicationHandler
	Export       *ExportHandler
	Admin        *AdminHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service, cookie CookieOptions) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth, cookie),
		User:         NewUserHandler(svc.User),
		Notification: NewNotificationHandler(svc.Notification),
		College:      NewCollegeHandler(svc.College),
		Company:      NewCompanyHandler(svc.Company),
		Student:      NewStudentHandler(svc.Student),
		Job:          NewJobHandler(svc.Job),
		Application:  NewApplicationHandler(svc.Application),
		Export:       NewExportHandler(svc.Export),
		Admin:        NewAdminHandler(svc.Admin, svc.Settings),
	}
}
