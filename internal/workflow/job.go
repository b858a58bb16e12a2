package workflow

import (
	"errors"
	"time"

	"github.com/Heman1223/Placement-Management-System-sub002/internal/model"
)

var (
	ErrUnknownJobStatus = errors.New("未知的职位状态")
	ErrJobCancelled     = errors.New("已取消的职位不能再变更状态")
	ErrDeadlinePassed   = errors.New("投递截止时间已过，不能开放职位")
)

// IsKnownJobStatus 是否合法职位状态
func IsKnownJobStatus(status string) bool {
	switch status {
	case model.JobStatusDraft, model.JobStatusOpen, model.JobStatusClosed,
		model.JobStatusFilled, model.JobStatusCancelled:
		return true
	}
	return false
}

// PostJob 发布新职位产生的事件；直接以 open 发布时计入企业在招职位数
func PostJob(job *model.Job, now time.Time) ([]Event, error) {
	if !IsKnownJobStatus(job.Status) {
		return nil, ErrUnknownJobStatus
	}
	if job.Status == model.JobStatusOpen && now.After(job.ApplicationDeadline) {
		return nil, ErrDeadlinePassed
	}
	events := []Event{JobPosted{JobID: job.JobID, CompanyID: job.CompanyID}}
	if job.Status == model.JobStatusOpen {
		events = append(events, JobOpened{JobID: job.JobID, CompanyID: job.CompanyID})
	}
	return events, nil
}

// ChangeJobStatus 修改职位状态
// open → 非 open 恰好产生一次 JobClosed；非 open → open 产生 JobOpened；状态不变时无事件
func ChangeJobStatus(job *model.Job, to string, now time.Time) ([]Event, error) {
	if !IsKnownJobStatus(to) {
		return nil, ErrUnknownJobStatus
	}
	from := job.Status
	if from == to {
		return nil, nil
	}
	if from == model.JobStatusCancelled {
		return nil, ErrJobCancelled
	}
	if to == model.JobStatusOpen && now.After(job.ApplicationDeadline) {
		return nil, ErrDeadlinePassed
	}

	job.Status = to

	var events []Event
	switch {
	case from == model.JobStatusOpen:
		events = append(events, JobClosed{JobID: job.JobID, CompanyID: job.CompanyID, To: to})
	case to == model.JobStatusOpen:
		events = append(events, JobOpened{JobID: job.JobID, CompanyID: job.CompanyID})
	}
	return events, nil
}

// CancelJob 删除职位：强制变为 cancelled
func CancelJob(job *model.Job, now time.Time) []Event {
	if job.Status == model.JobStatusCancelled {
		return nil
	}
	events, _ := ChangeJobStatus(job, model.JobStatusCancelled, now)
	return events
}
