package jobs

type JobType string

const (
	JobSendEmail    JobType = "send_email"
	JobNotifyAdmins JobType = "notify_admins"
)

// check to see if the job type is a known constant
func (t JobType) IsValid() bool {
	switch t {
	case JobSendEmail, JobNotifyAdmins:
		return true
	default:
		return false
	}
}
