package errcode

// Codes carried in worker notifications:
// - 0: success
// - 4xxx: the task had nothing to do (the resume is gone)
// - 5xxx: the task failed
const (
	OK             = 0
	ResumeNotFound = 4004
	SystemError    = 5000
	RenderFailed   = 5002
	StorageFailed  = 5003
)
