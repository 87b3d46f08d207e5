package domain

import "time"

// FailedTask is a dead-lettered job: a transaction or webhook job that
// exhausted its retry budget and was parked for operator replay.
type FailedTask struct {
	ID               string
	JobID            string
	JobName          string
	Payload          []byte
	ExceptionClass   string
	ExceptionMessage string
	Traceback        string
	RetryCount       int
	FailedAt         time.Time
	ReplayedAt       *time.Time
	ReplayStatus     string
	ReplayNote       string
}

func (f *FailedTask) AlreadyReplayed() bool { return f.ReplayedAt != nil }
