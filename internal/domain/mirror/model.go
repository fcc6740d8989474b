package mirror

import "time"

const DefaultRemoteName = "nju"

type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSucceeded, StatusFailed:
		return true
	default:
		return false
	}
}

type FailureCause string

const (
	CauseRemoteConfig FailureCause = "remote_config"
	CausePush         FailureCause = "push"
	CauseTimeout      FailureCause = "timeout"
)

// SyncRecord is the durable per-repository mirror state, keyed by repository name.
type SyncRecord struct {
	Name         string        `gorm:"primaryKey"`
	UpstreamURL  *string       `gorm:"column:upstream_url"`
	MirrorURL    string        `gorm:"column:mirror_url;not null"`
	Status       Status        `gorm:"not null"`
	ErrorMessage *string       `gorm:"column:error_message"`
	FailureCause *FailureCause `gorm:"column:failure_cause"`
	CreatedAt    time.Time     `gorm:"not null;autoCreateTime:false"`
	UpdatedAt    time.Time     `gorm:"not null;autoUpdateTime:false"`
}

func (SyncRecord) TableName() string {
	return "mirror_sync_records"
}

func NewSyncRecord(name string, now time.Time) *SyncRecord {
	return &SyncRecord{
		Name:      name,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (r *SyncRecord) Synced() bool {
	return r.Status == StatusSucceeded
}

func (r *SyncRecord) SetResolution(res Resolution) {
	upstream := res.UpstreamURL
	r.UpstreamURL = &upstream
	r.MirrorURL = res.MirrorURL
}

func (r *SyncRecord) MarkSucceeded(now time.Time) error {
	if r.Synced() {
		return ErrInvalidTransition
	}
	r.Status = StatusSucceeded
	r.ErrorMessage = nil
	r.FailureCause = nil
	r.UpdatedAt = now
	return nil
}

func (r *SyncRecord) MarkFailed(cause FailureCause, message string, now time.Time) error {
	if r.Synced() {
		return ErrInvalidTransition
	}
	r.Status = StatusFailed
	r.ErrorMessage = &message
	r.FailureCause = &cause
	r.UpdatedAt = now
	return nil
}

func (r *SyncRecord) Message() RepoMessage {
	return RepoMessage{
		Name:         r.Name,
		UpstreamURL:  r.UpstreamURL,
		MirrorURL:    r.MirrorURL,
		Status:       r.Status,
		ErrorMessage: r.ErrorMessage,
		UpdatedAt:    r.UpdatedAt,
	}
}

// RepoMessage is the bus payload announcing a mirrored repository.
type RepoMessage struct {
	Name         string    `json:"name"`
	UpstreamURL  *string   `json:"upstream_url"`
	MirrorURL    string    `json:"mirror_url"`
	Status       Status    `json:"status"`
	ErrorMessage *string   `json:"error_message"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Remote is one configured remote. PushURL is set only when git pushes to a
// different address than URL.
type Remote struct {
	Name    string
	URL     string
	PushURL string
}

// PushTarget is the address a push to this remote reaches.
func (r Remote) PushTarget() string {
	if r.PushURL != "" {
		return r.PushURL
	}
	return r.URL
}

type CommandOutput struct {
	Stdout string
	Stderr string
}

type Resolution struct {
	UpstreamURL string
	MirrorURL   string
}

type Candidate struct {
	Name  string
	Owner string
	Path  string
}

type ListFilter struct {
	Status Status
	Limit  int
}

// Outcome is the terminal state of one repository within one scan.
type Outcome string

const (
	OutcomeSkipped    Outcome = "skipped"
	OutcomeNoUpstream Outcome = "no_upstream"
	OutcomeSucceeded  Outcome = "succeeded"
	OutcomeFailed     Outcome = "failed"
	OutcomeStoreError Outcome = "store_error"
	OutcomeDuplicate  Outcome = "duplicate"
	OutcomeCancelled  Outcome = "cancelled"
)

type ScanSummary struct {
	StartedAt       time.Time     `json:"started_at"`
	Duration        time.Duration `json:"duration"`
	Discovered      int           `json:"discovered"`
	Skipped         int           `json:"skipped"`
	NoUpstream      int           `json:"no_upstream"`
	Succeeded       int           `json:"succeeded"`
	Failed          int           `json:"failed"`
	StoreErrors     int           `json:"store_errors"`
	Duplicates      int           `json:"duplicates"`
	Cancelled       int           `json:"cancelled"`
	PublishFailures int           `json:"publish_failures"`
}

func (s *ScanSummary) add(outcome Outcome) {
	switch outcome {
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeNoUpstream:
		s.NoUpstream++
	case OutcomeSucceeded:
		s.Succeeded++
	case OutcomeFailed:
		s.Failed++
	case OutcomeStoreError:
		s.StoreErrors++
	case OutcomeDuplicate:
		s.Duplicates++
	case OutcomeCancelled:
		s.Cancelled++
	}
}
