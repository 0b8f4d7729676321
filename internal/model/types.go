package model

type Resolution string

const (
	ResolutionHorizontal Resolution = "horizontal"
	ResolutionVertical   Resolution = "vertical"
)

func (r Resolution) Valid() bool {
	return r == ResolutionHorizontal || r == ResolutionVertical
}

// Status is shared by runs and tasks. StatusDownloadFailed only ever appears on tasks.
type Status string

const (
	StatusQueued         Status = "queued"
	StatusRunning        Status = "running"
	StatusCompleted      Status = "completed"
	StatusFailed         Status = "failed"
	StatusDownloadFailed Status = "download_failed"
)

// Final reports whether no further transition is expected without a new user action.
func (s Status) Final() bool {
	return s != StatusQueued && s != StatusRunning
}

func (s Status) Failed() bool {
	return s == StatusFailed || s == StatusDownloadFailed
}

type OutputMode string

const (
	OutputCentralized OutputMode = "centralized"
	OutputInPlace     OutputMode = "in_place"
	OutputCustom      OutputMode = "custom"
)

func (m OutputMode) Valid() bool {
	return m == OutputCentralized || m == OutputInPlace || m == OutputCustom
}

type TaskErrorCode string

const (
	ErrContentPolicy  TaskErrorCode = "content_policy"
	ErrValidation     TaskErrorCode = "validation_error"
	ErrRateLimited    TaskErrorCode = "rate_limited"
	ErrTimeout        TaskErrorCode = "timeout"
	ErrQuotaExceeded  TaskErrorCode = "quota_exceeded"
	ErrUnauthorized   TaskErrorCode = "unauthorized"
	ErrForbidden      TaskErrorCode = "forbidden"
	ErrDependency     TaskErrorCode = "dependency_error"
	ErrServer         TaskErrorCode = "server_error"
	ErrUnknown        TaskErrorCode = "unknown_error"
	ErrDownloadFailed TaskErrorCode = "download_failed"
	ErrNoProvider     TaskErrorCode = "no_provider"
)

var taskErrorCodes = map[TaskErrorCode]bool{
	ErrContentPolicy:  true,
	ErrValidation:     true,
	ErrRateLimited:    true,
	ErrTimeout:        true,
	ErrQuotaExceeded:  true,
	ErrUnauthorized:   true,
	ErrForbidden:      true,
	ErrDependency:     true,
	ErrServer:         true,
	ErrUnknown:        true,
	ErrDownloadFailed: true,
	ErrNoProvider:     true,
}

func (c TaskErrorCode) Valid() bool {
	return taskErrorCodes[c]
}

// AllowedDurations lists durations accepted for standard segments; pro segments also accept 25.
var AllowedDurations = []int{4, 8, 10, 12, 15}

const ProOnlyDuration = 25

type Character struct {
	Name string `json:"name"`
	ID   string `json:"id,omitempty"`
}

type Asset struct {
	Characters []Character `json:"characters"`
	Scene      *string     `json:"scene"`
	Props      []string    `json:"props"`
}

type Storyboard struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	CreatedAt    Timestamp `json:"created_at"`
	SegmentCount int       `json:"segment_count"`
}

type Segment struct {
	ID              string     `json:"id"`
	StoryboardID    string     `json:"storyboard_id,omitempty"`
	SegmentIndex    int        `json:"segment_index"`
	PromptText      string     `json:"prompt_text"`
	DirectorIntent  *string    `json:"director_intent"`
	ImageURL        *string    `json:"image_url"`
	DurationSeconds int        `json:"duration_seconds"`
	Resolution      Resolution `json:"resolution"`
	IsPro           bool       `json:"is_pro"`
	Asset           *Asset     `json:"asset"`
}

type Run struct {
	ID             string    `json:"id"`
	StoryboardID   string    `json:"storyboard_id,omitempty"`
	StoryboardName string    `json:"storyboard_name,omitempty"`
	ModelID        string    `json:"model_id,omitempty"`
	Status         Status    `json:"status"`
	TotalTasks     int       `json:"total_tasks"`
	Completed      int       `json:"completed"`
	Failed         int       `json:"failed"`
	DownloadFailed int       `json:"download_failed"`
	CreatedAt      Timestamp `json:"created_at"`
}

func (r Run) StatusOf() Status { return r.Status }

// RoutingStrategy decides how the backend picks providers for a run's tasks.
type RoutingStrategy string

const (
	RoutingDefault  RoutingStrategy = "default"
	RoutingWeighted RoutingStrategy = "weighted"
	RoutingFailover RoutingStrategy = "failover"
)

func (r RoutingStrategy) Valid() bool {
	return r == RoutingDefault || r == RoutingWeighted || r == RoutingFailover
}

type RunCreateRequest struct {
	StoryboardID    string          `json:"storyboard_id"`
	ModelID         string          `json:"model_id"`
	GenCount        int             `json:"gen_count"`
	Concurrency     int             `json:"concurrency"`
	Range           string          `json:"range"`
	OutputMode      OutputMode      `json:"output_mode"`
	OutputPath      string          `json:"output_path,omitempty"`
	DryRun          bool            `json:"dry_run"`
	Force           bool            `json:"force"`
	RoutingStrategy RoutingStrategy `json:"routing_strategy,omitempty"`
}

// Task is one unit of work within a run. Retryable decodes JSON null or an absent
// field to false.
type Task struct {
	ID           string         `json:"id"`
	RunID        string         `json:"run_id,omitempty"`
	Status       Status         `json:"status"`
	VideoURL     *string        `json:"video_url"`
	MetadataURL  *string        `json:"metadata_url"`
	FullPrompt   *string        `json:"full_prompt"`
	ErrorCode    *TaskErrorCode `json:"error_code"`
	ErrorMsg     *string        `json:"error_msg"`
	Retryable    bool           `json:"retryable"`
	SegmentIndex int            `json:"segment_index"`
	CreatedAt    *Timestamp     `json:"created_at,omitempty"`
}

func (t Task) StatusOf() Status { return t.Status }

// CanRetry reports whether the backend will accept a retry for this task.
func (t Task) CanRetry() bool {
	return t.Retryable && t.Status.Failed()
}

type Model struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Description *string `json:"description"`
	Enabled     bool    `json:"enabled"`
}

type Provider struct {
	ID                   string       `json:"id"`
	DisplayName          string       `json:"display_name"`
	Priority             int          `json:"priority"`
	Weight               int          `json:"weight"`
	Enabled              bool         `json:"enabled"`
	SupportsImageToVideo bool         `json:"supports_image_to_video"`
	SupportedDurations   []int        `json:"supported_durations"`
	SupportedResolutions []Resolution `json:"supported_resolutions"`
	SupportsPro          bool         `json:"supports_pro"`
}

type Page[T any] struct {
	Items    []T `json:"items"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

// Stateful is implemented by entities a poller can test for convergence.
type Stateful interface {
	StatusOf() Status
}

func StringPtr(s string) *string { return &s }
