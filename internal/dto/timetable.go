package dto

import (
	"time"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// PreferenceEntry biases the solver toward a subject at a slot.
type PreferenceEntry struct {
	Day     string  `json:"day" validate:"required"`
	Hour    string  `json:"hour" validate:"required"`
	Subject string  `json:"subject" validate:"required"`
	Weight  float64 `json:"weight"`
}

// ConstraintEntry pins (flag 1) or forbids (any other flag) a subject at a slot.
type ConstraintEntry struct {
	Day     string `json:"day" validate:"required"`
	Hour    string `json:"hour" validate:"required"`
	Subject string `json:"subject" validate:"required"`
	Flag    int    `json:"flag"`
}

// GenerateTimetableRequest describes the grid to solve for a class/term.
type GenerateTimetableRequest struct {
	TermID          string            `json:"termId" validate:"required"`
	ClassID         string            `json:"classId" validate:"required"`
	Days            []string          `json:"days" validate:"required,min=1,dive,required"`
	Hours           []string          `json:"hours" validate:"required,min=1,dive,required"`
	HoursPerSubject map[string]int    `json:"hoursPerSubject" validate:"required,min=1,dive,keys,required,endkeys,min=0"`
	MaxHoursPerDay  int               `json:"maxHoursPerDay" validate:"required"`
	Preferences     []PreferenceEntry `json:"preferences" validate:"omitempty,dive"`
	Constraints     []ConstraintEntry `json:"constraints" validate:"omitempty,dive"`
}

// TimetableSlotProposal is an occupied cell of a generated timetable.
type TimetableSlotProposal struct {
	Day     string `json:"day"`
	Hour    string `json:"hour"`
	Subject string `json:"subject"`
}

// SolveStats summarises the model and the solver outcome.
type SolveStats struct {
	Variables      int            `json:"variables"`
	Constraints    int            `json:"constraints"`
	Groups         map[string]int `json:"groups"`
	PinnedSlots    int            `json:"pinnedSlots"`
	ForbiddenSlots int            `json:"forbiddenSlots"`
	Status         string         `json:"status"`
	Objective      float64        `json:"objective"`
	ExtraDays      int            `json:"extraDays"`
	DurationMillis int64          `json:"durationMillis"`
}

// GenerateTimetableResponse returns a solved timetable proposal. Grid is indexed [hour][day].
type GenerateTimetableResponse struct {
	ProposalID string                  `json:"proposalId"`
	TermID     string                  `json:"termId"`
	ClassID    string                  `json:"classId"`
	Days       []string                `json:"days"`
	Hours      []string                `json:"hours"`
	Grid       [][]string              `json:"grid"`
	Slots      []TimetableSlotProposal `json:"slots"`
	Stats      SolveStats              `json:"stats"`
	Cached     bool                    `json:"cached"`
	ExpiresAt  time.Time               `json:"expiresAt"`
}

// SaveTimetableRequest persists a proposal as a new timetable version.
type SaveTimetableRequest struct {
	ProposalID string `json:"proposalId" validate:"required"`
	Publish    bool   `json:"publish"`
}

// SaveTimetableResponse identifies the stored timetable.
type SaveTimetableResponse struct {
	TimetableID string                 `json:"timetableId"`
	Version     int                    `json:"version"`
	Status      models.TimetableStatus `json:"status"`
	SlotCount   int                    `json:"slotCount"`
}

// TimetableQuery filters timetable listings by class and term.
type TimetableQuery struct {
	TermID   string `form:"termId" json:"termId" validate:"required"`
	ClassID  string `form:"classId" json:"classId" validate:"required"`
	Page     int    `form:"page" json:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" json:"pageSize" validate:"omitempty,min=1,max=100"`
}

// SolveJobResponse reports the state of an asynchronous solve.
type SolveJobResponse struct {
	Job       models.SolveJob            `json:"job"`
	Result    *GenerateTimetableResponse `json:"result,omitempty"`
	ErrorCode string                     `json:"errorCode,omitempty"`
	Error     string                     `json:"error,omitempty"`
}

// ExportFormat enumerates supported timetable exports.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportedFile is a rendered export ready to stream.
type ExportedFile struct {
	FileName    string
	ContentType string
	Content     []byte
}

// SolverMetricsSnapshot is the JSON summary of solver activity.
type SolverMetricsSnapshot struct {
	Solves             uint64    `json:"solves"`
	SolveFailures      uint64    `json:"solveFailures"`
	AverageSolveMillis float64   `json:"averageSolveMillis"`
	CacheHitRatio      float64   `json:"cacheHitRatio"`
	RequestsTotal      uint64    `json:"requestsTotal"`
	Goroutines         int       `json:"goroutines"`
	GeneratedAt        time.Time `json:"generatedAt"`
}
