package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// TimetableStatus represents lifecycle phases for saved timetables.
type TimetableStatus string

const (
	TimetableStatusDraft     TimetableStatus = "DRAFT"
	TimetableStatusPublished TimetableStatus = "PUBLISHED"
	TimetableStatusArchived  TimetableStatus = "ARCHIVED"
)

// Timetable captures a versioned, solved timetable for a class-term pair.
type Timetable struct {
	ID        string          `db:"id" json:"id"`
	TermID    string          `db:"term_id" json:"term_id"`
	ClassID   string          `db:"class_id" json:"class_id"`
	Version   int             `db:"version" json:"version"`
	Status    TimetableStatus `db:"status" json:"status"`
	Meta      types.JSONText  `db:"meta" json:"meta"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// TimetableSlot is an occupied cell of a saved timetable. Position keeps the grid ordering.
type TimetableSlot struct {
	ID          string    `db:"id" json:"id"`
	TimetableID string    `db:"timetable_id" json:"timetable_id"`
	Day         string    `db:"day" json:"day"`
	Hour        string    `db:"hour" json:"hour"`
	Subject     string    `db:"subject" json:"subject"`
	Position    int       `db:"position" json:"position"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// TimetableMeta is stored as JSON next to each timetable.
type TimetableMeta struct {
	Days            []string       `json:"days"`
	Hours           []string       `json:"hours"`
	HoursPerSubject map[string]int `json:"hours_per_subject"`
	MaxHoursPerDay  int            `json:"max_hours_per_day"`
	Objective       float64        `json:"objective"`
	ExtraDays       int            `json:"extra_days"`
	SolverStatus    string         `json:"solver_status"`
	ProposalID      string         `json:"proposal_id"`
}

// TimetableFilter narrows timetable listings.
type TimetableFilter struct {
	TermID   string
	ClassID  string
	Status   *TimetableStatus
	Page     int
	PageSize int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
