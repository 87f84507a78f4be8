package model

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

type EventStatus string

const (
	EventPending  EventStatus = "PENDING"
	EventStarted  EventStatus = "STARTED"
	EventPassed   EventStatus = "PASSED"
	EventFailed   EventStatus = "FAILED"
	EventReset    EventStatus = "RESET"
	EventScrapped EventStatus = "SCRAPPED"
)

// Present reports whether this status means "the unit is currently situated at
// this stage". PASSED/RESET/SCRAPPED denote departure or exit.
func (s EventStatus) Present() bool {
	return s == EventPending || s == EventStarted || s == EventFailed
}

// StageEvent is one row of the append-only ledger. No event is ever mutated or
// deleted; every other table is a projection of this one.
//
// The primary key is deliberately a bigint sequence rather than the UUID
// BaseModel: "latest event" queries order by (timestamp, id) and the id must
// break exact-timestamp ties in insertion order.
type StageEvent struct {
	ID                 uint64      `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductStageLinkID uuid.UUID   `gorm:"type:uuid;not null;index:idx_link_ts" json:"product_stage_link_id"`
	Status             EventStatus `gorm:"type:varchar(10);not null" json:"status"`
	Timestamp          time.Time   `gorm:"not null;index:idx_link_ts" json:"timestamp"`
	UserID             uuid.UUID   `gorm:"type:uuid;not null;index" json:"user_id"`
	Notes              string      `gorm:"type:text" json:"notes,omitempty"`
	DurationSeconds    *int        `json:"duration_seconds,omitempty"`

	Link *ProductStageLink `gorm:"foreignKey:ProductStageLinkID" json:"link,omitempty"`
	User *User             `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (StageEvent) TableName() string {
	return "stage_events"
}

// FailureNotes is the structured payload stored in the Notes column of FAILED
// events: a list of reason tags plus free-text detail.
type FailureNotes struct {
	Reasons []string `json:"reasons"`
	Detail  string   `json:"detail,omitempty"`
}

func (n FailureNotes) Encode() string {
	b, err := json.Marshal(n)
	if err != nil {
		return n.Detail
	}
	return string(b)
}

// DecodeFailureNotes parses a FAILED event's notes. Plain text written by older
// clients is preserved as the detail.
func DecodeFailureNotes(raw string) FailureNotes {
	var n FailureNotes
	if strings.HasPrefix(strings.TrimSpace(raw), "{") {
		if err := json.Unmarshal([]byte(raw), &n); err == nil {
			return n
		}
	}
	return FailureNotes{Detail: raw}
}
