package transactions

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Action string

const (
	ActionCreateCourse        Action = "create_course"
	ActionTransferCredentials Action = "transfer_credentials"
	ActionBurnCredential      Action = "burn_credential"
)

func (a Action) Valid() bool {
	switch a {
	case ActionCreateCourse, ActionTransferCredentials, ActionBurnCredential:
		return true
	}
	return false
}

// PendingTransaction is the write-ahead marker recorded when a user submits an
// on-chain write. Markers are scoped to the recording user: the same hash may
// be recorded by several users, and only a reconciliation run on behalf of the
// owner, for the recorded action, deletes it (in the same relational
// transaction that applies the reconciled effect).
type PendingTransaction struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	TxHash      string         `gorm:"column:tx_hash;type:varchar(66);not null;uniqueIndex:idx_pending_tx_user" json:"tx_hash"`
	ChainID     int64          `gorm:"column:chain_id;not null" json:"chain_id"`
	UserAddress string         `gorm:"column:user_address;type:varchar(42);not null;uniqueIndex:idx_pending_tx_user;index" json:"user_address"`
	Action      Action         `gorm:"column:action;type:varchar(32);not null" json:"action"`
	Payload     datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload,omitempty"`
	Attempts    int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	LastError   string         `gorm:"column:last_error;type:text" json:"last_error,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PendingTransaction) TableName() string { return "pending_transactions" }

func (p *PendingTransaction) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Enrollment is one recipient of a credential transfer, carried in the
// payload of transfer markers.
type Enrollment struct {
	Address string `json:"address"`
	Email   string `json:"email,omitempty"`
	Discord string `json:"discord,omitempty"`
}

// TransferPayload is stored on transfer_credentials markers so a resync can
// replay the enrollment.
type TransferPayload struct {
	CourseAddress string       `json:"course_address,omitempty"`
	Enrollments   []Enrollment `json:"enrollments"`
}

// BurnPayload is stored on burn_credential markers.
type BurnPayload struct {
	CourseAddress string `json:"course_address,omitempty"`
}
