package courses

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserCredential records that a token on a course contract was minted to a
// user. Rows exist only for observed Issued events and are removed on burn.
type UserCredential struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CourseAddress string    `gorm:"column:course_address;type:varchar(42);not null;uniqueIndex:idx_user_credential_identity,priority:1;index:idx_user_credential_course_type,priority:1" json:"course_address"`
	ChainID       int64     `gorm:"column:chain_id;not null;uniqueIndex:idx_user_credential_identity,priority:2;index:idx_user_credential_course_type,priority:2" json:"chain_id"`
	UserAddress   string    `gorm:"column:user_address;type:varchar(42);not null;uniqueIndex:idx_user_credential_identity,priority:3;index" json:"user_address"`
	TokenID       string    `gorm:"column:token_id;type:varchar(78);not null;uniqueIndex:idx_user_credential_identity,priority:4" json:"token_id"`

	CredentialType string `gorm:"column:credential_type;type:varchar(16);not null;index:idx_user_credential_course_type,priority:3" json:"credential_type"`
	CredentialCID  string `gorm:"column:credential_cid;type:text" json:"credential_cid"`
	Email          string `gorm:"column:email;type:text" json:"email,omitempty"`
	Discord        string `gorm:"column:discord;type:text" json:"discord,omitempty"`
	TxHash         string `gorm:"column:tx_hash;type:varchar(66);index" json:"tx_hash"`
	Verified       bool   `gorm:"column:verified;not null;default:false" json:"verified"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (UserCredential) TableName() string { return "user_credentials" }

func (u *UserCredential) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// TokenKey addresses a single minted token.
type TokenKey struct {
	CourseAddress string `json:"course_address"`
	ChainID       int64  `json:"chain_id"`
	UserAddress   string `json:"user_address"`
	TokenID       string `json:"token_id"`
}
