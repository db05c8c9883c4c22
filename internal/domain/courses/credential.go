package courses

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Credential is a custom credential type scoped to a course. Its IPFS content
// id is the stable identity within the course.
type Credential struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CourseAddress string    `gorm:"column:course_address;type:varchar(42);not null;uniqueIndex:idx_credential_identity,priority:1" json:"course_address"`
	ChainID       int64     `gorm:"column:chain_id;not null;uniqueIndex:idx_credential_identity,priority:2" json:"chain_id"`
	IPFSCID       string    `gorm:"column:ipfs_cid;type:text;not null;uniqueIndex:idx_credential_identity,priority:3" json:"ipfs_cid"`

	Name        string `gorm:"column:name;type:text;not null" json:"name"`
	Description string `gorm:"column:description;type:text" json:"description"`
	ImageURL    string `gorm:"column:image_url;type:text" json:"image_url"`
	Kind        string `gorm:"column:kind;type:varchar(16);not null;default:'other'" json:"kind"`
	CreatedBy   string `gorm:"column:created_by;type:varchar(42)" json:"created_by"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Credential) TableName() string { return "credentials" }

func (c *Credential) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
