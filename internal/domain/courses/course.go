package courses

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Course mirrors a deployed credential contract plus the metadata document its
// baseURI points at. (Address, ChainID) is the identity.
type Course struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Address string    `gorm:"column:address;type:varchar(42);not null;uniqueIndex:idx_course_identity,priority:1" json:"address"`
	ChainID int64     `gorm:"column:chain_id;not null;uniqueIndex:idx_course_identity,priority:2;index" json:"chain_id"`

	OwnerAddress string `gorm:"column:owner_address;type:varchar(42);not null;index" json:"owner_address"`
	Name         string `gorm:"column:name;type:text;not null" json:"name"`
	Description  string `gorm:"column:description;type:text;not null" json:"description"`
	Symbol       string `gorm:"column:symbol;type:text" json:"symbol"`
	MaxSupply    string `gorm:"column:max_supply;type:text" json:"max_supply"`
	BaseURI      string `gorm:"column:base_uri;type:text" json:"base_uri"`
	ImageURL     string `gorm:"column:image_url;type:text" json:"image_url"`
	AccessURL    string `gorm:"column:access_url;type:text" json:"access_url"`
	Website      string `gorm:"column:website;type:text" json:"website"`

	SnapshotSpace       string `gorm:"column:snapshot_space;type:text" json:"snapshot_space,omitempty"`
	KarmaAddress        string `gorm:"column:karma_address;type:varchar(42)" json:"karma_address,omitempty"`
	MagisterBaseKarma   int64  `gorm:"column:magister_base_karma;not null;default:0" json:"magister_base_karma"`
	DiscipulusBaseKarma int64  `gorm:"column:discipulus_base_karma;not null;default:0" json:"discipulus_base_karma"`

	Attributes     datatypes.JSON `gorm:"column:attributes;type:jsonb" json:"attributes,omitempty"`
	CreationTxHash string         `gorm:"column:creation_tx_hash;type:varchar(66);index" json:"creation_tx_hash"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Course) TableName() string { return "courses" }

func (c *Course) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Key identifies a course across chains.
type Key struct {
	Address string
	ChainID int64
}
