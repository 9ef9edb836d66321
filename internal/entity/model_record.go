package entity

import (
	"time"

	"gorm.io/datatypes"
)

// ModelRecord stores trained-model metadata. At most one record per market
// may be active at any time; the registry enforces that, not the schema,
// because inactive historical versions must coexist.
type ModelRecord struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Name         string         `gorm:"not null" json:"name"`
	Version      string         `gorm:"not null" json:"version"`
	Market       string         `gorm:"not null;index" json:"market"`
	FeatureTier  int            `gorm:"not null" json:"feature_tier"`
	Metrics      datatypes.JSON `gorm:"type:jsonb" json:"metrics"`
	ArtifactPath string         `json:"artifact_path"`
	Checksum     string         `gorm:"not null" json:"checksum"`
	Active       bool           `gorm:"not null;default:false" json:"active"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for the ModelRecord model.
func (ModelRecord) TableName() string {
	return "model_records"
}
