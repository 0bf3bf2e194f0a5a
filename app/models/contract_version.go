package models

import (
	"time"

	"gorm.io/gorm"
)

// ContractVersion references a published rental contract document.
// Signatures stamp the version that was current at signing time.
type ContractVersion struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Version     string    `gorm:"type:varchar(50);not null;uniqueIndex" json:"version"`
	DocumentURL string    `gorm:"type:varchar(500);not null" json:"document_url"`
	EffectiveAt time.Time `gorm:"type:timestamp;not null;index" json:"effective_at"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// LatestContractVersion returns the most recently effective contract
// version, or gorm.ErrRecordNotFound when none was published yet.
func LatestContractVersion(db *gorm.DB) (*ContractVersion, error) {
	var cv ContractVersion
	err := db.Order("effective_at DESC").First(&cv).Error
	if err != nil {
		return nil, err
	}
	return &cv, nil
}
