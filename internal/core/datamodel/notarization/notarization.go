package notarization

import "time"

type Notarization struct {
	ID         string    `gorm:"primaryKey;type:uuid"`
	DocumentID string    `gorm:"column:document_id;type:uuid;not null;index"`
	TxType     string    `gorm:"column:tx_type;not null"`
	TxHash     string    `gorm:"column:tx_hash;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;not null;index"`
}

func (Notarization) TableName() string {
	return "notarizations"
}
