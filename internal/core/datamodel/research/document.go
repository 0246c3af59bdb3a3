package research

import (
	"time"

	"github.com/frahmantamala/research-vault/internal/core/datamodel/user"
)

type Document struct {
	ID          string     `gorm:"primaryKey;type:uuid"`
	OwnerID     string     `gorm:"column:owner_id;type:uuid;not null;index"`
	Owner       *user.User `gorm:"foreignKey:OwnerID"`
	Title       string     `gorm:"column:title;not null"`
	Description string     `gorm:"column:description"`
	Category    string     `gorm:"column:category;index"`
	Tags        []string   `gorm:"column:tags;serializer:json"`
	IsPublic    bool       `gorm:"column:is_public;not null;default:false"`
	ContentRef  string     `gorm:"column:content_ref;not null"`
	WrappedKey  []byte     `gorm:"column:wrapped_key;not null"`
	FileName    string     `gorm:"column:file_name"`
	ContentType string     `gorm:"column:content_type"`
	Size        int64      `gorm:"column:size"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Document) TableName() string {
	return "documents"
}
