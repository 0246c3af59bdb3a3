package access

import (
	"time"

	"github.com/frahmantamala/research-vault/internal/core/datamodel/user"
)

type Grant struct {
	ID          string     `gorm:"primaryKey;type:uuid"`
	DocumentID  string     `gorm:"column:document_id;type:uuid;not null;uniqueIndex:idx_access_grants_document_user"`
	UserID      string     `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_access_grants_document_user;index"`
	User        *user.User `gorm:"foreignKey:UserID"`
	KeyMaterial []byte     `gorm:"column:key_material;not null"`
	GrantedAt   time.Time  `gorm:"column:granted_at;not null"`
}

func (Grant) TableName() string {
	return "access_grants"
}
