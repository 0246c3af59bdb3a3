package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeDocumentPublished = "document.published"
	EventTypeAccessGranted     = "access.granted"
)

type DocumentPublishedEvent struct {
	BaseEvent
	DocumentID string `json:"document_id"`
	OwnerID    string `json:"owner_id"`
	Title      string `json:"title"`
	ContentRef string `json:"content_ref"`
}

func NewDocumentPublishedEvent(documentID, ownerID, title, contentRef string) *DocumentPublishedEvent {
	return &DocumentPublishedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeDocumentPublished,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"document_id": documentID,
				"owner_id":    ownerID,
				"title":       title,
				"content_ref": contentRef,
			},
		},
		DocumentID: documentID,
		OwnerID:    ownerID,
		Title:      title,
		ContentRef: contentRef,
	}
}

type AccessGrantedEvent struct {
	BaseEvent
	DocumentID string `json:"document_id"`
	OwnerID    string `json:"owner_id"`
	GranteeID  string `json:"grantee_id"`
	Title      string `json:"title"`
	ContentRef string `json:"content_ref"`
}

func NewAccessGrantedEvent(documentID, ownerID, granteeID, title, contentRef string) *AccessGrantedEvent {
	return &AccessGrantedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeAccessGranted,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"document_id": documentID,
				"owner_id":    ownerID,
				"grantee_id":  granteeID,
			},
		},
		DocumentID: documentID,
		OwnerID:    ownerID,
		GranteeID:  granteeID,
		Title:      title,
		ContentRef: contentRef,
	}
}
