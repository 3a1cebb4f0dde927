package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/datatypes"
)

// AuditEventTypeENUMType audit event type ENUM value type
type AuditEventTypeENUMType string

const (
	// AuditEventTypeSystemInitializing system is being initialized
	AuditEventTypeSystemInitializing AuditEventTypeENUMType = "SYSTEM_INITIALIZING"

	// AuditEventTypeSystemInitialized system is initialized
	AuditEventTypeSystemInitialized AuditEventTypeENUMType = "SYSTEM_INITIALIZED"

	// AuditEventTypeUserCreated new user signed up
	AuditEventTypeUserCreated AuditEventTypeENUMType = "USER_CREATED"

	// AuditEventTypePasswordChanged user changed password and all data was re-encrypted
	AuditEventTypePasswordChanged AuditEventTypeENUMType = "PASSWORD_CHANGED"

	// AuditEventTypeBackupRestored user data was restored from a backup
	AuditEventTypeBackupRestored AuditEventTypeENUMType = "BACKUP_RESTORED"

	// AuditEventTypeGitHubLinked user linked a GitHub account
	AuditEventTypeGitHubLinked AuditEventTypeENUMType = "GITHUB_LINKED"
)

// AuditEvent recording of security relevant events
type AuditEvent struct {
	// ID audit entry ID
	ID string `json:"id" gorm:"column:id;primaryKey;unique" validate:"required"`
	// UserID the user the event relates to. Empty for system level events.
	UserID string `json:"user_id,omitempty" gorm:"column:user_id;index" validate:"omitempty,uuid_rfc4122"`
	// EventType audit event type
	EventType AuditEventTypeENUMType `json:"type" gorm:"column:type;not null" validate:"required,audit_event_type"`
	// Metadata a metadata relating to the event
	Metadata datatypes.JSON `json:"metadata,omitempty" gorm:"column:metadata;default:null"`
	// CreatedAt entry creation timestamp
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt entry update timestamp
	UpdatedAt time.Time `json:"updated_at"`
}

// ParseMetadata parse the metadata based on the event type
func (a AuditEvent) ParseMetadata(validator *validator.Validate) (interface{}, error) {
	switch a.EventType {
	case AuditEventTypeSystemInitializing:
		var parsed AuditEventSystemRelated
		if err := json.Unmarshal(a.Metadata, &parsed); err != nil {
			return nil, fmt.Errorf("audit event '%s' metadata parse failed [%w]", a.EventType, err)
		}
		return parsed, validator.Struct(&parsed)

	case AuditEventTypeUserCreated:
		var parsed AuditEventUserRelated
		if err := json.Unmarshal(a.Metadata, &parsed); err != nil {
			return nil, fmt.Errorf("audit event '%s' metadata parse failed [%w]", a.EventType, err)
		}
		return parsed, validator.Struct(&parsed)

	// Bulk re-encryption related audit events
	case AuditEventTypePasswordChanged:
		fallthrough
	case AuditEventTypeBackupRestored:
		var parsed AuditEventDataRewritten
		if err := json.Unmarshal(a.Metadata, &parsed); err != nil {
			return nil, fmt.Errorf("audit event '%s' metadata parse failed [%w]", a.EventType, err)
		}
		return parsed, validator.Struct(&parsed)
	}
	return nil, nil
}

// AuditEventSystemRelated audit event metadata related to system start up
type AuditEventSystemRelated struct {
	// KeyDerivationScheme scheme recorded at initialization
	KeyDerivationScheme string `json:"key_derivation_scheme" validate:"required"`
}

// AuditEventUserRelated audit event metadata related to a user account
type AuditEventUserRelated struct {
	// Username the user name
	Username string `json:"username" validate:"required"`
}

// AuditEventDataRewritten audit event metadata related to rewriting a user's data
type AuditEventDataRewritten struct {
	// Entries number of entries written
	Entries int `json:"entries" validate:"gte=0"`
	// EntryEdits number of entry edits written
	EntryEdits int `json:"entry_edits" validate:"gte=0"`
	// Labels number of labels written
	Labels int `json:"labels" validate:"gte=0"`
	// Events number of events written
	Events int `json:"events" validate:"gte=0"`
	// Assets number of assets written
	Assets int `json:"assets" validate:"gte=0"`
}
