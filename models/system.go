package models

import (
	"fmt"
	"time"
)

// SystemStateENUMType system operating state ENUM
type SystemStateENUMType string

const (
	// SystemStatePreInit first time system start
	SystemStatePreInit SystemStateENUMType = "PRE_INITIALIZATION"
	// SystemStateInit system perform first time initialization
	SystemStateInit SystemStateENUMType = "INITIALIZING"
	// SystemStateRunning system running normally
	SystemStateRunning SystemStateENUMType = "RUNNING"
)

// SystemParams system operating parameters
type SystemParams struct {
	// ID param entry ID. It must always be system-parameters
	ID string `json:"id" gorm:"column:id;primaryKey;unique" validate:"required,oneof=system-parameters"`

	// State system operating state
	State SystemStateENUMType `json:"state" gorm:"column:state;not null" validate:"required,system_state"`

	// KeyDerivationScheme password to key derivation in use by all stored data
	KeyDerivationScheme string `json:"key_derivation_scheme" gorm:"column:kdf_scheme"`

	// EnvelopeVersion cipher text envelope version in use by all stored data
	EnvelopeVersion int `json:"envelope_version" gorm:"column:envelope_version;not null;default:0"`

	// CreatedAt entry creation timestamp
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt entry update timestamp
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidateNextState verify can transition to new state
func (p *SystemParams) ValidateNextState(newState SystemStateENUMType) error {
	statesWithTransitions := map[SystemStateENUMType]map[SystemStateENUMType]bool{
		SystemStatePreInit: {
			SystemStatePreInit: true,
			SystemStateInit:    true,
		},
		SystemStateInit: {
			SystemStateInit:    true,
			SystemStateRunning: true,
		},
		SystemStateRunning: {
			SystemStateRunning: true,
		},
	}

	availableNextStates, ok := statesWithTransitions[p.State]
	if !ok {
		return fmt.Errorf("system can't transition out of state '%s'", p.State)
	}

	if _, ok := availableNextStates[newState]; !ok {
		return fmt.Errorf("system can't transition from '%s' to '%s'", p.State, newState)
	}

	return nil
}

/*
CheckCompatible verify the stored data was written with the given key derivation scheme
and envelope version. A system which was never initialized is compatible with anything.

	@param kdfScheme string - key derivation scheme of this build
	@param envelopeVersion int - cipher text envelope version of this build
*/
func (p *SystemParams) CheckCompatible(kdfScheme string, envelopeVersion int) error {
	if p.State != SystemStateRunning {
		return nil
	}
	if p.KeyDerivationScheme != kdfScheme {
		return fmt.Errorf(
			"stored data uses key derivation '%s', this build uses '%s'",
			p.KeyDerivationScheme, kdfScheme,
		)
	}
	if p.EnvelopeVersion != envelopeVersion {
		return fmt.Errorf(
			"stored data uses envelope version %d, this build uses %d",
			p.EnvelopeVersion, envelopeVersion,
		)
	}
	return nil
}

// PageLoad one served request
type PageLoad struct {
	// ID log entry ID
	ID string `json:"id" gorm:"column:id;primaryKey;unique" validate:"required"`
	// UserID the authenticated user, if any
	UserID string `json:"user_id,omitempty" gorm:"column:user_id;index"`
	// Method HTTP method
	Method string `json:"method" gorm:"column:method;not null" validate:"required"`
	// URL request URL path and query
	URL string `json:"url" gorm:"column:url;not null" validate:"required"`
	// Route matched route pattern
	Route string `json:"route" gorm:"column:route"`
	// LoadTimeMs time to respond in milliseconds
	LoadTimeMs int64 `json:"load_time_ms" gorm:"column:load_time_ms;not null" validate:"gte=0"`
	// ResponseCode HTTP status code
	ResponseCode int `json:"response_code" gorm:"column:response_code;not null" validate:"gte=100,lt=600"`
	// UserAgent client user agent
	UserAgent string `json:"user_agent" gorm:"column:user_agent"`
	// RequestSize request body size in bytes
	RequestSize int64 `json:"request_size" gorm:"column:request_size;not null"`
	// ResponseSize response body size in bytes
	ResponseSize int64 `json:"response_size" gorm:"column:response_size;not null"`
	// IPAddress client address
	IPAddress string `json:"ip_address" gorm:"column:ip_address"`
	// CreatedAt entry creation timestamp
	CreatedAt time.Time `json:"created_at"`
}
