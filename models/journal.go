package models

import "time"

// ======================================================================================
// Stored records
//
// Fields prefixed with `Enc` hold cipher text produced by `encryption.Encrypt` under the
// owning user's key. Everything else is plain text so it can be indexed and sorted.

// LabelRecord a user defined label
type LabelRecord struct {
	// ID label ID
	ID string `json:"id" gorm:"column:id;primaryKey;unique" validate:"required,uuid_rfc4122"`
	// UserID owning user
	UserID string `json:"user_id" gorm:"column:user_id;not null;index" validate:"required,uuid_rfc4122"`
	// EncName encrypted label name
	EncName string `json:"enc_name" gorm:"column:enc_name;not null" validate:"required,max=256"`
	// Colour display colour
	Colour string `json:"colour" gorm:"column:colour;not null" validate:"required,hexcolor"`

	// CreatedAt entry creation timestamp
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt entry update timestamp
	UpdatedAt time.Time `json:"updated_at"`
}

// EntryRecord a diary entry
type EntryRecord struct {
	// ID entry ID
	ID string `json:"id" gorm:"column:id;primaryKey;unique" validate:"required,uuid_rfc4122"`
	// UserID owning user
	UserID string `json:"user_id" gorm:"column:user_id;not null;index" validate:"required,uuid_rfc4122"`
	// EncTitle encrypted title, empty when the entry has no title
	EncTitle string `json:"enc_title" gorm:"column:enc_title" validate:"max=256"`
	// EncBody encrypted body
	EncBody string `json:"enc_body" gorm:"column:enc_body;not null" validate:"required"`
	// EncAgentData encrypted client agent description
	EncAgentData string `json:"enc_agent_data" gorm:"column:enc_agent_data"`
	// LabelID optional label
	LabelID *string `json:"label_id,omitempty" gorm:"column:label_id;index" validate:"omitempty,uuid_rfc4122"`
	// Latitude optional location
	Latitude *float64 `json:"latitude,omitempty" gorm:"column:latitude" validate:"omitempty,latitude"`
	// Longitude optional location
	Longitude *float64 `json:"longitude,omitempty" gorm:"column:longitude" validate:"omitempty,longitude"`
	// TimezoneUTCOffset author timezone offset in minutes
	TimezoneUTCOffset int `json:"timezone_utc_offset" gorm:"column:timezone_utc_offset;not null;default:0"`
	// Deleted soft delete marker
	Deleted bool `json:"deleted" gorm:"column:deleted;not null;default:false;index"`
	// Pinned whether the entry is pinned
	Pinned bool `json:"pinned" gorm:"column:pinned;not null;default:false"`

	// CreatedAt entry creation timestamp
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	// UpdatedAt entry update timestamp
	UpdatedAt time.Time `json:"updated_at"`
}

// EntryEditRecord a previous version of an entry
type EntryEditRecord struct {
	// ID edit ID
	ID string `json:"id" gorm:"column:id;primaryKey;unique" validate:"required,uuid_rfc4122"`
	// UserID owning user
	UserID string `json:"user_id" gorm:"column:user_id;not null;index" validate:"required,uuid_rfc4122"`
	// EntryID the edited entry
	EntryID string `json:"entry_id" gorm:"column:entry_id;not null;index" validate:"required,uuid_rfc4122"`
	// EncTitle encrypted title before the edit
	EncTitle string `json:"enc_title" gorm:"column:enc_title" validate:"max=256"`
	// EncBody encrypted body before the edit
	EncBody string `json:"enc_body" gorm:"column:enc_body;not null" validate:"required"`
	// EncAgentData encrypted client agent description before the edit
	EncAgentData string `json:"enc_agent_data" gorm:"column:enc_agent_data"`
	// LabelID label before the edit
	LabelID *string `json:"label_id,omitempty" gorm:"column:label_id;index" validate:"omitempty,uuid_rfc4122"`
	// Latitude location before the edit
	Latitude *float64 `json:"latitude,omitempty" gorm:"column:latitude"`
	// Longitude location before the edit
	Longitude *float64 `json:"longitude,omitempty" gorm:"column:longitude"`

	// CreatedAt when the edit happened
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt entry update timestamp
	UpdatedAt time.Time `json:"updated_at"`
}

// EventRecord a time span event
type EventRecord struct {
	// ID event ID
	ID string `json:"id" gorm:"column:id;primaryKey;unique" validate:"required,uuid_rfc4122"`
	// UserID owning user
	UserID string `json:"user_id" gorm:"column:user_id;not null;index" validate:"required,uuid_rfc4122"`
	// EncName encrypted event name
	EncName string `json:"enc_name" gorm:"column:enc_name;not null" validate:"required,max=256"`
	// Start event start
	Start time.Time `json:"start" gorm:"column:start;not null"`
	// End event end
	End time.Time `json:"end" gorm:"column:end;not null" validate:"gtefield=Start"`
	// LabelID optional label
	LabelID *string `json:"label_id,omitempty" gorm:"column:label_id;index" validate:"omitempty,uuid_rfc4122"`

	// CreatedAt entry creation timestamp
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt entry update timestamp
	UpdatedAt time.Time `json:"updated_at"`
}

// SettingRecord one user setting
type SettingRecord struct {
	// ID setting ID
	ID string `json:"id" gorm:"column:id;primaryKey;unique" validate:"required,uuid_rfc4122"`
	// UserID owning user
	UserID string `json:"user_id" gorm:"column:user_id;not null;index" validate:"required,uuid_rfc4122"`
	// Key setting key
	Key string `json:"key" gorm:"column:setting_key;not null;index" validate:"required,setting_key"`
	// EncValue encrypted JSON encoded value
	EncValue string `json:"enc_value" gorm:"column:enc_value;not null" validate:"required"`

	// CreatedAt entry creation timestamp
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt entry update timestamp
	UpdatedAt time.Time `json:"updated_at"`
}

// AssetRecord an uploaded file
type AssetRecord struct {
	// ID asset ID
	ID string `json:"id" gorm:"column:id;primaryKey;unique" validate:"required,uuid_rfc4122"`
	// UserID owning user
	UserID string `json:"user_id" gorm:"column:user_id;not null;index" validate:"required,uuid_rfc4122"`
	// EncFileName encrypted file name
	EncFileName string `json:"enc_file_name" gorm:"column:enc_file_name;not null" validate:"required"`
	// EncContent encrypted file content
	EncContent string `json:"enc_content" gorm:"column:enc_content;not null" validate:"required"`

	// CreatedAt entry creation timestamp
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt entry update timestamp
	UpdatedAt time.Time `json:"updated_at"`
}

// ======================================================================================
// Decrypted domain values

// Label a decrypted label
type Label struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Colour  string    `json:"colour"`
	Created time.Time `json:"created"`
}

// LabelWithCount a label and how often it is used
type LabelWithCount struct {
	Label
	// EntryCount number of entries using the label
	EntryCount int64 `json:"entryCount"`
	// EditCount number of entry edits using the label
	EditCount int64 `json:"editCount"`
	// EventCount number of events using the label
	EventCount int64 `json:"eventCount"`
}

// Entry a decrypted diary entry
type Entry struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Body              string    `json:"body"`
	AgentData         string    `json:"agentData"`
	LabelID           string    `json:"labelId,omitempty"`
	Label             *Label    `json:"label,omitempty"`
	Latitude          *float64  `json:"latitude,omitempty"`
	Longitude         *float64  `json:"longitude,omitempty"`
	TimezoneUTCOffset int       `json:"timezoneUtcOffset"`
	Deleted           bool      `json:"deleted"`
	Pinned            bool      `json:"pinned"`
	Created           time.Time `json:"created"`
}

// EntryEdit a decrypted previous version of an entry
type EntryEdit struct {
	ID        string    `json:"id"`
	EntryID   string    `json:"entryId"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	AgentData string    `json:"agentData"`
	LabelID   string    `json:"labelId,omitempty"`
	Label     *Label    `json:"label,omitempty"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	Created   time.Time `json:"created"`
}

// Event a decrypted event
type Event struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	LabelID string    `json:"labelId,omitempty"`
	Label   *Label    `json:"label,omitempty"`
	Created time.Time `json:"created"`
}

// Asset a decrypted asset
type Asset struct {
	ID       string    `json:"id"`
	FileName string    `json:"fileName"`
	Content  string    `json:"content"`
	Created  time.Time `json:"created"`
}

// Streaks consecutive day entry streaks
type Streaks struct {
	// Current streak ending today or yesterday, in days
	Current int `json:"current"`
	// Longest streak ever, in days
	Longest int `json:"longest"`
	// RunningSince start of the current streak
	RunningSince *time.Time `json:"runningSince,omitempty"`
}

// Backup a plain text snapshot of one user's data
type Backup struct {
	Entries    []Entry     `json:"entries"`
	EntryEdits []EntryEdit `json:"entryEdits"`
	Labels     []Label     `json:"labels"`
	Events     []Event     `json:"events"`
	Assets     []Asset     `json:"assets"`
}
