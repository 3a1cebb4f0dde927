package db

import (
	"context"

	"github.com/alwitt/halcyon/models"
	"gorm.io/gorm"
)

// --------------------------------------------------------------------------------------
// Audit events

// AuditEventDBEntry audit event DB entry
type AuditEventDBEntry struct {
	models.AuditEvent
}

// TableName hard code table name
func (AuditEventDBEntry) TableName() string {
	return "audit_events"
}

// --------------------------------------------------------------------------------------
// System parameters

// SystemParamsDBEntry system parameters DB entry
type SystemParamsDBEntry struct {
	models.SystemParams
}

// TableName hard code table name
func (SystemParamsDBEntry) TableName() string {
	return "system_params"
}

// --------------------------------------------------------------------------------------
// Users

// UserDBEntry user DB entry
type UserDBEntry struct {
	models.UserRecord
}

// TableName hard code table name
func (UserDBEntry) TableName() string {
	return "users"
}

// --------------------------------------------------------------------------------------
// Journal

// LabelDBEntry label DB entry
type LabelDBEntry struct {
	models.LabelRecord
	User UserDBEntry `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID" validate:"-"`
}

// TableName hard code table name
func (LabelDBEntry) TableName() string {
	return "labels"
}

// EntryDBEntry diary entry DB entry
type EntryDBEntry struct {
	models.EntryRecord
	User UserDBEntry `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID" validate:"-"`
}

// TableName hard code table name
func (EntryDBEntry) TableName() string {
	return "entries"
}

// EntryEditDBEntry diary entry edit DB entry
type EntryEditDBEntry struct {
	models.EntryEditRecord
	Entry EntryDBEntry `gorm:"constraint:OnDelete:CASCADE;foreignKey:EntryID" validate:"-"`
}

// TableName hard code table name
func (EntryEditDBEntry) TableName() string {
	return "entry_edits"
}

// EventDBEntry event DB entry
type EventDBEntry struct {
	models.EventRecord
	User UserDBEntry `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID" validate:"-"`
}

// TableName hard code table name
func (EventDBEntry) TableName() string {
	return "events"
}

// SettingDBEntry user setting DB entry
type SettingDBEntry struct {
	models.SettingRecord
	User UserDBEntry `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID" validate:"-"`
}

// TableName hard code table name
func (SettingDBEntry) TableName() string {
	return "settings"
}

// AssetDBEntry asset DB entry
type AssetDBEntry struct {
	models.AssetRecord
	User UserDBEntry `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID" validate:"-"`
}

// TableName hard code table name
func (AssetDBEntry) TableName() string {
	return "assets"
}

// --------------------------------------------------------------------------------------
// Page loads

// PageLoadDBEntry page load log DB entry
type PageLoadDBEntry struct {
	models.PageLoad
}

// TableName hard code table name
func (PageLoadDBEntry) TableName() string {
	return "page_loads"
}

// AllTables every table DB entry, in creation order
func AllTables() []interface{} {
	return []interface{}{
		&AuditEventDBEntry{},
		&SystemParamsDBEntry{},
		&UserDBEntry{},
		&LabelDBEntry{},
		&EntryDBEntry{},
		&EntryEditDBEntry{},
		&EventDBEntry{},
		&SettingDBEntry{},
		&AssetDBEntry{},
		&PageLoadDBEntry{},
	}
}

// DefineTables helper function to prepare a database with tables
func DefineTables(_ context.Context, db *gorm.DB) error {
	return db.AutoMigrate(AllTables()...)
}
