package models

import "time"

// SettingValueType JSON type of a setting value
type SettingValueType string

const (
	// SettingTypeBoolean JSON boolean
	SettingTypeBoolean SettingValueType = "boolean"
	// SettingTypeNumber JSON number
	SettingTypeNumber SettingValueType = "number"
	// SettingTypeString JSON string
	SettingTypeString SettingValueType = "string"
)

// SettingDefinition a known setting key and its default value
type SettingDefinition struct {
	// Key the setting key
	Key string
	// Type JSON type of the value
	Type SettingValueType
	// Default value used when the user never set the key
	Default any
}

// SettingDefinitions the closed set of user settings
var SettingDefinitions = map[string]SettingDefinition{
	"hideEntriesByDefault":     {Key: "hideEntriesByDefault", Type: SettingTypeBoolean, Default: false},
	"entryFormMode":            {Key: "entryFormMode", Type: SettingTypeBoolean, Default: false},
	"showAgentWidgetOnEntries": {Key: "showAgentWidgetOnEntries", Type: SettingTypeBoolean, Default: false},
	"autoHideEntriesDelay":     {Key: "autoHideEntriesDelay", Type: SettingTypeNumber, Default: float64(0)},
	"passcode":                 {Key: "passcode", Type: SettingTypeString, Default: ""},
	"passcodeTimeout":          {Key: "passcodeTimeout", Type: SettingTypeNumber, Default: float64(0)},
	"yearOfBirth":              {Key: "yearOfBirth", Type: SettingTypeNumber, Default: float64(2000)},
	"showNYearsAgoEntryTitles": {Key: "showNYearsAgoEntryTitles", Type: SettingTypeBoolean, Default: true},
}

// TypeOf JSON type name of a decoded JSON value
func TypeOf(value any) SettingValueType {
	switch value.(type) {
	case bool:
		return SettingTypeBoolean
	case float64:
		return SettingTypeNumber
	case string:
		return SettingTypeString
	}
	return "unknown"
}

// Setting a decrypted user setting
type Setting struct {
	Key     string    `json:"key"`
	Value   any       `json:"value"`
	Created time.Time `json:"created"`
}
