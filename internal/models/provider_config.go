package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Service categories a gateway call can target.
const (
	CategoryLLM    = "llm"
	CategoryVoice  = "voice"
	CategoryAvatar = "avatar"
)

type ProviderConfig struct {
	Category string         `gorm:"column:category;type:text;primaryKey" json:"category"`
	APIKey   string         `gorm:"column:api_key;type:text" json:"-"`
	IsActive bool           `gorm:"column:is_active" json:"is_active"`
	Settings datatypes.JSON `gorm:"column:settings;type:jsonb" json:"settings,omitempty"`

	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (ProviderConfig) TableName() string { return "provider_configs" }

// Usable reports whether this config can serve a gateway call at all.
// A deactivated or keyless config is unusable and triggers the
// legacy-name lookup.
func (c *ProviderConfig) Usable() bool {
	return c != nil && c.IsActive && c.APIKey != ""
}

// Setting returns a string value from the settings JSONB, or "" when the
// key is absent or not a string.
func (c *ProviderConfig) Setting(key string) string {
	if c == nil || len(c.Settings) == 0 {
		return ""
	}
	var m map[string]any
	if err := json.Unmarshal(c.Settings, &m); err != nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}
