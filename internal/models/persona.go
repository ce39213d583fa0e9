package models

import (
	"time"

	"github.com/lib/pq"
)

// Communication styles a persona can carry. Unknown values are coerced to
// StyleWarm when the context is built.
const (
	StyleWarm    = "warm"
	StyleFormal  = "formal"
	StylePlayful = "playful"
	StyleStoic   = "stoic"
	StylePoetic  = "poetic"
)

type Persona struct {
	UserID string `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	Name   string `gorm:"column:name;type:text" json:"name"`

	CommunicationStyle string `gorm:"column:communication_style;type:text" json:"communication_style"`

	// Personality scalars, 0-100.
	Warmth     int `gorm:"column:warmth;default:50" json:"warmth"`
	Humor      int `gorm:"column:humor;default:50" json:"humor"`
	Formality  int `gorm:"column:formality;default:50" json:"formality"`
	Optimism   int `gorm:"column:optimism;default:50" json:"optimism"`
	Empathy    int `gorm:"column:empathy;default:50" json:"empathy"`
	Directness int `gorm:"column:directness;default:50" json:"directness"`
	Curiosity  int `gorm:"column:curiosity;default:50" json:"curiosity"`
	Nostalgia  int `gorm:"column:nostalgia;default:50" json:"nostalgia"`

	Traits pq.StringArray `gorm:"column:traits;type:text[]" json:"traits"`

	// Media identities at the external rendering providers. Both must be set
	// for an interaction to get an avatar video.
	AvatarID string `gorm:"column:avatar_id;type:text" json:"avatar_id,omitempty"`
	VoiceID  string `gorm:"column:voice_id;type:text" json:"voice_id,omitempty"`

	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (Persona) TableName() string { return "personas" }

func (p *Persona) HasMediaIdentities() bool {
	return p != nil && p.AvatarID != "" && p.VoiceID != ""
}
