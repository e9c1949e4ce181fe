package models

// ActivityModel logs account and analysis activity for the dashboard feed.
type ActivityModel struct {
	Base
	Type    string                 `json:"type"    gorm:"index;not null"`
	Payload map[string]interface{} `json:"payload" gorm:"type:longtext;serializer:json"`
}

func (ActivityModel) TableName() string { return "activities" }

// OptionModel is a generic key-value store for system configuration.
type OptionModel struct {
	ID    uint   `json:"-" gorm:"primaryKey;autoIncrement"`
	Name  string `json:"name"  gorm:"uniqueIndex;not null"`
	Value string `json:"value" gorm:"type:longtext"` // JSON-encoded value
}

func (OptionModel) TableName() string { return "options" }
