package domain

import "time"

type AiTool struct {
	ID            uint    `gorm:"primaryKey" json:"id"`
	Name          string  `gorm:"size:255;not null" json:"name"`
	Link          string  `gorm:"size:1024;not null" json:"link"`
	Documentation *string `gorm:"size:1024" json:"documentation,omitempty"`
	Description   string  `gorm:"size:2000;not null" json:"description"`
	UsageNotes    string  `gorm:"size:2000;not null" json:"usage"`

	// AiToolTypeID is the legacy single-type column. Writes always set it to
	// the first element of the requested type-id list; reads must not treat
	// it as authoritative over the join table.
	AiToolTypeID uint        `json:"ai_tool_type_id"`
	AiToolType   *AiToolType `gorm:"foreignKey:AiToolTypeID" json:"ai_tool_type,omitempty"`

	Types []AiToolType `gorm:"many2many:ai_tool_type_assignments" json:"types,omitempty"`
	Roles []Role       `gorm:"many2many:ai_tool_role_assignments" json:"roles,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
