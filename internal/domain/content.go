package domain

import "time"

// ContentModule 教育内容模型（对应 education_content 表）
type ContentModule struct {
	ModuleID  string    `db:"module_id"` // UUID
	Slug      string    `db:"slug"`      // VARCHAR(100), NOT NULL, UNIQUE
	Title     string    `db:"title"`     // VARCHAR(200), NOT NULL
	Topic     string    `db:"topic"`     // basics | diet | dialysis | prevention
	Summary   string    `db:"summary"`
	Body      string    `db:"body"` // TEXT, markdown
	SortOrder int       `db:"sort_order"`
	UpdatedAt time.Time `db:"updated_at"`
}
