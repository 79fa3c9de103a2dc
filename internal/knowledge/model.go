package knowledge

import "time"

// Snippet is one unit of counselor background knowledge, matched against
// diary content at comment time.
type Snippet struct {
	ID        uint64    `gorm:"primaryKey"`
	Title     string    `gorm:"type:text;not null;default:''"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (Snippet) TableName() string { return "knowledge_snippets" }

// Match is a ranked retrieval result.
type Match struct {
	ID      uint64
	Title   string
	Content string
	Rank    float64
}
