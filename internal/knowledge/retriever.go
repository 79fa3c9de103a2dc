package knowledge

import (
	"context"
	"strings"

	"gorm.io/gorm"
)

// Retriever ranks snippets against a free-text query using Postgres
// full-text search ('simple' config, no stemming, so Japanese content still
// tokenizes on whitespace/punctuation).
type Retriever struct {
	DB *gorm.DB
}

// Search returns up to limit snippets ranked by ts_rank, best first.
// An empty query returns no matches.
func (r *Retriever) Search(ctx context.Context, query string, limit int) ([]Match, error) {
	query = strings.TrimSpace(query)
	if query == "" || limit <= 0 {
		return nil, nil
	}

	var out []Match
	err := r.DB.WithContext(ctx).Raw(`
select id,
       title,
       content,
       ts_rank(to_tsvector('simple', content), plainto_tsquery('simple', ?)) as rank
from knowledge_snippets
where to_tsvector('simple', content) @@ plainto_tsquery('simple', ?)
order by rank desc, id asc
limit ?
`, query, query, limit).Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Add stores a new snippet.
func (r *Retriever) Add(ctx context.Context, title, content string) (*Snippet, error) {
	s := Snippet{Title: strings.TrimSpace(title), Content: strings.TrimSpace(content)}
	if err := r.DB.WithContext(ctx).Create(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}
