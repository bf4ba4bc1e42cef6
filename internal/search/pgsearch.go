package search

import (
	"database/sql"
	"fmt"
)

// PgSearch answers link searches straight from the primary store with a
// case-insensitive pattern match. It is the fallback when Meilisearch is
// down or not configured.
type PgSearch struct {
	db *sql.DB
}

func NewPgSearch(db *sql.DB) *PgSearch {
	return &PgSearch{db: db}
}

func (p *PgSearch) Search(q Query) ([]Result, int, error) {
	limit := q.Limit
	if limit == 0 {
		limit = 20
	}

	pattern := "%" + q.Text + "%"
	rows, err := p.db.Query(`
		SELECT id, category_id, name, url, icon
		FROM links
		WHERE owner_user_id=$1
		  AND (name ILIKE $2 OR url ILIKE $2)
		ORDER BY sort_order ASC, id ASC
		LIMIT $3
	`, q.UserID, pattern, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("pg link search: %w", err)
	}
	defer rows.Close()

	results := make([]Result, 0)
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.LinkID, &r.CategoryID, &r.Name, &r.URL, &r.Icon); err != nil {
			return nil, 0, fmt.Errorf("scan link search row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate link search rows: %w", err)
	}

	var total int
	if err := p.db.QueryRow(`
		SELECT COUNT(*) FROM links
		WHERE owner_user_id=$1 AND (name ILIKE $2 OR url ILIKE $2)
	`, q.UserID, pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count link search: %w", err)
	}

	return results, total, nil
}
