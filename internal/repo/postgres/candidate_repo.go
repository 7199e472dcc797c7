package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dkudrin/iskra/internal/domain/model"
)

// CandidateRepo serves the ordered candidate feed. The feed is assumed
// pre-filtered upstream (no self-entries, no blocked or hidden
// profiles); this repo only pages through it in its fixed display-name
// order.
type CandidateRepo struct {
	pool *pgxpool.Pool
}

func NewCandidateRepo(pool *pgxpool.Pool) *CandidateRepo {
	return &CandidateRepo{pool: pool}
}

// ListPage returns one page of candidates for the viewer, ordered by
// display name then id, starting after the cursor id (empty cursor
// means from the top). Profiles without a name or photos are not part
// of the feed.
func (r *CandidateRepo) ListPage(ctx context.Context, viewerID, afterID string, limit int) ([]model.CandidateProfile, error) {
	if strings.TrimSpace(viewerID) == "" {
		return nil, fmt.Errorf("viewer id is required")
	}
	if limit <= 0 {
		limit = 50
	}
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT
	user_id,
	display_name,
	COALESCE(age, 0),
	COALESCE(photos, '{}'),
	COALESCE(bio, ''),
	COALESCE(job_title, ''),
	COALESCE(company, ''),
	COALESCE(school, ''),
	COALESCE(city, ''),
	COALESCE(interests, '{}')
FROM candidate_feed
WHERE user_id <> $1
  AND display_name <> ''
  AND cardinality(photos) > 0
  AND ($2 = '' OR (display_name, user_id) > (
	SELECT display_name, user_id FROM candidate_feed WHERE user_id = $2
  ))
ORDER BY display_name ASC, user_id ASC
LIMIT $3
`, viewerID, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("query candidate feed: %w", err)
	}
	defer rows.Close()

	var candidates []model.CandidateProfile
	for rows.Next() {
		var c model.CandidateProfile
		if err := rows.Scan(
			&c.ID,
			&c.Name,
			&c.Age,
			&c.Photos,
			&c.Bio,
			&c.Job,
			&c.Company,
			&c.School,
			&c.City,
			&c.Interests,
		); err != nil {
			return nil, fmt.Errorf("scan candidate row: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidate feed: %w", err)
	}

	return candidates, nil
}
