package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type queryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const regionColumns = `
	id::text, name, COALESCE(location, ''), COALESCE(description, ''),
	COALESCE(singlefilter_price, 0), COALESCE(doublefilter_price, 0), COALESCE(mixedfilter_price, 0),
	COALESCE(avg_weight_per_singlefilter, 0), COALESCE(avg_weight_per_doublefilter, 0), COALESCE(avg_weight_per_mixedfilter, 0),
	COALESCE(free_nut, 0), COALESCE(rating, 0), COALESCE(total_reviews, 0), COALESCE(total_sales, 0), COALESCE(visit_count, 0),
	COALESCE(features, '{}'), updated_at`

// PostgresRepository reads the regions and region_media tables.
type PostgresRepository struct {
	db queryer
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("catalog: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newPostgresRepositoryWithQueryer(db queryer) *PostgresRepository {
	if db == nil {
		panic("catalog: queryer required")
	}
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context) ([]Region, error) {
	rows, err := r.db.Query(ctx, `SELECT `+regionColumns+` FROM regions ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list regions: %w", err)
	}
	defer rows.Close()

	var regions []Region
	for rows.Next() {
		region, err := scanRegion(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: scan region: %w", err)
		}
		regions = append(regions, region)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: list regions: %w", err)
	}
	if len(regions) == 0 {
		return []Region{}, nil
	}

	ids := make([]string, len(regions))
	for i := range regions {
		ids[i] = regions[i].ID
	}
	media, err := r.mediaFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range regions {
		regions[i].Media = mediaOrEmpty(media[regions[i].ID])
	}
	return regions, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Region, error) {
	region, err := scanRegion(r.db.QueryRow(ctx, `SELECT `+regionColumns+` FROM regions WHERE id::text = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRegionNotFound
		}
		return nil, fmt.Errorf("catalog: get region: %w", err)
	}
	media, err := r.mediaFor(ctx, []string{region.ID})
	if err != nil {
		return nil, err
	}
	region.Media = mediaOrEmpty(media[region.ID])
	return &region, nil
}

func (r *PostgresRepository) mediaFor(ctx context.Context, ids []string) (map[string][]Media, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id::text, region_id::text, url, type, created_at
		FROM region_media
		WHERE region_id::text = ANY($1)
		ORDER BY created_at, id
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("catalog: list media: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]Media, len(ids))
	for rows.Next() {
		var (
			m        Media
			regionID string
		)
		if err := rows.Scan(&m.ID, &regionID, &m.URL, &m.Type, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("catalog: scan media: %w", err)
		}
		out[regionID] = append(out[regionID], m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: list media: %w", err)
	}
	return out, nil
}

func scanRegion(row pgx.Row) (Region, error) {
	var (
		region    Region
		updatedAt *time.Time
	)
	err := row.Scan(
		&region.ID, &region.Name, &region.Location, &region.Description,
		&region.SingleFilterPrice, &region.DoubleFilterPrice, &region.MixedFilterPrice,
		&region.AvgWeightPerSingleFilter, &region.AvgWeightPerDoubleFilter, &region.AvgWeightPerMixedFilter,
		&region.FreeNut, &region.Rating, &region.TotalReviews, &region.TotalSales, &region.VisitCount,
		&region.Features, &updatedAt,
	)
	if err != nil {
		return Region{}, err
	}
	if updatedAt != nil {
		region.UpdatedAt = updatedAt.UTC()
	}
	return region, nil
}

func mediaOrEmpty(m []Media) []Media {
	if m == nil {
		return []Media{}
	}
	return m
}

// Upsert writes a region and any media it carries. Media rows that already
// exist are left alone. Missing ids are generated.
func (r *PostgresRepository) Upsert(ctx context.Context, region *Region) error {
	if region == nil {
		return errors.New("catalog: nil region")
	}
	if region.ID == "" {
		region.ID = uuid.NewString()
	}
	features := region.Features
	if features == nil {
		features = []string{}
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO regions (
			id, name, location, description,
			singlefilter_price, doublefilter_price, mixedfilter_price,
			avg_weight_per_singlefilter, avg_weight_per_doublefilter, avg_weight_per_mixedfilter,
			free_nut, rating, total_reviews, total_sales, visit_count, features, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			location = EXCLUDED.location,
			description = EXCLUDED.description,
			singlefilter_price = EXCLUDED.singlefilter_price,
			doublefilter_price = EXCLUDED.doublefilter_price,
			mixedfilter_price = EXCLUDED.mixedfilter_price,
			avg_weight_per_singlefilter = EXCLUDED.avg_weight_per_singlefilter,
			avg_weight_per_doublefilter = EXCLUDED.avg_weight_per_doublefilter,
			avg_weight_per_mixedfilter = EXCLUDED.avg_weight_per_mixedfilter,
			free_nut = EXCLUDED.free_nut,
			rating = EXCLUDED.rating,
			total_reviews = EXCLUDED.total_reviews,
			total_sales = EXCLUDED.total_sales,
			visit_count = EXCLUDED.visit_count,
			features = EXCLUDED.features,
			updated_at = NOW()
	`,
		region.ID, region.Name, region.Location, region.Description,
		region.SingleFilterPrice, region.DoubleFilterPrice, region.MixedFilterPrice,
		region.AvgWeightPerSingleFilter, region.AvgWeightPerDoubleFilter, region.AvgWeightPerMixedFilter,
		region.FreeNut, region.Rating, region.TotalReviews, region.TotalSales, region.VisitCount, features,
	)
	if err != nil {
		return fmt.Errorf("catalog: upsert region %s: %w", region.ID, err)
	}

	for i := range region.Media {
		m := &region.Media[i]
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		if m.Type == "" {
			m.Type = "image"
		}
		if _, err := r.db.Exec(ctx, `
			INSERT INTO region_media (id, region_id, url, type)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO NOTHING
		`, m.ID, region.ID, m.URL, m.Type); err != nil {
			return fmt.Errorf("catalog: insert media for %s: %w", region.ID, err)
		}
	}
	return nil
}
