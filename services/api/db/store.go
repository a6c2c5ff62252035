package db

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/02loveslollipop/snow-cannon-viewer/services/internal/cannon"
)

// Store wraps database access helpers.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store backed by a pgx pool.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks connectivity to the database.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// enrichedCannonBase selects every cannon with its most recent measurement.
// Measurement columns are NULL for cannons that were never measured.
const enrichedCannonBase = `
    SELECT sc.id, sc.numero_regard, sc.secteur, sc.type::text, sc.nom_piste,
           sc.latitude, sc.longitude, sc.created_at, sc.updated_at,
           scm.id, scm.conso_eau_m3, scm.objectif_mini_m3, scm.objectif_max_m3,
           scm.duree_fonctionnement_h, scm.date_mesure
    FROM snow_cannons sc
    LEFT JOIN LATERAL (
        SELECT m.id, m.conso_eau_m3, m.objectif_mini_m3, m.objectif_max_m3,
               m.duree_fonctionnement_h, m.date_mesure
        FROM snow_cannon_measurements m
        WHERE m.snow_cannon_id = sc.id
        ORDER BY m.date_mesure DESC, m.created_at DESC, m.id DESC
        LIMIT 1
    ) scm ON TRUE
`

// buildListQuery appends one positional predicate per filter criterion.
// Consumption bounds compare against a NULL column for unmeasured cannons,
// which excludes them.
func buildListQuery(f cannon.Filter) (string, []any) {
	conditions := []string{}
	args := []any{}

	if f.Sector != nil {
		args = append(args, *f.Sector)
		conditions = append(conditions, "sc.secteur = $"+strconv.Itoa(len(args)))
	}
	if f.Type != nil {
		args = append(args, string(*f.Type))
		conditions = append(conditions, "sc.type::text = $"+strconv.Itoa(len(args)))
	}
	if f.MinConsumption != nil {
		args = append(args, *f.MinConsumption)
		conditions = append(conditions, "scm.conso_eau_m3 >= $"+strconv.Itoa(len(args)))
	}
	if f.MaxConsumption != nil {
		args = append(args, *f.MaxConsumption)
		conditions = append(conditions, "scm.conso_eau_m3 <= $"+strconv.Itoa(len(args)))
	}

	query := strings.Builder{}
	query.WriteString(enrichedCannonBase)
	if len(conditions) > 0 {
		query.WriteString("    WHERE " + strings.Join(conditions, " AND ") + "\n")
	}
	query.WriteString("    ORDER BY sc.id ASC")
	return query.String(), args
}

// ListCannons returns every cannon matching the filter, enriched with its
// latest measurement and sorted by id.
func (s *Store) ListCannons(ctx context.Context, f cannon.Filter) ([]cannon.EnrichedCannon, error) {
	sql, args := buildListQuery(f)

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cannons := make([]cannon.EnrichedCannon, 0)
	for rows.Next() {
		row, err := scanCannonRow(rows)
		if err != nil {
			return nil, err
		}
		cannons = append(cannons, cannon.Enrich(row))
	}
	return cannons, rows.Err()
}

const cannonByIDSQL = enrichedCannonBase + `    WHERE sc.id = $1`

// GetCannon returns one enriched cannon, or nil when no cannon has that id.
func (s *Store) GetCannon(ctx context.Context, id int) (*cannon.EnrichedCannon, error) {
	row, err := scanCannonRow(s.pool.QueryRow(ctx, cannonByIDSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	enriched := cannon.Enrich(row)
	return &enriched, nil
}

func scanCannonRow(row pgx.Row) (cannon.Row, error) {
	var c cannon.Cannon
	var cannonType string
	var mID *int64
	var mConso *float64
	var mMin *float64
	var mMax *float64
	var mDuration *float64
	var mDate *time.Time

	if err := row.Scan(
		&c.ID,
		&c.NumeroRegard,
		&c.Sector,
		&cannonType,
		&c.PisteName,
		&c.Latitude,
		&c.Longitude,
		&c.CreatedAt,
		&c.UpdatedAt,
		&mID,
		&mConso,
		&mMin,
		&mMax,
		&mDuration,
		&mDate,
	); err != nil {
		return cannon.Row{}, err
	}
	c.Type = cannon.Type(cannonType)

	out := cannon.Row{Cannon: c}
	if mID == nil {
		return out, nil
	}

	m := &cannon.Measurement{
		ID:             *mID,
		ObjectiveMinM3: mMin,
		ObjectiveMaxM3: mMax,
	}
	if mConso != nil {
		m.ConsumptionM3 = *mConso
	}
	if mDuration != nil {
		m.DurationHours = *mDuration
	}
	if mDate != nil {
		m.MeasuredAt = *mDate
	}
	out.Latest = m
	return out, nil
}
