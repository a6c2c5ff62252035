package db

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/02loveslollipop/snow-cannon-viewer/services/internal/cannon"
)

//go:embed schema.sql
var schemaSQL string

// MeasurementRecord is a reading to store for one cannon.
type MeasurementRecord struct {
	CannonID int
	cannon.Measurement
}

// EnsureSchema creates the cannon and measurement tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

const upsertCannonSQL = `INSERT INTO snow_cannons (id, numero_regard, secteur, type, nom_piste, latitude, longitude, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,NOW(),NOW())
ON CONFLICT (id) DO UPDATE
SET numero_regard = EXCLUDED.numero_regard,
    secteur = EXCLUDED.secteur,
    type = EXCLUDED.type,
    nom_piste = EXCLUDED.nom_piste,
    latitude = EXCLUDED.latitude,
    longitude = EXCLUDED.longitude,
    updated_at = NOW()`

// UpsertCannons inserts/updates cannon records.
func (s *Store) UpsertCannons(ctx context.Context, cannons []cannon.Cannon) error {
	if len(cannons) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, c := range cannons {
		batch.Queue(upsertCannonSQL, c.ID, c.NumeroRegard, c.Sector, string(c.Type), c.PisteName, c.Latitude, c.Longitude)
	}

	res := s.pool.SendBatch(ctx, batch)
	defer res.Close()

	for _, c := range cannons {
		if _, err := res.Exec(); err != nil {
			return fmt.Errorf("upsert cannon %d: %w", c.ID, err)
		}
	}

	return nil
}

const insertMeasurementSQL = `INSERT INTO snow_cannon_measurements (snow_cannon_id, conso_eau_m3, objectif_mini_m3, objectif_max_m3, duree_fonctionnement_h, date_mesure, created_at)
VALUES ($1,$2,$3,$4,$5,$6,NOW())
ON CONFLICT (snow_cannon_id, date_mesure) DO UPDATE
SET conso_eau_m3 = EXCLUDED.conso_eau_m3,
    objectif_mini_m3 = EXCLUDED.objectif_mini_m3,
    objectif_max_m3 = EXCLUDED.objectif_max_m3,
    duree_fonctionnement_h = EXCLUDED.duree_fonctionnement_h`

// InsertMeasurements writes readings; a second reading for the same cannon
// and timestamp replaces the first.
func (s *Store) InsertMeasurements(ctx context.Context, measurements []MeasurementRecord) error {
	if len(measurements) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, m := range measurements {
		batch.Queue(insertMeasurementSQL, m.CannonID, m.ConsumptionM3, m.ObjectiveMinM3, m.ObjectiveMaxM3, m.DurationHours, m.MeasuredAt)
	}

	res := s.pool.SendBatch(ctx, batch)
	defer res.Close()

	for _, m := range measurements {
		if _, err := res.Exec(); err != nil {
			return fmt.Errorf("insert measurement for cannon %d: %w", m.CannonID, err)
		}
	}

	return nil
}
