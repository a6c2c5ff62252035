package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/02loveslollipop/snow-cannon-viewer/services/internal/cannon"
)

type cannonModel struct {
	ID           int       `gorm:"column:id;primaryKey;autoIncrement:false"`
	NumeroRegard *int      `gorm:"column:numero_regard"`
	Secteur      int       `gorm:"column:secteur;index"`
	Type         string    `gorm:"column:type;not null"`
	NomPiste     string    `gorm:"column:nom_piste"`
	Latitude     float64   `gorm:"column:latitude"`
	Longitude    float64   `gorm:"column:longitude"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (cannonModel) TableName() string { return "snow_cannons" }

type measurementModel struct {
	ID                   int64     `gorm:"column:id;primaryKey"`
	SnowCannonID         int       `gorm:"column:snow_cannon_id;not null;uniqueIndex:idx_measurement_cannon_date"`
	ConsoEauM3           float64   `gorm:"column:conso_eau_m3"`
	ObjectifMiniM3       *float64  `gorm:"column:objectif_mini_m3"`
	ObjectifMaxM3        *float64  `gorm:"column:objectif_max_m3"`
	DureeFonctionnementH float64   `gorm:"column:duree_fonctionnement_h"`
	DateMesure           time.Time `gorm:"column:date_mesure;not null;uniqueIndex:idx_measurement_cannon_date"`
	CreatedAt            time.Time `gorm:"column:created_at"`
}

func (measurementModel) TableName() string { return "snow_cannon_measurements" }

func (m cannonModel) toDomain() cannon.Cannon {
	return cannon.Cannon{
		ID:           m.ID,
		NumeroRegard: m.NumeroRegard,
		Sector:       m.Secteur,
		Type:         cannon.Type(m.Type),
		PisteName:    m.NomPiste,
		Latitude:     m.Latitude,
		Longitude:    m.Longitude,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func (m measurementModel) toDomain() *cannon.Measurement {
	return &cannon.Measurement{
		ID:             m.ID,
		ConsumptionM3:  m.ConsoEauM3,
		ObjectiveMinM3: m.ObjectifMiniM3,
		ObjectiveMaxM3: m.ObjectifMaxM3,
		DurationHours:  m.DureeFonctionnementH,
		MeasuredAt:     m.DateMesure,
	}
}

// SQLiteStore serves the same reads and writes as Store from an embedded
// SQLite database, for local development and tests.
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLite opens (or creates) the SQLite database at path and migrates the
// schema. Use ":memory:" for a throwaway database.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// A second connection to ":memory:" would see a different database.
	sqlDB.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.EnsureSchema(context.Background()); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema auto-migrates the cannon and measurement tables.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&cannonModel{}, &measurementModel{}); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Close releases the underlying connection.
func (s *SQLiteStore) Close() {
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// Ping checks the database handle.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// ListCannons narrows by sector and type in SQL, joins each cannon with its
// latest measurement, then applies the consumption bounds.
func (s *SQLiteStore) ListCannons(ctx context.Context, f cannon.Filter) ([]cannon.EnrichedCannon, error) {
	q := s.db.WithContext(ctx).Model(&cannonModel{})
	if f.Sector != nil {
		q = q.Where("secteur = ?", *f.Sector)
	}
	if f.Type != nil {
		q = q.Where("type = ?", string(*f.Type))
	}

	var models []cannonModel
	if err := q.Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(models))
	for _, m := range models {
		ids = append(ids, m.ID)
	}
	latest, err := s.latestMeasurements(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]cannon.EnrichedCannon, 0, len(models))
	for _, m := range models {
		enriched := cannon.Enrich(cannon.Row{Cannon: m.toDomain(), Latest: latest[m.ID]})
		if f.Matches(enriched) {
			out = append(out, enriched)
		}
	}
	return out, nil
}

// GetCannon returns one enriched cannon, or nil when no cannon has that id.
func (s *SQLiteStore) GetCannon(ctx context.Context, id int) (*cannon.EnrichedCannon, error) {
	var m cannonModel
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	latest, err := s.latestMeasurements(ctx, []int{id})
	if err != nil {
		return nil, err
	}
	enriched := cannon.Enrich(cannon.Row{Cannon: m.toDomain(), Latest: latest[id]})
	return &enriched, nil
}

// latestMeasurements maps each cannon id to its most recent measurement.
// Cannons without measurements are absent from the map.
func (s *SQLiteStore) latestMeasurements(ctx context.Context, ids []int) (map[int]*cannon.Measurement, error) {
	out := make(map[int]*cannon.Measurement, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var ms []measurementModel
	err := s.db.WithContext(ctx).
		Where("snow_cannon_id IN ?", ids).
		Order("snow_cannon_id ASC, date_mesure DESC, created_at DESC, id DESC").
		Find(&ms).Error
	if err != nil {
		return nil, err
	}

	for _, m := range ms {
		if _, seen := out[m.SnowCannonID]; !seen {
			out[m.SnowCannonID] = m.toDomain()
		}
	}
	return out, nil
}

// UpsertCannons inserts/updates cannon records.
func (s *SQLiteStore) UpsertCannons(ctx context.Context, cannons []cannon.Cannon) error {
	if len(cannons) == 0 {
		return nil
	}

	models := make([]cannonModel, 0, len(cannons))
	for _, c := range cannons {
		models = append(models, cannonModel{
			ID:           c.ID,
			NumeroRegard: c.NumeroRegard,
			Secteur:      c.Sector,
			Type:         string(c.Type),
			NomPiste:     c.PisteName,
			Latitude:     c.Latitude,
			Longitude:    c.Longitude,
		})
	}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"numero_regard", "secteur", "type", "nom_piste", "latitude", "longitude", "updated_at"}),
	}).Create(&models).Error
}

// InsertMeasurements writes readings; a second reading for the same cannon
// and timestamp replaces the first.
func (s *SQLiteStore) InsertMeasurements(ctx context.Context, measurements []MeasurementRecord) error {
	if len(measurements) == 0 {
		return nil
	}

	models := make([]measurementModel, 0, len(measurements))
	for _, m := range measurements {
		models = append(models, measurementModel{
			SnowCannonID:         m.CannonID,
			ConsoEauM3:           m.ConsumptionM3,
			ObjectifMiniM3:       m.ObjectiveMinM3,
			ObjectifMaxM3:        m.ObjectiveMaxM3,
			DureeFonctionnementH: m.DurationHours,
			DateMesure:           m.MeasuredAt,
		})
	}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "snow_cannon_id"}, {Name: "date_mesure"}},
		DoUpdates: clause.AssignmentColumns([]string{"conso_eau_m3", "objectif_mini_m3", "objectif_max_m3", "duree_fonctionnement_h"}),
	}).Create(&models).Error
}
