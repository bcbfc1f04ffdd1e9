package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BaSui01/truffle/internal/database"
	"github.com/BaSui01/truffle/marker"
)

// markerRow is one (fingerprint, action) entry.
type markerRow struct {
	Fingerprint string    `gorm:"primaryKey;size:64"`
	Action      string    `gorm:"primaryKey;size:191"`
	Record      string    `gorm:"type:text;not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (markerRow) TableName() string { return "truffle_markers" }

// stableIDRow is one stable id index entry.
type stableIDRow struct {
	StableID  string    `gorm:"primaryKey;size:191"`
	Record    string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (stableIDRow) TableName() string { return "truffle_stable_ids" }

// SQLStore is a gorm-based implementation of Store (sqlite, postgres, mysql).
// Records are stored as canonical JSON, which lets the guarded remove run as
// a single conditional DELETE.
type SQLStore struct {
	pool        *database.PoolManager
	fingerprint func(string) string
	logger      *zap.Logger
}

// NewSQLStore opens the configured database and returns a store over it.
func NewSQLStore(config StoreConfig, logger *zap.Logger) (*SQLStore, error) {
	pool, err := database.Open(config.SQL.Database, logger)
	if err != nil {
		return nil, err
	}
	s, err := NewSQLStoreWithPool(pool, config.Fingerprint, config.SQL.AutoMigrate, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStoreWithPool wraps an existing pool. With autoMigrate the tables are
// created by gorm.
func NewSQLStoreWithPool(pool *database.PoolManager, mode FingerprintMode, autoMigrate bool, logger *zap.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &SQLStore{
		pool:        pool,
		fingerprint: mode.Func(),
		logger:      logger.With(zap.String("component", "marker_store"), zap.String("backend", "sql")),
	}
	if autoMigrate {
		db, err := pool.DB(context.Background())
		if err != nil {
			return nil, err
		}
		if err := migrationSession(db).AutoMigrate(&markerRow{}, &stableIDRow{}); err != nil {
			return nil, fmt.Errorf("failed to migrate marker tables: %w", err)
		}
	}
	return s, nil
}

// mysqlTableOptions makes MySQL compare keys and records byte for byte;
// its default collations fold case.
const mysqlTableOptions = "ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_bin"

func migrationSession(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "mysql" {
		return db.Set("gorm:table_options", mysqlTableOptions)
	}
	return db
}

func encodeRecord(rec marker.Record) (string, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *SQLStore) db(ctx context.Context) (*gorm.DB, error) {
	db, err := s.pool.DB(ctx)
	if errors.Is(err, database.ErrPoolClosed) {
		return nil, ErrStoreClosed
	}
	return db, err
}

// Get implements Store.
func (s *SQLStore) Get(ctx context.Context, key Key) (marker.Marker, error) {
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	if key.StableID != "" {
		var row stableIDRow
		err := db.Where("stable_id = ?", key.StableID).Take(&row).Error
		switch {
		case err == nil:
			return marker.Unmarshal([]byte(row.Record))
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, unavailable("sql get stable id", err)
		}
	}

	var row markerRow
	err = db.Where("fingerprint = ? AND action = ?", s.fingerprint(key.Document), key.Action).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("sql get", err)
	}

	m, err := marker.Unmarshal([]byte(row.Record))
	if err != nil {
		return nil, err
	}

	if key.StableID != "" {
		if err := s.upsertStableID(db, key.StableID, row.Record); err != nil {
			return m, unavailable("sql backfill stable id", err)
		}
	}
	return m, nil
}

// Put implements Store.
func (s *SQLStore) Put(ctx context.Context, key Key, m marker.Marker) error {
	if m == nil {
		return ErrInvalidInput
	}
	rec, err := encodeRecord(m.Record())
	if err != nil {
		return ErrInvalidInput
	}

	err = s.pool.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.upsertMarker(tx, s.fingerprint(key.Document), key.Action, rec); err != nil {
			return err
		}
		if key.StableID != "" {
			return s.upsertStableID(tx, key.StableID, rec)
		}
		return nil
	})
	if errors.Is(err, database.ErrPoolClosed) {
		return ErrStoreClosed
	}
	if err != nil {
		return unavailable("sql put", err)
	}
	return nil
}

// Remove implements Store.
func (s *SQLStore) Remove(ctx context.Context, key Key, m marker.Marker) (bool, error) {
	db, err := s.db(ctx)
	if err != nil {
		return false, err
	}

	removed := false
	if m != nil {
		rec, err := encodeRecord(m.Record())
		if err != nil {
			return false, ErrInvalidInput
		}
		res := db.Where("fingerprint = ? AND action = ? AND record = ?", s.fingerprint(key.Document), key.Action, rec).
			Delete(&markerRow{})
		if res.Error != nil {
			return false, unavailable("sql guarded remove", res.Error)
		}
		removed = res.RowsAffected > 0
	}

	if key.StableID != "" {
		if err := db.Where("stable_id = ?", key.StableID).Delete(&stableIDRow{}).Error; err != nil {
			return removed, unavailable("sql delete stable id", err)
		}
	}
	return removed, nil
}

// Reset implements Store.
func (s *SQLStore) Reset(ctx context.Context) error {
	err := s.pool.WithTransaction(ctx, func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		if err := all.Delete(&markerRow{}).Error; err != nil {
			return err
		}
		return all.Delete(&stableIDRow{}).Error
	})
	if err != nil {
		return unavailable("sql reset", err)
	}
	return nil
}

// Export implements Store.
func (s *SQLStore) Export(ctx context.Context) (*Snapshot, error) {
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	var rows []markerRow
	if err := db.Order("fingerprint, action").Find(&rows).Error; err != nil {
		return nil, unavailable("sql export", err)
	}
	var ids []stableIDRow
	if err := db.Order("stable_id").Find(&ids).Error; err != nil {
		return nil, unavailable("sql export", err)
	}

	snap := NewSnapshot()
	for _, row := range rows {
		var rec marker.Record
		if err := json.Unmarshal([]byte(row.Record), &rec); err != nil {
			s.logger.Warn("skipping undecodable record", zap.String("fingerprint", row.Fingerprint), zap.Error(err))
			continue
		}
		snap.Set(row.Fingerprint, row.Action, rec)
	}
	for _, row := range ids {
		var rec marker.Record
		if err := json.Unmarshal([]byte(row.Record), &rec); err != nil {
			continue
		}
		snap.StableIDIndex[row.StableID] = rec
	}
	return snap, nil
}

// Import implements Store.
func (s *SQLStore) Import(ctx context.Context, snap *Snapshot) error {
	if snap == nil {
		return ErrInvalidInput
	}
	err := s.pool.WithTransactionRetry(ctx, 3, func(tx *gorm.DB) error {
		for fp, actions := range snap.Entries {
			for action, rec := range actions {
				data, err := encodeRecord(rec)
				if err != nil {
					return err
				}
				if err := s.upsertMarker(tx, fp, action, data); err != nil {
					return err
				}
			}
		}
		for id, rec := range snap.StableIDIndex {
			data, err := encodeRecord(rec)
			if err != nil {
				return err
			}
			if err := s.upsertStableID(tx, id, data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return unavailable("sql import", err)
	}
	return nil
}

// Ping implements Store.
func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		if errors.Is(err, database.ErrPoolClosed) {
			return ErrStoreClosed
		}
		return err
	}
	return nil
}

// Close implements Store.
func (s *SQLStore) Close() error {
	return s.pool.Close()
}

func (s *SQLStore) upsertMarker(tx *gorm.DB, fp, action, rec string) error {
	row := markerRow{Fingerprint: fp, Action: action, Record: rec, UpdatedAt: time.Now().UTC()}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "fingerprint"}, {Name: "action"}},
		DoUpdates: clause.AssignmentColumns([]string{"record", "updated_at"}),
	}).Create(&row).Error
}

func (s *SQLStore) upsertStableID(tx *gorm.DB, id, rec string) error {
	row := stableIDRow{StableID: id, Record: rec, UpdatedAt: time.Now().UTC()}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stable_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"record", "updated_at"}),
	}).Create(&row).Error
}
