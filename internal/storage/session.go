// Package storage persists miners, receipts, prompts and challenges in Postgres.
package storage

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/golang-migrate/migrate"
	_ "github.com/golang-migrate/migrate/database/postgres"
	_ "github.com/golang-migrate/migrate/source/file"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	"github.com/rs/zerolog/log"

	"github.com/chaininsights/validator/internal/config"
)

// ErrNotFound is returned when no row matches a lookup.
var ErrNotFound = errors.New("not found")

// Open connects to the database described by cfg.
func Open(cfg *config.DatabaseEnvConfig) (*gorm.DB, error) {
	db, err := gorm.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.DB().SetMaxOpenConns(cfg.MaxOpenConns)
		db.DB().SetMaxIdleConns(cfg.MaxOpenConns / 2)
	}
	db.LogMode(false)
	return db, nil
}

// RunMigrations applies every pending migration found in dir.
func RunMigrations(databaseURL, dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve migrations dir: %w", err)
	}

	m, err := migrate.New("file://"+abs, databaseURL)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info().Msg("database schema up to date")
			return nil
		}
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, _ := m.Version()
	log.Info().Uint("version", version).Bool("dirty", dirty).Msg("database migrated")
	return nil
}

func notFound(err error) error {
	if gorm.IsRecordNotFoundError(err) {
		return ErrNotFound
	}
	return err
}

// storeWithEviction serializes writers on (table, network) with an advisory
// lock, evicts the oldest rows until the backlog is below threshold and then
// runs insert, all in one transaction.
func storeWithEviction(db *gorm.DB, table, network string, threshold int, insert func(tx *gorm.DB) error) error {
	if threshold < 1 {
		threshold = 1
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", table+":"+network).Error; err != nil {
			return fmt.Errorf("lock %s/%s: %w", table, network, err)
		}

		var count int
		if err := tx.Table(table).Where("network = ?", network).Count(&count).Error; err != nil {
			return fmt.Errorf("count %s: %w", table, err)
		}

		for ; count >= threshold; count-- {
			res := tx.Exec(
				"DELETE FROM "+table+" WHERE id = (SELECT id FROM "+table+" WHERE network = ? ORDER BY created_at ASC, id ASC LIMIT 1)",
				network,
			)
			if res.Error != nil {
				return fmt.Errorf("evict oldest from %s: %w", table, res.Error)
			}
			log.Debug().Str("table", table).Str("network", network).Int("count", count).Msg("evicted oldest row")
		}

		return insert(tx)
	})
}
