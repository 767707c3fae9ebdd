package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/arkade-os/subsign/internal/core/domain"
	"github.com/arkade-os/subsign/internal/core/ports"
	badgerdb "github.com/arkade-os/subsign/internal/infrastructure/db/badger"
	pgdb "github.com/arkade-os/subsign/internal/infrastructure/db/postgres"
	sqlitedb "github.com/arkade-os/subsign/internal/infrastructure/db/sqlite"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sqlite/migration/*
var migrations embed.FS

//go:embed postgres/migration/*
var pgMigration embed.FS

var (
	txStoreTypes = map[string]func(...interface{}) (domain.TransactionRepository, error){
		"badger":   badgerdb.NewTransactionRepository,
		"sqlite":   sqlitedb.NewTransactionRepository,
		"postgres": pgdb.NewTransactionRepository,
	}
)

const (
	sqliteDbFile = "sqlite.db"
)

type ServiceConfig struct {
	DataStoreType   string
	DataStoreConfig []interface{}
}

type service struct {
	txStore domain.TransactionRepository
}

func NewService(config ServiceConfig) (ports.RepoManager, error) {
	txStoreFactory, ok := txStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid data store type: %s", config.DataStoreType)
	}

	var txStore domain.TransactionRepository
	var err error
	switch config.DataStoreType {
	case "badger":
		txStore, err = txStoreFactory(config.DataStoreConfig...)
		if err != nil {
			return nil, fmt.Errorf("failed to open transaction store: %s", err)
		}
	case "sqlite":
		if len(config.DataStoreConfig) != 1 {
			return nil, fmt.Errorf("invalid data store config")
		}
		baseDir, ok := config.DataStoreConfig[0].(string)
		if !ok {
			return nil, fmt.Errorf("invalid base directory")
		}

		db, err := sqlitedb.OpenDb(filepath.Join(baseDir, sqliteDbFile))
		if err != nil {
			return nil, fmt.Errorf("failed to open db: %s", err)
		}
		driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to init driver: %s", err)
		}
		if err := migrateUp(db, driver, migrations, "sqlite/migration", "subsigndb"); err != nil {
			return nil, err
		}

		txStore, err = txStoreFactory(db)
		if err != nil {
			return nil, fmt.Errorf("failed to open transaction store: %s", err)
		}
	case "postgres":
		if len(config.DataStoreConfig) != 2 {
			return nil, fmt.Errorf("invalid data store config for postgres")
		}
		dsn, ok := config.DataStoreConfig[0].(string)
		if !ok {
			return nil, fmt.Errorf("invalid DSN for postgres")
		}
		autoCreate, ok := config.DataStoreConfig[1].(bool)
		if !ok {
			return nil, fmt.Errorf("invalid autocreate flag for postgres")
		}

		db, err := pgdb.OpenDb(dsn, autoCreate)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres db: %s", err)
		}
		pgDriver, err := migratepg.WithInstance(db, &migratepg.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to init postgres migration driver: %s", err)
		}
		if err := migrateUp(db, pgDriver, pgMigration, "postgres/migration", "postgres"); err != nil {
			return nil, err
		}

		txStore, err = txStoreFactory(db)
		if err != nil {
			return nil, fmt.Errorf("failed to open transaction store: %s", err)
		}
	}

	return &service{txStore}, nil
}

func (s *service) Transactions() domain.TransactionRepository {
	return s.txStore
}

func (s *service) Close() {
	s.txStore.Close()
}

// migrateUp applies the embedded migrations in dir. The db is closed if
// anything fails.
func migrateUp(
	db *sql.DB, driver database.Driver, fs embed.FS, dir, dbName string,
) (err error) {
	defer func() {
		if err != nil {
			// nolint:all
			db.Close()
		}
	}()

	source, err := iofs.New(fs, dir)
	if err != nil {
		return fmt.Errorf("failed to embed migrations: %s", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, dbName, driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %s", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %s", err)
	}
	return nil
}
