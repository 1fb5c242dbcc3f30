// Package pgstore implements the provider contract over PostgreSQL for
// records, bcrypt-hashed local credentials for auth, and an S3-compatible
// object store for files.
package pgstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/splitsheet/splitsheet/internal/common"
	"github.com/splitsheet/splitsheet/internal/config"
	"github.com/splitsheet/splitsheet/internal/logging"
	"github.com/splitsheet/splitsheet/internal/provider"
	"github.com/splitsheet/splitsheet/internal/provider/pgstore/migrations"
)

// PostgresProvider bundles the relational capability clients.
type PostgresProvider struct {
	db      *sql.DB
	auth    *AuthClient
	data    *DataClient
	storage *S3Storage
	log     logging.Logger
}

var _ provider.Provider = (*PostgresProvider)(nil)

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// New opens the database, applies the embedded schema migrations and builds
// the capability clients.
func New(ctx context.Context, cfg *config.Config, log logging.Logger) (*PostgresProvider, error) {
	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", common.ErrProvider, err)
	}

	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	storage, err := NewS3Storage(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	data := NewDataClient(db)
	return &PostgresProvider{
		db:      db,
		auth:    NewAuthClient(db, data, []byte(cfg.SecretKey), cfg.AccessTokenValidityDuration),
		data:    data,
		storage: storage,
		log:     log,
	}, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("%w: set dialect: %v", common.ErrProvider, err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("%w: run migrations: %v", common.ErrProvider, err)
	}
	return nil
}

// Close releases the database handle.
func (p *PostgresProvider) Close() error {
	return p.db.Close()
}

func (p *PostgresProvider) Name() string              { return provider.NamePostgres }
func (p *PostgresProvider) Auth() provider.Auth       { return p.auth }
func (p *PostgresProvider) Data() provider.Data       { return p.data }
func (p *PostgresProvider) Storage() provider.Storage { return p.storage }
