// Package repomanager vends repository implementations bound to a DBTX and
// applies the embedded goose migrations for the active SQL dialect.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/bmd/internal/dbx"
	"github.com/dmitrijs2005/bmd/internal/server/migrations"
	"github.com/dmitrijs2005/bmd/internal/server/repositories/users"
	"github.com/dmitrijs2005/bmd/internal/server/repositories/workflows"
	"github.com/pressly/goose/v3"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Workflows(db dbx.DBTX) workflows.Repository
}

// SQLRepositoryManager serves both PostgreSQL and SQLite; only the migration
// directory differs between them.
type SQLRepositoryManager struct {
	dialect dbx.Dialect
}

func NewSQLRepositoryManager(dialect dbx.Dialect) (*SQLRepositoryManager, error) {
	switch dialect {
	case dbx.DialectPostgres, dbx.DialectSQLite:
		return &SQLRepositoryManager{dialect: dialect}, nil
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}
}

func (m *SQLRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLRepository(db)
}

func (m *SQLRepositoryManager) Workflows(db dbx.DBTX) workflows.Repository {
	return workflows.NewSQLRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

func (m *SQLRepositoryManager) migrationDir() string {
	if m.dialect == dbx.DialectPostgres {
		return "postgres"
	}
	return "sqlite"
}

// RunMigrations applies every pending embedded migration for the manager's dialect.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(string(m.dialect)); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, m.migrationDir()); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
