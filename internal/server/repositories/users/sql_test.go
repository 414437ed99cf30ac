package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/bmd/internal/common"
	"github.com/dmitrijs2005/bmd/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

func newRepoWithMock(t *testing.T) (*SQLRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewSQLRepository(db), mock, db
}

func strPtr(s string) *string { return &s }

var userRowColumns = []string{"user_id", "email", "password_hash", "name", "orcid", "created_at", "updated_at"}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	q := `(?s)^INSERT\s+INTO\s+users\s*\(user_id,\s*email,\s*password_hash,\s*name,\s*orcid,\s*created_at,\s*updated_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6,\s*\$7\)$`

	mock.ExpectExec(q).
		WithArgs("u-1", "alice@example.org", "hash", "Alice", nil, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	u := &models.User{ID: "u-1", Email: "alice@example.org", PasswordHash: "hash", Name: "Alice", CreatedAt: now, UpdatedAt: now}
	if err := repo.Create(context.Background(), u); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestCreate_DuplicateEmail(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), &models.User{ID: "u-1", Email: "a@b.c"})
	if !errors.Is(err, common.ErrEmailTaken) {
		t.Fatalf("want ErrEmailTaken, got %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), &models.User{ID: "u-1"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByEmail_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	q := `(?s)^SELECT\s+user_id,\s*email,\s*password_hash,\s*name,\s*orcid,\s*created_at,\s*updated_at\s+FROM\s+users\s+WHERE\s+email\s*=\s*\$1$`

	rows := sqlmock.NewRows(userRowColumns).
		AddRow("u-1", "alice@example.org", "hash", "Alice", "0000-0002-1825-0097", now, now)
	mock.ExpectQuery(q).WithArgs("alice@example.org").WillReturnRows(rows)

	got, err := repo.GetByEmail(context.Background(), "alice@example.org")
	if err != nil {
		t.Fatalf("GetByEmail error: %v", err)
	}
	if got.ID != "u-1" || got.Name != "Alice" || got.ORCID == nil || *got.ORCID != "0000-0002-1825-0097" {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestGetByID_NullORCID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows(userRowColumns).AddRow("u-1", "a@b.c", "hash", "A", nil, now, now)
	mock.ExpectQuery(`WHERE\s+user_id\s*=\s*\$1`).WithArgs("u-1").WillReturnRows(rows)

	got, err := repo.GetByID(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if got.ORCID != nil {
		t.Fatalf("expected nil ORCID, got %q", *got.ORCID)
	}
}

func TestGetByEmail_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+users`).WithArgs("ghost@example.org").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "ghost@example.org")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestEmailExists(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+1\s+FROM\s+users\s+WHERE\s+email\s*=\s*\$1\s+AND\s+user_id\s*<>\s*\$2$`

	mock.ExpectQuery(q).WithArgs("taken@example.org", "u-1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery(q).WithArgs("free@example.org", "").
		WillReturnError(sql.ErrNoRows)

	exists, err := repo.EmailExists(context.Background(), "taken@example.org", "u-1")
	if err != nil || !exists {
		t.Fatalf("want exists=true, got %v, %v", exists, err)
	}

	exists, err = repo.EmailExists(context.Background(), "free@example.org", "")
	if err != nil || exists {
		t.Fatalf("want exists=false, got %v, %v", exists, err)
	}
}

func TestUpdate_BuildsOnlyRequestedColumns(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	q := `(?s)^UPDATE\s+users\s+SET\s+updated_at\s*=\s*\$1,\s*name\s*=\s*\$2,\s*orcid\s*=\s*\$3\s+WHERE\s+user_id\s*=\s*\$4$`

	mock.ExpectExec(q).WithArgs(now, "Bob", nil, "u-1").WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), "u-1", models.UserUpdate{Name: strPtr("Bob"), ORCID: strPtr("")}, now)
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestUpdate_PasswordOnly(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	q := `(?s)^UPDATE\s+users\s+SET\s+updated_at\s*=\s*\$1,\s*password_hash\s*=\s*\$2\s+WHERE\s+user_id\s*=\s*\$3$`
	mock.ExpectExec(q).WithArgs(now, "new-hash", "u-1").WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Update(context.Background(), "u-1", models.UserUpdate{PasswordHash: strPtr("new-hash")}, now); err != nil {
		t.Fatalf("Update error: %v", err)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+users`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), "ghost", models.UserUpdate{Name: strPtr("x")}, time.Now())
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^DELETE\s+FROM\s+users\s+WHERE\s+user_id\s*=\s*\$1$`
	mock.ExpectExec(q).WithArgs("u-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("u-2").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), "u-1"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if err := repo.Delete(context.Background(), "u-2"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}
