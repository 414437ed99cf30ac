package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/bmd/internal/dbx"
	"github.com/dmitrijs2005/bmd/internal/logging"
	"github.com/dmitrijs2005/bmd/internal/server/config"
	"github.com/dmitrijs2005/bmd/internal/server/models"
	"github.com/dmitrijs2005/bmd/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/bmd/internal/server/workflowapi"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// newTestDB opens a migrated SQLite database in a temp dir.
func newTestDB(t *testing.T) (*sql.DB, repomanager.RepositoryManager) {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "bmd.db") + "?_pragma=foreign_keys(1)"
	db, dialect, err := dbx.Open(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	m, err := repomanager.NewSQLRepositoryManager(dialect)
	require.NoError(t, err)
	require.NoError(t, m.RunMigrations(context.Background(), db))

	return db, m
}

func newTestUserService(t *testing.T, db *sql.DB, m repomanager.RepositoryManager) *UserService {
	t.Helper()
	cfg := &config.Config{SecretKey: "test-secret", AccessTokenTTL: time.Hour}
	return NewUserService(db, m, cfg, logging.Nop())
}

type mockSubmitter struct {
	mock.Mock
}

func (m *mockSubmitter) Submit(ctx context.Context, s workflowapi.Submission) (models.SubmitReceipt, error) {
	args := m.Called(ctx, s)
	return args.Get(0).(models.SubmitReceipt), args.Error(1)
}

type fakeArchive struct {
	puts   map[string][]byte
	putErr error
}

func (f *fakeArchive) Put(ctx context.Context, userID, workflowID string, data []byte) error {
	if f.putErr != nil {
		return f.putErr
	}
	if f.puts == nil {
		f.puts = map[string][]byte{}
	}
	f.puts[userID+"/"+workflowID] = data
	return nil
}

func (f *fakeArchive) PresignGet(ctx context.Context, userID, workflowID string) (string, error) {
	return "https://s3.test/" + userID + "/" + workflowID, nil
}

func signup(t *testing.T, us *UserService, email string) string {
	t.Helper()
	res, err := us.Signup(context.Background(), SignupRequest{Email: email, Password: "secret1", Name: "Test User"})
	require.NoError(t, err)
	return res.UserID
}

func validSubmission() models.WorkflowSubmission {
	return models.WorkflowSubmission{
		Name:          "Lynx survey",
		Description:   "alpine",
		SpeciesName:   "Lynx lynx",
		EcosystemType: "terrestrial",
		GeometryType:  "polygon",
		GeometryWKT:   "POLYGON ((10 47, 11 47, 11 48, 10 47))",
		Parameters: models.WorkflowParameters{
			TimePeriod:     "1981-2010;2041-2070",
			DirectiveTypes: []string{"invasive_species"},
		},
	}
}
