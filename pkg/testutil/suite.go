package testutil

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/boxscan/scan-service/migrations"
	"github.com/boxscan/scan-service/pkg/database"
	"github.com/boxscan/scan-service/pkg/logger"
	"github.com/jmoiron/sqlx"
)

const (
	// ScanSchema is the schema integration tests migrate into
	ScanSchema = "scan"

	// OwnedSchema is migrated by the owner role, which owns its tables
	OwnedSchema = "scan_owned"

	appRole       = "scan_app"
	appPassword   = "scan_app"
	ownerRole     = "scan_owner"
	ownerPassword = "scan_owner"
)

var (
	// Global test container (shared across all integration tests)
	globalContainer *PostgresContainer
	globalDB        *sqlx.DB
	containerOnce   sync.Once
	containerErr    error
)

// IntegrationSuite provides a base for integration tests with real PostgreSQL
type IntegrationSuite struct {
	Container *PostgresContainer
	AdminDB   *sqlx.DB
	// DB connects as a non-superuser, so row level security applies
	DB *database.DB
	// OwnerDB connects as the role that ran the migrations, as with auto_migrate
	OwnerDB *database.DB
	Logger  *logger.Logger
}

// NewIntegrationSuite creates a new integration test suite.
// Call this in TestMain to set up shared test infrastructure.
//
// Usage:
//
//	var suite *testutil.IntegrationSuite
//
//	func TestMain(m *testing.M) {
//	    ctx := context.Background()
//	    var err error
//	    suite, err = testutil.NewIntegrationSuite(ctx)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    code := m.Run()
//	    testutil.TerminateContainer(ctx)
//	    os.Exit(code)
//	}
func NewIntegrationSuite(ctx context.Context) (*IntegrationSuite, error) {
	container, admin, err := getOrCreateContainer(ctx)
	if err != nil {
		return nil, err
	}

	if err := migrations.Apply(ctx, admin, ScanSchema); err != nil {
		return nil, err
	}
	if err := container.CreateAppRole(ctx, admin, appRole, appPassword, ScanSchema); err != nil {
		return nil, err
	}

	appDB, err := container.ConnectAs(ctx, appRole, appPassword)
	if err != nil {
		return nil, err
	}

	if err := container.CreateOwnerRole(ctx, admin, ownerRole, ownerPassword); err != nil {
		return nil, err
	}
	ownerDB, err := container.ConnectAs(ctx, ownerRole, ownerPassword)
	if err != nil {
		return nil, err
	}
	if err := migrations.Apply(ctx, ownerDB, OwnedSchema); err != nil {
		return nil, err
	}

	log := logger.Nop()
	return &IntegrationSuite{
		Container: container,
		AdminDB:   admin,
		DB:        database.Wrap(appDB, ScanSchema+", public", log),
		OwnerDB:   database.Wrap(ownerDB, OwnedSchema+", public", log),
		Logger:    log,
	}, nil
}

// getOrCreateContainer returns the shared test container
func getOrCreateContainer(ctx context.Context) (*PostgresContainer, *sqlx.DB, error) {
	containerOnce.Do(func() {
		globalContainer, containerErr = NewPostgresContainer(ctx, DefaultPostgresConfig())
		if containerErr != nil {
			return
		}
		globalDB, containerErr = globalContainer.Connect(ctx)
	})

	return globalContainer, globalDB, containerErr
}

// Cleanup closes the suite's connections
func (s *IntegrationSuite) Cleanup() error {
	if err := s.OwnerDB.Close(); err != nil {
		return err
	}
	return s.DB.Close()
}

// TerminateContainer terminates the shared container.
// Only call this in TestMain after all tests have completed.
func TerminateContainer(ctx context.Context) {
	if globalContainer != nil {
		globalContainer.Terminate(ctx)
	}
}

// UnitTestSuite provides a base for unit tests with mocked dependencies
type UnitTestSuite struct {
	MockDB *MockDB
	DB     *database.DB
	t      *testing.T
}

// NewUnitTestSuite creates a new unit test suite whose DB is backed by sqlmock
func NewUnitTestSuite(t *testing.T, searchPath string) *UnitTestSuite {
	mockDB := NewMockDB(t)
	return &UnitTestSuite{
		MockDB: mockDB,
		DB:     database.Wrap(mockDB.DB, searchPath, logger.Nop()),
		t:      t,
	}
}

// Cleanup verifies expectations and cleans up
func (s *UnitTestSuite) Cleanup() {
	s.MockDB.ExpectationsWereMet(s.t)
	s.MockDB.Close()
}

// GetEnvOrDefault returns environment variable or default value
func GetEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// IsCI returns true if running in CI environment
func IsCI() bool {
	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL"}
	for _, v := range ciVars {
		if os.Getenv(v) != "" {
			return true
		}
	}
	return false
}
