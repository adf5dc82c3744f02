// Package testhelpers provides a real PostgreSQL database for integration
// tests. Tests are skipped unless TEST_DATABASE_URL is set.
package testhelpers

import (
	"context"
	"os"
	"testing"
	"time"

	"talentdesk/internal/models"
	"talentdesk/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// TestDB holds the database connection for testing
type TestDB struct {
	Pool *pgxpool.Pool
}

// SetupTestDB connects to TEST_DATABASE_URL, applies the schema and empties
// every table. The pool is closed when the test finishes.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := database.NewPool(ctx, dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := database.Migrate(ctx, pool); err != nil {
		t.Fatalf("Failed to apply schema: %v", err)
	}
	_, err = pool.Exec(ctx, `TRUNCATE application_note_edits, application_notes, application_logs, applications,
		guest_applications, jobs, identities, tenants CASCADE`)
	if err != nil {
		t.Fatalf("Failed to reset test database: %v", err)
	}

	return &TestDB{Pool: pool}
}

// SetupTestTenant inserts an active tenant with the given identity cap.
func SetupTestTenant(t *testing.T, db *TestDB, maxIdentities int) *models.Tenant {
	t.Helper()

	tenant := &models.Tenant{
		ID:            uuid.New(),
		Name:          "Test Tenant",
		Subdomain:     "test-" + uuid.NewString()[:8],
		MaxIdentities: maxIdentities,
		IsActive:      true,
	}
	_, err := db.Pool.Exec(context.Background(),
		`INSERT INTO tenants (id, name, subdomain, max_identities, is_active) VALUES ($1, $2, $3, $4, $5)`,
		tenant.ID, tenant.Name, tenant.Subdomain, tenant.MaxIdentities, tenant.IsActive)
	if err != nil {
		t.Fatalf("Failed to create test tenant: %v", err)
	}
	return tenant
}

// TenantCounter reads the stored identity counter of a tenant.
func TenantCounter(t *testing.T, db *TestDB, tenantID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.Pool.QueryRow(context.Background(),
		`SELECT current_identity_count FROM tenants WHERE id = $1`, tenantID).Scan(&count)
	if err != nil {
		t.Fatalf("Failed to read tenant counter: %v", err)
	}
	return count
}
