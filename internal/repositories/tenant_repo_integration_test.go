package repositories

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"talentdesk/internal/common"
	"talentdesk/internal/models"
	"talentdesk/testhelpers"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserveIdentitySlot_PostgresRacers(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	tenant := testhelpers.SetupTestTenant(t, db, 5)
	repo := NewTenantRepo(db.Pool)

	const racers = 40
	var granted, refused atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.ReserveIdentitySlot(context.Background(), tenant.ID)
			switch {
			case err == nil:
				granted.Add(1)
			case errors.Is(err, common.ErrQuotaExceeded):
				refused.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(5), granted.Load())
	assert.Equal(t, int32(racers-5), refused.Load())
	assert.Equal(t, 5, testhelpers.TenantCounter(t, db, tenant.ID))

	for i := 0; i < 7; i++ {
		_, _, err := repo.ReleaseIdentitySlot(context.Background(), tenant.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, 0, testhelpers.TenantCounter(t, db, tenant.ID))
}

func TestReserveApplicationSlot_PostgresRacers(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	tenant := testhelpers.SetupTestTenant(t, db, 5)
	repo := NewJobRepo(db.Pool)

	const racers, slots = 30, 4
	limit := slots
	job := &models.Job{
		ID:              uuid.New(),
		TenantID:        tenant.ID,
		Title:           "Platform Engineer",
		Status:          models.JobStatusPublished,
		MaxApplications: &limit,
		CreatedBy:       uuid.New(),
	}
	require.NoError(t, repo.Create(context.Background(), job))

	var granted, refused atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.ReserveApplicationSlot(context.Background(), job.ID)
			switch {
			case err == nil:
				granted.Add(1)
			case errors.Is(err, common.ErrJobUnavailable):
				refused.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(slots), granted.Load())
	assert.Equal(t, int32(racers-slots), refused.Load())

	stored, err := repo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, slots, stored.ApplicationCount)
}

func TestReserveAndInsertCommitTogether_Postgres(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	tenant := testhelpers.SetupTestTenant(t, db, 3)
	tx := NewTxManager(db.Pool)
	tenants := NewTenantRepo(db.Pool)
	identities := NewIdentityRepo(db.Pool)
	integrity := NewIntegrityRepo(db.Pool)
	ctx := context.Background()

	mismatches := func() int {
		violations, err := integrity.FindViolations(ctx)
		require.NoError(t, err)
		n := 0
		for _, v := range violations {
			if v.Kind == models.ViolationCounterMismatch && v.EntityID == tenant.ID.String() {
				n++
			}
		}
		return n
	}

	provision := func(email string, fail error) error {
		return tx.WithinTx(ctx, func(ctx context.Context) error {
			if _, err := tenants.ReserveIdentitySlot(ctx, tenant.ID); err != nil {
				return err
			}
			identity := &models.Identity{
				ID: uuid.New(), TenantID: &tenant.ID, Role: common.RoleEmployee,
				Email: email, PasswordHash: "x", IsActive: true,
			}
			if err := identities.Create(ctx, identity); err != nil {
				return err
			}
			// A scan from outside the transaction sees neither write yet.
			assert.Zero(t, mismatches())
			return fail
		})
	}

	require.NoError(t, provision("kept@acme.io", nil))
	assert.Equal(t, 1, testhelpers.TenantCounter(t, db, tenant.ID))

	boom := errors.New("insert aborted")
	require.ErrorIs(t, provision("dropped@acme.io", boom), boom)
	assert.Equal(t, 1, testhelpers.TenantCounter(t, db, tenant.ID))
	assert.Zero(t, mismatches())
}
