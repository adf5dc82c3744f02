package services

import (
	"context"
	"errors"
	"testing"

	"talentdesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestIntegrityService_Scan(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	repo := new(MockIntegrityRepository)
	repo.On("FindViolations", mock.Anything).Return([]models.IntegrityViolation{
		{Kind: models.ViolationCounterMismatch, EntityID: "t-1", Detail: "counter 3, active 2"},
		{Kind: models.ViolationOrphanGuest, EntityID: "g-1", Detail: "no application"},
	}, nil).Once()

	violations, err := NewIntegrityService(repo, zap.New(core)).Scan(context.Background())

	require.NoError(t, err)
	assert.Len(t, violations, 2)
	entries := logs.FilterMessage("data integrity violation").All()
	require.Len(t, entries, 2)
	assert.Equal(t, models.ViolationCounterMismatch, entries[0].ContextMap()["violation"])
}

func TestIntegrityService_ScanError(t *testing.T) {
	repo := new(MockIntegrityRepository)
	repo.On("FindViolations", mock.Anything).Return(nil, errors.New("statement timeout"))

	_, err := NewIntegrityService(repo, zap.NewNop()).Scan(context.Background())

	assert.Error(t, err)
}
