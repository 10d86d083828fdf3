package services

import (
	"context"
	"testing"

	"github.com/krshsl/praxis/feedback/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSeedDatabase(t *testing.T) {
	store := newMemoryStore()
	catalog, err := DefaultTechCatalog()
	require.NoError(t, err)
	seeder := NewDatabaseSeeder(store, catalog)
	ctx := context.Background()

	require.NoError(t, seeder.SeedDatabase(ctx))

	demo, err := store.GetUserByEmail(ctx, demoEmail)
	require.NoError(t, err)
	require.NotNil(t, demo)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(demo.Password), []byte("password")))

	interviews, total, err := store.ListInterviews(ctx, repository.InterviewQuery{OwnerID: demo.ID})
	require.NoError(t, err)
	assert.EqualValues(t, len(sampleInterviews), total)
	for _, i := range interviews {
		assert.True(t, i.Finalized)
		if i.Role == "Backend Engineer" {
			assert.Equal(t, []string{"go", "postgresql", "docker", "kubernetes"}, []string(i.TechStack))
		}
	}

	// a second run adds nothing
	require.NoError(t, seeder.SeedDatabase(ctx))
	_, total, err = store.ListInterviews(ctx, repository.InterviewQuery{OwnerID: demo.ID})
	require.NoError(t, err)
	assert.EqualValues(t, len(sampleInterviews), total)

	test, err := store.GetUserByEmail(ctx, "test@example.com")
	require.NoError(t, err)
	assert.NotNil(t, test)
}
