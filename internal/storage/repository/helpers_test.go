package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/silver-circles/internal/migrations"
	"github.com/magabrotheeeer/silver-circles/internal/models"
)

// setupTestDatabase поднимает PostgreSQL в контейнере и применяет миграции.
func setupTestDatabase(t *testing.T) (*Storage, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err, "failed to start container")

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(ctx, connStr)
	require.NoError(t, err)

	migrationsPath, err := filepath.Abs("../../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, migrationsPath))

	cleanup := func() {
		_ = storage.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}
	return storage, cleanup
}

// TestDataFactory создаёт тестовые записи через публичные методы хранилища.
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создаёт фабрику тестовых данных.
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateUser создаёт неподтверждённого пользователя.
func (f *TestDataFactory) CreateUser(t *testing.T, username string) *models.User {
	u, err := f.storage.CreateUser(context.Background(), models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hashedpassword",
		FullName:     "Test " + username,
	})
	require.NoError(t, err)
	return u
}

// CreateGroup создаёт группу указанного уровня.
func (f *TestDataFactory) CreateGroup(t *testing.T, name string, premium bool) *models.Group {
	g, err := f.storage.CreateGroup(context.Background(), models.Group{
		Name:        name,
		Description: name + " description",
		IsPremium:   premium,
	})
	require.NoError(t, err)
	return g
}

// CreateForum создаёт форум указанного уровня.
func (f *TestDataFactory) CreateForum(t *testing.T, title string, premium bool) *models.Forum {
	forum, err := f.storage.CreateForum(context.Background(), models.Forum{
		Title:       title,
		Description: title + " description",
		IsPremium:   premium,
	})
	require.NoError(t, err)
	return forum
}
