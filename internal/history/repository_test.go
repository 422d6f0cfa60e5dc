package history

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/thirdop-reasoning-server/internal/database"
	"github.com/thirdop-reasoning-server/internal/domain"
)

// generateTestPassword creates a secure random password for test databases
func generateTestPassword() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to a default test password if random generation fails
		return "test_fallback_password_123"
	}
	return "test_" + hex.EncodeToString(bytes)
}

func setupTestDB(t *testing.T) (*database.DB, func()) {
	ctx := context.Background()

	testPassword := generateTestPassword()

	// Start PostgreSQL container
	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword(testPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}

	host, err := pgContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	config := domain.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		Database:        "testdb",
		Username:        "testuser",
		Password:        testPassword,
		SSLMode:         "disable",
		MaxConns:        10,
		MinConns:        2,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: time.Minute * 30,
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	db, err := database.NewConnection(ctx, config, logger)
	if err != nil {
		t.Fatalf("Failed to create database connection: %v", err)
	}

	// Run migrations
	databaseURL := "postgres://testuser:" + testPassword + "@" + host + ":" + port.Port() + "/testdb?sslmode=disable"
	migrationRunner, err := database.NewMigrationRunner(databaseURL, "../../migrations", logger)
	if err != nil {
		t.Fatalf("Failed to create migration runner: %v", err)
	}

	if err := migrationRunner.Up(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		migrationRunner.Close()
		db.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	}

	return db, cleanup
}

func testRecord(kind domain.ReportKind, failed bool) *domain.AnalysisRecord {
	input, _ := json.Marshal(map[string]interface{}{"eGFR": 42.0, "riskLevel": "HIGH"})
	result, _ := json.Marshal(map[string]interface{}{"concerns": []interface{}{}})

	record := &domain.AnalysisRecord{
		ID:         uuid.New(),
		Kind:       kind,
		RiskLevel:  "HIGH",
		Input:      input,
		Result:     result,
		Failed:     failed,
		Model:      "gemma:7b",
		DurationMS: 950,
	}
	if failed {
		record.Message = "Ollama request failed: connection refused"
	}
	return record
}

func TestRepository_CreateAndGetByID(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	repo := NewRepository(db.Pool, logger)

	record := testRecord(domain.KindNephrology, false)

	ctx := context.Background()
	if err := repo.Create(ctx, record); err != nil {
		t.Fatalf("Failed to create analysis record: %v", err)
	}

	retrieved, err := repo.GetByID(ctx, record.ID)
	if err != nil {
		t.Fatalf("Failed to retrieve analysis record: %v", err)
	}

	if retrieved.ID != record.ID {
		t.Errorf("Expected ID %s, got %s", record.ID, retrieved.ID)
	}
	if retrieved.Kind != domain.KindNephrology {
		t.Errorf("Expected kind %s, got %s", domain.KindNephrology, retrieved.Kind)
	}
	if retrieved.RiskLevel != "HIGH" {
		t.Errorf("Expected risk level HIGH, got %s", retrieved.RiskLevel)
	}
	if retrieved.Failed {
		t.Error("Expected a successful record")
	}
	if retrieved.CreatedAt.IsZero() {
		t.Error("Expected created_at to be populated")
	}
}

func TestRepository_GetByIDNotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	repo := NewRepository(db.Pool, logger)

	_, err := repo.GetByID(context.Background(), uuid.New())
	if err == nil {
		t.Fatal("Expected error for missing record, got nil")
	}
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestRepository_ListAndCountByKind(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	repo := NewRepository(db.Pool, logger)

	ctx := context.Background()
	records := []*domain.AnalysisRecord{
		testRecord(domain.KindNephrology, false),
		testRecord(domain.KindNephrology, true),
		testRecord(domain.KindAnyReport, false),
	}
	for _, record := range records {
		if err := repo.Create(ctx, record); err != nil {
			t.Fatalf("Failed to create analysis record: %v", err)
		}
	}

	listed, err := repo.List(ctx, 10, 0)
	if err != nil {
		t.Fatalf("Failed to list analysis records: %v", err)
	}
	if len(listed) != 3 {
		t.Errorf("Expected 3 records, got %d", len(listed))
	}

	count, err := repo.CountByKind(ctx, domain.KindNephrology)
	if err != nil {
		t.Fatalf("Failed to count analysis records: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 nephrology records, got %d", count)
	}

	// Pagination
	page, err := repo.List(ctx, 2, 2)
	if err != nil {
		t.Fatalf("Failed to list paginated records: %v", err)
	}
	if len(page) != 1 {
		t.Errorf("Expected 1 record on the second page, got %d", len(page))
	}
}

func TestRepository_Delete(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	repo := NewRepository(db.Pool, logger)

	record := testRecord(domain.KindAnyReport, false)

	ctx := context.Background()
	if err := repo.Create(ctx, record); err != nil {
		t.Fatalf("Failed to create analysis record: %v", err)
	}

	if err := repo.Delete(ctx, record.ID); err != nil {
		t.Fatalf("Failed to delete analysis record: %v", err)
	}

	if _, err := repo.GetByID(ctx, record.ID); err == nil {
		t.Error("Expected error when getting deleted record, got nil")
	}

	// Deleting again reports not found
	if err := repo.Delete(ctx, record.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on double delete, got %v", err)
	}
}
