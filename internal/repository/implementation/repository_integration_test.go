package implementation

import (
	"context"
	"log"
	"os"
	"testing"

	"knowledge-base-be/internal/entity"
	"knowledge-base-be/internal/model"
	"knowledge-base-be/internal/repository/specification"
	"knowledge-base-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	if err := godotenv.Load("../../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}
	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Document{}, &model.IngestionTask{}))
	return db
}

func TestDocumentDedupeByFingerprint(t *testing.T) {
	db := testDB(t)
	repo := NewDocumentRepository(db)
	ctx := context.Background()

	fp := uuid.NewString() // unique per test run

	first := &entity.Document{
		Id:          uuid.New(),
		Fingerprint: fp,
		Filename:    "report.pdf",
		Status:      entity.DocumentStatusQueued,
		UploaderId:  uuid.New(),
	}
	created, _, err := repo.CreateIfAbsent(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)
	defer db.Unscoped().Delete(&model.Document{}, first.Id)

	// Same fingerprint, different filename: must not create a second row.
	duplicate := &entity.Document{
		Id:          uuid.New(),
		Fingerprint: fp,
		Filename:    "report-copy.pdf",
		Status:      entity.DocumentStatusQueued,
		UploaderId:  uuid.New(),
	}
	created, existing, err := repo.CreateIfAbsent(ctx, duplicate)
	require.NoError(t, err)
	assert.False(t, created)
	require.NotNil(t, existing)
	assert.Equal(t, first.Id, existing.Id)
	assert.Equal(t, "report.pdf", existing.Filename)
}

func TestDeletedFingerprintCanBeReused(t *testing.T) {
	db := testDB(t)
	repo := NewDocumentRepository(db)
	ctx := context.Background()

	fp := uuid.NewString()

	doc := &entity.Document{
		Id:          uuid.New(),
		Fingerprint: fp,
		Filename:    "old.txt",
		Status:      entity.DocumentStatusReady,
		UploaderId:  uuid.New(),
	}
	created, _, err := repo.CreateIfAbsent(ctx, doc)
	require.NoError(t, err)
	require.True(t, created)
	defer db.Unscoped().Delete(&model.Document{}, doc.Id)

	require.NoError(t, repo.Delete(ctx, doc.Id))

	// The partial unique index only covers live rows, so re-uploading the
	// content after deletion creates a fresh document.
	again := &entity.Document{
		Id:          uuid.New(),
		Fingerprint: fp,
		Filename:    "new.txt",
		Status:      entity.DocumentStatusQueued,
		UploaderId:  uuid.New(),
	}
	created, _, err = repo.CreateIfAbsent(ctx, again)
	require.NoError(t, err)
	assert.True(t, created)
	defer db.Unscoped().Delete(&model.Document{}, again.Id)
}

func TestIngestionTaskLifecycle(t *testing.T) {
	db := testDB(t)
	repo := NewIngestionTaskRepository(db)
	ctx := context.Background()

	task := &entity.IngestionTask{
		Id:         uuid.New(),
		DocumentId: uuid.New(),
		Priority:   entity.TaskPriorityDefault,
		Status:     entity.TaskStatusQueued,
		MaxRetries: 3,
	}
	require.NoError(t, repo.Create(ctx, task))
	defer db.Unscoped().Delete(&model.IngestionTask{}, task.Id)

	claimed, err := repo.MarkProcessing(ctx, task.Id)
	require.NoError(t, err)
	assert.True(t, claimed)

	// A crashed-worker redelivery may re-claim a processing task.
	claimed, err = repo.MarkProcessing(ctx, task.Id)
	require.NoError(t, err)
	assert.True(t, claimed)

	count, err := repo.IncrementRetry(ctx, task.Id, "embed timeout")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, repo.MarkFailed(ctx, task.Id, "retry budget exhausted"))

	// Terminal tasks cannot be resurrected by a late delivery.
	claimed, err = repo.MarkProcessing(ctx, task.Id)
	require.NoError(t, err)
	assert.False(t, claimed)

	stored, err := repo.FindOne(ctx, specification.ByID{ID: task.Id})
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, entity.TaskStatusFailed, stored.Status)
	assert.Equal(t, "retry budget exhausted", stored.LastError)
}
