package repository

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/welldanyogia/webrana-chat-backend/internal/database"
	"github.com/welldanyogia/webrana-chat-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestDB opens a migrated sqlite database in a temp directory
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.ConnectWithLogger(database.DriverSQLite, filepath.Join(t.TempDir(), "test.db"), logger.Default.LogMode(logger.Silent))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func cleanTables(db *gorm.DB) {
	db.Exec("DELETE FROM messages")
	db.Exec("DELETE FROM attachments")
	db.Exec("DELETE FROM users")
}

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, PasswordHash: "hash"}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createAttachment(t *testing.T, db *gorm.DB, ownerID uint, storagePath string) *models.Attachment {
	t.Helper()
	att := &models.Attachment{
		OwnerID:     ownerID,
		DisplayName: "file" + filepath.Ext(storagePath),
		StoragePath: storagePath,
		SizeBytes:   10,
		MimeType:    "text/plain",
		ContentHash: "deadbeef",
	}
	require.NoError(t, db.Omit("Owner").Create(att).Error)
	return att
}
