// Package testutil holds database and fixture helpers shared by package tests.
package testutil

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync/atomic"
	"testing"

	"github.com/CUknot/grammable/database"
	"github.com/CUknot/grammable/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const Password = "secretPassword"

var userSeq atomic.Int64

// NewDB opens a migrated in-memory SQLite database that lives for the test
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is its own database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// CreateUser inserts a user with a unique email and the shared test password
func CreateUser(t testing.TB, db *gorm.DB) *models.User {
	t.Helper()

	user := &models.User{
		Email:    fmt.Sprintf("dummyEmail%d@gmail.com", userSeq.Add(1)),
		Password: Password,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateGram inserts a gram owned by owner, creating an owner when nil
func CreateGram(t testing.TB, db *gorm.DB, owner *models.User, message string) *models.Gram {
	t.Helper()

	if owner == nil {
		owner = CreateUser(t, db)
	}
	if message == "" {
		message = "hello"
	}

	gram := &models.Gram{
		Message: message,
		Picture: "fixture.png",
		UserID:  owner.ID,
	}
	require.NoError(t, db.Create(gram).Error)
	gram.User = *owner
	return gram
}

// PNG returns a small valid PNG image
func PNG(t testing.TB) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
