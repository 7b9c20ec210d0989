package main

import (
	"fmt"
	"testing"
	"time"

	"github.com/quillpost/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupSeedTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:seed-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return gdb
}

func TestSeedDemoDataIsIdempotent(t *testing.T) {
	gdb := setupSeedTestDB(t)
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	report, err := seedDemoData(gdb, now)
	require.NoError(t, err)
	assert.False(t, report.skipped)
	assert.Equal(t, len(demoUsers), report.users)
	assert.Equal(t, len(demoPosts), report.posts)
	assert.Equal(t, 3, report.comments)

	var welcome db.Post
	require.NoError(t, gdb.Where("slug = ?", "welcome-to-quillpost").First(&welcome).Error)
	assert.Equal(t, "Welcome To Quillpost", welcome.Title)

	var replies int64
	require.NoError(t, gdb.Model(&db.Comment{}).Where("parent_id IS NOT NULL").Count(&replies).Error)
	assert.EqualValues(t, 1, replies)

	again, err := seedDemoData(gdb, now)
	require.NoError(t, err)
	assert.True(t, again.skipped)

	var posts int64
	require.NoError(t, gdb.Model(&db.Post{}).Count(&posts).Error)
	assert.EqualValues(t, len(demoPosts), posts)
}

func TestGinMode(t *testing.T) {
	assert.Equal(t, "debug", ginMode(" DEBUG "))
	assert.Equal(t, "test", ginMode("test"))
	assert.Equal(t, "release", ginMode("production"))
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("  ", "b", "c"))
	assert.Equal(t, "", firstNonEmpty())
}
