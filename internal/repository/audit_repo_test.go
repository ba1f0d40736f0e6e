package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/timmy/prodcat/internal/config"
	"github.com/timmy/prodcat/internal/domain"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := InitDB(&config.DatabaseConfig{Driver: "sqlite", Path: ":memory:", AutoMigrate: true, MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("InitDB() error = %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestImageAssignmentRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewImageAssignmentRepository(newTestDB(t))
	base := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

	rows := []domain.ImageAssignment{
		{ID: "a", ProductID: 1, Source: domain.ImageSourceUpload, MD5Hash: "h1", CreatedAt: base},
		{ID: "b", ProductID: 1, Source: domain.ImageSourceGemini, MD5Hash: "h2", CreatedAt: base.Add(time.Minute)},
		{ID: "c", ProductID: 2, Source: domain.ImageSourceWeb, MD5Hash: "h1", CreatedAt: base.Add(2 * time.Minute)},
	}
	for i := range rows {
		if err := repo.Create(ctx, &rows[i]); err != nil {
			t.Fatalf("Create(%s) error = %v", rows[i].ID, err)
		}
	}

	got, err := repo.ListByProduct(ctx, 1, 0)
	if err != nil {
		t.Fatalf("ListByProduct() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "a" {
		t.Errorf("ListByProduct() = %+v, want b then a", got)
	}

	limited, _ := repo.ListByProduct(ctx, 1, 1)
	if len(limited) != 1 || limited[0].ID != "b" {
		t.Errorf("limit not applied: %+v", limited)
	}

	none, err := repo.ListByProduct(ctx, 99, 10)
	if err != nil || none == nil || len(none) != 0 {
		t.Errorf("ListByProduct(99) = %v, %v", none, err)
	}

	dup, err := repo.FindByMD5(ctx, "h1")
	if err != nil || dup.ID != "c" {
		t.Errorf("FindByMD5() = %+v, %v", dup, err)
	}
	if _, err := repo.FindByMD5(ctx, "missing"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("FindByMD5(missing) err = %v", err)
	}
}

func TestObservationRevisionRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewObservationRevisionRepository(newTestDB(t))
	base := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"r1", "r2", "r3"} {
		rev := &domain.ObservationRevision{
			ID:        id,
			ProductID: 7,
			RTF:       `{\rtf1 x}`,
			Origin:    domain.ObservationManual,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := repo.Create(ctx, rev); err != nil {
			t.Fatalf("Create(%s) error = %v", id, err)
		}
	}

	got, err := repo.ListByProduct(ctx, 7, 2)
	if err != nil {
		t.Fatalf("ListByProduct() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != "r3" || got[1].ID != "r2" {
		t.Errorf("ListByProduct() = %+v, want r3 then r2", got)
	}
}

func TestHistoryLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, defaultHistoryLimit},
		{-4, defaultHistoryLimit},
		{5, 5},
		{10000, maxHistoryLimit},
	}
	for _, tt := range tests {
		if got := historyLimit(tt.in); got != tt.want {
			t.Errorf("historyLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
