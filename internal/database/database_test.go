package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatalf("Open 失败: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate 失败: %v", err)
	}
	return db
}

func TestRecordAndRecent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	entries := []Entry{
		{Provider: "witai", Voice: "Colin", Op: "speak", Chars: 5, Status: "ok", CreatedAt: base},
		{Provider: "google", Voice: "en", Op: "save", Output: "/tmp/a.mp3", Chars: 11, Status: "ok", CreatedAt: base.Add(time.Minute)},
		{Provider: "deepgram", Op: "speak", Status: "凭据无效", CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, e := range entries {
		if _, err := db.Record(ctx, e); err != nil {
			t.Fatalf("Record 失败: %v", err)
		}
	}

	got, err := db.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent 失败: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("期望 2 条，得到 %d 条", len(got))
	}
	if got[0].Provider != "deepgram" || got[1].Provider != "google" {
		t.Errorf("顺序不对: %s, %s", got[0].Provider, got[1].Provider)
	}
	if got[1].Output != "/tmp/a.mp3" || got[1].Chars != 11 {
		t.Errorf("字段不匹配: %+v", got[1])
	}
	if !got[1].CreatedAt.Equal(base.Add(time.Minute)) {
		t.Errorf("CreatedAt = %v", got[1].CreatedAt)
	}
}

func TestRecordDefaultsCreatedAt(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	id, err := db.Record(ctx, Entry{Provider: "edge", Op: "speak", Status: "ok"})
	if err != nil {
		t.Fatalf("Record 失败: %v", err)
	}
	if id <= 0 {
		t.Errorf("id = %d", id)
	}

	got, err := db.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent 失败: %v", err)
	}
	if len(got) != 1 || got[0].CreatedAt.IsZero() {
		t.Fatalf("记录不正确: %+v", got)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	db := openTestDB(t)
	if err := db.Migrate(); err != nil {
		t.Fatalf("重复 Migrate 失败: %v", err)
	}
	if db.Path() == "" {
		t.Error("Path 不应为空")
	}
}
