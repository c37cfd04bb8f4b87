// Package database 用 SQLite 保存命令行的合成历史。
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/iabetor/speech-engine/internal/logger"
)

// 定宽格式，字符串排序即时间排序
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DB 是合成历史库的连接。
type DB struct {
	*sql.DB
	path string
}

// DefaultPath 返回默认数据库路径 ~/.speech-engine/history.db。
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	if home == "" {
		return "./history.db"
	}
	return filepath.Join(home, ".speech-engine", "history.db")
}

// Open 打开或创建数据库。dbPath 为空时使用 DefaultPath。
func Open(dbPath string) (*DB, error) {
	if dbPath == "" {
		dbPath = DefaultPath()
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("创建数据库目录失败: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	// 单连接即可，避免多个连接争用写锁
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("设置 WAL 模式失败: %w", err)
	}

	logger.Debugf("[database] 数据库已打开: %s", dbPath)
	return &DB{DB: db, path: dbPath}, nil
}

// Path 返回数据库文件路径。
func (db *DB) Path() string {
	return db.path
}

// Migrate 创建历史表和索引。
func (db *DB) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS synthesis_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			provider TEXT NOT NULL,
			voice TEXT DEFAULT '',
			op TEXT NOT NULL,
			output TEXT DEFAULT '',
			chars INTEGER DEFAULT 0,
			status TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_synthesis_history_created ON synthesis_history(created_at)`,
	}
	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("数据库迁移失败: %w", err)
		}
	}
	return nil
}

// Entry 是一次 speak/save 的记录。
type Entry struct {
	ID        int64
	Provider  string
	Voice     string
	Op        string // "speak" 或 "save"
	Output    string // save 的目标文件
	Chars     int
	Status    string // "ok" 或错误信息
	CreatedAt time.Time
}

// Record 写入一条历史。CreatedAt 为零值时取当前时间。
func (db *DB) Record(ctx context.Context, e Entry) (int64, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO synthesis_history (provider, voice, op, output, chars, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Provider, e.Voice, e.Op, e.Output, e.Chars, e.Status, e.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("写入历史失败: %w", err)
	}
	return res.LastInsertId()
}

// Recent 按时间倒序返回最近 limit 条记录。limit <= 0 时返回 20 条。
func (db *DB) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.QueryContext(ctx,
		`SELECT id, provider, voice, op, output, chars, status, created_at
		 FROM synthesis_history ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("查询历史失败: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			created string
		)
		if err := rows.Scan(&e.ID, &e.Provider, &e.Voice, &e.Op, &e.Output, &e.Chars, &e.Status, &created); err != nil {
			return nil, fmt.Errorf("读取历史失败: %w", err)
		}
		if e.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			logger.Warnf("[database] 无法解析时间 %q: %v", created, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
