package store

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"autoconvert/internal/model"
)

//go:embed schema.sql
var schemaFS embed.FS

// Store 运行历史的 SQLite 存储层
type Store struct {
	db *sql.DB
}

// New 打开（必要时创建）运行历史数据库
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// SQLite 建议单连接
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema.sql: %w", err)
	}
	if _, err := s.db.Exec(string(schemaSQL)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RunSummary 一次批处理的汇总记录
type RunSummary struct {
	ID             string    `json:"id"`
	StartedAt      time.Time `json:"startedAt"`
	ProcessingTime float64   `json:"processingTime"`
	TotalFiles     int       `json:"totalFiles"`
	SuccessCount   int       `json:"successCount"`
	AttentionCount int       `json:"attentionCount"`
	FailedCount    int       `json:"failedCount"`
}

// RunFile 单文件处理记录，错误与警告以分号拼接存储
type RunFile struct {
	Filename string  `json:"filename"`
	Status   string  `json:"status"`
	Errors   string  `json:"errors"`
	Warnings string  `json:"warnings"`
	Elapsed  float64 `json:"elapsed"`
}

// RunDetail 含逐文件明细的运行记录
type RunDetail struct {
	RunSummary
	Files []RunFile `json:"files"`
}

// SaveRun 持久化一次批处理结果
func (s *Store) SaveRun(result model.BatchResult) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (id, started_at, processing_time, total_files, success_count, attention_count, failed_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		result.RunID, result.StartedAt, result.ProcessingTime,
		result.TotalFiles, result.SuccessCount, result.AttentionCount, result.FailedCount,
	)
	if err != nil {
		return err
	}

	for _, fr := range result.FileResults {
		_, err = tx.Exec(
			`INSERT INTO run_files (run_id, filename, status, errors, warnings, elapsed)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			result.RunID, fr.Filename, string(fr.Status),
			joinErrors(fr.Errors), joinWarnings(fr.Warnings), fr.Elapsed.Seconds(),
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListRuns 按时间倒序返回最近的运行记录
func (s *Store) ListRuns(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT id, started_at, processing_time, total_files, success_count, attention_count, failed_count
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.ProcessingTime,
			&r.TotalFiles, &r.SuccessCount, &r.AttentionCount, &r.FailedCount); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun 返回单次运行的汇总与逐文件明细
func (s *Store) GetRun(id string) (*RunDetail, error) {
	var d RunDetail
	err := s.db.QueryRow(
		`SELECT id, started_at, processing_time, total_files, success_count, attention_count, failed_count
		 FROM runs WHERE id = ?`, id).
		Scan(&d.ID, &d.StartedAt, &d.ProcessingTime,
			&d.TotalFiles, &d.SuccessCount, &d.AttentionCount, &d.FailedCount)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(
		`SELECT filename, status, errors, warnings, elapsed FROM run_files WHERE run_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var f RunFile
		if err := rows.Scan(&f.Filename, &f.Status, &f.Errors, &f.Warnings, &f.Elapsed); err != nil {
			return nil, err
		}
		d.Files = append(d.Files, f)
	}
	return &d, rows.Err()
}

func joinErrors(errs []*model.ProcessingError) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, "; ")
}

func joinWarnings(warns []*model.ProcessingWarning) string {
	parts := make([]string, 0, len(warns))
	for _, w := range warns {
		parts = append(parts, fmt.Sprintf("[%s] %s", w.Code, w.Message))
	}
	return strings.Join(parts, "; ")
}
