package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mattn/go-sqlite3"
)

// DBConfig конфигурация пула подключений
type DBConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

var (
	// ErrRuleExists правило с таким ID уже сохранено
	ErrRuleExists = errors.New("rule already exists")
	// ErrRuleNotFound правило не найдено
	ErrRuleNotFound = errors.New("rule not found")
	// ErrSnapshotNotFound снимок сессии не найден
	ErrSnapshotNotFound = errors.New("session snapshot not found")
)

// RulesDB обертка над базой правил сопоставления и снимков сессий
type RulesDB struct {
	conn *sql.DB
}

// NewRulesDB открывает базу правил с настройками пула по умолчанию
func NewRulesDB(dbPath string) (*RulesDB, error) {
	return NewRulesDBWithConfig(dbPath, DBConfig{})
}

// NewRulesDBWithConfig открывает базу правил, создает схему и применяет миграции
func NewRulesDBWithConfig(dbPath string, config DBConfig) (*RulesDB, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open rules database: %w", err)
	}

	if dbPath == ":memory:" {
		// каждое подключение к :memory: видит свою базу
		conn.SetMaxOpenConns(1)
	} else if config.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(config.MaxOpenConns)
	} else {
		conn.SetMaxOpenConns(25)
	}

	if config.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(config.MaxIdleConns)
	} else {
		conn.SetMaxIdleConns(5)
	}

	if dbPath == ":memory:" {
		// закрытие единственного подключения стирает базу
		conn.SetConnMaxLifetime(0)
	} else if config.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(config.ConnMaxLifetime)
	} else {
		conn.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping rules database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
			log.Printf("Warning: failed to enable WAL mode: %v", err)
		}
	}

	if err := InitRulesSchema(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize rules schema: %w", err)
	}

	if err := MigrateRulesSchema(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate rules schema: %w", err)
	}

	return &RulesDB{conn: conn}, nil
}

// Close закрывает подключение
func (db *RulesDB) Close() error {
	return db.conn.Close()
}

// GetDB возвращает *sql.DB для прямого доступа
func (db *RulesDB) GetDB() *sql.DB {
	return db.conn
}

// Ping проверяет доступность базы
func (db *RulesDB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// RuleRow строка таблицы rules. Условия хранятся в JSON.
type RuleRow struct {
	Seq         int64
	ID          string
	Name        string
	ClausesJSON string
	SourceA     string
	SourceB     string
	Note        string
	GeneratedAt time.Time
	CreatedAt   time.Time
}

// isUniqueViolation нарушение PRIMARY KEY или UNIQUE
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

// InsertRule добавляет правило в конец набора. Правила только дописываются.
func (db *RulesDB) InsertRule(ctx context.Context, row *RuleRow) error {
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}

	result, err := db.conn.ExecContext(ctx, `
		INSERT INTO rules (id, name, clauses, source_a, source_b, note, generated_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, row.ID, row.Name, row.ClausesJSON, row.SourceA, row.SourceB, row.Note, row.GeneratedAt, row.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrRuleExists, row.ID)
		}
		return fmt.Errorf("failed to insert rule: %w", err)
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get rule sequence: %w", err)
	}
	row.Seq = seq
	return nil
}

const ruleColumns = `seq, id, name, clauses, source_a, source_b, note, generated_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(s rowScanner) (*RuleRow, error) {
	var row RuleRow
	var sourceA, sourceB, note sql.NullString
	var generatedAt sql.NullTime
	if err := s.Scan(&row.Seq, &row.ID, &row.Name, &row.ClausesJSON, &sourceA, &sourceB, &note, &generatedAt, &row.CreatedAt); err != nil {
		return nil, err
	}
	row.SourceA = nullString(sourceA)
	row.SourceB = nullString(sourceB)
	row.Note = nullString(note)
	if generatedAt.Valid {
		row.GeneratedAt = generatedAt.Time
	}
	return &row, nil
}

// ListRules возвращает правила в порядке добавления
func (db *RulesDB) ListRules(ctx context.Context) ([]RuleRow, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT `+ruleColumns+` FROM rules ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var result []RuleRow
	for rows.Next() {
		row, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		result = append(result, *row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rules: %w", err)
	}
	return result, nil
}

// GetRule возвращает правило по ID
func (db *RulesDB) GetRule(ctx context.Context, id string) (*RuleRow, error) {
	row, err := scanRule(db.conn.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM rules WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
		}
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return row, nil
}

// CountRules количество сохраненных правил
func (db *RulesDB) CountRules(ctx context.Context) (int, error) {
	var count int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM rules`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rules: %w", err)
	}
	return count, nil
}

func nullString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}
