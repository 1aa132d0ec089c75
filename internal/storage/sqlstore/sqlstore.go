// Package sqlstore хранит дизайны, шаблоны и кредиты пользователей в MySQL
// или SQLite. Запросы общие для обоих диалектов, время хранится в unix-секундах.
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

type Dialect string

const (
	DialectMySQL  Dialect = "mysql"
	DialectSQLite Dialect = "sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Storage struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// MySQLOptions are the connection parts of a MySQL database.
type MySQLOptions struct {
	User     string
	Password string
	Host     string
	Port     int
	Name     string
}

// DSN builds the driver DSN. ClientFoundRows makes UPDATE report matched
// rows, so an update that changes nothing is not mistaken for a missing row.
func (o MySQLOptions) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = o.User
	cfg.Passwd = o.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", o.Host, o.Port)
	cfg.DBName = o.Name
	cfg.ParseTime = true
	cfg.ClientFoundRows = true
	return cfg.FormatDSN()
}

func NewMySQL(ctx context.Context, opts MySQLOptions) (*Storage, error) {
	const op = "storage.sqlstore.NewMySQL"

	db, err := sql.Open("mysql", opts.DSN())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	s := New(db, DialectMySQL)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}

// NewSQLite opens (creating if needed) the database file at path.
func NewSQLite(ctx context.Context, path string) (*Storage, error) {
	const op = "storage.sqlstore.NewSQLite"

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%s: mkdir db dir: %w", op, err)
	}

	dsn := fmt.Sprintf("file:%s?mode=rwc&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	// одна запись за раз, иначе SQLITE_BUSY под нагрузкой
	db.SetMaxOpenConns(1)

	s := New(db, DialectSQLite)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}

func New(db *sql.DB, dialect Dialect) *Storage {
	return &Storage{db: db, dialect: dialect, now: time.Now}
}

// Migrate applies the embedded schema of the dialect. Every statement is
// idempotent.
func (s *Storage) Migrate(ctx context.Context) error {
	const op = "storage.sqlstore.Migrate"

	data, err := migrations.ReadFile("migrations/" + string(s.dialect) + ".sql")
	if err != nil {
		return fmt.Errorf("%s: read migration: %w", op, err)
	}

	for _, stmt := range strings.Split(string(data), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: apply migration: %w", op, err)
		}
	}
	return nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Storage) unixNow() int64 {
	return s.now().Unix()
}

// isDuplicate reports a unique key violation on MySQL.
func isDuplicate(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

// nullJSON stores nil or empty JSON as NULL.
func nullJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func nullString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func rawJSON(ns sql.NullString) []byte {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return []byte(ns.String)
}

func fromUnix(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

// setClause collects "col = ?" pairs of a partial UPDATE.
type setClause struct {
	cols []string
	args []any
}

func (c *setClause) add(col string, v any) {
	c.cols = append(c.cols, col+" = ?")
	c.args = append(c.args, v)
}

func (c *setClause) String() string {
	return strings.Join(c.cols, ", ")
}
