// Package sqlite maps segment locations onto SQLite tables.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/Borislavv/go-ash-segments/config"
	"github.com/Borislavv/go-ash-segments/driver"
	"github.com/Borislavv/go-ash-segments/model"
	"github.com/Borislavv/go-ash-segments/schema"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// Driver reads rows with SELECT and writes them with INSERT OR REPLACE.
// Column names of every table are read when the database is opened.
type Driver struct {
	mu      sync.RWMutex
	cfg     *config.SQLiteDriverCfg
	db      *sql.DB
	headers map[string][]string
	maps    map[string]string
	logger  zerolog.Logger
}

func New(ctx context.Context, cfg *config.SQLiteDriverCfg, logger *zerolog.Logger) (*Driver, error) {
	if !cfg.Enabled() || cfg.Path == "" {
		return nil, model.Configf("sqlite driver: path is not set")
	}
	l := zerolog.Nop()
	if logger != nil {
		l = *logger
	}
	d := &Driver{
		cfg:    cfg,
		maps:   maps.Clone(cfg.Maps),
		logger: l.With().Str("driver", "sqlite").Logger(),
	}
	if d.maps == nil {
		d.maps = make(map[string]string)
	}
	if err := d.open(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Driver) open(ctx context.Context) error {
	db, err := sql.Open("sqlite3", d.cfg.Path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping database: %w", err)
	}
	headers, err := readHeads(ctx, db)
	if err != nil {
		_ = db.Close()
		return err
	}
	d.db, d.headers = db, headers
	d.logger.Debug().Str("path", d.cfg.Path).Int("tables", len(headers)).Msg("database opened")
	return nil
}

func readHeads(ctx context.Context, db *sql.DB) (map[string][]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	var tables []string
	for rows.Next() {
		var name string
		if err = rows.Scan(&name); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	_ = rows.Close()
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	headers := make(map[string][]string, len(tables))
	for _, table := range tables {
		cols, err := readColumns(ctx, db, table)
		if err != nil {
			return nil, err
		}
		headers[table] = cols
	}
	return headers, nil
}

func readColumns(ctx context.Context, db *sql.DB, table string) ([]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT * FROM "+quote(table)+" LIMIT 0")
	if err != nil {
		return nil, fmt.Errorf("read columns of %s: %w", table, err)
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns of %s: %w", table, err)
	}
	return cols, nil
}

// Remap sets logical location to table name mappings.
func (d *Driver) Remap(names map[string]string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	maps.Copy(d.maps, names)
}

// Refresh reopens the database and rereads table headers.
func (d *Driver) Refresh(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.db != nil {
		_ = d.db.Close()
	}
	return d.open(ctx)
}

func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	return err
}

// Table returns the table a location is stored in.
func (d *Driver) Table(location string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if table, ok := d.maps[location]; ok {
		return table
	}
	return location
}

// columns returns the header of table, reading it when the table appeared
// after the database was opened.
func (d *Driver) columns(ctx context.Context, table string) (*sql.DB, []string, error) {
	d.mu.RLock()
	db := d.db
	cols, known := d.headers[table]
	d.mu.RUnlock()

	if db == nil {
		return nil, nil, fmt.Errorf("sqlite driver: database is closed")
	}
	if known {
		return db, cols, nil
	}

	cols, err := readColumns(ctx, db, table)
	if err != nil {
		return nil, nil, model.NotFoundf("sqlite driver: table %s: %s", table, err.Error())
	}
	d.mu.Lock()
	d.headers[table] = cols
	d.mu.Unlock()
	return db, cols, nil
}

func (d *Driver) Fetch(ctx context.Context, location string, q driver.Query, h *schema.Handle) iter.Seq2[model.Fields, error] {
	table := d.Table(location)

	return func(yield func(model.Fields, error) bool) {
		start := time.Now()
		db, cols, err := d.columns(ctx, table)
		if err != nil {
			yield(nil, err)
			return
		}

		stmt := "SELECT * FROM " + quote(table)
		if q.Where != "" {
			stmt += " WHERE " + q.Where
		}
		if q.Limit > 0 && q.Match == nil {
			stmt += fmt.Sprintf(" LIMIT %d", q.Limit)
		}

		rows, err := db.QueryContext(ctx, stmt, q.Args...)
		if err != nil {
			yield(nil, fmt.Errorf("query %s: %w", table, err))
			return
		}
		defer rows.Close()

		read := 0
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		for rows.Next() {
			if err = rows.Scan(ptrs...); err != nil {
				yield(nil, fmt.Errorf("scan %s: %w", table, err))
				return
			}
			row := make(model.Fields, len(cols))
			for i, col := range cols {
				if b, ok := values[i].([]byte); ok {
					row[col] = string(b)
					continue
				}
				row[col] = values[i]
			}
			if h != nil {
				row = h.Trim(row)
			}
			if !q.Accept(row) {
				continue
			}
			read++
			if !yield(row, nil) {
				return
			}
			if q.Limit > 0 && read >= q.Limit {
				break
			}
		}
		if err = rows.Err(); err != nil {
			yield(nil, fmt.Errorf("read %s: %w", table, err))
			return
		}

		d.logger.Debug().
			Str("table", table).
			Int("read", read).
			Str("elapsed", time.Since(start).String()).
			Msg("fetch finished")
	}
}

// Export upserts records in one transaction. Only fields that are table
// columns are written; columns missing from a record are stored as NULL.
func (d *Driver) Export(ctx context.Context, location string, records iter.Seq[*model.Record], include, exclude []string) error {
	start := time.Now()
	table := d.Table(location)
	db, cols, err := d.columns(ctx, table)
	if err != nil {
		return err
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(cols)), ",")
	quoted := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = quote(col)
	}
	stmt := fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)", quote(table), strings.Join(quoted, ","), placeholders)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	ins, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert into %s: %w", table, err)
	}
	defer ins.Close()

	written := 0
	args := make([]any, len(cols))
	for r := range records {
		fields := driver.Project(r, include, exclude)
		for i, col := range cols {
			args[i] = fields[col]
		}
		if _, err = ins.ExecContext(ctx, args...); err != nil {
			_ = tx.Rollback()
			d.logger.Error().Err(err).Str("table", table).Int("written", written).Msg("[export] insert error")
			return fmt.Errorf("insert into %s: %w", table, err)
		}
		written++
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit export into %s: %w", table, err)
	}

	d.logger.Info().
		Str("table", table).
		Int("written", written).
		Str("elapsed", time.Since(start).String()).
		Msg("export finished")
	return nil
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
