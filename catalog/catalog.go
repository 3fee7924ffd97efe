// Package catalog keeps a SQLite record of completed bakes.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	pcache "github.com/flywave/go-pcache"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// ErrNotFound is returned when no record matches.
var ErrNotFound = errors.New("catalog: bake not found")

const schema = `
CREATE TABLE IF NOT EXISTS bakes (
    id             TEXT PRIMARY KEY,
    distribution   TEXT    NOT NULL,
    bake_mode      TEXT    NOT NULL,
    seed           INTEGER NOT NULL,
    point_count    INTEGER NOT NULL,
    vertex_count   INTEGER NOT NULL,
    triangle_count INTEGER NOT NULL,
    surface_area   REAL    NOT NULL,
    masked         INTEGER NOT NULL,
    output         TEXT    NOT NULL,
    created_at     TEXT    NOT NULL
)`

// sortable text form of created_at
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Record is one row of the bakes table.
type Record struct {
	ID            string
	Distribution  string
	BakeMode      string
	Seed          int64
	PointCount    int64
	VertexCount   int64
	TriangleCount int64
	SurfaceArea   float64
	Masked        bool
	Output        string
	CreatedAt     time.Time
}

// RecordFromFile reads the bake metadata stamped into f.
func RecordFromFile(f *pcache.File, output string) (*Record, error) {
	md := f.Metadata
	if md == nil {
		return nil, fmt.Errorf("catalog: cache has no metadata")
	}
	r := &Record{Output: output, CreatedAt: time.Now().UTC()}
	var ok bool
	if r.ID, ok = md.String("bake_id"); !ok {
		return nil, fmt.Errorf("catalog: cache has no bake_id")
	}
	r.Distribution, _ = md.String("distribution")
	r.BakeMode, _ = md.String("bake_mode")
	r.Seed, _ = md.Int("seed")
	r.PointCount, _ = md.Int("point_count")
	r.VertexCount, _ = md.Int("vertex_count")
	r.TriangleCount, _ = md.Int("triangle_count")
	r.SurfaceArea, _ = md.Float("surface_area")
	r.Masked, _ = md.Bool("masked")
	return r, nil
}

type Catalog struct {
	db *sql.DB
}

func New(db *sql.DB) *Catalog {
	return &Catalog{db: db}
}

// Open opens the catalog database at dbPath, creating it if needed.
func Open(ctx context.Context, dbPath string) (*Catalog, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?mode=rwc&_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	c := New(db)
	if err := c.Init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Catalog) Init(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (c *Catalog) Close() error {
	return c.db.Close()
}

// Put inserts or replaces a record. Re-baking the same request replaces the
// earlier row since the id is derived from the request.
func (c *Catalog) Put(ctx context.Context, r *Record) error {
	_, err := c.db.ExecContext(ctx, `
        INSERT OR REPLACE INTO bakes
            (id, distribution, bake_mode, seed, point_count, vertex_count,
             triangle_count, surface_area, masked, output, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, r.ID, r.Distribution, r.BakeMode, r.Seed, r.PointCount, r.VertexCount,
		r.TriangleCount, r.SurfaceArea, r.Masked, r.Output, r.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert bake %s: %w", r.ID, err)
	}
	return nil
}

func (c *Catalog) Get(ctx context.Context, id string) (*Record, error) {
	row := c.db.QueryRowContext(ctx, `
        SELECT id, distribution, bake_mode, seed, point_count, vertex_count,
               triangle_count, surface_area, masked, output, created_at
        FROM bakes
        WHERE id = ?
    `, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, err
}

// List returns the most recent records first.
func (c *Catalog) List(ctx context.Context, limit int) ([]*Record, error) {
	rows, err := c.db.QueryContext(ctx, `
        SELECT id, distribution, bake_mode, seed, point_count, vertex_count,
               triangle_count, surface_area, masked, output, created_at
        FROM bakes
        ORDER BY created_at DESC
        LIMIT ?
    `, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(s scanner) (*Record, error) {
	var r Record
	var created string
	if err := s.Scan(&r.ID, &r.Distribution, &r.BakeMode, &r.Seed, &r.PointCount, &r.VertexCount,
		&r.TriangleCount, &r.SurfaceArea, &r.Masked, &r.Output, &created); err != nil {
		return nil, err
	}
	t, err := time.Parse(timeLayout, created)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	r.CreatedAt = t
	return &r, nil
}
