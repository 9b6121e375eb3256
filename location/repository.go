// Copyright 2025 The Waterpoint Authors
// SPDX-License-Identifier: Apache-2.0

package location

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // duckdb driver
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	"github.com/uber/h3-go/v4"
	"github.com/waterpoint/waterpoint/spatial"
	"github.com/waterpoint/waterpoint/utils/textutils"
)

func init() {
	sqlx.BindDriver("duckdb", sqlx.QUESTION)
}

// Open connects to the store. An empty dsn with the duckdb driver is an
// in-memory database.
func Open(driver, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", driver, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()

		return nil, fmt.Errorf("connecting to %s store: %w", driver, err)
	}

	return db, nil
}

// Filter narrows a List call. Zero values match everything.
type Filter struct {
	Category Category
	// Query matches names ignoring case and accents.
	Query string
	// H3 is a cell index in its string form. Resolutions 7 and 9 are answered
	// by the database, any other resolution is checked point by point.
	H3     string
	Limit  int
	Offset int
}

// Repository handles persistence of locations.
type Repository interface {
	// CreateSchema creates the locations table
	CreateSchema(ctx context.Context) error

	// Save inserts or updates a location, assigning an ID when it has none
	Save(ctx context.Context, loc *Location) error

	// ReplaceAll swaps the whole catalog for locs in a single transaction
	ReplaceAll(ctx context.Context, locs []*Location) error

	// List returns locations in insertion order
	List(ctx context.Context, f Filter) ([]*Location, error)

	// Get returns a location by ID or ErrNotFound
	Get(ctx context.Context, id string) (*Location, error)

	// Count returns the number of stored locations
	Count(ctx context.Context) (int, error)

	// DB returns the underlying database connection
	DB() *sqlx.DB
}

type sqlRepository struct {
	db *sqlx.DB
}

// NewRepository creates a repository over db.
func NewRepository(db *sqlx.DB) Repository {
	return &sqlRepository{db: db}
}

func (r *sqlRepository) DB() *sqlx.DB {
	return r.db
}

// No primary key on id: duckdb rejects a delete and re-insert of the same key
// in one transaction. Save and ReplaceAll keep ids unique.
var schema = []string{
	`CREATE SEQUENCE IF NOT EXISTS locations_seq START 1`,
	`CREATE TABLE IF NOT EXISTS locations (
		id VARCHAR NOT NULL,
		seq BIGINT DEFAULT nextval('locations_seq'),
		name VARCHAR NOT NULL,
		category VARCHAR NOT NULL,
		level VARCHAR NOT NULL,
		temperatures VARCHAR NOT NULL,
		operator VARCHAR NOT NULL,
		lat FLOAT8 NOT NULL,
		lng FLOAT8 NOT NULL,
		created_at TIMESTAMP NOT NULL,
		h3_res7 BIGINT NOT NULL,
		h3_res9 BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS locations_category_idx ON locations (category)`,
}

func (r *sqlRepository) CreateSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}

	return nil
}

// row is the storage shape of a Location.
type row struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Category     string    `db:"category"`
	Level        string    `db:"level"`
	Temperatures string    `db:"temperatures"`
	Operator     string    `db:"operator"`
	Lat          float64   `db:"lat"`
	Lng          float64   `db:"lng"`
	CreatedAt    time.Time `db:"created_at"`
	H3Res7       int64     `db:"h3_res7"`
	H3Res9       int64     `db:"h3_res9"`
}

const columns = `id, name, category, level, temperatures, operator, lat, lng, created_at, h3_res7, h3_res9`

const insertLocation = `INSERT INTO locations (` + columns + `)
	VALUES (:id, :name, :category, :level, :temperatures, :operator, :lat, :lng, :created_at, :h3_res7, :h3_res9)`

const updateLocation = `UPDATE locations
	SET name = :name, category = :category, level = :level, temperatures = :temperatures,
		operator = :operator, lat = :lat, lng = :lng, h3_res7 = :h3_res7, h3_res9 = :h3_res9
	WHERE id = :id`

func toRow(loc *Location) row {
	return row{
		ID:           loc.ID,
		Name:         loc.Name,
		Category:     string(loc.Category),
		Level:        loc.Level,
		Temperatures: loc.Temperatures.String(),
		Operator:     loc.Operator,
		Lat:          loc.Lat,
		Lng:          loc.Lng,
		CreatedAt:    loc.CreatedAt,
		H3Res7:       loc.H3Res7,
		H3Res9:       loc.H3Res9,
	}
}

func (rw row) location() *Location {
	return &Location{
		ID:           rw.ID,
		Point:        spatial.Point{Lat: rw.Lat, Lng: rw.Lng},
		Name:         rw.Name,
		Category:     Category(rw.Category),
		Level:        rw.Level,
		Temperatures: ParseTemperatures(rw.Temperatures),
		Operator:     rw.Operator,
		CreatedAt:    rw.CreatedAt.UTC(),
		H3Res7:       rw.H3Res7,
		H3Res9:       rw.H3Res9,
	}
}

// prepare fills in the generated fields of loc.
func prepare(loc *Location) error {
	if loc == nil {
		return errors.New("location can't be nil")
	}

	if err := loc.Point.Validate(); err != nil {
		return err
	}

	if loc.ID == "" {
		loc.ID = uuid.NewString()
	}

	if loc.CreatedAt.IsZero() {
		loc.CreatedAt = time.Now()
	}

	loc.CreatedAt = loc.CreatedAt.UTC().Truncate(time.Microsecond)

	return loc.computeH3()
}

func (r *sqlRepository) Save(ctx context.Context, loc *Location) error {
	if err := prepare(loc); err != nil {
		return fmt.Errorf("saving location: %w", err)
	}

	res, err := r.db.NamedExecContext(ctx, updateLocation, toRow(loc))
	if err != nil {
		return fmt.Errorf("updating location %s: %w", loc.ID, err)
	}

	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}

	if _, err := r.db.NamedExecContext(ctx, insertLocation, toRow(loc)); err != nil {
		return fmt.Errorf("inserting location %s: %w", loc.ID, err)
	}

	return nil
}

func (r *sqlRepository) ReplaceAll(ctx context.Context, locs []*Location) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}

	rollback := func(err error) error {
		if rErr := tx.Rollback(); rErr != nil {
			return errors.Join(err, rErr)
		}

		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM locations`); err != nil {
		return rollback(fmt.Errorf("clearing locations: %w", err))
	}

	seen := make(map[string]bool, len(locs))
	for i, loc := range locs {
		if err := prepare(loc); err != nil {
			return rollback(fmt.Errorf("location %d: %w", i, err))
		}

		if seen[loc.ID] {
			return rollback(fmt.Errorf("%w: duplicate id %s", ErrInvalid, loc.ID))
		}

		seen[loc.ID] = true

		if _, err := tx.NamedExecContext(ctx, insertLocation, toRow(loc)); err != nil {
			return rollback(fmt.Errorf("inserting location %s: %w", loc.ID, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing locations: %w", err)
	}

	return nil
}

func (r *sqlRepository) List(ctx context.Context, f Filter) ([]*Location, error) {
	var (
		where []string
		args  []any
		cell  h3.Cell
	)

	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, string(f.Category))
	}

	if f.H3 != "" {
		cell = h3.Cell(h3.IndexFromString(f.H3))
		if !cell.IsValid() {
			return nil, fmt.Errorf("%w: invalid h3 cell %q", ErrInvalid, f.H3)
		}

		switch cell.Resolution() {
		case 7:
			where = append(where, "h3_res7 = ?")
			args = append(args, int64(cell))
			cell = 0
		case 9:
			where = append(where, "h3_res9 = ?")
			args = append(args, int64(cell))
			cell = 0
		}
	}

	query := strings.TrimSpace(f.Query)
	inGo := query != "" || cell != 0

	sqlQuery := `SELECT ` + columns + ` FROM locations`
	if len(where) > 0 {
		sqlQuery += ` WHERE ` + strings.Join(where, " AND ")
	}

	sqlQuery += ` ORDER BY seq`

	if !inGo {
		if f.Limit > 0 {
			sqlQuery += fmt.Sprintf(` LIMIT %d`, f.Limit)
		}

		if f.Offset > 0 {
			sqlQuery += fmt.Sprintf(` OFFSET %d`, f.Offset)
		}
	}

	var rows []row
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(sqlQuery), args...); err != nil {
		return nil, fmt.Errorf("listing locations: %w", err)
	}

	locs := make([]*Location, 0, len(rows))
	for _, rw := range rows {
		loc := rw.location()
		if query != "" && !textutils.ContainsFolded(loc.Name, query) {
			continue
		}

		if cell != 0 && !loc.InCell(cell) {
			continue
		}

		locs = append(locs, loc)
	}

	if inGo {
		locs = page(locs, f.Limit, f.Offset)
	}

	return locs, nil
}

func page(locs []*Location, limit, offset int) []*Location {
	if offset > 0 {
		if offset >= len(locs) {
			return []*Location{}
		}

		locs = locs[offset:]
	}

	if limit > 0 && limit < len(locs) {
		locs = locs[:limit]
	}

	return locs
}

func (r *sqlRepository) Get(ctx context.Context, id string) (*Location, error) {
	var rw row

	err := r.db.GetContext(ctx, &rw, r.db.Rebind(`SELECT `+columns+` FROM locations WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if err != nil {
		return nil, fmt.Errorf("getting location %s: %w", id, err)
	}

	return rw.location(), nil
}

func (r *sqlRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM locations`); err != nil {
		return 0, fmt.Errorf("counting locations: %w", err)
	}

	return count, nil
}
