// Package store persists characterized objects as named models in a SQLite
// library, so later scans can be compared against them.
package store

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	"embed"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/anomaly.report/internal/lidar"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrModelNotFound is returned when a named model is not in the library.
var ErrModelNotFound = errors.New("model not found")

// ModelInfo is the listing row for a stored model.
type ModelInfo struct {
	ID         string
	Name       string
	PointCount int
	FaceCount  int
	CreatedAt  time.Time
}

// Store is a model library backed by a SQLite file.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the library at path and brings its
// schema up to date.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening model library %s: %w", path, err)
	}
	s := &Store{db: db}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrateUp applies all pending schema migrations from the embedded set.
func (s *Store) migrateUp() error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading embedded migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("creating sqlite migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("creating migrate instance: %w", err)
	}
	// Not closed: closing would also close the shared DB connection.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrating model library: %w", err)
	}
	return nil
}

// modelPayload is the gob image of a stored model.
type modelPayload struct {
	Points []lidar.Point
	Faces  []lidar.Face
	Box    lidar.BBox
}

// SaveModel stores obj under name and returns the new model's id. Saving
// over an existing name replaces that model.
func (s *Store) SaveModel(name string, obj *lidar.Model) (string, error) {
	payload, err := encodeModel(obj)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err = s.db.Exec(`
		INSERT INTO models (id, name, point_count, face_count, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			id = excluded.id,
			point_count = excluded.point_count,
			face_count = excluded.face_count,
			payload = excluded.payload,
			created_at = CURRENT_TIMESTAMP
	`, id, name, len(obj.Points), len(obj.Faces), payload)
	if err != nil {
		return "", fmt.Errorf("saving model %q: %w", name, err)
	}
	return id, nil
}

// LoadModel retrieves the model stored under name.
func (s *Store) LoadModel(name string) (*lidar.Model, error) {
	var payload []byte
	err := s.db.QueryRow(`SELECT payload FROM models WHERE name = ?`, name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("loading model %q: %w", name, ErrModelNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading model %q: %w", name, err)
	}
	return decodeModel(payload)
}

// DeleteModel removes the model stored under name.
func (s *Store) DeleteModel(name string) error {
	res, err := s.db.Exec(`DELETE FROM models WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("deleting model %q: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("deleting model %q: %w", name, ErrModelNotFound)
	}
	return nil
}

// ListModels returns every stored model, newest first.
func (s *Store) ListModels() ([]ModelInfo, error) {
	rows, err := s.db.Query(`
		SELECT id, name, point_count, face_count, created_at
		FROM models ORDER BY created_at DESC, name
	`)
	if err != nil {
		return nil, fmt.Errorf("listing models: %w", err)
	}
	defer rows.Close()

	var infos []ModelInfo
	for rows.Next() {
		var info ModelInfo
		if err := rows.Scan(&info.ID, &info.Name, &info.PointCount, &info.FaceCount, &info.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning model row: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// encodeModel serializes a model as gzip-compressed gob; point buffers
// dominate the size and compress well.
func encodeModel(obj *lidar.Model) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if err := gob.NewEncoder(zw).Encode(modelPayload{
		Points: obj.Points,
		Faces:  obj.Faces,
		Box:    obj.Box,
	}); err != nil {
		return nil, fmt.Errorf("encoding model: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compressing model: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeModel(payload []byte) (*lidar.Model, error) {
	zr, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("decompressing model: %w", err)
	}
	defer zr.Close()

	var p modelPayload
	if err := gob.NewDecoder(zr).Decode(&p); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decoding model: %w", err)
	}
	return &lidar.Model{Points: p.Points, Faces: p.Faces, Box: p.Box}, nil
}
