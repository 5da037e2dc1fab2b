package dataset

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	posetrack "github.com/milosgajdos/go-posetrack"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS datasets (
	dataset_id    TEXT PRIMARY KEY,
	name          TEXT NOT NULL UNIQUE,
	created_at_ns INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS frames (
	dataset_id   TEXT NOT NULL REFERENCES datasets(dataset_id) ON DELETE CASCADE,
	frame_index  INTEGER NOT NULL,
	timestamp_ns INTEGER NOT NULL,
	depth        BLOB NOT NULL,
	ground_truth BLOB,
	PRIMARY KEY (dataset_id, frame_index)
);
`

// Summary describes stored dataset.
type Summary struct {
	ID        uuid.UUID
	Name      string
	Frames    int
	CreatedAt time.Time
}

// Store persists datasets in SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens SQLite dataset store at path, creating it if needed.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset store %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize dataset store %s: %w", path, err)
	}

	return &Store{db: db}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores dataset d.
// It returns error if a dataset with the same name already exists.
// If d.ID is nil a new id is assigned once the dataset is committed.
func (s *Store) Save(ctx context.Context, d *Dataset) error {
	if d.Name == "" {
		return fmt.Errorf("%w: empty dataset name", posetrack.ErrConfiguration)
	}

	id := d.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM datasets WHERE name = ?`, d.Name).Scan(&n); err != nil {
		return fmt.Errorf("lookup dataset: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("%w: dataset %q already exists", posetrack.ErrConfiguration, d.Name)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO datasets (dataset_id, name, created_at_ns) VALUES (?, ?, ?)`,
		id.String(), d.Name, time.Now().UnixNano(),
	); err != nil {
		return fmt.Errorf("insert dataset: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO frames (dataset_id, frame_index, timestamp_ns, depth, ground_truth)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare frame insert: %w", err)
	}
	defer stmt.Close()

	for i, f := range d.Frames {
		var gt []byte
		if len(f.GroundTruth) > 0 {
			gt = encode(f.GroundTruth)
		}

		if _, err := stmt.ExecContext(ctx, id.String(), i, f.Timestamp.UnixNano(), encode(f.Depth), gt); err != nil {
			return fmt.Errorf("insert frame %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit dataset: %w", err)
	}
	d.ID = id

	return nil
}

// Load loads dataset with the given name.
// It returns error if the dataset does not exist.
func (s *Store) Load(ctx context.Context, name string) (*Dataset, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT dataset_id FROM datasets WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: dataset %q", posetrack.ErrResourceNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("get dataset: %w", err)
	}

	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid dataset id %q: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp_ns, depth, ground_truth
		FROM frames
		WHERE dataset_id = ?
		ORDER BY frame_index
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query frames: %w", err)
	}
	defer rows.Close()

	d := &Dataset{ID: uid, Name: name}
	for rows.Next() {
		var ts int64
		var depth, gt []byte
		if err := rows.Scan(&ts, &depth, &gt); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}

		f := Frame{Timestamp: time.Unix(0, ts)}
		if f.Depth, err = decode(depth); err != nil {
			return nil, err
		}
		if len(gt) > 0 {
			if f.GroundTruth, err = decode(gt); err != nil {
				return nil, err
			}
		}

		d.Frames = append(d.Frames, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate frames: %w", err)
	}

	return d, nil
}

// List returns summaries of all stored datasets ordered by name.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.dataset_id, d.name, d.created_at_ns, COUNT(f.frame_index)
		FROM datasets d
		LEFT JOIN frames f ON f.dataset_id = d.dataset_id
		GROUP BY d.dataset_id
		ORDER BY d.name
	`)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var id, name string
		var created int64
		var n int
		if err := rows.Scan(&id, &name, &created, &n); err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}

		uid, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("invalid dataset id %q: %w", id, err)
		}

		out = append(out, Summary{
			ID:        uid,
			Name:      name,
			Frames:    n,
			CreatedAt: time.Unix(0, created),
		})
	}

	return out, rows.Err()
}

// encode encodes floats as little endian IEEE 754 blob.
func encode(v []float64) []byte {
	b := make([]byte, 8*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint64(b[8*i:], math.Float64bits(f))
	}

	return b
}

func decode(b []byte) ([]float64, error) {
	if len(b)%8 != 0 {
		return nil, fmt.Errorf("%w: corrupt float blob of %d bytes", posetrack.ErrInvalidDimension, len(b))
	}

	v := make([]float64, len(b)/8)
	for i := range v {
		v[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[8*i:]))
	}

	return v, nil
}
