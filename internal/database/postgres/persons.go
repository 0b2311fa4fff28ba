package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/person-tracker/internal/database"
)

// SnapshotBackend implements database.Backend over the persons tables.
type SnapshotBackend struct {
	pool *Pool
}

// NewSnapshotBackend creates a backend over a migrated pool.
func NewSnapshotBackend(pool *Pool) *SnapshotBackend {
	return &SnapshotBackend{pool: pool}
}

func (b *SnapshotBackend) Load(ctx context.Context) (*database.Snapshot, error) {
	rows, err := b.pool.db.QueryContext(ctx, "SELECT person_id, record FROM persons ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("query persons: %w", err)
	}
	defer rows.Close()

	snap := database.NewSnapshot()
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		rec, err := database.DecodeRecord(data)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", id, err)
		}
		snap.Put(id, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate persons: %w", err)
	}
	return snap, nil
}

// Save replaces the persons and encoding tables in one transaction.
func (b *SnapshotBackend) Save(ctx context.Context, snap *database.Snapshot) error {
	tx, err := b.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Encodings go with the persons rows via ON DELETE CASCADE.
	if _, err := tx.ExecContext(ctx, "DELETE FROM persons"); err != nil {
		return fmt.Errorf("clear persons: %w", err)
	}

	position := 0
	for id, rec := range snap.All() {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO persons (person_id, position, record) VALUES ($1, $2, $3)",
			id, position, data,
		); err != nil {
			return fmt.Errorf("insert %s: %w", id, err)
		}

		for slot, enc := range rec.FaceEncodings {
			if len(enc) == 0 {
				continue
			}
			vec := pgvector.NewVector(toFloat32(enc))
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO person_face_encodings (person_id, slot, encoding) VALUES ($1, $2, $3)",
				id, slot, vec,
			); err != nil {
				return fmt.Errorf("insert %s encoding %d: %w", id, slot, err)
			}
		}
		position++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// faceEncodings returns the mirrored encodings of personID in buffer order.
func (b *SnapshotBackend) faceEncodings(ctx context.Context, personID string) ([][]float32, error) {
	rows, err := b.pool.db.QueryContext(ctx,
		"SELECT encoding FROM person_face_encodings WHERE person_id = $1 ORDER BY slot", personID)
	if err != nil {
		return nil, fmt.Errorf("query encodings: %w", err)
	}
	defer rows.Close()

	var encodings [][]float32
	for rows.Next() {
		var vec pgvector.Vector
		if err := rows.Scan(&vec); err != nil {
			return nil, fmt.Errorf("scan encoding: %w", err)
		}
		encodings = append(encodings, vec.Slice())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate encodings: %w", err)
	}
	return encodings, nil
}

func (b *SnapshotBackend) Close() error {
	return b.pool.Close()
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
