package postgres

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/jinford/rag-embed/internal/core/embedding"
)

// UUIDToPgtype converts uuid.UUID to pgtype.UUID
func UUIDToPgtype(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

// PgtypeToUUID converts pgtype.UUID to uuid.UUID
func PgtypeToUUID(id pgtype.UUID) uuid.UUID {
	return id.Bytes
}

// IDToPgtype converts embedding.ID to pgtype.UUID
func IDToPgtype(id embedding.ID) pgtype.UUID {
	return UUIDToPgtype(id.UUID())
}

// PgtypeToID converts pgtype.UUID to embedding.ID
func PgtypeToID(id pgtype.UUID) embedding.ID {
	return embedding.NewID(PgtypeToUUID(id))
}

// PgtypeToTime converts pgtype.Timestamptz to time.Time
func PgtypeToTime(t pgtype.Timestamptz) time.Time {
	return t.Time
}

// PgtypeToTimePtr converts pgtype.Timestamptz to *time.Time (NULL → nil)
func PgtypeToTimePtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	tt := t.Time
	return &tt
}

// Float32ToVector converts []float32 to pgvector.Vector
func Float32ToVector(v []float32) pgvector.Vector {
	return pgvector.NewVector(v)
}

// VectorToFloat32 converts pgvector.Vector to []float32
func VectorToFloat32(v pgvector.Vector) []float32 {
	return v.Slice()
}
