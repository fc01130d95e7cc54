package model

import (
	"time"

	"github.com/google/uuid"
)

// DocumentArtifact is a rendered profile report. Bytes are never mutated
// after creation; a changed record produces a wholly new artifact.
type DocumentArtifact struct {
	ID          uuid.UUID
	Bytes       []byte
	Digest      string
	GeneratedAt time.Time
}
