package project

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
)

// Record is one saved project: its metadata plus the latest profiled source
// file, if any.
type Record struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	SourceFile  string    `json:"sourceFile,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func normalize(rec Record) Record {
	rec.ID = strings.TrimSpace(rec.ID)
	rec.Name = strings.TrimSpace(rec.Name)
	rec.Description = strings.TrimSpace(rec.Description)
	rec.SourceFile = strings.TrimSpace(rec.SourceFile)
	if rec.Name == "" {
		rec.Name = "Project"
	}
	return rec
}

// NewID returns a random 16-byte hex project identifier.
func NewID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "p-" + hex.EncodeToString([]byte(time.Now().Format("20060102150405")))
	}
	return hex.EncodeToString(b[:])
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	if err := row.Scan(&rec.ID, &rec.Name, &rec.Description, &rec.SourceFile, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return Record{}, err
	}
	return normalize(rec), nil
}
