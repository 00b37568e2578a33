// Package documents is the boundary to document generation (invoices, payout
// orders). Callers only keep the returned reference.
package documents

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

type Generator interface {
	Generate(ctx context.Context, docType string, payload map[string]interface{}) (string, error)
}

// FileGenerator writes each document as a JSON envelope into Dir and returns
// its file name as the reference. A rendering service can pick them up from there.
type FileGenerator struct {
	Dir string
	now func() time.Time
}

func NewFileGenerator(dir string) (*FileGenerator, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create documents dir %s: %w", dir, err)
	}
	return &FileGenerator{Dir: dir, now: time.Now}, nil
}

type envelope struct {
	Reference   string                 `json:"reference"`
	Type        string                 `json:"type"`
	GeneratedAt time.Time              `json:"generated_at"`
	Payload     map[string]interface{} `json:"payload"`
}

func (g *FileGenerator) Generate(ctx context.Context, docType string, payload map[string]interface{}) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if docType == "" {
		return "", fmt.Errorf("document type is required")
	}

	ref := fmt.Sprintf("%s-%s", docType, uuid.NewString())
	body, err := json.MarshalIndent(envelope{
		Reference:   ref,
		Type:        docType,
		GeneratedAt: g.now().UTC(),
		Payload:     payload,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", docType, err)
	}

	// write-then-rename so readers never see a partial file
	final := filepath.Join(g.Dir, ref+".json")
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", docType, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("finalize %s: %w", docType, err)
	}
	return ref, nil
}
