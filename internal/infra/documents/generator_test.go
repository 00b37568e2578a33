package documents

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileGeneratorWritesDocument(t *testing.T) {
	dir := t.TempDir()
	g, err := NewFileGenerator(dir)
	if err != nil {
		t.Fatalf("NewFileGenerator: %v", err)
	}

	ref, err := g.Generate(context.Background(), "payout_order", map[string]interface{}{"amount": 95000})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.HasPrefix(ref, "payout_order-") {
		t.Fatalf("unexpected reference %q", ref)
	}

	raw, err := os.ReadFile(filepath.Join(dir, ref+".json"))
	if err != nil {
		t.Fatalf("read document: %v", err)
	}
	var doc envelope
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("decode document: %v", err)
	}
	if doc.Reference != ref || doc.Type != "payout_order" || doc.Payload["amount"].(float64) != 95000 {
		t.Fatalf("unexpected document %+v", doc)
	}
}

func TestFileGeneratorRequiresType(t *testing.T) {
	g, _ := NewFileGenerator(t.TempDir())
	if _, err := g.Generate(context.Background(), "", nil); err == nil {
		t.Fatal("expected error for empty document type")
	}
}

func TestFileGeneratorHonoursCancelledContext(t *testing.T) {
	g, _ := NewFileGenerator(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.Generate(ctx, "payout_order", nil); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
