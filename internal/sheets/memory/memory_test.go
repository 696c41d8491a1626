package memory

import (
	"context"
	"testing"

	"finsight/internal/sheets"
)

func TestStoreExport(t *testing.T) {
	s := New()

	ref, err := s.Export(context.Background(), sheets.Report{Username: "abc"})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if ref != "mem:1-4" {
		t.Errorf("first ref = %q", ref)
	}

	ref, _ = s.Export(context.Background(), sheets.Report{Username: "abc"})
	if ref != "mem:5-8" {
		t.Errorf("second ref = %q", ref)
	}
	if got := len(s.Rows()); got != 8 {
		t.Errorf("expected 8 rows, got %d", got)
	}
}
