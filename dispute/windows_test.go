package dispute

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWindows_OverridesApplyOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "windows.yaml")
	content := "response_windows:\n  bureau: 45\n  cfpb: 20\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	w, err := LoadWindows(path)
	if err != nil {
		t.Fatalf("load windows: %v", err)
	}
	if w.Bureau != 45 {
		t.Errorf("bureau = %d, want 45", w.Bureau)
	}
	if w.CFPB != 20 {
		t.Errorf("cfpb = %d, want 20", w.CFPB)
	}
	if w.Furnisher != 30 || w.Validation != 30 || w.Legal != 30 {
		t.Errorf("untouched windows changed: %+v", w)
	}
}

func TestLoadWindows_RejectsBadConfig(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("response_windows:\n  postal: 30\n"), 0o600)
	if _, err := LoadWindows(bad); err == nil {
		t.Error("expected error for unknown dispute type")
	}

	neg := filepath.Join(dir, "neg.yaml")
	os.WriteFile(neg, []byte("response_windows:\n  bureau: -1\n"), 0o600)
	if _, err := LoadWindows(neg); err == nil {
		t.Error("expected error for non-positive window")
	}
}

func TestWindows_OverrideOnlyAffectsNewDisputesOfThatType(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	repo := NewMemoryRepository()
	extended := DefaultWindows()
	extended.Bureau = 45
	svc := NewService(repo, extended, WithClock(fixedClock(now)))
	ctx := context.Background()

	bureau, err := svc.Create(ctx, CreateParams{Account: Account{Creditor: "Acme"}, Type: TypeBureau})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if want := now.AddDate(0, 0, 45); !bureau.ResponseDeadline.Equal(want) {
		t.Errorf("bureau deadline = %v, want %v", bureau.ResponseDeadline, want)
	}

	furnisher, err := svc.Create(ctx, CreateParams{Account: Account{Creditor: "Acme"}, Type: TypeFurnisher})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if want := now.AddDate(0, 0, 30); !furnisher.ResponseDeadline.Equal(want) {
		t.Errorf("furnisher deadline = %v, want %v", furnisher.ResponseDeadline, want)
	}
}
