package dbadapter

import "testing"

func TestEffectiveBackupTypeFallsBackToFull(t *testing.T) {
	caps := Capabilities{FallbackIncrementalToFull: true, FallbackDifferentialToFull: true}

	effective, err := EffectiveBackupType(caps, "postgres", Incremental, nil)
	if err != nil {
		t.Fatalf("EffectiveBackupType: %v", err)
	}
	if effective != Full {
		t.Fatalf("expected fallback to full, got %q", effective)
	}
}

func TestEffectiveBackupTypeRejectsUnsupportedWithNoFallback(t *testing.T) {
	caps := Capabilities{}

	if _, err := EffectiveBackupType(caps, "mysql", Incremental, nil); err == nil {
		t.Fatal("expected error when engine neither supports nor falls back")
	}
}

func TestValidateBackupTypeRejectsUnknown(t *testing.T) {
	if err := ValidateBackupType(Capabilities{}, "bogus"); err == nil {
		t.Fatal("expected error for unknown backup type")
	}
}

func TestCleanTablesTrimsAndDropsEmpty(t *testing.T) {
	got := CleanTables([]string{" users ", "", "  ", "orders"})
	if len(got) != 2 || got[0] != "users" || got[1] != "orders" {
		t.Fatalf("unexpected result: %v", got)
	}
}
