package config

import (
	"strings"
	"testing"
)

func TestDSNBuildsFromFields(t *testing.T) {
	d := DatabaseConfig{Host: "db", User: "civitas", Password: "p@ss/w:rd", Name: "civitas"}
	dsn := d.DSN()

	if !strings.Contains(dsn, "tcp(db:3306)") {
		t.Fatalf("expected default port appended, got %s", dsn)
	}
	if !strings.Contains(dsn, "parseTime=true") {
		t.Fatalf("expected parseTime enabled, got %s", dsn)
	}
	// UPDATE paths read RowsAffected as "row exists"; without
	// CLIENT_FOUND_ROWS a no-op update of an existing row reports 0 and
	// surfaces a spurious 404.
	if !strings.Contains(dsn, "clientFoundRows=true") {
		t.Fatalf("expected clientFoundRows enabled, got %s", dsn)
	}
}

func TestDSNOverrideWins(t *testing.T) {
	d := DatabaseConfig{dsnOverride: "user:pw@tcp(elsewhere:3307)/other?parseTime=true"}
	if got := d.DSN(); got != "user:pw@tcp(elsewhere:3307)/other?parseTime=true" {
		t.Fatalf("DATABASE_URL must be used verbatim, got %s", got)
	}
}

func TestEnsurePortKeepsExplicitPort(t *testing.T) {
	if got := ensurePort("db:3307", "3306"); got != "db:3307" {
		t.Fatalf("explicit port must be kept, got %s", got)
	}
	if got := ensurePort("db", "3306"); got != "db:3306" {
		t.Fatalf("default port must be appended, got %s", got)
	}
}
