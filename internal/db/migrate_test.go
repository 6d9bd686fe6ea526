package db

import (
	"strings"
	"testing"
)

func TestEmbeddedMigrations_PresentAndOrdered(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		t.Fatalf("reading embedded migrations: %v", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}

	if len(names) == 0 {
		t.Fatal("no embedded migration files")
	}
	if names[0] != "001_classification_codes.sql" {
		t.Fatalf("first migration = %q, want 001_classification_codes.sql", names[0])
	}

	content, err := migrationsFS.ReadFile("migrations/" + names[0])
	if err != nil {
		t.Fatalf("reading first migration: %v", err)
	}
	for _, token := range []string{"classification_codes", "code_type", "enabled"} {
		if !strings.Contains(string(content), token) {
			t.Fatalf("migration missing %q", token)
		}
	}
}
