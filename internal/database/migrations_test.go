package database

import (
	"strings"
	"testing"
	"testing/fstest"
)

func TestReadMigrations(t *testing.T) {
	source := fstest.MapFS{
		"002_add_grades.up.sql":     {Data: []byte("CREATE TABLE grades (id INT);")},
		"002_add_grades.down.sql":   {Data: []byte("DROP TABLE grades;")},
		"001_initial_schema.up.sql": {Data: []byte("CREATE TABLE theses (id INT);")},
		"003_orphan_down.down.sql":  {Data: []byte("DROP TABLE nothing;")},
		"README.md":                 {Data: []byte("ignored")},
		"nounderscore.up.sql":       {Data: []byte("ignored")},
		"subdir/004_nested.up.sql":  {Data: []byte("ignored")},
	}

	migrations, err := ReadMigrations(source)
	if err != nil {
		t.Fatalf("ReadMigrations() error: %v", err)
	}

	if len(migrations) != 2 {
		t.Fatalf("Expected 2 migrations, got %d: %+v", len(migrations), migrations)
	}

	if migrations[0].Version != "001" || migrations[0].Title != "initial schema" {
		t.Errorf("Unexpected first migration: %+v", migrations[0])
	}
	if migrations[1].Version != "002" || migrations[1].DownSQL != "DROP TABLE grades;" {
		t.Errorf("Unexpected second migration: %+v", migrations[1])
	}
	if migrations[1].Checksum != calculateChecksum("CREATE TABLE grades (id INT);") {
		t.Error("Checksum should be computed from the up migration")
	}
}

func TestValidateChecksums(t *testing.T) {
	migrations := []Migration{
		{Version: "001", Title: "initial", Checksum: "aaa"},
		{Version: "002", Title: "grades", Checksum: "bbb"},
	}

	if err := validateChecksums(migrations, map[string]string{"001": "aaa"}); err != nil {
		t.Errorf("Unexpected error for matching checksums: %v", err)
	}

	if err := validateChecksums(migrations, map[string]string{"001": ""}); err != nil {
		t.Errorf("Legacy rows without checksum should be accepted: %v", err)
	}

	err := validateChecksums(migrations, map[string]string{"002": "changed"})
	if err == nil {
		t.Fatal("Expected checksum mismatch error")
	}
	if !strings.Contains(err.Error(), "002") {
		t.Errorf("Error should name the modified migration: %v", err)
	}
}
