package main

import (
	"os"
	"path/filepath"
	"testing"

	"thesis-portal/internal/models"
)

func TestReadUsers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	content := `[
		{"email": "prof@example.edu", "password": "secret123", "first_name": "Ada", "last_name": "Lovelace", "role": "professor"},
		{"email": "s1@example.edu", "password": "secret123", "first_name": "Alan", "last_name": "Turing", "role": "student", "registration_number": "1115201900001"}
	]`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	users, err := readUsers(path)
	if err != nil {
		t.Fatalf("readUsers() error: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("Expected 2 users, got %d", len(users))
	}
	if users[0].Role != models.RoleProfessor {
		t.Errorf("Expected professor, got %q", users[0].Role)
	}
	if users[1].RegistrationNumber == nil || *users[1].RegistrationNumber != "1115201900001" {
		t.Errorf("Registration number not parsed: %v", users[1].RegistrationNumber)
	}
}

func TestReadUsersErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := readUsers(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("Expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"email": 1}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := readUsers(bad); err == nil {
		t.Error("Expected error for malformed file")
	}
}
