package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/Fantasim/dropmint/internal/db"
	"github.com/Fantasim/dropmint/internal/models"
)

// setupTestDB creates a migrated temporary database.
func setupTestDB(t *testing.T) *db.DB {
	t.Helper()

	d, err := db.New(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("db.New() error = %v", err)
	}
	t.Cleanup(func() { d.Close() })

	if err := d.RunMigrations(); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}
	return d
}

// envelope decodes the API envelope with data into target.
func envelope(t *testing.T, rec *httptest.ResponseRecorder, target interface{}) *models.APIError {
	t.Helper()

	var raw struct {
		Data  json.RawMessage  `json:"data"`
		Error *models.APIError `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	if target != nil && len(raw.Data) > 0 {
		if err := json.Unmarshal(raw.Data, target); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
	return raw.Error
}
