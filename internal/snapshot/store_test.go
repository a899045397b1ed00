package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/polyeditor/polyeditor/backend-go/internal/typeid"
)

// testStore connects to TEST_DATABASE_URL, skipping when it is unset.
func testStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := NewPool(ctx, url)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)
	s := NewStore(pool)
	if err := s.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSaveAndLatest(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	level := "test-" + typeid.NewSessionID()

	if _, err := s.Latest(ctx, level); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	first, err := s.Save(ctx, level, []byte(`{"m_CustomShapes":[]}`))
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Save(ctx, level, []byte(`{"m_CustomShapes":[],"m_Pillars":[]}`))
	if err != nil {
		t.Fatal(err)
	}
	if first.Version != 1 || second.Version != 2 {
		t.Errorf("versions = %d, %d", first.Version, second.Version)
	}

	latest, err := s.Latest(ctx, level)
	if err != nil {
		t.Fatal(err)
	}
	if latest.ID != second.ID {
		t.Errorf("latest = %s, want %s", latest.ID, second.ID)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(latest.Document, &doc); err != nil {
		t.Fatal(err)
	}
	if _, ok := doc["m_Pillars"]; !ok {
		t.Errorf("latest document = %s", latest.Document)
	}

	versions, err := s.Versions(ctx, level)
	if err != nil {
		t.Fatal(err)
	}
	if len(versions) != 2 || versions[0].Version != 2 {
		t.Errorf("versions = %+v", versions)
	}
}
