package store

import (
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/formdesk/formdesk/internal/models"
)

func sampleSession(threadID string) models.SessionState {
	s := models.NewSessionState(threadID)
	s.Greeted = true
	s.FormValues["name"] = "Ada Lovelace"
	s.FieldCursor = 1
	return *s
}

func testStoreRoundTrip(t *testing.T, st Store) {
	t.Helper()

	got, err := st.GetSession("missing")
	if err != nil {
		t.Fatalf("GetSession on empty store failed: %v", err)
	}
	if got != nil {
		t.Fatalf("GetSession on empty store = %+v, want nil", got)
	}

	saved := sampleSession("t1")
	if err := st.SaveSession(saved); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}
	if err := st.SaveSession(sampleSession("t2")); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	got, err = st.GetSession("t1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got == nil {
		t.Fatal("GetSession returned nil for saved session")
	}
	if got.ThreadID != "t1" || got.FormValues["name"] != "Ada Lovelace" || got.FieldCursor != 1 {
		t.Errorf("loaded session = %+v", got)
	}

	// Overwrite wins.
	saved.FormValues["email"] = "ada@example.org"
	if err := st.SaveSession(saved); err != nil {
		t.Fatalf("SaveSession overwrite failed: %v", err)
	}
	got, _ = st.GetSession("t1")
	if got.FormValues["email"] != "ada@example.org" {
		t.Errorf("overwrite not applied: %+v", got.FormValues)
	}

	threads, err := st.ListThreads()
	if err != nil {
		t.Fatalf("ListThreads failed: %v", err)
	}
	sort.Strings(threads)
	if diff := cmp.Diff([]string{"t1", "t2"}, threads); diff != "" {
		t.Errorf("threads mismatch (-want +got):\n%s", diff)
	}

	if err := st.DeleteSession("t1"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	got, _ = st.GetSession("t1")
	if got != nil {
		t.Errorf("session still present after delete: %+v", got)
	}
	// Deleting a missing session is a no-op.
	if err := st.DeleteSession("t1"); err != nil {
		t.Errorf("repeated delete failed: %v", err)
	}
}

func TestInMemoryStore(t *testing.T) {
	st := NewInMemoryStore()
	defer st.Close()
	testStoreRoundTrip(t, st)
}

func TestInMemoryStoreReturnsCopy(t *testing.T) {
	st := NewInMemoryStore()
	if err := st.SaveSession(sampleSession("t1")); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	first, _ := st.GetSession("t1")
	first.FormValues["name"] = "mutated"

	second, _ := st.GetSession("t1")
	if second.FormValues["name"] != "Ada Lovelace" {
		t.Errorf("stored session mutated through returned copy: %q", second.FormValues["name"])
	}
}

func TestSQLiteStore(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "formdesk.db")
	st, err := NewSQLiteStore(WithDSN(dsn))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer st.Close()
	testStoreRoundTrip(t, st)
}

func TestNewSQLiteStoreRequiresDSN(t *testing.T) {
	if _, err := NewSQLiteStore(); err == nil {
		t.Error("NewSQLiteStore without DSN succeeded, want error")
	}
}

func TestDetectDSNType(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{"postgres://user@host/db", "postgres"},
		{"postgresql://user@host/db", "postgres"},
		{"host=localhost user=fd dbname=fd", "postgres"},
		{"/var/lib/formdesk/formdesk.db", "sqlite"},
		{"formdesk.db", "sqlite"},
		{"", "unknown"},
	}
	for _, tc := range tests {
		if got := DetectDSNType(tc.dsn); got != tc.want {
			t.Errorf("DetectDSNType(%q) = %q, want %q", tc.dsn, got, tc.want)
		}
	}
}

func TestNewDefaultsToInMemory(t *testing.T) {
	st, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer st.Close()
	if _, ok := st.(*InMemoryStore); !ok {
		t.Errorf("store type = %T, want *InMemoryStore", st)
	}
}

func TestNewSelectsSQLiteForFileDSN(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "formdesk.db")
	st, err := New(WithDSN(dsn))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer st.Close()
	if _, ok := st.(*SQLiteStore); !ok {
		t.Errorf("store type = %T, want *SQLiteStore", st)
	}
}
