package store

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"mcbopomofo/internal/ime"
	"mcbopomofo/internal/lm"
)

var _ ime.PhraseStore = (*Store)(nil)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenAndClose(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(dbPath, WithBusyTimeout(time.Second))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if s.Path() != dbPath {
		t.Errorf("Path = %s", s.Path())
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}

	info, err := os.Stat(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("database mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestOpenCreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "test.db")

	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()
}

func TestCloseNilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close on nil db should not error: %v", err)
	}
}

func TestMigrations(t *testing.T) {
	s := openTestStore(t)

	status, err := s.MigrationStatus()
	if err != nil {
		t.Fatalf("MigrationStatus failed: %v", err)
	}
	if status.CurrentVersion != status.LatestVersion {
		t.Errorf("current %d, latest %d", status.CurrentVersion, status.LatestVersion)
	}
	if len(status.Pending) != 0 {
		t.Errorf("pending migrations: %v", status.Pending)
	}
	if len(status.Applied) != len(migrations) {
		t.Errorf("applied %d of %d migrations", len(status.Applied), len(migrations))
	}

	// Reapplying is a no-op.
	if err := MigrateDB(s.db); err != nil {
		t.Fatalf("second MigrateDB failed: %v", err)
	}
	if err := s.Verify(); err != nil {
		t.Errorf("Verify failed: %v", err)
	}
}

func TestMigrationStatusOnEmptyDatabase(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "empty.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	status, err := GetMigrationStatus(db)
	if err != nil {
		t.Fatalf("GetMigrationStatus failed: %v", err)
	}
	if status.CurrentVersion != 0 || len(status.Pending) != len(migrations) {
		t.Errorf("status = %+v", status)
	}
	if err := ValidateSchema(db); err == nil {
		t.Error("expected missing table error")
	}
}

func TestSaveAndLoad(t *testing.T) {
	s := openTestStore(t)

	phrases, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(phrases) != 0 {
		t.Errorf("new store not empty: %v", phrases)
	}

	want := map[string][]string{
		"ㄊㄧㄢ":      {"天", "添"},
		"ㄋㄧˇ-ㄑㄧˋ": {"你氣"},
	}
	if err := s.Save(want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load = %v, want %v", got, want)
	}

	// Saving a smaller table drops the missing rows.
	if err := s.Save(map[string][]string{"ㄊㄧㄢ": {"添"}}); err != nil {
		t.Fatal(err)
	}
	got, _ = s.Load()
	if !reflect.DeepEqual(got, map[string][]string{"ㄊㄧㄢ": {"添"}}) {
		t.Errorf("Load after shrink = %v", got)
	}
}

func TestSaveKeepsCreationAndSource(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.Add("ㄊㄧㄢ", "天", SourceManual); err != nil {
		t.Fatal(err)
	}
	before, _ := s.List("")

	if err := s.Save(map[string][]string{"ㄊㄧㄢ": {"天", "添"}}); err != nil {
		t.Fatal(err)
	}
	after, err := s.List("")
	if err != nil {
		t.Fatal(err)
	}
	if len(after) != 2 {
		t.Fatalf("rows = %d", len(after))
	}
	if after[0].Source != SourceManual || !after[0].CreatedAt.Equal(before[0].CreatedAt) {
		t.Errorf("existing row changed: %+v", after[0])
	}
	if after[1].Source != SourceMarked || after[1].Position != 1 {
		t.Errorf("new row = %+v", after[1])
	}
}

func TestSaveRejectsEmptyPhrase(t *testing.T) {
	s := openTestStore(t)
	if err := s.Save(map[string][]string{"ㄊㄧㄢ": {""}}); !errors.Is(err, ErrEmptyPhrase) {
		t.Errorf("Save error = %v, want ErrEmptyPhrase", err)
	}
}

func TestAddAndRemove(t *testing.T) {
	s := openTestStore(t)

	added, err := s.Add("ㄋㄧˇ-ㄏㄠˇ", "你好", SourceMarked)
	if err != nil || !added {
		t.Fatalf("Add = %v, %v", added, err)
	}
	added, err = s.Add("ㄋㄧˇ-ㄏㄠˇ", "你好", SourceMarked)
	if err != nil || added {
		t.Errorf("duplicate Add = %v, %v", added, err)
	}
	if _, err := s.Add("ㄋㄧˇ-ㄏㄠˇ", "妳好", SourceManual); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Add(" ", "x", SourceManual); !errors.Is(err, ErrEmptyPhrase) {
		t.Errorf("blank reading error = %v", err)
	}

	phrases, _ := s.Load()
	if got := phrases["ㄋㄧˇ-ㄏㄠˇ"]; !reflect.DeepEqual(got, []string{"你好", "妳好"}) {
		t.Errorf("order = %v", got)
	}

	removed, err := s.Remove("ㄋㄧˇ-ㄏㄠˇ", "你好")
	if err != nil || !removed {
		t.Errorf("Remove = %v, %v", removed, err)
	}
	removed, err = s.Remove("ㄋㄧˇ-ㄏㄠˇ", "你好")
	if err != nil || removed {
		t.Errorf("second Remove = %v, %v", removed, err)
	}
	if n, _ := s.Count(); n != 1 {
		t.Errorf("Count = %d", n)
	}
}

func TestAddNormalizes(t *testing.T) {
	s := openTestStore(t)

	// "e" plus a combining acute accent composes to "é".
	if _, err := s.Add("_letter_e", "e\u0301", SourceManual); err != nil {
		t.Fatal(err)
	}
	added, err := s.Add("_letter_e", "\u00e9", SourceManual)
	if err != nil {
		t.Fatal(err)
	}
	if added {
		t.Error("composed and decomposed forms stored twice")
	}
}

func TestMergeAndList(t *testing.T) {
	s := openTestStore(t)
	s.Add("ㄊㄧㄢ", "天", SourceMarked)

	added, err := s.Merge(map[string][]string{
		"ㄊㄧㄢ":      {"天", "添"},
		"ㄊㄧㄢ-ㄑㄧˋ": {"天氣"},
		"ㄑㄧˋ":      {"氣"},
	}, SourceImported)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if added != 3 {
		t.Errorf("added = %d, want 3", added)
	}

	rows, err := s.List("ㄊㄧㄢ")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("List(prefix) = %v", rows)
	}
	for _, r := range rows {
		if r.Reading[:len("ㄊㄧㄢ")] != "ㄊㄧㄢ" {
			t.Errorf("row outside prefix: %+v", r)
		}
	}
	if rows[0].Text != "天" || rows[0].Source != SourceMarked {
		t.Errorf("first row = %+v", rows[0])
	}
	if rows[1].Text != "添" || rows[1].Source != SourceImported {
		t.Errorf("second row = %+v", rows[1])
	}

	all, _ := s.List("")
	if len(all) != 4 {
		t.Errorf("List() = %d rows", len(all))
	}
}

func TestStoreFeedsModel(t *testing.T) {
	s := openTestStore(t)
	model := lm.NewModel(lm.SampleTable())
	model.SetOnPhraseChange(func(p map[string][]string) {
		if err := s.Save(p); err != nil {
			t.Errorf("Save from callback: %v", err)
		}
	})

	if _, err := model.AddUserPhrase("ㄋㄧˇ-ㄑㄧˋ", "你氣"); err != nil {
		t.Fatal(err)
	}

	phrases, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	reloaded := lm.NewModel(lm.SampleTable())
	reloaded.SetUserPhrases(phrases)
	if !reloaded.HasUserPhrase("ㄋㄧˇ-ㄑㄧˋ", "你氣") {
		t.Errorf("phrase not persisted: %v", phrases)
	}
}
