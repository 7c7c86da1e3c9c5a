package database

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"montage/pkg/models"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	db, err := NewDatabase(filepath.Join(t.TempDir(), "montage.db"), 2, logger)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleSnapshot() models.Snapshot {
	return models.Snapshot{
		Tracks: []models.Track{{ID: 1, Position: 0}, {ID: 2, Position: 1}},
		Clips: []models.Clip{
			{ID: 3, SourceID: "intro.wav", TrackID: 1, Position: 0, In: 0, Playtime: 100},
			{ID: 4, SourceID: "outro.wav", TrackID: 2, Position: 120, In: 10, Playtime: 40},
		},
		Compositions: []models.Composition{
			{ID: 5, Kind: "wipe", TrackID: 2, ATrack: 1, Position: 80, Playtime: 30},
		},
		Groups:   []models.Group{{ID: 6, Children: []int{3, 4}}},
		Duration: 160,
	}
}

func TestSaveAndLoadProject(t *testing.T) {
	db := openTestDB(t)

	id, err := db.SaveProject("demo", 25, sampleSnapshot())
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	for _, ref := range []string{id, "demo"} {
		project, snap, err := db.LoadProject(ref)
		if err != nil {
			t.Fatalf("Load %q failed: %v", ref, err)
		}
		if project.ID != id || project.FPS != 25 || project.Tracks != 2 || project.Clips != 2 {
			t.Errorf("Unexpected project %+v", project)
		}
		want := sampleSnapshot()
		if len(snap.Tracks) != 2 || snap.Clips[1] != want.Clips[1] || snap.Compositions[0] != want.Compositions[0] {
			t.Errorf("Snapshot not restored: %+v", snap)
		}
		if len(snap.Groups) != 1 || len(snap.Groups[0].Children) != 2 || snap.Duration != 160 {
			t.Errorf("Groups not restored: %+v", snap.Groups)
		}
	}
}

func TestSaveProjectReplacesContent(t *testing.T) {
	db := openTestDB(t)
	first, _ := db.SaveProject("demo", 25, sampleSnapshot())

	smaller := sampleSnapshot()
	smaller.Clips = smaller.Clips[:1]
	smaller.Groups = nil
	second, err := db.SaveProject("demo", 30, smaller)
	if err != nil {
		t.Fatalf("Second save failed: %v", err)
	}
	if first != second {
		t.Error("Saving under the same name should keep the project id")
	}

	_, snap, err := db.LoadProject("demo")
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Clips) != 1 || len(snap.Groups) != 0 {
		t.Errorf("Old content survived: %+v", snap)
	}
}

func TestListAndDeleteProjects(t *testing.T) {
	db := openTestDB(t)
	db.SaveProject("one", 25, sampleSnapshot())
	db.SaveProject("two", 25, models.Snapshot{})

	projects, err := db.ListProjects()
	if err != nil || len(projects) != 2 {
		t.Fatalf("Expected 2 projects, got %d (%v)", len(projects), err)
	}

	if err := db.DeleteProject("one"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, _, err := db.LoadProject("one"); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("Expected ErrProjectNotFound, got %v", err)
	}
	if err := db.DeleteProject("missing"); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("Expected ErrProjectNotFound, got %v", err)
	}
}

func TestSources(t *testing.T) {
	db := openTestDB(t)
	source := models.Source{ID: "a.wav", Title: "a", Artist: "x", Album: "y", Format: "wav", Length: 25, FilePath: "/lib/a.wav", FileSize: 44}

	if err := db.UpsertSource(source); err != nil {
		t.Fatal(err)
	}
	source.Length = 50
	if err := db.UpsertSource(source); err != nil {
		t.Fatal(err)
	}

	sources, err := db.GetAllSources()
	if err != nil || len(sources) != 1 || sources[0].Length != 50 {
		t.Fatalf("Expected one updated source, got %+v (%v)", sources, err)
	}

	db.RemoveSource("a.wav")
	if sources, _ := db.GetAllSources(); len(sources) != 0 {
		t.Error("Source not removed")
	}
}
