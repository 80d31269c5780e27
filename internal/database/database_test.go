package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	d, err := New(context.Background(), filepath.Join(t.TempDir(), "manifest.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return d
}

func TestNewCreatesFile(t *testing.T) {
	d := newTestDB(t)
	if _, err := os.Stat(d.Path()); err != nil {
		t.Errorf("manifest file missing: %v", err)
	}
}

func TestNewMissingDirectory(t *testing.T) {
	_, err := New(context.Background(), filepath.Join(t.TempDir(), "missing", "manifest.db"))
	if err == nil {
		t.Error("New() in a missing directory succeeded")
	}
}

func TestRecordAndGetArtifact(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	generated := time.Unix(1700000000, 0)

	a := Artifact{
		CachePath:   "/cache/200/100/c/a/q75-r0-s0-c0/f410_cae5.jpg",
		SourcePath:  "/srv/www/images/photo.jpg",
		Strategy:    "standard",
		Width:       200,
		Height:      100,
		Format:      "jpg",
		Bytes:       4096,
		GeneratedAt: generated,
	}
	if err := d.RecordArtifact(ctx, a); err != nil {
		t.Fatalf("RecordArtifact() error = %v", err)
	}

	got, err := d.GetArtifact(ctx, a.CachePath)
	if err != nil {
		t.Fatalf("GetArtifact() error = %v", err)
	}
	if got.SourcePath != a.SourcePath || got.Width != 200 || got.Height != 100 || got.Bytes != 4096 {
		t.Errorf("GetArtifact() = %+v", got)
	}
	if !got.GeneratedAt.Equal(generated) {
		t.Errorf("GeneratedAt = %v, want %v", got.GeneratedAt, generated)
	}
	if got.Generations != 1 {
		t.Errorf("Generations = %d, want 1", got.Generations)
	}

	a.Bytes = 5000
	a.GeneratedAt = generated.Add(time.Hour)
	if err := d.RecordArtifact(ctx, a); err != nil {
		t.Fatalf("second RecordArtifact() error = %v", err)
	}
	got, err = d.GetArtifact(ctx, a.CachePath)
	if err != nil {
		t.Fatalf("GetArtifact() error = %v", err)
	}
	if got.Generations != 2 || got.Bytes != 5000 {
		t.Errorf("after regeneration: Generations = %d, Bytes = %d", got.Generations, got.Bytes)
	}
}

func TestGetArtifactNotFound(t *testing.T) {
	d := newTestDB(t)
	_, err := d.GetArtifact(context.Background(), "/nope.jpg")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetArtifact() error = %v, want ErrNotFound", err)
	}
}

func TestRecordArtifactEmptyPath(t *testing.T) {
	d := newTestDB(t)
	if err := d.RecordArtifact(context.Background(), Artifact{}); err == nil {
		t.Error("RecordArtifact() with empty path succeeded")
	}
}

func TestStats(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	empty, err := d.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() on empty manifest error = %v", err)
	}
	if empty.Artifacts != 0 || !empty.Oldest.IsZero() || len(empty.ByStrategy) != 0 {
		t.Errorf("empty Stats() = %+v", empty)
	}

	rows := []Artifact{
		{CachePath: "/c/1.jpg", SourcePath: "/a.jpg", Strategy: "standard", Bytes: 100, GeneratedAt: time.Unix(1000, 0)},
		{CachePath: "/c/2.jpg", SourcePath: "/a.jpg", Strategy: "letterbox", Bytes: 200, GeneratedAt: time.Unix(2000, 0)},
		{CachePath: "/c/3.png", SourcePath: "/b.png", Strategy: "standard", Bytes: 300, GeneratedAt: time.Unix(3000, 0)},
	}
	for _, a := range rows {
		if err := d.RecordArtifact(ctx, a); err != nil {
			t.Fatalf("RecordArtifact(%s) error = %v", a.CachePath, err)
		}
	}
	if err := d.RecordArtifact(ctx, rows[0]); err != nil {
		t.Fatal(err)
	}

	s, err := d.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if s.Artifacts != 3 || s.Sources != 2 || s.TotalBytes != 600 || s.Generations != 4 {
		t.Errorf("Stats() = %+v", s)
	}
	if !s.Oldest.Equal(time.Unix(1000, 0)) || !s.Newest.Equal(time.Unix(3000, 0)) {
		t.Errorf("Oldest = %v, Newest = %v", s.Oldest, s.Newest)
	}

	want := []StrategyStats{
		{Strategy: "letterbox", Artifacts: 1, Bytes: 200},
		{Strategy: "standard", Artifacts: 2, Bytes: 400},
	}
	if len(s.ByStrategy) != len(want) {
		t.Fatalf("ByStrategy = %+v", s.ByStrategy)
	}
	for i := range want {
		if s.ByStrategy[i] != want[i] {
			t.Errorf("ByStrategy[%d] = %+v, want %+v", i, s.ByStrategy[i], want[i])
		}
	}
}

func TestRecordQuery(t *testing.T) {
	// must not panic for either status
	recordQuery("get_artifact", time.Now(), nil)
	recordQuery("get_artifact", time.Now(), errors.New("boom"))
}
