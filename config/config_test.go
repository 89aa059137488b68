package config

import "testing"

func TestWriteThenReadRoundTrips(t *testing.T) {
	dir := t.TempDir()

	rec := Record{Version: 1, MmapSize: 1 << 20, JournalSegmentBytes: 4096}
	if err := Write(dir, rec); err != nil {
		t.Fatal(err)
	}

	got, ok, err := Read(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected CONFIG file to be found after Write")
	}
	if got != rec {
		t.Fatalf("got %+v, want %+v", got, rec)
	}
}

func TestReadMissingConfigReportsNotOK(t *testing.T) {
	dir := t.TempDir()

	_, ok, err := Read(dir)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected no CONFIG file in a fresh directory")
	}
}

func TestWriteOverwritesPreviousRecord(t *testing.T) {
	dir := t.TempDir()

	if err := Write(dir, Record{Version: 1, MmapSize: 10, JournalSegmentBytes: 20}); err != nil {
		t.Fatal(err)
	}
	if err := Write(dir, Record{Version: 2, MmapSize: 30, JournalSegmentBytes: 40}); err != nil {
		t.Fatal(err)
	}

	got, ok, err := Read(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || got.Version != 2 || got.MmapSize != 30 || got.JournalSegmentBytes != 40 {
		t.Fatalf("got %+v, %v", got, ok)
	}
}
