package tle

import (
	"strings"
	"testing"
	"time"
)

func TestParseISS(t *testing.T) {
	entries, err := Parse(strings.NewReader(issTLE), testLogger)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries", len(entries))
	}
	e := entries[0]
	if e.NORADID != 25544 || e.Name != "ISS (ZARYA)" {
		t.Errorf("entry = %+v", e)
	}
	want := time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC)
	if d := e.Epoch.Sub(want); d < -time.Millisecond || d > time.Millisecond {
		t.Errorf("epoch = %v, want %v", e.Epoch, want)
	}
}

func TestParseSkipsGarbageAndAccepts3LE(t *testing.T) {
	data := "garbage line\n0 " + issTLE + "BROKEN\n1 XXXXXU 98067A   24100.50000000\n2 nope\n" + tiangongTLE
	entries, err := Parse(strings.NewReader(data), testLogger)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Name != "ISS (ZARYA)" {
		t.Errorf("3LE name not stripped: %q", entries[0].Name)
	}
}

func TestParseRejectsBadChecksum(t *testing.T) {
	lines := strings.Split(issTLE, "\n")
	// Flip the last digit of the mean motion; the length stays 69.
	l2 := []byte(lines[2])
	l2[62] = '9'
	data := strings.Join([]string{lines[0], lines[1], string(l2)}, "\n") + "\n" + tiangongTLE

	entries, err := Parse(strings.NewReader(data), testLogger)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].NORADID != 48274 {
		t.Fatalf("entries = %+v, want only 48274", entries)
	}
}

func TestVerifyChecksum(t *testing.T) {
	line := strings.Split(issTLE, "\n")[1]
	if err := VerifyChecksum(line); err != nil {
		t.Fatalf("valid line rejected: %v", err)
	}
	tests := map[string]string{
		"short":     line[:68],
		"not digit": line[:68] + "X",
		"mismatch":  line[:68] + string(rune('0'+(Checksum(line)+1)%10)),
	}
	for name, l := range tests {
		if err := VerifyChecksum(l); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestParseEpochCenturies(t *testing.T) {
	for s, year := range map[string]int{"98001.0": 1998, "57001.0": 1957, "56001.0": 2056, "24001.5": 2024} {
		got, err := parseEpoch(s)
		if err != nil {
			t.Fatalf("%s: %v", s, err)
		}
		if got.Year() != year {
			t.Errorf("parseEpoch(%s) year = %d, want %d", s, got.Year(), year)
		}
	}
	if _, err := parseEpoch("12"); err == nil {
		t.Error("short epoch accepted")
	}
}

func TestFindByName(t *testing.T) {
	entries, _ := Parse(strings.NewReader(issTLE+tiangongTLE), testLogger)
	if e, ok := FindByName(entries, "  iss (zarya) "); !ok || e.NORADID != 25544 {
		t.Errorf("FindByName = %+v, %v", e, ok)
	}
	if _, ok := FindByName(entries, "ISS"); ok {
		t.Error("partial name should not match")
	}
	if e, ok := FindByNORAD(entries, 25544); !ok || e.Name != "ISS (ZARYA)" {
		t.Errorf("FindByNORAD = %+v, %v", e, ok)
	}
	if _, ok := FindByNORAD(entries, 1); ok {
		t.Error("unknown catalog number matched")
	}
}

func TestNewDatasetEpochRange(t *testing.T) {
	a := TLEEntry{Epoch: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := TLEEntry{Epoch: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)}
	ds := NewDataset("x", time.Now(), []TLEEntry{b, a})
	if !ds.EpochRange.Min.Equal(a.Epoch) || !ds.EpochRange.Max.Equal(b.Epoch) {
		t.Errorf("range = %+v", ds.EpochRange)
	}
}
