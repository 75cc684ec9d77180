package tle

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Parse reads 3-line NORAD TLE text (name line, line 1, line 2) from r.
// Celestrak's "0 NAME" 3LE name lines are accepted. Malformed entries are
// skipped with a warning log.
func Parse(r io.Reader, logger *slog.Logger) ([]TLEEntry, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		if line := strings.TrimRight(scanner.Text(), "\r\n "); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading TLE data: %w", err)
	}

	var entries []TLEEntry
	for i := 0; i+2 < len(lines); {
		name, line1, line2 := lines[i], lines[i+1], lines[i+2]

		if !strings.HasPrefix(line1, "1 ") || !strings.HasPrefix(line2, "2 ") {
			logger.Warn("skipping malformed TLE entry", "component", "tle", "line_index", i, "name", name)
			i++
			continue
		}
		i += 3

		entry, err := parseEntry(name, line1, line2)
		if err != nil {
			logger.Warn("skipping TLE entry", "component", "tle", "name", name, "error", err)
			continue
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func parseEntry(name, line1, line2 string) (TLEEntry, error) {
	if err := VerifyChecksum(line1); err != nil {
		return TLEEntry{}, fmt.Errorf("line 1: %w", err)
	}
	if err := VerifyChecksum(line2); err != nil {
		return TLEEntry{}, fmt.Errorf("line 2: %w", err)
	}
	noradStr := strings.TrimSpace(line1[2:7])
	noradID, err := strconv.Atoi(noradStr)
	if err != nil {
		return TLEEntry{}, fmt.Errorf("invalid NORAD ID %q: %w", noradStr, err)
	}
	epoch, err := parseEpoch(strings.TrimSpace(line1[18:32]))
	if err != nil {
		return TLEEntry{}, err
	}

	name = strings.TrimSpace(name)
	if rest, ok := strings.CutPrefix(name, "0 "); ok {
		name = strings.TrimSpace(rest)
	}
	return TLEEntry{NORADID: noradID, Name: name, Epoch: epoch, Line1: line1, Line2: line2}, nil
}

// Checksum returns the modulo-10 checksum of the first 68 columns of a TLE
// line: digits count their value, a minus sign counts one.
func Checksum(line string) int {
	sum := 0
	for _, c := range line[:min(len(line), 68)] {
		switch {
		case c >= '0' && c <= '9':
			sum += int(c - '0')
		case c == '-':
			sum++
		}
	}
	return sum % 10
}

// VerifyChecksum checks that line is 69 columns long and that column 69
// holds its checksum.
func VerifyChecksum(line string) error {
	if len(line) != 69 {
		return fmt.Errorf("line length %d, expected 69", len(line))
	}
	if line[68] < '0' || line[68] > '9' {
		return fmt.Errorf("checksum column %q is not a digit", line[68])
	}
	if got, want := Checksum(line), int(line[68]-'0'); got != want {
		return fmt.Errorf("checksum mismatch: computed %d, line says %d", got, want)
	}
	return nil
}

// parseEpoch converts a TLE epoch in YYDDD.DDDDDDDD form. Years 57-99 are 19xx.
func parseEpoch(s string) (time.Time, error) {
	if len(s) < 5 {
		return time.Time{}, fmt.Errorf("epoch string too short: %q", s)
	}

	year, err := strconv.Atoi(s[:2])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch year %q: %w", s[:2], err)
	}
	if year >= 57 {
		year += 1900
	} else {
		year += 2000
	}

	dayOfYear, err := strconv.ParseFloat(s[2:], 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch day %q: %w", s[2:], err)
	}

	// Day 1 is January 1.
	start := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	return start.Add(time.Duration((dayOfYear - 1) * float64(24*time.Hour))), nil
}
