package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/hupe1980/corrmatrix/ratings"
)

// readRatingsFile loads "user::item::rating" or tab-separated lines. Extra
// fields such as timestamps are ignored; blank lines and lines starting
// with '#' are skipped.
func readRatingsFile(path string) (*ratings.MemoryRepository, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return readRatings(f)
}

func readRatings(r io.Reader) (*ratings.MemoryRepository, error) {
	repo := ratings.NewMemoryRepository()

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		user, item, value, err := parseRatingLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if err := repo.Add(user, ratings.Rating{ItemID: item, Value: value}); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return repo, nil
}

func parseRatingLine(line string) (user, item int, value float32, err error) {
	var fields []string
	if strings.Contains(line, "::") {
		fields = strings.Split(line, "::")
	} else {
		fields = strings.Split(line, "\t")
	}
	if len(fields) < 3 {
		return 0, 0, 0, fmt.Errorf("want user, item and rating, got %q", line)
	}

	if user, err = strconv.Atoi(strings.TrimSpace(fields[0])); err != nil {
		return 0, 0, 0, fmt.Errorf("user id: %w", err)
	}
	if item, err = strconv.Atoi(strings.TrimSpace(fields[1])); err != nil {
		return 0, 0, 0, fmt.Errorf("item id: %w", err)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("rating: %w", err)
	}
	return user, item, float32(v), nil
}
