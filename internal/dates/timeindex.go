package dates

import (
	"bufio"
	"os"
	"strings"
)

// FileTimeIndex reads the reference trading hours from a fixed external
// file, one "YYYY-MM-DD HH:MM:SS" timestamp per line. Blank lines and
// #-comments are skipped.
type FileTimeIndex struct {
	Path string
}

func (f FileTimeIndex) Timestamps() ([]string, error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	var out []string
	sc := bufio.NewScanner(fh)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}

// StaticTimeIndex is an in-memory reference sequence, mostly for tests.
type StaticTimeIndex []string

func (s StaticTimeIndex) Timestamps() ([]string, error) {
	return []string(s), nil
}
