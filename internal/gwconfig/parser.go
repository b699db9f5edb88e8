package gwconfig

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
)

// assignment matches one KEY=VALUE line. The value is a single token with no
// embedded whitespace and may be empty.
var assignment = regexp.MustCompile(`^\s*(\w+)\s*=\s*(\S*)\s*$`)

// maxLineSize bounds a single config line. Longer lines cannot be
// assignments g2_link would accept and are skipped like any other
// non-matching line.
const maxLineSize = 64 * 1024

// Parse opens the config file at path and parses it. Open and read errors
// are returned wrapped, so errors.Is(err, fs.ErrNotExist) still holds.
func Parse(path string) (Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return Map{}, fmt.Errorf("opening config file %s: %w", path, err)
	}
	defer f.Close()

	m, err := ParseReader(f)
	if err != nil {
		return Map{}, fmt.Errorf("reading config file %s: %w", path, err)
	}
	return m, nil
}

// ParseReader parses config assignments from r, one physical line at a time.
func ParseReader(r io.Reader) (Map, error) {
	m := Map{values: make(map[string]Value)}

	br := bufio.NewReaderSize(r, maxLineSize)
	for {
		line, isPrefix, err := br.ReadLine()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Map{}, err
		}
		if isPrefix {
			if err := skipRestOfLine(br); err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				return Map{}, err
			}
			continue
		}

		key, value, ok := parseLine(string(line))
		if !ok {
			continue
		}
		m.assign(key, value)
	}
	return m, nil
}

// skipRestOfLine discards the remainder of a line longer than the buffer.
func skipRestOfLine(br *bufio.Reader) error {
	for {
		_, isPrefix, err := br.ReadLine()
		if err != nil {
			return err
		}
		if !isPrefix {
			return nil
		}
	}
}

// parseLine splits an assignment line into key and value. Lines that do not
// match the assignment grammar report ok=false.
func parseLine(line string) (key, value string, ok bool) {
	groups := assignment.FindStringSubmatch(line)
	if groups == nil {
		return "", "", false
	}
	return groups[1], groups[2], true
}
