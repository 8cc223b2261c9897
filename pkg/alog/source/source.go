// Package source feeds statement lines to the engine: plain text files, HTML
// documents and files that keep growing.
package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LineFunc receives one raw line. Returning an error stops the read.
type LineFunc func(line string) error

// ReadLines calls fn for every line of r, skipping blank lines and # comments.
// It checks ctx between lines.
func ReadLines(ctx context.Context, r io.Reader, fn LineFunc) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Text()
		if skip(line) {
			continue
		}
		if err := fn(line); err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
	}

	return scanner.Err()
}

// File reads the lines of path. Files ending in .html or .htm are reduced to
// the text of their block elements first.
func File(ctx context.Context, path string, fn LineFunc) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if IsHTML(path) {
		lines, err := ExtractHTML(f)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		return ReadLines(ctx, strings.NewReader(strings.Join(lines, "\n")), fn)
	}

	if err := ReadLines(ctx, f, fn); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// IsHTML reports whether path names an HTML document.
func IsHTML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return true
	}
	return false
}

func skip(line string) bool {
	line = strings.TrimSpace(line)
	return line == "" || strings.HasPrefix(line, "#")
}
