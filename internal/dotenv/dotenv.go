// Package dotenv reads KEY=VALUE files such as .env.
package dotenv

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Parse reads dotenv lines from r. Blank lines, comments and lines without a
// key are skipped; an "export " prefix and matching outer quotes are
// stripped. Later keys override earlier ones.
func Parse(r io.Reader) (map[string]string, error) {
	out := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, val, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		out[key] = unquote(strings.TrimSpace(val))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func unquote(val string) string {
	if len(val) < 2 {
		return val
	}
	first, last := val[0], val[len(val)-1]
	if first == last && (first == '"' || first == '\'') {
		return val[1 : len(val)-1]
	}
	return val
}

// Read parses the file at path. A missing file yields an empty map.
func Read(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("open env file %q: %w", path, err)
	}
	defer file.Close()

	vars, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("scan env file %q: %w", path, err)
	}
	return vars, nil
}

// Lookup returns the subset of vars not already set in the process
// environment, keeping only keys with prefix.
func Lookup(vars map[string]string, prefix string) map[string]string {
	out := make(map[string]string)
	for k, v := range vars {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if _, exists := os.LookupEnv(k); exists {
			continue
		}
		out[k] = v
	}
	return out
}
