package input

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var ErrNoTokens = errors.New("token file not found or is empty")

// ReadLines returns the non-empty trimmed lines of r in order.
func ReadLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func readFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadLines(f)
}

// LoadTokens fails with ErrNoTokens when path is missing or holds no tokens.
func LoadTokens(path string) ([]string, error) {
	tokens, err := readFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoTokens, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read token file %s: %w", path, err)
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoTokens, path)
	}
	return tokens, nil
}

// LoadProxies returns the raw proxy lines of path. Malformed lines are kept;
// they are rejected per worker at bind time.
func LoadProxies(path string) ([]string, error) {
	proxies, err := readFile(path)
	if err != nil {
		return nil, fmt.Errorf("read proxy file %s: %w", path, err)
	}
	return proxies, nil
}
