package ingestion

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jonathan/stock-research-agent/internal/types"
)

// ReadSubjectList reads a subject list file: one "code,name" per line, blank lines
// and lines starting with # ignored. A line without a comma is a bare code.
func ReadSubjectList(path string) ([]types.Subject, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("subject list not found: %w", err)
		}
		return nil, fmt.Errorf("failed to open subject list: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ParseSubjectList(f)
}

// ParseSubjectList parses the subject list format from r.
func ParseSubjectList(r io.Reader) ([]types.Subject, error) {
	var subjects []types.Subject
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		code, name, _ := strings.Cut(line, ",")
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		subjects = append(subjects, types.Subject{Code: code, Name: strings.TrimSpace(name)})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read subject list: %w", err)
	}
	return subjects, nil
}
