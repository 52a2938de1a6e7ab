// Package prompts holds the embedded oracle prompt templates.
// Each JSON file maps a key to one prompt; files are parsed once on first use.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/jonathan/stock-research-agent/internal/types"
)

//go:embed *.json
var promptFiles embed.FS

var (
	loadOnce sync.Once
	files    map[string]map[string]string
	loadErr  error
)

var placeholder = regexp.MustCompile(`\{\{\.(\w+)\}\}`)

func load() (map[string]map[string]string, error) {
	loadOnce.Do(func() {
		files = make(map[string]map[string]string)
		names, err := fs.Glob(promptFiles, "*.json")
		if err != nil {
			loadErr = err
			return
		}
		for _, name := range names {
			data, err := promptFiles.ReadFile(name)
			if err != nil {
				loadErr = fmt.Errorf("failed to read prompt file %s: %w", name, err)
				return
			}
			var prompts map[string]string
			if err := json.Unmarshal(data, &prompts); err != nil {
				loadErr = fmt.Errorf("failed to parse prompt file %s: %w", name, err)
				return
			}
			files[name] = prompts
		}
	})
	return files, loadErr
}

// Get retrieves a prompt by file name (e.g. "evaluation.json") and key.
func Get(filename, key string) (string, error) {
	all, err := load()
	if err != nil {
		return "", err
	}
	prompts, ok := all[filename]
	if !ok {
		return "", fmt.Errorf("failed to read prompt file %s: not embedded", filename)
	}
	prompt, ok := prompts[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found in %s", key, filename)
	}
	return prompt, nil
}

// MustGet is Get for prompts the binary cannot run without.
func MustGet(filename, key string) string {
	prompt, err := Get(filename, key)
	if err != nil {
		panic(fmt.Sprintf("failed to load prompt: %v", err))
	}
	return prompt
}

// Risk returns the risk-profile wording of a file. Unknown profiles read as medium.
func Risk(filename string, risk types.RiskProfile) string {
	return MustGet(filename, "risk-"+string(risk.Normalize()))
}

// Format replaces {{.Key}} placeholders with values from data.
// Placeholders without a value are left as they are.
func Format(template string, data map[string]string) string {
	return placeholder.ReplaceAllStringFunc(template, func(m string) string {
		key := placeholder.FindStringSubmatch(m)[1]
		if v, ok := data[key]; ok {
			return v
		}
		return m
	})
}

// Placeholders lists the distinct keys a template expects, sorted.
func Placeholders(template string) []string {
	seen := map[string]bool{}
	var keys []string
	for _, m := range placeholder.FindAllStringSubmatch(template, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			keys = append(keys, m[1])
		}
	}
	sort.Strings(keys)
	return keys
}

// List returns the keys of a file, sorted.
func List(filename string) ([]string, error) {
	all, err := load()
	if err != nil {
		return nil, err
	}
	prompts, ok := all[filename]
	if !ok {
		return nil, fmt.Errorf("failed to read prompt file %s: not embedded", filename)
	}
	keys := make([]string, 0, len(prompts))
	for key := range prompts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// Check verifies that every embedded file parses, that files with risk wording
// cover every profile, and that no prompt is blank.
func Check() error {
	all, err := load()
	if err != nil {
		return err
	}
	var problems []string
	for name, prompts := range all {
		hasRisk := false
		for key, prompt := range prompts {
			if strings.TrimSpace(prompt) == "" {
				problems = append(problems, fmt.Sprintf("%s: %s is empty", name, key))
			}
			if strings.HasPrefix(key, "risk-") {
				hasRisk = true
			}
		}
		if !hasRisk {
			continue
		}
		for _, risk := range []types.RiskProfile{types.RiskLow, types.RiskMedium, types.RiskHigh} {
			if _, ok := prompts["risk-"+string(risk)]; !ok {
				problems = append(problems, fmt.Sprintf("%s: missing risk-%s", name, risk))
			}
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("invalid prompts: %s", strings.Join(problems, "; "))
	}
	return nil
}
