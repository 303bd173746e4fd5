package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EvaluateAssertions checks every assertion against the project tree at
// root and returns one message per failure.
func EvaluateAssertions(root string, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluate(root, a); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d] %s %s: %v", i, a.Type, a.Path, err))
		}
	}
	return failures
}

func evaluate(root string, a Assertion) error {
	p := filepath.Join(root, filepath.FromSlash(a.Path))

	switch a.Type {
	case AssertFileExists:
		if _, err := os.Stat(p); err != nil {
			return err
		}
		return nil

	case AssertFileAbsent:
		if _, err := os.Stat(p); err == nil {
			return fmt.Errorf("file exists")
		} else if !os.IsNotExist(err) {
			return err
		}
		return nil

	case AssertFileContains, AssertFileNotContains:
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		found := strings.Contains(string(data), a.Text)
		if a.Type == AssertFileContains && !found {
			return fmt.Errorf("text %q not found", a.Text)
		}
		if a.Type == AssertFileNotContains && found {
			return fmt.Errorf("text %q found", a.Text)
		}
		return nil

	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}
