package orchestrator

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"warden/internal/gate"
)

// TaskFile is the on-disk shape of a task list. YAML and JSON both parse;
// yaml.v3 accepts JSON input.
type TaskFile struct {
	Tasks []gate.Request `yaml:"tasks"`
}

// LoadTasks reads a task file and assigns fallback IDs to tasks without one.
func LoadTasks(path string) ([]gate.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read task file: %w", err)
	}

	var file TaskFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse task file %s: %w", path, err)
	}
	if len(file.Tasks) == 0 {
		return nil, fmt.Errorf("task file %s contains no tasks", path)
	}

	seen := make(map[string]bool, len(file.Tasks))
	for i := range file.Tasks {
		if strings.TrimSpace(file.Tasks[i].ID) == "" {
			file.Tasks[i].ID = fmt.Sprintf("task-%03d", i+1)
		}
		if seen[file.Tasks[i].ID] {
			return nil, fmt.Errorf("task file %s has duplicate task ID %q", path, file.Tasks[i].ID)
		}
		seen[file.Tasks[i].ID] = true
	}
	return file.Tasks, nil
}
