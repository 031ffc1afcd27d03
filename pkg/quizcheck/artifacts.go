package quizcheck

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ErrDuplicateArtifact is returned when a screenshot name is written twice
// within one run.
var ErrDuplicateArtifact = errors.New("artifact already written in this run")

// Artifacts writes screenshot files into one directory. Every name can be
// written once per store; files left by earlier runs are overwritten.
type Artifacts struct {
	dir string

	mu      sync.Mutex
	written map[string]int64
}

// NewArtifacts returns a store rooted at dir. The directory is created on
// the first write.
func NewArtifacts(dir string) *Artifacts {
	return &Artifacts{
		dir:     dir,
		written: make(map[string]int64),
	}
}

func (a *Artifacts) Dir() string {
	return a.dir
}

// Save writes data under name and returns the file path.
func (a *Artifacts) Save(name string, data []byte) (string, error) {
	if err := validateArtifactName(name); err != nil {
		return "", err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.written[name]; ok {
		return "", fmt.Errorf("%w: %s", ErrDuplicateArtifact, name)
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("could not create screenshot directory %q: %w", a.dir, err)
	}

	path := filepath.Join(a.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("could not write screenshot %q: %w", path, err)
	}
	a.written[name] = int64(len(data))
	return path, nil
}

// Size returns the on-disk size of an artifact written by this store.
func (a *Artifacts) Size(name string) (int64, error) {
	a.mu.Lock()
	_, ok := a.written[name]
	a.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("screenshot %q was not taken in this run", name)
	}

	info, err := os.Stat(a.Path(name))
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (a *Artifacts) Path(name string) string {
	return filepath.Join(a.dir, name)
}

// Names returns the written artifact names in lexical order.
func (a *Artifacts) Names() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	names := make([]string, 0, len(a.written))
	for name := range a.written {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func validateArtifactName(name string) error {
	if name == "" {
		return errors.New("empty screenshot name")
	}
	if name != filepath.Base(name) || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("screenshot name %q must be a plain file name", name)
	}
	return nil
}
