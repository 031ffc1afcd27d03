package generator

import (
	"errors"
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"
)

const (
	DefaultFileName = "quizcheck_e2e_test.go"
	DefaultBuildTag = "e2e"

	modulePath = "github.com/denizgursoy/quizcheck"
)

// Options controls where the test file is written.
type Options struct {
	Dir      string // Defaults to the working directory
	FileName string // Defaults to DefaultFileName
	BuildTag string // Empty disables the build constraint
}

// StartGenerator writes one test function per discovered scenario and
// returns the path of the written file.
func StartGenerator(source ScenarioSource, opts Options) (string, error) {
	scenarios, err := source.Discover()
	if err != nil {
		return "", fmt.Errorf("could not discover scenarios: %w", err)
	}
	if len(scenarios) == 0 {
		return "", errors.New("no scenarios to generate tests for")
	}

	dir := opts.Dir
	if dir == "" {
		if dir, err = os.Getwd(); err != nil {
			return "", fmt.Errorf("cannot get working directory: %w", err)
		}
	}
	fileName := opts.FileName
	if fileName == "" {
		fileName = DefaultFileName
	}

	pkgName, err := detectPackageName(dir, fileName)
	if err != nil {
		return "", err
	}
	// the generated file imports internal packages of this module
	pkgPath, err := detectImportPath(dir)
	if err != nil {
		return "", err
	}
	if pkgPath != modulePath && !strings.HasPrefix(pkgPath, modulePath+"/") {
		return "", fmt.Errorf("generated tests must live inside module %s, %s does not", modulePath, pkgPath)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fileName)
	create, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer create.Close()

	if err := NewOutput(pkgName, opts.BuildTag, scenarios).Generate(create); err != nil {
		return "", err
	}
	return path, create.Close()
}

// detectPackageName detects the Go package name for the given directory.
// It first tries to read the package clause from existing Go files, skipping
// the file being generated. If no Go files exist, it falls back to deriving
// the name from the directory path (or the module path for the module root).
func detectPackageName(dir, generated string) (string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return packageNameFromDir(dir)
	}
	if err != nil {
		return "", fmt.Errorf("cannot read directory %s: %w", dir, err)
	}

	fset := token.NewFileSet()
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".go") || name == generated {
			continue
		}

		f, parseErr := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.PackageClauseOnly)
		if parseErr != nil {
			continue
		}
		if f.Name != nil && f.Name.Name != "" {
			return strings.TrimSuffix(f.Name.Name, "_test"), nil
		}
	}

	return packageNameFromDir(dir)
}

// packageNameFromDir derives a valid Go package name from the directory path.
// At the module root it uses the last segment of the module path from go.mod.
func packageNameFromDir(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	goModPath := filepath.Join(absDir, "go.mod")
	if data, readErr := os.ReadFile(goModPath); readErr == nil {
		modFile, parseErr := modfile.Parse(goModPath, data, nil)
		if parseErr == nil && modFile.Module != nil {
			base := filepath.Base(modFile.Module.Mod.Path)
			if name := sanitizePackageName(base); name != "" {
				return name, nil
			}
		}
	}

	base := filepath.Base(absDir)
	if name := sanitizePackageName(base); name != "" {
		return name, nil
	}

	return "", fmt.Errorf("cannot derive package name from directory %s", dir)
}

// sanitizePackageName turns a directory or module path segment into a valid
// Go package name.
func sanitizePackageName(raw string) string {
	if raw == "" || raw == "." || raw == "/" {
		return ""
	}

	var b strings.Builder
	for i, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r - 'A' + 'a')
		case r == '-' || r == '.':
			if i == 0 {
				continue
			}
			b.WriteRune('_')
		}
	}

	name := b.String()
	if name == "" {
		return ""
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "_" + name
	}
	return name
}

// detectImportPath walks up from dir looking for go.mod, then computes the
// full import path as module_path + relative_directory. dir itself may not
// exist yet.
func detectImportPath(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	current := absDir
	for {
		goModPath := filepath.Join(current, "go.mod")
		data, readErr := os.ReadFile(goModPath)
		if readErr == nil {
			modFile, parseErr := modfile.Parse(goModPath, data, nil)
			if parseErr != nil {
				return "", fmt.Errorf("cannot parse go.mod: %w", parseErr)
			}
			if modFile.Module == nil {
				return "", fmt.Errorf("%s has no module directive", goModPath)
			}

			rel, relErr := filepath.Rel(current, absDir)
			if relErr != nil {
				return "", relErr
			}
			if rel == "." {
				return modFile.Module.Mod.Path, nil
			}
			return modFile.Module.Mod.Path + "/" + filepath.ToSlash(rel), nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("go.mod not found in any parent of %s", dir)
		}
		current = parent
	}
}
