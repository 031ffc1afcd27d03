package gherkin_parser

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	gherkin "github.com/cucumber/gherkin/go/v26"
	messages "github.com/cucumber/messages/go/v21"
)

const (
	FeatureExtension = ".feature"
)

// Feature is a parsed feature file with its compiled pickles.
type Feature struct {
	URI      string
	Document *messages.GherkinDocument
	Pickles  []*messages.Pickle
}

// Name returns the feature name, or the file name when the document has no
// Feature keyword.
func (f *Feature) Name() string {
	if f.Document != nil && f.Document.Feature != nil && f.Document.Feature.Name != "" {
		return f.Document.Feature.Name
	}
	return strings.TrimSuffix(filepath.Base(f.URI), FeatureExtension)
}

// SearchFeatureFilesIn walks the directories and returns every .feature
// file in lexical order per directory.
func SearchFeatureFilesIn(directories []string) ([]string, error) {
	featureFiles := make([]string, 0)

	for _, directory := range directories {
		found := make([]string, 0)
		err := filepath.WalkDir(directory, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(d.Name(), FeatureExtension) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("could not search feature files in %q: %w", directory, err)
		}
		sort.Strings(found)
		featureFiles = append(featureFiles, found...)
	}
	return featureFiles, nil
}

// SearchFeatureFilesInFS is SearchFeatureFilesIn for an fs.FS rooted at ".".
func SearchFeatureFilesInFS(fsys fs.FS) ([]string, error) {
	featureFiles := make([]string, 0)
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), FeatureExtension) {
			featureFiles = append(featureFiles, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not search embedded feature files: %w", err)
	}
	sort.Strings(featureFiles)
	return featureFiles, nil
}

// ParseGherkinFile parses a single feature document.
func ParseGherkinFile(reader io.Reader) (*messages.GherkinDocument, error) {
	id := (&messages.Incrementing{}).NewId
	return gherkin.ParseGherkinDocument(reader, id)
}

// ParseFeature parses a document and compiles its pickles. newId must be
// unique across every feature of a run.
func ParseFeature(reader io.Reader, uri string, newId func() string) (*Feature, error) {
	document, err := gherkin.ParseGherkinDocument(reader, newId)
	if err != nil {
		return nil, fmt.Errorf("could not parse %s: %w", uri, err)
	}
	document.Uri = uri
	return &Feature{
		URI:      uri,
		Document: document,
		Pickles:  gherkin.Pickles(*document, uri, newId),
	}, nil
}

// LoadFeatures parses the given feature files from disk.
func LoadFeatures(paths []string, newId func() string) ([]*Feature, error) {
	features := make([]*Feature, 0, len(paths))
	for _, path := range paths {
		feature, err := loadFeature(path, newId, func() (io.ReadCloser, error) { return os.Open(path) })
		if err != nil {
			return nil, err
		}
		features = append(features, feature)
	}
	return features, nil
}

// LoadFeaturesFS parses every feature file of fsys.
func LoadFeaturesFS(fsys fs.FS, newId func() string) ([]*Feature, error) {
	paths, err := SearchFeatureFilesInFS(fsys)
	if err != nil {
		return nil, err
	}
	features := make([]*Feature, 0, len(paths))
	for _, path := range paths {
		feature, err := loadFeature(path, newId, func() (io.ReadCloser, error) { return fsys.Open(path) })
		if err != nil {
			return nil, err
		}
		features = append(features, feature)
	}
	return features, nil
}

func loadFeature(path string, newId func() string, open func() (io.ReadCloser, error)) (*Feature, error) {
	f, err := open()
	if err != nil {
		return nil, fmt.Errorf("could not open feature file %q: %w", path, err)
	}
	defer f.Close()
	return ParseFeature(f, filepath.ToSlash(path), newId)
}
