// Package testutils holds fixtures shared by package tests: component
// definition trees on disk and small waiting helpers.
package testutils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// DefinitionFile is the file name fixtures are written under
const DefinitionFile = "component.yaml"

// BaseDefinition is a root type carrying configuration
const BaseDefinition = `config:
  categories: [component]
  color: blue
  size: m
`

// TeaserDefinition extends site/components/base
const TeaserDefinition = `superType: site/components/base
config:
  categories: [content, styling]
  color: red
  xk_containerClasses: [teaser]
properties:
  variant: wide
`

// WriteDefinition writes body as the definition of typeName under root and
// returns the file path.
func WriteDefinition(t *testing.T, root, typeName, body string) string {
	t.Helper()
	dir := filepath.Join(root, filepath.FromSlash(typeName))
	require.NoError(t, os.MkdirAll(dir, 0o755))

	path := filepath.Join(dir, DefinitionFile)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// CreateComponentTree writes every type name to definition pair into a
// fresh temporary root.
func CreateComponentTree(t *testing.T, definitions map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for typeName, body := range definitions {
		WriteDefinition(t, root, typeName, body)
	}
	return root
}

// CreateTeaserTree writes site/components/teaser over site/components/base.
func CreateTeaserTree(t *testing.T) string {
	t.Helper()
	return CreateComponentTree(t, map[string]string{
		"site/components/base":   BaseDefinition,
		"site/components/teaser": TeaserDefinition,
	})
}

// WaitForFileChange waits for a file to be modified (useful for testing file watchers)
func WaitForFileChange(
	t *testing.T,
	filePath string,
	originalModTime time.Time,
	timeout time.Duration,
) {
	t.Helper()
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		info, err := os.Stat(filePath)
		if err == nil && info.ModTime().After(originalModTime) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("File %s was not modified within %v", filePath, timeout)
}
