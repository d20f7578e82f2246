package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/conneroisu/tessera/internal/types"
)

// DefinitionFiles are the file names a component definition may use, in
// lookup order.
var DefinitionFiles = []string{"component.yaml", "component.yml"}

// FileStore reads component definitions from a directory tree. The type
// "a/b/c" lives at <root>/a/b/c/component.yaml.
type FileStore struct {
	root             string
	reservedPrefixes []string
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithReservedPrefixes replaces the default reserved property prefixes.
func WithReservedPrefixes(prefixes []string) FileStoreOption {
	return func(s *FileStore) {
		s.reservedPrefixes = append([]string(nil), prefixes...)
	}
}

// NewFileStore creates a store rooted at root.
func NewFileStore(root string, opts ...FileStoreOption) *FileStore {
	s := &FileStore{
		root:             filepath.Clean(root),
		reservedPrefixes: DefaultReservedPrefixes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the directory the store reads from.
func (s *FileStore) Root() string { return s.root }

// Open implements Store. The root must exist and be a directory.
func (s *FileStore) Open(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(s.root)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", s.root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open store %s: not a directory", s.root)
	}
	return &fileSession{store: s}, nil
}

// DefinitionPath maps a type name to the directory holding its
// definition. ok is false for names that would escape the root.
func (s *FileStore) DefinitionPath(typeName string) (string, bool) {
	rel := filepath.FromSlash(strings.Trim(typeName, "/"))
	if rel == "" || !filepath.IsLocal(rel) {
		return "", false
	}
	return filepath.Join(s.root, rel), true
}

// TypeNameFor is the inverse of DefinitionPath for a definition file path.
func (s *FileStore) TypeNameFor(file string) (string, bool) {
	rel, err := filepath.Rel(s.root, filepath.Dir(file))
	if err != nil || rel == "." || !filepath.IsLocal(rel) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

type fileSession struct {
	store *FileStore
}

// componentFile is the on-disk definition layout. A section is present
// when its node kind is set, even if the body is empty.
type componentFile struct {
	SuperType  string    `yaml:"superType"`
	Properties yaml.Node `yaml:"properties"`
	Config     yaml.Node `yaml:"config"`
}

func present(node *yaml.Node) bool { return node.Kind != 0 }

func (f *fileSession) Component(ctx context.Context, typeName string) (types.ComponentNode, bool, error) {
	if err := ctx.Err(); err != nil {
		return types.ComponentNode{}, false, err
	}
	dir, ok := f.store.DefinitionPath(typeName)
	if !ok {
		return types.ComponentNode{}, false, nil
	}

	var (
		data []byte
		path string
	)
	for _, name := range DefinitionFiles {
		candidate := filepath.Join(dir, name)
		b, err := os.ReadFile(candidate)
		if err == nil {
			data, path = b, candidate
			break
		}
		if !os.IsNotExist(err) {
			return types.ComponentNode{}, false, fmt.Errorf("read %s: %w", candidate, err)
		}
	}
	if path == "" {
		return types.ComponentNode{}, false, nil
	}

	var def componentFile
	if err := yaml.Unmarshal(data, &def); err != nil {
		return types.ComponentNode{}, false, fmt.Errorf("parse %s: %w", path, err)
	}

	node := types.ComponentNode{
		TypeName:  strings.Trim(typeName, "/"),
		SuperType: strings.Trim(def.SuperType, "/"),
		HasConfig: present(&def.Config),
	}
	if present(&def.Config) {
		node.Config = make(map[string][]types.Value)
		if err := f.collect(node.Config, "", &def.Config); err != nil {
			return types.ComponentNode{}, false, fmt.Errorf("parse %s config: %w", path, err)
		}
	}
	if present(&def.Properties) {
		node.Properties = make(map[string][]types.Value)
		if err := f.collect(node.Properties, "", &def.Properties); err != nil {
			return types.ComponentNode{}, false, fmt.Errorf("parse %s properties: %w", path, err)
		}
	}
	return node, true, nil
}

// collect flattens a mapping node into dst, joining nested keys with ".".
func (f *fileSession) collect(dst map[string][]types.Value, prefix string, node *yaml.Node) error {
	node = resolveAlias(node)
	if node.Kind == yaml.ScalarNode && node.ShortTag() == "!!null" {
		// "config:" with no body is still a configuration marker
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", node.Line)
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		if IsReserved(key, f.store.reservedPrefixes) {
			continue
		}
		name := key
		if prefix != "" {
			name = prefix + "." + key
		}

		value := resolveAlias(node.Content[i+1])
		switch value.Kind {
		case yaml.MappingNode:
			if err := f.collect(dst, name, value); err != nil {
				return err
			}
		case yaml.SequenceNode:
			values := make([]types.Value, 0, len(value.Content))
			for _, item := range value.Content {
				v, ok, err := scalarValue(resolveAlias(item))
				if err != nil {
					return err
				}
				if ok {
					values = append(values, v)
				}
			}
			dst[name] = values
		default:
			v, ok, err := scalarValue(value)
			if err != nil {
				return err
			}
			if ok {
				dst[name] = []types.Value{v}
			}
		}
	}
	return nil
}

func resolveAlias(node *yaml.Node) *yaml.Node {
	for node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}

// scalarValue maps a YAML scalar to a typed value. Nulls yield ok=false.
func scalarValue(node *yaml.Node) (types.Value, bool, error) {
	if node.Kind != yaml.ScalarNode {
		return types.Value{}, false, fmt.Errorf("line %d: expected a scalar", node.Line)
	}

	switch node.ShortTag() {
	case "!!null":
		return types.Value{}, false, nil
	case "!!int", "!!float":
		var n float64
		if err := node.Decode(&n); err != nil {
			return types.Value{}, false, err
		}
		return types.Number(n), true, nil
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return types.Value{}, false, err
		}
		return types.Bool(b), true, nil
	case "!!timestamp":
		var t time.Time
		if err := node.Decode(&t); err != nil {
			return types.Value{}, false, err
		}
		return types.Date(t), true, nil
	default:
		return types.String(node.Value), true, nil
	}
}

func (f *fileSession) Close() error { return nil }
