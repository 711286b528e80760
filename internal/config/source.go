/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config reads the hierarchical bot configuration file and the
// process settings.
//
// A Source is loaded again on every call to Load; nothing is cached between
// calls, so an edit to the file is picked up by the next command.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

var (
	// ErrKeyNotFound is returned when a dotted path does not exist
	ErrKeyNotFound = errors.New("key not found")
	// ErrWrongType is returned when a key exists with an unexpected type
	ErrWrongType = errors.New("wrong type")
)

// Extensions tried, in order, when resolving a config base name
var Extensions = []string{".toml", ".yaml", ".yml", ".json"}

// Source produces a fresh configuration snapshot on every call
type Source interface {
	Load() (*Tree, error)
}

// Tree is one decoded configuration snapshot, addressed by dotted paths
type Tree struct {
	root map[string]any
}

// NewTree wraps already decoded values
func NewTree(root map[string]any) *Tree {
	if root == nil {
		root = map[string]any{}
	}
	return &Tree{root: root}
}

// Lookup walks a dotted path such as "devices.nas.mac"
func (t *Tree) Lookup(key string) (any, bool) {
	var cur any = t.root
	for _, part := range strings.Split(key, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// String returns the string stored at key
func (t *Tree) String(key string) (string, error) {
	v, ok := t.Lookup(key)
	if !ok {
		return "", fmt.Errorf("%s: %w", key, ErrKeyNotFound)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s: %w: expected string, got %T", key, ErrWrongType, v)
	}
	return s, nil
}

// Int returns the integer stored at key. Floats and numeric strings are
// rejected.
func (t *Tree) Int(key string) (int64, error) {
	v, ok := t.Lookup(key)
	if !ok {
		return 0, fmt.Errorf("%s: %w", key, ErrKeyNotFound)
	}

	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case uint64:
		if n > 1<<63-1 {
			return 0, fmt.Errorf("%s: %w: %d overflows int64", key, ErrWrongType, n)
		}
		return int64(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("%s: %w: %q is not an integer", key, ErrWrongType, n)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("%s: %w: expected integer, got %T", key, ErrWrongType, v)
	}
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				continue
			}
			out[ks] = val
		}
		return out, true
	default:
		return nil, false
	}
}

// FileSource reads and decodes Path on every Load. The format is chosen by
// extension: TOML, YAML, or JSON with comments.
type FileSource struct {
	Path string
}

// Load implements Source
func (f FileSource) Load() (*Tree, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", f.Path, err)
	}
	root, err := decode(f.Path, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", f.Path, err)
	}
	return NewTree(root), nil
}

func decode(path string, data []byte) (map[string]any, error) {
	root := map[string]any{}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, &root); err != nil {
			return nil, err
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &root); err != nil {
			return nil, err
		}
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		dec.UseNumber()
		if err := dec.Decode(&root); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}

	return root, nil
}

// ResolveFile finds the config file for name. A name that already carries a
// supported extension is used as is; otherwise each of Extensions is tried.
func ResolveFile(name string) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			if _, err := os.Stat(name); err != nil {
				return "", fmt.Errorf("%w: %w", ErrConfigLoad, err)
			}
			return name, nil
		}
	}

	for _, e := range Extensions {
		candidate := name + e
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w: no %s{%s} found: %w",
		ErrConfigLoad, name, strings.Join(Extensions, ","), fs.ErrNotExist)
}

// StaticSource serves fixed values, used by tests and embedders
type StaticSource struct {
	Values map[string]any
	Err    error
}

// Load implements Source
func (s StaticSource) Load() (*Tree, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return NewTree(s.Values), nil
}
