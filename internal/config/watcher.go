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

package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"k8s.io/apimachinery/pkg/util/sets"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	// ChangesTotal counts edits observed on the config file
	ChangesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tgwol_config_changes_total",
			Help: "Number of changes observed on the configuration file",
		},
	)

	// InvalidTotal counts edits that left the config file unreadable
	InvalidTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tgwol_config_invalid_total",
			Help: "Number of configuration file changes that failed to parse",
		},
	)
)

func init() {
	metrics.Registry.MustRegister(ChangesTotal, InvalidTotal)
}

// Watcher reports edits to the config file. It never serves lookups: device
// lookups keep reading the file on every command. Its job is to tell the
// operator early when an edit broke the file and which devices came and went.
type Watcher struct {
	path string
	log  logr.Logger

	// devices seen in the last readable version of the file; only touched by
	// the Start goroutine
	devices sets.Set[string]

	// OnChange, when set, is called after every change with the result of
	// re-parsing the file
	OnChange func(err error)
}

// NewWatcher creates a watcher for the config file at path
func NewWatcher(path string, log logr.Logger) *Watcher {
	return &Watcher{
		path:    filepath.Clean(path),
		log:     log,
		devices: sets.New[string](),
	}
}

// Start watches until ctx is cancelled. The parent directory is watched so
// that editors replacing the file by rename are seen.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() {
		if err := fw.Close(); err != nil {
			w.log.Error(err, "Failed to close file watcher")
		}
	}()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	if tree, err := (FileSource{Path: w.path}).Load(); err == nil {
		w.devices = deviceNames(tree)
	}
	w.log.Info("Watching configuration file", "file", w.path, "devices", sets.List(w.devices))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			w.handleChange(event)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Error(err, "File watcher error")
		}
	}
}

func (w *Watcher) handleChange(event fsnotify.Event) {
	ChangesTotal.Inc()

	tree, err := FileSource{Path: w.path}.Load()
	if err != nil {
		InvalidTotal.Inc()
		w.log.Error(err, "Configuration file changed and can no longer be read; wake commands will fail until it is fixed",
			"file", w.path, "op", event.Op.String())
	} else {
		names := deviceNames(tree)
		added, removed := diffDevices(w.devices, names)
		w.devices = names
		w.log.Info("Configuration file changed, next command will use it",
			"file", w.path, "op", event.Op.String(), "added", added, "removed", removed)
	}

	if w.OnChange != nil {
		w.OnChange(err)
	}
}

// deviceNames returns the keys of the devices table
func deviceNames(tree *Tree) sets.Set[string] {
	v, ok := tree.Lookup("devices")
	if !ok {
		return sets.New[string]()
	}
	m, ok := asMap(v)
	if !ok {
		return sets.New[string]()
	}
	return sets.KeySet(m)
}

// diffDevices lists, sorted, the names only in after and the names only in before
func diffDevices(before, after sets.Set[string]) (added, removed []string) {
	return sets.List(after.Difference(before)), sets.List(before.Difference(after))
}
