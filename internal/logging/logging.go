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

package logging

import (
	"fmt"

	"github.com/go-logr/logr"
	"go.uber.org/zap/zapcore"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

// ParseLevel maps a level name to a zap level. "debug" enables V(1) logs.
func ParseLevel(level string) (zapcore.Level, error) {
	if level == "" {
		return zapcore.InfoLevel, nil
	}
	l, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return l, nil
}

// New builds the process logger. level is the configured default; a
// --zap-log-level flag bound into opts takes precedence.
func New(level string, opts zap.Options) (logr.Logger, error) {
	if opts.Level == nil {
		l, err := ParseLevel(level)
		if err != nil {
			return logr.Discard(), err
		}
		opts.Level = l
	}
	return zap.New(zap.UseFlagOptions(&opts)), nil
}
