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
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Settings are process-level options. They come from the environment and can
// be overridden by command line flags.
type Settings struct {
	ConfigPath    string        `env:"TGWOL_CONFIG"         envDefault:"config"`
	LogLevel      string        `env:"TGWOL_LOG_LEVEL"      envDefault:"info"`
	HealthAddr    string        `env:"TGWOL_HEALTH_ADDR"    envDefault:":8080"`
	MaxConcurrent int           `env:"TGWOL_MAX_CONCURRENT" envDefault:"8"`
	PollTimeout   time.Duration `env:"TGWOL_POLL_TIMEOUT"   envDefault:"60s"`
}

// LoadSettings reads Settings from the process environment
func LoadSettings() (Settings, error) {
	return parseSettings(nil)
}

// parseSettings reads from environ, or from the process environment when nil
func parseSettings(environ map[string]string) (Settings, error) {
	var s Settings
	if err := env.ParseWithOptions(&s, env.Options{Environment: environ}); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}
	if s.MaxConcurrent < 1 {
		return Settings{}, fmt.Errorf("TGWOL_MAX_CONCURRENT must be at least 1, got %d", s.MaxConcurrent)
	}
	return s, nil
}
