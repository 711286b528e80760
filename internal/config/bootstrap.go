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
	"errors"
	"fmt"

	"github.com/quagsirus/tgwol/internal/wol"
)

// PlaceholderToken is the token value shipped in the example config
const PlaceholderToken = "YOUR_BOT_TOKEN"

// ErrConfigLoad marks configuration problems that prevent startup
var ErrConfigLoad = errors.New("config load error")

// Bootstrap holds the settings read once at startup
type Bootstrap struct {
	Token     string
	Separator rune
	Network   wol.SenderOptions
}

// LoadBootstrap reads and validates the startup settings. Every error wraps
// ErrConfigLoad.
func LoadBootstrap(src Source) (Bootstrap, error) {
	tree, err := src.Load()
	if err != nil {
		return Bootstrap{}, fmt.Errorf("%w: %w", ErrConfigLoad, err)
	}

	var b Bootstrap

	b.Token, err = tree.String("token")
	if err != nil {
		return Bootstrap{}, fmt.Errorf("%w: %w", ErrConfigLoad, err)
	}
	if b.Token == "" || b.Token == PlaceholderToken {
		return Bootstrap{}, fmt.Errorf("%w: token not set", ErrConfigLoad)
	}

	sep, err := optionalString(tree, "mac_separator", string(wol.DefaultMACSeparator))
	if err != nil {
		return Bootstrap{}, err
	}
	b.Separator, err = wol.SeparatorFrom(sep)
	if err != nil {
		return Bootstrap{}, fmt.Errorf("%w: %w", ErrConfigLoad, err)
	}

	if b.Network.BroadcastAddress, err = optionalString(tree, "network.broadcast_address", ""); err != nil {
		return Bootstrap{}, err
	}
	if b.Network.Interface, err = optionalString(tree, "network.interface", ""); err != nil {
		return Bootstrap{}, err
	}
	port, err := tree.Int("network.port")
	switch {
	case errors.Is(err, ErrKeyNotFound):
		b.Network.Port = wol.DefaultWOLPort
	case err != nil:
		return Bootstrap{}, fmt.Errorf("%w: %w", ErrConfigLoad, err)
	case port < 1 || port > 65535:
		return Bootstrap{}, fmt.Errorf("%w: network.port %d out of range (must be 1-65535)", ErrConfigLoad, port)
	default:
		b.Network.Port = int(port)
	}

	return b, nil
}

func optionalString(tree *Tree, key, def string) (string, error) {
	s, err := tree.String(key)
	if errors.Is(err, ErrKeyNotFound) {
		return def, nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrConfigLoad, err)
	}
	return s, nil
}
