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

package device

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	"github.com/quagsirus/tgwol/internal/config"
)

// ErrNotConfigured is returned for unknown devices and for device entries
// that are incomplete or malformed. Callers cannot tell the cases apart.
var ErrNotConfigured = errors.New("device not correctly configured")

// AnyOwner as OwnerID lets every sender wake the device
const AnyOwner int64 = 0

// Device is a registered device as read from one configuration snapshot
type Device struct {
	Name       string
	MACAddress string
	OwnerID    int64
}

// Registry resolves device names against the configuration
type Registry struct {
	source config.Source
	log    logr.Logger
}

// NewRegistry creates a new device registry
func NewRegistry(source config.Source, log logr.Logger) *Registry {
	return &Registry{
		source: source,
		log:    log,
	}
}

// Lookup returns the device registered under name. The configuration is
// loaded again on every call.
func (r *Registry) Lookup(name string) (Device, error) {
	if name == "" || strings.Contains(name, ".") {
		r.log.V(1).Info("Rejected device name", "device", name)
		return Device{}, ErrNotConfigured
	}

	tree, err := r.source.Load()
	if err != nil {
		r.log.V(1).Info("Failed to load configuration", "device", name, "error", err.Error())
		return Device{}, ErrNotConfigured
	}

	mac, err := tree.String(macKey(name))
	if err != nil {
		r.log.V(1).Info("Device MAC address not configured", "device", name, "error", err.Error())
		return Device{}, ErrNotConfigured
	}

	owner, err := tree.Int(ownerKey(name))
	if err != nil {
		r.log.V(1).Info("Device owner not configured", "device", name, "error", err.Error())
		return Device{}, ErrNotConfigured
	}

	return Device{
		Name:       name,
		MACAddress: mac,
		OwnerID:    owner,
	}, nil
}

func macKey(name string) string {
	return fmt.Sprintf("devices.%s.mac", name)
}

func ownerKey(name string) string {
	return fmt.Sprintf("devices.%s.telegram_id", name)
}
