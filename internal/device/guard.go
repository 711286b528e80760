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
	"github.com/go-logr/logr"
)

// Decision is the outcome of an authorization check
type Decision int

const (
	// Authorized allows the wake request
	Authorized Decision = iota
	// Unauthorized rejects a sender that does not own the device
	Unauthorized
	// DeviceMisconfigured means the device could not be resolved
	DeviceMisconfigured
)

func (d Decision) String() string {
	switch d {
	case Authorized:
		return "Authorized"
	case Unauthorized:
		return "Unauthorized"
	case DeviceMisconfigured:
		return "DeviceMisconfigured"
	default:
		return "Unknown"
	}
}

// Guard decides whether a sender may wake a device. It keeps no state; every
// request is checked against a fresh lookup.
type Guard struct {
	registry *Registry
	log      logr.Logger
}

// NewGuard creates a new authorization guard
func NewGuard(registry *Registry, log logr.Logger) *Guard {
	return &Guard{
		registry: registry,
		log:      log,
	}
}

// Check authorizes senderID for d: the sender must own the device, or the
// device must be open to AnyOwner. Rejections are audit logged.
func (g *Guard) Check(senderID int64, d Device) Decision {
	if d.OwnerID == AnyOwner || d.OwnerID == senderID {
		return Authorized
	}

	g.log.Info("Unauthorized user tried to wake device",
		"sender", senderID,
		"device", d.Name)
	return Unauthorized
}

// Authorize resolves name and checks senderID against it. The returned
// Device is only meaningful when the decision is Authorized.
func (g *Guard) Authorize(senderID int64, name string) (Device, Decision) {
	d, err := g.registry.Lookup(name)
	if err != nil {
		return Device{}, DeviceMisconfigured
	}

	decision := g.Check(senderID, d)
	if decision != Authorized {
		return Device{}, decision
	}
	return d, Authorized
}
