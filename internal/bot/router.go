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

package bot

import (
	"context"
	"fmt"
	"html"

	"github.com/go-logr/logr"

	"github.com/quagsirus/tgwol/internal/device"
	"github.com/quagsirus/tgwol/internal/wol"
)

// Authorizer resolves a device and decides whether a sender may wake it
type Authorizer interface {
	Authorize(senderID int64, name string) (device.Device, device.Decision)
}

// Broadcaster sends a magic packet on the local network
type Broadcaster interface {
	Broadcast(ctx context.Context, packet wol.MagicPacket) error
}

// HelpInfo annotates the help text
type HelpInfo struct {
	Name       string
	Version    string
	Repository string
}

// Reply is the single answer to a command
type Reply struct {
	Text string
	// HTML selects Telegram's HTML parse mode
	HTML bool
	// Keyboard holds reply keyboard buttons, one per row
	Keyboard []string
}

// Router turns commands into replies. It keeps no state between calls and is
// safe for concurrent use.
type Router struct {
	guard     Authorizer
	separator rune
	sender    Broadcaster
	help      HelpInfo
	log       logr.Logger
}

// NewRouter creates a new command router
func NewRouter(guard Authorizer, separator rune, sender Broadcaster, help HelpInfo, log logr.Logger) *Router {
	return &Router{
		guard:     guard,
		separator: separator,
		sender:    sender,
		help:      help,
		log:       log,
	}
}

// Handle runs one command to completion and returns exactly one reply.
// Per-request failures are turned into reply text, never returned.
func (r *Router) Handle(ctx context.Context, cmd Command, senderID int64) Reply {
	switch cmd.Kind {
	case Help:
		return Reply{Text: r.helpText(), HTML: true}
	case Wake:
		return r.wake(ctx, cmd.Argument, senderID)
	default:
		return Reply{Text: Descriptions()}
	}
}

func (r *Router) helpText() string {
	name := r.help.Name
	if name == "" {
		name = "tgwol"
	}
	version := r.help.Version
	if version == "" {
		version = "Unknown"
	}

	link := html.EscapeString(name)
	if r.help.Repository != "" {
		link = fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(r.help.Repository), link)
	}

	return Descriptions() + fmt.Sprintf("\n\n%s v%s", link, html.EscapeString(version))
}

func (r *Router) wake(ctx context.Context, name string, senderID int64) Reply {
	if name == "" {
		wol.WakeRequestsTotal.WithLabelValues(wol.ResultMissingDevice).Inc()
		return Reply{Text: "Please specify a device, e.g.\n<code>/wake mydevice</code>", HTML: true}
	}

	log := r.logger(ctx).WithValues("device", name)

	d, decision := r.guard.Authorize(senderID, name)
	switch decision {
	case device.Authorized:
	case device.Unauthorized:
		wol.WakeRequestsTotal.WithLabelValues(wol.ResultUnauthorized).Inc()
		return Reply{Text: fmt.Sprintf("You (%d) are not authorized to wake %s.", senderID, name)}
	default:
		log.V(1).Info("Device not correctly configured")
		return notConfigured(name)
	}

	mac, err := wol.ParseMAC(d.MACAddress, r.separator)
	if err != nil {
		log.V(1).Info("Configured MAC address is invalid", "error", err.Error())
		return notConfigured(name)
	}

	log.V(1).Info("Sending magic packet", "mac", mac.String())
	if err := r.sender.Broadcast(ctx, wol.BuildMagicPacket(mac)); err != nil {
		wol.WakeRequestsTotal.WithLabelValues(wol.ResultSendFailed).Inc()
		log.Info("Failed to send magic packet", "mac", mac.String(), "error", err.Error())
		return Reply{Text: fmt.Sprintf("There was a problem waking %s.", name)}
	}

	wol.WakeRequestsTotal.WithLabelValues(wol.ResultSent).Inc()
	log.Info("Sent magic packet", "mac", mac.String(), "sender", senderID)
	return Reply{
		Text:     fmt.Sprintf("Sent magic packet to %s!", name),
		Keyboard: []string{"/wake " + name},
	}
}

func notConfigured(name string) Reply {
	wol.WakeRequestsTotal.WithLabelValues(wol.ResultNotConfigured).Inc()
	return Reply{Text: fmt.Sprintf("Device \"%s\" is not correctly configured.", name)}
}

// logger prefers the request-scoped logger carried by ctx
func (r *Router) logger(ctx context.Context) logr.Logger {
	if log, err := logr.FromContext(ctx); err == nil {
		return log
	}
	return r.log
}
