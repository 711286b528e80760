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
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Kind identifies a supported chat command
type Kind int

const (
	// Help lists the supported commands
	Help Kind = iota + 1
	// Wake sends a magic packet to a named device
	Wake
)

// Command is a parsed chat command
type Command struct {
	Kind Kind
	// Argument is the device name for Wake; empty when none was given
	Argument string
}

type commandInfo struct {
	kind        Kind
	name        string
	description string
}

var supportedCommands = []commandInfo{
	{kind: Help, name: "help", description: "display this text."},
	{kind: Wake, name: "wake", description: "wake a device."},
}

// ParseCommand maps a command name (without the leading slash or @botname)
// and its raw argument string to a Command
func ParseCommand(name, args string) (Command, bool) {
	name = strings.ToLower(name)
	for _, c := range supportedCommands {
		if c.name == name {
			return Command{Kind: c.kind, Argument: strings.TrimSpace(args)}, true
		}
	}
	return Command{}, false
}

// Descriptions lists the supported commands, one per line
func Descriptions() string {
	var sb strings.Builder
	sb.WriteString("These commands are supported:")
	for _, c := range supportedCommands {
		sb.WriteString("\n/")
		sb.WriteString(c.name)
		sb.WriteString(" - ")
		sb.WriteString(c.description)
	}
	return sb.String()
}

// botCommands is the command list registered with Telegram
func botCommands() []tgbotapi.BotCommand {
	out := make([]tgbotapi.BotCommand, 0, len(supportedCommands))
	for _, c := range supportedCommands {
		out = append(out, tgbotapi.BotCommand{Command: c.name, Description: c.description})
	}
	return out
}
