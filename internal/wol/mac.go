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

package wol

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultMACSeparator is used when no mac_separator is configured
const DefaultMACSeparator = ':'

// ErrInvalidMACFormat is returned when a MAC address string cannot be decoded
var ErrInvalidMACFormat = errors.New("invalid MAC address format")

// MACAddress is a 6-octet hardware address
type MACAddress [6]byte

// String formats the address lowercase with colons
func (m MACAddress) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x",
		m[0], m[1], m[2], m[3], m[4], m[5])
}

// ParseMAC decodes text made of six 2-digit hex fields joined by sep.
// Hex digits are accepted in either case.
func ParseMAC(text string, sep rune) (MACAddress, error) {
	var mac MACAddress

	fields := strings.Split(text, string(sep))
	if len(fields) != len(mac) {
		return mac, fmt.Errorf("%w: expected %d fields, got %d", ErrInvalidMACFormat, len(mac), len(fields))
	}

	for i, field := range fields {
		if len(field) != 2 {
			return MACAddress{}, fmt.Errorf("%w: field %d %q is not a hex byte", ErrInvalidMACFormat, i, field)
		}
		b, err := hex.DecodeString(field)
		if err != nil {
			return MACAddress{}, fmt.Errorf("%w: field %d %q is not a hex byte", ErrInvalidMACFormat, i, field)
		}
		mac[i] = b[0]
	}

	return mac, nil
}

// SeparatorFrom returns the first character of a mac_separator setting.
// Hex digits are refused because they would make field splitting ambiguous.
func SeparatorFrom(setting string) (rune, error) {
	if setting == "" {
		return 0, errors.New("mac separator is empty")
	}

	sep, _ := utf8.DecodeRuneInString(setting)
	if sep == utf8.RuneError {
		return 0, fmt.Errorf("mac separator %q is not valid UTF-8", setting)
	}
	if strings.ContainsRune("0123456789abcdefABCDEF", sep) {
		return 0, fmt.Errorf("mac separator %q must not be a hex digit", sep)
	}

	return sep, nil
}
