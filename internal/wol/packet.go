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

const (
	// DefaultWOLPort is the standard Wake-on-LAN UDP port
	DefaultWOLPort = 9
	// MagicPacketSize is the size of a WOL magic packet (6 + 6*16 = 102 bytes)
	MagicPacketSize = 6 + 16*6 // 6x0xFF + 16 repetitions of MAC

	syncStreamLen = 6
	macRepeats    = 16
)

// MagicPacket is a complete Wake-on-LAN payload
type MagicPacket [MagicPacketSize]byte

// BuildMagicPacket assembles the magic packet for mac:
// - 6 bytes of 0xFF
// - 16 repetitions of the target MAC address (6 bytes each)
func BuildMagicPacket(mac MACAddress) MagicPacket {
	var packet MagicPacket

	for i := 0; i < syncStreamLen; i++ {
		packet[i] = 0xFF
	}

	for i := 0; i < macRepeats; i++ {
		offset := syncStreamLen + i*len(mac)
		copy(packet[offset:offset+len(mac)], mac[:])
	}

	return packet
}
