// Package state keeps the per-channel snapshot of held keys and pedals.
package state

import "github.com/leandrodaf/pianosync/internal/protocol"

const (
	// Keys is the number of piano keys in a snapshot.
	Keys = 88
	// LowestKey is the note number of the leftmost piano key.
	LowestKey = 21
	// Channels is the number of MIDI channels.
	Channels = 16

	SustainIndex   = Keys
	SostenutoIndex = Keys + 1
	ChannelIndex   = Keys + 2
	// SnapshotLen is the width of a serialized snapshot.
	SnapshotLen = Keys + 3
)

const hexDigits = "0123456789abcdef"

// Snapshot is the fixed-width textual state of one channel.
type Snapshot [SnapshotLen]byte

// String returns the wire form of the snapshot.
func (s *Snapshot) String() string {
	return string(s[:])
}

// KeyIndex maps a note number onto a snapshot cell. Notes outside the piano
// range wrap around rather than being rejected.
func KeyIndex(note uint8) int {
	return ((int(note)-LowestKey)%Keys + Keys) % Keys
}

// Table holds one snapshot per channel. It is not safe for concurrent use;
// the ingestion loop owns it.
type Table struct {
	channels [Channels]Snapshot
}

// NewTable returns a table at rest: every cell '0' except the trailing
// channel identifier.
func NewTable() *Table {
	t := &Table{}
	for ch := range t.channels {
		s := &t.channels[ch]
		for i := range s {
			s[i] = '0'
		}
		s[ChannelIndex] = hexDigits[ch]
	}
	return t
}

// Apply mutates the table according to cmd. It reports the channel the
// command addressed and whether the command is representable in a snapshot.
func (t *Table) Apply(cmd protocol.Command) (channel uint8, recognized bool) {
	ch := cmd.Channel & 0x0F
	s := &t.channels[ch]
	switch cmd.Kind {
	case protocol.KeyDown:
		s[KeyIndex(cmd.Number)] = keyDigit(cmd.Value)
	case protocol.KeyUp:
		s[KeyIndex(cmd.Number)] = '0'
	case protocol.Pedal:
		switch cmd.Number {
		case protocol.SustainController:
			s[SustainIndex] = '0' + protocol.Quantize(cmd.Value)
		case protocol.SostenutoController:
			s[SostenutoIndex] = '0' + protocol.Quantize(cmd.Value)
		default:
			return ch, false
		}
	default:
		return ch, false
	}
	s[ChannelIndex] = hexDigits[ch]
	return ch, true
}

// Snapshot returns a copy of the given channel's snapshot.
func (t *Table) Snapshot(channel uint8) Snapshot {
	return t.channels[channel&0x0F]
}

// Serialize returns the wire form of the given channel's snapshot.
func (t *Table) Serialize(channel uint8) string {
	return string(t.channels[channel&0x0F][:])
}

func keyDigit(velocity uint8) byte {
	d := protocol.Quantize(velocity) + 1
	if d > 9 {
		d = 9
	}
	return '0' + d
}
