// Package protocol decodes raw MIDI channel messages into the small set of
// commands the piano view understands.
package protocol

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Kind identifies a decoded command.
type Kind uint8

const (
	Unknown Kind = iota
	KeyUp
	KeyDown
	Pedal
)

func (k Kind) String() string {
	switch k {
	case KeyUp:
		return "KeyUp"
	case KeyDown:
		return "KeyDown"
	case Pedal:
		return "Pedal"
	}
	return "Unknown"
}

// Controller numbers with a cell in the snapshot.
const (
	SustainController   = 64
	SostenutoController = 66
)

// Command is a decoded event. For KeyUp and KeyDown, Number is the note and
// Value the velocity; for Pedal, Number is the controller and Value its
// position.
type Command struct {
	Kind    Kind
	Number  uint8
	Value   uint8
	Channel uint8
}

func (c Command) String() string {
	if c.Kind == Unknown {
		return "Unknown"
	}
	return fmt.Sprintf("%s(%d, %d, %d)", c.Kind, c.Number, c.Value, c.Channel)
}

// Decode classifies an event by its status byte. Events shorter than two
// bytes and every status outside note off, note on and control change decode
// to Unknown. A missing second data byte reads as zero.
func Decode(event []byte) Command {
	if len(event) < 2 {
		return Command{}
	}
	status := event[0]
	var kind Kind
	switch status & 0xF0 {
	case 0x80:
		kind = KeyUp
	case 0x90:
		kind = KeyDown
	case 0xB0:
		kind = Pedal
	default:
		return Command{}
	}
	cmd := Command{
		Kind:    kind,
		Number:  event[1] & 0x7F,
		Channel: status & 0x0F,
	}
	if len(event) > 2 {
		cmd.Value = event[2] & 0x7F
	}
	return cmd
}

// Quantize maps a 0-127 value onto 0-8 by linear scaling, flooring.
func Quantize(v uint8) uint8 {
	if v > 127 {
		v = 127
	}
	return uint8(int(v) * 8 / 127)
}

// HexDump renders an event as lowercase two-digit hex bytes joined by hyphens,
// e.g. "90-3c-40".
func HexDump(event []byte) string {
	var b strings.Builder
	b.Grow(len(event) * 3)
	for i, c := range event {
		if i > 0 {
			b.WriteByte('-')
		}
		b.WriteString(hex.EncodeToString([]byte{c}))
	}
	return b.String()
}

// MessageLength returns the length in bytes of a message starting with the
// given status byte, or 0 if the length is variable (SysEx) or the byte is
// not a status byte.
func MessageLength(status byte) int {
	switch {
	case status < 0x80:
		return 0
	case status < 0xC0, status >= 0xE0 && status < 0xF0:
		return 3
	case status < 0xE0:
		return 2
	}
	switch status {
	case 0xF1, 0xF3:
		return 2
	case 0xF2:
		return 3
	case 0xF0:
		return 0
	}
	return 1
}

// Split breaks a buffer holding several back-to-back messages into single
// messages. SysEx runs to its 0xF7 terminator or the end of the buffer.
// Stray data bytes without a status are skipped; running status is not
// supported.
func Split(data []byte) [][]byte {
	var out [][]byte
	for i := 0; i < len(data); {
		status := data[i]
		if status < 0x80 {
			i++
			continue
		}
		n := MessageLength(status)
		if status == 0xF0 {
			end := i + 1
			for end < len(data) && data[end] != 0xF7 {
				end++
			}
			if end < len(data) {
				end++
			}
			n = end - i
		}
		if i+n > len(data) {
			n = len(data) - i
		}
		out = append(out, data[i:i+n])
		i += n
	}
	return out
}
