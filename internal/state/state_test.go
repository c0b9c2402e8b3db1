package state

import (
	"strings"
	"testing"

	"github.com/leandrodaf/pianosync/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTableAtRest(t *testing.T) {
	tbl := NewTable()
	for ch := uint8(0); ch < Channels; ch++ {
		frame := tbl.Serialize(ch)
		require.Len(t, frame, SnapshotLen)
		assert.Equal(t, strings.Repeat("0", SnapshotLen-1), frame[:SnapshotLen-1])
		assert.Equal(t, hexDigits[ch], frame[ChannelIndex])
	}
}

func TestKeyIndex(t *testing.T) {
	for _, c := range []struct {
		note uint8
		want int
	}{
		{21, 0},
		{60, 39},
		{108, 87},
		{109, 0},
		{20, 87},
		{0, 67},
		{127, 18},
	} {
		assert.Equal(t, c.want, KeyIndex(c.note), "note %d", c.note)
	}
}

func TestKeyDownThenUpReturnsToRest(t *testing.T) {
	for ch := uint8(0); ch < Channels; ch++ {
		for note := 0; note < 128; note += 7 {
			for _, vel := range []uint8{0, 1, 64, 126, 127} {
				tbl := NewTable()
				rest := tbl.Serialize(ch)
				tbl.Apply(protocol.Command{Kind: protocol.KeyDown, Number: uint8(note), Value: vel, Channel: ch})
				assert.NotEqual(t, rest, tbl.Serialize(ch))
				tbl.Apply(protocol.Command{Kind: protocol.KeyUp, Number: uint8(note), Value: 33, Channel: ch})
				assert.Equal(t, rest, tbl.Serialize(ch))
			}
		}
	}
}

func TestKeyDownIdempotent(t *testing.T) {
	once, twice := NewTable(), NewTable()
	cmd := protocol.Command{Kind: protocol.KeyDown, Number: 72, Value: 100, Channel: 5}
	once.Apply(cmd)
	twice.Apply(cmd)
	twice.Apply(cmd)
	assert.Equal(t, once.Serialize(5), twice.Serialize(5))
}

func TestKeyDigitRange(t *testing.T) {
	for v := 0; v <= 127; v++ {
		d := keyDigit(uint8(v))
		assert.True(t, d >= '1' && d <= '9', "velocity %d -> %q", v, d)
	}
	assert.Equal(t, byte('5'), keyDigit(64))
	assert.Equal(t, byte('9'), keyDigit(127))
	assert.Equal(t, byte('1'), keyDigit(0))
}

func TestApply(t *testing.T) {
	for _, c := range []struct {
		name       string
		event      []byte
		recognized bool
		channel    uint8
		index      int
		want       byte
	}{
		{"note on", []byte{0x90, 0x3C, 0x40}, true, 0, 39, '5'},
		{"sustain", []byte{0xB0, 0x40, 0x7F}, true, 0, SustainIndex, '8'},
		{"sostenuto", []byte{0xB2, 0x42, 0x40}, true, 2, SostenutoIndex, '4'},
		{"other controller", []byte{0xB0, 0x07, 0x7F}, false, 0, SustainIndex, '0'},
		{"program change", []byte{0xC0, 0x05}, false, 0, 0, '0'},
		{"channel id", []byte{0x9E, 0x15, 0x7F}, true, 14, ChannelIndex, 'e'},
	} {
		t.Run(c.name, func(t *testing.T) {
			tbl := NewTable()
			ch, ok := tbl.Apply(protocol.Decode(c.event))
			assert.Equal(t, c.recognized, ok)
			assert.Equal(t, c.channel, ch)
			assert.Equal(t, c.want, tbl.Serialize(ch)[c.index])
		})
	}
}

func TestChannelIdentifierStable(t *testing.T) {
	tbl := NewTable()
	for ch := uint8(0); ch < Channels; ch++ {
		got, ok := tbl.Apply(protocol.Command{Kind: protocol.Pedal, Number: protocol.SustainController, Value: 90, Channel: ch})
		require.True(t, ok)
		require.Equal(t, ch, got)
		snap := tbl.Snapshot(ch)
		assert.Equal(t, hexDigits[ch], snap[ChannelIndex])
		assert.Equal(t, byte('5'), snap[SustainIndex])
	}
}
