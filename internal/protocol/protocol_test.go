package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecode(t *testing.T) {
	for _, c := range []struct {
		in   []byte
		want Command
	}{
		{[]byte{0x90, 0x3C, 0x40}, Command{KeyDown, 60, 64, 0}},
		{[]byte{0x80, 0x3C, 0x00}, Command{KeyUp, 60, 0, 0}},
		{[]byte{0x8F, 0x15, 0x7F}, Command{KeyUp, 21, 127, 15}},
		{[]byte{0x9A, 0x6C, 0x01}, Command{KeyDown, 108, 1, 10}},
		{[]byte{0xB0, 0x40, 0x7F}, Command{Pedal, 64, 127, 0}},
		{[]byte{0xB3, 0x42, 0x20}, Command{Pedal, 66, 32, 3}},
		{[]byte{0x93, 0x30}, Command{KeyDown, 48, 0, 3}},
		{[]byte{0xC0, 0x05}, Command{}},
		{[]byte{0xE0, 0x00, 0x40}, Command{}},
		{[]byte{0xA0, 0x3C, 0x40}, Command{}},
		{[]byte{0xF8}, Command{}},
		{nil, Command{}},
	} {
		assert.Equal(t, c.want, Decode(c.in), "Decode(% x)", c.in)
	}
}

func TestQuantizeBoundedAndMonotonic(t *testing.T) {
	prev := uint8(0)
	for v := 0; v <= 127; v++ {
		q := Quantize(uint8(v))
		if q > 8 {
			t.Fatalf("Quantize(%d) = %d, want <= 8", v, q)
		}
		if q < prev {
			t.Fatalf("Quantize(%d) = %d < Quantize(%d) = %d", v, q, v-1, prev)
		}
		prev = q
	}
	assert.Equal(t, uint8(0), Quantize(0))
	assert.Equal(t, uint8(4), Quantize(64))
	assert.Equal(t, uint8(8), Quantize(127))
	assert.Equal(t, uint8(8), Quantize(255))
}

func TestHexDump(t *testing.T) {
	assert.Equal(t, "c0-05", HexDump([]byte{0xC0, 0x05}))
	assert.Equal(t, "90-3c-40", HexDump([]byte{0x90, 0x3C, 0x40}))
	assert.Equal(t, "f8", HexDump([]byte{0xF8}))
	assert.Equal(t, "", HexDump(nil))
}

func TestSplit(t *testing.T) {
	for _, c := range []struct {
		name string
		in   []byte
		want [][]byte
	}{
		{"single", []byte{0x90, 0x3C, 0x40}, [][]byte{{0x90, 0x3C, 0x40}}},
		{"note then program", []byte{0x90, 0x3C, 0x40, 0xC1, 0x05}, [][]byte{{0x90, 0x3C, 0x40}, {0xC1, 0x05}}},
		{"realtime between", []byte{0xF8, 0xB0, 0x40, 0x7F}, [][]byte{{0xF8}, {0xB0, 0x40, 0x7F}}},
		{"sysex", []byte{0xF0, 0x7E, 0x01, 0xF7, 0x80, 0x3C, 0x00}, [][]byte{{0xF0, 0x7E, 0x01, 0xF7}, {0x80, 0x3C, 0x00}}},
		{"truncated", []byte{0x90, 0x3C}, [][]byte{{0x90, 0x3C}}},
		{"stray data", []byte{0x3C, 0x40, 0x80, 0x3C, 0x00}, [][]byte{{0x80, 0x3C, 0x00}}},
	} {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, Split(c.in))
		})
	}
}
