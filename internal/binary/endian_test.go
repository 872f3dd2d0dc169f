package binary

import (
	"bytes"
	"testing"
)

func TestUint(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		order Endianness
		want  uint64
	}{
		{"empty", nil, BigEndian, 0},
		{"1 byte", []byte{0xAB}, LittleEndian, 0xAB},
		{"3 byte BE (FLAC block length)", []byte{0x00, 0x00, 0x22}, BigEndian, 34},
		{"3 byte LE", []byte{0x22, 0x00, 0x00}, LittleEndian, 34},
		{"4 byte LE (RIFF size)", []byte{0x24, 0x08, 0x00, 0x00}, LittleEndian, 2084},
		{"4 byte BE (box size)", []byte{0x00, 0x00, 0x08, 0x24}, BigEndian, 2084},
		{"8 byte BE", []byte{0, 0, 0, 1, 0, 0, 0, 0}, BigEndian, 1 << 32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Uint(tt.input, tt.order); got != tt.want {
				t.Errorf("Uint(%x, %v) = %d, want %d", tt.input, tt.order, got, tt.want)
			}

			buf := make([]byte, len(tt.input))
			PutUint(buf, tt.want, tt.order)
			if !bytes.Equal(buf, tt.input) && len(tt.input) > 0 {
				t.Errorf("PutUint(%d, %v) = %x, want %x", tt.want, tt.order, buf, tt.input)
			}
		})
	}
}

func TestReadLEAndBE(t *testing.T) {
	sr := newTestReader([]byte{0x01, 0x02, 0x03, 0x04})

	le, err := ReadLE[uint32](sr, 0, "le")
	if err != nil {
		t.Fatal(err)
	}
	be, err := ReadBE[uint32](sr, 0, "be")
	if err != nil {
		t.Fatal(err)
	}
	if le != 0x04030201 {
		t.Errorf("ReadLE = 0x%08x, want 0x04030201", le)
	}
	if be != 0x01020304 {
		t.Errorf("ReadBE = 0x%08x, want 0x01020304", be)
	}

	if _, err := ReadEndian[uint64](sr, 0, "too long", LittleEndian); err == nil {
		t.Error("ReadEndian past end succeeded, want error")
	}
}

func BenchmarkReadLE_Uint32(b *testing.B) {
	sr := newTestReader(make([]byte, 1024))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = ReadLE[uint32](sr, 100, "benchmark")
	}
}
