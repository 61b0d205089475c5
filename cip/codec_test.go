package cip

import (
	"bytes"
	"math"
	"testing"
)

// TestAtomicRoundTrip exercises spec property 1: for every atomic type,
// unpack(pack(v)) == v and len(pack(v)) == the type's fixed wire size.
func TestAtomicRoundTrip(t *testing.T) {
	signed := []struct {
		code uint16
		vals []int64
	}{
		{CodeSINT, []int64{0, 1, -1, math.MinInt8, math.MaxInt8}},
		{CodeINT, []int64{0, 1, -1, math.MinInt16, math.MaxInt16}},
		{CodeDINT, []int64{0, 1, -1, math.MinInt32, math.MaxInt32}},
		{CodeLINT, []int64{0, 1, -1, math.MinInt64, math.MaxInt64}},
	}
	for _, tc := range signed {
		for _, v := range tc.vals {
			data, err := PackInt(tc.code, v)
			if err != nil {
				t.Fatalf("PackInt(0x%04X, %d): %v", tc.code, v, err)
			}
			if len(data) != TypeSize(tc.code) {
				t.Fatalf("PackInt(0x%04X, %d): got %d bytes, want %d", tc.code, v, len(data), TypeSize(tc.code))
			}
			got, err := UnpackInt(tc.code, data)
			if err != nil {
				t.Fatalf("UnpackInt(0x%04X): %v", tc.code, err)
			}
			if got != v {
				t.Errorf("round-trip 0x%04X: got %d, want %d", tc.code, got, v)
			}
		}
	}

	unsigned := []struct {
		code uint16
		vals []uint64
	}{
		{CodeUSINT, []uint64{0, 1, math.MaxUint8}},
		{CodeUINT, []uint64{0, 1, math.MaxUint16}},
		{CodeUDINT, []uint64{0, 1, math.MaxUint32}},
		{CodeULINT, []uint64{0, 1, math.MaxUint64}},
		{CodeBYTE, []uint64{0, 1, math.MaxUint8}},
		{CodeWORD, []uint64{0, 1, math.MaxUint16}},
		{CodeDWORD, []uint64{0, 1, math.MaxUint32}},
		{CodeLWORD, []uint64{0, 1, math.MaxUint64}},
	}
	for _, tc := range unsigned {
		for _, v := range tc.vals {
			data, err := PackUint(tc.code, v)
			if err != nil {
				t.Fatalf("PackUint(0x%04X, %d): %v", tc.code, v, err)
			}
			if len(data) != TypeSize(tc.code) {
				t.Fatalf("PackUint(0x%04X, %d): got %d bytes, want %d", tc.code, v, len(data), TypeSize(tc.code))
			}
			got, err := UnpackUint(tc.code, data)
			if err != nil {
				t.Fatalf("UnpackUint(0x%04X): %v", tc.code, err)
			}
			if got != v {
				t.Errorf("round-trip 0x%04X: got %d, want %d", tc.code, got, v)
			}
		}
	}

	floats := []struct {
		code uint16
		vals []float64
	}{
		{CodeREAL, []float64{0, 1, -1, 3.14159}},
		{CodeLREAL, []float64{0, 1, -1, 2.718281828459045}},
	}
	for _, tc := range floats {
		for _, v := range tc.vals {
			data, err := PackFloat(tc.code, v)
			if err != nil {
				t.Fatalf("PackFloat(0x%04X, %v): %v", tc.code, v, err)
			}
			if len(data) != TypeSize(tc.code) {
				t.Fatalf("PackFloat(0x%04X, %v): got %d bytes, want %d", tc.code, v, len(data), TypeSize(tc.code))
			}
			got, err := UnpackFloat(tc.code, data)
			if err != nil {
				t.Fatalf("UnpackFloat(0x%04X): %v", tc.code, err)
			}
			if tc.code == CodeREAL {
				// REAL round-trips through float32 precision.
				if float32(got) != float32(v) {
					t.Errorf("round-trip 0x%04X: got %v, want %v", tc.code, got, v)
				}
			} else if got != v {
				t.Errorf("round-trip 0x%04X: got %v, want %v", tc.code, got, v)
			}
		}
	}

	// BOOL shares SINT's wire shape: 0/1 in a single byte.
	data, err := PackInt(CodeBOOL, 1)
	if err != nil || len(data) != 1 || data[0] != 1 {
		t.Fatalf("PackInt(BOOL, 1) = %v, %v", data, err)
	}
}

func TestPackIntWrongType(t *testing.T) {
	if _, err := PackInt(CodeREAL, 1); err == nil {
		t.Fatal("expected error packing REAL as signed int")
	}
}

func TestUnpackUintInsufficientData(t *testing.T) {
	if _, err := UnpackUint(CodeUDINT, []byte{1, 2}); err == nil {
		t.Fatal("expected error unpacking UDINT from 2 bytes")
	}
}

func TestAtomicCodecsLittleEndian(t *testing.T) {
	data, err := PackUint(CodeUDINT, 0x01020304)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, []byte{0x04, 0x03, 0x02, 0x01}) {
		t.Fatalf("PackUint(UDINT): got % X, want little-endian 04 03 02 01", data)
	}
}
