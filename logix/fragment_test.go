package logix

import (
	"encoding/binary"
	"testing"
)

// buildFragmentReply builds a synthetic Read Tag Fragmented CIP reply
// carrying dataType followed by elems (INT values), with the given status
// (StatusPartialTransfer or StatusSuccess).
func buildFragmentReply(status byte, dataType uint16, elems []int16) []byte {
	out := []byte{SvcReadTagFragmented | 0x80, 0x00, status, 0x00}
	out = binary.LittleEndian.AppendUint16(out, dataType)
	for _, v := range elems {
		out = binary.LittleEndian.AppendUint16(out, uint16(v))
	}
	return out
}

// TestFragmentAssemblerContiguous exercises spec property 6 / scenario S4:
// a reply stream split across a 0x06 (more data) boundary reassembles to
// the exact concatenation of both fragments, with offsets advancing
// contiguously.
func TestFragmentAssemblerContiguous(t *testing.T) {
	fragment1 := make([]int16, 300)
	fragment2 := make([]int16, 300)
	for i := range fragment1 {
		fragment1[i] = int16(i)
	}
	for i := range fragment2 {
		fragment2[i] = int16(300 + i)
	}

	reply1 := buildFragmentReply(StatusPartialTransfer, TypeINT, fragment1)
	reply2 := buildFragmentReply(StatusSuccess, TypeINT, fragment2)

	tag1, partial1, err := parseReadTagFragmentedResponse(reply1, "Arr")
	if err != nil {
		t.Fatalf("parse fragment 1: %v", err)
	}
	if !partial1 {
		t.Fatal("fragment 1 should report partial=true (status 0x06)")
	}
	if len(tag1.Bytes) != 600 {
		t.Fatalf("fragment 1 payload = %d bytes, want 600", len(tag1.Bytes))
	}

	offset := uint32(len(tag1.Bytes))

	tag2, partial2, err := parseReadTagFragmentedResponse(reply2, "Arr")
	if err != nil {
		t.Fatalf("parse fragment 2: %v", err)
	}
	if partial2 {
		t.Fatal("fragment 2 should report partial=false (status SUCCESS)")
	}
	if len(tag2.Bytes) != 600 {
		t.Fatalf("fragment 2 payload = %d bytes, want 600", len(tag2.Bytes))
	}

	// Position counters are contiguous: fragment 2 logically starts right
	// where fragment 1 left off.
	if offset != 600 {
		t.Fatalf("offset after fragment 1 = %d, want 600", offset)
	}

	assembled := append(append([]byte{}, tag1.Bytes...), tag2.Bytes...)
	if len(assembled) != 1200 {
		t.Fatalf("assembled length = %d, want 1200", len(assembled))
	}

	for i := 0; i < 600; i++ {
		got := int16(binary.LittleEndian.Uint16(assembled[i*2 : i*2+2]))
		if got != int16(i) {
			t.Fatalf("assembled[%d] = %d, want %d", i, got, i)
		}
	}
}
