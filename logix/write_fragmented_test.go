package logix

import (
	"encoding/binary"
	"testing"
	"time"

	"ethlogix/cip/ciptest"
)

// buildWriteTagFragmentedReply builds a synthetic Write Tag Fragmented CIP
// reply acknowledging the fragment.
func buildWriteTagFragmentedReply() []byte {
	return []byte{SvcWriteTagFragmented | 0x80, 0x00, StatusSuccess, 0x00}
}

// TestWriteTagFragmentedSplitsIntoElementAlignedFragments exercises
// write_array: a value too large for one fragment is split on element
// boundaries at no more than maxWriteFragmentBytes each, with the byte
// offset advancing by exactly the previous fragment's length and the
// element count held constant across every fragment.
func TestWriteTagFragmentedSplitsIntoElementAlignedFragments(t *testing.T) {
	peer, addr, err := ciptest.Listen()
	if err != nil {
		t.Fatalf("start mock peer: %v", err)
	}
	defer peer.Close()

	const elementSize = 4 // DINT
	const totalElements = 300
	value := make([]byte, elementSize*totalElements)
	for i := 0; i < totalElements; i++ {
		binary.LittleEndian.PutUint32(value[i*4:i*4+4], uint32(i))
	}

	var gotOffsets []uint32
	var gotCounts []uint16
	var fragmentLens []int
	var assembled []byte

	peer.Handler = func(cmd uint16, data []byte) []byte {
		if cmd != ciptest.CmdSendRRData {
			return nil
		}
		cipReq, err := ciptest.UnconnectedCIPRequest(data)
		if err != nil || len(cipReq) == 0 {
			return nil
		}
		if cipReq[0] != SvcWriteTagFragmented {
			return nil
		}

		pathWords := int(cipReq[1])
		pos := 2 + pathWords*2
		dataType := binary.LittleEndian.Uint16(cipReq[pos : pos+2])
		pos += 2
		count := binary.LittleEndian.Uint16(cipReq[pos : pos+2])
		pos += 2
		byteOffset := binary.LittleEndian.Uint32(cipReq[pos : pos+4])
		pos += 4
		fragment := cipReq[pos:]

		if dataType != TypeDINT {
			t.Errorf("fragment data type = 0x%04X, want TypeDINT", dataType)
		}
		if len(fragment) > maxWriteFragmentBytes {
			t.Errorf("fragment size %d exceeds cap %d", len(fragment), maxWriteFragmentBytes)
		}
		if len(fragment)%elementSize != 0 {
			t.Errorf("fragment size %d is not element-aligned", len(fragment))
		}

		gotOffsets = append(gotOffsets, byteOffset)
		gotCounts = append(gotCounts, count)
		fragmentLens = append(fragmentLens, len(fragment))
		assembled = append(assembled, fragment...)

		return ciptest.BuildSendRRDataReply(buildWriteTagFragmentedReply())
	}

	client, err := Connect(addr, WithoutConnection(), WithTimeout(2*time.Second))
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer client.Close()

	if err := client.plc.WriteTagFragmented("BigArray", TypeDINT, elementSize, value, totalElements); err != nil {
		t.Fatalf("WriteTagFragmented: %v", err)
	}

	if len(gotOffsets) < 2 {
		t.Fatalf("expected more than one fragment for %d bytes, got %d", len(value), len(gotOffsets))
	}

	wantOffset := uint32(0)
	for i, off := range gotOffsets {
		if off != wantOffset {
			t.Errorf("fragment %d offset = %d, want %d", i, off, wantOffset)
		}
		if gotCounts[i] != totalElements {
			t.Errorf("fragment %d count = %d, want %d (total, not fragment size)", i, gotCounts[i], totalElements)
		}
		wantOffset += uint32(fragmentLens[i])
	}

	if len(assembled) != len(value) {
		t.Fatalf("assembled length = %d, want %d", len(assembled), len(value))
	}
	for i := range value {
		if assembled[i] != value[i] {
			t.Fatalf("assembled[%d] = %d, want %d", i, assembled[i], value[i])
		}
	}
}
