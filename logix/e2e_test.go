package logix

import (
	"encoding/binary"
	"testing"
	"time"

	"ethlogix/cip/ciptest"
)

// buildReadTagReply builds a synthetic Read Tag (non-fragmented) CIP reply
// carrying a single data type and value.
func buildReadTagReply(dataType uint16, value []byte) []byte {
	out := []byte{SvcReadTag | 0x80, 0x00, StatusSuccess, 0x00}
	out = binary.LittleEndian.AppendUint16(out, dataType)
	out = append(out, value...)
	return out
}

// TestRegisterSessionOverMockPeer exercises scenario S1: connecting to a
// controller performs RegisterSession and comes back with a usable client.
func TestRegisterSessionOverMockPeer(t *testing.T) {
	peer, addr, err := ciptest.Listen()
	if err != nil {
		t.Fatalf("start mock peer: %v", err)
	}
	defer peer.Close()

	client, err := Connect(addr, WithoutConnection(), WithTimeout(2*time.Second))
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("client should report connected after a successful session registration")
	}
}

// TestReadAtomicTagOverMockPeer exercises scenario S3: reading a scalar DINT
// tag over unconnected messaging round-trips the exact value the mock peer
// supplies.
func TestReadAtomicTagOverMockPeer(t *testing.T) {
	peer, addr, err := ciptest.Listen()
	if err != nil {
		t.Fatalf("start mock peer: %v", err)
	}
	defer peer.Close()

	const wantValue int32 = 424242
	valueBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(valueBytes, uint32(wantValue))

	peer.Handler = func(cmd uint16, data []byte) []byte {
		if cmd != ciptest.CmdSendRRData {
			return nil
		}
		cipReq, err := ciptest.UnconnectedCIPRequest(data)
		if err != nil || len(cipReq) == 0 {
			return nil
		}
		reply := buildReadTagReply(TypeDINT, valueBytes)
		return ciptest.BuildSendRRDataReply(reply)
	}

	client, err := Connect(addr, WithoutConnection(), WithTimeout(2*time.Second))
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer client.Close()

	plc := client.PLC()
	tag, err := plc.ReadTag("TestDint")
	if err != nil {
		t.Fatalf("ReadTag: %v", err)
	}
	if tag.DataType != TypeDINT {
		t.Errorf("DataType = 0x%04X, want TypeDINT", tag.DataType)
	}
	if len(tag.Bytes) != 4 {
		t.Fatalf("Bytes length = %d, want 4", len(tag.Bytes))
	}
	got := int32(binary.LittleEndian.Uint32(tag.Bytes))
	if got != wantValue {
		t.Errorf("decoded value = %d, want %d", got, wantValue)
	}
}
