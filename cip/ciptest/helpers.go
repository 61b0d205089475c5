package ciptest

import (
	"encoding/binary"
	"fmt"

	"ethlogix/eip"
)

// UnconnectedCIPRequest extracts the raw CIP request from a SendRRData
// command's data segment, assuming direct (unrouted) messaging: a CPF
// envelope with a null address item followed by an unconnected data item.
//
// The command-data wrapper is interfaceHandle(4) + timeout(2) + packet,
// matching eip.EipCommandData's wire layout.
func UnconnectedCIPRequest(data []byte) ([]byte, error) {
	if len(data) < 6 {
		return nil, fmt.Errorf("command data too short: %d bytes", len(data))
	}
	cpf, err := eip.ParseEipCommonPacket(data[6:])
	if err != nil {
		return nil, fmt.Errorf("parse common packet: %w", err)
	}
	if len(cpf.Items) < 2 {
		return nil, fmt.Errorf("expected 2 CPF items, got %d", len(cpf.Items))
	}
	return cpf.Items[1].Data, nil
}

// BuildSendRRDataReply wraps a raw CIP response in the CPF + command-data
// envelope a controller would send back for SendRRData.
func BuildSendRRDataReply(cipResponse []byte) []byte {
	cpf := eip.EipCommonPacket{
		Items: []eip.EipCommonPacketItem{
			{TypeId: eip.CpfAddressNullId, Length: 0, Data: nil},
			{TypeId: eip.CpfUnconnectedMessageId, Length: uint16(len(cipResponse)), Data: cipResponse},
		},
	}
	packet := cpf.Bytes()

	out := make([]byte, 0, 6+len(packet))
	out = binary.LittleEndian.AppendUint32(out, 0) // interface handle
	out = binary.LittleEndian.AppendUint16(out, 0) // timeout
	out = append(out, packet...)
	return out
}
