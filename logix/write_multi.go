package logix

import (
	"encoding/binary"
	"fmt"

	"ethlogix/cip"
)

// WriteItem is one tag/value pair for a batched write via WriteMultiple.
type WriteItem struct {
	Name     string
	DataType uint16
	Data     []byte
}

// WriteResult carries the per-tag outcome of a WriteMultiple call.
type WriteResult struct {
	Name  string
	Error error
}

// WriteMultiple writes several tags in one Multiple Service Packet request.
// Items that fail to pack (unresolvable tag path, or a structure data type -
// writing raw struct byte blobs is not supported) are reported as failed
// without being sent, and do not affect the status of the other items.
//
// Packing can fail for some items but not others, so failed items are
// collected by index during the first pass and only written into the result
// slice afterward - mutating the input list mid-iteration would shift later
// indices and misalign failures with their tag names.
func (p *PLC) WriteMultiple(items []WriteItem) ([]WriteResult, error) {
	if len(items) == 0 {
		return nil, nil
	}

	results := make([]WriteResult, len(items))

	type packedRequest struct {
		origIndex int
		req       cip.MultiServiceRequest
	}

	var survivors []packedRequest
	var failed []int

	for i, item := range items {
		if IsStructure(item.DataType) {
			failed = append(failed, i)
			continue
		}

		path, err := cip.EPath().Symbol(item.Name).Build()
		if err != nil {
			failed = append(failed, i)
			continue
		}

		data := make([]byte, 0, 4+len(item.Data))
		data = binary.LittleEndian.AppendUint16(data, item.DataType)
		data = binary.LittleEndian.AppendUint16(data, 1) // element count = 1
		data = append(data, item.Data...)

		survivors = append(survivors, packedRequest{
			origIndex: i,
			req: cip.MultiServiceRequest{
				Service: SvcWriteTag,
				Path:    path,
				Data:    data,
			},
		})
	}

	for _, i := range failed {
		results[i] = WriteResult{
			Name:  items[i].Name,
			Error: fmt.Errorf("WriteMultiple: tag %q could not be packed (unresolvable path or unsupported struct write)", items[i].Name),
		}
	}

	if len(survivors) == 0 {
		return results, nil
	}

	requests := make([]cip.MultiServiceRequest, len(survivors))
	for i, s := range survivors {
		requests[i] = s.req
	}

	msData, err := cip.BuildMultipleServiceRequest(requests)
	if err != nil {
		return nil, fmt.Errorf("WriteMultiple: %w", err)
	}

	msPath, _ := cip.EPath().Class(0x02).Instance(1).Build() // Message Router
	reqData := make([]byte, 0, 2+len(msPath)+len(msData))
	reqData = append(reqData, cip.SvcMultipleServicePacket)
	reqData = append(reqData, msPath.WordLen())
	reqData = append(reqData, msPath...)
	reqData = append(reqData, msData...)

	cipResp, err := p.sendMultiServiceRequest(reqData)
	if err != nil {
		return nil, fmt.Errorf("WriteMultiple: %w", err)
	}

	if len(cipResp) < 4 {
		return nil, fmt.Errorf("WriteMultiple: response too short")
	}

	replyService := cipResp[0]
	status := cipResp[2]
	addlStatusSize := cipResp[3]

	if replyService != (cip.SvcMultipleServicePacket | 0x80) {
		return nil, fmt.Errorf("WriteMultiple: unexpected reply service: 0x%02X", replyService)
	}

	// 0x1E ("embedded service error") means the batch itself succeeded but
	// one or more sub-writes failed - still parse to find out which.
	if status != StatusSuccess && status != 0x1E {
		return nil, fmt.Errorf("WriteMultiple: MSP failed with status 0x%02X", status)
	}

	dataStart := 4 + int(addlStatusSize)*2
	if dataStart > len(cipResp) {
		return nil, fmt.Errorf("WriteMultiple: response missing service data")
	}

	responses, err := cip.ParseMultipleServiceResponse(cipResp[dataStart:])
	if err != nil {
		return nil, fmt.Errorf("WriteMultiple: %w", err)
	}
	if len(responses) != len(survivors) {
		return nil, fmt.Errorf("WriteMultiple: expected %d responses, got %d", len(survivors), len(responses))
	}

	for i, resp := range responses {
		origIdx := survivors[i].origIndex
		if resp.Status == StatusSuccess {
			results[origIdx] = WriteResult{Name: items[origIdx].Name}
			continue
		}

		var extStatus uint16
		if len(resp.ExtStatus) >= 2 {
			extStatus = binary.LittleEndian.Uint16(resp.ExtStatus)
		}
		results[origIdx] = WriteResult{
			Name:  items[origIdx].Name,
			Error: fmt.Errorf("CIP error: %s (0x%02X), extended: %s (0x%04X)", cipStatusName(resp.Status), resp.Status, cipExtStatusName(extStatus), extStatus),
		}
	}

	return results, nil
}

// WriteMultiple writes several tags in one batched request. See
// PLC.WriteMultiple for the per-item failure semantics.
func (c *Client) WriteMultiple(items []WriteItem) ([]WriteResult, error) {
	if c == nil || c.plc == nil {
		return nil, fmt.Errorf("WriteMultiple: nil client")
	}
	return c.plc.WriteMultiple(items)
}
