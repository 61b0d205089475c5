package cip

import "testing"

// TestMultiServiceOffsetTable exercises spec property 7: for k
// sub-requests, the built reply has k offset-table entries and each
// decoded sub-status is reported at the correct index.
func TestMultiServiceOffsetTable(t *testing.T) {
	path, err := EPath().Symbol("Tag1").Build()
	if err != nil {
		t.Fatal(err)
	}

	requests := []MultiServiceRequest{
		{Service: 0x4C, Path: path, Data: []byte{0xC4, 0x00, 0x01, 0x00}},
		{Service: 0x4C, Path: path, Data: []byte{0xC4, 0x00, 0x01, 0x00}},
		{Service: 0x4C, Path: path, Data: []byte{0xC4, 0x00, 0x01, 0x00}},
	}

	built, err := BuildMultipleServiceRequest(requests)
	if err != nil {
		t.Fatalf("BuildMultipleServiceRequest: %v", err)
	}

	// Simulate a reply: same request count, one offset table, three
	// per-service responses with distinct statuses so index alignment is
	// verifiable.
	reply := buildFakeMultiServiceReply(t, []byte{0x00, 0x04, 0x1E})

	responses, err := ParseMultipleServiceResponse(reply)
	if err != nil {
		t.Fatalf("ParseMultipleServiceResponse: %v", err)
	}
	if len(responses) != 3 {
		t.Fatalf("got %d responses, want 3 (built request was %d bytes)", len(responses), len(built))
	}
	wantStatus := []byte{0x00, 0x04, 0x1E}
	for i, resp := range responses {
		if resp.Status != wantStatus[i] {
			t.Errorf("response[%d].Status = 0x%02X, want 0x%02X", i, resp.Status, wantStatus[i])
		}
	}
}

// buildFakeMultiServiceReply assembles a Multiple Service Packet response
// with one reply entry per status in statuses, each carrying no extended
// status and no data.
func buildFakeMultiServiceReply(t *testing.T, statuses []byte) []byte {
	t.Helper()

	var entries [][]byte
	for range statuses {
		entries = append(entries, make([]byte, 4)) // service, reserved, status, addlStatusSize
	}
	for i, s := range statuses {
		entries[i][0] = 0xCC // reply service
		entries[i][2] = s
		entries[i][3] = 0 // no extended status words
	}

	headerSize := 2 + len(entries)*2
	out := make([]byte, 0, headerSize+len(entries)*4)
	out = append(out, byte(len(entries)), 0x00)

	offset := headerSize
	for range entries {
		out = append(out, byte(offset), byte(offset>>8))
		offset += 4
	}
	for _, e := range entries {
		out = append(out, e...)
	}
	return out
}
