package logix

import (
	"encoding/binary"
	"testing"
)

// buildTemplateDefinition builds a synthetic raw template definition: a
// member-info table followed by the null-terminated name table (template
// name first, then one name per member).
func buildTemplateDefinition(members [][3]uint32, names []string) []byte {
	// members[i] = {info, typeVal, offset}
	data := make([]byte, 0, len(members)*8)
	for _, m := range members {
		entry := make([]byte, 8)
		binary.LittleEndian.PutUint16(entry[0:2], uint16(m[0]))
		binary.LittleEndian.PutUint16(entry[2:4], uint16(m[1]))
		binary.LittleEndian.PutUint32(entry[4:8], m[2])
		data = append(data, entry...)
	}
	for _, n := range names {
		data = append(data, []byte(n)...)
		data = append(data, 0)
	}
	return data
}

// TestParseDefinitionBoolBitOffsetFromWireInfo exercises spec property 8 at
// the parser level: BOOL members take their bit index straight from the
// wire info field, even when declared out of bit order (sparse/reserved
// bits), rather than being renumbered by declaration order.
func TestParseDefinitionBoolBitOffsetFromWireInfo(t *testing.T) {
	members := [][3]uint32{
		{5, uint32(TypeBOOL), 0}, // info=5, shares offset 0
		{2, uint32(TypeBOOL), 0}, // info=2, shares offset 0
	}
	data := buildTemplateDefinition(members, []string{"MyUDT", "Bit5", "Bit2"})

	tmpl := &Template{MemberMap: make(map[string]int)}
	if err := tmpl.parseDefinition(data, len(members)); err != nil {
		t.Fatalf("parseDefinition: %v", err)
	}

	if len(tmpl.Members) != 2 {
		t.Fatalf("got %d members, want 2", len(tmpl.Members))
	}

	if tmpl.Members[0].BitOffset != 5 {
		t.Errorf("Bit5.BitOffset = %d, want 5 (declared first but info=5)", tmpl.Members[0].BitOffset)
	}
	if tmpl.Members[1].BitOffset != 2 {
		t.Errorf("Bit2.BitOffset = %d, want 2 (declared second but info=2)", tmpl.Members[1].BitOffset)
	}
}

// TestParseDefinitionArrayMemberUsesInfoAsLength exercises the non-BOOL
// branch of the same wire field: for array members, info holds the element
// count rather than a bit index.
func TestParseDefinitionArrayMemberUsesInfoAsLength(t *testing.T) {
	const dimFlag = uint32(0x2000) // bits 13-14 = 1 dimension
	members := [][3]uint32{
		{10, uint32(TypeDINT) | dimFlag, 0},
	}
	data := buildTemplateDefinition(members, []string{"MyUDT", "Arr"})

	tmpl := &Template{MemberMap: make(map[string]int)}
	if err := tmpl.parseDefinition(data, len(members)); err != nil {
		t.Fatalf("parseDefinition: %v", err)
	}

	if len(tmpl.Members[0].ArrayDims) != 1 || tmpl.Members[0].ArrayDims[0] != 10 {
		t.Errorf("ArrayDims = %v, want [10]", tmpl.Members[0].ArrayDims)
	}
}
