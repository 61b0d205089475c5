package logix

import "testing"

// TestSymbolTypeDecoding exercises spec property 4.
func TestSymbolTypeDecoding(t *testing.T) {
	// 0xAB50: structured (bit 15), 1 array dimension (bits 14-13 = 01),
	// template_id=0x0B50.
	const structured uint16 = 0xAB50
	if !IsStructure(structured) {
		t.Error("0xAB50 should decode as structured")
	}
	if ArrayDimensions(structured) != 1 {
		t.Errorf("0xAB50 dimensions = %d, want 1", ArrayDimensions(structured))
	}
	if BaseType(structured) != 0x0B50 {
		t.Errorf("0xAB50 template id = 0x%04X, want 0x0B50", BaseType(structured))
	}

	// 0x00C4: atomic DINT, no dimensions.
	const atomic uint16 = 0x00C4
	if IsStructure(atomic) {
		t.Error("0x00C4 should not decode as structured")
	}
	if ArrayDimensions(atomic) != 0 {
		t.Errorf("0x00C4 dimensions = %d, want 0", ArrayDimensions(atomic))
	}
	if BaseType(atomic) != TypeDINT {
		t.Errorf("0x00C4 base type = 0x%04X, want TypeDINT", BaseType(atomic))
	}

	// 0x1003: system tag, filtered out of the readable tag set.
	tag := TagInfo{Name: "SomeInternalTag", TypeCode: 0x1003}
	if !tag.IsSystem() {
		t.Error("0x1003 should be reported as a system tag")
	}
	if tag.IsReadable() {
		t.Error("a system tag must not be reported as readable")
	}
}
