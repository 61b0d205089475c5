package logix

import "testing"

// TestDecodeMemberBoolBitExtraction exercises spec property 8: a BOOL
// member extracts the single bit at its BitOffset within the byte at its
// Offset.
func TestDecodeMemberBoolBitExtraction(t *testing.T) {
	buf := []byte{0b0000_1000}

	member := &TemplateMember{Name: "Bit3", Type: TypeBOOL, Offset: 0, BitOffset: 3}
	got, err := (&Client{}).decodeMember(member, buf)
	if err != nil {
		t.Fatalf("decodeMember: %v", err)
	}
	if got != true {
		t.Errorf("bit 3 of 0b00001000 = %v, want true", got)
	}

	member2 := &TemplateMember{Name: "Bit2", Type: TypeBOOL, Offset: 0, BitOffset: 2}
	got2, err := (&Client{}).decodeMember(member2, buf)
	if err != nil {
		t.Fatalf("decodeMember: %v", err)
	}
	if got2 != false {
		t.Errorf("bit 2 of 0b00001000 = %v, want false", got2)
	}
}

func TestDecodeMemberAtomicScalar(t *testing.T) {
	buf := []byte{0x2A, 0x00, 0x00, 0x00} // DINT 42, little-endian
	member := &TemplateMember{Name: "Count", Type: TypeDINT, Offset: 0}
	got, err := (&Client{}).decodeMember(member, buf)
	if err != nil {
		t.Fatalf("decodeMember: %v", err)
	}
	if got != int64(42) {
		t.Errorf("decodeMember(DINT) = %v (%T), want int64(42)", got, got)
	}
}

func TestDecodeMemberArrayOfAtomics(t *testing.T) {
	buf := []byte{1, 0, 2, 0, 3, 0} // three INTs: 1, 2, 3
	member := &TemplateMember{Name: "Vals", Type: TypeINT, Offset: 0, ArrayDims: []int{3}}
	got, err := (&Client{}).decodeMember(member, buf)
	if err != nil {
		t.Fatalf("decodeMember: %v", err)
	}
	vals, ok := got.([]interface{})
	if !ok || len(vals) != 3 {
		t.Fatalf("decodeMember(INT[3]) = %#v, want a 3-element slice", got)
	}
	for i, want := range []int64{1, 2, 3} {
		if vals[i] != want {
			t.Errorf("vals[%d] = %v, want %d", i, vals[i], want)
		}
	}
}
