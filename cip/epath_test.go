package cip

import "testing"

// TestSplitTagPathRoundTrip exercises spec property 2: an identifier path
// made of segments matching [A-Za-z_][A-Za-z0-9_]* with optional [i]
// suffixes re-parses to the same segment list. The even length of the
// encoded EPath is checked by TestEPathSymbolEvenLength.
func TestSplitTagPathRoundTrip(t *testing.T) {
	cases := []struct {
		tag   string
		parts []tagPart
	}{
		{"Motor", []tagPart{{name: "Motor"}}},
		{"Program:Main.Tag", []tagPart{{name: "Program:Main"}, {name: "Tag"}}},
		{"Arr[5]", []tagPart{{name: "Arr"}, {index: 5, isIndex: true}}},
		{"Arr[0].Member[12]", []tagPart{
			{name: "Arr"}, {index: 0, isIndex: true}, {name: "Member"}, {index: 12, isIndex: true},
		}},
	}

	for _, tc := range cases {
		got := splitTagPath(tc.tag)
		if len(got) != len(tc.parts) {
			t.Fatalf("splitTagPath(%q) = %+v, want %+v", tc.tag, got, tc.parts)
		}
		for i := range got {
			if got[i] != tc.parts[i] {
				t.Errorf("splitTagPath(%q)[%d] = %+v, want %+v", tc.tag, i, got[i], tc.parts[i])
			}
		}
	}
}

func TestEPathSymbolEvenLength(t *testing.T) {
	tags := []string{"Motor", "Program:Main.Tag", "Arr[65535]", "A[1].B[2].C"}
	for _, tag := range tags {
		path, err := EPath().Symbol(tag).Build()
		if err != nil {
			t.Fatalf("EPath().Symbol(%q).Build(): %v", tag, err)
		}
		if len(path)%2 != 0 {
			t.Errorf("EPath().Symbol(%q) produced odd-length path (%d bytes)", tag, len(path))
		}
	}
}

func TestEPathClassInstanceAttribute(t *testing.T) {
	path, err := EPath().Class(0x6B).Instance(1).Attribute(1).Build()
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x20, 0x6B, 0x24, 0x01, 0x30, 0x01}
	if string(path) != string(want) {
		t.Errorf("EPath Class/Instance/Attribute = % X, want % X", path, want)
	}
}
