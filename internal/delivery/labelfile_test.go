package delivery

import "testing"

func TestRawLabelBodyToBytesPrefersRawBytes(t *testing.T) {
	b := RawLabelBody{Bytes: []byte("%PDF-raw"), Base64: "aWdub3JlZA=="}
	got, err := b.ToBytes()
	if err != nil {
		t.Fatalf("ToBytes() error = %v", err)
	}
	if string(got) != "%PDF-raw" {
		t.Fatalf("ToBytes() = %q, want the raw bytes field to take precedence", got)
	}
}

func TestRawLabelBodyToBytesDecodesBase64(t *testing.T) {
	b := RawLabelBody{Base64: "aGVsbG8="} // "hello"
	got, err := b.ToBytes()
	if err != nil {
		t.Fatalf("ToBytes() error = %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("ToBytes() = %q, want %q", got, "hello")
	}
}

func TestRawLabelBodyToBytesEmptyIsError(t *testing.T) {
	if _, err := (RawLabelBody{}).ToBytes(); err == nil {
		t.Fatalf("expected error for an empty label body, got nil")
	}
}

func TestRawLabelBodyToBytesInvalidBase64(t *testing.T) {
	if _, err := (RawLabelBody{Base64: "not-valid-base64!!"}).ToBytes(); err == nil {
		t.Fatalf("expected error for invalid base64, got nil")
	}
}

func TestSlicePagesMissingParcelID(t *testing.T) {
	l := &LabelFileResource{PageRanges: map[string][2]int{"p1": {1, 2}}}
	if _, err := l.SlicePages("unknown"); err == nil {
		t.Fatalf("expected error for a parcel with no recorded page range, got nil")
	}
}

func TestSlicePagesRejectsInvalidRange(t *testing.T) {
	l := &LabelFileResource{PageRanges: map[string][2]int{
		"p1": {0, 2}, // first < 1
		"p2": {3, 2}, // last < first
	}}
	if _, err := l.SlicePages("p1"); err == nil {
		t.Fatalf("expected error for a page range starting before page 1, got nil")
	}
	if _, err := l.SlicePages("p2"); err == nil {
		t.Fatalf("expected error for a page range ending before it starts, got nil")
	}
}
