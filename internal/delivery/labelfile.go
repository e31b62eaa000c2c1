package delivery

import "fmt"

// RawLabelBody is whatever shape a carrier's label response actually takes
// on the wire: either a direct byte payload, or a base64 string (several
// carriers return labels wrapped inside a JSON envelope). ToBytes
// normalizes both into a plain []byte so the rest of the framework never
// has to branch on the carrier's choice of encoding.
type RawLabelBody struct {
	Bytes  []byte
	Base64 string
}

func (b RawLabelBody) ToBytes() ([]byte, error) {
	if len(b.Bytes) > 0 {
		return b.Bytes, nil
	}
	if b.Base64 != "" {
		return decodeBase64(b.Base64)
	}
	return nil, fmt.Errorf("delivery: empty label body")
}

func decodeBase64(s string) ([]byte, error) {
	return base64Decode(s)
}

// SlicePages returns the bytes of a combined multi-page PDF restricted to
// the inclusive [first, last] 1-indexed page range recorded for a single
// parcel in LabelFileResource.PageRanges. The pages are extracted by
// splitPDFPages (pdf.go) through the pdfcpu library.
func (l *LabelFileResource) SlicePages(parcelID string) ([]byte, error) {
	rng, ok := l.PageRanges[parcelID]
	if !ok {
		return nil, fmt.Errorf("delivery: no page range recorded for parcel %q", parcelID)
	}
	return splitPDFPages(l.Data, rng[0], rng[1])
}
