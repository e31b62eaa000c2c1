package delivery

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

func base64Decode(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("delivery: decoding base64 label body: %w", err)
	}
	return b, nil
}

// splitPDFPages extracts the inclusive 1-indexed [first, last] page range
// from a combined multi-page PDF, returning a standalone PDF containing
// only those pages. This is the mechanism behind combined-label batch
// responses: a carrier that returns one PDF for a whole batch lets each
// parcel's label be handed out independently via its recorded page range.
func splitPDFPages(combined []byte, first, last int) ([]byte, error) {
	if first < 1 || last < first {
		return nil, fmt.Errorf("delivery: invalid page range [%d,%d]", first, last)
	}
	selection := []string{fmt.Sprintf("%d-%d", first, last)}

	var out bytes.Buffer
	if err := api.Trim(bytes.NewReader(combined), &out, selection, nil); err != nil {
		return nil, fmt.Errorf("delivery: slicing combined PDF pages [%d,%d]: %w", first, last, err)
	}
	return out.Bytes(), nil
}
