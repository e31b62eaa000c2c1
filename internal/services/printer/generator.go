// Package printer renders shipping labels for carrier adapters running in
// test mode (or for carriers with no label endpoint of their own), using
// the same gofpdf+qrcode pipeline a live carrier label PDF would otherwise
// come back as.
package printer

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"

	"github.com/shipfabric/shipfabric/internal/delivery"
	"github.com/shipfabric/shipfabric/internal/utils"
)

// labelWidthMM and labelHeightMM match a common thermal shipping label
// size (100x150mm), one per PDF page.
const (
	labelWidthMM  = 100.0
	labelHeightMM = 150.0
)

// GenerateSandboxLabels renders one label page per parcel into a single
// combined PDF, mirroring the shape a carrier's own combined-PDF batch
// label endpoint returns so the rest of the pipeline (page slicing,
// LabelFileResource.PageRanges) needs no sandbox-specific branch.
func GenerateSandboxLabels(parcels []delivery.Parcel, resources map[string]delivery.CarrierResource) (*delivery.LabelFileResource, error) {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: labelWidthMM, Ht: labelHeightMM},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.SetAutoPageBreak(false, 0)

	parcelIDs := make([]string, 0, len(parcels))
	pageRanges := make(map[string][2]int, len(parcels))

	for i, p := range parcels {
		resource := resources[p.ID]
		page := i + 1
		if err := drawLabelPage(pdf, p, resource); err != nil {
			return nil, fmt.Errorf("printer: rendering label for parcel %q: %w", p.ID, err)
		}
		parcelIDs = append(parcelIDs, p.ID)
		pageRanges[p.ID] = [2]int{page, page}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("printer: writing PDF: %w", err)
	}
	return &delivery.LabelFileResource{
		ContentType: "application/pdf",
		Data:        buf.Bytes(),
		ParcelIDs:   parcelIDs,
		PageRanges:  pageRanges,
	}, nil
}

func drawLabelPage(pdf *gofpdf.Fpdf, p delivery.Parcel, resource delivery.CarrierResource) error {
	pdf.AddPage()

	trackingRef := resource.TrackingNumber
	if trackingRef == "" {
		trackingRef = p.ID
	}
	signedRef, err := utils.EckURLEncrypt(trackingRef)
	if err != nil {
		signedRef = trackingRef
	}

	qrSize := 45.0
	qrData := fmt.Sprintf("SANDBOX/%s", signedRef)
	qrPng, err := qrcode.Encode(qrData, qrcode.Medium, 256)
	if err == nil {
		imgName := "qr_" + p.ID
		pdf.RegisterImageOptionsReader(imgName, gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qrPng))
		pdf.ImageOptions(imgName, (labelWidthMM-qrSize)/2, 6, qrSize, qrSize, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	}

	pdf.SetFont("Courier", "B", 9)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(4, 54)
	pdf.CellFormat(labelWidthMM-8, 5, trackingRef, "", 0, "C", false, 0, "")

	pdf.SetFont("Arial", "B", 8)
	pdf.SetXY(4, 64)
	pdf.MultiCell(labelWidthMM-8, 4, addressBlock("TO", p.Recipient), "", "L", false)

	pdf.SetFont("Arial", "", 7)
	pdf.SetXY(4, 110)
	pdf.MultiCell(labelWidthMM-8, 4, addressBlock("FROM", p.Sender), "", "L", false)

	pdf.SetFont("Arial", "", 7)
	pdf.SetXY(4, 140)
	pdf.CellFormat(labelWidthMM-8, 4, fmt.Sprintf("SANDBOX LABEL - %s - %.2fkg", p.Reference, p.WeightKG), "", 0, "L", false, 0, "")

	return pdf.Error()
}

func addressBlock(label string, a delivery.Address) string {
	lines := []string{label + ":", a.Name}
	if a.Company != "" {
		lines = append(lines, a.Company)
	}
	lines = append(lines, fmt.Sprintf("%s %s", a.Street, a.HouseNumber))
	lines = append(lines, fmt.Sprintf("%s %s", a.ZIPCode, a.City))
	lines = append(lines, a.Country)

	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}
