package printer

import (
	"strings"
	"testing"

	"github.com/shipfabric/shipfabric/internal/delivery"
)

func TestAddressBlockIncludesAllLines(t *testing.T) {
	addr := delivery.Address{
		Name: "Jane Doe", Company: "Acme GmbH", Street: "Main St", HouseNumber: "12",
		ZIPCode: "10115", City: "Berlin", Country: "DE",
	}
	block := addressBlock("TO", addr)
	for _, want := range []string{"TO:", "Jane Doe", "Acme GmbH", "Main St 12", "10115 Berlin", "DE"} {
		if !strings.Contains(block, want) {
			t.Errorf("addressBlock() missing %q:\n%s", want, block)
		}
	}
}

func TestAddressBlockOmitsEmptyCompany(t *testing.T) {
	addr := delivery.Address{Name: "Jane Doe", Street: "Main St", HouseNumber: "12", ZIPCode: "10115", City: "Berlin", Country: "DE"}
	block := addressBlock("FROM", addr)
	lines := strings.Split(block, "\n")
	for _, l := range lines {
		if l == "" {
			t.Errorf("addressBlock() produced an empty line for a missing company")
		}
	}
}

func TestGenerateSandboxLabelsProducesOnePagePerParcel(t *testing.T) {
	parcels := []delivery.Parcel{
		{ID: "p1", Reference: "ref1", WeightKG: 1.2, Sender: delivery.Address{Name: "S", Country: "DE"}, Recipient: delivery.Address{Name: "R", Country: "DE"}},
		{ID: "p2", Reference: "ref2", WeightKG: 2.4, Sender: delivery.Address{Name: "S", Country: "DE"}, Recipient: delivery.Address{Name: "R", Country: "DE"}},
	}
	resources := map[string]delivery.CarrierResource{
		"p1": {ParcelID: "p1", TrackingNumber: "T1"},
		"p2": {ParcelID: "p2", TrackingNumber: "T2"},
	}

	file, err := GenerateSandboxLabels(parcels, resources)
	if err != nil {
		t.Fatalf("GenerateSandboxLabels() error = %v", err)
	}
	if len(file.Data) == 0 {
		t.Fatalf("Data is empty")
	}
	if file.ContentType != "application/pdf" {
		t.Fatalf("ContentType = %q, want application/pdf", file.ContentType)
	}
	if len(file.ParcelIDs) != 2 {
		t.Fatalf("len(ParcelIDs) = %d, want 2", len(file.ParcelIDs))
	}
	if file.PageRanges["p1"] != [2]int{1, 1} {
		t.Errorf("PageRanges[p1] = %v, want [1,1]", file.PageRanges["p1"])
	}
	if file.PageRanges["p2"] != [2]int{2, 2} {
		t.Errorf("PageRanges[p2] = %v, want [2,2]", file.PageRanges["p2"])
	}
}

func TestGenerateSandboxLabelsEmptyParcelList(t *testing.T) {
	file, err := GenerateSandboxLabels(nil, nil)
	if err != nil {
		t.Fatalf("GenerateSandboxLabels() error = %v", err)
	}
	if len(file.ParcelIDs) != 0 {
		t.Errorf("ParcelIDs = %v, want empty", file.ParcelIDs)
	}
}
