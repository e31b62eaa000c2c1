package dhl

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shipfabric/shipfabric/internal/delivery"
)

func testParcel(id string) delivery.Parcel {
	return delivery.Parcel{
		ID:        id,
		Reference: "ref-" + id,
		Sender:    delivery.Address{Name: "Sender Co", Country: "DE"},
		Recipient: delivery.Address{Name: "Jane Doe", Country: "DE"},
		WeightKG:  1.5,
	}
}

func TestCapabilities(t *testing.T) {
	a := New(Config{})
	if !delivery.Has(a, delivery.CapCreateParcels) {
		t.Errorf("dhl adapter should declare CapCreateParcels")
	}
	if delivery.Has(a, delivery.CapCloseShipment) {
		t.Errorf("dhl adapter should not declare CapCloseShipment")
	}
	if delivery.Has(a, delivery.CapExchangeAuthToken) {
		t.Errorf("dhl adapter should not declare CapExchangeAuthToken (API-key only)")
	}
}

func TestCreateParcelsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want Bearer test-key", got)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"items":[{"reference":"ref-p1","shipmentId":"S1","trackingNumber":"T1","status":"CREATED"}]}`))
	}))
	defer srv.Close()

	a := New(Config{BaseURL: srv.URL, APIKey: "test-key"})
	results, err := a.CreateParcels(context.Background(), []delivery.Parcel{testParcel("p1")}, delivery.BatchOptions{})
	if err != nil {
		t.Fatalf("CreateParcels() error = %v", err)
	}
	if len(results) != 1 || !results[0].Success || results[0].CarrierID != "S1" {
		t.Fatalf("results = %+v", results)
	}
}

func TestCreateParcelsPartialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"items":[
			{"reference":"ref-p1","shipmentId":"S1","trackingNumber":"T1"},
			{"reference":"ref-p2","error":{"code":"E1","message":"invalid postal code"}}
		]}`))
	}))
	defer srv.Close()

	a := New(Config{BaseURL: srv.URL, APIKey: "key"})
	results, err := a.CreateParcels(context.Background(), []delivery.Parcel{testParcel("p1"), testParcel("p2")}, delivery.BatchOptions{})
	if err != nil {
		t.Fatalf("CreateParcels() error = %v", err)
	}
	if !results[0].Success {
		t.Errorf("results[0].Success = false, want true")
	}
	if results[1].Success {
		t.Errorf("results[1].Success = true, want false")
	}
	if results[1].CarrierID != "" {
		t.Errorf("results[1].CarrierID = %q, want empty on failure", results[1].CarrierID)
	}
}

func TestCreateParcelsMatchesByReferenceNotPosition(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		// Carrier echoes items out of request order.
		w.Write([]byte(`{"items":[
			{"reference":"ref-p2","shipmentId":"S2","trackingNumber":"T2"},
			{"reference":"ref-p1","shipmentId":"S1","trackingNumber":"T1"}
		]}`))
	}))
	defer srv.Close()

	a := New(Config{BaseURL: srv.URL, APIKey: "key"})
	results, err := a.CreateParcels(context.Background(), []delivery.Parcel{testParcel("p1"), testParcel("p2")}, delivery.BatchOptions{})
	if err != nil {
		t.Fatalf("CreateParcels() error = %v", err)
	}
	if results[0].ParcelID != "p1" || results[0].CarrierID != "S1" {
		t.Errorf("results[0] = %+v, want p1/S1 despite out-of-order carrier response", results[0])
	}
	if results[1].ParcelID != "p2" || results[1].CarrierID != "S2" {
		t.Errorf("results[1] = %+v, want p2/S2 despite out-of-order carrier response", results[1])
	}
}

func TestCreateParcelsCarrierFault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"code":"AUTH001","message":"invalid api key"}}`))
	}))
	defer srv.Close()

	a := New(Config{BaseURL: srv.URL, APIKey: "bad-key"})
	_, err := a.CreateParcels(context.Background(), []delivery.Parcel{testParcel("p1")}, delivery.BatchOptions{})
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	ce, ok := err.(*delivery.CarrierError)
	if !ok {
		t.Fatalf("err is not *delivery.CarrierError: %v", err)
	}
	if ce.Category != delivery.CategoryAuth {
		t.Errorf("Category = %s, want %s", ce.Category, delivery.CategoryAuth)
	}
	if ce.CarrierCode != "AUTH001" {
		t.Errorf("CarrierCode = %q, want AUTH001", ce.CarrierCode)
	}
}

func TestCreateLabelsCombinedPDF(t *testing.T) {
	pdfBody := base64.StdEncoding.EncodeToString([]byte("%PDF-fake-combined"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"labelPdfBase64":"` + pdfBody + `","items":[{"shipmentId":"S1","firstPage":1,"lastPage":1},{"shipmentId":"S2","firstPage":2,"lastPage":2}]}`))
	}))
	defer srv.Close()

	a := New(Config{BaseURL: srv.URL, APIKey: "key"})
	resources := []delivery.CarrierResource{
		{ParcelID: "p1", CarrierID: "S1"},
		{ParcelID: "p2", CarrierID: "S2"},
	}
	results, err := a.CreateLabels(context.Background(), []delivery.Parcel{testParcel("p1"), testParcel("p2")}, resources, delivery.BatchOptions{})
	if err != nil {
		t.Fatalf("CreateLabels() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	for _, r := range results {
		if !r.Success {
			t.Errorf("result for %s not successful", r.ParcelID)
		}
		if r.Label == nil {
			t.Fatalf("Label is nil for %s", r.ParcelID)
		}
	}
	// Both results should share the same combined file.
	if results[0].Label != results[1].Label {
		t.Errorf("expected both parcels to reference the same combined LabelFileResource")
	}
	if rng := results[0].Label.PageRanges["p1"]; rng != [2]int{1, 1} {
		t.Errorf("PageRanges[p1] = %v, want [1,1]", rng)
	}
}

func TestCloseShipmentIsNoop(t *testing.T) {
	a := New(Config{})
	if err := a.CloseShipment(context.Background(), "shipment-1", delivery.BatchOptions{}); err != nil {
		t.Errorf("CloseShipment() error = %v, want nil", err)
	}
}

func TestMapStatusKnownAndUnknown(t *testing.T) {
	if mapStatus("DELIVERED") != delivery.TrackingStatusDelivered {
		t.Errorf("mapStatus(DELIVERED) != TrackingStatusDelivered")
	}
	if mapStatus("SOMETHING-NEW") != delivery.TrackingStatusPending {
		t.Errorf("mapStatus(unrecognized) should default to TrackingStatusPending")
	}
}

func TestFetchPickupPointsValidatesCountryCode(t *testing.T) {
	a := New(Config{BaseURL: "http://unused.invalid"})
	_, err := a.FetchPickupPoints(context.Background(), "not-a-code")
	if err == nil {
		t.Fatalf("expected validation error for a malformed country code, got nil")
	}
}

func TestFetchPickupPointsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[{"id":"PP1","providerId":"PRV1","name":"Main Street Locker","type":"Parcel Locker","postalCode":"10115","city":"Berlin","countryCode":"DE","latitude":52.5,"longitude":13.4,"openingHours":{"Monday":"08:00-20:00"},"paymentOptions":["cash","card"]}]`))
	}))
	defer srv.Close()

	a := New(Config{BaseURL: srv.URL, APIKey: "key"})
	points, err := a.FetchPickupPoints(context.Background(), "DE")
	if err != nil {
		t.Fatalf("FetchPickupPoints() error = %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("len(points) = %d, want 1", len(points))
	}
	p := points[0]
	if !p.IsLocker {
		t.Errorf("IsLocker = false, want true for a 'Parcel Locker' type")
	}
	if !p.IsOutdoor {
		t.Errorf("IsOutdoor = false, want true for a detected locker")
	}
	if p.ProviderID != "PRV1" {
		t.Errorf("ProviderID = %q, want PRV1", p.ProviderID)
	}
	if p.Country != "de" {
		t.Errorf("Country = %q, want lower-cased de", p.Country)
	}
	if p.Latitude != 52.5 || p.Longitude != 13.4 {
		t.Errorf("Latitude/Longitude = %v/%v, want 52.5/13.4", p.Latitude, p.Longitude)
	}
	if !p.PickupAllowed || !p.DropoffAllowed {
		t.Errorf("PickupAllowed/DropoffAllowed = %v/%v, want true/true with no restrictive features", p.PickupAllowed, p.DropoffAllowed)
	}
	if len(p.PaymentOptions) != 2 {
		t.Errorf("PaymentOptions = %v, want 2 entries", p.PaymentOptions)
	}
	if len(p.Raw) == 0 {
		t.Errorf("Raw is empty, want the marshaled source point")
	}
	if p.OpeningHours["mon"] != "08:00-20:00" {
		t.Errorf("OpeningHours[mon] = %q", p.OpeningHours["mon"])
	}
}
