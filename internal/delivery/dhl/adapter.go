// Package dhl implements a synchronous, API-key-authenticated carrier
// adapter: CREATE_PARCELS and CREATE_LABELS are native batch calls and the
// label endpoint returns one combined PDF per batch, which the adapter
// slices into per-parcel pages using the page index the carrier's own
// response reports.
package dhl

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shipfabric/shipfabric/internal/delivery"
)

const code = "dhl"

type Config struct {
	BaseURL        string
	APIKey         string
	AccountingCode string
	UseTestAPI     bool
	Debug          bool
	DebugFull      bool
}

type Adapter struct {
	cfg       Config
	transport *delivery.HTTPClient
}

func New(cfg Config) *Adapter {
	return &Adapter{
		cfg: cfg,
		transport: delivery.NewHTTPClient(delivery.TransportConfig{
			BaseURL:   cfg.BaseURL,
			Debug:     cfg.Debug,
			DebugFull: cfg.DebugFull,
		}),
	}
}

func (a *Adapter) Code() string        { return code }
func (a *Adapter) DisplayName() string { return "DHL Business Customer Shipping" }

func (a *Adapter) Capabilities() []delivery.Capability {
	return []delivery.Capability{
		delivery.CapCreateParcel,
		delivery.CapCreateParcels,
		delivery.CapCreateLabel,
		delivery.CapCreateLabels,
		delivery.CapTrack,
		delivery.CapFetchPickupPoints,
		delivery.CapTestModeSupported,
	}
}

func (a *Adapter) headers() map[string]string {
	h := map[string]string{
		"Authorization":  "Bearer " + a.cfg.APIKey,
		"Content-Type":   "application/json",
	}
	if a.cfg.AccountingCode != "" {
		h["X-Accounting-Code"] = a.cfg.AccountingCode
	}
	return h
}

// wireShipment is the carrier's own parcel-creation request shape.
type wireShipment struct {
	Reference   string      `json:"reference"`
	Sender      wireAddress `json:"shipper"`
	Recipient   wireAddress `json:"receiver"`
	WeightKG    float64     `json:"weightInKG"`
	LengthCM    float64     `json:"lengthInCM"`
	WidthCM     float64     `json:"widthInCM"`
	HeightCM    float64     `json:"heightInCM"`
}

type wireAddress struct {
	Name    string `json:"name"`
	Street  string `json:"street"`
	HouseNo string `json:"houseNumber"`
	ZIP     string `json:"postalCode"`
	City    string `json:"city"`
	Country string `json:"countryCode"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
}

func toWireShipment(p delivery.Parcel) wireShipment {
	return wireShipment{
		Reference: p.Reference,
		Sender:    toWireAddress(p.Sender),
		Recipient: toWireAddress(p.Recipient),
		WeightKG:  p.WeightKG,
		LengthCM:  p.Dimensions.LengthCM,
		WidthCM:   p.Dimensions.WidthCM,
		HeightCM:  p.Dimensions.HeightCM,
	}
}

func toWireAddress(a delivery.Address) wireAddress {
	return wireAddress{
		Name:    a.Name,
		Street:  a.Street,
		HouseNo: a.HouseNumber,
		ZIP:     a.ZIPCode,
		City:    a.City,
		Country: a.Country,
		Phone:   a.Phone,
		Email:   a.Email,
	}
}

type wireCreateParcelsRequest struct {
	Shipments []wireShipment `json:"shipments"`
}

type wireCreateParcelsResponseItem struct {
	Reference    string `json:"reference"`
	ShipmentID   string `json:"shipmentId"`
	TrackingNumber string `json:"trackingNumber"`
	Status       string `json:"status"`
	Error        *wireFault `json:"error,omitempty"`
}

type wireCreateParcelsResponse struct {
	Items []wireCreateParcelsResponseItem `json:"items"`
}

type wireFault struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *Adapter) CreateParcels(ctx context.Context, parcels []delivery.Parcel, opts delivery.BatchOptions) ([]delivery.ParcelResult, error) {
	req := wireCreateParcelsRequest{Shipments: make([]wireShipment, len(parcels))}
	for i, p := range parcels {
		req.Shipments[i] = toWireShipment(p)
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("dhl: marshaling request: %w", err)
	}

	path := "/shipments"
	if opts.UseTestAPI || a.cfg.UseTestAPI {
		path = "/test" + path
	}

	resp, err := a.transport.Do(ctx, delivery.Request{Method: "POST", Path: path, Headers: a.headers(), Body: body})
	if err != nil {
		return nil, delivery.NewHTTPError(0, err.Error(), err)
	}
	if resp.StatusCode >= 400 {
		return nil, translateFault(resp)
	}

	var parsed wireCreateParcelsResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return nil, fmt.Errorf("dhl: decoding response: %w", err)
	}
	if len(parsed.Items) != len(parcels) {
		return nil, &delivery.CarrierError{Category: delivery.CategoryPermanent, Message: "dhl: response item count does not match request"}
	}

	// The carrier echoes each item's client reference, which may come back
	// in a different order than requested; match on that, never on array
	// position, and preserve input order in the returned results.
	byReference := make(map[string]wireCreateParcelsResponseItem, len(parsed.Items))
	for _, item := range parsed.Items {
		byReference[item.Reference] = item
	}

	results := make([]delivery.ParcelResult, len(parcels))
	for i, p := range parcels {
		item, ok := byReference[p.Reference]
		if !ok {
			results[i] = delivery.ParcelResult{
				ParcelID: p.ID,
				Success:  false,
				Error:    &delivery.CarrierError{Category: delivery.CategoryPermanent, Message: "dhl: response did not echo a matching reference for parcel " + p.ID},
			}
			continue
		}
		if item.Error != nil {
			results[i] = delivery.ParcelResult{
				ParcelID: p.ID,
				Success:  false,
				Error:    (&delivery.CarrierError{Category: delivery.CategoryPermanent, Message: item.Error.Message}).WithCarrierCode(item.Error.Code),
			}
			continue
		}
		results[i] = delivery.ParcelResult{
			ParcelID:  p.ID,
			Success:   true,
			CarrierID: item.ShipmentID,
			Resource: &delivery.CarrierResource{
				ParcelID:       p.ID,
				CarrierID:      item.ShipmentID,
				TrackingNumber: item.TrackingNumber,
				HTTPStatus:     resp.StatusCode,
				Raw:            resp.Body,
			},
		}
	}
	return results, nil
}

type wireLabelRequest struct {
	ShipmentIDs []string `json:"shipmentIds"`
}

type wireLabelResponseItem struct {
	ShipmentID string `json:"shipmentId"`
	FirstPage  int    `json:"firstPage"`
	LastPage   int    `json:"lastPage"`
	Error      *wireFault `json:"error,omitempty"`
}

type wireLabelResponse struct {
	LabelPDFBase64 string                  `json:"labelPdfBase64"`
	Items          []wireLabelResponseItem `json:"items"`
}

// CreateLabels calls the carrier's batch label endpoint, which returns one
// combined PDF for the whole request plus, per shipment, the page range
// within it — the canonical "combined-PDF batch" shape of scenario 1.
func (a *Adapter) CreateLabels(ctx context.Context, parcels []delivery.Parcel, resources []delivery.CarrierResource, opts delivery.BatchOptions) ([]delivery.LabelResult, error) {
	ids := make([]string, len(resources))
	byCarrierID := make(map[string]string, len(resources)) // carrierID -> parcelID
	for i, r := range resources {
		ids[i] = r.CarrierID
		byCarrierID[r.CarrierID] = r.ParcelID
	}

	body, err := json.Marshal(wireLabelRequest{ShipmentIDs: ids})
	if err != nil {
		return nil, fmt.Errorf("dhl: marshaling label request: %w", err)
	}

	path := "/labels"
	if opts.UseTestAPI || a.cfg.UseTestAPI {
		path = "/test" + path
	}

	resp, err := a.transport.Do(ctx, delivery.Request{Method: "POST", Path: path, Headers: a.headers(), Body: body})
	if err != nil {
		return nil, delivery.NewHTTPError(0, err.Error(), err)
	}
	if resp.StatusCode >= 400 {
		return nil, translateFault(resp)
	}

	var parsed wireLabelResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return nil, fmt.Errorf("dhl: decoding label response: %w", err)
	}

	pdfBytes, err := (delivery.RawLabelBody{Base64: parsed.LabelPDFBase64}).ToBytes()
	if err != nil {
		return nil, fmt.Errorf("dhl: decoding combined label PDF: %w", err)
	}

	file := &delivery.LabelFileResource{
		ContentType: "application/pdf",
		Data:        pdfBytes,
		PageRanges:  make(map[string][2]int, len(parsed.Items)),
	}

	results := make([]delivery.LabelResult, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		parcelID, ok := byCarrierID[item.ShipmentID]
		if !ok {
			continue
		}
		if item.Error != nil {
			results = append(results, delivery.LabelResult{
				ParcelID: parcelID,
				Success:  false,
				Error:    (&delivery.CarrierError{Category: delivery.CategoryPermanent, Message: item.Error.Message}).WithCarrierCode(item.Error.Code),
			})
			continue
		}
		file.ParcelIDs = append(file.ParcelIDs, parcelID)
		file.PageRanges[parcelID] = [2]int{item.FirstPage, item.LastPage}
		results = append(results, delivery.LabelResult{
			ParcelID:  parcelID,
			Success:   true,
			CarrierID: item.ShipmentID,
			Label:     file,
		})
	}
	return results, nil
}

// CloseShipment is a no-op for DHL: labels may be created directly after
// CREATE_PARCEL(S) with no intermediate close step.
func (a *Adapter) CloseShipment(ctx context.Context, shipmentID string, opts delivery.BatchOptions) error {
	return nil
}

type wireTrackResponseItem struct {
	TrackingNumber string           `json:"trackingNumber"`
	Status         string           `json:"status"`
	Events         []wireTrackEvent `json:"events"`
}

type wireTrackEvent struct {
	Timestamp   string `json:"timestamp"`
	StatusCode  string `json:"statusCode"`
	Description string `json:"description"`
	Location    string `json:"location"`
}

func (a *Adapter) Track(ctx context.Context, trackingNumbers []string) ([]delivery.TrackingUpdate, error) {
	body, err := json.Marshal(map[string][]string{"trackingNumbers": trackingNumbers})
	if err != nil {
		return nil, fmt.Errorf("dhl: marshaling track request: %w", err)
	}
	resp, err := a.transport.Do(ctx, delivery.Request{Method: "POST", Path: "/tracking", Headers: a.headers(), Body: body})
	if err != nil {
		return nil, delivery.NewHTTPError(0, err.Error(), err)
	}
	if resp.StatusCode >= 400 {
		return nil, translateFault(resp)
	}

	var items []wireTrackResponseItem
	if err := json.Unmarshal(resp.Body, &items); err != nil {
		return nil, fmt.Errorf("dhl: decoding tracking response: %w", err)
	}

	updates := make([]delivery.TrackingUpdate, len(items))
	for i, item := range items {
		events := make([]delivery.TrackingEvent, len(item.Events))
		for j, e := range item.Events {
			events[j] = delivery.TrackingEvent{
				Status:      mapStatus(e.StatusCode),
				CarrierCode: e.StatusCode,
				Description: e.Description,
				Location:    e.Location,
			}
		}
		updates[i] = delivery.TrackingUpdate{
			TrackingNumber: item.TrackingNumber,
			Status:         mapStatus(item.Status),
			Events:         events,
		}
	}
	return updates, nil
}

// statusTable maps DHL's native English-language status strings onto the
// canonical TrackingStatus enum.
var statusTable = map[string]delivery.TrackingStatus{
	"PRE-TRANSIT":      delivery.TrackingStatusPending,
	"PICKED UP":        delivery.TrackingStatusInTransit,
	"IN TRANSIT":       delivery.TrackingStatusInTransit,
	"OUT FOR DELIVERY": delivery.TrackingStatusOutForDelivery,
	"DELIVERED":        delivery.TrackingStatusDelivered,
	"DELIVERY FAILED":  delivery.TrackingStatusException,
	"EXCEPTION":        delivery.TrackingStatusException,
	"RETURNED":         delivery.TrackingStatusReturned,
	"CANCELLED":        delivery.TrackingStatusCancelled,
}

func mapStatus(raw string) delivery.TrackingStatus {
	if s, ok := statusTable[raw]; ok {
		return s
	}
	return delivery.TrackingStatusPending
}

type wirePickupPoint struct {
	ID             string            `json:"id"`
	ProviderID     string            `json:"providerId,omitempty"`
	Name           string            `json:"name"`
	Type           string            `json:"type"`
	Street         string            `json:"street"`
	ZIP            string            `json:"postalCode"`
	City           string            `json:"city"`
	Country        string            `json:"countryCode"`
	Latitude       float64           `json:"latitude"`
	Longitude      float64           `json:"longitude"`
	Hours          map[string]string `json:"openingHours"`
	Features       []string          `json:"features,omitempty"`
	PaymentOptions []string          `json:"paymentOptions,omitempty"`
}

// ExchangeAuthToken is not supported: this adapter authenticates with a
// static API key, never an OAuth2 exchange.
func (a *Adapter) ExchangeAuthToken(ctx context.Context, creds delivery.Credentials) (delivery.OAuthToken, error) {
	return delivery.OAuthToken{}, &delivery.CarrierError{Category: delivery.CategoryPermanent, Message: "dhl: EXCHANGE_AUTH_TOKEN not supported (API-key only)"}
}

func (a *Adapter) FetchPickupPoints(ctx context.Context, countryCode string) ([]delivery.PickupPoint, error) {
	if err := delivery.ValidateCountryCode(countryCode); err != nil {
		return nil, err
	}
	resp, err := a.transport.Do(ctx, delivery.Request{
		Method:  "GET",
		Path:    "/pickup-points?country=" + countryCode,
		Headers: a.headers(),
	})
	if err != nil {
		return nil, delivery.NewHTTPError(0, err.Error(), err)
	}
	if resp.StatusCode >= 400 {
		return nil, translateFault(resp)
	}

	var wire []wirePickupPoint
	if err := json.Unmarshal(resp.Body, &wire); err != nil {
		return nil, fmt.Errorf("dhl: decoding pickup points: %w", err)
	}

	points := make([]delivery.PickupPoint, len(wire))
	for i, p := range wire {
		isLocker := delivery.DetectLocker(p.Type)
		raw, _ := json.Marshal(p)
		points[i] = delivery.PickupPoint{
			ID:             p.ID,
			ProviderID:     p.ProviderID,
			CarrierCode:    code,
			Name:           p.Name,
			Country:        strings.ToLower(p.Country),
			PostalCode:     p.ZIP,
			City:           p.City,
			Street:         p.Street,
			Latitude:       p.Latitude,
			Longitude:      p.Longitude,
			OpeningHours:   delivery.ParseOpeningHours(p.Hours),
			PickupAllowed:  delivery.PickupAllowedFromFeatures(p.Features),
			DropoffAllowed: delivery.DropoffAllowedFromFeatures(p.Features),
			IsLocker:       isLocker,
			IsOutdoor:      isLocker,
			PaymentOptions: p.PaymentOptions,
			Raw:            raw,
		}
	}
	return points, nil
}

type wireFaultBody struct {
	Error wireFault `json:"error"`
}

func translateFault(resp *delivery.Response) error {
	base := delivery.NewHTTPError(resp.StatusCode, "dhl: carrier rejected request", nil)
	var fb wireFaultBody
	if json.Unmarshal(resp.Body, &fb) == nil && fb.Error.Code != "" {
		base = base.WithCarrierCode(fb.Error.Code)
		if fb.Error.Message != "" {
			base.Message = fb.Error.Message
		}
	}
	return base
}
