// Package packeta implements a pickup-point-first carrier adapter: its
// network is built around parcel lockers and pickup counters, its bulk
// tracking is an asynchronous submit/poll job returning a CSV report, and
// its batch endpoints cap the number of parcels per call. Its label
// response may come back as either one combined PDF or one file per
// parcel, so the translator inspects the response shape rather than
// trusting the request's singleFile hint alone.
package packeta

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shipfabric/shipfabric/internal/delivery"
)

const code = "packeta"

// maxBatchSize is the carrier's documented limit on parcels per batch call.
const maxBatchSize = 100

type Config struct {
	BaseURL    string
	APIKey     string
	UseTestAPI bool
	Debug      bool
	DebugFull  bool
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
func (a *Adapter) DisplayName() string { return "Packeta Pickup Network" }

func (a *Adapter) Capabilities() []delivery.Capability {
	return []delivery.Capability{
		delivery.CapCreateParcel,
		delivery.CapCreateParcels,
		delivery.CapCreateLabel,
		delivery.CapCreateLabels,
		delivery.CapTrackBulkAsync,
		delivery.CapFetchPickupPoints,
		delivery.CapTestModeSupported,
	}
}

// MaxBatchSize lets delivery.ValidateBatchSize reject oversized batches
// before any carrier call is attempted.
func (a *Adapter) MaxBatchSize() int { return maxBatchSize }

func (a *Adapter) headers() map[string]string {
	return map[string]string{"ApiKey": a.cfg.APIKey, "Content-Type": "application/json"}
}

type wirePacket struct {
	Number      string      `json:"number"`
	Recipient   wireAddress `json:"addressee"`
	PickupPoint string      `json:"pickupPointId,omitempty"`
	WeightKG    float64     `json:"weight"`
	COD         float64     `json:"cod,omitempty"`
	Currency    string      `json:"currency,omitempty"`
}

type wireAddress struct {
	Name    string `json:"name"`
	Street  string `json:"street,omitempty"`
	ZIP     string `json:"zip,omitempty"`
	City    string `json:"city,omitempty"`
	Country string `json:"country"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
}

func toWirePacket(p delivery.Parcel) wirePacket {
	wp := wirePacket{
		Number:   p.Reference,
		WeightKG: p.WeightKG,
		Recipient: wireAddress{
			Name:    p.Recipient.Name,
			Street:  p.Recipient.Street,
			ZIP:     p.Recipient.ZIPCode,
			City:    p.Recipient.City,
			Country: p.Recipient.Country,
			Phone:   p.Recipient.Phone,
			Email:   p.Recipient.Email,
		},
	}
	if p.Mode == delivery.ModePickupPoint {
		wp.PickupPoint = p.PickupPointID
	}
	if p.COD != nil {
		wp.COD = p.COD.Amount
		wp.Currency = p.COD.Currency
	}
	return wp
}

type wireCreateParcelsRequest struct {
	Packets []wirePacket `json:"packets"`
}

type wireCreateParcelsResponseItem struct {
	Reference string     `json:"number"`
	ID        string     `json:"id"`
	Barcode   string     `json:"barcodeText"`
	Fault     *wireFault `json:"fault,omitempty"`
}

type wireFault struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *Adapter) CreateParcels(ctx context.Context, parcels []delivery.Parcel, opts delivery.BatchOptions) ([]delivery.ParcelResult, error) {
	if err := delivery.ValidateBatchSize(a, len(parcels)); err != nil {
		return nil, err
	}

	req := wireCreateParcelsRequest{Packets: make([]wirePacket, len(parcels))}
	for i, p := range parcels {
		req.Packets[i] = toWirePacket(p)
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("packeta: marshaling request: %w", err)
	}

	path := "/packets/batch"
	if opts.UseTestAPI || a.cfg.UseTestAPI {
		path = "/sandbox" + path
	}

	resp, err := a.transport.Do(ctx, delivery.Request{Method: "POST", Path: path, Headers: a.headers(), Body: body})
	if err != nil {
		return nil, delivery.NewHTTPError(0, err.Error(), err)
	}
	if resp.StatusCode >= 400 {
		return nil, translateFault(resp)
	}

	var items []wireCreateParcelsResponseItem
	if err := json.Unmarshal(resp.Body, &items); err != nil {
		return nil, fmt.Errorf("packeta: decoding response: %w", err)
	}
	if len(items) != len(parcels) {
		return nil, &delivery.CarrierError{Category: delivery.CategoryPermanent, Message: "packeta: response item count does not match request"}
	}

	results := make([]delivery.ParcelResult, len(parcels))
	for i, item := range items {
		if item.Fault != nil {
			results[i] = delivery.ParcelResult{
				ParcelID: parcels[i].ID,
				Success:  false,
				Error:    (&delivery.CarrierError{Category: delivery.CategoryPermanent, Message: item.Fault.Message}).WithCarrierCode(item.Fault.Code),
			}
			continue
		}
		results[i] = delivery.ParcelResult{
			ParcelID:  parcels[i].ID,
			Success:   true,
			CarrierID: item.ID,
			Resource: &delivery.CarrierResource{
				ParcelID:       parcels[i].ID,
				CarrierID:      item.ID,
				TrackingNumber: item.Barcode,
				HTTPStatus:     resp.StatusCode,
				Raw:            resp.Body,
			},
		}
	}
	return results, nil
}

func (a *Adapter) CloseShipment(ctx context.Context, shipmentID string, opts delivery.BatchOptions) error {
	return nil
}

type wireLabelRequest struct {
	PacketIDs []string `json:"packetIds"`
}

// wireLabelResponse is a union of the two shapes this carrier's label
// endpoint may return: a single combined PDF, or one file per packet.
type wireLabelResponse struct {
	CombinedPDFBase64 string              `json:"combinedPdfBase64,omitempty"`
	PageRanges        map[string][2]int   `json:"pageRanges,omitempty"`
	Files             []wireLabelFileItem `json:"files,omitempty"`
}

type wireLabelFileItem struct {
	PacketID      string `json:"packetId"`
	PDFBase64     string `json:"pdfBase64"`
}

func (a *Adapter) CreateLabels(ctx context.Context, parcels []delivery.Parcel, resources []delivery.CarrierResource, opts delivery.BatchOptions) ([]delivery.LabelResult, error) {
	if err := delivery.ValidateBatchSize(a, len(resources)); err != nil {
		return nil, err
	}

	ids := make([]string, len(resources))
	byCarrierID := make(map[string]string, len(resources))
	for i, r := range resources {
		ids[i] = r.CarrierID
		byCarrierID[r.CarrierID] = r.ParcelID
	}

	body, err := json.Marshal(wireLabelRequest{PacketIDs: ids})
	if err != nil {
		return nil, fmt.Errorf("packeta: marshaling label request: %w", err)
	}

	path := "/packets/labels"
	if opts.UseTestAPI || a.cfg.UseTestAPI {
		path = "/sandbox" + path
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
		return nil, fmt.Errorf("packeta: decoding label response: %w", err)
	}

	// The response shape, not the request's singleFile hint, decides
	// whether this batch produced one combined file or one file per parcel.
	if parsed.CombinedPDFBase64 != "" {
		return a.combinedLabelResults(parsed, byCarrierID)
	}
	return a.perParcelLabelResults(parsed, byCarrierID)
}

func (a *Adapter) combinedLabelResults(parsed wireLabelResponse, byCarrierID map[string]string) ([]delivery.LabelResult, error) {
	pdfBytes, err := (delivery.RawLabelBody{Base64: parsed.CombinedPDFBase64}).ToBytes()
	if err != nil {
		return nil, fmt.Errorf("packeta: decoding combined label PDF: %w", err)
	}
	file := &delivery.LabelFileResource{ContentType: "application/pdf", Data: pdfBytes, PageRanges: parsed.PageRanges}
	results := make([]delivery.LabelResult, 0, len(parsed.PageRanges))
	for carrierID, parcelID := range byCarrierID {
		if _, ok := parsed.PageRanges[parcelID]; !ok {
			continue
		}
		file.ParcelIDs = append(file.ParcelIDs, parcelID)
		results = append(results, delivery.LabelResult{ParcelID: parcelID, Success: true, CarrierID: carrierID, Label: file})
	}
	sort.Slice(file.ParcelIDs, func(i, j int) bool {
		return parsed.PageRanges[file.ParcelIDs[i]][0] < parsed.PageRanges[file.ParcelIDs[j]][0]
	})
	return results, nil
}

func (a *Adapter) perParcelLabelResults(parsed wireLabelResponse, byCarrierID map[string]string) ([]delivery.LabelResult, error) {
	results := make([]delivery.LabelResult, 0, len(parsed.Files))
	for _, f := range parsed.Files {
		parcelID, ok := byCarrierID[f.PacketID]
		if !ok {
			continue
		}
		pdfBytes, err := (delivery.RawLabelBody{Base64: f.PDFBase64}).ToBytes()
		if err != nil {
			results = append(results, delivery.LabelResult{ParcelID: parcelID, Success: false, Error: &delivery.CarrierError{Category: delivery.CategoryTransient, Message: err.Error()}})
			continue
		}
		results = append(results, delivery.LabelResult{
			ParcelID:  parcelID,
			Success:   true,
			CarrierID: f.PacketID,
			Label: &delivery.LabelFileResource{
				ContentType: "application/pdf",
				Data:        pdfBytes,
				ParcelIDs:   []string{parcelID},
				PageRanges:  map[string][2]int{parcelID: {1, 1}},
			},
		})
	}
	return results, nil
}

// Track satisfies the registry's Adapter interface by delegating to the
// carrier's only tracking model, the bulk async job.
func (a *Adapter) Track(ctx context.Context, trackingNumbers []string) ([]delivery.TrackingUpdate, error) {
	report, err := a.TrackBulkAsync(ctx, trackingNumbers)
	if err != nil {
		return nil, err
	}
	return report, nil
}

type wireSubmitResponse struct {
	JobID string `json:"jobId"`
}

type wirePollResponse struct {
	State  string `json:"state"`
	Report string `json:"reportBase64,omitempty"`
}

// TrackBulkAsync submits up to 500 tracking numbers as one bulk job and
// polls until the carrier's report is ready, decoding the CSV it returns.
func (a *Adapter) TrackBulkAsync(ctx context.Context, trackingNumbers []string) ([]delivery.TrackingUpdate, error) {
	submit := func(ctx context.Context) (string, error) {
		body, err := json.Marshal(map[string][]string{"barcodes": trackingNumbers})
		if err != nil {
			return "", fmt.Errorf("packeta: marshaling bulk tracking submit: %w", err)
		}
		resp, err := a.transport.Do(ctx, delivery.Request{Method: "POST", Path: "/tracking/bulk", Headers: a.headers(), Body: body})
		if err != nil {
			return "", delivery.NewHTTPError(0, err.Error(), err)
		}
		if resp.StatusCode >= 400 {
			return "", translateFault(resp)
		}
		var parsed wireSubmitResponse
		if err := json.Unmarshal(resp.Body, &parsed); err != nil {
			return "", fmt.Errorf("packeta: decoding submit response: %w", err)
		}
		return parsed.JobID, nil
	}

	poll := func(ctx context.Context, jobID string) (delivery.JobState, []byte, error) {
		resp, err := a.transport.Do(ctx, delivery.Request{Method: "GET", Path: "/tracking/bulk/" + jobID, Headers: a.headers()})
		if err != nil {
			return "", nil, delivery.NewHTTPError(0, err.Error(), err)
		}
		if resp.StatusCode >= 400 {
			return "", nil, translateFault(resp)
		}
		var parsed wirePollResponse
		if err := json.Unmarshal(resp.Body, &parsed); err != nil {
			return "", nil, fmt.Errorf("packeta: decoding poll response: %w", err)
		}
		state := delivery.JobState(parsed.State)
		if state != delivery.JobStateReady {
			return state, nil, nil
		}
		report, err := (delivery.RawLabelBody{Base64: parsed.Report}).ToBytes()
		if err != nil {
			return "", nil, fmt.Errorf("packeta: decoding bulk tracking report: %w", err)
		}
		return state, report, nil
	}

	report, err := delivery.RunAsyncJob(ctx, submit, poll, delivery.PollConfig{Interval: 2 * time.Second, Deadline: 3 * time.Minute})
	if err != nil {
		return nil, err
	}

	rows, err := delivery.DecodeCSVReport(report, []string{"barcode", "status_code", "status_text", "timestamp", "location"})
	if err != nil {
		return nil, err
	}

	updates := make([]delivery.TrackingUpdate, 0, len(rows))
	for _, row := range rows {
		if len(row) < 5 {
			continue
		}
		ts, _ := time.Parse(time.RFC3339, row[3])
		updates = append(updates, delivery.TrackingUpdate{
			TrackingNumber: row[0],
			Status:         mapStatus(row[1]),
			Events: []delivery.TrackingEvent{{
				Timestamp:   ts,
				Status:      mapStatus(row[1]),
				CarrierCode: row[1],
				Description: row[2],
				Location:    row[4],
			}},
		})
	}
	return updates, nil
}

var statusTable = map[string]delivery.TrackingStatus{
	"1": delivery.TrackingStatusPending,
	"2": delivery.TrackingStatusInTransit,
	"3": delivery.TrackingStatusInTransit,
	"4": delivery.TrackingStatusOutForDelivery,
	"5": delivery.TrackingStatusDelivered,
	"6": delivery.TrackingStatusException,
	"7": delivery.TrackingStatusReturned,
	"8": delivery.TrackingStatusCancelled,
}

func mapStatus(code string) delivery.TrackingStatus {
	if s, ok := statusTable[strings.TrimSpace(code)]; ok {
		return s
	}
	return delivery.TrackingStatusPending
}

type wirePickupPoint struct {
	ID             string            `json:"id"`
	ProviderID     string            `json:"carrierId,omitempty"`
	Name           string            `json:"name"`
	Type           string            `json:"pointType"`
	Street         string            `json:"street"`
	ZIP            string            `json:"zip"`
	City           string            `json:"city"`
	Country        string            `json:"country"`
	Latitude       float64           `json:"latitude"`
	Longitude      float64           `json:"longitude"`
	Hours          map[string]string `json:"openingHours"`
	DistanceKM     *float64          `json:"distanceKm,omitempty"`
	Features       []string          `json:"features,omitempty"`
	PaymentOptions []string          `json:"paymentOptions,omitempty"`
}

// ExchangeAuthToken is not supported: this adapter authenticates with a
// static API key, never an OAuth2 exchange.
func (a *Adapter) ExchangeAuthToken(ctx context.Context, creds delivery.Credentials) (delivery.OAuthToken, error) {
	return delivery.OAuthToken{}, &delivery.CarrierError{Category: delivery.CategoryPermanent, Message: "packeta: EXCHANGE_AUTH_TOKEN not supported (API-key only)"}
}

func (a *Adapter) FetchPickupPoints(ctx context.Context, countryCode string) ([]delivery.PickupPoint, error) {
	if err := delivery.ValidateCountryCode(countryCode); err != nil {
		return nil, err
	}
	resp, err := a.transport.Do(ctx, delivery.Request{Method: "GET", Path: "/pickup-points?country=" + countryCode, Headers: a.headers()})
	if err != nil {
		return nil, delivery.NewHTTPError(0, err.Error(), err)
	}
	if resp.StatusCode >= 400 {
		return nil, translateFault(resp)
	}

	var wire []wirePickupPoint
	if err := json.Unmarshal(resp.Body, &wire); err != nil {
		return nil, fmt.Errorf("packeta: decoding pickup points: %w", err)
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
			Distance:       p.DistanceKM,
		}
	}
	return points, nil
}

func translateFault(resp *delivery.Response) error {
	base := delivery.NewHTTPError(resp.StatusCode, "packeta: carrier rejected request", nil)
	var fb struct {
		Fault wireFault `json:"fault"`
	}
	if json.Unmarshal(resp.Body, &fb) == nil && fb.Fault.Code != "" {
		base = base.WithCarrierCode(fb.Fault.Code)
		base.Message = fb.Fault.Message
	}
	return base
}
