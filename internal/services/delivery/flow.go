package delivery

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/shipfabric/shipfabric/internal/delivery"
	"github.com/shipfabric/shipfabric/internal/models"
)

// Flow is the execute-create-label orchestration: CREATE_PARCELS, then
// CLOSE_SHIPMENT when the carrier requires it first, then CREATE_LABELS.
// Each stage's outcome is persisted through Store before the next stage
// runs, so a crash mid-batch leaves a resumable, inspectable trail rather
// than a silent gap.
type Flow struct {
	registry *delivery.Registry
	store    delivery.Store
}

func NewFlow(registry *delivery.Registry, store delivery.Store) *Flow {
	return &Flow{registry: registry, store: store}
}

// BatchResult is the combined outcome of one CreateShipment call.
type BatchResult struct {
	ShipmentID    string
	ParcelResults []delivery.ParcelResult
	LabelResults  []delivery.LabelResult
	ParcelSummary delivery.BatchSummary
	LabelSummary  delivery.BatchSummary
}

// CreateShipment runs CREATE_PARCELS, the carrier's CLOSE_SHIPMENT
// prerequisite when it declares one, and CREATE_LABELS for a batch of
// parcels bound for a single carrier.
func (f *Flow) CreateShipment(ctx context.Context, carrierCode string, parcels []delivery.Parcel, opts delivery.BatchOptions) (*BatchResult, error) {
	adapter, err := delivery.Dispatch(f.registry, carrierCode, delivery.CapCreateParcels)
	if err != nil {
		return nil, err
	}
	if err := delivery.ValidateBatchSize(adapter, len(parcels)); err != nil {
		return nil, err
	}

	shipmentID := uuid.NewString()
	shipment := models.ShipmentRecord{ID: shipmentID, CarrierCode: carrierCode}
	if err := f.saveShipment(ctx, shipment); err != nil {
		return nil, fmt.Errorf("delivery flow: creating shipment: %w", err)
	}

	for i := range parcels {
		parcels[i].ShipmentID = shipmentID
		if parcels[i].ID == "" {
			parcels[i].ID = uuid.NewString()
		}
		parcels[i].Status = delivery.ParcelStatusPending
		if err := f.store.SaveParcel(ctx, parcels[i]); err != nil {
			return nil, fmt.Errorf("delivery flow: staging parcel %q: %w", parcels[i].ID, err)
		}
	}

	parcelResults, err := adapter.CreateParcels(ctx, parcels, opts)
	if err != nil {
		return nil, fmt.Errorf("delivery flow: CREATE_PARCELS: %w", err)
	}
	resources := f.persistParcelResults(ctx, parcels, parcelResults)

	result := &BatchResult{
		ShipmentID:    shipmentID,
		ParcelResults: parcelResults,
		ParcelSummary: delivery.SummarizeParcelResults(parcelResults),
	}

	if delivery.RequiresCloseShipment(adapter) {
		if err := adapter.CloseShipment(ctx, shipmentID, opts); err != nil {
			return result, fmt.Errorf("delivery flow: CLOSE_SHIPMENT: %w", err)
		}
		f.markClosed(ctx, shipmentID)
	}

	succeeded := succeededParcels(parcels, parcelResults)
	succeededResources := succeededResources(resources, parcelResults)
	if len(succeeded) == 0 {
		return result, nil
	}

	labelResults, err := adapter.CreateLabels(ctx, succeeded, succeededResources, opts)
	if err != nil {
		return result, fmt.Errorf("delivery flow: CREATE_LABELS: %w", err)
	}
	f.persistLabelResults(ctx, labelResults)

	result.LabelResults = labelResults
	result.LabelSummary = delivery.SummarizeLabelResults(labelResults)
	return result, nil
}

// ListShipmentParcels returns every parcel staged or created under a
// shipment, for status polling by callers that only hold the shipment ID.
func (f *Flow) ListShipmentParcels(ctx context.Context, shipmentID string) ([]delivery.Parcel, error) {
	return f.store.ListParcelsByShipment(ctx, shipmentID)
}

// Track fetches current tracking state for a set of tracking numbers and
// appends any new events to each parcel's history.
func (f *Flow) Track(ctx context.Context, carrierCode string, trackingNumbers []string) ([]delivery.TrackingUpdate, error) {
	// A carrier supports tracking via either a synchronous TRACK call or
	// the asynchronous bulk job; Adapter.Track is the one method both
	// shapes land on, so either capability is an acceptable Dispatch target.
	adapter, err := delivery.Dispatch(f.registry, carrierCode, delivery.CapTrack)
	if err != nil {
		adapter, err = delivery.Dispatch(f.registry, carrierCode, delivery.CapTrackBulkAsync)
	}
	if err != nil {
		return nil, err
	}
	updates, err := adapter.Track(ctx, trackingNumbers)
	if err != nil {
		return nil, err
	}
	for _, u := range updates {
		if u.ParcelID == "" || len(u.Events) == 0 {
			continue
		}
		if err := f.store.AppendTrackingEvents(ctx, u.ParcelID, u.Events); err != nil {
			log.Printf("delivery flow: appending tracking events for parcel %q: %v", u.ParcelID, err)
		}
	}
	return updates, nil
}

func (f *Flow) saveShipment(ctx context.Context, shipment models.ShipmentRecord) error {
	type shipmentSaver interface {
		SaveShipment(ctx context.Context, s models.ShipmentRecord) error
	}
	if gs, ok := f.store.(shipmentSaver); ok {
		return gs.SaveShipment(ctx, shipment)
	}
	return nil
}

func (f *Flow) markClosed(ctx context.Context, shipmentID string) {
	type shipmentCloser interface {
		MarkShipmentClosed(ctx context.Context, shipmentID string) error
	}
	if sc, ok := f.store.(shipmentCloser); ok {
		if err := sc.MarkShipmentClosed(ctx, shipmentID); err != nil {
			log.Printf("delivery flow: marking shipment %q closed: %v", shipmentID, err)
		}
	}
}

func (f *Flow) persistParcelResults(ctx context.Context, parcels []delivery.Parcel, results []delivery.ParcelResult) []delivery.CarrierResource {
	resources := make([]delivery.CarrierResource, 0, len(results))
	for _, r := range results {
		status := delivery.ParcelStatusFailed
		if r.Success {
			status = delivery.ParcelStatusCreated
		}
		if err := f.store.UpdateParcelStatus(ctx, r.ParcelID, status); err != nil {
			log.Printf("delivery flow: updating parcel %q status: %v", r.ParcelID, err)
		}
		if r.Resource == nil {
			continue
		}
		if err := f.store.SaveCarrierResource(ctx, *r.Resource); err != nil {
			log.Printf("delivery flow: saving carrier resource for parcel %q: %v", r.ParcelID, err)
		}
		resources = append(resources, *r.Resource)
	}
	return resources
}

func (f *Flow) persistLabelResults(ctx context.Context, results []delivery.LabelResult) {
	for _, r := range results {
		status := delivery.ParcelStatusFailed
		if r.Success {
			status = delivery.ParcelStatusLabeled
		}
		if err := f.store.UpdateParcelStatus(ctx, r.ParcelID, status); err != nil {
			log.Printf("delivery flow: updating parcel %q status: %v", r.ParcelID, err)
		}
		if r.Label == nil {
			continue
		}
		if r.Label.ID == "" {
			r.Label.ID = uuid.NewString()
		}
		if err := f.store.SaveLabelFile(ctx, *r.Label); err != nil {
			log.Printf("delivery flow: saving label file for parcel %q: %v", r.ParcelID, err)
		}
	}
}

// succeededParcels returns, in results order, the Parcel each successful
// ParcelResult refers to, matched by ParcelID rather than by position: the
// adapter's results slice is not guaranteed to follow the request's order.
func succeededParcels(parcels []delivery.Parcel, results []delivery.ParcelResult) []delivery.Parcel {
	byID := make(map[string]delivery.Parcel, len(parcels))
	for _, p := range parcels {
		byID[p.ID] = p
	}
	out := make([]delivery.Parcel, 0, len(parcels))
	for _, r := range results {
		if !r.Success {
			continue
		}
		if p, ok := byID[r.ParcelID]; ok {
			out = append(out, p)
		}
	}
	return out
}

// succeededResources returns, in results order, the CarrierResource each
// successful ParcelResult produced, matched by ParcelID.
func succeededResources(resources []delivery.CarrierResource, results []delivery.ParcelResult) []delivery.CarrierResource {
	byID := make(map[string]delivery.CarrierResource, len(resources))
	for _, res := range resources {
		byID[res.ParcelID] = res
	}
	out := make([]delivery.CarrierResource, 0, len(resources))
	for _, r := range results {
		if !r.Success {
			continue
		}
		if res, ok := byID[r.ParcelID]; ok {
			out = append(out, res)
		}
	}
	return out
}
