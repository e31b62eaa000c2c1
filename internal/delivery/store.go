package delivery

import "context"

// Store is the persistence boundary the framework core consumes; this
// repository ships one concrete implementation
// (internal/services/delivery.GormStore) but the core depends only on this
// interface, matching the spec's "persistent storage is external, consumed
// through an interface" boundary.
type Store interface {
	SaveParcel(ctx context.Context, p Parcel) error
	UpdateParcelStatus(ctx context.Context, parcelID string, status ParcelStatus) error
	GetParcel(ctx context.Context, parcelID string) (Parcel, error)
	ListParcelsByShipment(ctx context.Context, shipmentID string) ([]Parcel, error)

	SaveCarrierResource(ctx context.Context, r CarrierResource) error
	GetCarrierResource(ctx context.Context, parcelID string) (CarrierResource, error)

	SaveLabelFile(ctx context.Context, l LabelFileResource) error
	GetLabelFile(ctx context.Context, id string) (LabelFileResource, error)

	AppendTrackingEvents(ctx context.Context, parcelID string, events []TrackingEvent) error
	ListTrackingEvents(ctx context.Context, parcelID string) ([]TrackingEvent, error)
}
