package delivery

import "context"

// SimulateBatchCreateParcels runs one-at-a-time CREATE_PARCEL calls and
// assembles the per-item results a native CREATE_PARCELS would have
// returned. Adapters whose carrier has no native batch endpoint (gls)
// implement CapCreateParcels with this so the framework's batch contract
// is uniform regardless of whether the carrier itself batches.
func SimulateBatchCreateParcels(
	ctx context.Context,
	parcels []Parcel,
	createOne func(ctx context.Context, p Parcel) (CarrierResource, error),
) []ParcelResult {
	results := make([]ParcelResult, 0, len(parcels))
	for _, p := range parcels {
		resource, err := createOne(ctx, p)
		results = append(results, parcelResultFrom(p.ID, resource, err))
	}
	return results
}

func parcelResultFrom(parcelID string, resource CarrierResource, err error) ParcelResult {
	if err != nil {
		return ParcelResult{
			ParcelID: parcelID,
			Success:  false,
			// carrierId is enforced null on failure regardless of what the
			// adapter's error path may have partially populated.
			CarrierID: "",
			Error:     asCarrierError(err),
		}
	}
	return ParcelResult{
		ParcelID:  parcelID,
		Success:   true,
		CarrierID: resource.CarrierID,
		Resource:  &resource,
	}
}

func asCarrierError(err error) *CarrierError {
	if ce, ok := err.(*CarrierError); ok {
		return ce
	}
	return &CarrierError{Category: CategoryTransient, Message: err.Error(), Cause: err}
}

// MaxBatchSize is implemented by adapters (packeta) that cap how many
// parcels a single batch call may contain. Adapters without a cap simply
// don't implement it.
type maxBatchSizer interface {
	MaxBatchSize() int
}

// ValidateBatchSize returns a Validation CarrierError if the batch is empty
// or, when adapter declares a MaxBatchSize, exceeds it; nil otherwise.
func ValidateBatchSize(a Adapter, count int) error {
	if count == 0 {
		return &CarrierError{
			Category: CategoryValidation,
			Message:  "batch must contain at least one item",
		}
	}
	if sizer, ok := a.(maxBatchSizer); ok {
		if max := sizer.MaxBatchSize(); max > 0 && count > max {
			return &CarrierError{
				Category: CategoryValidation,
				Message:  "batch exceeds carrier's maximum batch size",
			}
		}
	}
	return nil
}
