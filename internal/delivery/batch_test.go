package delivery

import (
	"context"
	"errors"
	"testing"
)

func TestSimulateBatchCreateParcelsAllSucceed(t *testing.T) {
	parcels := []Parcel{{ID: "p1"}, {ID: "p2"}}
	results := SimulateBatchCreateParcels(context.Background(), parcels, func(ctx context.Context, p Parcel) (CarrierResource, error) {
		return CarrierResource{ParcelID: p.ID, CarrierID: "carrier-" + p.ID}, nil
	})
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	for i, r := range results {
		if !r.Success {
			t.Errorf("results[%d].Success = false, want true", i)
		}
		if r.CarrierID == "" {
			t.Errorf("results[%d].CarrierID is empty on success", i)
		}
	}
}

func TestSimulateBatchCreateParcelsPartialFailureNullsCarrierID(t *testing.T) {
	parcels := []Parcel{{ID: "p1"}, {ID: "p2"}}
	results := SimulateBatchCreateParcels(context.Background(), parcels, func(ctx context.Context, p Parcel) (CarrierResource, error) {
		if p.ID == "p2" {
			return CarrierResource{CarrierID: "should-be-discarded"}, errors.New("carrier rejected p2")
		}
		return CarrierResource{ParcelID: p.ID, CarrierID: "carrier-p1"}, nil
	})
	if results[0].Success != true || results[0].CarrierID != "carrier-p1" {
		t.Fatalf("results[0] = %+v", results[0])
	}
	if results[1].Success {
		t.Fatalf("results[1].Success = true, want false")
	}
	if results[1].CarrierID != "" {
		t.Fatalf("results[1].CarrierID = %q, want empty even though createOne returned a non-empty one", results[1].CarrierID)
	}
	if results[1].Error == nil {
		t.Fatalf("results[1].Error is nil, want a populated CarrierError")
	}
}

func TestAsCarrierErrorWrapsPlainErrors(t *testing.T) {
	plain := errors.New("boom")
	ce := asCarrierError(plain)
	if ce.Category != CategoryTransient {
		t.Fatalf("Category = %s, want %s", ce.Category, CategoryTransient)
	}
	if ce.Cause != plain {
		t.Fatalf("Cause not preserved")
	}
}

func TestAsCarrierErrorPreservesExistingCarrierError(t *testing.T) {
	original := &CarrierError{Category: CategoryValidation, Message: "bad zip"}
	if asCarrierError(original) != original {
		t.Fatalf("asCarrierError() should return the same *CarrierError unchanged")
	}
}

func TestValidateBatchSizeWithinLimit(t *testing.T) {
	a := &fakeAdapter{code: "packeta", maxBatch: 100}
	if err := ValidateBatchSize(a, 50); err != nil {
		t.Fatalf("ValidateBatchSize() error = %v, want nil", err)
	}
}

func TestValidateBatchSizeExceedsLimit(t *testing.T) {
	a := &fakeAdapter{code: "packeta", maxBatch: 100}
	err := ValidateBatchSize(a, 101)
	if err == nil {
		t.Fatalf("expected error exceeding max batch size, got nil")
	}
	ce, ok := err.(*CarrierError)
	if !ok || ce.Category != CategoryValidation {
		t.Fatalf("error = %v, want a Validation CarrierError", err)
	}
}

func TestValidateBatchSizeAdapterWithoutCap(t *testing.T) {
	a := &fakeAdapter{code: "dhl"}
	if err := ValidateBatchSize(a, 10000); err != nil {
		t.Fatalf("ValidateBatchSize() error = %v, want nil for an adapter without MaxBatchSize", err)
	}
}

func TestValidateBatchSizeRejectsZero(t *testing.T) {
	a := &fakeAdapter{code: "dhl"}
	err := ValidateBatchSize(a, 0)
	if err == nil {
		t.Fatalf("expected error for an empty batch, got nil")
	}
	ce, ok := err.(*CarrierError)
	if !ok || ce.Category != CategoryValidation {
		t.Fatalf("error = %v, want a Validation CarrierError", err)
	}
}
