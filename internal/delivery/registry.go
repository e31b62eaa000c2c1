package delivery

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Adapter is the contract every carrier translator implements. A carrier
// only needs to implement the methods matching the Capabilities it
// declares; methods for undeclared capabilities may return a Permanent
// CarrierError, but the Registry never calls them in the first place.
type Adapter interface {
	Code() string
	DisplayName() string
	Capabilities() []Capability

	CreateParcels(ctx context.Context, parcels []Parcel, opts BatchOptions) ([]ParcelResult, error)
	CreateLabels(ctx context.Context, parcels []Parcel, resources []CarrierResource, opts BatchOptions) ([]LabelResult, error)
	CloseShipment(ctx context.Context, shipmentID string, opts BatchOptions) error
	Track(ctx context.Context, trackingNumbers []string) ([]TrackingUpdate, error)
	FetchPickupPoints(ctx context.Context, countryCode string) ([]PickupPoint, error)
	ExchangeAuthToken(ctx context.Context, creds Credentials) (OAuthToken, error)
}

// Has reports whether an adapter declares the given capability.
func Has(a Adapter, cap Capability) bool {
	for _, c := range a.Capabilities() {
		if c == cap {
			return true
		}
	}
	return false
}

// Registry is the thread-safe collection of registered carrier adapters,
// the base every dispatcher call resolves a carrier code against.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

func (r *Registry) Register(a Adapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	code := a.Code()
	if code == "" {
		return fmt.Errorf("delivery: adapter has empty Code()")
	}
	if _, exists := r.adapters[code]; exists {
		return fmt.Errorf("delivery: adapter %q already registered", code)
	}
	r.adapters[code] = a
	return nil
}

func (r *Registry) Get(code string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[code]
	return a, ok
}

// List returns all registered adapters sorted by code, for stable listing
// endpoints and deterministic test output.
func (r *Registry) List() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code() < out[j].Code() })
	return out
}

// universalPrereqs describes, per capability, the capability that must
// already have succeeded on the same shipment before this one may be
// invoked. The extra CLOSE_SHIPMENT step of some carriers is declared
// separately through requiresCloseShipment; this map covers the universal ordering every
// adapter obeys regardless of carrier.
var universalPrereqs = map[Capability]Capability{
	CapCreateLabel:  CapCreateParcel,
	CapCreateLabels: CapCreateParcels,
}

// requiresCloseShipment is implemented by adapters (gls) whose label creation
// requires an explicit CLOSE_SHIPMENT call first. Adapters without this
// extra prerequisite (dhl, packeta) simply don't implement it, and
// RequiresCloseShipment treats that as "no extra prerequisite".
type requiresCloseShipment interface {
	RequiresCloseShipmentBeforeLabel() bool
}

// Dispatch resolves carrier by code and verifies it declares cap before
// returning it, so callers get a clear Permanent error instead of a panic
// or a silent carrier-specific failure when a capability is missing.
func Dispatch(r *Registry, carrierCode string, cap Capability) (Adapter, error) {
	a, ok := r.Get(carrierCode)
	if !ok {
		return nil, &CarrierError{Category: CategoryPermanent, Message: fmt.Sprintf("unknown carrier %q", carrierCode)}
	}
	if !Has(a, cap) {
		return nil, &CarrierError{Category: CategoryPermanent, Message: fmt.Sprintf("carrier %q does not support capability %q", carrierCode, cap)}
	}
	if base, ok := universalPrereqs[cap]; ok && !Has(a, base) && !Has(a, capBatchEquivalent(base)) {
		return nil, &CarrierError{Category: CategoryPermanent, Message: fmt.Sprintf("carrier %q declares %q without its prerequisite %q", carrierCode, cap, base)}
	}
	return a, nil
}

func capBatchEquivalent(c Capability) Capability {
	switch c {
	case CapCreateParcel:
		return CapCreateParcels
	case CapCreateParcels:
		return CapCreateParcel
	default:
		return c
	}
}

// RequiresCloseShipment reports whether adapter needs CLOSE_SHIPMENT called
// before CREATE_LABEL(S), consulting the optional requiresCloseShipment
// interface an adapter may implement.
func RequiresCloseShipment(a Adapter) bool {
	if rc, ok := a.(requiresCloseShipment); ok {
		return rc.RequiresCloseShipmentBeforeLabel()
	}
	return false
}
