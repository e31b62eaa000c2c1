// Package delivery implements the carrier-adapter dispatch and translation
// engine: the capability registry, the canonical domain model, the HTTP
// transport abstraction, the auth state machine, the batch and async-job
// engines, and the error taxonomy shared by every carrier translator.
package delivery

import "time"

// Address is the canonical postal address used on both ends of translation.
type Address struct {
	Name        string
	Company     string
	Street      string
	HouseNumber string
	City        string
	ZIPCode     string
	Country     string // ISO 3166-1 alpha-2
	Phone       string
	Email       string
}

// Dimensions are centimeters; Weight is kilograms.
type Dimensions struct {
	LengthCM float64
	WidthCM  float64
	HeightCM float64
}

// DeliveryMode selects how a Parcel reaches the recipient.
type DeliveryMode string

const (
	ModeAddress    DeliveryMode = "ADDRESS"
	ModePickupPoint DeliveryMode = "PICKUP_POINT"
)

// Parcel is the canonical unit of shipment the framework operates on.
type Parcel struct {
	ID           string
	ShipmentID   string
	Sender       Address
	Recipient    Address
	Mode         DeliveryMode
	PickupPointID string // set when Mode == ModePickupPoint
	WeightKG     float64
	Dimensions   Dimensions
	Reference    string
	COD          *Money // nil when cash-on-delivery does not apply
	Status       ParcelStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Money is a minor-unit-free decimal amount with an ISO 4217 currency code.
type Money struct {
	Amount   float64
	Currency string
}

// ParcelStatus is the framework's own lifecycle state for a Parcel, distinct
// from TrackingStatus which mirrors the carrier's delivery-network state.
type ParcelStatus string

const (
	ParcelStatusPending ParcelStatus = "PENDING"
	ParcelStatusCreated ParcelStatus = "CREATED"
	ParcelStatusClosed  ParcelStatus = "CLOSED"
	ParcelStatusLabeled ParcelStatus = "LABELED"
	ParcelStatusFailed  ParcelStatus = "FAILED"
)

// CarrierResource is what a carrier hands back in exchange for a Parcel:
// its own identifiers plus whatever raw payload it returned, kept for
// diagnostics and for feeding into subsequent calls (CLOSE_SHIPMENT, label
// retrieval) that need the carrier's own resource IDs.
type CarrierResource struct {
	ParcelID      string
	CarrierID     string // carrier-assigned parcel/shipment ID; null on failure
	TrackingNumber string
	HTTPStatus    int
	Raw           []byte
}

// LabelFileResource is a rendered shipping label, possibly combined across
// several parcels into one multi-page PDF.
type LabelFileResource struct {
	ID          string
	ContentType string // typically "application/pdf"
	Data        []byte
	ParcelIDs   []string // parcels represented in this file, in page order
	PageRanges  map[string][2]int // parcelID -> [firstPage, lastPage], 1-indexed inclusive
}

// LabelResult is one parcel's outcome from a CREATE_LABEL(S) call.
type LabelResult struct {
	ParcelID  string
	Success   bool
	CarrierID string // must be "" (null) when Success is false
	Label     *LabelFileResource
	Error     *CarrierError
}

// ParcelResult is one parcel's outcome from a CREATE_PARCEL(S) call.
type ParcelResult struct {
	ParcelID  string
	Success   bool
	CarrierID string // must be "" (null) when Success is false
	Resource  *CarrierResource
	Error     *CarrierError
}

// TrackingStatus is the canonical 7-member status enum every carrier's
// native tracking vocabulary normalizes onto. Unknown carrier codes map to
// TrackingStatusPending, never to a sentinel outside this set.
type TrackingStatus string

const (
	TrackingStatusPending        TrackingStatus = "PENDING"
	TrackingStatusInTransit      TrackingStatus = "IN_TRANSIT"
	TrackingStatusOutForDelivery TrackingStatus = "OUT_FOR_DELIVERY"
	TrackingStatusDelivered      TrackingStatus = "DELIVERED"
	TrackingStatusException      TrackingStatus = "EXCEPTION"
	TrackingStatusReturned       TrackingStatus = "RETURNED"
	TrackingStatusCancelled      TrackingStatus = "CANCELLED"
)

// TrackingEvent is a single normalized tracking-history entry.
type TrackingEvent struct {
	Timestamp     time.Time
	Status        TrackingStatus
	CarrierCode   string // raw carrier status code, kept for diagnostics
	Description   string
	Location      string
}

// TrackingUpdate is the result of a TRACK call for one parcel.
type TrackingUpdate struct {
	ParcelID      string
	TrackingNumber string
	Status        TrackingStatus
	Events        []TrackingEvent
}

// PickupPoint is a carrier network location a recipient can choose instead
// of a home address.
type PickupPoint struct {
	ID             string
	ProviderID     string // the carrier's own network/partner identifier, when distinct from ID
	CarrierCode    string
	Name           string
	Country        string // ISO 3166-1 alpha-2, lower-case
	PostalCode     string
	City           string
	Street         string
	Latitude       float64
	Longitude      float64
	OpeningHours   map[string]string // weekday name -> "HH:MM-HH:MM" or "closed"
	Contact        *Address          // on-site contact, when the carrier feed reports one
	PickupAllowed  bool
	DropoffAllowed bool
	IsOutdoor      bool // true for unstaffed, weatherproof locations (lockers); set alongside IsLocker
	IsLocker       bool
	PaymentOptions []string
	Metadata       map[string]string
	Raw            []byte
	Distance       *float64 // km from the query centroid, when the carrier feed reports one
}

// Capability names one operation a carrier adapter may or may not support.
type Capability string

const (
	CapCreateParcel       Capability = "CREATE_PARCEL"
	CapCreateParcels      Capability = "CREATE_PARCELS"
	CapCreateLabel        Capability = "CREATE_LABEL"
	CapCreateLabels       Capability = "CREATE_LABELS"
	CapCloseShipment      Capability = "CLOSE_SHIPMENT"
	CapTrack              Capability = "TRACK"
	CapTrackBulkAsync     Capability = "TRACK_BULK_ASYNC"
	CapExchangeAuthToken  Capability = "EXCHANGE_AUTH_TOKEN"
	CapFetchPickupPoints  Capability = "FETCH_PICKUP_POINTS"
	CapTestModeSupported  Capability = "TEST_MODE_SUPPORTED"
)

// CredentialKind distinguishes the shape of per-carrier credentials.
type CredentialKind string

const (
	CredAPIKey CredentialKind = "API_KEY"
	CredBasic  CredentialKind = "BASIC"
	CredOAuth2 CredentialKind = "OAUTH2"
)

// Credentials is a tagged union over the three auth shapes a carrier may
// require. Only the fields matching Kind are meaningful.
type Credentials struct {
	Kind           CredentialKind
	APIKey         string
	AccountingCode string
	Username       string
	Password       string
	ClientID       string
	ClientSecret   string
	TokenURL       string
}

// OAuthToken is a cached bearer token with its expiry.
type OAuthToken struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Expired reports whether the token is unusable, applying a 60-second
// safety margin so a token is renewed before, not exactly at, expiry.
func (t OAuthToken) Expired(now time.Time) bool {
	if t.AccessToken == "" {
		return true
	}
	return !now.Before(t.ExpiresAt.Add(-60 * time.Second))
}

// BatchOptions configures a CREATE_PARCELS/CREATE_LABELS call.
type BatchOptions struct {
	UseTestAPI     bool
	AccountingCode string
	SingleFile     bool // hint only; translators must still inspect the wire shape
}

// BatchSummary aggregates per-item results of a batch call.
type BatchSummary struct {
	Total     int
	Succeeded int
	Failed    int
}

func SummarizeParcelResults(results []ParcelResult) BatchSummary {
	s := BatchSummary{Total: len(results)}
	for _, r := range results {
		if r.Success {
			s.Succeeded++
		} else {
			s.Failed++
		}
	}
	return s
}

func SummarizeLabelResults(results []LabelResult) BatchSummary {
	s := BatchSummary{Total: len(results)}
	for _, r := range results {
		if r.Success {
			s.Succeeded++
		} else {
			s.Failed++
		}
	}
	return s
}
