package gls

import (
	"strconv"
	"strings"

	"github.com/shipfabric/shipfabric/internal/delivery"
)

// localizedStatus is one carrier status row: the numeric code the API
// returns, plus the free-text description in whichever of the
// carrier's supported locales the account is configured for. Matching is
// by numeric code first; the free-text fields are fallbacks for carrier
// responses that omit the code and only supply localized text.
type localizedStatus struct {
	Code  string
	HU    string
	EN    string
	DE    string
	CS    string
	Canon delivery.TrackingStatus
}

// statusTable is the dense multi-locale status table: eleven numeric
// codes, each with Hungarian/English/German/Czech free-text variants,
// normalized onto the canonical 7-member TrackingStatus enum.
var statusTable = []localizedStatus{
	{Code: "1", HU: "Csomag felvéve", EN: "Parcel picked up", DE: "Paket abgeholt", CS: "Zásilka převzata", Canon: delivery.TrackingStatusPending},
	{Code: "2", HU: "Csomag a depóban", EN: "Parcel at depot", DE: "Paket im Depot", CS: "Zásilka v depu", Canon: delivery.TrackingStatusInTransit},
	{Code: "3", HU: "Csomag úton a célállomás felé", EN: "Parcel in transit", DE: "Paket unterwegs", CS: "Zásilka na cestě", Canon: delivery.TrackingStatusInTransit},
	{Code: "4", HU: "Csomag kézbesítés alatt", EN: "Parcel out for delivery", DE: "Paket in Zustellung", CS: "Zásilka v doručování", Canon: delivery.TrackingStatusOutForDelivery},
	{Code: "5", HU: "Csomag kézbesítve", EN: "Parcel delivered", DE: "Paket zugestellt", CS: "Zásilka doručena", Canon: delivery.TrackingStatusDelivered},
	{Code: "6", HU: "Sikertelen kézbesítés", EN: "Delivery attempt failed", DE: "Zustellversuch fehlgeschlagen", CS: "Pokus o doručení selhal", Canon: delivery.TrackingStatusException},
	{Code: "7", HU: "Csomag visszaküldve", EN: "Parcel returned to sender", DE: "Paket an Absender zurückgeschickt", CS: "Zásilka vrácena odesílateli", Canon: delivery.TrackingStatusReturned},
	{Code: "8", HU: "Csomag feladva a rendszerben", EN: "Parcel registered", DE: "Paket erfasst", CS: "Zásilka zaregistrována", Canon: delivery.TrackingStatusPending},
	{Code: "9", HU: "Csomagpontra szállítva", EN: "Delivered to parcel shop", DE: "An Paketshop geliefert", CS: "Doručeno na výdejní místo", Canon: delivery.TrackingStatusDelivered},
	{Code: "10", HU: "Vámkezelés alatt", EN: "Customs clearance in progress", DE: "Zollabfertigung läuft", CS: "Probíhá celní odbavení", Canon: delivery.TrackingStatusException},
	{Code: "11", HU: "Csomag sztornózva", EN: "Parcel cancelled", DE: "Paket storniert", CS: "Zásilka zrušena", Canon: delivery.TrackingStatusCancelled},
}

var byCode = buildCodeIndex()
var byText = buildTextIndex()

func buildCodeIndex() map[string]delivery.TrackingStatus {
	m := make(map[string]delivery.TrackingStatus, len(statusTable))
	for _, row := range statusTable {
		m[row.Code] = row.Canon
	}
	return m
}

func buildTextIndex() map[string]delivery.TrackingStatus {
	m := make(map[string]delivery.TrackingStatus)
	for _, row := range statusTable {
		for _, text := range []string{row.HU, row.EN, row.DE, row.CS} {
			if text != "" {
				m[strings.ToLower(text)] = row.Canon
			}
		}
	}
	return m
}

// MapStatus normalizes a GLS status event. code, when non-empty, is tried
// first (numeric codes are locale-independent); description is a
// case-insensitive fallback for responses that only carry free text.
func MapStatus(code, description string) delivery.TrackingStatus {
	code = strings.TrimSpace(code)
	if code != "" {
		if s, ok := byCode[code]; ok {
			return s
		}
		if n, err := strconv.Atoi(code); err == nil {
			if s, ok := byCode[strconv.Itoa(n)]; ok {
				return s
			}
		}
	}
	if s, ok := byText[strings.ToLower(strings.TrimSpace(description))]; ok {
		return s
	}
	return delivery.TrackingStatusPending
}
