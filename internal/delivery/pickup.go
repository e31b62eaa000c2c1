package delivery

import (
	"fmt"
	"regexp"
	"strings"
)

// iso2Pattern validates the country codes pickup-point adapters accept:
// exactly two uppercase ASCII letters.
var iso2Pattern = regexp.MustCompile(`^[A-Z]{2}$`)

// ValidateCountryCode checks that code is a well-formed ISO 3166-1
// alpha-2 country code, the precondition FetchPickupPoints adapters apply
// before issuing a carrier request.
func ValidateCountryCode(code string) error {
	if !iso2Pattern.MatchString(code) {
		return &CarrierError{Category: CategoryValidation, Message: fmt.Sprintf("invalid ISO 3166-1 alpha-2 country code %q", code)}
	}
	return nil
}

// lockerKeywords are substrings (case-insensitive) carrier pickup-point
// feeds use in a point's type/name field to flag it as a parcel locker
// rather than a staffed counter.
var lockerKeywords = []string{"locker", "box", "automat", "terminal", "paketomat"}

// DetectLocker reports whether a raw carrier point-type label names a
// self-service locker.
func DetectLocker(rawType string) bool {
	lower := strings.ToLower(rawType)
	for _, kw := range lockerKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// noPickupFeatures and noDropoffFeatures are the feature tags a carrier
// feed uses to restrict a point to only one direction of handling. Absent
// any restrictive tag, a point allows both.
var noPickupFeatures = []string{"no-pickup", "pickupdisabled", "dropoff-only"}
var noDropoffFeatures = []string{"no-dropoff", "dropoffdisabled", "pickup-only"}

// PickupAllowedFromFeatures derives PickupPoint.PickupAllowed from a
// carrier's raw features[] tags.
func PickupAllowedFromFeatures(features []string) bool {
	return !hasFeature(features, noPickupFeatures)
}

// DropoffAllowedFromFeatures derives PickupPoint.DropoffAllowed from a
// carrier's raw features[] tags.
func DropoffAllowedFromFeatures(features []string) bool {
	return !hasFeature(features, noDropoffFeatures)
}

func hasFeature(features, restricting []string) bool {
	for _, f := range features {
		lower := strings.ToLower(strings.TrimSpace(f))
		for _, r := range restricting {
			if lower == r {
				return true
			}
		}
	}
	return false
}

// weekdayOrder lists the keys ParseOpeningHours emits, in display order.
var weekdayOrder = []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

// ParseOpeningHours normalizes a carrier's raw per-weekday opening-hours
// strings (which may use full names, abbreviations, or numeric weekday
// keys, and "closed"/"" for a day the point doesn't open) into the
// lowercase three-letter keys PickupPoint.OpeningHours uses.
func ParseOpeningHours(raw map[string]string) map[string]string {
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		key := normalizeWeekdayKey(k)
		if key == "" {
			continue
		}
		v = strings.TrimSpace(v)
		if v == "" {
			v = "closed"
		}
		out[key] = v
	}
	return out
}

var weekdayAliases = map[string]string{
	"monday": "mon", "mon": "mon", "1": "mon",
	"tuesday": "tue", "tue": "tue", "2": "tue",
	"wednesday": "wed", "wed": "wed", "3": "wed",
	"thursday": "thu", "thu": "thu", "4": "thu",
	"friday": "fri", "fri": "fri", "5": "fri",
	"saturday": "sat", "sat": "sat", "6": "sat",
	"sunday": "sun", "sun": "sun", "7": "sun", "0": "sun",
}

func normalizeWeekdayKey(raw string) string {
	return weekdayAliases[strings.ToLower(strings.TrimSpace(raw))]
}
