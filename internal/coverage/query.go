package coverage

import (
	"coverage.logistics.org/internal/geo"
	"coverage.logistics.org/internal/models"
)

// RadiusKm is the search radius around each target, inclusive.
const RadiusKm = 1.0

// FilterByCenter keeps the records of one distribution center that have both coordinates.
func FilterByCenter(records []models.ClientRecord, center string) []models.ClientRecord {
	var out []models.ClientRecord
	for _, r := range records {
		if r.CenterID == center && r.HasCoordinates() {
			out = append(out, r)
		}
	}
	return out
}

// ResolveTargets returns the records whose client id is in ids, in record order.
// An empty result means none of the ids matched; it is not an error.
func ResolveTargets(subtable []models.ClientRecord, ids []int64) []models.ClientRecord {
	wanted := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	var targets []models.ClientRecord
	for _, r := range subtable {
		if !r.HasClientID {
			continue
		}
		if _, ok := wanted[r.ClientID]; ok {
			targets = append(targets, r)
		}
	}
	return targets
}

// NearbyFreeCount counts the records of subtable within RadiusKm of target whose flag for
// day is 1. The target itself is counted when it qualifies. The returned records are the
// ones to draw on the map and leave out every record sharing the target's client id.
func NearbyFreeCount(subtable []models.ClientRecord, target models.ClientRecord, day models.Weekday) (int, []models.ClientRecord) {
	pf := geo.NewPrefilter(target.Latitude, target.Longitude, RadiusKm)

	count := 0
	var matching []models.ClientRecord
	for _, r := range subtable {
		if !r.IsFree(day) || !pf.MayContain(r.Latitude, r.Longitude) {
			continue
		}
		if geo.GeodesicDistanceKm(target.Latitude, target.Longitude, r.Latitude, r.Longitude) > RadiusKm {
			continue
		}
		count++
		if r.HasClientID && target.HasClientID && r.ClientID == target.ClientID {
			continue
		}
		matching = append(matching, r)
	}
	return count, matching
}
