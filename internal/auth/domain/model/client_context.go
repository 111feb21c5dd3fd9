package model

// UnknownValue replaces a client attribute the request did not carry.
const UnknownValue = "unknown"

// ClientContext describes the client a request came from.
type ClientContext struct {
	IPAddress  string
	UserAgent  string
	DeviceInfo DeviceInfo
	Location   *Location
}

// GeoStatus tells how much of a location lookup succeeded.
type GeoStatus string

const (
	GeoAbsent  GeoStatus = "absent"
	GeoPartial GeoStatus = "partial"
	GeoTotal   GeoStatus = "total"
)

// GeoResult is the outcome of a geolocation lookup.
type GeoResult struct {
	Status   GeoStatus `json:"status"`
	Location *Location `json:"location,omitempty"`
}

// AbsentGeo is the result used whenever a lookup is skipped or fails.
func AbsentGeo() GeoResult {
	return GeoResult{Status: GeoAbsent}
}

// NewGeoResult classifies loc as total when country, city and coordinates are all known.
func NewGeoResult(loc *Location) GeoResult {
	if loc.IsZero() {
		return AbsentGeo()
	}
	if loc.Country != "" && loc.City != "" && loc.Latitude != nil && loc.Longitude != nil {
		return GeoResult{Status: GeoTotal, Location: loc}
	}
	return GeoResult{Status: GeoPartial, Location: loc}
}
