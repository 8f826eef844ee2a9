package models

import (
	"time"

	geojson "github.com/paulmach/go.geojson"
)

// LocationsFeatureCollection renders hotspots as a GeoJSON FeatureCollection
// for map clients.
func LocationsFeatureCollection(locations []AggregatedLocation) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, loc := range locations {
		f := geojson.NewPointFeature([]float64{loc.Longitude, loc.Latitude})
		f.SetProperty("id", loc.ID)
		f.SetProperty("grid_key", loc.GridKey)
		f.SetProperty("total_potholes", loc.TotalPotholes)
		f.SetProperty("total_anomalies", loc.TotalAnomalies)
		f.SetProperty("highest_severity", string(loc.HighestSeverity))
		f.SetProperty("report_count", loc.ReportCount)
		f.SetProperty("status", string(loc.Status))
		f.SetProperty("first_reported_at", loc.FirstReportedAt.Format(time.RFC3339))
		f.SetProperty("last_reported_at", loc.LastReportedAt.Format(time.RFC3339))
		if loc.VerifiedAt != nil {
			f.SetProperty("verified_at", loc.VerifiedAt.Format(time.RFC3339))
		}
		fc.AddFeature(f)
	}
	return fc
}
