package database

import (
	"roadwatch-service/models"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// Viewport clustering for the admin map: hotspots are grouped into S2 cells
// at a level picked so a typical viewport shows a bounded number of clusters.

const (
	expectedCells = 160
	minLevel      = 6
	maxLevel      = 16
)

type clusterUnit struct {
	count     int64
	potholes  int64
	anomalies int64
	severity  models.Severity
	origCell  s2.CellID
}

type hotspotClusterer struct {
	level int
	cells map[s2.CellID]*clusterUnit
}

func cellBaseLevel(vp *models.ViewPort, center *models.Point) int {
	minLL := s2.LatLngFromDegrees(vp.LatMin, vp.LonMin)
	maxLL := s2.LatLngFromDegrees(vp.LatMax, vp.LonMax)

	rect := s2.Rect{
		Lat: r1.Interval{
			Lo: minLL.Lat.Radians(),
			Hi: maxLL.Lat.Radians()},
		Lng: s1.Interval{
			Lo: minLL.Lng.Radians(),
			Hi: maxLL.Lng.Radians()},
	}

	vpArea := rect.Area()

	centerCell := s2.CellIDFromLatLng(s2.LatLngFromDegrees(center.Lat, center.Lon))

	for lv := maxLevel; lv >= minLevel; lv-- {
		cc := s2.CellFromCellID(centerCell.Parent(lv))
		if vpArea/cc.ApproxArea() < expectedCells {
			return lv
		}
	}
	return minLevel // Large enough level
}

func newHotspotClusterer(vp *models.ViewPort, center *models.Point) *hotspotClusterer {
	return &hotspotClusterer{
		level: cellBaseLevel(vp, center),
		cells: make(map[s2.CellID]*clusterUnit),
	}
}

func (c *hotspotClusterer) Add(lat, lon float64, potholes, anomalies int64, severity models.Severity) {
	pc := s2.CellIDFromLatLng(s2.LatLngFromDegrees(lat, lon))
	parent := pc.Parent(c.level)
	unit, ok := c.cells[parent]
	if !ok {
		unit = &clusterUnit{severity: severity}
		c.cells[parent] = unit
	}
	unit.count += 1
	unit.potholes += potholes
	unit.anomalies += anomalies
	unit.severity = models.MaxSeverity(unit.severity, severity)
	unit.origCell = pc
}

func (c *hotspotClusterer) Results() []models.MapResult {
	r := make([]models.MapResult, 0, len(c.cells))
	for cell, unit := range c.cells {
		ll := cell.LatLng()
		if unit.count == 1 {
			// A lone hotspot keeps its exact coordinates.
			ll = unit.origCell.LatLng()
		}
		r = append(r, models.MapResult{
			Latitude:        ll.Lat.Degrees(),
			Longitude:       ll.Lng.Degrees(),
			Count:           unit.count,
			TotalPotholes:   unit.potholes,
			TotalAnomalies:  unit.anomalies,
			HighestSeverity: unit.severity,
		})
	}
	return r
}
