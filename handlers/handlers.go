package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"roadwatch-service/apperrors"
	"roadwatch-service/database"
	"roadwatch-service/events"
	"roadwatch-service/middleware"
	"roadwatch-service/models"
	ws "roadwatch-service/websocket"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	reports     *database.ReportsService
	locations   *database.LocationsService
	assignments *database.AssignmentsService
	contractors *database.ContractorsService
	hub         *ws.Hub
	publisher   *events.Publisher // nil when event publishing is disabled
}

func NewHandler(
	reports *database.ReportsService,
	locations *database.LocationsService,
	assignments *database.AssignmentsService,
	contractors *database.ContractorsService,
	hub *ws.Hub,
	publisher *events.Publisher,
) *Handler {
	return &Handler{
		reports:     reports,
		locations:   locations,
		assignments: assignments,
		contractors: contractors,
		hub:         hub,
		publisher:   publisher,
	}
}

// HealthCheck returns a simple health status
func (h *Handler) HealthCheck(c *gin.Context) {
	connectedClients, _ := h.hub.GetStats()
	c.JSON(http.StatusOK, gin.H{
		"status":            "healthy",
		"service":           "roadwatch-service",
		"connected_clients": connectedClients,
	})
}

// SubmitReport ingests one detection batch from a device.
func (h *Handler) SubmitReport(c *gin.Context) {
	args := &models.SubmitReportRequest{}
	if err := c.BindJSON(args); err != nil {
		log.Errorf("Failed to get the argument in submit call: %v", err)
		return
	}

	userID := middleware.UserIDFromContext(c)
	resp, err := h.reports.SubmitReport(c.Request.Context(), args, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.notifyHotspotUpdates(c, resp.GridKeys)

	c.JSON(http.StatusOK, resp)
}

// notifyHotspotUpdates pushes the post-commit hotspot state to dashboards and
// the event exchange. Best-effort: a submission that committed is never
// failed over a notification.
func (h *Handler) notifyHotspotUpdates(c *gin.Context, gridKeys []string) {
	if len(gridKeys) == 0 {
		return
	}

	locations, err := h.locations.GetLocationsByGridKeys(c.Request.Context(), gridKeys)
	if err != nil {
		log.Errorf("Failed to load updated hotspots for notification: %v", err)
		return
	}

	h.hub.BroadcastHotspots(locations)

	if h.publisher != nil {
		for i := range locations {
			if err := h.publisher.PublishHotspotUpdate(&locations[i]); err != nil {
				log.Errorf("Failed to publish hotspot event for %s: %v", locations[i].GridKey, err)
			}
		}
	}
}

// UpdateReportStatus applies an administrative status change to a report.
func (h *Handler) UpdateReportStatus(c *gin.Context) {
	reportID := c.Param("reportId")

	args := &models.UpdateReportStatusRequest{}
	if err := c.BindJSON(args); err != nil {
		log.Errorf("Failed to get the argument in update report status call: %v", err)
		return
	}

	err := h.reports.UpdateReportStatus(c.Request.Context(), reportID, models.ReportStatus(args.Status))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": true})
}

// GetLocations lists hotspots with optional status/severity/bbox filters.
func (h *Handler) GetLocations(c *gin.Context) {
	filters, err := locationFilters(c)
	if err != nil {
		respondError(c, err)
		return
	}

	locations, err := h.locations.GetLocations(c.Request.Context(), filters)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, &models.LocationsResponse{
		Locations: locations,
		Count:     len(locations),
	})
}

// GetLocationsGeoJSON renders the same listing as a GeoJSON FeatureCollection.
func (h *Handler) GetLocationsGeoJSON(c *gin.Context) {
	filters, err := locationFilters(c)
	if err != nil {
		respondError(c, err)
		return
	}

	locations, err := h.locations.GetLocations(c.Request.Context(), filters)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.LocationsFeatureCollection(locations))
}

// GetMap returns hotspots clustered for the requested viewport.
func (h *Handler) GetMap(c *gin.Context) {
	vp, err := viewportFromQuery(c, true)
	if err != nil {
		respondError(c, err)
		return
	}

	center := &models.Point{
		Lat: (vp.LatMin + vp.LatMax) / 2,
		Lon: (vp.LonMin + vp.LonMax) / 2,
	}

	results, err := h.locations.GetMapClusters(c.Request.Context(), vp, center)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, &models.MapResponse{Results: results, Count: len(results)})
}

// CreateAssignment assigns a contractor to a hotspot, reusing any open
// assignment row.
func (h *Handler) CreateAssignment(c *gin.Context) {
	args := &models.AssignRequest{}
	if err := c.BindJSON(args); err != nil {
		log.Errorf("Failed to get the argument in assignments call: %v", err)
		return
	}

	adminID := middleware.UserIDFromContext(c)
	id, err := h.assignments.AssignContractor(c.Request.Context(), args, adminID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, &models.AssignResponse{AssignmentID: id})
}

// BatchAssign assigns a contractor to several hotspots atomically.
func (h *Handler) BatchAssign(c *gin.Context) {
	args := &models.BatchAssignRequest{}
	if err := c.BindJSON(args); err != nil {
		log.Errorf("Failed to get the argument in batch assign call: %v", err)
		return
	}

	adminID := middleware.UserIDFromContext(c)
	resp, err := h.assignments.BatchAssign(c.Request.Context(), args, adminID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// UpdateAssignment applies a status and/or notes change to an assignment.
func (h *Handler) UpdateAssignment(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	args := &models.UpdateAssignmentRequest{}
	if err := c.BindJSON(args); err != nil {
		log.Errorf("Failed to get the argument in update assignment call: %v", err)
		return
	}

	if err := h.assignments.UpdateAssignmentStatus(c.Request.Context(), id, args); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": true})
}

// VerifyLocation marks a hotspot verified; the paired assignment update is
// best-effort and reported separately.
func (h *Handler) VerifyLocation(c *gin.Context) {
	id, err := pathID(c, "locationId")
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := h.assignments.VerifyLocation(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// BatchVerify verifies several hotspots atomically.
func (h *Handler) BatchVerify(c *gin.Context) {
	args := &models.BatchVerifyRequest{}
	if err := c.BindJSON(args); err != nil {
		log.Errorf("Failed to get the argument in batch verify call: %v", err)
		return
	}

	resp, err := h.assignments.BatchVerify(c.Request.Context(), args)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// RejectVerification sends a hotspot awaiting verification back to work.
func (h *Handler) RejectVerification(c *gin.Context) {
	id, err := pathID(c, "locationId")
	if err != nil {
		respondError(c, err)
		return
	}

	args := &models.RejectVerificationRequest{}
	if err := c.BindJSON(args); err != nil {
		log.Errorf("Failed to get the argument in reject verification call: %v", err)
		return
	}

	if err := h.assignments.RejectVerification(c.Request.Context(), id, args.Reason); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rejected": true})
}

func (h *Handler) CreateContractor(c *gin.Context) {
	args := &models.CreateContractorRequest{}
	if err := c.BindJSON(args); err != nil {
		log.Errorf("Failed to get the argument in create contractor call: %v", err)
		return
	}

	id, err := h.contractors.CreateContractor(c.Request.Context(), args)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"contractorId": id})
}

func (h *Handler) GetContractors(c *gin.Context) {
	activeOnly := c.Query("active") == "true"

	contractors, err := h.contractors.GetContractors(c.Request.Context(), activeOnly)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, &models.ContractorsResponse{
		Contractors: contractors,
		Count:       len(contractors),
	})
}

func locationFilters(c *gin.Context) (*models.LocationFilters, error) {
	vp, err := viewportFromQuery(c, false)
	if err != nil {
		return nil, err
	}
	return &models.LocationFilters{
		Status:   c.Query("status"),
		Severity: c.Query("severity"),
		ViewPort: vp,
	}, nil
}

// viewportFromQuery parses the sw/ne corner params. All four must be present
// together; when required is false an absent bbox yields nil.
func viewportFromQuery(c *gin.Context, required bool) (*models.ViewPort, error) {
	const op = "viewport"

	params := [4]string{"sw_lat", "sw_lon", "ne_lat", "ne_lon"}
	var values [4]float64
	present := 0
	for i, name := range params {
		s, has := c.GetQuery(name)
		if !has {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, apperrors.Validationf(op, "parsing %s: %v", name, err)
		}
		values[i] = v
		present++
	}
	if present == 0 {
		if required {
			return nil, apperrors.Validationf(op, "sw_lat, sw_lon, ne_lat, ne_lon are required")
		}
		return nil, nil
	}
	if present != len(params) {
		return nil, apperrors.Validationf(op, "all of sw_lat, sw_lon, ne_lat, ne_lon must be provided together")
	}

	return &models.ViewPort{
		LatMin: values[0],
		LonMin: values[1],
		LatMax: values[2],
		LonMax: values[3],
	}, nil
}

func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.Validationf("path", "invalid %s", name)
	}
	return id, nil
}

// respondError maps a service error to its HTTP status. Validation, not-found
// and conflict messages go to the caller verbatim; storage detail stays in the
// logs.
func respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Errorf("Unhandled error: %v", err)
	} else {
		log.Warnf("Request failed: %v", err)
	}

	detail := ""
	var e *apperrors.Error
	if errors.As(err, &e) {
		detail = e.Op
	}
	c.JSON(status, gin.H{
		"message": apperrors.Message(err),
		"error":   detail,
	})
}
