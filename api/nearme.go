package api

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/semanticallynull/gbfs-nearby/geo"
	"github.com/semanticallynull/gbfs-nearby/internal/middleware"
)

const (
	errFetchFailed     = "Failed to fetch GBFS data"
	errInvalidLocation = "Missing or invalid lat/lon query params"
)

func (a *API) nearMeHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	lat, lon, ok := parseLatLon(c.Query("lat"), c.Query("lon"))
	if !ok {
		c.JSON(400, gin.H{"error": errInvalidLocation})
		return
	}

	location := a.location(c)
	s, err := a.sb.Build(c, lat, lon, location)
	if err != nil {
		logger.ErrorContext(c, "failed to build nearby snapshot", "error", err, "location", location)
		c.JSON(500, gin.H{"error": errFetchFailed})
		return
	}

	c.JSON(200, s)
}

// parseLatLon is strict: trailing garbage such as "52.6abc" is rejected rather than
// truncated to its numeric prefix.
func parseLatLon(rawLat, rawLon string) (float64, float64, bool) {
	lat, err := strconv.ParseFloat(rawLat, 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err := strconv.ParseFloat(rawLon, 64)
	if err != nil {
		return 0, 0, false
	}
	if !geo.ValidCoordinate(lat, lon) {
		return 0, 0, false
	}
	return lat, lon, true
}
