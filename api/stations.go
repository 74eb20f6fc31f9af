package api

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/semanticallynull/gbfs-nearby/internal/middleware"
	"github.com/semanticallynull/gbfs-nearby/station"
)

func (a *API) stationsHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)
	location := a.location(c)

	if id := c.Query("stationId"); id != "" {
		s, err := a.sr.GetStation(c, location, id)
		if err != nil {
			if errors.Is(err, station.ErrNotFound) {
				c.JSON(404, gin.H{"error": "Station not found"})
				return
			}
			logger.ErrorContext(c, "failed to get station", "error", err, "station_id", id, "location", location)
			c.JSON(500, gin.H{"error": errFetchFailed})
			return
		}
		c.JSON(200, s)
		return
	}

	stations, err := a.sr.GetStations(c, location)
	if err != nil {
		logger.ErrorContext(c, "failed to get stations", "error", err, "location", location)
		c.JSON(500, gin.H{"error": errFetchFailed})
		return
	}

	c.JSON(200, stations)
}
