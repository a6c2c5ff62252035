package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/02loveslollipop/snow-cannon-viewer/services/internal/mapstyle"
)

func (s *Server) generatedAt() string {
	return s.clock.Now().UTC().Format(time.RFC3339)
}

// handleV1ListCannons returns cannons matching the query filters
// GET /api/v1/snowCannons?secteur=&type=&minConsumption=&maxConsumption=
func (s *Server) handleV1ListCannons(c *gin.Context) {
	cannons, ok := s.listCannons(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": cannons,
		"meta": gin.H{
			"count":        len(cannons),
			"generated_at": s.generatedAt(),
		},
	})
}

// handleV1GetCannon returns one cannon with its latest measurement
// GET /api/v1/snowCannons/:id
func (s *Server) handleV1GetCannon(c *gin.Context) {
	found, ok := s.lookupCannon(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": found,
	})
}

// handleV1GeoJSON returns the enriched map layer with match counters
// GET /api/v1/snowCannons/geojson
func (s *Server) handleV1GeoJSON(c *gin.Context) {
	res, ok := s.mergedLayer(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": res.Collection,
		"meta": gin.H{
			"features":     len(res.Collection.Features),
			"enriched":     res.Enriched,
			"unmatched":    len(res.Unmatched),
			"generated_at": s.generatedAt(),
		},
	})
}

// handleV1MapStyle returns the viewport, tier legend and layer definitions
// GET /api/v1/map/style
func (s *Server) handleV1MapStyle(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"source": mapstyle.SourceID,
			"config": mapstyle.DefaultConfig(),
			"tiers":  mapstyle.Legend(),
			"layers": mapstyle.CannonLayers(),
		},
	})
}
