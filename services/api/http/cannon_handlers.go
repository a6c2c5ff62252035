package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/02loveslollipop/snow-cannon-viewer/services/internal/cannon"
	"github.com/02loveslollipop/snow-cannon-viewer/services/internal/geo"
)

const (
	defaultRequestTimeout = 10 * time.Second
	defaultGeoJSONTimeout = 15 * time.Second
)

func (s *Server) requestTimeout() time.Duration {
	if s.cfg.RequestTimeout > 0 {
		return s.cfg.RequestTimeout
	}
	return defaultRequestTimeout
}

func (s *Server) geoJSONTimeout() time.Duration {
	if s.cfg.GeoJSONTimeout > 0 {
		return s.cfg.GeoJSONTimeout
	}
	return defaultGeoJSONTimeout
}

// listCannons validates the query string and loads matching cannons. On
// failure the response has been written and ok is false.
func (s *Server) listCannons(c *gin.Context) (cannons []cannon.EnrichedCannon, ok bool) {
	if issues := repeatedParams(c.Request.URL.Query()); len(issues) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters", "details": issues})
		return nil, false
	}

	var q cannonQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters", "details": bindingIssues(err)})
		return nil, false
	}
	f, issues := q.filter()
	if len(issues) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters", "details": issues})
		return nil, false
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.requestTimeout())
	defer cancel()

	cannons, err := s.store.ListCannons(ctx, f)
	if err != nil {
		s.internalError(c, err)
		return nil, false
	}
	if cannons == nil {
		cannons = []cannon.EnrichedCannon{}
	}

	s.metrics.CannonsReturned.Observe(float64(len(cannons)))
	return cannons, true
}

// lookupCannon resolves the :id path parameter. On failure the response has
// been written and ok is false.
func (s *Server) lookupCannon(c *gin.Context) (*cannon.EnrichedCannon, bool) {
	var p idParam
	if err := c.ShouldBindUri(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request params", "issues": bindingIssues(err)})
		return nil, false
	}
	id, err := strconv.Atoi(p.ID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "Invalid request params",
			"issues": []issue{{Path: []string{"id"}, Message: "ID is out of range"}},
		})
		return nil, false
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.requestTimeout())
	defer cancel()

	found, err := s.store.GetCannon(ctx, id)
	if err != nil {
		s.internalError(c, err)
		return nil, false
	}
	if found == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Snow cannon not found"})
		return nil, false
	}
	return found, true
}

// mergedLayer enriches the static layer with every cannon's latest reading.
func (s *Server) mergedLayer(c *gin.Context) (geo.MergeResult, bool) {
	if s.layer == nil {
		s.internalError(c, errors.New("geojson source is not configured"))
		return geo.MergeResult{}, false
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.geoJSONTimeout())
	defer cancel()

	fc, err := s.layer.Load(ctx)
	if err != nil {
		s.metrics.ObserveGeoJSONLoad(0, err)
		s.internalError(c, fmt.Errorf("load geojson: %w", err))
		return geo.MergeResult{}, false
	}

	cannons, err := s.store.ListCannons(ctx, cannon.Filter{})
	if err != nil {
		s.internalError(c, err)
		return geo.MergeResult{}, false
	}

	res := geo.Merge(fc, cannons)
	if n := len(res.Unmatched); n > 0 {
		s.metrics.UnmatchedFeatures.Add(float64(n))
		s.logger.Warnw("geojson features without a cannon record",
			"count", n,
			"ids", res.Unmatched,
			"request_id", requestID(c),
		)
	}
	return res, true
}

// GET /snowCannons
func (s *Server) handleListCannons(c *gin.Context) {
	cannons, ok := s.listCannons(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, cannons)
}

// GET /snowCannons/:id
func (s *Server) handleGetCannon(c *gin.Context) {
	found, ok := s.lookupCannon(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, found)
}

// GET /snowCannons/geojson
func (s *Server) handleGeoJSON(c *gin.Context) {
	res, ok := s.mergedLayer(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, res.Collection)
}
