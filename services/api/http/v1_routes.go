package http

// registerV1Routes sets up the versioned API.
// Groups: /api/v1/snowCannons, /api/v1/map
func (s *Server) registerV1Routes() {
	v1 := s.engine.Group("/api/v1")
	v1.Use(apiVersionMiddleware()) // Add X-API-Version: v1 header

	// Cannon endpoints - records with their latest measurement
	cannons := v1.Group("/snowCannons")
	{
		cannons.GET("", s.handleV1ListCannons)
		cannons.GET("/geojson", s.handleV1GeoJSON)
		cannons.GET("/:id", s.handleV1GetCannon)
	}

	// Map endpoints - style derived from the color tiers
	mapGroup := v1.Group("/map")
	{
		mapGroup.GET("/style", s.handleV1MapStyle)
	}
}
