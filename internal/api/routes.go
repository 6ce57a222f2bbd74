package api

func (s *Server) setupRoutes() {
	s.router.GET("/", s.healthHandler.WorkerInfo)
	s.router.GET("/health", s.healthHandler.HealthCheck)
	s.router.GET("/api/info", s.healthHandler.WorkerInfo)

	zone := s.router.Group("/zone")
	{
		zone.GET("", s.zoneHandler.GetZone)
		zone.PUT("", s.zoneHandler.PutZone)
		zone.POST("/save", s.zoneHandler.SaveZone)
		zone.POST("/load", s.zoneHandler.LoadZone)
	}

	gate := s.router.Group("/gate")
	{
		gate.PUT("/threshold", s.gateHandler.PutThreshold)
		gate.POST("/reset", s.gateHandler.Reset)
	}

	s.router.GET("/pipeline/stats", s.pipelineHandler.GetStats)
	s.router.POST("/snapshot", s.pipelineHandler.Snapshot)
}
