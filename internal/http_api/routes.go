package http_api

// routes sets up the routes for the HTTP server.
func (s *HTTPServer) routes() {
	v1 := s.router.Group("/api/v1")

	v1.POST("/remittances", s.createRemittance)
	v1.GET("/remittances", s.listRemittances)
	v1.GET("/remittances/:id", s.getRemittance)
	v1.POST("/remittances/:id/contribute", s.contribute)
	v1.POST("/remittances/:id/release", s.releaseFunds)
	v1.POST("/remittances/:id/cancel", s.cancelRemittance)
	v1.POST("/remittances/:id/refund", s.claimRefund)
	v1.GET("/remittances/:id/contributions/:principal", s.getContribution)
	v1.GET("/remittances/:id/refunds/:principal", s.isRefundClaimed)
	v1.GET("/remittances/:id/contributors", s.listContributors)

	v1.GET("/platform/fee", s.getPlatformFee)
	v1.PUT("/platform/fee", s.setPlatformFee)
	v1.POST("/platform/pause", s.pauseContract)
	v1.POST("/platform/unpause", s.unpauseContract)
}
