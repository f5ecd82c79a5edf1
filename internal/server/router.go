package server

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/adonai404/imperial-fiscal/internal/access"
	companyhandler "github.com/adonai404/imperial-fiscal/internal/domain/company/handler"
	fiscalhandler "github.com/adonai404/imperial-fiscal/internal/domain/fiscal/handler"
	importhandler "github.com/adonai404/imperial-fiscal/internal/domain/importer/handler"
	"github.com/adonai404/imperial-fiscal/pkg/metrics"
)

// Handlers groups the domain handlers the router mounts
type Handlers struct {
	Company *companyhandler.CompanyHandler
	Fiscal  *fiscalhandler.FiscalHandler
	Import  *importhandler.ImportHandler
}

// NewRouter builds the gin engine with all routes and middleware
func NewRouter(h Handlers, tokens *access.TokenManager, m *metrics.Metrics, limiter *rate.Limiter) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if m != nil {
		router.Use(metricsMiddleware(m))
	}
	if limiter != nil {
		router.Use(rateLimitMiddleware(limiter))
	}
	router.Use(accessMiddleware(tokens))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP", "service": "imperial-fiscal"})
	})

	apiV1 := router.Group("/api/v1")
	{
		apiV1.GET("/companies", h.Company.List)
		apiV1.POST("/companies", h.Company.Create)
		apiV1.GET("/companies/:id", h.Company.Get)
		apiV1.PUT("/companies/:id", h.Company.Update)
		apiV1.DELETE("/companies/:id", h.Company.Delete)
		apiV1.PATCH("/companies/:id/status", h.Company.UpdateStatus)

		apiV1.PUT("/companies/:id/password", h.Company.SetPassword)
		apiV1.DELETE("/companies/:id/password", h.Company.RemovePassword)
		apiV1.POST("/companies/:id/password/verify", h.Company.VerifyPassword)

		apiV1.GET("/registry/:cnpj", h.Company.RegistryLookup)

		apiV1.GET("/fiscal-data/latest", h.Fiscal.Latest)
		apiV1.GET("/fiscal-data/evolution", h.Fiscal.Evolution)
		apiV1.PUT("/fiscal-data/:id", h.Fiscal.UpdateRecord)
		apiV1.DELETE("/fiscal-data/:id", h.Fiscal.DeleteRecord)
		apiV1.GET("/stats", h.Fiscal.Stats)

		apiV1.GET("/companies/:id/fiscal-data", h.Fiscal.CompanyData)
		apiV1.POST("/companies/:id/fiscal-data", h.Fiscal.AddRecord)
		apiV1.GET("/companies/:id/evolution", h.Fiscal.CompanyEvolution)
		apiV1.GET("/companies/:id/fiscal-data/export", h.Fiscal.ExportCompany)
		apiV1.POST("/companies/:id/fiscal-data/import", h.Import.ImportCompanyFile)

		apiV1.POST("/import", h.Import.ImportFile)
		apiV1.GET("/export", h.Fiscal.ExportAll)
		apiV1.GET("/export/template", h.Fiscal.Template)
	}

	return router
}
