package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/prodcat/internal/api/handler"
	"github.com/timmy/prodcat/internal/api/middleware"
	"github.com/timmy/prodcat/internal/logger"
	"github.com/timmy/prodcat/internal/service"
	"gorm.io/gorm"
)

// Services bundles what the routes serve.
type Services struct {
	Products     *service.ProductService
	Observations *service.ObservationService
	Images       *service.ImageService
	// DB is only pinged by /health and may be nil.
	DB *gorm.DB
}

// RouterConfig holds the HTTP surface settings.
type RouterConfig struct {
	Mode string
	CORS middleware.CORSConfig
	Log  *logger.Logger
}

// SetupRouter configures the Gin router with all routes.
func SetupRouter(svc Services, cfg RouterConfig) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}
	log := cfg.Log
	if log == nil {
		log = logger.GetDefault()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(cfg.CORS))

	healthHandler := handler.NewHealthHandler(svc.DB)
	productHandler := handler.NewProductHandler(svc.Products)
	observationHandler := handler.NewObservationHandler(svc.Observations)
	imageHandler := handler.NewImageHandler(svc.Images)

	r.GET("/health", healthHandler.Health)

	v1 := r.Group("/api/v1")
	{
		// Pure conversions, no catalog access
		v1.POST("/richtext/html", observationHandler.ToHTML)
		v1.POST("/richtext/rtf", observationHandler.ToRTF)
		v1.GET("/products/:id/observation/preview", observationHandler.Preview)
		v1.POST("/products/:id/observation/preview", observationHandler.Preview)
		v1.POST("/products/:id/observation/generate", observationHandler.Generate)
		v1.GET("/products/:id/observation/history", observationHandler.History)

		v1.POST("/products/:id/image/generate", imageHandler.Generate)
		v1.GET("/products/:id/images", imageHandler.History)
		v1.POST("/images/improve", imageHandler.Improve)
		v1.GET("/images/search", imageHandler.Search)
		v1.POST("/images/fetch", imageHandler.Fetch)
		v1.POST("/images/ocr", imageHandler.OCR)

		// Catalog-backed, need the caller's token
		catalog := v1.Group("", middleware.CatalogToken())
		catalog.GET("/products", productHandler.List)
		catalog.GET("/families", productHandler.Families)
		catalog.GET("/brands", productHandler.Brands)
		catalog.PUT("/products/:id/observation", observationHandler.Save)
		catalog.PUT("/products/:id/image", imageHandler.Save)
		catalog.GET("/products/:id/image/central", imageHandler.Central)
	}

	return r
}
