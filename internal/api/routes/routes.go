// server/internal/api/routes/routes.go
package routes

import (
	"time"

	"farmwise-api-server/config"
	"farmwise-api-server/internal/ai"
	"farmwise-api-server/internal/api/handlers"
	"farmwise-api-server/internal/api/middleware"
	"farmwise-api-server/internal/repository"
	"farmwise-api-server/internal/session"
	"farmwise-api-server/internal/socket"
	"farmwise-api-server/internal/storage"
	"farmwise-api-server/internal/upload"
	"farmwise-api-server/internal/weather"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Dependencies are the components the router hands to its handlers.
type Dependencies struct {
	Cfg       config.Config
	Repo      repository.Repository // nil without MongoDB
	Store     *session.Store
	Hub       *socket.Hub
	Weather   *weather.Client
	Advisor   *ai.Advisor
	Assistant *ai.Assistant
	// Transcriber backs /ai/transcribe. VoiceTranscriber is nil when speech
	// to text is not configured.
	Transcriber      ai.Transcriber
	VoiceTranscriber ai.Transcriber
	Uploads          *upload.Service
	// Local is set when photos are kept on disk and served by this router.
	Local *storage.LocalStore

	AIReady      bool
	TranscribeOK bool
}

// SetupRouter wires every handler under /api.
func SetupRouter(d Dependencies) *gin.Engine {
	router := gin.Default()
	router.Use(corsMiddleware(d.Cfg.CORS))

	if d.Local != nil {
		uploads := router.Group(d.Local.PublicPath())
		uploads.Use(noSniff)
		uploads.Static("/", d.Local.Dir())
	}

	maxImage := d.Cfg.Upload.MaxImageBytes
	maxAudio := d.Cfg.Upload.MaxAudioBytes

	healthHandler := &handlers.HealthHandler{
		Repo:         d.Repo,
		Store:        d.Store,
		AIReady:      d.AIReady,
		WeatherOK:    d.Weather.Configured(),
		TranscribeOK: d.TranscribeOK,
	}
	weatherHandler := &handlers.WeatherHandler{Client: d.Weather}
	aiHandler := &handlers.AIHandler{
		Advisor:       d.Advisor,
		Assistant:     d.Assistant,
		Transcriber:   d.Transcriber,
		Weather:       d.Weather,
		Repo:          d.Repo,
		MaxImageBytes: maxImage,
		MaxAudioBytes: maxAudio,
	}
	uploadHandler := &handlers.UploadHandler{Service: d.Uploads, MaxBytes: maxImage}
	userHandler := &handlers.UserHandler{Repo: d.Repo}
	cropHandler := &handlers.CropHandler{Repo: d.Repo}
	activityHandler := &handlers.ActivityHandler{Repo: d.Repo}
	sessionHandler := &handlers.SessionHandler{
		Store:         d.Store,
		Uploads:       d.Uploads,
		Advisor:       d.Advisor,
		Assistant:     d.Assistant,
		Weather:       d.Weather,
		Repo:          d.Repo,
		MaxImageBytes: maxImage,
	}
	webSocketHandler := &handlers.WebSocketHandler{Hub: d.Hub, Store: d.Store}
	voiceHandler := &handlers.VoiceHandler{Transcriber: d.VoiceTranscriber, MaxBytes: maxAudio}

	api := router.Group("/api")
	{
		api.GET("/", healthHandler.Root)
		api.GET("/health", healthHandler.Health)
		api.GET("/demo", healthHandler.Demo)

		api.GET("/weather", weatherHandler.GetWeather)
		api.GET("/weather/:lat/:lon", weatherHandler.GetWeatherByCoordinates)

		aiRoutes := api.Group("/ai")
		{
			aiRoutes.POST("/advice/:cropName", aiHandler.GetAdvice)
			aiRoutes.POST("/chat", aiHandler.Chat)
			aiRoutes.POST("/identify-crop", aiHandler.IdentifyCrop)
			aiRoutes.POST("/transcribe", aiHandler.Transcribe)
		}

		api.POST("/upload-image", uploadHandler.UploadImage)
		api.POST("/upload-and-identify-crop", uploadHandler.UploadAndIdentifyCrop)

		// Durable records, only with MongoDB.
		db := api.Group("/")
		db.Use(middleware.RequireDatabase(d.Repo))
		{
			db.POST("/users", userHandler.CreateUser)
			db.GET("/users/:id", userHandler.GetUser)
			db.PUT("/users/:id", userHandler.UpdateUser)

			db.POST("/crops", cropHandler.CreateCrop)
			db.GET("/crops/:userId", cropHandler.GetUserCrops)
			db.GET("/crop/:id", cropHandler.GetCrop)
			db.PUT("/crop/:id", cropHandler.UpdateCrop)
			db.DELETE("/crop/:id", cropHandler.DeleteCrop)

			db.POST("/activities", activityHandler.CreateActivity)
			db.GET("/activities/:cropId", activityHandler.GetCropActivities)
		}

		api.POST("/sessions", sessionHandler.CreateSession)
		sessions := api.Group("/sessions/:sid")
		sessions.Use(middleware.LoadSession(d.Store))
		{
			sessions.GET("", sessionHandler.GetSession)
			sessions.DELETE("", sessionHandler.DeleteSession)
			sessions.PUT("/user", sessionHandler.ReplaceUser)
			sessions.PUT("/crops", sessionHandler.ReplaceCrops)
			sessions.POST("/crops", sessionHandler.AddCrop)

			crop := sessions.Group("/crops/:cropId")
			{
				crop.GET("", sessionHandler.GetCrop)
				crop.POST("/activities", sessionHandler.AddActivity)
				crop.POST("/photo", sessionHandler.UploadCropPhoto)
				crop.GET("/advice", sessionHandler.GetAdvice)
				crop.GET("/chat", sessionHandler.GetTranscript)
				crop.POST("/chat", sessionHandler.SendChat)
			}

			sessions.GET("/ws", webSocketHandler.ServeWs)
			sessions.GET("/voice", voiceHandler.ServeVoice)
		}
	}

	return router
}

// noSniff stops browsers from guessing a type other than the one the file
// was stored as.
func noSniff(c *gin.Context) {
	c.Header("X-Content-Type-Options", "nosniff")
	c.Next()
}

func corsMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	cc := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if cfg.AllowsAllOrigins() || len(cfg.Origins) == 0 {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = cfg.Origins
		cc.AllowCredentials = true
	}
	return cors.New(cc)
}
