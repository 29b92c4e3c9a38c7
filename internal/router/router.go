package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/somaedu/soma-backend/internal/config"
	"github.com/somaedu/soma-backend/internal/handler"
	"github.com/somaedu/soma-backend/internal/middleware"
	"github.com/somaedu/soma-backend/internal/response"
	"github.com/somaedu/soma-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth    *handler.AuthHandler
	Attempt *handler.AttemptHandler
	Quiz    *handler.QuizHandler
	Student *handler.StudentHandler
	Report  *handler.ReportHandler
	Tutor   *handler.TutorHandler
	Media   *handler.MediaHandler
	WS      *handler.WSHandler
	System  *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
		corsConfig.AllowCredentials = true
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", "X-Client-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Serve uploaded media files statically with aggressive caching (1 year).
	uploadsGroup := router.Group("/uploads")
	uploadsGroup.Use(middleware.CacheControl(31536000))
	{
		uploadsGroup.Static("/", cfg.UploadDir)
	}

	// Health check.
	router.GET("/health", handlers.System.Health)

	// Rate limiter for the public attempt surface (120 requests per minute
	// per IP; answer autosaves are chatty).
	attemptLimiter := middleware.NewRateLimiter(120, time.Minute)

	// ─── 1. Public Attempt Group (Rate Limited, No Auth) ───────────────
	// Exam clients identify by name at entry; there is no student login.
	attemptAPI := router.Group("/api/v1/quizzes/:quiz_id")
	attemptAPI.Use(attemptLimiter.Middleware())
	{
		attemptAPI.GET("/entry", handlers.Attempt.Entry)
		attemptAPI.POST("/check", handlers.Attempt.CheckPrior)
		attemptAPI.POST("/start", handlers.Attempt.Start)
		attemptAPI.POST("/answer", handlers.Attempt.Answer)
		attemptAPI.POST("/navigate", handlers.Attempt.Navigate)
		attemptAPI.POST("/review", handlers.Attempt.Review)
		attemptAPI.POST("/submit", handlers.Attempt.Submit)
		attemptAPI.GET("/state", handlers.Attempt.State)
	}

	// ─── 2. WebSocket Group (Public) ───────────────────────────────────
	ws := router.Group("/ws/v1")
	{
		ws.GET("/quizzes/:quiz_id/stream", handlers.WS.AttemptStream)
	}

	// ─── 3. Auth Group (Public, Rate Limited) ──────────────────────────
	authLimiter := middleware.NewRateLimiter(30, time.Minute)
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/login", handlers.Auth.Login)
		auth.GET("/me", middleware.RequireTutorJWT(authService), handlers.Auth.Me)
	}

	// ─── 4. Tutor Group (JWT) ──────────────────────────────────────────
	tutorAPI := router.Group("/api/v1/tutor")
	tutorAPI.Use(middleware.RequireTutorJWT(authService))
	{
		// Quiz management
		tutorAPI.GET("/quizzes", handlers.Quiz.ListQuizzes)
		tutorAPI.POST("/quizzes", handlers.Quiz.CreateQuiz)
		tutorAPI.GET("/quizzes/:quiz_id", handlers.Quiz.GetQuiz)
		tutorAPI.PUT("/quizzes/:quiz_id", handlers.Quiz.UpdateQuiz)
		tutorAPI.DELETE("/quizzes/:quiz_id", handlers.Quiz.DeleteQuiz)
		tutorAPI.POST("/quizzes/:quiz_id/publish", handlers.Quiz.PublishQuiz)
		tutorAPI.POST("/quizzes/:quiz_id/archive", handlers.Quiz.ArchiveQuiz)

		// Question management
		tutorAPI.GET("/quizzes/:quiz_id/questions", handlers.Quiz.ListQuestions)
		tutorAPI.POST("/quizzes/:quiz_id/questions", handlers.Quiz.AddQuestion)
		tutorAPI.PUT("/quizzes/:quiz_id/questions", handlers.Quiz.ReplaceQuestions)

		// Results
		tutorAPI.GET("/quizzes/:quiz_id/results", handlers.Report.ListResults)
		tutorAPI.GET("/quizzes/:quiz_id/results/:student_id", handlers.Report.GetResultDetail)

		// Students and roster
		tutorAPI.GET("/students", handlers.Student.ListStudents)
		tutorAPI.POST("/students/link", handlers.Student.LinkStudent)
		tutorAPI.DELETE("/students/:student_id/link", handlers.Student.UnlinkStudent)

		// Media upload
		tutorAPI.POST("/media/upload", handlers.Media.UploadMedia)
	}

	// ─── 5. Admin Group (Super-Admin JWT) ──────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireSuperAdmin(authService))
	{
		adminAPI.GET("/tutors", handlers.Tutor.ListTutors)
		adminAPI.POST("/tutors", handlers.Tutor.CreateTutor)
		adminAPI.PUT("/tutors/:tutor_id", handlers.Tutor.UpdateTutor)
		adminAPI.DELETE("/tutors/:tutor_id", handlers.Tutor.DeleteTutor)

		adminAPI.GET("/system/status", handlers.System.Status)
	}

	return router
}
