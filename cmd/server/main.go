package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/yukikurage/taskflow-api/internal/auth"
	"github.com/yukikurage/taskflow-api/internal/config"
	"github.com/yukikurage/taskflow-api/internal/constants"
	"github.com/yukikurage/taskflow-api/internal/database"
	"github.com/yukikurage/taskflow-api/internal/handlers"
	"github.com/yukikurage/taskflow-api/internal/middleware"
	"github.com/yukikurage/taskflow-api/internal/repository"
	"github.com/yukikurage/taskflow-api/internal/services"
	"github.com/yukikurage/taskflow-api/internal/workers"
	"golang.org/x/time/rate"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.MigrateDatabase(db, cfg.DBDriver, cfg.MigrationsDir); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	subRepo := repository.NewPushSubscriptionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	reminderRepo := repository.NewReminderRepository(db)
	maintenanceRepo := repository.NewMaintenanceRepository(db, constants.DefaultRetryAfter)
	billingEventRepo := repository.NewBillingEventRepository(db)

	// Optional integrations stay nil when unconfigured
	var (
		generator services.TaskGenerator
		planner   services.StudyPlanner
		sender    services.PushSender
		mailer    services.Mailer
		provider  services.BillingProvider
	)
	if cfg.GroqAPIKey != "" {
		aiService := services.NewAIService(cfg.GroqAPIKey, cfg.GroqBaseURL, cfg.GroqModel)
		generator, planner = aiService, aiService
	} else {
		log.Println("GROQ_API_KEY not set, AI features disabled")
	}
	if cfg.VAPIDPublicKey != "" && cfg.VAPIDPrivateKey != "" {
		sender = services.NewWebPushSender(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubject)
	} else {
		log.Println("VAPID keys not set, push delivery disabled")
	}
	if cfg.SendGridAPIKey != "" {
		mailer = services.NewSendGridMailer(cfg.SendGridAPIKey, cfg.MailFrom)
	}
	if cfg.PayPalClientID != "" && cfg.PayPalClientSecret != "" {
		paypalProvider, err := services.NewPayPalProvider(cfg.PayPalClientID, cfg.PayPalClientSecret, cfg.PayPalMode, cfg.PayPalWebhookID)
		if err != nil {
			log.Printf("PayPal client unavailable: %v", err)
		} else {
			provider = paypalProvider
		}
	}

	// Services
	tokenIssuer := auth.NewTokenIssuer(cfg.AuthJWTSecret, constants.AccessTokenTTL)
	creditService := services.NewCreditService(userRepo)
	notificationService := services.NewNotificationService(notificationRepo, services.NewNotificationDispatcher(subRepo, sender))
	reminderService := services.NewReminderService(reminderRepo, taskRepo, teamRepo, notificationService)
	authService := services.NewAuthService(userRepo, mailer, cfg.AppBaseURL)
	teamService := services.NewTeamService(teamRepo)
	taskService := services.NewTaskService(taskRepo, teamRepo, generator, creditService).
		WithNotifications(notificationService, reminderService)
	maintenanceService := services.NewMaintenanceService(maintenanceRepo, userRepo, notificationRepo)
	billingService := services.NewBillingService(userRepo, billingEventRepo, provider)

	// Initialize Gin router
	r := gin.Default()

	// Setup session middleware with Redis
	redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
	store, err := redisStore.NewStore(
		10,        // Redis pool size
		"tcp",     // network type
		redisAddr, // Redis address from config
		"",        // username (empty for default user)
		"",        // password (empty = no password)
		[]byte(cfg.SessionSecret),
	)
	if err != nil {
		log.Fatalf("Failed to create Redis store: %v", err)
	}
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, tokenIssuer)
	teamHandler := handlers.NewTeamHandler(teamService)
	taskHandler := handlers.NewTaskHandler(taskService)
	notificationHandler := handlers.NewNotificationHandler(services.NewPushSubscriptionService(subRepo), notificationService)
	calendarHandler := handlers.NewCalendarHandler(reminderService)
	cronHandler := handlers.NewCronHandler(maintenanceService, rate.NewLimiter(rate.Every(constants.CronMinInterval), constants.CronBurst))
	billingHandler := handlers.NewBillingHandler(billingService)
	aiHandler := handlers.NewAIHandler(services.NewStudyService(planner, creditService))

	requireAuth := middleware.RequireAuth(tokenIssuer)
	requireTeam := middleware.RequireTeamAccess(teamRepo)
	requireTask := middleware.RequireTaskAccess(taskRepo, teamRepo)
	sendLimiter := middleware.NewUserRateLimiter(6*time.Second, 10)
	aiLimiter := middleware.NewUserRateLimiter(10*time.Second, 5)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Taskflow API is running",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/signup", authHandler.Signup)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/logout", authHandler.Logout)
			authRoutes.POST("/forgot-password", authHandler.ForgotPassword)
			authRoutes.POST("/reset-password", authHandler.ResetPassword)
			authRoutes.GET("/me", requireAuth, authHandler.GetCurrentUser)
			authRoutes.PATCH("/profile", requireAuth, authHandler.UpdateProfile)
		}

		// Team routes (protected)
		teams := api.Group("/teams")
		teams.Use(requireAuth)
		{
			teams.POST("", teamHandler.CreateTeam)
			teams.GET("", teamHandler.ListTeams)
			teams.POST("/join", teamHandler.JoinTeam)
			teams.DELETE("/members", teamHandler.RemoveMemberByBody)
			teams.GET("/:id", requireTeam, teamHandler.GetTeam)
			teams.PUT("/:id", requireTeam, teamHandler.UpdateTeam)
			teams.DELETE("/:id", requireTeam, teamHandler.DeleteTeam)
			teams.POST("/:id/regenerate-code", requireTeam, teamHandler.RegenerateInviteCode)
			teams.PATCH("/:id/members/:user_id", requireTeam, teamHandler.ChangeMemberRole)
			teams.DELETE("/:id/members/:user_id", requireTeam, teamHandler.RemoveMember)
		}

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(requireAuth)
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.PUT("/reorder", taskHandler.ReorderTasks)
			tasks.POST("/generate", aiLimiter.Middleware(), taskHandler.GenerateTasks)
			tasks.GET("/:id", requireTask, taskHandler.GetTask)
			tasks.PATCH("/:id", requireTask, taskHandler.UpdateTask)
			tasks.DELETE("/:id", requireTask, taskHandler.DeleteTask)
			tasks.POST("/:id/assign", requireTask, taskHandler.AssignTask)
			tasks.POST("/:id/unassign", requireTask, taskHandler.UnassignTask)
			tasks.POST("/:id/toggle", requireTask, taskHandler.ToggleTask)
		}

		// Notification routes (protected)
		notifications := api.Group("/notifications")
		notifications.Use(requireAuth)
		{
			notifications.GET("", notificationHandler.ListNotifications)
			notifications.POST("/subscribe", notificationHandler.Subscribe)
			notifications.DELETE("/subscribe", notificationHandler.Unsubscribe)
			notifications.GET("/subscriptions", notificationHandler.ListSubscriptions)
			notifications.POST("/send-now", sendLimiter.Middleware(), notificationHandler.SendNow)
			notifications.POST("/read-all", notificationHandler.MarkAllRead)
			notifications.PATCH("/:id/read", notificationHandler.MarkRead)
		}

		api.POST("/calendar/schedule-notification", requireAuth, calendarHandler.ScheduleNotification)
		api.POST("/ai/study-plan", requireAuth, aiLimiter.Middleware(), aiHandler.StudyPlan)

		// Cron routes (shared secret)
		cron := api.Group("/cron")
		cron.Use(middleware.RequireCronSecret(cfg.CronSecret))
		{
			cron.POST("/reset-daily-tasks-by-timezone", cronHandler.ResetDailyTasks)
			cron.POST("/reset-monthly-credits", cronHandler.ResetMonthlyCredits)
		}

		// Billing routes
		paypal := api.Group("/paypal")
		{
			paypal.POST("/webhook", billingHandler.Webhook)
			paypal.POST("/subscription-success", requireAuth, billingHandler.SubscriptionSuccess)
			paypal.POST("/cancel-subscription", requireAuth, billingHandler.CancelSubscription)
			paypal.POST("/capture-order", requireAuth, billingHandler.CaptureOrder)
		}
		api.GET("/billing/me", requireAuth, billingHandler.Me)
	}

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Paypal-Transmission-Id", "Paypal-Transmission-Sig"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      corsHandler.Handler(r),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Background workers
	reminderWorker := &workers.ReminderWorker{
		Reminders: reminderService,
		Interval:  cfg.ReminderPollInterval,
	}
	go reminderWorker.Start(ctx)

	cleanupWorker := &workers.NotificationCleanupWorker{
		Maintenance:    maintenanceService,
		RetentionHours: cfg.NotificationRetentionHours,
	}
	go cleanupWorker.Start(ctx)

	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
