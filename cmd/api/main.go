package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/agentice/internal/agents"
	"github.com/justsurfingit/agentice/internal/auth"
	"github.com/justsurfingit/agentice/internal/config"
	"github.com/justsurfingit/agentice/internal/database"
	"github.com/justsurfingit/agentice/internal/handlers"
	"github.com/justsurfingit/agentice/internal/pipeline"
	"github.com/justsurfingit/agentice/internal/scraper"
	"github.com/justsurfingit/agentice/internal/services"
	"github.com/justsurfingit/agentice/internal/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

type scheduledJob struct {
	name, spec string
	fn         func(ctx context.Context)
}

func main() {
	// 1. Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 2. Database Connection
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Database: %v", err)
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. LLM + agents
	llm, err := services.NewCompleter(rootCtx, cfg.LLM)
	if err != nil {
		log.Fatalf("LLM: %v", err)
	}
	if closer, ok := llm.(io.Closer); ok {
		defer closer.Close()
	}
	agentSystem := agents.New(llm)

	// 4. Core Services
	userService := services.NewUserService(db)
	resumeService := services.NewResumeService(db)
	opportunityService := services.NewOpportunityService(db)
	applicationService := services.NewApplicationService(db)
	exportService := services.NewExportService(applicationService)
	matcherService := services.NewMatcherService(applicationService)
	approvals := services.NewApprovalBroker()

	// 5. Gmail Integration (optional)
	var gmailService *gmail.Service
	if cfg.Notifications.GmailEnabled {
		log.Println("Initializing Gmail Client...")
		httpClient, err := auth.GetGmailClient(rootCtx, cfg.Notifications.GmailCredentialsPath, cfg.Notifications.GmailTokenPath)
		if err != nil {
			log.Printf("⚠️  Gmail disabled: %v", err)
		} else if gmailService, err = gmail.NewService(rootCtx, option.WithHTTPClient(httpClient)); err != nil {
			log.Printf("⚠️  Failed to create Gmail Service: %v", err)
			gmailService = nil
		} else {
			log.Println("✅ Gmail Service connected successfully.")
		}
	}

	// 6. Notification channels
	channels := []services.Channel{services.LogChannel{}}
	if cfg.Notifications.TelegramToken != "" {
		tg, err := services.NewTelegramChannel(cfg.Notifications.TelegramToken, cfg.Notifications.TelegramChatID)
		if err != nil {
			log.Printf("⚠️  Telegram disabled: %v", err)
		} else {
			channels = append(channels, tg)
		}
	}
	if gmailService != nil {
		channels = append(channels, services.NewGmailChannel(gmailService))
	}
	notifications := services.NewNotificationService(db, channels...)

	emailService := services.NewEmailService(db, agentSystem, gmailService, matcherService, applicationService, cfg.Notifications.InboxUserID)

	// 7. Pipeline
	runner := worker.NewRunner(rootCtx)
	jobScraper := scraper.NewService(cfg.Scraper)
	factory := pipeline.NewFactory(pipeline.Deps{
		Users:         userService,
		Resumes:       resumeService,
		Opportunities: opportunityService,
		Applications:  applicationService,
		Approvals:     approvals,
		Agents:        agentSystem,
		Searcher:      jobScraper,
		Submitter:     scraper.NewSubmitter(cfg.Browser),
		Notifier:      notifications,
		Background:    runner,
	}, pipeline.SettingsFrom(cfg.Pipeline))

	// 8. Scheduled jobs
	scheduler := worker.NewScheduler(runner)
	if !cfg.Scheduler.Disabled {
		jobs := []scheduledJob{
			{"daily-search", cfg.Scheduler.DailySearch, func(ctx context.Context) {
				if err := factory.RunDailySearchForAllUsers(ctx); err != nil {
					log.Printf("❌ Scheduled search failed: %v", err)
				}
			}},
			{"reconcile", cfg.Scheduler.Reconcile, func(ctx context.Context) {
				cutoff := time.Now().Add(-cfg.Pipeline.StaleAfter)
				if n, err := applicationService.ReconcileStale(cutoff, approvals.IsWaiting); err != nil {
					log.Printf("❌ Reconciliation failed: %v", err)
				} else if n > 0 {
					log.Printf("🧹 Reconciled %d stuck applications", n)
				}
			}},
			{"reminders", cfg.Scheduler.Reminders, func(ctx context.Context) {
				if _, err := notifications.DispatchDueReminders(ctx, time.Now()); err != nil {
					log.Printf("❌ Reminder dispatch failed: %v", err)
				}
			}},
		}
		if gmailService != nil && cfg.Notifications.InboxUserID != "" {
			jobs = append(jobs, scheduledJob{"inbox-sync", cfg.Scheduler.InboxSync, emailService.SyncEmails})
		}
		for _, j := range jobs {
			if err := scheduler.AddJob(j.name, j.spec, j.fn); err != nil {
				log.Fatalf("Scheduler: %v", err)
			}
		}
		scheduler.Start()
	}

	// 9. Setup Router & CORS
	r := gin.New()
	r.Use(gin.Logger(), handlers.Recovery())
	corsConfig := cors.DefaultConfig()
	if len(cfg.Server.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-User-ID"}
	r.Use(cors.New(corsConfig))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterRoutes(r, &handlers.Handlers{
		Server:        cfg.Server,
		UserService:   userService,
		Users:         handlers.NewUserHandler(userService, resumeService),
		Opportunities: handlers.NewOpportunityHandler(agentSystem, jobScraper, opportunityService),
		Applications:  handlers.NewApplicationHandler(factory, applicationService, approvals, exportService, runner),
		Chat:          handlers.NewChatHub(agentSystem),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("🚀 Server starting on port %s...", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed to start:", err)
		}
	}()

	<-rootCtx.Done()
	log.Println("Shutting down...")
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  HTTP shutdown: %v", err)
	}
	if err := runner.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  Background work still running: %v", err)
	}
	log.Println("Server stopped")
}
