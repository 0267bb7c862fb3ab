package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"rangeclub/internal/api"
	"rangeclub/internal/app/service"
	"rangeclub/internal/common/security"
	"rangeclub/internal/domain/repository"
	"rangeclub/internal/platform/cache"
	"rangeclub/internal/platform/config"
	"rangeclub/internal/platform/database"
)

func main() {
	// 1. Load Configuration
	config.Load()
	fmt.Println("Configuration loaded.")

	// 2. Initialize JWT
	security.InitJWT()
	fmt.Println("JWT initialized.")

	// 3. Initialize Repositories
	var (
		memberRepo   repository.MemberRepository
		waitlistRepo repository.WaitlistRepository
		credRepo     repository.CredentialRepository
		adminRepo    repository.AdminRepository
		sessionRepo  repository.SessionRepository
	)

	switch config.AppConfig.StorageBackend {
	case "postgres":
		database.Connect()
		defer database.Close()
		memberRepo = repository.NewPgMemberRepository(database.DB)
		waitlistRepo = repository.NewPgWaitlistRepository(database.DB)
		credRepo = repository.NewPgCredentialRepository(database.DB)
		adminRepo = repository.NewPgAdminRepository(database.DB)
	case "memory":
		memberRepo = repository.NewMemoryMemberRepository()
		waitlistRepo = repository.NewMemoryWaitlistRepository()
		credRepo = repository.NewMemoryCredentialRepository()
		adminRepo = repository.NewMemoryAdminRepository()
	default:
		log.Fatalf("Unknown STORAGE_BACKEND %q", config.AppConfig.StorageBackend)
	}

	switch config.AppConfig.SessionBackend {
	case "redis":
		cache.ConnectRedis()
		defer cache.CloseRedis()
		sessionRepo = repository.NewRedisSessionRepository(cache.RDB)
	case "memory":
		sessionRepo = repository.NewMemorySessionRepository()
	default:
		log.Fatalf("Unknown SESSION_BACKEND %q", config.AppConfig.SessionBackend)
	}

	// 4. Initialize Services. The shared lock serializes capacity checks and
	// inserts across the member, waitlist and auth services.
	registryLock := &sync.Mutex{}
	capacity := service.Capacity{
		ActiveMembersMax: config.AppConfig.ActiveMembersMax,
		WaitlistMax:      config.AppConfig.WaitlistMax,
	}
	authService := service.NewAuthService(registryLock, credRepo, memberRepo, waitlistRepo, adminRepo, sessionRepo,
		capacity, config.AppConfig.SessionTTL)
	memberService := service.NewMemberService(registryLock, memberRepo, capacity)
	waitlistService := service.NewWaitlistService(registryLock, waitlistRepo, memberRepo, capacity)

	// 5. Seed bootstrap admin if configured and the credential store is empty.
	if err := authService.Bootstrap(context.Background(),
		config.AppConfig.SeedAdminEmail, config.AppConfig.SeedAdminPassword); err != nil {
		log.Fatalf("Failed to seed bootstrap admin: %v", err)
	}

	// 6. Initialize Router & HTTP Server
	router := api.NewRouter(authService, memberService, waitlistService)

	server := &http.Server{
		Addr:         ":" + config.AppConfig.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 7. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on port %s", config.AppConfig.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", config.AppConfig.APIPort, err)
		}
	}()
	log.Println("Server started successfully.")

	<-stop // Wait for interrupt signal

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}

	log.Println("Server stopped gracefully.")
}
