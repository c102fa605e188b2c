package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"vaultdrive/internal/auth"
	"vaultdrive/internal/config"
	"vaultdrive/internal/handler"
	"vaultdrive/internal/notify"
	"vaultdrive/internal/obs"
	"vaultdrive/internal/repository"
	"vaultdrive/internal/service"
	"vaultdrive/internal/service/s3"
)

func connectWithRetry(dsn string, maxAttempts int, delay time.Duration) (*sqlx.DB, error) {
	// Сначала подключаемся к базе postgres (системная база, которая всегда существует)
	pgDSN := strings.Replace(dsn, "dbname=vaultdrive", "dbname=postgres", 1)
	pgDB, err := sqlx.Connect("postgres", pgDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres database: %v", err)
	}
	defer pgDB.Close()

	// Проверяем, существует ли база данных vaultdrive
	var exists bool
	err = pgDB.Get(&exists, "SELECT EXISTS(SELECT datname FROM pg_catalog.pg_database WHERE datname = 'vaultdrive')")
	if err != nil {
		return nil, fmt.Errorf("failed to check database existence: %v", err)
	}

	// Если базы нет, создаем её
	if !exists {
		log.Println("Database vaultdrive does not exist, creating...")
		_, err = pgDB.Exec("CREATE DATABASE vaultdrive")
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %v", err)
		}
	}

	var db *sqlx.DB
	for i := 0; i < maxAttempts; i++ {
		db, err = sqlx.Connect("postgres", dsn)
		if err == nil {
			return db, nil
		}

		log.Printf("Failed to connect to database (attempt %d/%d): %v", i+1, maxAttempts, err)
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %v", maxAttempts, err)
}

func runMigrations(cfg *config.Config) error {
	databaseURL := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	var m *migrate.Migrate
	var err error

	for i := 0; i < 5; i++ {
		m, err = migrate.New("file://migrations", databaseURL)
		if err == nil {
			break
		}
		log.Printf("Failed to create migrate instance (attempt %d/5): %v", i+1, err)
		time.Sleep(time.Second * 5)
	}

	if err != nil {
		return fmt.Errorf("failed to create migrate instance after retries: %w", err)
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if dirty {
		log.Printf("Found dirty database state at version %d, attempting to force version", version)
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to force version: %w", err)
		}
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func main() {
	// Загружаем конфигурации
	appConfig, err := config.NewConfig(".app.env")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := connectWithRetry(appConfig.Database.GetDSN(), 5, time.Second*5)
	if err != nil {
		log.Fatalf("Failed to connect to database after retries: %v", err)
	}
	defer db.Close()

	if err := runMigrations(appConfig); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	// Инициализация S3 клиента
	s3Config, err := s3.NewConfig(".s3.env")
	if err != nil {
		log.Fatalf("Failed to load S3 config: %v", err)
	}

	s3Client, err := s3.NewClient(s3Config)
	if err != nil {
		log.Fatalf("Failed to create S3 client: %v", err)
	}

	// Секрет подписи токенов
	if err := auth.Init(".auth.env"); err != nil {
		log.Fatalf("Failed to load auth config: %v", err)
	}

	obs.Init()

	// Инициализация репозиториев
	userRepo := repository.NewUserRepository(db)
	bucketRepo := repository.NewBucketRepository(db)
	itemRepo := repository.NewItemRepository(db)
	versionRepo := repository.NewVersionRepository(db)
	permissionRepo := repository.NewPermissionRepository(db)
	approverRepo := repository.NewApproverRepository(db)
	approvalRepo := repository.NewApprovalRepository(db)

	// Инициализация сервисов
	permissionService := service.NewPermissionService(permissionRepo, bucketRepo, itemRepo, userRepo)
	approverService := service.NewApproverService(approverRepo, permissionService)
	userService := service.NewUserService(userRepo)
	bucketService := service.NewBucketService(bucketRepo, permissionService)
	versionService := service.NewVersionService(
		db,
		bucketRepo,
		itemRepo,
		versionRepo,
		approverRepo,
		approvalRepo,
		permissionRepo,
		permissionService,
		approverService,
		s3Client,
		notify.NewLogNotifier(),
		appConfig.Approval.StrictQuorum,
	)
	contentService := service.NewContentService(
		bucketRepo,
		itemRepo,
		versionRepo,
		approvalRepo,
		approverRepo,
		userRepo,
		permissionService,
	)

	// Инициализация хендлеров
	userHandler := handler.NewUserHandler(userService)
	bucketHandler := handler.NewBucketHandler(bucketService, contentService)
	objectHandler := handler.NewObjectHandler(versionService)
	versionHandler := handler.NewVersionHandler(versionService, contentService)
	permissionHandler := handler.NewPermissionHandler(permissionService)
	approverHandler := handler.NewApproverHandler(approverService)

	// Настройка HTTP роутера
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Content-Disposition", "ETag"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(obs.Instrument)

	r.Handle("/metrics", obs.Handler())

	// HTTP маршруты
	r.Route("/v1", func(r chi.Router) {
		r.Post("/users", userHandler.Register)
		r.Get("/users/me", userHandler.Me)

		r.Post("/buckets", bucketHandler.CreateBucket)
		r.Get("/buckets", bucketHandler.ListContents)

		r.Route("/buckets/{id}", func(r chi.Router) {
			r.Get("/", bucketHandler.ListContents)
			r.Get("/info", bucketHandler.GetBucket)
			r.Put("/objects/{key}", objectHandler.Upload)
		})

		r.Route("/items/{id}", func(r chi.Router) {
			r.Get("/", objectHandler.Download)
			r.Get("/versions", versionHandler.ListVersions)
		})

		r.Route("/versions/{id}", func(r chi.Router) {
			r.Put("/approve", versionHandler.Approve)
			r.Put("/reject", versionHandler.Reject)
		})

		r.Route("/permissions", func(r chi.Router) {
			r.Post("/", permissionHandler.Assign)
			r.Delete("/", permissionHandler.Revoke)
		})

		r.Route("/approvers", func(r chi.Router) {
			r.Post("/", approverHandler.CreateGroup)
			r.Get("/my", approverHandler.MyGroups)
		})
	})

	// Создаем HTTP сервер
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", appConfig.Server.Port),
		Handler: r,
	}

	// Канал для сигналов завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting HTTP server on port %s", appConfig.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to serve HTTP: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down servers...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Servers stopped")
}
