package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/calebmorten/shiftrelief/internal/api"
	"github.com/calebmorten/shiftrelief/internal/app"
	"github.com/calebmorten/shiftrelief/internal/app/maintenance"
	iauth "github.com/calebmorten/shiftrelief/internal/auth"
	"github.com/calebmorten/shiftrelief/internal/database"
	"github.com/calebmorten/shiftrelief/internal/locale"
	"github.com/calebmorten/shiftrelief/internal/realtime"
	"github.com/calebmorten/shiftrelief/internal/services"
	"github.com/calebmorten/shiftrelief/pkg/logger"
	"github.com/calebmorten/shiftrelief/pkg/mail"
)

// runtimeStack bundles the long-lived components behind the HTTP server.
type runtimeStack struct {
	DB      *gorm.DB
	Hub     *realtime.Hub
	Sweeper *maintenance.Sweeper
	Router  *gin.Engine
}

// bootstrapRuntime initialises storage, services, background jobs, and the router.
func bootstrapRuntime(cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	success := false

	defer func() {
		if !success {
			stack.Shutdown(log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}
	stack.DB = db

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
	if err != nil {
		return nil, fmt.Errorf("initialise mailer: %w", err)
	}

	stack.Hub = realtime.NewHub()

	directory, err := services.NewDirectoryService(db)
	if err != nil {
		return nil, fmt.Errorf("initialise directory service: %w", err)
	}

	locales := resolveLocaleSettings(cfg, log)
	dispatcher, err := services.NewDispatcher(directory, mailer, stack.Hub, locales)
	if err != nil {
		return nil, fmt.Errorf("initialise dispatcher: %w", err)
	}

	matching, err := services.NewMatchingService(db, directory, locales.Fallback)
	if err != nil {
		return nil, fmt.Errorf("initialise matching service: %w", err)
	}

	coordination, err := services.NewCoordinationService(db, dispatcher, directory, matching)
	if err != nil {
		return nil, fmt.Errorf("initialise coordination service: %w", err)
	}

	availability, err := services.NewAvailabilityService(db)
	if err != nil {
		return nil, fmt.Errorf("initialise availability service: %w", err)
	}

	notifications, err := services.NewNotificationService(db)
	if err != nil {
		return nil, fmt.Errorf("initialise notification service: %w", err)
	}

	stack.Sweeper, err = maintenance.NewSweeper(coordination, maintenance.WithSchedule(cfg.Sweep.Schedule))
	if err != nil {
		return nil, fmt.Errorf("initialise sweeper: %w", err)
	}
	if cfg.Sweep.Enabled {
		if err := stack.Sweeper.Start(); err != nil {
			return nil, fmt.Errorf("start expiration sweep: %w", err)
		}
	}

	stack.Router, err = api.NewRouter(api.Deps{
		DB:            db,
		JWT:           jwtSvc,
		Coordination:  coordination,
		Matching:      matching,
		Directory:     directory,
		Availability:  availability,
		Notifications: notifications,
		Hub:           stack.Hub,
		Sweeper:       stack.Sweeper,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Sweeper != nil {
		<-s.Sweeper.Stop().Done()
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

// resolveLocaleSettings parses the configured locale codes; the first
// supported entry doubles as the fallback.
func resolveLocaleSettings(cfg *app.Config, log *zap.Logger) services.LocaleSettings {
	supported := locale.ParseSupported(cfg.Locale.Supported)

	fallback := language.English
	if tag := locale.ParseSupported([]string{cfg.Locale.Default}); len(tag) == 1 {
		fallback = tag[0]
	} else if cfg.Locale.Default != "" {
		log.Warn("unparseable default locale; using English", zap.String("default", cfg.Locale.Default))
	}

	return services.LocaleSettings{Supported: supported, Fallback: fallback}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	logger.WithModule("database").Info("database connected",
		zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:   strings.TrimSpace(cfg.Database.Path),
		DSN:    strings.TrimSpace(cfg.Database.DSN),
	}

	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		dbCfg.Host = strings.TrimSpace(cfg.Database.Postgres.Host)
		dbCfg.Port = cfg.Database.Postgres.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.Postgres.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.Postgres.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.Postgres.Password)
	case "mysql":
		dbCfg.Host = strings.TrimSpace(cfg.Database.MySQL.Host)
		dbCfg.Port = cfg.Database.MySQL.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.MySQL.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.MySQL.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.MySQL.Password)
	default:
		// Leave driver as-is to surface unsupported driver error during open.
	}

	return dbCfg
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
