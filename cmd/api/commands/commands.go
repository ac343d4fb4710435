package commands

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/shiftbot/core/internal/adapters/repository"
	"github.com/shiftbot/core/internal/domain/entities"
	"github.com/shiftbot/core/internal/infrastructure/config"
	"github.com/shiftbot/core/internal/infrastructure/logger"
	"github.com/shiftbot/core/internal/infrastructure/server"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the ShiftBot API server",
		Long:  "Start the ShiftBot API server with the webhook, day board, and management routes",
		Run: func(cmd *cobra.Command, args []string) {
			runServer()
		},
	}
}

// NewInitCommand creates the init command
func NewInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the schedule store",
		Long:  "Create the schedule file with seeded positions and default settings if it does not exist yet",
		Run: func(cmd *cobra.Command, args []string) {
			runInit()
		},
	}
}

// NewUserCommand creates the user management command
func NewUserCommand() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "User management commands",
	}

	promoteCmd := &cobra.Command{
		Use:   "promote <lineUserId>",
		Short: "Grant a user the admin role",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			promoteUser(args[0])
		},
	}
	userCmd.AddCommand(promoteCmd)

	hashCmd := &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			hash, err := bcrypt.GenerateFromPassword([]byte(args[0]), bcrypt.DefaultCost)
			if err != nil {
				log.Fatalf("Failed to hash password: %v", err)
			}
			fmt.Println(string(hash))
		},
	}
	userCmd.AddCommand(hashCmd)

	return userCmd
}

// NewBackupCommand creates the backup maintenance command
func NewBackupCommand() *cobra.Command {
	backupCmd := &cobra.Command{
		Use:   "backup",
		Short: "Backup maintenance commands",
	}

	backupCmd.AddCommand(&cobra.Command{
		Use:   "prune",
		Short: "Delete backups older than the retention window",
		Run: func(cmd *cobra.Command, args []string) {
			pruneBackups()
		},
	})

	return backupCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print ShiftBot version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("ShiftBot Core v1.0.0")
		},
	}
}

func runServer() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Close()

	srv, err := server.New(cfg, appLogger)
	if err != nil {
		appLogger.Fatalw("Failed to initialize server", "error", err)
	}

	appLogger.Infow("Starting ShiftBot API server",
		"port", cfg.Server.Port,
		"environment", cfg.App.Environment,
		"storage_path", cfg.Storage.BasePath,
	)

	go func() {
		if err := srv.Start(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
			appLogger.Infow("Server stopped", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Errorw("Graceful shutdown failed", "error", err)
	}
}

func newStore(cfg *config.Config, appLogger *logger.Logger) *repository.Store {
	var opts []repository.Option
	if cfg.Storage.Retention > 0 {
		opts = append(opts, repository.WithRetention(cfg.Storage.Retention))
	}
	return repository.New(cfg.Storage.BasePath, appLogger, opts...)
}

func runInit() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Close()

	store := newStore(cfg, appLogger)
	if err := store.HealthCheck(context.Background()); err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	fmt.Printf("Store ready at %s\n", cfg.Storage.BasePath)
}

func promoteUser(lineUserID string) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Close()

	store := newStore(cfg, appLogger)
	role := entities.UserRoleAdmin
	user, err := store.SaveUser(context.Background(), lineUserID, entities.UserPatch{Role: &role})
	if err != nil {
		log.Fatalf("Failed to promote user: %v", err)
	}

	fmt.Printf("User promoted:\n")
	fmt.Printf("  LINE ID: %s\n", user.LineUserID)
	fmt.Printf("  Name: %s\n", user.DisplayName)
	fmt.Printf("  Role: %s\n", user.Role)
}

func pruneBackups() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Close()

	store := newStore(cfg, appLogger)
	removed, err := store.PruneBackups(context.Background())
	if err != nil {
		log.Fatalf("Failed to prune backups: %v", err)
	}
	fmt.Printf("Removed %d expired backups\n", removed)
}
