// Package cmd implements inventoryctl, the administration CLI for accounts and
// schema management.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/upb/catalog-inventory/config"
	"github.com/upb/catalog-inventory/repositories/postgres"
	"github.com/upb/catalog-inventory/services/users"
	"go.uber.org/zap"
)

// backend is what the account commands operate on
type backend struct {
	users *users.Service
	db    *postgres.DB
	close func() error
}

// openBackend connects to the configured store. Tests replace it.
var openBackend = func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*backend, error) {
	if cfg.Database.IsMemory() {
		return nil, fmt.Errorf("inventoryctl needs a persistent store; DB_DRIVER=memory is not supported")
	}

	factory, err := postgres.NewRepositoryFactory(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	repos := factory.NewRepositories()
	return &backend{
		users: users.NewService(repos.Users, factory.GetTransactionManager(), cfg.Auth.BcryptCost, logger),
		db:    factory.GetDB(),
		close: factory.Close,
	}, nil
}

// loadConfig is replaced in tests
var loadConfig = config.NewForCLI

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "inventoryctl",
		Short:         "Administration CLI for the catalog inventory service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newHashPasswordCmd())
	root.AddCommand(newUserCmd())
	root.AddCommand(newMigrateCmd())
	return root
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withBackend loads configuration, opens the store and runs fn against it
func withBackend(cmd *cobra.Command, fn func(ctx context.Context, b *backend) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	b, err := openBackend(ctx, cfg, zap.NewNop())
	if err != nil {
		return err
	}
	defer func() {
		if b.close != nil {
			_ = b.close()
		}
	}()

	return fn(ctx, b)
}
