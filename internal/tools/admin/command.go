package admin

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/toolvault/toolvault/internal/config"
	"github.com/toolvault/toolvault/internal/database"
	"github.com/toolvault/toolvault/internal/tools/common"
)

type options struct {
	envFile string
	ci      bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "toolvault-admin",
		Short: "Operational tooling for the tool catalog service",
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")

	cmd.AddCommand(
		newMigrateCommand(opts),
		newSeedCommand(opts),
		newBackfillCommand(opts),
		newSweepCodesCommand(opts),
		newClearCacheCommand(opts),
	)
	return cmd
}

func newMigrateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts, "migrate", func(cfg *config.Config, db *gorm.DB) ([]string, error) {
				if err := database.Migrate(db); err != nil {
					return nil, err
				}
				return []string{"schema migration applied"}, nil
			})
		},
	}
}

func newSeedCommand(opts *options) *cobra.Command {
	var ownerEmail string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed default roles, tool types and the bootstrap owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts, "seed", func(cfg *config.Config, db *gorm.DB) ([]string, error) {
				email := cfg.BootstrapOwnerEmail
				if ownerEmail != "" {
					email = ownerEmail
				}
				report, err := database.SeedSync(db, email, cfg.BootstrapOwnerPassword)
				if err != nil {
					return nil, err
				}
				details := []string{
					fmt.Sprintf("roles created: %d", report.CreatedRoles),
					fmt.Sprintf("tool types created: %d", report.CreatedTypes),
				}
				if report.CreatedOwner {
					details = append(details, "bootstrap owner created: "+email)
				}
				if report.Noop {
					details = append(details, "database already seeded")
				}
				return details, nil
			})
		},
	}
	cmd.Flags().StringVar(&ownerEmail, "owner-email", "", "override bootstrap owner email")
	return cmd
}

func newBackfillCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "backfill-types",
		Short: "Mirror legacy single-reference columns into the join tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts, "backfill-types", func(cfg *config.Config, db *gorm.DB) ([]string, error) {
				report, err := database.BackfillLegacyColumns(db)
				if err != nil {
					return nil, err
				}
				return []string{
					fmt.Sprintf("user role links inserted: %d", report.UserRoleLinks),
					fmt.Sprintf("tool type links inserted: %d", report.ToolTypeLinks),
				}, nil
			})
		},
	}
}

func newSweepCodesCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-codes",
		Short: "Delete expired verification codes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts, "sweep-codes", func(cfg *config.Config, db *gorm.DB) ([]string, error) {
				res := db.Exec("DELETE FROM verification_codes WHERE expires_at < ?", time.Now())
				if res.Error != nil {
					return nil, res.Error
				}
				return []string{fmt.Sprintf("expired codes removed: %d", res.RowsAffected)}, nil
			})
		},
	}
}

func newClearCacheCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-cache",
		Short: "Drop the cached type listing from redis",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNoDB(opts, "clear-cache", clearListCache)
		},
	}
}

func run(opts *options, title string, fn func(*config.Config, *gorm.DB) ([]string, error)) error {
	cfg, db, err := loadConfigDB(opts.envFile)
	var details []string
	if err == nil {
		details, err = fn(cfg, db)
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
	}
	return report(opts, title, details, err)
}

func runNoDB(opts *options, title string, fn func(*config.Config) ([]string, error)) error {
	var details []string
	err := common.LoadEnvFile(opts.envFile)
	if err == nil {
		var cfg *config.Config
		cfg, err = config.Load()
		if err == nil {
			details, err = fn(cfg)
		}
	}
	return report(opts, title, details, err)
}

func report(opts *options, title string, details []string, err error) error {
	if opts.ci {
		common.PrintCIResult(err == nil, title, details, err)
	} else {
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s failed: %v\n", title, err)
		}
		for _, d := range details {
			fmt.Println(d)
		}
	}
	if err != nil {
		os.Exit(3)
	}
	return nil
}

func loadConfigDB(envFile string) (*config.Config, *gorm.DB, error) {
	if err := common.LoadEnvFile(envFile); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}
