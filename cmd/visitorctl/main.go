package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/AnshRaj112/visitor-backend/internal/config"
	"github.com/AnshRaj112/visitor-backend/internal/database"
	"github.com/AnshRaj112/visitor-backend/internal/logging"
	"github.com/AnshRaj112/visitor-backend/internal/middleware"
	"github.com/AnshRaj112/visitor-backend/internal/services"
	"github.com/AnshRaj112/visitor-backend/internal/store/mongodb"
	"github.com/AnshRaj112/visitor-backend/internal/store/postgres"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:          "visitorctl",
	Short:        "Operator tool for the visitor backend",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
		cfg = config.Load()
		logging.InitLogger(cfg.LogLevel)
	},
}

// admin command
var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin accounts",
}

var passwordFromStdin bool

var adminCreateCmd = &cobra.Command{
	Use:   "create <username>",
	Short: "Create an admin account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword(passwordFromStdin)
		if err != nil {
			return err
		}

		db, err := database.ConnectPostgres(cfg.PostgresURI)
		if err != nil {
			return fmt.Errorf("connecting to PostgreSQL: %w", err)
		}
		defer database.DisconnectPostgres(db)

		auth := services.NewAdminAuth(postgres.NewAdminStore(db), nil, services.RealClock{})
		admin, err := auth.CreateAdmin(cmd.Context(), args[0], password)
		if err != nil {
			return err
		}
		fmt.Printf("Admin created: %s (%s)\n", admin.Username, admin.ID)
		return nil
	},
}

func readPassword(fromStdin bool) (string, error) {
	if fromStdin || !term.IsTerminal(int(os.Stdin.Fd())) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	first, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	fmt.Fprint(os.Stderr, "Confirm password: ")
	second, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}

// export command
var (
	exportStart string
	exportEnd   string
	exportOut   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the visitor Excel export",
	Long: `Without --start/--end every visitor is written to <EXPORT_DIR>/visitors.xlsx,
the same file the daily schedule produces. With both bounds only visitors
created in that range are exported.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, db, err := database.Connect(cfg.MongoURI)
		if err != nil {
			return fmt.Errorf("connecting to MongoDB: %w", err)
		}
		defer database.Disconnect(client)

		engine := services.NewLifecycleEngine(services.LifecycleDeps{
			Visitors: mongodb.NewVisitorStore(db),
			Events:   mongodb.NewEventStore(db),
			Location: cfg.Location,
		})
		reports := services.NewReportGenerator(engine, cfg.Location, cfg.ExportTimeout)

		if exportStart == "" && exportEnd == "" {
			path := exportOut
			if path == "" {
				path = filepath.Join(cfg.ExportDir, services.ReportFileName)
			}
			if err := reports.WriteAll(ctx, path); err != nil {
				return err
			}
			fmt.Printf("Exported all visitors to %s\n", path)
			return nil
		}

		tmp, err := os.CreateTemp(cfg.ExportDir, ".visitors-range-*.xlsx")
		if err != nil {
			return fmt.Errorf("creating export file: %w", err)
		}
		defer os.Remove(tmp.Name())

		filename, err := reports.WriteRange(ctx, tmp, exportStart, exportEnd)
		if cerr := tmp.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}

		path := exportOut
		if path == "" {
			path = filepath.Join(cfg.ExportDir, filename)
		}
		if err := os.Rename(tmp.Name(), path); err != nil {
			return fmt.Errorf("writing export: %w", err)
		}
		fmt.Printf("Exported visitors from %s to %s into %s\n", exportStart, exportEnd, path)
		return nil
	},
}

// migrate-legacy command
var migrateDryRun bool

var migrateLegacyCmd = &cobra.Command{
	Use:   "migrate-legacy",
	Short: "Convert visitor documents and push tokens left by the old server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
		defer cancel()

		client, db, err := database.Connect(cfg.MongoURI)
		if err != nil {
			return fmt.Errorf("connecting to MongoDB: %w", err)
		}
		defer database.Disconnect(client)

		n, err := mongodb.CountLegacyVisitors(ctx, db)
		if err != nil {
			return fmt.Errorf("counting legacy visitors: %w", err)
		}
		tokens, err := mongodb.CountLegacyTokens(ctx, db)
		if err != nil {
			return fmt.Errorf("counting legacy push tokens: %w", err)
		}
		if migrateDryRun || (n == 0 && tokens == 0) {
			fmt.Printf("%d legacy visitor documents, %d legacy push tokens\n", n, tokens)
			return nil
		}

		migrated, err := mongodb.MigrateLegacyVisitors(ctx, db)
		fmt.Printf("Migrated %d of %d legacy visitor documents\n", migrated, n)
		if err != nil {
			return err
		}

		inserted, err := mongodb.MigrateLegacyTokens(ctx, db)
		fmt.Printf("Copied %d of %d legacy push tokens\n", inserted, tokens)
		return err
	},
}

// unblock-ip command
var unblockIPCmd = &cobra.Command{
	Use:   "unblock-ip <ip>",
	Short: "Lift the visitor form block for an IP",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := database.ConnectRedis(cfg.RedisURI)
		if err != nil {
			return fmt.Errorf("connecting to Redis: %w", err)
		}
		defer database.DisconnectRedis(client)

		if err := middleware.UnblockIP(cmd.Context(), client, middleware.VisitorFormRateLimit.Name, args[0]); err != nil {
			return err
		}
		fmt.Printf("Unblocked %s\n", args[0])
		return nil
	},
}

func init() {
	adminCreateCmd.Flags().BoolVar(&passwordFromStdin, "password-stdin", false, "read the password from stdin")
	adminCmd.AddCommand(adminCreateCmd)

	exportCmd.Flags().StringVar(&exportStart, "start", "", "first day to include (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportEnd, "end", "", "last day to include (YYYY-MM-DD)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output path")

	migrateLegacyCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "only count legacy documents")

	rootCmd.AddCommand(adminCmd, exportCmd, migrateLegacyCmd, unblockIPCmd)
}
