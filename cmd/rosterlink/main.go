package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/rosterlink/internal/config"
	"github.com/ehr/rosterlink/internal/domain/casestore"
	"github.com/ehr/rosterlink/internal/domain/identity"
	"github.com/ehr/rosterlink/internal/domain/nursing"
	"github.com/ehr/rosterlink/internal/domain/roster"
	"github.com/ehr/rosterlink/internal/platform/hipaa"
	"github.com/ehr/rosterlink/internal/platform/sheet"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "rosterlink",
		Short:        "Reconcile Database and Medicaid rosters and manage the matched case records",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().Bool("show-phi", false, "Print identifier, address and phone columns unmasked")

	rootCmd.AddCommand(combineCmd())
	rootCmd.AddCommand(loadCmd())
	rootCmd.AddCommand(partitionCmd("duplicates", roster.PartitionDuplicates, "Show matched rows sharing a mother and child"))
	rootCmd.AddCommand(partitionCmd("unmatched", roster.PartitionUnmatched, "Show rows present in only one extract"))
	rootCmd.AddCommand(findCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(assignCmd())
	rootCmd.AddCommand(batchAssignCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(visitCmd())
	rootCmd.AddCommand(keyCmd())
	rootCmd.AddCommand(encryptCmd())
	rootCmd.AddCommand(decryptCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(generateCmd())
	return rootCmd
}

// app carries the wiring shared by every command for one session.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	format sheet.Format
	vault  *hipaa.EncryptionService
	repo   *roster.SheetRepository
	out    io.Writer

	showPHI bool
	// skipCheckpoint leaves files as the command left them at exit.
	skipCheckpoint bool
}

func newLogger(cfg *config.Config, w io.Writer) zerolog.Logger {
	logger := zerolog.New(w).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	format, err := sheet.ParseFormat(cfg.SheetFormat)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	logger := newLogger(cfg, cmd.ErrOrStderr()).With().
		Str("session_id", uuid.NewString()).
		Logger()
	vault := hipaa.NewEncryptionService(cfg.KeyPath(), logger)
	showPHI, _ := cmd.Flags().GetBool("show-phi")

	return &app{
		cfg:     cfg,
		logger:  logger,
		format:  format,
		vault:   vault,
		repo:    roster.NewSheetRepository(cfg.DataDir, format, vault),
		out:     cmd.OutOrStdout(),
		showPHI: showPHI,
	}, nil
}

// run adapts a command body to cobra. It builds the app, recovers panics,
// logs the outcome and runs the encryption checkpoint whatever happened.
func run(fn func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		start := time.Now()

		defer func() {
			if r := recover(); r != nil {
				var stack [4096]byte
				n := runtime.Stack(stack[:], false)
				a.logger.Error().
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", string(stack[:n])).
					Msg("panic recovered")
				err = fmt.Errorf("internal error: %v", r)
			}
			if cerr := a.checkpoint(); cerr != nil {
				err = errors.Join(err, cerr)
			}

			evt := a.logger.Debug()
			if err != nil {
				evt = a.logger.Error().Err(err)
			}
			evt.Str("command", cmd.CommandPath()).
				Dur("latency", time.Since(start)).
				Msg("command")
		}()

		return fn(cmd.Context(), a, cmd, args)
	}
}

// checkpoint seals the matched partition, and every file the session
// decrypted to read, when ENCRYPT_ON_EXIT is set.
func (a *app) checkpoint() error {
	if !a.cfg.EncryptOnExit || a.skipCheckpoint {
		return nil
	}
	_, err := a.vault.SealAll(a.repo.Path(roster.PartitionMatched))
	return err
}

func (a *app) engine() *roster.Engine {
	return roster.NewEngine(a.repo, a.vault, a.cfg.DataDir, a.logger)
}

func (a *app) store(ctx context.Context) (*casestore.Store, error) {
	s, err := casestore.Open(ctx, a.repo, a.logger)
	if errors.Is(err, roster.ErrNoData) {
		return nil, fmt.Errorf("no combined data in %s, run combine first: %w", a.cfg.DataDir, err)
	}
	return s, err
}

func (a *app) visitLog() *nursing.SheetVisitRepository {
	return nursing.NewSheetVisitRepository(a.cfg.DataDir, a.format, a.vault)
}

func (a *app) visits() *nursing.Service {
	return nursing.NewService(a.visitLog(), a.logger)
}

// accounts opens the account database and seeds the administrator account.
// The caller closes the returned repository.
func (a *app) accounts(ctx context.Context) (*identity.Service, *identity.SQLiteRepository, error) {
	repo, err := identity.NewSQLiteRepository(a.cfg.UsersDBPath())
	if err != nil {
		return nil, nil, err
	}
	svc := identity.NewService(repo, a.logger)
	created, err := svc.EnsureAdmin(ctx, a.cfg.AdminUsername, a.cfg.AdminPassword)
	if err != nil {
		repo.Close()
		return nil, nil, fmt.Errorf("seed admin account: %w", err)
	}
	if created {
		a.logger.Info().Str("username", a.cfg.AdminUsername).Msg("admin account created")
	}
	return svc, repo, nil
}

// workingFiles lists every file the session may have left on disk.
func (a *app) workingFiles() []string {
	return []string{
		a.repo.Path(roster.PartitionMatched),
		a.repo.Path(roster.PartitionUnmatched),
		a.repo.Path(roster.PartitionDuplicates),
		a.visitLog().Path(),
	}
}
