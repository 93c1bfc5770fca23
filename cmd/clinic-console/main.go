package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinicdesk/console/internal/authz"
	"github.com/clinicdesk/console/internal/calendarview"
	"github.com/clinicdesk/console/internal/clinicapi"
	"github.com/clinicdesk/console/internal/config"
	"github.com/clinicdesk/console/internal/console"
	"github.com/clinicdesk/console/internal/live"
	"github.com/clinicdesk/console/internal/querystate"
	"github.com/clinicdesk/console/internal/sandbox"
	"github.com/clinicdesk/console/internal/session"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinic-console",
		Short: "Clinic admin console",
	}

	rootCmd.AddCommand(sandboxCmd())
	rootCmd.AddCommand(patientsCmd())
	rootCmd.AddCommand(appointmentsCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}

// sessionContext builds the context every API call runs under. A token that
// verifies against AUTH_SECRET yields a full session; in development an
// unverifiable token is still forwarded, with admin capabilities so local
// workflows are not blocked.
func sessionContext(ctx context.Context, cfg *config.Config) (context.Context, error) {
	if cfg.AuthToken == "" {
		if cfg.IsDev() {
			return session.WithSession(ctx, session.Session{Name: "dev", Role: authz.RoleAdmin}), nil
		}
		return nil, fmt.Errorf("AUTH_TOKEN is required")
	}
	sess, err := session.FromToken(cfg.AuthToken, []byte(cfg.AuthSecret))
	if err != nil {
		if !cfg.IsDev() {
			return nil, err
		}
		sess = session.Session{Name: "dev", Role: authz.RoleAdmin, Token: cfg.AuthToken}
	}
	return session.WithSession(ctx, sess), nil
}

// newConsole assembles the controllers over the remote API for one command
// invocation: the same wiring the interactive surface runs on, so the CLI
// exercises the full stack instead of calling the client directly.
func newConsole(cmd *cobra.Command, initial querystate.QueryState) (*console.Console, context.Context, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(cfg)
	ctx, err := sessionContext(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, err
	}
	client := clinicapi.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout, logger)
	c := console.New(ctx, client, initial, console.Options{
		CacheTTL: cfg.CacheTTL,
		Notify:   func(msg string) { fmt.Fprintln(os.Stderr, msg) },
	}, logger)
	return c, ctx, nil
}

// waitSettled polls until done reports a settlement, bounded by the context
// and a hard deadline.
func waitSettled(ctx context.Context, done func() bool) error {
	deadline := time.NewTimer(30 * time.Second)
	defer deadline.Stop()
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for {
		if done() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("timed out waiting for the fetch to settle")
		case <-tick.C:
		}
	}
}

func sandboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sandbox",
		Short: "Run the in-memory clinic API for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := newLogger(cfg)

			store := sandbox.NewStore()
			seedCfg := sandbox.DefaultSeedConfig()
			seedCfg.Seed = cfg.SandboxSeed
			sandbox.Seed(store, seedCfg)

			srv := sandbox.NewServer(store, logger, []byte(cfg.AuthSecret))
			e := srv.Build()

			addr := ":" + cfg.SandboxPort
			go func() {
				if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
					logger.Fatal().Err(err).Msg("sandbox server failed")
				}
			}()
			logger.Info().Str("addr", addr).Int64("seed", cfg.SandboxSeed).Msg("sandbox listening")

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return e.Shutdown(ctx)
		},
	}
	return cmd
}

func patientsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patients",
		Short: "Browse the patient registry",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of patients",
		RunE: func(cmd *cobra.Command, args []string) error {
			page, _ := cmd.Flags().GetInt("page")
			limit, _ := cmd.Flags().GetInt("limit")
			search, _ := cmd.Flags().GetString("search")
			sortBy, _ := cmd.Flags().GetString("sort")
			sortDir, _ := cmd.Flags().GetString("dir")

			state := querystate.Default().
				WithSearch(search).
				WithLimit(limit).
				WithPage(page)
			if sortBy != "" {
				state = state.WithSort(sortBy, querystate.SortDir(sortDir))
			}

			c, ctx, err := newConsole(cmd, state)
			if err != nil {
				return err
			}
			if err := waitSettled(ctx, c.Lists.Settled); err != nil {
				return err
			}
			if err := c.Lists.Err(); err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tEMAIL\tPHONE")
			for _, p := range c.Lists.Rows() {
				fmt.Fprintf(w, "%s %s\t%s\t%s\n", p.FirstName, p.LastName, p.Email, p.Phone)
			}
			w.Flush()
			fmt.Printf("page %d of %d\n", c.Lists.CurrentPage(), c.Lists.PageCount())
			return nil
		},
	}
	listCmd.Flags().Int("page", querystate.DefaultPage, "Page number")
	listCmd.Flags().Int("limit", querystate.DefaultLimit, "Rows per page")
	listCmd.Flags().String("search", "", "Filter by name or email")
	listCmd.Flags().String("sort", "", "Sort column")
	listCmd.Flags().String("dir", "asc", "Sort direction (asc or desc)")
	cmd.AddCommand(listCmd)

	return cmd
}

func appointmentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "appointments",
		Short: "Browse and export the schedule",
	}
	cmd.AddCommand(appointmentsListCmd())
	cmd.AddCommand(appointmentsExportCmd())
	return cmd
}

func windowFlags(cmd *cobra.Command) {
	cmd.Flags().String("from", "", "Window start (YYYY-MM-DD, default today)")
	cmd.Flags().String("to", "", "Window end (YYYY-MM-DD, default from+7d)")
	cmd.Flags().String("doctor", calendarview.AllDoctors, "Doctor id filter")
}

func parseWindow(cmd *cobra.Command) (time.Time, time.Time, string, error) {
	fromStr, _ := cmd.Flags().GetString("from")
	toStr, _ := cmd.Flags().GetString("to")
	doctor, _ := cmd.Flags().GetString("doctor")

	from := time.Now().UTC().Truncate(24 * time.Hour)
	if fromStr != "" {
		var err error
		from, err = time.Parse("2006-01-02", fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, "", fmt.Errorf("invalid --from: %w", err)
		}
	}
	to := from.AddDate(0, 0, 7)
	if toStr != "" {
		var err error
		to, err = time.Parse("2006-01-02", toStr)
		if err != nil {
			return time.Time{}, time.Time{}, "", fmt.Errorf("invalid --to: %w", err)
		}
	}
	if !from.Before(to) {
		return time.Time{}, time.Time{}, "", fmt.Errorf("--from must be before --to")
	}
	return from, to, doctor, nil
}

func fetchAppointments(cmd *cobra.Command) ([]clinicapi.Appointment, error) {
	from, to, doctor, err := parseWindow(cmd)
	if err != nil {
		return nil, err
	}
	c, ctx, err := newConsole(cmd, querystate.Default())
	if err != nil {
		return nil, err
	}
	c.Calendar.SetDoctorFilter(doctor)
	c.Calendar.OnRangeChange(from, to)
	err = waitSettled(ctx, func() bool {
		if c.Calendar.Err() != nil {
			return true
		}
		key := c.Calendar.ActiveKey()
		return key != "" && c.Calendar.SettledKey() == key
	})
	if err != nil {
		return nil, err
	}
	if err := c.Calendar.Err(); err != nil {
		return nil, err
	}
	return c.Calendar.Events(), nil
}

func appointmentsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List appointments in a window",
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := fetchAppointments(cmd)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "START\tEND\tTITLE\tSTATUS")
			for _, ev := range events {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					ev.Start.Local().Format("2006-01-02 15:04"),
					ev.End.Local().Format("15:04"),
					ev.Title, ev.Status)
			}
			w.Flush()
			fmt.Printf("%d appointment(s)\n", len(events))
			return nil
		},
	}
	windowFlags(cmd)
	return cmd
}

func appointmentsExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a window as an iCalendar file",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			events, err := fetchAppointments(cmd)
			if err != nil {
				return err
			}

			w := os.Stdout
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := calendarview.WriteICS(w, events); err != nil {
				return err
			}
			if out != "" {
				fmt.Printf("wrote %d event(s) to %s\n", len(events), out)
			}
			return nil
		},
	}
	windowFlags(cmd)
	cmd.Flags().String("out", "", "Output file (default stdout)")
	return cmd
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow the appointment change feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			wsURL := "ws" + strings.TrimPrefix(cfg.APIBaseURL, "http") + "/ws/changes"
			sub := live.NewSubscriber(wsURL, func(ch live.Change) {
				fmt.Printf("%s  %-8s %s\n", time.Now().Format("15:04:05"), ch.Action, ch.AppointmentID)
			}, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			sub.Run(ctx)
			return nil
		},
	}
}

func loginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Mint a development access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			role, _ := cmd.Flags().GetString("role")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cfg.IsDev() {
				return fmt.Errorf("login only mints tokens in development; use your identity provider")
			}

			claims := session.Claims{
				RegisteredClaims: jwt.RegisteredClaims{
					Subject:   uuid.NewString(),
					IssuedAt:  jwt.NewNumericDate(time.Now()),
					ExpiresAt: jwt.NewNumericDate(time.Now().Add(12 * time.Hour)),
				},
				Name: name,
				Role: role,
			}
			token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.AuthSecret))
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().String("name", "dev", "Operator name")
	cmd.Flags().String("role", "admin", "Operator role (admin, reception, doctor)")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the console version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("clinic-console", version)
		},
	}
}
