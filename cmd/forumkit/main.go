package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"forumkit/cmd/forumkit/ui"
	"forumkit/internal/api"
	"forumkit/internal/config"
	"forumkit/internal/guard"
	"forumkit/internal/logging"
	"forumkit/internal/model"
	"forumkit/internal/realtime"
	"forumkit/internal/session"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

var (
	// Global flags
	configPath string
	verbose    bool

	// Logger for non-interactive commands
	logger *zap.Logger
)

// rootCmd launches the interactive client when run without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "forumkit",
	Short: "ForumKit - campus forum terminal client",
	Long: `ForumKit is the terminal client for the campus discussion forum.

It shows the live post feed, comment threads, support tickets and (for
moderators) the admin dashboard, staying in sync with the backend over a
single WebSocket connection.

Run without arguments to start the interactive interface.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// The interactive UI has its own logging; only the one-shot
		// commands get a process logger.
		if cmd.CalledAs() == "forumkit" {
			return nil
		}
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive("")
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session locally",
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the stored session",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	RunE:  runWhoami,
}

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Open the interactive client on the post feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive("feed")
	},
}

var ticketsCmd = &cobra.Command{
	Use:   "tickets",
	Short: "Open the interactive client on the support tickets",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive("tickets")
	},
}

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Open the interactive client on the admin dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive("admin")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ~/.forumkit/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(ticketsCmd)
	rootCmd.AddCommand(adminCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig resolves the config file, falling back to defaults when none
// exists yet. The resolved path is returned so interactive mode can watch it.
func loadConfig() (*config.Config, string, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", fmt.Errorf("load config %s: %w", path, err)
	}
	if verbose {
		cfg.Logging.DebugMode = true
		cfg.Logging.Level = "debug"
	}
	return cfg, path, nil
}

func parseDur(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// newClient builds the API client against the store's token. onExpired
// clears the session; interactive mode layers a forced-logout push on top.
func newClient(cfg *config.Config, store *session.Store, onExpired func()) *api.Client {
	return api.New(api.Config{
		BaseURL: cfg.Server.BaseURL,
		Timeout: parseDur(cfg.Server.Timeout, 15*time.Second),
	}, store.Token, onExpired)
}

func runInteractive(startTab string) error {
	cfg, cfgPath, err := loadConfig()
	if err != nil {
		return err
	}

	if err := logging.Initialize(logging.Options{
		StateDir:   cfg.Session.StateDir,
		DebugMode:  cfg.Logging.DebugMode,
		Categories: cfg.Logging.Categories,
		Level:      cfg.Logging.Level,
		JSONFormat: cfg.Logging.Format == "json",
	}); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logging.CloseAll()

	store, err := session.Open(cfg.Session.StateDir)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer store.Close()

	sess, err := store.Load()
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Log filter changes apply on the fly; everything else waits for a
	// restart.
	if watcher, err := config.NewWatcher(cfgPath, func(next *config.Config) {
		logging.UpdateFilters(next.Logging.Level, next.Logging.Categories)
	}); err != nil {
		logging.Boot("config watcher unavailable: %v", err)
	} else if err := watcher.Start(ctx); err != nil {
		logging.Boot("config watcher unavailable: %v", err)
	} else {
		defer watcher.Stop()
	}

	events := make(chan tea.Msg, 64)

	var client *api.Client
	var refreshing atomic.Bool
	client = newClient(cfg, store, func() {
		// Try the refresh token before giving up on the session. The
		// guard keeps a failing refresh from re-entering this hook.
		if s, err := store.Load(); err == nil && s.RefreshToken != "" && refreshing.CompareAndSwap(false, true) {
			defer refreshing.Store(false)
			rctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if res, err := client.Refresh(rctx, s.RefreshToken); err == nil {
				_ = store.Save(model.Session{
					Token:        res.Token,
					RefreshToken: res.RefreshToken,
					Role:         res.Role,
					SchoolID:     res.SchoolID,
				})
				return
			}
		}
		if err := store.Clear(); err != nil {
			logging.SessionDebug("clear on token expiry failed: %v", err)
		}
		events <- ui.ForcedLogout("登入已過期，請重新登入")
	})

	// Restart-id check before anything renders: a restarted backend means
	// the stored token is already dead.
	if health, err := client.Health(ctx); err == nil {
		if restarted, _ := store.CheckRestart(health.RestartID); restarted {
			sess = model.Session{}
		}
	}

	roleSource := func() model.Role {
		s, err := store.Load()
		if err != nil {
			return ""
		}
		return s.Role
	}

	g := guard.New(guard.Config{
		Enabled:       cfg.Guard.Enabled,
		PollInterval:  parseDur(cfg.Guard.PollInterval, 2*time.Second),
		TrapThreshold: parseDur(cfg.Guard.TrapThreshold, 400*time.Millisecond),
	}, roleSource, client.ReportGuardEvent, func(state guard.State) {
		events <- ui.GuardTransition(state)
	})
	if g.Active() {
		go g.Run(ctx)
	}

	dispatcher := realtime.NewDispatcher(cfg.Realtime.DedupCacheSize)
	conn := realtime.NewConn(realtime.ConnConfig{
		URL:          cfg.Realtime.URL,
		PingInterval: parseDur(cfg.Realtime.PingInterval, 25*time.Second),
		Backoff:      parseDur(cfg.Realtime.ReconnectBackoff, time.Second),
		MaxBackoff:   parseDur(cfg.Realtime.MaxBackoff, 30*time.Second),
	}, store.Token, dispatcher)

	poller := session.NewRestartPoller(store,
		parseDur(cfg.Session.RestartPollInterval, time.Minute),
		func(ctx context.Context) (string, error) {
			return client.RestartID(ctx)
		},
		func() {
			events <- ui.ForcedLogout("伺服器已重新啟動，請重新登入")
		})
	go poller.Run(ctx)

	app := ui.NewApp(ui.Deps{
		Client:     client,
		Store:      store,
		Dispatcher: dispatcher,
		Guard:      g,
		Session:    sess,
		Styles:     ui.NewStyles(ui.ThemeFor(cfg.UI.Theme)),
		PageSize:   cfg.UI.PageSize,
		StartTab:   startTab,
		Events:     events,
	})
	app.BindRealtime()
	conn.Start(ctx)

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("ui error: %w", err)
	}
	return nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := session.Open(cfg.Session.StateDir)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer store.Close()

	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Email: ")
	email, err := reader.ReadString('\n')
	if err != nil {
		return err
	}
	fmt.Print("Password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	client := newClient(cfg, store, nil)
	result, err := client.Login(ctx, api.LoginInput{
		Email:    strings.TrimSpace(email),
		Password: string(password),
	})
	if err != nil {
		return fmt.Errorf("login failed: %s", api.UserMessage(err))
	}

	if err := store.Save(model.Session{
		Token:        result.Token,
		RefreshToken: result.RefreshToken,
		Role:         result.Role,
		SchoolID:     result.SchoolID,
	}); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	schoolName := ""
	if schools, err := client.ListSchools(ctx); err == nil {
		for _, s := range schools {
			if s.ID == result.SchoolID {
				schoolName = s.Name
				break
			}
		}
	}

	logger.Info("signed in", zap.String("role", string(result.Role)), zap.String("school", schoolName))
	if schoolName != "" {
		fmt.Printf("Signed in as %s (%s, role %s)\n", strings.TrimSpace(email), schoolName, result.Role)
	} else {
		fmt.Printf("Signed in as %s (role %s)\n", strings.TrimSpace(email), result.Role)
	}
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := session.Open(cfg.Session.StateDir)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer store.Close()

	if err := store.Clear(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	fmt.Println("Signed out.")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := session.Open(cfg.Session.StateDir)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer store.Close()

	sess, err := store.Load()
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if sess.Empty() {
		fmt.Println("Not signed in. Run 'forumkit login' first.")
		return nil
	}
	fmt.Printf("Role:      %s\n", sess.Role)
	fmt.Printf("School ID: %d\n", sess.SchoolID)
	return nil
}
