package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/tako-tv/tako/internal/config"
	"github.com/tako-tv/tako/internal/domain"
	"github.com/tako-tv/tako/internal/log"
	"github.com/tako-tv/tako/internal/player"
	"github.com/tako-tv/tako/internal/progress"
	"github.com/tako-tv/tako/internal/repository"
	"github.com/tako-tv/tako/internal/search"
	"github.com/tako-tv/tako/internal/store"
	"github.com/tako-tv/tako/internal/takeout"
	"github.com/tako-tv/tako/internal/tui"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	var showVersion bool
	var signOut bool
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.BoolVar(&signOut, "logout", false, "sign out and forget credentials")
	flag.Parse()

	if showVersion {
		fmt.Printf("tako %s\n", Version)
		return
	}

	if err := run(signOut); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(signOut bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := log.Setup(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = log.Null()
	}
	slog.SetDefault(logger)
	takeout.Version = Version

	logger.Info("starting tako", "version", Version)

	db, err := store.Open(config.DataPath())
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer db.Close()

	if signOut {
		if err := db.ClearCredentials(); err != nil {
			return err
		}
		if err := db.ClearProgress(); err != nil {
			return err
		}
		if err := config.ClearServer(); err != nil {
			return err
		}
		fmt.Println("Signed out.")
		return nil
	}

	session, err := setupSession(cfg, db, logger)
	if err != nil {
		return err
	}

	// Persist every credential change: refreshed tokens overwrite the
	// stored set, invalidation clears it.
	endpoint := session.Endpoint()
	username := cfg.Server.Username
	saveTokens := func(t *takeout.Tokens) {
		if t == nil {
			if err := db.ClearCredentials(); err != nil {
				logger.Warn("failed to clear credentials", "error", err)
			}
			return
		}
		err := db.SaveCredentials(domain.Credentials{
			AccessToken:  t.AccessToken,
			MediaToken:   t.MediaToken,
			RefreshToken: t.RefreshToken,
			Endpoint:     endpoint,
			DisplayName:  username,
		})
		if err != nil {
			logger.Warn("failed to save credentials", "error", err)
		}
	}
	session.OnTokens(saveTokens)
	saveTokens(session.Tokens())

	client := takeout.NewClient(session)
	repo := repository.New(client, logger)
	searcher := search.New(repo, logger)
	reconciler := progress.New(repo, db, logger)
	launcher := player.NewLauncher(cfg.Player.Command, cfg.Player.Args, cfg.Player.StartFlag, logger)

	syncInterval := time.Duration(cfg.Sync.IntervalSeconds) * time.Second
	model := tui.NewModel(repo, searcher, reconciler, launcher, syncInterval, logger)

	p := tea.NewProgram(model, tea.WithAltScreen())

	logger.Info("starting TUI")

	if _, err := p.Run(); err != nil {
		logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	// One last push so positions recorded this run reach the server.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := reconciler.Sync(ctx); err != nil {
		logger.Warn("final progress sync failed", "error", err)
	}

	logger.Info("shutting down")
	return nil
}

// setupSession rebuilds the session from stored credentials, or runs
// the interactive login flow when there are none.
func setupSession(cfg *config.Config, db *store.Store, logger *slog.Logger) (*takeout.Session, error) {
	if creds, ok := db.Credentials(); ok {
		tokens := &takeout.Tokens{
			AccessToken:  creds.AccessToken,
			MediaToken:   creds.MediaToken,
			RefreshToken: creds.RefreshToken,
		}
		endpoint := creds.Endpoint
		if endpoint == "" {
			endpoint = cfg.Server.URL
		}
		logger.Info("restored session", "endpoint", endpoint)
		return takeout.NewSession(endpoint, tokens, logger), nil
	}

	return loginFlow(cfg, logger)
}

// loginFlow prompts for the server URL and credentials on the terminal.
func loginFlow(cfg *config.Config, logger *slog.Logger) (*takeout.Session, error) {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println()
	fmt.Println("Welcome to Tako!")
	fmt.Println()

	endpoint := cfg.Server.URL
	if endpoint == "" {
		fmt.Print("Enter your Takeout server URL (e.g., https://takeout.example.com): ")
		input, err := reader.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("failed to read input: %w", err)
		}
		endpoint = strings.TrimSpace(input)
		if endpoint == "" {
			return nil, fmt.Errorf("server URL cannot be empty")
		}
	}

	fmt.Print("Username: ")
	userInput, err := reader.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	user := strings.TrimSpace(userInput)

	fmt.Print("Password: ")
	passBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}

	session := takeout.NewSession(endpoint, nil, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := session.Login(ctx, user, string(passBytes)); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	cfg.Server.URL = session.Endpoint()
	cfg.Server.Username = user
	if err := config.Save(cfg); err != nil {
		logger.Warn("failed to save config", "error", err)
	}

	fmt.Println()
	fmt.Println("✓ Signed in!")
	fmt.Println()

	return session, nil
}
