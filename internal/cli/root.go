// Package cli provides the shelfctl command-line interface.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/shelf-labs/shelfctl/internal/browse"
	"github.com/shelf-labs/shelfctl/internal/config"
	"github.com/shelf-labs/shelfctl/internal/logging"
)

var (
	cfgFile   string
	apiURL    string
	tokenFile string
	verbose   bool

	logger *logging.Logger
)

// Version information - set by main package at startup.
var (
	Version   = "v0.1.0-dev"
	BuildTime = "unknown"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "shelfctl",
		Short: "shelfctl - terminal client for the Shelf file service",
		Long: `shelfctl ` + Version + ` - Built: ` + BuildTime + `
Manage your files on a Shelf server: sign up, log in, upload, browse,
download, rename, and delete.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.New()
			if verbose {
				logging.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Shelf API base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&tokenFile, "token-file", "", "Path to the session token file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")

	rootCmd.AddCommand(
		newSignupCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newFilesCmd(),
		newBrowseCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the root command with signal-aware cancellation.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("shelfctl %s (built %s)\n", Version, BuildTime)
		},
	}
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if apiURL != "" {
		cfg.APIBaseURL = strings.TrimSuffix(apiURL, "/")
	}
	if tokenFile != "" {
		cfg.TokenPath = tokenFile
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newApp() (*browse.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return browse.NewApp(cfg, os.Stdout)
}

// promptPassword reads a password without echo when stdin is a terminal,
// falling back to a plain line read otherwise.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		defer fmt.Fprintln(os.Stderr)
		data, err := term.ReadPassword(fd)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// confirm asks a yes/no question on stdin.
func confirm(question string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", question)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
