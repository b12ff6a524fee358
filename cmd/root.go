package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bnema/waylab/internal/config"
	"github.com/bnema/waylab/internal/logger"
	"github.com/bnema/waylab/internal/server"
)

// Version is set during build
var Version = "0.1.0-dev"

// Exit codes the test suite relies on.
const (
	ExitSuccess   = 0
	ExitFail      = 1
	ExitSkip      = 77
	ExitHardError = 99
)

var (
	flagBackend      string
	flagRenderer     string
	flagSocket       string
	flagShell        string
	flagWidth        int32
	flagHeight       int32
	flagModules      []string
	flagConfig       string
	flagNoConfig     bool
	flagLoggerScopes string
	flagXwayland     bool

	rootCmd = &cobra.Command{
		Use:   "waylab",
		Short: "waylab - headless compositor with an observational test harness",
		Long: `Waylab is a small display-server compositor built around the
pointer-constraints protocol, plus a test harness that freezes the
server at named breakpoints so a client thread can inspect its state.`,
		SilenceUsage: true,
		RunE:         runCompositor,
	}
)

// Execute runs the root command and maps errors to exit codes.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, server.ErrUnsupported) {
			fmt.Fprintf(os.Stderr, "skip: %v\n", err)
			os.Exit(ExitSkip)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitFail)
	}
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s\n" .Version}}`)

	f := rootCmd.Flags()
	f.StringVar(&flagBackend, "backend", "headless", "backend to use")
	f.StringVar(&flagRenderer, "renderer", "noop", "renderer to use")
	f.StringVar(&flagSocket, "socket", "", "listening socket name")
	f.StringVar(&flagShell, "shell", "test", "shell plugin")
	f.Int32Var(&flagWidth, "width", 320, "output width")
	f.Int32Var(&flagHeight, "height", 240, "output height")
	f.StringSliceVar(&flagModules, "modules", nil, "extra modules to load")
	f.StringVar(&flagConfig, "config", "", "configuration file path")
	f.BoolVar(&flagNoConfig, "no-config", false, "skip configuration loading")
	f.StringVar(&flagLoggerScopes, "logger-scopes", "", "comma-separated log scopes to enable")
	f.BoolVar(&flagXwayland, "xwayland", false, "start the X11 compatibility layer")
}

func runCompositor(cmd *cobra.Command, args []string) error {
	if flagLoggerScopes != "" {
		logger.SetScopes(strings.Split(flagLoggerScopes, ","))
	}

	var cfg *config.Config
	if flagNoConfig {
		cfg = config.New()
	} else {
		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return err
		}
	}

	width, err := cfg.Int("output", "width", flagWidth)
	if err != nil {
		return err
	}
	height, err := cfg.Int("output", "height", flagHeight)
	if err != nil {
		return err
	}
	if scopes := cfg.String("core", "logger-scopes", ""); scopes != "" && flagLoggerScopes == "" {
		logger.SetScopes(strings.Split(scopes, ","))
	}

	if flagXwayland {
		return fmt.Errorf("xwayland: %w", server.ErrUnsupported)
	}

	srv, err := server.New(server.Options{
		Width:    width,
		Height:   height,
		Backend:  flagBackend,
		Renderer: flagRenderer,
		Shell:    flagShell,
		Socket:   flagSocket,
		Modules:  flagModules,
	})
	if err != nil {
		return err
	}

	srv.Start()
	logger.Info("compositor running", "backend", flagBackend, "renderer", flagRenderer,
		"size", fmt.Sprintf("%dx%d", width, height))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	srv.Shutdown()
	return nil
}
