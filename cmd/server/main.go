package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sahayak-analytics/backend/internal/analysis"
	"github.com/sahayak-analytics/backend/internal/api"
	"github.com/sahayak-analytics/backend/internal/config"
	"github.com/sahayak-analytics/backend/internal/models"
	"github.com/sahayak-analytics/backend/internal/report"
	"github.com/sahayak-analytics/backend/internal/storage"
	"github.com/sahayak-analytics/backend/internal/web"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "sahayak",
		Short: "SAHAYAK Analytics - AI teaching assistant for multi-grade classrooms",
		Long: `SAHAYAK Analytics accepts student rosters, runs a per-student AI
analysis, and produces complete report bundles (PDF, charts, analysis
data) for teachers running multi-grade classrooms.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(configPath)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "sahayak.yaml", "path to YAML configuration file")

	// Running with no subcommand starts the server too; serve is the
	// spelled-out form.
	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the SAHAYAK Analytics HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(configPath)
		},
	})

	var outputPath string
	reportCmd := &cobra.Command{
		Use:   "report <roster-file>",
		Short: "Generate a report bundle from a roster file without starting the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(configPath, args[0], outputPath)
		},
	}
	reportCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output ZIP path (default: next to the roster file)")
	rootCmd.AddCommand(reportCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("sahayak %s (built %s)\n", Version, BuildTime)
		},
	})

	return rootCmd
}

func runServer(configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("creating data directories: %w", err)
	}

	logger, err := buildLogger(cfg.Advanced.LogLevel)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer logger.Sync()

	fileStore, err := storage.NewLocalStore(cfg.GetUploadDir())
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}

	provider := analysis.NewProvider(cfg)
	logger.Info("analysis provider ready", zap.String("provider", provider.Name()))

	reportMgr := report.NewManager(cfg, fileStore, provider, logger)
	reportMgr.StartCleanup()
	defer reportMgr.Shutdown()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	renderer, err := web.NewRenderer()
	if err != nil {
		return fmt.Errorf("parsing page templates: %w", err)
	}
	e.Renderer = renderer
	e.HTTPErrorHandler = web.ErrorHandler(api.ErrorHandler)

	registerMiddleware(e, cfg)

	handlers := api.NewHandlers(&api.Dependencies{
		Store:     fileStore,
		ReportMgr: reportMgr,
		Config:    cfg,
		Version:   Version,
	})
	api.RegisterRoutes(e, handlers)
	api.RegisterWebSocketRoutes(e, handlers)
	web.RegisterPageRoutes(e)

	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("addr", cfg.GetServerAddr()),
			zap.String("version", Version),
			zap.String("data_dir", cfg.GetDataDir()))
		if err := e.StartServer(s); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
	return nil
}

// runReport drives the full analyze-render-bundle pipeline against a local
// roster file and copies the finished ZIP to outputPath.
func runReport(configPath, rosterPath, outputPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("creating data directories: %w", err)
	}

	logger, err := buildLogger(cfg.Advanced.LogLevel)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer logger.Sync()

	fileStore, err := storage.NewLocalStore(cfg.GetUploadDir())
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}

	f, err := os.Open(rosterPath)
	if err != nil {
		return fmt.Errorf("opening roster: %w", err)
	}
	info, err := fileStore.Save(filepath.Base(rosterPath), f)
	f.Close()
	if err != nil {
		return fmt.Errorf("staging roster: %w", err)
	}

	provider := analysis.NewProvider(cfg)
	logger.Info("analysis provider ready", zap.String("provider", provider.Name()))

	mgr := report.NewManager(cfg, fileStore, provider, logger)
	defer mgr.Shutdown()

	sess, err := mgr.StartReport(info.ID)
	if err != nil {
		return fmt.Errorf("starting report: %w", err)
	}

	for {
		time.Sleep(200 * time.Millisecond)
		current, ok := mgr.GetSession(sess.ID)
		if !ok {
			return fmt.Errorf("report session vanished")
		}
		if current.Status == models.SessionStatusError {
			reason := "unknown error"
			if n := len(current.Errors); n > 0 {
				reason = current.Errors[n-1].Reason
			}
			return fmt.Errorf("report failed: %s", reason)
		}
		if current.Status == models.SessionStatusComplete {
			break
		}
	}

	bundlePath, bundleName, ok := mgr.BundlePath(sess.ID)
	if !ok {
		return fmt.Errorf("report bundle is missing")
	}
	if outputPath == "" {
		outputPath = filepath.Join(filepath.Dir(rosterPath), bundleName)
	}
	if err := copyFile(bundlePath, outputPath); err != nil {
		return fmt.Errorf("writing bundle: %w", err)
	}

	fmt.Printf("Report bundle written to %s\n", outputPath)
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

func buildLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(lvl)
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapCfg.Build()
}

func registerMiddleware(e *echo.Echo, cfg *config.AppConfig) {
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			if !cfg.Advanced.EnableRequestLogging {
				return true
			}
			path := c.Request().URL.Path
			return strings.HasSuffix(path, "/progress") ||
				strings.HasSuffix(path, "/keepalive") ||
				path == "/api/health"
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize:         1024 * 4,
		DisablePrintStack: false,
	}))

	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return strings.Contains(path, "/progress") ||
				strings.Contains(path, "/upload") ||
				strings.Contains(path, "/download") ||
				strings.Contains(path, "/ws/") ||
				c.Request().Header.Get("Accept") == "text/event-stream"
		},
		ErrorMessage: "Request timeout - analysis took too long",
	}))

	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return strings.Contains(path, "/download") ||
				strings.Contains(path, "/ws/") ||
				c.Request().Header.Get("Accept") == "text/event-stream"
		},
	}))

	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	if cfg.Server.EnableCORS {
		origins := strings.Split(cfg.Server.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		}))
	}
}
