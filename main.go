// Command autoreplace starts the autoreplace dialog server.
//
// It supports two modes:
//  1. "server" (default) runs the HTTP server exposing the REST API, the
//     WebSocket feed and an /mcp HTTP endpoint
//  2. "stdio-mcp" runs an MCP stdio server and spins up an internal HTTP API
//     if none is available
//
// Both modes run a simulation tick that applies the commands queued by replace
// dialogs, and prune sessions that have not been used for a while. Flags can
// also be set through the environment or a .env file.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/mcp-training/autoreplace/api"
	"github.com/wricardo/mcp-training/autoreplace/game/config"
	"github.com/wricardo/mcp-training/autoreplace/game/service"
	"github.com/wricardo/mcp-training/autoreplace/game/session"
	"github.com/wricardo/mcp-training/autoreplace/transport/mcp"
	"github.com/wricardo/mcp-training/autoreplace/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Autoreplace Server"
)

// options holds everything the run modes need from the command line
type options struct {
	host            string
	port            int
	scenarioDir     string
	tickInterval    time.Duration
	sessionTTL      time.Duration
	cleanupInterval time.Duration

	ngrokEnabled bool
	ngrokAuth    string
	ngrokDomain  string
}

func optionsFrom(cmd *cli.Command) options {
	return options{
		host:            cmd.String("host"),
		port:            cmd.Int("port"),
		scenarioDir:     cmd.String("scenario-dir"),
		tickInterval:    cmd.Duration("tick-interval"),
		sessionTTL:      cmd.Duration("session-ttl"),
		cleanupInterval: cmd.Duration("cleanup-interval"),
		ngrokEnabled:    cmd.Bool("ngrok"),
		ngrokAuth:       cmd.String("ngrok-auth"),
		ngrokDomain:     cmd.String("ngrok-domain"),
	}
}

func (o options) addr() string {
	return fmt.Sprintf("%s:%d", o.host, o.port)
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "autoreplace",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
			&cli.StringFlag{Name: "scenario-dir", Value: "scenarios", Usage: "directory containing scenario files", Sources: cli.EnvVars("SCENARIO_DIR")},
			&cli.DurationFlag{Name: "tick-interval", Value: time.Second, Usage: "how often queued dialog commands are applied (0 disables)", Sources: cli.EnvVars("TICK_INTERVAL")},
			&cli.DurationFlag{Name: "session-ttl", Value: 24 * time.Hour, Usage: "remove sessions idle for longer than this", Sources: cli.EnvVars("SESSION_TTL")},
			&cli.DurationFlag{Name: "cleanup-interval", Value: time.Hour, Usage: "how often idle sessions are removed", Sources: cli.EnvVars("CLEANUP_INTERVAL")},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "trace, debug, info, warn or error", Sources: cli.EnvVars("LOG_LEVEL")},
			&cli.BoolFlag{Name: "log-json", Usage: "write JSON logs instead of console output", Sources: cli.EnvVars("LOG_JSON")},
			&cli.BoolFlag{Name: "ngrok", Usage: "enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "custom ngrok domain", Sources: cli.EnvVars("NGROK_DOMAIN")},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			return ctx, setupLogging(os.Stderr, cmd.String("log-level"), cmd.Bool("log-json"))
		},
		Action: runServerCommand,
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "run HTTP server with API, WebSocket, and MCP endpoint (default)",
				Action:  runServerCommand,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "run MCP stdio server with internal HTTP server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					opts := optionsFrom(cmd)
					log.Info().Str("version", Version).Str("mode", "stdio-mcp").Msgf("Starting %s", AppName)
					return runStdioMCP(ctx, opts)
				},
			},
		},
	}
}

func runServerCommand(ctx context.Context, cmd *cli.Command) error {
	opts := optionsFrom(cmd)
	log.Info().Str("version", Version).Str("mode", "server").Msgf("Starting %s", AppName)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return runHTTPServer(ctx, opts)
}

// setupLogging configures the global zerolog logger. Logs always go to w
// (stderr in production) so that stdout stays free for the MCP stdio protocol.
func setupLogging(w io.Writer, level string, jsonOutput bool) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	out := w
	if !jsonOutput {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return nil
}

// main loads .env, parses flags and starts the selected mode
func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
	}

	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

// services bundles what initializeServices wires together
type services struct {
	replace  service.ReplaceService
	sessions *session.Manager
}

// initializeServices wires the session and scenario managers into the
// replace service
func initializeServices(scenarioDir string) (*services, error) {
	scenarios, err := config.NewManager(scenarioDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario manager: %w", err)
	}

	sessions := session.NewManager()
	return &services{
		replace:  service.NewReplaceService(sessions, scenarios),
		sessions: sessions,
	}, nil
}

// startBackground launches the tick and cleanup loops; they stop with ctx
func startBackground(ctx context.Context, wg *sync.WaitGroup, svcs *services, apiServer *api.Server, opts options) {
	if opts.tickInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runTickLoop(ctx, svcs.replace, apiServer, opts.tickInterval)
		}()
	}
	if opts.cleanupInterval > 0 && opts.sessionTTL > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sessionCleanupRoutine(ctx, svcs.sessions, opts.cleanupInterval, opts.sessionTTL)
		}()
	}
}

// runTickLoop applies queued dialog commands of every session on each tick
// and pushes the results to WebSocket subscribers
func runTickLoop(ctx context.Context, svc service.ReplaceService, apiServer *api.Server, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			results, err := svc.TickAll(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("tick failed")
			}
			for _, res := range results {
				log.Debug().
					Str("session", res.SessionID).
					Int("executed", res.Executed).
					Int("rejected", res.Rejected).
					Msg("tick applied")
				if apiServer != nil {
					apiServer.BroadcastTick(ctx, res)
				}
			}
		}
	}
}

// sessionCleanupRoutine periodically removes sessions that have not been
// accessed within maxAge
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			manager.CleanupExpiredSessions(maxAge)
		}
	}
}

// mcpHandler serves single JSON-RPC messages posted to /mcp
func mcpHandler(mcpServer *server.MCPServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpServer.HandleMessage(r.Context(), body)
		if response == nil {
			// notifications have no response
			w.WriteHeader(http.StatusAccepted)
			return
		}

		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(responseData)
	}
}

// newRouter combines the API server and the /mcp endpoint
func newRouter(apiServer http.Handler, mcpClient *mcp.Client) *http.ServeMux {
	router := http.NewServeMux()
	router.Handle("/", apiServer)
	router.HandleFunc("/mcp", mcpHandler(mcpClient.GetMCPServer()))
	return router
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an
// /mcp endpoint, and blocks until ctx is cancelled. If ngrok is enabled it
// also provisions a public tunnel.
func runHTTPServer(ctx context.Context, opts options) error {
	svcs, err := initializeServices(opts.scenarioDir)
	if err != nil {
		return err
	}

	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Stop()

	apiServer := api.NewServer(svcs.replace, hub)
	addr := opts.addr()
	router := newRouter(apiServer, mcp.NewClient("http://"+addr))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	startBackground(ctx, &wg, svcs, apiServer, opts)

	serveErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", addr).
			Str("api", fmt.Sprintf("http://%s/api", addr)).
			Str("ws", fmt.Sprintf("ws://%s/ws?session=<session_id>", addr)).
			Str("mcp", fmt.Sprintf("http://%s/mcp", addr)).
			Msg("HTTP server listening")

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	if opts.ngrokEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, opts, router)
		}()
	}

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down...")
	case err = <-serveErr:
		log.Error().Err(err).Msg("HTTP server failed")
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	wg.Wait()
	log.Info().Msg("Server stopped")
	return err
}

// runNgrok serves handler through an ngrok tunnel until ctx is cancelled
func runNgrok(ctx context.Context, opts options, handler http.Handler) {
	if opts.ngrokAuth == "" {
		log.Warn().Msg("Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if opts.ngrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(opts.ngrokDomain))
		log.Info().Str("domain", opts.ngrokDomain).Msg("Using custom ngrok domain")
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(opts.ngrokAuth))
	if err != nil {
		log.Error().Err(err).Msg("Failed to start ngrok tunnel")
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close ngrok tunnel")
		}
	}()

	url := tun.URL()
	log.Info().
		Str("url", url).
		Str("api", url+"/api").
		Str("ws", url+"/ws?session=<session_id>").
		Str("mcp", url+"/mcp").
		Msg("Ngrok tunnel established")

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.Error().Err(err).Msg("Ngrok server error")
	}
	log.Info().Msg("Ngrok tunnel closed")
}

// externalAPIAvailable reports whether an API server answers at baseURL
func externalAPIAvailable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// startInternalServer serves a private API on a random loopback port and
// returns its base URL
func startInternalServer(ctx context.Context, wg *sync.WaitGroup, opts options) (string, error) {
	svcs, err := initializeServices(opts.scenarioDir)
	if err != nil {
		return "", err
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("failed to get available port: %w", err)
	}

	hub := websocket.NewHub()
	go hub.Run()

	apiServer := api.NewServer(svcs.replace, hub)
	httpServer := &http.Server{Handler: apiServer}

	startBackground(ctx, wg, svcs, apiServer, opts)

	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Internal HTTP server error")
		}
	}()
	go func() {
		<-ctx.Done()
		httpServer.Close()
		hub.Stop()
	}()

	addr := listener.Addr().String()
	log.Info().Str("addr", addr).Msg("Internal HTTP server started for MCP stdio")
	return "http://" + addr, nil
}

// runStdioMCP runs an MCP stdio server. It reuses an API server at the
// configured address when one answers; otherwise it starts an internal one.
func runStdioMCP(ctx context.Context, opts options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	defer wg.Wait()

	baseURL := "http://" + opts.addr()
	log.Info().Str("url", baseURL).Msg("Checking for external API server")

	if externalAPIAvailable(ctx, baseURL) {
		log.Info().Str("url", baseURL).Msg("MCP stdio server ready (using external HTTP server)")
	} else {
		internal, err := startInternalServer(ctx, &wg, opts)
		if err != nil {
			return err
		}
		baseURL = internal
		log.Info().Str("url", baseURL).Msg("MCP stdio server ready (using internal HTTP server)")
	}

	mcpClient := mcp.NewClient(baseURL)
	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
