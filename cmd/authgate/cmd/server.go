package cmd

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jmcleod/authgate/api"
	auditbbolt "github.com/jmcleod/authgate/auditlog/bbolt"
	"github.com/jmcleod/authgate/authority"
	authoritymem "github.com/jmcleod/authgate/authority/memory"
	"github.com/jmcleod/authgate/authority/remote"
)

var (
	port           int
	authorityURI   string
	apiKey         string
	allowedOrigins []string
	auditDB        string
	trustedProxies []string
	devMode        bool
	tlsCert        string
	tlsKey         string
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		// A .env file, when present, supplies defaults; real environment
		// variables and flags win over it.
		_ = godotenv.Load()
		applyEnvDefaults(cmd)

		logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

		var auth authority.Authority
		if devMode {
			mem := authoritymem.New()
			// Passwordless codes have no delivery channel in dev mode, so
			// print them where the developer can see them.
			mem.OnCode = func(email, code string) {
				fmt.Printf("Dev mode: passwordless code for %s: %s\n", email, code)
			}
			auth = mem
			fmt.Println("Dev mode: using in-memory session authority")
		} else {
			auth = remote.New(remote.Config{
				ConnectionURI: authorityURI,
				APIKey:        apiKey,
			})
		}

		opts := []api.Option{api.WithLogger(logger)}

		if auditDB != "" {
			trail, err := auditbbolt.Open(auditDB)
			if err != nil {
				return fmt.Errorf("failed to open audit database: %w", err)
			}
			defer trail.Close()
			opts = append(opts, api.WithAuditTrail(trail))
		}

		if len(trustedProxies) > 0 {
			prefixes, err := parseProxyPrefixes(trustedProxies)
			if err != nil {
				return err
			}
			opts = append(opts, api.WithTrustedProxies(prefixes))
		}

		opts = append(opts, api.WithAlertFunc(func(e api.AlertEvent) {
			logger.Warn("security alert",
				slog.String("type", string(e.Type)),
				slog.String("message", e.Message),
				slog.Int("count", e.Count),
				slog.Int("threshold", e.Threshold))
		}))

		a := api.New(auth, opts...)

		r := chi.NewRouter()
		r.Use(middleware.Logger)
		r.Use(middleware.Recoverer)
		r.Use(api.SecurityHeaders)
		if len(allowedOrigins) > 0 {
			r.Use(api.CORS(allowedOrigins))
		}

		r.Mount("/api", a.Router())

		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		useTLS := tlsCert != "" && tlsKey != ""
		if useTLS {
			cert, err := tls.LoadX509KeyPair(tlsCert, tlsKey)
			if err != nil {
				return fmt.Errorf("failed to load TLS key pair: %w", err)
			}
			server.TLSConfig = &tls.Config{
				Certificates: []tls.Certificate{cert},
				MinVersion:   tls.VersionTLS12,
			}
		}

		// Graceful shutdown on SIGINT/SIGTERM.
		done := make(chan error, 1)
		go func() {
			var err error
			if useTLS {
				err = server.ListenAndServeTLS("", "")
			} else {
				err = server.ListenAndServe()
			}
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()

		printBanner()
		fmt.Printf("Starting server on port %d (authority: %s)...\n", port, authorityLabel())

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			fmt.Printf("\nReceived %s, shutting down...\n", sig)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		case err := <-done:
			return err
		}
	},
}

func authorityLabel() string {
	if devMode {
		return "in-memory"
	}
	if authorityURI != "" {
		return authorityURI
	}
	return remote.DefaultConnectionURI
}

// applyEnvDefaults fills in flags the user did not set from environment
// variables, so the server can be configured entirely through the
// environment (or a .env file) in container deployments.
func applyEnvDefaults(cmd *cobra.Command) {
	if !cmd.Flags().Changed("port") {
		if v, err := strconv.Atoi(os.Getenv("AUTHGATE_PORT")); err == nil && v > 0 {
			port = v
		}
	}
	if authorityURI == "" {
		authorityURI = os.Getenv("AUTHORITY_CONNECTION_URI")
	}
	if apiKey == "" {
		apiKey = os.Getenv("AUTHORITY_API_KEY")
	}
	if len(allowedOrigins) == 0 {
		if v := os.Getenv("AUTHGATE_ALLOWED_ORIGINS"); v != "" {
			allowedOrigins = splitAndTrim(v)
		}
	}
	if auditDB == "" {
		auditDB = os.Getenv("AUTHGATE_AUDIT_DB")
	}
	if len(trustedProxies) == 0 {
		if v := os.Getenv("AUTHGATE_TRUSTED_PROXIES"); v != "" {
			trustedProxies = splitAndTrim(v)
		}
	}
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseProxyPrefixes(raw []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(raw))
	for _, s := range raw {
		// Accept both CIDR ranges and bare addresses.
		if !strings.Contains(s, "/") {
			addr, err := netip.ParseAddr(s)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", s, err)
			}
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		prefix, err := netip.ParsePrefix(s)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", s, err)
		}
		prefixes = append(prefixes, prefix)
	}
	return prefixes, nil
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on")
	serverCmd.Flags().StringVar(&authorityURI, "authority-uri", "", "Base URL of the session authority core")
	serverCmd.Flags().StringVar(&apiKey, "api-key", "", "API key sent to the session authority")
	serverCmd.Flags().StringSliceVar(&allowedOrigins, "allowed-origins", nil, "Origins allowed for CORS")
	serverCmd.Flags().StringVar(&auditDB, "audit-db", "", "Path to the audit trail database (empty disables the trail)")
	serverCmd.Flags().StringSliceVar(&trustedProxies, "trusted-proxies", nil, "CIDR ranges whose forwarding headers are trusted")
	serverCmd.Flags().BoolVar(&devMode, "dev", false, "Use an in-memory session authority instead of a remote core")
	serverCmd.Flags().StringVar(&tlsCert, "tls-cert", "", "Path to TLS certificate file")
	serverCmd.Flags().StringVar(&tlsKey, "tls-key", "", "Path to TLS key file")
}
