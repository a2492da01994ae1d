// Command slides-mcp-server serves Google Slides decks to MCP hosts over
// stdio or HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/oauth2"

	"github.com/arjuns-ti/slides-mcp-server/internal/auth"
	"github.com/arjuns-ti/slides-mcp-server/internal/cache"
	"github.com/arjuns-ti/slides-mcp-server/internal/config"
	"github.com/arjuns-ti/slides-mcp-server/internal/logging"
	"github.com/arjuns-ti/slides-mcp-server/internal/middleware"
	"github.com/arjuns-ti/slides-mcp-server/internal/ratelimit"
	"github.com/arjuns-ti/slides-mcp-server/internal/tools"
	"github.com/arjuns-ti/slides-mcp-server/internal/transport"
)

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-v") {
		fmt.Printf("%s v%s\n", transport.ServerName, transport.ServerVersion)
		os.Exit(0)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, logCloser, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	if logCloser != nil {
		defer logCloser.Close()
	}

	oauthConfig, err := loadOAuthConfig(ctx, cfg)
	if err != nil {
		return err
	}

	store, storeCloser, err := newTokenStore(ctx, cfg)
	if err != nil {
		return err
	}
	if storeCloser != nil {
		defer storeCloser.Close()
	}

	// The interactive consent flow only exists in stdio mode. In HTTP mode
	// the /auth routes drive consent through the browser instead.
	var consent auth.ConsentFlow
	var httpConsent *auth.HTTPConsentHandler
	if cfg.Server.Transport == config.TransportStdio {
		consent = auth.NewLocalConsentFlow(logger, cfg.OAuth.OpenBrowser)
	} else {
		oauthConfig.RedirectURL = callbackURL(cfg.Server.Addr)
		httpConsent = auth.NewHTTPConsentHandler(oauthConfig, store, logger)
	}

	manager := auth.NewManager(oauthConfig, store, consent, logger)

	var deckCache *cache.DeckCache
	if cfg.Cache.DeckCacheSize > 0 {
		cacheManager := cache.NewManager(cache.ManagerConfig{
			DeckConfig: cache.DeckCacheConfig{
				MaxEntries: cfg.Cache.DeckCacheSize,
				TTL:        cfg.Cache.DeckCacheTTL,
				Logger:     logger,
			},
			CleanupInterval: 1 * time.Minute,
			Logger:          logger,
		})
		defer cacheManager.Stop()
		deckCache = cacheManager.Decks
	}

	toolset := tools.NewTools(tools.ToolsConfig{Logger: logger}, nil, nil, nil, deckCache)
	registry := transport.NewToolRegistry(toolset, manager)

	switch cfg.Server.Transport {
	case config.TransportStdio:
		srv := transport.NewStdioServer(registry, logger)
		err := srv.Run(ctx, transport.NewStdioStream())
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err

	case config.TransportHTTP:
		srv := transport.NewServer(transport.ServerConfig{
			Addr:           cfg.Server.Addr,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			Logger:         logger,
		}, registry)

		if httpConsent != nil {
			srv.SetAuthHandler(httpConsent)
		}
		if cfg.Server.APIKey != "" {
			srv.SetAPIKeyMiddleware(middleware.NewAPIKeyMiddleware(cfg.Server.APIKey, logger))
		}
		if cfg.Server.RateLimitRPS > 0 {
			srv.SetRateLimitMiddleware(ratelimit.New(ratelimit.Config{
				RequestsPerSecond: cfg.Server.RateLimitRPS,
				BurstSize:         cfg.Server.RateLimitBurst,
				Logger:            logger,
			}))
		}

		return srv.Start(ctx)

	default:
		return fmt.Errorf("unknown transport %q", cfg.Server.Transport)
	}
}

// loadOAuthConfig reads the OAuth client secret from Secret Manager when a
// secret name is configured, otherwise from the local client-secret file.
func loadOAuthConfig(ctx context.Context, cfg *config.Config) (*oauth2.Config, error) {
	if cfg.OAuth.ClientSecretName != "" {
		loader, err := auth.NewSecretLoader(ctx, cfg.OAuth.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("failed to create secret loader: %w", err)
		}
		defer loader.Close()

		oauthConfig, err := loader.LoadClientConfig(ctx, cfg.OAuth.ClientSecretName, auth.DefaultScopes)
		if err != nil {
			return nil, fmt.Errorf("failed to load client secret %q: %w", cfg.OAuth.ClientSecretName, err)
		}
		return oauthConfig, nil
	}

	oauthConfig, err := auth.LoadClientConfig(cfg.OAuth.ClientSecretPath, auth.DefaultScopes)
	if err != nil {
		return nil, fmt.Errorf("failed to load client secret from %s: %w", cfg.OAuth.ClientSecretPath, err)
	}
	return oauthConfig, nil
}

func newTokenStore(ctx context.Context, cfg *config.Config) (auth.TokenStore, io.Closer, error) {
	switch cfg.OAuth.TokenStore {
	case config.TokenStoreFirestore:
		store, err := auth.NewFirestoreTokenStore(ctx, cfg.OAuth.ProjectID, cfg.OAuth.FirestoreCollection, cfg.OAuth.FirestoreDocID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create firestore token store: %w", err)
		}
		return store, store, nil
	default:
		return auth.NewFileTokenStore(cfg.OAuth.TokenPath), nil, nil
	}
}

// callbackURL derives the OAuth redirect URL from the listen address.
func callbackURL(addr string) string {
	host := addr
	if strings.HasPrefix(addr, ":") {
		host = "localhost" + addr
	}
	return fmt.Sprintf("http://%s/auth/callback", host)
}
