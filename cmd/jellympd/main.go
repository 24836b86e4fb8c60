package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"

	"github.com/famish99/jellympd/internal/backends/simulated"
	"github.com/famish99/jellympd/internal/cache"
	"github.com/famish99/jellympd/internal/catalog"
	"github.com/famish99/jellympd/internal/config"
	"github.com/famish99/jellympd/internal/discovery"
	"github.com/famish99/jellympd/internal/events"
	"github.com/famish99/jellympd/internal/httpapi"
	"github.com/famish99/jellympd/internal/jellyfin"
	"github.com/famish99/jellympd/internal/logging"
	"github.com/famish99/jellympd/internal/mpd"
	"github.com/famish99/jellympd/internal/player"
)

var (
	configPath = flag.StringP("config", "c", config.DefaultPath(), "Path to configuration file")
	listenAddr = flag.StringP("listen", "l", "", "MPD listen address (overrides general.listen)")
	logLevel   = flag.String("log-level", "", "Log level: trace, debug, info, warn, error")
	httpAddr   = flag.String("http", "", "HTTP API listen address (overrides http.listen)")
	noZeroconf = flag.Bool("no-zeroconf", false, "Do not advertise the MPD service over mDNS")
	update     = flag.BoolP("update", "u", false, "Refresh the catalog from Jellyfin on startup")
	discover   = flag.Duration("discover", 0, "Browse for MPD servers for the given duration and exit")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("jellympd failed")
	}
}

func run() error {
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	// keep the file's values apart from command line overrides
	saved := *cfg

	if *listenAddr != "" {
		cfg.General.Listen = *listenAddr
	}
	if *logLevel != "" {
		cfg.General.LogLevel = *logLevel
	}
	if *httpAddr != "" {
		cfg.HTTP.Listen = *httpAddr
	}
	if *noZeroconf {
		cfg.Zeroconf.Enabled = false
	}

	logging.Setup(logging.Config{Level: cfg.General.LogLevel, JSON: cfg.General.LogJSON})

	if *discover > 0 {
		return listServers(*discover)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration in %s: %w", *configPath, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := jellyfin.NewClient(cfg.Jellyfin.URL, cfg.Jellyfin.Username, cfg.Jellyfin.Password, cfg.Jellyfin.DeviceID, cfg.Jellyfin.VerifyCert)
	if err != nil {
		return err
	}
	if cfg.Jellyfin.DeviceID == "" {
		saved.Jellyfin.DeviceID = client.DeviceID()
		if err := config.SaveConfig(*configPath, &saved); err != nil {
			log.Warn().Err(err).Str("path", *configPath).Msg("Failed to save generated device id")
		}
	}

	notifier := events.NewNotifier()

	store, err := catalog.OpenStore(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	library := catalog.New(client, store, notifier)
	if err := library.Load(ctx); err != nil {
		log.Warn().Err(err).Msg("Starting with an empty catalog")
	}

	var resolver player.Resolver = client
	if cfg.Cache.Enabled {
		disk, err := cache.NewDiskCache(cfg.Cache.Directory, cfg.CacheBytes())
		if err != nil {
			return err
		}
		cached := cache.NewResolver(disk, client)
		defer cached.Close()
		resolver = cached
	}

	p := player.New(simulated.New(cfg.Playback.DefaultVolume), resolver, library, notifier)
	defer p.Close()
	// after the servers stop, so no new refresh can start
	defer library.Wait()

	server := mpd.NewServer(cfg.General.Listen, library, p, notifier, mpd.ServerOptions{})
	if err := server.Start(); err != nil {
		return err
	}
	defer server.Stop()

	if cfg.HTTP.Listen != "" {
		api := httpapi.New(p, library, notifier)
		if err := api.Start(cfg.HTTP.Listen); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := api.Shutdown(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("HTTP API shutdown failed")
			}
		}()
	}

	if cfg.Zeroconf.Enabled {
		if ad, err := advertise(cfg.Zeroconf.Name, server); err != nil {
			log.Warn().Err(err).Msg("Zeroconf advertisement disabled")
		} else {
			defer ad.Shutdown()
		}
	}

	if *update || library.Len() == 0 {
		if _, err := library.StartRefresh(ctx); err != nil && !errors.Is(err, catalog.ErrUpdateRunning) {
			log.Warn().Err(err).Msg("Failed to start catalog update")
		}
	}

	log.Info().
		Str("mpd", server.Addr().String()).
		Str("jellyfin", cfg.Jellyfin.URL).
		Int("items", library.Len()).
		Msg("jellympd running")

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	return nil
}

func advertise(name string, server *mpd.Server) (*discovery.Advertisement, error) {
	port, err := discovery.PortOf(server.Addr().String())
	if err != nil {
		return nil, err
	}
	return discovery.Advertise(name, port, "version="+mpd.ProtocolVersion)
}

func listServers(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	services, err := discovery.Browse(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("\nFound %d MPD server(s):\n\n", len(services))
	for i, svc := range services {
		fmt.Printf("  [%d] %s at %s\n", i+1, svc.Name, svc.Address())
	}
	return nil
}
