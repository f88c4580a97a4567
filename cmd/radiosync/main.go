// Package main provides the radiosync command.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/radiosync/internal/app/filter"
	"github.com/osa030/radiosync/internal/app/history"
	"github.com/osa030/radiosync/internal/app/reconcile"
	"github.com/osa030/radiosync/internal/app/resolver"
	"github.com/osa030/radiosync/internal/app/state"
	"github.com/osa030/radiosync/internal/infra/config"
	"github.com/osa030/radiosync/internal/infra/logger"
	"github.com/osa030/radiosync/internal/infra/planetradio"
	"github.com/osa030/radiosync/internal/infra/spotify"
)

var (
	app        = kingpin.New("radiosync", "Sync a Spotify playlist with songs played on Planet Radio stations")
	configPath = app.Flag("config", "Path to config file (.yaml or .toml)").Default("config/radiosync.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	syncCmd     = app.Command("sync", "Add recently played songs to the playlist (default)").Default()
	playlistID  = syncCmd.Flag("playlist-id", "Spotify playlist ID or URL, overrides sync.playlist_id").String()
	stationCode = syncCmd.Flag("station-code", "Comma-separated station codes, overrides sync.station_codes").String()
	dryRun      = syncCmd.Flag("dry-run", "Read everything but do not modify the playlist").Bool()

	stationsCmd = app.Command("stations", "List station codes")
	country     = stationsCmd.Arg("country", "Country code").Default("GB").String()

	runsCmd      = app.Command("runs", "Show recorded sync runs (sqlite state backend)")
	runsPlaylist = runsCmd.Flag("playlist-id", "Spotify playlist ID, overrides sync.playlist_id").String()
	runsLimit    = runsCmd.Flag("limit", "Number of runs to show").Default("10").Int()

	listFiltersCmd = app.Command("list-filters", "List available filters and exit")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == listFiltersCmd.FullCommand() {
		printFilters()
		return
	}

	if err := logger.Init(loggerConfig(config.LogConfig{Level: "info", Output: "stdout"})); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zlog.Debug().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := logger.Init(loggerConfig(cfg.Log)); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	zlog.Logger = zlog.With().Str("run_id", uuid.NewString()).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch command {
	case stationsCmd.FullCommand():
		err = listStations(ctx, cfg)
	case runsCmd.FullCommand():
		err = listRuns(ctx, cfg)
	default:
		err = runSync(ctx, cfg)
	}
	if err != nil {
		zlog.Error().Msgf("%s failed: %v", command, err)
		stop()
		os.Exit(1)
	}
}

// loggerConfig applies the command-line flags on top of the configured log settings.
func loggerConfig(lc config.LogConfig) logger.Config {
	cfg := logger.Config{
		Output:     lc.Output,
		Level:      lc.Level,
		MaxSizeMB:  lc.MaxSizeMB,
		MaxBackups: lc.MaxBackups,
	}
	if *verbose {
		cfg.Level = "debug"
	}
	if *logfile != "" {
		cfg.Output = *logfile
		cfg.File = *logfile
	}
	return cfg
}

// runSync wires the clients into a reconciler and runs one pass.
func runSync(ctx context.Context, cfg *config.Config) error {
	if *playlistID != "" {
		cfg.Sync.PlaylistID = *playlistID
	}
	if *stationCode != "" {
		cfg.Sync.StationCodes = *stationCode
	}
	if cfg.Sync.PlaylistID == "" {
		return errors.New("no playlist: set sync.playlist_id or pass --playlist-id")
	}
	stations := cfg.Stations()

	chain, err := filter.NewChainFromConfig(cfg)
	if err != nil {
		return errors.Wrap(err, "invalid filter config")
	}

	spotifyClient, err := spotify.New(ctx, spotifyConfig(cfg))
	if err != nil {
		return errors.Wrap(err, "failed to create Spotify client")
	}

	store, closeStore, err := openStore(cfg, spotifyClient)
	if err != nil {
		return err
	}
	defer closeStore()

	fetcher := history.New(
		planetradio.New(planetradio.Config{
			BaseURL:  cfg.StationAPI.BaseURL,
			Timeout:  cfg.StationAPI.Timeout,
			RetryMax: cfg.StationAPI.RetryMax,
		}),
		history.WithFilters(chain),
		history.WithPageSize(cfg.StationAPI.PageSize),
		history.WithLocation(cfg.Location()),
	)

	zlog.Info().Msgf("syncing playlist %s from stations %s", spotifyClient.GetPlaylistURL(cfg.Sync.PlaylistID), strings.Join(stations, ", "))

	summary, err := reconcile.New(
		spotifyClient,
		fetcher,
		resolver.New(spotifyClient, cfg.Search.RateLimit),
		store,
		reconcile.Options{
			PlaylistID: cfg.Sync.PlaylistID,
			Stations:   stations,
			Replace:    cfg.Sync.ReplacePlaylist,
			DryRun:     *dryRun,
			UpdatedBy:  cfg.Sync.UpdatedBy,
		},
	).Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Processed %d tracks, added %d, playlist now has %d\n", summary.Processed, summary.Added, summary.TotalAfter)
	return nil
}

func spotifyConfig(cfg *config.Config) spotify.Config {
	return spotify.Config{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		RedirectURI:  cfg.Spotify.RedirectURI,
		RefreshToken: cfg.Spotify.RefreshToken,
		TokenFile:    cfg.TokenFile(),
		Market:       cfg.Search.Market,
		Timeout:      cfg.Spotify.Timeout,
		MaxAttempts:  cfg.Spotify.MaxAttempts,
	}
}

// openStore builds the configured sync-state store. The description store is
// always present, either alone or as the SQLite store's mirror.
func openStore(cfg *config.Config, playlists state.PlaylistDescriber) (state.Store, func(), error) {
	desc := state.NewDescriptionStore(playlists, cfg.Location())
	if cfg.State.Backend != "sqlite" {
		return desc, func() {}, nil
	}

	store, err := state.OpenSQLite(cfg.State.Path, desc)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to open state database %s", cfg.State.Path)
	}
	return store, func() {
		if err := store.Close(); err != nil {
			zlog.Warn().Msgf("Failed to close state database: %v", err)
		}
	}, nil
}

// listStations prints the station directory for a country.
func listStations(ctx context.Context, cfg *config.Config) error {
	client := planetradio.New(planetradio.Config{
		BaseURL:  cfg.StationAPI.BaseURL,
		Timeout:  cfg.StationAPI.Timeout,
		RetryMax: cfg.StationAPI.RetryMax,
	})

	stations, err := client.Stations(ctx, *country)
	if err != nil {
		return err
	}

	fmt.Printf("Stations (%s):\n", *country)
	for _, s := range stations {
		fmt.Printf("  %-10s %s\n", s.Code, s.Name)
	}
	return nil
}

// listRuns prints the most recent runs recorded for the configured playlist.
func listRuns(ctx context.Context, cfg *config.Config) error {
	if cfg.State.Backend != "sqlite" {
		return errors.Newf("runs are only recorded with state.backend sqlite (current: %s)", cfg.State.Backend)
	}
	if *runsPlaylist != "" {
		cfg.Sync.PlaylistID = *runsPlaylist
	}

	store, err := state.OpenSQLite(cfg.State.Path, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to open state database %s", cfg.State.Path)
	}
	defer store.Close()

	runs, err := store.Runs(ctx, cfg.Sync.PlaylistID, *runsLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No recorded runs")
		return nil
	}
	for _, r := range runs {
		fmt.Printf("%s  %-20s processed=%-4d added=%-4d total=%-5d %s\n",
			r.SyncedAt.In(cfg.Location()).Format(state.DescriptionLayout),
			strings.Join(r.Stations, ","), r.Processed, r.Added, r.Total, r.ID)
	}
	return nil
}

// printFilters prints available filters.
func printFilters() {
	fmt.Println("Available Filters:")
	registry := filter.GetRegistered()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		f := registry[name]()
		codes := strings.Join(f.ReturnCodes(), ", ")
		fmt.Printf("  %-20s - %s [codes: %s]\n", f.Name(), f.Description(), codes)
	}
}
