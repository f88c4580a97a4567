// Package main provides the Spotify authorization tool.
package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/osa030/radiosync/internal/infra/config"
	"github.com/osa030/radiosync/internal/infra/logger"
	"github.com/osa030/radiosync/internal/infra/spotify"
)

var (
	app        = kingpin.New("radiosync-auth", "Spotify authorization tool for radiosync")
	configPath = app.Flag("config", "Path to config file (.yaml or .toml)").Default("config/radiosync.yaml").String()
	tokenFile  = app.Flag("token-file", "Where to cache the token (default: spotify.token_file or .cache-<username>)").String()

	auth  *spotifyauth.Authenticator
	ch    = make(chan *oauth2.Token)
	state = uuid.NewString()
)

func main() {
	_ = godotenv.Load()
	kingpin.MustParse(app.Parse(os.Args[1:]))

	if err := logger.Init(logger.Config{Output: "stderr", Level: "info"}); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	redirect, err := url.Parse(cfg.Spotify.RedirectURI)
	if err != nil {
		zlog.Fatal().Msgf("Invalid redirect URI %q: %v", cfg.Spotify.RedirectURI, err)
	}

	auth = spotify.NewAuthenticator(spotify.Config{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		RedirectURI:  cfg.Spotify.RedirectURI,
	})

	// Start HTTP server for callback
	mux := http.NewServeMux()
	mux.HandleFunc(redirect.Path, completeAuth)
	server := &http.Server{Addr: redirect.Host, Handler: mux}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Msgf("Failed to start server: %v", err)
		}
	}()

	fmt.Println("Please visit the following URL to authorize radiosync:")
	fmt.Println("")
	fmt.Println(auth.AuthURL(state))
	fmt.Println("")
	fmt.Println("Waiting for authorization...")

	token := <-ch

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		zlog.Warn().Msgf("Failed to shutdown server: %v", err)
	}

	path := *tokenFile
	if path == "" {
		path = cfg.TokenFile()
	}
	if err := spotify.SaveToken(path, token); err != nil {
		zlog.Error().Msgf("Failed to cache token: %v", err)
	} else {
		zlog.Info().Msgf("Token cached in %s", path)
	}

	fmt.Println("")
	fmt.Println("=== Authorization Successful ===")
	fmt.Println("")
	fmt.Println("Refresh Token:")
	fmt.Println(token.RefreshToken)
	fmt.Println("")
	fmt.Println("Add this to your config file:")
	fmt.Println("")
	fmt.Println("spotify:")
	fmt.Printf("  refresh_token: \"%s\"\n", token.RefreshToken)
	fmt.Println("")
	fmt.Println("Or set as environment variable:")
	fmt.Printf("export SPOTIFY_REFRESH_TOKEN=\"%s\"\n", token.RefreshToken)
}

func completeAuth(w http.ResponseWriter, r *http.Request) {
	token, err := auth.Token(r.Context(), state, r)
	if err != nil {
		http.Error(w, "Failed to get token", http.StatusForbidden)
		zlog.Error().Msgf("Failed to get token: %v", err)
		return
	}

	if st := r.FormValue("state"); st != state {
		http.Error(w, "State mismatch", http.StatusForbidden)
		zlog.Error().Msgf("State mismatch: %s != %s", st, state)
		return
	}

	fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head><title>radiosync - Authorization Complete</title></head>
<body>
    <h1>Authorization Complete</h1>
    <p>You can close this window and return to the terminal.</p>
</body>
</html>
`)

	ch <- token
}
