package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"soundshelf/internal/app/albums"
	"soundshelf/internal/app/artists"
	"soundshelf/internal/app/collaborators"
	"soundshelf/internal/app/songs"
	"soundshelf/internal/app/users"
	"soundshelf/internal/auth"
	"soundshelf/internal/config"
	"soundshelf/internal/http/middleware"
	"soundshelf/internal/httpapi"
	"soundshelf/internal/logging"
	"soundshelf/internal/store"
)

func newHTTPHandler(cfg *config.Config, logger *logging.Logger, dataStore *store.Store) http.Handler {
	tokens := auth.NewTokens(cfg.Security.JWTSecret, cfg.Security.TokenTTL)

	userSvc := users.New(dataStore, tokens)
	songSvc := songs.New(dataStore, logger, songs.Options{
		StrictDuration: !cfg.Catalog.DurationMillisHeuristic,
	})
	albumSvc := albums.New(dataStore)
	artistSvc := artists.New(dataStore)
	collaboratorSvc := collaborators.New(dataStore)

	router := httpapi.New(userSvc, songSvc, albumSvc, artistSvc, collaboratorSvc, tokens, dataStore).Routes()

	var handler http.Handler = router
	handler = middleware.CORS(cfg.CORS.AllowedOrigins)(handler)
	handler = middleware.RequestLogging(logger)(handler)
	handler = middleware.Recovery(logger)(handler)
	return handler
}

// serve runs the HTTP server until ctx is cancelled, then drains in-flight
// requests for up to the configured shutdown timeout.
func serve(ctx context.Context, cfg *config.Config, logger *logging.Logger, dataStore *store.Store) error {
	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           newHTTPHandler(cfg, logger, dataStore),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Zerolog().Info().Str("addr", server.Addr).Msg("soundshelf API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("server exited")
	return nil
}
