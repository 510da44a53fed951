package main

import (
	"context"
	"errors"
	"fmt"

	"soundshelf/internal/catalog"
	"soundshelf/internal/logging"
	"soundshelf/internal/store"
)

type seedSong struct {
	Title    string
	Duration string
	Album    string
	With     []string
}

var demoSongs = []seedSong{
	{Title: "Turquoise Hexagon Sun", Duration: "5:07", Album: "Greatest Hits"},
	{Title: "Roygbiv", Duration: "2:31", Album: "Greatest Hits", With: []string{"guest"}},
	{Title: "Glory Box", Duration: "5:06", With: []string{"guest", "DJ Kraze"}},
}

// bootstrapDemoData creates a demo uploader and a guest collaborator with a
// small album. It does nothing once the demo user owns any song.
func bootstrapDemoData(ctx context.Context, dataStore *store.Store, logger *logging.Logger) error {
	for _, name := range []string{"demo", "guest"} {
		if _, err := dataStore.CreateUser(ctx, store.NewUser{Username: name, Password: name + "123"}); err != nil && !errors.Is(err, store.ErrUserExists) {
			return fmt.Errorf("bootstrap %s user: %w", name, err)
		}
	}

	users, err := dataStore.UsersByNames(ctx, []string{"demo", "guest"})
	if err != nil {
		return fmt.Errorf("lookup demo users: %w", err)
	}
	demo, ok := users["demo"]
	if !ok {
		return errors.New("demo user missing after bootstrap")
	}

	existing, err := dataStore.ListSongs(ctx, store.SongFilter{OwnerID: demo.ID, Limit: 1})
	if err != nil {
		return fmt.Errorf("list demo songs: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	for _, seed := range demoSongs {
		var members []catalog.Member
		for _, name := range seed.With {
			if u, ok := users[name]; ok {
				members = append(members, catalog.Member{UserID: u.ID, Name: u.Username})
				continue
			}
			members = append(members, catalog.Member{Name: name})
		}

		credits := make([]string, len(members))
		for i, m := range members {
			credits[i] = m.Name
		}

		if _, err := dataStore.SaveSong(ctx, store.SongInput{
			OwnerID:       demo.ID,
			Title:         seed.Title,
			Artist:        catalog.StructuredAttribution(demo.Username, credits).Display,
			Duration:      catalog.NormalizeDurationStrict(seed.Duration),
			AlbumTitle:    seed.Album,
			Collaborators: members,
		}); err != nil {
			return fmt.Errorf("seed song %q: %w", seed.Title, err)
		}
	}

	logger.Zerolog().Info().Int("songs", len(demoSongs)).Msg("demo catalog seeded")
	return nil
}
