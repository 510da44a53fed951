package songs

import (
	"context"
	"errors"
	"strings"

	"soundshelf/internal/catalog"
	"soundshelf/internal/logging"
	"soundshelf/internal/store"
)

// ErrSaveFailed is the only error a caller sees when a save could not be
// committed for reasons other than bad input or ownership. The cause is
// logged.
var ErrSaveFailed = errors.New("save failed, please retry")

// Store describes the persistence operations required by the song service.
type Store interface {
	SaveSong(ctx context.Context, in store.SongInput) (store.Song, error)
	GetSong(ctx context.Context, id int64) (store.Song, error)
	ListSongs(ctx context.Context, filter store.SongFilter) ([]store.Song, error)
	RosterFor(ctx context.Context, songID, uploaderID int64) ([]store.RosterEntry, error)
	ReplaceCollaborators(ctx context.Context, songID, uploaderID int64, ids []int64) (bool, error)
	UserByID(ctx context.Context, id int64) (store.User, error)
	UsersByIDs(ctx context.Context, ids []int64) (map[int64]store.User, error)
	UsersByNames(ctx context.Context, names []string) (map[string]store.User, error)
}

// Input is a create or edit as submitted. Duration may be a number, a numeric
// string or a "MM:SS" / "HH:MM:SS" string. AdditionalArtists is free text
// such as "Jane & Bob feat. Ann"; CollaboratorIDs come from collaborator
// search. Both may be given.
type Input struct {
	Title             string
	Duration          any
	AlbumTitle        string
	CoverURL          string
	AdditionalArtists string
	CollaboratorIDs   []int64
}

// Details is a song with its credited roster.
type Details struct {
	store.Song
	DurationText string              `json:"durationText"`
	Roster       []store.RosterEntry `json:"roster"`
}

// Options tunes normalisation. The zero value divides durations between
// 10000 and 1000000 by 1000, matching data saved by older clients.
type Options struct {
	// StrictDuration stores numeric durations as seconds, unchanged.
	StrictDuration bool
}

// Service exposes song-centric operations.
type Service interface {
	Create(ctx context.Context, uploaderID int64, in Input) (Details, error)
	Update(ctx context.Context, uploaderID, songID int64, in Input) (Details, error)
	Get(ctx context.Context, id int64) (Details, error)
	List(ctx context.Context, filter store.SongFilter) ([]store.Song, error)
	SetCollaborators(ctx context.Context, uploaderID, songID int64, ids []int64) (Details, error)
}

type service struct {
	store     Store
	logger    *logging.Logger
	normalize func(any) int
}

// New constructs a song Service backed by the provided store.
func New(store Store, logger *logging.Logger, opts Options) Service {
	normalize := catalog.NormalizeDuration
	if opts.StrictDuration {
		normalize = catalog.NormalizeDurationStrict
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &service{store: store, logger: logger, normalize: normalize}
}

func (s *service) Create(ctx context.Context, uploaderID int64, in Input) (Details, error) {
	return s.save(ctx, uploaderID, 0, in)
}

func (s *service) Update(ctx context.Context, uploaderID, songID int64, in Input) (Details, error) {
	return s.save(ctx, uploaderID, songID, in)
}

func (s *service) save(ctx context.Context, uploaderID, songID int64, in Input) (Details, error) {
	if err := ctx.Err(); err != nil {
		return Details{}, err
	}

	uploader, err := s.store.UserByID(ctx, uploaderID)
	if err != nil {
		return Details{}, s.saveError(ctx, songID, "load uploader", err)
	}

	attribution, members, err := s.attribute(ctx, uploader, in)
	if err != nil {
		return Details{}, s.saveError(ctx, songID, "resolve attribution", err)
	}

	song, err := s.store.SaveSong(ctx, store.SongInput{
		ID:            songID,
		OwnerID:       uploader.ID,
		Title:         in.Title,
		Artist:        attribution.Display,
		Duration:      s.normalize(in.Duration),
		CoverURL:      strings.TrimSpace(in.CoverURL),
		AlbumTitle:    in.AlbumTitle,
		Collaborators: members,
	})
	if err != nil {
		return Details{}, s.saveError(ctx, songID, "save song", err)
	}
	song.OwnerName = uploader.Username

	s.logger.WithContext(ctx).Info().
		Int64("song_id", song.ID).
		Bool("collab", song.Collab).
		Msg("song saved")

	return s.details(ctx, song), nil
}

// attribute builds the credited roster from structured ids and free text.
// Free-text names matching a username become id members; the rest are kept
// as name-only members.
func (s *service) attribute(ctx context.Context, uploader store.User, in Input) (catalog.Attribution, []catalog.Member, error) {
	var (
		names      []string
		members    []catalog.Member
		structured = make(map[string]struct{})
	)

	if len(in.CollaboratorIDs) > 0 {
		users, err := s.store.UsersByIDs(ctx, in.CollaboratorIDs)
		if err != nil {
			return catalog.Attribution{}, nil, err
		}
		for _, id := range in.CollaboratorIDs {
			u, ok := users[id]
			if !ok || u.ID == uploader.ID {
				continue
			}
			names = append(names, u.Username)
			members = append(members, catalog.Member{UserID: u.ID, Name: u.Username})
			structured[strings.ToLower(u.Username)] = struct{}{}
		}
	}

	names = append(names, catalog.SplitArtists(in.AdditionalArtists)...)
	attribution := catalog.StructuredAttribution(uploader.Username, names)

	var typed []string
	for _, name := range attribution.Others() {
		if _, ok := structured[strings.ToLower(name)]; !ok {
			typed = append(typed, name)
		}
	}
	if len(typed) == 0 {
		return attribution, members, nil
	}

	matched, err := s.store.UsersByNames(ctx, typed)
	if err != nil {
		return catalog.Attribution{}, nil, err
	}
	for _, name := range typed {
		if u, ok := matched[strings.ToLower(name)]; ok {
			members = append(members, catalog.Member{UserID: u.ID, Name: name})
			continue
		}
		members = append(members, catalog.Member{Name: name})
	}

	return attribution, members, nil
}

// saveError logs the cause and hides it behind ErrSaveFailed unless the
// caller can act on it.
func (s *service) saveError(ctx context.Context, songID int64, step string, err error) error {
	switch {
	case errors.Is(err, store.ErrInvalidSong),
		errors.Is(err, store.ErrSongNotFound),
		errors.Is(err, store.ErrForbidden),
		errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, context.Canceled):
		return err
	}

	s.logger.WithContext(ctx).Error().
		Err(err).
		Int64("song_id", songID).
		Str("step", step).
		Msg("song save failed")
	return ErrSaveFailed
}

func (s *service) details(ctx context.Context, song store.Song) Details {
	d := Details{Song: song, DurationText: catalog.FormatDuration(song.Duration)}

	roster, err := s.store.RosterFor(ctx, song.ID, song.OwnerID)
	if err != nil {
		s.logger.WithContext(ctx).Warn().Err(err).Int64("song_id", song.ID).Msg("load roster")
		return d
	}
	d.Roster = roster
	return d
}

func (s *service) Get(ctx context.Context, id int64) (Details, error) {
	if err := ctx.Err(); err != nil {
		return Details{}, err
	}

	song, err := s.store.GetSong(ctx, id)
	if err != nil {
		return Details{}, err
	}

	roster, err := s.store.RosterFor(ctx, song.ID, song.OwnerID)
	if err != nil {
		return Details{}, err
	}

	return Details{
		Song:         song,
		DurationText: catalog.FormatDuration(song.Duration),
		Roster:       roster,
	}, nil
}

func (s *service) List(ctx context.Context, filter store.SongFilter) ([]store.Song, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ListSongs(ctx, filter)
}

// SetCollaborators replaces the roster with exactly ids and refreshes the
// display string to match.
func (s *service) SetCollaborators(ctx context.Context, uploaderID, songID int64, ids []int64) (Details, error) {
	if err := ctx.Err(); err != nil {
		return Details{}, err
	}

	collab, err := s.store.ReplaceCollaborators(ctx, songID, uploaderID, ids)
	if err != nil {
		return Details{}, s.saveError(ctx, songID, "replace collaborators", err)
	}

	s.logger.WithContext(ctx).Info().
		Int64("song_id", songID).
		Bool("collab", collab).
		Int("requested", len(ids)).
		Msg("collaborators replaced")

	return s.Get(ctx, songID)
}
