package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/avolkov/snapsync/internal/common"
	"github.com/avolkov/snapsync/internal/models"
	syncsvc "github.com/avolkov/snapsync/internal/services/sync"
)

// Sync runs one pipeline pass. With resume set it continues from the last
// saved checkpoint instead of starting over.
//
// Command flags:
//
//	-n               dry run: log intended uploads, touch nothing
//	-type            photo | video (default: everything)
//	-favorites       only favorite assets
//	-since           only assets created on or after this date (YYYY-MM-DD)
//	-albums          comma-separated albums to include (default: all)
//	-exclude-albums  comma-separated albums to skip
func (a *App) Sync(ctx context.Context, args []string, resume bool) error {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	simulate := fs.Bool("n", false, "dry run, upload nothing")
	mediaType := fs.String("type", "", "limit to one media type: photo or video")
	favorites := fs.Bool("favorites", false, "only favorite assets")
	since := fs.String("since", "", "only assets created on or after this date (YYYY-MM-DD)")
	albums := fs.String("albums", "", "comma-separated albums to include")
	excludeAlbums := fs.String("exclude-albums", "", "comma-separated albums to skip")
	if err := fs.Parse(args); err != nil {
		return err
	}

	filter, err := buildFilter(*mediaType, *favorites, *since, *albums, *excludeAlbums)
	if err != nil {
		return err
	}

	summary, err := a.sync.Run(ctx, syncsvc.Options{
		Workers:  a.config.Workers,
		Simulate: *simulate,
		Resume:   resume,
		Filter:   filter,
	})

	if summary != nil {
		a.printSummary(summary)
	}
	if errors.Is(err, common.ErrRunCancelled) {
		fmt.Fprintln(a.out, "Run cancelled; progress saved. Use 'snapsync resume' to continue.")
		return nil
	}
	return err
}

// buildFilter translates the sync command's flag values into a library filter.
func buildFilter(mediaType string, favorites bool, since, albums, excludeAlbums string) (models.LibraryFilter, error) {
	filter := models.LibraryFilter{
		FavoritesOnly: favorites,
		IncludeAlbums: splitAlbums(albums),
		ExcludeAlbums: splitAlbums(excludeAlbums),
	}

	switch mediaType {
	case "":
	case "photo":
		filter.MediaType = models.MediaTypePhoto
	case "video":
		filter.MediaType = models.MediaTypeVideo
	default:
		return models.LibraryFilter{}, fmt.Errorf("unknown media type %q", mediaType)
	}

	if since != "" {
		d, err := time.Parse("2006-01-02", since)
		if err != nil {
			return models.LibraryFilter{}, fmt.Errorf("invalid -since date: %w", err)
		}
		filter.MinCreationDate = &d
	}

	return filter, nil
}

func splitAlbums(s string) []string {
	if s == "" {
		return nil
	}
	var albums []string
	for _, album := range strings.Split(s, ",") {
		if album = strings.TrimSpace(album); album != "" {
			albums = append(albums, album)
		}
	}
	return albums
}

func (a *App) printSummary(s *syncsvc.Summary) {
	fmt.Fprintf(a.out, "Assets found:  %d\n", s.Total)
	fmt.Fprintf(a.out, "Uploaded:      %d\n", s.Uploaded)
	fmt.Fprintf(a.out, "Skipped:       %d\n", s.Skipped)
	fmt.Fprintf(a.out, "Failed:        %d\n", s.Failed)
	fmt.Fprintf(a.out, "Retries:       %d\n", s.Retried)
	if s.Simulated > 0 {
		fmt.Fprintf(a.out, "Would upload:  %d (dry run)\n", s.Simulated)
	}
}
