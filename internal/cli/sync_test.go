package cli

import (
	"testing"
	"time"

	"github.com/avolkov/snapsync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFilter(t *testing.T) {
	since := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		mediaType string
		favorites bool
		since     string
		albums    string
		exclude   string
		want      models.LibraryFilter
		wantErr   string
	}{
		{
			name: "empty flags give the match-everything filter",
			want: models.LibraryFilter{},
		},
		{
			name:      "photo type",
			mediaType: "photo",
			want:      models.LibraryFilter{MediaType: models.MediaTypePhoto},
		},
		{
			name:      "video type",
			mediaType: "video",
			want:      models.LibraryFilter{MediaType: models.MediaTypeVideo},
		},
		{
			name:      "unknown type rejected",
			mediaType: "audio",
			wantErr:   "unknown media type",
		},
		{
			name:  "since date",
			since: "2024-06-01",
			want:  models.LibraryFilter{MinCreationDate: &since},
		},
		{
			name:    "bad since date rejected",
			since:   "June 1st",
			wantErr: "invalid -since date",
		},
		{
			name:   "albums split on commas, spaces trimmed, empties dropped",
			albums: "Vacation, Family ,,",
			want:   models.LibraryFilter{IncludeAlbums: []string{"Vacation", "Family"}},
		},
		{
			name:    "exclude albums",
			exclude: "Screenshots",
			want:    models.LibraryFilter{ExcludeAlbums: []string{"Screenshots"}},
		},
		{
			name:      "all dimensions together",
			mediaType: "photo",
			favorites: true,
			albums:    "Vacation",
			exclude:   "Screenshots,Memes",
			want: models.LibraryFilter{
				MediaType:     models.MediaTypePhoto,
				FavoritesOnly: true,
				IncludeAlbums: []string{"Vacation"},
				ExcludeAlbums: []string{"Screenshots", "Memes"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildFilter(tt.mediaType, tt.favorites, tt.since, tt.albums, tt.exclude)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
