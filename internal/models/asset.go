package models

import "time"

// AssetHandle identifies a candidate asset in the local library without
// holding its bytes. Handles are cheap; bytes are materialized lazily and
// never cached across retries.
type AssetHandle struct {
	LocalID      string
	Filename     string
	MediaType    MediaType
	CreationDate *time.Time
	Favorite     bool
	Albums       []string
}

// Asset is a fully materialized asset: the handle plus its raw bytes.
type Asset struct {
	Handle   AssetHandle
	Filename string
	Data     []byte
}

// ResourceInfo describes an asset's primary resource without reading it.
type ResourceInfo struct {
	Filename string
	Size     int64
}

// LibraryFilter narrows the candidate set a scan enumerates.
// Zero value means "everything".
type LibraryFilter struct {
	MediaType       MediaType // empty = all types
	FavoritesOnly   bool
	MinCreationDate *time.Time
	IncludeAlbums   []string
	ExcludeAlbums   []string
}
