package image

// Limits bounds what the pipeline is willing to download and decode.
type Limits struct {
	MaxFileSize    int64
	MaxPixels      int64
	MaxWidth       int
	MaxHeight      int
	AllowedFormats []string
}

// Meta describes a validated image payload.
type Meta struct {
	Format   string
	Width    int
	Height   int
	FileSize int64
}
