package config

import "time"

// DefaultInputLocation is the published URL list analyzed when no input is
// configured.
const DefaultInputLocation = "https://gist.githubusercontent.com/ehmo/e736c827ca73d84581d812b3a27bb132/raw/77680b283d7db4e7447dbf8903731bb63bf43258/input.txt"

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level: "INFO",
			Dir:   "data/logs",
			File:  "pixelrank.log",
		},
		Input: InputConfig{
			Location: DefaultInputLocation,
		},
		Output: OutputConfig{
			Path: "pixels.txt",
		},
		Fetch: FetchConfig{
			Timeout:        30 * time.Second,
			UserAgent:      "pixelrank/1.0",
			MaxFileSize:    10485760,
			MaxPixels:      16777216,
			MaxWidth:       4096,
			MaxHeight:      4096,
			AllowedFormats: []string{"jpeg", "jpg", "png", "gif", "webp", "bmp", "tiff"},
		},
		Pipeline: PipelineConfig{
			Concurrency: 8,
		},
		Web: WebConfig{
			Enabled: false,
			IP:      "0.0.0.0",
			Port:    8080,
		},
	}
}
