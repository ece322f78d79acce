package config

import "time"

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Input    InputConfig    `yaml:"input"`
	Output   OutputConfig   `yaml:"output"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Web      WebConfig      `yaml:"web"`
}

type LogConfig struct {
	Level string `yaml:"log_level"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}

// InputConfig names the URL list to analyze. Location may be a local file
// path or an http(s) URL.
type InputConfig struct {
	Location string `yaml:"location"`
}

type OutputConfig struct {
	Path string `yaml:"path"`
}

// FetchConfig bounds the per-image download and decode.
type FetchConfig struct {
	Timeout        time.Duration `yaml:"timeout"`
	UserAgent      string        `yaml:"user_agent"`
	MaxFileSize    int64         `yaml:"max_file_size"`
	MaxPixels      int64         `yaml:"max_pixels"`
	MaxWidth       int           `yaml:"max_width"`
	MaxHeight      int           `yaml:"max_height"`
	AllowedFormats []string      `yaml:"allowed_formats"`
}

type PipelineConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// WebConfig controls the optional status web service.
type WebConfig struct {
	Enabled bool   `yaml:"enabled"`
	IP      string `yaml:"ip"`
	Port    int    `yaml:"port"`
}
