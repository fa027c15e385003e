package core

import (
	"time"
)

type Config struct {
	YouTube  YouTubeConfig
	Spotify  SpotifyConfig
	JioSaavn JioSaavnConfig
	Proxy    ProxyConfig
	Search   SearchConfig
	Cache    CacheConfig
	Recs     RecsConfig
	Store    StoreConfig
	Server   ServerConfig
	Log      LogConfig
}

type YouTubeConfig struct {
	APIKey  string
	BaseURL string
}

type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
}

type JioSaavnConfig struct {
	BaseURL string
}

type ProxyConfig struct {
	BaseURL string
	Timeout time.Duration
}

type SearchConfig struct {
	Quota           int
	SpotifyQuota    int
	ProviderTimeout time.Duration
}

type CacheConfig struct {
	QueryTTL      time.Duration
	TrackCapacity int
}

type RecsConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type StoreConfig struct {
	Path string
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	AuthTokens   string
}

type LogConfig struct {
	Level  string
	Format string
}

func DefaultConfig() *Config {
	return &Config{
		YouTube: YouTubeConfig{
			BaseURL: "https://www.googleapis.com/youtube/v3",
		},
		JioSaavn: JioSaavnConfig{
			BaseURL: "https://saavn.dev/api",
		},
		Proxy: ProxyConfig{
			Timeout: 5 * time.Second,
		},
		Search: SearchConfig{
			Quota:           5,
			SpotifyQuota:    5,
			ProviderTimeout: 10 * time.Second,
		},
		Cache: CacheConfig{
			QueryTTL:      time.Hour,
			TrackCapacity: 15,
		},
		Recs: RecsConfig{
			BaseURL: "https://api.x.ai/v1",
			Model:   "grok-2-latest",
		},
		Store: StoreConfig{
			Path: "./melodex.db",
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
