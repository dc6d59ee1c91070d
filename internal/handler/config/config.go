package config

import "time"

type Config struct {
	ServerAddr      string
	MaxUploadBytes  int64
	ShutdownTimeout time.Duration
}
