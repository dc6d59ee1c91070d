package config

type Config struct {
	LogLevel string
}
