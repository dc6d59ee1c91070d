package config

type Config struct {
	MetricsNamespace string
}
