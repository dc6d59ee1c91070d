package config

type Config struct {
	// DBDsn пустой - данные живут в памяти процесса
	DBDsn string
}
