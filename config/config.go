package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	DBUser string `envconfig:"DB_USER" required:"true"`
	DBPass string `envconfig:"DB_PASS" required:"true"`
	DBName string `envconfig:"DB_NAME" required:"true"`

	// Wenn gesetzt, wird über den Cloud-SQL-Unix-Socket verbunden
	// statt über TCP (DB_HOST/DB_PORT).
	CloudSQLConnectionName string `envconfig:"CLOUD_SQL_CONNECTION_NAME"`
	DBHost                 string `envconfig:"DB_HOST" default:"localhost"`
	DBPort                 int    `envconfig:"DB_PORT" default:"5432"`

	HTTPPort     string `envconfig:"HTTP_PORT" default:"8080"`
	APISecretKey string `envconfig:"API_SECRET_KEY"`

	// Pool-Dimensionierung: eine dauerhafte Verbindung pro Instanz,
	// plus temporärer Überlauf unter Last.
	PoolSize        int           `envconfig:"POOL_SIZE" default:"1"`
	PoolMaxOverflow int           `envconfig:"POOL_MAX_OVERFLOW" default:"2"`
	PoolTimeout     time.Duration `envconfig:"POOL_TIMEOUT" default:"30s"`

	// Zeitplan für den Pool-Statistik-Job.
	CronSchedule string `envconfig:"CRON_SCHEDULE" default:"@every 1m"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	if c.CloudSQLConnectionName != "" {
		return fmt.Sprintf("host=/cloudsql/%s user=%s password=%s dbname=%s",
			c.CloudSQLConnectionName, c.DBUser, c.DBPass, c.DBName)
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPass, c.DBName, c.DBPort)
}

// MaxOpenConns ist die harte Obergrenze des Pools (Basis + Überlauf).
func (c *Config) MaxOpenConns() int {
	return c.PoolSize + c.PoolMaxOverflow
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
