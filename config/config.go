package config

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"cafe-ordering/database"

	"github.com/glebarez/sqlite"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Driver         string
	Host           string
	DBName         string
	Port           string
	User           string
	Password       string
	SSLMode        string
	ConnectTimeout time.Duration

	BcryptCost int
	LogLevel   string
	LogFile    string

	// Seed credentials for the first Manager; empty disables seeding
	SeedManagerLogin    string
	SeedManagerPassword string
}

// Load reads configuration from the environment, after applying an optional
// .env file in the working directory.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Driver:              getEnv("CAFE_DB_DRIVER", DriverPostgres),
		Host:                getEnv("CAFE_DB_HOST", "localhost"),
		Password:            os.Getenv("CAFE_DB_PASSWORD"),
		SSLMode:             getEnv("CAFE_DB_SSLMODE", "disable"),
		ConnectTimeout:      getDuration("CAFE_CONNECT_TIMEOUT", 10*time.Second),
		BcryptCost:          getInt("CAFE_BCRYPT_COST", 10),
		LogLevel:            getEnv("CAFE_LOG_LEVEL", "warn"),
		LogFile:             getEnv("CAFE_LOG_FILE", "cafe.log"),
		SeedManagerLogin:    os.Getenv("CAFE_SEED_MANAGER_LOGIN"),
		SeedManagerPassword: os.Getenv("CAFE_SEED_MANAGER_PASSWORD"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// DSN builds the driver specific connection string. For sqlite the database
// name is the path of the database file and the port is ignored.
func (c *Config) DSN() string {
	if c.Driver == DriverSQLite {
		return c.DBName + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d",
		quote(c.Host), quote(c.Port), quote(c.User), quote(c.Password), quote(c.DBName), quote(c.SSLMode),
		int(c.ConnectTimeout.Seconds()))
}

// quote escapes a libpq keyword value.
func quote(v string) string {
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v) + "'"
}

func (c *Config) dialector() (gorm.Dialector, error) {
	switch c.Driver {
	case DriverPostgres:
		return postgres.Open(c.DSN()), nil
	case DriverSQLite:
		return sqlite.Open(c.DSN()), nil
	default:
		return nil, fmt.Errorf("unsupported driver %q", c.Driver)
	}
}

// NewLogger builds the application logger. Output goes to the configured
// file so it never interleaves with the interactive prompts.
func (c *Config) NewLogger() (*logrus.Logger, io.Closer, error) {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.WarnLevel
	}
	log.SetLevel(level)

	if c.LogFile == "" || c.LogFile == "-" {
		log.SetOutput(os.Stderr)
		return log, io.NopCloser(nil), nil
	}
	f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	log.SetOutput(f)
	return log, f, nil
}

// OpenStore connects to the configured database, verifies the connection
// within the connect timeout and migrates the schema. The returned store
// holds exactly one connection.
func OpenStore(ctx context.Context, c *Config, log *logrus.Logger) (*database.Store, error) {
	dialector, err := c.dialector()
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.New(log, logger.Config{LogLevel: logger.Warn, SlowThreshold: time.Second}),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", c.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, c.ConnectTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping %s database: %w", c.Driver, err)
	}

	store := database.New(db, log)
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}
	log.WithFields(logrus.Fields{"driver": c.Driver, "database": c.DBName}).Info("Database connected and migrated successfully")
	return store, nil
}
