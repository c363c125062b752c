package matchcore

import (
	"database/sql"
	"errors"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog"
)

// OpenDBFromEnv opens the Postgres handle configured by DATABASE_URL.
// A .env file in the working directory is loaded first when present, so
// local development needs no exported variables.
func OpenDBFromEnv(log zerolog.Logger) (*sql.DB, error) {
	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return nil, errors.New("DATABASE_URL not set")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info().Msg("database connection established")
	return db, nil
}
