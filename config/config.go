package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	HTTPPort     string `envconfig:"HTTP_PORT" default:"4242"`
	APISecretKey string `envconfig:"API_SECRET_KEY"`

	// Maximale Upload-Größe in Bytes (Default: 20 MB)
	MaxUploadBytes int64 `envconfig:"MAX_UPLOAD_BYTES" default:"20971520"`

	ReportS3Key    string `envconfig:"REPORT_S3_KEY" required:"true"`
	ReportS3Secret string `envconfig:"REPORT_S3_SECRET" required:"true"`
	ReportS3URL    string `envconfig:"REPORT_S3_URL" required:"true"`
	ReportS3Region string `envconfig:"REPORT_S3_REGION" required:"true"`
	ReportS3Bucket string `envconfig:"REPORT_S3_BUCKET" required:"true"`

	// Paginierung: "lines" (Zeilen-Budget) oder "words" (Wort-Budget)
	PaginationPolicy string `envconfig:"PAGINATION_POLICY" default:"lines"`
	WrapWidth        int    `envconfig:"WRAP_WIDTH" default:"90"`
	MaxLinesPerPage  int    `envconfig:"MAX_LINES_PER_PAGE" default:"42"`
	WordsPerPage     int    `envconfig:"WORDS_PER_PAGE" default:"500"`

	// Platzhalter-Scores, bis ein echter Detektor angebunden ist.
	// Werden dem Assembler injiziert, nie im Template fest verdrahtet.
	SimilarityScore float64 `envconfig:"SIMILARITY_SCORE" default:"12.5"`
	AIScore         float64 `envconfig:"AI_SCORE" default:"31.0"`

	// Leer = lokalen Chrome über den Launcher starten.
	ChromeRemoteURL string `envconfig:"CHROME_REMOTE_URL"`

	ExtractTimeout time.Duration `envconfig:"EXTRACT_TIMEOUT" default:"30s"`
	RenderTimeout  time.Duration `envconfig:"RENDER_TIMEOUT" default:"60s"`
	UploadTimeout  time.Duration `envconfig:"UPLOAD_TIMEOUT" default:"60s"`

	// Sweep für verwaiste Artefakte (Uploads ohne persistierte Submission)
	SweepSchedule    string        `envconfig:"SWEEP_SCHEDULE" default:"0 3 * * *"`
	SweepGracePeriod time.Duration `envconfig:"SWEEP_GRACE_PERIOD" default:"24h"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
