package types

type Config struct {
	Environment     string `envconfig:"ENVIRONMENT" default:"development"`
	ServerPort      uint   `envconfig:"SERVER_PORT" default:"8080"`
	DatabaseURL     string `envconfig:"DATABASE_URL"`
	DatabaseSchema  string `envconfig:"DATABASE_SCHEMA" default:"vetrian"`
	ReadTimeoutSec  uint   `envconfig:"READ_TIMEOUT_SEC" default:"10"`
	WriteTimeoutSec uint   `envconfig:"WRITE_TIMEOUT_SEC" default:"30"`
	LogLevel        string `envconfig:"LOG_LEVEL" default:"info"`

	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`

	Storage StorageConfig

	// Kafka, publishing is disabled when no brokers are set
	KafkaBrokers  []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic    string   `envconfig:"KAFKA_TOPIC" default:"registrations"`
	KafkaUsername string   `envconfig:"KAFKA_USERNAME"`
	KafkaPassword string   `envconfig:"KAFKA_PASSWORD"`
}

// StorageConfig is handed to the file storage backends at construction.
type StorageConfig struct {
	// Backend for on-disk style uploads: "disk" or "s3"
	Backend      string `envconfig:"STORAGE_BACKEND" default:"disk"`
	UploadRoot   string `envconfig:"UPLOAD_ROOT" default:"."`
	S3BucketName string `envconfig:"S3_BUCKET_NAME"`
	S3Prefix     string `envconfig:"S3_PREFIX" default:"uploads"`
}
