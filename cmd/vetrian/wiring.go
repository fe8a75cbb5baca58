package main

import (
	"context"
	"fmt"

	"vetrian/internal/events"
	"vetrian/internal/registration"
	"vetrian/internal/storage"
	"vetrian/internal/store"
	"vetrian/pkg/types"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

type publisher interface {
	registration.Publisher
	Close() error
}

// newUploads builds the file manager for the configured backend. In-memory
// uploads always land in postgres.
func newUploads(ctx context.Context, logger *logrus.Logger, c *types.Config, pool *pgxpool.Pool) (*storage.Manager, error) {
	blobs := store.NewBlobRepository(pool)

	switch c.Storage.Backend {
	case storage.BackendDisk:
		disk, err := storage.NewDisk(c.Storage.UploadRoot)
		if err != nil {
			return nil, err
		}
		return storage.NewManager(logger, storage.BackendDisk, disk, blobs), nil

	case storage.BackendS3:
		awsConfig, err := loadAWSConfig(ctx)
		if err != nil {
			return nil, err
		}

		bucket, err := storage.NewS3(s3.NewFromConfig(awsConfig), c.Storage.S3BucketName, c.Storage.S3Prefix)
		if err != nil {
			return nil, err
		}
		return storage.NewManager(logger, storage.BackendS3, bucket, blobs), nil
	}

	return nil, fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
}

func newPublisher(logger *logrus.Logger, c *types.Config) publisher {
	if len(c.KafkaBrokers) == 0 {
		logger.Info("no kafka brokers configured, registration events are dropped")
		return events.Nop{}
	}

	return events.NewKafka(logger, c.KafkaBrokers, c.KafkaTopic, c.KafkaUsername, c.KafkaPassword)
}

func newRegistrations(logger *logrus.Logger, repo *store.RegistrantRepository, files registration.Files, pub registration.Publisher) *registration.Service {
	return registration.New(registration.Options{
		Logger:    logger,
		Store:     repo,
		Referrals: repo,
		Files:     files,
		Publisher: pub,
	})
}
