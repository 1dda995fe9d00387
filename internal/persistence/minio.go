package persistence

import (
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/ssantosh21/incident-iq/internal/config"
)

// NewMinioClient connects to the object store backing ticket persistence.
func NewMinioClient(cfg config.TicketStoreConfig, logger *zap.Logger) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("connected to object store", zap.String("endpoint", cfg.Endpoint))
	return client, nil
}
