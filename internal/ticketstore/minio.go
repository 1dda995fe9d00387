package ticketstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"

	"github.com/ssantosh21/incident-iq/internal/config"
	"github.com/ssantosh21/incident-iq/internal/domain"
	apperrors "github.com/ssantosh21/incident-iq/pkg/util/errorutil"
)

// MinioStore keeps one JSON object per ticket under the incidents prefix of
// an S3-compatible bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
	prefix string
	logger *zap.Logger
}

// NewMinioStore wraps an existing client. EnsureBucket must be called once
// before first use.
func NewMinioStore(client *minio.Client, cfg config.TicketStoreConfig, logger *zap.Logger) *MinioStore {
	return &MinioStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.IncidentsPrefix,
		logger: logger,
	}
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return apperrors.NewUpstreamUnavailable("ticket store", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return apperrors.NewUpstreamUnavailable("ticket store", err)
	}
	s.logger.Info("created ticket bucket", zap.String("bucket", s.bucket))
	return nil
}

func (s *MinioStore) objectKey(incidentID string) string {
	return s.prefix + incidentID + ".json"
}

// Put writes the full ticket record.
func (s *MinioStore) Put(ctx context.Context, ticket *domain.Ticket) error {
	body, err := json.MarshalIndent(ticket, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ticket %s: %w", ticket.IncidentID, err)
	}
	_, err = s.client.PutObject(ctx, s.bucket, s.objectKey(ticket.IncidentID),
		bytes.NewReader(body), int64(len(body)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return apperrors.NewUpstreamUnavailable("ticket store", err)
	}
	return nil
}

// Get loads a ticket by incident id, returning ErrNotFound when absent.
func (s *MinioStore) Get(ctx context.Context, incidentID string) (*domain.Ticket, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.objectKey(incidentID), minio.GetObjectOptions{})
	if err != nil {
		return nil, apperrors.NewUpstreamUnavailable("ticket store", err)
	}
	defer obj.Close()

	var ticket domain.Ticket
	if err := json.NewDecoder(obj).Decode(&ticket); err != nil {
		if isNoSuchKey(err) {
			return nil, ErrNotFound
		}
		return nil, apperrors.NewUpstreamUnavailable("ticket store", err)
	}
	return &ticket, nil
}

// List returns every ticket under the incidents prefix.
func (s *MinioStore) List(ctx context.Context) ([]domain.Ticket, error) {
	tickets := []domain.Ticket{}
	for objInfo := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.prefix,
		Recursive: true,
	}) {
		if objInfo.Err != nil {
			return nil, apperrors.NewUpstreamUnavailable("ticket store", objInfo.Err)
		}
		if !strings.HasSuffix(objInfo.Key, ".json") {
			continue
		}
		obj, err := s.client.GetObject(ctx, s.bucket, objInfo.Key, minio.GetObjectOptions{})
		if err != nil {
			return nil, apperrors.NewUpstreamUnavailable("ticket store", err)
		}
		var ticket domain.Ticket
		decodeErr := json.NewDecoder(obj).Decode(&ticket)
		obj.Close()
		if decodeErr != nil {
			s.logger.Warn("skipping unreadable ticket object",
				zap.String("key", objInfo.Key), zap.Error(decodeErr))
			continue
		}
		tickets = append(tickets, ticket)
	}
	return tickets, nil
}

// minio surfaces missing objects lazily, on first read of the object body.
func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey"
}
