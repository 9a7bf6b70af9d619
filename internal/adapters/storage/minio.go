package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"rack-service/internal/ingest"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOArchiver stores raw device payloads in an object bucket.
type MinIOArchiver struct {
	client *minio.Client
	bucket string
}

// archivedEvent is the object body written for each payload.
type archivedEvent struct {
	RackID     string          `json:"rackId"`
	DeviceKey  string          `json:"deviceKey"`
	Topic      string          `json:"topic"`
	ReceivedAt time.Time       `json:"receivedAt"`
	Payload    json.RawMessage `json:"payload"`
}

// NewMinIOArchiver connects to MinIO and creates the bucket if it is missing.
func NewMinIOArchiver(ctx context.Context, endpoint, accessKey, secretKey, bucket string, secure bool) (*MinIOArchiver, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	slog.Info("Connected to MinIO", "endpoint", endpoint, "bucket", bucket)
	return &MinIOArchiver{client: client, bucket: bucket}, nil
}

// ObjectName returns raw/<rack>/<yyyy>/<mm>/<dd>/<unix nanos>-<kind>.json.
func ObjectName(rackID string, ev ingest.Event) string {
	at := ev.ReceivedAt.UTC()
	return fmt.Sprintf("raw/%s/%s/%d-%s.json", rackID, at.Format("2006/01/02"), at.UnixNano(), ev.Kind())
}

func encodeEvent(rackID string, ev ingest.Event) ([]byte, error) {
	payload := json.RawMessage(ev.Payload)
	if !json.Valid(payload) {
		quoted, err := json.Marshal(string(ev.Payload))
		if err != nil {
			return nil, err
		}
		payload = quoted
	}
	return json.Marshal(archivedEvent{
		RackID:     rackID,
		DeviceKey:  ev.DeviceKey,
		Topic:      ev.Topic,
		ReceivedAt: ev.ReceivedAt.UTC(),
		Payload:    payload,
	})
}

// Archive implements ingest.Archiver.
func (m *MinIOArchiver) Archive(ctx context.Context, rackID string, ev ingest.Event) error {
	body, err := encodeEvent(rackID, ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	_, err = m.client.PutObject(ctx, m.bucket, ObjectName(rackID, ev), bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("failed to upload payload: %w", err)
	}
	return nil
}
