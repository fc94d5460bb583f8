package sinks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"notifyhub/internal/config"
	"notifyhub/pkg/notify"
)

// archivedBatch is the object body written per dispatched batch: the
// snapshot is never replayed back into the batcher (the library makes no
// persistence-of-undelivered-messages guarantee), this is an audit/archival
// copy only.
type archivedBatch struct {
	Channel   string           `json:"channel"`
	Messages  []archivedRecord `json:"messages"`
	Timestamp time.Time        `json:"timestamp"`
}

type archivedRecord struct {
	Text  string `json:"text"`
	Level string `json:"level"`
}

// S3ArchiveSink writes each dispatched batch as a compressed JSON object to
// S3, grounded on SebastienMelki-causality's internal/warehouse.S3Client
// (config.LoadDefaultConfig + s3.NewFromConfig), paired with
// klauspost/compress for object-body compression.
type S3ArchiveSink struct {
	SinkName string
	bucket   string
	prefix   string
	client   *s3.Client
	encoder  *zstd.Encoder
}

// NewS3ArchiveSink builds an S3ArchiveSink from its configuration, loading
// AWS credentials from the default provider chain.
func NewS3ArchiveSink(ctx context.Context, name string, cfg config.S3ArchiveSinkConfig) (*S3ArchiveSink, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 archive sink %s: no bucket configured", name)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("s3 archive sink %s: load aws config: %w", name, err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("s3 archive sink %s: build compressor: %w", name, err)
	}

	return &S3ArchiveSink{
		SinkName: name,
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
		client:   s3.NewFromConfig(awsCfg),
		encoder:  enc,
	}, nil
}

func (s *S3ArchiveSink) Name() string { return s.SinkName }

func (s *S3ArchiveSink) ProcessBatch(ctx context.Context, batch []notify.Message) error {
	if len(batch) == 0 {
		return nil
	}

	body := archivedBatch{Channel: batch[0].ChannelID, Timestamp: time.Now()}
	for _, m := range batch {
		body.Messages = append(body.Messages, archivedRecord{Text: m.Text, Level: string(m.Level)})
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("s3 archive sink %s: encode: %w", s.SinkName, err)
	}
	compressed := s.encoder.EncodeAll(raw, nil)

	key := fmt.Sprintf("%s%s.json.zst", s.prefix, uuid.NewString())
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
		Body:   bytes.NewReader(compressed),
	})
	if err != nil {
		return fmt.Errorf("s3 archive sink %s: put object: %w", s.SinkName, err)
	}
	return nil
}
