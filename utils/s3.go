package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var s3Client *s3.Client

// InitS3 is optional: when S3_BUCKET is unset, archives fall back to local
// files and this is a no-op.
func InitS3() {
	if os.Getenv("S3_BUCKET") == "" {
		log.Println("S3_BUCKET not set, raw sync archives will be written locally")
		return
	}

	s3Region := os.Getenv("S3_REGION")
	if s3Region == "" {
		s3Region = os.Getenv("AWS_REGION") // fallback
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(), awsconfig.WithRegion(s3Region))
	if err != nil {
		log.Fatalf("Unable to load AWS config for S3: %v", err)
	}

	s3Client = s3.NewFromConfig(cfg)
}

// ArchiveJSON stores a raw sync payload for later replay: to S3 when
// configured, otherwise to a timestamped file in the working directory.
// Returns the location the payload was written to.
func ArchiveJSON(prefix string, payload any) (string, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal archive payload: %w", err)
	}

	key := fmt.Sprintf("%s-%s.json", prefix, time.Now().Format("20060102-150405"))

	if s3Client == nil {
		if err := os.WriteFile(key, data, 0o644); err != nil {
			return "", fmt.Errorf("failed to write local archive: %w", err)
		}
		return key, nil
	}

	bucket := os.Getenv("S3_BUCKET")
	objectKey := "whoop-archives/" + key
	_, err = s3Client.PutObject(context.TODO(), &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload archive to S3: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", bucket, objectKey), nil
}
