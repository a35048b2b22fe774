package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/windoze95/recipe-search-api/internal/config"
	"github.com/windoze95/recipe-search-api/internal/models"
)

// maxImageBytes is the default cap on the size of a mirrored image.
const maxImageBytes = 10 << 20

// ErrImageTooLarge is returned for source images over the mirror's size cap.
var ErrImageTooLarge = errors.New("image exceeds size limit")

// Uploader is the subset of manager.Uploader used by ImageMirror.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// ImageMirror downloads recipe images and re-hosts them in an S3 bucket.
type ImageMirror struct {
	Bucket     string
	Uploader   Uploader
	HTTPClient *http.Client

	// MaxBytes caps the image size; zero means maxImageBytes.
	MaxBytes int64
}

// newS3Client creates a new S3 client from the app config.
// When AWS access key and secret are provided, static credentials are used;
// otherwise the default credential chain is preserved (IAM role, instance
// profile, etc.) so ECS/EC2 task roles work without explicit keys.
func newS3Client(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.EnvVars.AWSRegion),
	}

	if cfg.EnvVars.AWSAccessKeyID != "" && cfg.EnvVars.AWSSecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.EnvVars.AWSAccessKeyID,
			cfg.EnvVars.AWSSecretAccessKey,
			"",
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return s3.NewFromConfig(awsCfg), nil
}

// NewImageMirror builds a mirror for the configured bucket. Downloads are
// bounded by timeout.
func NewImageMirror(ctx context.Context, cfg *config.Config, timeout time.Duration) (*ImageMirror, error) {
	client, err := newS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &ImageMirror{
		Bucket:     cfg.EnvVars.S3Bucket,
		Uploader:   manager.NewUploader(client),
		HTTPClient: &http.Client{Timeout: timeout},
	}, nil
}

// MirrorImage copies sourceURL into the bucket and returns the object location.
func (m *ImageMirror) MirrorImage(ctx context.Context, sourceURL, recipeName string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create image request: %w", err)
	}

	resp, err := m.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image download returned status %d", resp.StatusCode)
	}

	limit := m.MaxBytes
	if limit <= 0 {
		limit = maxImageBytes
	}
	imgBytes, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(imgBytes)) > limit {
		return "", fmt.Errorf("%w: more than %d bytes", ErrImageTooLarge, limit)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}

	result, err := m.Uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.Bucket),
		Key:         aws.String(GenerateS3Key(recipeName)),
		Body:        bytes.NewReader(imgBytes),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	return result.Location, nil
}

// GenerateS3Key generates the S3 key for a recipe image.
func GenerateS3Key(recipeName string) string {
	slug := models.Slugify(recipeName)
	if slug == "" {
		slug = "recipe"
	}
	return fmt.Sprintf("recipes/images/%s-%s.jpg", slug, uuid.New().String()[:8])
}
