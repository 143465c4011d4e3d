package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/BuntinJP/xlog-images/internal/config"
	"github.com/BuntinJP/xlog-images/internal/xli"
)

// S3Gateway stores assets in an S3 bucket. Asset ids map directly to object
// keys under an optional prefix, and public URLs are built from a base URL
// (typically a CDN in front of the bucket).
type S3Gateway struct {
	name     string
	bucket   string
	prefix   string
	baseURL  string
	client   *s3.Client
	uploader *manager.Uploader
}

// NewS3Gateway creates a gateway backed by the configured bucket. Static
// credentials from the config take precedence; otherwise the ambient AWS
// configuration (environment, shared config files) is used.
func NewS3Gateway(ctx context.Context, gc config.GatewayConfig) (*S3Gateway, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(gc.S3Region)}
	if gc.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(gc.S3AccessKey, gc.S3SecretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	baseURL := gc.S3BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com/", gc.S3Bucket, gc.S3Region)
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	return &S3Gateway{
		name:     gc.Name,
		bucket:   gc.S3Bucket,
		prefix:   normalizePrefix(gc.S3Prefix),
		baseURL:  baseURL,
		client:   client,
		uploader: manager.NewUploader(client),
	}, nil
}

// normalizePrefix ensures a non-empty prefix ends with exactly one slash.
func normalizePrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

// key maps an asset id to its object key.
func (g *S3Gateway) key(remoteID string) string {
	return g.prefix + remoteID
}

// id maps an object key back to its asset id.
func (g *S3Gateway) id(key string) string {
	return strings.TrimPrefix(key, g.prefix)
}

// Upload streams the file to the bucket via the multipart upload manager.
func (g *S3Gateway) Upload(ctx context.Context, path string, requestedID string) (*xli.UploadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	key := g.key(requestedID)
	out, err := g.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
		Body:   f,
		Metadata: map[string]string{
			"original-filename": filepath.Base(path),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("uploading to s3: %w", err)
	}

	url := g.baseURL + requestedID
	metadata, _ := json.Marshal(map[string]any{
		"bucket":     g.bucket,
		"key":        key,
		"etag":       aws.ToString(out.ETag),
		"secure_url": url,
	})
	return &xli.UploadResult{RemoteID: requestedID, SecureURL: url, Metadata: metadata}, nil
}

// Destroy deletes the asset's object.
func (g *S3Gateway) Destroy(ctx context.Context, remoteID string) error {
	_, err := g.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(g.key(remoteID)),
	})
	if err != nil {
		return fmt.Errorf("deleting from s3: %w", err)
	}
	return nil
}

// List pages through the bucket under the prefix and returns up to max
// assets.
func (g *S3Gateway) List(ctx context.Context, max int) ([]xli.RemoteAsset, error) {
	var assets []xli.RemoteAsset

	paginator := s3.NewListObjectsV2Paginator(g.client, &s3.ListObjectsV2Input{
		Bucket:  aws.String(g.bucket),
		Prefix:  aws.String(g.prefix),
		MaxKeys: aws.Int32(int32(max)),
	})

	for paginator.HasMorePages() && len(assets) < max {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing s3 objects: %w", err)
		}
		for _, obj := range page.Contents {
			if len(assets) >= max {
				break
			}
			key := aws.ToString(obj.Key)
			id := g.id(key)
			metadata, _ := json.Marshal(map[string]any{
				"bucket": g.bucket,
				"key":    key,
				"etag":   aws.ToString(obj.ETag),
				"bytes":  aws.ToInt64(obj.Size),
			})
			assets = append(assets, xli.RemoteAsset{
				RemoteID:  id,
				SecureURL: g.baseURL + id,
				Metadata:  metadata,
			})
		}
	}
	return assets, nil
}

// Compile-time check that S3Gateway implements xli.Gateway interface
var _ xli.Gateway = (*S3Gateway)(nil)
