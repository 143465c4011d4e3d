package gateway

import (
	"context"
	"fmt"

	"github.com/BuntinJP/xlog-images/internal/config"
	"github.com/BuntinJP/xlog-images/internal/xli"
)

// NewGatewayFromConfig creates a Gateway implementation based on the gateway config type.
func NewGatewayFromConfig(ctx context.Context, cfg config.GatewayConfig) (xli.Gateway, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryGateway(cfg.Name), nil
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("s3 gateway requires s3_bucket to be set")
		}
		return NewS3Gateway(ctx, cfg)
	case "filesystem":
		if cfg.FSGatewayRoot == "" {
			return nil, fmt.Errorf("filesystem gateway requires fs_gateway_root to be set")
		}
		return NewFileSystemGateway(cfg.Name, cfg.FSGatewayRoot)
	default:
		return nil, fmt.Errorf("unknown gateway type: %s", cfg.Type)
	}
}
