package s3

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/dsdav/objstore"
	"go.uber.org/zap"
)

type config struct {
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	KeyPrefix       string `mapstructure:"key_prefix"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
	SkipBucketCheck bool   `mapstructure:"skip_bucket_check"`
}

func New(ctx context.Context, c *config) (objstore.IObjectStore, error) {
	if len(c.Bucket) == 0 {
		return nil, fmt.Errorf("s3 store: bucket is required")
	}
	if len(c.Region) == 0 {
		return nil, fmt.Errorf("s3 store: region is required")
	}
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(c.Region),
	}
	if len(c.AccessKeyID) > 0 && len(c.SecretAccessKey) > 0 {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config failed, err:%w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if len(c.Endpoint) > 0 {
			o.BaseEndpoint = aws.String(c.Endpoint)
			o.UsePathStyle = true
		}
		if c.UsePathStyle {
			o.UsePathStyle = true
		}
	})
	if !c.SkipBucketCheck {
		if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.Bucket)}); err != nil {
			return nil, fmt.Errorf("access bucket:%s failed, err:%w", c.Bucket, err)
		}
	}
	logutil.GetLogger(ctx).Info("s3 store initialized", zap.String("bucket", c.Bucket),
		zap.String("region", c.Region), zap.String("key_prefix", c.KeyPrefix), zap.String("endpoint", c.Endpoint))
	return newStore(client, c.Bucket, c.KeyPrefix), nil
}

func create(args interface{}) (objstore.IObjectStore, error) {
	c := &config{}
	if err := mapstructure.Decode(args, c); err != nil {
		return nil, fmt.Errorf("decode s3 store config failed, err:%w", err)
	}
	return New(context.Background(), c)
}

func init() {
	objstore.Register("s3", create)
}
