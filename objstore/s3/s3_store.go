package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/xxxsen/dsdav/objstore"
)

// s3API is the subset of *s3.Client used by the store.
type s3API interface {
	s3.ListObjectsV2APIClient
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type s3Store struct {
	client    s3API
	bucket    string
	keyPrefix string
}

func (s *s3Store) Name() string {
	return "s3"
}

func (s *s3Store) objectKey(key string) string {
	return s.keyPrefix + key
}

func (s *s3Store) storeKey(objKey string) string {
	return strings.TrimPrefix(objKey, s.keyPrefix)
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}

func (s *s3Store) List(ctx context.Context, prefix string) ([]*objstore.Entry, error) {
	listPrefix := s.keyPrefix
	if len(prefix) > 0 {
		listPrefix = s.objectKey(prefix) + "/"
	}
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(listPrefix),
		Delimiter: aws.String("/"),
	})
	rs := make([]*objstore.Entry, 0, 32)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects failed, prefix:%s, err:%w", prefix, err)
		}
		for _, cp := range page.CommonPrefixes {
			name := strings.TrimSuffix(s.storeKey(aws.ToString(cp.Prefix)), "/")
			rs = append(rs, &objstore.Entry{Name: name, Kind: objstore.KindDirectory})
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if key == listPrefix {
				continue
			}
			rs = append(rs, &objstore.Entry{
				Name:    s.storeKey(key),
				Kind:    objstore.KindFile,
				Size:    aws.ToInt64(obj.Size),
				ModTime: aws.ToTime(obj.LastModified),
			})
		}
	}
	if len(rs) == 0 {
		return nil, fmt.Errorf("list prefix:%s failed, err:%w", prefix, objstore.ErrNotExist)
	}
	objstore.SortEntries(rs)
	return rs, nil
}

func (s *s3Store) isDir(ctx context.Context, key string) (bool, error) {
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(s.objectKey(key) + "/"),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, err
	}
	return len(out.Contents) > 0, nil
}

func (s *s3Store) Stat(ctx context.Context, key string) (*objstore.Entry, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err == nil {
		return &objstore.Entry{
			Name:    key,
			Kind:    objstore.KindFile,
			Size:    aws.ToInt64(out.ContentLength),
			ModTime: aws.ToTime(out.LastModified),
		}, nil
	}
	if !isNotFound(err) {
		return nil, fmt.Errorf("head object failed, key:%s, err:%w", key, err)
	}
	ok, err := s.isDir(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("probe dir failed, key:%s, err:%w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("stat key:%s failed, err:%w", key, objstore.ErrNotExist)
	}
	return &objstore.Entry{Name: key, Kind: objstore.KindDirectory}, nil
}

func (s *s3Store) Read(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("read key:%s failed, err:%w", key, objstore.ErrNotExist)
		}
		return nil, fmt.Errorf("get object failed, key:%s, err:%w", key, err)
	}
	defer out.Body.Close()
	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object body failed, key:%s, err:%w", key, err)
	}
	return raw, nil
}

func (s *s3Store) Write(ctx context.Context, key string, data []byte) error {
	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.objectKey(key)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}); err != nil {
		return fmt.Errorf("put object failed, key:%s, err:%w", key, err)
	}
	return nil
}

func (s *s3Store) Delete(ctx context.Context, key string) error {
	// DeleteObject succeeds on missing keys, probe first so callers can tell.
	ok, err := s.Exists(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("delete key:%s failed, err:%w", key, objstore.ErrNotExist)
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	}); err != nil {
		return fmt.Errorf("delete object failed, key:%s, err:%w", key, err)
	}
	return nil
}

func (s *s3Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("head object failed, key:%s, err:%w", key, err)
}

func (s *s3Store) Invalidate(ctx context.Context, scope string) {}

func (s *s3Store) Close() error {
	return nil
}

func newStore(client s3API, bucket string, keyPrefix string) *s3Store {
	if len(keyPrefix) > 0 && !strings.HasSuffix(keyPrefix, "/") {
		keyPrefix += "/"
	}
	return &s3Store{client: client, bucket: bucket, keyPrefix: keyPrefix}
}
