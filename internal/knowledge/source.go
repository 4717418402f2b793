package knowledge

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectGetter is the subset of the S3 client used to fetch a knowledge base.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// LoadSource resolves a knowledge base location:
//
//	""                   the embedded default
//	file:<path>          a YAML file on disk (a bare path works too)
//	s3://<bucket>/<key>  an object in S3, fetched with objects
func LoadSource(ctx context.Context, source string, objects ObjectGetter) (*KnowledgeBase, error) {
	source = strings.TrimSpace(source)
	switch {
	case source == "", source == "embedded":
		return Default()
	case strings.HasPrefix(source, "s3://"):
		return loadS3(ctx, strings.TrimPrefix(source, "s3://"), objects)
	default:
		return LoadFile(strings.TrimPrefix(source, "file:"))
	}
}

func loadS3(ctx context.Context, location string, objects ObjectGetter) (*KnowledgeBase, error) {
	if objects == nil {
		return nil, fmt.Errorf("knowledge: s3 source %q requires an s3 client", location)
	}
	bucket, key, ok := strings.Cut(location, "/")
	if !ok || bucket == "" || key == "" {
		return nil, fmt.Errorf("knowledge: malformed s3 source %q (want s3://bucket/key)", location)
	}
	out, err := objects.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("knowledge: fetch s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()
	return Load(out.Body)
}
