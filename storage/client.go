// Package storage talks to the S3 compatible bucket that holds uploaded
// post media. Both AWS S3 and Cloudflare R2 are supported.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/spf13/viper"
)

type Client struct {
	C      *s3.Client
	Bucket *string
	CDNURL string
}

// New builds a client from the storage.* config keys and checks that the
// bucket exists
func New(ctx context.Context) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			viper.GetString("storage.access_key_id"),
			viper.GetString("storage.secret_access_key"),
			"",
		)),
	)
	if err != nil {
		return nil, err
	}

	bucket := aws.String(viper.GetString("storage.bucket"))

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if viper.GetString("storage.type") == "r2" {
			o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", viper.GetString("storage.account_id")))
			o.Region = "auto"
			return
		}

		o.Region = viper.GetString("storage.region")
	})

	_, err = client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: bucket,
	})
	if err != nil {
		var apiErr smithy.APIError

		if errors.As(err, &apiErr) {
			if apiErr.ErrorCode() == "NotFound" {
				return nil, fmt.Errorf("bucket '%s' does not exist", *bucket)
			}
		}

		return nil, fmt.Errorf("failed to check if bucket exists, %w", err)
	}

	return &Client{
		C:      client,
		Bucket: bucket,
		CDNURL: strings.TrimRight(viper.GetString("storage.cdn_url"), "/"),
	}, nil
}

// URL returns the public CDN address of key
func (c *Client) URL(key string) string {
	return c.CDNURL + "/" + key
}

// Key is the inverse of URL. ok is false for addresses outside the CDN.
func (c *Client) Key(url string) (string, bool) {
	prefix := c.CDNURL + "/"
	if !strings.HasPrefix(url, prefix) || len(url) == len(prefix) {
		return "", false
	}

	return strings.TrimPrefix(url, prefix), true
}
