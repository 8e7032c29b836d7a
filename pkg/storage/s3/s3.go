/*
Copyright The Database Backup Orchestrator Contributors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package s3 uploads via aws-sdk-go-v2, the Go counterpart of the original
// core's lazily imported boto3 client.
package s3

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Backend uploads backup files to an S3 bucket/prefix.
type Backend struct {
	Bucket string
	Prefix string
	Region string

	client *s3.Client
}

func New(ctx context.Context, bucket, prefix, region string) (*Backend, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &Backend{
		Bucket: bucket,
		Prefix: strings.Trim(prefix, "/"),
		Region: region,
		client: s3.NewFromConfig(cfg),
	}, nil
}

func (b *Backend) Type() string { return "s3" }

func (b *Backend) StoreFile(ctx context.Context, sourcePath, filename string) (string, error) {
	f, err := os.Open(sourcePath)
	if err != nil {
		return "", fmt.Errorf("backup file does not exist: %s", sourcePath)
	}
	defer f.Close()

	objectName := filename
	if objectName == "" {
		objectName = filepath.Base(sourcePath)
	}
	key := objectName
	if b.Prefix != "" {
		key = b.Prefix + "/" + objectName
	}

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.Bucket),
		Key:    aws.String(key),
		Body:   f,
		ACL:    types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return "", fmt.Errorf("S3 upload failed: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", b.Bucket, key), nil
}
