package s3

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/pkg/errors"
	"github.com/relloyd/cdsync/logger"
)

const contentTypeCSV = "text/csv"

// Stager uploads staged CSV files to an S3 bucket.
type Stager struct {
	log    logger.Logger
	bucket Bucket
	api    s3iface.S3API
}

// NewStager creates an S3 session for the bucket region using the default AWS credential chain.
func NewStager(log logger.Logger, bucket Bucket) (*Stager, error) {
	if err := bucket.Validate(); err != nil {
		return nil, err
	}
	awsConfig := aws.NewConfig()
	awsConfig.Region = aws.String(bucket.Region)
	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, errors.Wrap(err, "error creating AWS session")
	}
	return NewStagerWithAPI(log, bucket, s3.New(sess)), nil
}

// NewStagerWithAPI returns a Stager that uses api for all requests.
func NewStagerWithAPI(log logger.Logger, bucket Bucket, api s3iface.S3API) *Stager {
	return &Stager{log: log, bucket: bucket, api: api}
}

// Upload puts localFile at key, replacing any existing object.
func (s *Stager) Upload(ctx context.Context, localFile string, key string) error {
	f, err := os.Open(localFile)
	if err != nil {
		return errors.Wrapf(err, "error opening file %v", localFile)
	}
	defer f.Close()
	fullKey := s.bucket.keyWithPrefix(key)
	_, err = s.api.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket.Name),
		Key:         aws.String(fullKey),
		Body:        f, // *os.File implements io.ReadSeeker.
		ContentType: aws.String(contentTypeCSV),
	})
	if err != nil {
		return errors.Wrapf(err, "error putting object s3://%v/%v", s.bucket.Name, fullKey)
	}
	s.log.Debug("uploaded ", localFile, " to ", s.URI(key))
	return nil
}

// URI returns the s3:// location of key.
func (s *Stager) URI(key string) string {
	return "s3://" + s.bucket.Name + "/" + s.bucket.keyWithPrefix(key)
}
