package s3

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/relloyd/cdsync/helper"
)

const scheme = "s3"

// Bucket locates the staging area in S3.
type Bucket struct {
	Name   string `errorTxt:"S3 bucket name" mandatory:"yes"`
	Prefix string `errorTxt:"S3 bucket prefix"`
	Region string `errorTxt:"S3 bucket region" mandatory:"yes"`
}

// Validate checks the mandatory fields are set.
func (b Bucket) Validate() error {
	return helper.ValidateStructIsPopulated(b)
}

// ParseDSN expects bucketPrefix to be of the form [s3://]<bucket>[/<prefix>]
// It returns a Bucket populated with the components of bucketPrefix and the supplied region.
func ParseDSN(bucketPrefix string, region string) (retval Bucket, err error) {
	if !strings.Contains(bucketPrefix, "://") { // let url.Parse find a host.
		bucketPrefix = scheme + "://" + bucketPrefix
	}
	s3url, err := url.Parse(bucketPrefix)
	if err != nil {
		return retval, errors.Wrap(err, "error parsing S3 URL")
	}
	if s3url.Scheme != scheme {
		return retval, errors.Errorf("expected S3 URL scheme %q but got %q", scheme, s3url.Scheme)
	}
	if region == "" {
		return retval, errors.New("value expected for bucket region")
	}
	retval.Name = s3url.Host
	if retval.Name == "" {
		return retval, errors.New("DSN failed to parse bucket name")
	}
	retval.Prefix = strings.Trim(s3url.Path, "/")
	retval.Region = region
	return
}

// keyWithPrefix joins the bucket prefix and key with exactly one slash.
func (b Bucket) keyWithPrefix(key string) string {
	if b.Prefix != "" {
		return strings.TrimRight(b.Prefix, "/") + "/" + strings.TrimLeft(key, "/")
	}
	return key
}
