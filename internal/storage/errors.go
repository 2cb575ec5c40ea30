package storage

import (
	"errors"
	"strings"

	"github.com/minio/minio-go/v7"
)

func errorCode(err error) string {
	var minioErr minio.ErrorResponse
	if errors.As(err, &minioErr) {
		return strings.ToLower(strings.TrimSpace(minioErr.Code))
	}
	return ""
}

// IsNoSuchKey reports whether err says the object does not exist.
func IsNoSuchKey(err error) bool {
	if err == nil {
		return false
	}
	switch errorCode(err) {
	case "nosuchkey", "notfound":
		return true
	}

	// Some gateways only keep the message.
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "nosuchkey") ||
		strings.Contains(lower, "specified key does not exist")
}

// IsNoSuchBucket reports whether err says the bucket does not exist.
func IsNoSuchBucket(err error) bool {
	if err == nil {
		return false
	}
	if errorCode(err) == "nosuchbucket" {
		return true
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "nosuchbucket") ||
		strings.Contains(lower, "specified bucket does not exist")
}

// bucketOwned covers a bucket created concurrently by another process.
func bucketOwned(err error) bool {
	switch errorCode(err) {
	case "bucketalreadyownedbyyou", "bucketalreadyexists":
		return true
	}
	return false
}
