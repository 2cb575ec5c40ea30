package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/minio/minio-go/v7"
)

func TestIsNoSuchKey(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"code", minio.ErrorResponse{Code: "NoSuchKey"}, true},
		{"wrapped code", fmt.Errorf("get: %w", minio.ErrorResponse{Code: "NotFound"}), true},
		{"message", errors.New("The specified key does not exist."), true},
		{"other", minio.ErrorResponse{Code: "AccessDenied"}, false},
	}
	for _, tc := range cases {
		if got := IsNoSuchKey(tc.err); got != tc.want {
			t.Errorf("%s: IsNoSuchKey = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestIsNoSuchBucket(t *testing.T) {
	if !IsNoSuchBucket(minio.ErrorResponse{Code: "NoSuchBucket"}) {
		t.Fatal("expected NoSuchBucket code to match")
	}
	if IsNoSuchBucket(minio.ErrorResponse{Code: "NoSuchKey"}) {
		t.Fatal("NoSuchKey is not a bucket error")
	}
}

func TestResumeObjectKey(t *testing.T) {
	got := ResumeObjectKey(7, 42, "abc")
	if got != "resumes/7/42/abc.pdf" {
		t.Fatalf("unexpected key %q", got)
	}
	if p := ResumePrefix(7, 42); p != "resumes/7/42/" {
		t.Fatalf("unexpected prefix %q", p)
	}
}
