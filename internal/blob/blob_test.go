package blob

import (
	"context"
	"errors"
	"testing"

	"github.com/clearclaims/claimtrail/internal/config"
)

func TestNew_NotConfigured(t *testing.T) {
	_, err := New(context.Background(), config.Config{})
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("New without bucket = %v, want ErrNotConfigured", err)
	}
}

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri     string
		bucket  string
		key     string
		wantErr bool
	}{
		{"blob://claims-bucket/claimtrail/claims/c1/raw/abc.json", "claims-bucket", "claimtrail/claims/c1/raw/abc.json", false},
		{"blob://b/k", "b", "k", false},
		{"s3://b/k", "", "", true},
		{"blob://bucketonly", "", "", true},
		{"blob:///nokey", "", "", true},
		{"", "", "", true},
	}
	for _, tt := range tests {
		bucket, key, err := ParseURI(tt.uri)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseURI(%q) err = %v, wantErr %v", tt.uri, err, tt.wantErr)
			continue
		}
		if bucket != tt.bucket || key != tt.key {
			t.Errorf("ParseURI(%q) = (%q, %q), want (%q, %q)", tt.uri, bucket, key, tt.bucket, tt.key)
		}
	}
}

func TestKey(t *testing.T) {
	s := &Store{bucket: "b", prefix: "claimtrail"}
	got := s.Key("claim-1", "raw", "msg.json")
	want := "claimtrail/claims/claim-1/raw/msg.json"
	if got != want {
		t.Errorf("Key = %q, want %q", got, want)
	}
}
