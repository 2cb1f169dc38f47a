package fetcher

import (
	"context"
	"errors"
	"testing"
)

func TestCheckTarget(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		denyPrivate bool
		want        error
	}{
		{"ftp scheme", "ftp://example.com/a", true, ErrInvalidURL},
		{"no host", "http:///nota", true, ErrInvalidURL},
		{"loopback", "http://127.0.0.1:8080/", true, ErrPrivateIP},
		{"rfc1918", "http://192.168.1.10/nota", true, ErrPrivateIP},
		{"link local", "http://169.254.169.254/latest", true, ErrPrivateIP},
		{"ipv6 loopback", "http://[::1]/", true, ErrPrivateIP},
		{"mapped private", "http://[::ffff:10.0.0.1]/", true, ErrPrivateIP},
		{"unspecified", "http://0.0.0.0/", true, ErrPrivateIP},
		{"public literal", "https://93.184.216.34/nota", true, nil},
		{"private allowed", "http://127.0.0.1:8080/", false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkTarget(context.Background(), tt.url, tt.denyPrivate)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("checkTarget(%q) = %v, want nil", tt.url, err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("checkTarget(%q) = %v, want %v", tt.url, err, tt.want)
			}
		})
	}
}
