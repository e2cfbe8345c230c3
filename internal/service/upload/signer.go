package upload

import (
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// URLSigner produces retrievable URLs for uploaded objects.
type URLSigner struct {
	AccessID   string
	PrivateKey string
	TTL        time.Duration
	now        func() time.Time
}

// Enabled reports whether signing credentials are configured.
func (s *URLSigner) Enabled() bool {
	return s != nil && s.AccessID != "" && s.PrivateKey != ""
}

// URL returns a V4 signed GET URL when signing is configured, else the public object URL.
func (s *URLSigner) URL(bucket, object string) (string, error) {
	if !s.Enabled() {
		return PublicURL(bucket, object), nil
	}

	now := time.Now
	if s.now != nil {
		now = s.now
	}
	// Convert literal \n sequences back into real newlines for the private key.
	key := strings.ReplaceAll(s.PrivateKey, `\n`, "\n")

	return storage.SignedURL(bucket, object, &storage.SignedURLOptions{
		Scheme:         storage.SigningSchemeV4,
		Method:         "GET",
		Expires:        now().Add(s.TTL),
		GoogleAccessID: s.AccessID,
		PrivateKey:     []byte(key),
	})
}

// PublicURL is the storage.googleapis.com address of an object.
func PublicURL(bucket, object string) string {
	u := url.URL{
		Scheme: "https",
		Host:   "storage.googleapis.com",
		Path:   "/" + bucket + "/" + object,
	}
	return u.String()
}
