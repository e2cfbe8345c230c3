package upload

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"motioncam/internal/logger"
	"motioncam/internal/model"
)

// signInClient fails Authenticate while authErr is set.
type signInClient struct {
	authErr error
	ready   bool
	auths   int
}

func (c *signInClient) Authenticate(context.Context) error {
	c.auths++
	c.ready = c.authErr == nil
	return c.authErr
}

func (c *signInClient) Ready() bool { return c.ready }

func (c *signInClient) Upload(_ context.Context, task model.UploadTask, _ io.Reader) (string, error) {
	return PublicURL(task.Bucket, task.RemotePath), nil
}

func newTestSession(client *signInClient, interval time.Duration) (*Session, *time.Time) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s := NewSession(func(ctx context.Context) (Client, error) {
		return client, client.Authenticate(ctx)
	}, interval, 0, logger.Nop())
	s.now = func() time.Time { return now }
	return s, &now
}

func TestSession_RecoversAfterFailedSignIn(t *testing.T) {
	client := &signInClient{authErr: errors.New("dns lookup failed")}
	s, now := newTestSession(client, time.Minute)

	if err := s.Authenticate(context.Background()); err == nil {
		t.Fatal("expected the first sign-in to fail")
	}

	client.authErr = nil
	if s.Ready() {
		t.Error("should wait for the backoff before reconnecting")
	}
	if client.auths != 1 {
		t.Errorf("auths = %d before the backoff elapsed, want 1", client.auths)
	}

	*now = now.Add(2 * time.Minute)
	if !s.Ready() {
		t.Fatal("session should be re-established once the backoff elapsed")
	}
	if client.auths != 2 {
		t.Errorf("auths = %d, want 2", client.auths)
	}

	url, err := s.Upload(context.Background(), model.UploadTask{Bucket: "b", RemotePath: "data/x.jpg"}, strings.NewReader("x"))
	if err != nil || url == "" {
		t.Errorf("Upload = %q, %v", url, err)
	}
}

func TestSession_ReauthenticatesRevokedClient(t *testing.T) {
	client := &signInClient{}
	s, _ := newTestSession(client, 0)

	if err := s.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	client.ready = false
	if !s.Ready() {
		t.Fatal("expected a fresh sign-in after the session was revoked")
	}
	if client.auths != 2 {
		t.Errorf("auths = %d, want 2", client.auths)
	}

	// healthy sessions do not sign in again
	s.Ready()
	if client.auths != 2 {
		t.Errorf("auths = %d after a healthy check, want 2", client.auths)
	}
}

func TestSession_OfflineUntilConnected(t *testing.T) {
	s := NewSession(func(context.Context) (Client, error) {
		return nil, errors.New("no route to host")
	}, time.Hour, time.Second, logger.Nop())

	if s.Ready() {
		t.Error("no client, no session")
	}
	if _, err := s.Upload(context.Background(), model.UploadTask{}, strings.NewReader("x")); !errors.Is(err, ErrOffline) {
		t.Errorf("Upload error = %v, want ErrOffline", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
