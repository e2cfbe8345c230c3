package upload

import (
	"context"
	"io"
	"sync"
	"time"

	"motioncam/internal/logger"
	"motioncam/internal/model"

	"github.com/cenkalti/backoff/v4"
)

const maxReconnectInterval = 10 * time.Minute

// ConnectFunc brings the network and the cloud client up and authenticates it.
// It may return a client together with an error when only sign-in failed.
type ConnectFunc func(ctx context.Context) (Client, error)

// Session is a Client that heals itself. Whenever the current client is not
// ready, Ready reconnects, no more often than the backoff allows. A zero
// interval retries on every call.
type Session struct {
	connect ConnectFunc
	timeout time.Duration
	logger  *logger.Logger
	now     func() time.Time

	mu      sync.Mutex
	client  Client
	backoff *backoff.ExponentialBackOff
	retryAt time.Time
}

// NewSession creates a session. Nothing connects until Authenticate or Ready is called.
func NewSession(connect ConnectFunc, interval, timeout time.Duration, logger *logger.Logger) *Session {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = interval
	b.MaxInterval = maxReconnectInterval
	b.MaxElapsedTime = 0
	b.Reset()

	return &Session{
		connect: connect,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
		backoff: b,
	}
}

// Authenticate connects now, ignoring the backoff.
func (s *Session) Authenticate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconnect(ctx)
}

// Ready reports whether a session is up, reconnecting first when one is due.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil && s.client.Ready() {
		return true
	}
	if s.now().Before(s.retryAt) {
		return false
	}
	return s.reconnect(context.Background()) == nil
}

// Upload delegates to the current client.
func (s *Session) Upload(ctx context.Context, task model.UploadTask, body io.Reader) (string, error) {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()

	if client == nil {
		return "", ErrOffline
	}
	return client.Upload(ctx, task, body)
}

// Close releases the current client if it holds resources.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if closer, ok := s.client.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (s *Session) reconnect(ctx context.Context) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	client, err := s.connect(ctx)
	if client != nil {
		s.client = client
	}
	if err == nil && (s.client == nil || !s.client.Ready()) {
		err = ErrOffline
	}
	if err != nil {
		wait := s.backoff.NextBackOff()
		s.retryAt = s.now().Add(wait)
		s.logger.Warning("Cloud session unavailable, next attempt in %s: %v", wait, err)
		return err
	}

	s.backoff.Reset()
	s.retryAt = time.Time{}
	s.logger.Info("Cloud session established")
	return nil
}
