package upload

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"motioncam/internal/logger"
	"motioncam/internal/model"
	"motioncam/internal/service/flash"
)

// fakeClient reads the body in fixed chunks so progress is reported several times.
type fakeClient struct {
	ready    bool
	err      error
	chunk    int
	received bytes.Buffer
	calls    int
	ctxErr   error
}

func (c *fakeClient) Authenticate(context.Context) error { c.ready = true; return nil }
func (c *fakeClient) Ready() bool                        { return c.ready }

func (c *fakeClient) Upload(ctx context.Context, task model.UploadTask, body io.Reader) (string, error) {
	c.calls++
	buf := make([]byte, c.chunk)
	for {
		if err := ctx.Err(); err != nil {
			c.ctxErr = err
			return "", err
		}
		n, err := body.Read(buf)
		c.received.Write(buf[:n])
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}
	if c.err != nil {
		return "", c.err
	}
	return PublicURL(task.Bucket, task.RemotePath), nil
}

func storeWith(t *testing.T, name string, size int) flash.Store {
	t.Helper()
	s := flash.NewDirStore(t.TempDir())
	if err := s.Mount(false); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	w, err := s.Create(name)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	w.Write(make([]byte, size))
	w.Close()
	return s
}

var artifact = model.NewCaptureArtifact("12:30:05", 1000, time.Now())

func TestTransfer_EventOrdering(t *testing.T) {
	client := &fakeClient{ready: true, chunk: 100}
	p := NewPipeline(client, storeWith(t, artifact.LocalPath, 1000), "cam-bucket", 0, logger.Nop())

	var events []model.UploadEvent
	for ev := range p.Transfer(context.Background(), artifact).Events() {
		events = append(events, ev)
	}

	if len(events) < 3 {
		t.Fatalf("expected init, progress and terminal events, got %d", len(events))
	}
	if events[0].Phase != model.UploadInit || events[0].Size != 1000 {
		t.Errorf("first event = %+v, expected init with size", events[0])
	}
	if events[0].RemoteFile != "data/12:30:05-img.jpg" {
		t.Errorf("remote file = %q", events[0].RemoteFile)
	}

	last := events[len(events)-1]
	if last.Phase != model.UploadComplete {
		t.Fatalf("last event = %v, expected complete", last.Phase)
	}
	if last.URL != "https://storage.googleapis.com/cam-bucket/data/12:30:05-img.jpg" {
		t.Errorf("URL = %q", last.URL)
	}

	prev := -1
	terminals := 0
	for _, ev := range events[1:] {
		if ev.Phase.Terminal() {
			terminals++
			continue
		}
		if ev.Phase != model.UploadProgress {
			t.Errorf("unexpected %v in the middle of the sequence", ev.Phase)
		}
		if ev.Percent <= prev {
			t.Errorf("progress went from %d to %d", prev, ev.Percent)
		}
		prev = ev.Percent
	}
	if terminals != 1 {
		t.Errorf("expected exactly one terminal event, got %d", terminals)
	}
	if client.received.Len() != 1000 {
		t.Errorf("client received %d bytes", client.received.Len())
	}
}

func TestTransfer_NotRestartable(t *testing.T) {
	client := &fakeClient{ready: true, chunk: 500}
	p := NewPipeline(client, storeWith(t, artifact.LocalPath, 1000), "b", 0, logger.Nop())
	tr := p.Transfer(context.Background(), artifact)

	first := 0
	for range tr.Events() {
		first++
	}
	second := 0
	for range tr.Events() {
		second++
	}

	if first == 0 || second != 0 {
		t.Errorf("first pass %d events, second pass %d; expected >0 and 0", first, second)
	}
	if client.calls != 1 {
		t.Errorf("expected one upload call, got %d", client.calls)
	}
}

func TestTransfer_StopEarlyCancels(t *testing.T) {
	client := &fakeClient{ready: true, chunk: 100}
	p := NewPipeline(client, storeWith(t, artifact.LocalPath, 1000), "b", 0, logger.Nop())

	seen := 0
	for ev := range p.Transfer(context.Background(), artifact).Events() {
		seen++
		if ev.Phase == model.UploadProgress {
			break
		}
	}

	if seen != 2 {
		t.Errorf("expected to see init and one progress, got %d", seen)
	}
	if !errors.Is(client.ctxErr, context.Canceled) {
		t.Errorf("expected client context cancelled, got %v", client.ctxErr)
	}
}

func TestTransfer_MissingFileStillStartsWithInit(t *testing.T) {
	client := &fakeClient{ready: true, chunk: 100}
	s := flash.NewDirStore(t.TempDir())
	s.Mount(false)
	p := NewPipeline(client, s, "b", 0, logger.Nop())

	var events []model.UploadEvent
	for ev := range p.Transfer(context.Background(), artifact).Events() {
		events = append(events, ev)
	}
	if len(events) != 2 || events[0].Phase != model.UploadInit || events[1].Phase != model.UploadError {
		t.Fatalf("expected init then error, got %+v", events)
	}
	if events[0].Size != 0 || events[0].RemoteFile != artifact.RemotePath {
		t.Errorf("unexpected init event %+v", events[0])
	}
	if client.calls != 0 {
		t.Error("client must not be called without a local file")
	}
}

func TestUpload_SkippedWhenNotReady(t *testing.T) {
	client := &fakeClient{ready: false, chunk: 100}
	store := storeWith(t, artifact.LocalPath, 1000)
	p := NewPipeline(client, store, "b", 0, logger.Nop())

	outcome := p.Upload(context.Background(), artifact)
	if outcome.Kind != model.OutcomeSkipped || outcome.Reason != ReasonNotReady {
		t.Errorf("outcome = %+v, expected skipped", outcome)
	}
	if client.calls != 0 {
		t.Error("client must not be called when not ready")
	}
	if _, err := store.Stat(artifact.LocalPath); err != nil {
		t.Errorf("local file must remain: %v", err)
	}
}

func TestUpload_Failed(t *testing.T) {
	client := &fakeClient{ready: true, chunk: 400, err: errors.New("connection reset")}
	p := NewPipeline(client, storeWith(t, artifact.LocalPath, 1000), "b", 0, logger.Nop())

	outcome := p.Upload(context.Background(), artifact)
	if outcome.Kind != model.OutcomeFailed || !strings.Contains(outcome.Reason, "connection reset") {
		t.Errorf("outcome = %+v, expected failed", outcome)
	}
}

func TestUpload_Uploaded(t *testing.T) {
	client := &fakeClient{ready: true, chunk: 400}
	p := NewPipeline(client, storeWith(t, artifact.LocalPath, 1000), "b", time.Minute, logger.Nop())

	outcome := p.Upload(context.Background(), artifact)
	if outcome.Kind != model.OutcomeUploaded || outcome.URL == "" {
		t.Errorf("outcome = %+v, expected uploaded", outcome)
	}
}

func TestURLSigner(t *testing.T) {
	var nilSigner *URLSigner
	if got, _ := nilSigner.URL("b", "data/x.jpg"); got != "https://storage.googleapis.com/b/data/x.jpg" {
		t.Errorf("public URL = %q", got)
	}

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	signer := &URLSigner{
		AccessID:   "camera@project.iam.gserviceaccount.com",
		PrivateKey: strings.ReplaceAll(string(pemKey), "\n", `\n`),
		TTL:        time.Hour,
	}
	signed, err := signer.URL("b", "data/x.jpg")
	if err != nil {
		t.Fatalf("URL: %v", err)
	}
	if !strings.Contains(signed, "X-Goog-Signature=") {
		t.Errorf("expected a V4 signed URL, got %s", signed)
	}
}
