package share

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tendant/tryon-pipeline/internal/export"
	"github.com/tendant/tryon-pipeline/pkg/tryon"
)

type setCall struct {
	key   string
	value []byte
	ttl   time.Duration
}

type fakeRedis struct {
	sets       []setCall
	published  map[string][][]byte
	setErr     error
	publishErr error
	closed     bool
}

func (f *fakeRedis) Ping(ctx context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	f.sets = append(f.sets, setCall{key: key, value: value.([]byte), ttl: ttl})
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	if f.publishErr != nil {
		return redis.NewIntResult(0, f.publishErr)
	}
	if f.published == nil {
		f.published = map[string][][]byte{}
	}
	f.published[channel] = append(f.published[channel], message.([]byte))
	return redis.NewIntResult(1, nil)
}

func (f *fakeRedis) Close() error {
	f.closed = true
	return nil
}

var testPayload = export.Payload{
	Title: export.ShareTitle,
	Text:  export.ShareText,
	File:  export.File{Name: "styleai-tryon-1.jpg", MimeType: "image/jpeg", Data: []byte{0xff, 0xd8, 0xff}},
}

func TestRedisSharerShare(t *testing.T) {
	client := &fakeRedis{}
	created := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	s := newRedisSharer(client, RedisConfig{TTL: time.Hour}, nil)
	s.now = func() time.Time { return created }

	if !s.Available() {
		t.Fatal("Expected sharer available")
	}
	if err := s.Share(context.Background(), testPayload); err != nil {
		t.Fatalf("Share failed: %v", err)
	}

	if len(client.sets) != 1 {
		t.Fatalf("Expected 1 SET, got %d", len(client.sets))
	}
	set := client.sets[0]
	if set.ttl != time.Hour {
		t.Errorf("Expected TTL 1h, got %v", set.ttl)
	}
	env, err := DecodeEnvelope(set.value)
	if err != nil {
		t.Fatalf("DecodeEnvelope failed: %v", err)
	}
	if set.key != "share:"+env.ID {
		t.Errorf("Key %s does not match envelope ID %s", set.key, env.ID)
	}
	if env.Title != export.ShareTitle || env.FileName != "styleai-tryon-1.jpg" || string(env.Data) != string(testPayload.File.Data) {
		t.Errorf("Unexpected envelope %+v", env)
	}
	if !env.CreatedAt.Equal(created) {
		t.Errorf("Expected created %v, got %v", created, env.CreatedAt)
	}

	msgs := client.published[DefaultChannel]
	if len(msgs) != 1 {
		t.Fatalf("Expected 1 notice on %s, got %d", DefaultChannel, len(msgs))
	}
	notice, err := DecodeNotice(msgs[0])
	if err != nil {
		t.Fatalf("DecodeNotice failed: %v", err)
	}
	if notice.Key != set.key || notice.ID != env.ID {
		t.Errorf("Notice %+v does not reference stored share", notice)
	}
}

func TestRedisSharerPing(t *testing.T) {
	if err := newRedisSharer(&fakeRedis{}, RedisConfig{}, nil).Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
	if err := NewRedisSharer(RedisConfig{}, nil).Ping(context.Background()); !errors.Is(err, export.ErrShareUnavailable) {
		t.Errorf("Expected ErrShareUnavailable, got %v", err)
	}
}

func TestRedisSharerErrors(t *testing.T) {
	t.Run("set fails", func(t *testing.T) {
		client := &fakeRedis{setErr: errors.New("READONLY")}
		s := newRedisSharer(client, RedisConfig{}, nil)
		if err := s.Share(context.Background(), testPayload); err == nil {
			t.Error("Expected error")
		}
		if len(client.published) != 0 {
			t.Error("Expected no notice after failed SET")
		}
	})

	t.Run("publish fails", func(t *testing.T) {
		client := &fakeRedis{publishErr: errors.New("connection reset")}
		s := newRedisSharer(client, RedisConfig{}, nil)
		if err := s.Share(context.Background(), testPayload); err == nil {
			t.Error("Expected error")
		}
	})

	t.Run("not configured", func(t *testing.T) {
		s := NewRedisSharer(RedisConfig{}, nil)
		if s.Available() {
			t.Error("Expected unavailable without an address")
		}
		if err := s.Share(context.Background(), testPayload); !errors.Is(err, export.ErrShareUnavailable) {
			t.Errorf("Expected ErrShareUnavailable, got %v", err)
		}
		if err := s.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
}

func TestExporterFallsBackFromRedis(t *testing.T) {
	client := &fakeRedis{setErr: errors.New("OOM")}
	clip := &MemoryClipboard{}
	e := export.New(
		export.WithSharer(newRedisSharer(client, RedisConfig{}, nil)),
		export.WithClipboard(clip),
	)

	method, err := e.Share(context.Background(), resultFixture())
	if err != nil {
		t.Fatalf("Share failed: %v", err)
	}
	if method != export.MethodClipboard {
		t.Errorf("Expected clipboard fallback, got %s", method)
	}
	if clip.Text() != "data:image/jpeg;base64,/9j/" {
		t.Errorf("Unexpected clipboard text %q", clip.Text())
	}
}

func TestFileClipboard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip", "clipboard.txt")
	c := &FileClipboard{Path: path}
	if err := c.WriteText(context.Background(), "data:image/png;base64,AAAA"); err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil || string(got) != "data:image/png;base64,AAAA" {
		t.Errorf("Unexpected clipboard file %q (%v)", got, err)
	}

	if err := (&FileClipboard{}).WriteText(context.Background(), "x"); err == nil {
		t.Error("Expected error without a path")
	}
}

func resultFixture() *tryon.Result {
	return &tryon.Result{Image: []byte{0xff, 0xd8, 0xff}, MimeType: "image/jpeg"}
}
