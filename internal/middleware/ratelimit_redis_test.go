package middleware

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestRedisWindow(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		t.Fatal(err)
	}
	rdb := redis.NewClient(opts)
	t.Cleanup(func() { _ = rdb.Close() })

	w := NewRedisWindow(rdb)
	ctx := context.Background()
	key := "test:" + strconv.FormatInt(time.Now().UnixNano(), 10)
	now := time.Now()

	for i := 0; i < 3; i++ {
		d, err := w.Hit(ctx, key, 3, time.Minute, now.Add(time.Duration(i)*time.Millisecond))
		if err != nil {
			t.Fatal(err)
		}
		if !d.Allowed {
			t.Fatalf("hit %d should be allowed", i+1)
		}
		if d.Remaining != 2-i {
			t.Errorf("hit %d: remaining = %d, want %d", i+1, d.Remaining, 2-i)
		}
	}

	d, err := w.Hit(ctx, key, 3, time.Minute, now.Add(10*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if d.Allowed {
		t.Fatal("4th hit should be refused")
	}

	// Refused hit was rolled back, so once the first hit ages out exactly one slot opens.
	d, err = w.Hit(ctx, key, 3, time.Minute, now.Add(time.Minute+time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if !d.Allowed {
		t.Fatal("hit after the window slid should be allowed")
	}
}
