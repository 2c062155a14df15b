//go:build !integration

package redis

import (
	"context"
	"errors"
	"time"
)

// fakeRedis is an in-memory RedisClient; expirations are recorded, not enforced.
type fakeRedis struct {
	data      map[string]string
	ttls      map[string]time.Duration
	published map[string][]interface{}
	setNXFail int   // number of SetNX calls that report the key as taken
	setNXErr  error // returned by every SetNX when set
	incrErr   int   // number of IncrWindow calls that fail before touching the key
}

var _ RedisClient = (*fakeRedis)(nil)

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		data:      map[string]string{},
		ttls:      map[string]time.Duration{},
		published: map[string][]interface{}{},
	}
}

func toString(v interface{}) string {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case string:
		return x
	default:
		return ""
	}
}

func (f *fakeRedis) Ping(ctx context.Context) error { return nil }

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	f.data[key] = toString(value)
	f.ttls[key] = expiration
	return nil
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	if f.setNXErr != nil {
		return false, f.setNXErr
	}
	if f.setNXFail > 0 {
		f.setNXFail--
		return false, nil
	}
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	return true, f.Set(ctx, key, value, expiration)
}

func (f *fakeRedis) Get(ctx context.Context, key string) (string, error) {
	v, ok := f.data[key]
	if !ok {
		return "", Nil
	}
	return v, nil
}

var errFakeDown = errors.New("fake redis down")

// IncrWindow mirrors the script: the ttl is armed on the first hit or when missing.
func (f *fakeRedis) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	if f.incrErr > 0 {
		f.incrErr--
		return 0, errFakeDown
	}
	var n int64
	for _, c := range f.data[key] {
		n = n*10 + int64(c-'0')
	}
	n++
	f.data[key] = itoa(n)
	if _, armed := f.ttls[key]; n == 1 || !armed {
		f.ttls[key] = window
	}
	return n, nil
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	var b []byte
	for ; n > 0; n /= 10 {
		b = append([]byte{byte('0' + n%10)}, b...)
	}
	return string(b)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
		delete(f.ttls, k)
	}
	return nil
}

func (f *fakeRedis) DelIfEquals(ctx context.Context, key, value string) (bool, error) {
	if f.data[key] != value {
		return false, nil
	}
	return true, f.Del(ctx, key)
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message interface{}) error {
	f.published[channel] = append(f.published[channel], message)
	return nil
}

func (f *fakeRedis) Close() error { return nil }
