package oauth

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTokenSource struct {
	calls  int32
	token  string
	expiry time.Time
	err    error
}

func (f *fakeTokenSource) Token(ctx context.Context) (string, time.Time, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return "", time.Time{}, f.err
	}
	return f.token, f.expiry, nil
}

func TestCache_FetchesOnFirstCall(t *testing.T) {
	src := &fakeTokenSource{token: "tok-1", expiry: time.Now().Add(time.Hour)}
	c := NewCacheWithSource(src, time.Minute)

	tok, err := c.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)
	assert.EqualValues(t, 1, src.calls)
}

func TestCache_ReusesValidToken(t *testing.T) {
	src := &fakeTokenSource{token: "tok-1", expiry: time.Now().Add(time.Hour)}
	c := NewCacheWithSource(src, time.Minute)

	_, err := c.GetToken(context.Background())
	require.NoError(t, err)
	_, err = c.GetToken(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 1, src.calls)
}

func TestCache_RefetchesWithinRefreshBuffer(t *testing.T) {
	src := &fakeTokenSource{token: "tok-1", expiry: time.Now().Add(2 * time.Minute)}
	c := NewCacheWithSource(src, 5*time.Minute)

	_, err := c.GetToken(context.Background())
	require.NoError(t, err)

	src.token = "tok-2"
	tok, err := c.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok)
	assert.EqualValues(t, 2, src.calls)
}

func TestCache_PropagatesFetchError(t *testing.T) {
	src := &fakeTokenSource{err: assert.AnError}
	c := NewCacheWithSource(src, time.Minute)

	_, err := c.GetToken(context.Background())
	assert.Error(t, err)
}
