package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuture_ResolveOnce(t *testing.T) {
	f := NewFuture[int]()
	f.Resolve(1, nil)
	f.Resolve(2, errors.New("ignored"))

	v, err := f.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	select {
	case <-f.Done():
	default:
		t.Fatal("Done should be closed after Resolve")
	}
}

func TestFuture_Async(t *testing.T) {
	release := make(chan struct{})
	f := Async(func() (string, error) {
		<-release
		return "done", nil
	})

	select {
	case <-f.Done():
		t.Fatal("future resolved too early")
	default:
	}

	close(release)
	v, err := f.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "done", v)
}

func TestFuture_WaitHonoursContext(t *testing.T) {
	f := NewFuture[bool]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
