package session_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/zhouzirui/user-directory/backend/internal/model/directory"
	"github.com/zhouzirui/user-directory/backend/internal/service/directory"
	"github.com/zhouzirui/user-directory/backend/internal/service/session"
)

func countingFetcher(calls *int32) directory.Fetcher {
	return directory.FetcherFunc(func(context.Context) ([]model.UserRecord, error) {
		atomic.AddInt32(calls, 1)
		return []model.UserRecord{{ID: 1, Name: "Leanne Graham", Username: "Bret", Email: "Sincere@april.biz"}}, nil
	})
}

func TestRegistryMountFetchesOncePerSession(t *testing.T) {
	var calls int32
	reg := session.NewRegistry(countingFetcher(&calls), zerolog.Nop())

	first := reg.Mount(context.Background())
	second := reg.Mount(context.Background())

	for _, s := range []*session.Session{first, second} {
		select {
		case <-s.Store.Settled():
		case <-time.After(2 * time.Second):
			t.Fatal("fetch did not settle")
		}
	}

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, 2, reg.Count())
}

func TestRegistryGetAndUnmount(t *testing.T) {
	var calls int32
	reg := session.NewRegistry(countingFetcher(&calls), zerolog.Nop())
	s := reg.Mount(context.Background())

	got, err := reg.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	require.NoError(t, reg.Unmount(s.ID))
	assert.Equal(t, 0, reg.Count())

	_, err = reg.Get(s.ID)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
	assert.ErrorIs(t, reg.Unmount(s.ID), session.ErrSessionNotFound)
}

func TestRegistrySessionsDoNotShareState(t *testing.T) {
	var calls int32
	reg := session.NewRegistry(countingFetcher(&calls), zerolog.Nop())

	a := reg.Mount(context.Background())
	b := reg.Mount(context.Background())
	a.Store.SetSearchTerm("bret")

	assert.Equal(t, "bret", a.Store.SearchTerm())
	assert.Equal(t, "", b.Store.SearchTerm())
}
