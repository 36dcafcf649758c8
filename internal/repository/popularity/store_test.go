package popularity

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	values    map[string]int64
	expires   map[string]time.Duration
	incrErr   error
	getErr    error
	raw       map[string]string
	expireNX  []bool
	getCalled int
}

func newMockStore() *mockStore {
	return &mockStore{values: map[string]int64{}, expires: map[string]time.Duration{}, raw: map[string]string{}}
}

func (m *mockStore) GetMulti(_ context.Context, keys []string) ([][]byte, error) {
	m.getCalled++
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := make([][]byte, len(keys))
	for i, k := range keys {
		if r, ok := m.raw[k]; ok {
			out[i] = []byte(r)
			continue
		}
		if v, ok := m.values[k]; ok {
			out[i] = []byte(strconv.FormatInt(v, 10))
		}
	}
	return out, nil
}

func (m *mockStore) IncrBy(_ context.Context, key string, val int64) (int64, error) {
	if m.incrErr != nil {
		return 0, m.incrErr
	}
	m.values[key] += val
	return m.values[key], nil
}

func (m *mockStore) Expire(_ context.Context, key string, ttl time.Duration, nx bool) error {
	m.expires[key] = ttl
	m.expireNX = append(m.expireNX, nx)
	return nil
}


func TestIncr_AccumulatesAndSetsTTL(t *testing.T) {
	ms := newMockStore()
	s := New(ms, 30*24*time.Hour)

	n, err := s.Incr(context.Background(), "s1", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.Incr(context.Background(), "s1", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	assert.Equal(t, 30*24*time.Hour, ms.expires["ebt:clicks:s1"])
	assert.Equal(t, []bool{true, true}, ms.expireNX)
}

func TestIncr_NoTTL(t *testing.T) {
	ms := newMockStore()
	s := New(ms, 0)

	_, err := s.Incr(context.Background(), "s1", 1)
	require.NoError(t, err)
	assert.Empty(t, ms.expires)
}

func TestIncr_Error(t *testing.T) {
	ms := newMockStore()
	ms.incrErr = errors.New("READONLY")
	_, err := New(ms, 0).Incr(context.Background(), "s1", 1)
	require.Error(t, err)
	assert.ErrorContains(t, err, "ebt:clicks:s1")
}

func TestCounts(t *testing.T) {
	ms := newMockStore()
	ms.values["ebt:clicks:a"] = 4
	ms.values["ebt:clicks:c"] = 9
	s := New(ms, 0)

	got, err := s.Counts(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"a": 4, "c": 9}, got)
}

func TestCounts_Empty(t *testing.T) {
	ms := newMockStore()
	got, err := New(ms, 0).Counts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, ms.getCalled)
}

func TestCounts_ParseError(t *testing.T) {
	ms := newMockStore()
	ms.raw["ebt:clicks:a"] = "lots"
	_, err := New(ms, 0).Counts(context.Background(), []string{"a"})
	require.Error(t, err)
}
