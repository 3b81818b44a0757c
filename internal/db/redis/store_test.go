package redis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/footage/internal/db"
)

func newMockStore(t *testing.T) (*Store, *mock.Client) {
	t.Helper()
	c := mock.NewClient(gomock.NewController(t))
	return FromClient(c), c
}

func cmdIs(name, key string) gomock.Matcher {
	return mock.MatchFn(func(cmd []string) bool {
		return len(cmd) > 1 && cmd[0] == name && cmd[1] == key
	})
}

func assertContains(t *testing.T, args []string, want string) {
	t.Helper()
	assert.Contains(t, args, want)
}

func TestNewStore_RequiresAddrs(t *testing.T) {
	_, err := NewStore(Config{})
	assert.Error(t, err)
}

func TestPing(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().Do(gomock.Any(), mock.Match("PING")).Return(mock.Result(mock.RedisString("PONG")))
	require.NoError(t, s.Ping(context.Background()))

	c.EXPECT().Do(gomock.Any(), mock.Match("PING")).Return(mock.ErrorResult(context.DeadlineExceeded))
	assert.ErrorIs(t, s.Ping(context.Background()), context.DeadlineExceeded)
}

func TestWaitForReady_RetriesUntilPong(t *testing.T) {
	s, c := newMockStore(t)
	gomock.InOrder(
		c.EXPECT().Do(gomock.Any(), mock.Match("PING")).Return(mock.ErrorResult(errors.New("loading"))),
		c.EXPECT().Do(gomock.Any(), mock.Match("PING")).Return(mock.Result(mock.RedisString("PONG"))),
	)
	require.NoError(t, s.WaitForReady(context.Background(), time.Second))
}

func TestWaitForReady_Timeout(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().Do(gomock.Any(), mock.Match("PING")).Return(mock.ErrorResult(errors.New("down"))).AnyTimes()

	err := s.WaitForReady(context.Background(), 150*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "down")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"redis nil", mock.Result(mock.RedisNil()).Error(), db.ErrKeyNotFound},
		{"unknown index", mock.Result(mock.RedisError("Unknown Index name")).Error(), db.ErrIndexNotFound},
		{"no such index", mock.Result(mock.RedisError("footage:clips:idx: no such index")).Error(), db.ErrIndexNotFound},
		{"index exists", mock.Result(mock.RedisError("Index already exists")).Error(), db.ErrIndexExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(db.OpGet, "k", tt.err)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}

	cause := errors.New("i/o timeout")
	var dbErr *db.Error
	require.ErrorAs(t, classify(db.OpHSet, "footage:clip:1_1", cause), &dbErr)
	assert.Equal(t, db.OpHSet, dbErr.Op)
	assert.Equal(t, "footage:clip:1_1", dbErr.Target)
}

func TestHSetMulti(t *testing.T) {
	s, c := newMockStore(t)
	require.NoError(t, s.HSetMulti(context.Background(), nil))

	items := []db.HashSetItem{
		{Key: "footage:clip:1_1", Fields: map[string]string{"start": "0"}},
		{Key: "footage:clip:1_2", Fields: map[string]string{"start": "30"}},
	}
	c.EXPECT().DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).Return([]rueidis.RedisResult{
		mock.Result(mock.RedisInt64(2)),
		mock.Result(mock.RedisInt64(2)),
	})
	require.NoError(t, s.HSetMulti(context.Background(), items))

	c.EXPECT().DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).Return([]rueidis.RedisResult{
		mock.Result(mock.RedisInt64(2)),
		mock.ErrorResult(errors.New("OOM")),
	})
	err := s.HSetMulti(context.Background(), items)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "footage:clip:1_2"), err.Error())
}

func TestHGetAll(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().Do(gomock.Any(), mock.Match("HGETALL", "k")).Return(mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{
		"payload": mock.RedisString(`{"clip_id":"1_1"}`),
	})))
	m, err := s.HGetAll(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, `{"clip_id":"1_1"}`, m["payload"])

	c.EXPECT().Do(gomock.Any(), mock.Match("HGETALL", "gone")).Return(mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{})))
	_, err = s.HGetAll(context.Background(), "gone")
	assert.ErrorIs(t, err, db.ErrKeyNotFound)
}

func TestDel(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().Do(gomock.Any(), mock.Match("DEL", "k")).Return(mock.Result(mock.RedisInt64(1)))
	require.NoError(t, s.Del(context.Background(), "k"))

	c.EXPECT().Do(gomock.Any(), mock.Match("DEL", "gone")).Return(mock.Result(mock.RedisInt64(0)))
	assert.ErrorIs(t, s.Del(context.Background(), "gone"), db.ErrKeyNotFound)

	c.EXPECT().Do(gomock.Any(), mock.Match("DEL", "k")).Return(mock.ErrorResult(errors.New("LOADING")))
	var dbErr *db.Error
	assert.ErrorAs(t, s.Del(context.Background(), "k"), &dbErr)
}

func TestGet(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().Do(gomock.Any(), mock.Match("GET", "emb:1")).Return(mock.Result(mock.RedisBlobString("vec")))
	data, err := s.Get(context.Background(), "emb:1")
	require.NoError(t, err)
	assert.Equal(t, "vec", string(data))

	c.EXPECT().Do(gomock.Any(), mock.Match("GET", "emb:2")).Return(mock.Result(mock.RedisNil()))
	_, err = s.Get(context.Background(), "emb:2")
	assert.ErrorIs(t, err, db.ErrKeyNotFound)
}

func TestSetWithTTL(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().Do(gomock.Any(), mock.Match("SET", "emb:1", "v", "EX", "60")).Return(mock.Result(mock.RedisString("OK")))
	require.NoError(t, s.SetWithTTL(context.Background(), "emb:1", []byte("v"), time.Minute))

	c.EXPECT().Do(gomock.Any(), mock.Match("SET", "emb:1", "v")).Return(mock.Result(mock.RedisString("OK")))
	require.NoError(t, s.SetWithTTL(context.Background(), "emb:1", []byte("v"), 0))
}

func clipSchema() *db.Schema {
	return db.NewSchema("footage:clips:idx", "footage:clip:").
		Tag("actors", "|").
		Numeric("start").
		Vector("vector", db.VectorParams{Algorithm: db.VectorHNSW, Dim: 3, M: 16, EFConstruct: 200})
}

func TestCreateArgs(t *testing.T) {
	got := createArgs(clipSchema())
	want := []string{
		"footage:clips:idx", "ON", "HASH", "PREFIX", "1", "footage:clip:", "SCHEMA",
		"actors", "TAG", "SEPARATOR", "|",
		"start", "NUMERIC", "SORTABLE",
		"vector", "VECTOR", "HNSW", "10",
		"TYPE", "FLOAT32", "DIM", "3", "DISTANCE_METRIC", "COSINE", "M", "16", "EF_CONSTRUCTION", "200",
	}
	assert.Equal(t, want, got)
}

func TestVectorArgs_Flat(t *testing.T) {
	got := vectorArgs(db.VectorParams{Dim: 8, M: 16}.Normalized())
	assert.Equal(t, []string{"FLAT", "6", "TYPE", "FLOAT32", "DIM", "8", "DISTANCE_METRIC", "COSINE"}, got)
}

func TestCreateIndex(t *testing.T) {
	tests := []struct {
		name  string
		reply rueidis.RedisResult
		want  error
	}{
		{"created", mock.Result(mock.RedisString("OK")), nil},
		{"exists", mock.Result(mock.RedisError("Index already exists")), db.ErrIndexExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, c := newMockStore(t)
			c.EXPECT().Do(gomock.Any(), cmdIs("FT.CREATE", "footage:clips:idx")).Return(tt.reply)
			err := s.CreateIndex(context.Background(), clipSchema())
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestCreateIndex_InvalidSchemaNeverHitsServer(t *testing.T) {
	s, _ := newMockStore(t)
	err := s.CreateIndex(context.Background(), db.NewSchema("bad name", "p:"))
	assert.Error(t, err)
}

func TestDropIndex(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().Do(gomock.Any(), mock.Match("FT.DROPINDEX", "idx", "DD")).Return(mock.Result(mock.RedisString("OK")))
	require.NoError(t, s.DropIndex(context.Background(), "idx", true))

	c.EXPECT().Do(gomock.Any(), mock.Match("FT.DROPINDEX", "idx")).Return(mock.Result(mock.RedisError("Unknown Index name")))
	assert.ErrorIs(t, s.DropIndex(context.Background(), "idx", false), db.ErrIndexNotFound)
}

func TestIndexExists(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().Do(gomock.Any(), mock.Match("FT.INFO", "idx")).
		Return(mock.Result(mock.RedisArray(mock.RedisString("index_name"), mock.RedisString("idx"))))
	ok, err := s.IndexExists(context.Background(), "idx")
	require.NoError(t, err)
	assert.True(t, ok)

	c.EXPECT().Do(gomock.Any(), mock.Match("FT.INFO", "idx")).Return(mock.Result(mock.RedisError("Unknown Index name")))
	ok, err = s.IndexExists(context.Background(), "idx")
	require.NoError(t, err)
	assert.False(t, ok)

	c.EXPECT().Do(gomock.Any(), mock.Match("FT.INFO", "idx")).Return(mock.ErrorResult(context.Canceled))
	_, err = s.IndexExists(context.Background(), "idx")
	assert.ErrorIs(t, err, context.Canceled)
}
