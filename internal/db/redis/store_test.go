package redis

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/spectradex/internal/db"
)

var errTimeout = context.DeadlineExceeded

func mockStore(t *testing.T) (*Store, *mock.Client) {
	t.Helper()
	c := mock.NewClient(gomock.NewController(t))
	return newStore(c), c
}

func isDBError(err error, op string) bool {
	var dbErr *db.Error
	return errors.As(err, &dbErr) && dbErr.Op == op
}

func TestNewStore_RequiresAddrs(t *testing.T) {
	if _, err := NewStore(Config{}); err == nil {
		t.Fatal("expected error for empty addrs")
	}
}

func TestPing(t *testing.T) {
	tests := []struct {
		name    string
		result  rueidis.RedisResult
		wantErr bool
	}{
		{"pong", mock.Result(mock.RedisString("PONG")), false},
		{"timeout", mock.ErrorResult(errTimeout), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, c := mockStore(t)
			c.EXPECT().Do(gomock.Any(), mock.Match("PING")).Return(tt.result)

			err := s.Ping(context.Background())
			if tt.wantErr != (err != nil) {
				t.Fatalf("Ping() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !isDBError(err, db.OpPing) {
				t.Errorf("expected PING db.Error, got %v", err)
			}
		})
	}
}

func TestWaitForReady_RetriesUntilPong(t *testing.T) {
	s, c := mockStore(t)
	gomock.InOrder(
		c.EXPECT().Do(gomock.Any(), mock.Match("PING")).Return(mock.ErrorResult(errors.New("connection refused"))),
		c.EXPECT().Do(gomock.Any(), mock.Match("PING")).Return(mock.Result(mock.RedisString("PONG"))),
	)
	if err := s.WaitForReady(context.Background(), time.Second); err != nil {
		t.Fatalf("WaitForReady: %v", err)
	}
}

func TestWaitForReady_Timeout(t *testing.T) {
	s, c := mockStore(t)
	c.EXPECT().Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(errors.New("connection refused"))).MinTimes(1)

	err := s.WaitForReady(context.Background(), 150*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestGet(t *testing.T) {
	tests := []struct {
		name     string
		result   rueidis.RedisResult
		want     string
		notFound bool
		opErr    bool
	}{
		{name: "hit", result: mock.Result(mock.RedisBlobString("payload")), want: "payload"},
		{name: "miss", result: mock.Result(mock.RedisNil()), notFound: true},
		{name: "network", result: mock.ErrorResult(errTimeout), opErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, c := mockStore(t)
			c.EXPECT().Do(gomock.Any(), mock.Match("GET", "hist:1")).Return(tt.result)

			data, err := s.Get(context.Background(), "hist:1")
			if errors.Is(err, db.ErrKeyNotFound) != tt.notFound {
				t.Fatalf("ErrKeyNotFound = %v, want %v (err %v)", !tt.notFound, tt.notFound, err)
			}
			if isDBError(err, db.OpGet) != tt.opErr {
				t.Fatalf("GET db.Error = %v, want %v (err %v)", !tt.opErr, tt.opErr, err)
			}
			if string(data) != tt.want {
				t.Errorf("data = %q, want %q", data, tt.want)
			}
		})
	}
}

func TestSetWithTTL(t *testing.T) {
	tests := []struct {
		name string
		ttl  time.Duration
		want []string
	}{
		{"expiring", time.Minute, []string{"SET", "hist:1", "payload", "EX", "60"}},
		{"persistent", 0, []string{"SET", "hist:1", "payload"}},
		{"negative", -time.Second, []string{"SET", "hist:1", "payload"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, c := mockStore(t)
			c.EXPECT().
				Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return slices.Equal(cmd, tt.want) })).
				Return(mock.Result(mock.RedisString("OK")))

			if err := s.SetWithTTL(context.Background(), "hist:1", []byte("payload"), tt.ttl); err != nil {
				t.Fatalf("SetWithTTL: %v", err)
			}
		})
	}
}

func TestSetWithTTL_Error(t *testing.T) {
	s, c := mockStore(t)
	c.EXPECT().Do(gomock.Any(), gomock.Any()).Return(mock.ErrorResult(errTimeout))

	err := s.SetWithTTL(context.Background(), "hist:1", []byte("payload"), time.Minute)
	if !isDBError(err, db.OpSet) {
		t.Errorf("expected SET db.Error, got %v", err)
	}
}

func TestDel(t *testing.T) {
	s, c := mockStore(t)
	c.EXPECT().Do(gomock.Any(), mock.Match("DEL", "a", "b")).Return(mock.Result(mock.RedisInt64(2)))

	if err := s.Del(context.Background(), "a", "b"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	// no keys, no round trip
	if err := s.Del(context.Background()); err != nil {
		t.Fatalf("Del(): %v", err)
	}
}

func TestScan_FollowsCursor(t *testing.T) {
	s, c := mockStore(t)
	page := func(cursor int64, keys ...string) rueidis.RedisResult {
		elems := make([]rueidis.RedisMessage, len(keys))
		for i, k := range keys {
			elems[i] = mock.RedisString(k)
		}
		return mock.Result(mock.RedisArray(mock.RedisInt64(cursor), mock.RedisArray(elems...)))
	}
	isScan := mock.MatchFn(func(cmd []string) bool { return cmd[0] == "SCAN" && slices.Contains(cmd, "hist:7:*") })
	gomock.InOrder(
		c.EXPECT().Do(gomock.Any(), isScan).Return(page(42, "hist:7:a", "hist:7:b")),
		c.EXPECT().Do(gomock.Any(), isScan).Return(page(0, "hist:7:c")),
	)

	keys, err := s.Scan(context.Background(), "hist:7:*")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !slices.Equal(keys, []string{"hist:7:a", "hist:7:b", "hist:7:c"}) {
		t.Errorf("keys = %v", keys)
	}
}

func TestScan_Error(t *testing.T) {
	s, c := mockStore(t)
	c.EXPECT().Do(gomock.Any(), gomock.Any()).Return(mock.ErrorResult(errTimeout))

	if _, err := s.Scan(context.Background(), "hist:*"); !isDBError(err, db.OpScan) {
		t.Errorf("expected SCAN db.Error, got %v", err)
	}
}

func TestHSet(t *testing.T) {
	s, c := mockStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return len(cmd) == 4 && cmd[0] == "HSET" && cmd[1] == "meta:1" && cmd[2] == "particles" && cmd[3] == "12"
		})).
		Return(mock.Result(mock.RedisInt64(1)))

	if err := s.HSet(context.Background(), "meta:1", map[string]string{"particles": "12"}); err != nil {
		t.Fatalf("HSet: %v", err)
	}
	if err := s.HSet(context.Background(), "meta:1", nil); err != nil {
		t.Fatalf("HSet(nil): %v", err)
	}
}

func TestHSet_Error(t *testing.T) {
	s, c := mockStore(t)
	c.EXPECT().Do(gomock.Any(), gomock.Any()).Return(mock.ErrorResult(errTimeout))

	err := s.HSet(context.Background(), "meta:1", map[string]string{"f": "v"})
	if !isDBError(err, db.OpHSet) {
		t.Errorf("expected HSET db.Error, got %v", err)
	}
}

func TestHGetAll(t *testing.T) {
	s, c := mockStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGETALL", "meta:1")).
		Return(mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{
			"particles": mock.RedisString("12"),
			"bytes":     mock.RedisString("900"),
		})))

	m, err := s.HGetAll(context.Background(), "meta:1")
	if err != nil {
		t.Fatalf("HGetAll: %v", err)
	}
	if m["particles"] != "12" || m["bytes"] != "900" {
		t.Errorf("unexpected map: %v", m)
	}
}
