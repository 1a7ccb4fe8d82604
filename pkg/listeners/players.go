package listeners

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/go-mclib/pingapi/pkg/ping"
)

// PlayerStore reports players shared across a network of servers.
type PlayerStore interface {
	Online(ctx context.Context) (int64, error)
	Sample(ctx context.Context, n int) ([]string, error)
}

// RedisStore keeps online players as members of a redis set.
type RedisStore struct {
	client    redis.Cmdable
	onlineKey string
	sampleKey string
}

func NewRedisStore(client redis.Cmdable, onlineKey, sampleKey string) *RedisStore {
	if sampleKey == "" {
		sampleKey = onlineKey
	}
	return &RedisStore{client: client, onlineKey: onlineKey, sampleKey: sampleKey}
}

func (s *RedisStore) Online(ctx context.Context) (int64, error) {
	n, err := s.client.SCard(ctx, s.onlineKey).Result()
	if err != nil {
		return 0, fmt.Errorf("scard %s: %w", s.onlineKey, err)
	}
	return n, nil
}

func (s *RedisStore) Sample(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		return []string{}, nil
	}
	names, err := s.client.SRandMemberN(ctx, s.sampleKey, int64(n)).Result()
	if err != nil {
		return nil, fmt.Errorf("srandmember %s: %w", s.sampleKey, err)
	}
	return names, nil
}

// Players fills the online count and sample from a PlayerStore. The lookup
// runs on the connection's write path, so Timeout bounds the stall.
type Players struct {
	Store      PlayerStore
	SampleSize int
	Timeout    time.Duration
	Logger     *log.Logger
}

func (p *Players) OnPing(e *ping.Event) {
	ctx := context.Background()
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	online, err := p.Store.Online(ctx)
	if err != nil {
		p.logf("players: %v", err)
		return
	}
	e.Reply().SetOnlinePlayers(int(online))

	names, err := p.Store.Sample(ctx, p.SampleSize)
	if err != nil {
		p.logf("players: %v", err)
		return
	}
	e.Reply().SetPlayerSample(names)
}

func (p *Players) logf(format string, args ...any) {
	if p.Logger != nil {
		p.Logger.Printf(format, args...)
	}
}
