package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/dtiscope/internal/infrastructure/cache"
	"github.com/turtacn/dtiscope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/dtiscope/pkg/errors"
)

type CacheTestSuite struct {
	suite.Suite
	mr     *miniredis.Miniredis
	client *Client
	cache  cache.Cache
}

func (s *CacheTestSuite) SetupTest() {
	mr, err := miniredis.Run()
	s.Require().NoError(err)
	s.mr = mr

	client, err := NewClient(context.Background(), Options{Addr: mr.Addr()}, logging.NewNopLogger())
	s.Require().NoError(err)
	s.client = client
	s.cache = NewCache(client, WithPrefix("test:"), WithDefaultTTL(time.Minute))
}

func (s *CacheTestSuite) TearDownTest() {
	_ = s.client.Close()
	s.mr.Close()
}

func (s *CacheTestSuite) TestGet_Miss() {
	_, err := s.cache.Get(context.Background(), "absent")
	s.Equal(cache.ErrCacheMiss, err)
}

func (s *CacheTestSuite) TestSetThenGet_UsesPrefix() {
	ctx := context.Background()
	s.Require().NoError(s.cache.Set(ctx, "smiles:aspirin", "CC(=O)OC1=CC=CC=C1C(=O)O", 0))

	v, err := s.cache.Get(ctx, "smiles:aspirin")
	s.Require().NoError(err)
	s.Equal("CC(=O)OC1=CC=CC=C1C(=O)O", v)
	s.True(s.mr.Exists("test:smiles:aspirin"))
}

func (s *CacheTestSuite) TestSet_AppliesJitteredTTL() {
	ctx := context.Background()
	s.Require().NoError(s.cache.Set(ctx, "k", "v", 100*time.Second))
	ttl := s.mr.TTL("test:k")
	s.GreaterOrEqual(ttl, 90*time.Second)
	s.LessOrEqual(ttl, 110*time.Second)
}

func (s *CacheTestSuite) TestExpiry() {
	ctx := context.Background()
	s.Require().NoError(s.cache.Set(ctx, "k", "v", 10*time.Second))
	s.mr.FastForward(time.Minute)
	_, err := s.cache.Get(ctx, "k")
	s.Equal(cache.ErrCacheMiss, err)
}

func (s *CacheTestSuite) TestDelete() {
	ctx := context.Background()
	s.Require().NoError(s.cache.Set(ctx, "k", "v", 0))
	s.Require().NoError(s.cache.Delete(ctx, "k"))
	_, err := s.cache.Get(ctx, "k")
	s.Equal(cache.ErrCacheMiss, err)
}

func (s *CacheTestSuite) TestBackendErrorIsCacheError() {
	s.mr.SetError("ERR injected failure")
	_, err := s.cache.Get(context.Background(), "k")
	s.True(errors.IsCode(err, errors.ErrCodeCacheError))
	s.mr.SetError("")
}

func (s *CacheTestSuite) TestClosedClient() {
	s.Require().NoError(s.client.Close())
	s.Require().NoError(s.client.Close())
	_, err := s.cache.Get(context.Background(), "k")
	s.Equal(ErrClientClosed, err)
	s.Equal(ErrClientClosed, s.cache.Ping(context.Background()))
}

func (s *CacheTestSuite) TestPingAndTier() {
	s.NoError(s.cache.Ping(context.Background()))
	s.Equal("redis", s.cache.Tier())
}

func TestCacheTestSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}

func TestNewClient_ConnectionFailed(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	addr := mr.Addr()
	mr.Close()

	_, err = NewClient(context.Background(), Options{Addr: addr, DialTimeout: 200 * time.Millisecond}, nil)
	if !errors.IsCode(err, errors.ErrCodeCacheError) {
		t.Fatalf("expected cache error, got %v", err)
	}
}

//Personal.AI order the ending
