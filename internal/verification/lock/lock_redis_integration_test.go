//go:build integration

package lock_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"veriterra/internal/verification/lock"
	id "veriterra/pkg/domain"
	"veriterra/pkg/platform/sentinel"
	"veriterra/pkg/testutil/containers"
)

type RedisLockerSuite struct {
	suite.Suite
	redis     *containers.RedisContainer
	projectID id.ProjectID
}

func TestRedisLockerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisLockerSuite))
}

func (s *RedisLockerSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
}

func (s *RedisLockerSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
	s.projectID = id.MustProjectID("7f9c24e8-3b13-4a2f-a912-4ca19de0f2b1")
}

func (s *RedisLockerSuite) TearDownSuite() {
	_ = s.redis.Client.Close()
	_ = s.redis.Container.Terminate(context.Background())
}

func (s *RedisLockerSuite) TestSecondAcquireConflictsUntilRelease() {
	ctx := context.Background()
	locker := lock.NewRedis(s.redis.Client)

	release, err := locker.Acquire(ctx, s.projectID)
	s.Require().NoError(err)

	_, err = locker.Acquire(ctx, s.projectID)
	s.ErrorIs(err, sentinel.ErrConflict)

	s.Require().NoError(release(ctx))

	release, err = locker.Acquire(ctx, s.projectID)
	s.Require().NoError(err)
	s.Require().NoError(release(ctx))
}

func (s *RedisLockerSuite) TestExpiredLeaseCannotReleaseSuccessor() {
	ctx := context.Background()
	locker := lock.NewRedis(s.redis.Client, lock.WithLeaseTTL(100*time.Millisecond))

	staleRelease, err := locker.Acquire(ctx, s.projectID)
	s.Require().NoError(err)

	// Let the first lease expire, then take the project again.
	time.Sleep(200 * time.Millisecond)
	release, err := locker.Acquire(ctx, s.projectID)
	s.Require().NoError(err)

	// The stale holder's release must be a no-op for the new lease.
	s.Require().NoError(staleRelease(ctx))
	_, err = locker.Acquire(ctx, s.projectID)
	s.ErrorIs(err, sentinel.ErrConflict)

	s.Require().NoError(release(ctx))
}

func (s *RedisLockerSuite) TestDifferentProjectsDoNotContend() {
	ctx := context.Background()
	locker := lock.NewRedis(s.redis.Client)

	releaseA, err := locker.Acquire(ctx, s.projectID)
	s.Require().NoError(err)
	defer releaseA(ctx)

	releaseB, err := locker.Acquire(ctx, id.MustProjectID("11e38d29-96a1-4f4b-bd5a-62c1f0e9b833"))
	s.Require().NoError(err)
	defer releaseB(ctx)
}
