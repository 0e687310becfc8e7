//go:build integration

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"eam/pkg/testutil/containers"
)

func TestPostgresJobStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	pg := containers.GetManager().GetPostgres(t)
	suite.Run(t, &JobStoreSuite{newStore: func() jobStore {
		if err := pg.TruncateTables(context.Background(), "sync_jobs"); err != nil {
			t.Fatalf("truncate sync_jobs: %v", err)
		}
		return NewPostgres(pg.DB)
	}})
}
