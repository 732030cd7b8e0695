package solverbuilder

import (
	"context"
	"os"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/park285/chess-gif-solver/internal/chess/uci/ucitest"
	"github.com/park285/chess-gif-solver/internal/config"
)

func TestMain(m *testing.M) {
	ucitest.MaybeServe()
	os.Exit(m.Run())
}

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	return &config.AppConfig{
		EnginePath:      os.Args[0],
		EngineThreads:   1,
		EngineHashMB:    16,
		SearchBudgetSec: 0.2,
		StopGraceMS:     200,
		FrameDelayMS:    500,
		CacheTTLSec:     60,
		HistoryLimit:    5,
	}
}

func TestNewRequiresEnginePath(t *testing.T) {
	cfg := testConfig(t)
	cfg.EnginePath = ""
	_, err := New(context.Background(), cfg, nil)
	require.Error(t, err)

	_, err = New(context.Background(), nil, nil)
	require.Error(t, err)
}

func TestNewInMemoryEndToEnd(t *testing.T) {
	t.Setenv(ucitest.EnvMode, ucitest.ModeNormal)
	t.Setenv(ucitest.EnvPV, "e2e4 e8d7")

	deps, err := New(context.Background(), testConfig(t), nil)
	require.NoError(t, err)
	defer deps.Close()
	require.Nil(t, deps.Cache)

	svc := deps.Service
	require.NoError(t, svc.Load("4k3/8/8/8/8/8/4P3/4K3"))
	out, err := svc.Solve(context.Background(), 0)
	require.NoError(t, err)
	require.False(t, out.Invalid)
	require.Equal(t, []string{"e2e4", "e8d7"}, out.Record.MovesUCI)
	require.Equal(t, "Best moves: e2e4 e8d7", out.Summary)
	require.Equal(t, 3, out.Record.Frames)
	require.True(t, out.Record.HasAnimation())
	require.Equal(t, 200*time.Millisecond, out.Record.Budget)
}

func TestNewWithRedisAndBadger(t *testing.T) {
	t.Setenv(ucitest.EnvMode, ucitest.ModeNormal)
	t.Setenv(ucitest.EnvPV, "e2e4")

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	cfg := testConfig(t)
	cfg.RedisURL = "redis://" + mr.Addr() + "/0"
	cfg.StoreDir = t.TempDir()
	cfg.OutputDir = t.TempDir()

	deps, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, deps.Cache)

	require.NoError(t, deps.Service.Load("4k3/8/8/8/8/8/4P3/4K3"))
	first, err := deps.Service.Solve(context.Background(), 0)
	require.NoError(t, err)
	require.FileExists(t, first.Record.AnimationPath)

	second, err := deps.Service.Solve(context.Background(), 0)
	require.NoError(t, err)
	require.True(t, second.Cached)
	require.NoError(t, deps.Close())

	reopened, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer reopened.Close()
	recent, err := reopened.Service.RecentSolves(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, second.Record.ID, recent[0].ID)
}

func TestNewFailsOnUnreachableRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig(t)
	cfg.RedisURL = "redis://" + addr
	_, err = New(context.Background(), cfg, nil)
	require.Error(t, err)
}

func TestNewFailsOnMissingPieceDir(t *testing.T) {
	cfg := testConfig(t)
	cfg.PieceAssetDir = t.TempDir() + "/absent"
	_, err := New(context.Background(), cfg, nil)
	require.Error(t, err)
}
