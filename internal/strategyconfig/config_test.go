package strategyconfig

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// 저장소 기본 설정 파일
	path := "../../config/strategy.yaml"
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skip("config file not found")
	}

	cfg, yamlData, err := Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, yamlData)

	assert.Equal(t, "us_equity_biweekly", cfg.Meta.StrategyID)
	assert.Equal(t, 20, cfg.Portfolio.TargetCount)
	assert.InDelta(t, 0.25, cfg.Portfolio.SectorCap, 1e-9)
	assert.InDelta(t, 1.05, cfg.Ranking.Weights.Sum(), 1e-9)

	// 파일과 기본값은 같은 해시
	fileHash, err := Hash(cfg)
	require.NoError(t, err)
	defaultHash, err := Hash(Default())
	require.NoError(t, err)
	assert.Len(t, fileHash, 64)
	assert.Equal(t, defaultHash, fileHash)
}

func TestParse_PartialOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
portfolio:
  target_count: 10
  max_weight: 0.15
execution:
  notional: 100000
`))
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Portfolio.TargetCount)
	assert.InDelta(t, 0.15, cfg.Portfolio.MaxWeight, 1e-9)
	assert.InDelta(t, 0.02, cfg.Portfolio.MinWeight, 1e-9)
	assert.InDelta(t, 100000, cfg.Execution.Notional, 1e-9)
	assert.Equal(t, "0 0 14 * * MON", cfg.Schedule.Cron)
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte(`
portfolio:
  sector_capp: 0.3
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sector_capp")
}

func TestValidate_JoinsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Ranking.Weights = RankingWeights{}
	cfg.Portfolio.MinWeight = 0.2 // > max_weight, 20*20 > 100
	cfg.Execution.Notional = 0
	cfg.Schedule.Cron = "every monday"

	err := Validate(cfg)
	require.Error(t, err)

	fields := map[string]bool{}
	for _, e := range err.(interface{ Unwrap() []error }).Unwrap() {
		var ve ValidationError
		require.True(t, errors.As(e, &ve))
		fields[ve.Field] = true
	}
	assert.True(t, fields["ranking.weights"])
	assert.True(t, fields["portfolio"])
	assert.True(t, fields["execution.notional"])
	assert.True(t, fields["schedule.cron"])
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"default is valid", func(*Config) {}, ""},
		{"missing strategy id", func(c *Config) { c.Meta.StrategyID = "" }, "meta.strategy_id"},
		{"bad timezone", func(c *Config) { c.Meta.Timezone = "Mars/Olympus" }, "meta.timezone"},
		{"negative weight", func(c *Config) {
			c.Ranking.Weights.Momentum = -0.05
			c.Ranking.Weights.Value = 0.30
		}, "ranking.weights.momentum"},
		{"weights need not sum to one", func(c *Config) { c.Ranking.Weights.Value = 0.5 }, ""},
		{"all weights zero", func(c *Config) { c.Ranking.Weights = RankingWeights{} }, "ranking.weights"},
		{"positive penalty floor", func(c *Config) { c.Ranking.UpsidePenalty.Floor = 0.1 }, "ranking.upside_penalty.floor"},
		{"cap below max weight", func(c *Config) { c.Portfolio.SectorCap = 0.05 }, "portfolio"},
		{"unknown weighting", func(c *Config) { c.Portfolio.WeightingMode = "kelly" }, "portfolio.weighting_mode"},
		{"cannot reach 100", func(c *Config) { c.Portfolio.TargetCount = 5 }, "portfolio"},
		{"parity out of range", func(c *Config) { c.Schedule.WeekParity = 2 }, "schedule.week_parity"},
		{"zero iterations", func(c *Config) { c.Portfolio.MaxRebalanceIterations = 0 }, "portfolio.max_rebalance_iterations"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var ve ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestWarn(t *testing.T) {
	assert.Empty(t, Warn(Default()))

	cfg := Default()
	cfg.Screening.MinPrice = 0.5
	cfg.Portfolio.SectorTolerance = 0.08

	codes := []string{}
	for _, w := range Warn(cfg) {
		codes = append(codes, w.Code)
	}
	assert.ElementsMatch(t, []string{"PENNY_STOCKS", "WIDE_SECTOR_TOLERANCE"}, codes)
}

func TestConverters(t *testing.T) {
	cfg := Default()
	cfg.Portfolio.Blacklist = []string{"GME"}

	cons := cfg.Constraints()
	require.NoError(t, cons.Validate())
	assert.True(t, cons.IsBlackListed("GME"))
	assert.Equal(t, 100, cons.MaxIterations)

	cfg.Portfolio.Blacklist[0] = "AMC"
	assert.True(t, cons.IsBlackListed("GME"), "constraints keep their own blacklist copy")

	w := cfg.WeightConfig()
	assert.True(t, w.ValidateWeights())
	assert.InDelta(t, 0.25, w.Quality, 1e-9)

	p := cfg.Penalty()
	assert.InDelta(t, -0.20, p.Floor, 1e-9)

	pc := cfg.PortfolioConfig("abc")
	assert.Equal(t, "abc", pc.ConfigHash)
	assert.Equal(t, 14, pc.HorizonDays)
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, data, err := LoadOrDefault(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Equal(t, Default(), cfg)

	again, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestNewDecisionSnapshot(t *testing.T) {
	cfg := Default()
	snap, err := NewDecisionSnapshot(cfg, []byte("meta: {}"), "run-1")
	require.NoError(t, err)

	hash, _ := Hash(cfg)
	assert.Equal(t, hash, snap.ConfigHash)
	assert.Equal(t, "run-1", snap.RunID)
	assert.Equal(t, cfg.Meta.StrategyID, snap.StrategyID)
}

func TestWriteSnapshot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run-1")
	snap, err := NewDecisionSnapshot(Default(), []byte("meta: {}"), "run-1")
	require.NoError(t, err)

	require.NoError(t, WriteSnapshot(dir, snap))

	data, err := os.ReadFile(filepath.Join(dir, SnapshotFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"config_hash": "`+snap.ConfigHash+`"`)
}
