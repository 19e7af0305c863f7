package compliance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gctidash/internal/dataset"
	"gctidash/internal/shared/testutil"
	"gctidash/pkg/contracts/domain"
)

func TestAggregator_NonCompliance(t *testing.T) {
	tests := []struct {
		name        string
		ds          *dataset.Dataset
		wantPercent float64
		wantMeets   bool
		wantStatus  string
	}{
		{
			name:        "all authorized",
			ds:          testutil.Incidents(testutil.Repeat(testutil.High(60), 10)...),
			wantPercent: 0,
			wantMeets:   true,
			wantStatus:  StatusMeetsTarget,
		},
		{
			name:        "all unauthorized",
			ds:          testutil.Incidents(testutil.Repeat(testutil.Low(600).Unauthorized(), 7)...),
			wantPercent: 100,
			wantMeets:   false,
			wantStatus:  StatusMissesTarget,
		},
		{
			name: "exactly at threshold misses target",
			ds: testutil.Incidents(append(
				testutil.Repeat(testutil.Medium(100), 19),
				testutil.Medium(100).Unauthorized(),
			)...),
			wantPercent: 5,
			wantMeets:   false,
			wantStatus:  StatusMissesTarget,
		},
		{
			name: "just below threshold meets target although display rounds to threshold",
			ds: testutil.Incidents(append(
				testutil.Repeat(testutil.Medium(100), 2502-125),
				testutil.Repeat(testutil.Medium(100).Unauthorized(), 125)...,
			)...),
			wantPercent: 5,
			wantMeets:   true,
			wantStatus:  StatusMeetsTarget,
		},
		{
			name: "one in three rounds to two decimals",
			ds: testutil.Incidents(
				testutil.High(40),
				testutil.High(40),
				testutil.High(40).Unauthorized(),
			),
			wantPercent: 33.33,
			wantMeets:   false,
			wantStatus:  StatusMissesTarget,
		},
	}

	agg := NewAggregator(DefaultPolicy())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate, err := agg.NonCompliance(tt.ds)
			require.NoError(t, err)

			assert.Equal(t, tt.wantPercent, rate.Percent)
			assert.Equal(t, tt.wantMeets, rate.MeetsTarget)
			assert.Equal(t, tt.wantStatus, rate.Status)
			assert.Equal(t, tt.ds.Len(), rate.Total)
			assert.Equal(t, DefaultNonComplianceThresholdPct, rate.ThresholdPct)
		})
	}
}

func TestAggregator_NonComplianceEmpty(t *testing.T) {
	agg := NewAggregator(DefaultPolicy())

	_, err := agg.NonCompliance(testutil.Incidents())

	assert.ErrorIs(t, err, ErrEmptyDataset)
	assert.True(t, IsEmpty(err))
}

func TestAggregator_CustomThreshold(t *testing.T) {
	ds := testutil.Incidents(append(
		testutil.Repeat(testutil.Medium(100), 9),
		testutil.Medium(100).Unauthorized(),
	)...)

	rate, err := NewAggregator(Policy{NonComplianceThresholdPct: 15}).NonCompliance(ds)
	require.NoError(t, err)
	assert.True(t, rate.MeetsTarget)

	assert.Equal(t, DefaultNonComplianceThresholdPct, NewAggregator(Policy{}).Policy().NonComplianceThresholdPct)
}

func TestAggregator_EventBreakdown(t *testing.T) {
	events := domain.NonComplianceEvents()
	ds := testutil.Incidents(
		testutil.High(60).Unauthorized().Event(events[2]),
		testutil.High(60).Unauthorized().Event(events[1]),
		testutil.High(60).Unauthorized().Event(events[2]),
		testutil.High(60).Unauthorized().Event(events[0]),
		testutil.High(60).Event("Hardware failure"),
		testutil.High(60).Event("Hardware failure"),
		testutil.High(60).Event("Hardware failure"),
	)

	got := NewAggregator(DefaultPolicy()).EventBreakdown(ds)

	assert.Equal(t, []Count{
		{Label: events[2], Count: 2},
		{Label: events[1], Count: 1},
		{Label: events[0], Count: 1},
	}, got)
}

func TestAggregator_RiskDistributionZeroFilled(t *testing.T) {
	ds := testutil.Incidents(
		testutil.Low(200),
		testutil.Low(200),
		testutil.High(60).Unauthorized(),
	)

	got := NewAggregator(DefaultPolicy()).RiskDistribution(ds)

	assert.Equal(t, []Count{
		{Label: "Critical", Count: 1},
		{Label: "High", Count: 0},
		{Label: "Medium", Count: 0},
		{Label: "Low", Count: 2},
	}, got)
}

func TestAggregator_AuthorizationAndMaturity(t *testing.T) {
	ds := testutil.Incidents(
		testutil.High(60),
		testutil.High(60).Maturity("Level 2"),
		testutil.Medium(60).Unauthorized(),
	)
	agg := NewAggregator(DefaultPolicy())

	assert.Equal(t, []Count{
		{Label: LabelAuthorized, Count: 2},
		{Label: LabelUnauthorized, Count: 1},
	}, agg.AuthorizationSplit(ds))

	assert.Equal(t, []Count{
		{Label: domain.MaturityLevelTarget, Count: 2},
		{Label: "Level 2", Count: 1},
	}, agg.MaturityDistribution(ds))
}

func TestAggregator_ReportOnGeneratedDataset(t *testing.T) {
	ds, err := dataset.Generate(dataset.DefaultOptions(testutil.FixtureDate))
	require.NoError(t, err)

	report, err := NewAggregator(DefaultPolicy()).Report(ds)
	require.NoError(t, err)

	riskTotal := 0
	for _, c := range report.RiskDistribution {
		riskTotal += c.Count
	}
	assert.Equal(t, ds.Len(), riskTotal)

	breakdownTotal := 0
	for i, c := range report.EventBreakdown {
		assert.True(t, domain.IsNonComplianceEvent(c.Label))
		if i > 0 {
			assert.GreaterOrEqual(t, report.EventBreakdown[i-1].Count, c.Count)
		}
		breakdownTotal += c.Count
	}
	assert.Equal(t, report.NonCompliance.Unauthorized, breakdownTotal)
	assert.Equal(t, []Count{{Label: domain.MaturityLevelTarget, Count: ds.Len()}}, report.MaturityLevels)
}

func TestAggregator_ReportEmpty(t *testing.T) {
	_, err := NewAggregator(DefaultPolicy()).Report(testutil.Incidents())
	assert.ErrorIs(t, err, ErrEmptyDataset)
}
