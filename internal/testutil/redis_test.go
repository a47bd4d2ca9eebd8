package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupTestRedis(t *testing.T) {
	client, server := SetupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "k", "v", time.Minute).Err())
	got, err := server.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestMonthlySeries(t *testing.T) {
	start := time.Date(2016, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2016, time.December, 31, 0, 0, 0, 0, time.UTC)

	series := MonthlySeries("FRED/DCOILWTICO", start, end)
	require.Equal(t, 12, series.Len())
	assert.Equal(t, time.Date(2016, time.January, 31, 0, 0, 0, 0, time.UTC), series.Points[0].Time)
	assert.Equal(t, time.Date(2016, time.February, 29, 0, 0, 0, 0, time.UTC), series.Points[1].Time)
	assert.Equal(t, end, series.Points[11].Time)
	assert.NoError(t, series.CheckOrdered())
}
