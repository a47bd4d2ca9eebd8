package labels

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntries() []Entry {
	return []Entry{
		{Label: "WTI oil", ID: "FRED/DCOILWTICO"},
		{Label: "Brent oil", ID: "FRED/DCOILBRENTEU"},
		{Label: "Henry Hub gas", ID: "FRED/DHHNGSP"},
	}
}

func TestNew_PreservesOrder(t *testing.T) {
	reg, err := New("sources", testEntries())
	require.NoError(t, err)

	assert.Equal(t, "sources", reg.Name())
	assert.Equal(t, 3, reg.Len())
	assert.Equal(t, []string{"WTI oil", "Brent oil", "Henry Hub gas"}, reg.Labels())
	assert.Equal(t, []string{"FRED/DCOILWTICO", "FRED/DCOILBRENTEU", "FRED/DHHNGSP"}, reg.IDs())
}

func TestRegistry_RoundTrip(t *testing.T) {
	reg, err := New("sources", testEntries())
	require.NoError(t, err)

	for _, label := range reg.Labels() {
		id, err := reg.ResolveID(label)
		require.NoError(t, err)
		back, err := reg.ResolveLabel(id)
		require.NoError(t, err)
		assert.Equal(t, label, back)
	}

	for _, id := range reg.IDs() {
		label, err := reg.ResolveLabel(id)
		require.NoError(t, err)
		back, err := reg.ResolveID(label)
		require.NoError(t, err)
		assert.Equal(t, id, back)
	}
}

func TestRegistry_UnknownLookups(t *testing.T) {
	reg, err := New("sources", testEntries())
	require.NoError(t, err)

	_, err = reg.ResolveID("Copper")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownLabel))
	var labelErr *UnknownLabelError
	require.True(t, errors.As(err, &labelErr))
	assert.Equal(t, "Copper", labelErr.Label)

	_, err = reg.ResolveLabel("LME/PR_CU")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownIdentifier))
	assert.False(t, reg.HasID("LME/PR_CU"))
	assert.True(t, reg.HasID("FRED/DHHNGSP"))
}

func TestNew_RejectsNonBijection(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
		index   int
	}{
		{
			name: "repeated label",
			entries: []Entry{
				{Label: "WTI oil", ID: "FRED/DCOILWTICO"},
				{Label: "WTI oil", ID: "EIA/PET_RWTC_D"},
			},
			index: 1,
		},
		{
			name: "repeated identifier",
			entries: []Entry{
				{Label: "WTI oil", ID: "FRED/DCOILWTICO"},
				{Label: "Crude", ID: "FRED/DCOILWTICO"},
			},
			index: 1,
		},
		{
			name:    "empty label",
			entries: []Entry{{Label: "", ID: "FRED/DCOILWTICO"}},
			index:   0,
		},
		{
			name:    "empty identifier",
			entries: []Entry{{Label: "WTI oil"}},
			index:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, err := New("sources", tt.entries)
			assert.Nil(t, reg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrRegistryIntegrity))

			var integrityErr *IntegrityError
			require.True(t, errors.As(err, &integrityErr))
			assert.Equal(t, tt.index, integrityErr.Index)
			assert.Equal(t, "sources", integrityErr.Registry)
		})
	}
}

func TestEntries_ReturnsCopy(t *testing.T) {
	reg, err := New("sources", testEntries())
	require.NoError(t, err)

	entries := reg.Entries()
	entries[0].Label = "mutated"

	label, err := reg.ResolveLabel("FRED/DCOILWTICO")
	require.NoError(t, err)
	assert.Equal(t, "WTI oil", label)
	assert.Equal(t, "WTI oil", reg.Entries()[0].Label)
}

func TestMustNew_Panics(t *testing.T) {
	assert.Panics(t, func() {
		MustNew("periods", []Entry{{Label: "months", ID: "monthly"}, {Label: "months", ID: "weekly"}})
	})
	assert.NotPanics(t, func() {
		MustNew("periods", []Entry{{Label: "months", ID: "monthly"}})
	})
}
