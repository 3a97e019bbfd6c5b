package entity

import (
	"testing"

	"github.com/lintang-b-s/fleetmap/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	v := NewValidator()

	testCases := []struct {
		name    string
		e       Entity
		wantErr bool
	}{
		{name: "valid agent", e: NewAgent("a1", "Ann", geo.NewCoordinate(-7.79, 110.37), StatusActive, "#ff00ff")},
		{name: "missing id", e: NewAgent("", "Ann", geo.NewCoordinate(-7.79, 110.37), StatusActive, ""), wantErr: true},
		{name: "latitude out of range", e: NewCustomer("c1", "Shop", geo.NewCoordinate(91, 0), ""), wantErr: true},
		{name: "longitude out of range", e: NewCustomer("c1", "Shop", geo.NewCoordinate(0, -181), ""), wantErr: true},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.e)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrMalformedEntity)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestFilter(t *testing.T) {
	v := NewValidator()
	list := []Entity{
		NewCustomer("c1", "One", geo.NewCoordinate(1, 1), ""),
		NewCustomer("c2", "Two", geo.NewCoordinate(100, 1), ""),
		NewCustomer("", "Nameless", geo.NewCoordinate(1, 1), ""),
		NewCustomer("c1", "One again", geo.NewCoordinate(2, 2), ""),
		NewCustomer("c3", "Three", geo.NewCoordinate(3, 3), ""),
	}

	valid, present, rejected := v.Filter(KindCustomer, list)

	require.Len(t, valid, 2)
	assert.Equal(t, "c1", valid[0].ID)
	assert.Equal(t, "One", valid[0].Name)
	assert.Equal(t, "c3", valid[1].ID)

	assert.Contains(t, present, "c2")
	assert.NotContains(t, present, "")
	assert.Len(t, present, 3)

	require.Len(t, rejected, 3)
	assert.Equal(t, "c2", rejected[0].ID)
	assert.Equal(t, 2, rejected[1].Index)
	assert.Equal(t, "duplicate id", rejected[2].Reason)
}

func TestSelection(t *testing.T) {
	s := Selection{AgentID: "a1"}
	assert.True(t, s.Selects(KindAgent, "a1"))
	assert.False(t, s.Selects(KindCustomer, "a1"))
	assert.False(t, s.Selects(KindAgent, ""))
	assert.False(t, s.IsEmpty())
	assert.True(t, Selection{}.IsEmpty())
}
