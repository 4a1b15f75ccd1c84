package namespace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReconcileProperties(t *testing.T) {
	tests := []struct {
		name      string
		props     map[string]string
		removals  []string
		updates   []Property
		wantDiff  PropertiesDiff
		wantProps map[string]string
	}{
		{
			name:     "remove existing and missing with update",
			props:    map[string]string{"a": "b"},
			removals: []string{"a", "a1"},
			updates:  []Property{{Key: "b", Value: "c"}},
			wantDiff: PropertiesDiff{
				Removed: []string{"a"},
				Missing: []string{"a1"},
				Updated: []string{"b"},
			},
			wantProps: map[string]string{"b": "c"},
		},
		{
			name:     "update takes precedence over removal",
			props:    map[string]string{"a": "b"},
			removals: []string{"a"},
			updates:  []Property{{Key: "a", Value: "c"}},
			wantDiff: PropertiesDiff{
				Removed: []string{},
				Missing: []string{},
				Updated: []string{"a"},
			},
			wantProps: map[string]string{"a": "c"},
		},
		{
			name:     "duplicate removals collapse",
			props:    map[string]string{"a": "b"},
			removals: []string{"a", "a", "x", "x"},
			wantDiff: PropertiesDiff{
				Removed: []string{"a"},
				Missing: []string{"x"},
				Updated: []string{},
			},
			wantProps: map[string]string{},
		},
		{
			name:    "duplicate updates keep first position and last value",
			props:   map[string]string{},
			updates: []Property{{Key: "z", Value: "1"}, {Key: "a", Value: "1"}, {Key: "z", Value: "2"}},
			wantDiff: PropertiesDiff{
				Removed: []string{},
				Missing: []string{},
				Updated: []string{"z", "a"},
			},
			wantProps: map[string]string{"z": "2", "a": "1"},
		},
		{
			name:     "removals keep input order",
			props:    map[string]string{"c": "1", "a": "1", "b": "1"},
			removals: []string{"c", "q", "a", "p", "b"},
			wantDiff: PropertiesDiff{
				Removed: []string{"c", "a", "b"},
				Missing: []string{"q", "p"},
				Updated: []string{},
			},
			wantProps: map[string]string{},
		},
		{
			name:  "empty request",
			props: map[string]string{"a": "b"},
			wantDiff: PropertiesDiff{
				Removed: []string{},
				Missing: []string{},
				Updated: []string{},
			},
			wantProps: map[string]string{"a": "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diff := ReconcileProperties(tt.props, tt.removals, tt.updates)
			assert.Equal(t, tt.wantDiff, diff)
			assert.Equal(t, tt.wantProps, tt.props)
		})
	}
}
