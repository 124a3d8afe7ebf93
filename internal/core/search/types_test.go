package search

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Result
	}{
		{
			name: "string fields",
			in:   `{"id":"p-1","url":"/p/1","image":"/i/1.jpg","name":"Hat","price":"12.50"}`,
			want: Result{ID: "p-1", URL: "/p/1", Image: "/i/1.jpg", Name: "Hat", Price: "12.50"},
		},
		{
			name: "numeric id and price",
			in:   `{"id":7,"url":"/p/7","name":"Shoe","price":49.9}`,
			want: Result{ID: "7", URL: "/p/7", Name: "Shoe", Price: "49.9"},
		},
		{
			name: "missing id",
			in:   `{"url":"/p/2","name":"Scarf","price":null}`,
			want: Result{URL: "/p/2", Name: "Scarf"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Result
			require.NoError(t, json.Unmarshal([]byte(tt.in), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResult_UnmarshalJSON_rejects_fractional_id(t *testing.T) {
	var got Result
	assert.Error(t, json.Unmarshal([]byte(`{"id":1.5}`), &got))
}
