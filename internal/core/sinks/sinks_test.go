package sinks

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/storefront/internal/core/notify"
	"github.com/colonyops/storefront/internal/core/search"
)

func TestRegistry_WithDefaults(t *testing.T) {
	var got int
	r := Registry{Badge: BadgeFunc(func(n int) { got = n })}.WithDefaults()

	require.NotNil(t, r.Results)
	require.NotNil(t, r.Pulse)

	r.Badge.SetCount(3)
	assert.Equal(t, 3, got)
	assert.NoError(t, r.Pulse.Pulse("p-1", time.Second))
	r.Results.Show(search.Query{Text: "x"}, nil)
	r.Results.Clear()
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.SetCount(2)
	c.Show(search.Query{Text: "hat"}, []search.Result{
		{ID: "7", Name: "Hat", Price: "12.00", URL: "/p/7"},
	})
	c.Show(search.Query{Text: "zz"}, nil)
	c.Present(notify.Event{
		Kind:   notify.EventPresented,
		Record: notify.Record{Title: "Success", Message: "Product added to cart!", Level: notify.LevelInfo},
	})
	c.Present(notify.Event{Kind: notify.EventDismissed, Record: notify.Record{Title: "ignored"}})

	out := buf.String()
	assert.Contains(t, out, "cart: 2 item(s)")
	assert.Contains(t, out, "Hat")
	assert.Contains(t, out, `no results for "zz"`)
	assert.Contains(t, out, "[info] Success: Product added to cart!")
	assert.NotContains(t, out, "ignored")
}
