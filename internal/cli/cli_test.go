package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHighlightJSON_Disabled(t *testing.T) {
	SetEnabled(false)
	t.Cleanup(func() { SetEnabled(true) })

	in := `{"model":"gpt-4o","ok":true}`
	assert.Equal(t, in, HighlightJSON(in))
	assert.Equal(t, "Prism", Banner("Prism"))
}

func TestHighlightJSON_Enabled(t *testing.T) {
	SetEnabled(true)

	out := HighlightJSON(`{"count":3,"ok":null}`)
	assert.Contains(t, out, Blue+`"count"`+ResetCode+":")
	assert.Contains(t, out, Purple+"3"+ResetCode)
	assert.Contains(t, out, DimCode+"null"+ResetCode)
}

func TestPrettyFormat_Struct(t *testing.T) {
	SetEnabled(false)
	t.Cleanup(func() { SetEnabled(true) })

	out := PrettyFormat(map[string]int{"fragments": 2})
	assert.Equal(t, "{\n  \"fragments\": 2\n}", out)
}
