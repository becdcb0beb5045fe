package location

import (
	"testing"

	"bansos-api/internal/wilayah"

	"github.com/stretchr/testify/assert"
)

func TestField_States(t *testing.T) {
	f := NewField(wilayah.City, nil)
	assert.Equal(t, StateEmpty, f.State())
	assert.Equal(t, StatusIdle, f.Status())

	f.Initialize([]wilayah.Region{{ID: "3201", Name: "Bogor"}})
	assert.Equal(t, StatusReady, f.Status())

	f.SetValue("3201")
	assert.Equal(t, StateListedSelected, f.State())
	assert.True(t, f.Resolved())

	f.SetValue("9999")
	assert.Equal(t, StateUnmatched, f.State())
	assert.False(t, f.Resolved())

	f.ToggleMode()
	assert.Equal(t, StateManualEntered, f.State())
	assert.False(t, f.Resolved())

	f.SetValue("")
	assert.Equal(t, StateEmpty, f.State())
	assert.Equal(t, Manual, f.Mode(), "clearing the value keeps manual mode")
}

func TestField_ToggleTwiceRestoresMode(t *testing.T) {
	f := NewField(wilayah.Province, nil)
	f.SetValue("Custom Province")
	assert.True(t, f.ToggleMode())
	assert.True(t, f.ToggleMode())
	assert.Equal(t, Listed, f.Mode())
	assert.Equal(t, "Custom Province", f.Value())
}

func TestField_DisabledRejectsWrites(t *testing.T) {
	disabled := true
	f := NewField(wilayah.District, func() bool { return disabled })
	calls := 0
	f.Subscribe(func(string) { calls++ })

	assert.False(t, f.SetValue("x"))
	assert.False(t, f.ToggleMode())
	assert.Empty(t, f.Value())
	assert.Equal(t, Listed, f.Mode())
	assert.Zero(t, calls)
	assert.True(t, f.Snapshot().Disabled)

	disabled = false
	assert.True(t, f.SetValue("x"))
	assert.Equal(t, 1, calls)
}

func TestField_SubscribersRunInOrder(t *testing.T) {
	f := NewField(wilayah.Village, nil)
	var order []string
	f.Subscribe(func(v string) { order = append(order, "first:"+v) })
	unsub := f.Subscribe(func(v string) { order = append(order, "second:"+v) })
	f.Subscribe(func(v string) { order = append(order, "third:"+v) })

	f.SetValue("a")
	unsub()
	f.SetValue("b")

	assert.Equal(t, []string{"first:a", "second:a", "third:a", "first:b", "third:b"}, order)
}

func TestField_SnapshotDisplay(t *testing.T) {
	f := NewField(wilayah.Province, nil)
	f.Initialize([]wilayah.Region{{ID: "32", Name: "Jawa Barat"}})

	s := f.Snapshot()
	assert.NotNil(t, s.Options)
	assert.Equal(t, "province", s.Tier)

	f.SetValue("32")
	assert.Equal(t, "Jawa Barat", f.Snapshot().Display)

	f.ToggleMode()
	assert.Equal(t, "32", f.Snapshot().Display, "manual values are shown verbatim")
}

func TestField_OptionsAreCopied(t *testing.T) {
	f := NewField(wilayah.City, nil)
	src := []wilayah.Region{{ID: "1", Name: "A"}}
	f.Initialize(src)
	src[0].Name = "mutated"

	got := f.Options()
	assert.Equal(t, "A", got[0].Name)
	got[0].Name = "again"
	assert.Equal(t, "A", f.Options()[0].Name)
}

func TestField_ResetClearsEverything(t *testing.T) {
	f := NewField(wilayah.City, nil)
	f.Initialize([]wilayah.Region{{ID: "1", Name: "A"}})
	f.SetValue("1")
	f.ToggleMode()

	f.reset()
	assert.Empty(t, f.Value())
	assert.Empty(t, f.Options())
	assert.Equal(t, StatusIdle, f.Status())
	assert.Equal(t, Manual, f.Mode())
}
