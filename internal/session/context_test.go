package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shellfall/engine/v2/pkg/fleet"
)

func TestContext_ThreadSafe(t *testing.T) {
	ctx := NewContext()

	s := ctx.GetShip()
	assert.Equal(t, "No ship loaded", s.Name)

	assert.Nil(t, ctx.GetRun())
}

func TestContext_SetShip(t *testing.T) {
	ctx := NewContext()

	ctx.SetShip(&fleet.Ship{ID: "PJSB018", Name: "Yamato"})

	assert.Equal(t, "Yamato", ctx.GetShip().Name)
	assert.Nil(t, ctx.GetRun())
}

func TestContext_SetAndClearRun(t *testing.T) {
	ctx := NewContext()

	ship := &fleet.Ship{ID: "PJSB018", Name: "Yamato"}
	run := &fleet.SweepRun{ShipID: "PJSB018", Shell: "AP"}

	ctx.SetRun(ship, run)
	assert.Equal(t, "PJSB018", ctx.GetShip().ID)
	assert.Equal(t, "AP", ctx.GetRun().Shell)

	ctx.ClearRun()
	assert.Nil(t, ctx.GetRun())
	assert.Equal(t, "PJSB018", ctx.GetShip().ID, "clearing the run keeps the ship")
}

func TestContext_LogAttrs(t *testing.T) {
	ctx := NewContext()

	// Placeholder ship has no ID, so nothing to stamp yet
	assert.Empty(t, ctx.LogAttrs())

	ctx.SetShip(&fleet.Ship{ID: "PJSB018", Name: "Yamato"})
	attrs := ctx.LogAttrs()
	assert.Len(t, attrs, 1)
	assert.Equal(t, "ship", attrs[0].Key)
	assert.Equal(t, "PJSB018", attrs[0].Value.String())

	ctx.SetRun(ctx.GetShip(), &fleet.SweepRun{ShipID: "PJSB018", Shell: "AP"})
	attrs = ctx.LogAttrs()
	assert.Len(t, attrs, 2)
	assert.Equal(t, "shell", attrs[1].Key)
	assert.Equal(t, "AP", attrs[1].Value.String())
}
