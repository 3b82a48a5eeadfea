package tether

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorldStepClampsDelta(t *testing.T) {
	engine := newFakeEngine()
	cfg := DefaultWorldConfig()
	world, err := NewWorldWithEngine(engine, cfg, nil)
	require.NoError(t, err)

	world.Step(0.016)
	world.Step(0.5) // frame hitch, clamped
	world.Step(0)   // ignored
	world.Step(-1)  // ignored

	require.Len(t, engine.stepDeltas, 2)
	assert.InDelta(t, 0.016, float64(engine.stepDeltas[0]), 1e-6)
	assert.Equal(t, cfg.MaxStepDelta, engine.stepDeltas[1])
}

func TestWorldInitValidation(t *testing.T) {
	_, err := NewWorldWithEngine(nil, DefaultWorldConfig(), nil)
	require.Error(t, err)
	var initErr *EngineInitError
	assert.True(t, errors.As(err, &initErr))

	bad := DefaultWorldConfig()
	bad.MaxStepDelta = -1
	_, err = NewWorldWithEngine(newFakeEngine(), bad, nil)
	require.Error(t, err)
	assert.True(t, errors.As(err, &initErr))

	_, err = NewWorld(bad, nil)
	require.Error(t, err)
	assert.True(t, errors.As(err, &initErr))
}

func TestWorldDefaultBackend(t *testing.T) {
	world, err := NewWorld(DefaultWorldConfig(), nil)
	require.NoError(t, err)
	defer world.Close()

	assert.Equal(t, mgl32.Vec3{0, -9.81, 0}, world.Gravity())

	h, err := world.CreateBody(BodyDesc{Kind: BodyDynamic, Pose: IdentityPose()})
	require.NoError(t, err)
	world.Step(0.1)
	pose, ok := world.BodyPose(h)
	require.True(t, ok)
	assert.Less(t, pose.Position.Y(), float32(0), "gravity pulls the body down")

	// The built-in backend supports the optional capabilities.
	assert.True(t, world.SetBodyVelocity(h, mgl32.Vec3{}))
	assert.True(t, world.ApplyImpulse(h, mgl32.Vec3{0, 1, 0}))
}

func TestWorldCloseStopsStepping(t *testing.T) {
	engine := newFakeEngine()
	world, err := NewWorldWithEngine(engine, DefaultWorldConfig(), nil)
	require.NoError(t, err)

	world.Close()
	assert.True(t, engine.closed)

	world.Step(0.016)
	assert.Empty(t, engine.stepDeltas)

	// Double close is harmless.
	world.Close()
}

func TestWorldOptionalCapabilitiesUnsupported(t *testing.T) {
	// fakeEngine implements neither velocity control nor raycasts.
	world, err := NewWorldWithEngine(newFakeEngine(), DefaultWorldConfig(), nil)
	require.NoError(t, err)

	assert.False(t, world.SetBodyVelocity(1, mgl32.Vec3{1, 0, 0}))
	assert.False(t, world.ApplyImpulse(1, mgl32.Vec3{1, 0, 0}))
	_, ok := world.Raycast(mgl32.Vec3{}, mgl32.Vec3{1, 0, 0}, 10)
	assert.False(t, ok)
}
