package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/waylab/internal/comp"
	"github.com/bnema/waylab/internal/geometry"
	"github.com/bnema/waylab/internal/proto"
	"github.com/bnema/waylab/internal/server"
)

func newServer(t *testing.T) *server.Server {
	t.Helper()
	srv, err := server.New(server.Options{})
	require.NoError(t, err)
	return srv
}

func run(t *testing.T, body func(c *Client) error) {
	t.Helper()
	require.NoError(t, Run(newServer(t), body))
}

func isConfined(ev proto.Event) bool {
	_, ok := ev.(proto.Confined)
	return ok
}

// Maps a 100x100 surface at (100, 100) and moves the pointer into its
// middle.
func mapAndEnter(t *testing.T, c *Client) *Surface {
	t.Helper()
	s := c.CreateSurface(100, 100)
	require.NoError(t, s.MapAt(100, 100, 100, 100))
	pos, err := c.MovePointer(1, 150, 150)
	require.NoError(t, err)
	require.Equal(t, geometry.Pt(150, 150), pos)
	return s
}

func TestConfineLifecycleOneshot(t *testing.T) {
	run(t, func(c *Client) error {
		s := mapAndEnter(t, c)

		// Hover alone does not activate the constraint.
		cp := c.Confine(s, nil, proto.LifetimeOneshot)
		require.NoError(t, c.Roundtrip())
		assert.False(t, c.HasQueued(isConfined))

		// A press inside the surface is the deliberate interaction the
		// shell is waiting for.
		require.NoError(t, c.Click(10))
		require.NoError(t, cp.WaitConfined())

		cp.Destroy()
		require.NoError(t, cp.WaitUnconfined())

		// The surface is still focused and activated, so a fresh
		// constraint activates on creation.
		cp2 := c.Confine(s, nil, proto.LifetimeOneshot)
		require.NoError(t, cp2.WaitConfined())
		return nil
	})
}

func TestConfinementClampsAtBoundary(t *testing.T) {
	run(t, func(c *Client) error {
		s := mapAndEnter(t, c)
		require.NoError(t, c.Click(10))
		cp := c.Confine(s, nil, proto.LifetimePersistent)
		require.NoError(t, cp.WaitConfined())

		// Past the right edge: x stops just inside, y passes through.
		pos, err := c.MovePointer(20, 250, 150)
		require.NoError(t, err)
		assert.Equal(t, int32(199), pos.X.Int())
		assert.Equal(t, geometry.F(150), pos.Y)

		// Past the left edge from inside.
		pos, err = c.MovePointer(21, 50, 150)
		require.NoError(t, err)
		assert.Equal(t, int32(100), pos.X.Int())

		cp.Destroy()
		require.NoError(t, cp.WaitUnconfined())

		// Unconstrained again: the same motion escapes and focus
		// follows the pointer out.
		pos, err = c.MovePointer(22, 99, 150)
		require.NoError(t, err)
		assert.Equal(t, geometry.Pt(99, 150), pos)
		require.NoError(t, c.Roundtrip())
		assert.True(t, c.HasQueued(func(ev proto.Event) bool {
			l, ok := ev.(proto.Leave)
			return ok && l.Surface == s.ID
		}))
		return nil
	})
}

func TestLockPinsPositionAndStreamsDeltas(t *testing.T) {
	run(t, func(c *Client) error {
		rp := c.GetRelativePointer()
		require.NoError(t, c.Roundtrip())

		s := c.CreateSurface(100, 100)
		require.NoError(t, s.MapAt(100, 100, 100, 100))
		pos, err := c.MovePointer(1, 120, 120)
		require.NoError(t, err)
		require.NoError(t, c.Click(10))

		lp := c.Lock(s, nil, proto.LifetimePersistent)
		require.NoError(t, lp.WaitLocked())
		rp.SeedVirtual(pos)

		for i := 0; i < 3; i++ {
			got, err := c.MovePointer(uint32(20+i), 125, 117)
			require.NoError(t, err)
			assert.Equal(t, pos, got, "locked position never moves")

			rel, err := rp.WaitMotion()
			require.NoError(t, err)
			assert.Equal(t, geometry.F(5), rel.Dx)
			assert.Equal(t, geometry.F(-3), rel.Dy)
			assert.Equal(t, rel.Dx, rel.DxUnaccel)
			assert.Equal(t, rel.Dy, rel.DyUnaccel)
		}
		assert.Equal(t, geometry.Pt(135, 111), rp.Virtual())

		lp.Destroy()
		require.NoError(t, lp.WaitUnlocked())
		rp.Destroy()
		return nil
	})
}

func TestSecondConstraintIsFatal(t *testing.T) {
	run(t, func(c *Client) error {
		s := c.CreateSurface(100, 100)
		require.NoError(t, s.MapAt(100, 100, 100, 100))

		// Even an inactive constraint reserves the surface/pointer
		// pair; the second request kills the connection.
		c.Confine(s, nil, proto.LifetimePersistent)
		c.Lock(s, nil, proto.LifetimeOneshot)

		fatal, err := c.WaitFatal()
		require.NoError(t, err)
		assert.Equal(t, proto.ErrAlreadyConstrained, fatal.Code)
		return nil
	})
}

func TestActivationRequiresInteraction(t *testing.T) {
	run(t, func(c *Client) error {
		s := mapAndEnter(t, c)
		cp := c.Confine(s, nil, proto.LifetimePersistent)

		// Focus without a press: nothing happens, however long we wait.
		require.NoError(t, c.Roundtrip())
		require.NoError(t, c.Roundtrip())
		assert.False(t, c.HasQueued(isConfined))

		require.NoError(t, c.Click(10))
		require.NoError(t, cp.WaitConfined())

		// Exactly one activation event for the one press.
		require.NoError(t, c.Roundtrip())
		assert.False(t, c.HasQueued(isConfined))
		return nil
	})
}

func TestFocusLossDeactivatesPersistent(t *testing.T) {
	run(t, func(c *Client) error {
		s := mapAndEnter(t, c)
		require.NoError(t, c.Click(10))
		cp := c.Confine(s, nil, proto.LifetimePersistent)
		require.NoError(t, cp.WaitConfined())

		// The surface is yanked out from under the pointer; motion
		// could not break the confinement, but focus loss does.
		s.Move(1000, 1000)
		require.NoError(t, cp.WaitUnconfined())

		// Focus returns when the surface comes back, but a persistent
		// constraint stays dormant until the next deliberate
		// interaction.
		s.Move(100, 100)
		require.NoError(t, c.Roundtrip())
		assert.True(t, c.HasQueued(func(ev proto.Event) bool {
			e, ok := ev.(proto.Enter)
			return ok && e.Surface == s.ID
		}))
		assert.False(t, c.HasQueued(isConfined))

		require.NoError(t, c.Click(20))
		require.NoError(t, cp.WaitConfined())
		return nil
	})
}

func TestInputRegionEmptiedBreaksConfinement(t *testing.T) {
	run(t, func(c *Client) error {
		s := c.CreateSurface(100, 100)
		require.NoError(t, s.MapAt(100, 100, 100, 100))
		_, err := c.MovePointer(1, 160, 160)
		require.NoError(t, err)
		require.NoError(t, c.Click(10))

		region := geometry.RegionFromRect(geometry.RectXYWH(50, 50, 40, 40))
		cp := c.Confine(s, &region, proto.LifetimePersistent)
		require.NoError(t, cp.WaitConfined())

		// The input region moves away from the constraint region; the
		// effective region is empty, so the constraint deactivates.
		empty := geometry.RegionFromRect(geometry.RectXYWH(0, 0, 10, 10))
		s.SetInputRegion(&empty)
		require.NoError(t, cp.WaitUnconfined())

		// Unconstrained: the pointer leaves freely.
		pos, err := c.MovePointer(20, 300, 50)
		require.NoError(t, err)
		assert.Equal(t, geometry.Pt(300, 50), pos)
		return nil
	})
}

func TestInputRegionShrinkReclamps(t *testing.T) {
	run(t, func(c *Client) error {
		s := mapAndEnter(t, c)
		require.NoError(t, c.Click(10))
		cp := c.Confine(s, nil, proto.LifetimePersistent)
		require.NoError(t, cp.WaitConfined())

		// A non-empty shrink pulls the pointer back inside in the same
		// tick, like a set_region.
		shrunk := geometry.RegionFromRect(geometry.RectXYWH(0, 0, 40, 40))
		s.SetInputRegion(&shrunk)
		require.NoError(t, c.Roundtrip())

		pos, err := c.MovePointer(20, 150, 150)
		require.NoError(t, err)
		assert.Less(t, pos.X.Int(), int32(140))
		assert.Less(t, pos.Y.Int(), int32(140))
		return nil
	})
}

func TestPostRepaintBreakpoint(t *testing.T) {
	run(t, func(c *Client) error {
		c.Break(proto.BreakpointPostRepaint, 0)

		// No fence between commit and Await: the server freezes inside
		// the repaint before it would answer one.
		s := c.CreateSurface(100, 100)
		s.Move(50, 50)
		s.AttachShm(100, 100)
		s.Commit()

		a, err := c.Await()
		require.NoError(t, err)
		assert.Equal(t, proto.BreakpointPostRepaint, a.Kind)

		// Inside the critical section this goroutine owns the
		// compositor state.
		state := a.Compositor
		out := state.Outputs()[0]
		require.Equal(t, 1, out.FrameLen())
		topHandle, ok := out.TopPaintNode()
		require.True(t, ok)
		top := state.Surface(topHandle)
		require.NotNil(t, top)
		assert.Equal(t, s.ID, top.ID)
		assert.Equal(t, comp.BufferShm, top.Buffer.Type)
		assert.Equal(t, int32(100), top.Buffer.Width)
		a.Release()

		return c.Roundtrip()
	})
}

func TestPreInputDispatchBreakpoint(t *testing.T) {
	run(t, func(c *Client) error {
		s := mapAndEnter(t, c)
		c.Break(proto.BreakpointPreInputDispatch, s.ID)
		require.NoError(t, c.Roundtrip())

		// Fire-and-forget: the blocking helper would deadlock against
		// the frozen server.
		c.MovePointerAsync(10, 160, 160)

		a, err := c.Await()
		require.NoError(t, err)
		assert.Equal(t, proto.BreakpointPreInputDispatch, a.Kind)
		assert.Equal(t, s.ID, a.Resource)
		// The site fires before the motion is applied.
		assert.Equal(t, geometry.Pt(150, 150), a.Compositor.Pointer().Pos)
		a.Release()

		ev, err := c.WaitFor(func(ev proto.Event) bool {
			_, ok := ev.(proto.PointerPosition)
			return ok
		})
		require.NoError(t, err)
		assert.Equal(t, geometry.F(160), ev.(proto.PointerPosition).X)
		return nil
	})
}

func TestSurfaceDestroyUnderConstraint(t *testing.T) {
	run(t, func(c *Client) error {
		s := mapAndEnter(t, c)
		require.NoError(t, c.Click(10))
		cp := c.Confine(s, nil, proto.LifetimePersistent)
		require.NoError(t, cp.WaitConfined())

		// Destroying the surface tears the constraint down first.
		s.Destroy()
		require.NoError(t, cp.WaitUnconfined())
		require.NoError(t, c.Roundtrip())
		return nil
	})
}

func TestCyclerWalksAllModes(t *testing.T) {
	run(t, func(c *Client) error {
		s := c.CreateSurface(100, 100)
		require.NoError(t, s.MapAt(100, 100, 100, 100))
		_, err := c.MovePointer(1, 150, 150)
		require.NoError(t, err)

		cy := NewCycler(c, s)
		require.NoError(t, c.Roundtrip())
		assert.Equal(t, CycleUnconstrained, cy.State())

		require.NoError(t, cy.Click(10))
		assert.Equal(t, CycleConfined, cy.State())

		require.NoError(t, cy.Click(20))
		assert.Equal(t, CycleLocked, cy.State())

		require.NoError(t, cy.Click(30))
		assert.Equal(t, CycleUnconstrained, cy.State())

		// A full second revolution still works.
		require.NoError(t, cy.Click(40))
		assert.Equal(t, CycleConfined, cy.State())
		return nil
	})
}
