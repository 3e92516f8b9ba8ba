package splitworld

import (
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/splitworld/geom"
	"github.com/gekko3d/splitworld/physics"
	"github.com/gekko3d/splitworld/world"
)

func TestRange_CoversEveryItemOnce(t *testing.T) {
	for n := 1; n <= 9; n++ {
		for count := 0; count <= 50; count++ {
			seen := make([]int, count)
			next := 0
			for id := 0; id < n; id++ {
				start, end := Range(id, n, count)
				if end < start {
					assert.GreaterOrEqual(t, id, count, "n=%d count=%d id=%d got an empty range", n, count, id)
					continue
				}
				assert.Equal(t, next, start, "n=%d count=%d id=%d is not contiguous", n, count, id)
				for i := start; i <= end; i++ {
					seen[i]++
				}
				next = end + 1
			}
			assert.Equal(t, count, next, "n=%d count=%d", n, count)
			for i, c := range seen {
				assert.Equal(t, 1, c, "n=%d count=%d item %d", n, count, i)
			}
		}
	}
}

func TestRange_LastTakesRemainder(t *testing.T) {
	start, end := Range(0, 3, 10)
	assert.Equal(t, [2]int{0, 2}, [2]int{start, end})
	start, end = Range(1, 3, 10)
	assert.Equal(t, [2]int{3, 5}, [2]int{start, end})
	start, end = Range(2, 3, 10)
	assert.Equal(t, [2]int{6, 9}, [2]int{start, end})
}

func TestEvent_RaiseBeforeWait(t *testing.T) {
	e := newEvent()
	e.Raise()

	done := make(chan struct{})
	go func() {
		e.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("raise before wait was lost")
	}
}

func TestEvent_WaitBlocksUntilRaised(t *testing.T) {
	e := newEvent()
	var woke atomic.Bool
	done := make(chan struct{})
	go func() {
		e.Wait()
		woke.Store(true)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	assert.False(t, woke.Load())

	e.Raise()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("wait never returned")
	}
}

func randomScene(seed int64) *world.World {
	w := world.New(physics.DefaultParams(), nil)
	rng := rand.New(rand.NewSource(seed))
	for i := 0; i < 120; i++ {
		pos := mgl64.Vec2{rng.Float64()*36 - 18, rng.Float64()*18 + 1}
		if i%3 == 0 {
			w.AddTriangle(pos, 0.5+rng.Float64()*2, geom.White)
		} else {
			w.AddBox(pos, 0.5+rng.Float64()*2, geom.White)
		}
	}
	w.AddBlobby(mgl64.Vec2{0, 12})
	return w
}

func TestPipeline_WorkersMatchSingleThread(t *testing.T) {
	single := randomScene(3)
	team := randomScene(3)

	p1 := NewPipeline(single, 1, nil)
	p4 := NewPipeline(team, 4, nil)
	defer p4.Stop()

	for i := 0; i < 240; i++ {
		p1.Step(1.0 / 60)
		p4.Step(1.0 / 60)
		require.NoError(t, team.SanityCheck())
	}

	for _, o := range single.Objects().All() {
		require.Equal(t, o.State(), team.Object(o.ID()).State(), "object %d diverged", o.ID())
	}
}

func TestPipeline_MoreThreadsThanObjects(t *testing.T) {
	w := world.New(physics.DefaultParams(), nil)
	w.AddBox(mgl64.Vec2{0, 5}, 1, geom.White)

	p := NewPipeline(w, 8, nil)
	for i := 0; i < 10; i++ {
		p.Step(1.0 / 60)
	}
	p.Stop()

	assert.NoError(t, w.SanityCheck())
	assert.Less(t, w.Object(0).Position().Y(), 5.0)
}

func TestPipeline_StopAndRestart(t *testing.T) {
	w := randomScene(5)
	p := NewPipeline(w, 3, nil)

	p.Step(1.0 / 60)
	p.Stop()
	p.Stop()

	p.Step(1.0 / 60)
	p.Stop()
	assert.NoError(t, w.SanityCheck())
}

func TestNewPipeline_RejectsZeroThreads(t *testing.T) {
	assert.Panics(t, func() {
		NewPipeline(world.New(physics.DefaultParams(), nil), 0, nil)
	})
}
