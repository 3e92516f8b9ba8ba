package world

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/gekko3d/splitworld/geom"
	"github.com/gekko3d/splitworld/physics"
)

// BucketForPoint maps p, clamped into the world, to grid coordinates.
func (w *World) BucketForPoint(p mgl64.Vec2) (x, y int) {
	b := w.params.Bounds
	p = b.Clamp(p)
	size := b.Size()

	x = int(BucketsWide * (p.X() - b.Min.X()) / size.X())
	y = int(BucketsTall * (p.Y() - b.Min.Y()) / size.Y())
	if x >= BucketsWide {
		x = BucketsWide - 1
	}
	if y >= BucketsTall {
		y = BucketsTall - 1
	}
	return x, y
}

func BucketIndex(x, y int) int {
	return x + y*BucketsWide
}

func inGrid(x, y int) bool {
	return x >= 0 && x < BucketsWide && y >= 0 && y < BucketsTall
}

func (w *World) BucketMin(x, y int) mgl64.Vec2 {
	return w.params.Bounds.Min.Add(mgl64.Vec2{
		float64(x) * w.bucketSize.X(),
		float64(y) * w.bucketSize.Y(),
	})
}

func (w *World) ObjectsInBucket(x, y int) []physics.ID {
	return w.buckets[BucketIndex(x, y)]
}

// BroadPhase rebuilds the bucket columns xMin..xMax inclusive. Objects outside
// the world clamp into the edge columns, so each object lands in exactly one
// column and only the goroutine owning that column writes it.
func (w *World) BroadPhase(xMin, xMax int) {
	for x := xMin; x <= xMax; x++ {
		for y := 0; y < BucketsTall; y++ {
			i := BucketIndex(x, y)
			w.buckets[i] = w.buckets[i][:0]
		}
	}

	for _, o := range w.objects.All() {
		x, y := w.BucketForPoint(o.Position())
		if x < xMin || x > xMax {
			continue
		}
		i := BucketIndex(x, y)
		w.buckets[i] = append(w.buckets[i], o.ID())
	}
}

// DetectCollisions gathers contacts for objects in columns xMin..xMax.
// Contacts are only ever added to objects inside the owned columns.
func (w *World) DetectCollisions(xMin, xMax int) {
	for x := xMin; x <= xMax; x++ {
		for y := 0; y < BucketsTall; y++ {
			w.detectInBucket(x, y)

			bucket := w.buckets[BucketIndex(x, y)]
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					if !inGrid(x+dx, y+dy) {
						continue
					}
					w.testAgainstBucket(bucket, w.buckets[BucketIndex(x+dx, y+dy)])
				}
			}
		}
	}
}

func (w *World) detectInBucket(x, y int) {
	bucket := w.buckets[BucketIndex(x, y)]
	for i, idA := range bucket {
		a := w.objects.Get(idA)
		for _, idB := range bucket[i+1:] {
			b := w.objects.Get(idB)
			if c, ok := physics.Collide(a, b); ok {
				a.AddContact(c)
				b.AddContact(c.Reverse())
			}
		}
	}
}

func (w *World) testAgainstBucket(own, neighbour []physics.ID) {
	for _, idA := range own {
		a := w.objects.Get(idA)
		for _, idB := range neighbour {
			if c, ok := physics.Collide(a, w.objects.Get(idB)); ok {
				a.AddContact(c)
			}
		}
	}
}

// GridLines returns the world outline followed by the inner bucket lines.
func (w *World) GridLines() []geom.Line {
	b := w.params.Bounds
	outline := geom.RGBA(1, 0, 0, 1)
	grid := geom.RGBA(0.5, 0.5, 0.5, 0.45)

	lines := make([]geom.Line, 0, 4+BucketsWide-1+BucketsTall-1)
	lines = append(lines, outlineOf(b, outline)...)

	for i := 1; i < BucketsWide; i++ {
		x := w.BucketMin(i, 0).X()
		lines = append(lines, geom.Line{
			Points: [2]mgl32.Vec2{geom.Vec2f(x, b.Min.Y()), geom.Vec2f(x, b.Max.Y())},
			Color:  grid,
		})
	}
	for i := 1; i < BucketsTall; i++ {
		y := w.BucketMin(0, i).Y()
		lines = append(lines, geom.Line{
			Points: [2]mgl32.Vec2{geom.Vec2f(b.Min.X(), y), geom.Vec2f(b.Max.X(), y)},
			Color:  grid,
		})
	}
	return lines
}

func outlineOf(b geom.AABB, c geom.Color) []geom.Line {
	minX, minY, maxX, maxY := b.Min.X(), b.Min.Y(), b.Max.X(), b.Max.Y()
	return []geom.Line{
		{Points: [2]mgl32.Vec2{geom.Vec2f(minX, maxY), geom.Vec2f(minX, minY)}, Color: c},
		{Points: [2]mgl32.Vec2{geom.Vec2f(maxX, maxY), geom.Vec2f(maxX, minY)}, Color: c},
		{Points: [2]mgl32.Vec2{geom.Vec2f(minX, maxY), geom.Vec2f(maxX, maxY)}, Color: c},
		{Points: [2]mgl32.Vec2{geom.Vec2f(minX, minY), geom.Vec2f(maxX, minY)}, Color: c},
	}
}
