// Copyright 2025-2026 肖其顿 (XIAO QI DUN)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package formfill

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewToDocument(t *testing.T) {
	v := View{Scale: 1.2}
	p := v.ToDocument(Point{X: 100, Y: 100})
	assert.InDelta(t, 83.333, p.X, 0.001)
	assert.InDelta(t, 83.333, p.Y, 0.001)
}

func TestViewRoundTrip(t *testing.T) {
	views := []View{
		{Scale: 1},
		{Scale: 0.5, Origin: Point{X: 12, Y: 40}},
		{Scale: 2.75, Origin: Point{X: -30, Y: 7.5}},
	}
	pts := []Point{{X: 0, Y: 0}, {X: 83.3, Y: 19}, {X: 612, Y: 792}}
	for _, v := range views {
		for _, p := range pts {
			got := v.ToDocument(v.ToScreen(p))
			assert.InDelta(t, p.X, got.X, 1e-9)
			assert.InDelta(t, p.Y, got.Y, 1e-9)
		}
	}
}

func TestViewScaleInvariance(t *testing.T) {
	r := Rect{X: 40, Y: 60, W: 160, H: 24}
	one := View{Scale: 1}.RectToScreen(r)
	two := View{Scale: 2}.RectToScreen(r)
	assert.Equal(t, Rect{X: one.X * 2, Y: one.Y * 2, W: one.W * 2, H: one.H * 2}, two)
	back := View{Scale: 2}.ToDocument(Point{X: two.X, Y: two.Y})
	assert.Equal(t, Point{X: r.X, Y: r.Y}, back)
}

func TestViewInvalidScale(t *testing.T) {
	for _, s := range []float64{0, -1} {
		p := View{Scale: s}.ToDocument(Point{X: 10, Y: 20})
		assert.Equal(t, Point{X: 10, Y: 20}, p)
	}
}

func TestViewMatrix(t *testing.T) {
	v := View{Scale: 1.5, Origin: Point{X: 10, Y: 20}}
	m := v.Matrix()
	p := Point{X: 30, Y: 40}
	assert.Equal(t, v.ToScreen(p), m.Apply(p))
	inv, ok := m.Invert()
	require.True(t, ok)
	got := inv.Apply(m.Apply(p))
	assert.InDelta(t, p.X, got.X, 1e-9)
	assert.InDelta(t, p.Y, got.Y, 1e-9)
	assert.Equal(t, v.ToDocument(p), inv.Apply(p))
	_, ok = Matrix{}.Invert()
	assert.False(t, ok)
}

func TestRectContains(t *testing.T) {
	r := Rect{X: 10, Y: 10, W: 20, H: 10}
	assert.True(t, r.Contains(Point{X: 10, Y: 10}))
	assert.True(t, r.Contains(Point{X: 30, Y: 20}))
	assert.False(t, r.Contains(Point{X: 31, Y: 15}))
	assert.False(t, r.Contains(Point{X: 15, Y: 9}))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, clamp(-5, 0, 10))
	assert.Equal(t, 10.0, clamp(15, 0, 10))
	assert.Equal(t, 4.0, clamp(4, 0, 10))
	assert.Equal(t, 0.0, clamp(3, 0, -1))
}
