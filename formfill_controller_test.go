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
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// harness 控制器测试环境
type harness struct {
	t           *testing.T
	store       *Store
	ctrl        *Controller
	view        View
	page        int
	now         time.Time
	acquired    int
	released    int
	invalidated []string
}

func newHarness(t *testing.T) *harness {
	h := &harness{
		t:     t,
		store: newTestStore(),
		view:  View{Scale: 1},
		page:  1,
		now:   testNow,
	}
	h.ctrl = NewController(h.store, ControllerConfig{
		View: func() View { return h.view },
		Page: func() int { return h.page },
		Suppressor: SuppressorFunc(func() func() {
			h.acquired++
			return func() { h.released++ }
		}),
		Invalidate: func(ids ...string) {
			h.invalidated = append(h.invalidated, ids...)
		},
	})
	return h
}

func (h *harness) add(ft FieldType, x, y float64) string {
	return mustAdd(h.t, h.store, ft, h.page, x, y)
}

func (h *harness) tick(d time.Duration) time.Time {
	h.now = h.now.Add(d)
	return h.now
}

func (h *harness) down(x, y float64) {
	require.NoError(h.t, h.ctrl.Dispatch(PointerDown{At: Point{X: x, Y: y}, Time: h.tick(100 * time.Millisecond)}))
}

func (h *harness) move(x, y float64) {
	require.NoError(h.t, h.ctrl.Dispatch(PointerMove{At: Point{X: x, Y: y}, Time: h.tick(10 * time.Millisecond)}))
}

func (h *harness) up(x, y float64, after time.Duration) {
	require.NoError(h.t, h.ctrl.Dispatch(PointerUp{At: Point{X: x, Y: y}, Time: h.tick(after)}))
}

func (h *harness) click(x, y float64) {
	h.down(x, y)
	h.up(x, y, 50*time.Millisecond)
}

func (h *harness) key(k Key) {
	require.NoError(h.t, h.ctrl.Dispatch(KeyDown{Key: k}))
}

func (h *harness) get(id string) Annotation {
	a, ok := h.store.Get(id)
	require.True(h.t, ok)
	return a
}

func (h *harness) balanced() {
	assert.Equal(h.t, h.acquired, h.released)
}

func TestControllerClickSelects(t *testing.T) {
	h := newHarness(t)
	id := h.add(FieldText, 100, 100)

	h.click(500, 500)
	assert.Equal(t, StateIdle, h.ctrl.State())

	h.click(110, 110)
	assert.Equal(t, StateSelected, h.ctrl.State())
	assert.Equal(t, id, h.store.Selected())
	assert.Contains(t, h.invalidated, id)

	h.click(500, 500)
	assert.Equal(t, StateIdle, h.ctrl.State())
	assert.Empty(t, h.store.Selected())
	h.balanced()
}

func TestControllerTopmostHit(t *testing.T) {
	h := newHarness(t)
	h.add(FieldText, 100, 100)
	top := h.add(FieldText, 100, 100)
	h.click(110, 110)
	assert.Equal(t, top, h.store.Selected())
}

func TestControllerSecondClickEdits(t *testing.T) {
	h := newHarness(t)
	id := h.add(FieldText, 100, 100)

	h.click(110, 110)
	h.down(111, 110)
	assert.Equal(t, StateEditing, h.ctrl.State(), "editing starts on the pointer-down")
	assert.Equal(t, id, h.store.Editing())
	h.up(111, 111, 50*time.Millisecond)
	assert.Equal(t, StateEditing, h.ctrl.State())
	h.balanced()
}

func TestControllerHeldSecondPressEdits(t *testing.T) {
	h := newHarness(t)
	id := h.add(FieldText, 100, 100)

	h.click(110, 110)
	h.down(110, 110)
	h.up(110, 110, 600*time.Millisecond)
	assert.Equal(t, StateEditing, h.ctrl.State())
	assert.Equal(t, id, h.store.Editing())
	h.balanced()
}

func TestControllerLateClickReselects(t *testing.T) {
	h := newHarness(t)
	id := h.add(FieldText, 100, 100)

	h.click(110, 110)
	h.tick(5 * time.Second)
	h.click(110, 110)
	assert.Equal(t, StateSelected, h.ctrl.State())
	assert.Equal(t, id, h.store.Selected())
	assert.Empty(t, h.store.Editing())

	h.tick(time.Second)
	h.down(110, 110)
	h.up(110, 110, 10*time.Millisecond)
	h.tick(time.Second)
	h.down(110, 110)
	assert.Equal(t, StateSelected, h.ctrl.State(), "only the click right before counts")
	h.up(110, 110, 10*time.Millisecond)
	h.balanced()
}

func TestControllerDragBreaksActivation(t *testing.T) {
	h := newHarness(t)
	id := h.add(FieldText, 100, 100)

	h.click(110, 110)
	h.tick(time.Second)
	h.down(110, 110)
	h.move(160, 110)
	h.up(160, 110, 10*time.Millisecond)
	require.Equal(t, 150.0, h.get(id).X)

	h.down(160, 110)
	assert.Equal(t, StateSelected, h.ctrl.State())
	h.up(160, 110, 10*time.Millisecond)
	assert.Empty(t, h.store.Editing())
}

func TestControllerDragThresholdIsCumulative(t *testing.T) {
	h := newHarness(t)
	id := h.add(FieldText, 100, 100)

	h.down(110, 110)
	h.move(112, 110)
	assert.Equal(t, StateSelected, h.ctrl.State())
	h.move(110, 110)
	assert.Equal(t, StateDragging, h.ctrl.State(), "4 px of travel crosses the threshold")
	assert.Equal(t, 100.0, h.get(id).X)
	h.up(110, 110, 10*time.Millisecond)
	h.balanced()
}

func TestControllerFirstClickDoesNotEdit(t *testing.T) {
	h := newHarness(t)
	h.add(FieldText, 100, 100)
	h.click(110, 110)
	assert.Equal(t, StateSelected, h.ctrl.State())
	assert.Empty(t, h.store.Editing())
}

func TestControllerDragNeverEdits(t *testing.T) {
	h := newHarness(t)
	id := h.add(FieldText, 100, 100)

	h.click(110, 110)
	h.down(110, 110)
	h.move(112, 110)
	assert.Equal(t, StateEditing, h.ctrl.State())
	h.move(120, 110)
	assert.Equal(t, StateDragging, h.ctrl.State())
	assert.Empty(t, h.store.Editing())
	h.move(260, 110)
	h.up(260, 110, 20*time.Millisecond)

	assert.Equal(t, StateSelected, h.ctrl.State())
	assert.Empty(t, h.store.Editing())
	a := h.get(id)
	assert.Equal(t, 250.0, a.X)
	assert.Equal(t, 100.0, a.Y)
	h.balanced()
}

func TestControllerDragPreservesIdentity(t *testing.T) {
	h := newHarness(t)
	id := h.add(FieldText, 50, 50)
	before := h.get(id)

	h.down(60, 60)
	h.move(210, 60)
	h.up(210, 60, 10*time.Millisecond)

	after := h.get(id)
	assert.Equal(t, 200.0, after.X)
	assert.Equal(t, 50.0, after.Y)
	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, before.Type, after.Type)
	assert.Equal(t, before.Content, after.Content)
	assert.Equal(t, []string{id}, ids(h.store.All()))
}

func TestControllerDragClampsToPage(t *testing.T) {
	h := newHarness(t)
	id := h.add(FieldText, 100, 100)

	h.down(110, 110)
	h.move(5000, 5000)
	a := h.get(id)
	assert.Equal(t, testPageW-160, a.X)
	assert.Equal(t, testPageH-24, a.Y)
	h.move(-300, -300)
	a = h.get(id)
	assert.Equal(t, 0.0, a.X)
	assert.Equal(t, 0.0, a.Y)
	h.up(-300, -300, 10*time.Millisecond)
	h.balanced()
}

func TestControllerDragReadsViewPerEvent(t *testing.T) {
	h := newHarness(t)
	id := h.add(FieldText, 100, 100)

	h.down(110, 110)
	h.move(120, 110)
	h.view = View{Scale: 2}
	h.move(400, 400)
	a := h.get(id)
	assert.Equal(t, 190.0, a.X)
	assert.Equal(t, 190.0, a.Y)
}

func TestControllerResize(t *testing.T) {
	h := newHarness(t)
	id := h.add(FieldText, 100, 100)

	h.down(260, 124)
	assert.Equal(t, StateSelected, h.ctrl.State(), "handle is inactive until selected")
	h.up(260, 124, 10*time.Millisecond)

	h.down(260, 124)
	require.Equal(t, StateResizing, h.ctrl.State())
	h.move(360, 174)
	a := h.get(id)
	assert.Equal(t, 260.0, a.Width)
	assert.Equal(t, 74.0, a.Height)

	h.move(0, 0)
	a = h.get(id)
	assert.Equal(t, 60.0, a.Width)
	assert.Equal(t, 24.0, a.Height)

	h.move(1000, 124)
	h.up(1000, 124, 10*time.Millisecond)
	a = h.get(id)
	assert.Equal(t, StateSelected, h.ctrl.State())
	assert.Equal(t, testPageW-100, a.Width)
	assert.Equal(t, 100.0, a.X)
	h.balanced()
}

func TestControllerCheckboxToggles(t *testing.T) {
	h := newHarness(t)
	id := h.add(FieldCheckbox, 50, 50)
	orig := h.get(id).Content

	h.click(60, 60)
	assert.True(t, h.get(id).Checked())
	h.click(60, 60)
	assert.Equal(t, orig, h.get(id).Content)
	assert.Equal(t, StateSelected, h.ctrl.State())
	assert.Empty(t, h.store.Editing())
}

func TestControllerCheckboxDragDoesNotToggle(t *testing.T) {
	h := newHarness(t)
	id := h.add(FieldCheckbox, 50, 50)
	h.down(60, 60)
	h.move(100, 60)
	h.up(100, 60, 10*time.Millisecond)
	assert.False(t, h.get(id).Checked())
	assert.Equal(t, 90.0, h.get(id).X)
}

func TestControllerTimestampNeverEdits(t *testing.T) {
	h := newHarness(t)
	id := h.add(FieldTimestamp, 100, 100)
	before := h.get(id).Content
	h.click(110, 110)
	h.click(110, 110)
	assert.Equal(t, StateSelected, h.ctrl.State())
	assert.Equal(t, before, h.get(id).Content)
}

func TestControllerEditing(t *testing.T) {
	h := newHarness(t)
	id := h.add(FieldText, 100, 100)
	h.click(110, 110)
	h.click(110, 110)
	require.Equal(t, StateEditing, h.ctrl.State())

	require.NoError(t, h.ctrl.Dispatch(ValueChange{Value: TextContent("hello")}))
	assert.Equal(t, "hello", h.get(id).Text())

	err := h.ctrl.Dispatch(ValueChange{Value: CheckboxContent(true)})
	assert.ErrorIs(t, err, ErrContentMismatch)
	assert.Equal(t, StateEditing, h.ctrl.State())
	assert.Equal(t, "hello", h.get(id).Text())

	h.click(110, 110)
	assert.Equal(t, StateEditing, h.ctrl.State(), "clicks inside the field keep editing")

	h.key(KeyDelete)
	assert.Equal(t, 1, h.store.Len())

	h.key(KeyEscape)
	assert.Equal(t, StateIdle, h.ctrl.State())
	assert.Empty(t, h.store.Selected())
	assert.Equal(t, "hello", h.get(id).Text())
	h.balanced()
}

func TestControllerClickOutsideBlurs(t *testing.T) {
	h := newHarness(t)
	id := h.add(FieldText, 100, 100)
	other := h.add(FieldText, 300, 300)
	h.click(110, 110)
	h.click(110, 110)
	require.NoError(t, h.ctrl.Dispatch(ValueChange{Value: TextContent("kept")}))

	h.click(310, 310)
	assert.Equal(t, StateSelected, h.ctrl.State())
	assert.Equal(t, other, h.store.Selected())
	assert.Empty(t, h.store.Editing())
	assert.Equal(t, "kept", h.get(id).Text())

	h.click(500, 600)
	assert.Equal(t, StateIdle, h.ctrl.State())
}

func TestControllerBlurEvent(t *testing.T) {
	h := newHarness(t)
	id := h.add(FieldDate, 100, 100)
	h.click(110, 110)
	h.click(110, 110)
	require.Equal(t, StateEditing, h.ctrl.State())
	require.NoError(t, h.ctrl.Dispatch(Blur{}))
	assert.Equal(t, StateSelected, h.ctrl.State())
	assert.Equal(t, id, h.store.Selected())
}

func TestControllerDelete(t *testing.T) {
	h := newHarness(t)
	id := h.add(FieldText, 100, 100)
	h.key(KeyDelete)
	assert.Equal(t, 1, h.store.Len())

	h.click(110, 110)
	h.key(KeyDelete)
	assert.Equal(t, StateIdle, h.ctrl.State())
	_, ok := h.store.Get(id)
	assert.False(t, ok)
	assert.Contains(t, h.invalidated, id)
}

func TestControllerPointerCancel(t *testing.T) {
	h := newHarness(t)
	id := h.add(FieldText, 100, 100)
	h.down(110, 110)
	h.move(300, 300)
	require.Equal(t, StateDragging, h.ctrl.State())
	require.NoError(t, h.ctrl.Dispatch(PointerCancel{}))
	assert.Equal(t, StateSelected, h.ctrl.State())
	assert.Equal(t, 290.0, h.get(id).X)
	h.balanced()

	h.down(110, 110)
	require.NoError(t, h.ctrl.Dispatch(PointerCancel{}))
	h.balanced()
}

func TestControllerExternalRemoval(t *testing.T) {
	h := newHarness(t)
	id := h.add(FieldText, 100, 100)
	h.down(110, 110)
	h.move(200, 200)
	h.store.Remove(id)
	h.move(220, 220)
	assert.Equal(t, StateIdle, h.ctrl.State())
	h.balanced()
}

func TestControllerCloseReleases(t *testing.T) {
	h := newHarness(t)
	h.add(FieldText, 100, 100)
	h.down(110, 110)
	h.move(200, 200)
	assert.Equal(t, 1, h.acquired)
	h.ctrl.Close()
	h.balanced()
}

func TestControllerOtherPageIgnored(t *testing.T) {
	h := newHarness(t)
	h.add(FieldText, 100, 100)
	h.page = 2
	h.click(110, 110)
	assert.Equal(t, StateIdle, h.ctrl.State())
}
