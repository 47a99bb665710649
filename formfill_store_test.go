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
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testPageW = 600.0
	testPageH = 800.0
)

var testNow = time.Date(2026, time.March, 5, 14, 7, 0, 0, time.UTC)

// sequence 生成 a1, a2, ... 形式的ID
func sequence() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("a%d", n)
	}
}

// testBounds 三页 600x800 的页面
func testBounds(page int) (float64, float64, bool) {
	if page < 1 || page > 3 {
		return 0, 0, false
	}
	return testPageW, testPageH, true
}

func newTestStore() *Store {
	return NewStore(
		WithStoreBounds(testBounds),
		WithStoreIDs(sequence()),
		WithStoreClock(func() time.Time { return testNow }),
	)
}

func mustAdd(t *testing.T, s *Store, ft FieldType, page int, x, y float64) string {
	t.Helper()
	id, err := s.Add(ft, page, Point{X: x, Y: y}, View{Scale: 1})
	require.NoError(t, err)
	return id
}

func TestStoreAddConvertsToDocumentSpace(t *testing.T) {
	s := newTestStore()
	id, err := s.Add(FieldText, 1, Point{X: 100, Y: 100}, View{Scale: 1.2})
	require.NoError(t, err)
	a, ok := s.Get(id)
	require.True(t, ok)
	assert.InDelta(t, 83.33, a.X, 0.01)
	assert.InDelta(t, 83.33, a.Y, 0.01)
	assert.Equal(t, 160.0, a.Width)
	assert.Equal(t, 24.0, a.Height)
	assert.Equal(t, DefaultFontSize, a.FontSize)
	assert.Equal(t, DefaultColor, a.Color)
	assert.Equal(t, TextContent(""), a.Content)
}

func TestStoreAddDefaults(t *testing.T) {
	tests := []struct {
		ft      FieldType
		w, h    float64
		content Content
	}{
		{FieldText, 160, 24, TextContent("")},
		{FieldDate, 100, 24, DateContent("03/05/2026")},
		{FieldTimestamp, 150, 24, TimestampContent("03/05/2026 2:07 PM")},
		{FieldCheckbox, 20, 20, CheckboxContent(false)},
		{FieldSignature, 180, 60, SignatureContent{}},
	}
	for _, tt := range tests {
		t.Run(string(tt.ft), func(t *testing.T) {
			s := newTestStore()
			a, _ := s.Get(mustAdd(t, s, tt.ft, 1, 10, 10))
			assert.Equal(t, tt.ft, a.Type)
			assert.Equal(t, tt.w, a.Width)
			assert.Equal(t, tt.h, a.Height)
			assert.Equal(t, tt.content, a.Content)
			assert.Equal(t, tt.ft.HasText(), a.FontSize > 0)
		})
	}
}

func TestStoreAddRejectsBadInput(t *testing.T) {
	s := newTestStore()
	_, err := s.Add(FieldType("radio"), 1, Point{}, View{Scale: 1})
	assert.Error(t, err)
	_, err = s.Add(FieldText, 0, Point{}, View{Scale: 1})
	assert.ErrorIs(t, err, ErrPageOutOfRange)
	assert.Zero(t, s.Len())
}

func TestStoreAddClampsIntoPage(t *testing.T) {
	s := newTestStore()
	a, _ := s.Get(mustAdd(t, s, FieldText, 1, 590, 790))
	assert.Equal(t, testPageW-160, a.X)
	assert.Equal(t, testPageH-24, a.Y)
	b, _ := s.Get(mustAdd(t, s, FieldText, 1, -20, -5))
	assert.Equal(t, 0.0, b.X)
	assert.Equal(t, 0.0, b.Y)
}

func TestStoreUniqueIDs(t *testing.T) {
	ids := []string{"dup", "dup", "", "x"}
	i := 0
	s := NewStore(WithStoreIDs(func() string {
		id := ids[i]
		i++
		return id
	}))
	first := mustAdd(t, s, FieldText, 1, 0, 0)
	second := mustAdd(t, s, FieldText, 1, 0, 0)
	assert.Equal(t, "dup", first)
	assert.Equal(t, "x", second)
	assert.Equal(t, 2, s.Len())
}

func TestStoreUpdate(t *testing.T) {
	s := newTestStore()
	id := mustAdd(t, s, FieldText, 1, 50, 50)

	t.Run("move keeps identity", func(t *testing.T) {
		before, _ := s.Get(id)
		require.NoError(t, s.Update(id, Patch{X: Float(200), Y: Float(50)}))
		after, _ := s.Get(id)
		assert.Equal(t, 200.0, after.X)
		assert.Equal(t, 50.0, after.Y)
		assert.Equal(t, before.ID, after.ID)
		assert.Equal(t, before.Type, after.Type)
		assert.Equal(t, before.Content, after.Content)
	})

	t.Run("width below minimum", func(t *testing.T) {
		require.NoError(t, s.Update(id, Patch{Width: Float(10), Height: Float(3)}))
		a, _ := s.Get(id)
		assert.Equal(t, 60.0, a.Width)
		assert.Equal(t, 24.0, a.Height)
	})

	t.Run("content mismatch", func(t *testing.T) {
		before, _ := s.Get(id)
		err := s.Update(id, Patch{X: Float(1), Content: CheckboxContent(true)})
		assert.ErrorIs(t, err, ErrContentMismatch)
		after, _ := s.Get(id)
		assert.Equal(t, before, after)
	})

	t.Run("style", func(t *testing.T) {
		require.NoError(t, s.Update(id, Patch{FontSize: Float(14), Color: String("#000")}))
		a, _ := s.Get(id)
		assert.Equal(t, 14.0, a.FontSize)
		assert.Equal(t, "#000", a.Color)
	})

	t.Run("unknown id", func(t *testing.T) {
		assert.NoError(t, s.Update("missing", Patch{X: Float(1)}))
		assert.Equal(t, 1, s.Len())
	})
}

func TestStoreCheckboxToggleTwice(t *testing.T) {
	s := newTestStore()
	id := mustAdd(t, s, FieldCheckbox, 1, 10, 10)
	orig, _ := s.Get(id)
	for i := 0; i < 2; i++ {
		a, _ := s.Get(id)
		require.NoError(t, s.Update(id, Patch{Content: CheckboxContent(!a.Checked())}))
	}
	final, _ := s.Get(id)
	assert.Equal(t, orig.Content, final.Content)
}

func TestStoreRemove(t *testing.T) {
	s := newTestStore()
	a := mustAdd(t, s, FieldText, 1, 0, 0)
	b := mustAdd(t, s, FieldText, 1, 0, 0)
	s.SetEditing(a)

	assert.NotPanics(t, func() { s.Remove("missing") })
	assert.Equal(t, 2, s.Len())

	s.Remove(a)
	assert.Equal(t, 1, s.Len())
	assert.Empty(t, s.Selected())
	assert.Empty(t, s.Editing())
	assert.Equal(t, []string{b}, ids(s.ListByPage(1)))

	s.Remove(a)
	assert.Equal(t, 1, s.Len())
}

func TestStoreOrdering(t *testing.T) {
	s := newTestStore()
	a := mustAdd(t, s, FieldText, 1, 0, 0)
	b := mustAdd(t, s, FieldDate, 2, 0, 0)
	c := mustAdd(t, s, FieldCheckbox, 1, 0, 0)
	d := mustAdd(t, s, FieldSignature, 2, 0, 0)

	assert.Equal(t, []string{a, c}, ids(s.ListByPage(1)))
	assert.Equal(t, []string{b, d}, ids(s.ListByPage(2)))
	assert.Empty(t, s.ListByPage(3))
	assert.Equal(t, []string{a, b, c, d}, ids(s.All()))

	require.NoError(t, s.MoveToPage(a, 2))
	assert.Equal(t, []string{c}, ids(s.ListByPage(1)))
	assert.Equal(t, []string{b, d, a}, ids(s.ListByPage(2)))
	assert.ErrorIs(t, s.MoveToPage(a, 0), ErrPageOutOfRange)
	assert.NoError(t, s.MoveToPage("missing", 1))
}

func TestStoreClear(t *testing.T) {
	s := newTestStore()
	id := mustAdd(t, s, FieldText, 1, 0, 0)
	s.Select(id)
	s.Clear()
	assert.Zero(t, s.Len())
	assert.Empty(t, s.All())
	assert.Empty(t, s.Selected())
}

func TestStoreSelection(t *testing.T) {
	s := newTestStore()
	a := mustAdd(t, s, FieldText, 1, 0, 0)
	b := mustAdd(t, s, FieldText, 1, 0, 0)

	s.Select("missing")
	assert.Empty(t, s.Selected())

	s.SetEditing(a)
	assert.Equal(t, a, s.Selected())
	assert.Equal(t, a, s.Editing())

	s.Select(b)
	assert.Equal(t, b, s.Selected())
	assert.Empty(t, s.Editing())

	s.ClearSelection()
	assert.Empty(t, s.Selected())
}

func TestStoreRestore(t *testing.T) {
	s := newTestStore()
	keep := mustAdd(t, s, FieldText, 1, 0, 0)

	err := s.Restore([]Annotation{
		{ID: "x", Type: FieldText, Page: 1, Content: TextContent("")},
		{ID: "x", Type: FieldText, Page: 1, Content: TextContent("")},
	})
	assert.ErrorIs(t, err, ErrDuplicateID)
	err = s.Restore([]Annotation{{ID: "y", Type: FieldDate, Page: 1, Content: TextContent("")}})
	assert.ErrorIs(t, err, ErrContentMismatch)
	err = s.Restore([]Annotation{{ID: "z", Type: FieldText, Page: 0, Content: TextContent("")}})
	assert.ErrorIs(t, err, ErrPageOutOfRange)
	assert.Equal(t, []string{keep}, ids(s.All()))

	require.NoError(t, s.Restore([]Annotation{
		{ID: "p2", Type: FieldCheckbox, Page: 2, X: 5, Y: 5, Width: 1, Height: 1, Content: CheckboxContent(true)},
		{ID: "p1", Type: FieldText, Page: 1, X: 5, Y: 5, Width: 100, Height: 30, Content: TextContent("hi")},
	}))
	assert.Equal(t, []string{"p2", "p1"}, ids(s.All()))
	a, _ := s.Get("p2")
	assert.Equal(t, 20.0, a.Width)
	assert.True(t, a.Checked())
}

func ids(anns []Annotation) []string {
	out := make([]string, 0, len(anns))
	for _, a := range anns {
		out = append(out, a.ID)
	}
	return out
}
