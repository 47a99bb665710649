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
	"container/list"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PageBounds 页面尺寸查询
// 入参: page 页码(从1开始)
// 返回: float64 宽度, float64 高度, bool 是否已知
type PageBounds func(page int) (float64, float64, bool)

// entry 存储条目
type entry struct {
	ann    Annotation
	inPage *list.Element
	inAll  *list.Element
}

// Store 注释集合
// 以ID索引, 按页保留创建顺序(即绘制层级)
type Store struct {
	entries  map[string]*entry
	pages    map[int]*list.List
	all      *list.List
	selected string
	editing  string
	bounds   PageBounds
	newID    func() string
	now      func() time.Time
}

// StoreOption 存储配置选项
type StoreOption func(*Store)

// WithStoreBounds 设置页面尺寸查询
// 入参: b 尺寸查询函数
// 返回: StoreOption 配置选项
func WithStoreBounds(b PageBounds) StoreOption {
	return func(s *Store) {
		s.bounds = b
	}
}

// WithStoreIDs 设置ID生成器
// 入参: gen ID生成函数
// 返回: StoreOption 配置选项
func WithStoreIDs(gen func() string) StoreOption {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithStoreClock 设置时钟
// 入参: now 时钟函数
// 返回: StoreOption 配置选项
func WithStoreClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore 创建注释集合
// 入参: opts 配置选项
// 返回: *Store 注释集合
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		entries: make(map[string]*entry),
		pages:   make(map[int]*list.List),
		all:     list.New(),
		newID:   uuid.NewString,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Len 注释总数
func (s *Store) Len() int {
	return len(s.entries)
}

// Add 新建注释
// 入参: t 字段类型, page 页码, screen 屏幕坐标(字段左上角), view 当前视图
// 返回: string 新注释ID, error 错误信息
func (s *Store) Add(t FieldType, page int, screen Point, view View) (string, error) {
	if _, err := ParseFieldType(string(t)); err != nil {
		return "", err
	}
	if page < 1 {
		return "", fmt.Errorf("add %s on page %d: %w", t, page, ErrPageOutOfRange)
	}
	pos := view.ToDocument(screen)
	w, h := t.DefaultSize()
	a := Annotation{
		Type:    t,
		Page:    page,
		X:       pos.X,
		Y:       pos.Y,
		Width:   w,
		Height:  h,
		Content: initialContent(t, s.now()),
	}
	if t.HasText() {
		a.FontSize = DefaultFontSize
		a.Color = DefaultColor
	}
	s.fitPage(&a)
	id := s.newID()
	for {
		if _, dup := s.entries[id]; !dup && id != "" {
			break
		}
		id = s.newID()
	}
	a.ID = id
	s.insert(a)
	return id, nil
}

// insert 追加条目到索引与顺序表
func (s *Store) insert(a Annotation) {
	e := &entry{ann: a}
	pl, ok := s.pages[a.Page]
	if !ok {
		pl = list.New()
		s.pages[a.Page] = pl
	}
	e.inPage = pl.PushBack(e)
	e.inAll = s.all.PushBack(e)
	s.entries[a.ID] = e
}

// Get 按ID获取注释
// 入参: id 注释ID
// 返回: Annotation 注释副本, bool 是否存在
func (s *Store) Get(id string) (Annotation, bool) {
	e, ok := s.entries[id]
	if !ok {
		return Annotation{}, false
	}
	return e.ann, true
}

// Update 局部更新注释
// 不存在的ID直接忽略; ID与类型永不改变
// 入参: id 注释ID, p 更新内容
// 返回: error 错误信息
func (s *Store) Update(id string, p Patch) error {
	e, ok := s.entries[id]
	if !ok {
		return nil
	}
	a := e.ann
	if p.Content != nil && p.Content.FieldType() != a.Type {
		return fmt.Errorf("update %s: %s content on %s field: %w", id, p.Content.FieldType(), a.Type, ErrContentMismatch)
	}
	if p.X != nil {
		a.X = *p.X
	}
	if p.Y != nil {
		a.Y = *p.Y
	}
	minW, minH := a.Type.MinSize()
	if p.Width != nil {
		a.Width = max(minW, *p.Width)
	}
	if p.Height != nil {
		a.Height = max(minH, *p.Height)
	}
	if p.Content != nil {
		a.Content = p.Content
	}
	if p.FontSize != nil && *p.FontSize > 0 {
		a.FontSize = *p.FontSize
	}
	if p.Color != nil {
		a.Color = *p.Color
	}
	e.ann = a
	return nil
}

// Remove 删除注释
// 不存在的ID直接忽略
// 入参: id 注释ID
func (s *Store) Remove(id string) {
	e, ok := s.entries[id]
	if !ok {
		return
	}
	if pl, ok := s.pages[e.ann.Page]; ok {
		pl.Remove(e.inPage)
		if pl.Len() == 0 {
			delete(s.pages, e.ann.Page)
		}
	}
	s.all.Remove(e.inAll)
	delete(s.entries, id)
	if s.selected == id {
		s.selected = ""
		s.editing = ""
	}
}

// Clear 清空全部注释与选择状态
func (s *Store) Clear() {
	s.entries = make(map[string]*entry)
	s.pages = make(map[int]*list.List)
	s.all = list.New()
	s.selected = ""
	s.editing = ""
}

// ListByPage 按创建顺序列出页面注释
// 入参: page 页码
// 返回: []Annotation 注释列表
func (s *Store) ListByPage(page int) []Annotation {
	pl, ok := s.pages[page]
	if !ok {
		return nil
	}
	out := make([]Annotation, 0, pl.Len())
	for el := pl.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*entry).ann)
	}
	return out
}

// All 按创建顺序列出全部页面的注释
// 返回: []Annotation 注释列表
func (s *Store) All() []Annotation {
	out := make([]Annotation, 0, s.all.Len())
	for el := s.all.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*entry).ann)
	}
	return out
}

// MoveToPage 将注释移动到其他页面
// 移动后位于目标页面最上层
// 入参: id 注释ID, page 目标页码
// 返回: error 错误信息
func (s *Store) MoveToPage(id string, page int) error {
	e, ok := s.entries[id]
	if !ok {
		return nil
	}
	if page < 1 {
		return fmt.Errorf("move %s to page %d: %w", id, page, ErrPageOutOfRange)
	}
	if e.ann.Page == page {
		return nil
	}
	if pl, ok := s.pages[e.ann.Page]; ok {
		pl.Remove(e.inPage)
		if pl.Len() == 0 {
			delete(s.pages, e.ann.Page)
		}
	}
	e.ann.Page = page
	s.fitPage(&e.ann)
	pl, ok := s.pages[page]
	if !ok {
		pl = list.New()
		s.pages[page] = pl
	}
	e.inPage = pl.PushBack(e)
	return nil
}

// Restore 用反序列化的集合替换当前内容
// 入参: anns 注释列表
// 返回: error 错误信息
func (s *Store) Restore(anns []Annotation) error {
	seen := make(map[string]bool, len(anns))
	for _, a := range anns {
		if a.ID == "" {
			return fmt.Errorf("restore: empty annotation id")
		}
		if seen[a.ID] {
			return fmt.Errorf("restore %s: %w", a.ID, ErrDuplicateID)
		}
		seen[a.ID] = true
		if err := a.validate(); err != nil {
			return fmt.Errorf("restore: %w", err)
		}
		if a.Page < 1 {
			return fmt.Errorf("restore %s: %w", a.ID, ErrPageOutOfRange)
		}
	}
	s.Clear()
	for _, a := range anns {
		minW, minH := a.Type.MinSize()
		a.Width = max(minW, a.Width)
		a.Height = max(minH, a.Height)
		s.insert(a)
	}
	return nil
}

// Select 设置选中注释
// 入参: id 注释ID, 为空表示取消选择
func (s *Store) Select(id string) {
	if id != "" {
		if _, ok := s.entries[id]; !ok {
			return
		}
	}
	if id != s.selected {
		s.editing = ""
	}
	s.selected = id
}

// Selected 当前选中注释ID
func (s *Store) Selected() string {
	return s.selected
}

// SetEditing 设置编辑中的注释
// 编辑中的注释必然是选中注释
// 入参: id 注释ID, 为空表示退出编辑
func (s *Store) SetEditing(id string) {
	if id == "" {
		s.editing = ""
		return
	}
	if _, ok := s.entries[id]; !ok {
		return
	}
	s.selected = id
	s.editing = id
}

// Editing 当前编辑中的注释ID
func (s *Store) Editing() string {
	return s.editing
}

// ClearSelection 清除选择与编辑状态
func (s *Store) ClearSelection() {
	s.selected = ""
	s.editing = ""
}

// fitPage 将注释限制在页面范围内
// 入参: a 注释
func (s *Store) fitPage(a *Annotation) {
	if s.bounds == nil {
		a.X = max(0, a.X)
		a.Y = max(0, a.Y)
		return
	}
	pw, ph, ok := s.bounds(a.Page)
	if !ok {
		a.X = max(0, a.X)
		a.Y = max(0, a.Y)
		return
	}
	fitRect(a, pw, ph)
}

// fitRect 先收缩尺寸再平移, 使注释完全落在页面内
// 入参: a 注释, pw 页面宽度, ph 页面高度
func fitRect(a *Annotation, pw, ph float64) {
	minW, minH := a.Type.MinSize()
	if a.Width > pw {
		a.Width = max(minW, pw)
	}
	if a.Height > ph {
		a.Height = max(minH, ph)
	}
	a.X = clamp(a.X, 0, pw-a.Width)
	a.Y = clamp(a.Y, 0, ph-a.Height)
}
