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
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/tdewolff/canvas"
)

// SignatureCapturer 外部签名采集
// 用户取消时返回 ErrCaptureCancelled
type SignatureCapturer interface {
	Capture(ctx context.Context) (string, error)
}

// SignatureCapturerFunc 函数形式的 SignatureCapturer
type SignatureCapturerFunc func(ctx context.Context) (string, error)

// Capture 调用函数
func (f SignatureCapturerFunc) Capture(ctx context.Context) (string, error) {
	return f(ctx)
}

// Editor 注释编辑器
// 持有一个打开的文档、注释集合与交互状态
type Editor struct {
	mu            sync.Mutex
	log           zerolog.Logger
	now           func() time.Time
	newID         func() string
	dragThreshold float64
	activation    time.Duration
	suppressor    Suppressor
	capturer      SignatureCapturer
	sink          Sink
	onSave        func(SaveResult, error)
	onInvalidate  func(ids ...string)
	font          *canvas.FontFamily

	fields *FieldRenderer
	saver  *Saver
	saves  sync.WaitGroup

	source       DocumentSource
	documentID   string
	originalName string
	page         int
	scale        float64
	origin       Point
	store        *Store
	ctrl         *Controller
	pages        *PageRenderer
	pending      []string
	closed       bool
}

// Open 打开文档
// 失败时返回 *DocumentLoadError, 编辑器保持未打开状态
// 入参: ctx 上下文, source 文档来源, documentID 文档ID, originalName 原文件名
// 返回: error 错误信息
func (e *Editor) Open(ctx context.Context, source DocumentSource, documentID, originalName string) error {
	e.mu.Lock()
	defer e.unlock()
	fail := func(err error) error {
		e.log.Error().Err(err).Str("document", documentID).Str("name", originalName).Msg("open document failed")
		return &DocumentLoadError{Name: originalName, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	if source == nil {
		return fail(errors.New("nil document source"))
	}
	if source.PageCount() < 1 {
		return fail(errors.New("document has no pages"))
	}
	if _, _, err := source.PageSize(1); err != nil {
		return fail(err)
	}
	if e.ctrl != nil {
		e.ctrl.Close()
	}
	e.source = source
	e.documentID = documentID
	e.originalName = originalName
	e.page = 1
	e.origin = Point{}
	e.closed = false
	e.store = NewStore(
		WithStoreBounds(e.pageBounds),
		WithStoreIDs(e.newID),
		WithStoreClock(e.now),
	)
	e.ctrl = NewController(e.store, ControllerConfig{
		View:             e.currentView,
		Page:             func() int { return e.page },
		Layout:           e.fields.Layout,
		DragThreshold:    e.dragThreshold,
		ActivationWindow: e.activation,
		Suppressor:       e.suppressor,
		Invalidate:       e.queueInvalidate,
		Logger:           e.log,
	})
	e.pages = NewPageRenderer(source, e.log, nil)
	e.log.Info().
		Str("document", documentID).
		Str("name", originalName).
		Int("pages", source.PageCount()).
		Msg("document opened")
	return nil
}

// pageBounds 查询文档页面尺寸
func (e *Editor) pageBounds(page int) (float64, float64, bool) {
	if e.source == nil {
		return 0, 0, false
	}
	w, h, err := e.source.PageSize(page)
	if err != nil {
		return 0, 0, false
	}
	return w, h, true
}

// currentView 当前视图
func (e *Editor) currentView() View {
	return View{Scale: e.scale, Origin: e.origin}
}

// queueInvalidate 记录待重绘的注释, 释放锁后统一通知宿主
func (e *Editor) queueInvalidate(ids ...string) {
	e.pending = append(e.pending, ids...)
}

// unlock 释放锁并发出重绘通知
func (e *Editor) unlock() {
	ids := e.pending
	e.pending = nil
	fn := e.onInvalidate
	e.mu.Unlock()
	if fn != nil && len(ids) > 0 {
		fn(ids...)
	}
}

// ready 检查文档是否已打开
func (e *Editor) ready() error {
	if e.store == nil || e.closed {
		return ErrNotOpen
	}
	return nil
}

// SetPage 切换当前页面
// 切换时结束手势并清除选择
// 入参: n 页码
// 返回: error 错误信息
func (e *Editor) SetPage(n int) error {
	e.mu.Lock()
	defer e.unlock()
	if err := e.ready(); err != nil {
		return err
	}
	if n < 1 || n > e.source.PageCount() {
		return fmt.Errorf("set page %d: %w", n, ErrPageOutOfRange)
	}
	if n == e.page {
		return nil
	}
	e.ctrl.Reset()
	e.page = n
	e.pages.Invalidate()
	return nil
}

// SetScale 设置缩放比例
// 可在手势进行中调用, 注释的文档坐标不变
// 入参: s 缩放比例
// 返回: error 错误信息
func (e *Editor) SetScale(s float64) error {
	if s <= 0 {
		return fmt.Errorf("invalid scale %g", s)
	}
	e.mu.Lock()
	defer e.unlock()
	if e.scale != s {
		e.scale = s
		if e.pages != nil {
			e.pages.Invalidate()
		}
	}
	return nil
}

// SetOrigin 设置页面画布左上角的屏幕坐标
// 入参: p 屏幕坐标
func (e *Editor) SetOrigin(p Point) {
	e.mu.Lock()
	defer e.unlock()
	e.origin = p
}

// Page 当前页码
func (e *Editor) Page() int {
	e.mu.Lock()
	defer e.unlock()
	return e.page
}

// Scale 当前缩放比例
func (e *Editor) Scale() float64 {
	e.mu.Lock()
	defer e.unlock()
	return e.scale
}

// View 当前视图
func (e *Editor) View() View {
	e.mu.Lock()
	defer e.unlock()
	return e.currentView()
}

// PageCount 文档页数, 未打开时为0
func (e *Editor) PageCount() int {
	e.mu.Lock()
	defer e.unlock()
	if e.ready() != nil {
		return 0
	}
	return e.source.PageCount()
}

// State 当前交互状态
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.unlock()
	if e.ctrl == nil {
		return StateIdle
	}
	return e.ctrl.State()
}

// Selected 选中注释ID
func (e *Editor) Selected() string {
	e.mu.Lock()
	defer e.unlock()
	if e.store == nil {
		return ""
	}
	return e.store.Selected()
}

// Editing 编辑中的注释ID
func (e *Editor) Editing() string {
	e.mu.Lock()
	defer e.unlock()
	if e.store == nil {
		return ""
	}
	return e.store.Editing()
}

// Annotation 按ID获取注释
// 入参: id 注释ID
// 返回: Annotation 注释, bool 是否存在
func (e *Editor) Annotation(id string) (Annotation, bool) {
	e.mu.Lock()
	defer e.unlock()
	if e.store == nil {
		return Annotation{}, false
	}
	return e.store.Get(id)
}

// Annotations 全部注释, 按创建顺序
func (e *Editor) Annotations() []Annotation {
	e.mu.Lock()
	defer e.unlock()
	if e.store == nil {
		return nil
	}
	return e.store.All()
}

// PageAnnotations 指定页面的注释, 按绘制层级
// 入参: page 页码
// 返回: []Annotation 注释列表
func (e *Editor) PageAnnotations(page int) []Annotation {
	e.mu.Lock()
	defer e.unlock()
	if e.store == nil {
		return nil
	}
	return e.store.ListByPage(page)
}

// AddAnnotation 在当前页面新建注释
// 入参: t 字段类型, at 屏幕坐标
// 返回: string 注释ID, error 错误信息
func (e *Editor) AddAnnotation(t FieldType, at Point) (string, error) {
	e.mu.Lock()
	defer e.unlock()
	if err := e.ready(); err != nil {
		return "", err
	}
	id, err := e.store.Add(t, e.page, at, e.currentView())
	if err != nil {
		return "", err
	}
	e.log.Debug().Str("id", id).Str("type", string(t)).Int("page", e.page).Msg("annotation added")
	e.queueInvalidate(id)
	return id, nil
}

// UpdateAnnotation 局部更新注释
// 入参: id 注释ID, p 更新内容
// 返回: error 错误信息
func (e *Editor) UpdateAnnotation(id string, p Patch) error {
	e.mu.Lock()
	defer e.unlock()
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.store.Update(id, p); err != nil {
		return err
	}
	e.queueInvalidate(id)
	return nil
}

// MoveToPage 将注释移动到其他页面
// 入参: id 注释ID, page 目标页码
// 返回: error 错误信息
func (e *Editor) MoveToPage(id string, page int) error {
	e.mu.Lock()
	defer e.unlock()
	if err := e.ready(); err != nil {
		return err
	}
	if page > e.source.PageCount() {
		return fmt.Errorf("move %s to page %d: %w", id, page, ErrPageOutOfRange)
	}
	if e.store.Selected() == id {
		e.ctrl.Reset()
	}
	if err := e.store.MoveToPage(id, page); err != nil {
		return err
	}
	e.queueInvalidate(id)
	return nil
}

// DeleteSelected 删除选中注释
// 返回: string 被删除的注释ID, 无选中时为空
func (e *Editor) DeleteSelected() string {
	e.mu.Lock()
	defer e.unlock()
	if e.ready() != nil {
		return ""
	}
	return e.ctrl.DeleteSelected()
}

// ClearAll 删除全部注释
func (e *Editor) ClearAll() {
	e.mu.Lock()
	defer e.unlock()
	if e.ready() != nil {
		return
	}
	ids := make([]string, 0, e.store.Len())
	for _, a := range e.store.All() {
		ids = append(ids, a.ID)
	}
	e.ctrl.Reset()
	e.store.Clear()
	e.queueInvalidate(ids...)
}

// HandleEvent 处理宿主输入事件
// 保存快捷键触发异步保存, 结果通过 WithSaveHandler 回调; 进入签名字段编辑时调用签名采集
// 入参: ctx 上下文, ev 输入事件
// 返回: error 错误信息
func (e *Editor) HandleEvent(ctx context.Context, ev Event) error {
	e.mu.Lock()
	if err := e.ready(); err != nil {
		e.unlock()
		return err
	}
	if k, ok := ev.(KeyDown); ok && k.IsSaveShortcut() {
		anns := e.store.All()
		docID, name := e.documentID, e.originalName
		e.unlock()
		e.saveAsync(ctx, anns, docID, name)
		return nil
	}
	prev := e.ctrl.State()
	if err := e.ctrl.Dispatch(ev); err != nil {
		e.unlock()
		return err
	}
	var sig string
	if prev != StateEditing && e.ctrl.State() == StateEditing && e.capturer != nil {
		if a, ok := e.store.Get(e.store.Editing()); ok && a.Type == FieldSignature {
			sig = a.ID
		}
	}
	e.unlock()
	if sig == "" {
		return nil
	}
	return e.captureSignature(ctx, sig)
}

// captureSignature 采集签名并写入字段
// 采集期间不持有锁; 返回后字段已不在编辑中则丢弃结果
func (e *Editor) captureSignature(ctx context.Context, id string) error {
	ref, err := e.capturer.Capture(ctx)
	e.mu.Lock()
	defer e.unlock()
	if e.ready() != nil || e.store.Editing() != id {
		return nil
	}
	if err != nil {
		_ = e.ctrl.Dispatch(Blur{})
		if errors.Is(err, ErrCaptureCancelled) {
			e.log.Debug().Str("id", id).Msg("signature capture cancelled")
			return nil
		}
		e.log.Error().Err(err).Str("id", id).Msg("signature capture failed")
		return err
	}
	if err := e.ctrl.Dispatch(ValueChange{Value: SignatureContent{Ref: ref}}); err != nil {
		return err
	}
	return e.ctrl.Dispatch(Blur{})
}

// Save 保存全部页面的注释
// 已有保存进行中时返回 ErrSaveInFlight; 不修改注释集合
// 入参: ctx 上下文
// 返回: SaveResult 保存结果, error 错误信息
func (e *Editor) Save(ctx context.Context) (SaveResult, error) {
	e.mu.Lock()
	if err := e.ready(); err != nil {
		e.unlock()
		return SaveResult{}, err
	}
	anns := e.store.All()
	docID, name := e.documentID, e.originalName
	e.unlock()
	return e.saver.Save(ctx, anns, docID, name)
}

// saveAsync 后台保存触发时的注释快照, 结果交给保存回调
func (e *Editor) saveAsync(ctx context.Context, anns []Annotation, docID, name string) {
	if e.saver.InFlight() {
		e.log.Debug().Msg("save shortcut ignored, another save in progress")
		return
	}
	ctx = context.WithoutCancel(ctx)
	e.saves.Add(1)
	go func() {
		defer e.saves.Done()
		res, err := e.saver.Save(ctx, anns, docID, name)
		if errors.Is(err, ErrSaveInFlight) {
			return
		}
		if e.onSave != nil {
			e.onSave(res, err)
		}
	}()
}

// Render 渲染当前页面并叠加注释
// 被更新的渲染请求取代时返回 ErrSuperseded
// 入参: ctx 上下文
// 返回: *image.RGBA 合成图像, error 错误信息
func (e *Editor) Render(ctx context.Context) (*image.RGBA, error) {
	e.mu.Lock()
	if err := e.ready(); err != nil {
		e.unlock()
		return nil, err
	}
	pages, page, scale := e.pages, e.page, e.scale
	e.unlock()
	surface, err := pages.Render(ctx, page, scale)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	anns := e.store.ListByPage(surface.Page)
	opts := DrawOptions{Selected: e.store.Selected(), Editing: e.store.Editing(), Chrome: true}
	e.unlock()
	b := surface.Image.Bounds()
	overlay := e.fields.Overlay(anns, surface.Scale, float64(b.Dx()), float64(b.Dy()), opts)
	return Compose(surface.Image, overlay), nil
}

// Load 用保存的数据替换注释集合
// 入参: data 序列化数据
// 返回: error 错误信息
func (e *Editor) Load(data []byte) error {
	anns, err := Unmarshal(data)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.unlock()
	if err := e.ready(); err != nil {
		return err
	}
	count := e.source.PageCount()
	for _, a := range anns {
		if a.Page > count {
			return fmt.Errorf("load %s on page %d: %w", a.ID, a.Page, ErrPageOutOfRange)
		}
	}
	e.ctrl.Reset()
	if err := e.store.Restore(anns); err != nil {
		return err
	}
	ids := make([]string, 0, len(anns))
	for _, a := range anns {
		ids = append(ids, a.ID)
	}
	e.queueInvalidate(ids...)
	e.log.Info().Str("document", e.documentID).Int("annotations", len(anns)).Msg("annotations loaded")
	return nil
}

// Close 结束编辑
// 释放手势副作用并等待后台保存完成
func (e *Editor) Close() {
	e.mu.Lock()
	if e.ctrl != nil {
		e.ctrl.Close()
	}
	e.closed = true
	e.unlock()
	e.saves.Wait()
}
