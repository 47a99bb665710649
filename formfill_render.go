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
	"image"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Surface 已绘制的页面光栅
type Surface struct {
	Page       int
	Scale      float64
	Image      image.Image
	Generation uint64
}

// PageRenderer 可被取代的页面渲染器
// 每个请求携带递增的代号, 完成时若已有更新的请求则丢弃结果
type PageRenderer struct {
	source     DocumentSource
	log        zerolog.Logger
	generation atomic.Uint64
	mu         sync.Mutex
	surface    *Surface
	onPaint    func(*Surface)
}

// NewPageRenderer 创建页面渲染器
// 入参: source 文档来源, log 日志, onPaint 绘制回调(可为nil)
// 返回: *PageRenderer 渲染器
func NewPageRenderer(source DocumentSource, log zerolog.Logger, onPaint func(*Surface)) *PageRenderer {
	return &PageRenderer{
		source:  source,
		log:     log,
		onPaint: onPaint,
	}
}

// Render 渲染页面
// 被更新请求取代时返回 ErrSuperseded 且不绘制
// 入参: ctx 上下文, page 页码, scale 缩放比例
// 返回: *Surface 绘制结果, error 错误信息
func (r *PageRenderer) Render(ctx context.Context, page int, scale float64) (*Surface, error) {
	gen := r.generation.Add(1)
	img, err := r.source.RenderPage(ctx, page, scale)
	if r.generation.Load() != gen {
		r.log.Debug().
			Int("page", page).
			Float64("scale", scale).
			Uint64("generation", gen).
			Msg("discarding superseded render")
		return nil, ErrSuperseded
	}
	if err != nil {
		r.log.Error().Err(err).Int("page", page).Float64("scale", scale).Msg("render failed")
		return nil, &RenderError{Page: page, Scale: scale, Err: err}
	}
	s := &Surface{Page: page, Scale: scale, Image: img, Generation: gen}
	r.mu.Lock()
	if r.generation.Load() != gen {
		r.mu.Unlock()
		return nil, ErrSuperseded
	}
	r.surface = s
	r.mu.Unlock()
	if r.onPaint != nil {
		r.onPaint(s)
	}
	return s, nil
}

// Invalidate 使进行中的请求全部失效
func (r *PageRenderer) Invalidate() {
	r.generation.Add(1)
}

// Surface 最近一次绘制的结果
// 返回: *Surface 绘制结果, 尚未绘制时为nil
func (r *PageRenderer) Surface() *Surface {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.surface
}
