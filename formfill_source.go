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
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"

	"github.com/tdewolff/canvas"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DocumentSource 外部文档来源
// 核心从不解析文档内部结构, 只请求按页码与缩放比例渲染
type DocumentSource interface {
	// PageCount 页数
	PageCount() int
	// PageSize 页面尺寸(文档空间单位)
	PageSize(page int) (float64, float64, error)
	// RenderPage 以指定缩放比例渲染页面
	RenderPage(ctx context.Context, page int, scale float64) (image.Image, error)
}

// PageDrawer 可按矢量方式绘制页面的文档来源
// 导出时优先使用
type PageDrawer interface {
	DrawPage(ctx *canvas.Context, page int) error
}

// ImageSource 由光栅图片组成的文档
// 每张图片为一页, 一个像素对应一个文档单位
type ImageSource struct {
	pages []image.Image
}

// NewImageSource 由图片创建文档来源
// 入参: pages 页面图片
// 返回: *ImageSource 文档来源
func NewImageSource(pages ...image.Image) *ImageSource {
	return &ImageSource{pages: pages}
}

// DecodeImageSource 解码图片流创建文档来源
// 支持 png/jpeg/gif/bmp/tiff/webp
// 入参: readers 图片流
// 返回: *ImageSource 文档来源, error 错误信息
func DecodeImageSource(readers ...io.Reader) (*ImageSource, error) {
	pages := make([]image.Image, 0, len(readers))
	for i, r := range readers {
		img, _, err := image.Decode(r)
		if err != nil {
			return nil, fmt.Errorf("decode page %d: %w", i+1, err)
		}
		pages = append(pages, img)
	}
	return NewImageSource(pages...), nil
}

// PageCount 页数
func (s *ImageSource) PageCount() int {
	return len(s.pages)
}

// PageSize 页面尺寸
// 入参: page 页码
// 返回: float64 宽度, float64 高度, error 错误信息
func (s *ImageSource) PageSize(page int) (float64, float64, error) {
	img, err := s.page(page)
	if err != nil {
		return 0, 0, err
	}
	b := img.Bounds()
	return float64(b.Dx()), float64(b.Dy()), nil
}

// RenderPage 按缩放比例重采样页面
// 入参: ctx 上下文, page 页码, scale 缩放比例
// 返回: image.Image 图像, error 错误信息
func (s *ImageSource) RenderPage(ctx context.Context, page int, scale float64) (image.Image, error) {
	img, err := s.page(page)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := img.Bounds()
	w := int(math.Round(float64(b.Dx()) * scale))
	h := int(math.Round(float64(b.Dy()) * scale))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid scale %g", scale)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst, nil
}

// DrawPage 将页面图片绘制到画布
// 入参: ctx 画布上下文, page 页码
// 返回: error 错误信息
func (s *ImageSource) DrawPage(ctx *canvas.Context, page int) error {
	img, err := s.page(page)
	if err != nil {
		return err
	}
	ctx.DrawImage(0, 0, img, canvas.DPMM(1.0))
	return nil
}

// page 按页码取图片
func (s *ImageSource) page(page int) (image.Image, error) {
	if page < 1 || page > len(s.pages) {
		return nil, fmt.Errorf("page %d: %w", page, ErrPageOutOfRange)
	}
	return s.pages[page-1], nil
}
