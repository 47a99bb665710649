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
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	// lineSpacing 行高与字号之比
	lineSpacing = 1.25
	// textPadding 文本框上下内边距之和(文档单位)
	textPadding = 4.0
	// mmToPt 毫米到磅的换算, 画布以毫米为单位
	mmToPt = 2.83465
	// placeholderText 未签名占位文字
	placeholderText = "click to sign"
	// checkGlyph 导出时的勾选字符
	checkGlyph = "X"
	// imageCacheSize 签名图片缓存上限
	imageCacheSize = 32
)

var (
	chromeColor = color.RGBA{R: 37, G: 99, B: 235, A: 255}
	frameColor  = color.RGBA{R: 148, G: 163, B: 184, A: 255}
	hintColor   = color.RGBA{R: 100, G: 116, B: 139, A: 255}
)

// DrawOptions 绘制选项
type DrawOptions struct {
	// Selected 选中注释ID
	Selected string
	// Editing 编辑中的注释ID
	Editing string
	// Chrome 是否绘制编辑器外框、选中框与缩放手柄
	Chrome bool
}

// FieldRenderer 按字段类型绘制注释
type FieldRenderer struct {
	font   *canvas.FontFamily
	mu     sync.Mutex
	images map[string]image.Image
}

// DefaultFontFamily 内置 Go Regular 字体族
// 返回: *canvas.FontFamily 字体族, error 错误信息
func DefaultFontFamily() (*canvas.FontFamily, error) {
	ff := canvas.NewFontFamily("goregular")
	if err := ff.LoadFont(goregular.TTF, 0, canvas.FontRegular); err != nil {
		return nil, fmt.Errorf("load default font: %w", err)
	}
	return ff, nil
}

// NewFieldRenderer 创建字段渲染器
// 入参: font 字体族, 为nil时使用内置字体
// 返回: *FieldRenderer 渲染器, error 错误信息
func NewFieldRenderer(font *canvas.FontFamily) (*FieldRenderer, error) {
	if font == nil {
		ff, err := DefaultFontFamily()
		if err != nil {
			return nil, err
		}
		font = ff
	}
	return &FieldRenderer{
		font:   font,
		images: make(map[string]image.Image),
	}, nil
}

// Layout 注释在屏幕上的显示区域
// 文本字段高度随行数增长, 内容不会被裁切
// 入参: a 注释, v 视图
// 返回: Rect 屏幕区域
func (r *FieldRenderer) Layout(a Annotation, v View) Rect {
	return v.RectToScreen(displayBounds(a))
}

// displayBounds 文档空间的显示区域
func displayBounds(a Annotation) Rect {
	b := a.Bounds()
	if a.Type == FieldText {
		lines := strings.Count(a.Text(), "\n") + 1
		b.H = max(b.H, float64(lines)*fontSize(a)*lineSpacing+textPadding)
	}
	return b
}

// Draw 将注释绘制到画布
// 画布以屏幕像素为单位, 原点位于页面左下角; 显示区域经视图矩阵映射后再翻转Y轴
// 入参: ctx 画布上下文, anns 注释列表(按层级), scale 缩放比例, height 画布高度, opts 绘制选项
func (r *FieldRenderer) Draw(ctx *canvas.Context, anns []Annotation, scale float64, height float64, opts DrawOptions) {
	v := View{Scale: scale}
	for _, a := range anns {
		box := r.Layout(a, v)
		ctx.Push()
		r.drawField(ctx, a, box, v.scale(), height, opts)
		ctx.Pop()
	}
}

// Overlay 将注释光栅化为透明图层
// 入参: anns 注释列表, scale 缩放比例, w 宽度像素, h 高度像素, opts 绘制选项
// 返回: image.Image 图层
func (r *FieldRenderer) Overlay(anns []Annotation, scale float64, w, h float64, opts DrawOptions) image.Image {
	c := canvas.New(w, h)
	ctx := canvas.NewContext(c)
	r.Draw(ctx, anns, scale, h, opts)
	return rasterizer.Draw(c, canvas.DPMM(1.0), canvas.DefaultColorSpace)
}

// Compose 将图层叠加到页面光栅上
// 入参: page 页面图像, overlay 注释图层
// 返回: *image.RGBA 合成结果
func Compose(page, overlay image.Image) *image.RGBA {
	b := page.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), page, b.Min, xdraw.Src)
	if overlay != nil {
		xdraw.Draw(dst, dst.Bounds(), overlay, overlay.Bounds().Min, xdraw.Over)
	}
	return dst
}

// drawField 绘制单个字段
func (r *FieldRenderer) drawField(ctx *canvas.Context, a Annotation, box Rect, scale, height float64, opts DrawOptions) {
	flip := Matrix{a: 1, d: -1, f: height}
	ll := flip.Apply(Point{X: box.X, Y: box.Y + box.H})
	x, y := ll.X, ll.Y
	if opts.Chrome {
		ctx.SetFillColor(canvas.Transparent)
		ctx.SetStrokeColor(frameColor)
		ctx.SetStrokeWidth(1)
		ctx.DrawPath(x, y, canvas.Rectangle(box.W, box.H))
	}
	switch a.Type {
	case FieldText:
		r.drawLines(ctx, a, box, scale, height, strings.Split(a.Text(), "\n"))
	case FieldDate, FieldTimestamp:
		line, _, _ := strings.Cut(a.Text(), "\n")
		r.drawLines(ctx, a, box, scale, height, []string{line})
	case FieldCheckbox:
		if a.Checked() {
			r.drawCheck(ctx, a, x, y, box.W, box.H, scale, opts.Chrome)
		}
	case FieldSignature:
		r.drawSignature(ctx, a, x, y, box.W, box.H, scale, opts.Chrome)
	}
	if opts.Chrome && a.ID != "" && a.ID == opts.Selected {
		ctx.SetFillColor(canvas.Transparent)
		ctx.SetStrokeColor(chromeColor)
		ctx.SetStrokeWidth(2)
		ctx.DrawPath(x, y, canvas.Rectangle(box.W, box.H))
		if a.ID != opts.Editing {
			hr := handleRect(box)
			hl := flip.Apply(Point{X: hr.X, Y: hr.Y + hr.H})
			ctx.SetFillColor(chromeColor)
			ctx.DrawPath(hl.X, hl.Y, canvas.Rectangle(hr.W, hr.H))
		}
	}
}

// drawLines 逐行绘制文本, 不自动换行
func (r *FieldRenderer) drawLines(ctx *canvas.Context, a Annotation, box Rect, scale, height float64, lines []string) {
	size := fontSize(a) * scale
	face := r.font.Face(size*mmToPt, parseColor(a.Color), canvas.FontRegular, canvas.FontNormal)
	top := height - box.Y - textPadding/2*scale
	left := box.X + textPadding/2*scale
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		baseline := top - float64(i)*size*lineSpacing - size
		ctx.DrawText(left, baseline, canvas.NewTextLine(face, line, canvas.Left))
	}
}

// drawCheck 绘制勾选符号
// 编辑时绘制对勾, 导出时绘制字符 X
func (r *FieldRenderer) drawCheck(ctx *canvas.Context, a Annotation, x, y, w, h, scale float64, chrome bool) {
	if !chrome {
		size := min(w, h) * 0.8
		face := r.font.Face(size*mmToPt, parseColor(a.Color), canvas.FontRegular, canvas.FontNormal)
		tw := face.TextWidth(checkGlyph)
		ctx.DrawText(x+(w-tw)/2, y+(h-size*0.7)/2, canvas.NewTextLine(face, checkGlyph, canvas.Left))
		return
	}
	p := &canvas.Path{}
	p.MoveTo(0.2*w, 0.5*h)
	p.LineTo(0.42*w, 0.25*h)
	p.LineTo(0.8*w, 0.78*h)
	ctx.SetFillColor(canvas.Transparent)
	ctx.SetStrokeColor(parseColor(a.Color))
	ctx.SetStrokeWidth(max(1, 2*scale))
	ctx.DrawPath(x, y, p)
}

// drawSignature 绘制签名图片或占位提示
func (r *FieldRenderer) drawSignature(ctx *canvas.Context, a Annotation, x, y, w, h, scale float64, hint bool) {
	if ref := a.Signature(); ref != "" {
		if img, err := r.signatureImage(ref); err == nil {
			b := img.Bounds()
			iw, ih := float64(b.Dx()), float64(b.Dy())
			if iw > 0 && ih > 0 {
				s := min(w/iw, h/ih)
				ctx.Push()
				ctx.Translate(x+(w-iw*s)/2, y+(h-ih*s)/2)
				ctx.Scale(s, s)
				ctx.DrawImage(0, 0, img, canvas.DPMM(1.0))
				ctx.Pop()
				return
			}
		}
	}
	if !hint {
		return
	}
	size := min(DefaultFontSize*scale, h*0.6)
	face := r.font.Face(size*mmToPt, hintColor, canvas.FontRegular, canvas.FontNormal)
	tw := face.TextWidth(placeholderText)
	ctx.DrawText(x+(w-tw)/2, y+h/2-size/3, canvas.NewTextLine(face, placeholderText, canvas.Left))
}

// signatureImage 解码签名图片并缓存
func (r *FieldRenderer) signatureImage(ref string) (image.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if img, ok := r.images[ref]; ok {
		return img, nil
	}
	img, err := DecodeImageRef(ref)
	if err != nil {
		return nil, err
	}
	if len(r.images) >= imageCacheSize {
		clear(r.images)
	}
	r.images[ref] = img
	return img, nil
}

// DecodeImageRef 解码图片引用
// 支持 data:image/<fmt>;base64,<data> 形式
// 入参: ref 图片引用
// 返回: image.Image 图像, error 错误信息
func DecodeImageRef(ref string) (image.Image, error) {
	rest, ok := strings.CutPrefix(ref, "data:")
	if !ok {
		return nil, fmt.Errorf("unsupported image reference")
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, fmt.Errorf("malformed data url")
	}
	var data []byte
	if strings.HasSuffix(header, ";base64") {
		raw, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("decode base64 image: %w", err)
		}
		data = raw
	} else {
		s, err := url.PathUnescape(payload)
		if err != nil {
			return nil, fmt.Errorf("decode image data: %w", err)
		}
		data = []byte(s)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// EncodeImageRef 将图片数据编码为引用
// 入参: mime 图片类型(如 image/png), data 图片数据
// 返回: string 图片引用
func EncodeImageRef(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// fontSize 字段字号
func fontSize(a Annotation) float64 {
	if a.FontSize > 0 {
		return a.FontSize
	}
	return DefaultFontSize
}

// parseColor 解析十六进制颜色, 允许省略#
// 入参: val 颜色值
// 返回: color.Color 颜色对象
func parseColor(val string) color.Color {
	s := strings.TrimPrefix(strings.TrimSpace(val), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return color.Black
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.Black
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}
