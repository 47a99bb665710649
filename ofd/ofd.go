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

// Package ofd 将 OFD 版式文件作为表单编辑器的文档来源
// 页面以毫米为文档单位, 通过 tdewolff/canvas 按任意缩放比例渲染
package ofd

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/xiaoqidun/formfill"
)

// defaultPageBox 未声明页面区域时使用 A4
const defaultPageBox = "0 0 210 297"

var (
	_ formfill.DocumentSource = (*Document)(nil)
	_ formfill.PageDrawer     = (*Document)(nil)
)

// ErrNoDocument 包内没有文档体
var ErrNoDocument = errors.New("ofd: no document body")

// Option 文档配置选项
type Option func(*Document)

// WithFontDirs 设置本地字体目录, 按字体名匹配文件
// 入参: dirs 目录列表
// 返回: Option 配置选项
func WithFontDirs(dirs ...string) Option {
	return func(d *Document) {
		d.fontDirs = append(d.fontDirs, dirs...)
	}
}

// WithFontFS 设置字体文件系统, 按字体名匹配文件
// 入参: fsys 文件系统列表
// 返回: Option 配置选项
func WithFontFS(fsys ...fs.FS) Option {
	return func(d *Document) {
		d.fontFS = append(d.fontFS, fsys...)
	}
}

// WithLogger 设置日志, 记录被跳过的资源
// 入参: log 日志实例
// 返回: Option 配置选项
func WithLogger(log zerolog.Logger) Option {
	return func(d *Document) {
		d.log = log
	}
}

// Document 已打开的 OFD 文档
// 可安全地被多个渲染请求并发使用
type Document struct {
	zip     *zip.Reader
	closer  io.Closer
	log     zerolog.Logger
	info    docInfo
	rootDir string
	common  commonData
	pages   []pageRef
	media   map[string]string
	fonts   map[string]*fontRes
	params  map[string]*drawParam
	seals   map[string][]seal

	fontDirs []string
	fontFS   []fs.FS

	mu       sync.Mutex
	contents map[int]*pageXML
	families map[string]*canvas.FontFamily
	fallback *canvas.FontFamily
}

// Open 打开OFD文件
// 入参: name 文件路径, opts 配置选项
// 返回: *Document 文档, error 错误信息
func Open(name string, opts ...Option) (*Document, error) {
	zr, err := zip.OpenReader(name)
	if err != nil {
		return nil, err
	}
	d, err := load(&zr.Reader, opts)
	if err != nil {
		zr.Close()
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	d.closer = zr
	return d, nil
}

// NewReader 从流读取OFD文档
// 入参: r 读取器, size 数据大小, opts 配置选项
// 返回: *Document 文档, error 错误信息
func NewReader(r io.ReaderAt, size int64, opts ...Option) (*Document, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, err
	}
	return load(zr, opts)
}

// load 解析入口、文档根与资源
func load(zr *zip.Reader, opts []Option) (*Document, error) {
	d := &Document{
		zip:      zr,
		log:      zerolog.Nop(),
		media:    make(map[string]string),
		fonts:    make(map[string]*fontRes),
		params:   make(map[string]*drawParam),
		seals:    make(map[string][]seal),
		contents: make(map[int]*pageXML),
		families: make(map[string]*canvas.FontFamily),
	}
	for _, opt := range opts {
		opt(d)
	}
	var entry entryXML
	if err := d.decode("OFD.xml", &entry); err != nil {
		return nil, err
	}
	if len(entry.DocBody) == 0 || entry.DocBody[0].DocRoot == "" {
		return nil, ErrNoDocument
	}
	body := entry.DocBody[0]
	d.info = body.DocInfo
	docRoot := clean(body.DocRoot)
	d.rootDir = path.Dir(docRoot)
	var doc documentXML
	if err := d.decode(docRoot, &doc); err != nil {
		return nil, err
	}
	if len(doc.Pages.Page) == 0 {
		return nil, fmt.Errorf("ofd: document has no pages")
	}
	d.common = doc.CommonData
	d.pages = doc.Pages.Page
	for _, res := range append(doc.CommonData.DocumentRes, doc.CommonData.PublicRes...) {
		d.loadRes(res)
	}
	if doc.Signatures != "" {
		if err := d.loadSeals(d.resolve(doc.Signatures)); err != nil {
			d.log.Debug().Err(err).Msg("skipping signatures")
		}
	}
	fallback, err := defaultFamily()
	if err != nil {
		return nil, err
	}
	d.fallback = fallback
	return d, nil
}

// Close 关闭文档
// 返回: error 错误信息
func (d *Document) Close() error {
	if d.closer != nil {
		return d.closer.Close()
	}
	return nil
}

// Title 文档标题
func (d *Document) Title() string {
	return d.info.Title
}

// PageCount 页数
func (d *Document) PageCount() int {
	return len(d.pages)
}

// PageSize 页面尺寸(毫米)
// 入参: page 页码(从1开始)
// 返回: float64 宽度, float64 高度, error 错误信息
func (d *Document) PageSize(page int) (float64, float64, error) {
	p, err := d.content(page)
	if err != nil {
		return 0, 0, err
	}
	b := d.pageBox(p)
	return b.W, b.H, nil
}

// RenderPage 以缩放比例渲染页面, 缩放比例为每毫米像素数
// 入参: ctx 上下文, page 页码, scale 缩放比例
// 返回: image.Image 图像, error 错误信息
func (d *Document) RenderPage(ctx context.Context, page int, scale float64) (image.Image, error) {
	if scale <= 0 {
		return nil, fmt.Errorf("invalid scale %g", scale)
	}
	w, h, err := d.PageSize(page)
	if err != nil {
		return nil, err
	}
	c := canvas.New(w, h)
	if err := d.DrawPage(canvas.NewContext(c), page); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rasterizer.Draw(c, canvas.DPMM(scale), canvas.DefaultColorSpace), nil
}

// DrawPage 将页面绘制到画布, 画布以毫米为单位
// 入参: ctx 画布上下文, page 页码
// 返回: error 错误信息
func (d *Document) DrawPage(ctx *canvas.Context, page int) error {
	p, err := d.content(page)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.drawContent(ctx, p, d.pages[page-1].ID)
	return nil
}

// content 读取并缓存页面内容
func (d *Document) content(page int) (*pageXML, error) {
	if page < 1 || page > len(d.pages) {
		return nil, fmt.Errorf("page %d: %w", page, formfill.ErrPageOutOfRange)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.contents[page]; ok {
		return p, nil
	}
	var p pageXML
	if err := d.decode(d.resolve(d.pages[page-1].BaseLoc), &p); err != nil {
		return nil, err
	}
	d.contents[page] = &p
	return &p, nil
}

// pageBox 页面物理区域, 依次回退到应用区域、内容区域与文档缺省区域
func (d *Document) pageBox(p *pageXML) box {
	for _, s := range []string{
		p.Area.PhysicalBox,
		p.Area.ApplicationBox,
		p.Area.ContentBox,
		d.common.PageArea.PhysicalBox,
		defaultPageBox,
	} {
		if b, ok := parseBox(s); ok && b.W > 0 && b.H > 0 {
			return b
		}
	}
	b, _ := parseBox(defaultPageBox)
	return b
}

// loadRes 加载资源文件
func (d *Document) loadRes(loc string) {
	name := d.resolve(loc)
	var res resXML
	if err := d.decode(name, &res); err != nil {
		d.log.Debug().Err(err).Str("res", name).Msg("skipping resource file")
		return
	}
	dir := path.Dir(name)
	if res.BaseLoc != "" {
		dir = join(dir, res.BaseLoc)
	}
	for _, mm := range res.MultiMedias.MultiMedia {
		if f := strings.TrimSpace(mm.MediaFile); f != "" {
			d.media[mm.ID] = join(dir, f)
		}
	}
	for i := range res.Fonts.Font {
		f := res.Fonts.Font[i]
		if f.FontFile != "" {
			f.FontFile = join(dir, f.FontFile)
		}
		d.fonts[f.ID] = &f
	}
	for i := range res.DrawParams.DrawParam {
		dp := res.DrawParams.DrawParam[i]
		d.params[dp.ID] = &dp
	}
}

// resolve 将文档内相对路径转换为包内路径
func (d *Document) resolve(loc string) string {
	return join(d.rootDir, loc)
}

// join 拼接包内路径, 以 / 开头的路径视为包内绝对路径
func join(dir, loc string) string {
	loc = strings.ReplaceAll(strings.TrimSpace(loc), "\\", "/")
	if strings.HasPrefix(loc, "/") {
		return clean(loc)
	}
	return clean(path.Join(dir, loc))
}

// readFile 读取包内文件
func (d *Document) readFile(name string) ([]byte, error) {
	name = clean(name)
	for _, f := range d.zip.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, fmt.Errorf("ofd: file not found: %s", name)
}

// decode 读取并解析包内XML文件
func (d *Document) decode(name string, v any) error {
	data, err := d.readFile(name)
	if err != nil {
		return err
	}
	if err := xml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("ofd: parse %s: %w", name, err)
	}
	return nil
}

// clean 规范化包内路径
func clean(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	return strings.TrimPrefix(path.Clean("/"+name), "/")
}
