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

package ofd

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/tdewolff/canvas"
	"golang.org/x/image/font/gofont/goregular"
)

// fontAliases 常见中文字体名到系统字体名的映射
var fontAliases = map[string]string{
	"黑体":              "SimHei",
	"simhei":          "SimHei",
	"微软雅黑":            "Microsoft YaHei",
	"microsoft yahei": "Microsoft YaHei",
	"宋体":              "SimSun",
	"simsun":          "SimSun",
	"楷体":              "KaiTi",
	"kaiti":           "KaiTi",
	"仿宋":              "FangSong",
	"fangsong":        "FangSong",
}

// defaultFamily 内置 Go Regular 字体
func defaultFamily() (*canvas.FontFamily, error) {
	ff := canvas.NewFontFamily("goregular")
	if err := ff.LoadFont(goregular.TTF, 0, canvas.FontRegular); err != nil {
		return nil, fmt.Errorf("ofd: load default font: %w", err)
	}
	return ff, nil
}

// family 按字体资源ID取字体族
// 依次尝试内嵌字体文件、字体目录、字体文件系统与系统字体, 均失败时使用内置字体
// 调用方需持有 d.mu
func (d *Document) family(id string) *canvas.FontFamily {
	if ff, ok := d.families[id]; ok {
		return ff
	}
	f, ok := d.fonts[id]
	if !ok {
		return d.fallback
	}
	style := canvas.FontRegular
	if f.Bold {
		style |= canvas.FontBold
	}
	if f.Italic {
		style |= canvas.FontItalic
	}
	ff := canvas.NewFontFamily(f.FontName)
	loaded := d.loadEmbedded(ff, f, style) ||
		d.loadFromDirs(ff, f.FontName, style) ||
		d.loadFromFS(ff, f.FontName, style) ||
		loadSystem(ff, style, f.FamilyName, f.FontName)
	if !loaded {
		d.log.Debug().Str("font", f.FontName).Msg("font not found, using default")
		ff = d.fallback
	}
	d.families[id] = ff
	return ff
}

// loadEmbedded 加载包内字体文件
func (d *Document) loadEmbedded(ff *canvas.FontFamily, f *fontRes, style canvas.FontStyle) bool {
	if f.FontFile == "" {
		return false
	}
	data, err := d.readFile(f.FontFile)
	if err != nil {
		return false
	}
	return ff.LoadFont(data, 0, style) == nil
}

// loadFromDirs 在字体目录中按名称前缀查找
func (d *Document) loadFromDirs(ff *canvas.FontFamily, name string, style canvas.FontStyle) bool {
	if name == "" {
		return false
	}
	for _, dir := range d.fontDirs {
		matches, _ := filepath.Glob(filepath.Join(dir, name+"*"))
		for _, m := range matches {
			if !isFontFile(m) {
				continue
			}
			if ff.LoadFontFile(m, style) == nil {
				return true
			}
		}
	}
	return false
}

// loadFromFS 在字体文件系统中按名称前缀查找
func (d *Document) loadFromFS(ff *canvas.FontFamily, name string, style canvas.FontStyle) bool {
	if name == "" {
		return false
	}
	for _, fsys := range d.fontFS {
		matches, err := fs.Glob(fsys, name+"*")
		if err != nil {
			continue
		}
		for _, m := range matches {
			if !isFontFile(m) {
				continue
			}
			data, err := fs.ReadFile(fsys, m)
			if err != nil {
				continue
			}
			if ff.LoadFont(data, 0, style) == nil {
				return true
			}
		}
	}
	return false
}

// loadSystem 按名称与别名加载系统字体
func loadSystem(ff *canvas.FontFamily, style canvas.FontStyle, names ...string) bool {
	for _, name := range names {
		if name == "" {
			continue
		}
		target := name
		lower := strings.ToLower(name)
		if alias, ok := fontAliases[lower]; ok {
			target = alias
		}
		if ff.LoadSystemFont(target, style) == nil {
			return true
		}
		if target != name && ff.LoadSystemFont(name, style) == nil {
			return true
		}
	}
	return false
}

// isFontFile 是否为可加载的字体文件
func isFontFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".ttf", ".otf", ".ttc", ".woff", ".woff2":
		return true
	}
	return false
}
