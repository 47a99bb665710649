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

import "encoding/xml"

// entryXML 包入口 OFD.xml
type entryXML struct {
	XMLName xml.Name  `xml:"OFD"`
	Version string    `xml:"Version,attr"`
	DocBody []docBody `xml:"DocBody"`
}

// docBody 文档体
type docBody struct {
	DocInfo docInfo `xml:"DocInfo"`
	DocRoot string  `xml:"DocRoot"`
}

// docInfo 文档元数据
type docInfo struct {
	DocID  string `xml:"DocID"`
	Title  string `xml:"Title"`
	Author string `xml:"Author"`
}

// documentXML 文档根 Document.xml
type documentXML struct {
	XMLName    xml.Name   `xml:"Document"`
	CommonData commonData `xml:"CommonData"`
	Pages      struct {
		Page []pageRef `xml:"Page"`
	} `xml:"Pages"`
	Signatures string `xml:"Signatures"`
}

// commonData 公共数据
type commonData struct {
	PageArea     pageArea       `xml:"PageArea"`
	PublicRes    []string       `xml:"PublicRes"`
	DocumentRes  []string       `xml:"DocumentRes"`
	TemplatePage []templatePage `xml:"TemplatePage"`
}

// pageArea 页面区域
type pageArea struct {
	PhysicalBox    string `xml:"PhysicalBox"`
	ApplicationBox string `xml:"ApplicationBox"`
	ContentBox     string `xml:"ContentBox"`
}

// pageRef 页面引用
type pageRef struct {
	ID      string `xml:"ID,attr"`
	BaseLoc string `xml:"BaseLoc,attr"`
}

// templatePage 模板页
type templatePage struct {
	ID      string `xml:"ID,attr"`
	BaseLoc string `xml:"BaseLoc,attr"`
}

// pageXML 页面内容
type pageXML struct {
	XMLName  xml.Name `xml:"Page"`
	Area     pageArea `xml:"Area"`
	Template []struct {
		TemplateID string `xml:"TemplateID,attr"`
		ZOrder     string `xml:"ZOrder,attr"`
	} `xml:"Template"`
	Content struct {
		Layer []layer `xml:"Layer"`
	} `xml:"Content"`
}

// layer 图层
type layer struct {
	DrawParam   string        `xml:"DrawParam,attr"`
	TextObject  []textObject  `xml:"TextObject"`
	PathObject  []pathObject  `xml:"PathObject"`
	ImageObject []imageObject `xml:"ImageObject"`
}

// colorXML 颜色, Value 为空格分隔的 RGB 分量
type colorXML struct {
	Value string `xml:"Value,attr"`
	Alpha *int   `xml:"Alpha,attr"`
}

// textObject 文本对象
type textObject struct {
	Boundary   string     `xml:"Boundary,attr"`
	DrawParam  string     `xml:"DrawParam,attr"`
	Font       string     `xml:"Font,attr"`
	Size       float64    `xml:"Size,attr"`
	Weight     int        `xml:"Weight,attr"`
	Italic     bool       `xml:"Italic,attr"`
	Decoration string     `xml:"Decoration,attr"`
	CTM        string     `xml:"CTM,attr"`
	FillColor  *colorXML  `xml:"FillColor"`
	TextCode   []textCode `xml:"TextCode"`
}

// textCode 文本片段
type textCode struct {
	X      float64 `xml:"X,attr"`
	Y      float64 `xml:"Y,attr"`
	DeltaX string  `xml:"DeltaX,attr"`
	DeltaY string  `xml:"DeltaY,attr"`
	Value  string  `xml:",chardata"`
}

// pathObject 路径对象
type pathObject struct {
	Boundary        string    `xml:"Boundary,attr"`
	DrawParam       string    `xml:"DrawParam,attr"`
	LineWidth       float64   `xml:"LineWidth,attr"`
	CTM             string    `xml:"CTM,attr"`
	Stroke          *bool     `xml:"Stroke,attr"`
	Fill            *bool     `xml:"Fill,attr"`
	StrokeColor     *colorXML `xml:"StrokeColor"`
	FillColor       *colorXML `xml:"FillColor"`
	AbbreviatedData string    `xml:"AbbreviatedData"`
}

// imageObject 图片对象
type imageObject struct {
	Boundary   string `xml:"Boundary,attr"`
	ResourceID string `xml:"ResourceID,attr"`
	CTM        string `xml:"CTM,attr"`
}

// resXML 资源文件
type resXML struct {
	XMLName xml.Name `xml:"Res"`
	BaseLoc string   `xml:"BaseLoc,attr"`
	Fonts   struct {
		Font []fontRes `xml:"Font"`
	} `xml:"Fonts"`
	MultiMedias struct {
		MultiMedia []struct {
			ID        string `xml:"ID,attr"`
			MediaFile string `xml:"MediaFile"`
		} `xml:"MultiMedia"`
	} `xml:"MultiMedias"`
	DrawParams struct {
		DrawParam []drawParam `xml:"DrawParam"`
	} `xml:"DrawParams"`
}

// fontRes 字体资源
type fontRes struct {
	ID         string `xml:"ID,attr"`
	FontName   string `xml:"FontName,attr"`
	FamilyName string `xml:"FamilyName,attr"`
	Bold       bool   `xml:"Bold,attr"`
	Italic     bool   `xml:"Italic,attr"`
	FontFile   string `xml:"FontFile"`
}

// drawParam 绘制参数, Relative 指向被继承的参数
type drawParam struct {
	ID          string    `xml:"ID,attr"`
	Relative    string    `xml:"Relative,attr"`
	LineWidth   float64   `xml:"LineWidth,attr"`
	FillColor   *colorXML `xml:"FillColor"`
	StrokeColor *colorXML `xml:"StrokeColor"`
}

// signaturesXML 签名列表
type signaturesXML struct {
	XMLName   xml.Name `xml:"Signatures"`
	Signature []struct {
		ID      string `xml:"ID,attr"`
		BaseLoc string `xml:"BaseLoc,attr"`
	} `xml:"Signature"`
}

// signatureXML 单个签名文件
type signatureXML struct {
	XMLName     xml.Name `xml:"Signature"`
	SignedValue string   `xml:"SignedValue"`
	SignedInfo  struct {
		StampAnnot []struct {
			PageRef  string `xml:"PageRef,attr"`
			Boundary string `xml:"Boundary,attr"`
		} `xml:"StampAnnot"`
	} `xml:"SignedInfo"`
}
