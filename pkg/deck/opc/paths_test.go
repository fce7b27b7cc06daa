package opc

import "testing"

func TestRelsPartName(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"", "_rels/.rels"},
		{"ppt/presentation.xml", "ppt/_rels/presentation.xml.rels"},
		{"/ppt/slides/slide3.xml", "ppt/slides/_rels/slide3.xml.rels"},
	}
	for _, tt := range tests {
		if got := RelsPartName(tt.source); got != tt.want {
			t.Errorf("RelsPartName(%q) = %q, want %q", tt.source, got, tt.want)
		}
		back, ok := SourceOfRels(tt.want)
		if !ok || back != normalizeName(tt.source) {
			t.Errorf("SourceOfRels(%q) = %q, %v", tt.want, back, ok)
		}
	}

	if _, ok := SourceOfRels("ppt/slides/slide1.xml"); ok {
		t.Error("slide part is not a relationships part")
	}
}

func TestResolveTarget(t *testing.T) {
	tests := []struct {
		source string
		target string
		want   string
	}{
		{"", "ppt/presentation.xml", "ppt/presentation.xml"},
		{"ppt/presentation.xml", "slides/slide1.xml", "ppt/slides/slide1.xml"},
		{"ppt/slides/slide1.xml", "../slideLayouts/slideLayout2.xml", "ppt/slideLayouts/slideLayout2.xml"},
		{"ppt/slides/slide1.xml", "/ppt/media/image1.png", "ppt/media/image1.png"},
		{"ppt/slides/slide1.xml", "slide2.xml#bookmark", "ppt/slides/slide2.xml"},
	}
	for _, tt := range tests {
		if got := ResolveTarget(tt.source, tt.target); got != tt.want {
			t.Errorf("ResolveTarget(%q, %q) = %q, want %q", tt.source, tt.target, got, tt.want)
		}
	}
}

func TestRelativeTarget(t *testing.T) {
	tests := []struct {
		source string
		target string
		want   string
	}{
		{"", "ppt/presentation.xml", "ppt/presentation.xml"},
		{"ppt/presentation.xml", "ppt/slides/slide4.xml", "slides/slide4.xml"},
		{"ppt/slides/slide4.xml", "ppt/slideLayouts/slideLayout9.xml", "../slideLayouts/slideLayout9.xml"},
		{"ppt/slides/slide4.xml", "ppt/slides/slide5.xml", "slide5.xml"},
		{"ppt/slides/slide4.xml", "docProps/app.xml", "../../docProps/app.xml"},
	}
	for _, tt := range tests {
		got := RelativeTarget(tt.source, tt.target)
		if got != tt.want {
			t.Errorf("RelativeTarget(%q, %q) = %q, want %q", tt.source, tt.target, got, tt.want)
		}
		if back := ResolveTarget(tt.source, got); back != tt.target {
			t.Errorf("ResolveTarget(RelativeTarget()) = %q, want %q", back, tt.target)
		}
	}
}

func TestContentTypesRegister(t *testing.T) {
	ct := NewContentTypes()

	ct.Register("ppt/media/image1.png", "image/png")
	if _, ok := ct.Override("ppt/media/image1.png"); ok {
		t.Error("binary type should become an extension default")
	}
	if got := ct.TypeOf("ppt/media/image9.PNG"); got != "image/png" {
		t.Errorf("TypeOf(png) = %q", got)
	}

	ct.Register("ppt/slides/slide1.xml", ContentTypeSlide)
	if got, ok := ct.Override("/ppt/slides/slide1.xml"); !ok || got != ContentTypeSlide {
		t.Errorf("slide override = %q, %v", got, ok)
	}

	ct.Register("ppt/media/image2.png", "image/jpeg")
	if got := ct.TypeOf("ppt/media/image2.png"); got != "image/jpeg" {
		t.Errorf("mismatching payload should be an override, got %q", got)
	}
}
