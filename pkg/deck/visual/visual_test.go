package visual

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjaminschreck/go-deck/pkg/deck"
)

const sampleTokens = `{
  "color": {"primary": "#E8344E", "background": "#FFFFFF"},
  "font": {"family": "'Pretendard', sans-serif", "cdn": "https://cdn.example.com/pretendard.css"},
  "viewport": {"width": 1920, "height": 1080},
  "spacing": {"lg": "48px", "sm": "12px"},
  "typography": {"title": {"size": "40px", "weight": "700"}}
}`

func TestTokensCSS(t *testing.T) {
	tokens, err := ParseTokens([]byte(sampleTokens))
	require.NoError(t, err)

	css := tokens.CSS()

	assert.True(t, strings.HasPrefix(css, "@import url('https://cdn.example.com/pretendard.css');\n:root {"))
	assert.True(t, strings.HasSuffix(css, "}"))
	assert.Contains(t, css, "--color-primary: #E8344E;")
	assert.Contains(t, css, "--font-family: 'Pretendard', sans-serif;")
	assert.Contains(t, css, "--viewport-w: 1920px;")
	assert.Contains(t, css, "--viewport-h: 1080px;")
	assert.Contains(t, css, "--typo-title-weight: 700;")
	assert.Less(t, strings.Index(css, "--color-background"), strings.Index(css, "--color-primary"), "keys are sorted")
	assert.Less(t, strings.Index(css, "--spacing-lg"), strings.Index(css, "--spacing-sm"))
}

func TestTokensCSS_Empty(t *testing.T) {
	var nilTokens *Tokens
	assert.Equal(t, "", nilTokens.CSS())
	assert.Equal(t, ":root {\n}", (&Tokens{}).CSS())
}

func TestLoadTokens(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tokens.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleTokens), 0o644))

	tokens, err := LoadTokens(path)
	require.NoError(t, err)
	assert.Equal(t, "#E8344E", tokens.Color["primary"])

	_, err = LoadTokens(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	_, err = LoadTokens(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse tokens")
}

func TestBuildHTML(t *testing.T) {
	tokens, err := ParseTokens([]byte(sampleTokens))
	require.NoError(t, err)
	source := `<style>{{.TokensCSS}}</style><body style="width: {{.Width}}px">{{.Data.title}}|{{.Data.missing}}</body>`

	html, err := BuildHTML(source, tokens, 1280, 720, map[string]any{"title": `<b>"AI" & 데이터</b>`})

	require.NoError(t, err)
	assert.Contains(t, html, "--color-primary: #E8344E;", "token CSS is not escaped")
	assert.Contains(t, html, "width: 1280px")
	assert.Contains(t, html, "&lt;b&gt;&#34;AI&#34; &amp; 데이터&lt;/b&gt;", "data is escaped")
	assert.NotContains(t, html, "<no value>")
}

func TestBuildHTML_Errors(t *testing.T) {
	_, err := BuildHTML("{{.Data.title", nil, 10, 10, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse template")

	_, err = BuildHTML("{{.Data.title.inner}}", nil, 10, 10, map[string]any{"title": 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "execute template")
}

func TestTemplateFuncs(t *testing.T) {
	source := `{{nl2br .Data.text}}|{{inc 0}}|{{mod 5 3}}|{{range $i, $s := .Data.list}}{{if last $i $.Data.list}}end{{end}}{{end}}`

	html, err := BuildHTML(source, nil, 1, 1, map[string]any{
		"text": "첫 줄\n<둘째>",
		"list": []string{"a", "b"},
	})

	require.NoError(t, err)
	assert.Equal(t, "첫 줄<br>&lt;둘째&gt;|1|2|end", html)
}

func TestIcon(t *testing.T) {
	assert.Contains(t, string(Icon("growth")), "<svg")
	assert.Equal(t, Icon("target"), Icon("no-such-icon"))
}

func TestKinds(t *testing.T) {
	assert.Equal(t, []string{
		KindDesignBackground, KindFramework, KindGapAnalysis, KindRoadmap, KindROI, KindSolution,
	}, Kinds())
}

func TestTemplateSource(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "roi.html"), []byte("custom roi"), 0o644))

	source, err := TemplateSource(dir, KindROI)
	require.NoError(t, err)
	assert.Equal(t, "custom roi", source)

	source, err = TemplateSource(dir, KindRoadmap)
	require.NoError(t, err)
	assert.Contains(t, source, "timeline-track")

	_, err = TemplateSource(dir, "pie_chart")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "available: design_bg")

	_, err = TemplateSource(dir, "../roi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid visual kind")
}

// sampleData holds a representative payload for every built-in kind
var sampleData = map[string]any{
	KindDesignBackground: map[string]any{
		"purpose": "생성형 AI로 업무 생산성을 높인다",
		"steps": []map[string]any{
			{"title": "진단", "subtitle": "Assess", "description": "현업 과제 정의\n데이터 파악"},
			{"title": "실습", "subtitle": "Practice", "description": "프롬프트 설계"},
			{"title": "적용", "subtitle": "Apply", "description": "사내 확산"},
		},
	},
	KindGapAnalysis: map[string]any{
		"to_be": map[string]any{"items": []string{"AI 기반 의사결정"}},
		"as_is": map[string]any{"label": "현재", "items": []string{"수작업 보고서"}},
		"gap":   map[string]any{"items": []string{"데이터 리터러시"}},
	},
	KindSolution: map[string]any{
		"stages": []map[string]any{
			{"title": "Level 1", "subtitle": "기초", "description": "AI 이해", "items": []string{"LLM 원리"}},
			{"title": "Level 2", "subtitle": "심화", "description": "업무 적용", "items": []string{"자동화"}},
		},
		"principles": []map[string]any{
			{"title": "실습 중심", "description": "이론보다 손으로"},
			{"title": "현업 과제", "description": "실제 데이터로 실습"},
			{"title": "성과 측정", "description": "전후 비교"},
		},
		"banner":     "현업 문제를 직접 해결하는 교육",
	},
	KindFramework: map[string]any{
		"header_title": "교육 프레임워크",
		"duration":     "16시간",
		"target":       "전사 실무자",
		"objectives":   []string{"AI 활용 역량 확보"},
		"highlights":   []string{"실습 70%"},
		"deliverables": []string{"업무 자동화 결과물"},
		"tools":        []string{"ChatGPT", "Python"},
		"keywords":     []string{"생산성", "자동화"},
	},
	KindRoadmap: map[string]any{
		"phases": []map[string]any{
			{"period": "1주차", "title": "기초", "subtitle": "Foundation", "description": "개념", "activities": []string{"강의"}},
			{"period": "2주차", "title": "실전", "subtitle": "Project", "description": "과제", "activities": []string{"프로젝트"}},
		},
		"summary": "2주 완성",
	},
	KindROI: map[string]any{
		"values": []map[string]any{
			{"icon": "efficiency", "metric": "30%", "title": "시간 절감", "description": "보고서 작성"},
			{"metric": "2x", "title": "생산성", "description": "업무 처리량"},
			{"icon": "quality", "metric": "95%", "title": "만족도", "description": "교육 만족도"},
			{"icon": "growth", "metric": "10+", "title": "과제", "description": "현업 적용"},
		},
		"quote":  "투자 대비 효과가 확실한 교육",
		"banner": "AI 전환의 출발점",
	},
}

func TestBuiltinTemplates(t *testing.T) {
	tokens, err := ParseTokens([]byte(sampleTokens))
	require.NoError(t, err)

	for _, kind := range Kinds() {
		t.Run(kind, func(t *testing.T) {
			data, ok := sampleData[kind]
			require.True(t, ok, "sample data for %s", kind)
			source, err := TemplateSource("", kind)
			require.NoError(t, err)

			html, err := BuildHTML(source, tokens, 1920, 1080, data)

			require.NoError(t, err)
			assert.Contains(t, html, "--color-primary: #E8344E;")
			assert.Contains(t, html, "1920px")
			assert.Contains(t, html, "<svg")
			assert.NotContains(t, html, "<no value>")
			assert.NotContains(t, html, "ZgotmplZ")
		})
	}
}

func TestBuiltinTemplates_Defaults(t *testing.T) {
	source, err := TemplateSource("", KindGapAnalysis)
	require.NoError(t, err)

	html, err := BuildHTML(source, nil, 1920, 1080, sampleData[KindGapAnalysis])

	require.NoError(t, err)
	assert.Contains(t, html, "Gap 분석")
	assert.Contains(t, html, "To Be")
	assert.Contains(t, html, "현재")
	assert.Contains(t, html, "수작업 보고서")
}

func TestRenderer_Defaults(t *testing.T) {
	r := NewRenderer()
	w, h := r.Viewport()
	assert.Equal(t, 1920, w)
	assert.Equal(t, 1080, h)

	r = NewRenderer(WithViewport(800, 600), WithTimeout(time.Second))
	w, h = r.Viewport()
	assert.Equal(t, 800, w)
	assert.Equal(t, 600, h)
	r.Close()
}

func TestRenderer_TemplateErrorsAreRenderFailures(t *testing.T) {
	r := NewRenderer(WithWorkDir(t.TempDir()))
	defer r.Close()

	_, err := r.Render(context.Background(), "{{.Data.x", nil)
	assert.True(t, errors.Is(err, deck.ErrRenderFailure))

	_, err = r.RenderKind(context.Background(), "pie_chart", nil)
	assert.True(t, errors.Is(err, deck.ErrRenderFailure))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.RenderHTML(ctx, "<html></html>")
	assert.True(t, errors.Is(err, deck.ErrRenderFailure))
}

// Needs a local Chrome; enable with DECK_CHROME_TESTS=1
func TestRenderer_Screenshot(t *testing.T) {
	if os.Getenv("DECK_CHROME_TESTS") == "" {
		t.Skip("DECK_CHROME_TESTS not set")
	}
	workDir := t.TempDir()
	r := NewRenderer(
		WithViewport(640, 360),
		WithSettle(50*time.Millisecond),
		WithTimeout(30*time.Second),
		WithWorkDir(workDir),
	)
	defer r.Close()

	data, err := r.RenderKind(context.Background(), KindRoadmap, sampleData[KindRoadmap])
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 640, img.Bounds().Dx())
	assert.Equal(t, 360, img.Bounds().Dy())

	entries, err := os.ReadDir(workDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "intermediate pages are removed")
}
