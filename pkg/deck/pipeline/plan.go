// Package pipeline builds proposal decks: it turns a curriculum into an
// ordered plan of fixed and generated pages, renders their visuals and drives
// the substitution and composition engines.
package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/benjaminschreck/go-deck/pkg/deck"
	"github.com/benjaminschreck/go-deck/pkg/deck/visual"
)

// PageKind tells how a page's fragment is obtained
type PageKind string

const (
	// KindFixed pages are substituted from a template file
	KindFixed PageKind = "fixed"
	// KindDynamic pages are generated by the content service
	KindDynamic PageKind = "dynamic"
)

// Generation modes of dynamic pages
const (
	ModeGenerate = "generate"
	ModeTemplate = "template"
)

// Template file names inside the template directory
const (
	CoverTemplate        = "00_표지.pptx"
	IntroTemplate        = "01_도입부.pptx"
	PersuasionTemplate   = "part_설득.pptx"
	SectionTemplate      = "part_구간표지.pptx"
	DesignBgTemplate     = "part_설계배경.pptx"
	TimetableTemplate    = "part_타임테이블.pptx"
	DeliverablesTemplate = "part_산출물.pptx"
	EndingTemplate       = "99_엔딩.pptx"
)

// Priorities of the fixed sections
const (
	CoverPriority      = 10
	IntroPriority      = 20
	PersuasionPriority = 30
	ModulePriority     = 100
	EndingPriority     = 990
)

// DefaultPBLName titles the PBL section cover
const DefaultPBLName = "PBL 멘토링"

// DefaultGammaPrompt asks the content service for the persuasion section.
// Its placeholders are filled from the plan variables.
const DefaultGammaPrompt = `고객사: {{고객명}}
산업: {{산업}}
교육 목표: {{목표}}
현재 페인포인트: {{페인포인트}}
선택 교육 과정: {{모듈_요약}}

위 정보를 바탕으로 AI 교육 제안서의 핵심 설득 파트를 생성해주세요:
1. 고객사의 현재 AI 도입 Gap 분석
2. 교육 솔루션 제안 (선택된 과정 기반)
3. 핵심 프레임워크 2-3개
4. 전체 교육 로드맵
5. 기대 가치 및 ROI`

// Visual is an image rendered from an HTML template into a page's largest picture
type Visual struct {
	Kind string `json:"kind"`
	Data any    `json:"data,omitempty"`
}

// Page is one entry of a plan
type Page struct {
	Name     string   `json:"name"`
	Kind     PageKind `json:"kind"`
	Template string   `json:"template,omitempty"`
	Priority int      `json:"priority"`

	Placeholders map[string]string `json:"placeholders,omitempty"`
	TableRows    []deck.Row        `json:"tableRows,omitempty"`
	Columns      []string          `json:"columns,omitempty"`
	AutoFit      bool              `json:"autoFit,omitempty"`
	Visual       *Visual           `json:"visual,omitempty"`

	Prompt   string `json:"prompt,omitempty"`
	GammaID  string `json:"gammaId,omitempty"`
	Mode     string `json:"mode,omitempty"`
	NumCards int    `json:"numCards,omitempty"`

	// Optional pages are skipped when they fail instead of aborting the run
	Optional bool `json:"optional,omitempty"`
}

// Plan is the complete description of one proposal deck
type Plan struct {
	Pages      []Page            `json:"pages"`
	Variables  map[string]string `json:"variables"`
	OutputPath string            `json:"outputPath"`
	ThemeID    string            `json:"themeId,omitempty"`
}

// LoadPlan reads a plan file
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	var plan Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return &plan, nil
}

// Save writes the plan as indented JSON
func (p *Plan) Save(path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write plan: %w", err)
	}
	return nil
}

// Validate checks every page can be executed
func (p *Plan) Validate() error {
	if len(p.Pages) == 0 {
		return fmt.Errorf("plan has no pages")
	}
	for _, page := range p.Pages {
		switch page.Kind {
		case KindFixed:
			if page.Template == "" {
				return fmt.Errorf("page %q: fixed page needs a template", page.Name)
			}
		case KindDynamic:
			if page.Prompt == "" {
				return fmt.Errorf("page %q: dynamic page needs a prompt", page.Name)
			}
			if page.Mode == ModeTemplate && page.GammaID == "" {
				return fmt.Errorf("page %q: template mode needs a gammaId", page.Name)
			}
		default:
			return fmt.Errorf("page %q: unknown kind %q", page.Name, page.Kind)
		}
	}
	return nil
}

// Ordered returns the pages by ascending priority, ties in plan order
func (p *Plan) Ordered() []Page {
	pages := append([]Page(nil), p.Pages...)
	sort.SliceStable(pages, func(i, j int) bool {
		return pages[i].Priority < pages[j].Priority
	})
	return pages
}

// Count returns the number of fixed and dynamic pages
func (p *Plan) Count() (fixed, dynamic int) {
	for _, page := range p.Pages {
		if page.Kind == KindDynamic {
			dynamic++
		} else {
			fixed++
		}
	}
	return fixed, dynamic
}

// Customer holds the per-proposal variables
type Customer struct {
	Name     string
	Title    string
	Date     string
	Industry string
	Goal     string
	Pain     string
}

// Variables returns the global placeholder values of a proposal
func (c Customer) Variables(moduleNames []string) map[string]string {
	title := c.Title
	if title == "" {
		title = "AI 교육 제안서"
	}
	return map[string]string{
		"고객명":   c.Name,
		"교육제목":  title,
		"날짜":    c.Date,
		"제안일":   c.Date,
		"산업":    c.Industry,
		"목표":    c.Goal,
		"페인포인트": c.Pain,
		"모듈_요약": strings.Join(moduleNames, ", "),
	}
}

// OutputFileName names the deck after the customer
func OutputFileName(variables map[string]string) string {
	customer := variables["고객명"]
	if customer == "" {
		customer = "제안서"
	}
	return fmt.Sprintf("[팀스파르타] %s 제안서.pptx", customer)
}

// BuildOptions selects the content of a plan
type BuildOptions struct {
	TemplateDir string
	OutputDir   string
	Modules     []CurriculumModule
	Persuasion  []PersuasionSlide
	// PBLParts and CaseParts are template names (with or without .pptx)
	PBLParts  []string
	CaseParts []string
	PBLName   string
	// GammaPrompt adds a generated persuasion page when set
	GammaPrompt string
	ThemeID     string
	Variables   map[string]string
}

// BuildPlan lays out a proposal: cover 10, introduction 20, persuasion slides
// from 30, then each module from 100 (section cover, design background,
// timetable pages, deliverables) with every module starting on the next
// multiple of 10, then the PBL section, and the ending at 990.
func BuildPlan(opts BuildOptions) *Plan {
	tpl := func(name string) string {
		return filepath.Join(opts.TemplateDir, name)
	}
	var pages []Page
	fixed := func(page Page) {
		page.Kind = KindFixed
		pages = append(pages, page)
	}

	fixed(Page{Name: "표지", Template: tpl(CoverTemplate), Priority: CoverPriority})
	fixed(Page{Name: "도입부", Template: tpl(IntroTemplate), Priority: IntroPriority})

	for i, ps := range opts.Persuasion {
		fixed(Page{
			Name:     "설득/" + ps.VisualType,
			Template: tpl(PersuasionTemplate),
			Priority: PersuasionPriority + i,
			Placeholders: map[string]string{
				"설득_제목": ps.Title,
				"설득_부제": ps.Subtitle,
			},
			Visual: &Visual{Kind: ps.VisualType, Data: ps.Data},
		})
	}

	order := ModulePriority
	for _, mod := range opts.Modules {
		moduleVars := map[string]string{"과정명": mod.Name, "시간": mod.TotalHours}

		fixed(Page{
			Name:         mod.ID + "/구간표지",
			Template:     tpl(SectionTemplate),
			Priority:     order,
			Placeholders: map[string]string{"과정명": mod.Name},
		})
		order++

		bg := Page{
			Name:         mod.ID + "/설계배경",
			Template:     tpl(DesignBgTemplate),
			Priority:     order,
			Placeholders: moduleVars,
		}
		if mod.DesignBg != nil {
			bg.Visual = &Visual{Kind: visual.KindDesignBackground, Data: mod.DesignBg.visualData()}
		}
		fixed(bg)
		order++

		for _, tp := range mod.TablePages {
			name := mod.ID + "/타임테이블"
			if tp.Label != "" {
				name += "/" + tp.Label
			}
			rows := make([]deck.Row, len(tp.Rows))
			for i, r := range tp.Rows {
				rows[i] = r.Row()
			}
			fixed(Page{
				Name:         name,
				Template:     tpl(TimetableTemplate),
				Priority:     order,
				Placeholders: moduleVars,
				TableRows:    rows,
				Columns:      TimetableColumns,
				AutoFit:      true,
			})
			order++
		}

		fixed(Page{
			Name:     mod.ID + "/산출물",
			Template: tpl(DeliverablesTemplate),
			Priority: order,
		})
		order++

		order = (order/10 + 1) * 10
	}

	if len(opts.PBLParts) > 0 || len(opts.CaseParts) > 0 {
		pblName := opts.PBLName
		if pblName == "" {
			pblName = DefaultPBLName
		}
		fixed(Page{
			Name:         "pbl/구간표지",
			Template:     tpl(SectionTemplate),
			Priority:     order,
			Placeholders: map[string]string{"과정명": pblName},
		})
		order++

		for _, part := range append(append([]string(nil), opts.PBLParts...), opts.CaseParts...) {
			file := part
			if !strings.HasSuffix(file, ".pptx") {
				file += ".pptx"
			}
			fixed(Page{
				Name:     "pbl/" + strings.TrimSuffix(file, ".pptx"),
				Template: tpl(file),
				Priority: order,
			})
			order++
		}
	}

	fixed(Page{Name: "엔딩", Template: tpl(EndingTemplate), Priority: EndingPriority})

	if opts.GammaPrompt != "" {
		pages = append(pages, Page{
			Name:     "설득파트",
			Kind:     KindDynamic,
			Priority: PersuasionPriority,
			Prompt:   opts.GammaPrompt,
			Mode:     ModeGenerate,
			NumCards: 7,
			Optional: true,
		})
	}

	return &Plan{
		Pages:      pages,
		Variables:  opts.Variables,
		OutputPath: filepath.Join(opts.OutputDir, OutputFileName(opts.Variables)),
		ThemeID:    opts.ThemeID,
	}
}
