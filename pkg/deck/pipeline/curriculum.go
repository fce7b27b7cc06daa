package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/benjaminschreck/go-deck/pkg/deck"
)

// TimetableColumns is the positional layout of the timetable table
var TimetableColumns = []string{"subject", "hours", "content", "exercise"}

// TopicRow is one row of a curriculum timetable
type TopicRow struct {
	Subject  string `json:"subject"`
	Hours    string `json:"hours"`
	Content  string `json:"content"`
	Exercise string `json:"exercise"`
}

// Row converts the topic to a table record keyed by TimetableColumns
func (r TopicRow) Row() deck.Row {
	return deck.Row{
		"subject":  r.Subject,
		"hours":    r.Hours,
		"content":  r.Content,
		"exercise": r.Exercise,
	}
}

// TablePage is the set of rows shown on one timetable slide
type TablePage struct {
	// Label distinguishes pages of one module, e.g. "1차". Empty for a single page.
	Label string     `json:"label"`
	Rows  []TopicRow `json:"rows"`
}

// FlowStep is one step of a design background's learning flow
type FlowStep struct {
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle"`
	Description string `json:"description"`
}

// DesignBackground is the content of a module's design background slide
type DesignBackground struct {
	Purpose string     `json:"purpose"`
	Steps   []FlowStep `json:"steps"`
}

// visualData is the payload of the design_bg visual
func (bg *DesignBackground) visualData() map[string]any {
	steps := make([]map[string]any, len(bg.Steps))
	for i, s := range bg.Steps {
		steps[i] = map[string]any{"title": s.Title, "subtitle": s.Subtitle, "description": s.Description}
	}
	return map[string]any{"purpose": bg.Purpose, "steps": steps}
}

// PersuasionSlide is one customer-specific slide between the introduction and
// the curriculum. VisualType selects the visual template rendered into it.
type PersuasionSlide struct {
	VisualType string         `json:"visual_type"`
	Title      string         `json:"title"`
	Subtitle   string         `json:"subtitle"`
	Data       map[string]any `json:"data"`
}

// CurriculumModule is one training module
type CurriculumModule struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	TotalHours        string            `json:"total_hours"`
	TablePages        []TablePage       `json:"table_pages"`
	DesignBg          *DesignBackground `json:"design_bg,omitempty"`
	ConsultantContext string            `json:"consultant_context,omitempty"`
}

// Curriculum is the structured input of a proposal
type Curriculum struct {
	Modules    []CurriculumModule `json:"modules"`
	Persuasion []PersuasionSlide  `json:"persuasion_slides"`
}

// LoadCurriculumJSON reads a generated curriculum. The file is either an
// object with "modules" and "persuasion_slides", or an array of modules where
// one entry may carry the persuasion slides.
func LoadCurriculumJSON(path string) (*Curriculum, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read curriculum: %w", err)
	}
	return ParseCurriculumJSON(data)
}

// ParseCurriculumJSON decodes a curriculum document
func ParseCurriculumJSON(data []byte) (*Curriculum, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var c Curriculum
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("parse curriculum: %w", err)
		}
		return &c, c.validate()
	}

	var items []struct {
		CurriculumModule
		Persuasion []PersuasionSlide `json:"persuasion_slides"`
	}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse curriculum: %w", err)
	}
	c := &Curriculum{}
	for _, item := range items {
		if c.Persuasion == nil && len(item.Persuasion) > 0 {
			c.Persuasion = item.Persuasion
		}
		if item.ID == "" && item.Name == "" {
			// an entry that only carries persuasion slides
			continue
		}
		c.Modules = append(c.Modules, item.CurriculumModule)
	}
	return c, c.validate()
}

func (c *Curriculum) validate() error {
	for i, m := range c.Modules {
		if m.ID == "" {
			return fmt.Errorf("curriculum module %d has no id", i)
		}
		if m.Name == "" {
			return fmt.Errorf("curriculum module %q has no name", m.ID)
		}
	}
	for i, ps := range c.Persuasion {
		if ps.VisualType == "" {
			return fmt.Errorf("persuasion slide %d has no visual_type", i)
		}
	}
	return nil
}

// ModuleNames lists the module names for prompts and summaries
func (c *Curriculum) ModuleNames() []string {
	names := make([]string, len(c.Modules))
	for i, m := range c.Modules {
		names[i] = m.Name
	}
	return names
}

type referenceModule struct {
	Name       string     `json:"name"`
	TotalHours string     `json:"total_hours"`
	Topics     []TopicRow `json:"topics"`
	TablePages int        `json:"table_pages"`
}

// LoadReferenceModules builds modules from a reference file keyed by module
// id. Each module's topics are split over its table_pages.
func LoadReferenceModules(path string, ids []string) ([]CurriculumModule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reference: %w", err)
	}
	var ref map[string]referenceModule
	if err := json.Unmarshal(data, &ref); err != nil {
		return nil, fmt.Errorf("parse reference: %w", err)
	}

	modules := make([]CurriculumModule, 0, len(ids))
	for _, id := range ids {
		entry, ok := ref[id]
		if !ok {
			available := make([]string, 0, len(ref))
			for k := range ref {
				available = append(available, k)
			}
			sort.Strings(available)
			return nil, fmt.Errorf("unknown module %q (available: %s)", id, strings.Join(available, ", "))
		}
		modules = append(modules, CurriculumModule{
			ID:         id,
			Name:       entry.Name,
			TotalHours: entry.TotalHours,
			TablePages: SplitTablePages(entry.Topics, entry.TablePages),
		})
	}
	return modules, nil
}

// SplitTablePages spreads rows evenly over pages (ceil division). With more
// than one page each is labelled "<n>차".
func SplitTablePages(rows []TopicRow, pages int) []TablePage {
	if pages < 1 {
		pages = 1
	}
	perPage := (len(rows) + pages - 1) / pages
	result := make([]TablePage, pages)
	for i := range result {
		start := min(i*perPage, len(rows))
		end := min(start+perPage, len(rows))
		result[i].Rows = rows[start:end]
		if pages > 1 {
			result[i].Label = fmt.Sprintf("%d차", i+1)
		}
	}
	return result
}

// ChunkRows splits rows into pages of at most size rows
func ChunkRows(rows []TopicRow, size int) []TablePage {
	if size < 1 || len(rows) <= size {
		return []TablePage{{Rows: rows}}
	}
	var pages []TablePage
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		pages = append(pages, TablePage{
			Label: fmt.Sprintf("%d차", len(pages)+1),
			Rows:  rows[start:end],
		})
	}
	return pages
}

// xlsxHeaders maps accepted header cells to topic fields
var xlsxHeaders = map[string]string{
	"subject":  "subject",
	"과목":       "subject",
	"주제":       "subject",
	"hours":    "hours",
	"시간":       "hours",
	"content":  "content",
	"내용":       "content",
	"exercise": "exercise",
	"실습":       "exercise",
}

// LoadTopicRowsXLSX reads timetable rows from a spreadsheet. The first row is
// a header naming the columns (subject/hours/content/exercise or 과목/시간/내용/실습);
// without a recognised header the first four columns are used in that order.
// An empty sheet name reads the first sheet.
func LoadTopicRowsXLSX(path, sheet string) ([]TopicRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", path)
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	columns := map[string]int{}
	for i, cell := range rows[0] {
		if field, ok := xlsxHeaders[strings.ToLower(strings.TrimSpace(cell))]; ok {
			if _, seen := columns[field]; !seen {
				columns[field] = i
			}
		}
	}
	body := rows[1:]
	if len(columns) == 0 {
		for i, field := range TimetableColumns {
			columns[field] = i
		}
		body = rows
	}

	cell := func(row []string, field string) string {
		i, ok := columns[field]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var topics []TopicRow
	for _, row := range body {
		topic := TopicRow{
			Subject:  cell(row, "subject"),
			Hours:    cell(row, "hours"),
			Content:  cell(row, "content"),
			Exercise: cell(row, "exercise"),
		}
		if topic == (TopicRow{}) {
			continue
		}
		topics = append(topics, topic)
	}
	return topics, nil
}
