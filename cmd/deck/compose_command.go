package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/benjaminschreck/go-deck/pkg/deck"
	"github.com/benjaminschreck/go-deck/pkg/deck/gamma"
	"github.com/benjaminschreck/go-deck/pkg/deck/pipeline"
	"github.com/benjaminschreck/go-deck/pkg/deck/visual"
)

type composeOptions struct {
	planPath       string
	curriculumPath string
	referencePath  string
	moduleIDs      []string
	xlsxPath       string
	sheet          string
	moduleName     string
	moduleHours    string
	rowsPerPage    int

	customer string
	title    string
	date     string
	industry string
	goal     string
	pain     string

	pblParts  []string
	caseParts []string
	pblName   string

	useGamma  bool
	themeID   string
	output    string
	savePlan  string
	dryRun    bool
	noVisuals bool
}

func newComposeCommand(ctx *commandContext) *cobra.Command {
	var opts composeOptions

	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Build a proposal deck from a plan or a curriculum",
		Long: `Build a proposal deck.

With --plan the pages of a saved plan are composed as they are. Otherwise a
plan is laid out from the curriculum sources (--curriculum, --reference with
--modules, or --xlsx) and the customer flags.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			plan, err := buildComposePlan(cfg, opts)
			if err != nil {
				return err
			}
			if opts.output != "" {
				plan.OutputPath = opts.output
			}
			if opts.noVisuals {
				for i := range plan.Pages {
					plan.Pages[i].Visual = nil
				}
			}

			out := cmd.OutOrStdout()
			if opts.savePlan != "" {
				if err := plan.Save(opts.savePlan); err != nil {
					return err
				}
				fmt.Fprintf(out, "Plan written to %s\n", opts.savePlan)
			}
			if opts.dryRun {
				printPlan(out, plan)
				return nil
			}
			return runPlan(cmd, cfg, plan)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.planPath, "plan", "", "Plan file to compose")
	flags.StringVar(&opts.curriculumPath, "curriculum", "", "Curriculum JSON with modules and persuasion slides")
	flags.StringVar(&opts.referencePath, "reference", "", "Reference curriculum JSON keyed by module id")
	flags.StringSliceVar(&opts.moduleIDs, "modules", nil, "Module ids to take from the reference file")
	flags.StringVar(&opts.xlsxPath, "xlsx", "", "Spreadsheet with timetable rows for one module")
	flags.StringVar(&opts.sheet, "sheet", "", "Sheet to read (defaults to the first)")
	flags.StringVar(&opts.moduleName, "module-name", "", "Name of the spreadsheet module")
	flags.StringVar(&opts.moduleHours, "module-hours", "", "Total hours of the spreadsheet module")
	flags.IntVar(&opts.rowsPerPage, "rows-per-page", 8, "Timetable rows per slide for spreadsheet input")

	flags.StringVar(&opts.customer, "customer", "", "Customer name")
	flags.StringVar(&opts.title, "title", "", "Proposal title")
	flags.StringVar(&opts.date, "date", "", "Proposal date (defaults to today)")
	flags.StringVar(&opts.industry, "industry", "", "Customer industry")
	flags.StringVar(&opts.goal, "goal", "", "Training goal")
	flags.StringVar(&opts.pain, "pain", "", "Customer pain points")

	flags.StringSliceVar(&opts.pblParts, "pbl", nil, "PBL part templates")
	flags.StringSliceVar(&opts.caseParts, "cases", nil, "Case study part templates")
	flags.StringVar(&opts.pblName, "pbl-name", "", "Title of the PBL section cover")

	flags.BoolVar(&opts.useGamma, "gamma", false, "Add a generated persuasion section")
	flags.StringVar(&opts.themeID, "theme", "", "Theme id for generated pages")
	flags.StringVarP(&opts.output, "output", "o", "", "Output file (defaults to the output directory)")
	flags.StringVar(&opts.savePlan, "save-plan", "", "Write the plan to this file")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "Print the plan without composing")
	flags.BoolVar(&opts.noVisuals, "no-visuals", false, "Keep template pictures instead of rendering visuals")

	return cmd
}

func buildComposePlan(cfg *deck.Config, opts composeOptions) (*pipeline.Plan, error) {
	if opts.planPath != "" {
		return pipeline.LoadPlan(opts.planPath)
	}

	curriculum := &pipeline.Curriculum{}
	if opts.curriculumPath != "" {
		loaded, err := pipeline.LoadCurriculumJSON(opts.curriculumPath)
		if err != nil {
			return nil, err
		}
		curriculum = loaded
	}
	if len(opts.moduleIDs) > 0 {
		if opts.referencePath == "" {
			return nil, errors.New("--modules needs --reference")
		}
		modules, err := pipeline.LoadReferenceModules(opts.referencePath, opts.moduleIDs)
		if err != nil {
			return nil, err
		}
		curriculum.Modules = append(curriculum.Modules, modules...)
	}
	if opts.xlsxPath != "" {
		rows, err := pipeline.LoadTopicRowsXLSX(opts.xlsxPath, opts.sheet)
		if err != nil {
			return nil, err
		}
		name := opts.moduleName
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(opts.xlsxPath), filepath.Ext(opts.xlsxPath))
		}
		curriculum.Modules = append(curriculum.Modules, pipeline.CurriculumModule{
			ID:         "xlsx" + strconv.Itoa(len(curriculum.Modules)+1),
			Name:       name,
			TotalHours: opts.moduleHours,
			TablePages: pipeline.ChunkRows(rows, opts.rowsPerPage),
		})
	}
	if len(curriculum.Modules) == 0 && len(curriculum.Persuasion) == 0 {
		return nil, errors.New("nothing to compose: pass --plan, --curriculum, --reference with --modules, or --xlsx")
	}

	date := opts.date
	if date == "" {
		date = time.Now().Format("2006.01.02")
	}
	customer := pipeline.Customer{
		Name:     opts.customer,
		Title:    opts.title,
		Date:     date,
		Industry: opts.industry,
		Goal:     opts.goal,
		Pain:     opts.pain,
	}

	build := pipeline.BuildOptions{
		TemplateDir: cfg.Paths.TemplateDir,
		OutputDir:   cfg.Paths.OutputDir,
		Modules:     curriculum.Modules,
		Persuasion:  curriculum.Persuasion,
		PBLParts:    opts.pblParts,
		CaseParts:   opts.caseParts,
		PBLName:     opts.pblName,
		ThemeID:     opts.themeID,
		Variables:   customer.Variables(curriculum.ModuleNames()),
	}
	if build.ThemeID == "" {
		build.ThemeID = cfg.Gamma.ThemeID
	}
	if opts.useGamma {
		build.GammaPrompt = pipeline.DefaultGammaPrompt
	}
	return pipeline.BuildPlan(build), nil
}

func runPlan(cmd *cobra.Command, cfg *deck.Config, plan *pipeline.Plan) error {
	logger := deck.GetLogger()
	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithConcurrency(cfg.Renderer.Concurrency),
		pipeline.WithWorkDir(cfg.Paths.WorkDir),
	}

	if planHasVisuals(plan) {
		rendererOpts := []visual.Option{visual.WithLogger(logger)}
		tokens, err := visual.LoadTokens(cfg.Paths.TokensFile)
		switch {
		case err == nil:
			rendererOpts = append(rendererOpts, visual.WithTokens(tokens))
		case errors.Is(err, fs.ErrNotExist):
			logger.Debug("no design tokens at %s", cfg.Paths.TokensFile)
		default:
			return err
		}
		renderer := visual.NewRenderer(rendererOpts...)
		defer renderer.Close()
		opts = append(opts, pipeline.WithRenderer(renderer))
	}

	if _, dynamic := plan.Count(); dynamic > 0 {
		client, err := gamma.New(gamma.Config{Logger: logger})
		if err != nil {
			// dynamic pages without a client fail, and optional ones are skipped
			logger.Warn("content generation disabled: %v", err)
		} else {
			opts = append(opts, pipeline.WithGenerator(client))
		}
	}

	if err := os.MkdirAll(cfg.Paths.WorkDir, 0o755); err != nil {
		return fmt.Errorf("create work directory: %w", err)
	}

	result, err := pipeline.NewRunner(opts...).Run(cmd.Context(), plan)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote %s\n", result.OutputPath)
	fmt.Fprintf(out, "  pages: %d fixed, %d generated, %d slides\n", result.Fixed, result.Dynamic, result.Slides)
	if len(result.Skipped) > 0 {
		fmt.Fprintf(out, "  skipped: %s\n", strings.Join(result.Skipped, ", "))
		if result.Errors != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%v\n", result.Errors)
		}
	}
	return nil
}

func planHasVisuals(plan *pipeline.Plan) bool {
	for _, p := range plan.Pages {
		if p.Visual != nil {
			return true
		}
	}
	return false
}

func printPlan(out io.Writer, plan *pipeline.Plan) {
	rows := make([][]string, 0, len(plan.Pages))
	for _, p := range plan.Ordered() {
		source := filepath.Base(p.Template)
		if p.Kind == pipeline.KindDynamic {
			source = p.Mode
			if p.GammaID != "" {
				source += " " + p.GammaID
			}
		}
		visualKind := ""
		if p.Visual != nil {
			visualKind = p.Visual.Kind
		}
		rows = append(rows, []string{
			strconv.Itoa(p.Priority),
			p.Name,
			string(p.Kind),
			source,
			visualKind,
			strconv.Itoa(len(p.TableRows)),
			yesNo(p.Optional),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Priority", "Page", "Kind", "Source", "Visual", "Rows", "Optional"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	))
	fixed, dynamic := plan.Count()
	fmt.Fprintf(out, "%d fixed, %d generated -> %s\n", fixed, dynamic, plan.OutputPath)
}
