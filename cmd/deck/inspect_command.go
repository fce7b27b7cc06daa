package main

import (
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/benjaminschreck/go-deck/pkg/deck"
	"github.com/benjaminschreck/go-deck/pkg/deck/opc"
	"github.com/benjaminschreck/go-deck/pkg/deck/pipeline"
	"github.com/benjaminschreck/go-deck/pkg/deck/render"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file.pptx|plan.json>",
		Short: "List the slides of a presentation or the pages of a plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if strings.EqualFold(filepath.Ext(args[0]), ".json") {
				plan, err := pipeline.LoadPlan(args[0])
				if err != nil {
					return err
				}
				printPlan(out, plan)
				return nil
			}

			pkg, err := opc.LoadFile(args[0])
			if err != nil {
				return err
			}
			return printPresentation(out, pkg)
		},
	}
}

func printPresentation(out io.Writer, pkg *opc.Package) error {
	slides, err := deck.SlideParts(pkg)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(slides))
	for i, name := range slides {
		layout := ""
		images := 0
		if pkg.HasRelationships(name) {
			rels := pkg.Relationships(name)
			if layouts := rels.ByType(opc.RelTypeSlideLayout); len(layouts) > 0 {
				if target, ok := pkg.Target(name, layouts[0].ID); ok {
					layout = path.Base(target)
				}
			}
			images = len(rels.ByType(opc.RelTypeImage))
		}
		title, err := slideTitle(pkg, name)
		if err != nil {
			return err
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), path.Base(name), layout, strconv.Itoa(images), truncate(title, 48)})
	}

	fmt.Fprintln(out, renderTable(
		[]string{"#", "Part", "Layout", "Images", "Text"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
	))

	status := "ok"
	if err := pkg.Validate(); err != nil {
		status = err.Error()
	}
	fmt.Fprintf(out, "%d slides, %d parts, structure: %s\n", len(slides), len(pkg.PartNames()), status)
	return nil
}

// slideTitle returns the first non-empty paragraph of a slide
func slideTitle(pkg *opc.Package, name string) (string, error) {
	root, err := pkg.XML(name)
	if err != nil {
		return "", err
	}
	for _, p := range render.Paragraphs(root) {
		if text := strings.TrimSpace(render.ParagraphText(p)); text != "" {
			return text, nil
		}
	}
	return "", nil
}
