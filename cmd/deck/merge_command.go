package main

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/benjaminschreck/go-deck/pkg/deck"
	"github.com/benjaminschreck/go-deck/pkg/deck/opc"
)

func newMergeCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "merge <input.pptx>... -o <output.pptx>",
		Short: "Concatenate presentations in argument order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				return errors.New("--output is required")
			}
			cfg := ctx.configValue()

			fragments := make([]*deck.Fragment, 0, len(args))
			for i, path := range args {
				f, err := deck.LoadFragment(path)
				if err != nil {
					return err
				}
				f.Priority = (i + 1) * 10
				fragments = append(fragments, f)
			}

			composer := deck.NewComposer(
				deck.WithSections(cfg.Compose.Sections),
				deck.WithSizeHarmonization(cfg.Compose.HarmonizeSize),
			)
			for _, f := range fragments {
				if err := composer.Append(f); err != nil {
					return err
				}
			}
			if err := composer.WriteFile(output); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Merged %d files (%d slides) into %s\n", len(args), composer.Pages(), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file")
	return cmd
}

func newSplitCommand(ctx *commandContext) *cobra.Command {
	var output string
	var slides string

	cmd := &cobra.Command{
		Use:   "split <input.pptx> --slides 1,3-5 -o <output.pptx>",
		Short: "Keep a subset of slides and drop everything they no longer use",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				return errors.New("--output is required")
			}
			keep, err := parseSlideRanges(slides)
			if err != nil {
				return err
			}

			pkg, err := opc.LoadFile(args[0])
			if err != nil {
				return err
			}
			removed, err := deck.ExtractSlides(pkg, keep)
			if err != nil {
				return err
			}
			data, err := pkg.Save()
			if err != nil {
				return err
			}
			if err := deck.WriteArchive(output, data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Kept %d slides, removed %d parts, wrote %s\n", len(keep), len(removed), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file")
	cmd.Flags().StringVar(&slides, "slides", "", "1-based slide numbers and ranges, e.g. 1,3-5")
	_ = cmd.MarkFlagRequired("slides")
	return cmd
}

// maxSlideNumber bounds the slide numbers accepted by --slides
const maxSlideNumber = 10000

// parseSlideRanges turns "1,3-5" into 0-based positions in ascending order
func parseSlideRanges(spec string) ([]int, error) {
	seen := map[int]bool{}
	var out []int
	add := func(n int) {
		if !seen[n] {
			seen[n] = true
			out = append(out, n-1)
		}
	}
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		start, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil || start < 1 || start > maxSlideNumber {
			return nil, fmt.Errorf("invalid slide number %q", part)
		}
		end := start
		if isRange {
			end, err = strconv.Atoi(strings.TrimSpace(hi))
			if err != nil || end < start || end > maxSlideNumber {
				return nil, fmt.Errorf("invalid slide range %q", part)
			}
		}
		for n := start; n <= end; n++ {
			add(n)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("no slides selected")
	}
	slices.Sort(out)
	return out, nil
}
