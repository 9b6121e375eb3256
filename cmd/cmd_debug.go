// Copyright 2025 The Waterpoint Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/waterpoint/waterpoint/sheet"
)

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Dev tools",
}

var sheetOptions struct {
	viewport float64
}

var debugSheetCmd = &cobra.Command{
	Use:   "sheet",
	Short: "Replay bottom sheet gestures",
	Long: `Reads one gesture per line and prints every state the sheet emits, as
JSON, after the gesture that produced it. Ignored gestures print "ignored".

  open | close | toggle
  start Y              pointer down on the handle at Y
  move Y               pointer moved to Y
  end TOP [VIEWPORT]   pointer up with the panel top edge at TOP
  release [VIEWPORT]   pointer up, panel anchored to the viewport bottom
  resize VIEWPORT      new viewport height

$ printf 'open\nstart 240\nmove 500\nrelease\n' | waterpoint debug sheet --viewport 800
open	{"offset_px":0,"full_height":560,"is_open":true,"phase":"idle","animate":true}
start 240	{"offset_px":0,"full_height":560,"is_open":true,"phase":"dragging","animate":false}
…
	`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		input := os.Stdin
		if isatty.IsTerminal(input.Fd()) {
			fmt.Fprintln(os.Stderr, "Enter gestures, one per line…")
		}

		return replaySheet(input, cmd.OutOrStdout(), sheetOptions.viewport, cfg.Sheet.HeightRatio)
	},
}

func init() {
	rootCmd.AddCommand(debugCmd)
	debugCmd.AddCommand(debugSheetCmd)
	debugSheetCmd.Flags().Float64Var(&sheetOptions.viewport, "viewport", 800, "Viewport height in pixels")
}

// replaySheet drives a controller with the gestures read from r.
func replaySheet(r io.Reader, w io.Writer, viewport, ratio float64) error {
	var line string

	emitted := false
	c := sheet.NewController(sheet.FullHeight(viewport, ratio),
		sheet.WithLogger(logger),
		sheet.WithObserver(func(st sheet.State) {
			emitted = true

			data, err := json.Marshal(st)
			if err != nil {
				fmt.Fprintf(w, "%s\t%q\n", line, err)

				return
			}

			fmt.Fprintf(w, "%s\t%s\n", line, data)
		}),
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line = strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		emitted = false

		var err error

		viewport, err = applyGesture(c, line, viewport, ratio)
		if err != nil {
			fmt.Fprintf(w, "%s\t%q\n", line, err.Error())

			continue
		}

		if !emitted {
			fmt.Fprintf(w, "%s\tignored\n", line)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	return nil
}

// applyGesture runs one gesture and returns the viewport height in effect
// after it.
func applyGesture(c *sheet.Controller, line string, viewport, ratio float64) (float64, error) {
	fields := strings.Fields(line)
	name, args := strings.ToLower(fields[0]), fields[1:]

	nums := make([]float64, len(args))
	for i, a := range args {
		f, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return viewport, fmt.Errorf("argument %q is not a number", a)
		}

		nums[i] = f
	}

	arity := func(lo, hi int) error {
		if len(nums) < lo || len(nums) > hi {
			return fmt.Errorf("%s takes %d to %d arguments, got %d", name, lo, hi, len(nums))
		}

		return nil
	}

	switch name {
	case "open", "close", "toggle":
		if err := arity(0, 0); err != nil {
			return viewport, err
		}

		switch name {
		case "open":
			c.Open()
		case "close":
			c.Close()
		default:
			c.Toggle()
		}
	case "start", "move":
		if err := arity(1, 1); err != nil {
			return viewport, err
		}

		if name == "start" {
			c.DragStart(nums[0])
		} else {
			c.DragMove(nums[0])
		}
	case "end":
		if err := arity(1, 2); err != nil {
			return viewport, err
		}

		if len(nums) == 2 {
			viewport = nums[1]
		}

		c.DragEnd(nums[0], viewport)
	case "release":
		if err := arity(0, 1); err != nil {
			return viewport, err
		}

		if len(nums) == 1 {
			viewport = nums[0]
		}

		c.Release(viewport)
	case "resize":
		if err := arity(1, 1); err != nil {
			return viewport, err
		}

		viewport = nums[0]
		c.Resize(sheet.FullHeight(viewport, ratio))
	default:
		return viewport, fmt.Errorf("unknown gesture %q", name)
	}

	return viewport, nil
}
