package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"

	"github.com/Tiliavir/timescribe/internal/model"
	"github.com/Tiliavir/timescribe/internal/resolve"
)

const carvePrompt = "Overwrite by trimming/splitting these existing intervals?"

// renderConflicts prints the overlapping intervals as a table.
func renderConflicts(w io.Writer, conflicts []model.Interval) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	header := table.Row{}
	for _, h := range resolve.ConflictHeader {
		header = append(header, h)
	}
	tw.AppendHeader(header)
	for _, iv := range conflicts {
		row := table.Row{}
		for _, cell := range resolve.ConflictRow(iv) {
			row = append(row, cell)
		}
		tw.AppendRow(row)
	}
	tw.Render()
}

// promptConfirmer asks on in/out; an empty answer accepts.
type promptConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func newPromptConfirmer(in io.Reader, out io.Writer) *promptConfirmer {
	return &promptConfirmer{in: bufio.NewReader(in), out: out}
}

func (p *promptConfirmer) ConfirmCarve(_ context.Context, _ []model.Interval) (bool, error) {
	return confirm(p.in, p.out, carvePrompt, true)
}

// confirm asks a yes/no question until it gets an answer. def is used for an
// empty answer; closed input declines.
func confirm(in *bufio.Reader, out io.Writer, question string, def bool) (bool, error) {
	hint := "[Y/n]"
	if !def {
		hint = "[y/N]"
	}
	for {
		fmt.Fprintf(out, "%s %s ", question, hint)
		line, err := in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return false, err
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		switch {
		case answer == "y" || answer == "yes":
			return true, nil
		case answer == "n" || answer == "no":
			return false, nil
		case err != nil:
			fmt.Fprintln(out)
			return false, nil
		case answer == "":
			return def, nil
		}
		fmt.Fprintln(out, styleDim.Render(`Please answer "yes" or "no".`))
	}
}
