package prep

import (
	"encoding/csv"
	"fmt"
	"image/color"
	"io"
	"log"
	"slices"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const (
	plotH = 4 * vg.Inch
	plotW = 6 * vg.Inch

	Accepted = "accepted"
)

var plotBarColor = color.RGBA{R: 37, G: 150, B: 190, A: 255}

// SummaryRow describes what happened to one input tree
type SummaryRow struct {
	Tree      string
	Policy    string
	Tips      int    // before masking
	Taxa      int    // distinct taxa
	Masked    int    // tips removed by masking
	Outputs   int    // orthologs written
	Rejection string // empty when the tree was accepted
}

// Outcome is the rejection reason, or "accepted".
func (r SummaryRow) Outcome() string {
	if r.Rejection == "" {
		return Accepted
	}
	return r.Rejection
}

// Write summary csv file to writer.
//
// Columns: "tree", "policy", "tips", "taxa", "masked", "outputs", "rejection"
func WriteSummaryCSV(rows []SummaryRow, w io.Writer) (err error) {
	data := make([][]string, len(rows)+1)
	data[0] = []string{"tree", "policy", "tips", "taxa", "masked", "outputs", "rejection"}
	for i, row := range rows {
		data[i+1] = []string{
			row.Tree,
			row.Policy,
			strconv.Itoa(row.Tips),
			strconv.Itoa(row.Taxa),
			strconv.Itoa(row.Masked),
			strconv.Itoa(row.Outputs),
			row.Rejection,
		}
	}
	writer := csv.NewWriter(w)
	defer func() {
		writer.Flush()
		if err == nil {
			err = writer.Error()
		} else if writer.Error() != nil {
			log.Printf("error when flushing output csv, %s", writer.Error())
		}
	}()
	if err = writer.WriteAll(data); err != nil {
		err = fmt.Errorf("%w, %s", ErrWritingFile, err)
		return
	}
	return
}

// Counts trees per outcome; accepted first, then reasons alphabetically.
func outcomeCounts(rows []SummaryRow) ([]string, []float64) {
	counts := make(map[string]int)
	for _, row := range rows {
		counts[row.Outcome()]++
	}
	outcomes := make([]string, 0, len(counts))
	for outcome := range counts {
		if outcome != Accepted {
			outcomes = append(outcomes, outcome)
		}
	}
	slices.Sort(outcomes)
	if _, ok := counts[Accepted]; ok {
		outcomes = append([]string{Accepted}, outcomes...)
	}
	values := make([]float64, len(outcomes))
	for i, outcome := range outcomes {
		values[i] = float64(counts[outcome])
	}
	return outcomes, values
}

// WriteSummaryPlot saves a bar chart of trees per outcome to <prefix>.png
func WriteSummaryPlot(rows []SummaryRow, prefix string) error {
	if len(rows) == 0 {
		return fmt.Errorf("%w, no trees to plot", ErrWritingFile)
	}
	outcomes, values := outcomeCounts(rows)
	p := plot.New()
	p.X.Label.Text = "Outcome"
	p.Y.Label.Text = "Number of Trees"
	p.Y.Min = 0
	bars, err := plotter.NewBarChart(plotter.Values(values), vg.Points(30))
	if err != nil {
		return err
	}
	bars.Color = plotBarColor
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(outcomes...)
	return p.Save(plotW, plotH, fmt.Sprintf("%s.png", prefix))
}
