package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/02loveslollipop/snow-cannon-viewer/services/dashboard/internal/filter"
	"github.com/02loveslollipop/snow-cannon-viewer/services/internal/cannon"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func orDash(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func regard(c cannon.EnrichedCannon) string {
	if c.NumeroRegard == nil {
		return "-"
	}
	return strconv.Itoa(*c.NumeroRegard)
}

func onOff(c cannon.EnrichedCannon) string {
	if v, _ := c.Consumption(); v > 0 {
		return "on"
	}
	return "off"
}

func cardPercent(c cannon.EnrichedCannon) int {
	if c.LatestMeasurement == nil {
		return 0
	}
	return cannon.DisplayPercent(c.LatestMeasurement.ConsumptionM3, c.LatestMeasurement.ObjectiveMaxM3)
}

func renderList(w io.Writer, cannons []cannon.EnrichedCannon) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tREGARD\tSECTEUR\tPISTE\tTYPE\tSTATE\tCONSO_M3\tMAX_M3\tPERCENT\tTIER")
	for _, c := range cannons {
		consumption := "-"
		var objective *float64
		if m := c.LatestMeasurement; m != nil {
			consumption = strconv.FormatFloat(m.ConsumptionM3, 'f', -1, 64)
			objective = m.ObjectiveMaxM3
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%s\t%s\t%s\t%d%%\t%s\n",
			c.ID, regard(c), c.Sector, c.PisteName, c.Type, onOff(c),
			consumption, orDash(objective), c.PercentOfMax, cannon.Classify(c.PercentOfMax),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d cannon(s)\n", len(cannons))
	return err
}

func renderCard(w io.Writer, c cannon.EnrichedCannon) error {
	percent := cardPercent(c)

	var b strings.Builder
	fmt.Fprintf(&b, "#%s - Secteur %d [%s]\n", regard(c), c.Sector, onOff(c))
	fmt.Fprintf(&b, "%s / %s\n", c.PisteName, c.Type)
	fmt.Fprintf(&b, "%d%% (%s)\n", percent, cannon.Classify(percent))
	if m := c.LatestMeasurement; m != nil {
		fmt.Fprintf(&b, "min: %s - conso: %s - max: %s\n",
			orDash(m.ObjectiveMinM3),
			strconv.FormatFloat(m.ConsumptionM3, 'f', -1, 64),
			orDash(m.ObjectiveMaxM3),
		)
		fmt.Fprintf(&b, "measured %s, %sh running\n",
			m.MeasuredAt.UTC().Format(time.RFC3339),
			strconv.FormatFloat(m.DurationHours, 'f', -1, 64),
		)
	} else {
		b.WriteString("no measurement\n")
	}
	fmt.Fprintf(&b, "position: %.6f, %.6f\n", c.Latitude, c.Longitude)

	_, err := io.WriteString(w, b.String())
	return err
}

func renderStats(w io.Writer, s filter.Stats) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "TOTAL\tACTIVE\tCONSO_M3")
	fmt.Fprintf(tw, "%d\t%d\t%.1f\n", s.Total, s.Active, s.TotalConsumption)
	return tw.Flush()
}

func renderOptions(w io.Writer, o filter.Options) error {
	types := make([]string, 0, len(o.Types))
	for _, t := range o.Types {
		types = append(types, string(t))
	}
	sectors := make([]string, 0, len(o.Sectors))
	for _, s := range o.Sectors {
		sectors = append(sectors, strconv.Itoa(s))
	}
	_, err := fmt.Fprintf(w, "types: %s\nsectors: %s\n", strings.Join(types, ", "), strings.Join(sectors, ", "))
	return err
}
