package rdrr

import (
	"fmt"
	"time"

	"github.com/rchlumsk/RavenHydroFramework/internal/iohelp"
)

// CSVSink buffers per-step hydrograph/pollutograph values in memory and
// writes them at Flush: one wide hydrograph CSV (one column per subbasin)
// and, when constituents were tracked, one pollutograph CSV.
type CSVSink struct {
	dir string

	times       []time.Time
	hydrograph  map[int][]float64
	pollutograph map[int]map[int][]float64
}

// NewCSVSink prepares a sink writing under dir.
func NewCSVSink(dir string) *CSVSink {
	return &CSVSink{
		dir:          dir,
		hydrograph:   make(map[int][]float64),
		pollutograph: make(map[int]map[int][]float64),
	}
}

func (s *CSVSink) WriteHydrographStep(subbasinID int, t time.Time, qOut float64) {
	s.hydrograph[subbasinID] = append(s.hydrograph[subbasinID], qOut)
}

func (s *CSVSink) WritePollutographStep(subbasinID, constituentIndex int, t time.Time, conc float64) {
	if s.pollutograph[subbasinID] == nil {
		s.pollutograph[subbasinID] = make(map[int][]float64)
	}
	s.pollutograph[subbasinID][constituentIndex] = append(s.pollutograph[subbasinID][constituentIndex], conc)
}

// RecordTime appends the step timestamp shared by every subbasin's series;
// callers must call this once per step, matching the hydrograph rows in
// length.
func (s *CSVSink) RecordTime(t time.Time) {
	s.times = append(s.times, t)
}

// Flush writes one hydrograph.csv and, if any constituent was tracked, one
// pollutograph.csv, both time-stamped by RecordTime's calls.
func (s *CSVSink) Flush() error {
	tcol := make([]interface{}, len(s.times))
	for i, t := range s.times {
		tcol[i] = t.Format(time.RFC3339)
	}
	cols := [][]interface{}{tcol}
	header := "time"
	for sid, q := range s.hydrograph {
		col := make([]interface{}, len(q))
		for i, v := range q {
			col[i] = v
		}
		cols = append(cols, col)
		header += fmt.Sprintf(",Q_%d", sid)
	}
	if err := iohelp.WriteCSVColumns(s.dir+"/hydrograph.csv", header, cols...); err != nil {
		return fmt.Errorf("rdrr: failed writing hydrograph.csv: %w", err)
	}

	if len(s.pollutograph) == 0 {
		return nil
	}
	pheader := "time"
	pcols := [][]interface{}{tcol}
	for sid, byC := range s.pollutograph {
		for ci, conc := range byC {
			col := make([]interface{}, len(conc))
			for i, v := range conc {
				col[i] = v
			}
			pcols = append(pcols, col)
			pheader += fmt.Sprintf(",C_%d_%d", sid, ci)
		}
	}
	if err := iohelp.WriteCSVColumns(s.dir+"/pollutograph.csv", pheader, pcols...); err != nil {
		return fmt.Errorf("rdrr: failed writing pollutograph.csv: %w", err)
	}
	return nil
}
