package main

import (
	"planet-lod/internal/lod"
)

// statsUpdater stands in for the GPU side: it tallies every change batch the
// engine hands over.
type statsUpdater struct {
	batches     int
	allocations int
	frees       int
	maxBatch    int
}

func (s *statsUpdater) UpdateLayout(changes []lod.LayoutChange, layout []lod.Code, radius float32) {
	s.batches++
	for _, c := range changes {
		if c.Freed() {
			s.frees++
		} else {
			s.allocations++
		}
	}
	s.maxBatch = max(s.maxBatch, len(changes))
}

type faceSummary struct {
	Face     string `json:"face"`
	Nodes    int    `json:"nodes"`
	Leaves   int    `json:"leaves"`
	Resident int    `json:"resident"`
	Overflow int    `json:"overflow"`
	Deepest  uint32 `json:"deepest_level"`
}

type summary struct {
	Path          string        `json:"path"`
	Frames        int           `json:"frames"`
	Radius        float32       `json:"radius"`
	NodeCount     int           `json:"node_count"`
	Batches       int           `json:"batches"`
	Allocations   int           `json:"allocations"`
	Frees         int           `json:"frees"`
	MaxBatch      int           `json:"max_batch"`
	OverflowFrame int           `json:"overflow_frames"`
	Faces         []faceSummary `json:"faces"`
}

func summarize(e *lod.Engine, s *statsUpdater) summary {
	out := summary{
		NodeCount:   e.NodeCount(),
		Batches:     s.batches,
		Allocations: s.allocations,
		Frees:       s.frees,
		MaxBatch:    s.maxBatch,
	}

	for _, face := range lod.Faces() {
		fs := faceSummary{
			Face:     face.String(),
			Nodes:    e.Root(face).Count(),
			Overflow: e.Overflow(face),
		}
		for _, code := range e.LeafCodes(face) {
			fs.Leaves++
			fs.Deepest = max(fs.Deepest, code.Level())
		}
		for _, code := range e.Layout(face) {
			if code != 0 {
				fs.Resident++
			}
		}
		out.Faces = append(out.Faces, fs)
	}
	return out
}
