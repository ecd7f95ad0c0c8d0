package lod

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	faceLabel = "face"
	kindLabel = "kind"
)

var (
	lodNodeCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "lod_node_count",
		Help: "The number of quadtree nodes per face.",
	}, []string{faceLabel})

	lodSplits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lod_splits_total",
		Help: "The total number of node splits.",
	}, []string{faceLabel})

	lodMerges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lod_merges_total",
		Help: "The total number of sibling groups merged back into their parent.",
	}, []string{faceLabel})

	lodSlotChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lod_slot_changes_total",
		Help: "The total number of buffer slot changes.",
	}, []string{faceLabel, kindLabel})

	lodSlotOverflow = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "lod_slot_overflow",
		Help: "The number of leaves without a buffer slot after the last update.",
	}, []string{faceLabel})

	lodBufferUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lod_buffer_updates_total",
		Help: "The total number of change batches handed to the buffer updater.",
	})
)

func instrumentSplit(face Face) {
	lodSplits.
		With(prometheus.Labels{faceLabel: face.String()}).
		Inc()
}

func instrumentMerge(face Face) {
	lodMerges.
		With(prometheus.Labels{faceLabel: face.String()}).
		Inc()
}

func instrumentNodeCount(face Face, count int) {
	lodNodeCount.
		With(prometheus.Labels{faceLabel: face.String()}).
		Set(float64(count))
}

func instrumentSlotChanges(changes []LayoutChange) {
	for _, c := range changes {
		kind := "allocate"
		if c.Freed() {
			kind = "free"
		}
		lodSlotChanges.
			With(prometheus.Labels{faceLabel: Face(c.Face).String(), kindLabel: kind}).
			Inc()
	}
}

func instrumentOverflow(face Face, overflow int) {
	lodSlotOverflow.
		With(prometheus.Labels{faceLabel: face.String()}).
		Set(float64(overflow))
}

func instrumentBufferUpdate() {
	lodBufferUpdates.Inc()
}
