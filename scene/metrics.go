package scene

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	cullerLabel = "culler"
)

var (
	sceneFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scene_frames",
		Help: "The number of frames handled.",
	}, []string{cullerLabel})

	sceneCulledFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scene_culled_frames",
		Help: "The number of frames where the scene was culled.",
	}, []string{cullerLabel})

	sceneMovedEntities = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scene_moved_entities",
		Help: "The number of entity moves.",
	}, []string{cullerLabel})

	sceneFrameLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scene_frame_latency",
		Help:    "The time to handle a frame.",
		Buckets: []float64{.0001, .0005, .001, .0025, .005, .01, .016, .025, .05, .1},
	}, []string{cullerLabel})
)

func instrumentFrame(culler string, culled bool, moved int, seconds float64) {
	labels := prometheus.Labels{cullerLabel: culler}

	sceneFrames.With(labels).Inc()
	sceneFrameLatency.With(labels).Observe(seconds)

	if culled {
		sceneCulledFrames.With(labels).Inc()
	}
	if moved != 0 {
		sceneMovedEntities.With(labels).Add(float64(moved))
	}
}
