package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then every collector is registered under the hackscore namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.evaluationsReceived.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
				found := false
				for _, f := range families {
					if f.GetName() == "hackscore_scoring_evaluations_received_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("sub"),
				WithHistogramBuckets([]float64{1, 10}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options are applied", func() {
				So(manager.namespace, ShouldEqual, "test")
				So(manager.subsystem, ShouldEqual, "sub")
				So(manager.histogramBuckets, ShouldResemble, []float64{1, 10})
			})
		})

		Convey("When empty options are passed", func() {
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then the defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "hackscore")
				So(manager.subsystem, ShouldEqual, "scoring")
				So(len(manager.histogramBuckets), ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When evaluation counters are recorded", func() {
			before := testutil.ToFloat64(globalManager.evaluationsReceived)
			RecordEvaluationReceived()
			RecordEvaluationReceived()
			dupBefore := testutil.ToFloat64(globalManager.evaluationsDuplicate)
			RecordEvaluationDuplicate()

			Convey("Then the counters move", func() {
				So(testutil.ToFloat64(globalManager.evaluationsReceived), ShouldEqual, before+2)
				So(testutil.ToFloat64(globalManager.evaluationsDuplicate), ShouldEqual, dupBefore+1)
			})
		})

		Convey("When cache results are recorded", func() {
			hits := testutil.ToFloat64(globalManager.leaderboardCache.WithLabelValues(CacheHit))
			RecordCacheResult(CacheHit)

			Convey("Then the hit label is incremented", func() {
				So(testutil.ToFloat64(globalManager.leaderboardCache.WithLabelValues(CacheHit)), ShouldEqual, hits+1)
			})
		})

		Convey("When gauges are updated", func() {
			UpdateQueueSize(7)
			UpdateQueueCapacity(100)
			UpdateWorkerCount(4)
			UpdateRepositoryRecords("rubrics", 3)

			Convey("Then they hold the last value", func() {
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 7)
				So(testutil.ToFloat64(globalManager.queueCapacity), ShouldEqual, 100)
				So(testutil.ToFloat64(globalManager.workerCount), ShouldEqual, 4)
				So(testutil.ToFloat64(globalManager.repositoryRecords.WithLabelValues("rubrics")), ShouldEqual, 3)
			})
		})

		Convey("When latency and HTTP metrics are recorded", func() {
			So(func() {
				RecordEvaluationProcessed()
				RecordEvaluationFailed()
				RecordScoreComputeLatency(1.5)
				RecordLeaderboardBuild()
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				RecordWorkerProcessingLatency(2)
				RecordWorkerError()
				RecordRepositoryLatency("evaluations", 0.3)
				RecordHTTPRequest("/evaluations", "POST", "202")
				RecordHTTPRequestDuration("/evaluations", "POST", "202", 4)
				RecordErrorByComponent("cache", "unavailable")
			}, ShouldNotPanic)
		})

		Convey("When the registry is requested", func() {
			So(GetRegistry(), ShouldEqual, customRegistry)
		})
	})
}
