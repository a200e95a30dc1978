package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should register badge metrics under the birdie namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.roundsEvaluated.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "birdie_badges_rounds_evaluated_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithMetricPrefix("pfx"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then names should carry namespace, subsystem and prefix", func() {
				manager.catalogBadges.Set(3)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				var names []string
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(strings.Join(names, ","), ShouldContainSubstring, "test_namespace_test_subsystem_pfx_catalog_badges")
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording awards and faults", func() {
			before := testutil.ToFloat64(globalManager.awardsGranted.WithLabelValues("turkey"))
			RecordAwardGranted("turkey")
			RecordAwardGranted("turkey")
			RecordPredicateFault("night_owl")
			RecordAggregationUnavailable()
			RecordProgressConflict()
			UpdateCatalogBadges(12)

			Convey("Then the counters should move", func() {
				So(testutil.ToFloat64(globalManager.awardsGranted.WithLabelValues("turkey")), ShouldEqual, before+2)
				So(testutil.ToFloat64(globalManager.predicateFaults.WithLabelValues("night_owl")), ShouldBeGreaterThanOrEqualTo, 1)
				So(testutil.ToFloat64(globalManager.aggregationFailures), ShouldBeGreaterThanOrEqualTo, 1)
				So(testutil.ToFloat64(globalManager.catalogBadges), ShouldEqual, 12)
			})
		})

		Convey("When recording queue and http metrics", func() {
			So(func() {
				UpdateQueueCapacity(10)
				UpdateQueueSize(5)
				UpdateQueueUtilization(0.5)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordHTTPRequest("rounds", "POST", "202")
				RecordHTTPRequestDuration("rounds", "POST", "202", 1.5)
				RecordErrorByEndpoint("rounds", "POST", "client_error")
			}, ShouldNotPanic)
			So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 5)
		})

		Convey("Then the registry should be exposed", func() {
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
