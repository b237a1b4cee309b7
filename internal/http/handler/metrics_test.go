package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"factoryops.app/assistant/internal/http/handler"
	"factoryops.app/assistant/internal/metrics"
	"factoryops.app/assistant/internal/model"
	"factoryops.app/assistant/internal/service"
)

var _ = Describe("MetricsHandler", func() {
	var (
		router *gin.Engine
		svc    *mockMetricsService
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		svc = &mockMetricsService{}
		h := handler.NewMetricsHandler(svc)
		router.GET("/metrics/oee", h.OEE)
		router.GET("/metrics/quality", h.Quality)
		router.GET("/metrics/downtime", h.Downtime)
		router.GET("/data/stats", h.Stats)
	})

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	It("passes the query through and returns the result", func() {
		svc.oeeFn = func(_ context.Context, q metrics.Query) (model.OEEMetrics, error) {
			Expect(q).To(Equal(metrics.Query{StartDate: "2024-10-15", EndDate: "2024-11-14", Machine: "CNC-001"}))
			return model.OEEMetrics{OEE: 0.837, Availability: 0.938, Performance: 0.95, Quality: 0.94, TotalParts: 1000, GoodParts: 940, ScrapParts: 60}, nil
		}

		w := get("/metrics/oee?start_date=2024-10-15&end_date=2024-11-14&machine=CNC-001")
		Expect(w.Code).To(Equal(http.StatusOK))

		var resp map[string]any
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp["oee"]).To(Equal(0.837))
	})

	It("forwards the severity filter for quality issues", func() {
		svc.qualityFn = func(_ context.Context, q metrics.Query) (model.QualityReport, error) {
			Expect(q.Severity).To(Equal("high"))
			return model.QualityReport{}, nil
		}
		Expect(get("/metrics/quality?start_date=2024-10-15&end_date=2024-11-14&severity=high").Code).To(Equal(http.StatusOK))
	})

	It("requires both dates", func() {
		Expect(get("/metrics/oee?start_date=2024-10-15").Code).To(Equal(http.StatusBadRequest))
	})

	DescribeTable("maps engine errors",
		func(err error, status int) {
			svc.downtimeFn = func(context.Context, metrics.Query) (model.DowntimeReport, error) {
				return model.DowntimeReport{}, err
			}
			Expect(get("/metrics/downtime?start_date=2024-11-14&end_date=2024-10-15").Code).To(Equal(status))
		},
		Entry("inverted range", metrics.ErrInvalidRange, http.StatusBadRequest),
		Entry("malformed date", metrics.ErrInvalidDate, http.StatusBadRequest),
		Entry("no data", metrics.ErrNoData, http.StatusNotFound),
	)

	It("describes the loaded data", func() {
		svc.statsFn = func(context.Context) (service.DataStats, error) {
			return service.DataStats{StartDate: "2024-10-15", EndDate: "2024-11-14", Days: 31, Machines: []string{"CNC-001"}}, nil
		}
		w := get("/data/stats")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring(`"days":31`))
	})
})
