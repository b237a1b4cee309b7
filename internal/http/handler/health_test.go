package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"factoryops.app/assistant/internal/data"
	"factoryops.app/assistant/internal/http/handler"
	"factoryops.app/assistant/internal/model"
)

var _ = Describe("HealthHandler", func() {
	health := func(p handler.Pinger, src data.Source) *httptest.ResponseRecorder {
		gin.SetMode(gin.TestMode)
		router := gin.New()
		router.GET("/health", handler.NewHealthHandler(p, src, "sqlite").Health)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		return w
	}

	It("is ok with data loaded and a reachable backend", func() {
		w := health(&mockPinger{}, data.NewStaticSource(&model.Snapshot{}))
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(MatchJSON(`{"status":"ok","memory_backend":"sqlite","memory_ok":true,"data_loaded":true}`))
	})

	It("is degraded when the memory backend is down", func() {
		p := &mockPinger{pingFn: func(context.Context) error { return errors.New("database is locked") }}
		w := health(p, data.NewStaticSource(&model.Snapshot{}))
		Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
		Expect(w.Body.String()).To(ContainSubstring(`"memory_ok":false`))
	})

	It("is degraded without production data", func() {
		w := health(&mockPinger{}, data.NewStaticSource(nil))
		Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
	})
})
