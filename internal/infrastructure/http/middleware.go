package httptransport

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/voltshop/stocksync/internal/observability"
	"github.com/voltshop/stocksync/internal/observability/logctx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Observe wraps next with W3C trace-context extraction, a request-scoped
// logger carrying request and trace identifiers, X-Request-ID echo, and
// HTTP metrics. Route labels use the request path, which is fixed and
// low-cardinality for this facade.
func Observe(tel observability.Observability) func(http.Handler) http.Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	base := tel.Logger()
	reqCounter := tel.Metrics().Counter(observability.MHTTPRequests)
	reqDuration := tel.Metrics().Histogram(observability.MHTTPRequestDuration)
	prop := otel.GetTextMapPropagator()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := prop.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			sc := trace.SpanContextFromContext(ctx)

			rid := r.Header.Get("X-Request-ID")
			if rid == "" {
				rid = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", rid)

			fields := []observability.Field{observability.F("request_id", rid)}
			if sc.IsValid() {
				fields = append(fields,
					observability.F("trace_id", sc.TraceID().String()),
					observability.F("span_id", sc.SpanID().String()),
				)
			}
			ctx = logctx.With(ctx, base.With(fields...))

			start := time.Now()
			lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(lrw, r.WithContext(ctx))

			labels := []observability.Label{
				observability.L("method", r.Method),
				observability.L("route", r.URL.Path),
				observability.L("status", strconv.Itoa(lrw.status)),
			}
			reqCounter.Add(1, labels...)
			reqDuration.Observe(time.Since(start).Seconds(),
				observability.L("method", r.Method),
				observability.L("route", r.URL.Path),
			)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
