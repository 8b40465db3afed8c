package observability

import (
	"bufio"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// DefaultTraceIdHeader is the request header read by Middleware when TraceIdHeader is empty.
const DefaultTraceIdHeader = "X-Request-Id"

// Middleware holds configuration for HTTP Observability
type Middleware struct {
	TraceIdHeader string
}

// Wrap returns an Handler that add Observability to http Request Context and call next.
//
// Each request Logger carries a "tId" trace id, taken from the TraceIdHeader request header
// or generated. The trace id is echoed in the response headers.
func (self Middleware) Wrap(next http.Handler) http.Handler {
	header := self.TraceIdHeader
	if "" == header {
		header = DefaultTraceIdHeader
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t0 := time.Now()

		tId := r.Header.Get(header)
		if "" == tId {
			tId = uuid.New().String()
		}
		w.Header().Set(header, tId)

		log := GetObservability(r.Context()).Log().With("tId", tId)
		ctx := SetObservability(r.Context(), &Observability{Logger: log})
		sw := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&sw, r.Clone(ctx))
		log.Info(
			"processed HTTP request",
			"method", r.Method,
			"uri", r.RequestURI,
			"status", sw.status,
			"duration", time.Since(t0),
		)

	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (self *statusRecorder) WriteHeader(statusCode int) {
	self.status = statusCode
	self.ResponseWriter.WriteHeader(statusCode)
}

// Hijack lets websocket upgrades take over the underlying connection.
func (self *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	self.status = http.StatusSwitchingProtocols
	return http.NewResponseController(self.ResponseWriter).Hijack()
}

// Unwrap allows http.ResponseController to reach the wrapped ResponseWriter.
func (self *statusRecorder) Unwrap() http.ResponseWriter {
	return self.ResponseWriter
}

var _ http.ResponseWriter = &statusRecorder{}
