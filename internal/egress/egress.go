// Package egress implements C7, the Egress Dispatcher: delivering each
// processed (topic, value) pair to the controller over HTTP or a
// persistent WebSocket, whichever mode is configured, and optionally
// echoing the forwarded topic with its result code. Grounded on the
// original's HttpMiniserverHandler.send_to_miniserver_via_http/
// send_to_minisever_via_websocket, restructured per spec §4.7 around a
// bounded semaphore (HTTP) and the wslink single-connection state machine
// (WebSocket) instead of a module-level class with global semaphore state.
package egress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/user/loxrelay"
	"github.com/user/loxrelay/internal/metrics"
	"github.com/user/loxrelay/internal/normalize"
	"github.com/user/loxrelay/internal/transport/wslink"
)

// Result is the outcome of one dispatch, used for the forwarded-topic
// echo's http_code field. For WebSocket dispatches, Code is 200 on success
// and 500 on failure, mirroring the original's synthetic mapping for a
// transport that has no native status codes.
type Result struct {
	Code int
	Err  error
}

// Dispatcher is the shared interface both egress modes implement.
type Dispatcher interface {
	Dispatch(ctx context.Context, topic, value string) Result
	Close() error
}

// HTTPDispatcher issues one GET per pair, bounded by a counting semaphore
// of capacity maxParallel (spec §4.7, §5).
type HTTPDispatcher struct {
	client   *http.Client
	sem      chan struct{}
	host     string
	port     int
	user     string
	password string
	log      loxrelay.Logger
}

// NewHTTPDispatcher builds an HTTP-mode dispatcher. host may already be a
// mock host substitution — the caller decides which address to pass in
// (spec §4.7's "mock host... leaves the path and semantics identical").
func NewHTTPDispatcher(host string, port int, user, password string, maxParallel int, log loxrelay.Logger) *HTTPDispatcher {
	if maxParallel <= 0 {
		maxParallel = 1
	}
	return &HTTPDispatcher{
		client:   &http.Client{Timeout: 10 * time.Second},
		sem:      make(chan struct{}, maxParallel),
		host:     host,
		port:     port,
		user:     user,
		password: password,
		log:      log,
	}
}

// Dispatch acquires the semaphore, issues the GET, and maps the outcome to
// a code per spec §4.7: 200 on success, the real status otherwise, or a
// synthetic 408/499/503/500 on transport failure.
func (d *HTTPDispatcher) Dispatch(ctx context.Context, topic, value string) (result Result) {
	start := time.Now()
	defer func() {
		metrics.EgressDispatches.WithLabelValues("http", fmt.Sprintf("%d", result.Code)).Inc()
		metrics.EgressLatencySeconds.WithLabelValues("http").Observe(time.Since(start).Seconds())
	}()

	select {
	case d.sem <- struct{}{}:
	case <-ctx.Done():
		return Result{Code: 499, Err: ctx.Err()}
	}
	metrics.HTTPSemaphoreInUse.Inc()
	defer func() {
		<-d.sem
		metrics.HTTPSemaphoreInUse.Dec()
	}()

	addr := d.host
	if d.port != 0 && d.port != 80 {
		addr = fmt.Sprintf("%s:%d", d.host, d.port)
	}
	target := fmt.Sprintf("http://%s/dev/sps/io/%s/%s", addr, normalize.Topic(topic), url.PathEscape(value))

	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return Result{Code: 500, Err: err}
	}
	if d.user != "" && d.password != "" {
		req.SetBasicAuth(d.user, d.password)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return Result{Code: classifyHTTPError(ctx, err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && d.log != nil {
		d.log.Warn("egress: miniserver returned non-200", "topic", topic, "status", resp.StatusCode)
	} else if d.log != nil {
		d.log.Debug("egress: sent to miniserver", "topic", topic, "value", value)
	}
	return Result{Code: resp.StatusCode}
}

// classifyHTTPError maps a failed request into the synthetic codes spec
// §4.7 defines: timeout -> 408, caller cancellation -> 499, anything that
// looks like a connect-level OS error -> 503, everything else -> 500.
func classifyHTTPError(ctx context.Context, err error) int {
	if errors.Is(ctx.Err(), context.Canceled) {
		return 499
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return 408
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return 503
	}
	return 500
}

func (d *HTTPDispatcher) Close() error { return nil }

// WebSocketDispatcher sends each pair as a single command frame over one
// persistent wslink.Session.
type WebSocketDispatcher struct {
	session *wslink.Session
}

// NewWebSocketDispatcher builds a WebSocket-mode dispatcher.
func NewWebSocketDispatcher(host string, port int, user, password string, log loxrelay.Logger) *WebSocketDispatcher {
	return &WebSocketDispatcher{session: wslink.New(host, port, user, password, log)}
}

// Dispatch sends "{normalize(topic)} {value}" over the session (spec
// §4.7), mapping success to 200 and any send/connect failure to the
// synthetic 500 the original's WebSocket path uses uniformly.
func (d *WebSocketDispatcher) Dispatch(ctx context.Context, topic, value string) (result Result) {
	start := time.Now()
	defer func() {
		metrics.EgressDispatches.WithLabelValues("websocket", fmt.Sprintf("%d", result.Code)).Inc()
		metrics.EgressLatencySeconds.WithLabelValues("websocket").Observe(time.Since(start).Seconds())
	}()

	command := fmt.Sprintf("%s %s", normalize.Topic(topic), value)
	if err := d.session.SendCommand(ctx, command); err != nil {
		return Result{Code: 500, Err: err}
	}
	return Result{Code: 200}
}

func (d *WebSocketDispatcher) Close() error { return d.session.Close() }

// EchoFunc publishes the forwarded-topic debug echo.
type EchoFunc func(topic string, result Result)

// Forward dispatches every pair in the order of pairs and, when echo is
// non-nil, publishes a debug echo for each (spec §4.7's "forwarded-topic
// echo"). Per spec §4.7, dispatches within one process() result carry no
// ordering requirement between each other; callers that want to overlap
// them can call Forward concurrently per pair.
func Forward(ctx context.Context, d Dispatcher, pairs []loxrelay.Pair, echo EchoFunc) []Result {
	results := make([]Result, len(pairs))
	for i, p := range pairs {
		res := d.Dispatch(ctx, p.Topic, p.Value)
		results[i] = res
		if echo != nil {
			echo(p.Topic, res)
		}
	}
	return results
}

// EchoPayload is the JSON body shape for the forwarded-topic echo.
type EchoPayload struct {
	Value    string `json:"value"`
	HTTPCode int    `json:"http_code"`
}

// MarshalEcho renders the forwarded-topic echo body for value/result.
func MarshalEcho(value string, res Result) string {
	b, _ := json.Marshal(EchoPayload{Value: value, HTTPCode: res.Code})
	return string(b)
}
