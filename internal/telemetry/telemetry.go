// Package telemetry wraps the statsd client used for frame timings. The
// datadog dependency stays behind Recorder so callers never import it.
package telemetry

import (
	"time"

	ddstatsd "github.com/DataDog/datadog-go/v5/statsd"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Recorder emits frame and system metrics. The zero configuration is a no-op.
type Recorder struct {
	client ddstatsd.ClientInterface
	log    *zap.Logger
}

// NewNoop returns a recorder that drops everything.
func NewNoop() *Recorder {
	return &Recorder{client: &ddstatsd.NoOpClient{}, log: zap.NewNop()}
}

// NewRecorder wraps an existing client, mainly for tests.
func NewRecorder(client ddstatsd.ClientInterface, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{client: client, log: log}
}

// Dial connects to the statsd agent at address.
func Dial(address, namespace string, tags []string, log *zap.Logger) (*Recorder, error) {
	if address == "" {
		return nil, eris.New("address must not be empty")
	}
	opts := []ddstatsd.Option{ddstatsd.WithNamespace(namespace)}
	if len(tags) > 0 {
		opts = append(opts, ddstatsd.WithTags(tags))
	}
	c, err := ddstatsd.New(address, opts...)
	if err != nil {
		return nil, eris.Wrapf(err, "dial statsd %s", address)
	}
	return NewRecorder(c, log), nil
}

func (r *Recorder) FrameTiming(d time.Duration) {
	r.timing("frame", d, nil)
}

func (r *Recorder) SystemTiming(name string, d time.Duration) {
	r.timing("system", d, []string{"system:" + name})
}

func (r *Recorder) Entities(n int) {
	if err := r.client.Gauge("entities", float64(n), nil, 1); err != nil {
		r.log.Warn("failed to emit gauge", zap.Error(err))
	}
}

func (r *Recorder) Commands(n int) {
	if err := r.client.Count("commands", int64(n), nil, 1); err != nil {
		r.log.Warn("failed to emit count", zap.Error(err))
	}
}

func (r *Recorder) timing(name string, d time.Duration, tags []string) {
	if err := r.client.Timing(name, d, tags, 1); err != nil {
		r.log.Warn("failed to emit timing", zap.String("metric", name), zap.Error(err))
	}
}

// Close flushes and closes the underlying client.
func (r *Recorder) Close() error {
	return r.client.Close()
}
