package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/kilianp07/cogendispatch/core/constraints"
	"github.com/kilianp07/cogendispatch/core/logger"
	"github.com/kilianp07/cogendispatch/core/model"
	"github.com/kilianp07/cogendispatch/core/optimizer"
)

// Publisher sends raw payloads. *PahoClient implements it.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// Subscriber registers topic handlers. *PahoClient implements it.
type Subscriber interface {
	Subscribe(topic string, qos byte, h Handler) error
}

// Optimizer answers demand requests. *optimizer.Service implements it.
type Optimizer interface {
	Optimize(ctx context.Context, req model.DemandRequest) (*model.DispatchReport, error)
}

// RequestMessage is a demand request received on the request topic.
// ReplyTo overrides the report topic for this request.
type RequestMessage struct {
	model.DemandRequest
	CorrelationID string `json:"correlation_id,omitempty"`
	ReplyTo       string `json:"reply_to,omitempty"`
}

// ErrorDocument is published instead of a report when a request fails.
type ErrorDocument struct {
	CorrelationID string    `json:"correlation_id,omitempty"`
	RequestID     string    `json:"request_id,omitempty"`
	Status        string    `json:"status"`
	Error         string    `json:"error"`
	Timestamp     time.Time `json:"timestamp"`
}

// replyEnvelope adds the correlation id to a report.
type replyEnvelope struct {
	CorrelationID string `json:"correlation_id,omitempty"`
	*model.DispatchReport
}

// Error document statuses beyond the solve statuses.
const (
	StatusRejected = "Rejected"
	StatusTimeout  = "Timeout"
)

// Responder answers requests received over MQTT with dispatch reports.
type Responder struct {
	pub         Publisher
	opt         Optimizer
	reportTopic string
	qos         byte
	log         logger.Logger
	now         func() time.Time

	sem    chan struct{}
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewResponder creates a Responder handling at most workers requests at once.
func NewResponder(pub Publisher, opt Optimizer, reportTopic string, qos byte, workers int, log logger.Logger) *Responder {
	if workers <= 0 {
		workers = 1
	}
	return &Responder{
		pub:         pub,
		opt:         opt,
		reportTopic: reportTopic,
		qos:         qos,
		log:         logger.OrNop(log),
		now:         time.Now,
		sem:         make(chan struct{}, workers),
	}
}

// Listen subscribes to topic and serves requests until ctx ends. In-flight
// requests are awaited before returning.
func (r *Responder) Listen(ctx context.Context, sub Subscriber, topic string, qos byte) error {
	err := sub.Subscribe(topic, qos, func(_ string, payload []byte) {
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return
		}
		r.wg.Add(1)
		r.mu.Unlock()
		select {
		case r.sem <- struct{}{}:
		case <-ctx.Done():
			r.wg.Done()
			return
		}
		go func() {
			defer func() { <-r.sem; r.wg.Done() }()
			r.Handle(ctx, payload)
		}()
	})
	if err != nil {
		return err
	}
	<-ctx.Done()
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.wg.Wait()
	return nil
}

// Handle decodes one request, optimizes it and publishes the answer.
func (r *Responder) Handle(ctx context.Context, payload []byte) {
	var msg RequestMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		r.reply(r.reportTopic, ErrorDocument{Status: StatusRejected, Error: "malformed request: " + err.Error(), Timestamp: r.now()})
		return
	}
	topic := r.reportTopic
	if msg.ReplyTo != "" {
		topic = msg.ReplyTo
	}
	rep, err := r.opt.Optimize(ctx, msg.DemandRequest)
	if err != nil {
		r.reply(topic, errorDocument(msg.CorrelationID, err, r.now()))
		return
	}
	r.reply(topic, replyEnvelope{CorrelationID: msg.CorrelationID, DispatchReport: rep})
}

// PublishReport sends a report on the report topic.
func (r *Responder) PublishReport(rep *model.DispatchReport) error {
	b, err := json.Marshal(rep)
	if err != nil {
		return err
	}
	return r.pub.Publish(r.reportTopic, r.qos, false, b)
}

func (r *Responder) reply(topic string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		r.log.Errorf("encode reply: %v", err)
		return
	}
	if err := r.pub.Publish(topic, r.qos, false, b); err != nil {
		r.log.Errorf("publish reply on %s: %v", topic, err)
	}
}

func errorDocument(correlationID string, err error, now time.Time) ErrorDocument {
	doc := ErrorDocument{CorrelationID: correlationID, Error: err.Error(), Timestamp: now}
	var oe *optimizer.OutcomeError
	switch {
	case errors.As(err, &oe):
		doc.Status = oe.Status.String()
		doc.RequestID = oe.RequestID
	case errors.Is(err, optimizer.ErrInvalidRequest), errors.Is(err, constraints.ErrInvalidConstraint):
		doc.Status = StatusRejected
	case errors.Is(err, optimizer.ErrSolveTimeout):
		doc.Status = StatusTimeout
	default:
		doc.Status = model.StatusError.String()
	}
	return doc
}
