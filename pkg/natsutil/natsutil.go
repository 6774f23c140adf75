// Package natsutil provides typed JSON publish, subscribe and request/reply
// helpers over NATS with OpenTelemetry trace propagation in message headers.
package natsutil

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
)

// headerCarrier adapts nats.Msg headers to an OTel TextMapCarrier.
type headerCarrier nats.Msg

func (c *headerCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *headerCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *headerCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

func newMsg(ctx context.Context, subject string, v any) (*nats.Msg, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	msg := &nats.Msg{Subject: subject, Data: data}
	otel.GetTextMapPropagator().Inject(ctx, (*headerCarrier)(msg))
	return msg, nil
}

func extract(msg *nats.Msg) context.Context {
	return otel.GetTextMapPropagator().Extract(context.Background(), (*headerCarrier)(msg))
}

// Publish sends v as JSON on subject.
func Publish[T any](ctx context.Context, nc *nats.Conn, subject string, v T) error {
	msg, err := newMsg(ctx, subject, v)
	if err != nil {
		return err
	}
	return nc.PublishMsg(msg)
}

// Subscribe calls handler for every JSON message of type T on subject.
// Malformed messages are dropped.
func Subscribe[T any](nc *nats.Conn, subject string, handler func(context.Context, T)) (*nats.Subscription, error) {
	return nc.Subscribe(subject, func(msg *nats.Msg) {
		var v T
		if err := json.Unmarshal(msg.Data, &v); err != nil {
			return
		}
		handler(extract(msg), v)
	})
}

// Request sends req and decodes the reply, waiting at most timeout.
func Request[Req, Resp any](ctx context.Context, nc *nats.Conn, subject string, req Req, timeout time.Duration) (Resp, error) {
	var zero Resp
	msg, err := newMsg(ctx, subject, req)
	if err != nil {
		return zero, err
	}
	reply, err := nc.RequestMsg(msg, timeout)
	if err != nil {
		return zero, err
	}
	var out Resp
	if err := json.Unmarshal(reply.Data, &out); err != nil {
		return zero, err
	}
	return out, nil
}

// Handle serves request/reply on subject within a queue group. A request
// that doesn't decode is answered with onErr's response, as is any error
// from h.
func Handle[Req, Resp any](nc *nats.Conn, subject, queue string, h func(context.Context, Req) (Resp, error), onErr func(error) Resp) (*nats.Subscription, error) {
	return nc.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		if msg.Reply == "" {
			return
		}
		ctx := extract(msg)
		var (
			req  Req
			resp Resp
		)
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			resp = onErr(err)
		} else if resp, err = h(ctx, req); err != nil {
			resp = onErr(err)
		}
		out, err := newMsg(ctx, msg.Reply, resp)
		if err != nil {
			return
		}
		_ = nc.PublishMsg(out)
	})
}
