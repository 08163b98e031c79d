package feed

import (
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nkeys"
)

// NatsSource receives snapshot batches published on a subject.
// Each published message holds one full snapshot and becomes one batch.
type NatsSource struct {
	url      string
	subject  string
	queue    string
	nkeyUser string
	nkeySeed string
	con      *nats.Conn
	sub      *nats.Subscription
}

func NewNatsSource(url, subject, queue string) *NatsSource {
	return &NatsSource{url: url, subject: subject, queue: queue}
}

func (s *NatsSource) SetNKeys(user, seed string) {
	s.nkeyUser = user
	s.nkeySeed = seed
}

func (s *NatsSource) sigHandler(b []byte) ([]byte, error) {
	sk, err := nkeys.FromSeed([]byte(s.nkeySeed))
	if err != nil {
		return nil, err
	}
	return sk.Sign(b)
}

// Receive subscribes and delivers stamped batches on the given channel
// until Close is called.
func (s *NatsSource) Receive(batches chan []Event) error {
	opts := []nats.Option{
		nats.ErrorHandler(errorHandler),
		nats.DisconnectHandler(disconnectHandler),
		nats.ReconnectHandler(reconnectHandler),
		nats.ClosedHandler(closedHandler),
	}
	if len(s.nkeyUser) > 0 && len(s.nkeySeed) > 0 {
		opts = append(opts, nats.Nkey(s.nkeyUser, s.sigHandler))
	}

	var err error
	s.con, err = nats.Connect(s.url, opts...)
	if err != nil {
		return err
	}

	s.sub, err = s.con.QueueSubscribe(s.subject, s.queue, func(msg *nats.Msg) {
		received := time.Now().UTC()
		events, err := Events(msg.Data)
		if err != nil {
			slog.Error("invalid snapshot received", "subject", msg.Subject, "err", err.Error())
			return
		}
		batches <- Stamp(events, received)
	})
	if err != nil {
		return err
	}

	// set no limits for the snapshot subscription, just in case
	return s.sub.SetPendingLimits(-1, -1)
}

func (s *NatsSource) Close() {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	if s.con != nil {
		s.con.Close()
	}
}

// error handler helper functions

func errorHandler(nc *nats.Conn, sub *nats.Subscription, err error) {
	slog.Error("nats error", "err", err.Error())

	if err == nats.ErrSlowConsumer {
		pendingMsgs, pendingBytes, err := sub.Pending()
		if err != nil {
			slog.Error("failed to get pending messages", "err", err.Error())
			return
		}
		droppedMsgs, err := sub.Dropped()
		if err != nil {
			slog.Error("failed to get dropped messages", "err", err.Error())
			return
		}
		slog.Error("falling behind with pending messages",
			"droppedMsgs", droppedMsgs,
			"pendingMsgs", pendingMsgs,
			"pendingBytes", pendingBytes,
			"subject", sub.Subject,
		)
	}
}

func disconnectHandler(nc *nats.Conn) {
	slog.Debug("nats disconnected", "lastError", nc.LastError())
}

func reconnectHandler(nc *nats.Conn) {
	slog.Debug("nats reconnected", "url", nc.ConnectedUrl())
}

func closedHandler(nc *nats.Conn) {
	slog.Debug("nats connection closed", "reason", nc.LastError())
}
