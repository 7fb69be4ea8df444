package kafkax

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
)

// ReadyCheck dials the first reachable broker.
func ReadyCheck(brokers string) func(context.Context) error {
	list := SplitBrokers(brokers)
	return func(ctx context.Context) error {
		if len(list) == 0 {
			return errors.New("kafka brokers not configured")
		}
		dialer := kafka.Dialer{Timeout: 2 * time.Second}
		var err error
		for _, b := range list {
			var conn *kafka.Conn
			if conn, err = dialer.DialContext(ctx, "tcp", b); err == nil {
				_ = conn.Close()
				return nil
			}
		}
		return err
	}
}
