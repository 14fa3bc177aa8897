package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"closed", amqp091.ErrClosed, true},
		{"wrapped closed", fmt.Errorf("publish: %w", amqp091.ErrClosed), true},
		{"channel error", &amqp091.Error{Code: amqp091.ChannelError, Reason: "channel gone"}, true},
		{"access refused", &amqp091.Error{Code: amqp091.AccessRefused, Reason: "no"}, false},
		{"plain error", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.want {
				t.Errorf("isConnectionError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClient_PublishRetriesDialAndGivesUp(t *testing.T) {
	var dials int32
	c := &Client{
		url:          "amqp://unreachable",
		exchangeName: "household",
		queueName:    "household.events",
		dial: func(string) (*amqp091.Connection, error) {
			atomic.AddInt32(&dials, 1)
			return nil, amqp091.ErrClosed
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := c.PublishImportCompleted(ctx, ImportCompletedMessage{ImportID: "imp-1"})
	if err == nil {
		t.Fatal("expected publish to fail without a broker")
	}
	if got := atomic.LoadInt32(&dials); got != publishRetries+1 {
		t.Errorf("dial attempts = %d, want %d", got, publishRetries+1)
	}
}

func TestClient_CloseWithoutConnection(t *testing.T) {
	c := &Client{}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestImportCompletedMessage_JSON(t *testing.T) {
	original := &ImportCompletedMessage{
		ImportID:     "imp-42",
		Source:       "data.xlsx",
		Families:     3,
		Transactions: 12,
		SkippedRows:  1,
		Timestamp:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	data, err := original.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	var decoded ImportCompletedMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != *original {
		t.Errorf("decoded = %+v, want %+v", decoded, original)
	}
}
