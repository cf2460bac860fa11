package writer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"

	"github.com/jsphbtst/personal-alpaca-cli/internal/config"
)

func TestBuildSaramaConfig(t *testing.T) {
	sc := buildSaramaConfig(config.KafkaConfig{Timeout: 3 * time.Second})

	if !sc.Producer.Return.Successes {
		t.Error("Return.Successes must be set for a sync producer")
	}
	if sc.Producer.Timeout != 3*time.Second {
		t.Errorf("Timeout = %v, want 3s", sc.Producer.Timeout)
	}
	if sc.Producer.RequiredAcks != sarama.WaitForLocal {
		t.Errorf("RequiredAcks = %v, want %v", sc.Producer.RequiredAcks, sarama.WaitForLocal)
	}
	if err := sc.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestNewKafkaPublisher_NoBrokers(t *testing.T) {
	if _, err := NewKafkaPublisher(config.KafkaConfig{Topic: "quotes"}, nil); err == nil {
		t.Error("expected error without brokers")
	}
}

func TestKafkaPublisher_Consume(t *testing.T) {
	prod := mocks.NewSyncProducer(t, nil)
	at := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)

	prod.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var msg quoteMessage
		if err := json.Unmarshal(val, &msg); err != nil {
			return err
		}
		if msg.Symbol != "AAPL" || msg.Bid != 150 || msg.Ask != 152 || msg.Mid != 151 {
			return fmt.Errorf("unexpected payload %+v", msg)
		}
		if !msg.Time.Equal(at) {
			return fmt.Errorf("time = %v, want %v", msg.Time, at)
		}
		return nil
	})

	p := newKafkaPublisher(prod, "quotes.prices", nil)
	if err := p.Consume(context.Background(), update("AAPL", 150, 152, at)); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestKafkaPublisher_SendFailure(t *testing.T) {
	prod := mocks.NewSyncProducer(t, nil)
	sendErr := errors.New("leader not available")
	prod.ExpectSendMessageAndFail(sendErr)

	p := newKafkaPublisher(prod, "quotes.prices", nil)
	err := p.Consume(context.Background(), update("AAPL", 1, 2, time.Now()))
	if !errors.Is(err, sendErr) {
		t.Errorf("error = %v, want wrapped %v", err, sendErr)
	}
	_ = p.Close()
}
