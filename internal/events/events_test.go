package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"

	"github.com/erazemk/izposoja/internal/model"
)

func TestNewBookingEvent(t *testing.T) {
	itemID := int64(7)
	b := &model.Booking{ID: 3, OwnerID: 2, ItemID: &itemID, Status: model.BookingStatusActive}
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.FixedZone("X", 3600))

	e := NewBookingEvent(BookingCreated, b, at)
	if e.Type != BookingCreated || e.BookingID != 3 || e.OwnerID != 2 || e.ItemID != 7 {
		t.Errorf("unexpected event %+v", e)
	}
	if e.At.Location() != time.UTC {
		t.Errorf("expected UTC timestamp, got %v", e.At.Location())
	}

	b.ItemID = nil
	if e := NewBookingEvent(BookingDeleted, b, at); e.ItemID != 0 {
		t.Errorf("expected zero item id for detached booking, got %d", e.ItemID)
	}
}

func TestKafkaPublish(t *testing.T) {
	producer := mocks.NewSyncProducer(t, NewKafkaConfig())
	defer producer.Close()

	itemID := int64(42)
	e := NewBookingEvent(BookingCompleted, &model.Booking{ID: 1, OwnerID: 1, ItemID: &itemID}, time.Now())

	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "bookings" {
			return errors.New("wrong topic " + msg.Topic)
		}
		key, _ := msg.Key.Encode()
		if string(key) != "42" {
			return errors.New("wrong key " + string(key))
		}
		value, _ := msg.Value.Encode()
		var got Event
		if err := json.Unmarshal(value, &got); err != nil {
			return err
		}
		if got.Type != BookingCompleted || got.BookingID != 1 {
			return errors.New("wrong payload")
		}
		return nil
	})

	k := NewKafkaWithProducer(producer, "bookings")
	if err := k.Publish(context.Background(), e); err != nil {
		t.Fatalf("Publish: %v", err)
	}
}

func TestKafkaPublishFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, NewKafkaConfig())
	defer producer.Close()

	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	k := NewKafkaWithProducer(producer, "bookings")
	err := k.Publish(context.Background(), Event{Type: BookingCreated})
	if !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Fatalf("expected wrapped broker error, got %v", err)
	}
}

func TestNoop(t *testing.T) {
	var p Publisher = Noop{}
	if err := p.Publish(context.Background(), Event{}); err != nil {
		t.Errorf("Noop.Publish: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Noop.Close: %v", err)
	}
}

func TestNewKafkaRequiresBrokers(t *testing.T) {
	if _, err := NewKafka(nil, "bookings"); err == nil {
		t.Fatal("expected error without brokers")
	}
}
