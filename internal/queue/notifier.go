package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// StartTicketNotifier connects to the broker, declares the ticket.issued
// queue (durable), and starts consuming ticket events. Each event is
// appended to logs/booking.log in a single-line, human-friendly format,
// standing in for an e-mail or SMS notification. The function runs a
// reconnect loop: it keeps running through broker restarts and logs any
// processing errors while rejecting the offending message so the server
// continues operating.
func StartTicketNotifier(url string) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("ticket-notifier: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := notifyLoop(conn); err != nil {
			log.Printf("ticket-notifier: consume loop ended: %v; reconnecting", err)
			_ = conn.Close()
			time.Sleep(2 * time.Second)
			continue
		}
	}
}

func notifyLoop(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("ticket-notifier: set QoS failed: %v", err)
	}

	if _, err := ch.QueueDeclare(NotifyQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(NotifyQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := writeNotification(d.Body); err != nil {
			log.Printf("ticket-notifier: handle message failed: %v", err)
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func writeNotification(body []byte) error {
	var ev TicketIssuedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	// Ensure logs directory exists
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	fpath := filepath.Join("logs", "booking.log")
	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	seats := "[]"
	if len(ev.SeatLabels) > 0 {
		seats = fmt.Sprintf("[%s]", strings.Join(ev.SeatLabels, ","))
	}

	line := fmt.Sprintf("[%s] Ticket issued | ticket_id=%d | customer_id=%d | show_id=%d | booking_ref=%s | seats=%s\n",
		ev.IssuedAt, ev.TicketID, ev.CustomerID, ev.ShowID, ev.BookingRef, seats)

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
