package mq

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"AttendBot/config"
)

// 提醒事件拓扑：topic exchange，routing key 为 attendance.reminder.<kind>
const (
	ReminderExchange   = "attendance.reminder"
	ReminderQueue      = "attendance.reminder.notify"
	ReminderBindingKey = "attendance.reminder.*"
)

var (
	conn     *amqp.Connection
	connOnce sync.Once
	connErr  error
)

func Init() error {
	connOnce.Do(func() {
		conn, connErr = amqp.Dial(config.Cfg.GetRabbitMQURL())
		if connErr != nil {
			return
		}
		connErr = declareTopology()
	})
	return connErr
}

func Connection() *amqp.Connection {
	return conn
}

// declareTopology 声明 exchange、队列和绑定，重复声明是幂等的
func declareTopology() error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(ReminderExchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", ReminderExchange, err)
	}
	if _, err := ch.QueueDeclare(ReminderQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", ReminderQueue, err)
	}
	if err := ch.QueueBind(ReminderQueue, ReminderBindingKey, ReminderExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", ReminderQueue, err)
	}
	return nil
}

func Close(ctx context.Context) error {
	pubMutex.Lock()
	if publisherCh != nil {
		_ = publisherCh.Close()
		publisherCh = nil
	}
	pubMutex.Unlock()

	if conn == nil || conn.IsClosed() {
		return nil
	}
	return conn.Close()
}
