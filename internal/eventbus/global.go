package eventbus

import "context"

var globalBus EventBus

// Init устанавливает глобальную шину.
func Init(bus EventBus) { globalBus = bus }

// Publish отправляет событие в глобальную шину, если она инициализирована.
func Publish(ctx context.Context, ev *Envelope) error {
	if globalBus == nil {
		return nil
	}
	return globalBus.Publish(ctx, ev)
}

// PublishEvent упаковывает полезную нагрузку в Envelope и отправляет в глобальную шину.
func PublishEvent(ctx context.Context, eventType, source string, payload interface{}) error {
	if globalBus == nil {
		return nil
	}
	ev, err := NewEnvelope(eventType, source, payload)
	if err != nil {
		return err
	}
	return globalBus.Publish(ctx, ev)
}
