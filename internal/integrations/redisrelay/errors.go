package redisrelay

import "errors"

var (
	// ErrSubscribe возвращается, когда не удалось подписаться на каналы Redis
	ErrSubscribe = errors.New("redisrelay: failed to subscribe")

	// ErrInvalidMessage возвращается для сообщения, которое не удалось разобрать
	ErrInvalidMessage = errors.New("redisrelay: invalid message")
)
