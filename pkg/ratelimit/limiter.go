// Package ratelimit limita tentativas por chave em janelas fixas,
// com backends Redis e em memória.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

// LimitConfig configura o comportamento do limitador
type LimitConfig struct {
	Key    string        // Chave única para identificar o limite
	Limit  int           // Número máximo de requisições por janela
	Period time.Duration // Duração da janela
}

// Result é a decisão do limitador para uma requisição
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAfter time.Duration
}

// Limiter decide se uma requisição cabe no limite da sua chave
type Limiter interface {
	Allow(ctx context.Context, config LimitConfig) (Result, error)
	Ping(ctx context.Context) error
}

func validate(config LimitConfig) error {
	if config.Limit <= 0 {
		return errors.New("limite deve ser maior que zero")
	}
	if config.Period < time.Second {
		return errors.New("período deve ser de pelo menos um segundo")
	}
	return nil
}

// window devolve o fim da janela fixa corrente e o tempo restante até ele
func window(now time.Time, period time.Duration) (time.Time, time.Duration) {
	periodSeconds := int64(period.Seconds())
	unix := now.Unix()
	expireAt := unix - (unix % periodSeconds) + periodSeconds
	end := time.Unix(expireAt, 0)
	return end, end.Sub(now)
}

func remaining(limit, count int) int {
	if count >= limit {
		return 0
	}
	return limit - count
}
