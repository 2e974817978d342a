// Package nutrition estima as calorias de uma refeição descrita em texto
// consultando a API de linguagem natural do Nutritionix.
package nutrition

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/diillson/calorie-api-go/pkg/config"
	apierrors "github.com/diillson/calorie-api-go/pkg/errors"
	"github.com/diillson/calorie-api-go/pkg/resilience"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const nutrientsPath = "/v2/natural/nutrients"

// Observer recebe o resultado de cada estimativa
type Observer interface {
	EstimatorCalled(outcome string)
}

// Client é o estimador baseado no Nutritionix
type Client struct {
	endpoint   string
	appID      string
	appKey     string
	maxRetries int
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	observer   Observer
	logger     *zap.Logger
	tracer     trace.Tracer
}

// NewClient cria o cliente do Nutritionix; observer pode ser nil
func NewClient(cfg config.EstimatorConfig, breaker *resilience.CircuitBreaker, observer Observer, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		appID:      cfg.AppID,
		appKey:     cfg.AppKey,
		maxRetries: cfg.MaxRetries,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		breaker:  breaker,
		observer: observer,
		logger:   logger,
		tracer:   otel.GetTracerProvider().Tracer("calorie-api.nutrition"),
	}
}

type nutrientsRequest struct {
	Query string `json:"query"`
}

type nutrientsResponse struct {
	Foods []struct {
		FoodName   string  `json:"food_name"`
		NfCalories float64 `json:"nf_calories"`
	} `json:"foods"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// Estimate devolve o total de calorias do texto, arredondado.
// Falhas do serviço viram erros 502 com o status devolvido em details.
func (c *Client) Estimate(ctx context.Context, text string) (int, error) {
	ctx, span := c.tracer.Start(ctx, "Nutritionix.Estimate",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.url", c.endpoint+nutrientsPath)),
	)
	defer span.End()

	var calories int
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		calories, err = c.estimateWithRetry(ctx, text)
		return err
	}, countsAsFailure)

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, resilience.ErrCircuitOpen) {
			c.observe("circuit_open")
			c.logger.Warn("estimador de calorias indisponível, circuito aberto")
			return 0, apierrors.Upstream(http.StatusServiceUnavailable, "Calorie estimator unavailable")
		}
		c.observe("upstream_error")
		return 0, err
	}

	c.observe("success")
	span.SetAttributes(attribute.Int("calories", calories))
	span.SetStatus(codes.Ok, "")
	return calories, nil
}

func (c *Client) estimateWithRetry(ctx context.Context, text string) (int, error) {
	var calories int

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxInterval = 2 * time.Second

	retries := c.maxRetries
	if retries < 0 {
		retries = 0
	}

	attempt := 0
	operation := func() error {
		attempt++
		var err error
		calories, err = c.do(ctx, text)
		if err == nil {
			return nil
		}

		var upstream *apierrors.UpstreamError
		if errors.As(err, &upstream) && upstream.Status < http.StatusInternalServerError {
			return backoff.Permanent(err)
		}

		c.logger.Warn("falha ao consultar o estimador de calorias",
			zap.Int("attempt", attempt),
			zap.Error(err))
		return err
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(retries)), ctx))
	if err == nil {
		return calories, nil
	}

	if _, ok := apierrors.As(err); ok {
		return 0, err
	}
	// falha de transporte, sem resposta do serviço
	return 0, apierrors.Upstream(http.StatusServiceUnavailable, "Calorie estimator unreachable")
}

func (c *Client) do(ctx context.Context, text string) (int, error) {
	body, err := json.Marshal(nutrientsRequest{Query: text})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+nutrientsPath, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-app-id", c.appID)
	req.Header.Set("x-app-key", c.appKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("falha na requisição ao estimador: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("falha ao ler resposta do estimador: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := http.StatusText(resp.StatusCode)
		var errBody errorResponse
		if json.Unmarshal(payload, &errBody) == nil && errBody.Message != "" {
			message = errBody.Message
		}
		return 0, apierrors.Upstream(resp.StatusCode, message)
	}

	var parsed nutrientsResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return 0, apierrors.Upstream(resp.StatusCode, "Invalid calorie estimator response")
	}

	total := 0.0
	for _, food := range parsed.Foods {
		total += food.NfCalories
	}
	return int(math.Round(total)), nil
}

// Breaker expõe o circuit breaker para o health check
func (c *Client) Breaker() *resilience.CircuitBreaker {
	return c.breaker
}

func (c *Client) observe(outcome string) {
	if c.observer != nil {
		c.observer.EstimatorCalled(outcome)
	}
}

// countsAsFailure ignora respostas 4xx, que indicam texto não reconhecido e não indisponibilidade
func countsAsFailure(err error) bool {
	var upstream *apierrors.UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Status >= http.StatusInternalServerError
	}
	return true
}

// Static devolve sempre o mesmo valor, para desenvolvimento local sem credenciais
type Static struct {
	Calories int
}

// Estimate implementa o estimador estático
func (s Static) Estimate(context.Context, string) (int, error) {
	return s.Calories, nil
}
