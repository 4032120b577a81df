// Package gateway содержит адаптер платёжного шлюза. Сервисный слой работает
// с нейтральными типами пакета и не знает о конкретном провайдере.
package gateway

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/paymentintent"
	"github.com/stripe/stripe-go/v79/webhook"
)

var ErrInvalidSignature = errors.New("gateway: недействительная подпись webhook")

// EventKind — тип события шлюза. Неизвестные события не ошибка:
// шлюз шлёт много типов, нас интересуют только платёжные.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventPaymentSucceeded
	EventPaymentFailed
)

// Event — нормализованное событие webhook.
type Event struct {
	Kind          EventKind
	GatewayID     string
	FailureReason string
}

// IntentParams — параметры создания платёжного намерения.
type IntentParams struct {
	Amount      decimal.Decimal
	Currency    string
	ContractID  string
	EscrowID    string
	BuyerID     string
	FarmerID    string
	Description string
}

// Intent — созданное платёжное намерение.
type Intent struct {
	GatewayID    string
	ClientSecret string
	Status       string
}

// StripeClient — клиент Stripe. Ключи приходят из конфигурации.
type StripeClient struct {
	webhookSecret string
}

// NewStripeClient настраивает глобальный ключ SDK и возвращает клиента.
func NewStripeClient(secretKey, webhookSecret string) *StripeClient {
	stripe.Key = secretKey
	return &StripeClient{webhookSecret: webhookSecret}
}

// CreateIntent создаёт PaymentIntent. Сумма передаётся в минорных единицах.
func (c *StripeClient) CreateIntent(params IntentParams) (*Intent, error) {
	currency := params.Currency
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	amountMinor := params.Amount.Mul(decimal.NewFromInt(100)).IntPart()

	piParams := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(amountMinor),
		Currency:    stripe.String(currency),
		Description: stripe.String(params.Description),
	}
	piParams.AddMetadata("contract_id", params.ContractID)
	piParams.AddMetadata("escrow_id", params.EscrowID)
	piParams.AddMetadata("buyer_id", params.BuyerID)
	piParams.AddMetadata("farmer_id", params.FarmerID)

	pi, err := paymentintent.New(piParams)
	if err != nil {
		return nil, fmt.Errorf("gateway: создание платёжного намерения %w", err)
	}

	return &Intent{
		GatewayID:    pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
	}, nil
}

// ParseEvent проверяет подпись webhook и нормализует событие.
// События, не касающиеся платежей, возвращаются как EventUnknown.
func (c *StripeClient) ParseEvent(payload []byte, signature string) (*Event, error) {
	stripeEvent, err := webhook.ConstructEventWithOptions(payload, signature, c.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, ErrInvalidSignature
	}

	switch stripeEvent.Type {
	case "payment_intent.succeeded":
		var pi stripe.PaymentIntent
		if err := unmarshalObject(stripeEvent, &pi); err != nil {
			return nil, err
		}
		return &Event{Kind: EventPaymentSucceeded, GatewayID: pi.ID}, nil
	case "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := unmarshalObject(stripeEvent, &pi); err != nil {
			return nil, err
		}
		reason := "платёж отклонён шлюзом"
		if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
			reason = pi.LastPaymentError.Msg
		}
		return &Event{Kind: EventPaymentFailed, GatewayID: pi.ID, FailureReason: reason}, nil
	default:
		return &Event{Kind: EventUnknown}, nil
	}
}

func unmarshalObject(event stripe.Event, dst any) error {
	if err := json.Unmarshal(event.Data.Raw, dst); err != nil {
		return fmt.Errorf("gateway: разбор события %w", err)
	}
	return nil
}
