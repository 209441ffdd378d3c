package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Provider клиент внешнего кошелька. Библиотека сама деньги не двигает:
// только запрашивает баланс, холд и перевод, ретраев здесь нет — повтор
// денежной операции без идемпотентного ключа небезопасен, политика повторов
// остаётся за вызывающим.
type Provider interface {
	CheckBalance(ctx context.Context, userID string) (balance float64, err error)
	HoldCoins(ctx context.Context, userID string, amount float64) error
	TransferCoins(ctx context.Context, fromUserID, toUserID string, amount float64) error
}

// PaymentServiceError ошибка внешнего платёжного сервиса, не фатальная для
// процесса; причина отдаётся вызывающему как есть.
type PaymentServiceError struct {
	Op     string
	Reason string
	Err    error
}

func (e *PaymentServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("платёжный сервис: %s: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("платёжный сервис: %s: %s", e.Op, e.Reason)
}

func (e *PaymentServiceError) Unwrap() error {
	return e.Err
}

func NewClient(baseUrl, apiKey string, timeout time.Duration) Provider {
	return &impl{
		baseUrl: baseUrl,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type impl struct {
	baseUrl string
	apiKey  string
	client  *http.Client
}

type balanceResponse struct {
	Balance float64 `json:"balance"`
}

type holdRequest struct {
	UserID string  `json:"user_id"`
	Amount float64 `json:"amount"`
}

type transferRequest struct {
	FromUserID string  `json:"from_user_id"`
	ToUserID   string  `json:"to_user_id"`
	Amount     float64 `json:"amount"`
}

func (i impl) CheckBalance(ctx context.Context, userID string) (float64, error) {
	body, err := i.call(ctx, http.MethodGet, fmt.Sprintf("wallet/%s/balance", userID), nil)
	if err != nil {
		return 0, &PaymentServiceError{Op: "check_balance", Reason: "запрос баланса не выполнен", Err: err}
	}
	resp := balanceResponse{}
	if err = json.Unmarshal(body, &resp); err != nil {
		return 0, &PaymentServiceError{Op: "check_balance", Reason: "некорректный ответ сервиса", Err: err}
	}
	return resp.Balance, nil
}

func (i impl) HoldCoins(ctx context.Context, userID string, amount float64) error {
	req := holdRequest{
		UserID: userID,
		Amount: amount,
	}
	_, err := i.call(ctx, http.MethodPost, "wallet/hold", req)
	if err != nil {
		return &PaymentServiceError{Op: "hold_coins", Reason: "холд средств не выполнен", Err: err}
	}
	return nil
}

func (i impl) TransferCoins(ctx context.Context, fromUserID, toUserID string, amount float64) error {
	req := transferRequest{
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Amount:     amount,
	}
	_, err := i.call(ctx, http.MethodPost, "wallet/transfer", req)
	if err != nil {
		return &PaymentServiceError{Op: "transfer_coins", Reason: "перевод средств не выполнен", Err: err}
	}
	return nil
}

func (i impl) call(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrap(err, "ошибка сериализации запроса")
		}
		reqBody = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, i.baseUrl+path, reqBody)
	if err != nil {
		return nil, errors.Wrap(err, "ошибка создания запроса")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+i.apiKey)

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "ошибка вызова сервиса")
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "ошибка чтения ответа")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.WithField("status", resp.StatusCode).
			WithField("path", path).
			Error("платёжный сервис вернул ошибку")
		return nil, errors.Errorf("статус ответа %v: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
