// Package gateway talks to a Paystack-compatible payment gateway.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/imroc/req/v3"
)

var (
	ErrUnknownReference = errors.New("unknown transaction reference")
	ErrRejected         = errors.New("gateway rejected the request")
	ErrNotConfigured    = errors.New("payment gateway is not configured")
)

// Transaction is a verified gateway payment. Amount is in kobo.
type Transaction struct {
	ID        int64     `json:"id"`
	Reference string    `json:"reference"`
	Status    string    `json:"status"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	PaidAt    time.Time `json:"paid_at"`
	Channel   string    `json:"channel"`
	Customer  struct {
		Email string `json:"email"`
	} `json:"customer"`
}

func (t Transaction) Succeeded() bool {
	return t.Status == "success"
}

type Account struct {
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
	BankID        int64  `json:"bank_id"`
}

// envelope is the shape of every gateway response.
type envelope[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type Client struct {
	http *req.Client
	key  string
}

func New(baseURL, secretKey string) *Client {
	c := req.C().
		SetBaseURL(baseURL).
		SetCommonBearerAuthToken(secretKey).
		SetCommonHeader("Accept", "application/json").
		SetUserAgent("elitehub-web").
		SetTimeout(15 * time.Second)
	return &Client{http: c, key: secretKey}
}

// VerifyTransaction fetches the state of reference from the gateway.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*Transaction, error) {
	if c.key == "" {
		return nil, ErrNotConfigured
	}
	if reference == "" {
		return nil, ErrUnknownReference
	}

	var out envelope[Transaction]
	var fail envelope[any]
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("reference", reference).
		SetSuccessResult(&out).
		SetErrorResult(&fail).
		Get("/transaction/verify/{reference}")
	if err := check(resp, err, out.Status, out.Message, fail.Message); err != nil {
		return nil, fmt.Errorf("verify %s: %w", reference, err)
	}
	return &out.Data, nil
}

// ResolveBank looks up the holder name of a bank account.
func (c *Client) ResolveBank(ctx context.Context, accountNumber, bankCode string) (*Account, error) {
	if c.key == "" {
		return nil, ErrNotConfigured
	}

	var out envelope[Account]
	var fail envelope[any]
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("account_number", accountNumber).
		SetQueryParam("bank_code", bankCode).
		SetSuccessResult(&out).
		SetErrorResult(&fail).
		Get("/bank/resolve")
	if err := check(resp, err, out.Status, out.Message, fail.Message); err != nil {
		return nil, fmt.Errorf("resolve account %s: %w", accountNumber, err)
	}
	return &out.Data, nil
}

func check(resp *req.Response, err error, ok bool, msg, failMsg string) error {
	if err != nil {
		return err
	}
	if resp.IsErrorState() {
		if resp.GetStatusCode() == http.StatusNotFound {
			return ErrUnknownReference
		}
		if failMsg == "" {
			failMsg = resp.Status
		}
		return fmt.Errorf("%s: %w", failMsg, ErrRejected)
	}
	if !resp.IsSuccessState() {
		return fmt.Errorf("unexpected status %s: %w", resp.Status, ErrRejected)
	}
	if !ok {
		return fmt.Errorf("%s: %w", msg, ErrRejected)
	}
	return nil
}
