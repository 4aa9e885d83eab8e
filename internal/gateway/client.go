// Package gateway builds, signs and sends requests to the payment gateway's
// REST API and maps its responses into stable result types.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/gateway-demo/internal/obs"
	"github.com/noah-isme/gateway-demo/internal/resilience"
	"github.com/noah-isme/gateway-demo/internal/signing"
)

const maxResponseBytes = 1 << 20

// Config configures a Client. AppCode, Secret and Algorithm are defaults that
// per-call credentials override field by field.
type Config struct {
	BaseURL    string
	AppCode    string
	Secret     string
	Algorithm  signing.Algorithm
	Timeout    time.Duration
	HTTPClient *http.Client
	Breaker    *resilience.Breaker
	Logger     zerolog.Logger
	Now        func() time.Time
	TradeNo    func(time.Time) string
}

// Client talks to the payment gateway. It holds no per-call state and is safe
// for concurrent use.
type Client struct {
	baseURL  string
	defaults signing.Credentials
	http     resilience.HTTPClient
	validate *validator.Validate
	logger   zerolog.Logger
	now      func() time.Time
	tradeNo  func(time.Time) string
}

// NewClient validates cfg and returns a ready Client.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("gateway: base url is required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("gateway: invalid base url: %w", err)
	}
	algo, err := signing.ParseAlgorithm(string(cfg.Algorithm), signing.SHA256)
	if err != nil {
		return nil, fmt.Errorf("gateway: %w", err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = NewHTTPClient()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	tradeNo := cfg.TradeNo
	if tradeNo == nil {
		tradeNo = NewTradeNo
	}
	return &Client{
		baseURL: base,
		defaults: signing.Credentials{
			AppCode:   strings.TrimSpace(cfg.AppCode),
			Secret:    cfg.Secret,
			Algorithm: algo,
		},
		http:     resilience.HTTPClient{Client: httpClient, Breaker: cfg.Breaker, Timeout: timeout},
		validate: newValidator(),
		logger:   cfg.Logger,
		now:      now,
		tradeNo:  tradeNo,
	}, nil
}

// NewHTTPClient returns an HTTP client whose transport emits client spans.
// Timeouts are applied per call, not on the client.
func NewHTTPClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 16
	return &http.Client{Transport: otelhttp.NewTransport(transport)}
}

// BaseURL reports the gateway endpoint the client targets.
func (c *Client) BaseURL() string { return c.baseURL }

// DefaultAlgorithm reports the digest used when callers do not choose one.
func (c *Client) DefaultAlgorithm() signing.Algorithm { return c.defaults.Algorithm }

// Credentials merges per-call credentials over the configured defaults.
func (c *Client) Credentials(override signing.Credentials) signing.Credentials {
	out := c.defaults
	if v := strings.TrimSpace(override.AppCode); v != "" {
		out.AppCode = v
	}
	if override.Secret != "" {
		out.Secret = override.Secret
	}
	if strings.TrimSpace(string(override.Algorithm)) != "" {
		out.Algorithm = override.Algorithm
	}
	return out
}

// Sign canonicalises and signs an arbitrary parameter set without sending it.
func (c *Client) Sign(params signing.Params, creds signing.Credentials) (signing.Result, error) {
	res, err := signing.Generate(params, c.Credentials(creds))
	if err != nil {
		return signing.Result{}, classifySigning(err)
	}
	obs.ObserveSignature(res.Headers.SignatureType)
	return res, nil
}

// CreateCustomer registers a customer. Blank fields use demo defaults.
func (c *Client) CreateCustomer(ctx context.Context, creds signing.Credentials, req CustomerRequest) (Customer, error) {
	if err := validateRequest(c.validate, req); err != nil {
		return Customer{}, err
	}
	ex, err := c.execute(ctx, customerCreateSpec, req.values(), creds)
	if err != nil {
		return Customer{}, err
	}
	return mapCustomer(ex.doc, ex.raw, ex.sent, ex.at), nil
}

// CreatePaymentIntent opens a one-time payment intent.
func (c *Client) CreatePaymentIntent(ctx context.Context, creds signing.Credentials, req PaymentIntentRequest) (PaymentIntent, error) {
	if err := validateRequest(c.validate, req); err != nil {
		return PaymentIntent{}, err
	}
	ex, err := c.execute(ctx, paymentIntentCreateSpec, req.values(), creds)
	if err != nil {
		return PaymentIntent{}, err
	}
	return mapPaymentIntent(ex.doc, ex.raw, ex.sent), nil
}

// CreateTokenIntent opens a card tokenization intent for a customer.
func (c *Client) CreateTokenIntent(ctx context.Context, creds signing.Credentials, req TokenIntentRequest) (TokenIntent, error) {
	if err := validateRequest(c.validate, req); err != nil {
		return TokenIntent{}, err
	}
	ex, err := c.execute(ctx, tokenIntentCreateSpec, req.values(), creds)
	if err != nil {
		return TokenIntent{}, err
	}
	return mapTokenIntent(ex.doc, ex.raw, ex.sent), nil
}

// CreateProduct registers a product.
func (c *Client) CreateProduct(ctx context.Context, creds signing.Credentials, req ProductRequest) (Product, error) {
	if err := validateRequest(c.validate, req); err != nil {
		return Product{}, err
	}
	ex, err := c.execute(ctx, productCreateSpec, req.values(), creds)
	if err != nil {
		return Product{}, err
	}
	return mapProduct(ex.doc, ex.raw, ex.sent), nil
}

// CreateSubscription subscribes a customer to the listed products.
func (c *Client) CreateSubscription(ctx context.Context, creds signing.Credentials, req SubscriptionRequest) (Subscription, error) {
	if err := validateRequest(c.validate, req); err != nil {
		return Subscription{}, err
	}
	values, err := req.values()
	if err != nil {
		return Subscription{}, &Error{Kind: KindValidation, Field: "products", Message: "cannot be encoded", Err: err}
	}
	ex, err := c.execute(ctx, subscriptionCreateSpec, values, creds)
	if err != nil {
		return Subscription{}, err
	}
	return mapSubscription(ex.doc, ex.raw, ex.sent, req.Products), nil
}

// QuerySubscriptions lists subscriptions matching the filters.
func (c *Client) QuerySubscriptions(ctx context.Context, creds signing.Credentials, q SubscriptionQuery) (SubscriptionPage, error) {
	if err := validateRequest(c.validate, q); err != nil {
		return SubscriptionPage{}, err
	}
	ex, err := c.execute(ctx, subscriptionQuerySpec, q.values(), creds)
	if err != nil {
		return SubscriptionPage{}, err
	}
	return mapSubscriptionPage(ex.doc, ex.raw, ex.sent), nil
}

// prepared is a fully built, signed request that has not been sent.
type prepared struct {
	Op      Operation
	URL     string
	Params  signing.Params
	Signed  signing.Result
	Body    string
	Headers http.Header
}

// prepare builds the parameter set for spec, signs it and encodes the body.
func (c *Client) prepare(spec operationSpec, values map[string]string, creds signing.Credentials, at time.Time) (prepared, error) {
	params, err := spec.build(values, buildEnv{now: at, tradeNo: c.tradeNo})
	if err != nil {
		return prepared{}, err
	}
	signed, err := c.Sign(params, creds)
	if err != nil {
		return prepared{}, err
	}
	form := make(url.Values, len(params))
	for k, v := range params {
		form.Set(k, v)
	}
	headers := make(http.Header, 5)
	for k, v := range signed.Headers.Map() {
		headers.Set(k, v)
	}
	headers.Set("Accept", "application/json")
	return prepared{
		Op:      spec.Op,
		URL:     c.baseURL + spec.Path,
		Params:  params,
		Signed:  signed,
		Body:    form.Encode(),
		Headers: headers,
	}, nil
}

type exchange struct {
	doc  gjson.Result
	raw  []byte
	sent signing.Params
	at   time.Time
}

// execute runs one gateway round trip for spec and applies the shared
// response checks. Failures are always *Error.
func (c *Client) execute(ctx context.Context, spec operationSpec, values map[string]string, creds signing.Credentials) (ex exchange, err error) {
	ctx, span := otel.Tracer("gateway.Client").Start(ctx, "Gateway."+string(spec.Op))
	defer span.End()

	at := c.now()
	start := time.Now()
	status := 0
	result := "error"
	defer func() {
		elapsed := obs.DurationMillis(time.Since(start))
		var gerr *Error
		if errors.As(err, &gerr) {
			result = string(gerr.Kind)
		}
		obs.ObserveGatewayCall(string(spec.Op), result, elapsed)
		span.SetAttributes(
			attribute.String("gateway.operation", string(spec.Op)),
			attribute.String("gateway.result", result),
			attribute.Int("http.status_code", status),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, result)
		}
		evt := c.logFor(ctx).Info()
		if err != nil {
			evt = c.logFor(ctx).Warn().Err(err)
		}
		if gerr != nil && gerr.Code != "" {
			evt = evt.Str("response_code", gerr.Code)
		}
		evt.Str("operation", string(spec.Op)).
			Str("result", result).
			Int("status", status).
			Float64("duration_ms", elapsed).
			Msg("gateway_call")
	}()

	prep, err := c.prepare(spec, values, creds, at)
	if err != nil {
		return exchange{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, prep.URL, strings.NewReader(prep.Body))
	if err != nil {
		return exchange{}, &Error{Kind: KindTransport, Message: "build request", Err: err}
	}
	req.Header = prep.Headers

	resp, cancel, err := c.http.Do(ctx, req)
	if err != nil {
		return exchange{}, &Error{Kind: KindTransport, Message: transportMessage(err), Err: err}
	}
	defer cancel()
	defer func() { _ = resp.Body.Close() }()
	status = resp.StatusCode

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return exchange{}, &Error{Kind: KindTransport, Status: status, Message: "read gateway response", Err: err}
	}
	doc, err := checkResponse(status, raw)
	if err != nil {
		return exchange{}, err
	}
	result = "success"
	return exchange{doc: doc, raw: raw, sent: prep.Params, at: at}, nil
}

func transportMessage(err error) string {
	switch {
	case errors.Is(err, resilience.ErrOpenCircuit):
		return "gateway temporarily unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return "gateway request timed out"
	case errors.Is(err, context.Canceled):
		return "gateway request canceled"
	default:
		return "gateway unreachable"
	}
}

func (c *Client) logFor(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &c.logger
}
