package gateway

import (
	"time"

	"github.com/noah-isme/gateway-demo/internal/signing"
)

// TimestampLayout is the gateway's datetime format, always rendered in UTC.
const TimestampLayout = "2006-01-02 15:04:05"

// PayTypeOnlinePayment is the fixed pay_type code for hosted payment intents.
const PayTypeOnlinePayment = "802801"

// Demo fallbacks used when the caller leaves customer fields blank.
const (
	DemoCustomerName  = "Demo Customer"
	DemoCustomerPhone = "+85212345678"
	DemoCustomerEmail = "demo@example.com"
)

// Query pagination defaults.
const (
	DefaultQueryPage     = "1"
	DefaultQueryPageSize = "10"
)

// Operation identifies one gateway call.
type Operation string

const (
	OpCustomerCreate      Operation = "customer_create"
	OpPaymentIntentCreate Operation = "payment_intent_create"
	OpTokenIntentCreate   Operation = "token_intent_create"
	OpProductCreate       Operation = "product_create"
	OpSubscriptionCreate  Operation = "subscription_create"
	OpSubscriptionQuery   Operation = "subscription_query"
)

// buildEnv supplies the non-deterministic inputs for field defaults.
type buildEnv struct {
	now     time.Time
	tradeNo func(time.Time) string
}

func (e buildEnv) timestamp() string {
	return e.now.UTC().Format(TimestampLayout)
}

// fieldSpec declares one parameter the gateway recognises for an operation.
// Default, when set, fills the field if the caller left it blank; a required
// field without a default and without a caller value fails validation.
type fieldSpec struct {
	Key      string
	Required bool
	Default  func(buildEnv) string
}

// operationSpec is the complete, enumerated parameter schema of an operation.
type operationSpec struct {
	Op     Operation
	Path   string
	Fields []fieldSpec
}

func constant(v string) func(buildEnv) string {
	return func(buildEnv) string { return v }
}

func nowTimestamp(e buildEnv) string { return e.timestamp() }

func generatedTradeNo(e buildEnv) string { return e.tradeNo(e.now) }

var (
	customerCreateSpec = operationSpec{
		Op:   OpCustomerCreate,
		Path: "/customer/v1/create",
		Fields: []fieldSpec{
			{Key: "name", Required: true, Default: constant(DemoCustomerName)},
			{Key: "phone", Required: true, Default: constant(DemoCustomerPhone)},
			{Key: "email", Required: true, Default: constant(DemoCustomerEmail)},
		},
	}

	paymentIntentCreateSpec = operationSpec{
		Op:   OpPaymentIntentCreate,
		Path: "/payment_element/v1/create_payment_intent",
		Fields: []fieldSpec{
			{Key: "txamt", Required: true},
			{Key: "txcurrcd", Required: true},
			{Key: "pay_type", Required: true, Default: constant(PayTypeOnlinePayment)},
			{Key: "out_trade_no", Required: true, Default: generatedTradeNo},
			{Key: "txdtm", Required: true, Default: nowTimestamp},
			{Key: "customer_id"},
			{Key: "intent_expiry"},
		},
	}

	tokenIntentCreateSpec = operationSpec{
		Op:   OpTokenIntentCreate,
		Path: "/payment_element/v1/create_token_intent",
		Fields: []fieldSpec{
			{Key: "customer_id", Required: true},
			{Key: "txdtm", Required: true, Default: nowTimestamp},
			{Key: "intent_expiry"},
		},
	}

	productCreateSpec = operationSpec{
		Op:   OpProductCreate,
		Path: "/product/v1/create",
		Fields: []fieldSpec{
			{Key: "name", Required: true},
			{Key: "amount", Required: true},
			{Key: "currency", Required: true},
			{Key: "type"},
			{Key: "description"},
			{Key: "interval"},
			{Key: "interval_count"},
			{Key: "usage_type"},
		},
	}

	subscriptionCreateSpec = operationSpec{
		Op:   OpSubscriptionCreate,
		Path: "/subscription/v1/create",
		Fields: []fieldSpec{
			{Key: "customer_id", Required: true},
			{Key: "token_id", Required: true},
			{Key: "products", Required: true},
			{Key: "total_billing_cycles"},
			{Key: "start_time", Required: true, Default: nowTimestamp},
		},
	}

	subscriptionQuerySpec = operationSpec{
		Op:   OpSubscriptionQuery,
		Path: "/subscription/v1/query",
		Fields: []fieldSpec{
			{Key: "subscription_id"},
			{Key: "customer_id"},
			{Key: "state"},
			{Key: "page", Required: true, Default: constant(DefaultQueryPage)},
			{Key: "page_size", Required: true, Default: constant(DefaultQueryPageSize)},
		},
	}
)

// build projects caller values onto the declared fields. Undeclared keys are
// dropped here, before anything is signed.
func (s operationSpec) build(values map[string]string, env buildEnv) (signing.Params, error) {
	params := make(signing.Params, len(s.Fields))
	for _, f := range s.Fields {
		v := values[f.Key]
		if v == "" && f.Default != nil {
			v = f.Default(env)
		}
		if v == "" {
			if f.Required {
				return nil, validationError(f.Key, "is required")
			}
			continue
		}
		params[f.Key] = v
	}
	return params, nil
}
