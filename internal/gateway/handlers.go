package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/gateway-demo/internal/common"
	"github.com/noah-isme/gateway-demo/internal/signing"
)

// Handler exposes the gateway operations over HTTP.
type Handler struct {
	Client *Client
	Env    string
}

// NewHandler constructs a Handler bound to client.
func NewHandler(client *Client, environment string) *Handler {
	return &Handler{Client: client, Env: environment}
}

// Routes mounts the demo API on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/environment", h.Environment)
	r.Post("/signature", h.Signature)
	r.Post("/customers", h.CreateCustomer)
	r.Post("/payment-intents", h.CreatePaymentIntent)
	r.Post("/token-intents", h.CreateTokenIntent)
	r.Post("/products", h.CreateProduct)
	r.Post("/subscriptions", h.CreateSubscription)
	r.Post("/subscriptions/query", h.QuerySubscriptions)
}

// credentialsBody lets each request override the configured merchant
// credentials. Blank values fall back to configuration.
type credentialsBody struct {
	AppCode       string `json:"appcode"`
	Secret        string `json:"secret"`
	SignatureType string `json:"signatureType"`
}

func (c credentialsBody) credentials() signing.Credentials {
	return signing.Credentials{
		AppCode:   c.AppCode,
		Secret:    c.Secret,
		Algorithm: signing.Algorithm(c.SignatureType),
	}
}

// Environment reports which gateway environment the server targets.
func (h *Handler) Environment(w http.ResponseWriter, r *http.Request) {
	common.Success(w, http.StatusOK, map[string]any{
		"environment":   h.Env,
		"baseUrl":       h.Client.BaseURL(),
		"signatureType": string(h.Client.DefaultAlgorithm()),
	})
}

// Signature canonicalises and signs an arbitrary flat parameter object.
func (h *Handler) Signature(w http.ResponseWriter, r *http.Request) {
	var body struct {
		credentialsBody
		Params map[string]any `json:"params"`
	}
	if !decode(w, r, &body) {
		return
	}
	params, err := signing.ParamsFromValues(body.Params)
	if err != nil {
		writeError(w, classifySigning(err))
		return
	}
	res, err := h.Client.Sign(params, body.credentials())
	if err != nil {
		writeError(w, err)
		return
	}
	common.Success(w, http.StatusOK, map[string]any{
		"signature": res.Signature,
		"headers":   res.Headers,
		"canonical": res.Canonical,
	})
}

func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		credentialsBody
		CustomerRequest
	}
	if !decode(w, r, &body) {
		return
	}
	out, err := h.Client.CreateCustomer(r.Context(), body.credentials(), body.CustomerRequest)
	if err != nil {
		writeError(w, err)
		return
	}
	common.Success(w, http.StatusOK, map[string]any{"customer": out})
}

func (h *Handler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var body struct {
		credentialsBody
		PaymentIntentRequest
	}
	if !decode(w, r, &body) {
		return
	}
	out, err := h.Client.CreatePaymentIntent(r.Context(), body.credentials(), body.PaymentIntentRequest)
	if err != nil {
		writeError(w, err)
		return
	}
	common.Success(w, http.StatusOK, map[string]any{"paymentIntent": out})
}

func (h *Handler) CreateTokenIntent(w http.ResponseWriter, r *http.Request) {
	var body struct {
		credentialsBody
		TokenIntentRequest
	}
	if !decode(w, r, &body) {
		return
	}
	out, err := h.Client.CreateTokenIntent(r.Context(), body.credentials(), body.TokenIntentRequest)
	if err != nil {
		writeError(w, err)
		return
	}
	common.Success(w, http.StatusOK, map[string]any{"tokenIntent": out})
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var body struct {
		credentialsBody
		ProductRequest
	}
	if !decode(w, r, &body) {
		return
	}
	out, err := h.Client.CreateProduct(r.Context(), body.credentials(), body.ProductRequest)
	if err != nil {
		writeError(w, err)
		return
	}
	common.Success(w, http.StatusOK, map[string]any{"product": out})
}

func (h *Handler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	var body struct {
		credentialsBody
		SubscriptionRequest
	}
	if !decode(w, r, &body) {
		return
	}
	out, err := h.Client.CreateSubscription(r.Context(), body.credentials(), body.SubscriptionRequest)
	if err != nil {
		writeError(w, err)
		return
	}
	common.Success(w, http.StatusOK, map[string]any{"subscription": out})
}

func (h *Handler) QuerySubscriptions(w http.ResponseWriter, r *http.Request) {
	var body struct {
		credentialsBody
		SubscriptionQuery
	}
	if !decode(w, r, &body) {
		return
	}
	out, err := h.Client.QuerySubscriptions(r.Context(), body.credentials(), body.SubscriptionQuery)
	if err != nil {
		writeError(w, err)
		return
	}
	common.Success(w, http.StatusOK, map[string]any{"result": out})
}

// decode reads a JSON object body. An empty body decodes as {}.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			common.Failure(w, http.StatusRequestEntityTooLarge, "request body too large", errorDetails(&Error{Kind: KindValidation, Field: "body"}))
			return false
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			writeError(w, &Error{Kind: KindValidation, Field: bodyField(dst, typeErr.Field), Message: "must not be " + typeErr.Value, Err: err})
			return false
		}
		writeError(w, &Error{Kind: KindValidation, Field: "body", Message: "invalid JSON body", Err: err})
		return false
	}
	return true
}

// bodyField turns a decoder field path into its JSON form by dropping the
// names of embedded structs, which newer decoders include.
func bodyField(dst any, path string) string {
	t := reflect.TypeOf(dst)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	embedded := map[string]bool{}
	if t != nil && t.Kind() == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			if f := t.Field(i); f.Anonymous {
				embedded[f.Name] = true
			}
		}
	}
	parts := strings.Split(path, ".")
	kept := parts[:0]
	for _, p := range parts {
		if !embedded[p] {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return "body"
	}
	return strings.Join(kept, ".")
}

// writeError renders err in the failure envelope with the status its kind maps to.
func writeError(w http.ResponseWriter, err error) {
	var gerr *Error
	if !errors.As(err, &gerr) {
		common.Failure(w, http.StatusInternalServerError, "internal error", nil)
		return
	}
	common.Failure(w, gerr.HTTPStatus(), gerr.Error(), errorDetails(gerr))
}

func errorDetails(e *Error) map[string]any {
	details := map[string]any{"kind": string(e.Kind)}
	if e.Field != "" {
		details["field"] = e.Field
	}
	if e.Code != "" {
		details["code"] = e.Code
	}
	if e.Status != 0 {
		details["status"] = e.Status
	}
	return details
}
