package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPayTRBaseURL      = "https://www.paytr.com"
	defaultPayTRTimeout      = 15 * time.Second
	defaultPayTRTimeoutLimit = 30
	payTRTokenPath           = "/odeme/api/get-token"
	payTRRefundPath          = "/odeme/iade"
	payTRStatusPath          = "/odeme/durum-sorgu"
	payTRIframePath          = "/odeme/guvenli/"
	maxPayTRResponseBytes    = 1 << 20
)

// PayTRConfig configures the PayTR iframe provider.
type PayTRConfig struct {
	MerchantID   string
	MerchantKey  string
	MerchantSalt string
	BaseURL      string
	TestMode     bool
	Debug        bool
	OKURL        string
	FailURL      string
	Currency     string
	// TimeoutLimit is how many minutes the customer has to finish paying.
	TimeoutLimit int
	HTTPClient   *http.Client
	Logger       func(ctx context.Context, event string, fields map[string]any)
	Clock        func() time.Time
}

// PayTRProvider talks to PayTR's iframe API: token creation, refunds, status
// queries, and verification of the merchant notification callback.
type PayTRProvider struct {
	cfg    PayTRConfig
	client *http.Client
	logger func(ctx context.Context, event string, fields map[string]any)
	now    func() time.Time
}

// NewPayTRProvider validates credentials and builds the provider.
func NewPayTRProvider(cfg PayTRConfig) (*PayTRProvider, error) {
	cfg.MerchantID = strings.TrimSpace(cfg.MerchantID)
	cfg.MerchantKey = strings.TrimSpace(cfg.MerchantKey)
	cfg.MerchantSalt = strings.TrimSpace(cfg.MerchantSalt)
	switch {
	case cfg.MerchantID == "":
		return nil, errors.New("paytr: merchant id is required")
	case cfg.MerchantKey == "":
		return nil, errors.New("paytr: merchant key is required")
	case cfg.MerchantSalt == "":
		return nil, errors.New("paytr: merchant salt is required")
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultPayTRBaseURL
	}
	if cfg.Currency == "" {
		cfg.Currency = "TL"
	}
	if cfg.TimeoutLimit <= 0 {
		cfg.TimeoutLimit = defaultPayTRTimeoutLimit
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultPayTRTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &PayTRProvider{
		cfg:    cfg,
		client: client,
		logger: logger,
		now:    func() time.Time { return clock().UTC() },
	}, nil
}

type payTRBasketLine [3]string

type payTRResponse struct {
	Status      string      `json:"status"`
	Token       string      `json:"token"`
	Reason      string      `json:"reason"`
	ErrNo       json.Number `json:"err_no"`
	ErrMsg      string      `json:"err_msg"`
	MerchantOID string      `json:"merchant_oid"`
	PaymentAmt  string      `json:"payment_amount"`
	PaymentTot  string      `json:"payment_total"`
	Currency    string      `json:"currency"`
	Returns     any         `json:"returns"`
}

func (r payTRResponse) failure() string {
	for _, msg := range []string{r.Reason, r.ErrMsg} {
		if strings.TrimSpace(msg) != "" {
			return msg
		}
	}
	return "status " + r.Status
}

// CreateCheckoutSession requests an iframe token for the order identified by
// req.MerchantOID. Amount must be in kuruş.
func (p *PayTRProvider) CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSession, error) {
	merchantOID := strings.TrimSpace(req.MerchantOID)
	if merchantOID == "" || !isAlphanumeric(merchantOID) {
		return CheckoutSession{}, errors.New("paytr: merchant oid must be alphanumeric")
	}
	if req.Amount <= 0 {
		return CheckoutSession{}, errors.New("paytr: amount must be positive")
	}
	if strings.TrimSpace(req.Buyer.Email) == "" || strings.TrimSpace(req.Buyer.IP) == "" {
		return CheckoutSession{}, errors.New("paytr: buyer email and ip are required")
	}

	basket, err := encodeBasket(req.Items, req.Amount)
	if err != nil {
		return CheckoutSession{}, err
	}
	amount := strconv.FormatInt(req.Amount, 10)
	const noInstallment, maxInstallment = "0", "0"
	testMode := boolFlag(p.cfg.TestMode)
	currency := p.currency(req.Currency)

	token := p.sign(p.cfg.MerchantID, req.Buyer.IP, merchantOID, req.Buyer.Email, amount, basket, noInstallment, maxInstallment, currency, testMode)
	form := url.Values{
		"merchant_id":       {p.cfg.MerchantID},
		"user_ip":           {req.Buyer.IP},
		"merchant_oid":      {merchantOID},
		"email":             {req.Buyer.Email},
		"payment_amount":    {amount},
		"paytr_token":       {token},
		"user_basket":       {basket},
		"debug_on":          {boolFlag(p.cfg.Debug)},
		"no_installment":    {noInstallment},
		"max_installment":   {maxInstallment},
		"user_name":         {fallback(req.Buyer.Name, req.Buyer.Email)},
		"user_address":      {fallback(req.Buyer.Address, "-")},
		"user_phone":        {fallback(req.Buyer.Phone, "-")},
		"merchant_ok_url":   {fallback(req.SuccessURL, p.cfg.OKURL)},
		"merchant_fail_url": {fallback(req.CancelURL, p.cfg.FailURL)},
		"timeout_limit":     {strconv.Itoa(p.cfg.TimeoutLimit)},
		"currency":          {currency},
		"test_mode":         {testMode},
		"lang":              {fallback(req.Locale, "tr")},
	}

	resp, err := p.post(ctx, payTRTokenPath, form)
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("paytr: get token: %w", err)
	}
	if resp.Status != "success" || resp.Token == "" {
		p.logger(ctx, "payments.paytr.token.failed", map[string]any{"merchantOid": merchantOID, "reason": resp.failure()})
		return CheckoutSession{}, fmt.Errorf("%w: paytr: %s", ErrProviderRejected, resp.failure())
	}

	p.logger(ctx, "payments.paytr.token.created", map[string]any{"merchantOid": merchantOID, "amount": req.Amount})
	return CheckoutSession{
		ID:          merchantOID,
		Provider:    ProviderPayTR,
		Token:       resp.Token,
		RedirectURL: p.cfg.BaseURL + payTRIframePath + url.PathEscape(resp.Token),
		ExpiresAt:   p.now().Add(time.Duration(p.cfg.TimeoutLimit) * time.Minute),
	}, nil
}

// VerifyCallback checks the hash PayTR attaches to its notification post.
func (p *PayTRProvider) VerifyCallback(form url.Values) (CallbackResult, error) {
	merchantOID := strings.TrimSpace(form.Get("merchant_oid"))
	status := strings.TrimSpace(form.Get("status"))
	totalAmount := strings.TrimSpace(form.Get("total_amount"))
	hash := strings.TrimSpace(form.Get("hash"))
	if merchantOID == "" || status == "" || hash == "" {
		return CallbackResult{}, fmt.Errorf("%w: missing fields", ErrInvalidCallback)
	}

	expected := p.sign(merchantOID, p.cfg.MerchantSalt, status, totalAmount)
	if !hmac.Equal([]byte(expected), []byte(hash)) {
		return CallbackResult{}, fmt.Errorf("%w: hash mismatch", ErrInvalidCallback)
	}

	result := CallbackResult{
		Provider:      ProviderPayTR,
		MerchantOID:   merchantOID,
		Status:        StatusFailed,
		FailureCode:   strings.TrimSpace(form.Get("failed_reason_code")),
		FailureReason: strings.TrimSpace(form.Get("failed_reason_msg")),
		TestMode:      form.Get("test_mode") == "1",
	}
	if status == "success" {
		result.Status = StatusSucceeded
	}
	if totalAmount != "" {
		amount, err := strconv.ParseInt(totalAmount, 10, 64)
		if err != nil {
			return CallbackResult{}, fmt.Errorf("%w: total_amount %q", ErrInvalidCallback, totalAmount)
		}
		result.TotalAmount = amount
	}
	return result, nil
}

// Refund returns req.Amount kuruş of a captured payment.
func (p *PayTRProvider) Refund(ctx context.Context, req RefundRequest) (PaymentDetails, error) {
	merchantOID := strings.TrimSpace(req.MerchantOID)
	if merchantOID == "" {
		return PaymentDetails{}, errors.New("paytr: merchant oid is required")
	}
	if req.Amount <= 0 {
		return PaymentDetails{}, errors.New("paytr: refund amount must be positive")
	}
	amount := formatDecimal(req.Amount)
	form := url.Values{
		"merchant_id":   {p.cfg.MerchantID},
		"merchant_oid":  {merchantOID},
		"return_amount": {amount},
		"paytr_token":   {p.sign(p.cfg.MerchantID, merchantOID, amount, p.cfg.MerchantSalt)},
	}
	if ref := strings.TrimSpace(req.IdempotencyKey); ref != "" {
		form.Set("reference_no", ref)
	}

	resp, err := p.post(ctx, payTRRefundPath, form)
	if err != nil {
		return PaymentDetails{}, fmt.Errorf("paytr: refund: %w", err)
	}
	if resp.Status != "success" {
		return PaymentDetails{}, fmt.Errorf("%w: paytr: %s", ErrProviderRejected, resp.failure())
	}

	now := p.now()
	p.logger(ctx, "payments.paytr.refunded", map[string]any{"merchantOid": merchantOID, "amount": req.Amount})
	return PaymentDetails{
		Provider:    ProviderPayTR,
		MerchantOID: merchantOID,
		Status:      StatusRefunded,
		Amount:      req.Amount,
		Currency:    "TRY",
		RefundedAt:  &now,
	}, nil
}

// LookupPayment queries the payment status for a merchant oid.
func (p *PayTRProvider) LookupPayment(ctx context.Context, req LookupRequest) (PaymentDetails, error) {
	merchantOID := strings.TrimSpace(req.MerchantOID)
	if merchantOID == "" {
		return PaymentDetails{}, errors.New("paytr: merchant oid is required")
	}
	form := url.Values{
		"merchant_id":  {p.cfg.MerchantID},
		"merchant_oid": {merchantOID},
		"paytr_token":  {p.sign(p.cfg.MerchantID, merchantOID, p.cfg.MerchantSalt)},
	}
	resp, err := p.post(ctx, payTRStatusPath, form)
	if err != nil {
		return PaymentDetails{}, fmt.Errorf("paytr: status query: %w", err)
	}
	details := PaymentDetails{
		Provider:    ProviderPayTR,
		MerchantOID: merchantOID,
		Status:      StatusPending,
		Currency:    "TRY",
	}
	switch resp.Status {
	case "success":
		details.Status = StatusSucceeded
		details.Amount = parseDecimal(resp.PaymentTot)
	case "error":
		return PaymentDetails{}, fmt.Errorf("%w: paytr: %s", ErrProviderRejected, resp.failure())
	default:
		details.Status = StatusFailed
	}
	return details, nil
}

func (p *PayTRProvider) post(ctx context.Context, path string, form url.Values) (payTRResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return payTRResponse{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	res, err := p.client.Do(req)
	if err != nil {
		return payTRResponse{}, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxPayTRResponseBytes))
	if err != nil {
		return payTRResponse{}, err
	}
	if res.StatusCode >= http.StatusBadRequest {
		return payTRResponse{}, fmt.Errorf("unexpected status %d", res.StatusCode)
	}
	var decoded payTRResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return payTRResponse{}, fmt.Errorf("decode response: %w", err)
	}
	return decoded, nil
}

// sign is base64(HMAC-SHA256(merchant_key, concat(parts))).
func (p *PayTRProvider) sign(parts ...string) string {
	mac := hmac.New(sha256.New, []byte(p.cfg.MerchantKey))
	for _, part := range parts {
		mac.Write([]byte(part))
	}
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (p *PayTRProvider) currency(requested string) string {
	switch strings.ToUpper(strings.TrimSpace(requested)) {
	case "", "TRY", "TL":
		return p.cfg.Currency
	default:
		return strings.ToUpper(strings.TrimSpace(requested))
	}
}

// encodeBasket renders items as base64 JSON [[name, "12.50", qty], ...].
// An empty basket becomes a single line for the whole amount.
func encodeBasket(items []CheckoutLineItem, total int64) (string, error) {
	lines := make([]payTRBasketLine, 0, len(items))
	for _, item := range items {
		qty := max(item.Quantity, 1)
		lines = append(lines, payTRBasketLine{fallback(item.Name, "Ürün"), formatDecimal(item.Amount), strconv.FormatInt(qty, 10)})
	}
	if len(lines) == 0 {
		lines = append(lines, payTRBasketLine{"Sipariş", formatDecimal(total), "1"})
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return "", fmt.Errorf("paytr: encode basket: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func formatDecimal(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

func parseDecimal(value string) int64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	whole, frac, _ := strings.Cut(value, ".")
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0
	}
	frac = (frac + "00")[:2]
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0
	}
	return units*100 + cents
}

func isAlphanumeric(value string) bool {
	for _, r := range value {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

func boolFlag(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return def
}
