package stripe

import (
	"encoding/json"
	"strconv"
	"testing"
	"time"
)

func TestNormalizeAndValidateConfig(t *testing.T) {
	cfg := &Config{
		SecretKey:     " sk_test_123 ",
		WebhookSecret: " whsec_123 ",
		SuccessURL:    "https://example.com/orders?status=success",
		CancelURL:     "https://example.com/cart?status=cancelled",
	}
	cfg.Normalize()
	if cfg.SecretKey != "sk_test_123" {
		t.Fatalf("unexpected secret key: %s", cfg.SecretKey)
	}
	if cfg.APIBaseURL != defaultAPIBaseURL {
		t.Fatalf("unexpected default api base url: %s", cfg.APIBaseURL)
	}
	if cfg.SessionExpireMinutes != defaultExpireMinutes {
		t.Fatalf("unexpected default expire minutes: %d", cfg.SessionExpireMinutes)
	}
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("validate config failed: %v", err)
	}
}

func TestVerifyAndParseWebhookCheckoutCompleted(t *testing.T) {
	now := time.Unix(1760000000, 0)
	cfg := &Config{
		WebhookSecret:           "whsec_test_abc",
		WebhookToleranceSeconds: 300,
	}
	payload := map[string]interface{}{
		"id":   "evt_test_1",
		"type": "checkout.session.completed",
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"object":         "checkout.session",
				"id":             "cs_test_123",
				"payment_status": "paid",
				"currency":       "usd",
				"amount_total":   29000,
				"created":        now.Unix(),
				"metadata": map[string]interface{}{
					"orderIds": "11,12,13",
					"userId":   "7",
					"appTag":   "GoCart",
				},
			},
		},
	}
	body, _ := json.Marshal(payload)
	sig := computeSignature(cfg.WebhookSecret, now.Unix(), body)
	headers := map[string]string{
		"Stripe-Signature": "t=1760000000,v1=" + sig,
	}

	result, err := VerifyAndParseWebhook(cfg, headers, body, now)
	if err != nil {
		t.Fatalf("verify and parse webhook failed: %v", err)
	}
	if result.EventType != "checkout.session.completed" {
		t.Fatalf("unexpected event type: %s", result.EventType)
	}
	if len(result.Metadata.OrderIDs) != 3 || result.Metadata.OrderIDs[0] != 11 || result.Metadata.OrderIDs[2] != 13 {
		t.Fatalf("unexpected order ids: %v", result.Metadata.OrderIDs)
	}
	if result.Metadata.UserID != 7 {
		t.Fatalf("unexpected user id: %d", result.Metadata.UserID)
	}
	if result.Metadata.AppTag != "GoCart" {
		t.Fatalf("unexpected app tag: %s", result.Metadata.AppTag)
	}
	if result.Status != "success" {
		t.Fatalf("unexpected status: %s", result.Status)
	}
	if result.Amount != "290.00" {
		t.Fatalf("unexpected amount: %s", result.Amount)
	}
}

func TestVerifyAndParseWebhookInvalidSignature(t *testing.T) {
	now := time.Unix(1760000000, 0)
	cfg := &Config{
		WebhookSecret:           "whsec_test_abc",
		WebhookToleranceSeconds: 300,
	}
	payload := map[string]interface{}{
		"id":   "evt_test_1",
		"type": "checkout.session.completed",
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"object": "checkout.session",
				"id":     "cs_test_123",
			},
		},
	}
	body, _ := json.Marshal(payload)
	headers := map[string]string{
		"Stripe-Signature": "t=1760000000,v1=invalid-signature",
	}

	_, err := VerifyAndParseWebhook(cfg, headers, body, now)
	if err == nil {
		t.Fatalf("expected verify error")
	}
}

func TestVerifyAndParseWebhookTimestampOutsideTolerance(t *testing.T) {
	now := time.Unix(1760000000, 0)
	cfg := &Config{
		WebhookSecret:           "whsec_test_abc",
		WebhookToleranceSeconds: 300,
	}
	payload := map[string]interface{}{
		"id":   "evt_test_1",
		"type": "checkout.session.completed",
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"object": "checkout.session",
				"id":     "cs_test_123",
			},
		},
	}
	body, _ := json.Marshal(payload)
	stale := now.Add(-time.Hour).Unix()
	sig := computeSignature(cfg.WebhookSecret, stale, body)
	headers := map[string]string{
		"Stripe-Signature": "t=" + strconv.FormatInt(stale, 10) + ",v1=" + sig,
	}

	if _, err := VerifyAndParseWebhook(cfg, headers, body, now); err == nil {
		t.Fatalf("expected tolerance error")
	}
}

func TestMapEventTypeStatus(t *testing.T) {
	if got, ok := mapEventTypeStatus("checkout.session.completed"); !ok || got != "success" {
		t.Fatalf("expected success, got %s", got)
	}
	if got, ok := mapEventTypeStatus("checkout.session.async_payment_failed"); !ok || got != "failed" {
		t.Fatalf("expected failed, got %s", got)
	}
	if got, ok := mapEventTypeStatus("checkout.session.expired"); !ok || got != "expired" {
		t.Fatalf("expected expired, got %s", got)
	}
	if _, ok := mapEventTypeStatus("invoice.created"); ok {
		t.Fatalf("expected unmapped event type")
	}
}

func TestSplitOrderIDs(t *testing.T) {
	ids := splitOrderIDs(" 1, 2,abc,0,3 ")
	if len(ids) != 3 || ids[0] != 1 || ids[1] != 2 || ids[2] != 3 {
		t.Fatalf("unexpected ids: %v", ids)
	}
	if got := splitOrderIDs(""); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
}

func TestToMinorAmount(t *testing.T) {
	minor, err := toMinorAmount("265.00", "USD")
	if err != nil {
		t.Fatalf("to minor amount failed: %v", err)
	}
	if minor != 26500 {
		t.Fatalf("unexpected minor amount: %d", minor)
	}
	minor, err = toMinorAmount("500", "JPY")
	if err != nil {
		t.Fatalf("to minor amount failed: %v", err)
	}
	if minor != 500 {
		t.Fatalf("unexpected zero-decimal minor amount: %d", minor)
	}
	if _, err := toMinorAmount("0", "USD"); err == nil {
		t.Fatalf("expected error for zero amount")
	}
}
