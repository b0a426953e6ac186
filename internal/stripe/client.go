package stripe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client wraps Stripe API calls using the REST API directly (no SDK dependency)
type Client struct {
	secretKey  string
	httpClient *http.Client
	baseURL    string
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API endpoint. Used to target
// a local stub in tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a new Stripe API client
func NewClient(secretKey string, opts ...Option) *Client {
	c := &Client{
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    "https://api.stripe.com/v1",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FindCustomerByEmail looks up an existing Stripe customer by email address.
// Returns an empty customer ID when no match exists.
func (c *Client) FindCustomerByEmail(email string) (string, error) {
	resp, err := c.get("/customers?email=" + url.QueryEscape(email) + "&limit=1")
	if err != nil {
		return "", fmt.Errorf("find customer: %w", err)
	}

	dataArr, ok := resp["data"].([]interface{})
	if !ok || len(dataArr) == 0 {
		return "", nil
	}
	first, ok := dataArr[0].(map[string]interface{})
	if !ok {
		return "", nil
	}
	id, _ := first["id"].(string)
	return id, nil
}

// CreateCustomer creates a new Stripe customer
func (c *Client) CreateCustomer(email, name string) (string, error) {
	data := url.Values{}
	data.Set("email", email)
	if name != "" {
		data.Set("name", name)
	}

	resp, err := c.post("/customers", data)
	if err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}

	customerID, _ := resp["id"].(string)
	if customerID == "" {
		return "", fmt.Errorf("create customer: missing customer ID in response")
	}
	return customerID, nil
}

// EnsureCustomer finds a customer by email or creates one when absent.
func (c *Client) EnsureCustomer(email, name string) (string, error) {
	id, err := c.FindCustomerByEmail(email)
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}
	return c.CreateCustomer(email, name)
}

// CreateProduct creates a new Stripe product
func (c *Client) CreateProduct(name, description string) (string, error) {
	data := url.Values{}
	data.Set("name", name)
	if description != "" {
		data.Set("description", description)
	}

	resp, err := c.post("/products", data)
	if err != nil {
		return "", fmt.Errorf("create product: %w", err)
	}

	productID, _ := resp["id"].(string)
	return productID, nil
}

// CreatePrice creates a new recurring Stripe price for a product
func (c *Client) CreatePrice(productID string, unitAmountPence int, currency, interval string) (string, error) {
	data := url.Values{}
	data.Set("product", productID)
	data.Set("unit_amount", fmt.Sprintf("%d", unitAmountPence))
	data.Set("currency", currency)
	data.Set("recurring[interval]", interval)

	resp, err := c.post("/prices", data)
	if err != nil {
		return "", fmt.Errorf("create price: %w", err)
	}

	priceID, _ := resp["id"].(string)
	return priceID, nil
}

// CreateSubscriptionCheckout creates a Checkout session in subscription mode.
// Metadata keys are echoed back on checkout.session.completed so the webhook
// can resolve the local user and plan.
func (c *Client) CreateSubscriptionCheckout(customerID, priceID, successURL, cancelURL string, metadata map[string]string) (sessionID, sessionURL string, err error) {
	data := url.Values{}
	data.Set("mode", "subscription")
	data.Set("customer", customerID)
	data.Set("line_items[0][price]", priceID)
	data.Set("line_items[0][quantity]", "1")
	data.Set("success_url", successURL)
	data.Set("cancel_url", cancelURL)
	for k, v := range metadata {
		data.Set("metadata["+k+"]", v)
	}

	resp, err := c.post("/checkout/sessions", data)
	if err != nil {
		return "", "", fmt.Errorf("create checkout session: %w", err)
	}

	sessionID, _ = resp["id"].(string)
	sessionURL, _ = resp["url"].(string)
	if sessionID == "" {
		return "", "", fmt.Errorf("create checkout session: missing session ID in response")
	}

	return sessionID, sessionURL, nil
}

// CreatePaymentCheckout creates a one-off Checkout session in payment mode
// using inline price data. Amounts are in pence.
func (c *Client) CreatePaymentCheckout(customerID, productName string, amountPence int, currency, successURL, cancelURL string, metadata map[string]string) (sessionID, sessionURL string, err error) {
	data := url.Values{}
	data.Set("mode", "payment")
	data.Set("customer", customerID)
	data.Set("line_items[0][price_data][currency]", currency)
	data.Set("line_items[0][price_data][product_data][name]", productName)
	data.Set("line_items[0][price_data][unit_amount]", fmt.Sprintf("%d", amountPence))
	data.Set("line_items[0][quantity]", "1")
	data.Set("success_url", successURL)
	data.Set("cancel_url", cancelURL)
	for k, v := range metadata {
		data.Set("metadata["+k+"]", v)
	}

	resp, err := c.post("/checkout/sessions", data)
	if err != nil {
		return "", "", fmt.Errorf("create payment session: %w", err)
	}

	sessionID, _ = resp["id"].(string)
	sessionURL, _ = resp["url"].(string)
	if sessionID == "" {
		return "", "", fmt.Errorf("create payment session: missing session ID in response")
	}

	return sessionID, sessionURL, nil
}

// SubscriptionInfo is the subset of a Stripe subscription object used to
// mirror processor state into local rows.
type SubscriptionInfo struct {
	ID                 string
	CustomerID         string
	Status             string
	PriceID            string
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	CancelAtPeriodEnd  bool
}

// GetSubscription fetches a subscription and extracts its period fields.
func (c *Client) GetSubscription(subscriptionID string) (*SubscriptionInfo, error) {
	resp, err := c.get("/subscriptions/" + subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return subscriptionInfoFromObject(resp), nil
}

// UpdateSubscriptionPrice swaps a subscription to a new price with proration.
func (c *Client) UpdateSubscriptionPrice(subscriptionID, newPriceID string) error {
	// First, get the subscription to find the current item ID
	sub, err := c.get("/subscriptions/" + subscriptionID)
	if err != nil {
		return fmt.Errorf("get subscription for price change: %w", err)
	}

	itemID, err := firstItemID(sub)
	if err != nil {
		return err
	}

	data := url.Values{}
	data.Set("items[0][id]", itemID)
	data.Set("items[0][price]", newPriceID)
	data.Set("proration_behavior", "create_prorations")

	_, err = c.post("/subscriptions/"+subscriptionID, data)
	if err != nil {
		return fmt.Errorf("update subscription price: %w", err)
	}

	log.Printf("[stripe] Moved subscription %s to price %s", subscriptionID, newPriceID)
	return nil
}

// CancelSubscription cancels a Stripe subscription. When atPeriodEnd is
// false the subscription is terminated immediately with proration.
func (c *Client) CancelSubscription(subscriptionID string, atPeriodEnd bool) error {
	if atPeriodEnd {
		data := url.Values{}
		data.Set("cancel_at_period_end", "true")
		_, err := c.post("/subscriptions/"+subscriptionID, data)
		return err
	}

	_, err := c.delete("/subscriptions/" + subscriptionID + "?prorate=true")
	return err
}

// CreateBillingPortalSession creates a customer portal session, used for
// self-service payment-method updates.
func (c *Client) CreateBillingPortalSession(customerID, returnURL string) (string, error) {
	data := url.Values{}
	data.Set("customer", customerID)
	data.Set("return_url", returnURL)

	resp, err := c.post("/billing_portal/sessions", data)
	if err != nil {
		return "", fmt.Errorf("create billing portal session: %w", err)
	}

	sessionURL, _ := resp["url"].(string)
	if sessionURL == "" {
		return "", fmt.Errorf("create billing portal session: missing URL in response")
	}
	return sessionURL, nil
}

// SetDefaultPaymentMethod attaches a payment method to a customer and makes
// it the default for invoices.
func (c *Client) SetDefaultPaymentMethod(customerID, paymentMethodID string) error {
	attach := url.Values{}
	attach.Set("customer", customerID)
	if _, err := c.post("/payment_methods/"+paymentMethodID+"/attach", attach); err != nil {
		return fmt.Errorf("attach payment method: %w", err)
	}

	data := url.Values{}
	data.Set("invoice_settings[default_payment_method]", paymentMethodID)
	if _, err := c.post("/customers/"+customerID, data); err != nil {
		return fmt.Errorf("set default payment method: %w", err)
	}
	return nil
}

// Object helpers

func subscriptionInfoFromObject(obj map[string]interface{}) *SubscriptionInfo {
	info := &SubscriptionInfo{}
	info.ID, _ = obj["id"].(string)
	info.CustomerID, _ = obj["customer"].(string)
	info.Status, _ = obj["status"].(string)
	info.CancelAtPeriodEnd, _ = obj["cancel_at_period_end"].(bool)
	info.PriceID = ExtractPriceID(obj)

	if v, ok := obj["current_period_start"].(float64); ok {
		start := time.Unix(int64(v), 0).UTC()
		info.CurrentPeriodStart = &start
	}
	if v, ok := obj["current_period_end"].(float64); ok {
		end := time.Unix(int64(v), 0).UTC()
		info.CurrentPeriodEnd = &end
	}
	return info
}

// SubscriptionInfoFromEvent builds a SubscriptionInfo from a webhook event's
// subscription object.
func SubscriptionInfoFromEvent(obj map[string]interface{}) *SubscriptionInfo {
	return subscriptionInfoFromObject(obj)
}

// ExtractPriceID extracts the price ID from a subscription object's items
func ExtractPriceID(obj map[string]interface{}) string {
	items, ok := obj["items"].(map[string]interface{})
	if !ok {
		return ""
	}
	dataArr, ok := items["data"].([]interface{})
	if !ok || len(dataArr) == 0 {
		return ""
	}
	firstItem, ok := dataArr[0].(map[string]interface{})
	if !ok {
		return ""
	}
	price, ok := firstItem["price"].(map[string]interface{})
	if !ok {
		return ""
	}
	id, _ := price["id"].(string)
	return id
}

func firstItemID(sub map[string]interface{}) (string, error) {
	items, ok := sub["items"].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("unexpected subscription items format")
	}
	dataArr, ok := items["data"].([]interface{})
	if !ok || len(dataArr) == 0 {
		return "", fmt.Errorf("no subscription items found")
	}
	firstItem, ok := dataArr[0].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("unexpected subscription item format")
	}
	itemID, ok := firstItem["id"].(string)
	if !ok {
		return "", fmt.Errorf("missing subscription item ID")
	}
	return itemID, nil
}

// HTTP helpers

func (c *Client) post(path string, data url.Values) (map[string]interface{}, error) {
	req, err := http.NewRequest("POST", c.baseURL+path, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.secretKey, "")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.doRequest(req)
}

func (c *Client) get(path string) (map[string]interface{}, error) {
	req, err := http.NewRequest("GET", c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.secretKey, "")

	return c.doRequest(req)
}

func (c *Client) delete(path string) (map[string]interface{}, error) {
	req, err := http.NewRequest("DELETE", c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.secretKey, "")

	return c.doRequest(req)
}

func (c *Client) doRequest(req *http.Request) (map[string]interface{}, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stripe request failed: %w", err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return nil, fmt.Errorf("read stripe response: %w", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		return nil, fmt.Errorf("parse stripe response: %w", err)
	}

	if resp.StatusCode >= 400 {
		errObj, _ := result["error"].(map[string]interface{})
		msg := "unknown error"
		if errObj != nil {
			if m, ok := errObj["message"].(string); ok {
				msg = m
			}
		}
		return nil, fmt.Errorf("stripe API error (%d): %s", resp.StatusCode, msg)
	}

	return result, nil
}
