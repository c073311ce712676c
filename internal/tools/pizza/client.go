// Package pizza wraps the Dominos "power" ordering API: store discovery,
// menu, pricing and order placement. Payment details come from the secure
// user profile and never appear in tool output.
package pizza

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultBaseURL = "https://order.dominos.com"

// Client talks to the ordering API.
type Client struct {
	http *resty.Client
}

// NewClient creates an API client. baseURL overrides the production endpoint
// when non-empty (used in tests).
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(30 * time.Second).
			SetHeader("Referer", "https://order.dominos.com/en/pages/order/").
			SetHeader("Content-Type", "application/json"),
	}
}

// StoreInfo is one store-locator result.
type StoreInfo struct {
	StoreID       string `json:"StoreID"`
	IsOnlineNow   bool   `json:"IsOnlineNow"`
	Phone         string `json:"Phone"`
	AddressLine   string  `json:"AddressDescription"`
	MinDistance   float64 `json:"MinDistance"`
	ServiceIsOpen struct {
		Delivery bool `json:"Delivery"`
	} `json:"ServiceIsOpen"`
}

type storeLocatorResponse struct {
	Stores []StoreInfo `json:"Stores"`
}

// FindStore returns the nearest store open for delivery to the address.
func (c *Client) FindStore(ctx context.Context, street, cityLine string) (*StoreInfo, error) {
	var out storeLocatorResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"type": "Delivery",
			"s":    street,
			"c":    cityLine,
		}).
		SetResult(&out).
		Get("/power/store-locator")
	if err != nil {
		return nil, fmt.Errorf("store locator request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("store locator: unexpected status %d", resp.StatusCode())
	}

	for i := range out.Stores {
		s := &out.Stores[i]
		if s.IsOnlineNow && s.ServiceIsOpen.Delivery {
			return s, nil
		}
	}
	return nil, fmt.Errorf("no store is currently open for delivery near %q", cityLine)
}

// Variant is an orderable menu item.
type Variant struct {
	Code        string `json:"Code"`
	Name        string `json:"Name"`
	Price       string `json:"Price"`
	ProductCode string `json:"ProductCode"`
}

// Coupon is a store coupon.
type Coupon struct {
	Code  string `json:"Code"`
	Name  string `json:"Name"`
	Price string `json:"Price"`
}

// Menu is the structured store menu subset this client uses.
type Menu struct {
	Variants map[string]Variant `json:"Variants"`
	Coupons  map[string]Coupon  `json:"Coupons"`
}

// GetMenu fetches the structured menu of a store.
func (c *Client) GetMenu(ctx context.Context, storeID string) (*Menu, error) {
	var out Menu
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"lang": "en", "structured": "true"}).
		SetResult(&out).
		Get("/power/store/" + storeID + "/menu")
	if err != nil {
		return nil, fmt.Errorf("menu request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("menu: unexpected status %d", resp.StatusCode())
	}
	return &out, nil
}

// orderEnvelope is the request/response wrapper of the order endpoints.
type orderEnvelope struct {
	Order OrderPayload `json:"Order"`
}

// OrderPayload mirrors the API order object.
type OrderPayload struct {
	Address               orderAddress   `json:"Address"`
	Coupons               []orderCoupon  `json:"Coupons"`
	CustomerID            string         `json:"CustomerID"`
	Email                 string         `json:"Email"`
	FirstName             string         `json:"FirstName"`
	LastName              string         `json:"LastName"`
	Phone                 string         `json:"Phone"`
	Items                 []OrderItem    `json:"Products"`
	LanguageCode          string         `json:"LanguageCode"`
	OrderChannel          string         `json:"OrderChannel"`
	OrderID               string         `json:"OrderID"`
	OrderMethod           string         `json:"OrderMethod"`
	Payments              []orderPayment `json:"Payments,omitempty"`
	ServiceMethod         string         `json:"ServiceMethod"`
	SourceOrganizationURI string         `json:"SourceOrganizationURI"`
	StoreID               string         `json:"StoreID"`
	Version               string         `json:"Version"`
	NoCombine             bool           `json:"NoCombine"`
	Amounts               orderAmounts   `json:"Amounts,omitempty"`
	StatusItems           []statusItem   `json:"StatusItems,omitempty"`
	Status                int            `json:"Status,omitempty"`
}

type orderAddress struct {
	Street     string `json:"Street"`
	City       string `json:"City"`
	Region     string `json:"Region"`
	PostalCode string `json:"PostalCode"`
	Type       string `json:"Type"`
}

type orderCoupon struct {
	Code string `json:"Code"`
}

// OrderItem is one cart line.
type OrderItem struct {
	Code  string `json:"Code"`
	Qty   int    `json:"Qty"`
	ID    int    `json:"ID"`
	IsNew bool   `json:"isNew"`
}

type orderPayment struct {
	Type         string  `json:"Type"`
	Amount       float64 `json:"Amount"`
	Number       string  `json:"Number"`
	CardType     string  `json:"CardType"`
	Expiration   string  `json:"Expiration"`
	SecurityCode string  `json:"SecurityCode"`
	PostalCode   string  `json:"PostalCode"`
}

type orderAmounts struct {
	Customer float64 `json:"Customer"`
	Payment  float64 `json:"Payment"`
}

type statusItem struct {
	Code string `json:"Code"`
}

// PriceOrder asks the store to price the order and returns the customer total.
func (c *Client) PriceOrder(ctx context.Context, order OrderPayload) (float64, error) {
	var out orderEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(orderEnvelope{Order: order}).
		SetResult(&out).
		Post("/power/price-order")
	if err != nil {
		return 0, fmt.Errorf("price order request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return 0, fmt.Errorf("price order: unexpected status %d", resp.StatusCode())
	}
	if out.Order.Status < 0 {
		return 0, fmt.Errorf("price order rejected: %s", statusCodes(out.Order.StatusItems))
	}
	return out.Order.Amounts.Customer, nil
}

// PlaceOrder submits the order for real. The returned order ID confirms
// acceptance.
func (c *Client) PlaceOrder(ctx context.Context, order OrderPayload) (string, error) {
	var out orderEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(orderEnvelope{Order: order}).
		SetResult(&out).
		Post("/power/place-order")
	if err != nil {
		return "", fmt.Errorf("place order request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("place order: unexpected status %d", resp.StatusCode())
	}
	if out.Order.Status < 0 {
		return "", fmt.Errorf("place order rejected: %s", statusCodes(out.Order.StatusItems))
	}
	return out.Order.OrderID, nil
}

func statusCodes(items []statusItem) string {
	if len(items) == 0 {
		return "unknown reason"
	}
	s := ""
	for i, it := range items {
		if i > 0 {
			s += ", "
		}
		s += it.Code
	}
	return s
}
