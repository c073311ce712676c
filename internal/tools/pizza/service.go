package pizza

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/conciergebot/concierge/internal/userdata"
)

// menuListLimit caps menu listings so tool results stay digestible.
const menuListLimit = 40

// Service holds the per-process ordering state: located store, cached menu,
// cart and applied coupon.
type Service struct {
	client  *Client
	profile *userdata.Profile

	mu      sync.Mutex
	storeID string
	menu    *Menu
	cart    []OrderItem
	coupon  string
}

// NewService creates an ordering service for the given secure profile.
func NewService(client *Client, profile *userdata.Profile) *Service {
	return &Service{client: client, profile: profile}
}

// FindNearestStore locates the closest store delivering to the profile
// address and caches it for the rest of the session.
func (s *Service) FindNearestStore(ctx context.Context) (string, error) {
	store, err := s.client.FindStore(ctx, s.profile.Address.Street, s.profile.Address.DeliveryLine2())
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.storeID = store.StoreID
	s.menu = nil // menu belongs to a store
	s.mu.Unlock()

	return fmt.Sprintf("Found store #%s (%s), %.1f miles away, open for delivery. Phone: %s",
		store.StoreID, store.AddressLine, store.MinDistance, store.Phone), nil
}

// ensureMenu fetches and caches the store menu.
func (s *Service) ensureMenu(ctx context.Context) (*Menu, error) {
	s.mu.Lock()
	storeID, menu := s.storeID, s.menu
	s.mu.Unlock()

	if storeID == "" {
		return nil, fmt.Errorf("no store selected. Use find_nearest_store first")
	}
	if menu != nil {
		return menu, nil
	}

	menu, err := s.client.GetMenu(ctx, storeID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.menu = menu
	s.mu.Unlock()
	return menu, nil
}

// GetMenu lists orderable items, optionally filtered by a category substring
// (e.g. "pizza", "wings", "drinks").
func (s *Service) GetMenu(ctx context.Context, category string) (string, error) {
	menu, err := s.ensureMenu(ctx)
	if err != nil {
		return "", err
	}
	return renderVariants(menu, func(v Variant) bool {
		if category == "" {
			return true
		}
		return strings.Contains(strings.ToLower(v.Name), strings.ToLower(category))
	}), nil
}

// SearchMenu finds items whose name contains the query.
func (s *Service) SearchMenu(ctx context.Context, query string) (string, error) {
	if query == "" {
		return "", fmt.Errorf("search query must not be empty")
	}
	menu, err := s.ensureMenu(ctx)
	if err != nil {
		return "", err
	}
	out := renderVariants(menu, func(v Variant) bool {
		return strings.Contains(strings.ToLower(v.Name), strings.ToLower(query))
	})
	if out == "" || strings.HasPrefix(out, "No items") {
		return fmt.Sprintf("No menu items match %q", query), nil
	}
	return out, nil
}

func renderVariants(menu *Menu, keep func(Variant) bool) string {
	codes := make([]string, 0, len(menu.Variants))
	for code := range menu.Variants {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var b strings.Builder
	count := 0
	for _, code := range codes {
		v := menu.Variants[code]
		if !keep(v) {
			continue
		}
		count++
		if count > menuListLimit {
			b.WriteString("... (more items omitted; use search_menu to narrow down)\n")
			break
		}
		fmt.Fprintf(&b, "%s: %s ($%s)\n", v.Code, v.Name, v.Price)
	}
	if count == 0 {
		return "No items found."
	}
	return b.String()
}

// AddToOrder validates the item code against the menu and puts it in the cart.
func (s *Service) AddToOrder(ctx context.Context, itemCode string, quantity int) (string, error) {
	if quantity <= 0 {
		quantity = 1
	}
	menu, err := s.ensureMenu(ctx)
	if err != nil {
		return "", err
	}
	v, ok := menu.Variants[itemCode]
	if !ok {
		return "", fmt.Errorf("unknown item code %q; use search_menu to find valid codes", itemCode)
	}

	s.mu.Lock()
	s.cart = append(s.cart, OrderItem{Code: itemCode, Qty: quantity, ID: len(s.cart) + 1, IsNew: true})
	size := len(s.cart)
	s.mu.Unlock()

	return fmt.Sprintf("Added %dx %s (%s) to the order. Cart has %d line(s).", quantity, v.Name, itemCode, size), nil
}

// ViewOrder renders the cart.
func (s *Service) ViewOrder() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.cart) == 0 {
		return "The order is empty."
	}
	var b strings.Builder
	b.WriteString("Current order:\n")
	for _, item := range s.cart {
		name := item.Code
		if s.menu != nil {
			if v, ok := s.menu.Variants[item.Code]; ok {
				name = v.Name
			}
		}
		fmt.Fprintf(&b, "- %dx %s (%s)\n", item.Qty, name, item.Code)
	}
	if s.coupon != "" {
		fmt.Fprintf(&b, "Coupon applied: %s\n", s.coupon)
	}
	return b.String()
}

// ClearOrder empties the cart and drops any coupon.
func (s *Service) ClearOrder() string {
	s.mu.Lock()
	s.cart = nil
	s.coupon = ""
	s.mu.Unlock()
	return "Order cleared."
}

// ApplyCoupon validates a coupon code against the store menu.
func (s *Service) ApplyCoupon(ctx context.Context, code string) (string, error) {
	menu, err := s.ensureMenu(ctx)
	if err != nil {
		return "", err
	}
	c, ok := menu.Coupons[code]
	if !ok {
		return "", fmt.Errorf("coupon %q is not valid at this store", code)
	}

	s.mu.Lock()
	s.coupon = code
	s.mu.Unlock()

	return fmt.Sprintf("Applied coupon %s: %s", code, c.Name), nil
}

// buildOrder assembles the API payload from profile + cart. Payment details
// are attached only when withPayment is set.
func (s *Service) buildOrder(withPayment bool, amount float64) (OrderPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.storeID == "" {
		return OrderPayload{}, fmt.Errorf("no store selected. Use find_nearest_store first")
	}
	if len(s.cart) == 0 {
		return OrderPayload{}, fmt.Errorf("the order is empty; add items first")
	}

	order := OrderPayload{
		Address: orderAddress{
			Street:     s.profile.Address.Street,
			City:       s.profile.Address.City,
			Region:     s.profile.Address.State,
			PostalCode: s.profile.Address.ZipCode,
			Type:       "House",
		},
		Email:                 s.profile.Customer.Email,
		FirstName:             s.profile.Customer.FirstName,
		LastName:              s.profile.Customer.LastName,
		Phone:                 s.profile.Customer.Phone,
		Items:                 append([]OrderItem(nil), s.cart...),
		LanguageCode:          "en",
		OrderChannel:          "OLO",
		OrderMethod:           "Web",
		ServiceMethod:         "Delivery",
		SourceOrganizationURI: "order.dominos.com",
		StoreID:               s.storeID,
		Version:               "1.0",
		NoCombine:             true,
	}
	if s.coupon != "" {
		order.Coupons = []orderCoupon{{Code: s.coupon}}
	}
	if withPayment {
		order.Payments = []orderPayment{{
			Type:         "CreditCard",
			Amount:       amount,
			Number:       s.profile.Payment.CardNumber,
			CardType:     cardType(s.profile.Payment.CardNumber),
			Expiration:   s.profile.Payment.Expiration,
			SecurityCode: s.profile.Payment.SecurityCode,
			PostalCode:   s.profile.Payment.ZipCode,
		}}
	}
	return order, nil
}

// CalculateTotal prices the current order.
func (s *Service) CalculateTotal(ctx context.Context) (string, error) {
	order, err := s.buildOrder(false, 0)
	if err != nil {
		return "", err
	}
	total, err := s.client.PriceOrder(ctx, order)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Order total: $%.2f (including tax and delivery)", total), nil
}

// PlaceOrder prices the order, attaches the stored card and submits it.
// Refuses unless confirm is true: placing an order charges real money.
func (s *Service) PlaceOrder(ctx context.Context, confirm bool) (string, error) {
	if !confirm {
		return "", fmt.Errorf("order not placed: set confirm=true after the user explicitly approves the purchase")
	}

	priced, err := s.buildOrder(false, 0)
	if err != nil {
		return "", err
	}
	total, err := s.client.PriceOrder(ctx, priced)
	if err != nil {
		return "", err
	}

	order, err := s.buildOrder(true, total)
	if err != nil {
		return "", err
	}
	orderID, err := s.client.PlaceOrder(ctx, order)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.cart = nil
	s.coupon = ""
	s.mu.Unlock()

	if orderID == "" {
		return fmt.Sprintf("Order placed successfully. Total charged: $%.2f", total), nil
	}
	return fmt.Sprintf("Order %s placed successfully. Total charged: $%.2f", orderID, total), nil
}

// cardType infers the card network from the leading digit.
func cardType(number string) string {
	switch {
	case strings.HasPrefix(number, "4"):
		return "VISA"
	case strings.HasPrefix(number, "5"):
		return "MASTERCARD"
	case strings.HasPrefix(number, "3"):
		return "AMEX"
	case strings.HasPrefix(number, "6"):
		return "DISCOVER"
	default:
		return "UNKNOWN"
	}
}
