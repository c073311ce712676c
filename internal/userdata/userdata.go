// Package userdata handles the secure ordering profile: delivery address,
// customer identity and payment card. The file is created by the
// register-user command and read only by the pizza server; its contents are
// never placed in model context.
package userdata

import (
	"encoding/json"
	"fmt"
	"os"
)

// Address is a US delivery address.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
}

// Customer identifies the person placing the order.
type Customer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// Payment holds the card used at checkout.
type Payment struct {
	CardNumber   string `json:"card_number"`
	Expiration   string `json:"expiration"` // MMYY
	SecurityCode string `json:"security_code"`
	ZipCode      string `json:"zip_code"`
}

// Profile is the full secure ordering profile.
type Profile struct {
	Address  Address  `json:"address"`
	Customer Customer `json:"customer"`
	Payment  Payment  `json:"payment"`
}

// Validate checks the fields required to locate a store and place an order.
func (p *Profile) Validate() error {
	switch {
	case p.Address.Street == "" || p.Address.City == "" || p.Address.State == "" || p.Address.ZipCode == "":
		return fmt.Errorf("incomplete delivery address")
	case len(p.Address.State) != 2:
		return fmt.Errorf("state must be a 2-letter code, got %q", p.Address.State)
	case p.Customer.FirstName == "" || p.Customer.LastName == "" || p.Customer.Email == "" || p.Customer.Phone == "":
		return fmt.Errorf("incomplete customer information")
	case len(p.Payment.Expiration) != 4:
		return fmt.Errorf("card expiration must be MMYY")
	}
	return nil
}

// DeliveryLine2 renders the "city, state zip" line used by the store locator.
func (a Address) DeliveryLine2() string {
	return fmt.Sprintf("%s, %s %s", a.City, a.State, a.ZipCode)
}

// Load reads and validates a profile. A missing file is reported with a hint
// to run the registration command.
func Load(path string) (*Profile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("secure user data not found at %s; run register-user first", path)
		}
		return nil, fmt.Errorf("read secure user data: %w", err)
	}
	var p Profile
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("parse secure user data: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid secure user data: %w", err)
	}
	return &p, nil
}

// Save writes the profile with owner-only permissions.
func Save(path string, p *Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}
