// register-user collects the secure pizza-ordering profile interactively and
// writes it to disk. The file is read by pizza-mcp and is never exposed to
// the model; keep it out of version control.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/conciergebot/concierge/internal/userdata"
)

func main() {
	out := "secure_user_data.json"
	if v := os.Getenv("SECURE_USER_DATA_FILE"); v != "" {
		out = v
	}
	if len(os.Args) > 1 {
		out = os.Args[1]
	}

	r := bufio.NewReader(os.Stdin)
	ask := func(prompt string) string {
		fmt.Printf("%s: ", prompt)
		line, _ := r.ReadString('\n')
		return strings.TrimSpace(line)
	}

	fmt.Println("=== Secure Pizza Ordering Information Setup ===")
	fmt.Println("This information is stored locally and NOT shared with the LLM.")

	fmt.Println("\n--- Delivery Address ---")
	profile := &userdata.Profile{}
	profile.Address.Street = ask("Street Address")
	profile.Address.City = ask("City")
	profile.Address.State = strings.ToUpper(ask("State (2-letter code, e.g., NY)"))
	profile.Address.ZipCode = ask("ZIP Code")

	fmt.Println("\n--- Customer Information ---")
	profile.Customer.FirstName = ask("First Name")
	profile.Customer.LastName = ask("Last Name")
	profile.Customer.Email = ask("Email")
	profile.Customer.Phone = ask("Phone (10 digits)")

	fmt.Println("\n--- Payment Information ---")
	fmt.Println("WARNING: this is stored in plain text. Use a test card or be cautious!")
	profile.Payment.CardNumber = ask("Card Number")
	profile.Payment.Expiration = ask("Expiration (MMYY format)")
	profile.Payment.SecurityCode = ask("Security Code (CVV)")
	profile.Payment.ZipCode = ask("Billing ZIP Code")

	if err := userdata.Save(out, profile); err != nil {
		fmt.Fprintf(os.Stderr, "failed to save profile: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nSecure information saved to: %s\n", out)
	fmt.Println("Add this file to .gitignore and do not share it.")
}
