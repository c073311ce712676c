package userdata

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func validProfile() *Profile {
	return &Profile{
		Address:  Address{Street: "700 Main St", City: "New York", State: "NY", ZipCode: "10001"},
		Customer: Customer{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Phone: "2125550100"},
		Payment:  Payment{CardNumber: "4100123422343234", Expiration: "0130", SecurityCode: "123", ZipCode: "10001"},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secure_user_data.json")
	require.NoError(t, Save(path, validProfile()))

	p, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "700 Main St", p.Address.Street)
	require.Equal(t, "New York, NY 10001", p.Address.DeliveryLine2())
	require.Equal(t, "Ada", p.Customer.FirstName)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "register-user")
}

func TestValidate(t *testing.T) {
	p := validProfile()
	p.Address.State = "New York"
	require.Error(t, p.Validate())

	p = validProfile()
	p.Payment.Expiration = "01/30"
	require.Error(t, p.Validate())

	p = validProfile()
	p.Customer.Email = ""
	require.Error(t, p.Validate())

	require.NoError(t, validProfile().Validate())
}
