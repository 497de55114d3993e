package directory

import (
	"time"

	"github.com/starshipcosmos/authstore/principal"
)

// Demo secrets shared by every account in the demo tables.
const (
	DemoCompanySecret = "demo123"
	DemoAdminSecret   = "admin123"
)

var demoEpoch = time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC)

// DemoCompanies returns the company dashboard's demo accounts.
func DemoCompanies() []principal.CompanyProfile {
	return []principal.CompanyProfile{
		{
			ID:        "company-1",
			Name:      "TechCorp Solutions",
			Email:     "admin@techcorp.com",
			Industry:  "Technology",
			Location:  "San Francisco, CA",
			Size:      "500-1000",
			Verified:  true,
			Active:    true,
			Role:      principal.RoleCompanyAdmin,
			CreatedAt: demoEpoch,
		},
		{
			ID:        "company-2",
			Name:      "Innovate Labs",
			Email:     "hr@innovate.io",
			Industry:  "Research",
			Location:  "Austin, TX",
			Size:      "50-200",
			Verified:  true,
			Active:    true,
			Role:      principal.RoleCompanyAdmin,
			CreatedAt: demoEpoch.AddDate(0, 2, 0),
		},
		{
			ID:        "company-3",
			Name:      "GreenEnergy Co",
			Email:     "contact@greenenergy.com",
			Industry:  "Energy",
			Location:  "Denver, CO",
			Size:      "200-500",
			Verified:  false,
			Active:    true,
			Role:      principal.RoleCompanyAdmin,
			CreatedAt: demoEpoch.AddDate(0, 5, 0),
		},
	}
}

// DemoAdmins returns the super-admin dashboard's demo accounts.
func DemoAdmins() []principal.AdminProfile {
	return []principal.AdminProfile{
		{
			ID:        "admin-1",
			Email:     "superadmin@cosmos.com",
			Name:      "Cosmos Super Admin",
			Role:      principal.RoleSuperAdmin,
			Active:    true,
			CreatedAt: demoEpoch,
		},
		{
			ID:          "admin-2",
			Email:       "moderator@cosmos.com",
			Name:        "Review Moderator",
			Role:        principal.RoleModerator,
			Permissions: []string{"reviews.moderate", "companies.view", "users.view"},
			Active:      true,
			CreatedAt:   demoEpoch.AddDate(0, 1, 0),
		},
	}
}

// NewDemoCompanyAuthenticator checks the demo company table against
// DemoCompanySecret.
func NewDemoCompanyAuthenticator(hints bool) (*Authenticator[principal.CompanyProfile], error) {
	dir, err := NewStatic(DemoCompanies()...)
	if err != nil {
		return nil, err
	}
	return NewAuthenticator[principal.CompanyProfile](dir, NewSharedSecret(DemoCompanySecret), Options{
		Label:      "Company",
		Hints:      hints,
		DemoSecret: DemoCompanySecret,
	})
}

// NewDemoAdminAuthenticator checks the demo admin table against DemoAdminSecret.
func NewDemoAdminAuthenticator(hints bool) (*Authenticator[principal.AdminProfile], error) {
	dir, err := NewStatic(DemoAdmins()...)
	if err != nil {
		return nil, err
	}
	return NewAuthenticator[principal.AdminProfile](dir, NewSharedSecret(DemoAdminSecret), Options{
		Label:      "Admin",
		Hints:      hints,
		DemoSecret: DemoAdminSecret,
	})
}
