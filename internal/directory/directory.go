package directory

import "context"

// Role values returned by the directory service.
const (
	RoleSolo    = "solo"
	RoleRep     = "rep"
	RoleCompany = "company"
)

// BusinessTypeIndividual marks companies that talk to solo users directly,
// without a rep.
const BusinessTypeIndividual = "individual"

// User is the directory's view of an account. CompanyID is set for reps and
// company staff.
type User struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	CompanyID   int64  `json:"company_id,omitempty"`
	ImageRef    string `json:"image_ref,omitempty"`
}

// Company is the directory's business profile for a company account.
type Company struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	BusinessType string `json:"business_type"`
	ImageRef     string `json:"image_ref,omitempty"`
}

// Directory resolves display data for users and companies.
type Directory interface {
	GetUser(ctx context.Context, userID int64) (User, error)
	BulkUsers(ctx context.Context, ids []int64) ([]User, error)
	GetCompany(ctx context.Context, companyID int64) (Company, error)
}
