package apiclient

import "github.com/phillip-england/branchdesk/internal/datatable"

// Entity names one of the administered record types.
type Entity string

const (
	EntityBranch      Entity = "branch"
	EntityEmployee    Entity = "employee"
	EntityDesignation Entity = "designation"
	EntityItem        Entity = "item"
)

var Entities = []Entity{EntityBranch, EntityEmployee, EntityDesignation, EntityItem}

func (e Entity) ListPath() string {
	switch e {
	case EntityBranch:
		return "/admin/branches"
	case EntityEmployee:
		return "/admin/all-employees"
	case EntityDesignation:
		return "/designations"
	default:
		return "/items"
	}
}

// ListKey is the response field holding the rows.
func (e Entity) ListKey() string {
	switch e {
	case EntityBranch:
		return "branches"
	case EntityEmployee:
		return "employees"
	case EntityDesignation:
		return "designations"
	default:
		return "items"
	}
}

func (e Entity) Title() string {
	switch e {
	case EntityBranch:
		return "Branch"
	case EntityEmployee:
		return "Employee"
	case EntityDesignation:
		return "Designation"
	default:
		return "Item"
	}
}

type Message struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type Branch struct {
	ID        int64  `json:"id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	Address   string `json:"address"`
	Mobile    string `json:"mobile"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Status    int    `json:"status"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type Employee struct {
	ID            int64  `json:"id"`
	EmployeeCode  string `json:"employee_code"`
	Name          string `json:"name"`
	Mobile        string `json:"mobile"`
	Email         string `json:"email"`
	BranchID      int64  `json:"branch_id"`
	DesignationID int64  `json:"designation_id"`
	BranchName    string `json:"branch_name"`
	Designation   string `json:"designation"`
	Status        int    `json:"status"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

type Designation struct {
	ID          int64  `json:"id"`
	Designation string `json:"designation"`
	Status      int    `json:"status"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type Item struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Price     float64 `json:"price"`
	ImageURL  string  `json:"image_url"`
	Status    int     `json:"status"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

type BranchOption struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

type DesignationOption struct {
	ID          int64  `json:"id"`
	Designation string `json:"designation"`
}

type Stats struct {
	ActiveEmployees    int `json:"active_employees_count"`
	ActiveBranches     int `json:"active_branches_count"`
	ActiveItems        int `json:"active_items_count"`
	ActiveDesignations int `json:"active_designations_count"`
}

type BranchStats struct {
	BranchName      string `json:"branch_name"`
	BranchCode      string `json:"branch_code"`
	ActiveEmployees int    `json:"active_employees_count"`
	TotalEmployees  int    `json:"total_employees_count"`
	ActiveItems     int    `json:"active_items_count"`
}

type RowError struct {
	Row    int                 `json:"row"`
	Errors map[string][]string `json:"errors"`
}

type ImportResult struct {
	Success  bool       `json:"success"`
	Message  string     `json:"message"`
	Imported int        `json:"imported"`
	Errors   []RowError `json:"errors"`
}

// Page is one list response.
type Page struct {
	Rows       []datatable.Row
	Pagination datatable.Pagination
}

var ItemCategories = []datatable.Option{
	{Value: "snacks", Label: "Snacks"},
	{Value: "food_item", Label: "Food Item"},
	{Value: "cake", Label: "Cake"},
}

var StatusOptions = []datatable.Option{
	{Value: "1", Label: "Active"},
	{Value: "0", Label: "Inactive"},
}
