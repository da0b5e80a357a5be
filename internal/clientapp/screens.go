package clientapp

import (
	"github.com/phillip-england/branchdesk/internal/apiclient"
	"github.com/phillip-england/branchdesk/internal/datatable"
	"github.com/phillip-england/branchdesk/internal/session"
)

// area is the set of screens behind one role prefix.
type area struct {
	Prefix  string
	Roles   []string
	Screens []*screen
}

type screen struct {
	Entity   apiclient.Entity
	Slug     string
	Title    string
	Writable bool
	Columns  []datatable.Column
	Fields   []formField
}

type formField struct {
	Name     string
	Label    string
	Type     string
	Required bool
	Step     string
	Options  []datatable.Option
	// Lookup names the API list that fills a select: "branches" or
	// "designations".
	Lookup string
}

func (f formField) numeric() bool {
	return f.Type == "number" || f.Lookup != ""
}

var statusColumn = datatable.Column{
	Accessor: "status", Header: "Status", Sortable: true, Filterable: true,
	FilterType: datatable.FilterSelect, FilterOptions: apiclient.StatusOptions,
	Cell: func(row datatable.Row) string {
		if datatable.ValueString(row["status"]) == "1" {
			return "Active"
		}
		return "Inactive"
	},
}

var createdColumn = datatable.Column{Accessor: "created_at", Header: "Created", Sortable: true}

func textColumn(accessor, header string) datatable.Column {
	return datatable.Column{Accessor: accessor, Header: header, Sortable: true, Filterable: true, FilterType: datatable.FilterText}
}

func categoryColumn() datatable.Column {
	col := datatable.Column{
		Accessor: "category", Header: "Category", Sortable: true, Filterable: true,
		FilterType: datatable.FilterSelect, FilterOptions: apiclient.ItemCategories,
	}
	col.Cell = func(row datatable.Row) string {
		return col.OptionLabel(datatable.ValueString(row["category"]))
	}
	return col
}

func branchScreen() *screen {
	return &screen{
		Entity: apiclient.EntityBranch, Slug: "branches", Title: "Branches", Writable: true,
		Columns: []datatable.Column{
			textColumn("code", "Code"),
			textColumn("name", "Name"),
			textColumn("address", "Address"),
			textColumn("mobile", "Mobile"),
			textColumn("email", "Email"),
			{Accessor: "phone", Header: "Phone"},
			statusColumn,
			createdColumn,
		},
		Fields: []formField{
			{Name: "code", Label: "Code", Type: "text", Required: true},
			{Name: "name", Label: "Name", Type: "text", Required: true},
			{Name: "address", Label: "Address", Type: "textarea", Required: true},
			{Name: "mobile", Label: "Mobile", Type: "tel", Required: true},
			{Name: "email", Label: "Email", Type: "email", Required: true},
			{Name: "phone", Label: "Phone", Type: "tel"},
		},
	}
}

func employeeScreen() *screen {
	return &screen{
		Entity: apiclient.EntityEmployee, Slug: "employees", Title: "Employees", Writable: true,
		Columns: []datatable.Column{
			textColumn("employee_code", "Code"),
			textColumn("name", "Name"),
			textColumn("mobile", "Mobile"),
			textColumn("email", "Email"),
			textColumn("branch_name", "Branch"),
			textColumn("designation", "Designation"),
			statusColumn,
			createdColumn,
		},
		Fields: []formField{
			{Name: "employee_code", Label: "Employee code", Type: "text", Required: true},
			{Name: "name", Label: "Name", Type: "text", Required: true},
			{Name: "mobile", Label: "Mobile", Type: "tel", Required: true},
			{Name: "email", Label: "Email", Type: "email"},
			{Name: "branch_id", Label: "Branch", Type: "select", Required: true, Lookup: "branches"},
			{Name: "designation_id", Label: "Designation", Type: "select", Required: true, Lookup: "designations"},
		},
	}
}

func designationScreen(writable bool) *screen {
	return &screen{
		Entity: apiclient.EntityDesignation, Slug: "designations", Title: "Designations", Writable: writable,
		Columns: []datatable.Column{
			textColumn("designation", "Designation"),
			statusColumn,
			createdColumn,
		},
		Fields: []formField{
			{Name: "designation", Label: "Designation", Type: "text", Required: true},
		},
	}
}

func itemScreen(writable bool) *screen {
	return &screen{
		Entity: apiclient.EntityItem, Slug: "items", Title: "Items", Writable: writable,
		Columns: []datatable.Column{
			textColumn("name", "Name"),
			categoryColumn(),
			{Accessor: "price", Header: "Price", Sortable: true, Cell: func(row datatable.Row) string { return formatPrice(row["price"]) }},
			{Accessor: "image_url", Header: "Image", Cell: func(row datatable.Row) string {
				if datatable.ValueString(row["image_url"]) == "" {
					return "No"
				}
				return "Yes"
			}},
			statusColumn,
			createdColumn,
		},
		Fields: []formField{
			{Name: "name", Label: "Name", Type: "text", Required: true},
			{Name: "category", Label: "Category", Type: "select", Required: true, Options: apiclient.ItemCategories},
			{Name: "price", Label: "Price", Type: "number", Step: "0.01"},
		},
	}
}

func adminScreens() []*screen {
	return []*screen{branchScreen(), employeeScreen(), designationScreen(true), itemScreen(true)}
}

var areas = []*area{
	{Prefix: "/super-admin", Roles: []string{session.RoleSuperAdmin}, Screens: adminScreens()},
	{Prefix: "/admin", Roles: []string{session.RoleAdmin}, Screens: adminScreens()},
	{Prefix: "/branch", Roles: []string{session.RoleBranch}, Screens: []*screen{itemScreen(false), designationScreen(false)}},
}

func (a *area) nav(active string) []navLink {
	links := []navLink{{Label: "Dashboard", Href: a.Prefix + "/dashboard", Active: active == "dashboard"}}
	for _, sc := range a.Screens {
		links = append(links, navLink{Label: sc.Title, Href: a.Prefix + "/" + sc.Slug, Active: active == sc.Slug})
	}
	return append(links, navLink{Label: "Profile", Href: a.Prefix + "/profile", Active: active == "profile"})
}

func (sc *screen) path(a *area) string {
	return a.Prefix + "/" + sc.Slug
}
