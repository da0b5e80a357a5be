package console

import (
	"context"

	"github.com/phillip-england/branchdesk/internal/apiclient"
	"github.com/phillip-england/branchdesk/internal/datatable"
	"github.com/phillip-england/branchdesk/internal/listing"
	"github.com/phillip-england/branchdesk/internal/session"
)

// tab is one entity list: its UI state and its page controller.
type tab struct {
	entity apiclient.Entity
	title  string
	table  *datatable.Table
	list   *listing.Controller
	loaded bool
}

func statusColumn() datatable.Column {
	return datatable.Column{
		Accessor: "status", Header: "Status", Sortable: true, Filterable: true,
		FilterType: datatable.FilterSelect, FilterOptions: apiclient.StatusOptions,
		Cell: func(row datatable.Row) string {
			if datatable.ValueString(row["status"]) == "1" {
				return "Active"
			}
			return "Inactive"
		},
	}
}

func text(accessor, header string) datatable.Column {
	return datatable.Column{Accessor: accessor, Header: header, Sortable: true, Filterable: true, FilterType: datatable.FilterText}
}

func columnsFor(entity apiclient.Entity) []datatable.Column {
	switch entity {
	case apiclient.EntityBranch:
		return []datatable.Column{text("code", "Code"), text("name", "Name"), text("mobile", "Mobile"), text("email", "Email"), statusColumn()}
	case apiclient.EntityEmployee:
		return []datatable.Column{text("employee_code", "Code"), text("name", "Name"), text("mobile", "Mobile"), text("branch_name", "Branch"), text("designation", "Designation"), statusColumn()}
	case apiclient.EntityDesignation:
		return []datatable.Column{text("designation", "Designation"), statusColumn()}
	default:
		category := datatable.Column{
			Accessor: "category", Header: "Category", Sortable: true, Filterable: true,
			FilterType: datatable.FilterSelect, FilterOptions: apiclient.ItemCategories,
		}
		category.Cell = func(row datatable.Row) string {
			return category.OptionLabel(datatable.ValueString(row["category"]))
		}
		return []datatable.Column{text("name", "Name"), category, {Accessor: "price", Header: "Price", Sortable: true}, statusColumn()}
	}
}

// entitiesFor lists the tabs a role sees, in menu order.
func entitiesFor(role string) []apiclient.Entity {
	if role == session.RoleBranch {
		return []apiclient.Entity{apiclient.EntityItem, apiclient.EntityDesignation}
	}
	return []apiclient.Entity{apiclient.EntityBranch, apiclient.EntityEmployee, apiclient.EntityDesignation, apiclient.EntityItem}
}

func tabTitle(e apiclient.Entity) string {
	switch e {
	case apiclient.EntityBranch:
		return "Branches"
	case apiclient.EntityEmployee:
		return "Employees"
	case apiclient.EntityDesignation:
		return "Designations"
	default:
		return "Items"
	}
}

func (m *model) buildTabs(ctx context.Context, role string) error {
	m.tabs = nil
	for _, entity := range entitiesFor(role) {
		ctrl := listing.New(m.source(entity), listing.Options{
			Clock:    m.clock,
			Run:      m.run,
			OnChange: m.notify,
		})
		table, err := datatable.New(columnsFor(entity), ctrl.TableCallbacks(ctx))
		if err != nil {
			return err
		}
		m.tabs = append(m.tabs, &tab{entity: entity, title: tabTitle(entity), table: table, list: ctrl})
	}
	m.active = 0
	return nil
}
