package apiapp

import (
	"fmt"
	"net/http"
	"testing"
)

type listResponse struct {
	Success    bool             `json:"success"`
	Items      []map[string]any `json:"items"`
	Employees  []map[string]any `json:"employees"`
	Branches   []map[string]any `json:"branches"`
	Pagination pagination       `json:"pagination"`
}

type validationResponse struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

func seedItems(api *testAPI, token string, n int) {
	categories := []string{"snacks", "food_item", "cake"}
	for i := 1; i <= n; i++ {
		api.mustCreate(token, "item", map[string]any{
			"name":     fmt.Sprintf("Item %02d", i),
			"category": categories[i%3],
			"price":    float64(i) * 10,
		})
	}
}

func TestCreateValidatesRequiredFields(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin()
	rr := api.do(http.MethodPost, "/api/create/branch", admin, map[string]any{"phone": "123"})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	var out validationResponse
	decodeBody(t, rr, &out)
	for _, name := range []string{"code", "name", "address", "mobile", "email"} {
		if len(out.Errors[name]) == 0 {
			t.Fatalf("expected error for %s, got %+v", name, out.Errors)
		}
	}
	if _, ok := out.Errors["phone"]; ok {
		t.Fatalf("phone is optional, got %+v", out.Errors)
	}
	if out.Message != out.Errors["address"][0] {
		t.Fatalf("expected message to be first field error, got %q", out.Message)
	}
}

func TestCreateRejectsBadEmailAndDuplicateCode(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin()
	api.mustCreate(admin, "branch", map[string]any{
		"code": "HQ", "name": "Head Office", "address": "x", "mobile": "1", "email": "hq@example.com",
	})
	rr := api.do(http.MethodPost, "/api/create/branch", admin, map[string]any{
		"code": "hq", "name": "Other", "address": "y", "mobile": "2", "email": "not-an-email",
	})
	var out validationResponse
	decodeBody(t, rr, &out)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	if got := out.Errors["code"]; len(got) != 1 || got[0] != "The code has already been taken." {
		t.Fatalf("unexpected code errors %v", got)
	}
	if got := out.Errors["email"]; len(got) != 1 || got[0] != "The email must be a valid email address." {
		t.Fatalf("unexpected email errors %v", got)
	}
}

func TestCreateRejectsUnknownFieldsAndBadCategory(t *testing.T) {
	api := newTestAPI(t)
	rr := api.do(http.MethodPost, "/api/create/item", api.admin(), map[string]any{
		"name": "Tea", "category": "drinks", "colour": "red",
	})
	var out validationResponse
	decodeBody(t, rr, &out)
	if len(out.Errors["category"]) == 0 || len(out.Errors["colour"]) == 0 {
		t.Fatalf("expected category and colour errors, got %+v", out.Errors)
	}
}

func TestEmployeeReferencesAndJoinedNames(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin()
	rr := api.do(http.MethodPost, "/api/create/employee", admin, map[string]any{
		"employee_code": "E1", "name": "Asha", "mobile": "1", "branch_id": 7, "designation_id": 9,
	})
	var bad validationResponse
	decodeBody(t, rr, &bad)
	if len(bad.Errors["branch_id"]) == 0 || len(bad.Errors["designation_id"]) == 0 {
		t.Fatalf("expected reference errors, got %+v", bad.Errors)
	}

	branch := api.mustCreate(admin, "branch", map[string]any{
		"code": "W", "name": "West", "address": "a", "mobile": "1", "email": "w@example.com",
	})
	desig := api.mustCreate(admin, "designation", map[string]any{"designation": "Baker"})
	api.mustCreate(admin, "employee", map[string]any{
		"employee_code": "E1", "name": "Asha", "mobile": "1", "branch_id": branch, "designation_id": desig,
	})

	var list listResponse
	decodeBody(t, api.do(http.MethodGet, "/api/admin/all-employees?q=west", admin, nil), &list)
	if len(list.Employees) != 1 {
		t.Fatalf("expected search on joined branch name to match, got %d", len(list.Employees))
	}
	if list.Employees[0]["branch_name"] != "West" || list.Employees[0]["designation"] != "Baker" {
		t.Fatalf("unexpected joined names %+v", list.Employees[0])
	}
}

func TestDesignationUniqueIgnoresCase(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin()
	api.mustCreate(admin, "designation", map[string]any{"designation": "Manager"})
	rr := api.do(http.MethodPost, "/api/create/designation", admin, map[string]any{"designation": "MANAGER"})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
}

func TestListPaginatesLikeLaravel(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin()
	seedItems(api, admin, 25)

	var out listResponse
	decodeBody(t, api.do(http.MethodGet, "/api/items?page=3&per_page=10", admin, nil), &out)
	want := pagination{CurrentPage: 3, PerPage: 10, Total: 25, From: 21, To: 25, LastPage: 3}
	if out.Pagination != want {
		t.Fatalf("expected %+v, got %+v", want, out.Pagination)
	}
	if len(out.Items) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(out.Items))
	}

	decodeBody(t, api.do(http.MethodGet, "/api/items?page=9", admin, nil), &out)
	want = pagination{CurrentPage: 3, PerPage: 10, Total: 25, From: 21, To: 25, LastPage: 3}
	if out.Pagination != want || len(out.Items) != 5 {
		t.Fatalf("expected page past the end to clamp to %+v, got %d rows %+v", want, len(out.Items), out.Pagination)
	}
}

func TestListSearchFilterAndSort(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin()
	seedItems(api, admin, 9)

	var out listResponse
	decodeBody(t, api.do(http.MethodGet, "/api/items?category=cake&sort_by=price&sort_order=desc", admin, nil), &out)
	if out.Pagination.Total != 3 {
		t.Fatalf("expected 3 cakes, got %d", out.Pagination.Total)
	}
	prices := []float64{}
	for _, row := range out.Items {
		prices = append(prices, row["price"].(float64))
	}
	if prices[0] != 80 || prices[1] != 50 || prices[2] != 20 {
		t.Fatalf("expected descending prices, got %v", prices)
	}

	decodeBody(t, api.do(http.MethodGet, "/api/items?q=item+07", admin, nil), &out)
	if out.Pagination.Total != 1 || out.Items[0]["name"] != "Item 07" {
		t.Fatalf("expected one search hit, got %+v", out.Items)
	}

	decodeBody(t, api.do(http.MethodGet, "/api/items", admin, nil), &out)
	if out.Items[0]["name"] != "Item 09" {
		t.Fatalf("expected newest first by default, got %v", out.Items[0]["name"])
	}
}

func TestUpdateIsPartial(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin()
	id := api.mustCreate(admin, "item", map[string]any{"name": "Tea", "category": "snacks", "price": 10})
	path := fmt.Sprintf("/api/item/update/%d", id)

	if rr := api.do(http.MethodPut, path, admin, map[string]any{"price": 12.5}); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var shown struct {
		Item map[string]any `json:"item"`
	}
	decodeBody(t, api.do(http.MethodGet, fmt.Sprintf("/api/item/show/%d", id), admin, nil), &shown)
	if shown.Item["price"] != 12.5 || shown.Item["name"] != "Tea" || shown.Item["category"] != "snacks" {
		t.Fatalf("expected only price to change, got %+v", shown.Item)
	}

	rr := api.do(http.MethodPut, path, admin, map[string]any{})
	var msg struct {
		Message string `json:"message"`
	}
	decodeBody(t, rr, &msg)
	if rr.Code != http.StatusOK || msg.Message != "No changes to update" {
		t.Fatalf("expected empty change set no-op, got %d %q", rr.Code, msg.Message)
	}

	if rr := api.do(http.MethodPut, path, admin, map[string]any{"status": 0}); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status to be rejected on update, got %d", rr.Code)
	}
	if rr := api.do(http.MethodPut, path, admin, map[string]any{"name": ""}); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected blank required field to be rejected, got %d", rr.Code)
	}
	if rr := api.do(http.MethodPut, "/api/item/update/999", admin, map[string]any{"name": "x"}); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestUpdateStatus(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin()
	id := api.mustCreate(admin, "designation", map[string]any{"designation": "Driver"})

	if rr := api.do(http.MethodPost, "/api/designation/update-status", admin, map[string]any{"id": id, "status": 2}); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for status 2, got %d", rr.Code)
	}
	if rr := api.do(http.MethodPost, "/api/designation/update-status", admin, map[string]any{"id": 404, "status": 0}); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if rr := api.do(http.MethodPost, "/api/designation/update-status", admin, map[string]any{"id": id, "status": 0}); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var active struct {
		Designations []map[string]any `json:"designations"`
	}
	decodeBody(t, api.do(http.MethodGet, "/api/designations/active", admin, nil), &active)
	if len(active.Designations) != 0 {
		t.Fatalf("expected inactive designation to be excluded, got %+v", active.Designations)
	}

	var stats struct {
		Stats map[string]int `json:"stats"`
	}
	decodeBody(t, api.do(http.MethodGet, "/api/admin/dashboard/stats", admin, nil), &stats)
	if stats.Stats["active_designations_count"] != 0 {
		t.Fatalf("expected zero active designations, got %+v", stats.Stats)
	}
}

func TestMinimalBranchesListsActiveOnly(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin()
	api.mustCreate(admin, "branch", map[string]any{"code": "B", "name": "Beta", "address": "a", "mobile": "1", "email": "b@example.com"})
	alpha := api.mustCreate(admin, "branch", map[string]any{"code": "A", "name": "Alpha", "address": "a", "mobile": "1", "email": "a@example.com"})
	api.mustCreate(admin, "branch", map[string]any{"code": "C", "name": "Gamma", "address": "a", "mobile": "1", "email": "c@example.com"})
	api.do(http.MethodPost, "/api/branch/update-status", admin, map[string]any{"id": alpha + 1, "status": 0})

	var out struct {
		Branches []map[string]any `json:"branches"`
	}
	decodeBody(t, api.do(http.MethodGet, "/api/admin/branches/minimal", admin, nil), &out)
	if len(out.Branches) != 2 || out.Branches[0]["name"] != "Alpha" || out.Branches[1]["name"] != "Beta" {
		t.Fatalf("unexpected minimal branches %+v", out.Branches)
	}
}

func TestProfileUpdateAndPasswordChange(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin()

	rr := api.do(http.MethodPut, "/api/profile", admin, map[string]any{"name": "Root User", "email": "root@example.com"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var profile struct {
		UserDetails map[string]any `json:"user_details"`
	}
	decodeBody(t, api.do(http.MethodGet, "/api/profile", admin, nil), &profile)
	if profile.UserDetails["name"] != "Root User" || profile.UserDetails["email"] != "root@example.com" {
		t.Fatalf("unexpected profile %+v", profile.UserDetails)
	}
	if rr := api.do(http.MethodPut, "/api/profile", admin, map[string]any{"role": "admin"}); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected role to be rejected, got %d", rr.Code)
	}

	rr = api.do(http.MethodPost, "/api/profile/password", admin, map[string]string{
		"current_password": "wrong", "new_password": "short", "new_password_confirmation": "short",
	})
	var bad validationResponse
	decodeBody(t, rr, &bad)
	if len(bad.Errors["current_password"]) == 0 || len(bad.Errors["new_password"]) == 0 {
		t.Fatalf("expected both password errors, got %+v", bad.Errors)
	}

	rr = api.do(http.MethodPost, "/api/profile/password", admin, map[string]string{
		"current_password": testAdminPassword, "new_password": "a-brand-new-password", "new_password_confirmation": "a-different-password",
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected confirmation mismatch 422, got %d", rr.Code)
	}

	rr = api.do(http.MethodPost, "/api/profile/password", admin, map[string]string{
		"current_password": testAdminPassword, "new_password": "a-brand-new-password", "new_password_confirmation": "a-brand-new-password",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	api.login(testAdminUser, "a-brand-new-password")
}
