package apiapp

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

func entityFromRequest(r *http.Request) *entity {
	return entities[mux.Vars(r)["entity"]]
}

func idFromRequest(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

// listHandler answers the paginated list of one entity.
func (s *server) listHandler(name string) http.HandlerFunc {
	e := entities[name]
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := s.loadRows(r.Context(), e)
		if err != nil {
			log.Printf("list %s failed: %v", e.Table, err)
			writeError(w, http.StatusInternalServerError, "Failed to fetch "+e.ListKey)
			return
		}
		params := r.URL.Query()
		page, meta := paginate(filterRows(e, rows, params), params)
		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			e.ListKey:    page,
			"pagination": meta,
		})
	}
}

func (s *server) show(w http.ResponseWriter, r *http.Request) {
	e := entityFromRequest(r)
	if e.AdminOnly && !isAdminRole(userFromContext(r.Context()).text("role")) {
		writeError(w, http.StatusForbidden, "You do not have access to this resource.")
		return
	}
	row, err := s.loadRow(r.Context(), e, idFromRequest(r))
	if err != nil {
		if errors.Is(err, errNotFound) {
			writeError(w, http.StatusNotFound, e.Title+" not found")
			return
		}
		log.Printf("show %s failed: %v", e.Name, err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch "+e.Name)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, e.Name: row})
}

func (s *server) create(w http.ResponseWriter, r *http.Request) {
	e := entityFromRequest(r)
	var input map[string]any
	if err := decodeJSONBody(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	values, errs, err := e.validate(r.Context(), s.store, input, 0, false)
	if err != nil {
		log.Printf("validate %s failed: %v", e.Name, err)
		writeError(w, http.StatusInternalServerError, "Failed to create "+e.Name)
		return
	}
	if errs != nil {
		writeValidation(w, errs)
		return
	}
	stamp := now()
	values["status"] = int64(1)
	values["created_at"] = stamp
	values["updated_at"] = stamp
	if e.Name == "item" {
		values["image_url"] = ""
	}
	id, err := s.store.Insert(r.Context(), e.Table, values)
	if err != nil {
		if errors.Is(err, errConflict) {
			writeError(w, http.StatusConflict, e.Title+" already exists")
			return
		}
		log.Printf("create %s failed: %v", e.Name, err)
		writeError(w, http.StatusInternalServerError, "Failed to create "+e.Name)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": e.Title + " created successfully",
		"id":      id,
	})
}

// update applies a partial change set. An empty set changes nothing.
func (s *server) update(w http.ResponseWriter, r *http.Request) {
	e := entityFromRequest(r)
	id := idFromRequest(r)
	var input map[string]any
	if err := decodeJSONBody(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := s.store.Get(r.Context(), e.Table, id); err != nil {
		if errors.Is(err, errNotFound) {
			writeError(w, http.StatusNotFound, e.Title+" not found")
			return
		}
		log.Printf("update %s lookup failed: %v", e.Name, err)
		writeError(w, http.StatusInternalServerError, "Failed to update "+e.Name)
		return
	}
	if len(input) == 0 {
		writeMessage(w, http.StatusOK, "No changes to update")
		return
	}
	changes, errs, err := e.validate(r.Context(), s.store, input, id, true)
	if err != nil {
		log.Printf("validate %s failed: %v", e.Name, err)
		writeError(w, http.StatusInternalServerError, "Failed to update "+e.Name)
		return
	}
	if errs != nil {
		writeValidation(w, errs)
		return
	}
	changes["updated_at"] = now()
	if err := s.store.Update(r.Context(), e.Table, id, changes); err != nil {
		switch {
		case errors.Is(err, errNotFound):
			writeError(w, http.StatusNotFound, e.Title+" not found")
		case errors.Is(err, errConflict):
			writeError(w, http.StatusConflict, e.Title+" already exists")
		default:
			log.Printf("update %s failed: %v", e.Name, err)
			writeError(w, http.StatusInternalServerError, "Failed to update "+e.Name)
		}
		return
	}
	writeMessage(w, http.StatusOK, e.Title+" updated successfully")
}

type statusRequest struct {
	ID     json.Number `json:"id"`
	Status json.Number `json:"status"`
}

func (s *server) updateStatus(w http.ResponseWriter, r *http.Request) {
	e := entityFromRequest(r)
	var req statusRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	errs := fieldErrors{}
	id, err := req.ID.Int64()
	if err != nil || id <= 0 {
		errs.add("id", "The id field is required.")
	}
	status, err := req.Status.Int64()
	if err != nil || (status != 0 && status != 1) {
		errs.add("status", "The selected status is invalid.")
	}
	if len(errs) > 0 {
		writeValidation(w, errs)
		return
	}
	err = s.store.Update(r.Context(), e.Table, id, record{"status": status, "updated_at": now()})
	if err != nil {
		if errors.Is(err, errNotFound) {
			writeError(w, http.StatusNotFound, e.Title+" not found")
			return
		}
		log.Printf("update %s status failed: %v", e.Name, err)
		writeError(w, http.StatusInternalServerError, "Failed to update status")
		return
	}
	writeMessage(w, http.StatusOK, e.Title+" status updated successfully")
}

func (s *server) activeDesignations(w http.ResponseWriter, r *http.Request) {
	rows, err := s.loadRows(r.Context(), entities["designation"])
	if err != nil {
		log.Printf("list designations failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch designations")
		return
	}
	out := []map[string]any{}
	sortRows(entities["designation"], rows, "designation", "asc")
	for _, row := range rows {
		if row.integer("status") == 1 {
			out = append(out, map[string]any{"id": row.integer("id"), "designation": row.text("designation")})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "designations": out})
}

func (s *server) minimalBranches(w http.ResponseWriter, r *http.Request) {
	rows, err := s.loadRows(r.Context(), entities["branch"])
	if err != nil {
		log.Printf("list branches failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch branches")
		return
	}
	out := []map[string]any{}
	sortRows(entities["branch"], rows, "name", "asc")
	for _, row := range rows {
		if row.integer("status") == 1 {
			out = append(out, map[string]any{"id": row.integer("id"), "code": row.text("code"), "name": row.text("name")})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "branches": out})
}

func (s *server) adminStats(w http.ResponseWriter, r *http.Request) {
	counts := map[string]int{}
	for key, table := range map[string]string{
		"active_employees_count":    tableEmployees,
		"active_branches_count":     tableBranches,
		"active_items_count":        tableItems,
		"active_designations_count": tableDesignations,
	} {
		rows, err := s.store.Find(r.Context(), table, "status", 1)
		if err != nil {
			log.Printf("count %s failed: %v", table, err)
			writeError(w, http.StatusInternalServerError, "Failed to load dashboard")
			return
		}
		counts[key] = len(rows)
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "stats": counts})
}

// branchStats reports the caller's own branch.
func (s *server) branchStats(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	branch, err := s.store.Get(r.Context(), tableBranches, user.integer("branch_id"))
	if err != nil {
		if errors.Is(err, errNotFound) {
			writeError(w, http.StatusNotFound, "Branch not found")
			return
		}
		log.Printf("branch stats failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load dashboard")
		return
	}
	employees, err := s.store.Find(r.Context(), tableEmployees, "branch_id", branch.integer("id"))
	if err != nil {
		log.Printf("branch stats failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load dashboard")
		return
	}
	items, err := s.store.Find(r.Context(), tableItems, "status", 1)
	if err != nil {
		log.Printf("branch stats failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load dashboard")
		return
	}
	active := 0
	for _, row := range employees {
		if row.integer("status") == 1 {
			active++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"stats": map[string]any{
			"branch_name":            branch.text("name"),
			"branch_code":            branch.text("code"),
			"active_employees_count": active,
			"total_employees_count":  len(employees),
			"active_items_count":     len(items),
		},
	})
}
