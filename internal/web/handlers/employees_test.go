package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestEmployeeSearch(t *testing.T) {
	h := NewEmployeeHandler(newFakeDirectory())

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"exact", "Jana Novak", []string{"emp-1"}},
		{"diacritics folded", "jana novák", []string{"emp-1"}},
		{"partial", "novak", []string{"emp-1"}},
		{"inactive excluded", "Sam Day", nil},
		{"no match", "nobody", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/employees?name="+url.QueryEscape(tt.query), nil)
			rec := httptest.NewRecorder()
			h.Search(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			var resp struct {
				Employees []employeeResponse `json:"employees"`
			}
			decodeResponse(t, rec, &resp)
			if len(resp.Employees) != len(tt.want) {
				t.Fatalf("expected %d matches, got %+v", len(tt.want), resp.Employees)
			}
			for i, id := range tt.want {
				if resp.Employees[i].ID != id {
					t.Errorf("expected %s, got %s", id, resp.Employees[i].ID)
				}
			}
		})
	}
}

func TestEmployeeSearchMissingName(t *testing.T) {
	h := NewEmployeeHandler(newFakeDirectory())

	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodGet, "/employees", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without name, got %d", rec.Code)
	}
}
