package inventory

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nerrad567/stockroom-core/internal/apiclient"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(apiclient.New(srv.URL))
}

func TestClient_ListAndGet(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/items":
			if q := r.URL.Query().Get("q"); q != "dell dock" {
				t.Errorf("q = %q, want %q", q, "dell dock")
			}
			_, _ = io.WriteString(w, `{"items":[{"id":7,"category":"Dock","row":null}]}`)
		case "/items/7":
			_, _ = io.WriteString(w, `{"item":{"id":7,"category":"Dock"},"history":[{"id":1,"action":"created","changes":{}}]}`)
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	items, err := c.List(ctx, "tok", "dell dock")
	if err != nil || len(items) != 1 || items[0].ID != 7 {
		t.Fatalf("List() = %v, %v", items, err)
	}

	detail, err := c.Get(ctx, "tok", 7)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if detail.Item.Category != "Dock" || len(detail.History) != 1 {
		t.Errorf("Get() = %+v", detail)
	}
}

func TestClient_GetNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"detail":"Item not found"}`)
	})

	_, err := c.Get(context.Background(), "tok", 99)
	if got := apiclient.Message(err, ""); got != "Item not found" {
		t.Errorf("Get() message = %q, want %q", got, "Item not found")
	}
}

func TestClient_ActionsSendPayloads(t *testing.T) {
	bodies := map[string]map[string]any{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		bodies[r.URL.Path] = body
		_, _ = io.WriteString(w, `{"item":{"id":3,"category":"Cable"}}`)
	})
	ctx := context.Background()

	if err := c.Deploy(ctx, "tok", 3, "Jane Doe", ""); err != nil {
		t.Fatalf("Deploy() error = %v", err)
	}
	if err := c.AdjustQuantity(ctx, "tok", 3, -2, "used"); err != nil {
		t.Fatalf("AdjustQuantity() error = %v", err)
	}
	item, err := c.Restore(ctx, "tok", 3, "", "Failed to restore cable")
	if err != nil || item.ID != 3 {
		t.Fatalf("Restore() = %v, %v", item, err)
	}

	deploy := bodies["/items/3/deploy"]
	if deploy["assigned_user"] != "Jane Doe" || deploy["note"] != nil {
		t.Errorf("deploy body = %v", deploy)
	}
	if q := bodies["/items/3/quantity"]; q["delta"] != float64(-2) || q["note"] != "used" {
		t.Errorf("quantity body = %v", q)
	}
	if r := bodies["/items/3/restore"]; r["zero_stock"] != false {
		t.Errorf("restore body = %v", r)
	}
}

func TestClient_RejectsInvalidID(t *testing.T) {
	c := newTestClient(t, func(http.ResponseWriter, *http.Request) {
		t.Error("request sent for invalid id")
	})
	if err := c.Return(context.Background(), "tok", 0, ""); err == nil {
		t.Error("Return(0) expected error")
	}
}

func TestClient_Summary(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/items/category/Cable/summary" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = io.WriteString(w, `{"items":[{"id":1,"quantity":4}],"history":[]}`)
	})

	summary, err := c.Summary(context.Background(), "tok", " cable ")
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if summary.Category != "Cable" || len(summary.Items) != 1 || summary.Items[0].Quantity != 4 {
		t.Errorf("Summary() = %+v", summary)
	}
}
