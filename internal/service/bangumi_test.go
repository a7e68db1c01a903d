package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/user/animelog/internal/model"
)

func newBangumiServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v0/subjects/400602", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "animelog-test/1.0" {
			http.Error(w, "missing user agent", http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(`{"id": 400602, "name": "Sousou no Frieren"}`))
	})
	mux.HandleFunc("/search/subject/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("type") != "2" {
			http.Error(w, "bad type", http.StatusBadRequest)
			return
		}
		if r.URL.Path == "/search/subject/nothing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"results": 2, "list": [{"id": 1, "name": "A"}, {"id": 2, "name": "B"}]}`))
	})
	mux.HandleFunc("/v0/episodes", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("subject_id") != "400602" || q.Get("limit") != "100" || q.Get("offset") != "0" || q.Has("type") {
			http.Error(w, "bad query "+r.URL.RawQuery, http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"data": [{"ep": 1}], "total": 28, "limit": 100, "offset": 0}`))
	})
	mux.HandleFunc("/calendar", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"weekday": {"en": "Mon", "cn": "星期一", "ja": "月耀日", "id": 1}, "items": [{"id": 9}]}]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestBangumiClient(t *testing.T) {
	srv := newBangumiServer(t)
	client := NewBangumiClient(srv.URL+"/", "animelog-test/1.0", time.Second)
	ctx := context.Background()

	raw, err := client.Subject(ctx, 400602)
	if err != nil {
		t.Fatalf("subject: %v", err)
	}
	var subject struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &subject); err != nil || subject.Name != "Sousou no Frieren" {
		t.Fatalf("unexpected subject %s: %v", raw, err)
	}

	if _, err := client.Subject(ctx, 1); err == nil {
		t.Fatalf("expected error for unknown subject")
	}

	list, err := client.Search(ctx, "Frieren", 2)
	if err != nil || len(list) != 2 {
		t.Fatalf("search: %d %v", len(list), err)
	}
	list, err = client.Search(ctx, "nothing", 2)
	if err != nil || len(list) != 0 {
		t.Fatalf("404 search should be empty: %d %v", len(list), err)
	}

	page, err := client.Episodes(ctx, model.EpisodeQuery{SubjectID: 400602, Type: -1, Limit: 100})
	if err != nil {
		t.Fatalf("episodes: %v", err)
	}
	if page.Total != 28 || len(page.Data) != 1 {
		t.Fatalf("unexpected episodes: %+v", page)
	}

	days, err := client.Calendar(ctx)
	if err != nil || len(days) != 1 || days[0].Weekday.Cn != "星期一" || len(days[0].Items) != 1 {
		t.Fatalf("unexpected calendar: %+v %v", days, err)
	}
}

func TestCatalogServiceWithBangumiClient(t *testing.T) {
	srv := newBangumiServer(t)
	f := newCatalogFixture()
	f.svc.source = NewBangumiClient(srv.URL, "animelog-test/1.0", time.Second)
	ctx := context.Background()

	if _, from, err := f.svc.Detail(ctx, "400602"); err != nil || from != FromAPI {
		t.Fatalf("detail: %v %v", from, err)
	}
	if _, from, err := f.svc.Detail(ctx, "400602"); err != nil || from != FromCache {
		t.Fatalf("detail from cache: %v %v", from, err)
	}
	if _, _, err := f.svc.Detail(ctx, "1"); KindOf(err) != KindUpstream {
		t.Fatalf("expected upstream error, got %v", err)
	}
}
