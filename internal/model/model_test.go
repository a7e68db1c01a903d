package model

import (
	"encoding/json"
	"testing"
)

func TestAnimeIDAcceptsNumberAndString(t *testing.T) {
	cases := []struct {
		in   string
		want AnimeID
	}{
		{`{"animeId": 42}`, "42"},
		{`{"animeId": "42"}`, "42"},
		{`{"animeId": " 7 "}`, "7"},
		{`{"animeId": null}`, ""},
		{`{}`, ""},
	}
	for _, tc := range cases {
		var req struct {
			AnimeID AnimeID `json:"animeId"`
		}
		if err := json.Unmarshal([]byte(tc.in), &req); err != nil {
			t.Fatalf("unmarshal %s: %v", tc.in, err)
		}
		if req.AnimeID != tc.want {
			t.Fatalf("%s: got %q want %q", tc.in, req.AnimeID, tc.want)
		}
	}

	var bad struct {
		AnimeID AnimeID `json:"animeId"`
	}
	if err := json.Unmarshal([]byte(`{"animeId": true}`), &bad); err == nil {
		t.Fatalf("expected error for boolean animeId")
	}
}

func TestStatsDeltaApplyAndColumns(t *testing.T) {
	var d StatsDelta
	d.AddStatus(StatusWatching, -1)
	d.AddStatus(StatusWatched, 1)
	if d.IsZero() {
		t.Fatalf("delta should not be zero")
	}

	stats := UserStats{TotalAnime: 1, Watching: 1}
	stats.Apply(d)
	if stats.Watching != 0 || stats.Watched != 1 || stats.TotalAnime != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	cols := d.Columns()
	if len(cols) != 2 || cols["stats_watching"] != -1 || cols["stats_watched"] != 1 {
		t.Fatalf("unexpected columns: %+v", cols)
	}
	if !(StatsDelta{}).IsZero() {
		t.Fatalf("empty delta should be zero")
	}
}

func TestTally(t *testing.T) {
	records := []*Collection{
		{Status: StatusWishlist},
		{Status: StatusWatching, IsLiked: true},
		{Status: StatusWatching},
		{Status: StatusWatched, IsLiked: true},
	}
	got := Tally(records)
	want := UserStats{TotalAnime: 4, Wishlist: 1, Watching: 2, Watched: 1, TotalLikes: 2}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
	if got.Wishlist+got.Watching+got.Watched != got.TotalAnime {
		t.Fatalf("status counts must sum to total")
	}
}

func TestAnimePayloadWithIDCopies(t *testing.T) {
	p := AnimePayload{"name": "Frieren"}
	out := p.WithID(400602)
	if out["id"] != int64(400602) {
		t.Fatalf("missing normalized id: %+v", out)
	}
	if _, ok := p["id"]; ok {
		t.Fatalf("original payload must not be modified")
	}
}

func TestCollectionStatusValid(t *testing.T) {
	for _, s := range []CollectionStatus{StatusWishlist, StatusWatching, StatusWatched} {
		if !s.Valid() {
			t.Fatalf("%s should be valid", s)
		}
	}
	if CollectionStatus("dropped").Valid() || CollectionStatus("").Valid() {
		t.Fatalf("unexpected valid status")
	}
}

func TestContributionDeltaOfPatch(t *testing.T) {
	old := &Collection{Status: StatusWishlist}
	updated := *old
	watched := StatusWatched
	liked := true
	CollectionPatch{Status: &watched, IsLiked: &liked, UpdateTime: 9}.ApplyTo(&updated)

	if updated.Status != StatusWatched || !updated.IsLiked || updated.UpdateTime != 9 {
		t.Fatalf("patch not applied: %+v", updated)
	}
	got := Contribution(&updated).Sub(Contribution(old))
	want := StatsDelta{Wishlist: -1, Watched: 1, TotalLikes: 1}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
	if d := Contribution(old).Sub(Contribution(old)); !d.IsZero() {
		t.Fatalf("unchanged record must contribute nothing: %+v", d)
	}
}
