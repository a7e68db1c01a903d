package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/user/animelog/internal/model"
)

func TestMemoryCounterNext(t *testing.T) {
	ctx := context.Background()
	repos := NewMemoryRepositories()

	for i, want := range []int64{100000, 100001, 100002} {
		got, err := repos.Counter.Next(ctx, "user_uid", 100000)
		if err != nil {
			t.Fatalf("next #%d: %v", i, err)
		}
		if got != want {
			t.Fatalf("next #%d: got %d want %d", i, got, want)
		}
	}

	created, err := repos.Counter.Seed(ctx, "user_uid", 100000)
	if err != nil || created {
		t.Fatalf("seed on existing counter: created=%v err=%v", created, err)
	}
	c, _ := repos.Counter.Get(ctx, "user_uid")
	if c == nil || c.Seq != 100002 {
		t.Fatalf("seed must not reset the sequence: %+v", c)
	}
}

func TestMemoryCollectionUniquePerUserAndTitle(t *testing.T) {
	ctx := context.Background()
	repos := NewMemoryRepositories()

	first := &model.Collection{ID: "c1", UserID: "u1", AnimeID: "42", Status: model.StatusWishlist}
	if err := repos.Collection.Create(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := &model.Collection{ID: "c2", UserID: "u1", AnimeID: "42", Status: model.StatusWatching}
	if err := repos.Collection.Create(ctx, dup); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	other := &model.Collection{ID: "c3", UserID: "u2", AnimeID: "42", Status: model.StatusWatching}
	if err := repos.Collection.Create(ctx, other); err != nil {
		t.Fatalf("another user may collect the same title: %v", err)
	}
}

func TestMemoryCollectionListOrderAndPaging(t *testing.T) {
	ctx := context.Background()
	repos := NewMemoryRepositories()

	for i, id := range []string{"1", "2", "3"} {
		c := &model.Collection{
			ID: "c" + id, UserID: "u1", AnimeID: id,
			Status: model.StatusWatching, UpdateTime: int64(i + 1),
		}
		if err := repos.Collection.Create(ctx, c); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	list, err := repos.Collection.List(ctx, "u1", "", 2, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].AnimeID != "3" || list[1].AnimeID != "2" {
		t.Fatalf("unexpected first page: %+v", list)
	}
	list, _ = repos.Collection.List(ctx, "u1", "", 2, 2)
	if len(list) != 1 || list[0].AnimeID != "1" {
		t.Fatalf("unexpected second page: %+v", list)
	}
	list, _ = repos.Collection.List(ctx, "u1", "", 2, 4)
	if len(list) != 0 {
		t.Fatalf("page past the end must be empty: %+v", list)
	}

	n, _ := repos.Collection.CountByUser(ctx, "u1", model.StatusWishlist)
	if n != 0 {
		t.Fatalf("status filter: got %d", n)
	}
}

func TestMemoryUserPhoneUnique(t *testing.T) {
	ctx := context.Background()
	repos := NewMemoryRepositories()

	for _, u := range []*model.User{
		{ID: "u1", OpenID: "o1", UID: "100000"},
		{ID: "u2", OpenID: "o2", UID: "100001"},
	} {
		if err := repos.User.Create(ctx, u); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	phone := "13800138000"
	if err := repos.User.Update(ctx, "u1", model.UserPatch{Phone: &phone}); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := repos.User.Update(ctx, "u2", model.UserPatch{Phone: &phone}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	owner, _ := repos.User.FindByPhone(ctx, phone)
	if owner == nil || owner.ID != "u1" {
		t.Fatalf("phone owner changed: %+v", owner)
	}
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repos := NewMemoryRepositories()
	if err := repos.User.Create(ctx, &model.User{ID: "u1", OpenID: "o1", UID: "100000", Nickname: "Alice"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	u, _ := repos.User.FindByOpenID(ctx, "o1")
	u.Nickname = "mutated"
	again, _ := repos.User.FindByOpenID(ctx, "o1")
	if again.Nickname != "Alice" {
		t.Fatalf("store shares memory with caller")
	}
}

func TestMemorySearchCache(t *testing.T) {
	ctx := context.Background()
	repos := NewMemoryRepositories()
	items := []*model.AnimeSearchCache{
		{BangumiID: 1, Name: "Sousou no Frieren", NameCn: "葬送的芙莉莲", UpdateTime: 10, ExpireTime: 100},
		{BangumiID: 2, Name: "Frieren (expired)", UpdateTime: 20, ExpireTime: 50},
		{BangumiID: 3, Name: "a.b", UpdateTime: 30, ExpireTime: 100},
	}
	for _, it := range items {
		if err := repos.CatalogCache.SaveSearchItem(ctx, it); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	got, err := repos.CatalogCache.SearchCached(ctx, "frieren", 60, 20)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].BangumiID != 1 {
		t.Fatalf("expected only the unexpired match: %+v", got)
	}
	got, _ = repos.CatalogCache.SearchCached(ctx, "芙莉莲", 60, 20)
	if len(got) != 1 {
		t.Fatalf("localized name must match: %+v", got)
	}
	got, _ = repos.CatalogCache.SearchCached(ctx, ".", 60, 20)
	if len(got) != 1 || got[0].BangumiID != 3 {
		t.Fatalf("keyword must match literally: %+v", got)
	}

	// 同一条目再次写入只刷新，不新增
	refresh := &model.AnimeSearchCache{BangumiID: 1, Name: "Sousou no Frieren", UpdateTime: 70, ExpireTime: 200}
	if err := repos.CatalogCache.SaveSearchItem(ctx, refresh); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	n, _ := repos.CatalogCache.CountSearch(ctx)
	if n != 3 {
		t.Fatalf("expected 3 rows, got %d", n)
	}
}

func TestMemoryListRejectsNegativeOffset(t *testing.T) {
	ctx := context.Background()
	repos := NewMemoryRepositories()
	c := &model.Collection{ID: "c1", UserID: "u1", AnimeID: "1", Status: model.StatusWatching}
	if err := repos.Collection.Create(ctx, c); err != nil {
		t.Fatalf("create: %v", err)
	}

	list, err := repos.Collection.List(ctx, "u1", "", 20, -20)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("negative offset must yield an empty page: %+v", list)
	}
}

func TestMemoryCollectionWritesMaintainStats(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	repos := store.Repositories()
	if err := repos.User.Create(ctx, &model.User{ID: "u1", OpenID: "o1", UID: "100000"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	stats := func() model.UserStats {
		u, _ := repos.User.FindByOpenID(ctx, "o1")
		return u.Stats
	}

	c := &model.Collection{ID: "c1", UserID: "u1", AnimeID: "42", Status: model.StatusWishlist}
	if err := repos.Collection.Create(ctx, c); err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := stats(); got != (model.UserStats{TotalAnime: 1, Wishlist: 1}) {
		t.Fatalf("after create: %+v", got)
	}

	watched, liked := model.StatusWatched, true
	if err := repos.Collection.Update(ctx, "c1", model.CollectionPatch{Status: &watched, IsLiked: &liked}); err != nil {
		t.Fatalf("update: %v", err)
	}
	// 重复写入相同的值不应重复计数
	if err := repos.Collection.Update(ctx, "c1", model.CollectionPatch{Status: &watched, IsLiked: &liked}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := stats(); got != (model.UserStats{TotalAnime: 1, Watched: 1, TotalLikes: 1}) {
		t.Fatalf("after update: %+v", got)
	}

	deleted, err := repos.Collection.Delete(ctx, "c1")
	if err != nil || !deleted {
		t.Fatalf("delete: %v %v", deleted, err)
	}
	if deleted, _ := repos.Collection.Delete(ctx, "c1"); deleted {
		t.Fatalf("second delete must report nothing deleted")
	}
	if got := stats(); got != (model.UserStats{}) {
		t.Fatalf("after delete: %+v", got)
	}
}

func TestMemoryRecomputeStats(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	repos := store.Repositories()
	if err := repos.User.Create(ctx, &model.User{ID: "u1", OpenID: "o1", UID: "100000"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	c := &model.Collection{ID: "c1", UserID: "u1", AnimeID: "42", Status: model.StatusWatching, IsLiked: true}
	if err := repos.Collection.Create(ctx, c); err != nil {
		t.Fatalf("create: %v", err)
	}
	drift := model.UserStats{TotalAnime: 9}
	store.OverwriteStats("u1", drift)

	before, after, err := repos.User.RecomputeStats(ctx, "u1")
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	want := model.UserStats{TotalAnime: 1, Watching: 1, TotalLikes: 1}
	if before != drift || after != want {
		t.Fatalf("got before=%+v after=%+v", before, after)
	}
	if _, _, err := repos.User.RecomputeStats(ctx, "missing"); err == nil {
		t.Fatalf("unknown user must fail")
	}
}
