package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/user/animelog/internal/model"
	"github.com/user/animelog/internal/repository"
)

func TestInitCountersIsIdempotent(t *testing.T) {
	repos := repository.NewMemoryRepositories()
	svc := NewMaintenanceService(repos, 0)
	ctx := context.Background()

	res, err := svc.InitCounters(ctx)
	if err != nil {
		t.Fatalf("init counters: %v", err)
	}
	if !res.Created || res.Counter == nil || res.Counter.Seq != UIDSeed {
		t.Fatalf("unexpected first init: %+v", res)
	}

	res, err = svc.InitCounters(ctx)
	if err != nil || res.Created {
		t.Fatalf("second init must not recreate: %+v %v", res, err)
	}

	// 预先初始化后，第一个用户拿到的是 seed 之后的值
	users := NewUserService(repos, testAvatar)
	login, err := users.Login(ctx, "openid-a", LoginInput{Nickname: "A", Avatar: "a.png"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if login.User.UID != "100001" {
		t.Fatalf("unexpected uid %s", login.User.UID)
	}
}

func TestCheckStatusAndInitAll(t *testing.T) {
	repos := repository.NewMemoryRepositories()
	svc := NewMaintenanceService(repos, 0)
	ctx := context.Background()

	steps, err := svc.InitAll(ctx)
	if err != nil {
		t.Fatalf("init all: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("unexpected steps: %+v", steps)
	}
	status, ok := steps[1].Result.(map[string]TableStatus)
	if !ok {
		t.Fatalf("unexpected status result: %T", steps[1].Result)
	}
	for _, table := range []string{"users", "collections", "watch_history", "counters", "anime_cache", "anime_search_cache"} {
		st, ok := status[table]
		if !ok || !st.Exists {
			t.Fatalf("missing table status %s: %+v", table, status)
		}
	}
	if status["counters"].Count != 1 || status["users"].Count != 0 {
		t.Fatalf("unexpected counts: %+v", status)
	}
}

func TestReconcileStatsRepairsDriftAndMigratesLegacyLikes(t *testing.T) {
	store := repository.NewMemoryStore()
	repos := store.Repositories()
	ctx := context.Background()

	users := NewUserService(repos, testAvatar)
	collections := NewCollectionService(repos)
	login, err := users.Login(ctx, "openid-a", LoginInput{Nickname: "A", Avatar: "a.png"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	for _, id := range []string{"1", "2", "3"} {
		if _, err := collections.Add(ctx, "openid-a", AddInput{AnimeID: id, AnimeName: "x", Status: model.StatusWatching}); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	// 模拟两次写入之间崩溃留下的偏差，以及旧版喜欢列表
	store.OverwriteStats(login.User.ID, model.UserStats{TotalAnime: 7, Watching: 1})
	store.SeedLegacyLikes(login.User.ID, "2", "99")

	svc := NewMaintenanceService(repos, time.Hour)
	report, err := svc.ReconcileStats(ctx)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if report.Users != 1 || report.Fixed != 1 || report.LegacyMigrated != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}

	view, _ := users.GetStats(ctx, "openid-a")
	want := model.UserStats{TotalAnime: 3, Watching: 3, TotalLikes: 1}
	if view.Stats != want {
		t.Fatalf("got %+v want %+v", view.Stats, want)
	}
	rec, _ := collections.Get(ctx, "openid-a", "2")
	if rec == nil || !rec.IsLiked {
		t.Fatalf("legacy like not migrated: %+v", rec)
	}
	u, _ := repos.User.FindByOpenID(ctx, "openid-a")
	if len(u.LikedAnimes) != 0 {
		t.Fatalf("legacy list should be cleared: %v", u.LikedAnimes)
	}

	// 再跑一次不应有任何变化
	report, err = svc.ReconcileStats(ctx)
	if err != nil || report.Fixed != 0 || report.LegacyMigrated != 0 {
		t.Fatalf("second reconcile should be a no-op: %+v %v", report, err)
	}
}

func TestStartRunsReconcileInBackground(t *testing.T) {
	store := repository.NewMemoryStore()
	repos := store.Repositories()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	users := NewUserService(repos, testAvatar)
	login, err := users.Login(ctx, "openid-a", LoginInput{Nickname: "A", Avatar: "a.png"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	store.OverwriteStats(login.User.ID, model.UserStats{TotalAnime: 5})

	NewMaintenanceService(repos, time.Hour).Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for {
		view, err := users.GetStats(ctx, "openid-a")
		if err != nil {
			t.Fatalf("get stats: %v", err)
		}
		if view.Stats == (model.UserStats{}) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("background reconcile did not run: %+v", view.Stats)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStartDisabledWithZeroInterval(t *testing.T) {
	store := repository.NewMemoryStore()
	repos := store.Repositories()
	ctx := context.Background()

	users := NewUserService(repos, testAvatar)
	login, err := users.Login(ctx, "openid-a", LoginInput{Nickname: "A", Avatar: "a.png"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	drift := model.UserStats{TotalAnime: 5}
	store.OverwriteStats(login.User.ID, drift)

	NewMaintenanceService(repos, 0).Start(ctx)
	time.Sleep(50 * time.Millisecond)

	view, _ := users.GetStats(ctx, "openid-a")
	if view.Stats != drift {
		t.Fatalf("disabled reconcile must not touch stats: %+v", view.Stats)
	}
}

// concurrentUsers 在对账读取用户批次后立即插入一次收藏写入
type concurrentUsers struct {
	repository.UserRepository
	afterList func()
}

func (r *concurrentUsers) List(ctx context.Context, limit, offset int) ([]*model.User, error) {
	users, err := r.UserRepository.List(ctx, limit, offset)
	if r.afterList != nil {
		r.afterList()
		r.afterList = nil
	}
	return users, err
}

func TestReconcileKeepsWritesThatLandMidRun(t *testing.T) {
	repos := repository.NewMemoryRepositories()
	ctx := context.Background()

	users := NewUserService(repos, testAvatar)
	collections := NewCollectionService(repos)
	if _, err := users.Login(ctx, "openid-a", LoginInput{Nickname: "A", Avatar: "a.png"}); err != nil {
		t.Fatalf("login: %v", err)
	}

	wrapped := *repos
	wrapped.User = &concurrentUsers{UserRepository: repos.User, afterList: func() {
		if _, err := collections.Add(ctx, "openid-a", AddInput{AnimeID: "7", AnimeName: "x"}); err != nil {
			t.Fatalf("add: %v", err)
		}
	}}

	if _, err := NewMaintenanceService(&wrapped, 0).ReconcileStats(ctx); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	view, _ := users.GetStats(ctx, "openid-a")
	if view.Stats.TotalAnime != 1 || view.Stats.Wishlist != 1 {
		t.Fatalf("write during reconcile was lost: %+v", view.Stats)
	}
}

func TestReconcileUnderConcurrentMutations(t *testing.T) {
	repos := repository.NewMemoryRepositories()
	ctx := context.Background()

	users := NewUserService(repos, testAvatar)
	collections := NewCollectionService(repos)
	login, err := users.Login(ctx, "openid-a", LoginInput{Nickname: "A", Avatar: "a.png"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	svc := NewMaintenanceService(repos, 0)

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for w := 0; w < 3; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < 200; i++ {
				animeID := fmt.Sprint(rng.Intn(6))
				var err error
				switch rng.Intn(4) {
				case 0:
					_, err = collections.Add(ctx, "openid-a", AddInput{AnimeID: animeID, AnimeName: "x", Status: model.StatusWatching})
				case 1:
					_, err = collections.UpdateStatus(ctx, "openid-a", animeID, model.StatusWatched)
				case 2:
					_, err = collections.ToggleLike(ctx, "openid-a", animeID)
				case 3:
					err = collections.Remove(ctx, "openid-a", animeID)
				}
				// 并发删除可能让重试的添加找不到记录
				if err != nil && KindOf(err) != KindNotFound && !errors.Is(err, repository.ErrDuplicate) {
					errs <- err
					return
				}
			}
		}(int64(w + 1))
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			if _, err := svc.ReconcileStats(ctx); err != nil {
				errs <- err
				return
			}
		}
	}()
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent run: %v", err)
	}

	want := tallyRecords(t, repos, login.User.ID)
	view, _ := users.GetStats(ctx, "openid-a")
	if view.Stats != want {
		t.Fatalf("stats drifted: stored %+v, actual %+v", view.Stats, want)
	}
}
