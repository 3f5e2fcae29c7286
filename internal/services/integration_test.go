package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"flashfeed/internal/apperr"
	"flashfeed/internal/db"
	"flashfeed/internal/models"
	"flashfeed/internal/utils"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// testEnv wires the services against a real Postgres. Tests using it are
// skipped unless TEST_DATABASE_URL is set.
type testEnv struct {
	db       *gorm.DB
	lookup   *Lookup
	toggler  *Toggler
	feed     *Feed
	users    *Users
	posts    *Posts
	comments *Comments
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	conn, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := conn.Exec("TRUNCATE users, post, comment, follow, likes, bookmarks RESTART IDENTITY CASCADE").Error; err != nil {
		t.Fatalf("truncate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
	})

	cache, err := utils.NewCache[string, uint](100, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	lookup := NewLookup(conn, cache)
	feed := NewFeed(conn, lookup, 10)
	return &testEnv{
		db:       conn,
		lookup:   lookup,
		toggler:  NewToggler(conn, lookup, nil),
		feed:     feed,
		users:    NewUsers(conn, lookup, bcrypt.MinCost),
		posts:    NewPosts(conn, lookup, feed, nil),
		comments: NewComments(conn, lookup, nil),
	}
}

func (e *testEnv) newUser(t *testing.T, username string) uint {
	t.Helper()
	u, err := e.users.Register(context.Background(), RegisterInput{
		Username:  username,
		Password:  "password",
		FirstName: "Test",
		LastName:  username,
		Email:     username + "@example.com",
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return u.ID
}

func (e *testEnv) newPost(t *testing.T, userID uint, text string, private bool) uint {
	t.Helper()
	p, err := e.posts.Create(context.Background(), CreatePostInput{UserID: userID, TxtContent: text, IsPrivate: private})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	return p.PostID
}

func (e *testEnv) countEdges(t *testing.T, rel Relation, a, b uint) int64 {
	t.Helper()
	var n int64
	q := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ? AND %s = ?", rel.Table, rel.ColumnA, rel.ColumnB)
	if err := e.db.Raw(q, a, b).Scan(&n).Error; err != nil {
		t.Fatal(err)
	}
	return n
}

func TestToggleTwiceLeavesNoRow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.newUser(t, "alice")
	p := env.newPost(t, u, "hello", false)

	for _, rel := range []Relation{LikeRelation, BookmarkRelation} {
		first, err := env.toggler.Toggle(ctx, rel, ref(u), ref(p))
		if err != nil || !first {
			t.Fatalf("%s: expected true, got %v (%v)", rel.Name, first, err)
		}
		second, err := env.toggler.Toggle(ctx, rel, ref(u), ref(p))
		if err != nil || second {
			t.Fatalf("%s: expected false, got %v (%v)", rel.Name, second, err)
		}
		if n := env.countEdges(t, rel, u, p); n != 0 {
			t.Errorf("%s: expected 0 rows, got %d", rel.Name, n)
		}
	}
}

func TestFollowScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.newUser(t, "u1")
	u2 := env.newUser(t, "u2")

	on, err := env.toggler.Toggle(ctx, FollowRelation, "u1", "u2")
	if err != nil || !on {
		t.Fatalf("Expected follow to be created, got %v (%v)", on, err)
	}
	if ok, _ := env.toggler.IsEdgePresent(ctx, FollowRelation, ref(u1), ref(u2)); !ok {
		t.Error("Expected u1 -> u2")
	}
	if ok, _ := env.toggler.IsEdgePresent(ctx, FollowRelation, ref(u2), ref(u1)); ok {
		t.Error("Follow must be directed")
	}

	followers, err := env.users.Followers(ctx, "u2")
	if err != nil || len(followers) != 1 || followers[0].Username != "u1" {
		t.Errorf("Expected u1 as follower, got %v (%v)", followers, err)
	}
	profile, err := env.users.Get(ctx, "u1")
	if err != nil || profile.FollowingCount != 1 || profile.FollowersCount != 0 {
		t.Errorf("Unexpected counts %+v (%v)", profile, err)
	}

	off, err := env.toggler.Toggle(ctx, FollowRelation, ref(u1), "u2")
	if err != nil || off {
		t.Fatalf("Expected follow to be removed, got %v (%v)", off, err)
	}
	if n := env.countEdges(t, FollowRelation, u1, u2); n != 0 {
		t.Errorf("Expected edge gone, got %d rows", n)
	}
}

func TestToggleMissingEndpoint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.newUser(t, "bob")
	p := env.newPost(t, u, "post", false)

	cases := []struct {
		rel  Relation
		a, b string
	}{
		{LikeRelation, "ghost", ref(p)},
		{LikeRelation, ref(u), "9999"},
		{BookmarkRelation, ref(u), "abc"},
		{FollowRelation, "bob", "nobody"},
	}
	for _, tc := range cases {
		_, err := env.toggler.Toggle(ctx, tc.rel, tc.a, tc.b)
		if !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("%s(%s, %s): expected NotFound, got %v", tc.rel.Name, tc.a, tc.b, err)
		}
		if _, err := env.toggler.IsEdgePresent(ctx, tc.rel, tc.a, tc.b); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("IsEdgePresent %s: expected NotFound, got %v", tc.rel.Name, err)
		}
	}

	var n int64
	env.db.Model(&models.Like{}).Count(&n)
	if n != 0 {
		t.Errorf("Expected no likes written, got %d", n)
	}
}

func TestSelfEdgeGuard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.newUser(t, "narcissus")

	on, err := env.toggler.Toggle(ctx, FollowRelation, "narcissus", "narcissus")
	if err != nil || !on {
		t.Fatalf("Self follow should be allowed by default, got %v (%v)", on, err)
	}

	env.toggler.Guard = ForbidSelfEdges
	if _, err := env.toggler.Toggle(ctx, FollowRelation, "narcissus", "narcissus"); !errors.Is(err, apperr.ErrBadRequest) {
		t.Errorf("Expected BadRequest with guard, got %v", err)
	}
}

func TestCountsMatchEdges(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := env.newUser(t, "author")
	p := env.newPost(t, author, "popular", false)

	var likers []uint
	for i := 0; i < 3; i++ {
		id := env.newUser(t, fmt.Sprintf("fan%d", i))
		likers = append(likers, id)
		if _, err := env.toggler.Toggle(ctx, LikeRelation, ref(id), ref(p)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := env.comments.Create(ctx, p, likers[0], "nice"); err != nil {
		t.Fatal(err)
	}

	view, err := env.feed.GetPost(ctx, likers[0], p)
	if err != nil {
		t.Fatal(err)
	}
	if view.NumLikes != 3 || view.NumComments != 1 || !view.IsLiked || view.IsBookmarked {
		t.Errorf("Unexpected view %+v", view)
	}

	if _, err := env.toggler.Toggle(ctx, LikeRelation, ref(likers[0]), ref(p)); err != nil {
		t.Fatal(err)
	}
	view, _ = env.feed.GetPost(ctx, likers[0], p)
	if view.NumLikes != 2 || view.IsLiked {
		t.Errorf("Expected 2 likes and not liked, got %+v", view)
	}
	viewAuthor, _ := env.feed.GetPost(ctx, author, p)
	if viewAuthor.IsLiked {
		t.Error("isLiked must be relative to the viewer")
	}
}

func TestListPostsPagination(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.newUser(t, "writer")
	for i := 0; i < 12; i++ {
		env.newPost(t, u, fmt.Sprintf("post %d", i), false)
	}

	cases := []struct{ page, want int }{{0, 10}, {1, 10}, {2, 2}, {3, 0}}
	for _, tc := range cases {
		posts, err := env.feed.ListPosts(ctx, u, tc.page, 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(posts) != tc.want {
			t.Errorf("page %d: expected %d posts, got %d", tc.page, tc.want, len(posts))
		}
	}

	page1, _ := env.feed.ListPosts(ctx, u, 1, 0)
	for i := 1; i < len(page1); i++ {
		if page1[i].Timestamp.After(page1[i-1].Timestamp) {
			t.Fatal("Expected newest first")
		}
	}
}

func TestPrivacyFilter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.newUser(t, "owner")
	other := env.newUser(t, "other")
	env.newPost(t, owner, "public", false)
	secret := env.newPost(t, owner, "secret", true)

	mine, _ := env.feed.ListPosts(ctx, owner, 1, 0)
	theirs, _ := env.feed.ListPosts(ctx, other, 1, 0)
	if len(mine) != 2 || len(theirs) != 1 {
		t.Errorf("Expected 2 and 1 visible posts, got %d and %d", len(mine), len(theirs))
	}
	for _, p := range theirs {
		if p.IsPrivate {
			t.Error("Private post leaked to another viewer")
		}
	}

	byAuthor, _ := env.feed.ListPostsByAuthor(ctx, other, "owner")
	if len(byAuthor) != 1 {
		t.Errorf("Expected 1 post by author for other viewer, got %d", len(byAuthor))
	}
	if _, err := env.feed.GetPost(ctx, other, secret); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Expected NotFound for private post, got %v", err)
	}

	private, err := env.posts.TogglePrivacy(ctx, secret, owner)
	if err != nil || private {
		t.Fatalf("Expected post to become public, got %v (%v)", private, err)
	}
	if _, err := env.feed.GetPost(ctx, other, secret); err != nil {
		t.Errorf("Expected post visible after toggle, got %v", err)
	}
	if _, err := env.posts.TogglePrivacy(ctx, secret, other); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Expected NotFound for non-owner, got %v", err)
	}
}

func TestFollowingFeedAndSavedLists(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	reader := env.newUser(t, "reader")
	star := env.newUser(t, "star")
	stranger := env.newUser(t, "stranger")
	p := env.newPost(t, star, "from star", false)
	env.newPost(t, stranger, "from stranger", false)

	env.toggler.Toggle(ctx, FollowRelation, ref(reader), ref(star))
	env.toggler.Toggle(ctx, BookmarkRelation, ref(reader), ref(p))
	env.toggler.Toggle(ctx, LikeRelation, ref(reader), ref(p))

	feed, err := env.feed.ListFollowing(ctx, reader, 1, 0)
	if err != nil || len(feed) != 1 || feed[0].UserID != star {
		t.Errorf("Expected only the followed author's post, got %v (%v)", feed, err)
	}
	saved, _ := env.feed.ListBookmarked(ctx, reader, "reader")
	if len(saved) != 1 || !saved[0].IsBookmarked {
		t.Errorf("Unexpected bookmarks %v", saved)
	}
	liked, _ := env.feed.ListLiked(ctx, stranger, "reader")
	if len(liked) != 1 || liked[0].IsLiked {
		t.Errorf("Expected reader's like listed without viewer like flag, got %v", liked)
	}
}

func TestDeletePostCascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.newUser(t, "temp")
	p := env.newPost(t, u, "short lived", false)
	env.toggler.Toggle(ctx, LikeRelation, ref(u), ref(p))
	env.comments.Create(ctx, p, u, "first")

	deleted, err := env.posts.Delete(ctx, p)
	if err != nil || deleted.ID != p || deleted.TxtContent != "short lived" {
		t.Fatalf("Unexpected delete result %+v (%v)", deleted, err)
	}
	if n := env.countEdges(t, LikeRelation, u, p); n != 0 {
		t.Errorf("Expected likes removed, got %d", n)
	}
	if _, err := env.posts.Delete(ctx, p); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Expected NotFound on second delete, got %v", err)
	}
}

func TestRegisterAndAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.newUser(t, "carol")

	if _, err := env.users.Register(ctx, RegisterInput{Username: "carol", Password: "x"}); !errors.Is(err, apperr.ErrBadRequest) {
		t.Errorf("Expected duplicate username error, got %v", err)
	}
	if _, err := env.users.Authenticate(ctx, "carol", "password"); err != nil {
		t.Errorf("Expected login to succeed, got %v", err)
	}
	if _, err := env.users.Authenticate(ctx, "carol", "wrong"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("Expected Unauthorized, got %v", err)
	}

	email := "new@example.com"
	u, err := env.users.Update(ctx, "carol", UpdateUserInput{Email: &email})
	if err != nil || u.Email != email {
		t.Errorf("Expected email updated, got %+v (%v)", u, err)
	}
	found, _ := env.users.Search(ctx, "CAR")
	if len(found) != 1 || found[0].Username != "carol" {
		t.Errorf("Expected search hit, got %v", found)
	}
}

func TestNumericUsernameRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	first := env.newUser(t, "first")
	env.newUser(t, "user2")

	if _, err := env.users.Register(ctx, RegisterInput{Username: ref(first + 1), Password: "password"}); !errors.Is(err, apperr.ErrBadRequest) {
		t.Errorf("Expected BadRequest for numeric username, got %v", err)
	}
	id, err := env.lookup.ResolveUserID(ctx, "user2")
	if err != nil || id != first+1 {
		t.Errorf("Expected user2 by name to be %d, got %d (%v)", first+1, id, err)
	}
	id, err = env.lookup.ResolveUserID(ctx, ref(first))
	if err != nil || id != first {
		t.Errorf("Expected numeric ref to resolve by id, got %d (%v)", id, err)
	}
}

func TestPrivatePostHiddenFromEdgesAndComments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.newUser(t, "owner")
	other := env.newUser(t, "other")
	secret := env.newPost(t, owner, "secret", true)

	for _, rel := range []Relation{LikeRelation, BookmarkRelation} {
		if _, err := env.toggler.Toggle(ctx, rel, ref(other), ref(secret)); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("%s: expected NotFound for another user's private post, got %v", rel.Name, err)
		}
		if n := env.countEdges(t, rel, other, secret); n != 0 {
			t.Errorf("%s: expected no row, got %d", rel.Name, n)
		}
	}
	if _, err := env.toggler.IsEdgePresent(ctx, LikeRelation, ref(other), ref(secret)); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Expected NotFound from is-liked, got %v", err)
	}
	if _, err := env.comments.Create(ctx, secret, other, "hi"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Expected NotFound when commenting, got %v", err)
	}

	if liked, err := env.toggler.Toggle(ctx, LikeRelation, ref(owner), ref(secret)); err != nil || !liked {
		t.Errorf("Expected owner to like own private post, got %v (%v)", liked, err)
	}
	if _, err := env.comments.Create(ctx, secret, owner, "note"); err != nil {
		t.Errorf("Expected owner comment to succeed, got %v", err)
	}
}

func TestConcurrentLikeLeavesOneRow(t *testing.T) {
	env := newTestEnv(t)
	u := env.newUser(t, "racer")
	p := env.newPost(t, u, "contested", false)

	// 两个请求都在 DELETE 之后等待对方，保证同时进入 INSERT
	var arrived int32
	gate := make(chan struct{})
	env.toggler.beforeInsert = func() {
		if atomic.AddInt32(&arrived, 1) == 2 {
			close(gate)
		}
		select {
		case <-gate:
		case <-time.After(5 * time.Second):
		}
	}

	var wg sync.WaitGroup
	results := make([]bool, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = env.toggler.Toggle(context.Background(), LikeRelation, ref(u), ref(p))
		}(i)
	}
	wg.Wait()

	for i := range errs {
		if errs[i] != nil {
			t.Fatalf("toggle %d failed: %v", i, errs[i])
		}
		if !results[i] {
			t.Errorf("toggle %d: expected true, got false", i)
		}
	}
	if n := env.countEdges(t, LikeRelation, u, p); n != 1 {
		t.Errorf("Expected exactly one row, got %d", n)
	}
}

func TestToggleHonoursDeadline(t *testing.T) {
	env := newTestEnv(t)
	u := env.newUser(t, "slow")
	p := env.newPost(t, u, "late", false)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	env.toggler.beforeInsert = func() { <-ctx.Done() }

	_, err := env.toggler.Toggle(ctx, LikeRelation, ref(u), ref(p))
	if err == nil {
		t.Fatal("Expected the toggle to fail after the deadline")
	}
	if n := env.countEdges(t, LikeRelation, u, p); n != 0 {
		t.Errorf("Expected no partial write, got %d rows", n)
	}
}
