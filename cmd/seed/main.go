// Command seed fills a development database with fake users, posts and
// relationships. It goes through the services so every row passes the same
// checks as API traffic.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"flashfeed/internal/config"
	"flashfeed/internal/db"
	"flashfeed/internal/services"
	"flashfeed/internal/utils"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/joho/godotenv"
)

func main() {
	numUsers := flag.Int("users", 20, "number of users to create")
	postsPerUser := flag.Int("posts", 5, "posts per user")
	edges := flag.Int("edges", 100, "follows, likes and bookmarks to toggle (each)")
	password := flag.String("password", "password", "password for every seeded user")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, finding env vars from system")
	}
	cfg := config.Load()
	conn := db.Init(cfg.DatabaseURL)

	cache, err := utils.NewCache[string, uint](cfg.LookupCacheSize, cfg.LookupCacheTTL)
	if err != nil {
		log.Fatal(err)
	}
	lookup := services.NewLookup(conn, cache)
	feed := services.NewFeed(conn, lookup, cfg.PageSize)
	users := services.NewUsers(conn, lookup, 4)
	posts := services.NewPosts(conn, lookup, feed, nil)
	comments := services.NewComments(conn, lookup, nil)
	toggler := services.NewToggler(conn, lookup, nil)

	ctx := context.Background()
	gofakeit.Seed(time.Now().UnixNano())

	var userIDs, postIDs []uint
	for i := 0; i < *numUsers; i++ {
		username := fmt.Sprintf("%s%d", gofakeit.Username(), i)
		if len(username) > 25 {
			username = username[len(username)-25:]
		}
		u, err := users.Register(ctx, services.RegisterInput{
			Username:  username,
			Password:  *password,
			FirstName: gofakeit.FirstName(),
			LastName:  gofakeit.LastName(),
			Email:     gofakeit.Email(),
			ImageURL:  gofakeit.ImageURL(200, 200),
		})
		if err != nil {
			log.Printf("skip user %s: %v", username, err)
			continue
		}
		userIDs = append(userIDs, u.ID)

		for j := 0; j < *postsPerUser; j++ {
			p, err := posts.Create(ctx, services.CreatePostInput{
				UserID:     u.ID,
				TxtContent: gofakeit.Sentence(gofakeit.Number(5, 25)),
				IsPrivate:  gofakeit.Number(1, 10) == 1,
			})
			if err != nil {
				log.Printf("skip post: %v", err)
				continue
			}
			postIDs = append(postIDs, p.PostID)
		}
	}
	if len(userIDs) < 2 || len(postIDs) == 0 {
		log.Fatal("not enough users or posts to build relationships")
	}

	pickUser := func() string { return fmt.Sprint(userIDs[gofakeit.Number(0, len(userIDs)-1)]) }
	pickPost := func() string { return fmt.Sprint(postIDs[gofakeit.Number(0, len(postIDs)-1)]) }

	var follows, likes, bookmarks int
	for i := 0; i < *edges; i++ {
		follows += edgeDelta(toggler.Toggle(ctx, services.FollowRelation, pickUser(), pickUser()))
		likes += edgeDelta(toggler.Toggle(ctx, services.LikeRelation, pickUser(), pickPost()))
		bookmarks += edgeDelta(toggler.Toggle(ctx, services.BookmarkRelation, pickUser(), pickPost()))
		postID := postIDs[gofakeit.Number(0, len(postIDs)-1)]
		userID := userIDs[gofakeit.Number(0, len(userIDs)-1)]
		if _, err := comments.Create(ctx, postID, userID, gofakeit.Sentence(8)); err != nil {
			log.Printf("skip comment: %v", err)
		}
	}

	log.Printf("Seeded %d users, %d posts, %d follows, %d likes, %d bookmarks", len(userIDs), len(postIDs), follows, likes, bookmarks)
}

// edgeDelta is the change in stored rows caused by one toggle. A pair can be
// picked twice, so counting only "on" results would overstate the total.
func edgeDelta(on bool, err error) int {
	switch {
	case err != nil:
		return 0
	case on:
		return 1
	default:
		return -1
	}
}
