package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"flashfeed/internal/apperr"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestRelationSQL(t *testing.T) {
	if got, want := FollowRelation.deleteSQL(), "DELETE FROM follow WHERE follower_id = ? AND followed_id = ?"; got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
	if got, want := LikeRelation.insertSQL(), "INSERT INTO likes (user_id, post_id, created_at) VALUES (?, ?, ?) ON CONFLICT DO NOTHING"; got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
	if got, want := BookmarkRelation.existsSQL(), "SELECT EXISTS (SELECT 1 FROM bookmarks WHERE user_id = ? AND post_id = ?)"; got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestForbidSelfEdges(t *testing.T) {
	err := ForbidSelfEdges(FollowRelation, 3, 3)
	if !errors.Is(err, apperr.ErrBadRequest) {
		t.Errorf("Expected BadRequest for self follow, got %v", err)
	}
	if err := ForbidSelfEdges(FollowRelation, 3, 4); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	// user 3 liking post 3 is not a self edge
	if err := ForbidSelfEdges(LikeRelation, 3, 3); err != nil {
		t.Errorf("Expected like to pass, got %v", err)
	}
}

func TestErrorClassification(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	fk := &pgconn.PgError{Code: "23503"}
	serial := &pgconn.PgError{Code: "40001"}

	if !isUniqueViolation(unique) || !isRetryable(unique) {
		t.Error("Expected unique violation to be retryable")
	}
	if !isForeignKeyViolation(fk) || isRetryable(fk) {
		t.Error("Expected foreign key violation to be final")
	}
	if !isRetryable(serial) {
		t.Error("Expected serialization failure to be retryable")
	}

	tg := &Toggler{}
	if err := tg.classify(LikeRelation, fk); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Expected NotFound, got %v", err)
	}
	if err := tg.classify(LikeRelation, unique); !errors.Is(err, apperr.ErrInternal) {
		t.Errorf("Expected Internal, got %v", err)
	}
	if err := tg.classify(LikeRelation, context.DeadlineExceeded); apperr.StatusOf(err) != 504 {
		t.Errorf("Expected timeout, got %v", err)
	}
}

func TestStoreErrKeepsAppErrors(t *testing.T) {
	nf := apperr.NotFound("No user: x")
	if err := storeErr(nf, "resolve"); err != nf {
		t.Errorf("Expected the same error back, got %v", err)
	}
	if err := storeErr(errors.New("conn reset"), "resolve"); apperr.StatusOf(err) != 500 {
		t.Errorf("Expected 500, got %d", apperr.StatusOf(err))
	}
	if storeErr(nil, "resolve") != nil {
		t.Error("Expected nil")
	}
}

func TestEscapeLike(t *testing.T) {
	if got := escapeLike(`50%_off\`); got != `50\%\_off\\` {
		t.Errorf("Unexpected escape: %q", got)
	}
}
