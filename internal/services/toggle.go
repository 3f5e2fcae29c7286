package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"flashfeed/internal/apperr"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

// Relation describes one edge table. ColumnA holds the acting user, ColumnB
// the target, so (a, b) is an ordered pair.
type Relation struct {
	Name    string
	Table   string
	ColumnA string
	ColumnB string
	KindA   EntityKind
	KindB   EntityKind
}

var (
	FollowRelation   = Relation{Name: EventFollow, Table: "follow", ColumnA: "follower_id", ColumnB: "followed_id", KindA: KindUser, KindB: KindUser}
	LikeRelation     = Relation{Name: EventLike, Table: "likes", ColumnA: "user_id", ColumnB: "post_id", KindA: KindUser, KindB: KindPost}
	BookmarkRelation = Relation{Name: EventBookmark, Table: "bookmarks", ColumnA: "user_id", ColumnB: "post_id", KindA: KindUser, KindB: KindPost}
)

func (r Relation) deleteSQL() string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND %s = ?", r.Table, r.ColumnA, r.ColumnB)
}

func (r Relation) insertSQL() string {
	return fmt.Sprintf("INSERT INTO %s (%s, %s, created_at) VALUES (?, ?, ?) ON CONFLICT DO NOTHING", r.Table, r.ColumnA, r.ColumnB)
}

func (r Relation) existsSQL() string {
	return fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE %s = ? AND %s = ?)", r.Table, r.ColumnA, r.ColumnB)
}

// EdgeGuard may veto an edge before any write happens.
type EdgeGuard func(rel Relation, a, b uint) error

// ForbidSelfEdges rejects edges from a user to themselves.
func ForbidSelfEdges(rel Relation, a, b uint) error {
	if rel.KindA == rel.KindB && a == b {
		return apperr.BadRequest("Cannot %s yourself", rel.Name)
	}
	return nil
}

var toggleTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "flashfeed_toggle_total",
	Help: "Relationship toggles by relation and resulting state.",
}, []string{"relation", "state"})

// Toggler flips membership of ordered pairs in edge tables.
type Toggler struct {
	db     *gorm.DB
	lookup *Lookup
	events Publisher
	Guard  EdgeGuard

	beforeInsert func() // test hook, runs after a DELETE that removed nothing
}

func NewToggler(db *gorm.DB, lookup *Lookup, events Publisher) *Toggler {
	if events == nil {
		events = nopPublisher{}
	}
	return &Toggler{db: db, lookup: lookup, events: events}
}

// Toggle removes the edge (a, b) if present, otherwise creates it, and
// returns whether the edge exists afterwards. Both endpoints are resolved
// first so a missing one fails before anything is written.
func (t *Toggler) Toggle(ctx context.Context, rel Relation, refA, refB string) (bool, error) {
	a, b, err := t.resolvePair(ctx, rel, refA, refB)
	if err != nil {
		return false, err
	}
	if t.Guard != nil {
		if err := t.Guard(rel, a, b); err != nil {
			return false, err
		}
	}

	var present bool
	for attempt := 0; ; attempt++ {
		present, err = t.flip(ctx, rel, a, b)
		if err == nil {
			break
		}
		if attempt == 0 && isRetryable(err) {
			log.Printf("toggle %s (%d, %d) raced, retrying: %v", rel.Name, a, b, err)
			continue
		}
		return false, t.classify(rel, err)
	}

	state := "removed"
	if present {
		state = "added"
	}
	toggleTotal.WithLabelValues(rel.Name, state).Inc()
	t.events.Publish(ActivityEvent{Type: rel.Name, ActorID: a, TargetID: b, Active: present})
	return present, nil
}

// flip runs delete-then-insert in one transaction. Whichever statement
// affects a row decides the answer; if neither does, a concurrent toggle got
// there first and the edge is re-read.
func (t *Toggler) flip(ctx context.Context, rel Relation, a, b uint) (bool, error) {
	var present bool
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(rel.deleteSQL(), a, b)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			present = false
			return nil
		}
		if t.beforeInsert != nil {
			t.beforeInsert()
		}

		res = tx.Exec(rel.insertSQL(), a, b, time.Now().UTC())
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			present = true
			return nil
		}

		exists, err := edgeExists(tx, rel, a, b)
		if err != nil {
			return err
		}
		present = exists
		return nil
	})
	return present, err
}

func (t *Toggler) classify(rel Relation, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return err
	case isForeignKeyViolation(err):
		// 端点在解析之后被删除
		return apperr.NotFound("%s target no longer exists", rel.Name)
	case isRetryable(err):
		return apperr.Internal(err, "toggle %s: concurrent update", rel.Name)
	}
	return storeErr(err, "toggle "+rel.Name)
}

// IsEdgePresent reports whether (a, b) is in the relation. Missing endpoints
// are NotFound rather than false.
func (t *Toggler) IsEdgePresent(ctx context.Context, rel Relation, refA, refB string) (bool, error) {
	a, b, err := t.resolvePair(ctx, rel, refA, refB)
	if err != nil {
		return false, err
	}
	exists, err := edgeExists(t.db.WithContext(ctx), rel, a, b)
	if err != nil {
		return false, storeErr(err, "check "+rel.Name)
	}
	return exists, nil
}

func (t *Toggler) resolvePair(ctx context.Context, rel Relation, refA, refB string) (uint, uint, error) {
	a, err := t.lookup.Resolve(ctx, rel.KindA, refA)
	if err != nil {
		return 0, 0, err
	}
	var b uint
	if rel.KindA == KindUser && rel.KindB == KindPost {
		b, err = t.lookup.ResolveVisiblePost(ctx, refB, a)
	} else {
		b, err = t.lookup.Resolve(ctx, rel.KindB, refB)
	}
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

func edgeExists(tx *gorm.DB, rel Relation, a, b uint) (bool, error) {
	var exists bool
	err := tx.Raw(rel.existsSQL(), a, b).Scan(&exists).Error
	return exists, err
}

// ref formats a resolved id back into a reference string.
func ref(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
