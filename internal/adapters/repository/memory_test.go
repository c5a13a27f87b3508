package repository_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/korobprog/supermock-matcher/internal/adapters/repository"
	"github.com/korobprog/supermock-matcher/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// testClock hands out strictly increasing timestamps.
type testClock struct {
	t time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

// sequentialIDs hands out id-1, id-2, ...
func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func testBucket() model.Bucket {
	return model.Bucket{
		Profession: "frontend",
		Language:   "en",
		Slot:       time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC),
	}
}

func TestMemoryQueue(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty in-memory queue", t, func() {
		clock := newTestClock()
		stores := repository.NewMemoryStores(
			repository.WithNow(clock.Now),
			repository.WithIDGenerator(sequentialIDs()),
		)
		queue := stores.Queue()
		bucket := testBucket()

		Convey("When enqueueing a new user", func() {
			entry, created, err := queue.Enqueue(ctx, "u1", model.RoleCandidate, bucket)

			Convey("Then a waiting entry should be created", func() {
				So(err, ShouldBeNil)
				So(created, ShouldBeTrue)
				So(entry.ID, ShouldEqual, "id-1")
				So(entry.Status, ShouldEqual, model.EntryWaiting)
				So(entry.BucketOf(), ShouldResemble, bucket)
			})

			Convey("And enqueueing the same tuple again", func() {
				dup, createdAgain, err := queue.Enqueue(ctx, "u1", model.RoleCandidate, bucket)

				Convey("Then the original entry should be returned untouched", func() {
					So(err, ShouldBeNil)
					So(createdAgain, ShouldBeFalse)
					So(dup.ID, ShouldEqual, entry.ID)
					count, _ := queue.CountWaiting(ctx)
					So(count, ShouldEqual, 1)
				})
			})

			Convey("And enqueueing the same user in the opposite role", func() {
				other, createdAgain, err := queue.Enqueue(ctx, "u1", model.RoleInterviewer, bucket)

				Convey("Then a separate entry should be created", func() {
					So(err, ShouldBeNil)
					So(createdAgain, ShouldBeTrue)
					So(other.ID, ShouldNotEqual, entry.ID)
				})
			})
		})

		Convey("When several users enqueue over time", func() {
			first, _, _ := queue.Enqueue(ctx, "u1", model.RoleCandidate, bucket)
			second, _, _ := queue.Enqueue(ctx, "u2", model.RoleCandidate, bucket)
			third, _, _ := queue.Enqueue(ctx, "u3", model.RoleCandidate, bucket)

			Convey("Then ListWaiting should return them in arrival order", func() {
				waiting, err := queue.ListWaiting(ctx, bucket, model.RoleCandidate)
				So(err, ShouldBeNil)
				So(len(waiting), ShouldEqual, 3)
				So(waiting[0].ID, ShouldEqual, first.ID)
				So(waiting[1].ID, ShouldEqual, second.ID)
				So(waiting[2].ID, ShouldEqual, third.ID)
			})

			Convey("Then waiting lists are scoped to role and bucket", func() {
				interviewers, _ := queue.ListWaiting(ctx, bucket, model.RoleInterviewer)
				So(interviewers, ShouldBeEmpty)

				other := bucket
				other.Language = "ru"
				elsewhere, _ := queue.ListWaiting(ctx, other, model.RoleCandidate)
				So(elsewhere, ShouldBeEmpty)
			})
		})

		Convey("When marking a waiting entry matched", func() {
			entry, _, _ := queue.Enqueue(ctx, "u1", model.RoleCandidate, bucket)
			err := queue.MarkMatched(ctx, entry.ID)

			Convey("Then it should leave the waiting list", func() {
				So(err, ShouldBeNil)
				waiting, _ := queue.ListWaiting(ctx, bucket, model.RoleCandidate)
				So(waiting, ShouldBeEmpty)
			})

			Convey("And marking it again should report the lost race", func() {
				So(errors.Is(queue.MarkMatched(ctx, entry.ID), repository.ErrAlreadyMatched), ShouldBeTrue)
			})
		})

		Convey("When marking an unknown entry", func() {
			So(errors.Is(queue.MarkMatched(ctx, "nope"), repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When matching a pair atomically", func() {
			iv, _, _ := queue.Enqueue(ctx, "i1", model.RoleInterviewer, bucket)
			cand, _, _ := queue.Enqueue(ctx, "c1", model.RoleCandidate, bucket)

			Convey("And both entries are still waiting", func() {
				err := queue.MatchPair(ctx, iv.ID, cand.ID)

				Convey("Then both should flip to matched", func() {
					So(err, ShouldBeNil)
					count, _ := queue.CountWaiting(ctx)
					So(count, ShouldEqual, 0)
				})
			})

			Convey("And the candidate was already taken", func() {
				So(queue.MarkMatched(ctx, cand.ID), ShouldBeNil)
				err := queue.MatchPair(ctx, iv.ID, cand.ID)

				Convey("Then the pair should fail and the interviewer stay waiting", func() {
					So(errors.Is(err, repository.ErrAlreadyMatched), ShouldBeTrue)
					waiting, _ := queue.ListWaiting(ctx, bucket, model.RoleInterviewer)
					So(len(waiting), ShouldEqual, 1)
				})
			})
		})

		Convey("When a user withdraws", func() {
			other := bucket
			other.Slot = bucket.Slot.Add(time.Hour)
			queue.Enqueue(ctx, "u1", model.RoleCandidate, bucket)
			queue.Enqueue(ctx, "u1", model.RoleCandidate, other)
			queue.Enqueue(ctx, "u1", model.RoleInterviewer, bucket)
			queue.Enqueue(ctx, "u2", model.RoleCandidate, bucket)

			Convey("And the withdrawal names a role", func() {
				removed, err := queue.RemoveForUser(ctx, "u1", model.RoleCandidate)

				Convey("Then only that role's waiting entries should be cancelled", func() {
					So(err, ShouldBeNil)
					So(removed, ShouldEqual, 2)
					count, _ := queue.CountWaiting(ctx)
					So(count, ShouldEqual, 2)
				})
			})

			Convey("And the withdrawal covers all roles", func() {
				removed, err := queue.RemoveForUser(ctx, "u1", "")

				Convey("Then every waiting entry for the user should go", func() {
					So(err, ShouldBeNil)
					So(removed, ShouldEqual, 3)
					count, _ := queue.CountWaiting(ctx)
					So(count, ShouldEqual, 1)
				})
			})

			Convey("And a matched entry is not touched by withdrawal", func() {
				entries, _ := queue.ListWaiting(ctx, bucket, model.RoleCandidate)
				So(queue.MarkMatched(ctx, entries[0].ID), ShouldBeNil)

				removed, _ := queue.RemoveForUser(ctx, "u1", model.RoleCandidate)
				So(removed, ShouldEqual, 1)
			})
		})

		Convey("When listing live buckets", func() {
			other := bucket
			other.Slot = bucket.Slot.Add(time.Hour)
			queue.Enqueue(ctx, "u1", model.RoleCandidate, bucket)
			queue.Enqueue(ctx, "u2", model.RoleCandidate, bucket)
			queue.Enqueue(ctx, "u3", model.RoleInterviewer, other)

			buckets, err := queue.ListBuckets(ctx)

			Convey("Then each bucket with waiting entries appears once", func() {
				So(err, ShouldBeNil)
				So(len(buckets), ShouldEqual, 2)
			})
		})
	})
}

func TestMemorySessions(t *testing.T) {
	ctx := context.Background()

	Convey("Given an in-memory session store", t, func() {
		clock := newTestClock()
		stores := repository.NewMemoryStores(repository.WithNow(clock.Now))
		sessions := stores.Sessions()

		sess := model.Session{
			ID:            "s1",
			InterviewerID: "i1",
			CandidateID:   "c1",
			Status:        model.SessionPending,
			VideoStatus:   model.VideoPending,
			CreatedAt:     clock.Now(),
		}

		Convey("When creating and fetching a session", func() {
			So(sessions.Create(ctx, sess), ShouldBeNil)
			got, err := sessions.Get(ctx, "s1")

			Convey("Then the stored session should round-trip", func() {
				So(err, ShouldBeNil)
				So(got.ID, ShouldEqual, "s1")
				So(got.Status, ShouldEqual, model.SessionPending)
			})

			Convey("And mutating the returned copy must not leak into the store", func() {
				got.ObserverIDs = append(got.ObserverIDs, "o1")
				again, _ := sessions.Get(ctx, "s1")
				So(again.ObserverIDs, ShouldBeEmpty)
			})
		})

		Convey("When fetching a missing session", func() {
			_, err := sessions.Get(ctx, "missing")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When updating a session", func() {
			So(sessions.Create(ctx, sess), ShouldBeNil)
			sess.Status = model.SessionActive
			So(sessions.Update(ctx, sess), ShouldBeNil)

			got, _ := sessions.Get(ctx, "s1")
			So(got.Status, ShouldEqual, model.SessionActive)
		})

		Convey("When updating a missing session", func() {
			So(errors.Is(sessions.Update(ctx, sess), repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When looking up the latest session for an interviewer", func() {
			older := sess
			older.ID = "s1"
			older.CreatedAt = clock.Now()
			newer := sess
			newer.ID = "s2"
			newer.CreatedAt = clock.Now()
			So(sessions.Create(ctx, older), ShouldBeNil)
			So(sessions.Create(ctx, newer), ShouldBeNil)

			got, err := sessions.LastByInterviewer(ctx, "i1")

			Convey("Then the most recently created one should win", func() {
				So(err, ShouldBeNil)
				So(got.ID, ShouldEqual, "s2")
			})

			Convey("And an unknown interviewer yields not found", func() {
				_, err := sessions.LastByInterviewer(ctx, "stranger")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestMemoryPreferences(t *testing.T) {
	ctx := context.Background()

	Convey("Given an in-memory preference log", t, func() {
		clock := newTestClock()
		stores := repository.NewMemoryStores(repository.WithNow(clock.Now))
		prefs := stores.Preferences()
		slotA := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

		Convey("When a user saves twice", func() {
			first := model.Preference{ID: "p1", UserID: "u1", Role: model.RoleCandidate, Profession: "frontend", Language: "en", Slots: []time.Time{slotA}, CreatedAt: clock.Now()}
			second := model.Preference{ID: "p2", UserID: "u1", Role: model.RoleCandidate, Profession: "backend", Language: "en", Slots: []time.Time{slotA}, CreatedAt: clock.Now()}
			So(prefs.Save(ctx, first), ShouldBeNil)
			So(prefs.Save(ctx, second), ShouldBeNil)

			Convey("Then Current should return the later record", func() {
				got, err := prefs.Current(ctx, "u1", model.RoleCandidate)
				So(err, ShouldBeNil)
				So(got.ID, ShouldEqual, "p2")
				So(got.Profession, ShouldEqual, "backend")
			})

			Convey("And records with equal timestamps resolve to the later append", func() {
				tied := second
				tied.ID = "p3"
				So(prefs.Save(ctx, tied), ShouldBeNil)
				got, _ := prefs.Current(ctx, "u1", model.RoleCandidate)
				So(got.ID, ShouldEqual, "p3")
			})
		})

		Convey("When roles are saved independently", func() {
			So(prefs.Save(ctx, model.Preference{ID: "p1", UserID: "u1", Role: model.RoleCandidate, CreatedAt: clock.Now()}), ShouldBeNil)
			So(prefs.Save(ctx, model.Preference{ID: "p2", UserID: "u1", Role: model.RoleInterviewer, CreatedAt: clock.Now()}), ShouldBeNil)

			Convey("Then CurrentAll projects one record per user and role", func() {
				all, err := prefs.CurrentAll(ctx)
				So(err, ShouldBeNil)
				So(len(all), ShouldEqual, 2)
			})
		})

		Convey("When no record exists", func() {
			_, err := prefs.Current(ctx, "nobody", model.RoleCandidate)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestMemoryTools(t *testing.T) {
	ctx := context.Background()

	Convey("Given an in-memory tool store", t, func() {
		stores := repository.NewMemoryStores()
		tools := stores.Tools()

		Convey("When saving and reloading a tool set", func() {
			So(tools.Save(ctx, model.UserTools{UserID: "u1", Profession: "frontend", Tools: []string{"react", "jest"}}), ShouldBeNil)
			got, err := tools.For(ctx, "u1", "frontend")

			Convey("Then the set should round-trip", func() {
				So(err, ShouldBeNil)
				So(got, ShouldResemble, []string{"react", "jest"})
			})

			Convey("And a later save replaces the set", func() {
				So(tools.Save(ctx, model.UserTools{UserID: "u1", Profession: "frontend", Tools: []string{"vue"}}), ShouldBeNil)
				got, _ := tools.For(ctx, "u1", "frontend")
				So(got, ShouldResemble, []string{"vue"})
			})

			Convey("And sets are scoped per profession", func() {
				got, _ := tools.For(ctx, "u1", "backend")
				So(got, ShouldBeEmpty)
			})
		})
	})
}
