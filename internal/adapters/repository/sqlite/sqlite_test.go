package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/korobprog/supermock-matcher/internal/adapters/repository"
	"github.com/korobprog/supermock-matcher/internal/adapters/repository/sqlite"
	"github.com/korobprog/supermock-matcher/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func openStores(ctx context.Context) (*sqlite.Stores, func()) {
	stores, err := sqlite.Open(ctx, ":memory:")
	So(err, ShouldBeNil)
	return stores, func() { _ = stores.Close() }
}

func testBucket() model.Bucket {
	return model.Bucket{
		Profession: "frontend",
		Language:   "en",
		Slot:       time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC),
	}
}

func TestSQLiteQueue(t *testing.T) {
	ctx := context.Background()

	Convey("Given a sqlite-backed queue", t, func() {
		stores, cleanup := openStores(ctx)
		Reset(cleanup)
		queue := stores.Queue()
		bucket := testBucket()

		Convey("When enqueueing a new user", func() {
			entry, created, err := queue.Enqueue(ctx, "u1", model.RoleCandidate, bucket)

			Convey("Then a waiting entry should be created", func() {
				So(err, ShouldBeNil)
				So(created, ShouldBeTrue)
				So(entry.Status, ShouldEqual, model.EntryWaiting)
				So(entry.Slot, ShouldEqual, bucket.Slot)
			})

			Convey("And the same tuple is idempotent", func() {
				dup, createdAgain, err := queue.Enqueue(ctx, "u1", model.RoleCandidate, bucket)
				So(err, ShouldBeNil)
				So(createdAgain, ShouldBeFalse)
				So(dup.ID, ShouldEqual, entry.ID)
			})

			Convey("And the opposite role creates a distinct entry", func() {
				other, createdAgain, err := queue.Enqueue(ctx, "u1", model.RoleInterviewer, bucket)
				So(err, ShouldBeNil)
				So(createdAgain, ShouldBeTrue)
				So(other.ID, ShouldNotEqual, entry.ID)
			})
		})

		Convey("When listing waiting entries", func() {
			queue.Enqueue(ctx, "b-user", model.RoleCandidate, bucket)
			queue.Enqueue(ctx, "a-user", model.RoleCandidate, bucket)

			waiting, err := queue.ListWaiting(ctx, bucket, model.RoleCandidate)

			Convey("Then ties on creation time resolve by user id", func() {
				So(err, ShouldBeNil)
				So(len(waiting), ShouldEqual, 2)
				if waiting[0].CreatedAt.Equal(waiting[1].CreatedAt) {
					So(waiting[0].UserID, ShouldEqual, "a-user")
				} else {
					So(waiting[0].UserID, ShouldEqual, "b-user")
				}
			})
		})

		Convey("When marking entries matched", func() {
			entry, _, _ := queue.Enqueue(ctx, "u1", model.RoleCandidate, bucket)

			Convey("And the entry is waiting", func() {
				So(queue.MarkMatched(ctx, entry.ID), ShouldBeNil)

				Convey("Then a repeat mark reports the lost race", func() {
					So(errors.Is(queue.MarkMatched(ctx, entry.ID), repository.ErrAlreadyMatched), ShouldBeTrue)
				})
			})

			Convey("And the entry does not exist", func() {
				So(errors.Is(queue.MarkMatched(ctx, "missing"), repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When matching a pair", func() {
			iv, _, _ := queue.Enqueue(ctx, "i1", model.RoleInterviewer, bucket)
			cand, _, _ := queue.Enqueue(ctx, "c1", model.RoleCandidate, bucket)

			Convey("And both are waiting", func() {
				So(queue.MatchPair(ctx, iv.ID, cand.ID), ShouldBeNil)
				count, _ := queue.CountWaiting(ctx)
				So(count, ShouldEqual, 0)
			})

			Convey("And one was already consumed", func() {
				So(queue.MarkMatched(ctx, cand.ID), ShouldBeNil)
				err := queue.MatchPair(ctx, iv.ID, cand.ID)

				Convey("Then the pair fails and the sibling stays waiting", func() {
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
			queue.Enqueue(ctx, "u2", model.RoleCandidate, bucket)

			removed, err := queue.RemoveForUser(ctx, "u1", model.RoleCandidate)

			Convey("Then only their waiting entries should be cancelled", func() {
				So(err, ShouldBeNil)
				So(removed, ShouldEqual, 2)
				count, _ := queue.CountWaiting(ctx)
				So(count, ShouldEqual, 1)
			})

			Convey("And they can re-enroll afterwards", func() {
				_, created, err := queue.Enqueue(ctx, "u1", model.RoleCandidate, bucket)
				So(err, ShouldBeNil)
				So(created, ShouldBeTrue)
			})
		})

		Convey("When listing live buckets", func() {
			other := bucket
			other.Language = "ru"
			queue.Enqueue(ctx, "u1", model.RoleCandidate, bucket)
			queue.Enqueue(ctx, "u2", model.RoleInterviewer, bucket)
			queue.Enqueue(ctx, "u3", model.RoleCandidate, other)

			buckets, err := queue.ListBuckets(ctx)

			Convey("Then each bucket appears once with its slot intact", func() {
				So(err, ShouldBeNil)
				So(len(buckets), ShouldEqual, 2)
				for _, b := range buckets {
					So(b.Slot, ShouldEqual, bucket.Slot)
				}
			})
		})
	})
}

func TestSQLiteSessions(t *testing.T) {
	ctx := context.Background()

	Convey("Given a sqlite-backed session store", t, func() {
		stores, cleanup := openStores(ctx)
		Reset(cleanup)
		sessions := stores.Sessions()

		created := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
		sess := model.Session{
			ID:            "s1",
			InterviewerID: "i1",
			CandidateID:   "c1",
			ObserverIDs:   []string{"o1"},
			Slot:          testBucket().Slot,
			Profession:    "frontend",
			Language:      "en",
			Status:        model.SessionPending,
			VideoURL:      "https://rooms.example/s1",
			VideoStatus:   model.VideoPending,
			CreatedAt:     created,
		}

		Convey("When a session round-trips", func() {
			So(sessions.Create(ctx, sess), ShouldBeNil)
			got, err := sessions.Get(ctx, "s1")

			Convey("Then every field should survive", func() {
				So(err, ShouldBeNil)
				So(got.InterviewerID, ShouldEqual, "i1")
				So(got.ObserverIDs, ShouldResemble, []string{"o1"})
				So(got.Status, ShouldEqual, model.SessionPending)
				So(got.VideoURL, ShouldEqual, "https://rooms.example/s1")
				So(got.CreatedAt, ShouldEqual, created)
				So(got.StartedAt, ShouldBeNil)
			})
		})

		Convey("When a session is updated with a start time", func() {
			So(sessions.Create(ctx, sess), ShouldBeNil)
			started := created.Add(time.Hour)
			sess.Status = model.SessionActive
			sess.StartedAt = &started
			So(sessions.Update(ctx, sess), ShouldBeNil)

			got, err := sessions.Get(ctx, "s1")

			Convey("Then the nullable start time should persist", func() {
				So(err, ShouldBeNil)
				So(got.Status, ShouldEqual, model.SessionActive)
				So(got.StartedAt, ShouldNotBeNil)
				So(*got.StartedAt, ShouldEqual, started)
			})
		})

		Convey("When fetching or updating a missing session", func() {
			_, err := sessions.Get(ctx, "missing")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

			missing := sess
			missing.ID = "missing"
			So(errors.Is(sessions.Update(ctx, missing), repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When looking up the latest for an interviewer", func() {
			older := sess
			older.ID = "s1"
			newer := sess
			newer.ID = "s2"
			newer.CreatedAt = created.Add(time.Minute)
			So(sessions.Create(ctx, older), ShouldBeNil)
			So(sessions.Create(ctx, newer), ShouldBeNil)

			got, err := sessions.LastByInterviewer(ctx, "i1")

			Convey("Then the most recent should win", func() {
				So(err, ShouldBeNil)
				So(got.ID, ShouldEqual, "s2")
			})
		})
	})
}

func TestSQLitePreferences(t *testing.T) {
	ctx := context.Background()

	Convey("Given a sqlite-backed preference log", t, func() {
		stores, cleanup := openStores(ctx)
		Reset(cleanup)
		prefs := stores.Preferences()

		slotA := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
		slotB := slotA.Add(time.Hour)
		base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

		Convey("When a user saves twice", func() {
			So(prefs.Save(ctx, model.Preference{ID: "p1", UserID: "u1", Role: model.RoleCandidate, Profession: "frontend", Language: "en", Slots: []time.Time{slotA}, CreatedAt: base}), ShouldBeNil)
			So(prefs.Save(ctx, model.Preference{ID: "p2", UserID: "u1", Role: model.RoleCandidate, Profession: "backend", Language: "en", Slots: []time.Time{slotA, slotB}, CreatedAt: base.Add(time.Minute)}), ShouldBeNil)

			got, err := prefs.Current(ctx, "u1", model.RoleCandidate)

			Convey("Then the later record wins with its slots intact", func() {
				So(err, ShouldBeNil)
				So(got.ID, ShouldEqual, "p2")
				So(got.Profession, ShouldEqual, "backend")
				So(got.Slots, ShouldResemble, []time.Time{slotA, slotB})
			})

			Convey("And an equal-timestamp save resolves to the later insert", func() {
				So(prefs.Save(ctx, model.Preference{ID: "p3", UserID: "u1", Role: model.RoleCandidate, Profession: "devops", Language: "en", Slots: []time.Time{slotB}, CreatedAt: base.Add(time.Minute)}), ShouldBeNil)
				got, err := prefs.Current(ctx, "u1", model.RoleCandidate)
				So(err, ShouldBeNil)
				So(got.ID, ShouldEqual, "p3")
			})
		})

		Convey("When projecting the current set across users", func() {
			So(prefs.Save(ctx, model.Preference{ID: "p1", UserID: "u1", Role: model.RoleCandidate, Profession: "frontend", Language: "en", Slots: []time.Time{slotA}, CreatedAt: base}), ShouldBeNil)
			So(prefs.Save(ctx, model.Preference{ID: "p2", UserID: "u1", Role: model.RoleInterviewer, Profession: "frontend", Language: "en", Slots: []time.Time{slotA}, CreatedAt: base}), ShouldBeNil)
			So(prefs.Save(ctx, model.Preference{ID: "p3", UserID: "u2", Role: model.RoleCandidate, Profession: "frontend", Language: "en", Slots: []time.Time{slotA}, CreatedAt: base}), ShouldBeNil)
			So(prefs.Save(ctx, model.Preference{ID: "p4", UserID: "u1", Role: model.RoleCandidate, Profession: "backend", Language: "en", Slots: []time.Time{slotB}, CreatedAt: base.Add(time.Minute)}), ShouldBeNil)

			all, err := prefs.CurrentAll(ctx)

			Convey("Then one record per user and role should remain", func() {
				So(err, ShouldBeNil)
				So(len(all), ShouldEqual, 3)

				byKey := make(map[string]model.Preference)
				for _, p := range all {
					byKey[p.UserID+"|"+string(p.Role)] = p
				}
				So(byKey["u1|candidate"].ID, ShouldEqual, "p4")
				So(byKey["u1|interviewer"].ID, ShouldEqual, "p2")
				So(byKey["u2|candidate"].ID, ShouldEqual, "p3")
			})
		})

		Convey("When no record exists", func() {
			_, err := prefs.Current(ctx, "nobody", model.RoleCandidate)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestSQLiteTools(t *testing.T) {
	ctx := context.Background()

	Convey("Given a sqlite-backed tool store", t, func() {
		stores, cleanup := openStores(ctx)
		Reset(cleanup)
		tools := stores.Tools()

		Convey("When saving and reloading", func() {
			So(tools.Save(ctx, model.UserTools{UserID: "u1", Profession: "frontend", Tools: []string{"react", "jest"}}), ShouldBeNil)

			got, err := tools.For(ctx, "u1", "frontend")

			Convey("Then the set should round-trip", func() {
				So(err, ShouldBeNil)
				So(got, ShouldResemble, []string{"react", "jest"})
			})

			Convey("And a later save upserts the set", func() {
				So(tools.Save(ctx, model.UserTools{UserID: "u1", Profession: "frontend", Tools: []string{"vue"}}), ShouldBeNil)
				got, _ := tools.For(ctx, "u1", "frontend")
				So(got, ShouldResemble, []string{"vue"})
			})

			Convey("And an unknown user has no tools", func() {
				got, err := tools.For(ctx, "stranger", "frontend")
				So(err, ShouldBeNil)
				So(got, ShouldBeEmpty)
			})
		})
	})
}
