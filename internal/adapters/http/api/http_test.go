package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/korobprog/supermock-matcher/internal/adapters/http/api"
	"github.com/korobprog/supermock-matcher/internal/adapters/repository"
	service "github.com/korobprog/supermock-matcher/internal/app"
	. "github.com/smartystreets/goconvey/convey"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func futureSlot(hours int) string {
	return fixedNow.Add(time.Duration(hours) * time.Hour).Format(time.RFC3339)
}

// newTestServer wires the full service behind the HTTP API.
func newTestServer(ctx context.Context) (*httptest.Server, *service.Service) {
	svc := service.New(
		service.WithStores(repository.NewMemoryStores()),
		service.WithNow(func() time.Time { return fixedNow }),
		service.WithWorkerCount(2),
		service.WithSweepInterval(time.Hour),
	)
	So(svc.Start(ctx), ShouldBeNil)

	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(ctx, mux)
	return httptest.NewServer(mux), svc
}

func postJSON(url string, body any) (*http.Response, map[string]any) {
	encoded, err := json.Marshal(body)
	So(err, ShouldBeNil)
	resp, err := http.Post(url, "application/json", bytes.NewReader(encoded))
	So(err, ShouldBeNil)
	return resp, decodeBody(resp)
}

func getJSON(url string) (*http.Response, map[string]any) {
	resp, err := http.Get(url)
	So(err, ShouldBeNil)
	return resp, decodeBody(resp)
}

func decodeBody(resp *http.Response) map[string]any {
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return out
}

func TestPreferenceEndpoints(t *testing.T) {
	ctx := context.Background()

	Convey("Given the API over a running service", t, func() {
		ts, svc := newTestServer(ctx)
		Reset(func() {
			ts.Close()
			svc.Stop()
		})

		Convey("When posting a valid preference", func() {
			resp, body := postJSON(ts.URL+"/preferences", map[string]any{
				"user_id":    "c1",
				"role":       "candidate",
				"profession": "frontend",
				"language":   "en",
				"slots":      []string{futureSlot(3)},
			})

			Convey("Then it should be created with normalized slots", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusCreated)
				So(body["user_id"], ShouldEqual, "c1")
				So(body["id"], ShouldNotBeEmpty)
				slots, ok := body["slots"].([]any)
				So(ok, ShouldBeTrue)
				So(slots[0], ShouldEqual, futureSlot(3))
			})
		})

		Convey("When posting a preference with an unparseable slot", func() {
			resp, body := postJSON(ts.URL+"/preferences", map[string]any{
				"user_id":    "c1",
				"role":       "candidate",
				"profession": "frontend",
				"language":   "en",
				"slots":      []string{"next tuesday"},
			})

			Convey("Then it should be rejected as a bad request", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				So(body["code"], ShouldEqual, "bad_request")
			})
		})

		Convey("When posting a preference with a slot in the past", func() {
			resp, _ := postJSON(ts.URL+"/preferences", map[string]any{
				"user_id":    "c1",
				"role":       "candidate",
				"profession": "frontend",
				"language":   "en",
				"slots":      []string{fixedNow.Add(-48 * time.Hour).Format(time.RFC3339)},
			})

			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When posting a preference with an observer role", func() {
			resp, _ := postJSON(ts.URL+"/preferences", map[string]any{
				"user_id":    "o1",
				"role":       "observer",
				"profession": "frontend",
				"language":   "en",
				"slots":      []string{futureSlot(3)},
			})

			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When getting the preferences route", func() {
			resp, err := http.Get(ts.URL + "/preferences")
			So(err, ShouldBeNil)
			resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusMethodNotAllowed)
		})

		Convey("When withdrawing an enrolled user", func() {
			resp, _ := postJSON(ts.URL+"/preferences", map[string]any{
				"user_id":    "c1",
				"role":       "candidate",
				"profession": "frontend",
				"language":   "en",
				"slots":      []string{futureSlot(3), futureSlot(4)},
			})
			So(resp.StatusCode, ShouldEqual, http.StatusCreated)

			resp, body := postJSON(ts.URL+"/withdrawals", map[string]any{
				"user_id": "c1",
				"role":    "candidate",
			})

			Convey("Then both waiting entries should be removed", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(body["removed"], ShouldEqual, 2)
			})
		})

		Convey("When saving a tool list", func() {
			resp, body := postJSON(ts.URL+"/tools", map[string]any{
				"user_id":    "c1",
				"profession": "frontend",
				"tools":      []string{"react", "jest"},
			})

			Convey("Then it should be accepted", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(body["status"], ShouldEqual, "saved")
			})
		})

		Convey("When saving a tool list without a user", func() {
			resp, _ := postJSON(ts.URL+"/tools", map[string]any{
				"profession": "frontend",
				"tools":      []string{"react"},
			})

			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestSessionEndpoints(t *testing.T) {
	ctx := context.Background()

	Convey("Given the API over a running service", t, func() {
		ts, svc := newTestServer(ctx)
		Reset(func() {
			ts.Close()
			svc.Stop()
		})

		createSession := func() string {
			resp, body := postJSON(ts.URL+"/sessions", map[string]any{
				"creator_id": "admin-1",
				"profession": "frontend",
				"language":   "en",
				"slot":       futureSlot(3),
			})
			So(resp.StatusCode, ShouldEqual, http.StatusCreated)
			id, ok := body["id"].(string)
			So(ok, ShouldBeTrue)
			return id
		}

		Convey("When creating a manual session", func() {
			resp, body := postJSON(ts.URL+"/sessions", map[string]any{
				"creator_id": "admin-1",
				"profession": "frontend",
				"language":   "en",
				"slot":       futureSlot(3),
			})

			Convey("Then it should start pending with no roles", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusCreated)
				So(body["status"], ShouldEqual, "pending")
				So(body["creator_id"], ShouldEqual, "admin-1")
				So(body["interviewer_id"], ShouldBeNil)
			})
		})

		Convey("When fetching a session", func() {
			id := createSession()
			resp, body := getJSON(ts.URL + "/sessions/" + id)

			Convey("Then it should be returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(body["id"], ShouldEqual, id)
			})
		})

		Convey("When fetching an unknown session", func() {
			resp, body := getJSON(ts.URL + "/sessions/nope")

			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			So(body["code"], ShouldEqual, "not_found")
		})

		Convey("When assigning roles", func() {
			id := createSession()

			resp, body := postJSON(ts.URL+"/sessions/"+id+"/roles", map[string]any{
				"user_id": "i1",
				"role":    "interviewer",
			})

			Convey("Then the slot should be filled", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(body["interviewer_id"], ShouldEqual, "i1")
			})

			Convey("And assigning a different interviewer conflicts", func() {
				resp, body := postJSON(ts.URL+"/sessions/"+id+"/roles", map[string]any{
					"user_id": "i2",
					"role":    "interviewer",
				})
				So(resp.StatusCode, ShouldEqual, http.StatusConflict)
				So(body["code"], ShouldEqual, "conflict")
			})

			Convey("And an unknown role is rejected", func() {
				resp, _ := postJSON(ts.URL+"/sessions/"+id+"/roles", map[string]any{
					"user_id": "u1",
					"role":    "moderator",
				})
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When transitioning a session", func() {
			id := createSession()

			resp, body := postJSON(ts.URL+"/sessions/"+id+"/transition", map[string]any{
				"target": "active",
			})

			Convey("Then a legal edge should succeed", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(body["status"], ShouldEqual, "active")
				So(body["started_at"], ShouldNotBeNil)
			})

			Convey("And an illegal edge should be rejected", func() {
				resp, _ := postJSON(ts.URL+"/sessions/"+id+"/transition", map[string]any{
					"target": "cancelled",
				})
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When probing a session subtree path that does not exist", func() {
			resp, err := http.Get(ts.URL + "/sessions/abc/unknown/extra")
			So(err, ShouldBeNil)
			resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestUserAndOpsEndpoints(t *testing.T) {
	ctx := context.Background()

	Convey("Given the API over a running service", t, func() {
		ts, svc := newTestServer(ctx)
		Reset(func() {
			ts.Close()
			svc.Stop()
		})

		Convey("When asking for a last interview before any match", func() {
			resp, _ := getJSON(ts.URL + "/users/i1/last-interview")

			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})

		Convey("When a pair has been matched", func() {
			resp, _ := postJSON(ts.URL+"/preferences", map[string]any{
				"user_id": "i1", "role": "interviewer",
				"profession": "frontend", "language": "en",
				"slots": []string{futureSlot(3)},
			})
			So(resp.StatusCode, ShouldEqual, http.StatusCreated)
			resp, _ = postJSON(ts.URL+"/preferences", map[string]any{
				"user_id": "c1", "role": "candidate",
				"profession": "frontend", "language": "en",
				"slots": []string{futureSlot(3)},
			})
			So(resp.StatusCode, ShouldEqual, http.StatusCreated)

			Convey("Then the interviewer's last interview should appear", func() {
				found := false
				var body map[string]any
				deadline := time.Now().Add(2 * time.Second)
				for time.Now().Before(deadline) {
					var resp *http.Response
					resp, body = getJSON(ts.URL + "/users/i1/last-interview")
					if resp.StatusCode == http.StatusOK {
						found = true
						break
					}
					time.Sleep(10 * time.Millisecond)
				}

				So(found, ShouldBeTrue)
				So(body["interviewer_id"], ShouldEqual, "i1")
				So(body["candidate_id"], ShouldEqual, "c1")
			})
		})

		Convey("When hitting the health endpoint", func() {
			resp, body := getJSON(ts.URL + "/healthz")

			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(body["status"], ShouldEqual, "ok")
		})

		Convey("When hitting the stats endpoint", func() {
			resp, body := getJSON(ts.URL + "/stats")

			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(body["started"], ShouldEqual, true)
		})

		Convey("When scraping metrics", func() {
			resp, err := http.Get(ts.URL + "/metrics")
			So(err, ShouldBeNil)
			resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		})

		Convey("When probing a malformed users path", func() {
			resp, err := http.Get(ts.URL + "/users/i1/unknown")
			So(err, ShouldBeNil)
			resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})
	})
}
