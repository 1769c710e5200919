package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"muster/internal/event"
	eventservice "muster/internal/event/service"
	"muster/internal/event/store/memory"
	id "muster/pkg/domain"
	authmw "muster/pkg/platform/middleware/auth"
	versionmw "muster/pkg/platform/middleware/version"
	"muster/pkg/testutil"
)

// stubValidator maps bearer tokens straight to claims so handler tests can
// exercise the full middleware chain without minting JWTs.
type stubValidator struct {
	tokens map[string]*authmw.Claims
}

func (v *stubValidator) ValidateClaims(token string) (*authmw.Claims, error) {
	claims, ok := v.tokens[token]
	if !ok {
		return nil, fmt.Errorf("unknown token")
	}
	return claims, nil
}

type HandlerSuite struct {
	suite.Suite
	store  *memory.InMemory
	router chi.Router
}

func (s *HandlerSuite) SetupTest() {
	s.store = memory.NewInMemory()
	logger := slog.Default()
	svc := eventservice.New(s.store, 100, logger, nil)
	validator := &stubValidator{tokens: map[string]*authmw.Claims{
		"alice-token": {User: "alice", Project: "project-a"},
		"bob-token":   {User: "bob", Project: "project-b"},
		"admin-token": {User: "root", Project: "project-ops", Admin: true},
	}}

	s.router = chi.NewRouter()
	New(svc, logger, nil, validator).Register(s.router)
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) request(token, path string, header string) *http.Request {
	req := testutil.NewRequest(s.T(), http.MethodGet, path)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if header != "" {
		req.Header.Set(versionmw.Header, header)
	}
	return req
}

func (s *HandlerSuite) seed(project, action string, clusterID id.ClusterID) *event.Event {
	e := &event.Event{
		ID:        id.NewEventID(),
		Timestamp: time.Now(),
		ObjID:     uuid.NewString(),
		ObjType:   event.ObjTypeNode,
		ObjName:   "node-0",
		Action:    action,
		Status:    event.StatusSucceeded,
		Level:     event.LevelInfo,
		ClusterID: clusterID,
		Project:   project,
		User:      "engine",
	}
	s.Require().NoError(s.store.Append(context.Background(), e))
	return e
}

type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (s *HandlerSuite) TestAuthentication() {
	s.Run("missing token", func() {
		rr := testutil.DoRequest(s.router, s.request("", "/v1/events", ""))
		s.Equal(http.StatusUnauthorized, rr.Code)
	})

	s.Run("unknown token", func() {
		rr := testutil.DoRequest(s.router, s.request("bogus", "/v1/events", ""))
		s.Equal(http.StatusUnauthorized, rr.Code)

		var body errorBody
		testutil.DecodeJSON(s.T(), rr, &body)
		s.Equal("unauthorized", body.Error)
	})
}

func (s *HandlerSuite) TestListScoping() {
	mine := s.seed("project-a", event.ActionClusterCreate, id.ClusterID{})
	s.seed("project-b", event.ActionClusterCreate, id.ClusterID{})

	s.Run("caller sees only their project", func() {
		rr := testutil.DoRequest(s.router, s.request("alice-token", "/v1/events", ""))
		s.Require().Equal(http.StatusOK, rr.Code)

		var body listResponse
		testutil.DecodeJSON(s.T(), rr, &body)
		s.Require().Len(body.Events, 1)
		s.Equal(mine.ID.String(), body.Events[0].ID)
	})

	s.Run("global_project without admin is forbidden", func() {
		rr := testutil.DoRequest(s.router, s.request("alice-token", "/v1/events?global_project=true", ""))
		s.Equal(http.StatusForbidden, rr.Code)

		var body errorBody
		testutil.DecodeJSON(s.T(), rr, &body)
		s.Equal("forbidden", body.Error)
	})

	s.Run("admin with global_project sees all", func() {
		rr := testutil.DoRequest(s.router, s.request("admin-token", "/v1/events?global_project=true", ""))
		s.Require().Equal(http.StatusOK, rr.Code)

		var body listResponse
		testutil.DecodeJSON(s.T(), rr, &body)
		s.Len(body.Events, 2)
	})
}

func (s *HandlerSuite) TestListValidation() {
	s.Run("unknown parameter", func() {
		rr := testutil.DoRequest(s.router, s.request("alice-token", "/v1/events?color=red", ""))
		s.Equal(http.StatusBadRequest, rr.Code)

		var body errorBody
		testutil.DecodeJSON(s.T(), rr, &body)
		s.Equal("bad_request", body.Error)
		s.Contains(body.ErrorDescription, "color")
	})

	s.Run("bad limit", func() {
		rr := testutil.DoRequest(s.router, s.request("alice-token", "/v1/events?limit=lots", ""))
		s.Equal(http.StatusBadRequest, rr.Code)
	})

	s.Run("bad global_project", func() {
		rr := testutil.DoRequest(s.router, s.request("alice-token", "/v1/events?global_project=maybe", ""))
		s.Equal(http.StatusBadRequest, rr.Code)
	})

	s.Run("bad marker", func() {
		rr := testutil.DoRequest(s.router, s.request("alice-token", "/v1/events?marker=not-a-uuid", ""))
		s.Equal(http.StatusBadRequest, rr.Code)
	})

	s.Run("bad sort key", func() {
		rr := testutil.DoRequest(s.router, s.request("alice-token", "/v1/events?sort=color:asc", ""))
		s.Equal(http.StatusBadRequest, rr.Code)
	})
}

func (s *HandlerSuite) TestMicroversionNegotiation() {
	clusterID := id.ClusterID(uuid.New())
	s.seed("project-a", event.ActionNodeCreate, clusterID)

	s.Run("unsupported version is rejected", func() {
		rr := testutil.DoRequest(s.router, s.request("alice-token", "/v1/events", "clustering 9.99"))
		s.Equal(http.StatusBadRequest, rr.Code)
	})

	s.Run("absent header defaults to the base version", func() {
		rr := testutil.DoRequest(s.router, s.request("alice-token", "/v1/events", ""))
		s.Require().Equal(http.StatusOK, rr.Code)
		s.Equal("clustering "+id.MinVersion().String(), rr.Header().Get(versionmw.Header))

		var body listResponse
		testutil.DecodeJSON(s.T(), rr, &body)
		s.Require().Len(body.Events, 1)
		s.Nil(body.Events[0].ClusterID)
	})

	s.Run("intermediate version negotiates as itself", func() {
		rr := testutil.DoRequest(s.router, s.request("alice-token", "/v1/events", "clustering 1.7"))
		s.Require().Equal(http.StatusOK, rr.Code)
		s.Equal("clustering 1.7", rr.Header().Get(versionmw.Header))

		// 1.7 predates the cluster_id capability, so it still gates.
		rr = testutil.DoRequest(s.router,
			s.request("alice-token", "/v1/events?cluster_id="+clusterID.String(), "clustering 1.7"))
		s.Equal(http.StatusBadRequest, rr.Code)
	})

	s.Run("cluster_id filter rejected below 1.14", func() {
		rr := testutil.DoRequest(s.router,
			s.request("alice-token", "/v1/events?cluster_id="+clusterID.String(), "clustering 1.0"))
		s.Equal(http.StatusBadRequest, rr.Code)

		var body errorBody
		testutil.DecodeJSON(s.T(), rr, &body)
		s.Contains(body.ErrorDescription, "1.14")
	})

	s.Run("1.14 exposes the cluster_id field and filter", func() {
		rr := testutil.DoRequest(s.router,
			s.request("alice-token", "/v1/events?cluster_id="+clusterID.String(), "clustering 1.14"))
		s.Require().Equal(http.StatusOK, rr.Code)
		s.Equal("clustering 1.14", rr.Header().Get(versionmw.Header))

		var body listResponse
		testutil.DecodeJSON(s.T(), rr, &body)
		s.Require().Len(body.Events, 1)
		s.Require().NotNil(body.Events[0].ClusterID)
		s.Equal(clusterID.String(), *body.Events[0].ClusterID)
	})
}

func (s *HandlerSuite) TestPagination() {
	for i := 0; i < 5; i++ {
		s.seed("project-a", event.ActionNodeCreate, id.ClusterID{})
	}

	rr := testutil.DoRequest(s.router, s.request("alice-token", "/v1/events?limit=2", ""))
	s.Require().Equal(http.StatusOK, rr.Code)

	var first listResponse
	testutil.DecodeJSON(s.T(), rr, &first)
	s.Require().Len(first.Events, 2)
	s.Require().NotEmpty(first.NextMarker)

	seen := map[string]bool{}
	for _, e := range first.Events {
		seen[e.ID] = true
	}

	marker := first.NextMarker
	for marker != "" {
		rr = testutil.DoRequest(s.router, s.request("alice-token", "/v1/events?limit=2&marker="+marker, ""))
		s.Require().Equal(http.StatusOK, rr.Code)

		var page listResponse
		testutil.DecodeJSON(s.T(), rr, &page)
		for _, e := range page.Events {
			s.False(seen[e.ID], "event repeated across pages")
			seen[e.ID] = true
		}
		marker = page.NextMarker
	}
	s.Len(seen, 5)
}

func (s *HandlerSuite) TestShow() {
	mine := s.seed("project-a", event.ActionClusterCreate, id.ClusterID{})
	theirs := s.seed("project-b", event.ActionClusterCreate, id.ClusterID{})

	s.Run("own event", func() {
		rr := testutil.DoRequest(s.router, s.request("alice-token", "/v1/events/"+mine.ID.String(), ""))
		s.Require().Equal(http.StatusOK, rr.Code)

		var body showResponse
		testutil.DecodeJSON(s.T(), rr, &body)
		s.Equal(mine.ID.String(), body.Event.ID)
		s.Equal("INFO", body.Event.Level)
	})

	s.Run("cross-project event reads as missing", func() {
		rr := testutil.DoRequest(s.router, s.request("alice-token", "/v1/events/"+theirs.ID.String(), ""))
		s.Equal(http.StatusNotFound, rr.Code)
	})

	s.Run("admin reads across projects", func() {
		rr := testutil.DoRequest(s.router, s.request("admin-token", "/v1/events/"+theirs.ID.String(), ""))
		s.Equal(http.StatusOK, rr.Code)
	})

	s.Run("malformed id", func() {
		rr := testutil.DoRequest(s.router, s.request("alice-token", "/v1/events/42", ""))
		s.Equal(http.StatusBadRequest, rr.Code)
	})

	s.Run("unknown id", func() {
		rr := testutil.DoRequest(s.router, s.request("alice-token", "/v1/events/"+uuid.NewString(), ""))
		s.Equal(http.StatusNotFound, rr.Code)
	})
}
