package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"fyp-portal/internal/apperr"

	"github.com/gin-gonic/gin"
)

func TestErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		err    error
		status int
		code   ErrorCode
		msg    string
	}{
		{apperr.Validation("bad title", map[string]string{"title": "too short"}), http.StatusBadRequest, InvalidRequest, "bad title"},
		{apperr.Forbidden("not yours"), http.StatusForbidden, Forbidden, "not yours"},
		{apperr.NotFound("no such project"), http.StatusNotFound, NotFound, "no such project"},
		{apperr.Conflict("already locked"), http.StatusConflict, Conflict, "already locked"},
		{apperr.New(apperr.CodeCapacity, "full", nil), http.StatusConflict, CapacityFull, "full"},
		{apperr.New(apperr.CodeAlreadyMember, "member", nil), http.StatusConflict, AlreadyMember, "member"},
		{apperr.Wrap(errors.New("connection reset"), "load project"), http.StatusInternalServerError, Internal, "load project"},
		{errors.New("raw"), http.StatusInternalServerError, Internal, "raw"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)

		Error(c, tc.err)

		if w.Code != tc.status {
			t.Errorf("%v: status = %d, want %d", tc.err, w.Code, tc.status)
			continue
		}
		var body Response[any]
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Code != tc.code || body.Msg != tc.msg {
			t.Errorf("%v: body = %+v", tc.err, body)
		}
	}
}

func TestValidationFieldsReachTheClient(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/projects", nil)

	Error(c, apperr.Validation("invalid project", map[string]string{"maxGroups": "must be at least 1"}))

	var body Response[any]
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Fields["maxGroups"] != "must be at least 1" {
		t.Fatalf("fields = %v", body.Fields)
	}
}
