package sdk

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/birbparty/roost/sdk/testdata"
)

func jsonResponse(status int, body string) *Response {
	h := http.Header{}
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set(HeaderRequestID, "req-1")
	return &Response{StatusCode: status, Header: h, Body: []byte(body)}
}

func TestEnvelope(t *testing.T) {
	t.Run("success and error maps", func(t *testing.T) {
		env := NewEnvelope(jsonResponse(200, `{"success":{"b":1,"a":"x"},"errors":{"c":"bad"},"count":2}`))
		assert.True(t, env.WasSuccess())
		assert.True(t, env.HasSuccess())
		assert.True(t, env.HasError())
		assert.Equal(t, []string{"b", "a"}, env.SuccessKeys())
		assert.Equal(t, []string{"c"}, env.ErrorKeys())
		assert.Equal(t, "bad", env.ErrorMessage("c"))
		assert.Equal(t, 2, env.Count())
		assert.Equal(t, "req-1", env.RequestID())

		s, ok := env.SuccessString("a")
		assert.True(t, ok)
		assert.Equal(t, "x", s)
		_, ok = env.SuccessString("b")
		assert.False(t, ok, "number is not a string")

		raw, ok := env.SuccessRaw("b")
		assert.True(t, ok)
		assert.Equal(t, "1", string(raw))
	})

	t.Run("rejected call keeps only errors", func(t *testing.T) {
		env := NewEnvelope(jsonResponse(403, testdata.RejectedBody))
		assert.False(t, env.WasSuccess())
		assert.False(t, env.HasSuccess())
		assert.Empty(t, env.SuccessKeys())
		assert.Equal(t, "api key revoked", env.ErrorMessage("auth"))
	})

	t.Run("malformed body yields empty maps", func(t *testing.T) {
		env := NewEnvelope(jsonResponse(200, `{"success":`))
		assert.True(t, env.WasSuccess(), "status alone decides success")
		assert.False(t, env.HasSuccess())
		assert.False(t, env.HasError())
		assert.Equal(t, -1, env.Count())
	})

	t.Run("non JSON content is not parsed", func(t *testing.T) {
		resp := jsonResponse(200, `{"success":{"a":1}}`)
		resp.Header.Set("Content-Type", "text/plain")
		env := NewEnvelope(resp)
		assert.False(t, env.HasSuccess())
		assert.Equal(t, `{"success":{"a":1}}`, string(env.Body()))
	})

	t.Run("errors array becomes messages", func(t *testing.T) {
		env := NewEnvelope(jsonResponse(400, `{"errors":["email taken","weak password"]}`))
		assert.Equal(t, []string{"email taken", "weak password"}, env.ErrorMessages())
		assert.False(t, env.HasError())
	})

	t.Run("nil response", func(t *testing.T) {
		env := NewEnvelope(nil)
		assert.Equal(t, 0, env.StatusCode())
		assert.False(t, env.WasSuccess())
		assert.Empty(t, env.RequestID())
		assert.NotNil(t, env.Header())
		assert.Nil(t, env.Body())
	})

	t.Run("copies are independent", func(t *testing.T) {
		env := NewEnvelope(jsonResponse(200, `{"success":{"a":1}}`))
		m := env.Success()
		delete(m, "a")
		assert.True(t, env.HasSuccess())
	})
}

func TestObjectModificationResponse(t *testing.T) {
	r := NewObjectModificationResponse(jsonResponse(200, testdata.ModificationBody))

	assert.Equal(t, Created, r.KeyResponse("a"))
	assert.Equal(t, Updated, r.KeyResponse("b"), "case insensitive")
	assert.Equal(t, Deleted, r.KeyResponse("c"))
	assert.Equal(t, Missing, r.KeyResponse("d"), "unknown value")
	assert.Equal(t, Missing, r.KeyResponse("nope"))

	assert.True(t, r.WasCreated("a"))
	assert.True(t, r.WasUpdated("b"))
	assert.True(t, r.WasDeleted("c"))
	assert.True(t, r.WasModified("a"))
	assert.False(t, r.WasModified("d"))

	assert.Equal(t, []string{"a"}, r.CreatedKeys())
	assert.Equal(t, []string{"b"}, r.UpdatedKeys())
	assert.Equal(t, []string{"c"}, r.DeletedKeys())

	rejected := NewObjectModificationResponse(jsonResponse(403, testdata.RejectedBody))
	assert.Equal(t, Missing, rejected.KeyResponse("ignored"))
}

func TestParseResponseValue(t *testing.T) {
	assert.Equal(t, Created, ParseResponseValue(" Created "))
	assert.Equal(t, Missing, ParseResponseValue(""))
	assert.Equal(t, "updated", Updated.String())
	assert.Equal(t, "missing", ResponseValue(42).String())
}

func TestLoadResponse(t *testing.T) {
	r := NewLoadResponse(jsonResponse(200, testdata.LoadBody))

	objs := r.Objects()
	require.Len(t, objs, 2, "plain values are skipped")
	assert.Equal(t, "player-2", objs[0].Key())
	assert.Equal(t, "player-1", objs[1].Key())
	assert.Equal(t, "Player", objs[0].Class())

	alice, ok := r.Object("player-1")
	require.True(t, ok)
	loc, ok := alice.GetGeoPoint("loc")
	assert.True(t, ok)
	assert.Equal(t, NewGeoPoint(10.5, 20.25), loc)

	_, ok = r.Object("motd")
	assert.False(t, ok)
	_, ok = r.Object("missing")
	assert.False(t, ok)
}

func TestCreationResponse(t *testing.T) {
	t.Run("top level id and type", func(t *testing.T) {
		r := NewCreationResponse(jsonResponse(201, `{"__id__":"u-1","__type__":"user","success":{"u-1":"created"}}`))
		assert.Equal(t, "u-1", r.ObjectID())
		assert.Equal(t, "user", r.TypeTag())
	})

	t.Run("falls back to first success entry", func(t *testing.T) {
		r := NewCreationResponse(jsonResponse(201, `{"success":{"obj-9":{"__class__":"Player"}}}`))
		assert.Equal(t, "obj-9", r.ObjectID())
		assert.Equal(t, "Player", r.TypeTag())
	})

	t.Run("empty", func(t *testing.T) {
		r := NewCreationResponse(jsonResponse(500, ``))
		assert.Empty(t, r.ObjectID())
		assert.Empty(t, r.TypeTag())
	})
}

func TestLoginResponse(t *testing.T) {
	t.Run("session with expiry", func(t *testing.T) {
		r := NewLoginResponse(jsonResponse(200, testdata.LoginBody))
		s := r.SessionToken()
		assert.Equal(t, "sess-abc", s.Token())
		assert.True(t, s.Expires().Equal(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)))
		assert.Equal(t, "user-7", r.UserID())
	})

	t.Run("epoch milliseconds at top level", func(t *testing.T) {
		r := NewLoginResponse(jsonResponse(200, `{"session_token":"s","expires":1700000000000}`))
		assert.Equal(t, time.UnixMilli(1700000000000).UTC(), r.SessionToken().Expires())
	})

	t.Run("RFC 1123 expiry", func(t *testing.T) {
		r := NewLoginResponse(jsonResponse(200, `{"success":{"session_token":"s","expires":"Mon, 02 Jan 2006 15:04:05 GMT"}}`))
		assert.Equal(t, 2006, r.SessionToken().Expires().Year())
	})

	t.Run("unauthorized with empty body", func(t *testing.T) {
		r := NewLoginResponse(jsonResponse(401, ``))
		assert.Equal(t, FailedSession, r.SessionToken())
		assert.False(t, r.HasError())
	})

	t.Run("rejected token is ignored", func(t *testing.T) {
		r := NewLoginResponse(jsonResponse(401, `{"session_token":"leaked"}`))
		assert.True(t, r.SessionToken().IsFailed())
	})
}

func TestFunctionResponse(t *testing.T) {
	r := NewFunctionResponse(jsonResponse(200, testdata.FunctionBody))
	assert.JSONEq(t, `{"top":["Alice","Bob"]}`, string(r.Result()))

	whole := NewFunctionResponse(jsonResponse(200, `{"success":{"a":1}}`))
	assert.JSONEq(t, `{"a":1}`, string(whole.Result()))

	top := NewFunctionResponse(jsonResponse(200, `{"result":42}`))
	assert.Equal(t, "42", string(top.Result()))

	assert.Nil(t, NewFunctionResponse(jsonResponse(500, ``)).Result())
}

func TestFileResponse(t *testing.T) {
	resp := &Response{StatusCode: 200, Header: http.Header{"Content-Type": {"image/png"}}, Body: []byte{0x89, 'P', 'N', 'G'}}
	r := NewFileResponse("avatar.png", resp)
	assert.Equal(t, "avatar.png", r.Key())
	assert.Equal(t, "image/png", r.ContentType())
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, r.Bytes())
	assert.False(t, r.HasSuccess(), "binary bodies are not parsed")

	missing := NewFileResponse("gone", jsonResponse(404, `{"errors":{"gone":"not found"}}`))
	assert.Nil(t, missing.Bytes())
	assert.Equal(t, "not found", missing.ErrorMessage("gone"))

	doc := `{"success":{"level":"1-1"}}`
	stored := NewFileResponse("level.json", jsonResponse(200, doc))
	assert.Equal(t, []byte(doc), stored.Bytes(), "JSON files come back verbatim")
}
