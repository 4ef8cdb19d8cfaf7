package testdata

import (
	"strconv"
)

// Player is the sample application type used by typed-view tests.
type Player struct {
	Name  string   `json:"name"`
	Level int      `json:"level"`
	Tags  []string `json:"tags,omitempty"`
}

// Canned response bodies.
const (
	// LoadBody holds two players and a plain value, in that order.
	LoadBody = `{"success":{
		"player-2":{"__class__":"Player","name":"Bob","level":3},
		"player-1":{"__class__":"Player","name":"Alice","level":7,"loc":{"lon":10.5,"lat":20.25}},
		"motd":"hello"
	}}`

	// ModificationBody reports one outcome of each kind plus an unknown one.
	ModificationBody = `{"success":{"a":"created","b":"UPDATED","c":"deleted","d":"archived"}}`

	// RejectedBody is a 403 with an error map.
	RejectedBody = `{"errors":{"auth":"api key revoked"},"success":{"ignored":"created"}}`

	// FunctionBody is a snippet result.
	FunctionBody = `{"success":{"result":{"top":["Alice","Bob"]}}}`

	// LoginBody carries a session expiring at 2030-01-01T00:00:00Z.
	LoginBody = `{"success":{"session_token":"sess-abc","user_id":"user-7","expires":"2030-01-01T00:00:00Z"}}`
)

// Players returns n players keyed "player-<i>" with level i.
func Players(n int) map[string]Player {
	out := make(map[string]Player, n)
	for i := 0; i < n; i++ {
		out["player-"+strconv.Itoa(i)] = Player{
			Name:  "player " + strconv.Itoa(i),
			Level: i,
		}
	}
	return out
}

// PlayerEntry renders p as a success-map entry of class Player.
func PlayerEntry(p Player) map[string]interface{} {
	return map[string]interface{}{
		"__class__": "Player",
		"name":      p.Name,
		"level":     p.Level,
	}
}
