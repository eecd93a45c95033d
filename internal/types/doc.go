// Package types holds the wire protocol spoken between the room server and
// its host and player clients, plus the game data that travels inside it.
//
// Every frame is a single JSON value tagged by message kind:
//
//	{"HostChoice": {"categoryIndex": 0, "questionIndex": 2}}
//	{"Buzz": {}}
//	"StartGame"                       (payload-less kinds only)
//	{"PlayerList": [{"pid": 1, "name": "AJ", "score": 0, "buzzed": false}]}
//
// Host -> server:   StartGame, HostChoice, HostReady, HostChecked, EndGame
// Player -> server: Buzz, Heartbeat, LatencyOfHeartbeat
// Server -> host:   PlayerList, GameState, Buzzed
// Server -> player: NewPlayer, PlayerState, GameState, DoHeartbeat, Witness
//
// GameState and PlayerState are full snapshots, never deltas. Witness
// carries a copy of another participant's event and is cosmetic only.
package types
