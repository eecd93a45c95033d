package types

import "encoding/json"

type Kind string

const (
	KindStartGame          Kind = "StartGame"
	KindEndGame            Kind = "EndGame"
	KindHostChoice         Kind = "HostChoice"
	KindHostReady          Kind = "HostReady"
	KindHostChecked        Kind = "HostChecked"
	KindBuzzEnable         Kind = "BuzzEnable"
	KindBuzzDisable        Kind = "BuzzDisable"
	KindBuzz               Kind = "Buzz"
	KindBuzzed             Kind = "Buzzed"
	KindHeartbeat          Kind = "Heartbeat"
	KindDoHeartbeat        Kind = "DoHeartbeat"
	KindGotHeartbeat       Kind = "GotHeartbeat"
	KindLatencyOfHeartbeat Kind = "LatencyOfHeartbeat"
	KindPlayerList         Kind = "PlayerList"
	KindNewPlayer          Kind = "NewPlayer"
	KindPlayerState        Kind = "PlayerState"
	KindGameState          Kind = "GameState"
	KindWitness            Kind = "Witness"
)

// Msg is one frame of the protocol. The concrete type is the variant.
type Msg interface {
	Kind() Kind
}

// Host actions

type StartGame struct{}

type EndGame struct{}

type HostChoice struct {
	CategoryIndex int `json:"categoryIndex"`
	QuestionIndex int `json:"questionIndex"`
}

type HostReady struct{}

type HostChecked struct {
	Correct bool `json:"correct"`
}

// Buzzer

// BuzzEnable and BuzzDisable are reserved: they decode and are witnessed,
// but the room gives them no effect.
type BuzzEnable struct{}

type BuzzDisable struct{}

type Buzz struct{}

type Buzzed struct {
	PID  PlayerID `json:"pid"`
	Name string   `json:"name"`
}

// Heartbeats

type DoHeartbeat struct {
	HBID  HeartbeatID `json:"hbid"`
	TSent UnixMs      `json:"t_sent"`
}

type Heartbeat struct {
	HBID      HeartbeatID `json:"hbid"`
	TDoHBRecv UnixMs      `json:"t_dohb_recv"`
}

// GotHeartbeat is reserved.
type GotHeartbeat struct {
	HBID HeartbeatID `json:"hbid"`
}

type LatencyOfHeartbeat struct {
	HBID HeartbeatID `json:"hbid"`
	TLat UnixMs      `json:"t_lat"`
}

// Roster and snapshots

type PlayerList []Player

type NewPlayer struct {
	PID   PlayerID `json:"pid"`
	Token string   `json:"token"`
}

type PlayerState struct {
	PID     PlayerID `json:"pid"`
	Buzzed  bool     `json:"buzzed"`
	Score   int32    `json:"score"`
	CanBuzz bool     `json:"canBuzz"`
}

// Snapshot is the full game state, sent under the GameState kind.
type Snapshot struct {
	State           GameState    `json:"state"`
	Categories      []Category   `json:"categories"`
	Players         []Player     `json:"players"`
	CurrentQuestion *QuestionRef `json:"currentQuestion"`
	CurrentBuzzer   *PlayerID    `json:"currentBuzzer"`
}

// Witness wraps another participant's event.
type Witness struct {
	Msg Msg
}

func (w Witness) MarshalJSON() ([]byte, error) {
	inner, err := Encode(w.Msg)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Msg json.RawMessage `json:"msg"`
	}{Msg: inner})
}

func (w *Witness) UnmarshalJSON(data []byte) error {
	var wire struct {
		Msg json.RawMessage `json:"msg"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	inner, err := Decode(wire.Msg)
	if err != nil {
		return err
	}
	w.Msg = inner
	return nil
}

func (StartGame) Kind() Kind          { return KindStartGame }
func (EndGame) Kind() Kind            { return KindEndGame }
func (HostChoice) Kind() Kind         { return KindHostChoice }
func (HostReady) Kind() Kind          { return KindHostReady }
func (HostChecked) Kind() Kind        { return KindHostChecked }
func (BuzzEnable) Kind() Kind         { return KindBuzzEnable }
func (BuzzDisable) Kind() Kind        { return KindBuzzDisable }
func (Buzz) Kind() Kind               { return KindBuzz }
func (Buzzed) Kind() Kind             { return KindBuzzed }
func (DoHeartbeat) Kind() Kind        { return KindDoHeartbeat }
func (Heartbeat) Kind() Kind          { return KindHeartbeat }
func (GotHeartbeat) Kind() Kind       { return KindGotHeartbeat }
func (LatencyOfHeartbeat) Kind() Kind { return KindLatencyOfHeartbeat }
func (PlayerList) Kind() Kind         { return KindPlayerList }
func (NewPlayer) Kind() Kind          { return KindNewPlayer }
func (PlayerState) Kind() Kind        { return KindPlayerState }
func (Snapshot) Kind() Kind           { return KindGameState }
func (Witness) Kind() Kind            { return KindWitness }
