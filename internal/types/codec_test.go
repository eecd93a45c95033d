package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_HostChoice(t *testing.T) {
	msg, err := Decode([]byte(`{"HostChoice":{"categoryIndex":1,"questionIndex":3}}`))
	require.NoError(t, err)
	assert.Equal(t, HostChoice{CategoryIndex: 1, QuestionIndex: 3}, msg)
}

func TestDecode_UnitKindForms(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{name: "empty object", in: `{"StartGame":{}}`},
		{name: "null payload", in: `{"StartGame":null}`},
		{name: "bare string", in: `"StartGame"`},
		{name: "surrounding whitespace", in: "  {\"StartGame\":{}}\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg, err := Decode([]byte(tc.in))
			require.NoError(t, err)
			assert.Equal(t, StartGame{}, msg)
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want error
	}{
		{name: "empty", in: ``, want: ErrMalformed},
		{name: "not json", in: `{nope`, want: ErrMalformed},
		{name: "two kinds", in: `{"Buzz":{},"StartGame":{}}`, want: ErrMalformed},
		{name: "no kinds", in: `{}`, want: ErrMalformed},
		{name: "unknown kind", in: `{"Teleport":{}}`, want: ErrUnknownMessage},
		{name: "unknown bare kind", in: `"Teleport"`, want: ErrUnknownMessage},
		{name: "bare kind that needs payload", in: `"HostChoice"`, want: ErrMalformed},
		{name: "wrong payload type", in: `{"HostChecked":{"correct":"yes"}}`, want: ErrMalformed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.in))
			if !errors.Is(err, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, err)
			}
		})
	}
}

func TestEncode_SnapshotShape(t *testing.T) {
	buzzer := PlayerID(2)
	snap := Snapshot{
		State: StateAnswer,
		Categories: []Category{{Title: "Rivers", Questions: []Question{
			{Question: "Longest?", Answer: "Nile", Value: 100},
		}}},
		Players:         []Player{{PID: 2, Name: "AJ", Score: 100, Buzzed: true, Token: "secret"}},
		CurrentQuestion: &QuestionRef{Category: 0, Question: 0},
		CurrentBuzzer:   &buzzer,
	}

	data, err := Encode(snap)
	require.NoError(t, err)
	assert.JSONEq(t, `{"GameState":{
		"state":"Answer",
		"categories":[{"title":"Rivers","questions":[{"question":"Longest?","answer":"Nile","value":100,"answered":false}]}],
		"players":[{"pid":2,"name":"AJ","score":100,"buzzed":true}],
		"currentQuestion":[0,0],
		"currentBuzzer":2
	}}`, string(data))
	assert.NotContains(t, string(data), "secret")
}

func TestEncode_PlayerListIsBareArray(t *testing.T) {
	data, err := Encode(PlayerList{{PID: 1, Name: "AJ"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"PlayerList":[{"pid":1,"name":"AJ","score":0,"buzzed":false}]}`, string(data))
}

func TestWitness_WrapsInnerMessage(t *testing.T) {
	data, err := Encode(Witness{Msg: Buzz{}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Witness":{"msg":{"Buzz":{}}}}`, string(data))

	back, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, Witness{Msg: Buzz{}}, back)
}

func TestGameState_QuestionOpen(t *testing.T) {
	open := map[GameState]bool{
		StateStart:           false,
		StateSelection:       false,
		StateQuestionReading: true,
		StateWaitingForBuzz:  true,
		StateAnswer:          true,
		StateGameEnd:         false,
	}
	for state, want := range open {
		if got := state.QuestionOpen(); got != want {
			t.Fatalf("%s: QuestionOpen() = %v, want %v", state, got, want)
		}
	}
}
